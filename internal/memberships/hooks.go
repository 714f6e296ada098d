package memberships

import (
	"context"
	"time"

	"github.com/davazquez/commonroom-backend/pkg/enums"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// MembershipEvent describes a finalized lifecycle decision: an approval, a
// rejection or a ban. Events are emitted only after the owning transaction
// has committed.
type MembershipEvent struct {
	MembershipID uuid.UUID
	UserID       uuid.UUID
	CommunityID  uuid.UUID
	Kind         enums.NotificationKind
	OccurredAt   time.Time
}

// DecisionHook receives membership events after commit. Hooks are best
// effort: a failing hook is logged and never unwinds the decision.
type DecisionHook interface {
	MembershipDecided(ctx context.Context, event MembershipEvent) error
}

// runHooks fans the event out to every hook and logs the aggregate of any
// failures. The decision stands regardless.
func (s *service) runHooks(ctx context.Context, event MembershipEvent) {
	var errs error
	for _, hook := range s.hooks {
		if err := hook.MembershipDecided(ctx, event); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		s.logg.Error(ctx, "membership decision hooks failed", errs)
	}
}
