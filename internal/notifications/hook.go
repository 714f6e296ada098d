package notifications

import (
	"context"
	"encoding/json"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/davazquez/commonroom-backend/internal/memberships"
	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/logger"
	"go.uber.org/multierr"
)

const publishTimeout = 10 * time.Second

var bodyByKind = map[enums.NotificationKind]string{
	enums.NotificationMembershipApproved: "Your request to join was approved.",
	enums.NotificationMembershipRejected: "Your request to join was declined.",
	enums.NotificationMembershipBanned:   "You have been banned from this community.",
}

// Recorder turns membership decisions into notification rows and fans the
// event out to Pub/Sub. It runs after the decision has committed, so its
// failures are reported back to the hook runner and never beyond.
type Recorder struct {
	repo      Repository
	publisher *gcppubsub.Publisher
	logg      *logger.Logger
}

// NewRecorder builds a decision hook. The publisher may be nil when the
// deployment runs without Pub/Sub.
func NewRecorder(repo Repository, publisher *gcppubsub.Publisher, logg *logger.Logger) (*Recorder, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification repo is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Recorder{repo: repo, publisher: publisher, logg: logg}, nil
}

// MembershipDecided implements the membership decision hook.
func (r *Recorder) MembershipDecided(ctx context.Context, event memberships.MembershipEvent) error {
	var errs error

	notification := &models.Notification{
		UserID:      event.UserID,
		CommunityID: event.CommunityID,
		Kind:        event.Kind,
		Body:        bodyByKind[event.Kind],
	}
	if err := r.repo.Create(ctx, notification); err != nil {
		errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write notification"))
	}

	if err := r.publish(ctx, event); err != nil {
		errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish membership event"))
	}
	return errs
}

func (r *Recorder) publish(ctx context.Context, event memberships.MembershipEvent) error {
	if r.publisher == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"membership_id": event.MembershipID.String(),
		"user_id":       event.UserID.String(),
		"community_id":  event.CommunityID.String(),
		"kind":          event.Kind.String(),
		"occurred_at":   event.OccurredAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := r.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"kind": event.Kind.String(),
		},
	})
	_, err = result.Get(publishCtx)
	return err
}
