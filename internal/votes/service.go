package votes

import (
	"context"
	"errors"

	"github.com/davazquez/commonroom-backend/internal/access"
	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TargetStore is the slice of the content layer the vote engine needs: map a
// target to its community, and move its cached counters atomically.
type TargetStore interface {
	ResolveVoteTarget(ctx context.Context, targetType enums.VoteTargetType, targetID uuid.UUID) (uuid.UUID, error)
	AdjustVoteCounts(ctx context.Context, tx *gorm.DB, targetType enums.VoteTargetType, targetID uuid.UUID, upDelta, downDelta int) error
	GetVoteCounts(ctx context.Context, targetType enums.VoteTargetType, targetID uuid.UUID) (int, int, error)
}

// ServiceParams groups dependencies for the vote service.
type ServiceParams struct {
	Tx       TxRunner
	VoteRepo Repository
	Targets  TargetStore
	Gate     *access.Gate
}

// Service exposes the vote engine: cast (including direction flips) and
// retract, with the ledger as the single source of truth and the target's
// counters as a cache adjusted in the same transaction.
type Service interface {
	Cast(ctx context.Context, voterID uuid.UUID, targetType enums.VoteTargetType, targetID uuid.UUID, direction enums.VoteDirection) (TotalsDTO, error)
	Retract(ctx context.Context, voterID uuid.UUID, targetType enums.VoteTargetType, targetID uuid.UUID) (TotalsDTO, error)
}

type service struct {
	tx       TxRunner
	voteRepo Repository
	targets  TargetStore
	gate     *access.Gate
}

// NewService builds a vote service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if params.VoteRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vote repo is required")
	}
	if params.Targets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target store is required")
	}
	if params.Gate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access gate is required")
	}
	return &service{
		tx:       params.Tx,
		voteRepo: params.VoteRepo,
		targets:  params.Targets,
		gate:     params.Gate,
	}, nil
}

// Cast records or flips a vote. A fresh vote adjusts one counter by +1; a
// flip adjusts both counters in a single statement, moving the score by 2.
// Re-casting the same direction is a no-op.
func (s *service) Cast(ctx context.Context, voterID uuid.UUID, targetType enums.VoteTargetType, targetID uuid.UUID, direction enums.VoteDirection) (TotalsDTO, error) {
	if !direction.IsValid() {
		return TotalsDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown vote direction")
	}
	if _, err := s.admit(ctx, voterID, targetType, targetID); err != nil {
		return TotalsDTO{}, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := s.voteRepo.WithTx(tx)

		vote := &models.Vote{
			VoterID:    voterID,
			TargetType: targetType,
			TargetID:   targetID,
			Direction:  direction,
		}
		inserted, err := ledger.Insert(ctx, vote)
		if err != nil {
			return err
		}
		if inserted {
			up, down := deltasFor(direction)
			return s.targets.AdjustVoteCounts(ctx, tx, targetType, targetID, up, down)
		}

		existing, err := ledger.FindByVoterAndTarget(ctx, voterID, targetType, targetID)
		if err != nil {
			return err
		}
		// The repo may hand back a row it later mutates in place, so the old
		// side has to be captured before the update.
		oldDirection := existing.Direction
		if oldDirection == direction {
			return nil
		}

		flipped, err := ledger.UpdateDirection(ctx, existing.ID, oldDirection, direction)
		if err != nil {
			return err
		}
		if !flipped {
			// Lost a race. If the other writer landed on our direction the
			// outcome is what we wanted anyway.
			current, err := ledger.FindByVoterAndTarget(ctx, voterID, targetType, targetID)
			if err != nil {
				return err
			}
			if current.Direction == direction {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vote changed concurrently, try again")
		}

		// Both counters move in one statement: -1 off the old side, +1 on
		// the new one.
		oldUp, oldDown := deltasFor(oldDirection)
		newUp, newDown := deltasFor(direction)
		return s.targets.AdjustVoteCounts(ctx, tx, targetType, targetID, newUp-oldUp, newDown-oldDown)
	})
	if err != nil {
		return TotalsDTO{}, err
	}

	return s.currentTotals(ctx, targetType, targetID)
}

// Retract withdraws the caller's vote. Retracting a vote that does not exist
// is a no-op, not an error.
func (s *service) Retract(ctx context.Context, voterID uuid.UUID, targetType enums.VoteTargetType, targetID uuid.UUID) (TotalsDTO, error) {
	if _, err := s.admit(ctx, voterID, targetType, targetID); err != nil {
		return TotalsDTO{}, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := s.voteRepo.WithTx(tx)

		existing, err := ledger.FindByVoterAndTarget(ctx, voterID, targetType, targetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		deleted, err := ledger.DeleteDirected(ctx, existing.ID, existing.Direction)
		if err != nil {
			return err
		}
		if !deleted {
			// Another writer flipped or removed the row; nothing to undo
			// from this caller's point of view.
			return nil
		}

		up, down := deltasFor(existing.Direction)
		return s.targets.AdjustVoteCounts(ctx, tx, targetType, targetID, -up, -down)
	})
	if err != nil {
		return TotalsDTO{}, err
	}

	return s.currentTotals(ctx, targetType, targetID)
}

// admit validates the target, resolves its community and runs the visibility
// gate. Voting is always an authenticated act.
func (s *service) admit(ctx context.Context, voterID uuid.UUID, targetType enums.VoteTargetType, targetID uuid.UUID) (uuid.UUID, error) {
	if voterID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !targetType.IsValid() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown vote target type")
	}
	if targetID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "target id is required")
	}

	communityID, err := s.targets.ResolveVoteTarget(ctx, targetType, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "vote target not found")
		}
		return uuid.Nil, err
	}
	if err := s.gate.CanViewContent(ctx, voterID, communityID); err != nil {
		return uuid.Nil, err
	}
	return communityID, nil
}

func (s *service) currentTotals(ctx context.Context, targetType enums.VoteTargetType, targetID uuid.UUID) (TotalsDTO, error) {
	up, down, err := s.targets.GetVoteCounts(ctx, targetType, targetID)
	if err != nil {
		return TotalsDTO{}, err
	}
	return totals(up, down), nil
}

func deltasFor(direction enums.VoteDirection) (up, down int) {
	if direction == enums.VoteDirectionUp {
		return 1, 0
	}
	return 0, 1
}
