package votes

import (
	"context"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages the vote ledger. One row per (voter, target), enforced
// by the composite unique index; every mutation here is guarded so concurrent
// writers cannot double-apply a counter adjustment.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, vote *models.Vote) (bool, error)
	FindByVoterAndTarget(ctx context.Context, voterID uuid.UUID, targetType enums.VoteTargetType, targetID uuid.UUID) (*models.Vote, error)
	UpdateDirection(ctx context.Context, id uuid.UUID, from, to enums.VoteDirection) (bool, error)
	DeleteDirected(ctx context.Context, id uuid.UUID, direction enums.VoteDirection) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vote ledger bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Insert writes the ledger row and reports whether this call created it. A
// concurrent voter who got there first makes the insert a no-op.
func (r *repository) Insert(ctx context.Context, vote *models.Vote) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "voter_id"}, {Name: "target_type"}, {Name: "target_id"},
			},
			DoNothing: true,
		}).
		Create(vote)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindByVoterAndTarget(ctx context.Context, voterID uuid.UUID, targetType enums.VoteTargetType, targetID uuid.UUID) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("voter_id = ? AND target_type = ? AND target_id = ?", voterID, targetType, targetID).
		First(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// UpdateDirection flips the row only if it still points the way the caller
// saw it. A miss means another writer flipped it first.
func (r *repository) UpdateDirection(ctx context.Context, id uuid.UUID, from, to enums.VoteDirection) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("id = ? AND direction = ?", id, from).
		Update("direction", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteDirected removes the row only while it still carries the direction
// the caller is about to decrement.
func (r *repository) DeleteDirected(ctx context.Context, id uuid.UUID, direction enums.VoteDirection) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND direction = ?", id, direction).
		Delete(&models.Vote{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
