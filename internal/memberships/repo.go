package memberships

import (
	"context"
	"time"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for the membership ledger. Status moves go
// through guarded updates only: a transition names the state it expects, and
// a concurrent writer that got there first makes the update match zero rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, membership *models.Membership) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Membership, error)
	FindByUserAndCommunity(ctx context.Context, userID, communityID uuid.UUID) (*models.Membership, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.MembershipStatus, joinedAt *time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByStatus(ctx context.Context, communityID uuid.UUID, status enums.MembershipStatus, cursor *pagination.Cursor, limit int) ([]models.Membership, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a membership ledger bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	var membership models.Membership
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&membership).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *repository) FindByUserAndCommunity(ctx context.Context, userID, communityID uuid.UUID) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// TransitionStatus applies one state-machine edge. It returns false when the
// row was not in the expected `from` state, which callers treat as losing a
// race rather than as corruption.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.MembershipStatus, joinedAt *time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if joinedAt != nil {
		updates["joined_at"] = *joinedAt
	}
	if to == enums.MembershipStatusPending {
		// A fresh request: the old decision timestamps no longer apply.
		updates["requested_at"] = time.Now().UTC()
		updates["joined_at"] = nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Membership{}).Error
}

// ListByStatus pages ledger rows for one community newest-request-first. The
// sort key is requested_at, not created_at: a re-request reuses its old row
// and only the request timestamp is refreshed.
func (r *repository) ListByStatus(ctx context.Context, communityID uuid.UUID, status enums.MembershipStatus, cursor *pagination.Cursor, limit int) ([]models.Membership, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("community_id = ? AND status = ?", communityID, status)
	if cursor != nil {
		query = query.Where("(requested_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Membership
	err := query.
		Order("requested_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
