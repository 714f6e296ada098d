package communities

import (
	"context"
	"time"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for communities and moderator grants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, community *models.Community) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Community, error)
	FindBySlug(ctx context.Context, slug string) (*models.Community, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Community, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustMemberCount(ctx context.Context, id uuid.UUID, delta int) (int, error)
	CreateMembership(ctx context.Context, membership *models.Membership) error
	FindMembership(ctx context.Context, communityID, userID uuid.UUID) (*models.Membership, error)
	AddModerator(ctx context.Context, communityID, userID uuid.UUID) error
	RemoveModerator(ctx context.Context, communityID, userID uuid.UUID) error
	HasModerator(ctx context.Context, communityID, userID uuid.UUID) (bool, error)
	ReconcileMemberCounts(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a community repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, community *models.Community) error {
	return r.db.WithContext(ctx).Create(community).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&community).Error; err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&community).Error; err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *repository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Community, error) {
	query := r.db.WithContext(ctx).Model(&models.Community{})
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Community
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Community{}).Error
}

// AdjustMemberCount moves the cached member counter by delta in a single
// atomic statement and returns the resulting value.
func (r *repository) AdjustMemberCount(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var count int
	// Bound timestamp rather than NOW() so the statement also runs on the
	// sqlite dev database.
	err := r.db.WithContext(ctx).Raw(
		"UPDATE communities SET member_count = member_count + ?, updated_at = ? WHERE id = ? RETURNING member_count",
		delta, time.Now().UTC(), id,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CreateMembership writes the creator's ledger row during community setup.
// Every later membership mutation goes through the membership ledger package.
func (r *repository) CreateMembership(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

// FindMembership loads the ledger row for one user in one community. Used
// here only to check moderator eligibility.
func (r *repository) FindMembership(ctx context.Context, communityID, userID uuid.UUID) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// AddModerator grants moderator standing as a whole-row insert; a repeat
// grant is a no-op rather than an error.
func (r *repository) AddModerator(ctx context.Context, communityID, userID uuid.UUID) error {
	grant := models.CommunityModerator{
		CommunityID: communityID,
		UserID:      userID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&grant).Error
}

func (r *repository) RemoveModerator(ctx context.Context, communityID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&models.CommunityModerator{}).Error
}

func (r *repository) HasModerator(ctx context.Context, communityID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommunityModerator{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReconcileMemberCounts recomputes every cached member counter from the
// membership ledger in one statement and returns how many rows drifted.
func (r *repository) ReconcileMemberCounts(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE communities SET member_count = sub.actual, updated_at = NOW()
		FROM (
			SELECT c.id, COUNT(m.id) AS actual
			FROM communities c
			LEFT JOIN memberships m ON m.community_id = c.id AND m.status = 'active'
			GROUP BY c.id
		) sub
		WHERE communities.id = sub.id AND communities.member_count <> sub.actual`)
	return result.RowsAffected, result.Error
}
