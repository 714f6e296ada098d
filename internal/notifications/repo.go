package notifications

import (
	"context"
	"time"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for user notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a notification repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Notification
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error
}

// DeleteReadBefore prunes read notifications older than the cutoff and
// reports how many rows went away. Used by the retention job.
func (r *repository) DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	result := conn.WithContext(ctx).
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
