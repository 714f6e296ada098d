package users

import (
	"context"
	"strings"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the user directory: it maps external identities to internal
// user rows. Rows are created on first sign-in and never deleted here.
type Repository interface {
	Resolve(ctx context.Context, externalID, handle string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a user directory bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Resolve finds the internal user for an external identity, creating the row
// on first sight. The unique index on external_id makes concurrent first
// sign-ins converge on a single row.
func (r *repository) Resolve(ctx context.Context, externalID, handle string) (*models.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, gorm.ErrInvalidValue
	}

	user := &models.User{
		ExternalID: externalID,
		Handle:     strings.TrimSpace(handle),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).
		Create(user).Error
	if err != nil {
		return nil, err
	}

	// DoNothing leaves the struct unpopulated when the row already existed.
	return r.FindByExternalID(ctx, externalID)
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
