package roles

import (
	"context"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/permissions"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for roles and role assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateDefaults(ctx context.Context, communityID uuid.UUID) ([]models.Role, error)
	FindByID(ctx context.Context, roleID uuid.UUID) (*models.Role, error)
	FindDefault(ctx context.Context, communityID uuid.UUID) (*models.Role, error)
	FindByName(ctx context.Context, communityID uuid.UUID, name string) (*models.Role, error)
	ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]models.Role, error)
	Attach(ctx context.Context, membershipID, roleID uuid.UUID) error
	Detach(ctx context.Context, membershipID, roleID uuid.UUID) error
	EffectivePermissions(ctx context.Context, membershipID uuid.UUID) (permissions.Set, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a role store bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateDefaults stamps out the three-role batch for a new community.
func (r *repository) CreateDefaults(ctx context.Context, communityID uuid.UUID) ([]models.Role, error) {
	seeds := DefaultSeeds()
	rows := make([]models.Role, 0, len(seeds))
	for _, seed := range seeds {
		rows = append(rows, models.Role{
			CommunityID: communityID,
			Name:        seed.Name,
			Color:       seed.Color,
			Position:    seed.Position,
			IsDefault:   seed.IsDefault,
			Permissions: seed.Permissions,
		})
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByID(ctx context.Context, roleID uuid.UUID) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("id = ?", roleID).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *repository) FindDefault(ctx context.Context, communityID uuid.UUID) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND is_default", communityID).
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *repository) FindByName(ctx context.Context, communityID uuid.UUID, name string) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND name = ?", communityID, name).
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *repository) ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]models.Role, error) {
	var rows []models.Role
	err := r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("position DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Attach assigns a role to a membership, tolerating duplicates.
func (r *repository) Attach(ctx context.Context, membershipID, roleID uuid.UUID) error {
	assignment := models.MembershipRole{
		MembershipID: membershipID,
		RoleID:       roleID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "membership_id"}, {Name: "role_id"}},
			DoNothing: true,
		}).
		Create(&assignment).Error
}

func (r *repository) Detach(ctx context.Context, membershipID, roleID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("membership_id = ? AND role_id = ?", membershipID, roleID).
		Delete(&models.MembershipRole{}).Error
}

// EffectivePermissions returns the union of flags across every role attached
// to the membership. OR semantics: a grant from any role wins.
func (r *repository) EffectivePermissions(ctx context.Context, membershipID uuid.UUID) (permissions.Set, error) {
	var rows []models.Role
	err := r.db.WithContext(ctx).
		Model(&models.Role{}).
		Joins("JOIN membership_roles mr ON mr.role_id = roles.id").
		Where("mr.membership_id = ?", membershipID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	effective := permissions.Set{}
	for _, role := range rows {
		effective = effective.Union(role.Permissions)
	}
	return effective, nil
}
