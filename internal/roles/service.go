package roles

import (
	"context"
	"errors"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/permissions"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceParams groups dependencies for the role service.
type ServiceParams struct {
	RoleRepo Repository
}

// Service exposes business rules for community roles and the permission flags
// they carry.
type Service interface {
	ListRoles(ctx context.Context, communityID uuid.UUID) ([]models.Role, error)
	EffectivePermissions(ctx context.Context, membershipID uuid.UUID) (permissions.Set, error)
	HasPermission(ctx context.Context, membershipID uuid.UUID, flag permissions.Flag) (bool, error)
	AttachRole(ctx context.Context, membershipID, roleID uuid.UUID) error
	DetachRole(ctx context.Context, membershipID, roleID uuid.UUID) error
}

type service struct {
	roleRepo Repository
}

// NewService builds a role service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.RoleRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role repo is required")
	}
	return &service{roleRepo: params.RoleRepo}, nil
}

func (s *service) ListRoles(ctx context.Context, communityID uuid.UUID) ([]models.Role, error) {
	if communityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "community id is required")
	}
	return s.roleRepo.ListByCommunity(ctx, communityID)
}

func (s *service) EffectivePermissions(ctx context.Context, membershipID uuid.UUID) (permissions.Set, error) {
	if membershipID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "membership id is required")
	}
	return s.roleRepo.EffectivePermissions(ctx, membershipID)
}

// HasPermission reports whether any role attached to the membership grants
// the flag. A membership with no roles holds no flags.
func (s *service) HasPermission(ctx context.Context, membershipID uuid.UUID, flag permissions.Flag) (bool, error) {
	if !flag.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "unknown permission flag")
	}
	set, err := s.EffectivePermissions(ctx, membershipID)
	if err != nil {
		return false, err
	}
	return set.Has(flag), nil
}

func (s *service) AttachRole(ctx context.Context, membershipID, roleID uuid.UUID) error {
	if membershipID == uuid.Nil || roleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "membership id and role id are required")
	}
	if _, err := s.findRole(ctx, roleID); err != nil {
		return err
	}
	return s.roleRepo.Attach(ctx, membershipID, roleID)
}

// DetachRole removes a role assignment. The community default role cannot be
// detached: every active member keeps at least baseline participation.
func (s *service) DetachRole(ctx context.Context, membershipID, roleID uuid.UUID) error {
	if membershipID == uuid.Nil || roleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "membership id and role id are required")
	}
	role, err := s.findRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsDefault {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "default role cannot be detached")
	}
	return s.roleRepo.Detach(ctx, membershipID, roleID)
}

func (s *service) findRole(ctx context.Context, roleID uuid.UUID) (*models.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "role not found")
		}
		return nil, err
	}
	return role, nil
}
