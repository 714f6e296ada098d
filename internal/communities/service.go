package communities

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/davazquez/commonroom-backend/internal/roles"
	"github.com/davazquez/commonroom-backend/pkg/db"
	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the community service.
type ServiceParams struct {
	Tx            TxRunner
	CommunityRepo Repository
	RoleRepo      roles.Repository
}

// Service exposes business rules for the community registry.
type Service interface {
	Create(ctx context.Context, creatorID uuid.UUID, input CreateCommunityInput) (CommunityDTO, error)
	Get(ctx context.Context, id uuid.UUID) (CommunityDTO, error)
	GetBySlug(ctx context.Context, slug string) (CommunityDTO, error)
	List(ctx context.Context, params pagination.Params) (CommunitiesPageDTO, error)
	Delete(ctx context.Context, actorID, communityID uuid.UUID) error
	AddModerator(ctx context.Context, actorID, communityID, userID uuid.UUID) error
	RemoveModerator(ctx context.Context, actorID, communityID, userID uuid.UUID) error
}

type service struct {
	tx            TxRunner
	communityRepo Repository
	roleRepo      roles.Repository
}

// NewService builds a community service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if params.CommunityRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "community repo is required")
	}
	if params.RoleRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role repo is required")
	}
	return &service{
		tx:            params.Tx,
		communityRepo: params.CommunityRepo,
		roleRepo:      params.RoleRepo,
	}, nil
}

// Create registers a community and, in the same transaction, stamps out the
// default roles and an ACTIVE creator membership carrying the Admin role. The
// creator is member number one, so the cached counter starts at 1.
func (s *service) Create(ctx context.Context, creatorID uuid.UUID, input CreateCommunityInput) (CommunityDTO, error) {
	if creatorID == uuid.Nil {
		return CommunityDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	name := strings.TrimSpace(input.Name)
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if name == "" || slug == "" {
		return CommunityDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "name and slug are required")
	}

	community := &models.Community{
		Name:             name,
		Slug:             slug,
		IsPrivate:        input.IsPrivate,
		RequiresApproval: input.RequiresApproval,
		CreatorID:        creatorID,
		MemberCount:      1,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		communityRepo := s.communityRepo.WithTx(tx)
		roleRepo := s.roleRepo.WithTx(tx)

		if err := communityRepo.Create(ctx, community); err != nil {
			return err
		}

		seeded, err := roleRepo.CreateDefaults(ctx, community.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		membership := &models.Membership{
			UserID:      creatorID,
			CommunityID: community.ID,
			Status:      enums.MembershipStatusActive,
			RequestedAt: now,
			JoinedAt:    &now,
		}
		if err := communityRepo.CreateMembership(ctx, membership); err != nil {
			return err
		}

		for _, role := range seeded {
			if role.Name == roles.DefaultAdminRole || role.IsDefault {
				if err := roleRepo.Attach(ctx, membership.ID, role.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return CommunityDTO{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "community name or slug already taken")
		}
		return CommunityDTO{}, err
	}

	return toDTO(community), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (CommunityDTO, error) {
	community, err := s.find(ctx, id)
	if err != nil {
		return CommunityDTO{}, err
	}
	return toDTO(community), nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (CommunityDTO, error) {
	community, err := s.communityRepo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CommunityDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return CommunityDTO{}, err
	}
	return toDTO(community), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (CommunitiesPageDTO, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return CommunitiesPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.communityRepo.List(ctx, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return CommunitiesPageDTO{}, err
	}

	page := CommunitiesPageDTO{Items: make([]CommunityDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range rows {
		page.Items = append(page.Items, toDTO(&rows[i]))
	}
	return page, nil
}

// Delete removes a community. Only the creator may do this.
func (s *service) Delete(ctx context.Context, actorID, communityID uuid.UUID) error {
	community, err := s.find(ctx, communityID)
	if err != nil {
		return err
	}
	if community.CreatorID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the creator can delete a community")
	}
	return s.communityRepo.Delete(ctx, communityID)
}

// AddModerator grants moderator standing. Only the creator may grant it, and
// only to users holding an ACTIVE membership.
func (s *service) AddModerator(ctx context.Context, actorID, communityID, userID uuid.UUID) error {
	community, err := s.find(ctx, communityID)
	if err != nil {
		return err
	}
	if community.CreatorID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the creator can manage moderators")
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	membership, err := s.communityRepo.FindMembership(ctx, communityID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		}
		return err
	}
	if membership.Status != enums.MembershipStatusActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only active members can be moderators")
	}

	return s.communityRepo.AddModerator(ctx, communityID, userID)
}

func (s *service) RemoveModerator(ctx context.Context, actorID, communityID, userID uuid.UUID) error {
	community, err := s.find(ctx, communityID)
	if err != nil {
		return err
	}
	if community.CreatorID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the creator can manage moderators")
	}
	return s.communityRepo.RemoveModerator(ctx, communityID, userID)
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "community id is required")
	}
	community, err := s.communityRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, err
	}
	return community, nil
}
