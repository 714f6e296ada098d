package memberships

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/davazquez/commonroom-backend/internal/access"
	"github.com/davazquez/commonroom-backend/internal/communities"
	"github.com/davazquez/commonroom-backend/internal/roles"
	"github.com/davazquez/commonroom-backend/pkg/db"
	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/logger"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the membership service.
type ServiceParams struct {
	Tx             TxRunner
	MembershipRepo Repository
	CommunityRepo  communities.Repository
	RoleRepo       roles.Repository
	Gate           *access.Gate
	Logger         *logger.Logger
	Hooks          []DecisionHook
}

// Service exposes the membership lifecycle: join, leave, moderate.
type Service interface {
	RequestOrJoin(ctx context.Context, userID, communityID uuid.UUID, input JoinInput) (MembershipDTO, error)
	Leave(ctx context.Context, userID, communityID uuid.UUID) error
	GetOwn(ctx context.Context, userID, communityID uuid.UUID) (MembershipDTO, error)
	Decide(ctx context.Context, actorID, communityID, membershipID uuid.UUID, decision enums.MembershipDecision) (MembershipDTO, error)
	Ban(ctx context.Context, actorID, communityID, userID uuid.UUID) error
	ListPending(ctx context.Context, actorID, communityID uuid.UUID, params pagination.Params) (PendingPageDTO, error)
}

type service struct {
	tx             TxRunner
	membershipRepo Repository
	communityRepo  communities.Repository
	roleRepo       roles.Repository
	gate           *access.Gate
	logg           *logger.Logger
	hooks          []DecisionHook
}

// NewService builds a membership service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if params.MembershipRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "membership repo is required")
	}
	if params.CommunityRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "community repo is required")
	}
	if params.RoleRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role repo is required")
	}
	if params.Gate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access gate is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		tx:             params.Tx,
		membershipRepo: params.MembershipRepo,
		communityRepo:  params.CommunityRepo,
		roleRepo:       params.RoleRepo,
		gate:           params.Gate,
		logg:           params.Logger,
		hooks:          params.Hooks,
	}, nil
}

// RequestOrJoin moves the caller's ledger row toward membership. Open
// communities admit immediately; private or approval-gated ones park the row
// in PENDING. A REJECTED row is reset to PENDING so the user can ask again; a
// BANNED row is a wall.
func (s *service) RequestOrJoin(ctx context.Context, userID, communityID uuid.UUID, input JoinInput) (MembershipDTO, error) {
	if userID == uuid.Nil {
		return MembershipDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	community, err := s.findCommunity(ctx, communityID)
	if err != nil {
		return MembershipDTO{}, err
	}

	existing, err := s.membershipRepo.FindByUserAndCommunity(ctx, userID, communityID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return MembershipDTO{}, err
	}

	if existing != nil {
		switch existing.Status {
		case enums.MembershipStatusBanned:
			return MembershipDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "you are banned from this community")
		case enums.MembershipStatusActive:
			return MembershipDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "already a member")
		case enums.MembershipStatusPending:
			// Repeat request while pending is a no-op.
			return toDTO(existing), nil
		case enums.MembershipStatusRejected:
			ok, err := s.membershipRepo.TransitionStatus(ctx, existing.ID, enums.MembershipStatusRejected, enums.MembershipStatusPending, nil)
			if err != nil {
				return MembershipDTO{}, err
			}
			if !ok {
				return MembershipDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "membership changed, try again")
			}
			refreshed, err := s.membershipRepo.FindByID(ctx, existing.ID)
			if err != nil {
				return MembershipDTO{}, err
			}
			return toDTO(refreshed), nil
		}
	}

	now := time.Now().UTC()
	membership := &models.Membership{
		UserID:      userID,
		CommunityID: communityID,
		RequestedAt: now,
	}
	if name := strings.TrimSpace(input.DisplayName); name != "" {
		membership.DisplayName = &name
	}

	needsApproval := community.IsPrivate || community.RequiresApproval
	if needsApproval {
		membership.Status = enums.MembershipStatusPending
		if err := s.membershipRepo.Create(ctx, membership); err != nil {
			if db.IsUniqueViolation(err, "uq_membership_user_community") {
				return MembershipDTO{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "join request already exists")
			}
			return MembershipDTO{}, err
		}
		return toDTO(membership), nil
	}

	membership.Status = enums.MembershipStatusActive
	membership.JoinedAt = &now
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.membershipRepo.WithTx(tx).Create(ctx, membership); err != nil {
			return err
		}
		if err := s.attachDefaultRole(ctx, s.roleRepo.WithTx(tx), membership); err != nil {
			return err
		}
		_, err := s.communityRepo.WithTx(tx).AdjustMemberCount(ctx, communityID, 1)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err, "uq_membership_user_community") {
			return MembershipDTO{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "join already in progress")
		}
		return MembershipDTO{}, err
	}
	return toDTO(membership), nil
}

// Leave removes the caller's ledger row. The creator cannot leave their own
// community; deleting it is the exit. A pending request is withdrawn without
// touching the member counter.
func (s *service) Leave(ctx context.Context, userID, communityID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	community, err := s.findCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	if community.CreatorID == userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "the creator cannot leave their own community")
	}

	membership, err := s.membershipRepo.FindByUserAndCommunity(ctx, userID, communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no membership to leave")
		}
		return err
	}

	switch membership.Status {
	case enums.MembershipStatusActive:
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.membershipRepo.WithTx(tx).Delete(ctx, membership.ID); err != nil {
				return err
			}
			// Moderator standing ends with membership.
			if err := s.communityRepo.WithTx(tx).RemoveModerator(ctx, communityID, userID); err != nil {
				return err
			}
			_, err := s.communityRepo.WithTx(tx).AdjustMemberCount(ctx, communityID, -1)
			return err
		})
	case enums.MembershipStatusPending:
		return s.membershipRepo.Delete(ctx, membership.ID)
	default:
		return pkgerrors.New(pkgerrors.CodeNotFound, "no membership to leave")
	}
}

func (s *service) GetOwn(ctx context.Context, userID, communityID uuid.UUID) (MembershipDTO, error) {
	if userID == uuid.Nil {
		return MembershipDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	membership, err := s.membershipRepo.FindByUserAndCommunity(ctx, userID, communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MembershipDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		}
		return MembershipDTO{}, err
	}
	return toDTO(membership), nil
}

// Decide finalizes one pending request. Approval activates the row, attaches
// the community's default role and bumps the counter in one transaction;
// rejection just flips the status. Either way hooks fire after commit.
func (s *service) Decide(ctx context.Context, actorID, communityID, membershipID uuid.UUID, decision enums.MembershipDecision) (MembershipDTO, error) {
	if !decision.IsValid() {
		return MembershipDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown decision")
	}
	if err := s.gate.CanManageMembership(ctx, actorID, communityID); err != nil {
		return MembershipDTO{}, err
	}

	membership, err := s.membershipRepo.FindByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MembershipDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		}
		return MembershipDTO{}, err
	}
	if membership.CommunityID != communityID {
		return MembershipDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
	}
	if membership.Status != enums.MembershipStatusPending {
		return MembershipDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "request is no longer pending")
	}

	var kind enums.NotificationKind
	switch decision {
	case enums.MembershipDecisionApprove:
		kind = enums.NotificationMembershipApproved
		now := time.Now().UTC()
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			ledger := s.membershipRepo.WithTx(tx)
			ok, err := ledger.TransitionStatus(ctx, membershipID, enums.MembershipStatusPending, enums.MembershipStatusActive, &now)
			if err != nil {
				return err
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "request is no longer pending")
			}
			if err := s.attachDefaultRole(ctx, s.roleRepo.WithTx(tx), membership); err != nil {
				return err
			}
			_, err = s.communityRepo.WithTx(tx).AdjustMemberCount(ctx, communityID, 1)
			return err
		})
	case enums.MembershipDecisionReject:
		kind = enums.NotificationMembershipRejected
		var ok bool
		ok, err = s.membershipRepo.TransitionStatus(ctx, membershipID, enums.MembershipStatusPending, enums.MembershipStatusRejected, nil)
		if err == nil && !ok {
			err = pkgerrors.New(pkgerrors.CodeStateConflict, "request is no longer pending")
		}
	}
	if err != nil {
		return MembershipDTO{}, err
	}

	s.runHooks(ctx, MembershipEvent{
		MembershipID: membershipID,
		UserID:       membership.UserID,
		CommunityID:  communityID,
		Kind:         kind,
		OccurredAt:   time.Now().UTC(),
	})

	refreshed, err := s.membershipRepo.FindByID(ctx, membershipID)
	if err != nil {
		return MembershipDTO{}, err
	}
	return toDTO(refreshed), nil
}

// Ban blocks a user from the community. An existing row is moved to BANNED
// whatever its state; no row at all gets a BANNED row written so a later join
// attempt hits the wall. The creator cannot be banned.
func (s *service) Ban(ctx context.Context, actorID, communityID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.gate.CanManageMembership(ctx, actorID, communityID); err != nil {
		return err
	}
	community, err := s.findCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	if community.CreatorID == userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "the creator cannot be banned")
	}

	membership, err := s.membershipRepo.FindByUserAndCommunity(ctx, userID, communityID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		row := &models.Membership{
			UserID:      userID,
			CommunityID: communityID,
			Status:      enums.MembershipStatusBanned,
			RequestedAt: time.Now().UTC(),
		}
		if err := s.membershipRepo.Create(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "uq_membership_user_community") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "membership changed, try again")
			}
			return err
		}
		s.emitBan(ctx, row.ID, userID, communityID)
		return nil
	}

	if membership.Status == enums.MembershipStatusBanned {
		return nil
	}

	wasActive := membership.Status == enums.MembershipStatusActive
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := s.membershipRepo.WithTx(tx)
		ok, err := ledger.TransitionStatus(ctx, membership.ID, membership.Status, enums.MembershipStatusBanned, nil)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "membership changed, try again")
		}
		// A banned user keeps no moderator standing.
		if err := s.communityRepo.WithTx(tx).RemoveModerator(ctx, communityID, userID); err != nil {
			return err
		}
		if wasActive {
			if _, err := s.communityRepo.WithTx(tx).AdjustMemberCount(ctx, communityID, -1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitBan(ctx, membership.ID, userID, communityID)
	return nil
}

// ListPending pages the moderation queue newest-first.
func (s *service) ListPending(ctx context.Context, actorID, communityID uuid.UUID, params pagination.Params) (PendingPageDTO, error) {
	if err := s.gate.CanManageMembership(ctx, actorID, communityID); err != nil {
		return PendingPageDTO{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return PendingPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.membershipRepo.ListByStatus(ctx, communityID, enums.MembershipStatusPending, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return PendingPageDTO{}, err
	}

	page := PendingPageDTO{Items: make([]MembershipDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.RequestedAt,
			ID:        last.ID,
		})
	}
	for i := range rows {
		page.Items = append(page.Items, toDTO(&rows[i]))
	}
	return page, nil
}

func (s *service) emitBan(ctx context.Context, membershipID, userID, communityID uuid.UUID) {
	s.runHooks(ctx, MembershipEvent{
		MembershipID: membershipID,
		UserID:       userID,
		CommunityID:  communityID,
		Kind:         enums.NotificationMembershipBanned,
		OccurredAt:   time.Now().UTC(),
	})
}

func (s *service) attachDefaultRole(ctx context.Context, roleRepo roles.Repository, membership *models.Membership) error {
	defaultRole, err := roleRepo.FindDefault(ctx, membership.CommunityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A community without a default role is a setup bug, not a
			// reason to block the member.
			s.logg.Warn(ctx, "community has no default role")
			return nil
		}
		return err
	}
	return roleRepo.Attach(ctx, membership.ID, defaultRole.ID)
}

func (s *service) findCommunity(ctx context.Context, communityID uuid.UUID) (*models.Community, error) {
	if communityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "community id is required")
	}
	community, err := s.communityRepo.FindByID(ctx, communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, err
	}
	return community, nil
}
