package access

import (
	"context"
	"errors"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/permissions"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// communityStore is the slice of the community registry the gate needs.
type communityStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Community, error)
	HasModerator(ctx context.Context, communityID, userID uuid.UUID) (bool, error)
}

// membershipStore is the slice of the membership ledger the gate needs. Every
// decision here reads the ledger; no cached member list is consulted.
type membershipStore interface {
	FindByUserAndCommunity(ctx context.Context, userID, communityID uuid.UUID) (*models.Membership, error)
}

// permissionStore resolves the flag union for one membership.
type permissionStore interface {
	EffectivePermissions(ctx context.Context, membershipID uuid.UUID) (permissions.Set, error)
}

// GateParams groups dependencies for the access gate.
type GateParams struct {
	Communities communityStore
	Memberships membershipStore
	Permissions permissionStore
}

// Gate answers every "may this user do this here" question in one place.
// userID == uuid.Nil means an unauthenticated caller; the gate distinguishes
// "sign in first" (UNAUTHORIZED) from "signed in but not allowed" (FORBIDDEN).
type Gate struct {
	communities communityStore
	memberships membershipStore
	permissions permissionStore
}

// NewGate builds an access gate with the required dependencies.
func NewGate(params GateParams) (*Gate, error) {
	if params.Communities == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "community store is required")
	}
	if params.Memberships == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "membership store is required")
	}
	if params.Permissions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "permission store is required")
	}
	return &Gate{
		communities: params.Communities,
		memberships: params.Memberships,
		permissions: params.Permissions,
	}, nil
}

func (g *Gate) community(ctx context.Context, communityID uuid.UUID) (*models.Community, error) {
	community, err := g.communities.FindByID(ctx, communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, err
	}
	return community, nil
}

// ActiveMembership returns the caller's membership when it is ACTIVE, or nil
// when no row exists or the row is in any other state.
func (g *Gate) ActiveMembership(ctx context.Context, userID, communityID uuid.UUID) (*models.Membership, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	membership, err := g.memberships.FindByUserAndCommunity(ctx, userID, communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if membership.Status != enums.MembershipStatusActive {
		return nil, nil
	}
	return membership, nil
}

// IsMember reports whether the user holds an ACTIVE membership. PENDING,
// BANNED and REJECTED rows all answer false.
func (g *Gate) IsMember(ctx context.Context, userID, communityID uuid.UUID) (bool, error) {
	membership, err := g.ActiveMembership(ctx, userID, communityID)
	if err != nil {
		return false, err
	}
	return membership != nil, nil
}

// IsModerator reports whether the user may act on other memberships: the
// community creator always can, otherwise a moderator row must exist.
func (g *Gate) IsModerator(ctx context.Context, userID, communityID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	community, err := g.community(ctx, communityID)
	if err != nil {
		return false, err
	}
	if community.CreatorID == userID {
		return true, nil
	}
	return g.communities.HasModerator(ctx, communityID, userID)
}

// CanViewContent gates reads. Public communities are visible to everyone,
// including anonymous callers. Private communities require an ACTIVE
// membership; an anonymous caller gets UNAUTHORIZED, an authenticated
// non-member gets FORBIDDEN.
func (g *Gate) CanViewContent(ctx context.Context, userID, communityID uuid.UUID) error {
	community, err := g.community(ctx, communityID)
	if err != nil {
		return err
	}
	if !community.IsPrivate {
		return nil
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view this community")
	}
	member, err := g.IsMember(ctx, userID, communityID)
	if err != nil {
		return err
	}
	if !member {
		return pkgerrors.New(pkgerrors.CodeForbidden, "membership required to view this community")
	}
	return nil
}

// RequireActiveMember gates writes that any member may perform.
func (g *Gate) RequireActiveMember(ctx context.Context, userID, communityID uuid.UUID) (*models.Membership, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if _, err := g.community(ctx, communityID); err != nil {
		return nil, err
	}
	membership, err := g.ActiveMembership(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "active membership required")
	}
	return membership, nil
}

// CanManageMembership gates moderation actions on other members' rows.
func (g *Gate) CanManageMembership(ctx context.Context, userID, communityID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	ok, err := g.IsModerator(ctx, userID, communityID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "moderator standing required")
	}
	return nil
}

// RequirePermission gates an action behind one permission flag. The community
// creator short-circuits every flag check; everyone else needs an ACTIVE
// membership whose role union grants the flag.
func (g *Gate) RequirePermission(ctx context.Context, userID, communityID uuid.UUID, flag permissions.Flag) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	community, err := g.community(ctx, communityID)
	if err != nil {
		return err
	}
	if community.CreatorID == userID {
		return nil
	}
	membership, err := g.ActiveMembership(ctx, userID, communityID)
	if err != nil {
		return err
	}
	if membership == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "active membership required")
	}
	set, err := g.permissions.EffectivePermissions(ctx, membership.ID)
	if err != nil {
		return err
	}
	if !set.Has(flag) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "missing permission: "+string(flag))
	}
	return nil
}
