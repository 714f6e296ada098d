package communities

import (
	"context"
	"testing"
	"time"

	"github.com/davazquez/commonroom-backend/internal/roles"
	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
	"github.com/davazquez/commonroom-backend/pkg/permissions"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeCommunityRepo struct {
	communities map[uuid.UUID]*models.Community
	memberships map[[2]uuid.UUID]*models.Membership // (community, user)
	moderators  map[[2]uuid.UUID]bool
	bySlug      map[string]uuid.UUID
	byName      map[string]uuid.UUID
	deleted     []uuid.UUID
}

func newFakeCommunityRepo() *fakeCommunityRepo {
	return &fakeCommunityRepo{
		communities: map[uuid.UUID]*models.Community{},
		memberships: map[[2]uuid.UUID]*models.Membership{},
		moderators:  map[[2]uuid.UUID]bool{},
		bySlug:      map[string]uuid.UUID{},
		byName:      map[string]uuid.UUID{},
	}
}

func (f *fakeCommunityRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeCommunityRepo) Create(_ context.Context, community *models.Community) error {
	if _, taken := f.bySlug[community.Slug]; taken {
		return &duplicateKeyError{}
	}
	if _, taken := f.byName[community.Name]; taken {
		return &duplicateKeyError{}
	}
	if community.ID == uuid.Nil {
		community.ID = uuid.New()
	}
	community.CreatedAt = time.Now().UTC()
	f.communities[community.ID] = community
	f.bySlug[community.Slug] = community.ID
	f.byName[community.Name] = community.ID
	return nil
}

func (f *fakeCommunityRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Community, error) {
	community, ok := f.communities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return community, nil
}

func (f *fakeCommunityRepo) FindBySlug(_ context.Context, slug string) (*models.Community, error) {
	id, ok := f.bySlug[slug]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.communities[id], nil
}

func (f *fakeCommunityRepo) List(_ context.Context, _ *pagination.Cursor, limit int) ([]models.Community, error) {
	var rows []models.Community
	for _, community := range f.communities {
		rows = append(rows, *community)
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeCommunityRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.communities, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCommunityRepo) AdjustMemberCount(_ context.Context, id uuid.UUID, delta int) (int, error) {
	community, ok := f.communities[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	community.MemberCount += delta
	return community.MemberCount, nil
}

func (f *fakeCommunityRepo) CreateMembership(_ context.Context, membership *models.Membership) error {
	if membership.ID == uuid.Nil {
		membership.ID = uuid.New()
	}
	f.memberships[[2]uuid.UUID{membership.CommunityID, membership.UserID}] = membership
	return nil
}

func (f *fakeCommunityRepo) FindMembership(_ context.Context, communityID, userID uuid.UUID) (*models.Membership, error) {
	membership, ok := f.memberships[[2]uuid.UUID{communityID, userID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return membership, nil
}

func (f *fakeCommunityRepo) ReconcileMemberCounts(_ context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeCommunityRepo) AddModerator(_ context.Context, communityID, userID uuid.UUID) error {
	f.moderators[[2]uuid.UUID{communityID, userID}] = true
	return nil
}

func (f *fakeCommunityRepo) RemoveModerator(_ context.Context, communityID, userID uuid.UUID) error {
	delete(f.moderators, [2]uuid.UUID{communityID, userID})
	return nil
}

func (f *fakeCommunityRepo) HasModerator(_ context.Context, communityID, userID uuid.UUID) (bool, error) {
	return f.moderators[[2]uuid.UUID{communityID, userID}], nil
}

// duplicateKeyError mimics the driver error the unique indexes raise.
type duplicateKeyError struct{}

func (*duplicateKeyError) Error() string {
	return "duplicate key value violates unique constraint (SQLSTATE 23505)"
}

// fakeCreateRoleRepo records seeding and attachments; membership rows are
// created straight on the tx in the service, so the fake tracks roles only.
type fakeCreateRoleRepo struct {
	roles.Repository
	seeded   map[uuid.UUID][]models.Role
	attached map[uuid.UUID][]uuid.UUID
}

func newFakeCreateRoleRepo() *fakeCreateRoleRepo {
	return &fakeCreateRoleRepo{
		seeded:   map[uuid.UUID][]models.Role{},
		attached: map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeCreateRoleRepo) WithTx(*gorm.DB) roles.Repository { return f }

func (f *fakeCreateRoleRepo) CreateDefaults(_ context.Context, communityID uuid.UUID) ([]models.Role, error) {
	var created []models.Role
	for _, seed := range roles.DefaultSeeds() {
		created = append(created, models.Role{
			ID:          uuid.New(),
			CommunityID: communityID,
			Name:        seed.Name,
			IsDefault:   seed.IsDefault,
			Permissions: seed.Permissions,
		})
	}
	f.seeded[communityID] = created
	return created, nil
}

func (f *fakeCreateRoleRepo) Attach(_ context.Context, membershipID, roleID uuid.UUID) error {
	f.attached[membershipID] = append(f.attached[membershipID], roleID)
	return nil
}

func newCommunityService(t *testing.T, repo Repository, roleRepo roles.Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Tx:            stubTxRunner{},
		CommunityRepo: repo,
		RoleRepo:      roleRepo,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateSeedsRolesAndCounter(t *testing.T) {
	repo := newFakeCommunityRepo()
	roleRepo := newFakeCreateRoleRepo()
	svc := newCommunityService(t, repo, roleRepo)
	creatorID := uuid.New()

	dto, err := svc.Create(context.Background(), creatorID, CreateCommunityInput{
		Name: "Gophers",
		Slug: "gophers",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.MemberCount != 1 {
		t.Fatalf("creator is member number one, counter = %d", dto.MemberCount)
	}
	if dto.CreatorID != creatorID {
		t.Fatalf("creator id not carried")
	}
	seeded := roleRepo.seeded[dto.ID]
	if len(seeded) != 3 {
		t.Fatalf("expected 3 seeded roles, got %d", len(seeded))
	}
	var hasDefault bool
	for _, role := range seeded {
		if role.IsDefault {
			hasDefault = true
			if role.Permissions.Has(permissions.BanMembers) {
				t.Fatalf("default role must not grant ban")
			}
		}
	}
	if !hasDefault {
		t.Fatalf("seed batch missing a default role")
	}
}

func TestCreateDuplicateSlugConflicts(t *testing.T) {
	repo := newFakeCommunityRepo()
	svc := newCommunityService(t, repo, newFakeCreateRoleRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, uuid.New(), CreateCommunityInput{Name: "First", Slug: "shared"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(ctx, uuid.New(), CreateCommunityInput{Name: "Second", Slug: "shared"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on duplicate slug, got %v", err)
	}
}

func TestCreateRequiresAuthentication(t *testing.T) {
	svc := newCommunityService(t, newFakeCommunityRepo(), newFakeCreateRoleRepo())

	_, err := svc.Create(context.Background(), uuid.Nil, CreateCommunityInput{Name: "Any", Slug: "any"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestDeleteCreatorOnly(t *testing.T) {
	repo := newFakeCommunityRepo()
	svc := newCommunityService(t, repo, newFakeCreateRoleRepo())
	ctx := context.Background()
	creatorID := uuid.New()

	dto, err := svc.Create(ctx, creatorID, CreateCommunityInput{Name: "Mine", Slug: "mine"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(ctx, uuid.New(), dto.ID); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("non-creator delete: expected forbidden, got %v", err)
	}
	if err := svc.Delete(ctx, creatorID, dto.ID); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != dto.ID {
		t.Fatalf("community row not deleted")
	}
}

func TestAddModeratorRequiresActiveMember(t *testing.T) {
	repo := newFakeCommunityRepo()
	svc := newCommunityService(t, repo, newFakeCreateRoleRepo())
	ctx := context.Background()
	creatorID := uuid.New()

	dto, err := svc.Create(ctx, creatorID, CreateCommunityInput{Name: "Modded", Slug: "modded"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	stranger := uuid.New()
	err = svc.AddModerator(ctx, creatorID, dto.ID, stranger)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("no membership: expected not found, got %v", err)
	}

	pendingUser := uuid.New()
	repo.memberships[[2]uuid.UUID{dto.ID, pendingUser}] = &models.Membership{
		UserID: pendingUser, CommunityID: dto.ID, Status: enums.MembershipStatusPending,
	}
	err = svc.AddModerator(ctx, creatorID, dto.ID, pendingUser)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("pending member: expected state conflict, got %v", err)
	}

	activeUser := uuid.New()
	repo.memberships[[2]uuid.UUID{dto.ID, activeUser}] = &models.Membership{
		UserID: activeUser, CommunityID: dto.ID, Status: enums.MembershipStatusActive,
	}
	if err := svc.AddModerator(ctx, creatorID, dto.ID, activeUser); err != nil {
		t.Fatalf("active member: %v", err)
	}
	if ok, _ := repo.HasModerator(ctx, dto.ID, activeUser); !ok {
		t.Fatalf("moderator row not written")
	}

	err = svc.AddModerator(ctx, activeUser, dto.ID, activeUser)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("non-creator grant: expected forbidden, got %v", err)
	}
}
