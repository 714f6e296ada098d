package memberships

import (
	"context"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/davazquez/commonroom-backend/internal/access"
	"github.com/davazquez/commonroom-backend/internal/communities"
	"github.com/davazquez/commonroom-backend/internal/roles"
	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/logger"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
	"github.com/davazquez/commonroom-backend/pkg/permissions"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeLedgerRepo struct {
	rows map[uuid.UUID]*models.Membership
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{rows: map[uuid.UUID]*models.Membership{}}
}

func (f *fakeLedgerRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeLedgerRepo) Create(_ context.Context, membership *models.Membership) error {
	for _, row := range f.rows {
		if row.UserID == membership.UserID && row.CommunityID == membership.CommunityID {
			return &duplicateKeyError{}
		}
	}
	if membership.ID == uuid.Nil {
		membership.ID = uuid.New()
	}
	membership.CreatedAt = time.Now().UTC()
	f.rows[membership.ID] = membership
	return nil
}

func (f *fakeLedgerRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Membership, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (f *fakeLedgerRepo) FindByUserAndCommunity(_ context.Context, userID, communityID uuid.UUID) (*models.Membership, error) {
	for _, row := range f.rows {
		if row.UserID == userID && row.CommunityID == communityID {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLedgerRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to enums.MembershipStatus, joinedAt *time.Time) (bool, error) {
	row, ok := f.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	if joinedAt != nil {
		row.JoinedAt = joinedAt
	}
	if to == enums.MembershipStatusPending {
		row.RequestedAt = time.Now().UTC()
		row.JoinedAt = nil
	}
	return true, nil
}

func (f *fakeLedgerRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeLedgerRepo) ListByStatus(_ context.Context, communityID uuid.UUID, status enums.MembershipStatus, _ *pagination.Cursor, limit int) ([]models.Membership, error) {
	var out []models.Membership
	for _, row := range f.rows {
		if row.CommunityID == communityID && row.Status == status {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeCommunityRepo struct {
	communities map[uuid.UUID]*models.Community
	moderators  map[[2]uuid.UUID]bool
	ledger      *fakeLedgerRepo
}

func newFakeCommunityRepo(ledger *fakeLedgerRepo) *fakeCommunityRepo {
	return &fakeCommunityRepo{
		communities: map[uuid.UUID]*models.Community{},
		moderators:  map[[2]uuid.UUID]bool{},
		ledger:      ledger,
	}
}

func (f *fakeCommunityRepo) add(community models.Community) uuid.UUID {
	if community.ID == uuid.Nil {
		community.ID = uuid.New()
	}
	f.communities[community.ID] = &community
	return community.ID
}

func (f *fakeCommunityRepo) WithTx(*gorm.DB) communities.Repository { return f }

func (f *fakeCommunityRepo) Create(_ context.Context, community *models.Community) error {
	f.add(*community)
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
	for _, community := range f.communities {
		if community.Slug == slug {
			return community, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCommunityRepo) List(_ context.Context, _ *pagination.Cursor, _ int) ([]models.Community, error) {
	return nil, nil
}

func (f *fakeCommunityRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.communities, id)
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

func (f *fakeCommunityRepo) CreateMembership(ctx context.Context, membership *models.Membership) error {
	return f.ledger.Create(ctx, membership)
}

func (f *fakeCommunityRepo) FindMembership(ctx context.Context, communityID, userID uuid.UUID) (*models.Membership, error) {
	return f.ledger.FindByUserAndCommunity(ctx, userID, communityID)
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

type fakeRoleRepo struct {
	defaults map[uuid.UUID]*models.Role          // community -> default role
	attached map[uuid.UUID][]uuid.UUID           // membership -> role ids
	perms    map[uuid.UUID]permissions.Set       // membership -> flags
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{
		defaults: map[uuid.UUID]*models.Role{},
		attached: map[uuid.UUID][]uuid.UUID{},
		perms:    map[uuid.UUID]permissions.Set{},
	}
}

func (f *fakeRoleRepo) seedDefault(communityID uuid.UUID) uuid.UUID {
	role := &models.Role{
		ID:          uuid.New(),
		CommunityID: communityID,
		Name:        roles.DefaultMemberRole,
		IsDefault:   true,
		Permissions: permissions.NewSet(permissions.ViewChannels),
	}
	f.defaults[communityID] = role
	return role.ID
}

func (f *fakeRoleRepo) WithTx(*gorm.DB) roles.Repository { return f }

func (f *fakeRoleRepo) CreateDefaults(_ context.Context, communityID uuid.UUID) ([]models.Role, error) {
	f.seedDefault(communityID)
	return []models.Role{*f.defaults[communityID]}, nil
}

func (f *fakeRoleRepo) FindByID(_ context.Context, roleID uuid.UUID) (*models.Role, error) {
	for _, role := range f.defaults {
		if role.ID == roleID {
			return role, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoleRepo) FindDefault(_ context.Context, communityID uuid.UUID) (*models.Role, error) {
	role, ok := f.defaults[communityID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return role, nil
}

func (f *fakeRoleRepo) FindByName(_ context.Context, _ uuid.UUID, _ string) (*models.Role, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoleRepo) ListByCommunity(_ context.Context, _ uuid.UUID) ([]models.Role, error) {
	return nil, nil
}

func (f *fakeRoleRepo) Attach(_ context.Context, membershipID, roleID uuid.UUID) error {
	f.attached[membershipID] = append(f.attached[membershipID], roleID)
	return nil
}

func (f *fakeRoleRepo) Detach(_ context.Context, _, _ uuid.UUID) error { return nil }

func (f *fakeRoleRepo) EffectivePermissions(_ context.Context, membershipID uuid.UUID) (permissions.Set, error) {
	if set, ok := f.perms[membershipID]; ok {
		return set, nil
	}
	return permissions.Set{}, nil
}

type recordingHook struct {
	events []MembershipEvent
	err    error
}

func (h *recordingHook) MembershipDecided(_ context.Context, event MembershipEvent) error {
	h.events = append(h.events, event)
	return h.err
}

// duplicateKeyError mimics the driver error the unique indexes raise.
type duplicateKeyError struct{}

func (*duplicateKeyError) Error() string {
	return "duplicate key value violates unique constraint \"uq_membership_user_community\""
}

type fixture struct {
	svc       Service
	ledger    *fakeLedgerRepo
	comms     *fakeCommunityRepo
	roleRepo  *fakeRoleRepo
	hook      *recordingHook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := newFakeLedgerRepo()
	comms := newFakeCommunityRepo(ledger)
	roleRepo := newFakeRoleRepo()
	hook := &recordingHook{}

	gate, err := access.NewGate(access.GateParams{
		Communities: comms,
		Memberships: ledger,
		Permissions: roleRepo,
	})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	svc, err := NewService(ServiceParams{
		Tx:             stubTxRunner{},
		MembershipRepo: ledger,
		CommunityRepo:  comms,
		RoleRepo:       roleRepo,
		Gate:           gate,
		Logger:         logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Hooks:          []DecisionHook{hook},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, ledger: ledger, comms: comms, roleRepo: roleRepo, hook: hook}
}

func (f *fixture) addCommunity(t *testing.T, private, approval bool) (uuid.UUID, uuid.UUID) {
	t.Helper()
	creatorID := uuid.New()
	communityID := f.comms.add(models.Community{
		IsPrivate:        private,
		RequiresApproval: approval,
		CreatorID:        creatorID,
		MemberCount:      1,
	})
	f.roleRepo.seedDefault(communityID)
	return communityID, creatorID
}

func TestJoinOpenCommunityIsImmediate(t *testing.T) {
	f := newFixture(t)
	communityID, _ := f.addCommunity(t, false, false)
	userID := uuid.New()

	dto, err := f.svc.RequestOrJoin(context.Background(), userID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("RequestOrJoin: %v", err)
	}
	if dto.Status != enums.MembershipStatusActive {
		t.Fatalf("open community join should be immediate, got %s", dto.Status)
	}
	if dto.JoinedAt == nil {
		t.Fatalf("joined_at not stamped")
	}
	if f.comms.communities[communityID].MemberCount != 2 {
		t.Fatalf("counter should move to 2, got %d", f.comms.communities[communityID].MemberCount)
	}
	if len(f.roleRepo.attached[dto.ID]) != 1 {
		t.Fatalf("default role not attached")
	}
}

func TestJoinApprovalGatedCommunityIsPending(t *testing.T) {
	f := newFixture(t)
	communityID, _ := f.addCommunity(t, false, true)
	userID := uuid.New()
	ctx := context.Background()

	dto, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("RequestOrJoin: %v", err)
	}
	if dto.Status != enums.MembershipStatusPending {
		t.Fatalf("approval-gated join should be pending, got %s", dto.Status)
	}
	if f.comms.communities[communityID].MemberCount != 1 {
		t.Fatalf("pending request must not touch the counter")
	}

	// Repeat request is a no-op, not an error.
	again, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("repeat request: %v", err)
	}
	if again.ID != dto.ID {
		t.Fatalf("repeat request must return the same row")
	}
}

func TestJoinWhileActiveConflicts(t *testing.T) {
	f := newFixture(t)
	communityID, _ := f.addCommunity(t, false, false)
	userID := uuid.New()
	ctx := context.Background()

	if _, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{}); err != nil {
		t.Fatalf("first join: %v", err)
	}
	_, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("joining twice: expected conflict, got %v", err)
	}
}

func TestRejectedCanRequestAgain(t *testing.T) {
	f := newFixture(t)
	communityID, creatorID := f.addCommunity(t, true, true)
	userID := uuid.New()
	ctx := context.Background()

	dto, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.svc.Decide(ctx, creatorID, communityID, dto.ID, enums.MembershipDecisionReject); err != nil {
		t.Fatalf("reject: %v", err)
	}

	again, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("re-request after rejection: %v", err)
	}
	if again.Status != enums.MembershipStatusPending {
		t.Fatalf("rejected row should reset to pending, got %s", again.Status)
	}
	if again.ID != dto.ID {
		t.Fatalf("re-request must reuse the existing ledger row")
	}
}

func TestBannedCannotRejoin(t *testing.T) {
	f := newFixture(t)
	communityID, creatorID := f.addCommunity(t, false, false)
	userID := uuid.New()
	ctx := context.Background()

	if _, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := f.svc.Ban(ctx, creatorID, communityID, userID); err != nil {
		t.Fatalf("ban: %v", err)
	}

	_, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("banned re-join: expected forbidden, got %v", err)
	}
}

func TestApproveActivatesAndCounts(t *testing.T) {
	f := newFixture(t)
	communityID, creatorID := f.addCommunity(t, false, true)
	userID := uuid.New()
	ctx := context.Background()

	dto, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	approved, err := f.svc.Decide(ctx, creatorID, communityID, dto.ID, enums.MembershipDecisionApprove)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != enums.MembershipStatusActive {
		t.Fatalf("approved row should be active, got %s", approved.Status)
	}
	if approved.JoinedAt == nil {
		t.Fatalf("joined_at not stamped on approval")
	}
	if f.comms.communities[communityID].MemberCount != 2 {
		t.Fatalf("counter should move on approval")
	}
	if len(f.roleRepo.attached[dto.ID]) != 1 {
		t.Fatalf("default role not attached on approval")
	}
	if len(f.hook.events) != 1 || f.hook.events[0].Kind != enums.NotificationMembershipApproved {
		t.Fatalf("expected one approval event, got %+v", f.hook.events)
	}
}

func TestDecideRequiresModeratorStanding(t *testing.T) {
	f := newFixture(t)
	communityID, _ := f.addCommunity(t, false, true)
	userID := uuid.New()
	ctx := context.Background()

	dto, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	_, err = f.svc.Decide(ctx, uuid.New(), communityID, dto.ID, enums.MembershipDecisionApprove)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("random user deciding: expected forbidden, got %v", err)
	}
	_, err = f.svc.Decide(ctx, uuid.Nil, communityID, dto.ID, enums.MembershipDecisionApprove)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("anonymous deciding: expected unauthorized, got %v", err)
	}
}

func TestDecideTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	communityID, creatorID := f.addCommunity(t, false, true)
	userID := uuid.New()
	ctx := context.Background()

	dto, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.svc.Decide(ctx, creatorID, communityID, dto.ID, enums.MembershipDecisionApprove); err != nil {
		t.Fatalf("first decision: %v", err)
	}

	_, err = f.svc.Decide(ctx, creatorID, communityID, dto.ID, enums.MembershipDecisionReject)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("second decision: expected state conflict, got %v", err)
	}
}

func TestHookFailureDoesNotUnwindDecision(t *testing.T) {
	f := newFixture(t)
	f.hook.err = pkgerrors.New(pkgerrors.CodeDependency, "notification store down")
	communityID, creatorID := f.addCommunity(t, false, true)
	userID := uuid.New()
	ctx := context.Background()

	dto, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	approved, err := f.svc.Decide(ctx, creatorID, communityID, dto.ID, enums.MembershipDecisionApprove)
	if err != nil {
		t.Fatalf("decision must stand when a hook fails: %v", err)
	}
	if approved.Status != enums.MembershipStatusActive {
		t.Fatalf("row should be active despite hook failure")
	}
}

func TestLeaveAdjustsCounterAndCreatorCannot(t *testing.T) {
	f := newFixture(t)
	communityID, creatorID := f.addCommunity(t, false, false)
	userID := uuid.New()
	ctx := context.Background()

	if _, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := f.svc.Leave(ctx, userID, communityID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if f.comms.communities[communityID].MemberCount != 1 {
		t.Fatalf("counter should drop back to 1")
	}
	if err := f.svc.Leave(ctx, userID, communityID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("second leave: expected not found, got %v", err)
	}
	if err := f.svc.Leave(ctx, creatorID, communityID); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("creator leave: expected forbidden, got %v", err)
	}
}

func TestLeaveRevokesModeratorStanding(t *testing.T) {
	f := newFixture(t)
	communityID, creatorID := f.addCommunity(t, false, true)
	modID := uuid.New()
	ctx := context.Background()

	dto, err := f.svc.RequestOrJoin(ctx, modID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("moderator request: %v", err)
	}
	if _, err := f.svc.Decide(ctx, creatorID, communityID, dto.ID, enums.MembershipDecisionApprove); err != nil {
		t.Fatalf("approve moderator: %v", err)
	}
	if err := f.comms.AddModerator(ctx, communityID, modID); err != nil {
		t.Fatalf("grant moderator: %v", err)
	}
	if err := f.svc.Leave(ctx, modID, communityID); err != nil {
		t.Fatalf("leave: %v", err)
	}

	if ok, _ := f.comms.HasModerator(ctx, communityID, modID); ok {
		t.Fatalf("moderator row should be deleted with the membership")
	}

	pending, err := f.svc.RequestOrJoin(ctx, uuid.New(), communityID, JoinInput{})
	if err != nil {
		t.Fatalf("later request: %v", err)
	}
	_, err = f.svc.Decide(ctx, modID, communityID, pending.ID, enums.MembershipDecisionApprove)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("ex-member deciding: expected forbidden, got %v", err)
	}
}

func TestBanRevokesModeratorStanding(t *testing.T) {
	f := newFixture(t)
	communityID, creatorID := f.addCommunity(t, false, true)
	modID := uuid.New()
	ctx := context.Background()

	dto, err := f.svc.RequestOrJoin(ctx, modID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("moderator request: %v", err)
	}
	if _, err := f.svc.Decide(ctx, creatorID, communityID, dto.ID, enums.MembershipDecisionApprove); err != nil {
		t.Fatalf("approve moderator: %v", err)
	}
	if err := f.comms.AddModerator(ctx, communityID, modID); err != nil {
		t.Fatalf("grant moderator: %v", err)
	}
	if err := f.svc.Ban(ctx, creatorID, communityID, modID); err != nil {
		t.Fatalf("ban moderator: %v", err)
	}

	if ok, _ := f.comms.HasModerator(ctx, communityID, modID); ok {
		t.Fatalf("moderator row should be deleted on ban")
	}
	if err := f.svc.Ban(ctx, modID, communityID, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("banned user banning others: expected forbidden, got %v", err)
	}
}

func TestBanCreatorForbidden(t *testing.T) {
	f := newFixture(t)
	communityID, creatorID := f.addCommunity(t, false, false)

	err := f.svc.Ban(context.Background(), creatorID, communityID, creatorID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("banning the creator: expected forbidden, got %v", err)
	}
}

func TestBanWithoutRowWritesWall(t *testing.T) {
	f := newFixture(t)
	communityID, creatorID := f.addCommunity(t, false, false)
	userID := uuid.New()
	ctx := context.Background()

	if err := f.svc.Ban(ctx, creatorID, communityID, userID); err != nil {
		t.Fatalf("ban stranger: %v", err)
	}
	row, err := f.ledger.FindByUserAndCommunity(ctx, userID, communityID)
	if err != nil {
		t.Fatalf("ban should write a ledger row: %v", err)
	}
	if row.Status != enums.MembershipStatusBanned {
		t.Fatalf("row should be banned, got %s", row.Status)
	}
	if f.comms.communities[communityID].MemberCount != 1 {
		t.Fatalf("banning a non-member must not touch the counter")
	}
}

func TestListPendingGated(t *testing.T) {
	f := newFixture(t)
	communityID, creatorID := f.addCommunity(t, false, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.RequestOrJoin(ctx, uuid.New(), communityID, JoinInput{}); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}

	page, err := f.svc.ListPending(ctx, creatorID, communityID, pagination.Params{})
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("expected 3 pending rows, got %d", len(page.Items))
	}

	_, err = f.svc.ListPending(ctx, uuid.New(), communityID, pagination.Params{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("outsider listing queue: expected forbidden, got %v", err)
	}
}

func TestReRequestMovesToFrontOfQueue(t *testing.T) {
	f := newFixture(t)
	communityID, creatorID := f.addCommunity(t, true, true)
	userID := uuid.New()
	ctx := context.Background()

	dto, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.svc.RequestOrJoin(ctx, uuid.New(), communityID, JoinInput{}); err != nil {
		t.Fatalf("second request: %v", err)
	}

	// Age both rows so the re-request timestamp below is unambiguously newest.
	for _, row := range f.ledger.rows {
		row.RequestedAt = row.RequestedAt.Add(-time.Hour)
	}

	if _, err := f.svc.Decide(ctx, creatorID, communityID, dto.ID, enums.MembershipDecisionReject); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.RequestOrJoin(ctx, userID, communityID, JoinInput{}); err != nil {
		t.Fatalf("re-request: %v", err)
	}

	page, err := f.svc.ListPending(ctx, creatorID, communityID, pagination.Params{})
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 pending rows, got %d", len(page.Items))
	}
	if page.Items[0].ID != dto.ID {
		t.Fatalf("re-requested row should sort by its fresh request time, got %s first", page.Items[0].ID)
	}
}
