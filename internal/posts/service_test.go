package posts

import (
	"context"
	"testing"
	"time"

	"github.com/davazquez/commonroom-backend/internal/access"
	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
	"github.com/davazquez/commonroom-backend/pkg/permissions"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakePostRepo struct {
	posts    map[uuid.UUID]*models.Post
	comments map[uuid.UUID]*models.Comment
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{
		posts:    map[uuid.UUID]*models.Post{},
		comments: map[uuid.UUID]*models.Comment{},
	}
}

func (f *fakePostRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakePostRepo) CreatePost(_ context.Context, post *models.Post) error {
	post.ID = uuid.New()
	post.CreatedAt = time.Now().UTC()
	f.posts[post.ID] = post
	return nil
}

func (f *fakePostRepo) FindPost(_ context.Context, id uuid.UUID) (*models.Post, error) {
	post, ok := f.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return post, nil
}

func (f *fakePostRepo) DeletePost(_ context.Context, id uuid.UUID) error {
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) ListPosts(_ context.Context, communityID uuid.UUID, _ *pagination.Cursor, limit int) ([]models.Post, error) {
	var rows []models.Post
	for _, post := range f.posts {
		if post.CommunityID == communityID {
			rows = append(rows, *post)
		}
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakePostRepo) CreateComment(_ context.Context, comment *models.Comment) error {
	comment.ID = uuid.New()
	comment.CreatedAt = time.Now().UTC()
	f.comments[comment.ID] = comment
	return nil
}

func (f *fakePostRepo) FindComment(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	comment, ok := f.comments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return comment, nil
}

func (f *fakePostRepo) DeleteComment(_ context.Context, id uuid.UUID) error {
	delete(f.comments, id)
	return nil
}

func (f *fakePostRepo) ListComments(_ context.Context, postID uuid.UUID, _ *pagination.Cursor, limit int) ([]models.Comment, error) {
	var rows []models.Comment
	for _, comment := range f.comments {
		if comment.PostID == postID {
			rows = append(rows, *comment)
		}
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakePostRepo) ResolveVoteTarget(ctx context.Context, targetType enums.VoteTargetType, targetID uuid.UUID) (uuid.UUID, error) {
	if targetType == enums.VoteTargetComment {
		comment, err := f.FindComment(ctx, targetID)
		if err != nil {
			return uuid.Nil, err
		}
		targetID = comment.PostID
	}
	post, err := f.FindPost(ctx, targetID)
	if err != nil {
		return uuid.Nil, err
	}
	return post.CommunityID, nil
}

func (f *fakePostRepo) AdjustVoteCounts(_ context.Context, _ *gorm.DB, targetType enums.VoteTargetType, targetID uuid.UUID, upDelta, downDelta int) error {
	if targetType == enums.VoteTargetComment {
		comment := f.comments[targetID]
		comment.UpvoteCount += upDelta
		comment.DownvoteCount += downDelta
		return nil
	}
	post := f.posts[targetID]
	post.UpvoteCount += upDelta
	post.DownvoteCount += downDelta
	return nil
}

func (f *fakePostRepo) GetVoteCounts(_ context.Context, targetType enums.VoteTargetType, targetID uuid.UUID) (int, int, error) {
	if targetType == enums.VoteTargetComment {
		comment := f.comments[targetID]
		return comment.UpvoteCount, comment.DownvoteCount, nil
	}
	post := f.posts[targetID]
	return post.UpvoteCount, post.DownvoteCount, nil
}

func (f *fakePostRepo) ReconcileVoteCounts(_ context.Context, _ enums.VoteTargetType) (int64, error) {
	return 0, nil
}

type gateWorld struct {
	communities map[uuid.UUID]*models.Community
	memberships map[[2]uuid.UUID]*models.Membership
	perms       map[uuid.UUID]permissions.Set
}

func newGateWorld() *gateWorld {
	return &gateWorld{
		communities: map[uuid.UUID]*models.Community{},
		memberships: map[[2]uuid.UUID]*models.Membership{},
		perms:       map[uuid.UUID]permissions.Set{},
	}
}

func (w *gateWorld) FindByID(_ context.Context, id uuid.UUID) (*models.Community, error) {
	community, ok := w.communities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return community, nil
}

func (w *gateWorld) HasModerator(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (w *gateWorld) FindByUserAndCommunity(_ context.Context, userID, communityID uuid.UUID) (*models.Membership, error) {
	membership, ok := w.memberships[[2]uuid.UUID{userID, communityID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return membership, nil
}

func (w *gateWorld) EffectivePermissions(_ context.Context, membershipID uuid.UUID) (permissions.Set, error) {
	if set, ok := w.perms[membershipID]; ok {
		return set, nil
	}
	return permissions.Set{}, nil
}

func (w *gateWorld) addMember(communityID uuid.UUID, flags ...permissions.Flag) uuid.UUID {
	userID := uuid.New()
	membershipID := uuid.New()
	w.memberships[[2]uuid.UUID{userID, communityID}] = &models.Membership{
		ID: membershipID, UserID: userID, CommunityID: communityID,
		Status: enums.MembershipStatusActive,
	}
	w.perms[membershipID] = permissions.NewSet(flags...)
	return userID
}

func newPostService(t *testing.T, repo Repository, world *gateWorld) Service {
	t.Helper()
	gate, err := access.NewGate(access.GateParams{
		Communities: world,
		Memberships: world,
		Permissions: world,
	})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	svc, err := NewService(ServiceParams{PostRepo: repo, Gate: gate})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreatePostRequiresFlag(t *testing.T) {
	repo := newFakePostRepo()
	world := newGateWorld()
	communityID := uuid.New()
	world.communities[communityID] = &models.Community{ID: communityID, CreatorID: uuid.New()}
	svc := newPostService(t, repo, world)
	ctx := context.Background()

	author := world.addMember(communityID, permissions.CreatePosts)
	dto, err := svc.CreatePost(ctx, author, communityID, CreatePostInput{Title: "hello"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if dto.AuthorID != author || dto.Score != 0 {
		t.Fatalf("unexpected dto: %+v", dto)
	}

	muted := world.addMember(communityID)
	_, err = svc.CreatePost(ctx, muted, communityID, CreatePostInput{Title: "nope"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("member without flag: expected forbidden, got %v", err)
	}

	_, err = svc.CreatePost(ctx, uuid.New(), communityID, CreatePostInput{Title: "nope"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("non-member: expected forbidden, got %v", err)
	}
}

func TestCreatorPostsWithoutMembershipRow(t *testing.T) {
	repo := newFakePostRepo()
	world := newGateWorld()
	creatorID := uuid.New()
	communityID := uuid.New()
	world.communities[communityID] = &models.Community{ID: communityID, CreatorID: creatorID}
	svc := newPostService(t, repo, world)

	if _, err := svc.CreatePost(context.Background(), creatorID, communityID, CreatePostInput{Title: "first"}); err != nil {
		t.Fatalf("creator should pass the flag check: %v", err)
	}
}

func TestListPostsPrivateGating(t *testing.T) {
	repo := newFakePostRepo()
	world := newGateWorld()
	communityID := uuid.New()
	world.communities[communityID] = &models.Community{
		ID: communityID, IsPrivate: true, CreatorID: uuid.New(),
	}
	svc := newPostService(t, repo, world)
	ctx := context.Background()

	_, err := svc.ListPosts(ctx, uuid.Nil, communityID, pagination.Params{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("anonymous: expected unauthorized, got %v", err)
	}
	_, err = svc.ListPosts(ctx, uuid.New(), communityID, pagination.Params{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("non-member: expected forbidden, got %v", err)
	}

	member := world.addMember(communityID)
	if _, err := svc.ListPosts(ctx, member, communityID, pagination.Params{}); err != nil {
		t.Fatalf("member: %v", err)
	}
}

func TestDeletePostAuthorOrManager(t *testing.T) {
	repo := newFakePostRepo()
	world := newGateWorld()
	communityID := uuid.New()
	world.communities[communityID] = &models.Community{ID: communityID, CreatorID: uuid.New()}
	svc := newPostService(t, repo, world)
	ctx := context.Background()

	author := world.addMember(communityID, permissions.CreatePosts)
	dto, err := svc.CreatePost(ctx, author, communityID, CreatePostInput{Title: "mine"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	bystander := world.addMember(communityID, permissions.CreatePosts)
	if err := svc.DeletePost(ctx, bystander, dto.ID); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("bystander delete: expected forbidden, got %v", err)
	}

	manager := world.addMember(communityID, permissions.ManagePosts)
	if err := svc.DeletePost(ctx, manager, dto.ID); err != nil {
		t.Fatalf("manager delete: %v", err)
	}

	// Author removing their own post needs no flag.
	dto, err = svc.CreatePost(ctx, author, communityID, CreatePostInput{Title: "again"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if err := svc.DeletePost(ctx, author, dto.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
}

func TestCommentsResolveThroughPost(t *testing.T) {
	repo := newFakePostRepo()
	world := newGateWorld()
	communityID := uuid.New()
	world.communities[communityID] = &models.Community{ID: communityID, CreatorID: uuid.New()}
	svc := newPostService(t, repo, world)
	ctx := context.Background()

	author := world.addMember(communityID, permissions.CreatePosts, permissions.CreateComments)
	post, err := svc.CreatePost(ctx, author, communityID, CreatePostInput{Title: "thread"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	comment, err := svc.CreateComment(ctx, author, post.ID, CreateCommentInput{Body: "reply"})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	resolved, err := repo.ResolveVoteTarget(ctx, enums.VoteTargetComment, comment.ID)
	if err != nil {
		t.Fatalf("ResolveVoteTarget: %v", err)
	}
	if resolved != communityID {
		t.Fatalf("comment should resolve to its post's community")
	}

	page, err := svc.ListComments(ctx, uuid.Nil, post.ID, pagination.Params{})
	if err != nil {
		t.Fatalf("ListComments on public community: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(page.Items))
	}
}
