package posts

import (
	"context"
	"errors"
	"strings"

	"github.com/davazquez/commonroom-backend/internal/access"
	"github.com/davazquez/commonroom-backend/pkg/db/models"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
	"github.com/davazquez/commonroom-backend/pkg/permissions"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceParams groups dependencies for the content service.
type ServiceParams struct {
	PostRepo Repository
	Gate     *access.Gate
}

// Service exposes business rules for posts and comments.
type Service interface {
	CreatePost(ctx context.Context, authorID, communityID uuid.UUID, input CreatePostInput) (PostDTO, error)
	GetPost(ctx context.Context, userID, postID uuid.UUID) (PostDTO, error)
	DeletePost(ctx context.Context, actorID, postID uuid.UUID) error
	ListPosts(ctx context.Context, userID, communityID uuid.UUID, params pagination.Params) (PostsPageDTO, error)
	CreateComment(ctx context.Context, authorID, postID uuid.UUID, input CreateCommentInput) (CommentDTO, error)
	ListComments(ctx context.Context, userID, postID uuid.UUID, params pagination.Params) (CommentsPageDTO, error)
}

type service struct {
	postRepo Repository
	gate     *access.Gate
}

// NewService builds a content service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.PostRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post repo is required")
	}
	if params.Gate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access gate is required")
	}
	return &service{postRepo: params.PostRepo, gate: params.Gate}, nil
}

func (s *service) CreatePost(ctx context.Context, authorID, communityID uuid.UUID, input CreatePostInput) (PostDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return PostDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if err := s.gate.RequirePermission(ctx, authorID, communityID, permissions.CreatePosts); err != nil {
		return PostDTO{}, err
	}

	post := &models.Post{
		CommunityID: communityID,
		AuthorID:    authorID,
		Title:       title,
		Body:        strings.TrimSpace(input.Body),
	}
	if err := s.postRepo.CreatePost(ctx, post); err != nil {
		return PostDTO{}, err
	}
	return toPostDTO(post), nil
}

func (s *service) GetPost(ctx context.Context, userID, postID uuid.UUID) (PostDTO, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return PostDTO{}, err
	}
	if err := s.gate.CanViewContent(ctx, userID, post.CommunityID); err != nil {
		return PostDTO{}, err
	}
	return toPostDTO(post), nil
}

// DeletePost removes a post. The author can always remove their own; anyone
// else needs the post-management flag.
func (s *service) DeletePost(ctx context.Context, actorID, postID uuid.UUID) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		if err := s.gate.RequirePermission(ctx, actorID, post.CommunityID, permissions.ManagePosts); err != nil {
			return err
		}
	}
	return s.postRepo.DeletePost(ctx, postID)
}

func (s *service) ListPosts(ctx context.Context, userID, communityID uuid.UUID, params pagination.Params) (PostsPageDTO, error) {
	if err := s.gate.CanViewContent(ctx, userID, communityID); err != nil {
		return PostsPageDTO{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return PostsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.postRepo.ListPosts(ctx, communityID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return PostsPageDTO{}, err
	}

	page := PostsPageDTO{Items: make([]PostDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range rows {
		page.Items = append(page.Items, toPostDTO(&rows[i]))
	}
	return page, nil
}

func (s *service) CreateComment(ctx context.Context, authorID, postID uuid.UUID, input CreateCommentInput) (CommentDTO, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return CommentDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "body is required")
	}
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return CommentDTO{}, err
	}
	if err := s.gate.RequirePermission(ctx, authorID, post.CommunityID, permissions.CreateComments); err != nil {
		return CommentDTO{}, err
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: authorID,
		Body:     body,
	}
	if err := s.postRepo.CreateComment(ctx, comment); err != nil {
		return CommentDTO{}, err
	}
	return toCommentDTO(comment), nil
}

func (s *service) ListComments(ctx context.Context, userID, postID uuid.UUID, params pagination.Params) (CommentsPageDTO, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return CommentsPageDTO{}, err
	}
	if err := s.gate.CanViewContent(ctx, userID, post.CommunityID); err != nil {
		return CommentsPageDTO{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return CommentsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.postRepo.ListComments(ctx, postID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return CommentsPageDTO{}, err
	}

	page := CommentsPageDTO{Items: make([]CommentDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range rows {
		page.Items = append(page.Items, toCommentDTO(&rows[i]))
	}
	return page, nil
}

func (s *service) findPost(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	if postID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id is required")
	}
	post, err := s.postRepo.FindPost(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, err
	}
	return post, nil
}
