package posts

import (
	"time"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CreatePostInput carries a new post from the wire.
type CreatePostInput struct {
	Title string `json:"title" validate:"required,min=1,max=300"`
	Body  string `json:"body" validate:"max=40000"`
}

// CreateCommentInput carries a new comment from the wire.
type CreateCommentInput struct {
	Body string `json:"body" validate:"required,min=1,max=10000"`
}

// PostDTO is the wire representation of one post with its cached counters.
type PostDTO struct {
	ID            uuid.UUID `json:"id"`
	CommunityID   uuid.UUID `json:"communityId"`
	AuthorID      uuid.UUID `json:"authorId"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	UpvoteCount   int       `json:"upvoteCount"`
	DownvoteCount int       `json:"downvoteCount"`
	Score         int       `json:"score"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CommentDTO is the wire representation of one comment.
type CommentDTO struct {
	ID            uuid.UUID `json:"id"`
	PostID        uuid.UUID `json:"postId"`
	AuthorID      uuid.UUID `json:"authorId"`
	Body          string    `json:"body"`
	UpvoteCount   int       `json:"upvoteCount"`
	DownvoteCount int       `json:"downvoteCount"`
	Score         int       `json:"score"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PostsPageDTO is one cursor page of posts.
type PostsPageDTO struct {
	Items      []PostDTO `json:"items"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

// CommentsPageDTO is one cursor page of comments.
type CommentsPageDTO struct {
	Items      []CommentDTO `json:"items"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

func toPostDTO(post *models.Post) PostDTO {
	return PostDTO{
		ID:            post.ID,
		CommunityID:   post.CommunityID,
		AuthorID:      post.AuthorID,
		Title:         post.Title,
		Body:          post.Body,
		UpvoteCount:   post.UpvoteCount,
		DownvoteCount: post.DownvoteCount,
		Score:         post.UpvoteCount - post.DownvoteCount,
		CreatedAt:     post.CreatedAt,
	}
}

func toCommentDTO(comment *models.Comment) CommentDTO {
	return CommentDTO{
		ID:            comment.ID,
		PostID:        comment.PostID,
		AuthorID:      comment.AuthorID,
		Body:          comment.Body,
		UpvoteCount:   comment.UpvoteCount,
		DownvoteCount: comment.DownvoteCount,
		Score:         comment.UpvoteCount - comment.DownvoteCount,
		CreatedAt:     comment.CreatedAt,
	}
}
