package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is the second vote target kind. Same counter ownership rules as Post.
type Comment struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PostID        uuid.UUID `gorm:"column:post_id;type:uuid;not null;index"`
	AuthorID      uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	Body          string    `gorm:"column:body;not null"`
	UpvoteCount   int       `gorm:"column:upvote_count;not null;default:0"`
	DownvoteCount int       `gorm:"column:downvote_count;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
