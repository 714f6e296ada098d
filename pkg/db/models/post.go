package models

import (
	"time"

	"github.com/google/uuid"
)

// Post carries the cached vote counters this engine owns. Counters move only
// through atomic SQL expressions inside the vote transaction; the vote ledger
// is the authority and the reconcile worker repairs any drift.
type Post struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CommunityID   uuid.UUID `gorm:"column:community_id;type:uuid;not null;index"`
	AuthorID      uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	Title         string    `gorm:"column:title;not null"`
	Body          string    `gorm:"column:body;not null;default:''"`
	UpvoteCount   int       `gorm:"column:upvote_count;not null;default:0"`
	DownvoteCount int       `gorm:"column:downvote_count;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
