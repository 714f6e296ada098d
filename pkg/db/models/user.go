package models

import (
	"time"

	"github.com/google/uuid"
)

// User maps an external identity to an internal record. Rows are created on
// first sign-in and never deleted by this engine.
type User struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalID string    `gorm:"column:external_id;not null;uniqueIndex"`
	Handle     string    `gorm:"column:handle;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
