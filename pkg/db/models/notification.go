package models

import (
	"time"

	"github.com/davazquez/commonroom-backend/pkg/enums"
	"github.com/google/uuid"
)

// Notification is a best-effort side product of membership decisions. Failing
// to write one never rolls back the decision itself.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	CommunityID uuid.UUID              `gorm:"column:community_id;type:uuid;not null"`
	Kind        enums.NotificationKind `gorm:"column:kind;not null"`
	Body        string                 `gorm:"column:body;not null;default:''"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
