package models

import (
	"time"

	"github.com/davazquez/commonroom-backend/pkg/enums"
	"github.com/google/uuid"
)

// Membership is the authoritative per-(user, community) relationship record.
// The composite unique index makes a concurrent double-join fail one writer at
// the storage layer instead of producing two rows.
type Membership struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID              `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_membership_user_community"`
	CommunityID uuid.UUID              `gorm:"column:community_id;type:uuid;not null;uniqueIndex:uq_membership_user_community"`
	Status      enums.MembershipStatus `gorm:"column:status;not null"`
	DisplayName *string                `gorm:"column:display_name"`
	RequestedAt time.Time              `gorm:"column:requested_at;not null"`
	JoinedAt    *time.Time             `gorm:"column:joined_at"`
	LastActive  *time.Time             `gorm:"column:last_active"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// MembershipRole attaches a role to a membership.
type MembershipRole struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MembershipID uuid.UUID `gorm:"column:membership_id;type:uuid;not null;uniqueIndex:uq_membership_role"`
	RoleID       uuid.UUID `gorm:"column:role_id;type:uuid;not null;uniqueIndex:uq_membership_role"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
