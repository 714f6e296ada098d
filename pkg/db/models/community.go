package models

import (
	"time"

	"github.com/google/uuid"
)

// Community is the registry record for one community. MemberCount is a cached
// aggregate of ACTIVE membership rows: adjusted inline with atomic SQL
// expressions and repaired by the reconcile worker. The membership ledger, not
// this row, is the authority for any permission decision.
type Community struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string    `gorm:"column:name;not null;uniqueIndex"`
	Slug             string    `gorm:"column:slug;not null;uniqueIndex"`
	IsPrivate        bool      `gorm:"column:is_private;not null;default:false"`
	RequiresApproval bool      `gorm:"column:requires_approval;not null;default:false"`
	CreatorID        uuid.UUID `gorm:"column:creator_id;type:uuid;not null"`
	MemberCount      int       `gorm:"column:member_count;not null;default:0"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CommunityModerator grants one user moderator standing in one community.
// Mutated only as whole-row insert/delete so concurrent grants never clobber
// each other. The creator is privileged without a row here.
type CommunityModerator struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CommunityID uuid.UUID `gorm:"column:community_id;type:uuid;not null;uniqueIndex:uq_community_moderator"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_community_moderator"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
