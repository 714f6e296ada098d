package models

import (
	"time"

	"github.com/davazquez/commonroom-backend/pkg/permissions"
	"github.com/google/uuid"
)

// Role is a named, community-scoped bundle of permission flags. Position is
// display ordering only, it confers no privilege. Exactly one role per
// community carries IsDefault (enforced by a partial unique index); that role
// is attached to memberships at creation time and only then.
type Role struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CommunityID uuid.UUID       `gorm:"column:community_id;type:uuid;not null;uniqueIndex:uq_role_community_name"`
	Name        string          `gorm:"column:name;not null;uniqueIndex:uq_role_community_name"`
	Color       string          `gorm:"column:color;not null;default:''"`
	Position    int             `gorm:"column:position;not null;default:0"`
	IsDefault   bool            `gorm:"column:is_default;not null;default:false"`
	Permissions permissions.Set `gorm:"column:permissions;type:jsonb;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
