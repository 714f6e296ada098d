package communities

import (
	"time"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CreateCommunityInput carries the fields a creator supplies for a new
// community.
type CreateCommunityInput struct {
	Name             string `json:"name" validate:"required,min=3,max=80"`
	Slug             string `json:"slug" validate:"required,min=3,max=60,lowercase"`
	IsPrivate        bool   `json:"isPrivate"`
	RequiresApproval bool   `json:"requiresApproval"`
}

// CommunityDTO is the wire representation of one community.
type CommunityDTO struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	IsPrivate        bool      `json:"isPrivate"`
	RequiresApproval bool      `json:"requiresApproval"`
	CreatorID        uuid.UUID `json:"creatorId"`
	MemberCount      int       `json:"memberCount"`
	CreatedAt        time.Time `json:"createdAt"`
}

// CommunitiesPageDTO is one cursor page of communities.
type CommunitiesPageDTO struct {
	Items      []CommunityDTO `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

func toDTO(community *models.Community) CommunityDTO {
	return CommunityDTO{
		ID:               community.ID,
		Name:             community.Name,
		Slug:             community.Slug,
		IsPrivate:        community.IsPrivate,
		RequiresApproval: community.RequiresApproval,
		CreatorID:        community.CreatorID,
		MemberCount:      community.MemberCount,
		CreatedAt:        community.CreatedAt,
	}
}
