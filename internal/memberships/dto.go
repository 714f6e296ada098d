package memberships

import (
	"time"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	"github.com/google/uuid"
)

// JoinInput carries optional fields a user supplies when requesting to join.
type JoinInput struct {
	DisplayName string `json:"displayName" validate:"omitempty,max=60"`
}

// DecisionInput carries a moderator's verdict on a pending request.
type DecisionInput struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

// MembershipDTO is the wire representation of one ledger row.
type MembershipDTO struct {
	ID          uuid.UUID              `json:"id"`
	UserID      uuid.UUID              `json:"userId"`
	CommunityID uuid.UUID              `json:"communityId"`
	Status      enums.MembershipStatus `json:"status"`
	DisplayName *string                `json:"displayName,omitempty"`
	RequestedAt time.Time              `json:"requestedAt"`
	JoinedAt    *time.Time             `json:"joinedAt,omitempty"`
}

// PendingPageDTO is one cursor page of pending join requests.
type PendingPageDTO struct {
	Items      []MembershipDTO `json:"items"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

func toDTO(membership *models.Membership) MembershipDTO {
	return MembershipDTO{
		ID:          membership.ID,
		UserID:      membership.UserID,
		CommunityID: membership.CommunityID,
		Status:      membership.Status,
		DisplayName: membership.DisplayName,
		RequestedAt: membership.RequestedAt,
		JoinedAt:    membership.JoinedAt,
	}
}
