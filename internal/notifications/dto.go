package notifications

import (
	"time"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	"github.com/google/uuid"
)

// NotificationDTO is the wire representation of one notification.
type NotificationDTO struct {
	ID          uuid.UUID              `json:"id"`
	CommunityID uuid.UUID              `json:"communityId"`
	Kind        enums.NotificationKind `json:"kind"`
	Body        string                 `json:"body"`
	ReadAt      *time.Time             `json:"readAt,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// NotificationsPageDTO is one cursor page of a user's notifications.
type NotificationsPageDTO struct {
	Items      []NotificationDTO `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

func toDTO(notification *models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:          notification.ID,
		CommunityID: notification.CommunityID,
		Kind:        notification.Kind,
		Body:        notification.Body,
		ReadAt:      notification.ReadAt,
		CreatedAt:   notification.CreatedAt,
	}
}
