package notifications

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceParams groups dependencies for the notification service.
type ServiceParams struct {
	NotificationRepo Repository
}

// Service exposes a user's notification feed.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (NotificationsPageDTO, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}

type service struct {
	notificationRepo Repository
}

// NewService builds a notification service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.NotificationRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification repo is required")
	}
	return &service{notificationRepo: params.NotificationRepo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (NotificationsPageDTO, error) {
	if userID == uuid.Nil {
		return NotificationsPageDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return NotificationsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.notificationRepo.ListByUser(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return NotificationsPageDTO{}, err
	}

	page := NotificationsPageDTO{Items: make([]NotificationDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range rows {
		page.Items = append(page.Items, toDTO(&rows[i]))
	}
	return page, nil
}

// MarkRead stamps one of the caller's notifications as read. Marking an
// already-read notification again is a no-op.
func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	notification, err := s.notificationRepo.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return err
	}
	if notification.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	if notification.ReadAt != nil {
		return nil
	}
	return s.notificationRepo.MarkRead(ctx, notificationID, time.Now().UTC())
}
