package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/davazquez/commonroom-backend/pkg/logger"
	"gorm.io/gorm"
)

const notificationRetentionDays = 30

// notificationRetentionRepo is the slice of the notification store this job needs.
type notificationRetentionRepo interface {
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NotificationRetentionJobParams configure the retention job.
type NotificationRetentionJobParams struct {
	Repository    notificationRetentionRepo
	Logger        *logger.Logger
	RetentionDays int
}

// NotificationRetentionJob prunes read notifications past the retention window.
type NotificationRetentionJob struct {
	repo      notificationRetentionRepo
	logg      *logger.Logger
	retention time.Duration
}

// NewNotificationRetentionJob builds the job.
func NewNotificationRetentionJob(params NotificationRetentionJobParams) (*NotificationRetentionJob, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = notificationRetentionDays
	}
	return &NotificationRetentionJob{
		repo:      params.Repository,
		logg:      params.Logger,
		retention: time.Duration(retention) * 24 * time.Hour,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *NotificationRetentionJob) Name() string { return "notification_retention" }

// Run deletes read notifications older than the retention window.
func (j *NotificationRetentionJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteReadBefore(ctx, nil, cutoff)
	if err != nil {
		return fmt.Errorf("prune notifications: %w", err)
	}
	if deleted > 0 {
		j.logg.Info(j.logg.WithField(ctx, "deleted", deleted), "pruned read notifications")
	}
	return nil
}
