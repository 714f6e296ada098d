package cron

import (
	"context"
	"fmt"

	"github.com/davazquez/commonroom-backend/pkg/logger"
	"github.com/davazquez/commonroom-backend/pkg/metrics"
)

// memberCountRepo is the slice of the community registry this job needs.
type memberCountRepo interface {
	ReconcileMemberCounts(ctx context.Context) (int64, error)
}

// MemberCountJobParams configure the member counter reconcile job.
type MemberCountJobParams struct {
	Repository memberCountRepo
	Logger     *logger.Logger
	Metrics    *metrics.ReconcileJobMetrics
}

// MemberCountJob repairs drifted member_count caches against the membership
// ledger.
type MemberCountJob struct {
	repo    memberCountRepo
	logg    *logger.Logger
	metrics *metrics.ReconcileJobMetrics
}

// NewMemberCountJob builds the job.
func NewMemberCountJob(params MemberCountJobParams) (*MemberCountJob, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("community repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &MemberCountJob{
		repo:    params.Repository,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *MemberCountJob) Name() string { return "member_count_reconcile" }

// Run recomputes the cached counters and reports how many drifted.
func (j *MemberCountJob) Run(ctx context.Context) error {
	repaired, err := j.repo.ReconcileMemberCounts(ctx)
	if err != nil {
		return fmt.Errorf("reconcile member counts: %w", err)
	}
	if j.metrics != nil {
		j.metrics.AddRepaired(j.Name(), repaired)
	}
	if repaired > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "repaired", repaired), "member counters had drifted")
	}
	return nil
}
