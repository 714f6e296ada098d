package cron

import (
	"context"
	"fmt"

	"github.com/davazquez/commonroom-backend/pkg/enums"
	"github.com/davazquez/commonroom-backend/pkg/logger"
	"github.com/davazquez/commonroom-backend/pkg/metrics"
)

// voteCountRepo is the slice of the content layer this job needs.
type voteCountRepo interface {
	ReconcileVoteCounts(ctx context.Context, targetType enums.VoteTargetType) (int64, error)
}

// VoteCountJobParams configure the vote counter reconcile job.
type VoteCountJobParams struct {
	Repository voteCountRepo
	Logger     *logger.Logger
	Metrics    *metrics.ReconcileJobMetrics
}

// VoteCountJob repairs drifted post and comment vote counters against the
// vote ledger.
type VoteCountJob struct {
	repo    voteCountRepo
	logg    *logger.Logger
	metrics *metrics.ReconcileJobMetrics
}

// NewVoteCountJob builds the job.
func NewVoteCountJob(params VoteCountJobParams) (*VoteCountJob, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("post repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &VoteCountJob{
		repo:    params.Repository,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *VoteCountJob) Name() string { return "vote_count_reconcile" }

// Run sweeps both target kinds. A failure on one kind does not stop the other.
func (j *VoteCountJob) Run(ctx context.Context) error {
	var total int64
	for _, targetType := range []enums.VoteTargetType{enums.VoteTargetPost, enums.VoteTargetComment} {
		repaired, err := j.repo.ReconcileVoteCounts(ctx, targetType)
		if err != nil {
			return fmt.Errorf("reconcile %s vote counts: %w", targetType, err)
		}
		total += repaired
	}
	if j.metrics != nil {
		j.metrics.AddRepaired(j.Name(), total)
	}
	if total > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "repaired", total), "vote counters had drifted")
	}
	return nil
}
