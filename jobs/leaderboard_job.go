// Package jobs runs the scheduled maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ehudso7/climate-guardian/models"
)

// RebuildLimit caps how many ledgers are mirrored into the sorted set.
const RebuildLimit = 10000

const rebuildTimeout = 30 * time.Second

// ProgressSource lists ledgers by total points, best first.
type ProgressSource interface {
	TopProgress(ctx context.Context, limit int) ([]models.UserProgress, error)
}

// Rebuilder replaces the cached leaderboard.
type Rebuilder interface {
	Rebuild(ctx context.Context, rows []models.UserProgress) error
}

// LeaderboardJob resyncs the redis leaderboard from the database.
type LeaderboardJob struct {
	src ProgressSource
	lb  Rebuilder
	log *zap.Logger
}

// NewLeaderboardJob returns a job reading from src and writing to lb.
func NewLeaderboardJob(src ProgressSource, lb Rebuilder, log *zap.Logger) *LeaderboardJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &LeaderboardJob{src: src, lb: lb, log: log}
}

// Run does one rebuild.
func (j *LeaderboardJob) Run(ctx context.Context) error {
	rows, err := j.src.TopProgress(ctx, RebuildLimit)
	if err != nil {
		return fmt.Errorf("load ledgers: %w", err)
	}
	if err := j.lb.Rebuild(ctx, rows); err != nil {
		return fmt.Errorf("rebuild leaderboard: %w", err)
	}
	j.log.Info("leaderboard rebuilt", zap.Int("entries", len(rows)))
	return nil
}

// Start schedules the job on spec and runs it once immediately. Call Stop on the returned cron to end it.
func Start(spec string, job *LeaderboardJob) (*cron.Cron, error) {
	c := cron.New()
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
		defer cancel()
		if err := job.Run(ctx); err != nil {
			job.log.Warn("leaderboard rebuild failed", zap.Error(err))
		}
	}
	if _, err := c.AddFunc(spec, run); err != nil {
		return nil, fmt.Errorf("schedule leaderboard rebuild %q: %w", spec, err)
	}
	c.Start()
	go run()
	return c, nil
}
