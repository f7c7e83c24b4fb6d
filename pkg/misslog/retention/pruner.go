package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/notfound/pkg/misslog"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to keep misses.
	// 0 keeps misses forever.
	RetentionDays int

	// MaxRecords is the maximum number of misses to keep.
	// 0 means unlimited.
	MaxRecords int64

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces retention on the miss log.
type Pruner struct {
	storage   misslog.Storage
	config    *Config
	logger    *slog.Logger
	now       func() time.Time
	scheduler *Scheduler
}

// NewPruner creates a new retention pruner.
func NewPruner(storage misslog.Storage, config *Config, logger *slog.Logger) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "misslog.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes misses older than the retention period, then the oldest
// misses beyond MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.storage.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return totalDeleted, &misslog.RetentionError{RetentionDays: p.config.RetentionDays, Cause: err}
		}
		totalDeleted += deleted
		p.logger.Debug("pruned misses by age",
			"deleted_count", deleted,
			"cutoff_time", cutoff,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
	}

	if totalDeleted > 0 {
		p.logger.Info("miss log pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &misslog.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count misses: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords
	p.logger.Info("miss count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", toDelete,
	)

	deleted, err := p.storage.DeleteOldest(ctx, toDelete)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return deleted, nil
}

// Start starts the pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning, or nil.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
