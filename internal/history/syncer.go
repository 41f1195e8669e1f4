package history

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultSyncInterval  = time.Minute
	defaultSyncBatchSize = 50
)

// PublishFunc delivers a batch of run summaries. A nil error means every run
// in the batch arrived and may be marked synced.
type PublishFunc func(ctx context.Context, runs []Run) error

// SyncerConfig configures a Syncer. Zero Interval and BatchSize take defaults.
type SyncerConfig struct {
	Store     *Store
	Publish   PublishFunc
	Interval  time.Duration
	BatchSize int

	// Debugf and Warnf are optional.
	Debugf func(format string, args ...any)
	Warnf  func(format string, args ...any)
}

// Syncer publishes runs recorded while the publisher was unreachable.
type Syncer struct {
	cfg SyncerConfig
}

// NewSyncer creates a syncer for cfg.Store.
func NewSyncer(cfg SyncerConfig) *Syncer {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSyncInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultSyncBatchSize
	}
	return &Syncer{cfg: cfg}
}

// SyncOnce publishes at most one batch of the oldest unsynced runs and marks
// them synced. It returns the number of runs published.
func (s *Syncer) SyncOnce(ctx context.Context) (int, error) {
	runs, err := s.cfg.Store.QueryUnsynced(s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("history sync: %w", err)
	}
	if len(runs) == 0 {
		return 0, nil
	}
	if err := s.cfg.Publish(ctx, runs); err != nil {
		return 0, fmt.Errorf("history sync: publishing %d runs: %w", len(runs), err)
	}

	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	if err := s.cfg.Store.MarkSynced(ids); err != nil {
		return 0, fmt.Errorf("history sync: %w", err)
	}
	s.debugf("history sync: published %d runs", len(runs))
	return len(runs), nil
}

// Drain repeats SyncOnce until nothing is left or a batch fails. It returns
// the total published, including batches before a failure.
func (s *Syncer) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.SyncOnce(ctx)
		total += n
		if err != nil || n == 0 {
			return total, err
		}
	}
}

// Watch drains immediately and then on every interval until ctx is done.
// Failed cycles are reported through Warnf and retried on the next tick.
// It always returns ctx.Err().
func (s *Syncer) Watch(ctx context.Context) error {
	tick := time.NewTicker(s.cfg.Interval)
	defer tick.Stop()

	for {
		if _, err := s.Drain(ctx); err != nil && ctx.Err() == nil {
			s.warnf("%v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

func (s *Syncer) debugf(format string, args ...any) {
	if s.cfg.Debugf != nil {
		s.cfg.Debugf(format, args...)
	}
}

func (s *Syncer) warnf(format string, args ...any) {
	if s.cfg.Warnf != nil {
		s.cfg.Warnf(format, args...)
	}
}
