package workspace

import (
	"context"
	"log/slog"
	"time"
)

const (
	sweepInterval = 5 * time.Minute
	visitMarkTTL  = 7 * 24 * time.Hour
)

// VisitMarkCleaner drops old visit dedup marks.
type VisitMarkCleaner interface {
	CleanupVisitMarks(ctx context.Context, ttl time.Duration) (int64, error)
}

// Pruner removes old generated clips.
type Pruner interface {
	Prune(maxAge time.Duration) (int, error)
}

// Sweeper periodically evicts idle workspaces and the clips and marks
// that outlive them.
type Sweeper struct {
	manager  *Manager
	marks    VisitMarkCleaner
	clips    Pruner
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper evicting workspaces idle longer than ttl.
// marks and clips may be nil.
func NewSweeper(m *Manager, marks VisitMarkCleaner, clips Pruner, ttl time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{manager: m, marks: marks, clips: clips, ttl: ttl, interval: sweepInterval, logger: logger}
}

// Run sweeps on a fixed interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("TTL worker started", "interval", s.interval, "ttl", s.ttl)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			s.logger.Info("TTL worker shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

// Sweep performs one cleanup pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	if evicted := s.manager.Evict(s.ttl); evicted > 0 {
		s.logger.Info("TTL worker evicted idle workspaces", "count", evicted, "remaining", s.manager.Len())
	}

	if s.clips != nil {
		// Clips may still be referenced by a workspace until it is evicted.
		if pruned, err := s.clips.Prune(s.ttl); err != nil {
			s.logger.Error("TTL worker failed to prune media", "error", err)
		} else if pruned > 0 {
			s.logger.Info("TTL worker pruned media", "count", pruned)
		}
	}

	if s.marks != nil {
		if deleted, err := s.marks.CleanupVisitMarks(ctx, visitMarkTTL); err != nil {
			s.logger.Error("TTL worker failed to cleanup visit marks", "error", err)
		} else if deleted > 0 {
			s.logger.Info("TTL worker cleaned up visit marks", "count", deleted)
		}
	}
}
