package authcore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Purger removes expired records and reports how many were removed.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically purges expired verification and reset codes. The
// purge is idempotent, so running sweepers on several instances at once
// is safe, just redundant. A failed pass is logged and retried on the
// next tick; the sweeper itself never stops on error.
type Sweeper struct {
	interval time.Duration
	purgers  []Purger
	logger   *zap.Logger
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSweeper returns a sweeper over the engine's token stores. Start it
// with [Sweeper.Start]; it does not run on construction.
func (e *Engine) NewSweeper() *Sweeper {
	return &Sweeper{
		interval: e.config.Sweeper.Interval,
		purgers:  []Purger{e.verification, e.reset},
		logger:   e.logger,
		now:      e.now,
		stop:     make(chan struct{}),
	}
}

// Start launches the background loop. The first pass runs after one full
// interval, not immediately.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop terminates the loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := s.RunOnce(context.Background())
			if err != nil {
				s.logger.Warn("token purge pass failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Info("purged expired tokens", zap.Int("removed", removed))
			}
		case <-s.stop:
			return
		}
	}
}

// RunOnce performs a single purge pass across every store and returns the
// total number of records removed. Stores after a failing store are still
// swept; the first error is returned.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.now()

	var total int
	var firstErr error
	for _, p := range s.purgers {
		removed, err := p.PurgeExpired(ctx, now)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("purge expired tokens: %w", err)
			}
			continue
		}
		total += removed
	}
	return total, firstErr
}
