// Package sweeper runs delete_expired() on a timer, using the same
// Start/Stop/timer pattern as a scheduled-task runner: instead of a
// table of arbitrary tasks, one fixed job repeats at a configurable
// interval for the lifetime of the process.
package sweeper

import (
	"log/slog"
	"sync"
	"time"

	"github.com/csml-dev/csml-engine/internal/events"
)

// Expirer is the subset of storage.Store the sweeper needs. Declared
// locally (rather than importing storage.Store wholesale) so the
// sweeper depends only on the one operation it drives.
type Expirer interface {
	DeleteExpired() (int, error)
}

// Sweeper periodically purges expired conversations, memories, and
// state rows.
type Sweeper struct {
	logger   *slog.Logger
	store    Expirer
	bus      *events.Bus
	interval time.Duration

	mu      sync.Mutex
	running bool
	timer   *time.Timer
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New builds a Sweeper. logger may be nil, in which case slog.Default()
// is used; bus may be nil (events.Bus.Publish is nil-safe).
func New(logger *slog.Logger, store Expirer, bus *events.Bus, interval time.Duration) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{logger: logger, store: store, bus: bus, interval: interval}
}

// Start begins the sweep timer. Calling Start twice is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Debug("sweeper starting", "interval", s.interval)
	s.scheduleNext()
}

// Stop halts the sweep timer and waits for any in-flight sweep to
// finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("sweeper stopped")
}

// RunOnce runs a single sweep synchronously, outside the timer loop.
// Useful for tests and for an operator-triggered immediate purge.
func (s *Sweeper) RunOnce() (int, error) {
	s.publish(events.KindSweepStart, nil)
	start := time.Now()

	n, err := s.store.DeleteExpired()

	data := map[string]any{"deleted": n, "elapsed_ms": time.Since(start).Milliseconds()}
	if err != nil {
		data["error"] = err.Error()
		s.logger.Error("sweep failed", "error", err)
	} else {
		s.logger.Info("sweep completed", "deleted", n, "elapsed", time.Since(start))
	}
	s.publish(events.KindSweepComplete, data)

	return n, err
}

func (s *Sweeper) scheduleNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.timer = time.AfterFunc(s.interval, s.onFire)
}

func (s *Sweeper) onFire() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.RunOnce()
	s.scheduleNext()
}

func (s *Sweeper) publish(kind string, data map[string]any) {
	s.bus.Publish(events.Event{Timestamp: time.Now(), Source: events.SourceSweeper, Kind: kind, Data: data})
}
