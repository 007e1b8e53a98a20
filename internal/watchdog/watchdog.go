package watchdog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Monitor is a software liveness watchdog.
//
// A long running loop calls Feed regularly. If no Feed is observed for
// longer than the timeout, the monitor trips: the trip is counted, logged
// and handed to the trip callback. The starvation window then restarts, so
// a stalled loop trips once per timeout rather than on every check.
type Monitor struct {
	logger   *slog.Logger
	timeout  time.Duration
	onTrip   func(starved time.Duration)
	lastFeed atomic.Int64
	trips    atomic.Int32
}

// Create a monitor tripping after timeout without a Feed.
// onTrip may be nil.
func New(timeout time.Duration, onTrip func(starved time.Duration), logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		logger:  logger,
		timeout: timeout,
		onTrip:  onTrip,
	}
	m.Feed()
	return m
}

func (m *Monitor) Feed() {
	m.lastFeed.Store(time.Now().UnixNano())
}

func (m *Monitor) Timeout() time.Duration {
	return m.timeout
}

// Number of times the monitor has tripped.
func (m *Monitor) Trips() int {
	return int(m.trips.Load())
}

func (m *Monitor) Tripped() bool {
	return m.Trips() > 0
}

// Run checks the feed time until ctx is done. Always returns nil, so it
// can run in an errgroup next to the component being watched.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.timeout / 4
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// The watched component may only start feeding after Run begins.
	m.Feed()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *Monitor) check() {
	starved := time.Since(time.Unix(0, m.lastFeed.Load()))
	if starved <= m.timeout {
		return
	}
	m.trips.Add(1)
	m.logger.Error("watchdog starved", "starved", starved, "timeout", m.timeout)
	if m.onTrip != nil {
		m.onTrip(starved)
	}
	m.Feed()
}
