// Package raid tracks join bursts per room over a sliding time window.
package raid

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds the raid detection thresholds.
type Config struct {
	// Window is the trailing interval over which joins are counted.
	Window time.Duration
	// Threshold is the join count within Window that raises an alert.
	Threshold int
}

// DefaultConfig returns the stock thresholds: ten joins within thirty
// seconds.
func DefaultConfig() Config {
	return Config{
		Window:    30 * time.Second,
		Threshold: 10,
	}
}

// Detector keeps a sliding window of join timestamps per room and a
// one-shot alerted flag. State is process-local and resets on restart;
// raid signals carry no durability requirement.
type Detector struct {
	config Config
	logger *zap.Logger
	clock  func() time.Time

	mu      sync.Mutex
	windows map[int64][]time.Time
	alerted map[int64]struct{}
}

// New creates a detector with the given thresholds.
func New(config Config, logger *zap.Logger) *Detector {
	return &Detector{
		config:  config,
		logger:  logger.Named("raid"),
		clock:   time.Now,
		windows: make(map[int64][]time.Time),
		alerted: make(map[int64]struct{}),
	}
}

// RegisterJoin appends a join at the current time to the room's window,
// prunes entries older than the window, and returns the resulting count.
func (d *Detector) RegisterJoin(roomID int64) int {
	now := d.clock()
	cutoff := now.Add(-d.config.Window)

	d.mu.Lock()
	defer d.mu.Unlock()

	window := append(d.windows[roomID], now)

	start := 0
	for start < len(window) && !window[start].After(cutoff) {
		start++
	}

	window = window[start:]
	d.windows[roomID] = window

	return len(window)
}

// ShouldAlert reports whether the count crosses the threshold for a room
// that has not alerted yet. Callers that act on a true result must call
// MarkAlerted immediately so the alert fires once per process lifetime.
func (d *Detector) ShouldAlert(roomID int64, count int) bool {
	if count < d.config.Threshold {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, done := d.alerted[roomID]

	return !done
}

// MarkAlerted sets the room's one-shot alerted flag.
func (d *Detector) MarkAlerted(roomID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.alerted[roomID] = struct{}{}

	d.logger.Info("Raid alert raised", zap.Int64("roomID", roomID))
}
