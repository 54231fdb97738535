package raid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestDetector(config Config) (*Detector, *time.Time) {
	d := New(config, zap.NewNop())

	now := time.Unix(1_700_000_000, 0)
	d.clock = func() time.Time { return now }

	return d, &now
}

func TestRegisterJoinSlidingWindow(t *testing.T) {
	t.Parallel()

	d, now := newTestDetector(Config{Window: 30 * time.Second, Threshold: 10})

	// Three joins a second apart all land inside the window.
	assert.Equal(t, 1, d.RegisterJoin(1))
	*now = now.Add(time.Second)
	assert.Equal(t, 2, d.RegisterJoin(1))
	*now = now.Add(time.Second)
	assert.Equal(t, 3, d.RegisterJoin(1))

	// Advancing past the window expires the earlier joins.
	*now = now.Add(31 * time.Second)
	assert.Equal(t, 1, d.RegisterJoin(1))
}

func TestRegisterJoinBoundary(t *testing.T) {
	t.Parallel()

	d, now := newTestDetector(Config{Window: 30 * time.Second, Threshold: 10})

	d.RegisterJoin(1)

	// A join exactly at the window edge is pruned; the window is the
	// half-open interval (t-30s, t].
	*now = now.Add(30 * time.Second)
	assert.Equal(t, 1, d.RegisterJoin(1))
}

func TestRegisterJoinRoomsIndependent(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(Config{Window: 30 * time.Second, Threshold: 10})

	d.RegisterJoin(1)
	d.RegisterJoin(1)
	assert.Equal(t, 1, d.RegisterJoin(2))
}

func TestShouldAlertOneShot(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(Config{Window: 30 * time.Second, Threshold: 10})

	var count int
	for range 9 {
		count = d.RegisterJoin(1)
	}

	assert.False(t, d.ShouldAlert(1, count))

	// Tenth join crosses the threshold.
	count = d.RegisterJoin(1)
	assert.True(t, d.ShouldAlert(1, count))
	d.MarkAlerted(1)

	// Eleventh join keeps the count above the threshold but the room has
	// alerted already.
	count = d.RegisterJoin(1)
	assert.GreaterOrEqual(t, count, 10)
	assert.False(t, d.ShouldAlert(1, count))
}

func TestShouldAlertPerRoomFlags(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(Config{Window: 30 * time.Second, Threshold: 2})

	var count int
	for range 2 {
		count = d.RegisterJoin(1)
	}

	assert.True(t, d.ShouldAlert(1, count))
	d.MarkAlerted(1)

	// Another room crossing the threshold still alerts.
	for range 2 {
		count = d.RegisterJoin(2)
	}

	assert.True(t, d.ShouldAlert(2, count))
}
