package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chatguard/chatguard/internal/platform"
	"github.com/chatguard/chatguard/internal/worker/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	admins   map[int64]map[int64]struct{}
	adminErr map[int64]error
	statuses map[int64]platform.MemberStatus
	banned   []int64
	banErr   map[int64]error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		admins:   make(map[int64]map[int64]struct{}),
		adminErr: make(map[int64]error),
		statuses: make(map[int64]platform.MemberStatus),
		banErr:   make(map[int64]error),
	}
}

func (c *fakeClient) MembershipStatus(_ context.Context, _, userID int64) (platform.MemberStatus, error) {
	if status, ok := c.statuses[userID]; ok {
		return status, nil
	}

	return platform.StatusMember, nil
}

func (c *fakeClient) Ban(_ context.Context, _, userID int64) error {
	if err, ok := c.banErr[userID]; ok {
		return err
	}

	c.banned = append(c.banned, userID)

	return nil
}

func (c *fakeClient) Unban(context.Context, int64, int64) error { return nil }

func (c *fakeClient) ListAdministrators(_ context.Context, roomID int64) (map[int64]struct{}, error) {
	if err, ok := c.adminErr[roomID]; ok {
		return nil, err
	}

	return c.admins[roomID], nil
}

func (c *fakeClient) SendMessage(context.Context, int64, string) error { return nil }

type fakeSource struct {
	rooms   []int64
	seen    map[int64][]int64
	allowed map[int64]bool
}

func (s *fakeSource) List(context.Context) ([]int64, error) {
	return s.rooms, nil
}

func (s *fakeSource) GetSeen(_ context.Context, roomID int64, _ int) ([]int64, error) {
	return s.seen[roomID], nil
}

func (s *fakeSource) ShouldBan(_ context.Context, userID int64) (bool, error) {
	return !s.allowed[userID], nil
}

type countingNotifier struct {
	count int
}

func (n *countingNotifier) NotifyBanOnce(context.Context, []int64, int64, int64, string) bool {
	n.count++
	return true
}

func newWorker(client *fakeClient, source *fakeSource, notifier *countingNotifier) *reconcile.Worker {
	return reconcile.New(999, client, source, source, source, notifier,
		[]int64{1}, reconcile.DefaultInterval, reconcile.DefaultSeenLimit, zap.NewNop())
}

func TestSweepRemovesDisallowedUsers(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	source := &fakeSource{
		rooms:   []int64{100},
		seen:    map[int64][]int64{100: {10, 11, 12}},
		allowed: map[int64]bool{10: true},
	}
	notifier := &countingNotifier{}
	worker := newWorker(client, source, notifier)

	worker.Sweep(context.Background())

	assert.ElementsMatch(t, []int64{11, 12}, client.banned)
	assert.Equal(t, 2, notifier.count)
}

func TestSweepExemptsAdministrators(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.admins[100] = map[int64]struct{}{11: {}}
	source := &fakeSource{
		rooms:   []int64{100},
		seen:    map[int64][]int64{100: {11, 12}},
		allowed: map[int64]bool{},
	}
	worker := newWorker(client, source, &countingNotifier{})

	worker.Sweep(context.Background())

	assert.Equal(t, []int64{12}, client.banned)
}

func TestSweepSkipsSelf(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	source := &fakeSource{
		rooms: []int64{100},
		seen:  map[int64][]int64{100: {999, 12}},
	}
	worker := newWorker(client, source, &countingNotifier{})

	worker.Sweep(context.Background())

	assert.Equal(t, []int64{12}, client.banned)
}

func TestSweepSkipsAlreadyRemoved(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.statuses[11] = platform.StatusRemoved
	source := &fakeSource{
		rooms: []int64{100},
		seen:  map[int64][]int64{100: {11, 13}},
	}
	worker := newWorker(client, source, &countingNotifier{})

	worker.Sweep(context.Background())

	assert.Equal(t, []int64{13}, client.banned)
}

func TestSweepBansUsersWhoLeft(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.statuses[12] = platform.StatusLeft
	source := &fakeSource{
		rooms: []int64{100},
		seen:  map[int64][]int64{100: {12}},
	}
	worker := newWorker(client, source, &countingNotifier{})

	worker.Sweep(context.Background())

	// Leaving does not clear the predicate; the ban blocks any rejoin.
	assert.Equal(t, []int64{12}, client.banned)
}

func TestSweepRoomFailureIsolated(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.adminErr[100] = errors.New("admins unavailable")
	source := &fakeSource{
		rooms: []int64{100, 101},
		seen: map[int64][]int64{
			100: {11},
			101: {12},
		},
	}
	worker := newWorker(client, source, &countingNotifier{})

	worker.Sweep(context.Background())

	assert.Equal(t, []int64{12}, client.banned)
}

type managedList []int64

func (m managedList) ListManagedRooms(context.Context) ([]int64, error) {
	return m, nil
}

func TestCombinedRoomsDeduplicates(t *testing.T) {
	t.Parallel()

	combined := reconcile.CombinedRooms{
		Flat:    &fakeSource{rooms: []int64{100, 101}},
		Managed: managedList{101, 102},
	}

	rooms, err := combined.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 101, 102}, rooms)
}

func TestSweepBanFailureContinues(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.banErr[11] = errors.New("flood limit")
	source := &fakeSource{
		rooms: []int64{100},
		seen:  map[int64][]int64{100: {11, 12}},
	}
	notifier := &countingNotifier{}
	worker := newWorker(client, source, notifier)

	worker.Sweep(context.Background())

	assert.Equal(t, []int64{12}, client.banned)
	assert.Equal(t, 1, notifier.count)
}
