package enforce_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chatguard/chatguard/internal/database/types"
	"github.com/chatguard/chatguard/internal/database/types/enum"
	"github.com/chatguard/chatguard/internal/enforce"
	"github.com/chatguard/chatguard/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	statuses     map[int64]platform.MemberStatus
	statusErr    error
	banned       []int64
	banErr       error
	banRoomErr   map[int64]error
	unbanRoomErr map[int64]error
	bannedRooms  []int64
	unbanRooms   []int64
}

func (c *fakeClient) MembershipStatus(_ context.Context, _, userID int64) (platform.MemberStatus, error) {
	if c.statusErr != nil {
		return platform.StatusUnknown, c.statusErr
	}

	if status, ok := c.statuses[userID]; ok {
		return status, nil
	}

	return platform.StatusMember, nil
}

func (c *fakeClient) Ban(_ context.Context, roomID, userID int64) error {
	if c.banErr != nil {
		return c.banErr
	}

	if err := c.banRoomErr[roomID]; err != nil {
		return err
	}

	c.banned = append(c.banned, userID)
	c.bannedRooms = append(c.bannedRooms, roomID)

	return nil
}

func (c *fakeClient) Unban(_ context.Context, roomID, _ int64) error {
	if err := c.unbanRoomErr[roomID]; err != nil {
		return err
	}

	c.unbanRooms = append(c.unbanRooms, roomID)

	return nil
}

func (c *fakeClient) ListAdministrators(context.Context, int64) (map[int64]struct{}, error) {
	return nil, nil
}

func (c *fakeClient) SendMessage(context.Context, int64, string) error { return nil }

type fakeStore struct {
	globalBans map[int64]bool
	allowed    map[int64]bool
	seen       []int64
	records    []*types.JoinLog
	protected  map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		globalBans: make(map[int64]bool),
		allowed:    make(map[int64]bool),
		protected:  make(map[int64]bool),
	}
}

func (s *fakeStore) IsBanned(_ context.Context, userID int64) (bool, error) {
	return s.globalBans[userID], nil
}

func (s *fakeStore) IsAllowed(_ context.Context, userID int64) (bool, error) {
	return s.allowed[userID], nil
}

func (s *fakeStore) MarkSeen(_ context.Context, _, userID int64) error {
	s.seen = append(s.seen, userID)
	return nil
}

func (s *fakeStore) Log(_ context.Context, record *types.JoinLog) error {
	s.records = append(s.records, record)
	return nil
}

func (s *fakeStore) IsProtected(_ context.Context, roomID int64) (bool, error) {
	return s.protected[roomID], nil
}

type fakeNotifier struct {
	notices []string
}

func (n *fakeNotifier) Notify(_ context.Context, _ []int64, text string) {
	n.notices = append(n.notices, text)
}

func newEngine(client *fakeClient, store *fakeStore, notifier *fakeNotifier) *enforce.Engine {
	return enforce.New(999, client, store, store, store, store, store, notifier,
		[]int64{1}, zap.NewNop())
}

func TestEvaluateAllowedUser(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	store := newFakeStore()
	store.protected[100] = true
	store.allowed[42] = true
	notifier := &fakeNotifier{}
	engine := newEngine(client, store, notifier)

	outcome, err := engine.Evaluate(context.Background(),
		enforce.Room{ID: 100, Title: "general"}, enforce.User{ID: 42, Username: "alice"}, "join")
	require.NoError(t, err)

	assert.Equal(t, enforce.OutcomeAllowed, outcome)
	assert.Equal(t, []int64{42}, store.seen)
	assert.Empty(t, client.banned)
	require.Len(t, store.records, 1)
	assert.Equal(t, enum.JoinActionAllowed, store.records[0].ActionTaken)
	assert.Empty(t, notifier.notices)
}

func TestEvaluateUnknownUserBanned(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	store := newFakeStore()
	store.protected[100] = true
	notifier := &fakeNotifier{}
	engine := newEngine(client, store, notifier)

	outcome, err := engine.Evaluate(context.Background(),
		enforce.Room{ID: 100, Title: "general"}, enforce.User{ID: 42, Username: "mallory"}, "join")
	require.NoError(t, err)

	assert.Equal(t, enforce.OutcomeBanned, outcome)
	assert.Equal(t, []int64{42}, client.banned)
	assert.Empty(t, store.seen)
	require.Len(t, store.records, 1)
	assert.Equal(t, enum.JoinActionBanned, store.records[0].ActionTaken)
	assert.Len(t, notifier.notices, 1)
}

func TestEvaluateGlobalBanOverridesAllowList(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	store := newFakeStore()
	store.protected[100] = true
	store.allowed[42] = true
	store.globalBans[42] = true
	engine := newEngine(client, store, &fakeNotifier{})

	outcome, err := engine.Evaluate(context.Background(),
		enforce.Room{ID: 100}, enforce.User{ID: 42}, "join")
	require.NoError(t, err)

	assert.Equal(t, enforce.OutcomeBanned, outcome)
	assert.Equal(t, []int64{42}, client.banned)
	assert.Empty(t, store.seen)
}

func TestEvaluateSelfIsNoOp(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	store := newFakeStore()
	store.protected[100] = true
	engine := newEngine(client, store, &fakeNotifier{})

	outcome, err := engine.Evaluate(context.Background(),
		enforce.Room{ID: 100}, enforce.User{ID: 999}, "join")
	require.NoError(t, err)

	assert.Equal(t, enforce.OutcomeSelf, outcome)
	assert.Empty(t, client.banned)
	assert.Empty(t, store.records)
}

func TestEvaluateUnprotectedRoom(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	store := newFakeStore()
	engine := newEngine(client, store, &fakeNotifier{})

	outcome, err := engine.Evaluate(context.Background(),
		enforce.Room{ID: 100}, enforce.User{ID: 42}, "join")
	require.NoError(t, err)

	assert.Equal(t, enforce.OutcomeUnprotected, outcome)
	assert.Empty(t, client.banned)
	assert.Empty(t, store.seen)
	assert.Empty(t, store.records)
}

func TestEvaluateAlreadyRemovedSkipsBan(t *testing.T) {
	t.Parallel()

	client := &fakeClient{statuses: map[int64]platform.MemberStatus{42: platform.StatusRemoved}}
	store := newFakeStore()
	store.protected[100] = true
	engine := newEngine(client, store, &fakeNotifier{})

	outcome, err := engine.Evaluate(context.Background(),
		enforce.Room{ID: 100}, enforce.User{ID: 42}, "join")
	require.NoError(t, err)

	assert.Equal(t, enforce.OutcomeAlreadyRemoved, outcome)
	assert.Empty(t, client.banned)
	assert.Empty(t, store.records)
}

func TestEvaluateStatusErrorStillEnforces(t *testing.T) {
	t.Parallel()

	client := &fakeClient{statusErr: errors.New("lookup failed")}
	store := newFakeStore()
	store.protected[100] = true
	engine := newEngine(client, store, &fakeNotifier{})

	outcome, err := engine.Evaluate(context.Background(),
		enforce.Room{ID: 100}, enforce.User{ID: 42}, "join")
	require.NoError(t, err)

	assert.Equal(t, enforce.OutcomeBanned, outcome)
	assert.Equal(t, []int64{42}, client.banned)
}

func TestEvaluateBanErrorPropagates(t *testing.T) {
	t.Parallel()

	client := &fakeClient{banErr: errors.New("flood limit")}
	store := newFakeStore()
	store.protected[100] = true
	engine := newEngine(client, store, &fakeNotifier{})

	_, err := engine.Evaluate(context.Background(),
		enforce.Room{ID: 100}, enforce.User{ID: 42}, "join")
	require.Error(t, err)
	assert.Empty(t, store.records)
}

func TestEvaluateRepeatBanNotifiesEveryTime(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	store := newFakeStore()
	store.protected[100] = true
	notifier := &fakeNotifier{}
	engine := newEngine(client, store, notifier)

	// A user who keeps rejoining is banned and reported on every attempt.
	for range 2 {
		outcome, err := engine.Evaluate(context.Background(),
			enforce.Room{ID: 100}, enforce.User{ID: 42}, "join")
		require.NoError(t, err)
		assert.Equal(t, enforce.OutcomeBanned, outcome)
	}

	assert.Len(t, notifier.notices, 2)
}

func TestShouldBan(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.allowed[1] = true
	store.globalBans[2] = true
	store.allowed[3] = true
	store.globalBans[3] = true
	engine := newEngine(&fakeClient{}, store, &fakeNotifier{})
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		want   bool
	}{
		{name: "allowed user stays", userID: 1, want: false},
		{name: "banned user removed", userID: 2, want: true},
		{name: "ban overrides allow", userID: 3, want: true},
		{name: "unknown user removed", userID: 4, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := engine.ShouldBan(ctx, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
