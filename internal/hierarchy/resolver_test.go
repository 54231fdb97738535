package hierarchy_test

import (
	"context"
	"testing"

	"github.com/chatguard/chatguard/internal/database/types"
	"github.com/chatguard/chatguard/internal/database/types/enum"
	"github.com/chatguard/chatguard/internal/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTree struct {
	protected map[int64]bool
	owners    map[int64]int64
	parents   map[int64]int64
	delegates map[[2]int64]*types.DelegatedAdmin
}

func newFakeTree() *fakeTree {
	return &fakeTree{
		protected: make(map[int64]bool),
		owners:    make(map[int64]int64),
		parents:   make(map[int64]int64),
		delegates: make(map[[2]int64]*types.DelegatedAdmin),
	}
}

func (t *fakeTree) IsProtected(_ context.Context, roomID int64) (bool, error) {
	return t.protected[roomID], nil
}

func (t *fakeTree) OwnerOf(_ context.Context, mgID int64) (int64, bool, error) {
	owner, ok := t.owners[mgID]
	return owner, ok, nil
}

func (t *fakeTree) MGOf(_ context.Context, roomID int64) (int64, bool, error) {
	mgID, ok := t.parents[roomID]
	return mgID, ok, nil
}

func (t *fakeTree) GetDelegate(_ context.Context, mgID, userID int64) (*types.DelegatedAdmin, error) {
	return t.delegates[[2]int64{mgID, userID}], nil
}

func TestResolvePermissionSuperadmin(t *testing.T) {
	t.Parallel()

	tree := newFakeTree()
	resolver := hierarchy.New(tree, tree, []int64{7}, zap.NewNop())

	// Superadmins are granted everywhere, even in unregistered rooms.
	for _, perm := range []enum.Permission{
		enum.PermissionAddMember, enum.PermissionRemoveMember, enum.PermissionViewSubgroups,
	} {
		grant, err := resolver.ResolvePermission(context.Background(), 7, 555, perm)
		require.NoError(t, err)
		assert.True(t, grant.Allowed)
		assert.Equal(t, hierarchy.RoleSuperadmin, grant.Role)
	}
}

func TestResolvePermissionOwner(t *testing.T) {
	t.Parallel()

	tree := newFakeTree()
	tree.owners[200] = 30
	resolver := hierarchy.New(tree, tree, nil, zap.NewNop())

	for _, perm := range []enum.Permission{
		enum.PermissionAddMember, enum.PermissionRemoveMember, enum.PermissionViewSubgroups,
	} {
		grant, err := resolver.ResolvePermission(context.Background(), 30, 200, perm)
		require.NoError(t, err)
		assert.True(t, grant.Allowed)
		assert.Equal(t, hierarchy.RoleOwner, grant.Role)
	}
}

func TestResolvePermissionDelegateFlags(t *testing.T) {
	t.Parallel()

	tree := newFakeTree()
	tree.owners[200] = 30
	tree.delegates[[2]int64{200, 40}] = &types.DelegatedAdmin{
		MGID:         200,
		UserID:       40,
		CanAddMember: true,
	}
	resolver := hierarchy.New(tree, tree, nil, zap.NewNop())
	ctx := context.Background()

	grant, err := resolver.ResolvePermission(ctx, 40, 200, enum.PermissionAddMember)
	require.NoError(t, err)
	assert.True(t, grant.Allowed)
	assert.Equal(t, hierarchy.RoleDelegate, grant.Role)

	grant, err = resolver.ResolvePermission(ctx, 40, 200, enum.PermissionRemoveMember)
	require.NoError(t, err)
	assert.False(t, grant.Allowed)
	assert.Equal(t, hierarchy.RoleNone, grant.Role)
}

func TestResolvePermissionNoRelation(t *testing.T) {
	t.Parallel()

	tree := newFakeTree()
	tree.owners[200] = 30
	resolver := hierarchy.New(tree, tree, nil, zap.NewNop())

	grant, err := resolver.ResolvePermission(context.Background(), 50, 200, enum.PermissionAddMember)
	require.NoError(t, err)
	assert.False(t, grant.Allowed)
}

func TestResolvePermissionUnregisteredRoom(t *testing.T) {
	t.Parallel()

	tree := newFakeTree()
	resolver := hierarchy.New(tree, tree, nil, zap.NewNop())

	grant, err := resolver.ResolvePermission(context.Background(), 30, 555, enum.PermissionAddMember)
	require.NoError(t, err)
	assert.False(t, grant.Allowed)
}

func TestIsProtected(t *testing.T) {
	t.Parallel()

	tree := newFakeTree()
	tree.protected[100] = true
	tree.parents[300] = 200
	resolver := hierarchy.New(tree, tree, nil, zap.NewNop())
	ctx := context.Background()

	flat, err := resolver.IsProtected(ctx, 100)
	require.NoError(t, err)
	assert.True(t, flat)

	subgroup, err := resolver.IsProtected(ctx, 300)
	require.NoError(t, err)
	assert.True(t, subgroup)

	other, err := resolver.IsProtected(ctx, 999)
	require.NoError(t, err)
	assert.False(t, other)
}

func TestIsSuperadmin(t *testing.T) {
	t.Parallel()

	tree := newFakeTree()
	resolver := hierarchy.New(tree, tree, []int64{7, 8}, zap.NewNop())

	assert.True(t, resolver.IsSuperadmin(7))
	assert.False(t, resolver.IsSuperadmin(9))
	assert.ElementsMatch(t, []int64{7, 8}, resolver.Superadmins())
}
