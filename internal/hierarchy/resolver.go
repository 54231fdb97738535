// Package hierarchy resolves a room's place in the management tree and
// computes effective permissions for actors.
package hierarchy

import (
	"context"

	"github.com/chatguard/chatguard/internal/database/types"
	"github.com/chatguard/chatguard/internal/database/types/enum"
	"go.uber.org/zap"
)

// RoomStore is the flat protected room set.
type RoomStore interface {
	IsProtected(ctx context.Context, roomID int64) (bool, error)
}

// ManagementStore is the management group tree.
type ManagementStore interface {
	OwnerOf(ctx context.Context, mgID int64) (int64, bool, error)
	MGOf(ctx context.Context, roomID int64) (int64, bool, error)
	GetDelegate(ctx context.Context, mgID, userID int64) (*types.DelegatedAdmin, error)
}

// Role tags how a permission grant was derived.
type Role int

const (
	RoleNone Role = iota
	RoleSuperadmin
	RoleOwner
	RoleDelegate
)

// String returns the role name used in logs.
func (r Role) String() string {
	switch r {
	case RoleSuperadmin:
		return "superadmin"
	case RoleOwner:
		return "owner"
	case RoleDelegate:
		return "delegate"
	default:
		return "none"
	}
}

// Grant is the outcome of a permission resolution.
type Grant struct {
	Allowed bool
	Role    Role
}

// Resolver answers protection and permission queries. It performs pure reads
// and has no side effects.
type Resolver struct {
	rooms       RoomStore
	mgmt        ManagementStore
	superadmins map[int64]struct{}
	logger      *zap.Logger
}

// New creates a resolver over the given stores and superadmin set.
func New(rooms RoomStore, mgmt ManagementStore, superadmins []int64, logger *zap.Logger) *Resolver {
	set := make(map[int64]struct{}, len(superadmins))
	for _, id := range superadmins {
		set[id] = struct{}{}
	}

	return &Resolver{
		rooms:       rooms,
		mgmt:        mgmt,
		superadmins: set,
		logger:      logger.Named("hierarchy"),
	}
}

// IsSuperadmin reports whether the user is a configured superadmin.
func (r *Resolver) IsSuperadmin(userID int64) bool {
	_, ok := r.superadmins[userID]
	return ok
}

// Superadmins returns the configured superadmin IDs.
func (r *Resolver) Superadmins() []int64 {
	ids := make([]int64, 0, len(r.superadmins))
	for id := range r.superadmins {
		ids = append(ids, id)
	}

	return ids
}

// IsProtected reports whether the room is under enforcement: a member of the
// flat protected set or a registered subgroup.
func (r *Resolver) IsProtected(ctx context.Context, roomID int64) (bool, error) {
	protected, err := r.rooms.IsProtected(ctx, roomID)
	if err != nil {
		return false, err
	}

	if protected {
		return true, nil
	}

	_, isSubgroup, err := r.mgmt.MGOf(ctx, roomID)
	if err != nil {
		return false, err
	}

	return isSubgroup, nil
}

// OwnerOf returns the owner of a management group, if registered.
func (r *Resolver) OwnerOf(ctx context.Context, mgID int64) (int64, bool, error) {
	return r.mgmt.OwnerOf(ctx, mgID)
}

// MGOf returns the management group a subgroup is attached to, if any.
func (r *Resolver) MGOf(ctx context.Context, roomID int64) (int64, bool, error) {
	return r.mgmt.MGOf(ctx, roomID)
}

// ResolvePermission computes whether the actor may perform the action on the
// room. Superadmins always may; otherwise the room must be a management
// group and the actor its owner or a delegate holding the matching flag.
// Delegation is defined at the management group and applies to all of its
// subgroups uniformly; subgroup-local state is never consulted.
func (r *Resolver) ResolvePermission(
	ctx context.Context, actorID, roomID int64, perm enum.Permission,
) (Grant, error) {
	if r.IsSuperadmin(actorID) {
		return Grant{Allowed: true, Role: RoleSuperadmin}, nil
	}

	owner, isMG, err := r.mgmt.OwnerOf(ctx, roomID)
	if err != nil {
		return Grant{}, err
	}

	if !isMG {
		return Grant{}, nil
	}

	if owner == actorID {
		return Grant{Allowed: true, Role: RoleOwner}, nil
	}

	delegate, err := r.mgmt.GetDelegate(ctx, roomID, actorID)
	if err != nil {
		return Grant{}, err
	}

	if delegate != nil && delegate.Has(perm) {
		return Grant{Allowed: true, Role: RoleDelegate}, nil
	}

	r.logger.Debug("Permission denied",
		zap.Int64("actorID", actorID),
		zap.Int64("roomID", roomID),
		zap.String("permission", perm.String()))

	return Grant{}, nil
}
