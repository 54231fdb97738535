package types

import (
	"time"

	"github.com/chatguard/chatguard/internal/database/types/enum"
)

// ProtectedRoom is a room in the flat protected set. A room is under
// enforcement if it appears here or is registered as a subgroup.
type ProtectedRoom struct {
	RoomID    int64     `bun:",pk"`
	CreatedAt time.Time `bun:",notnull"`
}

// ManagementGroup is a room elevated to administer a set of subgroups.
// Every management group has exactly one owner.
type ManagementGroup struct {
	RoomID      int64     `bun:",pk"`
	OwnerUserID int64     `bun:",notnull"`
	CreatedAt   time.Time `bun:",notnull"`
}

// Subgroup attaches a protected room to a management group. RoomID is the
// conflict key so re-registering a subgroup moves it between groups instead
// of letting it belong to two at once.
type Subgroup struct {
	MGID      int64     `bun:",notnull"`
	RoomID    int64     `bun:",pk"`
	CreatedAt time.Time `bun:",notnull"`
}

// DelegatedAdmin grants a user a subset of management permissions on a
// management group. The group owner holds every permission without a row.
type DelegatedAdmin struct {
	MGID             int64     `bun:",pk"`
	UserID           int64     `bun:",pk"`
	CanAddMember     bool      `bun:",notnull"`
	CanRemoveMember  bool      `bun:",notnull"`
	CanViewSubgroups bool      `bun:",notnull"`
	UpdatedAt        time.Time `bun:",notnull"`
}

// Has reports whether the row grants the given permission.
func (d *DelegatedAdmin) Has(perm enum.Permission) bool {
	switch perm {
	case enum.PermissionAddMember:
		return d.CanAddMember
	case enum.PermissionRemoveMember:
		return d.CanRemoveMember
	case enum.PermissionViewSubgroups:
		return d.CanViewSubgroups
	default:
		return false
	}
}

// ManagementSetting holds per-management-group options.
type ManagementSetting struct {
	MGID          int64              `bun:",pk"`
	AddMemberMode enum.AddMemberMode `bun:",notnull,default:'ask'"`
}
