package enum

// JoinAction is the action recorded in the join audit log.
type JoinAction string

const (
	JoinActionBanned  JoinAction = "banned"
	JoinActionAllowed JoinAction = "allowed"
)

// Permission is an action a delegated admin may be granted on a management
// group. Delegation applies uniformly to all of the group's subgroups.
type Permission int

const (
	PermissionAddMember Permission = iota
	PermissionRemoveMember
	PermissionViewSubgroups
)

// String returns the permission name used in logs.
func (p Permission) String() string {
	switch p {
	case PermissionAddMember:
		return "add_member"
	case PermissionRemoveMember:
		return "remove_member"
	case PermissionViewSubgroups:
		return "view_subgroups"
	default:
		return "unknown"
	}
}

// AddMemberMode controls how member additions proposed inside a management
// group are handled.
type AddMemberMode string

const (
	AddMemberModeAsk AddMemberMode = "ask"
	AddMemberModeAll AddMemberMode = "all"
)

// Valid reports whether the mode is one of the recognized values.
func (m AddMemberMode) Valid() bool {
	return m == AddMemberModeAsk || m == AddMemberModeAll
}
