// Package platform defines the boundary to the chat platform. The core only
// depends on this interface; the telegram subpackage provides the real
// implementation and tests substitute fakes.
package platform

import "context"

// MemberStatus is a user's membership state in a room.
type MemberStatus string

const (
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusRemoved       MemberStatus = "removed"
	StatusUnknown       MemberStatus = "unknown"
)

// Removed reports whether the status is the terminal banned-from-room state.
func (s MemberStatus) Removed() bool {
	return s == StatusRemoved
}

// Client is the set of platform actions the core performs. All calls may
// fail; failures are non-fatal to callers.
type Client interface {
	// MembershipStatus returns the user's current status in the room.
	MembershipStatus(ctx context.Context, roomID, userID int64) (MemberStatus, error)
	// Ban removes the user from the room and prevents rejoining.
	Ban(ctx context.Context, roomID, userID int64) error
	// Unban lifts a room-level ban.
	Unban(ctx context.Context, roomID, userID int64) error
	// ListAdministrators returns the IDs of the room's administrators.
	ListAdministrators(ctx context.Context, roomID int64) (map[int64]struct{}, error)
	// SendMessage delivers text to a user or room.
	SendMessage(ctx context.Context, recipientID int64, text string) error
}
