package types

import "time"

// AllowedMember is a user permitted to remain in protected rooms. Absence
// from this table means not allow-listed; protected rooms are default-deny.
type AllowedMember struct {
	UserID    int64     `bun:",pk"`
	Username  string    `bun:",nullzero"`
	FirstName string    `bun:",nullzero"`
	LastName  string    `bun:",nullzero"`
	UpdatedAt time.Time `bun:",notnull"`
}

// DisplayName returns the best human-readable reference for the member.
func (m *AllowedMember) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}

	if m.FirstName != "" {
		return m.FirstName
	}

	return ""
}

// GlobalBan is a cross-room ban. It is independent of the allow-list; a user
// may hold both rows at once and the ban always dominates.
type GlobalBan struct {
	UserID    int64     `bun:",pk"`
	CreatedAt time.Time `bun:",notnull"`
}

// SeenUser records the last time a user was observed in a protected room.
// Rows form the candidate set for the reconciliation sweep.
type SeenUser struct {
	RoomID     int64     `bun:",pk"`
	UserID     int64     `bun:",pk"`
	LastSeenAt time.Time `bun:",notnull"`
}
