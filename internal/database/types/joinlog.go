package types

import (
	"time"

	"github.com/chatguard/chatguard/internal/database/types/enum"
)

// JoinLog is an append-only audit record written by the enforcement engine.
// Rows are never updated or deleted.
type JoinLog struct {
	ID          int64           `bun:",pk,autoincrement"`
	RoomID      int64           `bun:",notnull"`
	RoomTitle   string          `bun:",nullzero"`
	UserID      int64           `bun:",notnull"`
	Username    string          `bun:",nullzero"`
	FirstName   string          `bun:",nullzero"`
	LastName    string          `bun:",nullzero"`
	JoinedAt    time.Time       `bun:",notnull"`
	ActionTaken enum.JoinAction `bun:",nullzero"`
}
