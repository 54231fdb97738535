package enforce

import (
	"context"

	"github.com/chatguard/chatguard/internal/platform"
	"go.uber.org/zap"
)

// RoomLister enumerates the rooms under enforcement.
type RoomLister interface {
	List(ctx context.Context) ([]int64, error)
}

// Fanout applies and lifts platform-level bans across every protected room.
// Enforcement bans are taken at the platform, so a global ban or unban must
// touch every room immediately rather than wait for users to be observed.
// Delivery is best-effort: a failure in one room is logged and the remaining
// rooms are still processed.
type Fanout struct {
	client platform.Client
	rooms  RoomLister
	logger *zap.Logger
}

// NewFanout creates a fan-out over the given room set.
func NewFanout(client platform.Client, rooms RoomLister, logger *zap.Logger) *Fanout {
	return &Fanout{
		client: client,
		rooms:  rooms,
		logger: logger.Named("fanout"),
	}
}

// BanAll bans the user in every protected room and returns the number of
// rooms the ban was applied in.
func (f *Fanout) BanAll(ctx context.Context, userID int64) int {
	return f.apply(ctx, userID, "ban", f.client.Ban)
}

// UnbanAll lifts the user's room-level ban in every protected room and
// returns the number of rooms the ban was lifted in.
func (f *Fanout) UnbanAll(ctx context.Context, userID int64) int {
	return f.apply(ctx, userID, "unban", f.client.Unban)
}

func (f *Fanout) apply(
	ctx context.Context, userID int64, action string,
	op func(ctx context.Context, roomID, userID int64) error,
) int {
	rooms, err := f.rooms.List(ctx)
	if err != nil {
		f.logger.Error("Failed to list rooms for ban fan-out",
			zap.String("action", action),
			zap.Int64("userID", userID),
			zap.Error(err))

		return 0
	}

	applied := 0

	for _, roomID := range rooms {
		if err := op(ctx, roomID, userID); err != nil {
			f.logger.Warn("Ban fan-out failed in room",
				zap.String("action", action),
				zap.Int64("roomID", roomID),
				zap.Int64("userID", userID),
				zap.Error(err))

			continue
		}

		applied++
	}

	f.logger.Info("Ban fan-out finished",
		zap.String("action", action),
		zap.Int64("userID", userID),
		zap.Int("rooms", applied))

	return applied
}
