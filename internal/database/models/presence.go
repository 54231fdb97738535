package models

import (
	"context"
	"fmt"
	"time"

	"github.com/chatguard/chatguard/internal/database/dbretry"
	"github.com/chatguard/chatguard/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// PresenceModel handles database operations for per-room seen users, the
// candidate set consumed by the reconciliation sweep.
type PresenceModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPresence creates a new presence model instance.
func NewPresence(db *bun.DB, logger *zap.Logger) *PresenceModel {
	return &PresenceModel{
		db:     db,
		logger: logger.Named("db_presence"),
	}
}

// MarkSeen records that a user was observed in a room. The timestamp only
// ever advances; a stale writer cannot move it backwards.
func (m *PresenceModel) MarkSeen(ctx context.Context, roomID, userID int64) error {
	seen := &types.SeenUser{
		RoomID:     roomID,
		UserID:     userID,
		LastSeenAt: time.Now(),
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(seen).
			On("CONFLICT (room_id, user_id) DO UPDATE").
			Set("last_seen_at = GREATEST(seen_user.last_seen_at, EXCLUDED.last_seen_at)").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark user seen: %w", err)
		}

		return nil
	})
}

// GetSeen returns up to limit user IDs seen in the room, most recent first.
func (m *PresenceModel) GetSeen(ctx context.Context, roomID int64, limit int) ([]int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]int64, error) {
		var userIDs []int64

		err := m.db.NewSelect().
			Model((*types.SeenUser)(nil)).
			Column("user_id").
			Where("room_id = ?", roomID).
			Order("last_seen_at DESC").
			Limit(limit).
			Scan(ctx, &userIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get seen users: %w", err)
		}

		return userIDs, nil
	})
}
