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

// RoomModel handles database operations for the flat protected room set.
type RoomModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewRoom creates a new protected room model instance.
func NewRoom(db *bun.DB, logger *zap.Logger) *RoomModel {
	return &RoomModel{
		db:     db,
		logger: logger.Named("db_room"),
	}
}

// Protect adds a room to the protected set. Re-protecting is a no-op.
func (m *RoomModel) Protect(ctx context.Context, roomID int64) error {
	room := &types.ProtectedRoom{
		RoomID:    roomID,
		CreatedAt: time.Now(),
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(room).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to protect room: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Protected room", zap.Int64("roomID", roomID))

	return nil
}

// Unprotect removes a room from the protected set.
func (m *RoomModel) Unprotect(ctx context.Context, roomID int64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.ProtectedRoom)(nil)).
			Where("room_id = ?", roomID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to unprotect room: %w", err)
		}

		return nil
	})
}

// IsProtected reports whether the room is in the flat protected set. It does
// not consider subgroup registration; the hierarchy resolver combines both.
func (m *RoomModel) IsProtected(ctx context.Context, roomID int64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.ProtectedRoom)(nil)).
			Where("room_id = ?", roomID).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check protected room: %w", err)
		}

		return exists, nil
	})
}

// List returns the protected room IDs ordered ascending.
func (m *RoomModel) List(ctx context.Context) ([]int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]int64, error) {
		var roomIDs []int64

		err := m.db.NewSelect().
			Model((*types.ProtectedRoom)(nil)).
			Column("room_id").
			Order("room_id ASC").
			Scan(ctx, &roomIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to list protected rooms: %w", err)
		}

		return roomIDs, nil
	})
}
