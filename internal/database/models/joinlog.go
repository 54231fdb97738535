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

// JoinLogModel handles the append-only join audit log.
type JoinLogModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewJoinLog creates a new join log model instance.
func NewJoinLog(db *bun.DB, logger *zap.Logger) *JoinLogModel {
	return &JoinLogModel{
		db:     db,
		logger: logger.Named("db_joinlog"),
	}
}

// Log appends an audit record. Records are never updated.
func (m *JoinLogModel) Log(ctx context.Context, record *types.JoinLog) error {
	if record.JoinedAt.IsZero() {
		record.JoinedAt = time.Now()
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(record).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to append join log: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Appended join log",
		zap.Int64("roomID", record.RoomID),
		zap.Int64("userID", record.UserID),
		zap.String("action", string(record.ActionTaken)))

	return nil
}
