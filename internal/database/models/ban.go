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

// BanModel handles database operations for the global ban set.
type BanModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewBan creates a new global ban model instance.
func NewBan(db *bun.DB, logger *zap.Logger) *BanModel {
	return &BanModel{
		db:     db,
		logger: logger.Named("db_ban"),
	}
}

// Add inserts a user into the global ban set. Adding an already-banned user
// is a no-op.
func (m *BanModel) Add(ctx context.Context, userID int64) error {
	ban := &types.GlobalBan{
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(ban).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add global ban: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Added global ban", zap.Int64("userID", userID))

	return nil
}

// IsBanned reports whether the user is globally banned.
func (m *BanModel) IsBanned(ctx context.Context, userID int64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.GlobalBan)(nil)).
			Where("user_id = ?", userID).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check global ban: %w", err)
		}

		return exists, nil
	})
}
