package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chatguard/chatguard/internal/database/dbretry"
	"github.com/chatguard/chatguard/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// AccessService handles transitions that must touch the global ban set and
// the allow-list together.
type AccessService struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAccess creates a new access service.
func NewAccess(db *bun.DB, logger *zap.Logger) *AccessService {
	return &AccessService{
		db:     db,
		logger: logger.Named("access_service"),
	}
}

// Unban lifts a user's global ban and re-adds them to the allow-list in one
// transaction. Clearing only the ban would leave the user absent from the
// allow-list, and the next reconciliation sweep would ban them again.
func (s *AccessService) Unban(ctx context.Context, userID int64) error {
	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*types.GlobalBan)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear global ban: %w", err)
		}

		member := &types.AllowedMember{
			UserID:    userID,
			UpdatedAt: time.Now(),
		}

		_, err = tx.NewInsert().
			Model(member).
			On("CONFLICT (user_id) DO UPDATE").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to restore allow-list entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Unbanned user", zap.Int64("userID", userID))

	return nil
}

// Evict removes a user from the allow-list and adds a global ban in one
// transaction. Callers then apply the ban across protected rooms.
func (s *AccessService) Evict(ctx context.Context, userID int64) error {
	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*types.AllowedMember)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove allow-list entry: %w", err)
		}

		ban := &types.GlobalBan{
			UserID:    userID,
			CreatedAt: time.Now(),
		}

		_, err = tx.NewInsert().
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

	s.logger.Info("Evicted user", zap.Int64("userID", userID))

	return nil
}
