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

// MemberModel handles database operations for the allow-list.
type MemberModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMember creates a new allow-list model instance.
func NewMember(db *bun.DB, logger *zap.Logger) *MemberModel {
	return &MemberModel{
		db:     db,
		logger: logger.Named("db_member"),
	}
}

// Upsert adds a user to the allow-list or refreshes their profile fields.
// Repeated calls with the same user ID never duplicate the row.
func (m *MemberModel) Upsert(ctx context.Context, member *types.AllowedMember) error {
	member.UpdatedAt = time.Now()

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(member).
			On("CONFLICT (user_id) DO UPDATE").
			Set("username = EXCLUDED.username").
			Set("first_name = EXCLUDED.first_name").
			Set("last_name = EXCLUDED.last_name").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert allowed member: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Upserted allowed member", zap.Int64("userID", member.UserID))

	return nil
}

// IsAllowed reports whether the user is on the allow-list.
func (m *MemberModel) IsAllowed(ctx context.Context, userID int64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.AllowedMember)(nil)).
			Where("user_id = ?", userID).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check allowed member: %w", err)
		}

		return exists, nil
	})
}

// List returns all allow-listed users ordered by ascending user ID.
func (m *MemberModel) List(ctx context.Context) ([]*types.AllowedMember, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.AllowedMember, error) {
		var members []*types.AllowedMember

		err := m.db.NewSelect().
			Model(&members).
			Order("user_id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list allowed members: %w", err)
		}

		return members, nil
	})
}
