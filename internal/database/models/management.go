package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chatguard/chatguard/internal/database/dbretry"
	"github.com/chatguard/chatguard/internal/database/types"
	"github.com/chatguard/chatguard/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ManagementModel handles database operations for the management group tree:
// groups and their owners, subgroup attachment, delegated admins, and
// per-group settings.
type ManagementModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewManagement creates a new management model instance.
func NewManagement(db *bun.DB, logger *zap.Logger) *ManagementModel {
	return &ManagementModel{
		db:     db,
		logger: logger.Named("db_management"),
	}
}

// SetGroup registers a management group or reassigns its owner, and ensures
// the group has a settings row.
func (m *ManagementModel) SetGroup(ctx context.Context, mgID, ownerUserID int64) error {
	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		group := &types.ManagementGroup{
			RoomID:      mgID,
			OwnerUserID: ownerUserID,
			CreatedAt:   time.Now(),
		}

		_, err := tx.NewInsert().
			Model(group).
			On("CONFLICT (room_id) DO UPDATE").
			Set("owner_user_id = EXCLUDED.owner_user_id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert management group: %w", err)
		}

		setting := &types.ManagementSetting{
			MGID:          mgID,
			AddMemberMode: enum.AddMemberModeAsk,
		}

		_, err = tx.NewInsert().
			Model(setting).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to ensure management settings: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Set management group",
		zap.Int64("mgID", mgID),
		zap.Int64("ownerUserID", ownerUserID))

	return nil
}

// OwnerOf returns the owner of a management group. The second return value
// is false when the room is not a registered management group.
func (m *ManagementModel) OwnerOf(ctx context.Context, mgID int64) (int64, bool, error) {
	type result struct {
		owner int64
		found bool
	}

	res, err := dbretry.Operation(ctx, func(ctx context.Context) (result, error) {
		var group types.ManagementGroup

		err := m.db.NewSelect().
			Model(&group).
			Where("room_id = ?", mgID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return result{}, nil
		}

		if err != nil {
			return result{}, fmt.Errorf("failed to get management group owner: %w", err)
		}

		return result{owner: group.OwnerUserID, found: true}, nil
	})
	if err != nil {
		return 0, false, err
	}

	return res.owner, res.found, nil
}

// AddSubgroup attaches a room to a management group. The room ID is the
// conflict key: re-adding a room that already belongs to another group moves
// it, so a subgroup never belongs to two groups at once. Re-attachment also
// refreshes the registration time, keeping ListSubgroups ordered by the
// latest attachment rather than the first.
func (m *ManagementModel) AddSubgroup(ctx context.Context, mgID, roomID int64) error {
	sub := &types.Subgroup{
		MGID:      mgID,
		RoomID:    roomID,
		CreatedAt: time.Now(),
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		if _, err := subgroupUpsert(m.db, sub).Exec(ctx); err != nil {
			return fmt.Errorf("failed to add subgroup: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Added subgroup", zap.Int64("mgID", mgID), zap.Int64("roomID", roomID))

	return nil
}

// subgroupUpsert builds the insert that attaches a room to a management
// group or moves it between groups.
func subgroupUpsert(db bun.IDB, sub *types.Subgroup) *bun.InsertQuery {
	return db.NewInsert().
		Model(sub).
		On("CONFLICT (room_id) DO UPDATE").
		Set("mg_id = EXCLUDED.mg_id").
		Set("created_at = EXCLUDED.created_at")
}

// RemoveSubgroup detaches a room from whichever management group owns it.
func (m *ManagementModel) RemoveSubgroup(ctx context.Context, roomID int64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.Subgroup)(nil)).
			Where("room_id = ?", roomID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove subgroup: %w", err)
		}

		return nil
	})
}

// ListSubgroups returns a management group's subgroup room IDs, most
// recently registered first.
func (m *ManagementModel) ListSubgroups(ctx context.Context, mgID int64) ([]int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]int64, error) {
		var roomIDs []int64

		err := m.db.NewSelect().
			Model((*types.Subgroup)(nil)).
			Column("room_id").
			Where("mg_id = ?", mgID).
			Order("created_at DESC").
			Scan(ctx, &roomIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to list subgroups: %w", err)
		}

		return roomIDs, nil
	})
}

// ListManagedRooms returns the room IDs of every registered subgroup across
// all management groups.
func (m *ManagementModel) ListManagedRooms(ctx context.Context) ([]int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]int64, error) {
		var roomIDs []int64

		err := m.db.NewSelect().
			Model((*types.Subgroup)(nil)).
			Column("room_id").
			Order("room_id ASC").
			Scan(ctx, &roomIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to list managed rooms: %w", err)
		}

		return roomIDs, nil
	})
}

// MGOf returns the management group a room is attached to. The second return
// value is false when the room is not a registered subgroup.
func (m *ManagementModel) MGOf(ctx context.Context, roomID int64) (int64, bool, error) {
	type result struct {
		mgID  int64
		found bool
	}

	res, err := dbretry.Operation(ctx, func(ctx context.Context) (result, error) {
		var sub types.Subgroup

		err := m.db.NewSelect().
			Model(&sub).
			Where("room_id = ?", roomID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return result{}, nil
		}

		if err != nil {
			return result{}, fmt.Errorf("failed to get subgroup parent: %w", err)
		}

		return result{mgID: sub.MGID, found: true}, nil
	})
	if err != nil {
		return 0, false, err
	}

	return res.mgID, res.found, nil
}

// UpsertDelegate grants or updates a delegated admin's permission flags on a
// management group.
func (m *ManagementModel) UpsertDelegate(ctx context.Context, delegate *types.DelegatedAdmin) error {
	delegate.UpdatedAt = time.Now()

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(delegate).
			On("CONFLICT (mg_id, user_id) DO UPDATE").
			Set("can_add_member = EXCLUDED.can_add_member").
			Set("can_remove_member = EXCLUDED.can_remove_member").
			Set("can_view_subgroups = EXCLUDED.can_view_subgroups").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert delegated admin: %w", err)
		}

		return nil
	})
}

// RemoveDelegate revokes a user's delegation on a management group.
func (m *ManagementModel) RemoveDelegate(ctx context.Context, mgID, userID int64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.DelegatedAdmin)(nil)).
			Where("mg_id = ? AND user_id = ?", mgID, userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove delegated admin: %w", err)
		}

		return nil
	})
}

// GetDelegate fetches a user's delegation row on a management group, if any.
func (m *ManagementModel) GetDelegate(ctx context.Context, mgID, userID int64) (*types.DelegatedAdmin, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.DelegatedAdmin, error) {
		var delegate types.DelegatedAdmin

		err := m.db.NewSelect().
			Model(&delegate).
			Where("mg_id = ? AND user_id = ?", mgID, userID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get delegated admin: %w", err)
		}

		return &delegate, nil
	})
}

// SetAddMemberMode updates a management group's member addition mode.
func (m *ManagementModel) SetAddMemberMode(ctx context.Context, mgID int64, mode enum.AddMemberMode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid add member mode %q", mode)
	}

	setting := &types.ManagementSetting{
		MGID:          mgID,
		AddMemberMode: mode,
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(setting).
			On("CONFLICT (mg_id) DO UPDATE").
			Set("add_member_mode = EXCLUDED.add_member_mode").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set add member mode: %w", err)
		}

		return nil
	})
}

// GetAddMemberMode returns a management group's member addition mode,
// defaulting to ask when no settings row exists.
func (m *ManagementModel) GetAddMemberMode(ctx context.Context, mgID int64) (enum.AddMemberMode, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (enum.AddMemberMode, error) {
		var setting types.ManagementSetting

		err := m.db.NewSelect().
			Model(&setting).
			Where("mg_id = ?", mgID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return enum.AddMemberModeAsk, nil
		}

		if err != nil {
			return "", fmt.Errorf("failed to get add member mode: %w", err)
		}

		return setting.AddMemberMode, nil
	})
}
