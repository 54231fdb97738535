package migrations

import (
	"context"
	"fmt"

	"github.com/chatguard/chatguard/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.AllowedMember)(nil),
			(*types.GlobalBan)(nil),
			(*types.ProtectedRoom)(nil),
			(*types.ManagementGroup)(nil),
			(*types.Subgroup)(nil),
			(*types.DelegatedAdmin)(nil),
			(*types.ManagementSetting)(nil),
			(*types.SeenUser)(nil),
			(*types.JoinLog)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		indexes := []struct {
			name    string
			model   any
			columns []string
		}{
			{"idx_subgroups_mg_id", (*types.Subgroup)(nil), []string{"mg_id"}},
			{"idx_seen_users_room_recency", (*types.SeenUser)(nil), []string{"room_id", "last_seen_at DESC"}},
			{"idx_join_logs_room", (*types.JoinLog)(nil), []string{"room_id", "joined_at DESC"}},
		}

		for _, idx := range indexes {
			query := db.NewCreateIndex().
				Model(idx.model).
				Index(idx.name).
				IfNotExists()

			for _, col := range idx.columns {
				query = query.ColumnExpr(col)
			}

			if _, err := query.Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.JoinLog)(nil),
			(*types.SeenUser)(nil),
			(*types.ManagementSetting)(nil),
			(*types.DelegatedAdmin)(nil),
			(*types.Subgroup)(nil),
			(*types.ManagementGroup)(nil),
			(*types.ProtectedRoom)(nil),
			(*types.GlobalBan)(nil),
			(*types.AllowedMember)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table for %T: %w", model, err)
			}
		}

		return nil
	})
}
