package models

import (
	"database/sql"
	"testing"
	"time"

	"github.com/chatguard/chatguard/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func TestSubgroupUpsertRefreshesAttachmentTime(t *testing.T) {
	t.Parallel()

	// Rendering the query never touches the connection.
	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithAddr("localhost:5432"))), pgdialect.New())
	sub := &types.Subgroup{MGID: 1, RoomID: 2, CreatedAt: time.Now()}

	query := subgroupUpsert(db, sub).String()

	// Moving a subgroup between groups must update both the parent and the
	// registration time so listings order by the latest attachment.
	assert.Contains(t, query, "ON CONFLICT (room_id) DO UPDATE")
	assert.Contains(t, query, "mg_id = EXCLUDED.mg_id")
	assert.Contains(t, query, "created_at = EXCLUDED.created_at")
}
