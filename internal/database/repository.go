package database

import (
	"github.com/chatguard/chatguard/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	member     *models.MemberModel
	ban        *models.BanModel
	room       *models.RoomModel
	management *models.ManagementModel
	presence   *models.PresenceModel
	joinLog    *models.JoinLogModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		member:     models.NewMember(db, logger),
		ban:        models.NewBan(db, logger),
		room:       models.NewRoom(db, logger),
		management: models.NewManagement(db, logger),
		presence:   models.NewPresence(db, logger),
		joinLog:    models.NewJoinLog(db, logger),
	}
}

// Member returns the allow-list model.
func (r *Repository) Member() *models.MemberModel {
	return r.member
}

// Ban returns the global ban model.
func (r *Repository) Ban() *models.BanModel {
	return r.ban
}

// Room returns the protected room model.
func (r *Repository) Room() *models.RoomModel {
	return r.room
}

// Management returns the management group model.
func (r *Repository) Management() *models.ManagementModel {
	return r.management
}

// Presence returns the seen-user model.
func (r *Repository) Presence() *models.PresenceModel {
	return r.presence
}

// JoinLog returns the join audit log model.
func (r *Repository) JoinLog() *models.JoinLogModel {
	return r.joinLog
}
