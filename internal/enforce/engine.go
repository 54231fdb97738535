// Package enforce implements the membership decision engine. Every join to a
// protected room passes through Evaluate, which either admits the user and
// records their presence or bans them and notifies the operators.
package enforce

import (
	"context"
	"fmt"
	"time"

	"github.com/chatguard/chatguard/internal/database/types"
	"github.com/chatguard/chatguard/internal/database/types/enum"
	"github.com/chatguard/chatguard/internal/platform"
	"go.uber.org/zap"
)

// Outcome is the result of evaluating one join event.
type Outcome int

const (
	// OutcomeSelf means the joining user is the bot itself.
	OutcomeSelf Outcome = iota
	// OutcomeUnprotected means the room is not under enforcement.
	OutcomeUnprotected
	// OutcomeAlreadyRemoved means the user was banned from the room before
	// evaluation started.
	OutcomeAlreadyRemoved
	// OutcomeBanned means the user was removed from the room.
	OutcomeBanned
	// OutcomeAllowed means the user was admitted and marked as seen.
	OutcomeAllowed
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeSelf:
		return "self"
	case OutcomeUnprotected:
		return "unprotected"
	case OutcomeAlreadyRemoved:
		return "alreadyRemoved"
	case OutcomeBanned:
		return "banned"
	case OutcomeAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Room identifies the room a join event occurred in.
type Room struct {
	ID    int64
	Title string
}

// User identifies the joining user.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// BanStore answers global ban lookups.
type BanStore interface {
	IsBanned(ctx context.Context, userID int64) (bool, error)
}

// MemberStore answers allow list lookups.
type MemberStore interface {
	IsAllowed(ctx context.Context, userID int64) (bool, error)
}

// PresenceStore records that an admitted user was observed in a room.
type PresenceStore interface {
	MarkSeen(ctx context.Context, roomID, userID int64) error
}

// JoinLogStore appends audit records for evaluated joins.
type JoinLogStore interface {
	Log(ctx context.Context, record *types.JoinLog) error
}

// ProtectionStore reports whether a room is under enforcement.
type ProtectionStore interface {
	IsProtected(ctx context.Context, roomID int64) (bool, error)
}

// Notifier delivers ban notices to the operators.
type Notifier interface {
	Notify(ctx context.Context, recipients []int64, text string)
}

// Engine evaluates join events against the allow list and global ban list.
type Engine struct {
	selfID     int64
	client     platform.Client
	bans       BanStore
	members    MemberStore
	presence   PresenceStore
	joins      JoinLogStore
	protection ProtectionStore
	notifier   Notifier
	recipients []int64
	logger     *zap.Logger
}

// New creates an enforcement engine. recipients are the operator IDs ban
// notices are sent to.
func New(
	selfID int64, client platform.Client,
	bans BanStore, members MemberStore, presence PresenceStore, joins JoinLogStore,
	protection ProtectionStore, notifier Notifier, recipients []int64, logger *zap.Logger,
) *Engine {
	return &Engine{
		selfID:     selfID,
		client:     client,
		bans:       bans,
		members:    members,
		presence:   presence,
		joins:      joins,
		protection: protection,
		notifier:   notifier,
		recipients: recipients,
		logger:     logger.Named("enforce"),
	}
}

// ShouldBan reports whether a user must be removed from protected rooms. A
// global ban always wins, even when the user is also on the allow list.
func (e *Engine) ShouldBan(ctx context.Context, userID int64) (bool, error) {
	banned, err := e.bans.IsBanned(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check global ban: %w", err)
	}

	if banned {
		return true, nil
	}

	allowed, err := e.members.IsAllowed(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check allow list: %w", err)
	}

	return !allowed, nil
}

// Evaluate decides the fate of a single join event. Checks run in a fixed
// order: self, room protection, prior removal, global ban, allow list.
// reason tags the event source in logs.
func (e *Engine) Evaluate(ctx context.Context, room Room, user User, reason string) (Outcome, error) {
	if user.ID == e.selfID {
		return OutcomeSelf, nil
	}

	protected, err := e.protection.IsProtected(ctx, room.ID)
	if err != nil {
		return OutcomeUnprotected, fmt.Errorf("failed to check room protection: %w", err)
	}

	if !protected {
		return OutcomeUnprotected, nil
	}

	// A lookup failure here must not skip enforcement, so the status is
	// treated as unknown and evaluation continues.
	status, err := e.client.MembershipStatus(ctx, room.ID, user.ID)
	if err != nil {
		e.logger.Debug("Membership status lookup failed",
			zap.Int64("roomID", room.ID),
			zap.Int64("userID", user.ID),
			zap.Error(err))

		status = platform.StatusUnknown
	}

	if status.Removed() {
		return OutcomeAlreadyRemoved, nil
	}

	shouldBan, err := e.ShouldBan(ctx, user.ID)
	if err != nil {
		return OutcomeUnprotected, err
	}

	if shouldBan {
		return e.ban(ctx, room, user, reason)
	}

	if err := e.presence.MarkSeen(ctx, room.ID, user.ID); err != nil {
		return OutcomeAllowed, fmt.Errorf("failed to mark user as seen: %w", err)
	}

	e.logJoin(ctx, room, user, enum.JoinActionAllowed)

	return OutcomeAllowed, nil
}

// ban removes the user from the room, records the action, and notifies the
// operators. Live join bans are always reported: the already-removed
// pre-check dedupes repeat events, so every notice here is a real removal.
func (e *Engine) ban(ctx context.Context, room Room, user User, reason string) (Outcome, error) {
	if err := e.client.Ban(ctx, room.ID, user.ID); err != nil {
		return OutcomeBanned, fmt.Errorf("failed to ban user %d from room %d: %w", user.ID, room.ID, err)
	}

	e.logger.Info("Removed user from protected room",
		zap.Int64("roomID", room.ID),
		zap.String("roomTitle", room.Title),
		zap.Int64("userID", user.ID),
		zap.String("username", user.Username),
		zap.String("reason", reason))

	e.logJoin(ctx, room, user, enum.JoinActionBanned)

	if e.notifier != nil {
		e.notifier.Notify(ctx, e.recipients, banNotice(room, user))
	}

	return OutcomeBanned, nil
}

// logJoin appends an audit record. Audit failures are logged and swallowed
// so they cannot undo an enforcement decision already taken.
func (e *Engine) logJoin(ctx context.Context, room Room, user User, action enum.JoinAction) {
	record := &types.JoinLog{
		RoomID:      room.ID,
		RoomTitle:   room.Title,
		UserID:      user.ID,
		Username:    user.Username,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		JoinedAt:    time.Now(),
		ActionTaken: action,
	}

	if err := e.joins.Log(ctx, record); err != nil {
		e.logger.Warn("Failed to write join audit record",
			zap.Int64("roomID", room.ID),
			zap.Int64("userID", user.ID),
			zap.Error(err))
	}
}

func banNotice(room Room, user User) string {
	name := user.FirstName
	if user.Username != "" {
		name = fmt.Sprintf("%s (@%s)", name, user.Username)
	}

	return fmt.Sprintf("Removed %s [%d] from %q [%d]: not permitted to join.",
		name, user.ID, room.Title, room.ID)
}
