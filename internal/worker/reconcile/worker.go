// Package reconcile implements the periodic sweep that removes users who
// slipped into protected rooms while the process was down or who lost their
// allow list entry after joining.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/chatguard/chatguard/internal/platform"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultInterval is how often the sweep runs. The first sweep runs one full
// interval after Start so that startup join traffic settles first.
const DefaultInterval = 60 * time.Second

// DefaultSeenLimit bounds how many recently seen users one sweep examines
// per room.
const DefaultSeenLimit = 5000

// RoomSource lists the rooms under enforcement.
type RoomSource interface {
	List(ctx context.Context) ([]int64, error)
}

// ManagedSource lists the rooms attached to management groups.
type ManagedSource interface {
	ListManagedRooms(ctx context.Context) ([]int64, error)
}

// CombinedRooms is a RoomSource merging the flat protected set with the
// registered subgroups, deduplicated.
type CombinedRooms struct {
	Flat    RoomSource
	Managed ManagedSource
}

// List implements RoomSource.
func (c CombinedRooms) List(ctx context.Context) ([]int64, error) {
	flat, err := c.Flat.List(ctx)
	if err != nil {
		return nil, err
	}

	managed, err := c.Managed.ListManagedRooms(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(flat)+len(managed))
	rooms := make([]int64, 0, len(flat)+len(managed))

	for _, roomID := range append(flat, managed...) {
		if _, dup := seen[roomID]; dup {
			continue
		}

		seen[roomID] = struct{}{}
		rooms = append(rooms, roomID)
	}

	return rooms, nil
}

// PresenceSource lists users recently observed in a room, most recent first.
type PresenceSource interface {
	GetSeen(ctx context.Context, roomID int64, limit int) ([]int64, error)
}

// BanPredicate decides whether a user may remain in protected rooms.
type BanPredicate interface {
	ShouldBan(ctx context.Context, userID int64) (bool, error)
}

// Notifier delivers ban notices with a per-target cooldown.
type Notifier interface {
	NotifyBanOnce(ctx context.Context, recipients []int64, roomID, userID int64, text string) bool
}

// Worker runs the reconciliation sweep on a fixed interval.
type Worker struct {
	selfID     int64
	client     platform.Client
	rooms      RoomSource
	presence   PresenceSource
	predicate  BanPredicate
	notifier   Notifier
	recipients []int64
	interval   time.Duration
	seenLimit  int
	logger     *zap.Logger
}

// New creates a reconciliation worker.
func New(
	selfID int64, client platform.Client,
	rooms RoomSource, presence PresenceSource, predicate BanPredicate,
	notifier Notifier, recipients []int64, interval time.Duration, seenLimit int,
	logger *zap.Logger,
) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}

	if seenLimit <= 0 {
		seenLimit = DefaultSeenLimit
	}

	return &Worker{
		selfID:     selfID,
		client:     client,
		rooms:      rooms,
		presence:   presence,
		predicate:  predicate,
		notifier:   notifier,
		recipients: recipients,
		interval:   interval,
		seenLimit:  seenLimit,
		logger:     logger.Named("reconcile"),
	}
}

// Start runs sweeps until ctx is cancelled. It blocks.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Reconciliation worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Reconciliation worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one full reconciliation pass. A failure in one room never
// prevents the remaining rooms from being swept.
func (w *Worker) Sweep(ctx context.Context) {
	runID := uuid.New().String()
	log := w.logger.With(zap.String("runID", runID))

	rooms, err := w.rooms.List(ctx)
	if err != nil {
		log.Error("Failed to list protected rooms", zap.Error(err))
		return
	}

	log.Debug("Sweep started", zap.Int("rooms", len(rooms)))

	removed := 0
	for _, roomID := range rooms {
		n, err := w.sweepRoom(ctx, log, roomID)
		if err != nil {
			log.Warn("Room sweep failed",
				zap.Int64("roomID", roomID),
				zap.Error(err))

			continue
		}

		removed += n
	}

	log.Info("Sweep finished",
		zap.Int("rooms", len(rooms)),
		zap.Int("removed", removed))
}

// sweepRoom examines the room's recently seen users and removes those
// failing the ban predicate. Room administrators are never removed.
func (w *Worker) sweepRoom(ctx context.Context, log *zap.Logger, roomID int64) (int, error) {
	// Without the admin list the sweep could remove a room administrator,
	// so the room is skipped entirely.
	admins, err := w.client.ListAdministrators(ctx, roomID)
	if err != nil {
		return 0, err
	}

	seen, err := w.presence.GetSeen(ctx, roomID, w.seenLimit)
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, userID := range seen {
		if userID == w.selfID {
			continue
		}

		if _, isAdmin := admins[userID]; isAdmin {
			continue
		}

		shouldBan, err := w.predicate.ShouldBan(ctx, userID)
		if err != nil {
			log.Warn("Ban check failed during sweep",
				zap.Int64("roomID", roomID),
				zap.Int64("userID", userID),
				zap.Error(err))

			continue
		}

		if !shouldBan {
			continue
		}

		// A user who merely left still gets the room ban so they cannot
		// rejoin; only an existing ban makes the call redundant.
		status, err := w.client.MembershipStatus(ctx, roomID, userID)
		if err == nil && status.Removed() {
			continue
		}

		if err := w.client.Ban(ctx, roomID, userID); err != nil {
			log.Warn("Failed to remove user during sweep",
				zap.Int64("roomID", roomID),
				zap.Int64("userID", userID),
				zap.Error(err))

			continue
		}

		log.Info("Removed user during sweep",
			zap.Int64("roomID", roomID),
			zap.Int64("userID", userID))

		removed++

		if w.notifier != nil {
			w.notifier.NotifyBanOnce(ctx, w.recipients, roomID, userID,
				sweepNotice(roomID, userID))
		}
	}

	return removed, nil
}

func sweepNotice(roomID, userID int64) string {
	return fmt.Sprintf("Sweep removed user %d from room %d.", userID, roomID)
}
