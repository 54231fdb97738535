// Package notify fans ban and raid events out to operator channels. Delivery
// is best-effort: failures are logged, never retried, and never block other
// recipients.
package notify

import (
	"context"
	"time"

	"github.com/chatguard/chatguard/pkg/utils"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Sender delivers a message to one recipient.
type Sender interface {
	SendMessage(ctx context.Context, recipientID int64, text string) error
}

// cooldownKey identifies a ban notification target.
type cooldownKey struct {
	roomID int64
	userID int64
}

// Router delivers operator notifications with per-(room, user) deduplication
// of repeated ban notices.
type Router struct {
	sender    Sender
	cooldowns *utils.TTLMap[cooldownKey, time.Time]
	logger    *zap.Logger
}

// New creates a router. Ban notices for the same room and user within
// cooldown of each other are suppressed.
func New(sender Sender, cooldown time.Duration, logger *zap.Logger) *Router {
	return &Router{
		sender:    sender,
		cooldowns: utils.NewTTLMap[cooldownKey, time.Time](cooldown),
		logger:    logger.Named("notify"),
	}
}

// Notify sends text to every recipient. Each delivery is attempted exactly
// once; one recipient's failure does not prevent delivery to the others.
func (r *Router) Notify(ctx context.Context, recipients []int64, text string) {
	p := pool.New().WithContext(ctx)

	for _, recipient := range recipients {
		p.Go(func(ctx context.Context) error {
			if err := r.sender.SendMessage(ctx, recipient, text); err != nil {
				r.logger.Warn("Notification delivery failed",
					zap.Int64("recipientID", recipient),
					zap.Error(err))
			}

			return nil
		})
	}

	_ = p.Wait()
}

// NotifyBanOnce sends a ban notice unless one was already sent for the same
// room and user within the cooldown. Returns whether the notice was sent.
func (r *Router) NotifyBanOnce(ctx context.Context, recipients []int64, roomID, userID int64, text string) bool {
	key := cooldownKey{roomID: roomID, userID: userID}

	if _, withinCooldown := r.cooldowns.Get(key); withinCooldown {
		r.logger.Debug("Ban notification suppressed by cooldown",
			zap.Int64("roomID", roomID),
			zap.Int64("userID", userID))

		return false
	}

	r.cooldowns.Set(key, time.Now())
	r.Notify(ctx, recipients, text)

	return true
}
