// Package telegram implements the platform boundary over the Telegram Bot
// API using telebot.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/chatguard/chatguard/internal/platform"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// clientTimeout bounds every outbound API call. Timeouts are treated as
// transient failures, never as fatal.
const clientTimeout = 30 * time.Second

// Client adapts a telebot bot to the platform.Client interface.
type Client struct {
	bot    *tele.Bot
	logger *zap.Logger
}

// New creates a Telegram platform client backed by long polling.
func New(token string, logger *zap.Logger) (*Client, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		Client: &http.Client{Timeout: clientTimeout},
	})
	if err != nil {
		return nil, platform.NewPermanent("connect", err)
	}

	return &Client{
		bot:    bot,
		logger: logger.Named("telegram"),
	}, nil
}

// Bot exposes the underlying telebot instance for handler registration.
func (c *Client) Bot() *tele.Bot {
	return c.bot
}

// SelfID returns the bot's own user ID.
func (c *Client) SelfID() int64 {
	return c.bot.Me.ID
}

// Start begins consuming updates. It blocks until Stop is called.
func (c *Client) Start() {
	c.bot.Start()
}

// Stop terminates the update loop.
func (c *Client) Stop() {
	c.bot.Stop()
}

// MembershipStatus returns the user's current status in the room.
func (c *Client) MembershipStatus(_ context.Context, roomID, userID int64) (platform.MemberStatus, error) {
	member, err := c.bot.ChatMemberOf(&tele.Chat{ID: roomID}, &tele.User{ID: userID})
	if err != nil {
		return platform.StatusUnknown, classify("member_status", err)
	}

	return mapStatus(member.Role), nil
}

// Ban removes the user from the room.
func (c *Client) Ban(_ context.Context, roomID, userID int64) error {
	err := c.bot.Ban(&tele.Chat{ID: roomID}, &tele.ChatMember{User: &tele.User{ID: userID}})
	if err != nil {
		return classify("ban", err)
	}

	return nil
}

// Unban lifts a room-level ban.
func (c *Client) Unban(_ context.Context, roomID, userID int64) error {
	err := c.bot.Unban(&tele.Chat{ID: roomID}, &tele.User{ID: userID})
	if err != nil {
		return classify("unban", err)
	}

	return nil
}

// ListAdministrators returns the IDs of the room's administrators.
func (c *Client) ListAdministrators(_ context.Context, roomID int64) (map[int64]struct{}, error) {
	admins, err := c.bot.AdminsOf(&tele.Chat{ID: roomID})
	if err != nil {
		return nil, classify("list_administrators", err)
	}

	ids := make(map[int64]struct{}, len(admins))
	for _, admin := range admins {
		ids[admin.User.ID] = struct{}{}
	}

	return ids, nil
}

// SendMessage delivers text to a user or room.
func (c *Client) SendMessage(_ context.Context, recipientID int64, text string) error {
	_, err := c.bot.Send(&tele.Chat{ID: recipientID}, text)
	if err != nil {
		return classify("send_message", err)
	}

	return nil
}

// mapStatus translates telebot member roles to platform statuses.
func mapStatus(role tele.MemberStatus) platform.MemberStatus {
	switch role {
	case tele.Creator:
		return platform.StatusCreator
	case tele.Administrator:
		return platform.StatusAdministrator
	case tele.Member:
		return platform.StatusMember
	case tele.Restricted:
		return platform.StatusRestricted
	case tele.Left:
		return platform.StatusLeft
	case tele.Kicked:
		return platform.StatusRemoved
	default:
		return platform.StatusUnknown
	}
}

// classify wraps a telebot error with its transience. Rate limits, server
// errors, and network failures are transient; API rejections are permanent.
func classify(op string, err error) error {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return platform.NewTransient(op, err)
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code >= http.StatusInternalServerError {
			return platform.NewTransient(op, err)
		}

		return platform.NewPermanent(op, err)
	}

	// Anything that is not a structured API response is a network-level
	// failure.
	return platform.NewTransient(op, err)
}
