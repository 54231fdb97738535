// Package bot wires the Telegram update stream to the enforcement engine and
// exposes the management command surface.
package bot

import (
	"context"
	"time"

	"github.com/chatguard/chatguard/internal/database"
	"github.com/chatguard/chatguard/internal/enforce"
	"github.com/chatguard/chatguard/internal/hierarchy"
	"github.com/chatguard/chatguard/internal/notify"
	"github.com/chatguard/chatguard/internal/platform/telegram"
	"github.com/chatguard/chatguard/internal/raid"
	"github.com/chatguard/chatguard/pkg/utils"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handlerTimeout bounds the work done for a single update.
const handlerTimeout = 30 * time.Second

// pendingAction is a command waiting for its argument in a follow-up
// message.
type pendingAction struct {
	command string
}

// Bot routes Telegram updates to the moderation core.
type Bot struct {
	client   *telegram.Client
	db       database.Client
	engine   *enforce.Engine
	detector *raid.Detector
	resolver *hierarchy.Resolver
	router   *notify.Router
	fanout   *enforce.Fanout
	pending  *utils.TTLMap[int64, pendingAction]
	logger   *zap.Logger
}

// New creates the bot and registers all update handlers. db may be nil, in
// which case every handler answers that storage is unavailable.
func New(
	client *telegram.Client, db database.Client,
	engine *enforce.Engine, detector *raid.Detector, resolver *hierarchy.Resolver,
	router *notify.Router, fanout *enforce.Fanout,
	pendingTimeout time.Duration, logger *zap.Logger,
) *Bot {
	b := &Bot{
		client:   client,
		db:       db,
		engine:   engine,
		detector: detector,
		resolver: resolver,
		router:   router,
		fanout:   fanout,
		pending:  utils.NewTTLMap[int64, pendingAction](pendingTimeout),
		logger:   logger.Named("bot"),
	}

	b.registerHandlers()

	return b
}

func (b *Bot) registerHandlers() {
	bot := b.client.Bot()

	bot.Handle(tele.OnUserJoined, b.handleUserJoined)
	bot.Handle(tele.OnChatMember, b.handleChatMember)
	bot.Handle(tele.OnText, b.handleText)

	bot.Handle("/start", b.handleStart)
	bot.Handle("/add_member", b.superadminCommand(b.handleAddMember))
	bot.Handle("/remove_member", b.superadminCommand(b.handleRemoveMember))
	bot.Handle("/ban", b.superadminCommand(b.handleBan))
	bot.Handle("/unban", b.superadminCommand(b.handleUnban))
	bot.Handle("/add_chat", b.superadminCommand(b.handleAddChat))
	bot.Handle("/remove_chat", b.superadminCommand(b.handleRemoveChat))
	bot.Handle("/list_members", b.superadminCommand(b.handleListMembers))
	bot.Handle("/list_chats", b.superadminCommand(b.handleListChats))
	bot.Handle("/set_mg", b.superadminCommand(b.handleSetMG))

	bot.Handle("/add_group", b.handleAddGroup)
	bot.Handle("/remove_group", b.handleRemoveGroup)
	bot.Handle("/list_groups", b.handleListGroups)
	bot.Handle("/addmode", b.handleAddMode)
	bot.Handle("/delegate", b.handleDelegate)
	bot.Handle("/undelegate", b.handleUndelegate)
}

// Start begins consuming updates. It blocks until Stop is called.
func (b *Bot) Start() {
	b.logger.Info("Bot started", zap.Int64("selfID", b.client.SelfID()))
	b.client.Start()
}

// Stop terminates the update loop.
func (b *Bot) Stop() {
	b.client.Stop()
	b.logger.Info("Bot stopped")
}

// handlerContext returns the bounded context used for one update.
func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

func (b *Bot) handleStart(c tele.Context) error {
	if b.db == nil {
		return c.Send(msgStorageUnavailable)
	}

	return c.Send("Membership guard is active.")
}

// superadminCommand restricts a handler to configured superadmins in
// private chat. Everyone else is silently ignored.
func (b *Bot) superadminCommand(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Chat() == nil || c.Chat().Type != tele.ChatPrivate {
			return nil
		}

		if c.Sender() == nil || !b.resolver.IsSuperadmin(c.Sender().ID) {
			return nil
		}

		if b.db == nil {
			return c.Send(msgStorageUnavailable)
		}

		return next(c)
	}
}
