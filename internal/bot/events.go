package bot

import (
	"context"
	"fmt"

	"github.com/chatguard/chatguard/internal/enforce"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleUserJoined processes new_chat_members service messages.
func (b *Bot) handleUserJoined(c tele.Context) error {
	if b.db == nil || c.Chat() == nil || c.Message() == nil {
		return nil
	}

	ctx, cancel := handlerContext()
	defer cancel()

	users := c.Message().UsersJoined
	if len(users) == 0 && c.Message().UserJoined != nil {
		users = []tele.User{*c.Message().UserJoined}
	}

	for i := range users {
		b.processJoin(ctx, c.Chat(), &users[i], "join")
	}

	return nil
}

// handleChatMember processes member status transitions. Only transitions
// into the room count as joins.
func (b *Bot) handleChatMember(c tele.Context) error {
	if b.db == nil || c.ChatMember() == nil || c.ChatMember().Chat == nil {
		return nil
	}

	update := c.ChatMember()

	if !isJoinTransition(update.OldChatMember, update.NewChatMember) {
		return nil
	}

	ctx, cancel := handlerContext()
	defer cancel()

	b.processJoin(ctx, update.Chat, update.NewChatMember.User, "member_update")

	return nil
}

// isJoinTransition reports whether a chat_member update represents a user
// entering the room.
func isJoinTransition(old, current *tele.ChatMember) bool {
	if current == nil || current.User == nil {
		return false
	}

	wasIn := old != nil && memberPresent(old.Role)

	return !wasIn && memberPresent(current.Role)
}

func memberPresent(role tele.MemberStatus) bool {
	switch role {
	case tele.Creator, tele.Administrator, tele.Member, tele.Restricted:
		return true
	default:
		return false
	}
}

// processJoin runs raid accounting and enforcement for one join event.
func (b *Bot) processJoin(ctx context.Context, chat *tele.Chat, user *tele.User, reason string) {
	protected, err := b.resolver.IsProtected(ctx, chat.ID)
	if err != nil {
		b.logger.Warn("Failed to check room protection",
			zap.Int64("roomID", chat.ID),
			zap.Error(err))

		return
	}

	if !protected {
		return
	}

	count := b.detector.RegisterJoin(chat.ID)
	if b.detector.ShouldAlert(chat.ID, count) {
		b.detector.MarkAlerted(chat.ID)
		b.router.Notify(ctx, b.resolver.Superadmins(),
			fmt.Sprintf("Possible raid in %q [%d]: %d joins within the detection window.",
				chat.Title, chat.ID, count))
	}

	room := enforce.Room{ID: chat.ID, Title: chat.Title}
	joined := enforce.User{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	outcome, err := b.engine.Evaluate(ctx, room, joined, reason)
	if err != nil {
		b.logger.Warn("Join evaluation failed",
			zap.Int64("roomID", chat.ID),
			zap.Int64("userID", user.ID),
			zap.Error(err))

		return
	}

	b.logger.Debug("Join evaluated",
		zap.Int64("roomID", chat.ID),
		zap.Int64("userID", user.ID),
		zap.Stringer("outcome", outcome))
}

// handleText marks presence for messages in protected rooms and resolves
// pending command prompts in private chat.
func (b *Bot) handleText(c tele.Context) error {
	if b.db == nil || c.Chat() == nil || c.Sender() == nil {
		return nil
	}

	if c.Chat().Type == tele.ChatPrivate {
		return b.resolvePendingInput(c)
	}

	ctx, cancel := handlerContext()
	defer cancel()

	protected, err := b.resolver.IsProtected(ctx, c.Chat().ID)
	if err != nil || !protected {
		return nil
	}

	if err := b.db.Model().Presence().MarkSeen(ctx, c.Chat().ID, c.Sender().ID); err != nil {
		b.logger.Warn("Failed to mark user as seen",
			zap.Int64("roomID", c.Chat().ID),
			zap.Int64("userID", c.Sender().ID),
			zap.Error(err))
	}

	return nil
}
