package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chatguard/chatguard/internal/database/types"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const msgStorageUnavailable = "Storage is unavailable, management commands are disabled."

// prompts shown when a command arrives without its argument.
var prompts = map[string]string{
	"/add_member":    "Send the user ID to add to the allow list.",
	"/remove_member": "Send the user ID to remove and ban.",
	"/ban":           "Send the user ID to ban globally.",
	"/unban":         "Send the user ID to unban.",
	"/add_chat":      "Send the chat ID to protect.",
	"/remove_chat":   "Send the chat ID to unprotect.",
	"/set_mg":        "Send the management group chat ID and the owner user ID.",
}

func (b *Bot) handleAddMember(c tele.Context) error {
	return b.withIDArg(c, "/add_member", func(c tele.Context, userID int64) error {
		ctx, cancel := handlerContext()
		defer cancel()

		member := &types.AllowedMember{UserID: userID}
		if err := b.db.Model().Member().Upsert(ctx, member); err != nil {
			return b.replyError(c, err)
		}

		return c.Send(fmt.Sprintf("User %d added to the allow list.", userID))
	})
}

func (b *Bot) handleRemoveMember(c tele.Context) error {
	return b.withIDArg(c, "/remove_member", func(c tele.Context, userID int64) error {
		ctx, cancel := handlerContext()
		defer cancel()

		if err := b.db.Service().Access().Evict(ctx, userID); err != nil {
			return b.replyError(c, err)
		}

		rooms := b.banEverywhere(ctx, userID)

		return c.Send(fmt.Sprintf("User %d removed from the allow list and banned in %d rooms.", userID, rooms))
	})
}

func (b *Bot) handleBan(c tele.Context) error {
	return b.withIDArg(c, "/ban", func(c tele.Context, userID int64) error {
		ctx, cancel := handlerContext()
		defer cancel()

		if err := b.db.Model().Ban().Add(ctx, userID); err != nil {
			return b.replyError(c, err)
		}

		rooms := b.banEverywhere(ctx, userID)

		return c.Send(fmt.Sprintf("User %d banned globally and removed from %d rooms.", userID, rooms))
	})
}

func (b *Bot) handleUnban(c tele.Context) error {
	return b.withIDArg(c, "/unban", func(c tele.Context, userID int64) error {
		ctx, cancel := handlerContext()
		defer cancel()

		// Lifting a ban also restores the allow list entry so the next
		// join is admitted instead of re-banned.
		if err := b.db.Service().Access().Unban(ctx, userID); err != nil {
			return b.replyError(c, err)
		}

		// The database cleanup alone would leave the room-level bans in
		// place and the user locked out of every room.
		rooms := 0
		if b.fanout != nil {
			rooms = b.fanout.UnbanAll(ctx, userID)
		}

		return c.Send(fmt.Sprintf("User %d unbanned in %d rooms and restored to the allow list.", userID, rooms))
	})
}

// banEverywhere applies the room-level ban across all protected rooms so the
// removal takes effect immediately instead of waiting for the next sweep,
// which only examines users it has seen.
func (b *Bot) banEverywhere(ctx context.Context, userID int64) int {
	if b.fanout == nil {
		return 0
	}

	return b.fanout.BanAll(ctx, userID)
}

func (b *Bot) handleAddChat(c tele.Context) error {
	return b.withIDArg(c, "/add_chat", func(c tele.Context, roomID int64) error {
		ctx, cancel := handlerContext()
		defer cancel()

		if err := b.db.Model().Room().Protect(ctx, roomID); err != nil {
			return b.replyError(c, err)
		}

		return c.Send(fmt.Sprintf("Chat %d is now protected.", roomID))
	})
}

func (b *Bot) handleRemoveChat(c tele.Context) error {
	return b.withIDArg(c, "/remove_chat", func(c tele.Context, roomID int64) error {
		ctx, cancel := handlerContext()
		defer cancel()

		if err := b.db.Model().Room().Unprotect(ctx, roomID); err != nil {
			return b.replyError(c, err)
		}

		return c.Send(fmt.Sprintf("Chat %d is no longer protected.", roomID))
	})
}

func (b *Bot) handleListMembers(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	members, err := b.db.Model().Member().List(ctx)
	if err != nil {
		return b.replyError(c, err)
	}

	if len(members) == 0 {
		return c.Send("The allow list is empty.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Allow list (%d):\n", len(members)))

	for _, member := range members {
		sb.WriteString(fmt.Sprintf("%d %s\n", member.UserID, member.DisplayName()))
	}

	return c.Send(sb.String())
}

func (b *Bot) handleListChats(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	rooms, err := b.db.Model().Room().List(ctx)
	if err != nil {
		return b.replyError(c, err)
	}

	if len(rooms) == 0 {
		return c.Send("No chats are protected.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Protected chats (%d):\n", len(rooms)))

	for _, roomID := range rooms {
		sb.WriteString(strconv.FormatInt(roomID, 10))
		sb.WriteByte('\n')
	}

	return c.Send(sb.String())
}

func (b *Bot) handleSetMG(c tele.Context) error {
	payload := strings.TrimSpace(c.Message().Payload)
	if payload == "" {
		b.pending.Set(c.Sender().ID, pendingAction{command: "/set_mg"})
		return c.Send(prompts["/set_mg"])
	}

	mgID, ownerID, err := parseTwoIDs(payload)
	if err != nil {
		return c.Send("Expected two IDs: <chat_id> <owner_user_id>.")
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := b.db.Model().Management().SetGroup(ctx, mgID, ownerID); err != nil {
		return b.replyError(c, err)
	}

	return c.Send(fmt.Sprintf("Chat %d registered as a management group owned by %d.", mgID, ownerID))
}

// withIDArg parses the command's single ID argument, prompting for it in a
// follow-up message when missing.
func (b *Bot) withIDArg(c tele.Context, command string, next func(tele.Context, int64) error) error {
	payload := strings.TrimSpace(c.Message().Payload)
	if payload == "" {
		b.pending.Set(c.Sender().ID, pendingAction{command: command})
		return c.Send(prompts[command])
	}

	id, err := parseID(payload)
	if err != nil {
		return c.Send("Expected a numeric ID.")
	}

	return next(c, id)
}

// resolvePendingInput treats a plain private message as the argument of the
// sender's pending command, if one exists and has not expired.
func (b *Bot) resolvePendingInput(c tele.Context) error {
	action, ok := b.pending.Get(c.Sender().ID)
	if !ok {
		return nil
	}

	b.pending.Delete(c.Sender().ID)

	if !b.resolver.IsSuperadmin(c.Sender().ID) {
		return nil
	}

	// Re-dispatch with the message text as the payload.
	c.Message().Payload = strings.TrimSpace(c.Text())

	switch action.command {
	case "/add_member":
		return b.handleAddMember(c)
	case "/remove_member":
		return b.handleRemoveMember(c)
	case "/ban":
		return b.handleBan(c)
	case "/unban":
		return b.handleUnban(c)
	case "/add_chat":
		return b.handleAddChat(c)
	case "/remove_chat":
		return b.handleRemoveChat(c)
	case "/set_mg":
		return b.handleSetMG(c)
	default:
		return nil
	}
}

func (b *Bot) replyError(c tele.Context, err error) error {
	b.logger.Warn("Command failed", zap.Error(err))
	return c.Send("The operation failed, check the logs.")
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func parseTwoIDs(s string) (int64, int64, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected 2 fields, got %d", len(fields))
	}

	first, err := parseID(fields[0])
	if err != nil {
		return 0, 0, err
	}

	second, err := parseID(fields[1])
	if err != nil {
		return 0, 0, err
	}

	return first, second, nil
}
