package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chatguard/chatguard/internal/database/types"
	"github.com/chatguard/chatguard/internal/database/types/enum"
	tele "gopkg.in/telebot.v3"
)

// handleAddGroup attaches a subgroup to the management group the command was
// issued in. Only the group owner or a superadmin may do this.
func (b *Bot) handleAddGroup(c tele.Context) error {
	_, ok, err := b.requireOwner(c)
	if err != nil || !ok {
		return err
	}

	payload := strings.TrimSpace(c.Message().Payload)
	if payload == "" {
		return c.Send("Usage: /add_group <chat_id>")
	}

	subgroupID, err := parseID(payload)
	if err != nil {
		return c.Send("Expected a numeric chat ID.")
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := b.db.Model().Management().AddSubgroup(ctx, c.Chat().ID, subgroupID); err != nil {
		return b.replyError(c, err)
	}

	return c.Send(fmt.Sprintf("Chat %d is now managed by this group.", subgroupID))
}

// handleRemoveGroup detaches a subgroup from the management group.
func (b *Bot) handleRemoveGroup(c tele.Context) error {
	_, ok, err := b.requireOwner(c)
	if err != nil || !ok {
		return err
	}

	payload := strings.TrimSpace(c.Message().Payload)
	if payload == "" {
		return c.Send("Usage: /remove_group <chat_id>")
	}

	subgroupID, err := parseID(payload)
	if err != nil {
		return c.Send("Expected a numeric chat ID.")
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := b.db.Model().Management().RemoveSubgroup(ctx, subgroupID); err != nil {
		return b.replyError(c, err)
	}

	return c.Send(fmt.Sprintf("Chat %d is no longer managed by this group.", subgroupID))
}

// handleListGroups lists the subgroups of the management group. Owners,
// superadmins, and delegates holding the view flag may use it.
func (b *Bot) handleListGroups(c tele.Context) error {
	if b.db == nil || c.Chat() == nil || c.Sender() == nil || c.Chat().Type == tele.ChatPrivate {
		return nil
	}

	ctx, cancel := handlerContext()
	defer cancel()

	grant, err := b.resolver.ResolvePermission(ctx, c.Sender().ID, c.Chat().ID, enum.PermissionViewSubgroups)
	if err != nil {
		return b.replyError(c, err)
	}

	if !grant.Allowed {
		return nil
	}

	subgroups, err := b.db.Model().Management().ListSubgroups(ctx, c.Chat().ID)
	if err != nil {
		return b.replyError(c, err)
	}

	if len(subgroups) == 0 {
		return c.Send("No chats are managed by this group.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Managed chats (%d):\n", len(subgroups)))

	for _, roomID := range subgroups {
		sb.WriteString(strconv.FormatInt(roomID, 10))
		sb.WriteByte('\n')
	}

	return c.Send(sb.String())
}

// handleAddMode shows or changes the group's member admission mode.
func (b *Bot) handleAddMode(c tele.Context) error {
	_, ok, err := b.requireOwner(c)
	if err != nil || !ok {
		return err
	}

	ctx, cancel := handlerContext()
	defer cancel()

	payload := strings.TrimSpace(c.Message().Payload)
	if payload == "" {
		mode, err := b.db.Model().Management().GetAddMemberMode(ctx, c.Chat().ID)
		if err != nil {
			return b.replyError(c, err)
		}

		return c.Send(fmt.Sprintf("Member admission mode is %q. Usage: /addmode ask|all", mode))
	}

	mode := enum.AddMemberMode(payload)
	if !mode.Valid() {
		return c.Send("Mode must be \"ask\" or \"all\".")
	}

	if err := b.db.Model().Management().SetAddMemberMode(ctx, c.Chat().ID, mode); err != nil {
		return b.replyError(c, err)
	}

	return c.Send(fmt.Sprintf("Member admission mode set to %q.", mode))
}

// handleDelegate grants a user permission flags on the management group.
// Flags default to none; repeating the command replaces the previous grant.
func (b *Bot) handleDelegate(c tele.Context) error {
	_, ok, err := b.requireOwner(c)
	if err != nil || !ok {
		return err
	}

	fields := strings.Fields(c.Message().Payload)
	if len(fields) == 0 {
		return c.Send("Usage: /delegate <user_id> [add] [remove] [view]")
	}

	userID, err := parseID(fields[0])
	if err != nil {
		return c.Send("Expected a numeric user ID.")
	}

	delegate := &types.DelegatedAdmin{
		MGID:   c.Chat().ID,
		UserID: userID,
	}

	for _, flag := range fields[1:] {
		switch strings.ToLower(flag) {
		case "add":
			delegate.CanAddMember = true
		case "remove":
			delegate.CanRemoveMember = true
		case "view":
			delegate.CanViewSubgroups = true
		default:
			return c.Send(fmt.Sprintf("Unknown flag %q, expected add, remove, or view.", flag))
		}
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := b.db.Model().Management().UpsertDelegate(ctx, delegate); err != nil {
		return b.replyError(c, err)
	}

	return c.Send(fmt.Sprintf("User %d delegated with flags add=%t remove=%t view=%t.",
		userID, delegate.CanAddMember, delegate.CanRemoveMember, delegate.CanViewSubgroups))
}

// handleUndelegate revokes a user's delegation on the management group.
func (b *Bot) handleUndelegate(c tele.Context) error {
	_, ok, err := b.requireOwner(c)
	if err != nil || !ok {
		return err
	}

	payload := strings.TrimSpace(c.Message().Payload)
	if payload == "" {
		return c.Send("Usage: /undelegate <user_id>")
	}

	userID, err := parseID(payload)
	if err != nil {
		return c.Send("Expected a numeric user ID.")
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := b.db.Model().Management().RemoveDelegate(ctx, c.Chat().ID, userID); err != nil {
		return b.replyError(c, err)
	}

	return c.Send(fmt.Sprintf("User %d is no longer delegated.", userID))
}

// requireOwner checks that the command was issued inside a registered
// management group by its owner or a superadmin. Unauthorized senders and
// unregistered chats are silently ignored.
func (b *Bot) requireOwner(c tele.Context) (int64, bool, error) {
	if b.db == nil || c.Chat() == nil || c.Sender() == nil || c.Chat().Type == tele.ChatPrivate {
		return 0, false, nil
	}

	ctx, cancel := handlerContext()
	defer cancel()

	ownerID, isMG, err := b.resolver.OwnerOf(ctx, c.Chat().ID)
	if err != nil {
		return 0, false, b.replyError(c, err)
	}

	if !isMG {
		return 0, false, nil
	}

	if c.Sender().ID != ownerID && !b.resolver.IsSuperadmin(c.Sender().ID) {
		return 0, false, nil
	}

	return ownerID, true, nil
}
