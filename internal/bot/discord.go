package bot

import (
	"context"
	"time"

	"yuno-bot/internal/platform"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	messagesPerPage = 100
	bulkDeleteLimit = 100
)

// Discord implements platform.Actions over a discordgo session.
type Discord struct {
	session *discordgo.Session
	logger  *zap.Logger
}

func NewDiscord(session *discordgo.Session, logger *zap.Logger) *Discord {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discord{session: session, logger: logger}
}

func (d *Discord) Reply(ctx context.Context, target platform.ReplyTarget, resp platform.Response) error {
	if !target.IsInteraction() {
		return d.SendMessage(ctx, target.ChannelID, resp.Content)
	}
	interaction := interactionFor(target)
	if target.Deferred {
		content := resp.Content
		_, err := d.session.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{Content: &content}, discordgo.WithContext(ctx))
		return err
	}
	return d.session.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: resp.Content,
			Flags:   responseFlags(resp.Ephemeral),
		},
	}, discordgo.WithContext(ctx))
}

func (d *Discord) Defer(ctx context.Context, target platform.ReplyTarget, ephemeral bool) error {
	return d.session.InteractionRespond(interactionFor(target), &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: responseFlags(ephemeral)},
	}, discordgo.WithContext(ctx))
}

func interactionFor(target platform.ReplyTarget) *discordgo.Interaction {
	return &discordgo.Interaction{
		AppID: target.ApplicationID,
		ID:    target.InteractionID,
		Token: target.InteractionToken,
	}
}

func responseFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func (d *Discord) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) BanUser(ctx context.Context, guildID, userID, reason string) error {
	return d.session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
}

func (d *Discord) KickUser(ctx context.Context, guildID, userID, reason string) error {
	return d.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (d *Discord) UnbanUser(ctx context.Context, guildID, userID, reason string) error {
	return d.session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (d *Discord) TimeoutUser(ctx context.Context, guildID, userID string, minutes int, reason string) error {
	until := time.Now().Add(time.Duration(minutes) * time.Minute)
	return d.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

// FetchRecentMessages pages backwards through the channel history.
func (d *Discord) FetchRecentMessages(ctx context.Context, channelID string, count int) ([]platform.Message, error) {
	out := make([]platform.Message, 0, count)
	before := ""
	for len(out) < count {
		limit := count - len(out)
		if limit > messagesPerPage {
			limit = messagesPerPage
		}
		batch, err := d.session.ChannelMessages(channelID, limit, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		for _, msg := range batch {
			authorID := ""
			if msg.Author != nil {
				authorID = msg.Author.ID
			}
			out = append(out, platform.Message{ID: msg.ID, AuthorID: authorID, CreatedAt: msg.Timestamp})
		}
		if len(batch) < limit {
			break
		}
		before = batch[len(batch)-1].ID
	}
	return out, nil
}

func (d *Discord) DeleteMessages(ctx context.Context, channelID string, ids []string) error {
	for start := 0; start < len(ids); start += bulkDeleteLimit {
		end := start + bulkDeleteLimit
		if end > len(ids) {
			end = len(ids)
		}
		if err := d.session.ChannelMessagesBulkDelete(channelID, ids[start:end], discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}
	return nil
}

// HasPermission uses the permissions attached to interactions and falls back
// to the state cache, then the REST API, for chat messages.
func (d *Discord) HasPermission(ctx context.Context, member platform.Member, permission int64) bool {
	perms := member.Permissions
	if !member.Resolved {
		var err error
		perms, err = d.session.State.UserChannelPermissions(member.UserID, member.ChannelID)
		if err != nil {
			perms, err = d.session.UserChannelPermissions(member.UserID, member.ChannelID, discordgo.WithContext(ctx))
			if err != nil {
				d.logger.Warn("failed to resolve permissions",
					zap.String("guild_id", member.GuildID),
					zap.String("user_id", member.UserID),
					zap.Error(err),
				)
				return false
			}
		}
	}
	return hasPermission(perms, permission)
}

func hasPermission(perms, permission int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&permission == permission
}

func (d *Discord) Latency() time.Duration {
	return d.session.HeartbeatLatency()
}

func (d *Discord) SelfID() string {
	if d.session.State == nil || d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.ID
}
