// Package moderation implements ban, kick, unban, timeout, clean and
// mod-stats.
package moderation

import (
	"context"
	"fmt"

	"yuno-bot/internal/analytics"
	"yuno-bot/internal/command"
	"yuno-bot/internal/modules/audit"
	"yuno-bot/internal/platform"
	"yuno-bot/internal/storage"

	"go.uber.org/zap"
)

const (
	MaxTimeoutMinutes = 40320
	DefaultCleanCount = 10
	MaxCleanCount     = 100
)

type Actions interface {
	platform.Moderator
	platform.MessageManager
}

type Module struct {
	actions Actions
	gate    *command.Gate
	audit   *audit.Logger
	stats   *analytics.Service
	logger  *zap.Logger
}

func New(actions Actions, gate *command.Gate, auditLogger *audit.Logger, stats *analytics.Service, logger *zap.Logger) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{actions: actions, gate: gate, audit: auditLogger, stats: stats, logger: logger}
}

var (
	userParam   = command.Param{Name: "user", Description: "The user", Kind: command.KindUser, Required: true}
	reasonParam = command.Param{Name: "reason", Description: "Why", Kind: command.KindString, Rest: true}
)

func (m *Module) Commands() []command.Definition {
	return []command.Definition{
		{
			Name:        "ban",
			Description: "Ban a user",
			Usage:       "ban <user> [reason]",
			Category:    "Moderation",
			Params:      []command.Param{userParam, reasonParam},
			Handler:     m.handleBan,
		},
		{
			Name:        "kick",
			Description: "Kick a user",
			Usage:       "kick <user> [reason]",
			Category:    "Moderation",
			Params:      []command.Param{userParam, reasonParam},
			Handler:     m.handleKick,
		},
		{
			Name:        "unban",
			Description: "Unban a user",
			Usage:       "unban <user_id> [reason]",
			Category:    "Moderation",
			Params: []command.Param{
				{Name: "user_id", Description: "The user id to unban", Kind: command.KindUser, Required: true, AsText: true},
				reasonParam,
			},
			Handler: m.handleUnban,
		},
		{
			Name:        "timeout",
			Description: "Timeout a user",
			Usage:       "timeout <user> <minutes> [reason]",
			Category:    "Moderation",
			Params: []command.Param{
				userParam,
				{Name: "minutes", Description: "Duration in minutes", Kind: command.KindInteger, Required: true},
				reasonParam,
			},
			Handler: m.handleTimeout,
		},
		{
			Name:        "clean",
			Description: "Delete recent messages",
			Usage:       "clean [amount]",
			Category:    "Moderation",
			Params: []command.Param{
				{Name: "amount", Description: "Number of messages (1-100)", Kind: command.KindInteger},
			},
			Defer:   true,
			Handler: m.handleClean,
		},
		{
			Name:        "mod-stats",
			Description: "View moderation statistics",
			Usage:       "mod-stats [user]",
			Category:    "Moderation",
			Aliases:     []string{"modstats"},
			Params: []command.Param{
				{Name: "user", Description: "Only count this moderator", Kind: command.KindUser},
			},
			Handler: m.handleModStats,
		},
	}
}

func (m *Module) handleBan(ctx context.Context, inv *command.Invocation) platform.Response {
	target, _ := inv.Args.User("user")
	reason := argReason(inv)
	if !m.gate.Allow(ctx, inv, platform.PermissionBanMembers) {
		return m.gate.Deny(inv)
	}
	if err := m.actions.BanUser(ctx, inv.GuildID, target.ID, reason); err != nil {
		return m.failed(inv, "ban", target, err)
	}
	m.record(ctx, inv, target, storage.ActionBan, reason)
	return inv.Respond(fmt.Sprintf("🔪 **Banned!**\nThey won't bother you anymore~ 💕\n\n**User:** %s\n**Moderator:** %s\n**Reason:** %s",
		target.Mention(), inv.Mention(), reason))
}

func (m *Module) handleKick(ctx context.Context, inv *command.Invocation) platform.Response {
	target, _ := inv.Args.User("user")
	reason := argReason(inv)
	if !m.gate.Allow(ctx, inv, platform.PermissionKickMembers) {
		return m.gate.Deny(inv)
	}
	if err := m.actions.KickUser(ctx, inv.GuildID, target.ID, reason); err != nil {
		return m.failed(inv, "kick", target, err)
	}
	m.record(ctx, inv, target, storage.ActionKick, reason)
	return inv.Respond(fmt.Sprintf("👢 **Kicked!**\nGet out! 💢\n\n**User:** %s\n**Moderator:** %s\n**Reason:** %s",
		target.Mention(), inv.Mention(), reason))
}

func (m *Module) handleUnban(ctx context.Context, inv *command.Invocation) platform.Response {
	target, _ := inv.Args.User("user_id")
	reason := argReason(inv)
	if !m.gate.Allow(ctx, inv, platform.PermissionBanMembers) {
		return m.gate.Deny(inv)
	}
	if err := m.actions.UnbanUser(ctx, inv.GuildID, target.ID, reason); err != nil {
		return m.failed(inv, "unban", target, err)
	}
	m.record(ctx, inv, target, storage.ActionUnban, reason)
	return inv.Respond(fmt.Sprintf("💕 **Unbanned!**\nI'm giving them another chance~ Be good this time!\n\n**User:** %s\n**Moderator:** %s\n**Reason:** %s",
		target.Mention(), inv.Mention(), reason))
}

func (m *Module) handleTimeout(ctx context.Context, inv *command.Invocation) platform.Response {
	target, _ := inv.Args.User("user")
	minutes, _ := inv.Args.Int("minutes")
	reason := argReason(inv)
	if minutes < 1 || minutes > MaxTimeoutMinutes {
		return inv.Private(fmt.Sprintf("💔 Timeout must be between 1 and %d minutes~", MaxTimeoutMinutes))
	}
	if !m.gate.Allow(ctx, inv, platform.PermissionModerateMembers) {
		return m.gate.Deny(inv)
	}
	if err := m.actions.TimeoutUser(ctx, inv.GuildID, target.ID, int(minutes), reason); err != nil {
		return m.failed(inv, "timeout", target, err)
	}
	m.record(ctx, inv, target, storage.ActionTimeout, fmt.Sprintf("%s (%d minutes)", reason, minutes))
	return inv.Respond(fmt.Sprintf("⏰ **Timed Out!**\nThink about what you did~ 😤\n\n**User:** %s\n**Duration:** %d minutes\n**Moderator:** %s\n**Reason:** %s",
		target.Mention(), minutes, inv.Mention(), reason))
}

func (m *Module) handleClean(ctx context.Context, inv *command.Invocation) platform.Response {
	amount := int64(DefaultCleanCount)
	if value, ok := inv.Args.Int("amount"); ok {
		amount = value
	}
	if amount < 1 || amount > MaxCleanCount {
		return inv.Private(fmt.Sprintf("💔 Please specify between 1 and %d messages~", MaxCleanCount))
	}
	if !m.gate.Allow(ctx, inv, platform.PermissionManageMessages) {
		return m.gate.Deny(inv)
	}

	fetch := int(amount)
	if inv.Surface == command.SurfaceText {
		fetch++
	}
	messages, err := m.actions.FetchRecentMessages(ctx, inv.ChannelID, fetch)
	if err != nil {
		m.logger.Warn("failed to fetch messages", zap.String("guild_id", inv.GuildID), zap.String("channel_id", inv.ChannelID), zap.Error(err))
		return inv.Private("💔 Failed to delete messages: " + err.Error())
	}

	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.ID == inv.MessageID {
			continue
		}
		ids = append(ids, msg.ID)
	}
	if len(ids) > int(amount) {
		ids = ids[:amount]
	}
	if len(ids) == 0 {
		return inv.Private("💔 No messages to delete~")
	}

	if err := m.actions.DeleteMessages(ctx, inv.ChannelID, ids); err != nil {
		m.logger.Warn("failed to delete messages", zap.String("guild_id", inv.GuildID), zap.String("channel_id", inv.ChannelID), zap.Error(err))
		return inv.Private("💔 Failed to delete messages: " + err.Error())
	}
	return inv.Private(fmt.Sprintf("🧹 Deleted %d messages~ 💕", len(ids)))
}

func (m *Module) handleModStats(ctx context.Context, inv *command.Invocation) platform.Response {
	if moderator, ok := inv.Args.User("user"); ok {
		stats := m.stats.ModeratorStats(ctx, inv.GuildID, moderator.ID)
		return inv.Respond(fmt.Sprintf("📊 **Moderation Statistics** for %s\n\n%s", moderator.Mention(), formatStats(stats)))
	}
	stats := m.stats.GuildStats(ctx, inv.GuildID)
	return inv.Respond(fmt.Sprintf("📊 **Moderation Statistics**\nLook at all we've done together~ 💕\n\n%s", formatStats(stats)))
}

func formatStats(stats analytics.Stats) string {
	return fmt.Sprintf("**Total Actions:** %d\n**Bans:** %d\n**Kicks:** %d\n**Timeouts:** %d\n**Unbans:** %d",
		stats.Total, stats.Bans, stats.Kicks, stats.Timeouts, stats.Unbans)
}

func (m *Module) failed(inv *command.Invocation, action string, target command.UserRef, err error) platform.Response {
	m.logger.Warn("moderation action failed",
		zap.String("guild_id", inv.GuildID),
		zap.String("moderator_id", inv.Invoker.UserID),
		zap.String("target_id", target.ID),
		zap.String("action", action),
		zap.Error(err),
	)
	return inv.Private(fmt.Sprintf("💔 Failed to %s user: %v", action, err))
}

func (m *Module) record(ctx context.Context, inv *command.Invocation, target command.UserRef, action storage.ActionType, reason string) {
	if _, err := m.audit.Log(ctx, inv.GuildID, inv.Invoker.UserID, target.ID, action, reason); err != nil {
		m.logger.Warn("moderation action applied but not recorded",
			zap.String("guild_id", inv.GuildID),
			zap.String("moderator_id", inv.Invoker.UserID),
			zap.String("target_id", target.ID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func argReason(inv *command.Invocation) string {
	reason, _ := inv.Args.String("reason")
	return audit.Reason(reason)
}
