// Package levels awards XP for chat activity and exposes xp and leaderboard.
package levels

import (
	"context"
	"fmt"
	"strings"

	"yuno-bot/internal/command"
	"yuno-bot/internal/leveling"
	"yuno-bot/internal/platform"
	"yuno-bot/internal/settings"
	"yuno-bot/internal/storage"

	"go.uber.org/zap"
)

const LeaderboardSize = 10

type Store interface {
	GetUserXP(ctx context.Context, userID, guildID string) storage.UserXP
	Leaderboard(ctx context.Context, guildID string, limit int) []storage.UserXP
}

type Module struct {
	store     Store
	engine    *leveling.Engine
	settings  *settings.Service
	messenger platform.Messenger
	logger    *zap.Logger
}

func New(store Store, engine *leveling.Engine, settingsService *settings.Service, messenger platform.Messenger, logger *zap.Logger) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{store: store, engine: engine, settings: settingsService, messenger: messenger, logger: logger}
}

// HandleChat awards XP for one passive message and announces level-ups.
// It never stops later chat hooks.
func (m *Module) HandleChat(ctx context.Context, msg command.ChatMessage) bool {
	if msg.Automated || msg.GuildID == "" {
		return false
	}
	if !m.settings.Get(ctx, msg.GuildID).LevelingEnabled {
		return false
	}
	event, up, err := m.engine.Award(ctx, msg.AuthorID, msg.GuildID)
	if err != nil || !up {
		return false
	}
	m.logger.Info("level up", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.AuthorID), zap.Int("level", event.Level))
	content := fmt.Sprintf("✨ **Level Up!** ✨\nCongratulations <@%s>! You've reached level **%d**! 💕", msg.AuthorID, event.Level)
	if err := m.messenger.SendMessage(ctx, msg.ChannelID, content); err != nil {
		m.logger.Warn("failed to announce level up", zap.String("guild_id", msg.GuildID), zap.Error(err))
	}
	return false
}

func (m *Module) Commands() []command.Definition {
	return []command.Definition{
		{
			Name:        "xp",
			Description: "Check XP and level",
			Usage:       "xp [user]",
			Category:    "Leveling",
			Aliases:     []string{"level", "rank"},
			Params: []command.Param{
				{Name: "user", Description: "Whose XP to show", Kind: command.KindUser},
			},
			Handler: m.handleXP,
		},
		{
			Name:        "leaderboard",
			Description: "Server rankings",
			Usage:       "leaderboard",
			Category:    "Leveling",
			Aliases:     []string{"lb", "top"},
			Handler:     m.handleLeaderboard,
		},
	}
}

func (m *Module) handleXP(ctx context.Context, inv *command.Invocation) platform.Response {
	target := command.UserRef{ID: inv.Invoker.UserID}
	if user, ok := inv.Args.User("user"); ok {
		target = user
	}
	record := m.store.GetUserXP(ctx, target.ID, inv.GuildID)
	progress := leveling.ProgressPercent(record.XP, record.Level)
	return inv.Respond(fmt.Sprintf("✨ **XP Stats**\n%s's progress~ 💕\n\n**Level:** %d\n**XP:** %d\n**Progress to Next:** %d%%",
		target.Mention(), record.Level, record.XP, progress))
}

func (m *Module) handleLeaderboard(ctx context.Context, inv *command.Invocation) platform.Response {
	top := m.store.Leaderboard(ctx, inv.GuildID, LeaderboardSize)

	var b strings.Builder
	b.WriteString("🏆 **Server Leaderboard**\n*\"Look who's been the most active~\"* 💕\n\n")
	if len(top) == 0 {
		b.WriteString("No one has earned XP yet~")
		return inv.Respond(b.String())
	}
	for i, entry := range top {
		fmt.Fprintf(&b, "%s%d. <@%s> - Level %d (%d XP)\n", medal(i), i+1, entry.UserID, entry.Level, entry.XP)
	}
	return inv.Respond(b.String())
}

func medal(rank int) string {
	switch rank {
	case 0:
		return "🥇 "
	case 1:
		return "🥈 "
	case 2:
		return "🥉 "
	default:
		return ""
	}
}
