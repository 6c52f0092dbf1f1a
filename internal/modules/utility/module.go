// Package utility implements ping, help, prefix, settings, auto-clean and
// delay.
package utility

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yuno-bot/internal/autoclean"
	"yuno-bot/internal/command"
	"yuno-bot/internal/platform"
	"yuno-bot/internal/settings"
	"yuno-bot/internal/storage"

	"go.uber.org/zap"
)

const defaultCleanCount = 100

// Catalog lists the registered commands for help.
type Catalog interface {
	Definitions() []command.Definition
}

type Latency interface {
	Latency() time.Duration
}

type Module struct {
	catalog   Catalog
	latency   Latency
	settings  *settings.Service
	scheduler *autoclean.Scheduler
	gate      *command.Gate
	logger    *zap.Logger
}

func New(catalog Catalog, latency Latency, settingsService *settings.Service, scheduler *autoclean.Scheduler, gate *command.Gate, logger *zap.Logger) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{
		catalog:   catalog,
		latency:   latency,
		settings:  settingsService,
		scheduler: scheduler,
		gate:      gate,
		logger:    logger,
	}
}

func (m *Module) Commands() []command.Definition {
	return []command.Definition{
		{
			Name:        "ping",
			Description: "Check latency",
			Usage:       "ping",
			Category:    "Utility",
			Handler:     m.handlePing,
		},
		{
			Name:        "help",
			Description: "List commands",
			Usage:       "help",
			Category:    "Utility",
			Handler:     m.handleHelp,
		},
		{
			Name:        "prefix",
			Description: "Show or set the server prefix",
			Usage:       "prefix [new prefix]",
			Category:    "Utility",
			Params: []command.Param{
				{Name: "prefix", Description: "New prefix (max 5 characters)", Kind: command.KindString},
			},
			Handler: m.handlePrefix,
		},
		{
			Name:        "settings",
			Description: "View or toggle leveling and the spam filter",
			Usage:       "settings [leveling|spam-filter] [on|off]",
			Category:    "Utility",
			Params: []command.Param{
				{Name: "option", Description: "leveling or spam-filter", Kind: command.KindString},
				{Name: "enabled", Description: "Turn the option on or off", Kind: command.KindBoolean},
			},
			Handler: m.handleSettings,
		},
		{
			Name:        "auto-clean",
			Description: "Configure auto-clean for this channel",
			Usage:       "auto-clean [interval minutes, 0 disables] [message count]",
			Category:    "Utility",
			Aliases:     []string{"autoclean"},
			Params: []command.Param{
				{Name: "interval", Description: "Minutes between cleans, 0 disables", Kind: command.KindInteger},
				{Name: "count", Description: "Messages to delete per run", Kind: command.KindInteger},
			},
			Handler: m.handleAutoClean,
		},
		{
			Name:        "delay",
			Description: "Delay the next auto-clean",
			Usage:       "delay [minutes]",
			Category:    "Utility",
			Params: []command.Param{
				{Name: "minutes", Description: "Minutes to wait (default 5)", Kind: command.KindInteger},
			},
			Handler: m.handleDelay,
		},
		{
			Name:        "source",
			Description: "See the source code",
			Usage:       "source",
			Category:    "Utility",
			Handler:     m.handleSource,
		},
	}
}

const sourceReply = "📜 **Source Code**\n" +
	"*\"I have nothing to hide from you~\"* 💕\n\n" +
	"**Java Version**: https://github.com/blubskye/yuno_java\n" +
	"**C Version**: https://github.com/blubskye/yuno_c\n" +
	"**C++ Version**: https://github.com/blubskye/yuno_cpp\n" +
	"**Rust Version**: https://github.com/blubskye/yuno_rust\n" +
	"**Original JS**: https://github.com/japaneseenrichmentorganization/Yuno-Gasai-2\n\n" +
	"Licensed under **AGPL-3.0** 💗"

func (m *Module) handleSource(ctx context.Context, inv *command.Invocation) platform.Response {
	return inv.Respond(sourceReply)
}

func (m *Module) handlePing(ctx context.Context, inv *command.Invocation) platform.Response {
	return inv.Respond(fmt.Sprintf("💓 **Pong!**\nI'm always here for you~ 💕\n\n**Latency:** %dms", m.latency.Latency().Milliseconds()))
}

func (m *Module) handleHelp(ctx context.Context, inv *command.Invocation) platform.Response {
	prefix := inv.UsagePrefix()
	var b strings.Builder
	b.WriteString("💕 **Yuno's Commands** 💕\n")
	category := ""
	for _, def := range m.catalog.Definitions() {
		if def.Category != category {
			category = def.Category
			fmt.Fprintf(&b, "\n**%s**\n", category)
		}
		fmt.Fprintf(&b, "`%s%s` - %s", prefix, def.Name, def.Description)
		if len(def.Aliases) > 0 && inv.Surface == command.SurfaceText {
			fmt.Fprintf(&b, " (aliases: %s)", strings.Join(def.Aliases, ", "))
		}
		b.WriteString("\n")
	}
	return inv.Respond(b.String())
}

func (m *Module) handlePrefix(ctx context.Context, inv *command.Invocation) platform.Response {
	requested, ok := inv.Args.String("prefix")
	if !ok || strings.TrimSpace(requested) == "" {
		return inv.Respond(fmt.Sprintf("💕 Current prefix: `%s`", m.settings.Prefix(ctx, inv.GuildID)))
	}
	if !m.gate.Allow(ctx, inv, platform.PermissionManageServer) {
		return m.gate.Deny(inv)
	}
	updated, err := m.settings.SetPrefix(ctx, inv.GuildID, requested)
	switch {
	case errors.Is(err, settings.ErrPrefixTooLong):
		return inv.Private("💔 Prefix too long! Max 5 characters~")
	case err != nil:
		return inv.Private("💔 Failed to save the prefix: " + err.Error())
	}
	return inv.Respond(fmt.Sprintf("🔧 **Prefix Updated!**\nNew prefix is now: `%s` 💕", updated.Prefix))
}

func (m *Module) handleSettings(ctx context.Context, inv *command.Invocation) platform.Response {
	option, hasOption := inv.Args.String("option")
	enabled, hasValue := inv.Args.Bool("enabled")
	if !hasOption || !hasValue {
		current := m.settings.Get(ctx, inv.GuildID)
		return inv.Respond(fmt.Sprintf("⚙️ **Server Settings**\n\n**Prefix:** `%s`\n**Leveling:** %s\n**Spam filter:** %s",
			current.Prefix, onOff(current.LevelingEnabled), onOff(current.SpamFilterEnabled)))
	}
	if !m.gate.Allow(ctx, inv, platform.PermissionManageServer) {
		return m.gate.Deny(inv)
	}

	var (
		updated storage.GuildSettings
		err     error
		label   string
	)
	switch strings.ToLower(option) {
	case "leveling", "levels", "xp":
		label = "Leveling"
		updated, err = m.settings.SetLeveling(ctx, inv.GuildID, enabled)
	case "spam-filter", "spam", "spamfilter":
		label = "Spam filter"
		updated, err = m.settings.SetSpamFilter(ctx, inv.GuildID, enabled)
	default:
		return inv.Private(command.Usage(inv.UsagePrefix(), command.Definition{Name: "settings", Usage: "settings [leveling|spam-filter] [on|off]"}))
	}
	if err != nil {
		return inv.Private("💔 Failed to save settings: " + err.Error())
	}
	value := updated.LevelingEnabled
	if label == "Spam filter" {
		value = updated.SpamFilterEnabled
	}
	return inv.Respond(fmt.Sprintf("🔧 %s is now **%s** 💕", label, onOff(value)))
}

func (m *Module) handleAutoClean(ctx context.Context, inv *command.Invocation) platform.Response {
	if !m.gate.Allow(ctx, inv, platform.PermissionManageMessages) {
		return m.gate.Deny(inv)
	}
	interval, hasInterval := inv.Args.Int("interval")
	if !hasInterval {
		cfg, found := m.scheduler.Config(ctx, inv.GuildID, inv.ChannelID)
		if !found {
			return inv.Respond("🧹 Auto-clean is off for this channel~")
		}
		return inv.Respond(fmt.Sprintf("🧹 **Auto-clean**\nEvery **%d** minutes, deleting up to **%d** messages~ 💕", cfg.IntervalMinutes, cfg.MessageCount))
	}
	if interval == 0 {
		if err := m.scheduler.Disable(ctx, inv.GuildID, inv.ChannelID); err != nil {
			m.logger.Warn("failed to disable auto-clean", zap.String("guild_id", inv.GuildID), zap.String("channel_id", inv.ChannelID), zap.Error(err))
			return inv.Private("💔 Failed to disable auto-clean: " + err.Error())
		}
		return inv.Respond("🧹 Auto-clean disabled for this channel~")
	}

	count := int64(defaultCleanCount)
	if value, ok := inv.Args.Int("count"); ok {
		count = value
	}
	cfg, err := m.scheduler.Configure(ctx, inv.GuildID, inv.ChannelID, int(interval), int(count))
	switch {
	case errors.Is(err, autoclean.ErrInvalidInterval), errors.Is(err, autoclean.ErrInvalidCount):
		return inv.Private("💔 " + err.Error() + "~")
	case err != nil:
		m.logger.Warn("failed to configure auto-clean", zap.String("guild_id", inv.GuildID), zap.String("channel_id", inv.ChannelID), zap.Error(err))
		return inv.Private("💔 Failed to configure auto-clean: " + err.Error())
	}
	return inv.Respond(fmt.Sprintf("🧹 **Auto-clean enabled!**\nEvery **%d** minutes, deleting up to **%d** messages~ 💕", cfg.IntervalMinutes, cfg.MessageCount))
}

func (m *Module) handleDelay(ctx context.Context, inv *command.Invocation) platform.Response {
	if !m.gate.Allow(ctx, inv, platform.PermissionManageMessages) {
		return m.gate.Deny(inv)
	}
	minutes := int64(autoclean.DefaultDelay)
	if value, ok := inv.Args.Int("minutes"); ok && value > 0 {
		minutes = value
	}
	if _, err := m.scheduler.Delay(ctx, inv.GuildID, inv.ChannelID, int(minutes)); err != nil {
		if errors.Is(err, autoclean.ErrNotConfigured) {
			return inv.Private("💔 Auto-clean isn't set up in this channel~")
		}
		return inv.Private("💔 Failed to delay auto-clean: " + err.Error())
	}
	return inv.Respond(fmt.Sprintf("⏳ **Delay Requested**\nI'll wait %d more minutes before cleaning~ 💕", minutes))
}

func onOff(value bool) string {
	if value {
		return "on"
	}
	return "off"
}
