// Package antispam removes invite links and message bursts, warns the
// author and bans repeat offenders.
package antispam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"yuno-bot/internal/command"
	"yuno-bot/internal/config"
	"yuno-bot/internal/modules/audit"
	"yuno-bot/internal/platform"
	"yuno-bot/internal/settings"
	"yuno-bot/internal/storage"
	"yuno-bot/internal/utils"

	"go.uber.org/zap"
)

const pruneEvery = 10 * time.Minute

type Store interface {
	AddSpamWarning(ctx context.Context, userID, guildID string, at time.Time) (int, error)
	ResetSpamWarnings(ctx context.Context, userID, guildID string) error
}

type Actions interface {
	platform.Messenger
	platform.Moderator
	platform.MessageManager
	platform.Permissions
	SelfID() string
}

type Module struct {
	store       Store
	actions     Actions
	settings    *settings.Service
	gate        *command.Gate
	audit       *audit.Logger
	logger      *zap.Logger
	windows     *utils.WindowSet
	burst       int
	maxWarnings int
	clock       func() time.Time

	mu        sync.Mutex
	lastPrune time.Time
}

func New(cfg config.SpamConfig, store Store, actions Actions, settingsService *settings.Service, gate *command.Gate, auditLogger *audit.Logger, logger *zap.Logger) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{
		store:       store,
		actions:     actions,
		settings:    settingsService,
		gate:        gate,
		audit:       auditLogger,
		logger:      logger,
		windows:     utils.NewWindowSet(time.Duration(cfg.BurstWindowSeconds) * time.Second),
		burst:       cfg.BurstMessages,
		maxWarnings: cfg.MaxWarnings,
		clock:       time.Now,
	}
}

func (m *Module) WithClock(clock func() time.Time) *Module {
	m.clock = clock
	return m
}

// HandleChat inspects one passive message. It returns true when the message
// was flagged so no XP is awarded for it.
func (m *Module) HandleChat(ctx context.Context, msg command.ChatMessage) bool {
	if msg.Automated || msg.GuildID == "" {
		return false
	}
	if !m.settings.Get(ctx, msg.GuildID).SpamFilterEnabled {
		return false
	}
	if m.exempt(ctx, msg) {
		return false
	}

	now := m.clock()
	m.prune(now)
	reason := m.detect(msg, now)
	if reason == "" {
		return false
	}
	m.flag(ctx, msg, reason, now)
	return true
}

func (m *Module) exempt(ctx context.Context, msg command.ChatMessage) bool {
	if m.gate.IsMaster(msg.AuthorID) {
		return true
	}
	member := msg.Member
	if member.UserID == "" {
		member.UserID = msg.AuthorID
	}
	member.GuildID = msg.GuildID
	member.ChannelID = msg.ChannelID
	return m.actions.HasPermission(ctx, member, platform.PermissionManageMessages)
}

func (m *Module) detect(msg command.ChatMessage, now time.Time) string {
	if utils.ContainsInvite(msg.Content) {
		return "invite link"
	}
	if m.burst > 0 && m.windows.Add(msg.GuildID+":"+msg.AuthorID, now) >= m.burst {
		return "message burst"
	}
	return ""
}

func (m *Module) flag(ctx context.Context, msg command.ChatMessage, reason string, now time.Time) {
	fields := []zap.Field{
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.AuthorID),
		zap.String("reason", reason),
	}
	if err := m.actions.DeleteMessages(ctx, msg.ChannelID, []string{msg.ID}); err != nil {
		m.logger.Warn("failed to delete spam message", append(fields, zap.Error(err))...)
	}

	count, err := m.store.AddSpamWarning(ctx, msg.AuthorID, msg.GuildID, now)
	if err != nil {
		m.logger.Error("failed to record spam warning", append(fields, zap.Error(err))...)
		return
	}
	m.logger.Info("spam detected", append(fields, zap.Int("warnings", count))...)

	if m.maxWarnings <= 0 || count < m.maxWarnings {
		m.notify(ctx, msg.ChannelID, fmt.Sprintf("⚠️ <@%s> please don't spam~ (%s, warning %d/%d)", msg.AuthorID, reason, count, m.maxWarnings))
		return
	}

	banReason := fmt.Sprintf("Spam filter: %d warnings", count)
	if err := m.actions.BanUser(ctx, msg.GuildID, msg.AuthorID, banReason); err != nil {
		m.logger.Warn("failed to ban spammer", append(fields, zap.Error(err))...)
		return
	}
	_, _ = m.audit.Log(ctx, msg.GuildID, m.actions.SelfID(), msg.AuthorID, storage.ActionBan, banReason)
	if err := m.store.ResetSpamWarnings(ctx, msg.AuthorID, msg.GuildID); err != nil {
		m.logger.Warn("failed to reset spam warnings", append(fields, zap.Error(err))...)
	}
	m.windows.Reset(msg.GuildID + ":" + msg.AuthorID)
	m.notify(ctx, msg.ChannelID, fmt.Sprintf("🔪 <@%s> was banned for spamming~", msg.AuthorID))
}

func (m *Module) notify(ctx context.Context, channelID, content string) {
	if err := m.actions.SendMessage(ctx, channelID, content); err != nil {
		m.logger.Warn("failed to send spam notice", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (m *Module) prune(now time.Time) {
	m.mu.Lock()
	if now.Sub(m.lastPrune) < pruneEvery {
		m.mu.Unlock()
		return
	}
	m.lastPrune = now
	m.mu.Unlock()
	m.windows.Prune(now)
}
