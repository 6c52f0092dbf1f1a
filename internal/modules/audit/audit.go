// Package audit appends confirmed moderation actions to the ledger.
package audit

import (
	"context"
	"strings"
	"time"

	"yuno-bot/internal/storage"

	"go.uber.org/zap"
)

const DefaultReason = "No reason provided"

type Store interface {
	LogModAction(ctx context.Context, action storage.ModAction) (int64, error)
}

type Logger struct {
	store  Store
	logger *zap.Logger
	clock  func() time.Time
}

func NewLogger(store Store, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{store: store, logger: logger, clock: time.Now}
}

func (l *Logger) WithClock(clock func() time.Time) *Logger {
	l.clock = clock
	return l
}

// Reason returns reason trimmed, or DefaultReason when blank.
func Reason(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return DefaultReason
	}
	return reason
}

// Log records one action. Call it only after the platform confirmed the action.
func (l *Logger) Log(ctx context.Context, guildID, moderatorID, targetID string, action storage.ActionType, reason string) (storage.ModAction, error) {
	entry := storage.ModAction{
		GuildID:     guildID,
		ModeratorID: moderatorID,
		TargetID:    targetID,
		Action:      action,
		Reason:      Reason(reason),
		CreatedAt:   l.clock(),
	}
	id, err := l.store.LogModAction(ctx, entry)
	if err != nil {
		l.logger.Error("failed to record mod action",
			zap.String("guild_id", guildID),
			zap.String("moderator_id", moderatorID),
			zap.String("target_id", targetID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return storage.ModAction{}, err
	}
	entry.ID = id
	l.logger.Info("audit",
		zap.String("guild_id", guildID),
		zap.String("moderator_id", moderatorID),
		zap.String("target_id", targetID),
		zap.String("action", string(action)),
		zap.String("reason", entry.Reason),
	)
	return entry, nil
}
