package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
)

type SpamWarning struct {
	UserID        string
	GuildID       string
	Warnings      int
	LastWarningAt time.Time
}

func (s *Store) GetSpamWarning(ctx context.Context, userID, guildID string) (SpamWarning, bool) {
	warning := SpamWarning{UserID: userID, GuildID: guildID}
	var last int64
	err := s.queryRow(ctx, `
		SELECT warnings, last_warning FROM spam_warnings
		WHERE user_id = ? AND guild_id = ?
	`, userID, guildID).Scan(&warning.Warnings, &last)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.readFailed("get spam warning", err, zap.String("guild_id", guildID), zap.String("user_id", userID))
		}
		return SpamWarning{}, false
	}
	warning.LastWarningAt = time.Unix(last, 0)
	return warning, true
}

// AddSpamWarning increments the counter and returns the new total.
func (s *Store) AddSpamWarning(ctx context.Context, userID, guildID string, at time.Time) (int, error) {
	var count int
	err := s.queryRow(ctx, `
		INSERT INTO spam_warnings (user_id, guild_id, warnings, last_warning) VALUES (?, ?, 1, ?)
		ON CONFLICT(user_id, guild_id) DO UPDATE SET
			warnings = spam_warnings.warnings + 1,
			last_warning = excluded.last_warning
		RETURNING warnings
	`, userID, guildID, at.Unix()).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ResetSpamWarnings(ctx context.Context, userID, guildID string) error {
	_, err := s.exec(ctx, `DELETE FROM spam_warnings WHERE user_id = ? AND guild_id = ?`, userID, guildID)
	return err
}
