package storage

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"
)

type UserXP struct {
	UserID  string
	GuildID string
	XP      int64
	Level   int
}

// GetUserXP returns a zero record for users that never earned XP.
func (s *Store) GetUserXP(ctx context.Context, userID, guildID string) UserXP {
	record := UserXP{UserID: userID, GuildID: guildID}
	row := s.queryRow(ctx, `SELECT xp, level FROM user_xp WHERE user_id = ? AND guild_id = ?`, userID, guildID)
	if err := row.Scan(&record.XP, &record.Level); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.readFailed("get user xp", err, zap.String("guild_id", guildID), zap.String("user_id", userID))
		}
		return UserXP{UserID: userID, GuildID: guildID}
	}
	return record
}

// AddXP increments the counter in a single statement and returns the row as
// it stands after the increment.
func (s *Store) AddXP(ctx context.Context, userID, guildID string, delta int64) (UserXP, error) {
	if delta <= 0 {
		return UserXP{}, ErrInvalidDelta
	}
	record := UserXP{UserID: userID, GuildID: guildID}
	row := s.queryRow(ctx, `
		INSERT INTO user_xp (user_id, guild_id, xp, level) VALUES (?, ?, ?, 0)
		ON CONFLICT(user_id, guild_id) DO UPDATE SET xp = user_xp.xp + excluded.xp
		RETURNING xp, level
	`, userID, guildID, delta)
	if err := row.Scan(&record.XP, &record.Level); err != nil {
		return UserXP{}, err
	}
	return record, nil
}

func (s *Store) SetLevel(ctx context.Context, userID, guildID string, level int) error {
	_, err := s.exec(ctx, `UPDATE user_xp SET level = ? WHERE user_id = ? AND guild_id = ?`, level, userID, guildID)
	return err
}

// RaiseLevel stores level only if it is above the stored one. raised is true
// for exactly one caller per crossing.
func (s *Store) RaiseLevel(ctx context.Context, userID, guildID string, level int) (bool, error) {
	result, err := s.exec(ctx, `
		UPDATE user_xp SET level = ?
		WHERE user_id = ? AND guild_id = ? AND level < ?
	`, level, userID, guildID, level)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *Store) Leaderboard(ctx context.Context, guildID string, limit int) []UserXP {
	if limit <= 0 {
		return nil
	}
	rows, err := s.query(ctx, `
		SELECT user_id, xp, level FROM user_xp
		WHERE guild_id = ?
		ORDER BY xp DESC, id ASC
		LIMIT ?
	`, guildID, limit)
	if err != nil {
		s.readFailed("leaderboard", err, zap.String("guild_id", guildID))
		return nil
	}
	defer rows.Close()

	var out []UserXP
	for rows.Next() {
		record := UserXP{GuildID: guildID}
		if err := rows.Scan(&record.UserID, &record.XP, &record.Level); err != nil {
			s.readFailed("leaderboard scan", err, zap.String("guild_id", guildID))
			return nil
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("leaderboard rows", err, zap.String("guild_id", guildID))
		return nil
	}
	return out
}
