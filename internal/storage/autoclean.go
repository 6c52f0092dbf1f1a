package storage

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"
)

type AutoCleanConfig struct {
	GuildID         string
	ChannelID       string
	IntervalMinutes int
	MessageCount    int
	Enabled         bool
}

func (s *Store) GetAutoCleanConfig(ctx context.Context, guildID, channelID string) (AutoCleanConfig, bool) {
	cfg := AutoCleanConfig{GuildID: guildID, ChannelID: channelID}
	var enabled int
	err := s.queryRow(ctx, `
		SELECT interval_minutes, message_count, enabled
		FROM auto_clean_config WHERE guild_id = ? AND channel_id = ?
	`, guildID, channelID).Scan(&cfg.IntervalMinutes, &cfg.MessageCount, &enabled)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.readFailed("get auto-clean config", err, zap.String("guild_id", guildID), zap.String("channel_id", channelID))
		}
		return AutoCleanConfig{}, false
	}
	cfg.Enabled = enabled == 1
	return cfg, true
}

func (s *Store) UpsertAutoCleanConfig(ctx context.Context, cfg AutoCleanConfig) error {
	_, err := s.exec(ctx, `
		INSERT INTO auto_clean_config (guild_id, channel_id, interval_minutes, message_count, enabled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, channel_id) DO UPDATE SET
			interval_minutes = excluded.interval_minutes,
			message_count = excluded.message_count,
			enabled = excluded.enabled
	`, cfg.GuildID, cfg.ChannelID, cfg.IntervalMinutes, cfg.MessageCount, boolToInt(cfg.Enabled))
	return err
}

func (s *Store) DeleteAutoCleanConfig(ctx context.Context, guildID, channelID string) error {
	_, err := s.exec(ctx, `DELETE FROM auto_clean_config WHERE guild_id = ? AND channel_id = ?`, guildID, channelID)
	return err
}

// ListAutoCleanConfigs returns every enabled config across guilds.
func (s *Store) ListAutoCleanConfigs(ctx context.Context) []AutoCleanConfig {
	rows, err := s.query(ctx, `
		SELECT guild_id, channel_id, interval_minutes, message_count
		FROM auto_clean_config WHERE enabled = 1
		ORDER BY guild_id, channel_id
	`)
	if err != nil {
		s.readFailed("list auto-clean configs", err)
		return nil
	}
	defer rows.Close()

	var configs []AutoCleanConfig
	for rows.Next() {
		cfg := AutoCleanConfig{Enabled: true}
		if err := rows.Scan(&cfg.GuildID, &cfg.ChannelID, &cfg.IntervalMinutes, &cfg.MessageCount); err != nil {
			s.readFailed("scan auto-clean config", err)
			return nil
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("list auto-clean rows", err)
		return nil
	}
	return configs
}
