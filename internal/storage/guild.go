package storage

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"
)

type GuildSettings struct {
	GuildID           string
	Prefix            string
	SpamFilterEnabled bool
	LevelingEnabled   bool
}

// GetGuildSettings reports found=false both when the guild has no row and
// when the read failed.
func (s *Store) GetGuildSettings(ctx context.Context, guildID string) (GuildSettings, bool) {
	settings, found, err := s.LookupGuildSettings(ctx, guildID)
	if err != nil {
		s.readFailed("get guild settings", err, zap.String("guild_id", guildID))
		return GuildSettings{}, false
	}
	return settings, found
}

// LookupGuildSettings separates a missing row (found=false, nil error) from a
// failed read.
func (s *Store) LookupGuildSettings(ctx context.Context, guildID string) (GuildSettings, bool, error) {
	row := s.queryRow(ctx, `
		SELECT prefix, spam_filter_enabled, leveling_enabled
		FROM guild_settings WHERE guild_id = ?`, guildID)

	settings := GuildSettings{GuildID: guildID}
	var spam, leveling int
	if err := row.Scan(&settings.Prefix, &spam, &leveling); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GuildSettings{}, false, nil
		}
		return GuildSettings{}, false, err
	}
	settings.SpamFilterEnabled = spam == 1
	settings.LevelingEnabled = leveling == 1
	return settings, true, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	_, err := s.exec(ctx, `
		INSERT INTO guild_settings (guild_id, prefix, spam_filter_enabled, leveling_enabled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			prefix = excluded.prefix,
			spam_filter_enabled = excluded.spam_filter_enabled,
			leveling_enabled = excluded.leveling_enabled
	`,
		settings.GuildID,
		settings.Prefix,
		boolToInt(settings.SpamFilterEnabled),
		boolToInt(settings.LevelingEnabled),
	)
	return err
}
