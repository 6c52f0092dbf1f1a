// Package settings resolves per-guild configuration with a write-through
// cache in front of the store.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"yuno-bot/internal/config"
	"yuno-bot/internal/storage"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	ErrPrefixTooLong = errors.New("prefix is longer than 5 characters")
	ErrPrefixEmpty   = errors.New("prefix is empty")
)

const cacheTTL = 10 * time.Minute

type Store interface {
	LookupGuildSettings(ctx context.Context, guildID string) (storage.GuildSettings, bool, error)
	UpsertGuildSettings(ctx context.Context, settings storage.GuildSettings) error
}

type Service struct {
	store         Store
	defaultPrefix string
	logger        *zap.Logger
	cache         *cache.Cache
	mu            sync.RWMutex
}

func New(store Store, defaultPrefix string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:         store,
		defaultPrefix: defaultPrefix,
		logger:        logger,
		cache:         cache.New(cacheTTL, 2*cacheTTL),
	}
}

func (s *Service) defaults(guildID string) storage.GuildSettings {
	return storage.GuildSettings{
		GuildID:         guildID,
		Prefix:          s.defaultPrefix,
		LevelingEnabled: true,
	}
}

// Get returns the stored settings of a guild or the defaults. A failed read
// yields the defaults without caching them.
func (s *Service) Get(ctx context.Context, guildID string) storage.GuildSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, err := s.load(ctx, guildID)
	if err != nil {
		return s.defaults(guildID)
	}
	return settings
}

func (s *Service) load(ctx context.Context, guildID string) (storage.GuildSettings, error) {
	if cached, ok := s.cache.Get(guildID); ok {
		return cached.(storage.GuildSettings), nil
	}
	settings, found, err := s.store.LookupGuildSettings(ctx, guildID)
	if err != nil {
		s.logger.Error("failed to load guild settings", zap.String("guild_id", guildID), zap.Error(err))
		return storage.GuildSettings{}, err
	}
	if !found {
		settings = s.defaults(guildID)
	}
	if settings.Prefix == "" {
		settings.Prefix = s.defaultPrefix
	}
	s.cache.Set(guildID, settings, cache.DefaultExpiration)
	return settings, nil
}

// Prefix implements command.PrefixSource.
func (s *Service) Prefix(ctx context.Context, guildID string) string {
	return s.Get(ctx, guildID).Prefix
}

// ValidatePrefix trims prefix and checks its length in characters.
func ValidatePrefix(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", ErrPrefixEmpty
	}
	if utf8.RuneCountInString(prefix) > config.MaxPrefixLength {
		return "", ErrPrefixTooLong
	}
	return prefix, nil
}

func (s *Service) SetPrefix(ctx context.Context, guildID, prefix string) (storage.GuildSettings, error) {
	prefix, err := ValidatePrefix(prefix)
	if err != nil {
		return storage.GuildSettings{}, err
	}
	return s.update(ctx, guildID, func(settings *storage.GuildSettings) {
		settings.Prefix = prefix
	})
}

func (s *Service) SetLeveling(ctx context.Context, guildID string, enabled bool) (storage.GuildSettings, error) {
	return s.update(ctx, guildID, func(settings *storage.GuildSettings) {
		settings.LevelingEnabled = enabled
	})
}

func (s *Service) SetSpamFilter(ctx context.Context, guildID string, enabled bool) (storage.GuildSettings, error) {
	return s.update(ctx, guildID, func(settings *storage.GuildSettings) {
		settings.SpamFilterEnabled = enabled
	})
}

func (s *Service) update(ctx context.Context, guildID string, mutate func(*storage.GuildSettings)) (storage.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load(ctx, guildID)
	if err != nil {
		return storage.GuildSettings{}, fmt.Errorf("load guild settings: %w", err)
	}
	mutate(&settings)
	if err := s.store.UpsertGuildSettings(ctx, settings); err != nil {
		s.logger.Error("failed to save guild settings", zap.String("guild_id", guildID), zap.Error(err))
		return storage.GuildSettings{}, err
	}
	s.cache.Set(guildID, settings, cache.DefaultExpiration)
	return settings, nil
}
