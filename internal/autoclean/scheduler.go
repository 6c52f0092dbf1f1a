// Package autoclean periodically purges recent messages from configured
// channels.
package autoclean

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"yuno-bot/internal/platform"
	"yuno-bot/internal/storage"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	MaxIntervalMinutes = 10080
	MaxMessageCount    = 1000
	DefaultDelay       = 5
	deleteChunk        = 100
	runTimeout         = 2 * time.Minute
)

var (
	ErrInvalidInterval = fmt.Errorf("interval must be between 1 and %d minutes", MaxIntervalMinutes)
	ErrInvalidCount    = fmt.Errorf("message count must be between 1 and %d", MaxMessageCount)
	ErrNotConfigured   = errors.New("auto-clean is not configured for this channel")
)

type Store interface {
	GetAutoCleanConfig(ctx context.Context, guildID, channelID string) (storage.AutoCleanConfig, bool)
	UpsertAutoCleanConfig(ctx context.Context, cfg storage.AutoCleanConfig) error
	DeleteAutoCleanConfig(ctx context.Context, guildID, channelID string) error
	ListAutoCleanConfigs(ctx context.Context) []storage.AutoCleanConfig
}

type Scheduler struct {
	store    Store
	messages platform.MessageManager
	limiter  *rate.Limiter
	cron     *cron.Cron
	logger   *zap.Logger
	clock    func() time.Time

	mu      sync.Mutex
	entries map[string]cron.EntryID
	delays  map[string]time.Time
}

func New(store Store, messages platform.MessageManager, deletesPerSecond float64, burst int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if deletesPerSecond > 0 {
		limit = rate.Limit(deletesPerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Scheduler{
		store:    store,
		messages: messages,
		limiter:  rate.NewLimiter(limit, burst),
		cron:     cron.New(),
		logger:   logger,
		clock:    time.Now,
		entries:  make(map[string]cron.EntryID),
		delays:   make(map[string]time.Time),
	}
}

func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

func key(guildID, channelID string) string {
	return guildID + ":" + channelID
}

// Start schedules every enabled config and starts the cron runner. A config
// that fails to schedule is logged and skipped.
func (s *Scheduler) Start(ctx context.Context) {
	for _, cfg := range s.store.ListAutoCleanConfigs(ctx) {
		if err := s.schedule(cfg); err != nil {
			s.logger.Warn("failed to schedule auto-clean", zap.String("guild_id", cfg.GuildID), zap.String("channel_id", cfg.ChannelID), zap.Error(err))
		}
	}
	s.cron.Start()
	s.logger.Info("auto-clean scheduler started", zap.Int("jobs", s.Scheduled()))
}

// Stop halts the runner and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		s.logger.Warn("auto-clean jobs still running at shutdown", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (s *Scheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Scheduler) Config(ctx context.Context, guildID, channelID string) (storage.AutoCleanConfig, bool) {
	return s.store.GetAutoCleanConfig(ctx, guildID, channelID)
}

// Configure stores and (re)schedules the config of a channel.
func (s *Scheduler) Configure(ctx context.Context, guildID, channelID string, intervalMinutes, messageCount int) (storage.AutoCleanConfig, error) {
	if intervalMinutes < 1 || intervalMinutes > MaxIntervalMinutes {
		return storage.AutoCleanConfig{}, ErrInvalidInterval
	}
	if messageCount < 1 || messageCount > MaxMessageCount {
		return storage.AutoCleanConfig{}, ErrInvalidCount
	}
	cfg := storage.AutoCleanConfig{
		GuildID:         guildID,
		ChannelID:       channelID,
		IntervalMinutes: intervalMinutes,
		MessageCount:    messageCount,
		Enabled:         true,
	}
	if err := s.store.UpsertAutoCleanConfig(ctx, cfg); err != nil {
		return storage.AutoCleanConfig{}, err
	}
	if err := s.schedule(cfg); err != nil {
		return storage.AutoCleanConfig{}, err
	}
	return cfg, nil
}

func (s *Scheduler) Disable(ctx context.Context, guildID, channelID string) error {
	if err := s.store.DeleteAutoCleanConfig(ctx, guildID, channelID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(guildID, channelID)
	if id, ok := s.entries[k]; ok {
		s.cron.Remove(id)
		delete(s.entries, k)
	}
	delete(s.delays, k)
	return nil
}

// Delay skips runs of a configured channel for the next minutes.
func (s *Scheduler) Delay(ctx context.Context, guildID, channelID string, minutes int) (time.Time, error) {
	if minutes <= 0 {
		minutes = DefaultDelay
	}
	if _, found := s.store.GetAutoCleanConfig(ctx, guildID, channelID); !found {
		return time.Time{}, ErrNotConfigured
	}
	until := s.clock().Add(time.Duration(minutes) * time.Minute)
	s.mu.Lock()
	s.delays[key(guildID, channelID)] = until
	s.mu.Unlock()
	return until, nil
}

func (s *Scheduler) schedule(cfg storage.AutoCleanConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(cfg.GuildID, cfg.ChannelID)
	if id, ok := s.entries[k]; ok {
		s.cron.Remove(id)
		delete(s.entries, k)
	}
	id, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", cfg.IntervalMinutes), func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := s.Run(ctx, cfg); err != nil {
			s.logger.Warn("auto-clean run failed", zap.String("guild_id", cfg.GuildID), zap.String("channel_id", cfg.ChannelID), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.entries[k] = id
	return nil
}

// Run purges one channel now and returns the number of deleted messages.
// Delayed channels are skipped.
func (s *Scheduler) Run(ctx context.Context, cfg storage.AutoCleanConfig) (int, error) {
	k := key(cfg.GuildID, cfg.ChannelID)
	s.mu.Lock()
	until, delayed := s.delays[k]
	if delayed && !s.clock().Before(until) {
		delete(s.delays, k)
		delayed = false
	}
	s.mu.Unlock()
	if delayed {
		s.logger.Debug("auto-clean delayed", zap.String("guild_id", cfg.GuildID), zap.String("channel_id", cfg.ChannelID), zap.Time("until", until))
		return 0, nil
	}

	messages, err := s.messages.FetchRecentMessages(ctx, cfg.ChannelID, cfg.MessageCount)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for start := 0; start < len(messages); start += deleteChunk {
		end := start + deleteChunk
		if end > len(messages) {
			end = len(messages)
		}
		ids := make([]string, 0, end-start)
		for _, msg := range messages[start:end] {
			ids = append(ids, msg.ID)
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return deleted, err
		}
		if err := s.messages.DeleteMessages(ctx, cfg.ChannelID, ids); err != nil {
			return deleted, err
		}
		deleted += len(ids)
	}
	s.logger.Info("auto-clean run", zap.String("guild_id", cfg.GuildID), zap.String("channel_id", cfg.ChannelID), zap.Int("deleted", deleted))
	return deleted, nil
}
