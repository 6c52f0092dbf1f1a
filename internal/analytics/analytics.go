package analytics

import (
	"context"
	"fmt"
	"strings"

	"yuno-bot/internal/storage"
)

// RecentWindow is how many ledger entries guild stats look at.
const RecentWindow = 100

type Store interface {
	ModActions(ctx context.Context, guildID string, limit int) []storage.ModAction
	ModActionsByModerator(ctx context.Context, guildID, moderatorID string) []storage.ModAction
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

type Stats struct {
	Total    int
	Bans     int
	Kicks    int
	Timeouts int
	Unbans   int
}

func (s *Stats) Add(action storage.ActionType) {
	switch action {
	case storage.ActionBan:
		s.Bans++
	case storage.ActionKick:
		s.Kicks++
	case storage.ActionTimeout:
		s.Timeouts++
	case storage.ActionUnban:
		s.Unbans++
	default:
		return
	}
	s.Total++
}

func (s Stats) Count(action storage.ActionType) int {
	switch action {
	case storage.ActionBan:
		return s.Bans
	case storage.ActionKick:
		return s.Kicks
	case storage.ActionTimeout:
		return s.Timeouts
	case storage.ActionUnban:
		return s.Unbans
	default:
		return 0
	}
}

func (s Stats) String() string {
	parts := make([]string, 0, len(storage.ActionTypes))
	for _, action := range storage.ActionTypes {
		parts = append(parts, fmt.Sprintf("%s: %d", action, s.Count(action)))
	}
	return fmt.Sprintf("Total: %d | %s", s.Total, strings.Join(parts, " | "))
}

func (s *Service) GuildStats(ctx context.Context, guildID string) Stats {
	return aggregate(s.store.ModActions(ctx, guildID, RecentWindow))
}

func (s *Service) ModeratorStats(ctx context.Context, guildID, moderatorID string) Stats {
	return aggregate(s.store.ModActionsByModerator(ctx, guildID, moderatorID))
}

func aggregate(actions []storage.ModAction) Stats {
	var stats Stats
	for _, action := range actions {
		stats.Add(action.Action)
	}
	return stats
}
