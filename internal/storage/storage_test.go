package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestMigrateTwice(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestLookupGuildSettingsSeparatesMissingFromFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, found, err := store.LookupGuildSettings(ctx, "g1"); found || err != nil {
		t.Fatalf("missing row: expected found=false and nil error, got %v %v", found, err)
	}

	store.Close()
	if _, found, err := store.LookupGuildSettings(ctx, "g1"); found || err == nil {
		t.Fatalf("closed store: expected an error, got found=%v err=%v", found, err)
	}
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, found := store.GetGuildSettings(ctx, "g1"); found {
		t.Fatalf("expected no settings before first write")
	}

	settings := GuildSettings{GuildID: "g1", Prefix: "!", LevelingEnabled: true}
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}

	settings.Prefix = "?"
	settings.SpamFilterEnabled = true
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, found := store.GetGuildSettings(ctx, "g1")
	if !found {
		t.Fatalf("expected settings for g1")
	}
	if got != settings {
		t.Fatalf("expected %+v, got %+v", settings, got)
	}
}

func TestModActionsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	for i, target := range []string{"t1", "t2", "t3"} {
		_, err := store.LogModAction(ctx, ModAction{
			GuildID:     "g1",
			ModeratorID: "m1",
			TargetID:    target,
			Action:      ActionBan,
			Reason:      "spam",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("log action %s: %v", target, err)
		}
	}

	got := store.ModActions(ctx, "g1", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(got))
	}
	if got[0].TargetID != "t3" || got[1].TargetID != "t2" {
		t.Fatalf("expected t3 then t2, got %s then %s", got[0].TargetID, got[1].TargetID)
	}
	if !got[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("unexpected timestamp %v", got[0].CreatedAt)
	}
	if store.ModActions(ctx, "g2", 10) != nil {
		t.Fatalf("expected no actions for other guild")
	}
}

func TestModActionsSameSecondKeepInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	first, err := store.LogModAction(ctx, ModAction{GuildID: "g1", ModeratorID: "m1", TargetID: "a", Action: ActionKick, Reason: "r", CreatedAt: now})
	if err != nil {
		t.Fatalf("log first: %v", err)
	}
	second, err := store.LogModAction(ctx, ModAction{GuildID: "g1", ModeratorID: "m1", TargetID: "b", Action: ActionKick, Reason: "r", CreatedAt: now})
	if err != nil {
		t.Fatalf("log second: %v", err)
	}
	if second <= first {
		t.Fatalf("expected increasing ids, got %d then %d", first, second)
	}

	got := store.ModActions(ctx, "g1", 10)
	if len(got) != 2 || got[0].ID != second {
		t.Fatalf("expected newest id %d first, got %+v", second, got)
	}
}

func TestModActionsByModerator(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	entries := []ModAction{
		{GuildID: "g1", ModeratorID: "m1", TargetID: "u1", Action: ActionBan, Reason: "r"},
		{GuildID: "g1", ModeratorID: "m2", TargetID: "u2", Action: ActionKick, Reason: "r"},
		{GuildID: "g1", ModeratorID: "m1", TargetID: "u3", Action: ActionTimeout, Reason: "r (10 minutes)"},
		{GuildID: "g2", ModeratorID: "m1", TargetID: "u4", Action: ActionUnban, Reason: "r"},
	}
	for i, entry := range entries {
		entry.CreatedAt = now.Add(time.Duration(i) * time.Second)
		if _, err := store.LogModAction(ctx, entry); err != nil {
			t.Fatalf("log action: %v", err)
		}
	}

	got := store.ModActionsByModerator(ctx, "g1", "m1")
	if len(got) != 2 {
		t.Fatalf("expected 2 actions for m1, got %d", len(got))
	}
	if got[0].Action != ActionTimeout || got[1].Action != ActionBan {
		t.Fatalf("unexpected actions %s, %s", got[0].Action, got[1].Action)
	}
}

func TestLogModActionRejectsUnknownType(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LogModAction(context.Background(), ModAction{GuildID: "g1", Action: "warn", CreatedAt: time.Now()})
	if err == nil {
		t.Fatalf("expected error for unknown action type")
	}
}

func TestAutoCleanConfigLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := AutoCleanConfig{GuildID: "g1", ChannelID: "c1", IntervalMinutes: 30, MessageCount: 50, Enabled: true}
	if err := store.UpsertAutoCleanConfig(ctx, cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertAutoCleanConfig(ctx, AutoCleanConfig{GuildID: "g1", ChannelID: "c2", IntervalMinutes: 5, MessageCount: 10}); err != nil {
		t.Fatalf("upsert disabled: %v", err)
	}

	got, found := store.GetAutoCleanConfig(ctx, "g1", "c1")
	if !found || got != cfg {
		t.Fatalf("expected %+v, got %+v (found=%v)", cfg, got, found)
	}

	listed := store.ListAutoCleanConfigs(ctx)
	if len(listed) != 1 || listed[0].ChannelID != "c1" {
		t.Fatalf("expected only enabled config, got %+v", listed)
	}

	if err := store.DeleteAutoCleanConfig(ctx, "g1", "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found := store.GetAutoCleanConfig(ctx, "g1", "c1"); found {
		t.Fatalf("expected config to be gone")
	}
}

func TestSpamWarnings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	for i := 1; i <= 3; i++ {
		count, err := store.AddSpamWarning(ctx, "u1", "g1", now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("add warning: %v", err)
		}
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}

	warning, found := store.GetSpamWarning(ctx, "u1", "g1")
	if !found || warning.Warnings != 3 {
		t.Fatalf("expected 3 warnings, got %+v", warning)
	}
	if !warning.LastWarningAt.Equal(now.Add(3 * time.Second)) {
		t.Fatalf("unexpected last warning %v", warning.LastWarningAt)
	}

	if err := store.ResetSpamWarnings(ctx, "u1", "g1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, found := store.GetSpamWarning(ctx, "u1", "g1"); found {
		t.Fatalf("expected warnings to be cleared")
	}
}

func TestRebindPostgres(t *testing.T) {
	store := &Store{dialect: dialectPostgres}
	got := store.rebind("SELECT a FROM t WHERE b = ? AND c = ?")
	if got != "SELECT a FROM t WHERE b = $1 AND c = $2" {
		t.Fatalf("unexpected rebind %q", got)
	}

	sqlite := &Store{dialect: dialectSQLite}
	if sqlite.rebind("x = ?") != "x = ?" {
		t.Fatalf("sqlite queries must be untouched")
	}
}

func TestAddXPRejectsNonPositiveDelta(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.AddXP(context.Background(), "u1", "g1", 0); !errors.Is(err, ErrInvalidDelta) {
		t.Fatalf("expected ErrInvalidDelta, got %v", err)
	}
}

func TestAddXPConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AddXP(ctx, "u1", "g1", 5); err != nil {
				t.Errorf("add xp: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := store.GetUserXP(ctx, "u1", "g1").XP; got != 100 {
		t.Fatalf("expected 100 xp, got %d", got)
	}
}
