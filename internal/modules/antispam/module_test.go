package antispam

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"yuno-bot/internal/command"
	"yuno-bot/internal/config"
	"yuno-bot/internal/modules/audit"
	"yuno-bot/internal/platform"
	"yuno-bot/internal/platform/platformtest"
	"yuno-bot/internal/settings"
	"yuno-bot/internal/storage"

	"go.uber.org/zap"
)

type fixture struct {
	store    *storage.Store
	fake     *platformtest.Fake
	settings *settings.Service
	module   *Module
	now      time.Time
}

func newFixture(t *testing.T, enabled bool) *fixture {
	t.Helper()
	store, err := storage.New(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.MasterUsers = []string{"owner"}
	cfg.Spam = config.SpamConfig{MaxWarnings: 3, BurstMessages: 3, BurstWindowSeconds: 5}

	fake := platformtest.New()
	settingsService := settings.New(store, ".", zap.NewNop())
	if enabled {
		if _, err := settingsService.SetSpamFilter(context.Background(), "g1", true); err != nil {
			t.Fatalf("enable spam filter: %v", err)
		}
	}
	f := &fixture{store: store, fake: fake, settings: settingsService, now: time.Unix(1_700_000_000, 0)}
	f.module = New(cfg.Spam, store, fake, settingsService, command.NewGate(fake, cfg), audit.NewLogger(store, zap.NewNop()), zap.NewNop()).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) send(author, id, content string) bool {
	return f.module.HandleChat(context.Background(), command.ChatMessage{
		ID:        id,
		AuthorID:  author,
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   content,
		Member:    platform.Member{UserID: author},
	})
}

func TestDisabledFilterIgnoresInvites(t *testing.T) {
	f := newFixture(t, false)
	if f.send("u1", "m1", "discord.gg/free") {
		t.Fatalf("disabled filter must not flag")
	}
}

func TestInviteIsDeletedAndWarned(t *testing.T) {
	f := newFixture(t, true)
	if !f.send("u1", "m1", "join https://discord.gg/free") {
		t.Fatalf("expected invite to be flagged")
	}
	if len(f.fake.Deletions) != 1 || f.fake.Deletions[0].IDs[0] != "m1" {
		t.Fatalf("expected message deletion, got %+v", f.fake.Deletions)
	}
	warning, found := f.store.GetSpamWarning(context.Background(), "u1", "g1")
	if !found || warning.Warnings != 1 {
		t.Fatalf("expected one warning, got %+v", warning)
	}
	if len(f.fake.Sent) != 1 || !strings.Contains(f.fake.Sent[0].Content, "warning 1/3") {
		t.Fatalf("unexpected notice %+v", f.fake.Sent)
	}
}

func TestBurstDetection(t *testing.T) {
	f := newFixture(t, true)
	if f.send("u1", "m1", "a") || f.send("u1", "m2", "b") {
		t.Fatalf("first messages must pass")
	}
	if !f.send("u1", "m3", "c") {
		t.Fatalf("third message in window must be flagged")
	}

	f.now = f.now.Add(time.Minute)
	if f.send("u1", "m4", "d") {
		t.Fatalf("window must have expired")
	}
}

func TestBanAfterMaxWarnings(t *testing.T) {
	f := newFixture(t, true)
	for i := 0; i < 3; i++ {
		f.now = f.now.Add(time.Minute)
		f.send("u1", "m", "discord.gg/free")
	}
	if len(f.fake.ModCalls) != 1 || f.fake.ModCalls[0].Action != "ban" {
		t.Fatalf("expected one ban, got %+v", f.fake.ModCalls)
	}
	actions := f.store.ModActions(context.Background(), "g1", 10)
	if len(actions) != 1 || actions[0].ModeratorID != "bot" || actions[0].Action != storage.ActionBan {
		t.Fatalf("unexpected ledger %+v", actions)
	}
	if _, found := f.store.GetSpamWarning(context.Background(), "u1", "g1"); found {
		t.Fatalf("warnings must be reset after ban")
	}
}

func TestFailedBanKeepsWarnings(t *testing.T) {
	f := newFixture(t, true)
	f.fake.BanErr = errors.New("missing permissions")
	for i := 0; i < 3; i++ {
		f.send("u1", "m", "discord.gg/free")
	}
	if actions := f.store.ModActions(context.Background(), "g1", 10); len(actions) != 0 {
		t.Fatalf("failed ban must not be logged, got %+v", actions)
	}
	warning, _ := f.store.GetSpamWarning(context.Background(), "u1", "g1")
	if warning.Warnings != 3 {
		t.Fatalf("expected 3 warnings, got %d", warning.Warnings)
	}
}

func TestExemptUsers(t *testing.T) {
	f := newFixture(t, true)
	f.fake.Grant("mod", platform.PermissionManageMessages)
	if f.send("mod", "m1", "discord.gg/ours") || f.send("owner", "m2", "discord.gg/ours") {
		t.Fatalf("moderators and master users are exempt")
	}
}
