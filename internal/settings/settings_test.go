package settings

import (
	"context"
	"errors"
	"testing"

	"yuno-bot/internal/storage"

	"go.uber.org/zap"
)

func newService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(store, ".", zap.NewNop()), store
}

func TestDefaults(t *testing.T) {
	service, store := newService(t)
	got := service.Get(context.Background(), "g1")
	if got.Prefix != "." || !got.LevelingEnabled || got.SpamFilterEnabled {
		t.Fatalf("unexpected defaults %+v", got)
	}
	if _, found := store.GetGuildSettings(context.Background(), "g1"); found {
		t.Fatalf("reading defaults must not create a row")
	}
}

func TestSetPrefixRoundTrip(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	if _, err := service.SetPrefix(ctx, "g1", "!!"); err != nil {
		t.Fatalf("set prefix: %v", err)
	}
	if got := service.Prefix(ctx, "g1"); got != "!!" {
		t.Fatalf("expected !!, got %q", got)
	}
	stored, found := store.GetGuildSettings(ctx, "g1")
	if !found || stored.Prefix != "!!" || !stored.LevelingEnabled {
		t.Fatalf("unexpected stored settings %+v", stored)
	}
}

func TestSetPrefixRejectsLong(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	if _, err := service.SetPrefix(ctx, "g1", "!!"); err != nil {
		t.Fatalf("set prefix: %v", err)
	}
	if _, err := service.SetPrefix(ctx, "g1", "abcdef"); !errors.Is(err, ErrPrefixTooLong) {
		t.Fatalf("expected ErrPrefixTooLong, got %v", err)
	}
	if _, err := service.SetPrefix(ctx, "g1", "  "); !errors.Is(err, ErrPrefixEmpty) {
		t.Fatalf("expected ErrPrefixEmpty, got %v", err)
	}
	if got := service.Prefix(ctx, "g1"); got != "!!" {
		t.Fatalf("rejected prefix must leave !! in place, got %q", got)
	}
}

func TestValidatePrefixCountsCharacters(t *testing.T) {
	if _, err := ValidatePrefix("ééééé"); err != nil {
		t.Fatalf("five characters must be accepted: %v", err)
	}
}

func TestTogglesKeepOtherFields(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	if _, err := service.SetPrefix(ctx, "g1", "?"); err != nil {
		t.Fatalf("set prefix: %v", err)
	}
	if _, err := service.SetSpamFilter(ctx, "g1", true); err != nil {
		t.Fatalf("set spam filter: %v", err)
	}
	got, err := service.SetLeveling(ctx, "g1", false)
	if err != nil {
		t.Fatalf("set leveling: %v", err)
	}
	if got.Prefix != "?" || !got.SpamFilterEnabled || got.LevelingEnabled {
		t.Fatalf("unexpected settings %+v", got)
	}
}

func TestCacheFilledFromStore(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	if err := store.UpsertGuildSettings(ctx, storage.GuildSettings{GuildID: "g9", Prefix: "$", LevelingEnabled: false}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got := service.Get(ctx, "g9")
	if got.Prefix != "$" || got.LevelingEnabled {
		t.Fatalf("expected stored values, got %+v", got)
	}
}

type flakyStore struct {
	rows      map[string]storage.GuildSettings
	failReads int
	upserts   int
}

func (f *flakyStore) LookupGuildSettings(ctx context.Context, guildID string) (storage.GuildSettings, bool, error) {
	if f.failReads > 0 {
		f.failReads--
		return storage.GuildSettings{}, false, errors.New("database is locked")
	}
	settings, ok := f.rows[guildID]
	return settings, ok, nil
}

func (f *flakyStore) UpsertGuildSettings(ctx context.Context, settings storage.GuildSettings) error {
	f.upserts++
	f.rows[settings.GuildID] = settings
	return nil
}

func TestFailedReadIsNotCached(t *testing.T) {
	store := &flakyStore{
		rows:      map[string]storage.GuildSettings{"g1": {GuildID: "g1", Prefix: "!!", LevelingEnabled: true}},
		failReads: 1,
	}
	service := New(store, ".", zap.NewNop())
	ctx := context.Background()

	if got := service.Prefix(ctx, "g1"); got != "." {
		t.Fatalf("failed read must fall back to the default, got %q", got)
	}
	if got := service.Prefix(ctx, "g1"); got != "!!" {
		t.Fatalf("stored prefix must be read again after a failure, got %q", got)
	}
}

func TestUpdateAbortsWhenReadFails(t *testing.T) {
	store := &flakyStore{
		rows:      map[string]storage.GuildSettings{"g1": {GuildID: "g1", Prefix: "!!", LevelingEnabled: true}},
		failReads: 1,
	}
	service := New(store, ".", zap.NewNop())
	ctx := context.Background()

	if _, err := service.SetSpamFilter(ctx, "g1", true); err == nil {
		t.Fatalf("expected an error when the settings cannot be read")
	}
	if store.upserts != 0 || store.rows["g1"].Prefix != "!!" || store.rows["g1"].SpamFilterEnabled {
		t.Fatalf("failed read must not write, got %+v after %d upserts", store.rows["g1"], store.upserts)
	}

	got, err := service.SetSpamFilter(ctx, "g1", true)
	if err != nil {
		t.Fatalf("set spam filter: %v", err)
	}
	if got.Prefix != "!!" || !got.SpamFilterEnabled {
		t.Fatalf("toggle must keep the stored prefix, got %+v", got)
	}
}
