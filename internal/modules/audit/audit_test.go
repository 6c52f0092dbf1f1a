package audit

import (
	"context"
	"testing"
	"time"

	"yuno-bot/internal/storage"

	"go.uber.org/zap"
)

func TestLogStoresEntry(t *testing.T) {
	store, err := storage.New(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	now := time.Unix(1_700_000_000, 0)
	logger := NewLogger(store, zap.NewNop()).WithClock(func() time.Time { return now })

	entry, err := logger.Log(context.Background(), "g1", "m1", "u1", storage.ActionKick, "   ")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if entry.ID == 0 || entry.Reason != DefaultReason {
		t.Fatalf("unexpected entry %+v", entry)
	}

	stored := store.ModActions(context.Background(), "g1", 10)
	if len(stored) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(stored))
	}
	if stored[0].Action != storage.ActionKick || !stored[0].CreatedAt.Equal(now) {
		t.Fatalf("unexpected stored row %+v", stored[0])
	}
}

func TestReason(t *testing.T) {
	if Reason("") != DefaultReason {
		t.Fatalf("blank reason must fall back")
	}
	if Reason(" spam ") != "spam" {
		t.Fatalf("reason must be trimmed")
	}
}
