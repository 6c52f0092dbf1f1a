package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yuno-bot/internal/settings"
	"yuno-bot/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *storage.Store, *settings.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := storage.New(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	settingsService := settings.New(store, ".", zap.NewNop())
	return NewRouter(&Handler{Store: store, Settings: settingsService}, zap.NewNop()), store, settingsService
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _, _ := setupTestRouter(t)
	w := get(r, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGetSettings(t *testing.T) {
	r, _, settingsService := setupTestRouter(t)
	if _, err := settingsService.SetPrefix(context.Background(), "g1", "!!"); err != nil {
		t.Fatalf("set prefix: %v", err)
	}

	w := get(r, "/api/guilds/g1/settings")
	var body settingsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Prefix != "!!" || !body.LevelingEnabled {
		t.Fatalf("unexpected settings %+v", body)
	}
}

func TestGetLeaderboard(t *testing.T) {
	r, store, _ := setupTestRouter(t)
	ctx := context.Background()
	for user, xp := range map[string]int64{"a": 10, "b": 300, "c": 150} {
		if _, err := store.AddXP(ctx, user, "g1", xp); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	w := get(r, "/api/guilds/g1/leaderboard?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var entries []leaderboardEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != "b" || entries[1].UserID != "c" || entries[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard %+v", entries)
	}

	if w := get(r, "/api/guilds/g1/leaderboard?limit=0"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestGetModActions(t *testing.T) {
	r, store, _ := setupTestRouter(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)
	for i, mod := range []string{"m1", "m2", "m1"} {
		if _, err := store.LogModAction(ctx, storage.ModAction{
			GuildID: "g1", ModeratorID: mod, TargetID: "t", Action: storage.ActionKick, Reason: "r",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var all []modActionResponse
	if err := json.Unmarshal(get(r, "/api/guilds/g1/mod-actions").Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 3 || !all[0].CreatedAt.Equal(base.Add(2*time.Second)) {
		t.Fatalf("unexpected actions %+v", all)
	}

	var filtered []modActionResponse
	if err := json.Unmarshal(get(r, "/api/guilds/g1/mod-actions?moderator=m1&limit=1").Body.Bytes(), &filtered); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ModeratorID != "m1" {
		t.Fatalf("unexpected filtered actions %+v", filtered)
	}
}

func TestUnknownRoute(t *testing.T) {
	r, _, _ := setupTestRouter(t)
	if w := get(r, "/nope"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
