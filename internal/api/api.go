// Package api serves a read-only JSON view of guild state.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"yuno-bot/internal/leveling"
	"yuno-bot/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type Store interface {
	Ping(ctx context.Context) error
	Leaderboard(ctx context.Context, guildID string, limit int) []storage.UserXP
	ModActions(ctx context.Context, guildID string, limit int) []storage.ModAction
	ModActionsByModerator(ctx context.Context, guildID, moderatorID string) []storage.ModAction
}

type SettingsSource interface {
	Get(ctx context.Context, guildID string) storage.GuildSettings
}

type Handler struct {
	Store    Store
	Settings SettingsSource
}

type settingsResponse struct {
	GuildID           string `json:"guild_id"`
	Prefix            string `json:"prefix"`
	LevelingEnabled   bool   `json:"leveling_enabled"`
	SpamFilterEnabled bool   `json:"spam_filter_enabled"`
}

type leaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	XP       int64  `json:"xp"`
	Level    int    `json:"level"`
	Progress int    `json:"progress"`
}

type modActionResponse struct {
	ID          int64     `json:"id"`
	ModeratorID string    `json:"moderator_id"`
	TargetID    string    `json:"target_id"`
	Action      string    `json:"action"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) GetSettings(c *gin.Context) {
	settings := h.Settings.Get(c.Request.Context(), c.Param("guild"))
	c.JSON(http.StatusOK, settingsResponse{
		GuildID:           settings.GuildID,
		Prefix:            settings.Prefix,
		LevelingEnabled:   settings.LevelingEnabled,
		SpamFilterEnabled: settings.SpamFilterEnabled,
	})
}

func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entries := make([]leaderboardEntry, 0, limit)
	for i, record := range h.Store.Leaderboard(c.Request.Context(), c.Param("guild"), limit) {
		entries = append(entries, leaderboardEntry{
			Rank:     i + 1,
			UserID:   record.UserID,
			XP:       record.XP,
			Level:    record.Level,
			Progress: leveling.ProgressPercent(record.XP, record.Level),
		})
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) GetModActions(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	guildID := c.Param("guild")
	var actions []storage.ModAction
	if moderator := c.Query("moderator"); moderator != "" {
		actions = h.Store.ModActionsByModerator(c.Request.Context(), guildID, moderator)
		if len(actions) > limit {
			actions = actions[:limit]
		}
	} else {
		actions = h.Store.ModActions(c.Request.Context(), guildID, limit)
	}

	out := make([]modActionResponse, 0, len(actions))
	for _, action := range actions {
		out = append(out, modActionResponse{
			ID:          action.ID,
			ModeratorID: action.ModeratorID,
			TargetID:    action.TargetID,
			Action:      string(action.Action),
			Reason:      action.Reason,
			CreatedAt:   action.CreatedAt.UTC(),
		})
	}
	c.JSON(http.StatusOK, out)
}

var errInvalidLimit = errors.New("limit must be between 1 and 100")

func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, errInvalidLimit
	}
	return limit, nil
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", h.Health)
	guilds := r.Group("/api/guilds/:guild")
	guilds.GET("/settings", h.GetSettings)
	guilds.GET("/leaderboard", h.GetLeaderboard)
	guilds.GET("/mod-actions", h.GetModActions)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

type Server struct {
	http   *http.Server
	logger *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info("http api listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http api stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
