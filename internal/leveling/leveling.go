// Package leveling converts message activity into XP and levels.
package leveling

import (
	"context"
	"math/rand"

	"yuno-bot/internal/storage"

	"go.uber.org/zap"
)

const (
	XPPerLevelUnit = 100
	MinAward       = 15
	MaxAward       = 25
)

// LevelForXP returns floor(sqrt(xp/100)).
func LevelForXP(xp int64) int {
	if xp <= 0 {
		return 0
	}
	return int(isqrt(xp / XPPerLevelUnit))
}

// XPRequiredFor returns the total XP at which level is reached.
func XPRequiredFor(level int) int64 {
	if level <= 0 {
		return 0
	}
	return int64(level) * int64(level) * XPPerLevelUnit
}

// ProgressPercent is xp as a share of the next level's requirement, capped at 100.
func ProgressPercent(xp int64, level int) int {
	required := XPRequiredFor(level + 1)
	if required == 0 || xp <= 0 {
		return 0
	}
	percent := xp * 100 / required
	if percent > 100 {
		return 100
	}
	return int(percent)
}

func isqrt(n int64) int64 {
	if n < 2 {
		return n
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

type Store interface {
	AddXP(ctx context.Context, userID, guildID string, delta int64) (storage.UserXP, error)
	RaiseLevel(ctx context.Context, userID, guildID string, level int) (bool, error)
}

type LevelUp struct {
	UserID  string
	GuildID string
	Level   int
	XP      int64
}

type Engine struct {
	store  Store
	logger *zap.Logger
	intn   func(n int) int
}

func NewEngine(store Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger, intn: rand.Intn}
}

// WithRand replaces the random source used for awards.
func (e *Engine) WithRand(intn func(n int) int) *Engine {
	e.intn = intn
	return e
}

// RollAward returns a uniform amount in [MinAward, MaxAward].
func (e *Engine) RollAward() int64 {
	return int64(MinAward + e.intn(MaxAward-MinAward+1))
}

// Award grants a random amount for one qualifying message.
func (e *Engine) Award(ctx context.Context, userID, guildID string) (LevelUp, bool, error) {
	return e.AwardAmount(ctx, userID, guildID, e.RollAward())
}

// AwardAmount adds amount and reports a level-up at most once per crossing,
// even when several awards race for the same user.
func (e *Engine) AwardAmount(ctx context.Context, userID, guildID string, amount int64) (LevelUp, bool, error) {
	record, err := e.store.AddXP(ctx, userID, guildID, amount)
	if err != nil {
		e.logger.Warn("failed to add xp", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
		return LevelUp{}, false, err
	}

	level := LevelForXP(record.XP)
	if level <= record.Level {
		return LevelUp{}, false, nil
	}
	raised, err := e.store.RaiseLevel(ctx, userID, guildID, level)
	if err != nil {
		e.logger.Warn("failed to raise level", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
		return LevelUp{}, false, err
	}
	if !raised {
		return LevelUp{}, false, nil
	}
	return LevelUp{UserID: userID, GuildID: guildID, Level: level, XP: record.XP}, true, nil
}
