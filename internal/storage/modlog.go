package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ActionType is the closed set of moderation actions the ledger records.
type ActionType string

const (
	ActionBan     ActionType = "ban"
	ActionKick    ActionType = "kick"
	ActionTimeout ActionType = "timeout"
	ActionUnban   ActionType = "unban"
)

// ActionTypes lists every ActionType in display order.
var ActionTypes = []ActionType{ActionBan, ActionKick, ActionTimeout, ActionUnban}

func ParseActionType(value string) (ActionType, error) {
	switch ActionType(value) {
	case ActionBan, ActionKick, ActionTimeout, ActionUnban:
		return ActionType(value), nil
	default:
		return "", fmt.Errorf("unknown action type %q", value)
	}
}

type ModAction struct {
	ID          int64
	GuildID     string
	ModeratorID string
	TargetID    string
	Action      ActionType
	Reason      string
	CreatedAt   time.Time
}

// LogModAction appends an entry and returns the store-assigned id.
func (s *Store) LogModAction(ctx context.Context, action ModAction) (int64, error) {
	if _, err := ParseActionType(string(action.Action)); err != nil {
		return 0, err
	}
	var id int64
	err := s.queryRow(ctx, `
		INSERT INTO mod_actions (guild_id, moderator_id, target_id, action_type, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, action.GuildID, action.ModeratorID, action.TargetID, string(action.Action), action.Reason, action.CreatedAt.Unix()).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ModActions returns the most recent entries of a guild, newest first.
func (s *Store) ModActions(ctx context.Context, guildID string, limit int) []ModAction {
	if limit <= 0 {
		return nil
	}
	return s.listModActions(ctx, `
		SELECT id, guild_id, moderator_id, target_id, action_type, reason, created_at
		FROM mod_actions
		WHERE guild_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, guildID, limit)
}

func (s *Store) ModActionsByModerator(ctx context.Context, guildID, moderatorID string) []ModAction {
	return s.listModActions(ctx, `
		SELECT id, guild_id, moderator_id, target_id, action_type, reason, created_at
		FROM mod_actions
		WHERE guild_id = ? AND moderator_id = ?
		ORDER BY created_at DESC, id DESC
	`, guildID, moderatorID)
}

func (s *Store) listModActions(ctx context.Context, query string, args ...any) []ModAction {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		s.readFailed("list mod actions", err)
		return nil
	}
	defer rows.Close()

	var actions []ModAction
	for rows.Next() {
		var action ModAction
		var kind string
		var created int64
		if err := rows.Scan(&action.ID, &action.GuildID, &action.ModeratorID, &action.TargetID, &kind, &action.Reason, &created); err != nil {
			s.readFailed("scan mod action", err)
			return nil
		}
		parsed, err := ParseActionType(kind)
		if err != nil {
			s.logger.Warn("skipping mod action", zap.Int64("id", action.ID), zap.Error(err))
			continue
		}
		action.Action = parsed
		action.CreatedAt = time.Unix(created, 0)
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("list mod actions rows", err)
		return nil
	}
	return actions
}
