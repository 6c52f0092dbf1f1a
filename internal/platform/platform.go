// Package platform describes the chat platform as seen by command handlers:
// where replies go, which moderation actions exist, and who may use them.
package platform

import (
	"context"
	"time"
)

// Permission bits, matching the Discord permission flags.
const (
	PermissionKickMembers     int64 = 1 << 1
	PermissionBanMembers      int64 = 1 << 2
	PermissionAdministrator   int64 = 1 << 3
	PermissionManageServer    int64 = 1 << 5
	PermissionManageMessages  int64 = 1 << 13
	PermissionModerateMembers int64 = 1 << 40
)

// ReplyTarget addresses a reply either to an interaction or to a channel.
// Deferred is set once the interaction was acknowledged; the reply then edits
// that acknowledgement.
type ReplyTarget struct {
	ChannelID        string
	ApplicationID    string
	InteractionID    string
	InteractionToken string
	Deferred         bool
}

func (t ReplyTarget) IsInteraction() bool {
	return t.InteractionID != "" && t.InteractionToken != ""
}

type Response struct {
	Content   string
	Ephemeral bool
}

// Member is the invoking guild member. Resolved is false when the platform
// did not attach member data to the event.
type Member struct {
	UserID      string
	GuildID     string
	ChannelID   string
	Permissions int64
	Resolved    bool
}

type Message struct {
	ID        string
	AuthorID  string
	CreatedAt time.Time
}

type Messenger interface {
	Reply(ctx context.Context, target ReplyTarget, resp Response) error
	// Defer acknowledges an interaction without content.
	Defer(ctx context.Context, target ReplyTarget, ephemeral bool) error
	SendMessage(ctx context.Context, channelID, content string) error
}

type Moderator interface {
	BanUser(ctx context.Context, guildID, userID, reason string) error
	KickUser(ctx context.Context, guildID, userID, reason string) error
	UnbanUser(ctx context.Context, guildID, userID, reason string) error
	TimeoutUser(ctx context.Context, guildID, userID string, minutes int, reason string) error
}

type MessageManager interface {
	// FetchRecentMessages returns up to count messages, newest first.
	FetchRecentMessages(ctx context.Context, channelID string, count int) ([]Message, error)
	DeleteMessages(ctx context.Context, channelID string, ids []string) error
}

type Permissions interface {
	HasPermission(ctx context.Context, member Member, permission int64) bool
}

// Actions is everything handlers may ask of the platform.
type Actions interface {
	Messenger
	Moderator
	MessageManager
	Permissions
	Latency() time.Duration
	SelfID() string
}
