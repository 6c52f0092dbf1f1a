// Package platformtest provides an in-memory platform for handler tests.
package platformtest

import (
	"context"
	"sync"
	"time"

	"yuno-bot/internal/platform"
)

type Reply struct {
	Target   platform.ReplyTarget
	Response platform.Response
}

type Deferral struct {
	Target    platform.ReplyTarget
	Ephemeral bool
}

type Sent struct {
	ChannelID string
	Content   string
}

type ModCall struct {
	Action  string
	GuildID string
	UserID  string
	Minutes int
	Reason  string
}

type Deletion struct {
	ChannelID string
	IDs       []string
}

// Fake records every call. Errors set in the *Err fields are returned by the
// matching call. Permissions are granted per user id.
type Fake struct {
	mu sync.Mutex

	Replies   []Reply
	Deferrals []Deferral
	Sent      []Sent
	ModCalls  []ModCall
	Deletions []Deletion
	Fetches   []int

	Granted  map[string]int64
	Messages map[string][]platform.Message

	BanErr     error
	KickErr    error
	UnbanErr   error
	TimeoutErr error
	FetchErr   error
	DeleteErr  error
	ReplyErr   error
	DeferErr   error

	Ping time.Duration
	Self string
}

func New() *Fake {
	return &Fake{
		Granted:  make(map[string]int64),
		Messages: make(map[string][]platform.Message),
		Ping:     42 * time.Millisecond,
		Self:     "bot",
	}
}

func (f *Fake) Grant(userID string, permission int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Granted[userID] |= permission
}

func (f *Fake) SetMessages(channelID string, messages []platform.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages[channelID] = messages
}

func (f *Fake) Reply(ctx context.Context, target platform.ReplyTarget, resp platform.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Replies = append(f.Replies, Reply{Target: target, Response: resp})
	return f.ReplyErr
}

func (f *Fake) Defer(ctx context.Context, target platform.ReplyTarget, ephemeral bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeferErr != nil {
		return f.DeferErr
	}
	f.Deferrals = append(f.Deferrals, Deferral{Target: target, Ephemeral: ephemeral})
	return nil
}

func (f *Fake) SendMessage(ctx context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, Sent{ChannelID: channelID, Content: content})
	return nil
}

func (f *Fake) BanUser(ctx context.Context, guildID, userID, reason string) error {
	return f.record(ModCall{Action: "ban", GuildID: guildID, UserID: userID, Reason: reason}, f.BanErr)
}

func (f *Fake) KickUser(ctx context.Context, guildID, userID, reason string) error {
	return f.record(ModCall{Action: "kick", GuildID: guildID, UserID: userID, Reason: reason}, f.KickErr)
}

func (f *Fake) UnbanUser(ctx context.Context, guildID, userID, reason string) error {
	return f.record(ModCall{Action: "unban", GuildID: guildID, UserID: userID, Reason: reason}, f.UnbanErr)
}

func (f *Fake) TimeoutUser(ctx context.Context, guildID, userID string, minutes int, reason string) error {
	return f.record(ModCall{Action: "timeout", GuildID: guildID, UserID: userID, Minutes: minutes, Reason: reason}, f.TimeoutErr)
}

func (f *Fake) record(call ModCall, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ModCalls = append(f.ModCalls, call)
	return err
}

func (f *Fake) FetchRecentMessages(ctx context.Context, channelID string, count int) ([]platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fetches = append(f.Fetches, count)
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	messages := f.Messages[channelID]
	if len(messages) > count {
		messages = messages[:count]
	}
	return append([]platform.Message(nil), messages...), nil
}

func (f *Fake) DeleteMessages(ctx context.Context, channelID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deletions = append(f.Deletions, Deletion{ChannelID: channelID, IDs: append([]string(nil), ids...)})
	return nil
}

func (f *Fake) HasPermission(ctx context.Context, member platform.Member, permission int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	granted := f.Granted[member.UserID] | member.Permissions
	if granted&platform.PermissionAdministrator != 0 {
		return true
	}
	return granted&permission == permission
}

func (f *Fake) Latency() time.Duration {
	return f.Ping
}

func (f *Fake) SelfID() string {
	return f.Self
}

// LastReply returns the most recent reply, or a zero Reply.
func (f *Fake) LastReply() Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Replies) == 0 {
		return Reply{}
	}
	return f.Replies[len(f.Replies)-1]
}

func (f *Fake) ReplyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Replies)
}
