// Package command routes slash interactions and prefixed chat messages onto
// a single set of handlers.
package command

import (
	"context"

	"yuno-bot/internal/platform"
)

type Surface int

const (
	SurfaceText Surface = iota
	SurfaceSlash
)

func (s Surface) String() string {
	if s == SurfaceSlash {
		return "slash"
	}
	return "text"
}

// StructuredCommand is a slash interaction after conversion from the gateway.
type StructuredCommand struct {
	Name      string
	GuildID   string
	ChannelID string
	Invoker   platform.Member
	Args      map[string]any
	Reply     platform.ReplyTarget
}

// ChatMessage is a plain guild or direct message.
type ChatMessage struct {
	ID        string
	AuthorID  string
	Automated bool
	GuildID   string
	ChannelID string
	Content   string
	Member    platform.Member
}

// Invocation is what every handler receives, whichever surface it came from.
type Invocation struct {
	Name      string
	Surface   Surface
	GuildID   string
	ChannelID string
	MessageID string
	Invoker   platform.Member
	Args      Args
	Prefix    string
	Reply     platform.ReplyTarget
}

func (inv *Invocation) Mention() string {
	return "<@" + inv.Invoker.UserID + ">"
}

// Respond builds a public reply.
func (inv *Invocation) Respond(content string) platform.Response {
	return platform.Response{Content: content}
}

// Private builds a reply only the invoker sees on the slash surface.
func (inv *Invocation) Private(content string) platform.Response {
	return platform.Response{Content: content, Ephemeral: inv.Surface == SurfaceSlash}
}

// UsagePrefix is the prefix shown in usage hints for this surface.
func (inv *Invocation) UsagePrefix() string {
	if inv.Surface == SurfaceSlash {
		return "/"
	}
	return inv.Prefix
}

type Handler func(ctx context.Context, inv *Invocation) platform.Response

// Defer acknowledges slash invocations privately before Handler runs, for
// handlers that call the platform more than once. The response then edits the
// acknowledgement.
type Definition struct {
	Name        string
	Description string
	Usage       string
	Category    string
	Aliases     []string
	Params      []Param
	Defer       bool
	Handler     Handler
}

// Outcome reports what the router did with an event.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeDirectMessage
	OutcomePassive
	OutcomeEmpty
	OutcomeUnknown
	OutcomeInvalid
	OutcomeDispatched
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDirectMessage:
		return "direct_message"
	case OutcomePassive:
		return "passive"
	case OutcomeEmpty:
		return "empty"
	case OutcomeUnknown:
		return "unknown"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "dispatched"
	}
}
