package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"yuno-bot/internal/platform"

	"go.uber.org/zap"
)

// PrefixSource resolves the effective prefix of a guild.
type PrefixSource interface {
	Prefix(ctx context.Context, guildID string) string
}

// ChatHook observes non-command guild messages. Returning true stops later
// hooks from seeing the message.
type ChatHook func(ctx context.Context, msg ChatMessage) bool

type Router struct {
	messenger platform.Messenger
	prefixes  PrefixSource
	dmMessage string
	logger    *zap.Logger
	commands  map[string]*Definition
	aliases   map[string]string
	hooks     []ChatHook
}

func NewRouter(messenger platform.Messenger, prefixes PrefixSource, dmMessage string, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		messenger: messenger,
		prefixes:  prefixes,
		dmMessage: dmMessage,
		logger:    logger,
		commands:  make(map[string]*Definition),
		aliases:   make(map[string]string),
	}
}

// Register adds definitions. Names and aliases must be unique.
func (r *Router) Register(defs ...Definition) {
	for i := range defs {
		def := defs[i]
		name := strings.ToLower(def.Name)
		if _, exists := r.commands[name]; exists {
			panic(fmt.Sprintf("command %q registered twice", name))
		}
		if _, exists := r.aliases[name]; exists {
			panic(fmt.Sprintf("command %q collides with an alias", name))
		}
		def.Name = name
		r.commands[name] = &def
		for _, alias := range def.Aliases {
			alias = strings.ToLower(alias)
			if _, exists := r.commands[alias]; exists {
				panic(fmt.Sprintf("alias %q collides with a command", alias))
			}
			if _, exists := r.aliases[alias]; exists {
				panic(fmt.Sprintf("alias %q registered twice", alias))
			}
			r.aliases[alias] = name
		}
	}
}

// OnChat appends a passive chat hook. Hooks run in registration order.
func (r *Router) OnChat(hook ChatHook) {
	r.hooks = append(r.hooks, hook)
}

// Definitions returns every registered command sorted by category then name.
func (r *Router) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.commands))
	for _, def := range r.commands {
		defs = append(defs, *def)
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Category != defs[j].Category {
			return defs[i].Category < defs[j].Category
		}
		return defs[i].Name < defs[j].Name
	})
	return defs
}

// Resolve looks a command up by name or alias, case-insensitively.
func (r *Router) Resolve(name string) (Definition, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	def, ok := r.commands[name]
	if !ok {
		return Definition{}, false
	}
	return *def, true
}

// ParseCommandLine strips prefix from content and splits the command token
// from its arguments. ok is false when content does not start with prefix.
func ParseCommandLine(content, prefix string) (name, rest string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	body := strings.TrimSpace(content[len(prefix):])
	if body == "" {
		return "", "", true
	}
	name, rest = splitFirst(body)
	return strings.ToLower(name), rest, true
}

func (r *Router) HandleChat(ctx context.Context, msg ChatMessage) Outcome {
	if msg.Automated {
		return OutcomeIgnored
	}
	if msg.GuildID == "" {
		if r.dmMessage != "" {
			if err := r.messenger.SendMessage(ctx, msg.ChannelID, r.dmMessage); err != nil {
				r.logger.Warn("failed to answer direct message", zap.String("user_id", msg.AuthorID), zap.Error(err))
			}
		}
		return OutcomeDirectMessage
	}

	prefix := r.prefixes.Prefix(ctx, msg.GuildID)
	name, rest, ok := ParseCommandLine(msg.Content, prefix)
	if !ok {
		for _, hook := range r.hooks {
			if hook(ctx, msg) {
				break
			}
		}
		return OutcomePassive
	}
	if name == "" {
		return OutcomeEmpty
	}

	def, found := r.Resolve(name)
	if !found {
		r.logger.Debug("unknown command", zap.String("guild_id", msg.GuildID), zap.String("command", name))
		return OutcomeUnknown
	}

	inv := &Invocation{
		Name:      def.Name,
		Surface:   SurfaceText,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		Invoker:   msg.Member,
		Prefix:    prefix,
		Reply:     platform.ReplyTarget{ChannelID: msg.ChannelID},
	}
	if inv.Invoker.UserID == "" {
		inv.Invoker.UserID = msg.AuthorID
	}
	inv.Invoker.GuildID = msg.GuildID
	inv.Invoker.ChannelID = msg.ChannelID

	args, err := ParseText(def.Params, rest)
	if err != nil {
		r.send(ctx, inv, argErrorResponse(inv, def, err))
		return OutcomeInvalid
	}
	inv.Args = args
	r.dispatch(ctx, def, inv)
	return OutcomeDispatched
}

func (r *Router) HandleStructured(ctx context.Context, cmd StructuredCommand) Outcome {
	inv := &Invocation{
		Name:      strings.ToLower(cmd.Name),
		Surface:   SurfaceSlash,
		GuildID:   cmd.GuildID,
		ChannelID: cmd.ChannelID,
		Invoker:   cmd.Invoker,
		Reply:     cmd.Reply,
	}
	inv.Invoker.GuildID = cmd.GuildID
	inv.Invoker.ChannelID = cmd.ChannelID

	def, found := r.Resolve(cmd.Name)
	if !found {
		r.logger.Warn("unknown slash command", zap.String("guild_id", cmd.GuildID), zap.String("command", cmd.Name))
		r.send(ctx, inv, inv.Private("Unknown command."))
		return OutcomeUnknown
	}
	if cmd.GuildID == "" {
		r.send(ctx, inv, inv.Private("This command can only be used in a server."))
		return OutcomeDirectMessage
	}

	inv.Name = def.Name
	inv.Prefix = r.prefixes.Prefix(ctx, cmd.GuildID)
	args, err := FromOptions(def.Params, cmd.Args)
	if err != nil {
		r.send(ctx, inv, argErrorResponse(inv, def, err))
		return OutcomeInvalid
	}
	inv.Args = args
	if def.Defer {
		r.acknowledge(ctx, inv)
	}
	r.dispatch(ctx, def, inv)
	return OutcomeDispatched
}

// acknowledge defers the interaction. On failure the reply falls back to a
// plain interaction response.
func (r *Router) acknowledge(ctx context.Context, inv *Invocation) {
	if err := r.messenger.Defer(ctx, inv.Reply, true); err != nil {
		r.logger.Warn("failed to defer interaction",
			zap.String("guild_id", inv.GuildID),
			zap.String("command", inv.Name),
			zap.Error(err),
		)
		return
	}
	inv.Reply.Deferred = true
}

func (r *Router) dispatch(ctx context.Context, def Definition, inv *Invocation) {
	resp := def.Handler(ctx, inv)
	if resp.Content == "" {
		resp.Content = "Done."
	}
	r.send(ctx, inv, resp)
	r.logger.Debug("command handled",
		zap.String("guild_id", inv.GuildID),
		zap.String("user_id", inv.Invoker.UserID),
		zap.String("command", def.Name),
		zap.Stringer("surface", inv.Surface),
	)
}

func (r *Router) send(ctx context.Context, inv *Invocation, resp platform.Response) {
	if err := r.messenger.Reply(ctx, inv.Reply, resp); err != nil {
		r.logger.Warn("failed to send reply",
			zap.String("guild_id", inv.GuildID),
			zap.String("command", inv.Name),
			zap.Error(err),
		)
	}
}

func argErrorResponse(inv *Invocation, def Definition, err error) platform.Response {
	var argErr *ArgError
	if !errors.As(err, &argErr) {
		return inv.Private("Invalid arguments.")
	}
	switch argErr.Reason {
	case ReasonInvalidUser:
		return inv.Private("I couldn't find that user.")
	case ReasonInvalidNumber:
		return inv.Private(fmt.Sprintf("`%s` must be a whole number.", argErr.Param.Name))
	case ReasonInvalidBool:
		return inv.Private(fmt.Sprintf("`%s` must be on or off.", argErr.Param.Name))
	default:
		return inv.Private(Usage(inv.UsagePrefix(), def))
	}
}

// Usage renders the usage hint of def for the given prefix.
func Usage(prefix string, def Definition) string {
	usage := def.Usage
	if usage == "" {
		usage = def.Name
	}
	return fmt.Sprintf("Usage: `%s%s`", prefix, usage)
}
