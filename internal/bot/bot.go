// Package bot connects the command router to the Discord gateway.
package bot

import (
	"context"

	"yuno-bot/internal/command"
	"yuno-bot/internal/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg     config.Config
	logger  *zap.Logger
	session *discordgo.Session
	discord *Discord
	router  *command.Router
}

func New(cfg config.Config, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsDirectMessages

	return &Bot{
		cfg:     cfg,
		logger:  logger,
		session: session,
		discord: NewDiscord(session, logger),
	}, nil
}

// Actions exposes the platform adapter used by every module.
func (b *Bot) Actions() *Discord {
	return b.discord
}

// Start opens the gateway and registers slash commands for every router
// definition.
func (b *Bot) Start(router *command.Router) error {
	b.router = router
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands(router.Definitions())
}

// Close closes the gateway connection, giving up when ctx is done.
func (b *Bot) Close(ctx context.Context) error {
	if b.session == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		done <- b.session.Close()
	}()
	select {
	case err := <-done:
		if err != nil {
			b.logger.Warn("discord session close failed", zap.Error(err))
		}
		return err
	case <-ctx.Done():
		b.logger.Warn("discord session close timed out", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
