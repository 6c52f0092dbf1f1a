package bot

import (
	"context"

	"yuno-bot/internal/command"
	"yuno-bot/internal/platform"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", event.User.Username),
		zap.Int("guilds", len(event.Guilds)),
	)
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil {
		return
	}
	if b.router == nil {
		return
	}
	outcome := b.router.HandleChat(context.Background(), chatMessageFromEvent(msg))
	if outcome == command.OutcomeDispatched {
		b.logger.Debug("text command dispatched", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID))
	}
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if b.router == nil {
		return
	}
	b.router.HandleStructured(context.Background(), structuredFromInteraction(interaction))
}

func chatMessageFromEvent(msg *discordgo.MessageCreate) command.ChatMessage {
	out := command.ChatMessage{
		ID:        msg.ID,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		Content:   msg.Content,
	}
	if msg.Author != nil {
		out.AuthorID = msg.Author.ID
		out.Automated = msg.Author.Bot
	}
	out.Member = platform.Member{
		UserID:    out.AuthorID,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
	}
	return out
}

func structuredFromInteraction(interaction *discordgo.InteractionCreate) command.StructuredCommand {
	data := interaction.ApplicationCommandData()
	cmd := command.StructuredCommand{
		Name:      data.Name,
		GuildID:   interaction.GuildID,
		ChannelID: interaction.ChannelID,
		Args:      make(map[string]any, len(data.Options)),
		Reply: platform.ReplyTarget{
			ChannelID:        interaction.ChannelID,
			ApplicationID:    interaction.AppID,
			InteractionID:    interaction.ID,
			InteractionToken: interaction.Token,
		},
	}

	cmd.Invoker = platform.Member{GuildID: interaction.GuildID, ChannelID: interaction.ChannelID}
	switch {
	case interaction.Member != nil:
		if interaction.Member.User != nil {
			cmd.Invoker.UserID = interaction.Member.User.ID
		}
		cmd.Invoker.Permissions = interaction.Member.Permissions
		cmd.Invoker.Resolved = true
	case interaction.User != nil:
		cmd.Invoker.UserID = interaction.User.ID
	}

	for _, option := range data.Options {
		if option == nil {
			continue
		}
		switch option.Type {
		case discordgo.ApplicationCommandOptionUser:
			cmd.Args[option.Name] = command.UserRef{ID: option.UserValue(nil).ID}
		case discordgo.ApplicationCommandOptionInteger:
			cmd.Args[option.Name] = option.IntValue()
		case discordgo.ApplicationCommandOptionBoolean:
			cmd.Args[option.Name] = option.BoolValue()
		case discordgo.ApplicationCommandOptionString:
			cmd.Args[option.Name] = option.StringValue()
		default:
			cmd.Args[option.Name] = option.Value
		}
	}
	return cmd
}
