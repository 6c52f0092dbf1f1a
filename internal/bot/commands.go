package bot

import (
	"yuno-bot/internal/command"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// applicationCommands turns router definitions into the slash schema. Aliases
// are text-only.
func applicationCommands(defs []command.Definition) []*discordgo.ApplicationCommand {
	dmPermission := false
	commands := make([]*discordgo.ApplicationCommand, 0, len(defs))
	for _, def := range defs {
		description := def.Description
		if description == "" {
			description = def.Name
		}
		cmd := &discordgo.ApplicationCommand{
			Name:         def.Name,
			Description:  description,
			DMPermission: &dmPermission,
		}
		for _, param := range def.Params {
			cmd.Options = append(cmd.Options, commandOption(param))
		}
		commands = append(commands, cmd)
	}
	return commands
}

func commandOption(param command.Param) *discordgo.ApplicationCommandOption {
	description := param.Description
	if description == "" {
		description = param.Name
	}
	option := &discordgo.ApplicationCommandOption{
		Name:        param.Name,
		Description: description,
		Required:    param.Required,
	}
	switch param.Kind {
	case command.KindUser:
		option.Type = discordgo.ApplicationCommandOptionUser
		if param.AsText {
			option.Type = discordgo.ApplicationCommandOptionString
		}
	case command.KindInteger:
		option.Type = discordgo.ApplicationCommandOptionInteger
	case command.KindBoolean:
		option.Type = discordgo.ApplicationCommandOptionBoolean
	default:
		option.Type = discordgo.ApplicationCommandOptionString
	}
	return option
}

// registerCommands syncs the global command set: edit existing, create new,
// delete stale.
func (b *Bot) registerCommands(defs []command.Definition) error {
	commands := applicationCommands(defs)
	appID := b.session.State.User.ID

	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		b.logger.Warn("listing application commands failed, overwriting", zap.Error(err))
		_, err = b.session.ApplicationCommandBulkOverwrite(appID, "", commands)
		return err
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{}, len(commands))
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		if err := b.session.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
			b.logger.Warn("failed to delete stale command", zap.String("command", cmd.Name), zap.Error(err))
		}
	}
	b.logger.Info("slash commands registered", zap.Int("count", len(commands)))
	return nil
}
