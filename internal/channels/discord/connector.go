// Package discord connects the reminder domain to Discord using discordgo.
// It registers the application commands, translates interaction events into
// manager calls, renders documents as embeds and message components, and
// delivers triggered reminders.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"remindbot/internal/config"
	"remindbot/internal/logger"
	"remindbot/internal/reminder"
)

// Connector owns the Discord session. The session handle is injected into
// everything that needs it; nothing in the package holds global state.
type Connector struct {
	cfg     config.DiscordConfig
	logger  *logger.Logger
	manager *reminder.Manager

	session  *discordgo.Session
	ctx      context.Context
	cancel   context.CancelFunc
	commands []*discordgo.ApplicationCommand
}

// New creates a Discord connector over the given reminder manager.
func New(cfg config.DiscordConfig, log *logger.Logger, manager *reminder.Manager) *Connector {
	return &Connector{
		cfg:     cfg,
		logger:  log,
		manager: manager,
	}
}

// Start opens the gateway session and registers the application commands.
func (c *Connector) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + c.cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}

	c.session = session
	c.ctx, c.cancel = context.WithCancel(ctx)

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	session.AddHandler(c.onInteractionCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}

	c.logger.Info("discord session opened",
		logger.Field{Key: "bot_id", Value: session.State.User.ID},
		logger.Field{Key: "username", Value: session.State.User.Username})

	if err := c.registerCommands(); err != nil {
		session.Close()
		return err
	}

	return nil
}

// Stop closes the gateway session. Registered commands are left in place so
// restarts do not flap the command list.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.session == nil {
		return nil
	}
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	c.logger.Info("discord session closed")
	return nil
}

func (c *Connector) registerCommands() error {
	appID := c.session.State.User.ID

	for _, cmd := range commandDefinitions() {
		created, err := c.session.ApplicationCommandCreate(appID, c.cfg.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("failed to register command %q: %w", cmd.Name, err)
		}
		c.commands = append(c.commands, created)
		c.logger.Info("registered application command",
			logger.Field{Key: "command", Value: created.Name},
			logger.Field{Key: "guild_id", Value: c.cfg.GuildID})
	}

	return nil
}
