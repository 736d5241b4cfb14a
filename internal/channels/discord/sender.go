package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"remindbot/internal/logger"
	"remindbot/internal/reminder"
)

// Sender delivers triggered reminders to their origin channel. It implements
// reminder.Notifier over the live gateway session.
type Sender struct {
	session *discordgo.Session
	logger  *logger.Logger
}

// NewSender wraps the connector's session for reminder delivery. It must be
// created after Start, when the session exists.
func (c *Connector) NewSender() *Sender {
	return &Sender{session: c.session, logger: c.logger}
}

// SendReminder posts the triggered-reminder embed to the reminder's channel,
// mentioning the user above the embed. A channel that no longer exists or is
// unreachable reports an error so the job is marked failed.
func (s *Sender) SendReminder(ctx context.Context, rec reminder.Record, doc reminder.Document) error {
	if _, err := s.session.Channel(rec.ChannelID); err != nil {
		return fmt.Errorf("channel %s unavailable: %w", rec.ChannelID, err)
	}

	_, err := s.session.ChannelMessageSendComplex(rec.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s>", rec.UserID),
		Embeds:  []*discordgo.MessageEmbed{renderEmbed(&doc)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send reminder message: %w", err)
	}

	s.logger.InfoCtx(ctx, "reminder message sent",
		logger.Field{Key: "channel_id", Value: rec.ChannelID},
		logger.Field{Key: "user_id", Value: rec.UserID})
	return nil
}
