package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"remindbot/internal/logger"
	"remindbot/internal/reminder"
)

func (c *Connector) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if user := interactionUser(i); user == nil || user.ID == s.State.User.ID {
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		c.handleCommand(s, i)
	case discordgo.InteractionModalSubmit:
		c.handleModalSubmit(s, i)
	case discordgo.InteractionMessageComponent:
		c.handleComponent(s, i)
	}
}

func (c *Connector) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	switch data.Name {
	case contextCommandName:
		c.respond(s, i, createModal(data.TargetID))

	case slashCommandName:
		if len(data.Options) == 0 {
			return
		}
		switch data.Options[0].Name {
		case subcommandCreate:
			c.respond(s, i, createModal(""))
		case subcommandList:
			c.handleList(s, i)
		}
	}
}

// handleList renders the caller's first reminder behind a deferred ephemeral
// reply, since the store query may outlive the interaction ack window.
func (c *Connector) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !c.deferEphemeral(s, i) {
		return
	}

	user := interactionUser(i)
	doc, err := c.manager.List(c.ctx, user.ID, i.GuildID, 0)
	if err != nil {
		c.logger.Error("failed to list reminders", err,
			logger.Field{Key: "user_id", Value: user.ID})
		doc = internalErrorDocument(reminder.TitleListFailed)
	}

	c.editDeferred(s, i, doc)
}

// handleModalSubmit turns a submitted creation modal into a reminder. The
// modal custom id carries the source message id for context-menu creates.
func (c *Connector) handleModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	if !strings.HasPrefix(data.CustomID, createModalPrefix) {
		return
	}

	if !c.deferEphemeral(s, i) {
		return
	}

	inputs := modalInputs(data)
	user := interactionUser(i)

	rec := reminder.Record{
		UserID:      user.ID,
		ChannelID:   i.ChannelID,
		GuildID:     i.GuildID,
		Description: inputs[inputDescriptionID],
	}
	if msgID := strings.TrimPrefix(data.CustomID, createModalPrefix); msgID != createModalNoReply {
		rec.MessageURL = messageURL(i.GuildID, i.ChannelID, msgID)
	}

	doc := c.manager.Create(c.ctx, rec, inputs[inputTimeID])
	c.editDeferred(s, i, doc)
}

// handleComponent routes listing button clicks. Anyone but the user who
// invoked the listing gets a silent acknowledgement and no state change.
func (c *Connector) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !c.authorized(i) {
		c.ackSilent(s, i)
		return
	}

	customID := i.MessageComponentData().CustomID

	switch {
	case customID == reminder.BtnPrev:
		c.handlePage(s, i, -1)
	case customID == reminder.BtnNext:
		c.handlePage(s, i, +1)
	case strings.HasPrefix(customID, reminder.DelPromptPrefix):
		c.handleDeletePrompt(s, i, customID)
	case strings.HasPrefix(customID, reminder.DelConfirmPrefix):
		c.handleDeleteConfirm(s, i, customID)
	case strings.HasPrefix(customID, reminder.DelCancelPrefix):
		c.handleDeleteCancel(s, i, customID)
	default:
		c.ackSilent(s, i)
	}
}

func (c *Connector) handlePage(s *discordgo.Session, i *discordgo.InteractionCreate, step int) {
	index, ok := c.currentIndex(i)
	if !ok {
		c.ackSilent(s, i)
		return
	}

	user := interactionUser(i)
	doc, err := c.manager.List(c.ctx, user.ID, i.GuildID, index+step)
	if err != nil {
		c.logger.Error("failed to page reminder list", err,
			logger.Field{Key: "user_id", Value: user.ID})
		c.ackSilent(s, i)
		return
	}

	c.updateMessage(s, i, doc)
}

// handleDeletePrompt swaps the listing buttons for a confirm row. The embed
// is untouched so the position survives in the title.
func (c *Connector) handleDeletePrompt(s *discordgo.Session, i *discordgo.InteractionCreate, customID string) {
	jobID, err := reminder.DecodeJobID(customID)
	if err != nil {
		c.ackSilent(s, i)
		return
	}

	c.swapComponents(s, i, reminder.PromptControls(jobID))
}

func (c *Connector) handleDeleteCancel(s *discordgo.Session, i *discordgo.InteractionCreate, customID string) {
	jobID, err := reminder.DecodeJobID(customID)
	if err != nil {
		c.ackSilent(s, i)
		return
	}

	c.swapComponents(s, i, reminder.ListingControls(jobID))
}

// handleDeleteConfirm cancels the reminder, replaces the listing with the
// previous position, and reports the outcome in an ephemeral follow-up.
func (c *Connector) handleDeleteConfirm(s *discordgo.Session, i *discordgo.InteractionCreate, customID string) {
	jobID, err := reminder.DecodeJobID(customID)
	if err != nil {
		c.ackSilent(s, i)
		return
	}

	index, _ := c.currentIndex(i)
	user := interactionUser(i)

	list, notice, err := c.manager.Delete(c.ctx, user.ID, i.GuildID, jobID, index-1)
	if err != nil {
		c.logger.Error("failed to delete reminder", err,
			logger.Field{Key: "job_id", Value: jobID.String()},
			logger.Field{Key: "user_id", Value: user.ID})
		c.ackSilent(s, i)
		return
	}

	if list != nil {
		c.updateMessage(s, i, list)
	} else {
		c.stripComponents(s, i)
	}

	if notice != nil {
		c.followUp(s, i, notice)
	}
}

// authorized reports whether the clicking user is the one who invoked the
// command that produced the message.
func (c *Connector) authorized(i *discordgo.InteractionCreate) bool {
	if i.Message == nil || i.Message.Interaction == nil || i.Message.Interaction.User == nil {
		return false
	}
	return interactionUser(i).ID == i.Message.Interaction.User.ID
}

// currentIndex recovers the zero-based list position from the embed title.
// An undecodable title is logged; the caller falls back or no-ops.
func (c *Connector) currentIndex(i *discordgo.InteractionCreate) (int, bool) {
	if i.Message == nil || len(i.Message.Embeds) == 0 {
		c.logger.Warn("component click on a message without a list embed",
			logger.Field{Key: "interaction_id", Value: i.ID})
		return 0, false
	}
	index, err := reminder.DecodeListTitle(i.Message.Embeds[0].Title)
	if err != nil {
		c.logger.Warn("list position not decodable from embed title",
			logger.Field{Key: "title", Value: i.Message.Embeds[0].Title},
			logger.Field{Key: "interaction_id", Value: i.ID})
		return 0, false
	}
	return index, true
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func modalInputs(data discordgo.ModalSubmitInteractionData) map[string]string {
	inputs := make(map[string]string)
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok {
				inputs[input.CustomID] = input.Value
			}
		}
	}
	return inputs
}

func internalErrorDocument(title string) *reminder.Document {
	return &reminder.Document{
		Title:     title,
		Body:      "Something went wrong, try again later.",
		Color:     reminder.ColorError,
		Ephemeral: true,
	}
}

// Response helpers. Every branch of the interaction handlers ends in exactly
// one of these; a failed ack is logged and the interaction abandoned.

func (c *Connector) respond(s *discordgo.Session, i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) {
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		c.logger.Error("failed to respond to interaction", err,
			logger.Field{Key: "interaction_id", Value: i.ID})
	}
}

func (c *Connector) deferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		c.logger.Error("failed to defer interaction", err,
			logger.Field{Key: "interaction_id", Value: i.ID})
		return false
	}
	return true
}

func (c *Connector) ackSilent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c.respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

func (c *Connector) editDeferred(s *discordgo.Session, i *discordgo.InteractionCreate, doc *reminder.Document) {
	embeds := []*discordgo.MessageEmbed{renderEmbed(doc)}
	components := renderComponents(doc)

	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		c.logger.Error("failed to edit deferred response", err,
			logger.Field{Key: "interaction_id", Value: i.ID})
	}
}

func (c *Connector) updateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, doc *reminder.Document) {
	c.respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{renderEmbed(doc)},
			Components: renderComponents(doc),
		},
	})
}

func (c *Connector) swapComponents(s *discordgo.Session, i *discordgo.InteractionCreate, controls [][]reminder.Control) {
	c.respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     i.Message.Embeds,
			Components: renderComponents(&reminder.Document{Controls: controls}),
		},
	})
}

func (c *Connector) stripComponents(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c.respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     i.Message.Embeds,
			Components: []discordgo.MessageComponent{},
		},
	})
}

func (c *Connector) followUp(s *discordgo.Session, i *discordgo.InteractionCreate, doc *reminder.Document) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{renderEmbed(doc)},
		Flags:  responseFlags(doc),
	})
	if err != nil {
		c.logger.Error("failed to send follow-up", err,
			logger.Field{Key: "interaction_id", Value: i.ID})
	}
}
