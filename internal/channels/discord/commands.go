package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"remindbot/internal/reminder"
)

// Command and modal identifiers. The modal custom id carries the referenced
// message id (or the noreply marker) the same way the delete controls carry
// the job id.
const (
	slashCommandName   = "reminder"
	subcommandCreate   = "create"
	subcommandList     = "list"
	contextCommandName = "Create reminder"

	createModalPrefix  = "RemindBot_createModal__"
	createModalNoReply = "noreply"
	inputTimeID        = "RemindBot_timeInput"
	inputDescriptionID = "RemindBot_descriptionInput"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        slashCommandName,
			Description: "Create, delete, or view your reminders.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subcommandCreate,
					Description: "Creates a reminder.",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subcommandList,
					Description: "Lists your reminders, which also allows you to delete them.",
				},
			},
		},
		{
			Name: contextCommandName,
			Type: discordgo.MessageApplicationCommand,
		},
	}
}

// createModal builds the reminder creation modal. messageID is the message
// the reminder was created from, or empty for a plain create.
func createModal(messageID string) *discordgo.InteractionResponse {
	suffix := messageID
	if suffix == "" {
		suffix = createModalNoReply
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: createModalPrefix + suffix,
			Title:    "Create a New Reminder",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID: inputTimeID,
							Label:    `When ("4 hours", "12/31/2025 8:30pm", etc)`,
							Style:    discordgo.TextInputShort,
							Required: true,
						},
					},
				},
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  inputDescriptionID,
							Label:     "Reminder description",
							Style:     discordgo.TextInputParagraph,
							Required:  true,
							MinLength: 1,
							MaxLength: reminder.MaxDescriptionLength,
						},
					},
				},
			},
		},
	}
}

// messageURL builds the canonical link to a guild message.
func messageURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}
