package discord

import (
	"github.com/bwmarrin/discordgo"

	"remindbot/internal/reminder"
)

// renderEmbed translates a reminder document into a Discord embed.
func renderEmbed(doc *reminder.Document) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       doc.Title,
		Description: doc.Body,
		Color:       doc.Color,
	}

	for _, f := range doc.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  f.Name,
			Value: f.Value,
		})
	}

	return embed
}

// renderComponents translates the document's control rows into button rows.
// The returned slice is non-nil even when empty so message edits replace any
// previous components instead of leaving them in place.
func renderComponents(doc *reminder.Document) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, len(doc.Controls))

	for _, row := range doc.Controls {
		var buttons []discordgo.MessageComponent
		for _, ctl := range row {
			buttons = append(buttons, discordgo.Button{
				CustomID: ctl.ID,
				Label:    ctl.Label,
				Style:    buttonStyle(ctl.Style),
				Disabled: ctl.Disabled,
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}

	return rows
}

func buttonStyle(style reminder.ControlStyle) discordgo.ButtonStyle {
	switch style {
	case reminder.StyleDanger:
		return discordgo.DangerButton
	case reminder.StyleSecondary:
		return discordgo.SecondaryButton
	default:
		return discordgo.PrimaryButton
	}
}

func responseFlags(doc *reminder.Document) discordgo.MessageFlags {
	if doc.Ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}
