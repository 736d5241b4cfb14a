package reminder

import (
	"fmt"
	"time"
)

// Document colors, one per document class.
const (
	ColorCreated   = 0x00FF00
	ColorDeleted   = 0x00FF00
	ColorError     = 0xFF0000
	ColorListing   = 0x8D8F91
	ColorTriggered = 0xFFFFFF
)

// Document titles.
const (
	TitleCreated      = "Created new reminder"
	TitleTriggered    = "Reminder Triggered"
	TitleDeleted      = "Deleted reminder"
	TitleCreateFailed = "Failed to create reminder"
	TitleSaveFailed   = "Failed to save reminder"
	TitleDeleteFailed = "Failed to delete reminder"
	TitleListFailed   = "Error Getting Reminder List"
)

// ControlStyle is a rendering hint for an interactive control.
type ControlStyle int

const (
	StylePrimary ControlStyle = iota
	StyleSecondary
	StyleDanger
)

// Control is an interactive element attached to a document. The ID string is
// the only state the next interaction carries back.
type Control struct {
	ID       string
	Label    string
	Style    ControlStyle
	Disabled bool
}

// DocField is a named value in a document body.
type DocField struct {
	Name  string
	Value string
}

// Document is a platform-agnostic rendered message: title, body fields, a
// color hint and rows of interactive controls. The chat surface translates
// it into whatever the platform renders.
type Document struct {
	Title     string
	Body      string
	Fields    []DocField
	Color     int
	Controls  [][]Control
	Ephemeral bool
}

// newReminderDocument renders a reminder body: description, fire time,
// destination, and the optional source reference. The fire time uses the
// chat platform's timestamp markup so it displays in the reader's timezone.
func newReminderDocument(title string, at time.Time, rec Record, color int) Document {
	doc := Document{
		Title: title,
		Color: color,
		Fields: []DocField{
			{Name: "Description:", Value: rec.Description},
			{Name: "Reminder Time:", Value: fmt.Sprintf("<t:%d:F>", at.Unix())},
			{Name: "Channel:", Value: fmt.Sprintf("<#%s>", rec.ChannelID)},
		},
	}

	if rec.MessageURL != "" {
		doc.Fields = append(doc.Fields, DocField{Name: "Message Reference:", Value: rec.MessageURL})
	}

	return doc
}

// errorDocument renders a red document with a reason and no controls.
func errorDocument(title, reason string) Document {
	return Document{
		Title:     title,
		Body:      reason,
		Color:     ColorError,
		Ephemeral: true,
	}
}
