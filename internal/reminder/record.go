// Package reminder implements the reminder domain: the job payload, the
// lifecycle manager (create, list, delete), the stateless pagination and
// deletion-confirmation protocol carried entirely by rendered text and
// control identifiers, and the delivery worker that fires due reminders.
package reminder

// KindReminder is the job kind under which reminders are stored.
const KindReminder = "reminder"

// MaxDescriptionLength bounds the description at the input surface.
const MaxDescriptionLength = 80

// Record is the payload stored in each reminder job. All fields are
// immutable after creation. The user_id and guild_id JSON keys are what the
// store's listing filter matches on.
type Record struct {
	UserID      string `json:"user_id"`
	ChannelID   string `json:"channel_id"`
	GuildID     string `json:"guild_id"`
	Description string `json:"description"`
	MessageURL  string `json:"message_url,omitempty"`
}
