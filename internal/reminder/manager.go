package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"remindbot/internal/jobstore"
	"remindbot/internal/logger"
	"remindbot/internal/timeparse"
)

// Manager owns the reminder lifecycle: creating, listing and deleting
// reminders against the job store. All documents it returns are ready for
// the chat surface; user mistakes come back as error-styled documents,
// internal faults as errors.
type Manager struct {
	store  *jobstore.Store
	parser *timeparse.Parser
	logger *logger.Logger
	now    func() time.Time
}

// NewManager creates a manager over the given store and time parser.
func NewManager(store *jobstore.Store, parser *timeparse.Parser, log *logger.Logger) *Manager {
	return &Manager{
		store:  store,
		parser: parser,
		logger: log,
		now:    time.Now,
	}
}

// Create parses the free-text time expression and persists a reminder job.
// A parse or schedule failure leaves the store untouched and is reported as
// an error-styled document; success returns the created-reminder document.
func (m *Manager) Create(ctx context.Context, rec Record, whenExpr string) *Document {
	if reason := validateRecord(rec); reason != "" {
		doc := errorDocument(TitleCreateFailed, reason)
		return &doc
	}

	at, err := m.parser.Parse(whenExpr, m.now())
	if err != nil {
		m.logger.WarnCtx(ctx, "rejected reminder time expression",
			logger.Field{Key: "expression", Value: whenExpr},
			logger.Field{Key: "user_id", Value: rec.UserID})
		doc := errorDocument(TitleCreateFailed, fmt.Sprintf("%v: %q", err, whenExpr))
		return &doc
	}

	job, err := m.store.Create(ctx, KindReminder, rec, at)
	if err != nil {
		m.logger.ErrorCtx(ctx, "failed to persist reminder", err,
			logger.Field{Key: "user_id", Value: rec.UserID})
		doc := errorDocument(TitleSaveFailed, "could not save the reminder, try again later")
		return &doc
	}

	m.logger.InfoCtx(ctx, "reminder created",
		logger.Field{Key: "job_id", Value: job.ID.String()},
		logger.Field{Key: "user_id", Value: rec.UserID},
		logger.Field{Key: "fire_at", Value: job.NextRunAt})

	doc := newReminderDocument(TitleCreated, *job.NextRunAt, rec, ColorCreated)
	doc.Ephemeral = true
	return &doc
}

// List renders the user's reminder at the requested position. Out-of-range
// positions wrap around, making the list circular. An empty list renders as
// an error-styled document with no controls. Store failures and invariant
// violations (a scheduled job without a fire time) propagate as errors.
func (m *Manager) List(ctx context.Context, userID, guildID string, index int) (*Document, error) {
	jobs, err := m.store.Query(ctx, jobstore.Filter{
		Kind:    KindReminder,
		UserID:  userID,
		GuildID: guildID,
	})
	if err != nil {
		return nil, err
	}

	count := len(jobs)
	if count == 0 {
		doc := errorDocument(TitleListFailed, "You have no reminders set.")
		return &doc, nil
	}

	index = NormalizeIndex(index, count)
	job := jobs[index]

	if job.NextRunAt == nil {
		return nil, fmt.Errorf("scheduled job %s has no fire time", job.ID)
	}

	var rec Record
	if err := json.Unmarshal(job.Payload, &rec); err != nil {
		return nil, fmt.Errorf("malformed payload on job %s: %w", job.ID, err)
	}

	doc := newReminderDocument(EncodeListTitle(index, count), *job.NextRunAt, rec, ColorListing)
	doc.Controls = ListingControls(job.ID)
	doc.Ephemeral = true
	return &doc, nil
}

// Delete cancels the job and re-renders the list at the fallback position.
// The cancel is scoped to the caller's user and guild, so a control id
// pointing at someone else's job deletes nothing. It returns the replacement
// list document (nil when the job was already gone, in which case the caller
// strips all controls) and a short-lived notice describing the outcome.
func (m *Manager) Delete(ctx context.Context, userID, guildID string, jobID uuid.UUID, fallbackIndex int) (*Document, *Document, error) {
	cancelled, err := m.store.CancelByID(ctx, jobID, jobstore.Filter{
		Kind:    KindReminder,
		UserID:  userID,
		GuildID: guildID,
	})
	if err != nil {
		return nil, nil, err
	}

	if cancelled == 0 {
		m.logger.WarnCtx(ctx, "delete targeted a missing reminder",
			logger.Field{Key: "job_id", Value: jobID.String()},
			logger.Field{Key: "user_id", Value: userID})
		notice := errorDocument(TitleDeleteFailed, "No reminders were deleted.")
		return nil, &notice, nil
	}

	m.logger.InfoCtx(ctx, "reminder deleted",
		logger.Field{Key: "job_id", Value: jobID.String()},
		logger.Field{Key: "user_id", Value: userID})

	list, err := m.List(ctx, userID, guildID, fallbackIndex)
	if err != nil {
		return nil, nil, err
	}

	notice := Document{Title: TitleDeleted, Color: ColorDeleted, Ephemeral: true}
	return list, &notice, nil
}

func validateRecord(rec Record) string {
	if strings.TrimSpace(rec.Description) == "" {
		return "description must not be empty"
	}
	if len([]rune(rec.Description)) > MaxDescriptionLength {
		return fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength)
	}
	if rec.UserID == "" || rec.ChannelID == "" || rec.GuildID == "" {
		return "missing user, channel or guild"
	}
	return ""
}
