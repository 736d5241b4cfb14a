package reminder

import (
	"context"
	"encoding/json"
	"fmt"

	"remindbot/internal/jobstore"
	"remindbot/internal/logger"
)

// Notifier delivers a triggered reminder to its destination, tagging the
// owning user. The chat surface implements it.
type Notifier interface {
	SendReminder(ctx context.Context, rec Record, doc Document) error
}

// DeliveryWorker handles fired reminder jobs: it renders the triggered
// document using the nominal fire time, delivers it, and removes the job.
// Any failure marks the job failed in the store for operator inspection; the
// job is not retried and the user is not told.
type DeliveryWorker struct {
	store    *jobstore.Store
	notifier Notifier
	logger   *logger.Logger
}

// NewDeliveryWorker creates a delivery worker over the store and notifier.
func NewDeliveryWorker(store *jobstore.Store, notifier Notifier, log *logger.Logger) *DeliveryWorker {
	return &DeliveryWorker{
		store:    store,
		notifier: notifier,
		logger:   log,
	}
}

// HandleJob processes one fired job. Registered with the scheduler under
// KindReminder.
func (w *DeliveryWorker) HandleJob(ctx context.Context, job jobstore.Job) error {
	if len(job.Payload) == 0 || job.LastRunAt == nil {
		err := fmt.Errorf("malformed fired job %s: missing payload or fire time", job.ID)
		w.fail(ctx, job, err.Error())
		return err
	}

	var rec Record
	if err := json.Unmarshal(job.Payload, &rec); err != nil {
		err = fmt.Errorf("malformed payload on fired job %s: %w", job.ID, err)
		w.fail(ctx, job, err.Error())
		return err
	}

	// The displayed time is the nominal fire time, not delivery time, so a
	// delayed delivery still shows when the reminder was meant for.
	doc := newReminderDocument(TitleTriggered, *job.LastRunAt, rec, ColorTriggered)

	if err := w.notifier.SendReminder(ctx, rec, doc); err != nil {
		err = fmt.Errorf("failed to deliver reminder %s: %w", job.ID, err)
		w.fail(ctx, job, err.Error())
		return err
	}

	// One-shot semantics: a delivered reminder never fires again.
	if err := w.store.Delete(ctx, job.ID); err != nil {
		w.fail(ctx, job, err.Error())
		return err
	}

	w.logger.InfoCtx(ctx, "reminder delivered",
		logger.Field{Key: "job_id", Value: job.ID.String()},
		logger.Field{Key: "user_id", Value: rec.UserID},
		logger.Field{Key: "channel_id", Value: rec.ChannelID})
	return nil
}

func (w *DeliveryWorker) fail(ctx context.Context, job jobstore.Job, reason string) {
	w.logger.ErrorCtx(ctx, "reminder delivery failed", fmt.Errorf("%s", reason),
		logger.Field{Key: "job_id", Value: job.ID.String()})

	if err := w.store.MarkFailed(ctx, job.ID, reason); err != nil {
		w.logger.ErrorCtx(ctx, "failed to mark job failed", err,
			logger.Field{Key: "job_id", Value: job.ID.String()})
	}
}
