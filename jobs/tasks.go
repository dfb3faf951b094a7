package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/lumen-lms/lumen-lms/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeWelcomeEmail is the task type for the post-registration email.
	TaskTypeWelcomeEmail = "mail:welcome"
	// TaskTypeNotificationCleanup purges old read notifications.
	TaskTypeNotificationCleanup = "notifications:cleanup"
)

// WelcomeEmailPayload describes the post-registration email job.
type WelcomeEmailPayload struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// NewWelcomeEmailTask constructs an Asynq task.
func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeWelcomeEmail, data), nil
}

// Mailer sends the actual email. The SMTP integration lives in the worker
// binary; tests inject a fake.
type Mailer interface {
	SendWelcome(ctx context.Context, userID, userName string) error
}

// LogMailer writes outgoing mail to the log instead of SMTP. Used in
// development and as the default when no SMTP relay is configured.
type LogMailer struct {
	Logger *slog.Logger
}

// SendWelcome logs the mail instead of delivering it.
func (m LogMailer) SendWelcome(_ context.Context, userID, userName string) error {
	m.Logger.Info("welcome email",
		slog.String("user_id", userID),
		slog.String("user_name", userName))
	return nil
}

// NewWelcomeEmailHandler returns the asynq handler for welcome emails.
func NewWelcomeEmailHandler(mailer Mailer, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("welcome_email")
		var payload WelcomeEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return tracker.End(asynq.SkipRetry)
		}
		return tracker.End(mailer.SendWelcome(ctx, payload.UserID, payload.UserName))
	}
}

// ReadNotificationPurger removes read notifications older than a cutoff.
// Implemented by the notifications repository.
type ReadNotificationPurger interface {
	PurgeRead(ctx context.Context, olderThan time.Time) (int64, error)
}

// NewNotificationCleanupTask constructs the cron task. The retention window is
// resolved at execution time from the handler, so the task carries no payload.
func NewNotificationCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeNotificationCleanup, nil)
}

// NewNotificationCleanupHandler returns the asynq handler deleting read
// notifications older than the retention window.
func NewNotificationCleanupHandler(purger ReadNotificationPurger, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("notification_cleanup")
		cutoff := time.Now().UTC().Add(-retention)
		removed, err := purger.PurgeRead(ctx, cutoff)
		if err != nil {
			return tracker.End(err)
		}
		logger.Info("notification cleanup",
			slog.Int64("removed", removed),
			slog.Time("cutoff", cutoff))
		return tracker.End(nil)
	}
}
