package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lumen-lms/lumen-lms/internal/events"
	"github.com/lumen-lms/lumen-lms/internal/observability"
)

// Directory resolves event payloads into concrete recipients. Implemented by
// the courses, users and comments repositories.
type Directory interface {
	EnrolledStudents(ctx context.Context, courseID string) ([]UserRef, error)
	TenantStudents(ctx context.Context, tenantID string) ([]UserRef, error)
	CourseInstructor(ctx context.Context, courseID string) (UserRef, error)
	Comment(ctx context.Context, commentID string) (CommentRef, error)
}

// Mailer enqueues transactional email jobs. Failures are absorbed; email is a
// best-effort side channel next to the persisted notification.
type Mailer interface {
	EnqueueWelcomeEmail(ctx context.Context, userID, userName string) error
}

// Dispatcher is the standing event subscriber that turns domain events into
// notification rows. Every failure inside a delivery is logged and skipped:
// a missed notification never fails the action that triggered it.
type Dispatcher struct {
	repo      Repository
	directory Directory
	mailer    Mailer
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewDispatcher constructs a Dispatcher. mailer and metrics may be nil.
func NewDispatcher(repo Repository, directory Directory, mailer Mailer, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{repo: repo, directory: directory, mailer: mailer, logger: logger, metrics: metrics}
}

// Register subscribes the dispatcher to every domain event type it handles.
// Must run before the bus starts.
func (d *Dispatcher) Register(bus *events.Bus) error {
	for _, t := range []events.Type{
		events.LessonCreated,
		events.CoursePublished,
		events.UserEnrolled,
		events.UserRegistered,
		events.CommentLiked,
		events.CommentReplied,
	} {
		if err := bus.Subscribe(t, d.HandleEvent); err != nil {
			return err
		}
	}
	return nil
}

// HandleEvent routes one event to its fan-out rule. A returned error means
// the payload was unusable; per-recipient failures are absorbed inside.
func (d *Dispatcher) HandleEvent(ctx context.Context, evt events.Event) error {
	switch evt.Type {
	case events.LessonCreated:
		return d.handleLessonCreated(ctx, evt)
	case events.CoursePublished:
		return d.handleCoursePublished(ctx, evt)
	case events.UserEnrolled:
		return d.handleUserEnrolled(ctx, evt)
	case events.UserRegistered:
		return d.handleUserRegistered(ctx, evt)
	case events.CommentLiked:
		return d.handleCommentLiked(ctx, evt)
	case events.CommentReplied:
		return d.handleCommentReplied(ctx, evt)
	default:
		return fmt.Errorf("notifications: unhandled event type %s", evt.Type)
	}
}

func (d *Dispatcher) handleLessonCreated(ctx context.Context, evt events.Event) error {
	payload, ok := evt.Payload.(events.LessonCreatedPayload)
	if !ok {
		return fmt.Errorf("notifications: bad payload for %s", evt.Type)
	}
	students, err := d.directory.EnrolledStudents(ctx, payload.CourseID)
	if err != nil {
		return fmt.Errorf("notifications: enrolled students for %s: %w", payload.CourseID, err)
	}
	message := lessonCreatedMessage(payload.LessonName, payload.CourseTitle)
	data := map[string]string{
		"event_id":  evt.ID,
		"course_id": payload.CourseID,
		"lesson_id": payload.LessonID,
	}
	for _, student := range students {
		d.deliver(ctx, evt, student.ID, KindLessonCreated, message, data)
	}
	return nil
}

func (d *Dispatcher) handleCoursePublished(ctx context.Context, evt events.Event) error {
	payload, ok := evt.Payload.(events.CoursePublishedPayload)
	if !ok {
		return fmt.Errorf("notifications: bad payload for %s", evt.Type)
	}
	students, err := d.directory.TenantStudents(ctx, evt.TenantID)
	if err != nil {
		return fmt.Errorf("notifications: tenant students for %s: %w", evt.TenantID, err)
	}
	message := coursePublishedMessage(payload.CourseTitle)
	data := map[string]string{
		"event_id":  evt.ID,
		"course_id": payload.CourseID,
	}
	for _, student := range students {
		d.deliver(ctx, evt, student.ID, KindCoursePublished, message, data)
	}
	return nil
}

func (d *Dispatcher) handleUserEnrolled(ctx context.Context, evt events.Event) error {
	payload, ok := evt.Payload.(events.UserEnrolledPayload)
	if !ok {
		return fmt.Errorf("notifications: bad payload for %s", evt.Type)
	}
	instructor, err := d.directory.CourseInstructor(ctx, payload.CourseID)
	if err != nil {
		// Recipient resolution failure: log and skip, never escalate.
		d.metrics.NotificationSkipped("missing_recipient")
		d.logger.Warn("enrollment notification skipped",
			slog.String("course_id", payload.CourseID),
			slog.Any("error", err))
		return nil
	}
	message := enrollmentMessage(payload.StudentName, payload.CourseTitle, evt.OccurredAt)
	data := map[string]string{
		"event_id":   evt.ID,
		"course_id":  payload.CourseID,
		"student_id": payload.StudentID,
	}
	d.deliver(ctx, evt, instructor.ID, KindEnrollment, message, data)
	return nil
}

func (d *Dispatcher) handleUserRegistered(ctx context.Context, evt events.Event) error {
	payload, ok := evt.Payload.(events.UserRegisteredPayload)
	if !ok {
		return fmt.Errorf("notifications: bad payload for %s", evt.Type)
	}
	message := welcomeMessage(payload.UserName)
	data := map[string]string{
		"event_id": evt.ID,
		"user_id":  payload.UserID,
	}
	d.deliver(ctx, evt, payload.UserID, KindWelcome, message, data)
	if d.mailer != nil {
		if err := d.mailer.EnqueueWelcomeEmail(ctx, payload.UserID, payload.UserName); err != nil {
			d.logger.Warn("welcome email enqueue failed",
				slog.String("user_id", payload.UserID),
				slog.Any("error", err))
		}
	}
	return nil
}

func (d *Dispatcher) handleCommentLiked(ctx context.Context, evt events.Event) error {
	payload, ok := evt.Payload.(events.CommentLikedPayload)
	if !ok {
		return fmt.Errorf("notifications: bad payload for %s", evt.Type)
	}
	comment, err := d.directory.Comment(ctx, payload.CommentID)
	if err != nil {
		d.metrics.NotificationSkipped("missing_recipient")
		d.logger.Warn("like notification skipped",
			slog.String("comment_id", payload.CommentID),
			slog.Any("error", err))
		return nil
	}
	// The self-notification guard runs before any persistence.
	if comment.AuthorID == payload.ActorID {
		d.metrics.NotificationSkipped("self_notification")
		return nil
	}
	message := commentLikedMessage(payload.ActorName, comment.Content)
	data := map[string]string{
		"event_id":   evt.ID,
		"comment_id": payload.CommentID,
		"actor_id":   payload.ActorID,
	}
	d.deliver(ctx, evt, comment.AuthorID, KindCommentLiked, message, data)
	return nil
}

func (d *Dispatcher) handleCommentReplied(ctx context.Context, evt events.Event) error {
	payload, ok := evt.Payload.(events.CommentRepliedPayload)
	if !ok {
		return fmt.Errorf("notifications: bad payload for %s", evt.Type)
	}
	parent, err := d.directory.Comment(ctx, payload.ParentID)
	if err != nil {
		d.metrics.NotificationSkipped("missing_recipient")
		d.logger.Warn("reply notification skipped",
			slog.String("comment_id", payload.ParentID),
			slog.Any("error", err))
		return nil
	}
	if parent.AuthorID == payload.ActorID {
		d.metrics.NotificationSkipped("self_notification")
		return nil
	}
	message := commentRepliedMessage(payload.ActorName, payload.Content)
	data := map[string]string{
		"event_id":   evt.ID,
		"comment_id": payload.ParentID,
		"reply_id":   payload.ReplyID,
		"lesson_id":  payload.LessonID,
		"actor_id":   payload.ActorID,
	}
	d.deliver(ctx, evt, parent.AuthorID, KindCommentReplied, message, data)
	return nil
}

// deliver persists one notification row. Failures are logged and swallowed so
// the remaining recipients of a fan-out still get theirs.
func (d *Dispatcher) deliver(ctx context.Context, evt events.Event, userID string, kind Kind, message string, data map[string]string) {
	n := &Notification{
		ID:       uuid.NewString(),
		UserID:   userID,
		TenantID: evt.TenantID,
		Kind:     kind,
		Message:  message,
		Data:     data,
	}
	if err := d.repo.Create(ctx, n); err != nil {
		d.metrics.NotificationSkipped("persistence_error")
		d.logger.Error("notification persist failed",
			slog.String("kind", string(kind)),
			slog.String("user_id", userID),
			slog.String("event_id", evt.ID),
			slog.Any("error", err))
		return
	}
	d.metrics.NotificationCreated(string(kind))
}
