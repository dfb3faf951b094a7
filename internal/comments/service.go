package comments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lumen-lms/lumen-lms/internal/events"
	"github.com/lumen-lms/lumen-lms/internal/platform/httpx"
	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Publisher schedules domain events. Satisfied by *events.Bus.
type Publisher interface {
	Publish(evt events.Event)
}

// Service handles comment creation, listing and removal.
type Service struct {
	repo   Repository
	bus    Publisher
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, bus Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, bus: bus, logger: logger}
}

// CreateInput carries comment creation fields.
type CreateInput struct {
	LessonID string
	Content  string
	ParentID string
}

// Create stores a comment. A reply additionally publishes a comment.replied
// event carrying the parent reference for the notification fan-out.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateInput) (Comment, error) {
	comment := Comment{
		ID:       uuid.NewString(),
		TenantID: actor.TenantID,
		LessonID: input.LessonID,
		AuthorID: actor.ID,
		Content:  input.Content,
		ParentID: input.ParentID,
	}
	if comment.IsReply() {
		parent, err := s.repo.Get(ctx, comment.ParentID)
		if err != nil {
			return Comment{}, fmt.Errorf("parent comment: %w", err)
		}
		if parent.LessonID != comment.LessonID {
			return Comment{}, fmt.Errorf("%w: reply must target the same lesson", httpx.ErrValidation)
		}
		if parent.TenantID != actor.TenantID {
			return Comment{}, fmt.Errorf("%w: cross-tenant access not allowed", shared.ErrForbidden)
		}
	}
	if err := s.repo.Create(ctx, &comment); err != nil {
		return Comment{}, err
	}
	if comment.IsReply() && s.bus != nil {
		s.bus.Publish(events.New(events.CommentReplied, actor.TenantID, actor.ID, events.CommentRepliedPayload{
			ParentID:  comment.ParentID,
			ReplyID:   comment.ID,
			LessonID:  comment.LessonID,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Content:   comment.Content,
		}))
	}
	return comment, nil
}

// ListByLesson returns the comments under a lesson.
func (s *Service) ListByLesson(ctx context.Context, actor shared.Actor, lessonID string) ([]Comment, error) {
	rows, err := s.repo.ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	for _, c := range rows {
		if c.TenantID != actor.TenantID {
			return nil, fmt.Errorf("%w: cross-tenant access not allowed", shared.ErrForbidden)
		}
	}
	return rows, nil
}

// Delete removes a comment. Authors remove their own; admins remove any
// comment of their tenant.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id string) error {
	comment, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if comment.TenantID != actor.TenantID {
		return fmt.Errorf("%w: cross-tenant access not allowed", shared.ErrForbidden)
	}
	if comment.AuthorID != actor.ID && actor.Role != shared.RoleAdmin {
		return fmt.Errorf("%w: comment %s", shared.ErrOwnership, id)
	}
	return s.repo.Delete(ctx, id)
}
