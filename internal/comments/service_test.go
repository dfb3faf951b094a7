package comments

import (
	"context"
	"errors"
	"testing"

	"github.com/lumen-lms/lumen-lms/internal/events"
	"github.com/lumen-lms/lumen-lms/internal/shared"
)

type stubRepo struct {
	comments map[string]Comment
}

func newStubRepo() *stubRepo {
	return &stubRepo{comments: map[string]Comment{}}
}

func (s *stubRepo) Create(_ context.Context, c *Comment) error {
	s.comments[c.ID] = *c
	return nil
}

func (s *stubRepo) Get(_ context.Context, id string) (Comment, error) {
	c, ok := s.comments[id]
	if !ok {
		return Comment{}, shared.ErrNotFound
	}
	return c, nil
}

func (s *stubRepo) ListByLesson(_ context.Context, lessonID string) ([]Comment, error) {
	var result []Comment
	for _, c := range s.comments {
		if c.LessonID == lessonID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *stubRepo) Delete(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

type capturePublisher struct {
	events []events.Event
}

func (p *capturePublisher) Publish(evt events.Event) {
	p.events = append(p.events, evt)
}

var (
	author  = shared.Actor{ID: "u1", TenantID: "t1", Role: shared.RoleStudent, Name: "Ada"}
	replier = shared.Actor{ID: "u2", TenantID: "t1", Role: shared.RoleStudent, Name: "Grace"}
)

func TestCreateTopLevelCommentPublishesNothing(t *testing.T) {
	repo := newStubRepo()
	pub := &capturePublisher{}
	svc := NewService(repo, pub, nil)

	comment, err := svc.Create(context.Background(), author, CreateInput{LessonID: "l1", Content: "first"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if comment.IsReply() {
		t.Fatalf("top-level comment must not be a reply")
	}
	if len(pub.events) != 0 {
		t.Fatalf("top-level comment must not publish events, got %+v", pub.events)
	}
}

func TestReplyPublishesCommentReplied(t *testing.T) {
	repo := newStubRepo()
	pub := &capturePublisher{}
	svc := NewService(repo, pub, nil)
	ctx := context.Background()

	parent, _ := svc.Create(ctx, author, CreateInput{LessonID: "l1", Content: "first"})
	reply, err := svc.Create(ctx, replier, CreateInput{LessonID: "l1", Content: "answer", ParentID: parent.ID})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}

	if len(pub.events) != 1 || pub.events[0].Type != events.CommentReplied {
		t.Fatalf("expected one comment.replied event, got %+v", pub.events)
	}
	payload := pub.events[0].Payload.(events.CommentRepliedPayload)
	if payload.ParentID != parent.ID || payload.ReplyID != reply.ID || payload.ActorName != "Grace" {
		t.Fatalf("payload mismatch: %+v", payload)
	}
}

func TestReplyToMissingParentFails(t *testing.T) {
	svc := NewService(newStubRepo(), &capturePublisher{}, nil)
	_, err := svc.Create(context.Background(), replier, CreateInput{LessonID: "l1", Content: "answer", ParentID: "nope"})
	if !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReplyAcrossLessonsRejected(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, &capturePublisher{}, nil)
	ctx := context.Background()

	parent, _ := svc.Create(ctx, author, CreateInput{LessonID: "l1", Content: "first"})
	if _, err := svc.Create(ctx, replier, CreateInput{LessonID: "l2", Content: "answer", ParentID: parent.ID}); err == nil {
		t.Fatalf("cross-lesson reply must be rejected")
	}
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, &capturePublisher{}, nil)
	ctx := context.Background()

	comment, _ := svc.Create(ctx, author, CreateInput{LessonID: "l1", Content: "first"})

	if err := svc.Delete(ctx, replier, comment.ID); !errors.Is(err, shared.ErrOwnership) {
		t.Fatalf("foreign delete must fail with ownership, got %v", err)
	}

	admin := shared.Actor{ID: "a1", TenantID: "t1", Role: shared.RoleAdmin}
	if err := svc.Delete(ctx, admin, comment.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestDeleteCrossTenantDenied(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, &capturePublisher{}, nil)
	ctx := context.Background()

	comment, _ := svc.Create(ctx, author, CreateInput{LessonID: "l1", Content: "first"})

	outsider := shared.Actor{ID: "a9", TenantID: "t2", Role: shared.RoleAdmin}
	if err := svc.Delete(ctx, outsider, comment.ID); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("cross-tenant delete must be denied, got %v", err)
	}
}
