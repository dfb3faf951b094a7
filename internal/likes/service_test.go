package likes

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lumen-lms/lumen-lms/internal/authz"
	"github.com/lumen-lms/lumen-lms/internal/events"
	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// memoryRepo mimics the storage layer's atomicity: insert-if-absent and
// delete-if-present are single operations under one lock.
type memoryRepo struct {
	mu   sync.Mutex
	rows map[string]Like
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[string]Like)}
}

func relationKey(userID, targetID string, kind TargetKind) string {
	return userID + "|" + targetID + "|" + string(kind)
}

func (m *memoryRepo) Insert(ctx context.Context, like *Like) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := relationKey(like.UserID, like.TargetID, like.TargetKind)
	if _, exists := m.rows[key]; exists {
		return false, nil
	}
	m.rows[key] = *like
	return true, nil
}

func (m *memoryRepo) Delete(ctx context.Context, userID, targetID string, kind TargetKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := relationKey(userID, targetID, kind)
	if _, exists := m.rows[key]; !exists {
		return false, nil
	}
	delete(m.rows, key)
	return true, nil
}

func (m *memoryRepo) Count(ctx context.Context, targetID string, kind TargetKind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, row := range m.rows {
		if row.TargetID == targetID && row.TargetKind == kind {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) Exists(ctx context.Context, userID, targetID string, kind TargetKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.rows[relationKey(userID, targetID, kind)]
	return exists, nil
}

// stubResolver serves targets from a seeded map and reports anything else as
// missing, the same contract the storage-backed resolver has.
type stubResolver struct {
	targets map[string]Target
}

func newStubResolver() *stubResolver {
	return &stubResolver{targets: make(map[string]Target)}
}

func (s *stubResolver) seed(kind TargetKind, targetID string, target Target) {
	s.targets[string(kind)+"|"+targetID] = target
}

func (s *stubResolver) Resolve(_ context.Context, targetID string, kind TargetKind) (Target, error) {
	target, ok := s.targets[string(kind)+"|"+targetID]
	if !ok {
		return Target{}, shared.ErrNotFound
	}
	return target, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Publish(evt events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *capturePublisher) published() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Event, len(c.events))
	copy(out, c.events)
	return out
}

var testActor = shared.Actor{ID: "u1", TenantID: "t1", Role: shared.RoleStudent, Name: "Ada"}

func publishedTarget(tenantID string) Target {
	return Target{TenantID: tenantID, Status: authz.StatusPublished}
}

func TestToggleActivatesThenDeactivates(t *testing.T) {
	repo := newMemoryRepo()
	resolver := newStubResolver()
	resolver.seed(TargetLesson, "lesson-1", publishedTarget("t1"))
	pub := &capturePublisher{}
	svc := NewService(repo, resolver, pub)
	ctx := context.Background()

	first, err := svc.Toggle(ctx, testActor, "lesson-1", TargetLesson)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !first.Active || first.Count != 1 {
		t.Fatalf("expected active with count 1, got %+v", first)
	}

	second, err := svc.Toggle(ctx, testActor, "lesson-1", TargetLesson)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if second.Active || second.Count != 0 {
		t.Fatalf("expected inactive with count 0, got %+v", second)
	}

	if got := len(pub.published()); got != 1 {
		t.Fatalf("expected exactly one event for one activation, got %d", got)
	}
}

func TestToggleNoEventOnDeactivation(t *testing.T) {
	repo := newMemoryRepo()
	resolver := newStubResolver()
	resolver.seed(TargetComment, "comment-1", publishedTarget("t1"))
	pub := &capturePublisher{}
	svc := NewService(repo, resolver, pub)
	ctx := context.Background()

	if _, err := svc.Toggle(ctx, testActor, "comment-1", TargetComment); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := svc.Toggle(ctx, testActor, "comment-1", TargetComment); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	published := pub.published()
	if len(published) != 1 {
		t.Fatalf("expected one event, got %d", len(published))
	}
	if published[0].Type != events.CommentLiked {
		t.Fatalf("expected comment.liked, got %s", published[0].Type)
	}
	payload, ok := published[0].Payload.(events.CommentLikedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", published[0].Payload)
	}
	if payload.CommentID != "comment-1" || payload.ActorID != "u1" || payload.ActorName != "Ada" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestToggleConcurrentCallsPublishAtMostOneActivationEvent(t *testing.T) {
	repo := newMemoryRepo()
	resolver := newStubResolver()
	resolver.seed(TargetComment, "comment-7", publishedTarget("t1"))
	pub := &capturePublisher{}
	svc := NewService(repo, resolver, pub)
	ctx := context.Background()

	const calls = 8
	var wg sync.WaitGroup
	results := make([]ToggleResult, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.Toggle(ctx, testActor, "comment-7", TargetComment)
			if err != nil {
				t.Errorf("toggle %d: %v", i, err)
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	activations := 0
	for _, r := range results {
		if r.Active {
			activations++
		}
	}
	// Each activation is paired with exactly one published event; duplicate
	// inserts are impossible under the unique relation.
	if got := len(pub.published()); got != activations {
		t.Fatalf("activations=%d but events=%d", activations, got)
	}
	status, err := svc.Status(ctx, testActor, "comment-7", TargetComment)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Count != 0 && status.Count != 1 {
		t.Fatalf("relation must never hold duplicate rows, count=%d", status.Count)
	}
	if status.Active != (status.Count == 1) {
		t.Fatalf("status inconsistent: %+v", status)
	}
}

func TestStatusAfterToggle(t *testing.T) {
	repo := newMemoryRepo()
	resolver := newStubResolver()
	resolver.seed(TargetLesson, "lesson-x", publishedTarget("t1"))
	svc := NewService(repo, resolver, &capturePublisher{})
	ctx := context.Background()

	result, err := svc.Toggle(ctx, testActor, "lesson-x", TargetLesson)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !result.Active || result.Count != 1 {
		t.Fatalf("expected active count 1, got %+v", result)
	}

	status, err := svc.Status(ctx, testActor, "lesson-x", TargetLesson)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Active || status.Count != 1 {
		t.Fatalf("status should match toggle result, got %+v", status)
	}
}

func TestToggleDeniedAcrossTenants(t *testing.T) {
	repo := newMemoryRepo()
	resolver := newStubResolver()
	resolver.seed(TargetComment, "comment-b", publishedTarget("t2"))
	pub := &capturePublisher{}
	svc := NewService(repo, resolver, pub)
	ctx := context.Background()

	if _, err := svc.Toggle(ctx, testActor, "comment-b", TargetComment); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("cross-tenant toggle must be forbidden, got %v", err)
	}
	if _, err := svc.Status(ctx, testActor, "comment-b", TargetComment); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("cross-tenant status must be forbidden, got %v", err)
	}

	// The denial must land before any write or publish.
	exists, err := repo.Exists(ctx, testActor.ID, "comment-b", TargetComment)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("forbidden toggle must not insert a relation")
	}
	if got := len(pub.published()); got != 0 {
		t.Fatalf("forbidden toggle must not publish, got %d events", got)
	}
}

func TestToggleMissingTargetRejected(t *testing.T) {
	repo := newMemoryRepo()
	pub := &capturePublisher{}
	svc := NewService(repo, newStubResolver(), pub)

	if _, err := svc.Toggle(context.Background(), testActor, "ghost", TargetLesson); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("toggling a missing target must fail, got %v", err)
	}
	if got := len(pub.published()); got != 0 {
		t.Fatalf("missing target must not publish, got %d events", got)
	}
}

func TestStudentCannotLikeDraftLesson(t *testing.T) {
	repo := newMemoryRepo()
	resolver := newStubResolver()
	resolver.seed(TargetLesson, "lesson-d", Target{TenantID: "t1", OwnerID: "i1", Status: authz.StatusDraft})
	svc := NewService(repo, resolver, &capturePublisher{})
	ctx := context.Background()

	if _, err := svc.Toggle(ctx, testActor, "lesson-d", TargetLesson); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("student liking a draft lesson must be forbidden, got %v", err)
	}

	owner := shared.Actor{ID: "i1", TenantID: "t1", Role: shared.RoleInstructor, Name: "Grace"}
	result, err := svc.Toggle(ctx, owner, "lesson-d", TargetLesson)
	if err != nil {
		t.Fatalf("owner toggle: %v", err)
	}
	if !result.Active {
		t.Fatalf("owner must be able to like their own draft, got %+v", result)
	}
}

func TestToggleRejectsUnknownKind(t *testing.T) {
	svc := NewService(newMemoryRepo(), newStubResolver(), nil)
	if _, err := svc.Toggle(context.Background(), testActor, "x", TargetKind("post")); err == nil {
		t.Fatalf("expected error for unknown target kind")
	}
}
