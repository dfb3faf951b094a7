// Package likes implements the idempotent like/unlike toggle over a unique
// (user, target, kind) relation.
package likes

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lumen-lms/lumen-lms/internal/authz"
	"github.com/lumen-lms/lumen-lms/internal/events"
	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Publisher schedules domain events. Satisfied by *events.Bus.
type Publisher interface {
	Publish(evt events.Event)
}

// Target carries the policy-relevant fields of a likeable entity, resolved
// from storage before the toggle mutates anything.
type Target struct {
	TenantID string
	OwnerID  string
	Status   authz.Status
}

// Resolver loads the target of a like. Implementations return
// shared.ErrNotFound when no entity with that id and kind exists.
type Resolver interface {
	Resolve(ctx context.Context, targetID string, kind TargetKind) (Target, error)
}

// Service implements the toggle interaction. Every call resolves the target
// and passes the policy check before the relation is read or written, so a
// like can never cross tenants or attach to a missing entity. Activation
// publishes a liked event exactly once; deactivation publishes nothing. The
// publish happens only when the insert actually inserted, so retries and
// concurrent toggles can never duplicate the side effect.
type Service struct {
	repo     Repository
	resolver Resolver
	bus      Publisher
}

// NewService constructs a Service.
func NewService(repo Repository, resolver Resolver, bus Publisher) *Service {
	return &Service{repo: repo, resolver: resolver, bus: bus}
}

// Toggle flips the like state for (actor, target). Two sequential calls with
// no interleaving return to the original state and count.
func (s *Service) Toggle(ctx context.Context, actor shared.Actor, targetID string, kind TargetKind) (ToggleResult, error) {
	if err := s.authorize(ctx, actor, targetID, kind); err != nil {
		return ToggleResult{}, err
	}

	like := &Like{
		ID:         uuid.NewString(),
		UserID:     actor.ID,
		TargetID:   targetID,
		TargetKind: kind,
	}
	inserted, err := s.repo.Insert(ctx, like)
	if err != nil {
		return ToggleResult{}, err
	}
	if inserted {
		count, err := s.repo.Count(ctx, targetID, kind)
		if err != nil {
			return ToggleResult{}, err
		}
		s.publishLiked(actor, targetID, kind)
		return ToggleResult{Active: true, Count: count}, nil
	}

	// Relation already existed: this toggle deactivates. A delete that finds
	// nothing means a concurrent toggle got there first; already-absent is a
	// valid terminal state, not an error.
	if _, err := s.repo.Delete(ctx, actor.ID, targetID, kind); err != nil {
		return ToggleResult{}, err
	}
	count, err := s.repo.Count(ctx, targetID, kind)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Active: false, Count: count}, nil
}

// Status reports the current like state and count without mutating anything.
func (s *Service) Status(ctx context.Context, actor shared.Actor, targetID string, kind TargetKind) (ToggleResult, error) {
	if err := s.authorize(ctx, actor, targetID, kind); err != nil {
		return ToggleResult{}, err
	}
	active, err := s.repo.Exists(ctx, actor.ID, targetID, kind)
	if err != nil {
		return ToggleResult{}, err
	}
	count, err := s.repo.Count(ctx, targetID, kind)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Active: active, Count: count}, nil
}

// authorize resolves the target and applies the read rule: an actor may like
// exactly what it may see. The resolved tenant drives the cross-tenant check.
func (s *Service) authorize(ctx context.Context, actor shared.Actor, targetID string, kind TargetKind) error {
	if !kind.Valid() {
		return fmt.Errorf("likes: unknown target kind %q", kind)
	}
	target, err := s.resolver.Resolve(ctx, targetID, kind)
	if err != nil {
		return err
	}
	res := &authz.Resource{
		Kind:     string(kind),
		TenantID: target.TenantID,
		OwnerID:  target.OwnerID,
		Status:   target.Status,
	}
	return authz.Evaluate(actor, res, authz.ActionResourceRead).Err()
}

func (s *Service) publishLiked(actor shared.Actor, targetID string, kind TargetKind) {
	if s.bus == nil {
		return
	}
	switch kind {
	case TargetComment:
		s.bus.Publish(events.New(events.CommentLiked, actor.TenantID, actor.ID, events.CommentLikedPayload{
			CommentID: targetID,
			ActorID:   actor.ID,
			ActorName: actor.Name,
		}))
	case TargetLesson:
		s.bus.Publish(events.New(events.LessonLiked, actor.TenantID, actor.ID, events.LessonLikedPayload{
			LessonID:  targetID,
			ActorID:   actor.ID,
			ActorName: actor.Name,
		}))
	}
}
