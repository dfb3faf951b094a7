package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lumen-lms/lumen-lms/internal/authz"
	"github.com/lumen-lms/lumen-lms/internal/events"
	"github.com/lumen-lms/lumen-lms/internal/platform/httpx"
	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Publisher schedules domain events. Satisfied by *events.Bus.
type Publisher interface {
	Publish(evt events.Event)
}

// Service handles registration and admin user management.
type Service struct {
	repo   Repository
	bus    Publisher
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService constructs a Service. audit may be nil.
func NewService(repo Repository, bus Publisher, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, bus: bus, audit: audit, logger: logger}
}

// RegisterInput carries self-registration fields.
type RegisterInput struct {
	TenantID string
	Name     string
	Email    string
	Password string
}

// Register creates a student account and announces the registration. The
// welcome notification and email are driven by the published event, not here.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	user := User{
		ID:       uuid.NewString(),
		TenantID: input.TenantID,
		Name:     input.Name,
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Role:     shared.RoleStudent,
	}
	if err := user.SetPassword(input.Password); err != nil {
		return User{}, err
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return User{}, err
	}
	if s.bus != nil {
		s.bus.Publish(events.New(events.UserRegistered, user.TenantID, user.ID, events.UserRegisteredPayload{
			UserID:   user.ID,
			UserName: user.Name,
		}))
	}
	return user, nil
}

// Get returns a user. Actors may read themselves; anything else requires the
// user management permission.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id string) (User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if actor.ID != id {
		if err := s.requireManage(actor, user.TenantID); err != nil {
			return User{}, err
		}
	}
	return user, nil
}

// List returns the users of the actor's tenant. Admin only.
func (s *Service) List(ctx context.Context, actor shared.Actor) ([]User, error) {
	if err := authz.Evaluate(actor, nil, authz.ActionUserManage).Err(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, actor.TenantID)
}

// ChangeRole sets a user's role. Admin only, same tenant only.
func (s *Service) ChangeRole(ctx context.Context, actor shared.Actor, id string, role shared.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireManage(actor, user.TenantID); err != nil {
		return err
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "user.change_role", id)
	return nil
}

// Remove deletes a user. Admin only, same tenant only.
func (s *Service) Remove(ctx context.Context, actor shared.Actor, id string) error {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireManage(actor, user.TenantID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "user.delete", id)
	return nil
}

func (s *Service) requireManage(actor shared.Actor, tenantID string) error {
	resource := &authz.Resource{Kind: "user", TenantID: tenantID}
	return authz.Evaluate(actor, resource, authz.ActionUserManage).Err()
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action, entityID string) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		TenantID: actor.TenantID,
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "user",
		EntityID: entityID,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
