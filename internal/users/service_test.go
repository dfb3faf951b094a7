package users

import (
	"context"
	"errors"
	"testing"

	"github.com/lumen-lms/lumen-lms/internal/events"
	"github.com/lumen-lms/lumen-lms/internal/shared"
)

type stubRepo struct {
	users map[string]User
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: map[string]User{}}
}

func (s *stubRepo) Create(_ context.Context, u *User) error {
	s.users[u.ID] = *u
	return nil
}

func (s *stubRepo) Get(_ context.Context, id string) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) GetByEmail(_ context.Context, tenantID, email string) (User, error) {
	for _, u := range s.users {
		if u.TenantID == tenantID && u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (s *stubRepo) List(_ context.Context, tenantID string) ([]User, error) {
	var result []User
	for _, u := range s.users {
		if u.TenantID == tenantID {
			result = append(result, u)
		}
	}
	return result, nil
}

func (s *stubRepo) UpdateRole(_ context.Context, id string, role shared.Role) error {
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Role = role
	s.users[id] = u
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *stubRepo) TenantStudents(_ context.Context, tenantID string) ([]Ref, error) {
	var result []Ref
	for _, u := range s.users {
		if u.TenantID == tenantID && u.Role == shared.RoleStudent {
			result = append(result, Ref{ID: u.ID, Name: u.Name})
		}
	}
	return result, nil
}

type capturePublisher struct {
	events []events.Event
}

func (p *capturePublisher) Publish(evt events.Event) {
	p.events = append(p.events, evt)
}

func TestRegisterCreatesStudentAndPublishes(t *testing.T) {
	repo := newStubRepo()
	pub := &capturePublisher{}
	svc := NewService(repo, pub, nil, nil)

	user, err := svc.Register(context.Background(), RegisterInput{
		TenantID: "t1",
		Name:     "Ada",
		Email:    " Ada@Example.COM ",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != shared.RoleStudent {
		t.Fatalf("registration must create students, got %s", user.Role)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("email not normalised: %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct-horse" {
		t.Fatalf("password must be hashed")
	}
	if !user.CheckPassword("correct-horse") {
		t.Fatalf("stored hash must verify the original password")
	}

	if len(pub.events) != 1 || pub.events[0].Type != events.UserRegistered {
		t.Fatalf("expected one user.registered event, got %+v", pub.events)
	}
	payload := pub.events[0].Payload.(events.UserRegisteredPayload)
	if payload.UserID != user.ID || payload.UserName != "Ada" {
		t.Fatalf("payload mismatch: %+v", payload)
	}
}

func TestGetAllowsSelfAndAdmin(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil, nil, nil)
	user, _ := svc.Register(context.Background(), RegisterInput{TenantID: "t1", Name: "Ada", Email: "a@x.io", Password: "secretsecret"})

	self := shared.Actor{ID: user.ID, TenantID: "t1", Role: shared.RoleStudent}
	if _, err := svc.Get(context.Background(), self, user.ID); err != nil {
		t.Fatalf("self read: %v", err)
	}

	peer := shared.Actor{ID: "s2", TenantID: "t1", Role: shared.RoleStudent}
	if _, err := svc.Get(context.Background(), peer, user.ID); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("peer read must be denied, got %v", err)
	}

	admin := shared.Actor{ID: "a1", TenantID: "t1", Role: shared.RoleAdmin}
	if _, err := svc.Get(context.Background(), admin, user.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}

	foreignAdmin := shared.Actor{ID: "a2", TenantID: "t2", Role: shared.RoleAdmin}
	if _, err := svc.Get(context.Background(), foreignAdmin, user.ID); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("cross-tenant admin read must be denied, got %v", err)
	}
}

func TestChangeRoleRequiresAdmin(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil, nil, nil)
	user, _ := svc.Register(context.Background(), RegisterInput{TenantID: "t1", Name: "Ada", Email: "a@x.io", Password: "secretsecret"})

	instructor := shared.Actor{ID: "i1", TenantID: "t1", Role: shared.RoleInstructor}
	if err := svc.ChangeRole(context.Background(), instructor, user.ID, shared.RoleInstructor); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("instructor must not manage users, got %v", err)
	}

	admin := shared.Actor{ID: "a1", TenantID: "t1", Role: shared.RoleAdmin}
	if err := svc.ChangeRole(context.Background(), admin, user.ID, shared.RoleInstructor); err != nil {
		t.Fatalf("admin change role: %v", err)
	}
	got, _ := repo.Get(context.Background(), user.ID)
	if got.Role != shared.RoleInstructor {
		t.Fatalf("role not persisted, got %s", got.Role)
	}
}

func TestChangeRoleRejectsUnknownRole(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil, nil, nil)
	user, _ := svc.Register(context.Background(), RegisterInput{TenantID: "t1", Name: "Ada", Email: "a@x.io", Password: "secretsecret"})

	admin := shared.Actor{ID: "a1", TenantID: "t1", Role: shared.RoleAdmin}
	if err := svc.ChangeRole(context.Background(), admin, user.ID, shared.Role("superuser")); err == nil {
		t.Fatalf("unknown role must be rejected")
	}
}

func TestTenantStudentsScopedByTenantAndRole(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()
	a, _ := svc.Register(ctx, RegisterInput{TenantID: "t1", Name: "Ada", Email: "a@x.io", Password: "secretsecret"})
	_, _ = svc.Register(ctx, RegisterInput{TenantID: "t2", Name: "Eve", Email: "e@x.io", Password: "secretsecret"})

	admin := shared.Actor{ID: "a1", TenantID: "t1", Role: shared.RoleAdmin}
	_ = svc.ChangeRole(ctx, admin, a.ID, shared.RoleStudent)

	students, err := repo.TenantStudents(ctx, "t1")
	if err != nil {
		t.Fatalf("tenant students: %v", err)
	}
	if len(students) != 1 || students[0].ID != a.ID {
		t.Fatalf("unexpected students %+v", students)
	}
}
