package authz

import (
	"errors"
	"testing"

	"github.com/lumen-lms/lumen-lms/internal/shared"
)

func TestEvaluateCrossTenantDeniedForEveryActionAndRole(t *testing.T) {
	actions := []Action{
		ActionResourceCreate,
		ActionResourceRead,
		ActionResourceUpdate,
		ActionResourceDelete,
		ActionUserManage,
		ActionTenantManage,
		Action("definitely.unknown"),
	}
	roles := []shared.Role{shared.RoleStudent, shared.RoleInstructor, shared.RoleAdmin}
	res := &Resource{Kind: "course", TenantID: "tenant-b", OwnerID: "u1", Status: StatusPublished}

	for _, action := range actions {
		for _, role := range roles {
			actor := shared.Actor{ID: "u1", TenantID: "tenant-a", Role: role}
			decision := Evaluate(actor, res, action)
			if decision.Allowed {
				t.Fatalf("expected deny for %s as %s", action, role)
			}
			if decision.Reason != "cross-tenant access not allowed" {
				t.Fatalf("expected cross-tenant reason, got %q", decision.Reason)
			}
		}
	}
}

func TestEvaluateCreateRestrictedToInstructorAndAdmin(t *testing.T) {
	cases := []struct {
		role    shared.Role
		allowed bool
	}{
		{shared.RoleStudent, false},
		{shared.RoleInstructor, true},
		{shared.RoleAdmin, true},
	}
	for _, tc := range cases {
		actor := shared.Actor{ID: "u1", TenantID: "t1", Role: tc.role}
		decision := Evaluate(actor, nil, ActionResourceCreate)
		if decision.Allowed != tc.allowed {
			t.Fatalf("create as %s: expected allowed=%v, got %v", tc.role, tc.allowed, decision.Allowed)
		}
	}
}

func TestEvaluateReadRespectsPublicationStatus(t *testing.T) {
	student := shared.Actor{ID: "u1", TenantID: "t1", Role: shared.RoleStudent}
	instructor := shared.Actor{ID: "u2", TenantID: "t1", Role: shared.RoleInstructor}

	published := &Resource{Kind: "course", TenantID: "t1", Status: StatusPublished}
	draft := &Resource{Kind: "course", TenantID: "t1", Status: StatusDraft}

	if !Evaluate(student, published, ActionResourceRead).Allowed {
		t.Fatalf("student should read published resource")
	}
	if Evaluate(student, draft, ActionResourceRead).Allowed {
		t.Fatalf("student should not read draft resource")
	}
	if !Evaluate(instructor, draft, ActionResourceRead).Allowed {
		t.Fatalf("instructor should read draft resource")
	}
	if !Evaluate(student, nil, ActionResourceRead).Allowed {
		t.Fatalf("listing without resource context should be allowed")
	}
}

func TestEvaluateUpdateRequiresOwnershipForInstructor(t *testing.T) {
	owner := shared.Actor{ID: "inst-1", TenantID: "t1", Role: shared.RoleInstructor}
	other := shared.Actor{ID: "inst-2", TenantID: "t1", Role: shared.RoleInstructor}
	admin := shared.Actor{ID: "adm-1", TenantID: "t1", Role: shared.RoleAdmin}
	student := shared.Actor{ID: "stu-1", TenantID: "t1", Role: shared.RoleStudent}
	res := &Resource{Kind: "course", TenantID: "t1", OwnerID: "inst-1", Status: StatusDraft}

	if !Evaluate(owner, res, ActionResourceUpdate).Allowed {
		t.Fatalf("owning instructor should update")
	}
	if Evaluate(other, res, ActionResourceUpdate).Allowed {
		t.Fatalf("non-owning instructor should not update")
	}
	if !Evaluate(admin, res, ActionResourceUpdate).Allowed {
		t.Fatalf("admin should always update")
	}
	if Evaluate(student, res, ActionResourceUpdate).Allowed {
		t.Fatalf("student should never update")
	}
}

func TestEvaluateAdminOnlyActions(t *testing.T) {
	for _, action := range []Action{ActionResourceDelete, ActionUserManage, ActionTenantManage} {
		for _, role := range []shared.Role{shared.RoleStudent, shared.RoleInstructor} {
			actor := shared.Actor{ID: "u1", TenantID: "t1", Role: role}
			if Evaluate(actor, nil, action).Allowed {
				t.Fatalf("%s should be denied for %s", action, role)
			}
		}
		admin := shared.Actor{ID: "u1", TenantID: "t1", Role: shared.RoleAdmin}
		if !Evaluate(admin, nil, action).Allowed {
			t.Fatalf("%s should be allowed for admin", action)
		}
	}
}

func TestEvaluateUnknownActionDeniedByDefault(t *testing.T) {
	admin := shared.Actor{ID: "u1", TenantID: "t1", Role: shared.RoleAdmin}
	decision := Evaluate(admin, nil, Action("course.teleport"))
	if decision.Allowed {
		t.Fatalf("unknown action must be denied even for admin")
	}
	if decision.Reason != "unknown action" {
		t.Fatalf("expected unknown action reason, got %q", decision.Reason)
	}
}

func TestDecisionErr(t *testing.T) {
	if err := Allow().Err(); err != nil {
		t.Fatalf("allow should produce nil error, got %v", err)
	}
	err := Deny("nope").Err()
	if !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("deny error should wrap ErrForbidden, got %v", err)
	}
}
