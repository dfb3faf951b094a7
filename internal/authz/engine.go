// Package authz is the tenant-scoped access policy engine. Evaluation is a
// pure function over the actor, the already-loaded resource fields and the
// requested action; every outcome is a returned Decision, never a panic or a
// side effect.
package authz

import "github.com/lumen-lms/lumen-lms/internal/shared"

type rule func(actor shared.Actor, res *Resource) Decision

// rules maps every known action to its rule. Unknown actions fall through to
// a default deny in Evaluate.
var rules = map[Action]rule{
	ActionResourceCreate: ruleCreate,
	ActionResourceRead:   ruleRead,
	ActionResourceUpdate: ruleUpdate,
	ActionResourceDelete: ruleAdminOnly,
	ActionUserManage:     ruleAdminOnly,
	ActionTenantManage:   ruleAdminOnly,
}

// Evaluate decides whether the actor may perform action on the resource.
// The cross-tenant check runs first and overrides every role-based rule.
func Evaluate(actor shared.Actor, res *Resource, action Action) Decision {
	if res != nil && res.TenantID != "" && res.TenantID != actor.TenantID {
		return Deny("cross-tenant access not allowed")
	}
	r, ok := rules[action]
	if !ok {
		return Deny("unknown action")
	}
	return r(actor, res)
}

func ruleCreate(actor shared.Actor, _ *Resource) Decision {
	if actor.Role == shared.RoleInstructor || actor.Role == shared.RoleAdmin {
		return Allow()
	}
	return Deny("role cannot create resources")
}

func ruleRead(actor shared.Actor, res *Resource) Decision {
	if res == nil || res.Status == StatusPublished {
		return Allow()
	}
	if actor.Role == shared.RoleAdmin || actor.Role == shared.RoleInstructor {
		return Allow()
	}
	return Deny("resource not published")
}

func ruleUpdate(actor shared.Actor, res *Resource) Decision {
	if actor.Role == shared.RoleAdmin {
		return Allow()
	}
	if actor.Role == shared.RoleInstructor && res != nil && res.OwnerID != "" && res.OwnerID == actor.ID {
		return Allow()
	}
	return Deny("not the resource owner")
}

func ruleAdminOnly(actor shared.Actor, _ *Resource) Decision {
	if actor.Role == shared.RoleAdmin {
		return Allow()
	}
	return Deny("admin role required")
}
