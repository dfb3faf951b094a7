package authz

import (
	"fmt"

	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Action is an operation subject to policy evaluation. The set of actions is
// closed: adding one requires a rule entry in the engine table, so an action
// without an explicit rule can never be silently allowed.
type Action string

// Known actions.
const (
	ActionResourceCreate Action = "resource.create"
	ActionResourceRead   Action = "resource.read"
	ActionResourceUpdate Action = "resource.update"
	ActionResourceDelete Action = "resource.delete"
	ActionUserManage     Action = "user.manage"
	ActionTenantManage   Action = "tenant.manage"
)

// Status is the publication state of a resource.
type Status string

// Resource publication states.
const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Resource carries the fields of a tenant-scoped entity that participate in a
// policy decision. Ownership is resolved by the caller beforehand; the engine
// performs no I/O. A nil Resource means the action has no per-entity context
// (for example a create or a listing).
type Resource struct {
	Kind     string
	TenantID string
	OwnerID  string
	Status   Status
}

// Decision is the outcome of a policy evaluation. It is a value, produced
// fresh per call and never persisted.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns a permitting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a rejecting decision with the given reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Err converts a denial into a shared.ErrForbidden error. Allowed decisions
// return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", shared.ErrForbidden, d.Reason)
}
