package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the policy engine denied the action.
	ErrForbidden = errors.New("forbidden")
	// ErrOwnership indicates an attempt to mutate a record owned by another user.
	ErrOwnership = errors.New("ownership violation")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
