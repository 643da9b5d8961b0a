package tasklock

import "errors"

var (
	// ErrUnknownPrincipal is returned when a challenge is requested for a
	// user with no public key on file.
	ErrUnknownPrincipal = errors.New("no public key on file")

	// ErrUnauthorized is returned when a submitted solution is missing,
	// expired or does not match the current truth value.
	ErrUnauthorized = errors.New("solution rejected")

	ErrDualRoleClaim       = errors.New("author and contributor both claimed")
	ErrImmutableRoleFields = errors.New("role lists cannot be written directly")
	ErrUnknownLinkedUser   = errors.New("linked user not found")
	ErrUserNotContributor  = errors.New("user is not a contributor")
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrUserNotInvited      = errors.New("user is not invited")

	// ErrAuthorRequired is returned when an operation reserved for a
	// project's author is attempted under a contributor claim, or with no
	// claim at all. The HTTP layer renders it as a missing-argument
	// response for compatibility with existing clients.
	ErrAuthorRequired = errors.New("author required")

	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a conditional role-list write loses to a
	// concurrent transition.
	ErrConflict = errors.New("role transition conflict")

	// ErrStoreUnavailable is returned when the backing store fails in a way
	// that is not an authentication or authorization decision. It is kept
	// distinct from ErrUnauthorized so that store outages never read as
	// login failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)
