package tasklock

import "context"

type ResourceKind int

const (
	ResourceUser ResourceKind = iota
	ResourceTodo
	ResourceProject
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceUser:
		return "user"
	case ResourceTodo:
		return "todo"
	case ResourceProject:
		return "project"
	}
	return "unknown"
}

// AuthRequest is the authentication-relevant slice of one HTTP request,
// assembled by the transport layer after argument parsing. Author and
// Contributor carry the claimed principal names from the request body; at
// most one may be set.
type AuthRequest struct {
	Resource ResourceKind
	Method   string

	// Exists reports whether the target resource currently exists; PUT is
	// creation when it does not.
	Exists bool

	Author      string
	Contributor string
	Solution    string

	// TargetUser is the principal an author-driven invitation operation
	// acts on (the "user" body field).
	TargetUser string

	// Invitation workflow markers.
	Cancel  bool
	Remove  bool
	Decline bool

	// WritesRoleFields reports whether the request body tries to set
	// role-list fields (contributors, invitations) directly.
	WritesRoleFields bool
}

// Decision is the guard's verdict. When Permit is false, Err names the
// reason. Delta, when non-nil, is the role-list change the caller must
// persist alongside the rest of the mutation.
type Decision struct {
	Permit bool
	Err    error
	Delta  *RoleDelta
}

// RequestGuard decides whether one request may proceed, given the target
// resource's stored role lists. It performs no persistence.
type RequestGuard interface {
	Authorize(ctx context.Context, req AuthRequest, roles RoleLists) Decision
}
