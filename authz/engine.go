// Package authz decides whether a request may mutate a resource, given the
// resource's stored role lists and an authenticated principal, and computes
// the role-list transitions of the project invitation workflow.
package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"selwood.net/tasklock"
)

// UserDirectory answers existence queries for principals referenced by a
// request. Lookup failures that are not "no such user" must surface as
// ErrStoreUnavailable, never as an authorization verdict.
type UserDirectory interface {
	UserExists(ctx context.Context, name string) (bool, error)
}

type marker int

const (
	markerNone marker = iota
	markerCancel
	markerRemove
	markerDecline
)

func (m marker) String() string {
	switch m {
	case markerCancel:
		return "cancel"
	case markerRemove:
		return "remove"
	case markerDecline:
		return "decline"
	}
	return "none"
}

// transition is one row of the invitation workflow. Every permitted
// (role, marker) combination is enumerated here; a combination absent from
// the table is a role-constraint violation, not a silently ignored branch.
type transition struct {
	from tasklock.RoleState
	to   tasklock.RoleState

	// unmet is returned when the subject principal is not in `from`.
	unmet error

	// self marks transitions the requester drives on their own standing;
	// the others are driven by the author against a target principal.
	self bool
}

type transitionKey struct {
	role tasklock.Role
	mark marker
}

var projectTransitions = map[transitionKey]transition{
	{tasklock.RoleAuthor, markerNone}:        {tasklock.RoleStateNone, tasklock.RoleStateInvited, tasklock.ErrConflict, false},
	{tasklock.RoleAuthor, markerRemove}:      {tasklock.RoleStateContributor, tasklock.RoleStateNone, tasklock.ErrUserNotContributor, false},
	{tasklock.RoleAuthor, markerCancel}:      {tasklock.RoleStateInvited, tasklock.RoleStateNone, tasklock.ErrInvitationNotFound, false},
	{tasklock.RoleContributor, markerNone}:   {tasklock.RoleStateInvited, tasklock.RoleStateContributor, tasklock.ErrUnauthorized, true},
	{tasklock.RoleContributor, markerDecline}: {tasklock.RoleStateInvited, tasklock.RoleStateNone, tasklock.ErrUserNotInvited, true},
}

func requestMarker(req tasklock.AuthRequest) (marker, error) {
	count := 0
	mark := markerNone
	if req.Cancel {
		count, mark = count+1, markerCancel
	}
	if req.Remove {
		count, mark = count+1, markerRemove
	}
	if req.Decline {
		count, mark = count+1, markerDecline
	}
	if count > 1 {
		return markerNone, errors.New("conflicting workflow markers")
	}
	return mark, nil
}

// Engine applies the method × resource rule table and the invitation
// workflow. It assumes the principal's solution has already been validated.
type Engine struct {
	users UserDirectory
}

func NewEngine(users UserDirectory) *Engine {
	return &Engine{users: users}
}

func (e *Engine) userExists(ctx context.Context, name string) error {
	ok, err := e.users.UserExists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %v", tasklock.ErrStoreUnavailable, err)
	}
	if !ok {
		return tasklock.ErrUnknownLinkedUser
	}
	return nil
}

func deny(err error) tasklock.Decision {
	return tasklock.Decision{Permit: false, Err: err}
}

func permit() tasklock.Decision {
	return tasklock.Decision{Permit: true}
}

// Authorize runs the role-specific rules for an already-authenticated
// principal. role is the capacity the principal claimed.
func (e *Engine) Authorize(ctx context.Context, req tasklock.AuthRequest, principal string, role tasklock.Role, roles tasklock.RoleLists) tasklock.Decision {
	switch req.Resource {
	case tasklock.ResourceUser:
		if principal != roles.Author {
			return deny(tasklock.ErrUnauthorized)
		}
		return permit()

	case tasklock.ResourceTodo:
		// A todo's author is fixed at creation. Any claimed principal may
		// create one; only the author may touch it afterwards.
		if req.Exists && principal != roles.Author {
			return deny(tasklock.ErrUnauthorized)
		}
		return permit()

	case tasklock.ResourceProject:
		return e.authorizeProject(ctx, req, principal, role, roles)
	}

	return deny(tasklock.ErrUnauthorized)
}

func (e *Engine) authorizeProject(ctx context.Context, req tasklock.AuthRequest, principal string, role tasklock.Role, roles tasklock.RoleLists) tasklock.Decision {
	switch req.Method {
	case http.MethodPut, http.MethodPatch:
		if role != tasklock.RoleAuthor {
			// Documented quirk: a contributor attempting an author-only
			// write reads externally as a missing `author` argument.
			return deny(tasklock.ErrAuthorRequired)
		}
		if req.Exists && principal != roles.Author {
			return deny(tasklock.ErrUnauthorized)
		}
		return permit()

	case http.MethodDelete:
		if role != tasklock.RoleAuthor || principal != roles.Author {
			return deny(tasklock.ErrUnauthorized)
		}
		return permit()

	case http.MethodPost:
		return e.transitionProject(ctx, req, principal, role, roles)
	}

	return deny(tasklock.ErrUnauthorized)
}

func (e *Engine) transitionProject(ctx context.Context, req tasklock.AuthRequest, principal string, role tasklock.Role, roles tasklock.RoleLists) tasklock.Decision {
	mark, err := requestMarker(req)
	if err != nil {
		return deny(tasklock.ErrUnauthorized)
	}

	t, ok := projectTransitions[transitionKey{role, mark}]
	if !ok {
		return deny(tasklock.ErrUnauthorized)
	}

	subject := principal
	if t.self {
		// Self-driven transitions act on the requester's own standing; a
		// contributor claim naming someone else is outside the table.
		if req.TargetUser != "" && req.TargetUser != principal {
			return deny(tasklock.ErrUnauthorized)
		}
	} else {
		if principal != roles.Author {
			return deny(tasklock.ErrUnauthorized)
		}
		if req.TargetUser == "" {
			return deny(tasklock.ErrUnknownLinkedUser)
		}
		if err := e.userExists(ctx, req.TargetUser); err != nil {
			return deny(err)
		}
		if req.TargetUser == roles.Author {
			// The author holds no transition state; inviting or removing
			// oneself would corrupt the role lists.
			return deny(tasklock.ErrConflict)
		}
		subject = req.TargetUser
	}

	if state := roles.StateOf(subject); state != t.from {
		return deny(t.unmet)
	}

	return tasklock.Decision{
		Permit: true,
		Delta: &tasklock.RoleDelta{
			Principal: subject,
			From:      t.from,
			To:        t.to,
		},
	}
}

// IsRoleError reports whether err is one of the engine's terminal
// authorization verdicts (as opposed to a store failure).
func IsRoleError(err error) bool {
	for _, known := range []error{
		tasklock.ErrUnauthorized,
		tasklock.ErrDualRoleClaim,
		tasklock.ErrImmutableRoleFields,
		tasklock.ErrUnknownLinkedUser,
		tasklock.ErrUserNotContributor,
		tasklock.ErrInvitationNotFound,
		tasklock.ErrUserNotInvited,
		tasklock.ErrAuthorRequired,
		tasklock.ErrConflict,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
