package authz

import (
	"context"
	"net/http"

	"selwood.net/tasklock"
)

// Guard is the request-level facade over solution validation and the
// authorization engine. The cross-cutting checks run in a fixed order:
// dual-role claim, immutable role fields, principal resolution and
// existence, solution validation, then role-specific rules.
type Guard struct {
	engine    *Engine
	validator tasklock.SolutionValidator
}

var _ tasklock.RequestGuard = &Guard{}

func NewGuard(engine *Engine, validator tasklock.SolutionValidator) *Guard {
	return &Guard{engine: engine, validator: validator}
}

// claimedPrincipal resolves which principal the request authenticates as,
// and in which capacity.
func claimedPrincipal(req tasklock.AuthRequest, roles tasklock.RoleLists) (string, tasklock.Role, error) {
	if req.Resource == tasklock.ResourceUser {
		// User mutations authenticate as the resource itself; an explicit
		// author claim may only restate it.
		if req.Author != "" && req.Author != roles.Author {
			return "", tasklock.RoleAuthor, tasklock.ErrUnauthorized
		}
		return roles.Author, tasklock.RoleAuthor, nil
	}

	if req.Author != "" {
		return req.Author, tasklock.RoleAuthor, nil
	}
	if req.Contributor != "" {
		return req.Contributor, tasklock.RoleContributor, nil
	}

	if req.Resource == tasklock.ResourceProject {
		return "", tasklock.RoleAuthor, tasklock.ErrAuthorRequired
	}
	return "", tasklock.RoleAuthor, tasklock.ErrUnauthorized
}

func (g *Guard) Authorize(ctx context.Context, req tasklock.AuthRequest, roles tasklock.RoleLists) tasklock.Decision {
	if req.Author != "" && req.Contributor != "" {
		return deny(tasklock.ErrDualRoleClaim)
	}

	if req.Resource == tasklock.ResourceProject && req.WritesRoleFields {
		switch req.Method {
		case http.MethodPut, http.MethodPatch, http.MethodDelete:
			return deny(tasklock.ErrImmutableRoleFields)
		}
	}

	principal, role, err := claimedPrincipal(req, roles)
	if err != nil {
		return deny(err)
	}

	if err := g.engine.userExists(ctx, principal); err != nil {
		return deny(err)
	}

	if !g.validator.Validate(principal, req.Solution) {
		return deny(tasklock.ErrUnauthorized)
	}

	return g.engine.Authorize(ctx, req, principal, role, roles)
}
