package http

import (
	"net/http"

	"selwood.net/tasklock"
)

// guardedHandler is embedded by every resource handler that authenticates
// requests. It runs the throttle around the guard so repeated bad solutions
// get slower before they get checked.
type guardedHandler struct {
	Guard    tasklock.RequestGuard
	Throttle *SolutionThrottle
}

func (g *guardedHandler) authorize(w http.ResponseWriter, r *http.Request, req tasklock.AuthRequest, roles tasklock.RoleLists) (tasklock.Decision, bool) {
	principal := req.Author
	if principal == "" {
		principal = req.Contributor
	}
	if principal == "" {
		principal = roles.Author
	}

	if g.Throttle != nil && !g.Throttle.Allow(principal, r) {
		writeJSON(w, http.StatusTooManyRequests, &errorResponse{"too many authentication attempts"})
		return tasklock.Decision{}, false
	}

	d := g.Guard.Authorize(r.Context(), req, roles)
	if !d.Permit {
		writeError(w, d.Err)
		return d, false
	}

	if g.Throttle != nil {
		g.Throttle.Forgive(principal, r)
	}
	return d, true
}
