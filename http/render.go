package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"selwood.net/tasklock"
	"selwood.net/tasklock/authz"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func missingArgument(w http.ResponseWriter, name string) {
	writeJSON(w, http.StatusBadRequest, &errorResponse{"missing required argument: " + name})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, tasklock.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, tasklock.ErrDualRoleClaim),
		errors.Is(err, tasklock.ErrImmutableRoleFields):
		return http.StatusBadRequest
	case errors.Is(err, tasklock.ErrUnknownPrincipal),
		errors.Is(err, tasklock.ErrUnknownLinkedUser),
		errors.Is(err, tasklock.ErrUserNotContributor),
		errors.Is(err, tasklock.ErrInvitationNotFound),
		errors.Is(err, tasklock.ErrUserNotInvited),
		errors.Is(err, tasklock.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tasklock.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, tasklock.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	// throw away whatever the handler wrote before it failed
	if d, ok := w.(Discarder); ok {
		d.Discard()
	}

	// an author-only operation attempted under a contributor claim reads,
	// to clients, exactly like the author argument was never sent
	if errors.Is(err, tasklock.ErrAuthorRequired) {
		missingArgument(w, "author")
		return
	}

	status := statusForError(err)
	msg := err.Error()
	if !authz.IsRoleError(err) && !errors.Is(err, tasklock.ErrNotFound) &&
		!errors.Is(err, tasklock.ErrUnknownPrincipal) {
		// never leak driver or wrapped detail
		msg = tasklock.ErrStoreUnavailable.Error()
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeJSON(w, status, &errorResponse{msg})
}
