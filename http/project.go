package http

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"selwood.net/tasklock"
)

type projectRequest struct {
	Author      string  `json:"author"`
	Contributor string  `json:"contributor"`
	Solution    string  `json:"solution"`
	Description *string `json:"description"`

	// invitation workflow
	User    string `json:"user"`
	Cancel  bool   `json:"cancel"`
	Remove  bool   `json:"remove"`
	Decline bool   `json:"decline"`

	// role lists are read-only over this surface; their presence in a
	// mutation body is an error the guard reports
	Contributors *[]string `json:"contributors"`
	Invitations  *[]string `json:"invitations"`
}

func (pr *projectRequest) writesRoleFields() bool {
	return pr.Contributors != nil || pr.Invitations != nil
}

type projectResponse struct {
	Name         string   `json:"name"`
	Author       string   `json:"author"`
	Description  string   `json:"description"`
	Contributors []string `json:"contributors"`
	Invitations  []string `json:"invitations"`
}

type projectHandler struct {
	guardedHandler
	ProjectService tasklock.ProjectService
}

func renderProject(w http.ResponseWriter, p tasklock.Project) {
	rl := p.GetRoleLists()
	contributors := rl.Contributors
	if contributors == nil {
		contributors = []string{}
	}
	invitations := rl.Invitations
	if invitations == nil {
		invitations = []string{}
	}

	writeJSON(w, http.StatusOK, &projectResponse{
		Name:         p.GetName(),
		Author:       p.GetAuthor(),
		Description:  p.GetDescription(),
		Contributors: contributors,
		Invitations:  invitations,
	})
}

func (h *projectHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var body projectRequest
	if err := decodeBody(r, &body); err != nil || body.Solution == "" {
		missingArgument(w, "solution")
		return
	}

	roles := tasklock.RoleLists{}
	exists := false
	if prior, err := h.ProjectService.GetProject(r.Context(), name); err == nil {
		exists = true
		roles = prior.GetRoleLists()
	} else if !errors.Is(err, tasklock.ErrNotFound) {
		writeError(w, err)
		return
	}

	_, ok := h.authorize(w, r, tasklock.AuthRequest{
		Resource:         tasklock.ResourceProject,
		Method:           r.Method,
		Exists:           exists,
		Author:           body.Author,
		Contributor:      body.Contributor,
		Solution:         body.Solution,
		WritesRoleFields: body.writesRoleFields(),
	}, roles)
	if !ok {
		return
	}

	author := roles.Author
	if !exists {
		author = body.Author
	}

	p, err := h.ProjectService.CreateProject(r.Context(), name, author, tasklock.ProjectUpdate{
		Description: body.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	renderProject(w, p)
}

func (h *projectHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	p, err := h.ProjectService.GetProject(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	renderProject(w, p)
}

func (h *projectHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var body projectRequest
	if err := decodeBody(r, &body); err != nil || body.Solution == "" {
		missingArgument(w, "solution")
		return
	}

	p, err := h.ProjectService.GetProject(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	_, ok := h.authorize(w, r, tasklock.AuthRequest{
		Resource:         tasklock.ResourceProject,
		Method:           r.Method,
		Exists:           true,
		Author:           body.Author,
		Contributor:      body.Contributor,
		Solution:         body.Solution,
		WritesRoleFields: body.writesRoleFields(),
	}, p.GetRoleLists())
	if !ok {
		return
	}

	if err := p.Update(tasklock.ProjectUpdate{Description: body.Description}); err != nil {
		writeError(w, err)
		return
	}

	renderProject(w, p)
}

func (h *projectHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var body projectRequest
	if err := decodeBody(r, &body); err != nil || body.Solution == "" {
		missingArgument(w, "solution")
		return
	}

	p, err := h.ProjectService.GetProject(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	_, ok := h.authorize(w, r, tasklock.AuthRequest{
		Resource:         tasklock.ResourceProject,
		Method:           r.Method,
		Exists:           true,
		Author:           body.Author,
		Contributor:      body.Contributor,
		Solution:         body.Solution,
		WritesRoleFields: body.writesRoleFields(),
	}, p.GetRoleLists())
	if !ok {
		return
	}

	if err := p.Erase(); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}

// handlePost drives the invitation workflow. The guard names the role-list
// transition; the store applies it conditionally so two racing requests
// cannot both win.
func (h *projectHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var body projectRequest
	if err := decodeBody(r, &body); err != nil || body.Solution == "" {
		missingArgument(w, "solution")
		return
	}

	p, err := h.ProjectService.GetProject(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	d, ok := h.authorize(w, r, tasklock.AuthRequest{
		Resource:    tasklock.ResourceProject,
		Method:      r.Method,
		Exists:      true,
		Author:      body.Author,
		Contributor: body.Contributor,
		Solution:    body.Solution,
		TargetUser:  body.User,
		Cancel:      body.Cancel,
		Remove:      body.Remove,
		Decline:     body.Decline,
	}, p.GetRoleLists())
	if !ok {
		return
	}

	if d.Delta != nil {
		if err := h.ProjectService.ApplyRoleDelta(r.Context(), name, *d.Delta); err != nil {
			writeError(w, err)
			return
		}
	}

	p, err = h.ProjectService.GetProject(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	renderProject(w, p)
}

func (h *projectHandler) BindRoutes(router *mux.Router) error {
	router.Path("/{name}").
		Methods("PUT").HandlerFunc(h.handlePut)

	router.Path("/{name}").
		Methods("GET").HandlerFunc(h.handleGet)

	router.Path("/{name}").
		Methods("PATCH").HandlerFunc(h.handlePatch)

	router.Path("/{name}").
		Methods("DELETE").HandlerFunc(h.handleDelete)

	router.Path("/{name}").
		Methods("POST").HandlerFunc(h.handlePost)

	return nil
}

func newProjectHandler(ps tasklock.ProjectService, guard tasklock.RequestGuard, throttle *SolutionThrottle) *projectHandler {
	return &projectHandler{
		guardedHandler: guardedHandler{Guard: guard, Throttle: throttle},
		ProjectService: ps,
	}
}
