package http

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"selwood.net/tasklock"
)

type todoRequest struct {
	Author      string  `json:"author"`
	Contributor string  `json:"contributor"`
	Solution    string  `json:"solution"`
	Title       *string `json:"title"`
	Body        *string `json:"body"`
	Done        *bool   `json:"done"`
}

type todoResponse struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Done   bool   `json:"done"`
}

type todoHandler struct {
	guardedHandler
	TodoService tasklock.TodoService
}

func renderTodo(w http.ResponseWriter, t tasklock.Todo) {
	writeJSON(w, http.StatusOK, &todoResponse{
		ID:     t.GetID().String(),
		Author: t.GetAuthor(),
		Title:  t.GetTitle(),
		Body:   t.GetBody(),
		Done:   t.IsDone(),
	})
}

func (h *todoHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	id := tasklock.TodoID(mux.Vars(r)["id"])

	var body todoRequest
	if err := decodeBody(r, &body); err != nil || body.Solution == "" {
		missingArgument(w, "solution")
		return
	}

	roles := tasklock.RoleLists{}
	exists := false
	if prior, err := h.TodoService.GetTodo(r.Context(), id); err == nil {
		exists = true
		roles.Author = prior.GetAuthor()
	} else if !errors.Is(err, tasklock.ErrNotFound) {
		writeError(w, err)
		return
	}

	_, ok := h.authorize(w, r, tasklock.AuthRequest{
		Resource:    tasklock.ResourceTodo,
		Method:      r.Method,
		Exists:      exists,
		Author:      body.Author,
		Contributor: body.Contributor,
		Solution:    body.Solution,
	}, roles)
	if !ok {
		return
	}

	// creation fixes the author to whichever principal authenticated;
	// replacement keeps the stored one
	author := roles.Author
	if !exists {
		author = body.Author
		if author == "" {
			author = body.Contributor
		}
	}

	t, err := h.TodoService.CreateTodo(r.Context(), id, author, tasklock.TodoUpdate{
		Title: body.Title,
		Body:  body.Body,
		Done:  body.Done,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	renderTodo(w, t)
}

func (h *todoHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := tasklock.TodoID(mux.Vars(r)["id"])

	t, err := h.TodoService.GetTodo(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	renderTodo(w, t)
}

func (h *todoHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	id := tasklock.TodoID(mux.Vars(r)["id"])

	var body todoRequest
	if err := decodeBody(r, &body); err != nil || body.Solution == "" {
		missingArgument(w, "solution")
		return
	}

	t, err := h.TodoService.GetTodo(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	_, ok := h.authorize(w, r, tasklock.AuthRequest{
		Resource:    tasklock.ResourceTodo,
		Method:      r.Method,
		Exists:      true,
		Author:      body.Author,
		Contributor: body.Contributor,
		Solution:    body.Solution,
	}, tasklock.RoleLists{Author: t.GetAuthor()})
	if !ok {
		return
	}

	if err := t.Update(tasklock.TodoUpdate{
		Title: body.Title,
		Body:  body.Body,
		Done:  body.Done,
	}); err != nil {
		writeError(w, err)
		return
	}

	renderTodo(w, t)
}

func (h *todoHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := tasklock.TodoID(mux.Vars(r)["id"])

	var body todoRequest
	if err := decodeBody(r, &body); err != nil || body.Solution == "" {
		missingArgument(w, "solution")
		return
	}

	t, err := h.TodoService.GetTodo(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	_, ok := h.authorize(w, r, tasklock.AuthRequest{
		Resource:    tasklock.ResourceTodo,
		Method:      r.Method,
		Exists:      true,
		Author:      body.Author,
		Contributor: body.Contributor,
		Solution:    body.Solution,
	}, tasklock.RoleLists{Author: t.GetAuthor()})
	if !ok {
		return
	}

	if err := t.Erase(); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

func (h *todoHandler) BindRoutes(router *mux.Router) error {
	router.Path("/{id}").
		Methods("PUT").HandlerFunc(h.handlePut)

	router.Path("/{id}").
		Methods("GET").HandlerFunc(h.handleGet)

	router.Path("/{id}").
		Methods("PATCH").HandlerFunc(h.handlePatch)

	router.Path("/{id}").
		Methods("DELETE").HandlerFunc(h.handleDelete)

	return nil
}

func newTodoHandler(ts tasklock.TodoService, guard tasklock.RequestGuard, throttle *SolutionThrottle) *todoHandler {
	return &todoHandler{
		guardedHandler: guardedHandler{Guard: guard, Throttle: throttle},
		TodoService:    ts,
	}
}
