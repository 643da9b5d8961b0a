package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"selwood.net/tasklock"
)

type userRequest struct {
	Email    *string `json:"email"`
	Key      *string `json:"key"`
	Solution string  `json:"solution"`
}

type userResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Key   string `json:"key"`
}

type userHandler struct {
	guardedHandler
	UserService      tasklock.UserService
	ChallengeService tasklock.ChallengeService
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func renderUser(w http.ResponseWriter, u tasklock.User) {
	writeJSON(w, http.StatusOK, &userResponse{
		Name:  u.GetName(),
		Email: u.GetEmail(),
		Key:   u.GetPublicKey(),
	})
}

// handlePut registers or replaces a user. Registration carries no solution;
// possession of the private key matching the registered public key is what
// every later request proves.
func (h *userHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var body userRequest
	if err := decodeBody(r, &body); err != nil {
		missingArgument(w, "key")
		return
	}
	if body.Key == nil || *body.Key == "" {
		missingArgument(w, "key")
		return
	}

	keyChanged := true
	if prior, err := h.UserService.GetUserNamed(r.Context(), name); err == nil {
		keyChanged = prior.GetPublicKey() != *body.Key
	}

	u, err := h.UserService.CreateUser(r.Context(), name, tasklock.UserUpdate{
		Email:     body.Email,
		PublicKey: body.Key,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// a challenge sealed for the old key can never be solved again
	if keyChanged {
		h.ChallengeService.Invalidate(name)
	}

	renderUser(w, u)
}

func (h *userHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	u, err := h.UserService.GetUserNamed(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	renderUser(w, u)
}

func (h *userHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var body userRequest
	if err := decodeBody(r, &body); err != nil || body.Solution == "" {
		missingArgument(w, "solution")
		return
	}

	u, err := h.UserService.GetUserNamed(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	_, ok := h.authorize(w, r, tasklock.AuthRequest{
		Resource: tasklock.ResourceUser,
		Method:   r.Method,
		Exists:   true,
		Solution: body.Solution,
	}, tasklock.RoleLists{Author: name})
	if !ok {
		return
	}

	if err := u.Update(tasklock.UserUpdate{Email: body.Email, PublicKey: body.Key}); err != nil {
		writeError(w, err)
		return
	}

	if body.Key != nil {
		h.ChallengeService.Invalidate(name)
	}

	renderUser(w, u)
}

func (h *userHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var body userRequest
	if err := decodeBody(r, &body); err != nil || body.Solution == "" {
		missingArgument(w, "solution")
		return
	}

	u, err := h.UserService.GetUserNamed(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	_, ok := h.authorize(w, r, tasklock.AuthRequest{
		Resource: tasklock.ResourceUser,
		Method:   r.Method,
		Exists:   true,
		Solution: body.Solution,
	}, tasklock.RoleLists{Author: name})
	if !ok {
		return
	}

	if err := u.Erase(); err != nil {
		writeError(w, err)
		return
	}
	h.ChallengeService.Invalidate(name)

	writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}

func (h *userHandler) BindRoutes(router *mux.Router) error {
	router.Path("/{name}").
		Methods("PUT").HandlerFunc(h.handlePut)

	router.Path("/{name}").
		Methods("GET").HandlerFunc(h.handleGet)

	router.Path("/{name}").
		Methods("PATCH").HandlerFunc(h.handlePatch)

	router.Path("/{name}").
		Methods("DELETE").HandlerFunc(h.handleDelete)

	return nil
}

func newUserHandler(us tasklock.UserService, cs tasklock.ChallengeService, guard tasklock.RequestGuard, throttle *SolutionThrottle) *userHandler {
	return &userHandler{
		guardedHandler:   guardedHandler{Guard: guard, Throttle: throttle},
		UserService:      us,
		ChallengeService: cs,
	}
}
