package http

import (
	"encoding/hex"
	"net/http"

	"github.com/gorilla/mux"

	"selwood.net/tasklock"
)

type challengeResponse struct {
	Challenge string `json:"challenge"`
	Session   string `json:"session"`
	Expiry    int64  `json:"expiry"`
	Nonce     string `json:"nonce"`
	Tag       string `json:"tag"`
}

type challengeHandler struct {
	ChallengeService tasklock.ChallengeService
}

func (h *challengeHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]

	ch, err := h.ChallengeService.GetOrCreateChallenge(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &challengeResponse{
		Challenge: hex.EncodeToString(ch.Ciphertext),
		Session:   hex.EncodeToString(ch.WrappedSessionKey),
		Expiry:    ch.Expiry.Unix(),
		Nonce:     hex.EncodeToString(ch.Nonce),
		Tag:       hex.EncodeToString(ch.Tag),
	})
}

func (h *challengeHandler) BindRoutes(router *mux.Router) error {
	router.Path("/{user}").
		Methods("GET").HandlerFunc(h.handleGet)

	return nil
}

func newChallengeHandler(cs tasklock.ChallengeService) *challengeHandler {
	return &challengeHandler{ChallengeService: cs}
}
