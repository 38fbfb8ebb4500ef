package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bcnelson/host-dashboard/internal/auth"
	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxKeyNameLen = 100

// APIKeyHandler serves /keys. Plaintext keys leave the server exactly once,
// in the create response.
type APIKeyHandler struct {
	store storage.APIKeyStore
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(store storage.APIKeyStore) *APIKeyHandler {
	return &APIKeyHandler{store: store}
}

func keyName(req domain.CreateAPIKeyRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return "", fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	case len(name) > maxKeyNameLen:
		return "", fmt.Errorf("name must be at most %d characters: %w", maxKeyNameLen, domain.ErrInvalidInput)
	}
	return name, nil
}

// Create issues a key for the caller and stores only its hash.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	name, err := keyName(req)
	if err != nil {
		handleError(w, err)
		return
	}

	key, plaintext, err := domain.NewAPIKey(name)
	if err == nil {
		err = h.store.CreateAPIKey(r.Context(), key)
	}
	if err != nil {
		handleError(w, err)
		return
	}

	logKeyEvent(r, key.ID).Str("name", key.Name).Msg("API key created")
	respondJSON(w, http.StatusCreated, &domain.CreateAPIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		Key:       plaintext,
		KeyPrefix: key.KeyPrefix,
		CreatedAt: key.CreatedAt,
	})
}

// List returns key metadata, never hashes or plaintext.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, keys)
}

// Delete revokes a key.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteAPIKey(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	logKeyEvent(r, id).Msg("API key deleted")
	w.WriteHeader(http.StatusNoContent)
}

func logKeyEvent(r *http.Request, id string) *zerolog.Event {
	ev := log.Info().Str("key_id", id)
	if caller := auth.APIKeyFromContext(r.Context()); caller != nil {
		ev = ev.Str("by", caller.ID)
	}
	return ev
}
