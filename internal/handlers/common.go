package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/captionforge/captionforge/internal/batch"
	"github.com/captionforge/captionforge/internal/models"
	"github.com/captionforge/captionforge/internal/project"
)

// Handler bridges the dataset engine to an HTTP UI.
type Handler struct {
	store        *project.Store
	orchestrator *batch.Orchestrator
}

// New builds a Handler over an opened project.
func New(store *project.Store) *Handler {
	return &Handler{
		store:        store,
		orchestrator: batch.New(),
	}
}

// Register attaches all API routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/project", h.HandleProject)
	mux.HandleFunc("/api/images/", h.HandleImageDetail)
	mux.HandleFunc("/api/duplicates", h.HandleDuplicates)
	mux.HandleFunc("/api/batch", h.HandleBatch)
	mux.HandleFunc("/api/export", h.HandleExport)
	mux.HandleFunc("/api/captions/clear", h.HandleClearCaptions)
	mux.HandleFunc("/api/ollama/status", h.HandleOllamaStatus)
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeEngineError maps typed engine failures to HTTP status codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, models.ErrNotADirectory), errors.Is(err, models.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, models.ErrAlreadyInProgress):
		code = http.StatusConflict
	}
	h.writeError(w, err.Error(), code)
}
