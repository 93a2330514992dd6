package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/captionforge/captionforge/internal/dedup"
	"github.com/captionforge/captionforge/internal/models"
	"github.com/captionforge/captionforge/internal/ollama"
)

func (h *Handler) HandleProject(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, map[string]interface{}{
			"root":   h.store.Root(),
			"images": h.store.Entries(),
		})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleImageDetail serves /api/images/{id}, /api/images/{id}/tags and
// /api/images/{id}/rating.
func (h *Handler) HandleImageDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/images/")
	id, action, _ := strings.Cut(rest, "/")

	entry, ok := h.store.Get(id)
	if !ok {
		h.writeError(w, "Image not found", http.StatusNotFound)
		return
	}

	switch {
	case action == "" && r.Method == "GET":
		h.writeJSON(w, entry)
	case action == "" && r.Method == "DELETE":
		if err := h.store.Remove(id); err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, map[string]string{"status": "deleted"})
	case action == "tags" && r.Method == "PUT":
		var body struct {
			Tags []string `json:"tags"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.store.SetTags(id, body.Tags); err != nil {
			h.writeEngineError(w, err)
			return
		}
		updated, _ := h.store.Get(id)
		h.writeJSON(w, updated)
	case action == "rating" && r.Method == "PUT":
		var body struct {
			Rating string `json:"rating"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		rating := models.Rating(body.Rating)
		if !rating.Valid() {
			h.writeError(w, "Invalid rating: "+body.Rating, http.StatusBadRequest)
			return
		}
		if err := h.store.SetRating(id, rating); err != nil {
			h.writeEngineError(w, err)
			return
		}
		updated, _ := h.store.Get(id)
		h.writeJSON(w, updated)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleDuplicates(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	workers := 0
	if v := r.URL.Query().Get("workers"); v != "" {
		workers, _ = strconv.Atoi(v)
	}

	report, err := dedup.FindDuplicates(h.store.Root(), workers)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, report)
}

func (h *Handler) HandleClearCaptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cleared, err := h.store.ClearAllTags()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, map[string]int{"cleared_count": cleared})
}

func (h *Handler) HandleOllamaStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	h.writeJSON(w, ollama.TestConnection(ctx, r.URL.Query().Get("endpoint")))
}
