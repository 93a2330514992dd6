package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/captionforge/captionforge/internal/batch"
	"github.com/captionforge/captionforge/internal/captioning"
	"github.com/captionforge/captionforge/internal/export"
	"github.com/captionforge/captionforge/internal/models"
)

type batchRequest struct {
	Provider        string   `json:"provider"`
	Model           string   `json:"model"`
	Prompt          string   `json:"prompt"`
	Endpoint        string   `json:"endpoint"`
	Temperature     float64  `json:"temperature"`
	Concurrency     int      `json:"concurrency"`
	TriggerWord     string   `json:"trigger_word"`
	Ratings         []string `json:"ratings"`
	OnlyUncaptioned bool     `json:"only_uncaptioned"`
}

// HandleBatch starts (POST), inspects (GET) and cancels (DELETE) the
// batch captioning job.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		h.startBatch(w, r)
	case "GET":
		job := h.orchestrator.Current()
		if job == nil {
			h.writeError(w, "No batch has been started", http.StatusNotFound)
			return
		}
		completed, total := job.Progress()
		h.writeJSON(w, map[string]interface{}{
			"completed": completed,
			"total":     total,
			"finished":  job.Finished(),
			"summary":   job.Summary(),
		})
	case "DELETE":
		job := h.orchestrator.Current()
		if job == nil {
			h.writeError(w, "No batch has been started", http.StatusNotFound)
			return
		}
		job.Cancel()
		h.writeJSON(w, map[string]string{"status": "cancelling"})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) startBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	req.Provider = captioning.ResolveName(req.Provider)
	provider, err := captioning.ForName(req.Provider)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		req.Model = captioning.DefaultModel(req.Provider)
	}

	var wanted []models.Rating
	for _, s := range req.Ratings {
		wanted = append(wanted, models.ParseRating(s))
	}
	entries := h.store.FilterByRating(wanted)
	if req.OnlyUncaptioned {
		filtered := entries[:0]
		for _, e := range entries {
			if !e.HasCaption() {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	// The job outlives this request; it stops on cancel, not disconnect.
	job, err := h.orchestrator.Start(context.Background(), entries, batch.Options{
		Provider:      provider,
		ProviderName:  req.Provider,
		Endpoint:      req.Endpoint,
		Model:         req.Model,
		Prompt:        req.Prompt,
		Temperature:   req.Temperature,
		Concurrency:   req.Concurrency,
		TriggerWord:   req.TriggerWord,
		OnTagsWritten: h.store.ApplyTags,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	_, total := job.Progress()
	h.writeJSON(w, map[string]interface{}{"status": "started", "total": total})
}

// HandleExport runs an export synchronously and reports the result.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var spec export.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	spec.Root = h.store.Root()

	result, err := export.Export(spec)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, result)
}
