package run

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
	"github.com/rajindermavi/InvoiceMailer/internal/pipeline"
)

type Handler struct {
	pipeline *pipeline.Pipeline
}

func NewHandler(p *pipeline.Pipeline) *Handler {
	return &Handler{pipeline: p}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.createRun)
}

// createRun executes one pipeline run synchronously and returns its
// report. The pipeline serializes runs internally, so concurrent requests
// queue rather than interleave.
func (h *Handler) createRun(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := ledger.ParseAggregateKey(req.AggregateBy); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := ledger.FormatPeriod(req.Year, req.Month); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.pipeline.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			return
		}

		slog.Error("pipeline run failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(report); err != nil {
		slog.Error("failed to encode run report", "error", err)
	}
}
