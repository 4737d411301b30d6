package triage

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zero-wait/platform/internal/shared/errors"
)

// Handler provides HTTP handlers for the triage module
type Handler struct {
	classifier *Classifier
	health     func(ctx context.Context) error
}

// NewHandler creates a new triage handler. healthCheck may be nil when the
// remote completion service is disabled.
func NewHandler(classifier *Classifier, healthCheck func(ctx context.Context) error) *Handler {
	return &Handler{classifier: classifier, health: healthCheck}
}

// Routes registers the triage routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Classify)
	r.Get("/health", h.HealthCheck)

	return r
}

// Classify handles symptom classification requests
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Symptoms == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"symptoms": "symptoms text is required",
		}))
		return
	}

	result := h.classifier.Classify(r.Context(), req.Symptoms)
	writeJSON(w, http.StatusOK, result)
}

// HealthCheck reports the remote completion service's reachability
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "fallback-only"})
		return
	}

	if err := h.health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
