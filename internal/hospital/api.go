package hospital

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zero-wait/platform/internal/shared/config"
	"github.com/zero-wait/platform/internal/shared/errors"
	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/triage"
)

// RankRequest is the hospital search request. Location is optional; a
// missing one falls back to the configured default coordinates only when
// useFallbackLocation is set, otherwise distances are simulated.
type RankRequest struct {
	Location            *types.Coordinates `json:"location,omitempty"`
	UseFallbackLocation bool               `json:"useFallbackLocation,omitempty"`
	Situation           triage.Situation   `json:"situation"`
	Severity            int                `json:"severity"`
}

// Handler provides HTTP handlers for the hospital module
type Handler struct {
	engine *Engine
	geo    config.GeoConfig
}

// NewHandler creates a new hospital handler
func NewHandler(engine *Engine, geo config.GeoConfig) *Handler {
	return &Handler{engine: engine, geo: geo}
}

// Routes registers the hospital routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListCatalog)
	r.Post("/rank", h.Rank)

	return r
}

// ListCatalog lists the facility catalog
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": Catalog()})
}

// Rank ranks facilities for a classified situation
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	switch req.Situation {
	case triage.SituationEmergency, triage.SituationNormal:
	default:
		writeError(w, errors.Validation("validation failed", map[string]string{
			"situation": "situation must be emergency or normal",
		}))
		return
	}

	location := req.Location
	if location == nil && req.UseFallbackLocation {
		location = &types.Coordinates{Lat: h.geo.FallbackLat, Lng: h.geo.FallbackLng}
	}

	hospitals := h.engine.Rank(location, req.Situation, req.Severity)
	writeJSON(w, http.StatusOK, map[string]any{"data": hospitals})
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
