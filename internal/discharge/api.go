package discharge

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zero-wait/platform/internal/shared/errors"
	"github.com/zero-wait/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the discharge module
type Handler struct {
	service    *Service
	staffGuard func(http.Handler) http.Handler
}

// NewHandler creates a new discharge handler. staffGuard wraps the routes
// only hospital staff may call; pass nil to leave them open.
func NewHandler(service *Service, staffGuard func(http.Handler) http.Handler) *Handler {
	if staffGuard == nil {
		staffGuard = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{service: service, staffGuard: staffGuard}
}

// Routes registers the discharge routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.staffGuard).Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.With(h.staffGuard).Post("/{id}/approve", h.Approve)

	return r
}

// Create starts a discharge request and fans out clearance notifications
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List returns a patient's discharge requests
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(r.URL.Query().Get("patientId"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient id"))
		return
	}

	requests, err := h.service.ListByPatient(r.Context(), patientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requests)
}

// Get fetches one discharge request
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid discharge id"))
		return
	}

	request, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, request)
}

// Approve records one department's clearance
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid discharge id"))
		return
	}

	var req struct {
		Department string `json:"department"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	request, err := h.service.Approve(r.Context(), id, req.Department)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, request)
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
