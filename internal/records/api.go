package records

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zero-wait/platform/internal/shared/errors"
	"github.com/zero-wait/platform/internal/store"
)

// Handler serves every record schema through one generic CRUD surface.
// Each schema mounts under its own path segment; the handler closes over
// the schema descriptor, so adding a collection is a schema entry, not a
// new handler.
type Handler struct {
	store store.Store
}

// NewHandler creates a new records handler
func NewHandler(st store.Store) *Handler {
	return &Handler{store: st}
}

// Routes registers one CRUD subtree per record schema
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	for _, schema := range Schemas() {
		schema := schema
		r.Route("/"+schema.Name, func(r chi.Router) {
			r.Post("/", h.create(schema))
			r.Get("/", h.list(schema))
			r.Get("/{id}", h.get(schema))
			r.Patch("/{id}", h.update(schema))
		})
	}

	return r
}

func (h *Handler) create(schema Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc store.Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			writeError(w, errors.BadRequest("invalid request body"))
			return
		}

		details := make(map[string]string)
		for _, field := range schema.RequiredFields {
			if v, ok := doc[field]; !ok || v == "" || v == nil {
				details[field] = field + " is required"
			}
		}
		if len(details) > 0 {
			writeError(w, errors.Validation("validation failed", details))
			return
		}

		id, err := h.store.Create(r.Context(), schema.Collection, doc)
		if err != nil {
			writeError(w, err)
			return
		}

		created, err := h.store.Get(r.Context(), schema.Collection, id)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

func (h *Handler) list(schema Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get(schema.OwnerField)
		if owner == "" {
			writeError(w, errors.BadRequest(schema.OwnerField+" query parameter is required"))
			return
		}

		docs, err := h.store.Query(r.Context(), store.Query{
			Collection: schema.Collection,
			Field:      schema.OwnerField,
			Value:      owner,
			OrderBy:    schema.OrderField,
			Descending: schema.Descending,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, docs)
	}
}

func (h *Handler) get(schema Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.store.Get(r.Context(), schema.Collection, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) update(schema Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields store.Document
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeError(w, errors.BadRequest("invalid request body"))
			return
		}
		// Partial update only; identity fields never change.
		delete(fields, "id")
		delete(fields, "createdAt")
		if len(fields) == 0 {
			writeError(w, errors.BadRequest("no updatable fields in request body"))
			return
		}

		id := chi.URLParam(r, "id")
		if err := h.store.Update(r.Context(), schema.Collection, id, fields); err != nil {
			writeError(w, err)
			return
		}

		updated, err := h.store.Get(r.Context(), schema.Collection, id)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, updated)
	}
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
