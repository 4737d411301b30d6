package booking

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zero-wait/platform/internal/shared/errors"
	"github.com/zero-wait/platform/internal/shared/types"
)

// Handler provides HTTP handlers for appointments, the booking flow and
// ambulance dispatch
type Handler struct {
	appointments *AppointmentService
	dispatcher   *Dispatcher
}

// NewHandler creates a new booking handler
func NewHandler(appointments *AppointmentService, dispatcher *Dispatcher) *Handler {
	return &Handler{appointments: appointments, dispatcher: dispatcher}
}

// Routes registers the booking routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.CreateAppointment)
		r.Get("/", h.ListAppointments)
		r.Get("/{id}", h.GetAppointment)
		r.Patch("/{id}/status", h.UpdateAppointmentStatus)
	})

	r.Route("/flow", func(r chi.Router) {
		r.Get("/", h.GetFlow)
		r.Post("/select", h.SelectSlot)
		r.Post("/back", h.FlowBack)
		r.Post("/confirm", h.ConfirmFlow)
	})

	r.Route("/ambulance", func(r chi.Router) {
		r.Post("/", h.DispatchAmbulance)
		r.Get("/active", h.ActiveDispatch)
		r.Post("/{id}/advance", h.AdvanceDispatch)
		r.Post("/{id}/complete", h.CompleteDispatch)
	})

	return r
}

// --- Appointments ---

// CreateAppointment creates an appointment directly, outside the staged flow
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var a Appointment
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	created, err := h.appointments.Create(r.Context(), &a)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ListAppointments lists appointments for a patient or a doctor
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	ownerField, ownerValue := "patientId", r.URL.Query().Get("patientId")
	if ownerValue == "" {
		ownerField, ownerValue = "doctorId", r.URL.Query().Get("doctorId")
	}
	if ownerValue == "" {
		writeError(w, errors.BadRequest("patientId or doctorId query parameter is required"))
		return
	}

	ownerID, err := types.ParseID(ownerValue)
	if err != nil {
		writeError(w, errors.BadRequest("invalid owner id"))
		return
	}

	appointments, err := h.appointments.ListByOwner(r.Context(), ownerField, ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, appointments)
}

// GetAppointment fetches one appointment by id
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid appointment id"))
		return
	}

	appointment, err := h.appointments.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, appointment)
}

// UpdateAppointmentStatus sets an appointment's status
func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid appointment id"))
		return
	}

	var req struct {
		Status AppointmentStatus `json:"status"`
		Notes  string            `json:"notes,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	appointment, err := h.appointments.UpdateStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, appointment)
}

// --- Booking flow ---

type flowRequest struct {
	PatientID types.ID  `json:"patientId"`
	Selection Selection `json:"selection"`
}

// GetFlow returns the patient's in-progress booking flow
func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(r.URL.Query().Get("patientId"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient id"))
		return
	}

	flow := h.appointments.Flow(patientID)
	if flow == nil {
		writeError(w, errors.NotFound("booking flow", patientID.String()))
		return
	}

	writeJSON(w, http.StatusOK, flow)
}

// SelectSlot records the patient's slot choice
func (h *Handler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	flow, err := h.appointments.Select(req.PatientID, req.Selection)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, flow)
}

// FlowBack returns the flow to the selection stage
func (h *Handler) FlowBack(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	flow, err := h.appointments.Back(req.PatientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, flow)
}

// ConfirmFlow completes the flow and creates the appointment
func (h *Handler) ConfirmFlow(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	appointment, err := h.appointments.Confirm(r.Context(), req.PatientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, appointment)
}

// --- Ambulance dispatch ---

// DispatchAmbulance creates an ambulance booking and starts its progress
// simulation. A persistence failure does not stop the dispatch; the booking
// is returned with a warning.
func (h *Handler) DispatchAmbulance(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if req.PatientID.IsZero() || req.HospitalName == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"dispatch": "patientId and hospitalName are required",
		}))
		return
	}

	booking, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusCreated, map[string]any{
			"booking": booking,
			"warning": "booking record could not be persisted",
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"booking": booking})
}

// ActiveDispatch returns the patient's live ambulance booking
func (h *Handler) ActiveDispatch(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(r.URL.Query().Get("patientId"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient id"))
		return
	}

	booking := h.dispatcher.Active(patientID)
	if booking == nil {
		writeError(w, errors.NotFound("ambulance booking", patientID.String()))
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// AdvanceDispatch force-advances the booking past its current dwell
func (h *Handler) AdvanceDispatch(w http.ResponseWriter, r *http.Request) {
	if err := h.dispatcher.Skip(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

// CompleteDispatch performs the terminal transition for an arrived ambulance
func (h *Handler) CompleteDispatch(w http.ResponseWriter, r *http.Request) {
	booking, err := h.dispatcher.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
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
