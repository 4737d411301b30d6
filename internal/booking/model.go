package booking

import (
	"encoding/json"
	"time"

	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/store"
)

// AppointmentStatus values. Transitions between them are deliberately
// unconstrained: any status may follow any other, matching the product's
// admin-override behavior. The API validates membership only.
type AppointmentStatus string

const (
	AppointmentScheduled   AppointmentStatus = "scheduled"
	AppointmentCompleted   AppointmentStatus = "completed"
	AppointmentCancelled   AppointmentStatus = "cancelled"
	AppointmentRescheduled AppointmentStatus = "rescheduled"
)

// ValidAppointmentStatus reports whether s is a known status.
func ValidAppointmentStatus(s AppointmentStatus) bool {
	switch s {
	case AppointmentScheduled, AppointmentCompleted, AppointmentCancelled, AppointmentRescheduled:
		return true
	}
	return false
}

// Appointment is a scheduled consultation document.
type Appointment struct {
	ID           types.ID          `json:"id"`
	PatientID    types.ID          `json:"patientId"`
	DoctorID     types.ID          `json:"doctorId,omitempty"`
	DoctorName   string            `json:"doctorName"`
	Specialty    string            `json:"specialty"`
	HospitalName string            `json:"hospitalName"`
	Date         string            `json:"date"` // YYYY-MM-DD
	Time         string            `json:"time"` // HH:MM
	Status       AppointmentStatus `json:"status"`
	Symptoms     string            `json:"symptoms,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt,omitempty"`
}

// FlowStage is the appointment booking flow's UI state machine.
type FlowStage string

const (
	StageSelection    FlowStage = "selection"
	StageConfirmation FlowStage = "confirmation"
	StageCompleted    FlowStage = "completed"
)

// CanTransition reports whether the flow may move from s to next. The only
// reverse edge is confirmation back to selection; completed is terminal.
func (s FlowStage) CanTransition(next FlowStage) bool {
	switch s {
	case StageSelection:
		return next == StageConfirmation
	case StageConfirmation:
		return next == StageSelection || next == StageCompleted
	case StageCompleted:
		return false
	}
	return false
}

// Flow is an in-progress appointment booking for one patient.
type Flow struct {
	Stage     FlowStage `json:"stage"`
	Selection Selection `json:"selection"`
}

// Selection holds the slot the patient picked during the selection stage.
type Selection struct {
	DoctorID     types.ID `json:"doctorId,omitempty"`
	DoctorName   string   `json:"doctorName"`
	Specialty    string   `json:"specialty"`
	HospitalName string   `json:"hospitalName"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Symptoms     string   `json:"symptoms,omitempty"`
}

// DispatchStatus values, strictly forward-progressing.
type DispatchStatus string

const (
	StatusDispatched DispatchStatus = "dispatched"
	StatusEnRoute    DispatchStatus = "en_route"
	StatusArrived    DispatchStatus = "arrived"
	StatusCompleted  DispatchStatus = "completed"
)

// next returns the following status, or "" at the terminal state.
func (s DispatchStatus) next() DispatchStatus {
	switch s {
	case StatusDispatched:
		return StatusEnRoute
	case StatusEnRoute:
		return StatusArrived
	case StatusArrived:
		return StatusCompleted
	}
	return ""
}

// CanTransition reports whether status s may advance to next. Only the
// immediate successor is legal; regression never is.
func (s DispatchStatus) CanTransition(next DispatchStatus) bool {
	return next != "" && s.next() == next
}

// AmbulanceBooking is the dispatch record. Status only moves forward;
// completed is terminal.
type AmbulanceBooking struct {
	ID               string         `json:"id"`
	PatientID        types.ID       `json:"patientId"`
	Status           DispatchStatus `json:"status"`
	HospitalName     string         `json:"hospitalName"`
	AmbulanceID      string         `json:"ambulanceId"`
	DriverName       string         `json:"driverName"`
	DriverPhone      string         `json:"driverPhone"`
	EstimatedArrival int            `json:"estimatedArrival"` // minutes
	PickupLocation   string         `json:"pickupLocation"`
	Destination      string         `json:"destination"`
	EmergencyType    string         `json:"emergencyType"`
	PatientCondition string         `json:"patientCondition"`
	Cost             int            `json:"cost"`
	BookingTime      time.Time      `json:"bookingTime"`
}

// Driver is a roster entry for the dispatch simulation.
type Driver struct {
	Name      string
	Phone     string
	VehicleID string
	Base      types.Coordinates
}

// roster is the fixed driver/vehicle pool; assignment picks the entry whose
// base is nearest the pickup point.
var roster = []Driver{
	{Name: "Ravi Kumar", Phone: "+91 98490 11223", VehicleID: "AMB-101", Base: types.Coordinates{Lat: 17.4239, Lng: 78.4102}},
	{Name: "Suresh Reddy", Phone: "+91 98491 22334", VehicleID: "AMB-102", Base: types.Coordinates{Lat: 17.4156, Lng: 78.4446}},
	{Name: "Mohammed Ali", Phone: "+91 98492 33445", VehicleID: "AMB-103", Base: types.Coordinates{Lat: 17.4411, Lng: 78.4867}},
	{Name: "Lakshmi Prasad", Phone: "+91 98493 44556", VehicleID: "AMB-104", Base: types.Coordinates{Lat: 17.3724, Lng: 78.4744}},
}

func appointmentToDocument(a *Appointment) (store.Document, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func appointmentFromDocument(doc store.Document) (*Appointment, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var a Appointment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func bookingToDocument(b *AmbulanceBooking) (store.Document, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
