package discharge

import (
	"encoding/json"
	"time"

	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/store"
)

// Status of a discharge request. A request becomes ready only when every
// required department has approved.
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
)

// Department names used for clearance flags and notification routing.
const (
	DeptDoctor   = "doctor"
	DeptNursing  = "nursing"
	DeptPharmacy = "pharmacy"
	DeptBilling  = "billing"
)

// Departments in fan-out order.
var Departments = []string{DeptDoctor, DeptNursing, DeptPharmacy, DeptBilling}

// Per-department requirement flags on a create request.
const (
	FlagRequired    = "required"
	FlagNotRequired = "not_required"
)

// Clearance tracks one department's sign-off.
type Clearance struct {
	Required bool `json:"required"`
	Approved bool `json:"approved"`
}

// Request is a patient discharge coordination record. Every department has
// a clearance entry; only the required ones gate the ready transition.
type Request struct {
	ID          types.ID             `json:"id"`
	PatientID   types.ID             `json:"patientId"`
	PatientName string               `json:"patientName"`
	DoctorID    types.ID             `json:"doctorId,omitempty"`
	Ward        string               `json:"ward,omitempty"`
	Bed         string               `json:"bed,omitempty"`
	Status      Status               `json:"status"`
	Clearances  map[string]Clearance `json:"clearances"`
	RequestedAt time.Time            `json:"requestedAt"`
	ReadyAt     time.Time            `json:"readyAt,omitempty"`
}

func toDocument(r *Request) (store.Document, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument(doc store.Document) (*Request, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var r Request
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
