package identity

import (
	"encoding/json"
	"time"

	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/store"
)

// UserProfile is the denormalized profile document for any platform role.
// Role-specific fields are optional and only populated for the matching
// userType.
type UserProfile struct {
	ID        types.ID `json:"id"`
	UserType  string   `json:"userType"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Phone     string   `json:"phone,omitempty"`

	// Role-specific fields
	LicenseNumber   string `json:"licenseNumber,omitempty"`   // doctor
	EmployeeID      string `json:"employeeId,omitempty"`      // nurse, admin
	Specialization  string `json:"specialization,omitempty"`  // doctor
	Department      string `json:"department,omitempty"`      // nurse, admin
	PharmacyLicense string `json:"pharmacyLicense,omitempty"` // pharmacy
	Hospital        string `json:"hospital,omitempty"`
	Relationship    string `json:"relationship,omitempty"` // family

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// FullName returns the profile's display name.
func (p UserProfile) FullName() string {
	return p.FirstName + " " + p.LastName
}

// SessionState is the session manager's state machine.
type SessionState string

const (
	StateLoading         SessionState = "loading"
	StateAuthenticated   SessionState = "authenticated"
	StateUnauthenticated SessionState = "unauthenticated"
)

// Session is the reconciled view of the live token and the profile store.
// A fetch failure degrades to unauthenticated with the error attached; a
// partial profile is never produced. ProfileHint carries the last cached
// snapshot on transient fetch failures so clients can keep rendering it
// while they retry; it is never an authenticated profile.
type Session struct {
	State       SessionState `json:"state"`
	Profile     *UserProfile `json:"profile,omitempty"`
	ProfileHint *UserProfile `json:"profileHint,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// SignUpRequest carries signup form fields.
type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserType  string `json:"userType"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`

	LicenseNumber   string `json:"licenseNumber,omitempty"`
	EmployeeID      string `json:"employeeId,omitempty"`
	Specialization  string `json:"specialization,omitempty"`
	Department      string `json:"department,omitempty"`
	PharmacyLicense string `json:"pharmacyLicense,omitempty"`
	Hospital        string `json:"hospital,omitempty"`
	Relationship    string `json:"relationship,omitempty"`
}

// SignInRequest carries signin credentials.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned from signup and signin.
type AuthResult struct {
	Profile *UserProfile `json:"profile"`
	Token   string       `json:"token"`
}

// profileToDocument converts a profile to its stored document form.
func profileToDocument(p *UserProfile) (store.Document, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// profileFromDocument converts a stored document back to a profile. The
// passwordHash field never crosses this boundary.
func profileFromDocument(doc store.Document) (*UserProfile, error) {
	doc = doc.Clone()
	delete(doc, "passwordHash")

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var p UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
