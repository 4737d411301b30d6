package records

import "github.com/zero-wait/platform/internal/store"

// Schema describes one record collection served by the generic handler:
// its collection name, the field that scopes list queries to an owner, the
// fields a create must carry, and the list ordering.
type Schema struct {
	Name           string
	Collection     string
	OwnerField     string
	RequiredFields []string
	OrderField     string
	Descending     bool
}

// Schemas returns the record collections exposed over the generic CRUD
// surface. Appointments, notifications and discharges have dedicated
// modules and are deliberately absent.
func Schemas() []Schema {
	return []Schema{
		{
			Name:           "health-records",
			Collection:     store.CollectionHealthRecords,
			OwnerField:     "patientId",
			RequiredFields: []string{"patientId", "type", "title"},
			OrderField:     "createdAt",
			Descending:     true,
		},
		{
			Name:           "prescriptions",
			Collection:     store.CollectionPrescriptions,
			OwnerField:     "patientId",
			RequiredFields: []string{"patientId", "medication", "dosage"},
			OrderField:     "createdAt",
			Descending:     true,
		},
		{
			Name:           "consultations",
			Collection:     store.CollectionConsultations,
			OwnerField:     "patientId",
			RequiredFields: []string{"patientId", "doctorName", "date"},
			OrderField:     "date",
			Descending:     true,
		},
		{
			Name:           "medication-reminders",
			Collection:     store.CollectionMedicationReminders,
			OwnerField:     "patientId",
			RequiredFields: []string{"patientId", "medication", "time"},
			OrderField:     "time",
		},
		{
			Name:           "chat-history",
			Collection:     store.CollectionChatHistory,
			OwnerField:     "userId",
			RequiredFields: []string{"userId", "message"},
			OrderField:     "createdAt",
		},
	}
}
