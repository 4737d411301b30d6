package hospital

import "github.com/zero-wait/platform/internal/shared/types"

// Facility is a static catalog entry. The catalog is mock data by design:
// facility discovery is simulated, not backed by a live registry.
type Facility struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Specialties []string          `json:"specialties"`
	Phone       string            `json:"phone"`
	Address     string            `json:"address"`
	Coords      types.Coordinates `json:"coords"`
}

// HasSpecialty reports whether the facility lists the given specialty.
func (f Facility) HasSpecialty(specialty string) bool {
	for _, s := range f.Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}

// Catalog returns the fixed facility catalog.
func Catalog() []Facility {
	return []Facility{
		{
			ID:          "apollo-jubilee-hills",
			Name:        "Apollo Hospitals Jubilee Hills",
			Specialties: []string{"Emergency", "Cardiology", "Neurology", "Orthopedics"},
			Phone:       "+91 40 2360 7777",
			Address:     "Road No 72, Jubilee Hills, Hyderabad",
			Coords:      types.Coordinates{Lat: 17.4239, Lng: 78.4102},
		},
		{
			ID:          "care-banjara-hills",
			Name:        "Care Hospitals Banjara Hills",
			Specialties: []string{"Emergency", "Cardiology", "Nephrology"},
			Phone:       "+91 40 6165 6565",
			Address:     "Road No 1, Banjara Hills, Hyderabad",
			Coords:      types.Coordinates{Lat: 17.4156, Lng: 78.4446},
		},
		{
			ID:          "yashoda-somajiguda",
			Name:        "Yashoda Hospitals Somajiguda",
			Specialties: []string{"Oncology", "Gastroenterology", "General Medicine"},
			Phone:       "+91 40 4567 4567",
			Address:     "Raj Bhavan Road, Somajiguda, Hyderabad",
			Coords:      types.Coordinates{Lat: 17.4254, Lng: 78.4594},
		},
		{
			ID:          "kims-secunderabad",
			Name:        "KIMS Hospitals Secunderabad",
			Specialties: []string{"Emergency", "Orthopedics", "Pulmonology"},
			Phone:       "+91 40 4488 5000",
			Address:     "Minister Road, Secunderabad",
			Coords:      types.Coordinates{Lat: 17.4411, Lng: 78.4867},
		},
		{
			ID:          "osmania-general",
			Name:        "Osmania General Hospital",
			Specialties: []string{"General Medicine", "Dermatology", "Pediatrics"},
			Phone:       "+91 40 2460 0146",
			Address:     "Afzal Gunj, Hyderabad",
			Coords:      types.Coordinates{Lat: 17.3724, Lng: 78.4744},
		},
	}
}
