package hospital

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/zero-wait/platform/internal/shared/metrics"
	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/triage"
)

const (
	maxResults = 4

	baseCostEmergency = 1500
	baseCostNormal    = 500

	// Facilities with an emergency department price higher.
	emergencyMultiplier = 1.2

	// Cost differences within this band are treated as ties and broken by
	// rating for the normal flow.
	costTieBand = 200

	availabilityProbability = 0.8
)

// Hospital is a ranked candidate produced per search call; it is derived
// data and never persisted.
type Hospital struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Distance    float64           `json:"distance"` // km, 1 decimal
	Cost        int               `json:"cost"`     // currency units
	Rating      float64           `json:"rating"`   // 3.5-5.0
	Available   bool              `json:"availability"`
	Specialties []string          `json:"specialties"`
	Phone       string            `json:"phone"`
	Address     string            `json:"address"`
	Coords      types.Coordinates `json:"coords"`
}

// Engine ranks catalog facilities for a classified situation. Rating,
// availability and unknown-location distances are regenerated on every call
// by design (simulation property); the RNG is injected so tests can pin
// outputs with a fixed seed.
type Engine struct {
	catalog []Facility

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates a ranking engine over the fixed catalog.
func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{catalog: Catalog(), rng: rng}
}

// Rank scores the catalog and returns at most four candidates, sorted for
// the given situation. location may be nil when the client could not supply
// coordinates; distances are then simulated.
func (e *Engine) Rank(location *types.Coordinates, situation triage.Situation, severity int) []Hospital {
	candidates := make([]Hospital, 0, len(e.catalog))

	for _, f := range e.catalog {
		distance := e.distanceTo(location, f)

		base := baseCostNormal
		if situation == triage.SituationEmergency {
			base = baseCostEmergency
		}
		multiplier := 1.0
		if f.HasSpecialty("Emergency") {
			multiplier = emergencyMultiplier
		}
		cost := int(math.Round(float64(base) * multiplier * (1 + distance*0.1)))

		candidates = append(candidates, Hospital{
			ID:          f.ID,
			Name:        f.Name,
			Distance:    distance,
			Cost:        cost,
			Rating:      e.randomRating(),
			Available:   e.randomAvailability(),
			Specialties: f.Specialties,
			Phone:       f.Phone,
			Address:     f.Address,
			Coords:      f.Coords,
		})
	}

	if situation == triage.SituationEmergency {
		sortEmergency(candidates)
	} else {
		sortNormal(candidates)
	}

	metrics.RecordRanking(string(situation))

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates
}

func (e *Engine) distanceTo(location *types.Coordinates, f Facility) float64 {
	if location != nil {
		return types.RoundKm(types.Distance(*location, f.Coords))
	}
	// Unknown location: simulate a plausible distance.
	e.mu.Lock()
	defer e.mu.Unlock()
	return types.RoundKm(1 + e.rng.Float64()*9)
}

func (e *Engine) randomRating() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return math.Round((3.5+e.rng.Float64()*1.5)*10) / 10
}

func (e *Engine) randomAvailability() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() < availabilityProbability
}

// sortEmergency orders by availability first, then ascending distance.
func sortEmergency(hospitals []Hospital) {
	sort.SliceStable(hospitals, func(i, j int) bool {
		if hospitals[i].Available != hospitals[j].Available {
			return hospitals[i].Available
		}
		return hospitals[i].Distance < hospitals[j].Distance
	})
}

// sortNormal orders by ascending cost, treating differences within the tie
// band as equal and breaking those ties by descending rating. Bands are
// formed greedily from the cheapest entry so no hospital ever appears after
// one more than the band cheaper.
func sortNormal(hospitals []Hospital) {
	sort.SliceStable(hospitals, func(i, j int) bool {
		return hospitals[i].Cost < hospitals[j].Cost
	})

	for start := 0; start < len(hospitals); {
		end := start + 1
		for end < len(hospitals) && hospitals[end].Cost-hospitals[start].Cost <= costTieBand {
			end++
		}
		band := hospitals[start:end]
		sort.SliceStable(band, func(i, j int) bool {
			return band[i].Rating > band[j].Rating
		})
		start = end
	}
}
