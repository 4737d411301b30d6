package hospital

import (
	"math/rand"
	"testing"

	"github.com/zero-wait/platform/internal/shared/types"
	"github.com/zero-wait/platform/internal/triage"
)

func newTestEngine(seed int64) *Engine {
	return NewEngine(rand.New(rand.NewSource(seed)))
}

var cityCenter = types.Coordinates{Lat: 17.4065, Lng: 78.4772}

// TestRankResultCount tests that rankings never exceed four entries
func TestRankResultCount(t *testing.T) {
	e := newTestEngine(1)

	for _, situation := range []triage.Situation{triage.SituationEmergency, triage.SituationNormal} {
		results := e.Rank(&cityCenter, situation, 5)
		if len(results) != maxResults {
			t.Errorf("%s: expected %d results, got %d", situation, maxResults, len(results))
		}
	}
}

// TestRankEmergencyOrdering tests that available hospitals always precede
// unavailable ones and that distance ascends within each group
func TestRankEmergencyOrdering(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		results := newTestEngine(seed).Rank(&cityCenter, triage.SituationEmergency, 8)

		seenUnavailable := false
		for i, h := range results {
			if !h.Available {
				seenUnavailable = true
			} else if seenUnavailable {
				t.Fatalf("seed %d: available hospital at index %d after an unavailable one", seed, i)
			}
			if i > 0 && results[i-1].Available == h.Available && results[i-1].Distance > h.Distance {
				t.Fatalf("seed %d: distance not ascending within availability group at index %d", seed, i)
			}
		}
	}
}

// TestRankNormalOrdering tests the cost-band ordering property: no hospital
// appears after one that is more than the tie band cheaper
func TestRankNormalOrdering(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		results := newTestEngine(seed).Rank(&cityCenter, triage.SituationNormal, 3)

		for i := 1; i < len(results); i++ {
			if results[i].Cost < results[i-1].Cost-costTieBand {
				t.Fatalf("seed %d: hospital at index %d is more than %d cheaper than its predecessor",
					seed, i, costTieBand)
			}
		}
	}
}

// TestRankCostModel tests the cost computation inputs
func TestRankCostModel(t *testing.T) {
	emergency := newTestEngine(1).Rank(&cityCenter, triage.SituationEmergency, 8)
	normal := newTestEngine(1).Rank(&cityCenter, triage.SituationNormal, 3)

	for _, h := range emergency {
		if h.Cost < baseCostEmergency {
			t.Errorf("Expected emergency cost >= %d, got %d for %s", baseCostEmergency, h.Cost, h.ID)
		}
	}
	for _, h := range normal {
		if h.Cost < baseCostNormal {
			t.Errorf("Expected normal cost >= %d, got %d for %s", baseCostNormal, h.Cost, h.ID)
		}
	}
}

// TestRankRatingsWithinRange tests the simulated rating bounds
func TestRankRatingsWithinRange(t *testing.T) {
	results := newTestEngine(7).Rank(&cityCenter, triage.SituationNormal, 2)

	for _, h := range results {
		if h.Rating < 3.5 || h.Rating > 5.0 {
			t.Errorf("Expected rating in [3.5, 5.0], got %v for %s", h.Rating, h.ID)
		}
	}
}

// TestRankNilLocation tests simulated distances when no location is known
func TestRankNilLocation(t *testing.T) {
	results := newTestEngine(3).Rank(nil, triage.SituationNormal, 2)

	if len(results) == 0 {
		t.Fatal("Expected results with simulated distances")
	}
	for _, h := range results {
		if h.Distance < 1 || h.Distance > 10 {
			t.Errorf("Expected simulated distance in [1, 10] km, got %v for %s", h.Distance, h.ID)
		}
	}
}

// TestRankDeterministicForSeed tests that a fixed seed pins the output
func TestRankDeterministicForSeed(t *testing.T) {
	first := newTestEngine(42).Rank(&cityCenter, triage.SituationNormal, 2)
	second := newTestEngine(42).Rank(&cityCenter, triage.SituationNormal, 2)

	if len(first) != len(second) {
		t.Fatalf("Expected equal lengths, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Cost != second[i].Cost ||
			first[i].Rating != second[i].Rating || first[i].Available != second[i].Available {
			t.Errorf("Index %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
