package triage

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/zero-wait/platform/internal/shared/events"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func newTestClassifier(completer Completer) *Classifier {
	return NewClassifier(completer, events.NewMemoryJournal(), rand.New(rand.NewSource(1)), zerolog.Nop())
}

// TestClassifyCriticalShortCircuit tests that critical phrases bypass the
// remote service entirely
func TestClassifyCriticalShortCircuit(t *testing.T) {
	tests := []string{
		"I think my father is having a heart attack",
		"She is UNCONSCIOUS and not responding",
		"severe chest pain radiating to the arm",
		"he is choking on food",
	}

	for _, symptoms := range tests {
		t.Run(symptoms, func(t *testing.T) {
			stub := &stubCompleter{reply: `{"situation":"normal","severity":2}`}
			c := newTestClassifier(stub)

			result := c.Classify(context.Background(), symptoms)

			if result.Situation != SituationEmergency {
				t.Errorf("Expected emergency, got %s", result.Situation)
			}
			if result.Severity != 9 {
				t.Errorf("Expected severity 9, got %d", result.Severity)
			}
			if len(result.UrgencyKeywords) == 0 {
				t.Error("Expected matched urgency keywords")
			}
			if stub.calls != 0 {
				t.Errorf("Expected no remote calls, got %d", stub.calls)
			}
		})
	}
}

// TestClassifyRemote tests the remote classification path
func TestClassifyRemote(t *testing.T) {
	stub := &stubCompleter{
		reply: `{"situation":"emergency","severity":8,"recommendations":["go now"],"urgencyKeywords":["bleeding"]}`,
	}
	c := newTestClassifier(stub)

	result := c.Classify(context.Background(), "bleeding from a deep cut")

	if stub.calls != 1 {
		t.Fatalf("Expected 1 remote call, got %d", stub.calls)
	}
	if result.Situation != SituationEmergency {
		t.Errorf("Expected emergency, got %s", result.Situation)
	}
	if result.Severity != 8 {
		t.Errorf("Expected severity 8, got %d", result.Severity)
	}
	if len(result.Recommendations) != 1 || result.Recommendations[0] != "go now" {
		t.Errorf("Expected remote recommendations, got %v", result.Recommendations)
	}

	journal := c.journal.(*events.MemoryJournal)
	published := journal.ByType(events.TypeTriageClassified)
	if len(published) != 1 {
		t.Fatalf("Expected 1 classification event, got %d", len(published))
	}
}

// TestClassifyRemoteDefaultRecommendations tests that a reply without
// recommendations gets the default set matching its situation
func TestClassifyRemoteDefaultRecommendations(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{"Emergency", `{"situation":"emergency","severity":8}`, emergencyFallbackRecommendations},
		{"Normal", `{"situation":"normal","severity":3}`, normalFallbackRecommendations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(&stubCompleter{reply: tt.reply})
			result := c.Classify(context.Background(), "persistent dizziness")
			if len(result.Recommendations) != len(tt.want) || result.Recommendations[0] != tt.want[0] {
				t.Errorf("Expected %v, got %v", tt.want, result.Recommendations)
			}
		})
	}
}

// TestClassifyRemoteFailureFallsBack tests degradation to keyword scoring
func TestClassifyRemoteFailureFallsBack(t *testing.T) {
	stub := &stubCompleter{err: errors.New("connection refused")}
	c := newTestClassifier(stub)

	result := c.Classify(context.Background(), "sudden difficulty breathing after a fall")

	if result.Situation != SituationEmergency {
		t.Errorf("Expected emergency from keyword fallback, got %s", result.Situation)
	}
	if result.Severity != 7 {
		t.Errorf("Expected fallback emergency severity 7, got %d", result.Severity)
	}
}

// TestClassifyFallbackVeto tests that a normal phrase vetoes an emergency
// phrase in the fallback scorer
func TestClassifyFallbackVeto(t *testing.T) {
	c := newTestClassifier(nil)

	result := c.Classify(context.Background(), "mild chest pain after exercise, feels routine")

	if result.Situation != SituationNormal {
		t.Errorf("Expected normal due to veto, got %s", result.Situation)
	}
}

// TestClassifyFallbackSeverityRange tests the randomized normal severity
func TestClassifyFallbackSeverityRange(t *testing.T) {
	c := newTestClassifier(nil)

	for i := 0; i < 50; i++ {
		result := c.Classify(context.Background(), "slight cough for two days")
		if result.Situation != SituationNormal {
			t.Fatalf("Expected normal, got %s", result.Situation)
		}
		if result.Severity < 2 || result.Severity > 4 {
			t.Fatalf("Expected severity in [2, 4], got %d", result.Severity)
		}
	}
}

// TestParseReply tests defensive parsing of completion replies
func TestParseReply(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantErr   bool
		situation string
	}{
		{
			name:      "Plain JSON",
			reply:     `{"situation":"normal","severity":3}`,
			situation: "normal",
		},
		{
			name:      "Fenced JSON",
			reply:     "```json\n{\"situation\":\"emergency\",\"severity\":8}\n```",
			situation: "emergency",
		},
		{
			name:      "JSON with surrounding prose",
			reply:     "Here is my assessment: {\"situation\":\"normal\",\"severity\":2} I hope this helps.",
			situation: "normal",
		},
		{
			name:    "No JSON at all",
			reply:   "I cannot classify this.",
			wantErr: true,
		},
		{
			name:    "Malformed JSON",
			reply:   `{"situation": normal}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parseReply(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if parsed.Situation != tt.situation {
				t.Errorf("Expected situation %s, got %s", tt.situation, parsed.Situation)
			}
		})
	}
}

// TestClampSeverity tests severity bounds
func TestClampSeverity(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-3, 1},
		{0, 1},
		{5, 5},
		{10, 10},
		{42, 10},
	}

	for _, tt := range tests {
		if got := clampSeverity(tt.in); got != tt.want {
			t.Errorf("clampSeverity(%d): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}
