package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zero-wait/platform/internal/shared/events"
	"github.com/zero-wait/platform/internal/shared/metrics"
)

// criticalPhrases short-circuit classification. Any match yields
// emergency/severity 9 without touching the remote service: the latency and
// failure modes of a network call are unacceptable on this path.
var criticalPhrases = []string{
	"heart attack",
	"cardiac arrest",
	"not breathing",
	"can't breathe",
	"cannot breathe",
	"severe chest pain",
	"unconscious",
	"severe bleeding",
	"stroke",
	"choking",
	"seizure",
}

// Fallback keyword lists for when the remote call fails or its reply does
// not parse. A normal phrase vetoes an emergency phrase.
var (
	emergencyPhrases = []string{
		"chest pain", "difficulty breathing", "shortness of breath",
		"severe pain", "heavy bleeding", "accident", "poisoning",
		"fainted", "collapsed", "emergency",
	}
	normalPhrases = []string{
		"mild", "slight", "routine", "checkup", "check-up", "follow up",
		"follow-up", "headache", "cold", "cough", "sore throat", "rash",
	}
)

var criticalRecommendations = []string{
	"Call emergency services immediately",
	"Do not drive yourself to the hospital",
	"Stay with the patient and keep them still",
	"Prepare a list of current medications",
}

var emergencyFallbackRecommendations = []string{
	"Seek emergency care as soon as possible",
	"Avoid eating or drinking until assessed",
	"Have someone accompany you",
}

var normalFallbackRecommendations = []string{
	"Book an appointment with a general physician",
	"Monitor symptoms and note any changes",
	"Stay hydrated and rest",
}

// Completer produces a completion for a prompt. *Client satisfies it; tests
// substitute a stub.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Classifier maps free-text symptom descriptions to a triage classification.
// It never returns an error: remote or parse failures degrade to local
// keyword scoring.
type Classifier struct {
	completer Completer
	journal   events.Journal
	log       zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewClassifier creates a classifier. completer may be nil, in which case
// every non-critical input takes the fallback path; journal may be nil. rng
// drives the randomized fallback severity; tests pass a fixed seed.
func NewClassifier(completer Completer, journal events.Journal, rng *rand.Rand, log zerolog.Logger) *Classifier {
	return &Classifier{
		completer: completer,
		journal:   journal,
		rng:       rng,
		log:       log.With().Str("component", "triage").Logger(),
	}
}

// Classify runs the three-stage pipeline: critical short-circuit, remote
// completion, keyword fallback.
func (c *Classifier) Classify(ctx context.Context, freeText string) Classification {
	result, source := c.classify(ctx, freeText)

	metrics.RecordClassification(string(result.Situation), source)
	if c.journal != nil {
		event := events.NewEvent(events.TypeTriageClassified, "triage", map[string]any{
			"situation": result.Situation,
			"severity":  result.Severity,
			"source":    source,
		})
		if err := c.journal.Publish(ctx, event); err != nil {
			c.log.Warn().Err(err).Str("event", event.Type).Msg("event journal publish failed")
		}
	}

	return result
}

func (c *Classifier) classify(ctx context.Context, freeText string) (Classification, string) {
	input := strings.ToLower(freeText)

	if matched, ok := matchAny(input, criticalPhrases); ok {
		return Classification{
			Situation:       SituationEmergency,
			Severity:        9,
			Recommendations: criticalRecommendations,
			UrgencyKeywords: matched,
		}, SourceCritical
	}

	if c.completer != nil {
		if result, err := c.classifyRemote(ctx, freeText); err == nil {
			return result, SourceAI
		} else {
			c.log.Warn().Err(err).Msg("completion classification failed, using keyword fallback")
		}
	}

	metrics.RecordAIFallback()
	return c.classifyLocal(input), SourceFallback
}

func (c *Classifier) classifyRemote(ctx context.Context, freeText string) (Classification, error) {
	reply, err := c.completer.Complete(ctx, buildPrompt(freeText))
	if err != nil {
		return Classification{}, err
	}

	parsed, err := parseReply(reply)
	if err != nil {
		return Classification{}, err
	}

	result := Classification{
		Situation:       SituationNormal,
		Severity:        clampSeverity(parsed.Severity),
		Recommendations: parsed.Recommendations,
		UrgencyKeywords: parsed.UrgencyKeywords,
	}
	if strings.EqualFold(parsed.Situation, string(SituationEmergency)) {
		result.Situation = SituationEmergency
	}
	if len(result.Recommendations) == 0 {
		if result.Situation == SituationEmergency {
			result.Recommendations = emergencyFallbackRecommendations
		} else {
			result.Recommendations = normalFallbackRecommendations
		}
	}

	return result, nil
}

func (c *Classifier) classifyLocal(input string) Classification {
	emergencyHits, hasEmergency := matchAny(input, emergencyPhrases)
	_, hasNormal := matchAny(input, normalPhrases)

	// Normal phrases veto: emergency only when an emergency phrase matches
	// and no normal phrase does.
	if hasEmergency && !hasNormal {
		return Classification{
			Situation:       SituationEmergency,
			Severity:        7,
			Recommendations: emergencyFallbackRecommendations,
			UrgencyKeywords: emergencyHits,
		}
	}

	return Classification{
		Situation:       SituationNormal,
		Severity:        c.randomSeverity(2, 4),
		Recommendations: normalFallbackRecommendations,
		UrgencyKeywords: nil,
	}
}

// randomSeverity returns a uniform value in [low, high].
func (c *Classifier) randomSeverity(low, high int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return low + c.rng.Intn(high-low+1)
}

func buildPrompt(freeText string) string {
	return fmt.Sprintf(`You are a medical triage assistant. Classify the patient's symptoms below.
Respond with ONLY a JSON object of this exact shape, no prose:
{"situation": "emergency" or "normal", "severity": integer 1-10, "recommendations": [strings], "urgencyKeywords": [strings]}

Patient symptoms: %s`, freeText)
}

// parseReply defensively extracts the JSON object from a completion reply:
// markdown code fences are stripped and everything outside the outermost
// braces is discarded before parsing.
func parseReply(reply string) (*aiClassification, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in completion reply")
	}

	var parsed aiClassification
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("malformed completion reply: %w", err)
	}

	return &parsed, nil
}

func clampSeverity(severity int) int {
	if severity < 1 {
		return 1
	}
	if severity > 10 {
		return 10
	}
	return severity
}

func matchAny(input string, phrases []string) ([]string, bool) {
	var hits []string
	for _, phrase := range phrases {
		if strings.Contains(input, phrase) {
			hits = append(hits, phrase)
		}
	}
	return hits, len(hits) > 0
}
