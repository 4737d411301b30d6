package triage

// Situation is the binary triage outcome driving which downstream flow
// (ambulance vs appointment) is offered.
type Situation string

const (
	SituationEmergency Situation = "emergency"
	SituationNormal    Situation = "normal"
)

// Classification is the per-submission triage result. It is derived state,
// held in session only, never persisted as its own record.
type Classification struct {
	Situation       Situation `json:"situation"`
	Severity        int       `json:"severity"` // 0-10 urgency score
	Recommendations []string  `json:"recommendations"`
	UrgencyKeywords []string  `json:"urgencyKeywords"`
}

// Decision sources, for metrics and logging.
const (
	SourceCritical = "critical"
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// ClassifyRequest is the triage API request.
type ClassifyRequest struct {
	Symptoms string `json:"symptoms"`
}

// completionRequest is the payload sent to the remote completion endpoint.
type completionRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

// completionResponse is the reply shape. The text field holds a JSON-shaped
// natural-language answer that must be parsed defensively.
type completionResponse struct {
	Text string `json:"text"`
}

// aiClassification is the JSON object the prompt asks the model to emit.
type aiClassification struct {
	Situation       string   `json:"situation"`
	Severity        int      `json:"severity"`
	Recommendations []string `json:"recommendations"`
	UrgencyKeywords []string `json:"urgencyKeywords"`
}
