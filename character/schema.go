package character

// Profile is the static character definition. Import/export pipelines live
// outside this runtime; the fields here are the ones the cognitive prompt
// consumes.
type Profile struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`

	Appearance  string `json:"appearance,omitempty"`
	Description string `json:"description,omitempty"`

	SurfacePersona string   `json:"surface_persona,omitempty"`
	InnerPersona   string   `json:"inner_persona,omitempty"`
	SpeechPatterns []string `json:"speech_patterns,omitempty"`

	InitialSituation string   `json:"initial_situation,omitempty"`
	FirstMessage     string   `json:"first_message,omitempty"`
	SpeechExamples   []string `json:"speech_examples,omitempty"`
}

// Key returns the identifier used for on-disk directories.
func (p *Profile) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Name
}

// Relationship tracks the character's stance toward the user.
// Trust and intimacy are clamped to [-100, 100].
type Relationship struct {
	Trust      float64 `json:"trust"`
	Intimacy   float64 `json:"intimacy"`
	Impression string  `json:"impression,omitempty"`
}

// PacemakerConfig bounds autonomous self-continuation.
type PacemakerConfig struct {
	// MaxConsecutiveCycles caps cycles per loop invocation; 0 is unbounded.
	MaxConsecutiveCycles int `json:"max_consecutive_cycles"`
}

// ScheduleEntry is a future event the pacemaker watches.
// The pacemaker flips Notified exactly once when the entry comes due.
type ScheduleEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartTime   string `json:"start_time"` // ISO 8601
	Notified    bool   `json:"notified"`
}

// State is the mutable character state persisted to state.json.
type State struct {
	Relationship      Relationship    `json:"relationship"`
	Pacemaker         PacemakerConfig `json:"pacemaker"`
	Schedule          []ScheduleEntry `json:"schedule"`
	CurrentExpression string          `json:"current_expression,omitempty"`
	UserProfile       string          `json:"user_profile,omitempty"`
}
