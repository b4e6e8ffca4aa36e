package progress

import "encoding/json"

// Record status values, stored as-is.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Derived per-phase states. Never stored; recomputed on every read.
const (
	StateLocked    = "locked"
	StateAvailable = "available"
	StateCurrent   = "current"
	StateCompleted = "completed"
)

// Phase is one sequential step within a lesson. Phase numbers are 1-based and
// dense within a lesson; the unlock rule depends on that.
type Phase struct {
	ID          string `json:"id"`
	LessonID    string `json:"lesson_id"`
	PhaseNumber int    `json:"phase_number"`
	Title       string `json:"title"`
	ContentKey  string `json:"content_key,omitempty"`
}

// Record is a user's progress on one phase. There is at most one row per
// (user, phase); the store enforces that with a uniqueness constraint.
// Timestamps are unix seconds, zero when unset.
type Record struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	PhaseID        string `json:"phase_id"`
	Status         string `json:"status"`
	StartedAt      int64  `json:"started_at,omitempty"`
	CompletedAt    int64  `json:"completed_at,omitempty"`
	TimeSpentSec   int    `json:"time_spent_seconds"`
	IdempotencyKey string `json:"-"`
}

// Completion is one recorded activity completion, written atomically with the
// progress upsert it implies. ResultJSON is echoed verbatim on idempotent
// replay.
type Completion struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	ActivityID     string          `json:"activity_id"`
	PhaseID        string          `json:"phase_id"`
	IdempotencyKey string          `json:"-"`
	Data           json.RawMessage `json:"data,omitempty"`
	ResultJSON     string          `json:"-"`
	CompletedAt    int64           `json:"completed_at"`
}

// Competency tracks mastery of one standard, 0-100.
type Competency struct {
	UserID       string `json:"user_id"`
	StandardID   string `json:"standard_id"`
	MasteryLevel int    `json:"mastery_level"`
	UpdatedAt    int64  `json:"updated_at"`
}

// PhaseStatus pairs a phase with its derived state for one user.
type PhaseStatus struct {
	PhaseID     string `json:"phase_id"`
	PhaseNumber int    `json:"phase_number"`
	Title       string `json:"title"`
	State       string `json:"state"`
}
