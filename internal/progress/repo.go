package progress

import "context"

// Store is the persistence collaborator for phases, progress records,
// activity completions and competencies. Uniqueness of (user, phase) and
// atomicity of multi-row writes are the store's responsibility; the service
// expresses them as preconditions only.
type Store interface {
	GetLessonPhases(ctx context.Context, lessonID string) ([]Phase, error)
	PutPhase(ctx context.Context, p Phase) (Phase, error)

	GetRecords(ctx context.Context, userID, lessonID string) (map[string]Record, error)
	GetRecord(ctx context.Context, userID, phaseID string) (Record, bool, error)
	// UpsertRecord inserts or updates the single row keyed by (user, phase).
	UpsertRecord(ctx context.Context, rec Record) (Record, error)

	GetCompletionByKey(ctx context.Context, userID, idempotencyKey string) (Completion, bool, error)
	InsertCompletion(ctx context.Context, c Completion) error
	UpdateCompletionResult(ctx context.Context, id, resultJSON string) error

	// BumpCompetency raises mastery by step, capping at 100, creating the row
	// on first touch. Returns the new level.
	BumpCompetency(ctx context.Context, userID, standardID string, step int) (int, error)
	GetCompetencies(ctx context.Context, userID string) ([]Competency, error)

	// WithTx runs fn against a store bound to one transaction. The memory
	// store runs fn under its lock.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
