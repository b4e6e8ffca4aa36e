package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlab/coursebook/internal/activity"
	"github.com/ledgerlab/coursebook/internal/grading"
	"github.com/ledgerlab/coursebook/internal/spreadsheet"
)

// MasteryStep is the fixed competency increment per qualifying activity
// completion, independent of score quality.
const MasteryStep = 10

// EventSink receives best-effort completion events. Append failures are
// logged by the service, never surfaced.
type EventSink interface {
	Append(ctx context.Context, typ, key string, data interface{}) error
}

// ValidationError rejects a submission before any grading or mutation.
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string { return e.Reason }

type Service struct {
	store      Store
	activities activity.Store
	events     EventSink
	cache      *Cache
	now        func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithEvents(e EventSink) Option         { return func(s *Service) { s.events = e } }
func WithCache(c *Cache) Option             { return func(s *Service) { s.cache = c } }

func NewService(store Store, activities activity.Store, opts ...Option) *Service {
	s := &Service{store: store, activities: activities, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

type CompletePhaseInput struct {
	TimeSpentSec   int
	IdempotencyKey string
}

type CompletePhaseResult struct {
	Success           bool   `json:"success"`
	AlreadyCompleted  bool   `json:"already_completed"`
	NextPhaseUnlocked bool   `json:"next_phase_unlocked"`
	Message           string `json:"message"`
	CompletedAt       int64  `json:"completed_at"`
	CompletedPhases   int    `json:"completed_phases"`
	TotalPhases       int    `json:"total_phases"`
}

// CompletePhase marks phase phaseNumber of the lesson completed for userID.
// Re-submitting with the idempotency key of an earlier completion replays the
// original result, original timestamp included.
func (s *Service) CompletePhase(ctx context.Context, userID, lessonID string, phaseNumber int, in CompletePhaseInput) (CompletePhaseResult, error) {
	phases, i, err := s.resolvePhase(ctx, lessonID, phaseNumber)
	if err != nil {
		return CompletePhaseResult{}, err
	}
	records, err := s.store.GetRecords(ctx, userID, lessonID)
	if err != nil {
		return CompletePhaseResult{}, err
	}
	if !accessible(phases, records, i) {
		return CompletePhaseResult{}, ErrPhaseLocked
	}
	phase := phases[i]

	if rec, ok := records[phase.ID]; ok && rec.Status == StatusCompleted &&
		in.IdempotencyKey != "" && rec.IdempotencyKey == in.IdempotencyKey {
		res := s.phaseResult(phases, records, i, rec.CompletedAt)
		res.AlreadyCompleted = true
		return res, nil
	}

	now := s.now().Unix()
	rec := Record{
		UserID:         userID,
		PhaseID:        phase.ID,
		Status:         StatusCompleted,
		StartedAt:      now,
		CompletedAt:    now,
		TimeSpentSec:   in.TimeSpentSec,
		IdempotencyKey: in.IdempotencyKey,
	}
	if old, ok := records[phase.ID]; ok && old.StartedAt != 0 {
		rec.StartedAt = old.StartedAt
	}
	stored, err := s.store.UpsertRecord(ctx, rec)
	if err != nil {
		return CompletePhaseResult{}, err
	}
	records[phase.ID] = stored
	s.invalidate(userID, lessonID)
	s.emit(ctx, "PhaseCompleted", phase.ID, map[string]interface{}{
		"user_id": userID, "lesson_id": lessonID, "phase_number": phase.PhaseNumber,
	})
	return s.phaseResult(phases, records, i, stored.CompletedAt), nil
}

func (s *Service) phaseResult(phases []Phase, records map[string]Record, i int, completedAt int64) CompletePhaseResult {
	phase := phases[i]
	res := CompletePhaseResult{
		Success:     true,
		CompletedAt: completedAt,
		TotalPhases: len(phases),
	}
	for _, rec := range records {
		if rec.Status == StatusCompleted {
			res.CompletedPhases++
		}
	}
	if i+1 < len(phases) {
		res.NextPhaseUnlocked = true
		res.Message = fmt.Sprintf("Phase %d complete. Phase %d is now unlocked.", phase.PhaseNumber, phases[i+1].PhaseNumber)
	} else {
		res.Message = fmt.Sprintf("Phase %d complete. This was the final phase of the lesson.", phase.PhaseNumber)
	}
	return res
}

type CompleteActivityInput struct {
	ActivityID       string
	LessonID         string
	PhaseNumber      int
	LinkedStandardID string
	CompletionData   json.RawMessage
	IdempotencyKey   string
}

type CompleteActivityResult struct {
	Success           bool   `json:"success"`
	AlreadyCompleted  bool   `json:"already_completed"`
	NextPhaseUnlocked bool   `json:"next_phase_unlocked"`
	Message           string `json:"message"`
	CompletionID      string `json:"completion_id"`
	CompletedAt       int64  `json:"completed_at"`
	CompletedPhases   int    `json:"completed_phases"`
	TotalPhases       int    `json:"total_phases"`
	MasteryLevel      int    `json:"mastery_level,omitempty"`
}

// CompleteActivity records an activity completion, the phase progress it
// implies, and any linked competency bump, all inside one transaction. A
// reused idempotency key echoes the originally stored result without
// re-mutating anything.
func (s *Service) CompleteActivity(ctx context.Context, userID string, in CompleteActivityInput) (CompleteActivityResult, error) {
	phases, i, err := s.resolvePhase(ctx, in.LessonID, in.PhaseNumber)
	if err != nil {
		return CompleteActivityResult{}, err
	}
	records, err := s.store.GetRecords(ctx, userID, in.LessonID)
	if err != nil {
		return CompleteActivityResult{}, err
	}
	if !accessible(phases, records, i) {
		return CompleteActivityResult{}, ErrPhaseLocked
	}
	phase := phases[i]

	var res CompleteActivityResult
	err = s.store.WithTx(ctx, func(tx Store) error {
		if prior, ok, err := tx.GetCompletionByKey(ctx, userID, in.IdempotencyKey); err != nil {
			return err
		} else if ok {
			if err := json.Unmarshal([]byte(prior.ResultJSON), &res); err != nil {
				return fmt.Errorf("decode stored completion result: %w", err)
			}
			res.AlreadyCompleted = true
			return nil
		}

		now := s.now().Unix()
		c := Completion{
			ID:             uuid.NewString(),
			UserID:         userID,
			ActivityID:     in.ActivityID,
			PhaseID:        phase.ID,
			IdempotencyKey: in.IdempotencyKey,
			Data:           in.CompletionData,
			CompletedAt:    now,
		}
		if err := tx.InsertCompletion(ctx, c); err != nil {
			return err
		}

		rec := Record{
			UserID:         userID,
			PhaseID:        phase.ID,
			Status:         StatusCompleted,
			StartedAt:      now,
			CompletedAt:    now,
			TimeSpentSec:   0,
			IdempotencyKey: in.IdempotencyKey,
		}
		if old, ok := records[phase.ID]; ok {
			if old.StartedAt != 0 {
				rec.StartedAt = old.StartedAt
			}
			rec.TimeSpentSec = old.TimeSpentSec
		}
		stored, err := tx.UpsertRecord(ctx, rec)
		if err != nil {
			return err
		}

		res = CompleteActivityResult{
			Success:      true,
			CompletionID: c.ID,
			CompletedAt:  stored.CompletedAt,
			TotalPhases:  len(phases),
		}
		if in.LinkedStandardID != "" {
			level, err := tx.BumpCompetency(ctx, userID, in.LinkedStandardID, MasteryStep)
			if err != nil {
				return err
			}
			res.MasteryLevel = level
		}

		// the secondary recount is advisory: the completion write above is
		// the source of truth even when this read fails
		if fresh, err := tx.GetRecords(ctx, userID, in.LessonID); err != nil {
			log.Printf("progress: recount after completion failed: %v", err)
		} else {
			for _, r := range fresh {
				if r.Status == StatusCompleted {
					res.CompletedPhases++
				}
			}
		}
		if i+1 < len(phases) {
			res.NextPhaseUnlocked = true
			res.Message = fmt.Sprintf("Phase %d complete. Phase %d is now unlocked.", phase.PhaseNumber, phases[i+1].PhaseNumber)
		} else {
			res.Message = fmt.Sprintf("Phase %d complete. This was the final phase of the lesson.", phase.PhaseNumber)
		}

		buf, err := json.Marshal(res)
		if err != nil {
			return err
		}
		return tx.UpdateCompletionResult(ctx, c.ID, string(buf))
	})
	if err != nil {
		return CompleteActivityResult{}, err
	}
	if !res.AlreadyCompleted {
		s.invalidate(userID, in.LessonID)
		s.emit(ctx, "ActivityCompleted", in.ActivityID, map[string]interface{}{
			"user_id": userID, "lesson_id": in.LessonID, "phase_number": in.PhaseNumber,
			"completion_id": res.CompletionID,
		})
	}
	return res, nil
}

// ScoreActivity auto-grades a question-bank or fill-in-blank submission.
func (s *Service) ScoreActivity(ctx context.Context, userID, activityID string, answers map[string]interface{}) (grading.ScoreResult, error) {
	act, err := s.activities.GetActivity(ctx, activityID)
	if err != nil {
		return grading.ScoreResult{}, err
	}
	content, err := act.Content()
	if err != nil {
		return grading.ScoreResult{}, err
	}
	res, err := grading.Score(content, act.Grading, answers)
	if err != nil {
		return grading.ScoreResult{}, err
	}
	s.emit(ctx, "ActivityScored", activityID, map[string]interface{}{
		"user_id": userID, "percentage": res.Percentage,
	})
	return res, nil
}

type SubmitSpreadsheetInput struct {
	ActivityID  string
	LessonID    string
	PhaseNumber int
	Grid        spreadsheet.Grid
}

// SubmitSpreadsheet sanitizes then grades a spreadsheet grid against the
// activity's target cells, and persists the outcome on the phase's progress
// record: completed when every target matches, in_progress otherwise. A
// phase already completed is never downgraded by a later partial submission.
func (s *Service) SubmitSpreadsheet(ctx context.Context, userID string, in SubmitSpreadsheetInput) (spreadsheet.Result, error) {
	phases, i, err := s.resolvePhase(ctx, in.LessonID, in.PhaseNumber)
	if err != nil {
		return spreadsheet.Result{}, err
	}
	records, err := s.store.GetRecords(ctx, userID, in.LessonID)
	if err != nil {
		return spreadsheet.Result{}, err
	}
	if !accessible(phases, records, i) {
		return spreadsheet.Result{}, ErrPhaseLocked
	}
	phase := phases[i]

	act, err := s.activities.GetActivity(ctx, in.ActivityID)
	if err != nil {
		return spreadsheet.Result{}, err
	}
	if ok, reason := spreadsheet.ValidateGrid(in.Grid); !ok {
		return spreadsheet.Result{}, &ValidationError{Reason: reason}
	}
	content, err := act.Content()
	if err != nil {
		return spreadsheet.Result{}, err
	}
	sheet, ok := content.(grading.SpreadsheetSheet)
	if !ok {
		return spreadsheet.Result{}, grading.ErrUnsupportedContent
	}
	res := spreadsheet.ValidateSubmission(in.Grid, sheet.TargetCells)

	if old, done := records[phase.ID]; !done || old.Status != StatusCompleted {
		now := s.now().Unix()
		rec := Record{
			UserID:    userID,
			PhaseID:   phase.ID,
			Status:    StatusInProgress,
			StartedAt: now,
		}
		if old.StartedAt != 0 {
			rec.StartedAt = old.StartedAt
		}
		if res.IsComplete {
			rec.Status = StatusCompleted
			rec.CompletedAt = now
		}
		if _, err := s.store.UpsertRecord(ctx, rec); err != nil {
			return spreadsheet.Result{}, err
		}
		s.invalidate(userID, in.LessonID)
	}

	s.emit(ctx, "SpreadsheetSubmitted", in.ActivityID, map[string]interface{}{
		"user_id": userID, "correct": res.CorrectCells, "total": res.TotalCells,
	})
	return res, nil
}

// LessonStatus computes the per-phase states for one user, consulting the
// best-effort read cache when one is configured.
func (s *Service) LessonStatus(ctx context.Context, userID, lessonID string) ([]PhaseStatus, error) {
	if s.cache != nil {
		if statuses, ok := s.cache.Get(userID, lessonID); ok {
			return statuses, nil
		}
	}
	phases, err := s.store.GetLessonPhases(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if len(phases) == 0 {
		return nil, ErrLessonNotFound
	}
	records, err := s.store.GetRecords(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	statuses := PhaseStatuses(phases, records)
	if s.cache != nil {
		s.cache.Put(userID, lessonID, statuses)
	}
	return statuses, nil
}

// StartPhase marks a phase in_progress without completing it.
func (s *Service) StartPhase(ctx context.Context, userID, lessonID string, phaseNumber int) (Record, error) {
	phases, i, err := s.resolvePhase(ctx, lessonID, phaseNumber)
	if err != nil {
		return Record{}, err
	}
	records, err := s.store.GetRecords(ctx, userID, lessonID)
	if err != nil {
		return Record{}, err
	}
	if !accessible(phases, records, i) {
		return Record{}, ErrPhaseLocked
	}
	if rec, ok := records[phases[i].ID]; ok && rec.Status == StatusCompleted {
		return rec, nil
	}
	rec := Record{
		UserID:    userID,
		PhaseID:   phases[i].ID,
		Status:    StatusInProgress,
		StartedAt: s.now().Unix(),
	}
	if old, ok := records[phases[i].ID]; ok && old.StartedAt != 0 {
		rec.StartedAt = old.StartedAt
	}
	stored, err := s.store.UpsertRecord(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	s.invalidate(userID, lessonID)
	return stored, nil
}

// Competencies lists the caller's mastery records.
func (s *Service) Competencies(ctx context.Context, userID string) ([]Competency, error) {
	return s.store.GetCompetencies(ctx, userID)
}

func (s *Service) resolvePhase(ctx context.Context, lessonID string, phaseNumber int) ([]Phase, int, error) {
	phases, err := s.store.GetLessonPhases(ctx, lessonID)
	if err != nil {
		return nil, 0, err
	}
	if len(phases) == 0 {
		return nil, 0, ErrLessonNotFound
	}
	for i, p := range phases {
		if p.PhaseNumber == phaseNumber {
			return phases, i, nil
		}
	}
	return nil, 0, ErrPhaseNotFound
}

func (s *Service) invalidate(userID, lessonID string) {
	if s.cache != nil {
		s.cache.Invalidate(userID, lessonID)
	}
}

func (s *Service) emit(ctx context.Context, typ, key string, data interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, typ, key, data); err != nil {
		log.Printf("progress: event %s append failed: %v", typ, err)
	}
}
