package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore mirrors the SQL store's constraint behaviour closely enough
// for service tests: one record per (user, phase), one completion per
// (user, idempotency key), capped competency.
type MemoryStore struct {
	mu           sync.Mutex
	phases       map[string]Phase                 // phase id -> phase
	records      map[string]Record                // user|phase -> record
	completions  map[string]Completion            // user|key -> completion
	completionID map[string]*Completion           // completion id -> row
	competencies map[string]*Competency           // user|standard -> row
	knownAct     map[string]bool                  // activity ids for FK checks
}

func NewInMemoryStore() *MemoryStore {
	return &MemoryStore{
		phases:       map[string]Phase{},
		records:      map[string]Record{},
		completions:  map[string]Completion{},
		completionID: map[string]*Completion{},
		competencies: map[string]*Competency{},
		knownAct:     map[string]bool{},
	}
}

// RegisterActivity makes an activity id pass the store's foreign-key check.
func (m *MemoryStore) RegisterActivity(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.knownAct[id] = true
}

func key2(a, b string) string { return a + "|" + b }

func (m *MemoryStore) WithTx(_ context.Context, fn func(tx Store) error) error {
	// single-process store: the lock stands in for a transaction
	return fn(m)
}

func (m *MemoryStore) GetLessonPhases(_ context.Context, lessonID string) ([]Phase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Phase
	for _, p := range m.phases {
		if p.LessonID == lessonID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhaseNumber < out[j].PhaseNumber })
	return out, nil
}

func (m *MemoryStore) PutPhase(_ context.Context, p Phase) (Phase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.phases[p.ID] = p
	return p, nil
}

func (m *MemoryStore) GetRecords(_ context.Context, userID, lessonID string) (map[string]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]Record{}
	for _, rec := range m.records {
		if rec.UserID != userID {
			continue
		}
		if p, ok := m.phases[rec.PhaseID]; ok && p.LessonID == lessonID {
			out[rec.PhaseID] = rec
		}
	}
	return out, nil
}

func (m *MemoryStore) GetRecord(_ context.Context, userID, phaseID string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key2(userID, phaseID)]
	return rec, ok, nil
}

func (m *MemoryStore) UpsertRecord(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key2(rec.UserID, rec.PhaseID)
	if old, ok := m.records[k]; ok {
		rec.ID = old.ID
	} else if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.records[k] = rec
	return rec, nil
}

func (m *MemoryStore) GetCompletionByKey(_ context.Context, userID, idempotencyKey string) (Completion, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.completions[key2(userID, idempotencyKey)]
	return c, ok, nil
}

func (m *MemoryStore) InsertCompletion(_ context.Context, c Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.knownAct) > 0 && !m.knownAct[c.ActivityID] {
		return &StorageError{Op: "insert completion", Code: "23503",
			Err: fmt.Errorf("activity %q does not exist", c.ActivityID)}
	}
	k := key2(c.UserID, c.IdempotencyKey)
	if _, ok := m.completions[k]; ok {
		return &StorageError{Op: "insert completion", Code: "23505",
			Err: fmt.Errorf("duplicate idempotency key %q", c.IdempotencyKey)}
	}
	m.completions[k] = c
	stored := m.completions[k]
	m.completionID[c.ID] = &stored
	return nil
}

func (m *MemoryStore) UpdateCompletionResult(_ context.Context, id, resultJSON string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.completionID[id]
	if !ok {
		return &StorageError{Op: "update completion result", Err: fmt.Errorf("completion %q not found", id)}
	}
	row.ResultJSON = resultJSON
	m.completions[key2(row.UserID, row.IdempotencyKey)] = *row
	return nil
}

func (m *MemoryStore) BumpCompetency(_ context.Context, userID, standardID string, step int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key2(userID, standardID)
	c, ok := m.competencies[k]
	if !ok {
		c = &Competency{UserID: userID, StandardID: standardID}
		m.competencies[k] = c
	}
	c.MasteryLevel += step
	if c.MasteryLevel > 100 {
		c.MasteryLevel = 100
	}
	c.UpdatedAt = time.Now().Unix()
	return c.MasteryLevel, nil
}

func (m *MemoryStore) GetCompetencies(_ context.Context, userID string) ([]Competency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Competency
	for _, c := range m.competencies {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StandardID < out[j].StandardID })
	return out, nil
}
