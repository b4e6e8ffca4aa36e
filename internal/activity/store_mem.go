package activity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore backs tests and single-process demos.
type memoryStore struct {
	mu         sync.RWMutex
	activities map[string]Activity
}

func NewInMemoryStore() Store {
	return &memoryStore{activities: map[string]Activity{}}
}

func (m *memoryStore) PutActivity(_ context.Context, a Activity) (Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().Unix()
	}
	m.activities[a.ID] = a
	return a, nil
}

func (m *memoryStore) GetActivity(_ context.Context, id string) (Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.activities[id]
	if !ok {
		return Activity{}, ErrNotFound
	}
	return a, nil
}

func (m *memoryStore) ListActivities(_ context.Context, lessonID string) ([]Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Activity
	for _, a := range m.activities {
		if a.LessonID == lessonID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}
