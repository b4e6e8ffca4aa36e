package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutActivity(ctx context.Context, a Activity) (Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().Unix()
	}
	gj, err := json.Marshal(a.Grading)
	if err != nil {
		return Activity{}, err
	}
	if len(a.Props) == 0 {
		a.Props = json.RawMessage(`{}`)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activities (id, lesson_id, component_key, title, props_json, grading_json, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO UPDATE SET
		   lesson_id=EXCLUDED.lesson_id, component_key=EXCLUDED.component_key,
		   title=EXCLUDED.title, props_json=EXCLUDED.props_json, grading_json=EXCLUDED.grading_json`,
		a.ID, a.LessonID, a.ComponentKey, a.Title, string(a.Props), string(gj), a.CreatedAt)
	if err != nil {
		return Activity{}, err
	}
	return a, nil
}

func (s *SQLStore) GetActivity(ctx context.Context, id string) (Activity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, lesson_id, component_key, title, props_json, grading_json, created_at
		 FROM activities WHERE id=$1`, id)
	return scanActivity(row)
}

func (s *SQLStore) ListActivities(ctx context.Context, lessonID string) ([]Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lesson_id, component_key, title, props_json, grading_json, created_at
		 FROM activities WHERE lesson_id=$1 ORDER BY created_at`, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(row rowScanner) (Activity, error) {
	var a Activity
	var props, gj string
	if err := row.Scan(&a.ID, &a.LessonID, &a.ComponentKey, &a.Title, &props, &gj, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Activity{}, ErrNotFound
		}
		return Activity{}, err
	}
	a.Props = json.RawMessage(props)
	if err := json.Unmarshal([]byte(gj), &a.Grading); err != nil {
		return Activity{}, err
	}
	return a, nil
}
