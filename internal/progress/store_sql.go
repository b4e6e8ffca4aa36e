package progress

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLStore works against sqlite and postgres alike; both drivers accept the
// $n placeholder form used here.
type SQLStore struct {
	db *sql.DB
	q  dbtx
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db, q: db} }

func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin tx", err)
	}
	if err := fn(&SQLStore{db: s.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit tx", err)
	}
	return nil
}

func (s *SQLStore) GetLessonPhases(ctx context.Context, lessonID string) ([]Phase, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, lesson_id, phase_number, title, content_key
		 FROM phases WHERE lesson_id=$1 ORDER BY phase_number`, lessonID)
	if err != nil {
		return nil, storageErr("list phases", err)
	}
	defer rows.Close()
	var out []Phase
	for rows.Next() {
		var p Phase
		if err := rows.Scan(&p.ID, &p.LessonID, &p.PhaseNumber, &p.Title, &p.ContentKey); err != nil {
			return nil, storageErr("scan phase", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutPhase(ctx context.Context, p Phase) (Phase, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO phases (id, lesson_id, phase_number, title, content_key)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (lesson_id, phase_number) DO UPDATE SET
		   title=EXCLUDED.title, content_key=EXCLUDED.content_key`,
		p.ID, p.LessonID, p.PhaseNumber, p.Title, p.ContentKey)
	if err != nil {
		return Phase{}, storageErr("put phase", err)
	}
	return p, nil
}

func (s *SQLStore) GetRecords(ctx context.Context, userID, lessonID string) (map[string]Record, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.phase_id, r.status, r.started_at, r.completed_at, r.time_spent_sec, r.idempotency_key
		 FROM progress_records r JOIN phases p ON p.id = r.phase_id
		 WHERE r.user_id=$1 AND p.lesson_id=$2`, userID, lessonID)
	if err != nil {
		return nil, storageErr("list records", err)
	}
	defer rows.Close()
	out := map[string]Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out[rec.PhaseID] = rec
	}
	return out, rows.Err()
}

func (s *SQLStore) GetRecord(ctx context.Context, userID, phaseID string) (Record, bool, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, user_id, phase_id, status, started_at, completed_at, time_spent_sec, idempotency_key
		 FROM progress_records WHERE user_id=$1 AND phase_id=$2`, userID, phaseID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *SQLStore) UpsertRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO progress_records (id, user_id, phase_id, status, started_at, completed_at, time_spent_sec, idempotency_key)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (user_id, phase_id) DO UPDATE SET
		   status=EXCLUDED.status, started_at=EXCLUDED.started_at,
		   completed_at=EXCLUDED.completed_at, time_spent_sec=EXCLUDED.time_spent_sec,
		   idempotency_key=EXCLUDED.idempotency_key`,
		rec.ID, rec.UserID, rec.PhaseID, rec.Status, rec.StartedAt, rec.CompletedAt, rec.TimeSpentSec, rec.IdempotencyKey)
	if err != nil {
		return Record{}, storageErr("upsert record", err)
	}
	// the conflict path keeps the original row id
	stored, ok, err := s.GetRecord(ctx, rec.UserID, rec.PhaseID)
	if err != nil || !ok {
		return rec, err
	}
	return stored, nil
}

func (s *SQLStore) GetCompletionByKey(ctx context.Context, userID, idempotencyKey string) (Completion, bool, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, user_id, activity_id, phase_id, idempotency_key, data_json, result_json, completed_at
		 FROM activity_completions WHERE user_id=$1 AND idempotency_key=$2`, userID, idempotencyKey)
	var c Completion
	var data string
	err := row.Scan(&c.ID, &c.UserID, &c.ActivityID, &c.PhaseID, &c.IdempotencyKey, &data, &c.ResultJSON, &c.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Completion{}, false, nil
		}
		return Completion{}, false, storageErr("get completion", err)
	}
	c.Data = []byte(data)
	return c, true, nil
}

func (s *SQLStore) InsertCompletion(ctx context.Context, c Completion) error {
	data := "{}"
	if len(c.Data) > 0 {
		data = string(c.Data)
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO activity_completions (id, user_id, activity_id, phase_id, idempotency_key, data_json, result_json, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.UserID, c.ActivityID, c.PhaseID, c.IdempotencyKey, data, c.ResultJSON, c.CompletedAt)
	if err != nil {
		return storageErr("insert completion", err)
	}
	return nil
}

func (s *SQLStore) UpdateCompletionResult(ctx context.Context, id, resultJSON string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE activity_completions SET result_json=$1 WHERE id=$2`, resultJSON, id)
	if err != nil {
		return storageErr("update completion result", err)
	}
	return nil
}

func (s *SQLStore) BumpCompetency(ctx context.Context, userID, standardID string, step int) (int, error) {
	now := time.Now().Unix()
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO competency_records (user_id, standard_id, mastery_level, updated_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (user_id, standard_id) DO UPDATE SET
		   mastery_level=CASE WHEN competency_records.mastery_level+$3 > 100 THEN 100
		                      ELSE competency_records.mastery_level+$3 END,
		   updated_at=$4`,
		userID, standardID, step, now)
	if err != nil {
		return 0, storageErr("bump competency", err)
	}
	var level int
	err = s.q.QueryRowContext(ctx,
		`SELECT mastery_level FROM competency_records WHERE user_id=$1 AND standard_id=$2`,
		userID, standardID).Scan(&level)
	if err != nil {
		return 0, storageErr("read competency", err)
	}
	return level, nil
}

func (s *SQLStore) GetCompetencies(ctx context.Context, userID string) ([]Competency, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT user_id, standard_id, mastery_level, updated_at
		 FROM competency_records WHERE user_id=$1 ORDER BY standard_id`, userID)
	if err != nil {
		return nil, storageErr("list competencies", err)
	}
	defer rows.Close()
	var out []Competency
	for rows.Next() {
		var c Competency
		if err := rows.Scan(&c.UserID, &c.StandardID, &c.MasteryLevel, &c.UpdatedAt); err != nil {
			return nil, storageErr("scan competency", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanRecord(row interface{ Scan(...interface{}) error }) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.UserID, &rec.PhaseID, &rec.Status,
		&rec.StartedAt, &rec.CompletedAt, &rec.TimeSpentSec, &rec.IdempotencyKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, storageErr("scan record", err)
	}
	return rec, nil
}

// storageErr preserves the driver's constraint code so callers can tell a
// foreign-key violation apart from a generic failure.
func storageErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &StorageError{Op: op, Code: pgErr.Code, Err: err}
	}
	if strings.Contains(err.Error(), "FOREIGN KEY constraint") {
		// modernc sqlite reports SQLITE_CONSTRAINT_FOREIGNKEY in the message
		return &StorageError{Op: op, Code: "23503", Err: err}
	}
	return &StorageError{Op: op, Err: err}
}
