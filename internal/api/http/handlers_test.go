package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerlab/coursebook/internal/activity"
	"github.com/ledgerlab/coursebook/internal/auth"
	"github.com/ledgerlab/coursebook/internal/events"
	"github.com/ledgerlab/coursebook/internal/grading"
	"github.com/ledgerlab/coursebook/internal/progress"
	"github.com/ledgerlab/coursebook/internal/rbac"
)

func newTestRouter(t *testing.T) (chi.Router, *auth.AuthService, activity.Store) {
	t.Helper()
	store := progress.NewInMemoryStore()
	ctx := context.Background()
	for i, id := range []string{"p1", "p2", "p3"} {
		if _, err := store.PutPhase(ctx, progress.Phase{ID: id, LessonID: "l1", PhaseNumber: i + 1}); err != nil {
			t.Fatal(err)
		}
	}
	acts := activity.NewInMemoryStore()
	svc := progress.NewService(store, acts)
	authSvc := auth.NewAuthService("test-secret")

	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.With(rbac.Require("lesson:view")).
			Get("/lessons/{lessonID}/progress", LessonStatusHandler(svc))
		pr.With(rbac.Require("phase:complete")).
			Post("/lessons/{lessonID}/phases/{phaseNumber}/complete", CompletePhaseHandler(svc))
		pr.With(rbac.Require("activity:submit")).
			Post("/activities/{activityID}/score", ScoreActivityHandler(svc))
		pr.With(rbac.Require("activity:submit")).
			Post("/activities/{activityID}/spreadsheet", SubmitSpreadsheetHandler(svc))
		pr.With(rbac.Require("activity:create")).
			Post("/activities", CreateActivityHandler(acts))
	})
	return r, authSvc, acts
}

func doJSON(t *testing.T, r chi.Router, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCompletePhaseEndpoint(t *testing.T) {
	r, authSvc, _ := newTestRouter(t)
	tok, err := authSvc.IssueJWT("u1", "student")
	if err != nil {
		t.Fatal(err)
	}

	// no token
	w := doJSON(t, r, "POST", "/lessons/l1/phases/1/complete", "", `{"idempotency_key":"k1"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}

	// missing idempotency key, named in the per-field detail
	w = doJSON(t, r, "POST", "/lessons/l1/phases/1/complete", tok, `{"time_spent_seconds":10}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "IdempotencyKey") {
		t.Fatalf("400 body should name the failing field: %s", w.Body.String())
	}

	// locked phase
	w = doJSON(t, r, "POST", "/lessons/l1/phases/3/complete", tok, `{"idempotency_key":"k1"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d: %s", w.Code, w.Body.String())
	}

	// happy path
	w = doJSON(t, r, "POST", "/lessons/l1/phases/1/complete", tok, `{"idempotency_key":"k1","time_spent_seconds":30}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	var res progress.CompletePhaseResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success || !res.NextPhaseUnlocked {
		t.Fatalf("unexpected result: %+v", res)
	}

	// missing phase
	w = doJSON(t, r, "POST", "/lessons/l1/phases/9/complete", tok, `{"idempotency_key":"k2"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRBACOnAuthoring(t *testing.T) {
	r, authSvc, _ := newTestRouter(t)
	student, _ := authSvc.IssueJWT("u1", "student")
	instructor, _ := authSvc.IssueJWT("i1", "instructor")

	body := `{"lesson_id":"l1","component_key":"question-bank","props":{"questions":[{"id":"q1","correctAnswer":"A"}]},"auto_grade":true}`

	w := doJSON(t, r, "POST", "/activities", student, body)
	if w.Code != http.StatusForbidden {
		t.Fatalf("student create: want 403, got %d", w.Code)
	}
	w = doJSON(t, r, "POST", "/activities", instructor, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("instructor create: want 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitSpreadsheetEndpoint(t *testing.T) {
	r, authSvc, acts := newTestRouter(t)
	tok, _ := authSvc.IssueJWT("u1", "student")

	act, err := acts.PutActivity(context.Background(), activity.Activity{
		LessonID: "l1",
		Props:    json.RawMessage(`{"targetCells":[{"ref":"A1","expected":100}]}`),
		Grading:  grading.Config{AutoGrade: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	// lesson and phase are required so the submission can be recorded
	w := doJSON(t, r, "POST", "/activities/"+act.ID+"/spreadsheet", tok, `{"grid":[[{"value":"100"}]]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d: %s", w.Code, w.Body.String())
	}

	body := `{"lesson_id":"l1","phase_number":1,"grid":[[{"value":"100"}]]}`
	w = doJSON(t, r, "POST", "/activities/"+act.ID+"/spreadsheet", tok, body)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	var res struct {
		IsComplete bool `json:"is_complete"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.IsComplete {
		t.Fatalf("grid matches the target yet is_complete is false: %s", w.Body.String())
	}
}

type fakeEventLister struct{ evs []events.Event }

func (f *fakeEventLister) Recent(_ context.Context, n int) ([]events.Event, error) {
	if n > 0 && n < len(f.evs) {
		return f.evs[:n], nil
	}
	return f.evs, nil
}

func TestRecentEventsEndpoint(t *testing.T) {
	authSvc := auth.NewAuthService("test-secret")
	lister := &fakeEventLister{evs: []events.Event{
		{Offset: 2, Type: "PhaseCompleted", Key: "p1"},
		{Offset: 1, Type: "ActivityScored", Key: "a1"},
	}}
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.With(rbac.Require("progress:view-all")).
			Get("/events", RecentEventsHandler(lister))
	})

	student, _ := authSvc.IssueJWT("u1", "student")
	instructor, _ := authSvc.IssueJWT("i1", "instructor")

	w := doJSON(t, r, "GET", "/events", student, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("student: want 403, got %d", w.Code)
	}

	w = doJSON(t, r, "GET", "/events?limit=1", instructor, "")
	if w.Code != http.StatusOK {
		t.Fatalf("instructor: want 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Events []events.Event `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Events) != 1 || body.Events[0].Type != "PhaseCompleted" {
		t.Fatalf("unexpected events: %+v", body.Events)
	}
}

func TestScoreEndpointGradingErrors(t *testing.T) {
	r, authSvc, acts := newTestRouter(t)
	tok, _ := authSvc.IssueJWT("u1", "student")

	act, err := acts.PutActivity(context.Background(), activity.Activity{
		LessonID: "l1",
		Props:    json.RawMessage(`{"questions":[{"id":"q1","correctAnswer":"A"}]}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	// autoGrade unset -> configuration error, not a server fault
	w := doJSON(t, r, "POST", "/activities/"+act.ID+"/score", tok, `{"answers":{"q1":"A"}}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, "POST", "/activities/missing/score", tok, `{"answers":{"q1":"A"}}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d: %s", w.Code, w.Body.String())
	}
}
