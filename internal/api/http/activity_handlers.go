package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerlab/coursebook/internal/activity"
	"github.com/ledgerlab/coursebook/internal/auth"
	"github.com/ledgerlab/coursebook/internal/grading"
	"github.com/ledgerlab/coursebook/internal/progress"
	"github.com/ledgerlab/coursebook/internal/rbac"
	"github.com/ledgerlab/coursebook/internal/spreadsheet"
)

var checker = rbac.NewChecker(nil)

type createActivityReq struct {
	LessonID     string          `json:"lesson_id" validate:"required"`
	ComponentKey string          `json:"component_key" validate:"required"`
	Title        string          `json:"title"`
	Props        json.RawMessage `json:"props" validate:"required"`
	AutoGrade    bool            `json:"auto_grade"`
	PassingScore int             `json:"passing_score" validate:"gte=0,lte=100"`
}

// POST /activities (instructor)
func CreateActivityHandler(store activity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createActivityReq
		if !decodeValid(w, r, &req) {
			return
		}
		// reject shapes the grader cannot handle up front
		if _, err := grading.DecodeContent(req.Props); err != nil {
			writeErr(w, err)
			return
		}
		a, err := store.PutActivity(r.Context(), activity.Activity{
			LessonID:     req.LessonID,
			ComponentKey: req.ComponentKey,
			Title:        req.Title,
			Props:        req.Props,
			Grading:      grading.Config{AutoGrade: req.AutoGrade, PassingScore: req.PassingScore},
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// GET /activities/{activityID} returns the answer-stripped view to students.
func GetActivityHandler(store activity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.GetActivity(r.Context(), chi.URLParam(r, "activityID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if !checker.Has(rbac.RoleFromContext(r.Context()), "activity:view-full") {
			a = a.StudentView()
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /lessons/{lessonID}/activities
func ListActivitiesHandler(store activity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acts, err := store.ListActivities(r.Context(), chi.URLParam(r, "lessonID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		full := checker.Has(rbac.RoleFromContext(r.Context()), "activity:view-full")
		out := make([]activity.Activity, 0, len(acts))
		for _, a := range acts {
			if !full {
				a = a.StudentView()
			}
			out = append(out, a)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"activities": out})
	}
}

type scoreReq struct {
	Answers map[string]interface{} `json:"answers" validate:"required"`
}

// POST /activities/{activityID}/score
func ScoreActivityHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		var req scoreReq
		if !decodeValid(w, r, &req) {
			return
		}
		res, err := svc.ScoreActivity(r.Context(), userID, chi.URLParam(r, "activityID"), req.Answers)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type spreadsheetReq struct {
	LessonID    string           `json:"lesson_id" validate:"required"`
	PhaseNumber int              `json:"phase_number" validate:"required,gt=0"`
	Grid        spreadsheet.Grid `json:"grid" validate:"required"`
}

// POST /activities/{activityID}/spreadsheet
func SubmitSpreadsheetHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		var req spreadsheetReq
		if !decodeValid(w, r, &req) {
			return
		}
		res, err := svc.SubmitSpreadsheet(r.Context(), userID, progress.SubmitSpreadsheetInput{
			ActivityID:  chi.URLParam(r, "activityID"),
			LessonID:    req.LessonID,
			PhaseNumber: req.PhaseNumber,
			Grid:        req.Grid,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type completeActivityReq struct {
	LessonID         string          `json:"lesson_id" validate:"required"`
	PhaseNumber      int             `json:"phase_number" validate:"required,gt=0"`
	LinkedStandardID string          `json:"linked_standard_id"`
	CompletionData   json.RawMessage `json:"completion_data"`
	IdempotencyKey   string          `json:"idempotency_key" validate:"required"`
}

// POST /activities/{activityID}/complete
func CompleteActivityHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		var req completeActivityReq
		if !decodeValid(w, r, &req) {
			return
		}
		res, err := svc.CompleteActivity(r.Context(), userID, progress.CompleteActivityInput{
			ActivityID:       chi.URLParam(r, "activityID"),
			LessonID:         req.LessonID,
			PhaseNumber:      req.PhaseNumber,
			LinkedStandardID: req.LinkedStandardID,
			CompletionData:   req.CompletionData,
			IdempotencyKey:   req.IdempotencyKey,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
