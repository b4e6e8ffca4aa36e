package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerlab/coursebook/internal/auth"
	"github.com/ledgerlab/coursebook/internal/progress"
)

// GET /lessons/{lessonID}/progress
func LessonStatusHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		statuses, err := svc.LessonStatus(r.Context(), userID, chi.URLParam(r, "lessonID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"phases": statuses})
	}
}

// POST /lessons/{lessonID}/phases/{phaseNumber}/start
func StartPhaseHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		n, err := strconv.Atoi(chi.URLParam(r, "phaseNumber"))
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errBody{Error: "phase number must be a positive integer"})
			return
		}
		rec, err := svc.StartPhase(r.Context(), userID, chi.URLParam(r, "lessonID"), n)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

type completePhaseReq struct {
	TimeSpentSeconds int    `json:"time_spent_seconds" validate:"gte=0"`
	IdempotencyKey   string `json:"idempotency_key" validate:"required"`
}

// POST /lessons/{lessonID}/phases/{phaseNumber}/complete
func CompletePhaseHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		n, err := strconv.Atoi(chi.URLParam(r, "phaseNumber"))
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errBody{Error: "phase number must be a positive integer"})
			return
		}
		var req completePhaseReq
		if !decodeValid(w, r, &req) {
			return
		}
		res, err := svc.CompletePhase(r.Context(), userID, chi.URLParam(r, "lessonID"), n, progress.CompletePhaseInput{
			TimeSpentSec:   req.TimeSpentSeconds,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /competencies
func CompetenciesHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		comps, err := svc.Competencies(r.Context(), userID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"competencies": comps})
	}
}
