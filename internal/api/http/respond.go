package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ledgerlab/coursebook/internal/activity"
	"github.com/ledgerlab/coursebook/internal/grading"
	"github.com/ledgerlab/coursebook/internal/progress"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeErr maps service errors onto the HTTP taxonomy: validation 400,
// sequential-access 403, missing references 404, grading configuration 422,
// storage 500 with the driver message attached.
func writeErr(w http.ResponseWriter, err error) {
	var ve *progress.ValidationError
	var se *progress.StorageError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errBody{Error: ve.Reason})
	case errors.Is(err, progress.ErrPhaseLocked):
		writeJSON(w, http.StatusForbidden, errBody{Error: err.Error()})
	case errors.Is(err, progress.ErrPhaseNotFound),
		errors.Is(err, progress.ErrLessonNotFound),
		errors.Is(err, activity.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errBody{Error: err.Error()})
	case errors.Is(err, grading.ErrNotAutoGraded),
		errors.Is(err, grading.ErrUnsupportedContent):
		writeJSON(w, http.StatusUnprocessableEntity, errBody{Error: err.Error()})
	case errors.As(err, &se):
		status := http.StatusInternalServerError
		if se.Code == "23503" || se.Code == "23505" {
			// constraint violations are client-correctable
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, errBody{Error: se.Error(), Code: se.Code})
	default:
		writeJSON(w, http.StatusInternalServerError, errBody{Error: err.Error()})
	}
}
