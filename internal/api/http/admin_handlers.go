package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerlab/coursebook/internal/progress"
)

type createUserReq struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=student instructor admin"`
}

// POST /users (admin)
func CreateUserHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserReq
		if !decodeValid(w, r, &req) {
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errBody{Error: err.Error()})
			return
		}
		id := uuid.NewString()
		_, err = db.ExecContext(r.Context(),
			`INSERT INTO users (id, username, password_hash, role) VALUES ($1,$2,$3,$4)
			 ON CONFLICT (username) DO UPDATE SET password_hash=EXCLUDED.password_hash, role=EXCLUDED.role`,
			id, req.Username, string(hash), req.Role)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id, "username": req.Username, "role": req.Role})
	}
}

type putPhasesReq struct {
	Phases []struct {
		PhaseNumber int    `json:"phase_number" validate:"required,gt=0"`
		Title       string `json:"title"`
		ContentKey  string `json:"content_key"`
	} `json:"phases" validate:"required,min=1,dive"`
}

// PUT /lessons/{lessonID}/phases (instructor) upserts the lesson's phase
// sequence. Phase numbers must stay dense and 1-based; the unlock rule
// depends on it.
func PutPhasesHandler(store progress.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessonID := chi.URLParam(r, "lessonID")
		var req putPhasesReq
		if !decodeValid(w, r, &req) {
			return
		}
		seen := make(map[int]bool, len(req.Phases))
		for _, p := range req.Phases {
			seen[p.PhaseNumber] = true
		}
		for i := 1; i <= len(req.Phases); i++ {
			if !seen[i] {
				writeJSON(w, http.StatusBadRequest,
					errBody{Error: "phase numbers must form a dense 1-based sequence"})
				return
			}
		}
		out := make([]progress.Phase, 0, len(req.Phases))
		for _, p := range req.Phases {
			stored, err := store.PutPhase(r.Context(), progress.Phase{
				LessonID:    lessonID,
				PhaseNumber: p.PhaseNumber,
				Title:       p.Title,
				ContentKey:  p.ContentKey,
			})
			if err != nil {
				writeErr(w, err)
				return
			}
			out = append(out, stored)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"phases": out})
	}
}
