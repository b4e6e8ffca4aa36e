package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerlab/coursebook/internal/content"
	"github.com/ledgerlab/coursebook/internal/rbac"
)

// MountAssets serves lesson assets (spreadsheet templates, reading material)
// from the content store. Uploads are instructor-only.
func MountAssets(r chi.Router, cs content.Store) {
	// POST /assets/lessons/{lessonID}
	r.With(rbac.Require("content:upload")).Post("/lessons/{lessonID}", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errBody{Error: "file required"})
			return
		}
		defer f.Close()

		key := content.LessonKey(chi.URLParam(r, "lessonID"), hdr.Filename)
		if _, err := cs.Put(key, f); err != nil {
			writeJSON(w, http.StatusInternalServerError, errBody{Error: "store error: " + err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": key})
	})

	// GET /assets/* -> the blob at whatever follows /assets/
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := cs.Get(key)
		if err != nil {
			writeJSON(w, http.StatusNotFound, errBody{Error: "not found"})
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.Copy(w, rc)
	})
}
