package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ledgerlab/coursebook/internal/events"
)

// EventLister reads back the completion audit trail.
type EventLister interface {
	Recent(ctx context.Context, n int) ([]events.Event, error)
}

// GET /events?limit=n (admin)
func RecentEventsHandler(log EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		evs, err := log.Recent(r.Context(), limit)
		if err != nil {
			writeErr(w, err)
			return
		}
		if evs == nil {
			evs = []events.Event{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"events": evs})
	}
}
