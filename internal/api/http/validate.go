package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeValid decodes a JSON body into dst and runs struct validation,
// writing a 400 with per-field detail on failure. Returns false when the
// request was rejected.
func decodeValid(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "bad json: " + err.Error()})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var errs validator.ValidationErrors
		msg := err.Error()
		if errors.As(err, &errs) {
			fields := make([]string, 0, len(errs))
			for _, fe := range errs {
				fields = append(fields, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
			}
			msg = strings.Join(fields, "; ")
		}
		writeJSON(w, http.StatusBadRequest, errBody{Error: msg})
		return false
	}
	return true
}
