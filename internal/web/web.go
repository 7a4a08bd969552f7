package web

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func Respond(w http.ResponseWriter, code int, data interface{}) {
	if code == http.StatusNoContent || data == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		return
	}

	b, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, errors.Wrap(err, "encode response").Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if _, err := w.Write(b); err != nil {
		log.WithError(errors.Wrap(err, "write response body")).Warn("response was not delivered")
	}
}

// RespondError writes {"error": msg}. Internal failures are logged and masked,
// only 503 keeps its message since it tells the user to retry.
func RespondError(w http.ResponseWriter, code int, msg string) {
	log.WithFields(log.Fields{
		"status": code,
		"error":  msg,
	}).Error("error while serving request")

	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		code = http.StatusInternalServerError
		msg = http.StatusText(http.StatusInternalServerError)
	}

	Respond(w, code, ErrorResponse{Error: msg})
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
