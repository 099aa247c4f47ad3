package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/campuslink/matchmaker/internal/connection"
	"github.com/campuslink/matchmaker/internal/logging"
	"github.com/campuslink/matchmaker/internal/matching"
	"github.com/campuslink/matchmaker/internal/profile"
	"github.com/campuslink/matchmaker/internal/suggest"
	"github.com/campuslink/matchmaker/internal/validation"
)

// maxBodyBytes caps request bodies. Candidate pools can be large.
const maxBodyBytes = 4 << 20

// errorBody is the envelope for every error response.
type errorBody struct {
	Error   string                  `json:"error"`
	Message string                  `json:"message,omitempty"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// writeServiceError maps domain errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validation.Code, Message: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, matching.ErrInvalidRequest), errors.Is(err, connection.ErrInvalid):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, connection.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, connection.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, connection.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, suggest.ErrNotConfigured):
		writeError(w, http.StatusNotImplemented, "not_configured", "Set suggest.endpoint to enable generated suggestions.")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// decodeJSON reads a JSON body into dst and validates it when dst carries
// validate tags. It writes the error response itself and reports success.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
		return false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	if err := validation.ValidateStruct(dst); err != nil {
		writeServiceError(w, r, err)
		return false
	}
	return true
}
