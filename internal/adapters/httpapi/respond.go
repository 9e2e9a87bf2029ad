package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusFor(code errs.Code) int {
	switch code {
	case errs.CodeInvalidInput:
		return http.StatusBadRequest
	case errs.CodeForbidden:
		return http.StatusForbidden
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status by its errs.Code. Internal errors are logged
// with their chain and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	status := statusFor(code)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.Error(
			logging.WithAttrs(r.Context(), slog.String("component", "adapters.httpapi")),
			"request failed",
			slog.Any("err", errs.Loggable(errs.WithStack(err))),
		)
		message = "internal error"
	}
	writeMessage(w, r, status, string(code), message)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	writeJSON(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: w.Header().Get(HeaderRequestID),
	})
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeMessage(w, r, http.StatusBadRequest, string(errs.CodeInvalidInput), message)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
