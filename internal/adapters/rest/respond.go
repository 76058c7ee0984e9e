package rest

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorWithCode(w, status, msg, "")
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeDomainError maps err to a status from its kind. Analyzer failures
// never reach clients in detail; they see the fixed message.
func writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	switch kind {
	case domain.KindNetwork, domain.KindEmptyResponse, domain.KindMalformedResponse, domain.KindInternal:
		msg = domain.AnalysisFailedMessage
	}
	writeErrorWithCode(w, statusFor(kind), msg, string(kind))
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAnalysisInFlight, domain.KindInvalidTransition:
		return http.StatusConflict
	case domain.KindEmptyFrame, domain.KindNotReady, domain.KindInvalidImage, domain.KindNoSelection:
		return http.StatusUnprocessableEntity
	case domain.KindPermissionDenied:
		return http.StatusForbidden
	case domain.KindDeviceUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindNetwork, domain.KindEmptyResponse, domain.KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isJSONContentType(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
