package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/content-repository/pkg/contentrepo"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor maps a lifecycle error to its HTTP status and error code
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, contentrepo.ErrEntityNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, contentrepo.ErrAccessDenied):
		return http.StatusForbidden, "access_denied"
	case errors.Is(err, contentrepo.ErrEntityLocked):
		return http.StatusLocked, "entity_locked"
	case errors.Is(err, contentrepo.ErrGroupNotEmpty):
		return http.StatusConflict, "group_not_empty"
	case errors.Is(err, contentrepo.ErrParentMissing):
		return http.StatusBadRequest, "parent_missing"
	case errors.Is(err, contentrepo.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "An internal server error occurred"
	}

	requestID, _ := r.Context().Value(RequestIDKey).(string)
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: requestID,
	}})
}
