// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/showroom-dms/showroom/internal/shared"
)

// ErrUnauthorized is returned when no authenticated actor is present.
var ErrUnauthorized = errors.New("unauthorized")

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var typed *shared.Error
	if errors.As(err, &typed) {
		detail := typed.Message
		if typed.Field != "" {
			detail = typed.Field + ": " + typed.Message
		}
		switch typed.Kind {
		case shared.KindNotFound:
			Problem(w, http.StatusNotFound, "Not Found", detail)
		case shared.KindConflict:
			Problem(w, http.StatusConflict, "Conflict", detail)
		case shared.KindPreconditionFailed:
			Problem(w, http.StatusPreconditionFailed, "Precondition Failed", detail)
		case shared.KindForbidden:
			Problem(w, http.StatusForbidden, "Forbidden", detail)
		case shared.KindValidation:
			Problem(w, http.StatusBadRequest, "Validation Failed", detail)
		case shared.KindTransactionFailure:
			w.Header().Set("Retry-After", "1")
			Problem(w, http.StatusServiceUnavailable, "Transaction Failed", typed.Message)
		default:
			Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
