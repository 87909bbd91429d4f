package httpx

import (
	"errors"
	"net/http"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

// RespondError maps the shared error taxonomy to HTTP responses using RFC7807.
// InvalidState and Conflict both answer 409 but keep distinct titles so
// callers can tell a blocked transition from a stale read.
func RespondError(w http.ResponseWriter, err error) {
	var fieldErrs shared.ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: fieldErrs.Error(),
			Errors: fieldErrs,
		})
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
