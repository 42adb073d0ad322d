package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sioms/sioms/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var validationErr *shared.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeProblem(w, ProblemDetail{
			Type:   "validation",
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: validationErr.Error(),
			Errors: validationErr.Fields,
		})
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		writeProblem(w, ProblemDetail{Type: "insufficient-stock", Title: "Insufficient Stock", Status: http.StatusConflict, Detail: err.Error()})
	case errors.Is(err, shared.ErrReferentialIntegrity):
		writeProblem(w, ProblemDetail{Type: "referential-integrity", Title: "Has Dependents", Status: http.StatusConflict, Detail: err.Error()})
	case errors.Is(err, shared.ErrConflict):
		writeProblem(w, ProblemDetail{Type: "conflict", Title: "Conflict", Status: http.StatusConflict, Detail: err.Error()})
	default:
		if logger != nil {
			logger.Error("unhandled error", slog.Any("error", err))
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
