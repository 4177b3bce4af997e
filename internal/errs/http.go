package errs

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the JSON envelope for every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	IncidentID string `json:"incidentId,omitempty"`
}

// WriteError maps an error from the taxonomy onto an HTTP status and the
// shared envelope. Unknown errors become 500 and are logged; their message is
// not echoed back.
func WriteError(c *gin.Context, err error) {
	var (
		vErr  *ValidationError
		nfErr *NotFoundError
		aErr  *AuthError
		cErr  *ConflictError
		fErr  *ChangeFreezeError
	)
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Code: "VALIDATION", Message: vErr.Message, Field: vErr.Field,
		}})
	case errors.As(err, &nfErr):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrorDetail{
			Code: "NOT_FOUND", Message: nfErr.Error(),
		}})
	case errors.As(err, &aErr):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
			Code: "UNAUTHORIZED", Message: aErr.Message,
		}})
	case errors.As(err, &cErr):
		c.JSON(http.StatusConflict, ErrorResponse{Error: ErrorDetail{
			Code: "CONFLICT", Message: cErr.Message,
		}})
	case errors.As(err, &fErr):
		c.JSON(http.StatusLocked, ErrorResponse{Error: ErrorDetail{
			Code: "CHANGE_FREEZE", Message: fErr.Error(), IncidentID: fErr.IncidentID,
		}})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
			Code: "INTERNAL", Message: "internal error",
		}})
	}
}
