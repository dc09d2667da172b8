package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/securesign/securesign/internal/access"
	authdomain "github.com/securesign/securesign/internal/auth/domain"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	"github.com/securesign/securesign/internal/finalize"
	invdomain "github.com/securesign/securesign/internal/invitation/domain"
	"github.com/securesign/securesign/internal/pdfstamp"
	sigdomain "github.com/securesign/securesign/internal/signature/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}

	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "unauthorized"}

	case errors.Is(err, access.ErrForbidden),
		errors.Is(err, access.ErrInvalidToken),
		errors.Is(err, docdomain.ErrNotOwner):
		return http.StatusForbidden, errorPayload{Type: "forbidden", Message: "forbidden"}

	case errors.Is(err, access.ErrExpired),
		errors.Is(err, invdomain.ErrExpired):
		return http.StatusGone, errorPayload{Type: "expired", Message: err.Error()}

	case errors.Is(err, docdomain.ErrNotPending),
		errors.Is(err, invdomain.ErrDuplicateActive),
		errors.Is(err, invdomain.ErrAlreadyResponded),
		errors.Is(err, invdomain.ErrDocumentSigned),
		errors.Is(err, invdomain.ErrCannotRevokeSigned),
		errors.Is(err, sigdomain.ErrDocumentSigned),
		errors.Is(err, authdomain.ErrEmailTaken),
		errors.Is(err, finalize.ErrActiveGuestsPending):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}

	case errors.Is(err, sigdomain.ErrInvalidGeometry):
		return http.StatusUnprocessableEntity, errorPayload{Type: "validation_error", Message: err.Error()}

	case errors.Is(err, finalize.ErrSourceFetchFailed):
		return http.StatusBadGateway, errorPayload{Type: "upstream_error", Message: err.Error()}

	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "not found"}

	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: err.Error()}

	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, docdomain.ErrNotFound),
		errors.Is(err, invdomain.ErrNotFound),
		errors.Is(err, sigdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, docdomain.ErrInvalidTitle),
		errors.Is(err, docdomain.ErrInvalidFile),
		errors.Is(err, docdomain.ErrInvalidID),
		errors.Is(err, invdomain.ErrInvalidEmail),
		errors.Is(err, invdomain.ErrInvalidRole),
		errors.Is(err, invdomain.ErrInvalidID),
		errors.Is(err, sigdomain.ErrInvalidID),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrInvalidPassword),
		errors.Is(err, finalize.ErrNothingToSign),
		errors.Is(err, pdfstamp.ErrInvalidPDF),
		errors.Is(err, pdfstamp.ErrInvalidPageIndex):
		return true
	default:
		return false
	}
}

// classifyErrorForLog feeds the request logger without leaking messages.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "auth_error", payload.Type
	default:
		return "client_error", payload.Type
	}
}
