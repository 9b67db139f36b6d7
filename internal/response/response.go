package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thatlq1812/signature-system/internal/domain"
)

type Response struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success codes
const (
	CodeSuccess = "000"
)

// Error codes
const (
	CodeBadRequest         = "400"
	CodeUnauthorized       = "401"
	CodeForbidden          = "403"
	CodeNotFound           = "404"
	CodeConflict           = "409"
	CodeGone               = "410"
	CodeUnprocessable      = "422"
	CodeTooManyAttempts    = "429"
	CodeInternalError      = "500"
	CodeServiceUnavailable = "503"
)

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorFromDomain maps service-layer sentinel errors to HTTP responses.
// Verification failures and state errors are expected outcomes and carry
// their detail through; anything unrecognized is an internal error.
func ErrorFromDomain(c *gin.Context, err error) {
	statusCode, code := mapDomainError(err)

	message := err.Error()
	if statusCode == http.StatusInternalServerError {
		// Do not leak internals; the full error goes to the gin error log
		_ = c.Error(err)
		message = "internal server error"
	}

	Error(c, statusCode, code, message)
}

func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone, CodeGone
	case errors.Is(err, domain.ErrAttemptsExhausted):
		return http.StatusTooManyRequests, CodeTooManyAttempts
	case errors.Is(err, domain.ErrVerificationFailed):
		return http.StatusUnprocessableEntity, CodeUnprocessable
	case errors.Is(err, domain.ErrDeliveryFailure):
		return http.StatusServiceUnavailable, CodeServiceUnavailable
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}
