// Package response writes the JSON envelopes every handler returns.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"scholarduel/src/core/domain"
)

// Success represents a successful response with data.
type Success struct {
	Data any `json:"data"`
}

// Error represents an error response.
type Error struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Page is a list response with the paging window that produced it.
type Page struct {
	Data   any `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Success{Data: data})
}

// Created sends a 201 response with the created resource.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Success{Data: data})
}

// Paged sends a 200 response with a list and its paging window.
func Paged(c *gin.Context, data any, limit, offset int) {
	c.JSON(http.StatusOK, Page{Data: data, Limit: limit, Offset: offset})
}

// NoContent sends a 204 response with no body.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// PayloadTooLarge sends a 413 response.
func PayloadTooLarge(c *gin.Context, requestID string) {
	fail(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body is too large", "", requestID)
}

// BadRequest sends a 400 response.
func BadRequest(c *gin.Context, message string, requestID string) {
	fail(c, http.StatusBadRequest, "BAD_REQUEST", message, "", requestID)
}

// ValidationError sends a 400 response naming the offending field.
func ValidationError(c *gin.Context, field, message, requestID string) {
	fail(c, http.StatusBadRequest, "VALIDATION_ERROR", message, field, requestID)
}

// Unauthorized sends a 401 response.
func Unauthorized(c *gin.Context, message, requestID string) {
	fail(c, http.StatusUnauthorized, "UNAUTHORIZED", message, "", requestID)
}

// TooManyRequests sends a 429 response.
func TooManyRequests(c *gin.Context, message, requestID string) {
	fail(c, http.StatusTooManyRequests, "RATE_LIMITED", message, "", requestID)
}

// InternalError sends a 500 response. The cause never reaches the client.
func InternalError(c *gin.Context, requestID string) {
	fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", "", requestID)
}

func fail(c *gin.Context, status int, code, message, field, requestID string) {
	c.JSON(status, Error{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		Field:     field,
		RequestID: requestID,
	}})
}

// domainStatus maps sentinel errors to status and code, checked in order.
var domainStatus = []struct {
	sentinel error
	status   int
	code     string
}{
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
	{domain.ErrAlreadyExists, http.StatusConflict, "CONFLICT"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
}

// FromDomainError writes the response for err. Unknown errors become 500.
func FromDomainError(c *gin.Context, err error, requestID string) {
	if domain.IsValidationError(err) {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			ValidationError(c, domainErr.Field, domainErr.Message, requestID)
		} else {
			BadRequest(c, err.Error(), requestID)
		}
		return
	}
	if errors.Is(err, domain.ErrScoringUnavailable) {
		fail(c, http.StatusServiceUnavailable, "UNAVAILABLE", "the judge is unavailable, try again later", "", requestID)
		return
	}
	for _, m := range domainStatus {
		if errors.Is(err, m.sentinel) {
			fail(c, m.status, m.code, err.Error(), "", requestID)
			return
		}
	}
	InternalError(c, requestID)
}
