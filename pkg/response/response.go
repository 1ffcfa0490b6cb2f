package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roomline/service-booking/pkg/domain"
)

// Envelope is the JSON body of every response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// BadRequest writes a 400 validation response.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{Error: &ErrorBody{
		Code:    string(domain.CodeValidation),
		Message: message,
	}})
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Envelope{Error: &ErrorBody{
		Code:    "UNAUTHORIZED",
		Message: message,
	}})
}

// Forbidden writes a 403 response.
func Forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, Envelope{Error: &ErrorBody{
		Code:    string(domain.CodeForbidden),
		Message: message,
	}})
}

// Error maps err to an HTTP status. Domain errors keep their code and
// details; anything else is an infrastructure failure and is not described.
func Error(c *gin.Context, err error) {
	de, ok := domain.AsDomainError(err)
	if !ok {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, Envelope{Error: &ErrorBody{
			Code:    "INTERNAL",
			Message: "internal server error",
		}})
		return
	}

	c.JSON(StatusFor(de.Code), Envelope{Error: &ErrorBody{
		Code:    string(de.Code),
		Message: de.Message,
		Details: de.Details,
	}})
}

// StatusFor returns the HTTP status used for a domain error code.
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeIllegalTransition:
		return http.StatusUnprocessableEntity
	case domain.CodeAvailabilityConflict, domain.CodePriorityTie,
		domain.CodeCapacityExceeded, domain.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
