package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeOperationFailed    = "OPERATION_FAILED"
	ErrCodeNotImplemented     = "NOT_IMPLEMENTED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// APIError is the JSON body of every error response.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

type response struct {
	status         int
	code           string
	defaultMessage string
}

var (
	unauthorized       = response{http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required"}
	invalidCredentials = response{http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid email or password"}
	forbidden          = response{http.StatusForbidden, ErrCodeForbidden, "Access denied"}
	badRequest         = response{http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request"}
	notFound           = response{http.StatusNotFound, ErrCodeNotFound, "Resource not found"}
	conflict           = response{http.StatusConflict, ErrCodeConflict, "Resource conflict"}
	notImplemented     = response{http.StatusNotImplemented, ErrCodeNotImplemented, "Not yet implemented"}
	internalError      = response{http.StatusInternalServerError, ErrCodeInternalError, "Internal server error"}
)

func (r response) send(c *gin.Context, message string) {
	if message == "" {
		message = r.defaultMessage
	}
	RespondWithError(c, r.status, NewAPIError(r.code, message))
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	unauthorized.send(c, message)
}

// InvalidCredentials sends a 401 response for a failed login
func InvalidCredentials(c *gin.Context, message string) {
	invalidCredentials.send(c, message)
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	forbidden.send(c, message)
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	notFound.send(c, message)
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	badRequest.send(c, message)
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	conflict.send(c, message)
}

// NotImplemented sends a 501 response
func NotImplemented(c *gin.Context, message string) {
	notImplemented.send(c, message)
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	internalError.send(c, message)
}
