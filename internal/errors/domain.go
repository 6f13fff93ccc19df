package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error kinds. Every domain error wraps exactly one of these so callers can
// branch on the category with errors.Is.
var (
	ErrNotFound          = stderrors.New("not found")
	ErrValidation        = stderrors.New("validation failed")
	ErrAuthorization     = stderrors.New("not authorized")
	ErrConflict          = stderrors.New("conflict")
	ErrNotYetImplemented = stderrors.New("not yet implemented")
)

// DomainError is a named error belonging to one kind.
type DomainError struct {
	kind error
	msg  string
}

// New creates a domain error of the given kind.
func New(kind error, msg string) *DomainError {
	return &DomainError{kind: kind, msg: msg}
}

func (e *DomainError) Error() string {
	return e.msg
}

func (e *DomainError) Unwrap() error {
	return e.kind
}

// Kind returns the kind wrapped by err, or nil for infrastructure errors.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrValidation, ErrAuthorization, ErrConflict, ErrNotYetImplemented} {
		if stderrors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

var kindResponses = map[error]response{
	ErrNotFound:          notFound,
	ErrValidation:        badRequest,
	ErrAuthorization:     forbidden,
	ErrConflict:          conflict,
	ErrNotYetImplemented: notImplemented,
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(err error) int {
	if r, ok := kindResponses[Kind(err)]; ok {
		return r.status
	}
	return http.StatusInternalServerError
}

// RespondWithDomainError writes the response for a service error. Errors
// without a kind are reported as internal errors without leaking details.
func RespondWithDomainError(c *gin.Context, err error) {
	r, ok := kindResponses[Kind(err)]
	if !ok {
		internalError.send(c, "")
		return
	}
	r.send(c, err.Error())
}
