package api

import (
	"errors"
	"net/http"

	service "github.com/okian/cdtimeline/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal error")
)

// kindError tags an error with the operation that failed and its API kind.
type kindError struct {
	op   string
	kind error
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return e.op + ": " + e.kind.Error()
	}
	return e.op + ": " + e.kind.Error() + ": " + e.err.Error()
}

func (e *kindError) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &kindError{op: op, kind: kind}
}

// WrapKind tags err with op and kind. A nil err stays nil.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{op: op, kind: kind, err: err}
}

// Wrap tags err with op and the kind its cause maps to.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return WrapKind(op, kindOf(err), err)
}

func kindOf(err error) error {
	for _, k := range []error{ErrBadRequest, ErrNotFound, ErrInternal} {
		if errors.Is(err, k) {
			return k
		}
	}
	switch {
	case errors.Is(err, service.ErrUnknownAbility), errors.Is(err, service.ErrEventNotFound):
		return ErrNotFound
	case errors.Is(err, service.ErrInvalidAbility), errors.Is(err, service.ErrInvalidTimelineLength):
		return ErrBadRequest
	}
	return ErrInternal
}

// statusOf maps an error to its HTTP status and response code.
func statusOf(err error) (int, string) {
	switch kindOf(err) {
	case ErrBadRequest:
		return http.StatusBadRequest, "bad_request"
	case ErrNotFound:
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
