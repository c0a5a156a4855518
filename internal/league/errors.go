package league

import "errors"

// ErrorKind is the machine-readable error discriminator surfaced to
// clients in the {"error": kind} envelope.
type ErrorKind string

const (
	ErrInvalidState               ErrorKind = "invalid_state"
	ErrForbidden                  ErrorKind = "forbidden"
	ErrNotFound                   ErrorKind = "not_found"
	ErrValidationFailed           ErrorKind = "validation_failed"
	ErrIncompleteDecks            ErrorKind = "incomplete_decks"
	ErrMissingFeatureDesignations ErrorKind = "missing_feature_designations"
	ErrConstraintViolation        ErrorKind = "constraint_violation"
	ErrConflict                   ErrorKind = "conflict"
	ErrTimeout                    ErrorKind = "timeout"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Detail  map[string]any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Detail == nil {
		e.Detail = make(map[string]any)
	}
	e.Detail[key] = value
	return e
}

func InvalidState(message string) *Error {
	return NewError(ErrInvalidState, message)
}

func Forbidden(message string) *Error {
	return NewError(ErrForbidden, message)
}

func NotFound(what string) *Error {
	return NewError(ErrNotFound, what+" not found")
}

func Validation(message string) *Error {
	return NewError(ErrValidationFailed, message)
}

func ConstraintViolation(rule string, deckID int64) *Error {
	return NewError(ErrConstraintViolation, "deck violates "+rule).
		WithDetail("rule", rule).
		WithDetail("deck", deckID)
}

func Timeout(message string) *Error {
	return NewError(ErrTimeout, message)
}

// AsError unwraps err into a *Error when one is in the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
