package errors

import "errors"

var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidIdentity  = errors.New("invalid identity")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrQuotaExceeded    = errors.New("daily quota exceeded")
	ErrGenerationFailed = errors.New("generation failed")
)

// Error carries a human readable message and a machine code on top of the
// underlying cause. Kind, when set, is one of the sentinels above so callers
// can branch with errors.Is without knowing the concrete cause.
type Error struct {
	Err     error
	Message string
	Code    string
	Kind    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func Wrap(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
		Code:    "INTERNAL_ERROR",
	}
}

// Unavailable marks a transport or backend failure of a store.
func Unavailable(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
		Code:    "STORE_UNAVAILABLE",
		Kind:    ErrStoreUnavailable,
	}
}

func Invalid(message string) *Error {
	return &Error{
		Message: message,
		Code:    "INVALID_INPUT",
		Kind:    ErrInvalidInput,
	}
}

// Is and As re-export the standard helpers so callers only import one errors package.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }
