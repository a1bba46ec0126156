package apperrors

import (
	"errors"
	"strings"
)

// appError implements the apperrors.Error interface.
type appError struct {
	msg           string  // primary error message
	base          error   // base error for errors.Is/As compatibility
	wrappedErrors []error // additional wrapped errors
	statuscode    int     // HTTP status code
	userFacing    bool    // message may be shown to end users
}

// Error returns the error message.
func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by every wrapped error that is not
// part of this error's own chain. Used for diagnostic logging.
func (e *appError) ErrorAll() string {
	var b strings.Builder
	b.WriteString(e.msg)
	for _, err := range e.wrappedErrors {
		if _, ok := err.(*appError); ok {
			continue
		}
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the base error for compatibility with errors.Is / errors.As.
func (e *appError) Unwrap() error {
	return e.base
}

// UnwrapAll returns all wrapped errors in the order they were added.
func (e *appError) UnwrapAll() []error {
	return e.wrappedErrors
}

// Msg creates a new error with a new message and wraps the original error.
// The new error inherits the status code and user-facing flag from the original.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: append([]error{e}, e.wrappedErrors...),
		statuscode:    e.statuscode,
		userFacing:    e.userFacing,
	}
}

// New creates a fresh error using the current error as a template.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
		userFacing: e.userFacing,
	}
}

// MsgErr creates a new error with a message and wraps additional errors.
func (e *appError) MsgErr(msg string, errs ...error) Error {
	all := append([]error{e}, errs...)
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: all,
		statuscode:    e.statuscode,
		userFacing:    e.userFacing,
	}
}

// Err creates a new error by attaching additional errors to the current error.
// The new error keeps the original message.
func (e *appError) Err(errs ...error) Error {
	all := append([]error{e}, errs...)
	return &appError{
		msg:           e.msg,
		base:          e,
		wrappedErrors: all,
		statuscode:    e.statuscode,
		userFacing:    e.userFacing,
	}
}

// SetStatusCode returns a shallow copy with an updated status code.
func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

// StatusCode returns the current HTTP status code.
func (e *appError) StatusCode() int {
	return e.statuscode
}

// SetUserFacing returns a shallow copy with an updated user-facing flag.
func (e *appError) SetUserFacing(flag bool) Error {
	cp := *e
	cp.userFacing = flag
	return &cp
}

// UserFacing reports whether the message may be shown to end users.
func (e *appError) UserFacing() bool {
	return e.userFacing
}

// New creates a root-level appError with the given message.
func New(msg string) Error {
	return &appError{
		msg: msg,
	}
}

// Is checks if the error is equal to the target error by checking
// both the base error and all wrapped errors.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// UserMessage returns the message of the outermost user-facing Error in err's
// chain. The second return value is false when err carries no such message.
func UserMessage(err error) (string, bool) {
	var appErr Error
	if !errors.As(err, &appErr) {
		return "", false
	}
	if !appErr.UserFacing() {
		return "", false
	}
	return appErr.Error(), true
}
