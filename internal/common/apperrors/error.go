// Package apperrors provides the error taxonomy used across brrbot. Errors are built as
// chains from package-level roots so callers can branch with errors.Is, and each error
// carries a flag telling the command dispatcher whether its message is safe to show to
// a chat user verbatim.
package apperrors

// Error defines the interface for application errors. It extends the standard error
// interface with methods for deriving, wrapping and classifying errors. All methods
// return Error to support method chaining.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message and wraps original
	MsgErr(msg string, err ...error) Error // creates error with message and wraps extra errors
	Err(err ...error) Error                // attaches additional errors to current error
	SetStatusCode(int) Error               // sets HTTP status code for the error
	StatusCode() int                       // returns the current status code
	SetUserFacing(bool) Error              // marks the message as presentable to end users
	UserFacing() bool                      // reports whether the message is presentable
	ErrorAll() string                      // returns full message including wrapped errors
	UnwrapAll() []error                    // returns all wrapped errors
}
