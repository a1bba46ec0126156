package dispatch

import "github.com/brrbot/brrbot/internal/common/apperrors"

var (
	ErrDispatch = apperrors.New("dispatch error")

	// ErrPermissionDenied is logged when a caller fails the permission check. Its message is
	// the reply sent to the caller.
	ErrPermissionDenied = ErrDispatch.New("You do not have permission to use this command.").SetUserFacing(true)

	ErrUnknownCommand = ErrDispatch.New("Unknown command.").SetUserFacing(true)

	// ErrUnexpected replaces any error that may not be shown to users.
	ErrUnexpected = ErrDispatch.New("An unexpected error occurred while processing your request.").SetUserFacing(true)

	ErrHandlerPanic = ErrDispatch.New("command handler panicked")
)

const errorPrefix = "❌ "

// UserText returns the text shown to the caller for err.
func UserText(err error) string {
	if msg, ok := apperrors.UserMessage(err); ok {
		return errorPrefix + msg
	}
	return errorPrefix + ErrUnexpected.Error()
}
