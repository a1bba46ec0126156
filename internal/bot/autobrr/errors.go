package autobrr

import "github.com/brrbot/brrbot/internal/common/apperrors"

// Error definitions for the package. Messages of ErrRemoteOperation, ErrAuthentication and
// ErrInvalidArgument descendants are written for end users and are shown verbatim by the
// command dispatcher.
var (
	// ErrAutobrrClient is the base error for the package.
	ErrAutobrrClient = apperrors.New("autobrr client error")

	// ErrAuthentication is returned when credentials are rejected or the login call fails.
	ErrAuthentication = ErrAutobrrClient.New("Authentication failed").SetUserFacing(true)

	// ErrRemoteOperation is returned for any failed or timed-out call to autobrr.
	// Each operation derives its own description from it.
	ErrRemoteOperation = ErrAutobrrClient.New("Failed to complete the request").SetUserFacing(true)

	// ErrInvalidArgument is returned before any network call when an id or limit is invalid.
	ErrInvalidArgument = ErrAutobrrClient.New("invalid argument").SetUserFacing(true)

	// ErrInvalidResponse is returned when a 2xx response cannot be decoded.
	ErrInvalidResponse = ErrRemoteOperation.New("invalid response from autobrr")
)
