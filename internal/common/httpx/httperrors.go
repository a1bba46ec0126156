package httpx

import (
	"fmt"
	"net/http"

	"github.com/brrbot/brrbot/internal/common/apperrors"
)

// Error represents an HTTP error response with status code and description.
type Error struct {
	Description string `json:"description"`
	StatusCode  int    `json:"http_status_code"`
}

type errorRsp struct {
	Result int    `json:"result"`
	Error  string `json:"error"`
}

// Failure represents the error result code in error responses.
const Failure int = 0

// Send writes the error response to the provided ResponseWriter.
// If the writer is nil, no action is taken.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	rspJson, err := json.Marshal(&errorRsp{
		Result: Failure,
		Error:  e.Description,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Unable to parse error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(rspJson)
}

// Error returns the error description.
func (e *Error) Error() string {
	return e.Description
}

// SendError sends an application error as an HTTP error response. Only the top-level
// message is sent; wrapped causes stay in the logs.
func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	statusCode := err.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	httperror := &Error{
		StatusCode:  statusCode,
		Description: err.Error(),
	}
	httperror.Send(w)
}

func describe(def string, s []string) string {
	if len(s) > 0 && s[0] != "" {
		return s[0]
	}
	return def
}

// ErrReqMethodNotSupported returns an error for unsupported HTTP methods.
func ErrReqMethodNotSupported() *Error {
	return &Error{
		Description: "request method not supported",
		StatusCode:  http.StatusMethodNotAllowed,
	}
}

// ErrUnableToReadRequest returns an error when the request body cannot be read.
func ErrUnableToReadRequest() *Error {
	return &Error{
		Description: "unable to read request",
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrApplicationError returns an internal server error with optional custom message.
func ErrApplicationError(err ...string) *Error {
	return &Error{
		Description: describe("unable to complete request", err),
		StatusCode:  http.StatusInternalServerError,
	}
}

// ErrUnAuthorized returns an unauthorized error with optional custom message.
func ErrUnAuthorized(str ...string) *Error {
	return &Error{
		Description: describe("unauthorized", str),
		StatusCode:  http.StatusUnauthorized,
	}
}

// ErrInvalidRequest returns a bad request error with optional custom message.
func ErrInvalidRequest(str ...string) *Error {
	return &Error{
		Description: describe("invalid request", str),
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrUnavailable returns a service unavailable error with optional custom message.
func ErrUnavailable(str ...string) *Error {
	return &Error{
		Description: describe("service unavailable", str),
		StatusCode:  http.StatusServiceUnavailable,
	}
}

// ErrRequestTimeout returns an error for requests that exceed their time limit.
func ErrRequestTimeout() *Error {
	return &Error{
		Description: "request timed out",
		StatusCode:  http.StatusGatewayTimeout,
	}
}

// ErrRequestTooLarge returns an error for bodies above limit bytes.
func ErrRequestTooLarge(limit int64) *Error {
	return &Error{
		Description: fmt.Sprintf("request body exceeds %d bytes", limit),
		StatusCode:  http.StatusRequestEntityTooLarge,
	}
}
