// Package httpx provides the request and response helpers shared by brrbot's HTTP
// handlers: JSON responses, error responses and bounded body reads.
package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/brrbot/brrbot/internal/common/apperrors"
)

// ReadRequestBody reads the request body, failing with ErrRequestTooLarge when it is
// longer than limit bytes.
func ReadRequestBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, ErrUnableToReadRequest()
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("unable to read request body")
		return nil, ErrUnableToReadRequest()
	}
	if int64(len(body)) > limit {
		return nil, ErrRequestTooLarge(limit)
	}
	return body, nil
}

// Response represents an HTTP response with a status code and a JSON-encodable body.
type Response struct {
	StatusCode int
	Response   any
}

// RequestHandler defines a function type for handling HTTP requests.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp wraps a RequestHandler to provide standardized JSON response and error
// handling.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			var httpErr *Error
			var appErr apperrors.Error
			switch {
			case errors.As(err, &httpErr):
				httpErr.Send(w)
			case errors.As(err, &appErr):
				SendError(w, appErr)
			default:
				ErrApplicationError(err.Error()).Send(w)
			}
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response)
	})
}
