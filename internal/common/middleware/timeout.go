package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brrbot/brrbot/internal/common/httpx"
)

// guardedWriter serializes writes so the timeout path and the handler never write
// concurrently. Once closed, handler writes are dropped.
type guardedWriter struct {
	mu     sync.Mutex
	rw     *httpx.ResponseWriter
	closed bool
}

func (g *guardedWriter) Header() http.Header {
	return g.rw.Header()
}

func (g *guardedWriter) WriteHeader(code int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.rw.WriteHeader(code)
	}
}

func (g *guardedWriter) Write(b []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return 0, http.ErrHandlerTimeout
	}
	return g.rw.Write(b)
}

// SetTimeout creates middleware that enforces a timeout for request handling. If the request
// exceeds the specified duration, it returns a timeout error response.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			gw := &guardedWriter{rw: httpx.NewResponseWriter(w)}
			r = r.WithContext(ctx)

			done := make(chan struct{})
			go func() {
				defer func() {
					if p := recover(); p != nil {
						log.Ctx(ctx).Error().Msgf("panic in handler: %v", p)
					}
					close(done)
				}()
				next.ServeHTTP(gw, r)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				gw.mu.Lock()
				defer gw.mu.Unlock()
				if !gw.rw.Written() {
					httpx.ErrRequestTimeout().Send(gw.rw)
				}
				gw.closed = true
				log.Ctx(ctx).Error().Msg("request timed out")
			}
		})
	}
}
