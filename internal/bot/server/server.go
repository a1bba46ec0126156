// Package server provides the HTTP server for brrbot. It mounts the Discord interactions
// endpoint next to the readiness, version and metrics endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/brrbot/brrbot/internal/bot/metrics"
	"github.com/brrbot/brrbot/internal/common/apperrors"
	"github.com/brrbot/brrbot/internal/common/httpx"
	"github.com/brrbot/brrbot/internal/common/logtrace"
	"github.com/brrbot/brrbot/internal/common/middleware"
)

// ErrNotReady is returned by /ready when the readiness check fails.
var ErrNotReady = apperrors.New("not ready").SetStatusCode(http.StatusServiceUnavailable)

// readinessTimeout bounds the readiness check.
const readinessTimeout = 5 * time.Second

// Options configures a BotServer.
type Options struct {
	Interactions http.Handler
	HandleCORS   bool
	// Readiness, when set, is consulted by /ready.
	Readiness func(ctx context.Context) error
}

// BotServer provides the main HTTP server for brrbot.
type BotServer struct {
	Router *chi.Mux
	opts   Options
}

// CreateNewServer creates a new BotServer instance.
func CreateNewServer(opts Options) (*BotServer, error) {
	if opts.Interactions == nil {
		return nil, fmt.Errorf("interactions handler is required")
	}
	return &BotServer{
		Router: chi.NewRouter(),
		opts:   opts,
	}, nil
}

// MountHandlers sets up all HTTP routes and middleware for the server.
func (s *BotServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	if s.opts.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.mountResourceHandlers(s.Router)
	if logtrace.IsTraceEnabled() {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			log.Trace().Str("method", method).Str("route", route).Msg("route")
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("Error walking router")
		}
	}
}

func (s *BotServer) mountResourceHandlers(r chi.Router) {
	r.Method(http.MethodPost, "/interactions", s.opts.Interactions)
	r.Get("/version", httpx.WrapHttpRsp(s.getVersion))
	r.With(middleware.SetTimeout(readinessTimeout)).Get("/ready", httpx.WrapHttpRsp(s.getReadiness))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.ErrReqMethodNotSupported().Send(w)
	})
}

// GetVersionRsp represents the response for version information.
type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *BotServer) getVersion(r *http.Request) (*httpx.Response, error) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: &GetVersionRsp{
			ServerVersion: "brrbot: " + Version,
			ApiVersion:    DiscordAPIVersion,
		},
	}, nil
}

func (s *BotServer) getReadiness(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	log.Ctx(ctx).Debug().Msg("Readiness check")
	if s.opts.Readiness != nil {
		if err := s.opts.Readiness(ctx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("readiness check failed")
			return nil, ErrNotReady.Err(err)
		}
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]string{"status": "ready"},
	}, nil
}

// HandleCORS provides CORS middleware for cross-origin requests.
func (s *BotServer) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Signature-Ed25519", "X-Signature-Timestamp"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
