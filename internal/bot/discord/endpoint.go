package discord

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brrbot/brrbot/internal/bot/dispatch"
	"github.com/brrbot/brrbot/internal/common/httpx"
	"github.com/brrbot/brrbot/internal/common/uuid"
)

// Dispatcher runs one invocation to completion.
type Dispatcher interface {
	Dispatch(ctx context.Context, inv dispatch.Invocation)
}

const (
	maxInteractionBody = 1 << 20

	// DefaultResponseWindow is how long the endpoint waits for the initial response.
	// Discord drops interactions not answered within three seconds.
	DefaultResponseWindow = 2500 * time.Millisecond
)

// Endpoint serves the interactions URL. It verifies each request, answers pings, and
// hands application commands to the dispatcher in their own goroutine.
type Endpoint struct {
	publicKey      ed25519.PublicKey
	client         *Client
	dispatcher     Dispatcher
	responseWindow time.Duration
	inflight       sync.WaitGroup
}

// NewEndpoint creates an Endpoint.
func NewEndpoint(publicKey ed25519.PublicKey, client *Client, dispatcher Dispatcher) *Endpoint {
	return &Endpoint{
		publicKey:      publicKey,
		client:         client,
		dispatcher:     dispatcher,
		responseWindow: DefaultResponseWindow,
	}
}

// SetResponseWindow overrides DefaultResponseWindow.
func (e *Endpoint) SetResponseWindow(d time.Duration) {
	e.responseWindow = d
}

// Wait blocks until all dispatched invocations have finished or ctx is done.
func (e *Endpoint) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := httpx.ReadRequestBody(r, maxInteractionBody)
	if err != nil {
		if httpErr, ok := err.(*httpx.Error); ok {
			httpErr.Send(w)
			return
		}
		httpx.ErrUnableToReadRequest().Send(w)
		return
	}
	if !Verify(e.publicKey, r.Header, body) {
		log.Ctx(ctx).Warn().Msg("rejected interaction with invalid signature")
		httpx.ErrUnAuthorized("invalid request signature").Send(w)
		return
	}

	interaction := &Interaction{}
	if err := json.Unmarshal(body, interaction); err != nil {
		httpx.ErrInvalidRequest("unable to parse interaction").Send(w)
		return
	}

	switch interaction.Type {
	case InteractionPing:
		httpx.SendJsonRsp(ctx, w, http.StatusOK, InteractionResponse{Type: ResponsePong})
	case InteractionApplicationCommand:
		if interaction.Data == nil {
			httpx.ErrInvalidRequest("missing command data").Send(w)
			return
		}
		e.handleCommand(w, r, interaction)
	default:
		log.Ctx(ctx).Warn().Int("type", int(interaction.Type)).Msg("unsupported interaction type")
		httpx.ErrInvalidRequest("unsupported interaction type").Send(w)
	}
}

func (e *Endpoint) handleCommand(w http.ResponseWriter, r *http.Request, interaction *Interaction) {
	inv := newInvocation(interaction, e.client)

	// The command outlives the request; keep its values (logger, request id) but not
	// its cancellation.
	ctx := context.WithoutCancel(r.Context())
	logger := log.Ctx(ctx).With().Str("correlation_id", uuid.CorrelationID()).Logger()
	ctx = logger.WithContext(ctx)

	done := make(chan struct{})
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		defer close(done)
		defer func() {
			if p := recover(); p != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", p)).
					Str("stack_trace", string(debug.Stack())).
					Msg("panic while dispatching interaction")
			}
		}()
		e.dispatcher.Dispatch(ctx, inv)
	}()

	timer := time.NewTimer(e.responseWindow)
	defer timer.Stop()

	select {
	case p := <-inv.initial:
		rsp, err := json.Marshal(p.rsp)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, err = w.Write(rsp)
		}
		p.result <- err
	case <-done:
		inv.abandonResponse()
		logger.Error().Msg("interaction finished without an initial response")
		httpx.ErrApplicationError("no response").Send(w)
	case <-timer.C:
		inv.abandonResponse()
		logger.Error().Dur("window", e.responseWindow).Msg("interaction not acknowledged in time")
		httpx.ErrUnavailable("interaction not acknowledged in time").Send(w)
	case <-r.Context().Done():
		inv.abandonResponse()
	}
}
