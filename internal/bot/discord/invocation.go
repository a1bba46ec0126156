package discord

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/brrbot/brrbot/internal/bot/dispatch"
	"github.com/brrbot/brrbot/internal/bot/permission"
)

// pendingResponse carries an initial response to the HTTP handler and its write result
// back to the invocation.
type pendingResponse struct {
	rsp    InteractionResponse
	result chan error
}

// invocation adapts an application command interaction to dispatch.Invocation. The
// initial response travels back through the HTTP request that delivered the interaction;
// the reply edit goes through the REST client.
type invocation struct {
	interaction *Interaction
	client      *Client
	options     dispatch.Options

	responded atomic.Bool
	initial   chan pendingResponse
	abandoned chan struct{}
	abandon   sync.Once
}

func newInvocation(i *Interaction, client *Client) *invocation {
	return &invocation{
		interaction: i,
		client:      client,
		options:     convertOptions(i.Data.Options),
		initial:     make(chan pendingResponse),
		abandoned:   make(chan struct{}),
	}
}

// convertOptions flattens the invoked options into typed arguments. Unsupported types are
// dropped.
func convertOptions(opts []CommandOption) dispatch.Options {
	var out dispatch.Options
	for _, o := range opts {
		switch o.Type {
		case OptionTypeInteger:
			var v int64
			switch n := o.Value.(type) {
			case float64:
				v = int64(n)
			case int64:
				v = n
			case int:
				v = int64(n)
			default:
				continue
			}
			out = append(out, dispatch.Option{Name: o.Name, Type: dispatch.OptionInteger, IntValue: v})
		case OptionTypeString:
			s, ok := o.Value.(string)
			if !ok {
				continue
			}
			out = append(out, dispatch.Option{Name: o.Name, Type: dispatch.OptionString, StringValue: s})
		}
	}
	return out
}

func (i *invocation) ID() string {
	return i.interaction.ID
}

func (i *invocation) CallerID() string {
	return i.interaction.Caller().ID
}

func (i *invocation) CallerName() string {
	u := i.interaction.Caller()
	if u.Discriminator != "" && u.Discriminator != "0" {
		return u.Username + "#" + u.Discriminator
	}
	return u.Username
}

func (i *invocation) CommandName() string {
	return i.interaction.Data.Name
}

func (i *invocation) Options() dispatch.Options {
	return i.options
}

func (i *invocation) Membership(ctx context.Context) (*permission.Membership, error) {
	return i.client.ResolveMembership(ctx, i.interaction.GuildID, i.interaction.Member)
}

func (i *invocation) Reply(ctx context.Context, content string, ephemeral bool) error {
	data := &ResponseData{Content: clamp(content, maxContentLen)}
	if ephemeral {
		data.Flags = MessageFlagEphemeral
	}
	return i.respond(ctx, InteractionResponse{Type: ResponseChannelMessage, Data: data})
}

func (i *invocation) Defer(ctx context.Context) error {
	return i.respond(ctx, InteractionResponse{Type: ResponseDeferredChannelMessage})
}

func (i *invocation) EditReply(ctx context.Context, result *dispatch.Result) error {
	return i.client.EditOriginalResponse(ctx, i.interaction.Token, result)
}

// respond hands rsp to the waiting HTTP handler and waits until it has been written.
func (i *invocation) respond(ctx context.Context, rsp InteractionResponse) error {
	if !i.responded.CompareAndSwap(false, true) {
		return ErrAlreadyResponded
	}
	p := pendingResponse{rsp: rsp, result: make(chan error, 1)}
	select {
	case i.initial <- p:
	case <-i.abandoned:
		return ErrResponseAbandoned
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-p.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// abandonResponse releases a pending or future respond call once the HTTP handler stops
// waiting.
func (i *invocation) abandonResponse() {
	i.abandon.Do(func() {
		close(i.abandoned)
	})
}
