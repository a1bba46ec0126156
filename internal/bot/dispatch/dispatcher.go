// Package dispatch routes slash command invocations to their handlers.
//
// The dispatcher checks the caller's permission, acknowledges the invocation, runs the
// handler, and turns its result or error into exactly one reply to the caller.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/brrbot/brrbot/internal/bot/metrics"
	"github.com/brrbot/brrbot/internal/bot/permission"
)

// DefaultMembershipTimeout bounds the membership lookup. The lookup precedes the first
// response, which Discord expects within three seconds.
const DefaultMembershipTimeout = 1500 * time.Millisecond

// Dispatcher holds the command table and the permission evaluator.
type Dispatcher struct {
	evaluator         *permission.Evaluator
	commands          map[string]Command
	order             []string
	membershipTimeout time.Duration
}

// New creates a Dispatcher. Later commands replace earlier ones with the same name.
func New(evaluator *permission.Evaluator, commands ...Command) *Dispatcher {
	d := &Dispatcher{
		evaluator:         evaluator,
		commands:          make(map[string]Command, len(commands)),
		membershipTimeout: DefaultMembershipTimeout,
	}
	for _, c := range commands {
		if _, ok := d.commands[c.Name]; !ok {
			d.order = append(d.order, c.Name)
		}
		d.commands[c.Name] = c
	}
	return d
}

// SetMembershipTimeout overrides DefaultMembershipTimeout.
func (d *Dispatcher) SetMembershipTimeout(t time.Duration) {
	d.membershipTimeout = t
}

// Commands returns the registered commands in registration order.
func (d *Dispatcher) Commands() []Command {
	out := make([]Command, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.commands[name])
	}
	return out
}

// Dispatch handles one invocation to completion. It never panics and reports nothing to
// the caller of Dispatch; every outcome is logged and counted.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation) {
	name := inv.CommandName()
	logger := log.Ctx(ctx).With().
		Str("invocation_id", inv.ID()).
		Str("command", name).
		Str("caller_id", inv.CallerID()).
		Str("caller", inv.CallerName()).
		Logger()
	ctx = logger.WithContext(ctx)
	start := time.Now()

	outcome := d.dispatch(ctx, inv)
	metrics.ObserveCommand(name, outcome)

	evt := logger.Info()
	if outcome != metrics.OutcomeSuccess {
		evt = logger.Warn()
	}
	evt.Str("outcome", outcome).Dur("duration", time.Since(start)).Msg("command completed")
}

func (d *Dispatcher) dispatch(ctx context.Context, inv Invocation) string {
	logger := zerolog.Ctx(ctx)
	cmd, known := d.commands[inv.CommandName()]
	tier := permission.TierMember
	if known {
		tier = cmd.Tier
	}

	lookupCtx, cancel := context.WithTimeout(ctx, d.membershipTimeout)
	membership, err := inv.Membership(lookupCtx)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve caller membership")
		membership = nil
	}
	if !d.evaluator.Allowed(membership, tier) {
		logger.Warn().Stringer("tier", tier).Msg(ErrPermissionDenied.Error())
		if err := inv.Reply(ctx, errorPrefix+ErrPermissionDenied.Error(), true); err != nil {
			logger.Error().Err(err).Msg("failed to send denial")
			return metrics.OutcomeReplyFailed
		}
		return metrics.OutcomeDenied
	}

	if err := inv.Defer(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to acknowledge invocation")
		return metrics.OutcomeReplyFailed
	}

	if !known {
		return d.edit(ctx, inv, Message(errorPrefix+ErrUnknownCommand.Error()), metrics.OutcomeUnknown)
	}

	result, err := runHandler(ctx, cmd.Handler, inv)
	if err != nil {
		logger.Error().Err(err).Msg("command failed")
		return d.edit(ctx, inv, Message(UserText(err)), metrics.OutcomeError)
	}
	if result == nil {
		result = Message("✅ Done.")
	}
	return d.edit(ctx, inv, result, metrics.OutcomeSuccess)
}

func (d *Dispatcher) edit(ctx context.Context, inv Invocation, result *Result, outcome string) string {
	if err := inv.EditReply(ctx, result); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("intended_outcome", outcome).Msg("failed to edit reply")
		return metrics.OutcomeReplyFailed
	}
	return outcome
}

// runHandler calls h and converts a panic into ErrHandlerPanic.
func runHandler(ctx context.Context, h HandlerFunc, inv Invocation) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic in command handler")
			result, err = nil, ErrHandlerPanic.New(fmt.Sprintf("panic: %v", r))
		}
	}()
	return h(ctx, inv)
}
