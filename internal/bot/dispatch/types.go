package dispatch

import (
	"context"
	"time"

	"github.com/brrbot/brrbot/internal/bot/permission"
)

// Invocation is one slash command call as delivered by the chat platform. Exactly one of
// Reply or Defer is called on it, and EditReply only after Defer.
type Invocation interface {
	// ID identifies the invocation for logging.
	ID() string
	// CallerID is the platform user id of the caller.
	CallerID() string
	// CallerName is a display name for logs.
	CallerName() string
	CommandName() string
	Options() Options
	// Membership resolves the caller's standing in the guild. It is called at most once.
	Membership(ctx context.Context) (*permission.Membership, error)
	// Reply sends an immediate reply that completes the invocation.
	Reply(ctx context.Context, content string, ephemeral bool) error
	// Defer acknowledges the invocation; the answer follows with EditReply.
	Defer(ctx context.Context) error
	EditReply(ctx context.Context, result *Result) error
}

// OptionType is the type of a command argument.
type OptionType int

const (
	OptionString OptionType = iota + 1
	OptionInteger
)

// Option is one named argument of an invocation.
type Option struct {
	Name        string
	Type        OptionType
	IntValue    int64
	StringValue string
}

// Options are the arguments of an invocation in the order the caller gave them.
type Options []Option

// Int returns the integer argument with the given name.
func (o Options) Int(name string) (int64, bool) {
	for _, opt := range o {
		if opt.Name == name && opt.Type == OptionInteger {
			return opt.IntValue, true
		}
	}
	return 0, false
}

// String returns the string argument with the given name.
func (o Options) String(name string) (string, bool) {
	for _, opt := range o {
		if opt.Name == name && opt.Type == OptionString {
			return opt.StringValue, true
		}
	}
	return "", false
}

// Field is a name/value pair of a structured result.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Result is what a command answers with. A result with only Content set is rendered as a
// plain message; otherwise it is rendered as an embed.
type Result struct {
	Content     string
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
	Timestamp   time.Time
}

// IsEmbed reports whether the result carries structured content.
func (r *Result) IsEmbed() bool {
	return r.Title != "" || r.Description != "" || len(r.Fields) > 0 || r.Footer != ""
}

// Message returns a plain text result.
func Message(content string) *Result {
	return &Result{Content: content}
}

// HandlerFunc runs a command and returns its result.
type HandlerFunc func(ctx context.Context, inv Invocation) (*Result, error)

// OptionSpec declares one argument of a command.
type OptionSpec struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	MinValue    *int64
	MaxValue    *int64
}

// Command binds a command name to its tier and handler.
type Command struct {
	Name        string
	Description string
	Tier        permission.Tier
	Options     []OptionSpec
	Handler     HandlerFunc
}
