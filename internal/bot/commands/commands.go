// Package commands implements the slash commands exposed by brrbot.
package commands

import (
	"context"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/brrbot/brrbot/internal/bot/autobrr"
	"github.com/brrbot/brrbot/internal/bot/dispatch"
	"github.com/brrbot/brrbot/internal/bot/permission"
)

// AutobrrClient is the part of the autobrr API the commands use.
type AutobrrClient interface {
	GetStatus(ctx context.Context) (*autobrr.Status, error)
	GetFilters(ctx context.Context) ([]autobrr.Filter, error)
	GetFilter(ctx context.Context, id int64) (*autobrr.Filter, error)
	GetReleases(ctx context.Context, limit int) ([]autobrr.Release, error)
	ApproveRelease(ctx context.Context, id int64) error
	RejectRelease(ctx context.Context, id int64) error
	GetLogs(ctx context.Context, limit int) ([]autobrr.LogEntry, error)
	GetSettings(ctx context.Context) (*autobrr.Settings, error)
}

// Embed colors.
const (
	ColorGreen  = 0x00ff00
	ColorBlue   = 0x0099ff
	ColorOrange = 0xff9900
	ColorRed    = 0xff0000
	ColorGrey   = 0x666666
	ColorPurple = 0x9932cc
)

// Display limits.
const (
	maxFilterFields   = 25
	maxReleaseFields  = 10
	maxLogLines       = 20
	maxLogTextLen     = 1900
	defaultReleases   = 20
	maxReleases       = 50
	defaultLogEntries = 50
	maxLogEntries     = 100
)

// Handlers runs commands against one autobrr client.
type Handlers struct {
	client         AutobrrClient
	minVersion     *semver.Constraints
	minVersionText string
	now            func() time.Time
}

// Option configures Handlers.
type Option func(*Handlers)

// WithMinVersion makes the status command report compatibility with constraint. text is
// shown next to the outcome.
func WithMinVersion(text string, constraint *semver.Constraints) Option {
	return func(h *Handlers) {
		h.minVersion = constraint
		h.minVersionText = text
	}
}

// WithClock replaces the clock used for embed timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) {
		h.now = now
	}
}

// NewHandlers creates Handlers for client.
func NewHandlers(client AutobrrClient, opts ...Option) *Handlers {
	h := &Handlers{
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func int64Ptr(v int64) *int64 {
	return &v
}

// Commands returns the command table in registration order.
func (h *Handlers) Commands() []dispatch.Command {
	return []dispatch.Command{
		{
			Name:        "status",
			Description: "Show Autobrr system status",
			Tier:        permission.TierMember,
			Handler:     h.Status,
		},
		{
			Name:        "filters",
			Description: "Display all configured filters",
			Tier:        permission.TierMember,
			Handler:     h.Filters,
		},
		{
			Name:        "filter",
			Description: "Show specific filter details",
			Tier:        permission.TierMember,
			Options: []dispatch.OptionSpec{
				{Name: "id", Description: "Filter ID", Type: dispatch.OptionInteger, Required: true},
			},
			Handler: h.Filter,
		},
		{
			Name:        "releases",
			Description: "Show recent releases",
			Tier:        permission.TierMember,
			Options: []dispatch.OptionSpec{
				{
					Name:        "limit",
					Description: "Number of releases to show (max 50)",
					Type:        dispatch.OptionInteger,
					MinValue:    int64Ptr(1),
					MaxValue:    int64Ptr(maxReleases),
				},
			},
			Handler: h.Releases,
		},
		{
			Name:        "approve",
			Description: "Approve a pending release",
			Tier:        permission.TierElevated,
			Options: []dispatch.OptionSpec{
				{Name: "id", Description: "Release ID", Type: dispatch.OptionInteger, Required: true},
			},
			Handler: h.Approve,
		},
		{
			Name:        "reject",
			Description: "Reject a pending release",
			Tier:        permission.TierElevated,
			Options: []dispatch.OptionSpec{
				{Name: "id", Description: "Release ID", Type: dispatch.OptionInteger, Required: true},
			},
			Handler: h.Reject,
		},
		{
			Name:        "logs",
			Description: "Display recent system logs",
			Tier:        permission.TierMember,
			Options: []dispatch.OptionSpec{
				{
					Name:        "limit",
					Description: "Number of log entries to show (max 100)",
					Type:        dispatch.OptionInteger,
					MinValue:    int64Ptr(1),
					MaxValue:    int64Ptr(maxLogEntries),
				},
			},
			Handler: h.Logs,
		},
		{
			Name:        "settings",
			Description: "View Autobrr settings",
			Tier:        permission.TierOwner,
			Handler:     h.Settings,
		},
	}
}
