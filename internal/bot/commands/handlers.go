package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/brrbot/brrbot/internal/bot/autobrr"
	"github.com/brrbot/brrbot/internal/bot/dispatch"
)

const (
	yes = "✅"
	no  = "❌"
)

func check(v bool) string {
	if v {
		return yes
	}
	return no
}

// Status shows the liveness of the autobrr instance.
func (h *Handlers) Status(ctx context.Context, _ dispatch.Invocation) (*dispatch.Result, error) {
	st, err := h.client.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	res := &dispatch.Result{
		Title: "🟢 Autobrr System Status",
		Color: ColorGreen,
		Fields: []dispatch.Field{
			{Name: "Status", Value: st.Status, Inline: true},
			{Name: "Version", Value: st.Version, Inline: true},
			{Name: "Uptime", Value: st.Uptime, Inline: true},
		},
		Timestamp: h.now(),
	}
	if h.minVersion != nil {
		compat := st.Compatible(h.minVersion)
		res.Fields = append(res.Fields, dispatch.Field{
			Name:   "Compatibility",
			Value:  fmt.Sprintf("%s (%s)", compat, h.minVersionText),
			Inline: true,
		})
	}
	return res, nil
}

// Filters lists configured filters.
func (h *Handlers) Filters(ctx context.Context, _ dispatch.Invocation) (*dispatch.Result, error) {
	filters, err := h.client.GetFilters(ctx)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return dispatch.Message("📝 No filters configured."), nil
	}
	res := &dispatch.Result{
		Title:     "📋 Configured Filters",
		Color:     ColorBlue,
		Timestamp: h.now(),
	}
	for i, f := range filters {
		if i == maxFilterFields {
			break
		}
		res.Fields = append(res.Fields, dispatch.Field{
			Name:  fmt.Sprintf("%s (ID: %d)", f.Name, f.ID),
			Value: fmt.Sprintf("Enabled: %s | Priority: %d", check(f.Enabled), f.Priority),
		})
	}
	if len(filters) > maxFilterFields {
		res.Footer = fmt.Sprintf("Showing %d of %d filters", maxFilterFields, len(filters))
	}
	return res, nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Filter shows one filter in detail.
func (h *Handlers) Filter(ctx context.Context, inv dispatch.Invocation) (*dispatch.Result, error) {
	id, err := requiredID(inv.Options(), "id")
	if err != nil {
		return nil, err
	}
	f, err := h.client.GetFilter(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &dispatch.Result{
		Title: "🔍 Filter: " + f.Name,
		Color: ColorBlue,
		Fields: []dispatch.Field{
			{Name: "ID", Value: strconv.FormatInt(f.ID, 10), Inline: true},
			{Name: "Enabled", Value: check(f.Enabled), Inline: true},
			{Name: "Priority", Value: strconv.FormatInt(f.Priority, 10), Inline: true},
			{Name: "Match Releases", Value: orNA(f.MatchReleases), Inline: true},
			{Name: "Except Releases", Value: orNA(f.ExceptReleases), Inline: true},
			{Name: "Use Regex", Value: check(f.UseRegex), Inline: true},
		},
		Timestamp: h.now(),
	}
	if len(f.Indexers) > 0 {
		res.Fields = append(res.Fields, dispatch.Field{
			Name:  "Indexers",
			Value: strings.Join(f.Indexers, ", "),
		})
	}
	return res, nil
}

func statusEmoji(status string) string {
	switch status {
	case "APPROVED":
		return yes
	case "REJECTED":
		return no
	default:
		return "⏳"
	}
}

// Releases lists recent releases.
func (h *Handlers) Releases(ctx context.Context, inv dispatch.Invocation) (*dispatch.Result, error) {
	limit, err := limitArg(inv.Options(), "limit", defaultReleases, maxReleases)
	if err != nil {
		return nil, err
	}
	releases, err := h.client.GetReleases(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return dispatch.Message("📦 No recent releases found."), nil
	}
	res := &dispatch.Result{
		Title:     "📦 Recent Releases",
		Color:     ColorOrange,
		Timestamp: h.now(),
	}
	for i, r := range releases {
		if i == maxReleaseFields {
			break
		}
		size := "Unknown"
		if r.Size > 0 {
			size = humanize.Bytes(r.Size)
		}
		indexer := r.Indexer
		if indexer == "" {
			indexer = "Unknown"
		}
		res.Fields = append(res.Fields, dispatch.Field{
			Name:  fmt.Sprintf("%s (ID: %d)", r.Name, r.ID),
			Value: fmt.Sprintf("%s %s | Size: %s | Indexer: %s", statusEmoji(r.Status), r.Status, size, indexer),
		})
	}
	if len(releases) > maxReleaseFields {
		res.Footer = fmt.Sprintf("Showing %d of %d releases", maxReleaseFields, len(releases))
	}
	return res, nil
}

// Approve approves a pending release.
func (h *Handlers) Approve(ctx context.Context, inv dispatch.Invocation) (*dispatch.Result, error) {
	id, err := requiredID(inv.Options(), "id")
	if err != nil {
		return nil, err
	}
	if err := h.client.ApproveRelease(ctx, id); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Int64("release_id", id).
		Str("caller", inv.CallerName()).
		Str("caller_id", inv.CallerID()).
		Msgf("Release %d approved by %s", id, inv.CallerName())
	return &dispatch.Result{
		Title:       "✅ Release Approved",
		Description: fmt.Sprintf("Release ID %d has been approved successfully.", id),
		Color:       ColorGreen,
		Timestamp:   h.now(),
	}, nil
}

// Reject rejects a pending release.
func (h *Handlers) Reject(ctx context.Context, inv dispatch.Invocation) (*dispatch.Result, error) {
	id, err := requiredID(inv.Options(), "id")
	if err != nil {
		return nil, err
	}
	if err := h.client.RejectRelease(ctx, id); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Int64("release_id", id).
		Str("caller", inv.CallerName()).
		Str("caller_id", inv.CallerID()).
		Msgf("Release %d rejected by %s", id, inv.CallerName())
	return &dispatch.Result{
		Title:       "❌ Release Rejected",
		Description: fmt.Sprintf("Release ID %d has been rejected successfully.", id),
		Color:       ColorRed,
		Timestamp:   h.now(),
	}, nil
}

const logTimeLayout = "2006-01-02 15:04:05"

func formatLogLine(e autobrr.LogEntry) string {
	ts := e.RawTimestamp
	if !e.Time.IsZero() {
		ts = e.Time.Local().Format(logTimeLayout)
	}
	return fmt.Sprintf("[%s] %s: %s\n", ts, e.Level, e.Message)
}

// truncateLogText cuts text to maxLogTextLen bytes on a rune boundary and closes the
// code block.
func truncateLogText(text string) string {
	if len(text) <= maxLogTextLen {
		return text
	}
	cut := maxLogTextLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "...\n```"
}

// Logs shows recent log entries of the autobrr instance.
func (h *Handlers) Logs(ctx context.Context, inv dispatch.Invocation) (*dispatch.Result, error) {
	limit, err := limitArg(inv.Options(), "limit", defaultLogEntries, maxLogEntries)
	if err != nil {
		return nil, err
	}
	entries, err := h.client.GetLogs(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return dispatch.Message("📄 No recent logs found."), nil
	}

	var b strings.Builder
	b.WriteString("```\n")
	for i, e := range entries {
		if i == maxLogLines {
			break
		}
		b.WriteString(formatLogLine(e))
	}
	b.WriteString("```")

	res := &dispatch.Result{
		Title:       "📄 Recent System Logs",
		Description: truncateLogText(b.String()),
		Color:       ColorGrey,
		Timestamp:   h.now(),
	}
	if len(entries) > maxLogLines {
		res.Footer = fmt.Sprintf("Showing %d of %d log entries", maxLogLines, len(entries))
	}
	return res, nil
}

// Settings shows the non-sensitive part of the autobrr configuration.
func (h *Handlers) Settings(ctx context.Context, _ dispatch.Invocation) (*dispatch.Result, error) {
	s, err := h.client.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	res := &dispatch.Result{
		Title:     "⚙️ Autobrr Settings",
		Color:     ColorPurple,
		Footer:    "Sensitive information hidden for security",
		Timestamp: h.now(),
	}
	for _, f := range []dispatch.Field{
		{Name: "Host", Value: s.Host, Inline: true},
		{Name: "Port", Value: s.Port, Inline: true},
		{Name: "Log Level", Value: s.LogLevel, Inline: true},
	} {
		if f.Value != "" {
			res.Fields = append(res.Fields, f)
		}
	}
	return res, nil
}
