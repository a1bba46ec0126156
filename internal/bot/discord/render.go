package discord

import (
	"time"
	"unicode/utf8"

	"github.com/brrbot/brrbot/internal/bot/dispatch"
)

// Discord embed limits.
const (
	maxTitleLen       = 256
	maxDescriptionLen = 4096
	maxFieldNameLen   = 256
	maxFieldValueLen  = 1024
	maxFooterLen      = 2048
	maxFields         = 25
	maxContentLen     = 2000
)

// clamp shortens s to at most n bytes without splitting a rune.
func clamp(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// RenderEmbed converts a structured result to an embed.
func RenderEmbed(r *dispatch.Result) Embed {
	e := Embed{
		Title:       clamp(r.Title, maxTitleLen),
		Description: clamp(r.Description, maxDescriptionLen),
		Color:       r.Color,
	}
	for i, f := range r.Fields {
		if i == maxFields {
			break
		}
		// Empty names or values are rejected by Discord.
		name, value := f.Name, f.Value
		if name == "" {
			name = "\u200b"
		}
		if value == "" {
			value = "\u200b"
		}
		e.Fields = append(e.Fields, EmbedField{
			Name:   clamp(name, maxFieldNameLen),
			Value:  clamp(value, maxFieldValueLen),
			Inline: f.Inline,
		})
	}
	if r.Footer != "" {
		e.Footer = &EmbedFooter{Text: clamp(r.Footer, maxFooterLen)}
	}
	if !r.Timestamp.IsZero() {
		e.Timestamp = r.Timestamp.UTC().Format(time.RFC3339)
	}
	return e
}

// renderEdit builds the message edit for a result.
func renderEdit(r *dispatch.Result) MessageEdit {
	edit := MessageEdit{
		Content: clamp(r.Content, maxContentLen),
		Embeds:  []Embed{},
	}
	if r.IsEmbed() {
		edit.Embeds = append(edit.Embeds, RenderEmbed(r))
	}
	return edit
}
