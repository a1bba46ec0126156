package autobrr

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// parseStatus accepts any liveness body. autobrr answers with plain "OK"; JSON bodies
// may carry version and uptime.
func parseStatus(body []byte) *Status {
	st := &Status{
		Status:  "online",
		Version: Unknown,
		Uptime:  Unknown,
	}
	if !gjson.ValidBytes(body) {
		return st
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return st
	}
	if v := doc.Get("version"); v.Exists() && v.String() != "" {
		st.Version = v.String()
	}
	if u := doc.Get("uptime"); u.Exists() && u.String() != "" {
		st.Uptime = u.String()
	}
	return st
}

// listItems returns the elements of a list response. Both a bare array and an
// envelope of the form {"data": [...]} are accepted; null means empty.
func listItems(body []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidResponse
	}
	doc := gjson.ParseBytes(body)
	switch {
	case doc.Type == gjson.Null:
		return nil, nil
	case doc.IsArray():
		return doc.Array(), nil
	case doc.IsObject():
		data := doc.Get("data")
		if data.IsArray() {
			return data.Array(), nil
		}
		if data.Type == gjson.Null {
			return nil, nil
		}
	}
	return nil, ErrInvalidResponse
}

func parseFilter(r gjson.Result) Filter {
	f := Filter{
		ID:             r.Get("id").Int(),
		Name:           r.Get("name").String(),
		Enabled:        r.Get("enabled").Bool(),
		Priority:       r.Get("priority").Int(),
		MatchReleases:  r.Get("match_releases").String(),
		ExceptReleases: r.Get("except_releases").String(),
		UseRegex:       r.Get("use_regex").Bool(),
	}
	for _, idx := range r.Get("indexers").Array() {
		var name string
		switch {
		case idx.Type == gjson.String:
			name = idx.String()
		case idx.IsObject():
			name = idx.Get("name").String()
			if name == "" {
				name = idx.Get("identifier").String()
			}
		}
		if name != "" {
			f.Indexers = append(f.Indexers, name)
		}
	}
	return f
}

func parseRelease(r gjson.Result) Release {
	rel := Release{
		ID:      r.Get("id").Int(),
		Name:    r.Get("name").String(),
		Status:  r.Get("status").String(),
		Indexer: r.Get("indexer").String(),
	}
	if rel.Status == "" {
		rel.Status = "Unknown"
	}
	size := r.Get("size")
	switch size.Type {
	case gjson.Number:
		if size.Num > 0 {
			rel.Size = size.Uint()
		}
	case gjson.String:
		if n, err := humanize.ParseBytes(size.String()); err == nil {
			rel.Size = n
		}
	}
	return rel
}

func parseLogEntry(r gjson.Result) LogEntry {
	e := LogEntry{
		RawTimestamp: r.Get("timestamp").String(),
		Level:        r.Get("level").String(),
		Message:      r.Get("message").String(),
	}
	if t, err := time.Parse(time.RFC3339Nano, e.RawTimestamp); err == nil {
		e.Time = t
	}
	return e
}

var sensitiveKeys = []string{"api_key", "apikey", "password", "token", "secret"}

// isSensitiveKey reports whether a configuration key may hold a credential.
func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// SanitizeSettings removes top-level keys that may hold credentials from a raw
// configuration document. Non-object input is returned unchanged.
func SanitizeSettings(raw []byte) []byte {
	if !gjson.ValidBytes(raw) {
		return raw
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return raw
	}
	var drop []string
	doc.ForEach(func(key, _ gjson.Result) bool {
		if isSensitiveKey(key.String()) {
			drop = append(drop, key.String())
		}
		return true
	})
	out := raw
	for _, key := range drop {
		var err error
		if out, err = sjson.DeleteBytes(out, escapePathKey(key)); err != nil {
			return []byte("{}")
		}
	}
	return out
}

func escapePathKey(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}

// decodeSettings maps the sanitized document onto Settings. Port may be reported as a
// number or a string.
func decodeSettings(raw []byte) (*Settings, error) {
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, ErrInvalidResponse.Err(err)
	}
	settings := &Settings{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           settings,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, ErrInvalidResponse.Err(err)
	}
	return settings, nil
}
