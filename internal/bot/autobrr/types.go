package autobrr

import (
	"time"

	"github.com/Masterminds/semver/v3"
)

// Unknown is substituted for optional text fields the remote service omits.
const Unknown = "unknown"

// Status is the normalized result of the liveness endpoint.
type Status struct {
	Status  string
	Version string
	Uptime  string
}

// Compatibility is the outcome of checking a Status against a version constraint.
type Compatibility int

const (
	CompatibilityUnknown Compatibility = iota
	Compatible
	Incompatible
)

func (c Compatibility) String() string {
	switch c {
	case Compatible:
		return "compatible"
	case Incompatible:
		return "incompatible"
	default:
		return Unknown
	}
}

// Compatible checks the reported version against constraint. A nil constraint or an
// unparsable version yields CompatibilityUnknown.
func (s Status) Compatible(constraint *semver.Constraints) Compatibility {
	if constraint == nil {
		return CompatibilityUnknown
	}
	v, err := semver.NewVersion(s.Version)
	if err != nil {
		return CompatibilityUnknown
	}
	if constraint.Check(v) {
		return Compatible
	}
	return Incompatible
}

// Filter is a release matching rule.
type Filter struct {
	ID             int64
	Name           string
	Enabled        bool
	Priority       int64
	MatchReleases  string
	ExceptReleases string
	UseRegex       bool
	Indexers       []string
}

// Release is a candidate item seen by autobrr. Size is zero when not reported.
type Release struct {
	ID      int64
	Name    string
	Status  string
	Size    uint64
	Indexer string
}

// LogEntry is one line of the remote service's log. Time is zero when the timestamp
// could not be parsed, in which case RawTimestamp holds the original value.
type LogEntry struct {
	Time         time.Time
	RawTimestamp string
	Level        string
	Message      string
}

// Settings holds the non-sensitive subset of the remote configuration.
type Settings struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}
