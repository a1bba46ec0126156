package server

import (
	"github.com/Masterminds/semver/v3"
)

// Version is the current version of brrbot.
// The version follows semantic versioning (MAJOR.MINOR.PATCH).
const Version = "1.0.0"

// DiscordAPIVersion is the Discord API version brrbot speaks.
const DiscordAPIVersion = "v10"

var version = semver.MustParse(Version)

// SemVer returns the parsed Version.
func SemVer() *semver.Version {
	return version
}
