package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPublicKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func baseEnv() []string {
	return []string{
		"DISCORD_TOKEN=bot-token",
		"DISCORD_CLIENT_ID=123456789",
		"DISCORD_PUBLIC_KEY=" + testPublicKey,
		"AUTOBRR_API_KEY=key",
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(Sources{Environ: baseEnv()})
	require.NoError(t, err)

	assert.Equal(t, DefaultAutobrrURL, c.Autobrr.BaseURL)
	assert.Equal(t, DefaultDiscordAPIURL, c.Discord.APIURL)
	assert.Equal(t, 10*time.Second, c.Autobrr.Timeout)
	assert.Equal(t, []string{"admin", "moderator"}, c.AllowedRoles)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "logs", c.LogDir)
	assert.Equal(t, ":8080", c.ListenAddr)
	assert.False(t, c.HandleCORS)
	assert.False(t, c.UsesLogin())

	constraint, err := c.MinVersionConstraint()
	require.NoError(t, err)
	assert.Nil(t, constraint)
}

func TestLoadEnvironment(t *testing.T) {
	env := append(baseEnv(),
		"AUTOBRR_BASE_URL=https://autobrr.example.com",
		"AUTOBRR_USERNAME=user",
		"AUTOBRR_PASSWORD=pass",
		"AUTOBRR_TIMEOUT=30s",
		"AUTOBRR_MIN_VERSION=>= 1.30.0",
		"ALLOWED_ROLES=Admin, Mods ,,",
		"LOG_LEVEL=DEBUG",
		"LISTEN_ADDR=127.0.0.1:9000",
		"HANDLE_CORS=true",
		"DISCORD_GUILD_ID=987654321",
	)
	c, err := Load(Sources{Environ: env})
	require.NoError(t, err)

	assert.Equal(t, "https://autobrr.example.com", c.Autobrr.BaseURL)
	assert.True(t, c.UsesLogin())
	assert.Equal(t, 30*time.Second, c.Autobrr.Timeout)
	assert.Equal(t, []string{"Admin", "Mods"}, c.AllowedRoles)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", c.ListenAddr)
	assert.True(t, c.HandleCORS)
	assert.Equal(t, "987654321", c.Discord.GuildID)

	constraint, err := c.MinVersionConstraint()
	require.NoError(t, err)
	require.NotNil(t, constraint)
}

func TestLoadPrecedence(t *testing.T) {
	file := writeFile(t, "brrbot.toml", `
log_level = "warn"
log_dir = "/var/log/brrbot"
listen_addr = ":7000"

[autobrr]
base_url = "http://from-file:7474"
timeout = "5s"
`)
	dotenv := writeFile(t, ".env", "LOG_DIR=/tmp/dotenv\nLISTEN_ADDR=:7100\n")

	c, err := Load(Sources{
		File:    file,
		DotEnv:  dotenv,
		Environ: append(baseEnv(), "LISTEN_ADDR=:7200"),
	})
	require.NoError(t, err)

	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "http://from-file:7474", c.Autobrr.BaseURL)
	assert.Equal(t, 5*time.Second, c.Autobrr.Timeout)
	assert.Equal(t, "/tmp/dotenv", c.LogDir)
	assert.Equal(t, ":7200", c.ListenAddr)
}

func TestLoadAllowedRolesReplacesDefaults(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		dotenv string
		env    []string
		want   []string
	}{
		{
			name: "single role from environment",
			env:  []string{"ALLOWED_ROLES=ops"},
			want: []string{"ops"},
		},
		{
			name: "empty environment value",
			env:  []string{"ALLOWED_ROLES="},
			want: []string{},
		},
		{
			name: "single role from file",
			file: `allowed_roles = ["ops"]`,
			want: []string{"ops"},
		},
		{
			name:   "environment replaces file",
			file:   `allowed_roles = ["a", "b", "c"]`,
			dotenv: "ALLOWED_ROLES=ops\n",
			want:   []string{"ops"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := Sources{Environ: append(baseEnv(), tt.env...)}
			if tt.file != "" {
				src.File = writeFile(t, "brrbot.toml", tt.file)
			}
			if tt.dotenv != "" {
				src.DotEnv = writeFile(t, ".env", tt.dotenv)
			}
			c, err := Load(src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.AllowedRoles)
		})
	}
}

func TestLoadMissingDotEnv(t *testing.T) {
	_, err := Load(Sources{
		DotEnv:  filepath.Join(t.TempDir(), "missing.env"),
		Environ: baseEnv(),
	})
	assert.NoError(t, err)
}

func TestLoadInvalid(t *testing.T) {
	without := func(key string) []string {
		var out []string
		for _, kv := range baseEnv() {
			if !strings.HasPrefix(kv, key+"=") {
				out = append(out, kv)
			}
		}
		return out
	}

	tests := []struct {
		name    string
		env     []string
		wantMsg string
	}{
		{
			name:    "missing token",
			env:     without("DISCORD_TOKEN"),
			wantMsg: "DISCORD_TOKEN is required",
		},
		{
			name:    "short public key",
			env:     append(without("DISCORD_PUBLIC_KEY"), "DISCORD_PUBLIC_KEY=abcd"),
			wantMsg: "DISCORD_PUBLIC_KEY must be 64 characters long",
		},
		{
			name:    "no credentials",
			env:     without("AUTOBRR_API_KEY"),
			wantMsg: "AUTOBRR_API_KEY or both AUTOBRR_USERNAME and AUTOBRR_PASSWORD must be set",
		},
		{
			name:    "username without password",
			env:     append(without("AUTOBRR_API_KEY"), "AUTOBRR_USERNAME=user"),
			wantMsg: "AUTOBRR_API_KEY or both AUTOBRR_USERNAME and AUTOBRR_PASSWORD must be set",
		},
		{
			name:    "bad url",
			env:     append(baseEnv(), "AUTOBRR_BASE_URL=ftp://host"),
			wantMsg: "AUTOBRR_BASE_URL must be an http or https URL",
		},
		{
			name:    "bad log level",
			env:     append(baseEnv(), "LOG_LEVEL=loud"),
			wantMsg: "LOG_LEVEL must be one of",
		},
		{
			name:    "bad constraint",
			env:     append(baseEnv(), "AUTOBRR_MIN_VERSION=newest"),
			wantMsg: "AUTOBRR_MIN_VERSION is not a valid version constraint",
		},
		{
			name:    "bad timeout",
			env:     append(baseEnv(), "AUTOBRR_TIMEOUT=soon"),
			wantMsg: "invalid environment",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(Sources{Environ: tt.env})
			require.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadBadFile(t *testing.T) {
	file := writeFile(t, "bad.toml", "log_level = [")
	_, err := Load(Sources{File: file, Environ: baseEnv()})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestValidateNil(t *testing.T) {
	assert.ErrorIs(t, ValidateConfig(nil), ErrConfiguration)
}
