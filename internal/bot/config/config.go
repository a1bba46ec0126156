// Package config loads brrbot configuration.
//
// Values are layered: built-in defaults, then an optional TOML file, then a .env file,
// then the process environment. The result is validated before it is published.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"

	"github.com/brrbot/brrbot/internal/common/apperrors"
)

// ErrConfiguration is returned for any missing or invalid setting.
var ErrConfiguration = apperrors.New("configuration error")

// Defaults.
const (
	DefaultAutobrrURL    = "http://localhost:7474"
	DefaultDiscordAPIURL = "https://discord.com/api/v10"
	DefaultTimeout       = 10 * time.Second
	DefaultLogLevel      = "info"
	DefaultLogDir        = "logs"
	DefaultListenAddr    = ":8080"
	DefaultDotEnvFile    = ".env"
)

// DiscordConfig holds the Discord application credentials.
type DiscordConfig struct {
	Token     string `toml:"token" env:"DISCORD_TOKEN" validate:"required"`
	ClientID  string `toml:"client_id" env:"DISCORD_CLIENT_ID" validate:"required,numeric"`
	PublicKey string `toml:"public_key" env:"DISCORD_PUBLIC_KEY" validate:"required,hexadecimal,len=64"`
	GuildID   string `toml:"guild_id" env:"DISCORD_GUILD_ID" validate:"omitempty,numeric"`
	APIURL    string `toml:"api_url" env:"DISCORD_API_URL" validate:"required,http_url"`
}

// AutobrrConfig holds the connection settings for the autobrr instance. Either APIKey or
// both Username and Password must be set.
type AutobrrConfig struct {
	BaseURL    string        `toml:"base_url" env:"AUTOBRR_BASE_URL" validate:"required,http_url"`
	APIKey     string        `toml:"api_key" env:"AUTOBRR_API_KEY"`
	Username   string        `toml:"username" env:"AUTOBRR_USERNAME"`
	Password   string        `toml:"password" env:"AUTOBRR_PASSWORD"`
	Timeout    time.Duration `toml:"timeout" env:"AUTOBRR_TIMEOUT" validate:"gt=0"`
	MinVersion string        `toml:"min_version" env:"AUTOBRR_MIN_VERSION" validate:"omitempty,semverconstraint"`
}

// ConfigParam holds all configuration parameters for brrbot.
type ConfigParam struct {
	Discord DiscordConfig `toml:"discord" env:",squash"`
	Autobrr AutobrrConfig `toml:"autobrr" env:",squash"`

	AllowedRoles []string `toml:"allowed_roles" env:"ALLOWED_ROLES"`
	LogLevel     string   `toml:"log_level" env:"LOG_LEVEL" validate:"oneof=trace debug info warn warning error"`
	LogDir       string   `toml:"log_dir" env:"LOG_DIR" validate:"required"`
	ListenAddr   string   `toml:"listen_addr" env:"LISTEN_ADDR" validate:"required"`
	HandleCORS   bool     `toml:"handle_cors" env:"HANDLE_CORS"`
}

// MinVersionConstraint parses Autobrr.MinVersion. It returns nil when none is set.
func (c *ConfigParam) MinVersionConstraint() (*semver.Constraints, error) {
	if c.Autobrr.MinVersion == "" {
		return nil, nil
	}
	return semver.NewConstraint(c.Autobrr.MinVersion)
}

// UsesLogin reports whether autobrr is accessed with a username and password.
func (c *ConfigParam) UsesLogin() bool {
	return c.Autobrr.Username != "" && c.Autobrr.Password != ""
}

var cfg *ConfigParam

// Config returns the current configuration
func Config() *ConfigParam {
	return cfg
}

// Defaults returns a configuration holding only built-in defaults.
func Defaults() *ConfigParam {
	return &ConfigParam{
		Discord: DiscordConfig{
			APIURL: DefaultDiscordAPIURL,
		},
		Autobrr: AutobrrConfig{
			BaseURL: DefaultAutobrrURL,
			Timeout: DefaultTimeout,
		},
		AllowedRoles: []string{"admin", "moderator"},
		LogLevel:     DefaultLogLevel,
		LogDir:       DefaultLogDir,
		ListenAddr:   DefaultListenAddr,
	}
}

// Sources names where configuration is read from. Empty fields are skipped.
type Sources struct {
	File    string   // TOML file
	DotEnv  string   // .env file; a missing file is not an error
	Environ []string // KEY=VALUE pairs, as returned by os.Environ
}

// Load builds and validates a configuration from sources.
func Load(src Sources) (*ConfigParam, error) {
	c := Defaults()

	if src.File != "" {
		if _, err := toml.DecodeFile(src.File, c); err != nil {
			return nil, ErrConfiguration.MsgErr(fmt.Sprintf("error parsing config file %s", src.File), err)
		}
	}

	env := map[string]string{}
	if src.DotEnv != "" {
		dotenv, err := godotenv.Read(src.DotEnv)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfiguration.MsgErr(fmt.Sprintf("error reading %s", src.DotEnv), err)
		}
		for k, v := range dotenv {
			env[k] = v
		}
	}
	for _, kv := range src.Environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}

	if err := applyEnv(c, env); err != nil {
		return nil, err
	}
	if err := ValidateConfig(c); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv overwrites the fields of c whose variables are present in env.
func applyEnv(c *ConfigParam, env map[string]string) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "env",
		WeaklyTypedInput: true,
		ZeroFields:       true,
		Result:           c,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			trimmedSliceHook(","),
		),
	})
	if err != nil {
		return ErrConfiguration.Err(err)
	}
	input := make(map[string]any, len(env))
	for k, v := range env {
		input[k] = v
	}
	if err := decoder.Decode(input); err != nil {
		return ErrConfiguration.MsgErr("invalid environment", err)
	}
	return nil
}

// trimmedSliceHook splits a string on sep and drops blank elements. The result is never
// nil, so an empty variable clears the list.
func trimmedSliceHook(sep string) mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		out := []string{}
		for _, s := range strings.Split(data.(string), sep) {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	}
}

// LoadConfig loads the configuration from the given TOML file (optional), the .env file in
// the working directory and the process environment, and publishes it.
func LoadConfig(filename string) error {
	c, err := Load(Sources{
		File:    filename,
		DotEnv:  DefaultDotEnvFile,
		Environ: os.Environ(),
	})
	if err != nil {
		return err
	}
	cfg = c
	return nil
}
