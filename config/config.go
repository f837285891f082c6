// Package config loads the assistant configuration: defaults, then an
// optional YAML file, then ASSISTANT_* environment variables.
package config

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ASSISTANT_"

// ErrCodeInvalidConfig tags configuration errors.
const ErrCodeInvalidConfig = "INVALID_CONFIG"

// Server configures the HTTP surface.
type Server struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// Chat configures the chat collaborator. An empty URL selects the offline
// scripted collaborator.
type Chat struct {
	URL        string        `yaml:"url" env:"URL"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
	Enabled    bool          `yaml:"enabled" env:"ENABLED"`
	Prefer     bool          `yaml:"prefer" env:"PREFER"`
}

// Remote reports whether prompts go to a remote collaborator.
func (c Chat) Remote() bool {
	return c.Enabled && strings.TrimSpace(c.URL) != ""
}

// Session configures session lifetime.
type Session struct {
	IdleTTL     time.Duration `yaml:"idle_ttl" env:"IDLE_TTL"`
	Sweep       string        `yaml:"sweep" env:"SWEEP"`
	AutoAdvance bool          `yaml:"auto_advance" env:"AUTO_ADVANCE"`
}

// Render configures the tree renderer.
type Render struct {
	MaxDepth int  `yaml:"max_depth" env:"MAX_DEPTH"`
	Strict   bool `yaml:"strict" env:"STRICT"`
}

// Script points at an optional directory that replaces the embedded scripts.
type Script struct {
	Dir string `yaml:"dir" env:"DIR"`
}

// Log configures the binary logger.
type Log struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Timing scales scripted step delays; 0 disables them.
type Timing struct {
	Scale float64 `yaml:"scale" env:"SCALE"`
}

// Config is the full assistant configuration.
type Config struct {
	Server  Server  `yaml:"server" envPrefix:"SERVER_"`
	Chat    Chat    `yaml:"chat" envPrefix:"CHAT_"`
	Session Session `yaml:"session" envPrefix:"SESSION_"`
	Render  Render  `yaml:"render" envPrefix:"RENDER_"`
	Script  Script  `yaml:"script" envPrefix:"SCRIPT_"`
	Log     Log     `yaml:"log" envPrefix:"LOG_"`
	Timing  Timing  `yaml:"timing" envPrefix:"TIMING_"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080"},
		Chat: Chat{
			Timeout:    10 * time.Second,
			MaxRetries: 1,
			Enabled:    true,
		},
		Session: Session{
			IdleTTL: 30 * time.Minute,
			Sweep:   "@every 5m",
		},
		Render: Render{MaxDepth: 32},
		Log:    Log{Level: "info", Format: "console"},
		Timing: Timing{Scale: 1},
	}
}

// Load reads path (optional) over the defaults and applies the process
// environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment; a nil map reads the
// process environment.
func LoadWithEnv(path string, environ map[string]string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, errors.CategoryBadInput, "read config file").
				WithTextCode(ErrCodeInvalidConfig).
				WithMetadata(map[string]any{"path": path})
		}
		if err := cfg.Decode(data); err != nil {
			return cfg, err
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, errors.Wrap(err, errors.CategoryBadInput, "parse environment").
			WithTextCode(ErrCodeInvalidConfig)
	}
	return cfg, cfg.Validate()
}

// Decode merges a YAML document into c. Unknown keys are rejected.
func (c *Config) Decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, errors.CategoryBadInput, "decode config").
			WithTextCode(ErrCodeInvalidConfig)
	}
	return nil
}

var (
	logLevels  = []any{"trace", "debug", "info", "warn", "error", "fatal"}
	logFormats = []any{"console", "json"}
)

// Validate checks ranges and enumerations. Field errors are keyed by the
// dotted YAML path of the offending value.
func (c Config) Validate() error {
	err := validation.Errors{
		"server.addr":      validation.Validate(strings.TrimSpace(c.Server.Addr), validation.Required),
		"chat.timeout":     validation.Validate(c.Chat.Timeout, validation.Min(time.Duration(0))),
		"chat.max_retries": validation.Validate(c.Chat.MaxRetries, validation.Min(0)),
		"session.idle_ttl": validation.Validate(c.Session.IdleTTL, validation.Required, validation.Min(time.Nanosecond)),
		"render.max_depth": validation.Validate(c.Render.MaxDepth, validation.Required, validation.Min(1)),
		"timing.scale":     validation.Validate(c.Timing.Scale, validation.Min(0.0)),
		"log.level":        validation.Validate(normalize(c.Log.Level), validation.Required, validation.In(logLevels...)),
		"log.format":       validation.Validate(normalize(c.Log.Format), validation.Required, validation.In(logFormats...)),
	}.Filter()
	if err == nil {
		return nil
	}
	return errors.FromOzzoValidation(err, "invalid configuration").
		WithTextCode(ErrCodeInvalidConfig)
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
