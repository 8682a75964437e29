// Package config loads the agentexec application configuration from a YAML
// file with AGENTEXEC_* environment overrides, and converts it into the
// library configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/zhangyunhao116/agentexec"
)

// EnvPrefix is the prefix of environment variables that override file values.
const EnvPrefix = "AGENTEXEC"

// ErrInvalid indicates the configuration failed validation.
var ErrInvalid = errors.New("config: invalid configuration")

// validate is the shared validator instance.
var validate = validator.New()

// Config is the application configuration.
//
// Environment keys are EnvPrefix plus the field path in upper snake case,
// e.g. AGENTEXEC_SERVER_MAX_CONNECTIONS. Pattern lists are read from the
// file only: regular expressions routinely contain commas, which envconfig
// uses as the slice separator.
type Config struct {
	Timeout             int      `yaml:"timeout" split_words:"true" validate:"min=0,max=86400"`
	WorkingDir          string   `yaml:"working_dir" split_words:"true"`
	DenyPatterns        []string `yaml:"deny_patterns" ignored:"true"`
	AllowPatterns       []string `yaml:"allow_patterns" ignored:"true"`
	RestrictToWorkspace bool     `yaml:"restrict_to_workspace" split_words:"true"`
	PathAppend          string   `yaml:"path_append" split_words:"true"`
	Shell               string   `yaml:"shell" split_words:"true" validate:"omitempty,startswith=/"`

	Server ServerConfig `yaml:"server" split_words:"true"`
	Log    LogConfig    `yaml:"log" split_words:"true"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr" split_words:"true" validate:"required,hostname_port"`
	// MaxConnections caps concurrent connections. 0 means unlimited.
	MaxConnections int `yaml:"max_connections" split_words:"true" validate:"min=0"`
	// Watch reloads the configuration file when it changes.
	Watch bool `yaml:"watch" split_words:"true"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" split_words:"true" validate:"oneof=text json"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Timeout:      agentexec.DefaultTimeoutSeconds,
		DenyPatterns: agentexec.DefaultDenyPatterns(),
		Server: ServerConfig{
			Addr: "127.0.0.1:8088",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// isUnknownFieldError reports whether err comes from yaml.Decoder.KnownFields
// rejecting an unrecognized key.
func isUnknownFieldError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found in type")
}

// Load reads the configuration from path, applies environment overrides and
// validates the result. An empty path or a missing file yields the defaults
// plus overrides. Unknown keys are logged and ignored.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if cfg, err = parse(data, logger); err != nil {
				return nil, err
			}
		case os.IsNotExist(err):
			logger.Debug("config file not found, using defaults", "path", path)
		default:
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse decodes YAML data over the defaults.
func parse(data []byte, logger *slog.Logger) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return cfg, nil
	case isUnknownFieldError(err):
		logger.Warn("config has unknown fields (ignored)", "error", err)
		cfg = Default()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse error: %w", err)
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("config: parse error: %w", err)
	}
}

// Validate checks struct constraints and the library configuration. All
// problems are reported together; the error wraps ErrInvalid.
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}

	if err := c.ToolConfig(nil).Validate(); err != nil {
		errs = append(errs, strings.TrimPrefix(err.Error(), agentexec.ErrConfigInvalid.Error()+": "))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// ToolConfig converts c into the library configuration.
func (c *Config) ToolConfig(logger *slog.Logger) *agentexec.Config {
	return &agentexec.Config{
		Timeout:             c.Timeout,
		WorkingDir:          c.WorkingDir,
		DenyPatterns:        append([]string(nil), c.DenyPatterns...),
		AllowPatterns:       append([]string(nil), c.AllowPatterns...),
		RestrictToWorkspace: c.RestrictToWorkspace,
		PathAppend:          c.PathAppend,
		Shell:               c.Shell,
		Logger:              logger,
	}
}

// NewTool builds an agentexec.Tool from c.
func (c *Config) NewTool(logger *slog.Logger) (*agentexec.Tool, error) {
	return agentexec.NewTool(c.ToolConfig(logger))
}
