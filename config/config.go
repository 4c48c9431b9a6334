// Package config provides YAML configuration parsing for msgboard.
//
// This package enables running the console as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Support Inbox
//	port: 8080
//	service_url: ws://${MESSAGE_HOST:-localhost:9501}/message
//	method: stream_messages
//	account: "7"
//	dial_timeout: 5s
//
//	context:
//	  gamespace: "1"
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort        = 8080
	defaultMethod      = "stream_messages"
	defaultDialTimeout = 10 * time.Second
)

// Config is the root configuration structure for msgboard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the page title. Defaults to "Messages" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// ServiceURL is the WebSocket URL of the message service.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	ServiceURL string `yaml:"service_url"`

	// Method is the stream opened on the service. Defaults to "stream_messages".
	Method string `yaml:"method"`

	// Account is the console's own account, used as the default sender.
	// Must be numeric. Supports environment variable substitution.
	Account string `yaml:"account"`

	// Context holds extra parameters sent to the service on connect.
	// Values support environment variable substitution.
	Context map[string]string `yaml:"context"`

	// DialTimeout bounds the WebSocket handshake. Defaults to 10s.
	DialTimeout Duration `yaml:"dial_timeout"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return submatches[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in service_url, account and context
// values. Defaults are applied for port (8080), method ("stream_messages")
// and dial_timeout (10s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Method == "" {
		cfg.Method = defaultMethod
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = Duration(defaultDialTimeout)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.ServiceURL == "" {
		return fmt.Errorf("service_url is required")
	}
	expanded, err := expandEnvVars(c.ServiceURL)
	if err != nil {
		return fmt.Errorf("service_url: %w", err)
	}
	c.ServiceURL = expanded

	parsedURL, err := url.Parse(c.ServiceURL)
	if err != nil {
		return fmt.Errorf("invalid service_url: %w", err)
	}
	if parsedURL.Scheme != "ws" && parsedURL.Scheme != "wss" {
		return fmt.Errorf("service_url scheme must be ws or wss, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("service_url must have a host")
	}

	if c.Account != "" {
		expanded, err := expandEnvVars(c.Account)
		if err != nil {
			return fmt.Errorf("account: %w", err)
		}
		c.Account = expanded
		if _, err := strconv.ParseInt(c.Account, 10, 64); err != nil {
			return fmt.Errorf("account must be numeric, got %q", c.Account)
		}
	}

	for k, v := range c.Context {
		if k == "" {
			return fmt.Errorf("context keys cannot be empty")
		}
		if k == "account" && c.Account != "" {
			return fmt.Errorf("context[account] conflicts with account")
		}
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("context[%s]: %w", k, err)
		}
		c.Context[k] = expanded
	}

	if c.DialTimeout.Duration() < 0 {
		return fmt.Errorf("dial_timeout cannot be negative, got %s", c.DialTimeout.Duration())
	}
	if c.DialTimeout.Duration() < 100*time.Millisecond {
		return fmt.Errorf("dial_timeout must be at least 100ms, got %s", c.DialTimeout.Duration())
	}

	return nil
}
