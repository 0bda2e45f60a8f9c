// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration. Treat a loaded Config as
// read-only; nothing mutates it after startup.
type Config struct {
	// ListenAddress is the interface to bind. Empty binds all interfaces.
	ListenAddress string `yaml:"listen_address"`

	// Port is the TCP port for the HTTP API.
	// Default: 3000
	Port int `yaml:"port"`

	CORS        CORSConfig        `yaml:"cors"`
	Auth        AuthConfig        `yaml:"auth"`
	Git         GitConfig         `yaml:"git"`
	Paths       PathsConfig       `yaml:"paths"`
	Supervisor  SupervisorConfig  `yaml:"supervisor"`
	Compression CompressionConfig `yaml:"compression"`
}

// CORSConfig controls cross-origin response headers.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Origin         string   `yaml:"origin"`
	Methods        []string `yaml:"methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// AuthConfig configures operator authentication.
type AuthConfig struct {
	// Enabled gates every protected route behind a session token.
	// Unset means enabled; only an explicit false turns gating off.
	Enabled *bool `yaml:"enabled"`

	// TokenLifetime is how long an issued session token stays valid.
	// Accepts Go durations plus a "d" suffix for days ("7d").
	// Default: 1h
	TokenLifetime string `yaml:"token_lifetime"`

	// BindPasswordGeneration makes tokens carry a fingerprint of the
	// password hash they were issued under, so a password change revokes
	// every outstanding token.
	BindPasswordGeneration bool `yaml:"bind_password_generation"`

	// MaxConcurrentLogins bounds simultaneous bcrypt comparisons.
	// Default: 4
	MaxConcurrentLogins int `yaml:"max_concurrent_logins"`
}

// GitConfig restricts which repositories may be cloned.
type GitConfig struct {
	// AllowedPrefixes lists URL prefixes a clone URL must start with.
	// Empty denies every clone.
	AllowedPrefixes []string `yaml:"allowed_prefixes"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for warden data.
	Root string `yaml:"root"`

	// State holds the credential record and signing key.
	State string `yaml:"state"`

	// Apps is the managed root: clones land here and pull/install
	// directories must resolve inside it.
	Apps string `yaml:"apps"`

	// Logs is where per-process log directories are created for
	// processes started through the API.
	Logs string `yaml:"logs"`
}

// SupervisorConfig configures the process supervisor CLI.
type SupervisorConfig struct {
	// Binary is the supervisor executable.
	// Default: pm2
	Binary string `yaml:"binary"`

	// Timeout bounds every supervisor invocation.
	// Default: 30s
	Timeout string `yaml:"timeout"`
}

// CompressionConfig controls gzip response compression.
type CompressionConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultPort is the port used when neither the file nor PORT sets one.
const DefaultPort = 3000

// Default returns the configuration used when no file is given, and the
// base that a config file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "warden")

	return &Config{
		Port: DefaultPort,
		CORS: CORSConfig{
			Enabled:        false,
			Origin:         "*",
			Methods:        []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		Auth: AuthConfig{
			TokenLifetime:       "1h",
			MaxConcurrentLogins: 4,
		},
		Paths: PathsConfig{
			Root:  defaultRoot,
			State: "${WARDEN_ROOT}/state",
			Apps:  "${WARDEN_ROOT}/apps",
			Logs:  "${WARDEN_ROOT}/logs",
		},
		Supervisor: SupervisorConfig{
			Binary:  "pm2",
			Timeout: "30s",
		},
		Compression: CompressionConfig{Enabled: true},
	}
}

// Load reads the file named by WARDEN_CONFIG, or returns defaults when
// the variable is unset. PORT is applied in both cases.
func Load() (*Config, error) {
	path := os.Getenv("WARDEN_CONFIG")
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		if err := cfg.applyPortEnvironment(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path. Files ending in .json or
// .jsonc are read in the legacy format; anything else is YAML.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := cfg.mergeLegacy(data); err != nil {
			return nil, fmt.Errorf("parsing legacy config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.expandVariables()
	if err := cfg.applyPortEnvironment(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyPortEnvironment() error {
	value := os.Getenv("PORT")
	if value == "" {
		return nil
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("PORT %q is not a number", value)
	}
	c.Port = port
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["WARDEN_ROOT"] = c.Paths.Root

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Paths.Apps = expandVars(c.Paths.Apps, vars)
	c.Paths.Logs = expandVars(c.Paths.Logs, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, fallback := parts[1], parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return fallback
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}

	for name, value := range map[string]string{
		"paths.root":  c.Paths.Root,
		"paths.state": c.Paths.State,
		"paths.apps":  c.Paths.Apps,
		"paths.logs":  c.Paths.Logs,
	} {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		} else if !filepath.IsAbs(value) {
			errs = append(errs, fmt.Errorf("%s must be absolute, got %q", name, value))
		}
	}

	if _, err := ParseLifetime(c.Auth.TokenLifetime); err != nil {
		errs = append(errs, fmt.Errorf("auth.token_lifetime: %w", err))
	}
	if c.Auth.MaxConcurrentLogins < 1 {
		errs = append(errs, fmt.Errorf("auth.max_concurrent_logins must be at least 1"))
	}

	for _, prefix := range c.Git.AllowedPrefixes {
		if strings.TrimSpace(prefix) == "" {
			errs = append(errs, fmt.Errorf("git.allowed_prefixes contains an empty entry"))
			break
		}
	}

	if c.Supervisor.Binary == "" {
		errs = append(errs, fmt.Errorf("supervisor.binary is required"))
	}
	if timeout, err := time.ParseDuration(c.Supervisor.Timeout); err != nil || timeout <= 0 {
		errs = append(errs, fmt.Errorf("supervisor.timeout must be a positive duration, got %q", c.Supervisor.Timeout))
	}

	if c.CORS.Enabled && c.CORS.Origin == "" {
		errs = append(errs, fmt.Errorf("cors.origin is required when cors is enabled"))
	}

	return errors.Join(errs...)
}

// AuthEnabled reports whether request gating is on.
func (c *Config) AuthEnabled() bool {
	return c.Auth.Enabled == nil || *c.Auth.Enabled
}

// TokenLifetime returns the parsed session lifetime. Call after Validate.
func (c *Config) TokenLifetime() time.Duration {
	lifetime, err := ParseLifetime(c.Auth.TokenLifetime)
	if err != nil {
		return time.Hour
	}
	return lifetime
}

// SupervisorTimeout returns the parsed supervisor timeout. Call after
// Validate.
func (c *Config) SupervisorTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.Supervisor.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return timeout
}

// Address returns the host:port the HTTP server binds.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.ListenAddress, c.Port)
}

// EnsurePaths creates the configured directories if they don't exist.
// The state directory is private to the daemon user.
func (c *Config) EnsurePaths() error {
	for _, entry := range []struct {
		path string
		mode os.FileMode
	}{
		{c.Paths.Root, 0755},
		{c.Paths.State, 0700},
		{c.Paths.Apps, 0755},
		{c.Paths.Logs, 0755},
	} {
		if err := os.MkdirAll(entry.path, entry.mode); err != nil {
			return fmt.Errorf("creating %s: %w", entry.path, err)
		}
	}
	return nil
}

// MaxLifetime bounds token lifetimes.
const MaxLifetime = 365 * 24 * time.Hour

// ParseLifetime parses a token lifetime. Besides Go durations it accepts
// a bare number of seconds and whole days with a "d" suffix, the forms
// older deployments wrote. Lifetimes above MaxLifetime are rejected.
func ParseLifetime(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("lifetime is empty")
	}

	var lifetime time.Duration
	if days, ok := strings.CutSuffix(value, "d"); ok {
		count, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid lifetime %q", value)
		}
		if count > int(MaxLifetime/(24*time.Hour)) {
			return 0, fmt.Errorf("lifetime %q exceeds %s", value, MaxLifetime)
		}
		lifetime = time.Duration(count) * 24 * time.Hour
	} else if seconds, err := strconv.Atoi(value); err == nil {
		if seconds > int(MaxLifetime/time.Second) {
			return 0, fmt.Errorf("lifetime %q exceeds %s", value, MaxLifetime)
		}
		lifetime = time.Duration(seconds) * time.Second
	} else {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid lifetime %q", value)
		}
		lifetime = parsed
	}

	if lifetime > MaxLifetime {
		return 0, fmt.Errorf("lifetime %q exceeds %s", value, MaxLifetime)
	}
	if lifetime <= 0 {
		return 0, fmt.Errorf("lifetime must be positive, got %q", value)
	}
	return lifetime, nil
}
