// Package config loads and validates `lgc.toml` (spec.md §6): the core
// workspace/base_dir settings, the chosen state backend, and the
// configured services.
package config

// Core holds `[core]`.
type Core struct {
	Workspace string `mapstructure:"workspace"`
	BaseDir   string `mapstructure:"base_dir"`
}

// State holds `[state]`, fields shared across both backend types; only the
// subset relevant to the chosen Type is populated by a given config.
type State struct {
	Type string `mapstructure:"type"` // "local" | "http"

	// local
	Path string `mapstructure:"path"`

	// http
	Address              string            `mapstructure:"address"`
	Username             string            `mapstructure:"username"`
	Password             string            `mapstructure:"password"`
	LockAddress          string            `mapstructure:"lock_address"`
	LockMethod           string            `mapstructure:"lock_method"`
	UnlockAddress        string            `mapstructure:"unlock_address"`
	UnlockMethod         string            `mapstructure:"unlock_method"`
	UpdateMethod         string            `mapstructure:"update_method"`
	Timeout              int               `mapstructure:"timeout"`
	SkipCertVerification bool              `mapstructure:"skip_cert_verification"`
	ClientCACertPEM      string            `mapstructure:"client_ca_certificate_pem"`
	ClientCertPEM        string            `mapstructure:"client_certificate_pem"`
	ClientKeyPEM         string            `mapstructure:"client_private_key_pem"`
	Headers              map[string]string `mapstructure:"headers"`
}

// ServiceConfig holds one `[services.<id>]` block.
type ServiceConfig struct {
	Plugin      string         `mapstructure:"plugin"`
	Environment string         `mapstructure:"environment"`
	Settings    map[string]any `mapstructure:"settings"`
}

// Config is the fully decoded, substituted `lgc.toml`.
type Config struct {
	Core     Core                     `mapstructure:"core"`
	State    State                    `mapstructure:"state"`
	Services map[string]ServiceConfig `mapstructure:"services"`
}
