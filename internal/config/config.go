// Package config provides configuration management for the jaaz client core.
// It handles loading and parsing the YAML configuration file and provides
// structured access to application settings including the local server port,
// provider table, proxy configuration and the 99u SSO integration settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Port is the TCP port the local API server listens on.
	Port int `yaml:"port" json:"port"`

	// BaseAPIURL is the remote jaaz backend used for login, balance and
	// generation billing. Overridable so staging deployments can be targeted.
	BaseAPIURL string `yaml:"base-api-url" json:"base-api-url"`

	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// RequestLog enables or disables detailed request logging functionality.
	RequestLog bool `yaml:"request-log" json:"request-log"`

	// LoggingToFile mirrors logs into rotated files under the user data dir.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// Providers maps provider identifiers to their model and credential entries.
	Providers map[string]*Provider `yaml:"providers" json:"providers"`

	// SSO holds the 99u identity-provider integration settings. It is sourced
	// from the environment, not the YAML file, so the login trigger and the
	// callback handler always agree on a single configuration.
	SSO SSOConfig `yaml:"-" json:"-"`

	// UserDataDir is the resolved directory holding the config file, session
	// file and logs. Derived at load time, never persisted.
	UserDataDir string `yaml:"-" json:"-"`

	path string
}

// Provider describes one upstream model provider entry.
type Provider struct {
	// URL is the provider's API base URL.
	URL string `yaml:"url" json:"url"`

	// APIKey is the global credential for this provider. For the jaaz
	// provider it mirrors the logged-in user's token.
	APIKey string `yaml:"api-key" json:"api_key"`

	// MaxTokens caps request sizes for text models, 0 means provider default.
	MaxTokens int `yaml:"max-tokens,omitempty" json:"max_tokens,omitempty"`

	// Models maps model identifiers to their metadata.
	Models map[string]*Model `yaml:"models,omitempty" json:"models,omitempty"`

	// Sessions maps user ids to per-user session keys. Entries here take
	// precedence over APIKey when resolving the effective credential.
	Sessions map[string]string `yaml:"sessions,omitempty" json:"sessions,omitempty"`
}

// Model describes a single model entry under a provider.
type Model struct {
	// Type is one of "text", "image" or "video".
	Type string `yaml:"type" json:"type"`

	// DisplayName is an optional human readable name for UI listings.
	DisplayName string `yaml:"display-name,omitempty" json:"display_name,omitempty"`

	// Description is an optional model description for UI listings.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// SSOConfig captures the 99u identity-provider integration. All values are
// environment backed; AuthURL and CallbackPath carry defaults matching the
// production broker.
type SSOConfig struct {
	// AuthURL is the identity-provider base URL the browser is redirected to.
	AuthURL string `env:"JAAZ_ND99U_AUTH_URL" envDefault:"https://uc-component.101.com"`

	// ClientID is the sdp-app-id registered with the identity provider.
	ClientID string `env:"JAAZ_ND99U_CLIENT_ID"`

	// CallbackPath is the local path the provider redirects back to.
	CallbackPath string `env:"JAAZ_ND99U_CALLBACK_PATH" envDefault:"/99u-callback"`

	// VerifyURL is the server-side endpoint exchanging a uckey for a token.
	VerifyURL string `env:"JAAZ_ND99U_VERIFY_URL"`

	// Lang is the locale forwarded to the provider login page.
	Lang string `env:"JAAZ_ND99U_LANG" envDefault:"zh-CN"`
}

// DefaultPort is the local API port used when the config file does not set one.
const DefaultPort = 57988

// DefaultBaseAPIURL is the production jaaz backend.
const DefaultBaseAPIURL = "https://newapi.clinx.work"

// LoadConfig reads the YAML configuration from configFile, fills defaults for
// missing sections and resolves the SSO environment block. A missing file
// yields the default configuration rather than an error so first runs work
// without any setup.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = configFile
	cfg.UserDataDir = filepath.Dir(configFile)

	data, err := os.ReadFile(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s failed: %w", configFile, err)
		}
	} else if len(data) > 0 {
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s failed: %w", configFile, err)
		}
	}

	cfg.applyDefaults()

	if err = env.Parse(&cfg.SSO); err != nil {
		return nil, fmt.Errorf("config: parse sso environment failed: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c == nil || c.path == "" {
		return fmt.Errorf("config: no backing file")
	}
	return c.SaveTo(c.path)
}

// SaveTo marshals the configuration to YAML and writes it atomically to path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal failed: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create dir failed: %w", err)
	}
	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("config: write temp file failed: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("config: replace file failed: %w", err)
	}
	return nil
}

// Path returns the backing config file path.
func (c *Config) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// SessionFilePath returns the path of the persisted session record.
func (c *Config) SessionFilePath() string {
	return filepath.Join(c.UserDataDir, "session.json")
}

// Exists reports whether the backing config file is present on disk.
func (c *Config) Exists() bool {
	if c == nil || c.path == "" {
		return false
	}
	_, err := os.Stat(c.path)
	return err == nil
}

// applyDefaults fills zero-valued sections after unmarshalling.
func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	c.BaseAPIURL = strings.TrimRight(strings.TrimSpace(c.BaseAPIURL), "/")
	if c.BaseAPIURL == "" {
		c.BaseAPIURL = DefaultBaseAPIURL
	}
	if c.Providers == nil {
		c.Providers = make(map[string]*Provider)
	}
	for name, provider := range defaultProviders(c.BaseAPIURL) {
		if _, ok := c.Providers[name]; !ok {
			c.Providers[name] = provider
		}
	}
}
