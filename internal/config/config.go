// Package config provides configuration loading and defaults for rscctl.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"
)

// Environment variables recognised by ApplyEnvOverrides.
const (
	EnvClientID     = "RUBRIK_CLIENT_ID"
	EnvClientSecret = "RUBRIK_CLIENT_SECRET"
	EnvEnvName      = "RSC_ENV_NAME"
	EnvBaseURL      = "RSC_BASE_URL"
	EnvAuthToken    = "RSCCTL_AUTH_TOKEN"
	EnvConfigPath   = "RSCCTL_CONFIG_PATH"
)

// ResourceFilter holds allowlist and denylist entries for a resource category.
type ResourceFilter struct {
	Allowlist []string `yaml:"allowlist"`
	Denylist  []string `yaml:"denylist"`
}

// SafetyConfig groups the filters applied to cloud accounts before any
// onboarding call is issued.
type SafetyConfig struct {
	// Accounts matches AWS account IDs and Azure subscription IDs.
	Accounts ResourceFilter `yaml:"accounts"`
}

// AuditConfig controls audit logging behaviour.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogPath string `yaml:"log_path"`
}

// ServerConfig holds network and authentication settings for `rscctl serve`.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// RSCConfig holds connection details for the Rubrik Security Cloud API.
type RSCConfig struct {
	// EnvName is the account prefix, e.g. "mycompany" for mycompany.my.rubrik.com.
	EnvName string `yaml:"env_name"`
	// BaseURL overrides the URL derived from EnvName.
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	// Timeout is the HTTP request timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// PaginationConfig bounds cursor pagination.
type PaginationConfig struct {
	MaxPages int `yaml:"max_pages"`
}

// Config is the top-level configuration structure for rscctl.
type Config struct {
	RSC        RSCConfig        `yaml:"rsc"`
	Pagination PaginationConfig `yaml:"pagination"`
	Safety     SafetyConfig     `yaml:"safety"`
	Audit      AuditConfig      `yaml:"audit"`
	Server     ServerConfig     `yaml:"server"`
}

// URL returns the API base URL without a trailing slash. BaseURL wins over
// EnvName; an empty string is returned when neither is set.
func (c RSCConfig) URL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.EnvName == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.my.rubrik.com", c.EnvName)
}

// LoadConfig reads and parses a YAML configuration file from the given path.
// Fields left empty in the file are filled from DefaultConfig.
// On error, nil is returned for the config pointer.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := mergo.Merge(&cfg, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a new Config populated with default values.
// Each call returns a distinct instance.
func DefaultConfig() *Config {
	return &Config{
		RSC: RSCConfig{
			Timeout: 30,
		},
		Pagination: PaginationConfig{
			MaxPages: 1000,
		},
		Audit: AuditConfig{
			LogPath: filepath.Join(defaultDir(), "audit.log"),
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// DefaultPath returns the config file location used when neither --config
// nor RSCCTL_CONFIG_PATH is given.
func DefaultPath() string {
	return filepath.Join(defaultDir(), "config.yaml")
}

func defaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "rscctl"
	}
	return filepath.Join(dir, "rscctl")
}

// ApplyEnvOverrides updates cfg in place with values from environment variables.
// Recognized variables:
//   - RUBRIK_CLIENT_ID overrides cfg.RSC.ClientID
//   - RUBRIK_CLIENT_SECRET overrides cfg.RSC.ClientSecret
//   - RSC_ENV_NAME overrides cfg.RSC.EnvName
//   - RSC_BASE_URL overrides cfg.RSC.BaseURL
//   - RSCCTL_AUTH_TOKEN overrides cfg.Server.AuthToken
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvClientID); v != "" {
		cfg.RSC.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		cfg.RSC.ClientSecret = v
	}
	if v := os.Getenv(EnvEnvName); v != "" {
		cfg.RSC.EnvName = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.RSC.BaseURL = v
	}
	if v := os.Getenv(EnvAuthToken); v != "" {
		cfg.Server.AuthToken = v
	}
}

// Validate reports whether cfg carries enough to reach the RSC API.
func (c *Config) Validate() error {
	if c.RSC.URL() == "" {
		return fmt.Errorf("config: env name or base URL is required")
	}
	if c.RSC.ClientID == "" || c.RSC.ClientSecret == "" {
		return fmt.Errorf("config: client ID and client secret are required (flags or %s/%s)", EnvClientID, EnvClientSecret)
	}
	return nil
}

// EnsureAuthToken generates a random auth token and sets it on cfg if
// cfg.Server.AuthToken is empty. It returns the token (existing or generated)
// and any error encountered during generation.
func EnsureAuthToken(cfg *Config) (string, error) {
	if cfg.Server.AuthToken != "" {
		return cfg.Server.AuthToken, nil
	}
	token, err := GenerateRandomToken()
	if err != nil {
		return "", fmt.Errorf("generate auth token: %w", err)
	}
	cfg.Server.AuthToken = token
	return token, nil
}

// GenerateRandomToken returns a 32-character hex-encoded cryptographically
// random token string.
func GenerateRandomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return hex.EncodeToString(b), nil
}
