package config

import (
	"encoding/hex"
	"testing"
)

// ---------------------------------------------------------------------------
// ApplyEnvOverrides
// ---------------------------------------------------------------------------

func Test_ApplyEnvOverrides_Cases(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		initial  Config
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "credentials fall back to environment",
			env: map[string]string{
				EnvClientID:     "env-id",
				EnvClientSecret: "env-secret",
			},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.RSC.ClientID != "env-id" {
					t.Errorf("RSC.ClientID = %q, want %q", cfg.RSC.ClientID, "env-id")
				}
				if cfg.RSC.ClientSecret != "env-secret" {
					t.Errorf("RSC.ClientSecret = %q, want %q", cfg.RSC.ClientSecret, "env-secret")
				}
			},
		},
		{
			name:    "env overrides file values",
			env:     map[string]string{EnvEnvName: "from-env", EnvBaseURL: "http://localhost:1"},
			initial: Config{RSC: RSCConfig{EnvName: "from-file"}},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.RSC.EnvName != "from-env" {
					t.Errorf("RSC.EnvName = %q, want %q", cfg.RSC.EnvName, "from-env")
				}
				if cfg.RSC.BaseURL != "http://localhost:1" {
					t.Errorf("RSC.BaseURL = %q, want %q", cfg.RSC.BaseURL, "http://localhost:1")
				}
			},
		},
		{
			name:    "empty env does not override existing values",
			env:     map[string]string{EnvClientID: "", EnvAuthToken: ""},
			initial: Config{RSC: RSCConfig{ClientID: "kept"}, Server: ServerConfig{AuthToken: "tok"}},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.RSC.ClientID != "kept" {
					t.Errorf("RSC.ClientID = %q, want %q", cfg.RSC.ClientID, "kept")
				}
				if cfg.Server.AuthToken != "tok" {
					t.Errorf("Server.AuthToken = %q, want %q", cfg.Server.AuthToken, "tok")
				}
			},
		},
		{
			name:    "server auth token",
			env:     map[string]string{EnvAuthToken: "bearer-1"},
			initial: Config{Server: ServerConfig{Port: 9000}},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Server.AuthToken != "bearer-1" {
					t.Errorf("Server.AuthToken = %q, want %q", cfg.Server.AuthToken, "bearer-1")
				}
				if cfg.Server.Port != 9000 {
					t.Errorf("Server.Port = %d, want 9000 (unchanged)", cfg.Server.Port)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{EnvClientID, EnvClientSecret, EnvEnvName, EnvBaseURL, EnvAuthToken} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			ApplyEnvOverrides(&cfg)
			tt.validate(t, &cfg)
		})
	}
}

// ---------------------------------------------------------------------------
// EnsureAuthToken / GenerateRandomToken
// ---------------------------------------------------------------------------

func Test_EnsureAuthToken_Cases(t *testing.T) {
	t.Run("existing token is returned unchanged", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{AuthToken: "pre-set"}}

		token, err := EnsureAuthToken(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "pre-set" {
			t.Errorf("token = %q, want %q", token, "pre-set")
		}
	})

	t.Run("empty token generates and sets new token", func(t *testing.T) {
		cfg := &Config{}

		token, err := EnsureAuthToken(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(token) != 32 {
			t.Errorf("len(token) = %d, want 32", len(token))
		}
		if cfg.Server.AuthToken != token {
			t.Errorf("cfg.Server.AuthToken = %q, want %q (returned token)", cfg.Server.AuthToken, token)
		}
	})
}

func Test_GenerateRandomToken_Cases(t *testing.T) {
	t.Run("output is valid hex encoding 16 bytes", func(t *testing.T) {
		token, err := GenerateRandomToken()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		decoded, err := hex.DecodeString(token)
		if err != nil {
			t.Fatalf("token %q is not valid hex: %v", token, err)
		}
		if len(decoded) != 16 {
			t.Errorf("decoded byte length = %d, want 16", len(decoded))
		}
	})

	t.Run("two calls return different values", func(t *testing.T) {
		token1, _ := GenerateRandomToken()
		token2, _ := GenerateRandomToken()
		if token1 == token2 {
			t.Errorf("two generated tokens are identical: %q", token1)
		}
	})
}
