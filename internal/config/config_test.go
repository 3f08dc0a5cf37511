// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates that configuration loads defaults and honours overrides from the environment.
// Scope: Unit Test
// Expected: Required secrets are enforced and defaults match the documented values.
// Test Case ID: CFG-01
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CHAT_SESSION_TTL", "10m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Server.TrustProxyHeaders)
	assert.Equal(t, "postgres", cfg.Database.Backend)
	assert.Equal(t, "PRD", cfg.Serial.DefaultPrefix)
	assert.Equal(t, "random", cfg.Serial.DefaultStrategy)
	assert.Equal(t, "memory", cfg.Chat.SessionStore)
	assert.Equal(t, 10*time.Minute, cfg.Chat.SessionTTL)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenLifetime)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"missing db password", func(c *Config) { c.Database.Password = "" }, "DB_PASSWORD"},
		{"memory backend needs no password", func(c *Config) { c.Database.Backend = "memory"; c.Database.Password = "" }, ""},
		{"unknown backend", func(c *Config) { c.Database.Backend = "sqlite" }, "DB_BACKEND"},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "JWT_SECRET"},
		{"redis store without redis", func(c *Config) { c.Chat.SessionStore = "redis" }, "REDIS_ENABLED"},
		{"unknown serial strategy", func(c *Config) { c.Serial.DefaultStrategy = "uuid" }, "SERIAL_DEFAULT_STRATEGY"},
		{"valid", func(c *Config) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Database: DatabaseConfig{Backend: "postgres", Password: "pw"},
				Auth:     AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef"},
				Chat:     ChatConfig{SessionStore: "memory"},
				Serial:   SerialConfig{DefaultStrategy: "counter"},
			}
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
