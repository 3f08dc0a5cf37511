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

package tenant

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// APIKeyStatus is Enabled or Disabled
type APIKeyStatus string

const (
	APIKeyEnabled  APIKeyStatus = "Enabled"
	APIKeyDisabled APIKeyStatus = "Disabled"
)

const apiKeyPrefix = "wh_"

// APIKey authenticates an external integration as its store. Only the hash
// of the secret is stored.
type APIKey struct {
	ID         string       `json:"id"`
	StoreID    string       `json:"store_id"`
	Name       string       `json:"name"`
	KeyHash    string       `json:"-"`
	Hint       string       `json:"hint"`
	Status     APIKeyStatus `json:"status"`
	ExpiresAt  *time.Time   `json:"expired_at,omitempty"`
	LastUsedAt *time.Time   `json:"last_used_at,omitempty"`
	CreatedBy  string       `json:"created_by"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Usable reports whether the key may authenticate at now
func (k *APIKey) Usable(now time.Time) bool {
	if k.Status != APIKeyEnabled {
		return false
	}
	return k.ExpiresAt == nil || now.Before(*k.ExpiresAt)
}

// NewAPIKeySecret returns a random plaintext key and its hint (last 4 chars)
func NewAPIKeySecret() (secret, hint string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate api key: %w", err)
	}
	secret = apiKeyPrefix + base64.RawURLEncoding.EncodeToString(b)
	return secret, secret[len(secret)-4:], nil
}

// HashAPIKey is the lookup hash stored for a plaintext key
func HashAPIKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
