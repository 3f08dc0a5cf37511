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
	"errors"
	"time"

	"github.com/opentrusty/warrantyhub/internal/serial"
)

// Domain errors
var (
	// ErrUnauthenticated covers missing, malformed, expired or disabled credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized means the credential is valid but has no grant for the
	// requested tenant or action.
	ErrUnauthorized   = errors.New("unauthorized")
	ErrStoreNotFound  = errors.New("store not found")
	ErrGrantNotFound  = errors.New("store user not found")
	ErrGrantExists    = errors.New("account already has access to this store")
	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrInvalidRole    = errors.New("invalid role")
	ErrValidation     = errors.New("validation failed")
)

// Store is a tenant: it scopes every product, customer, warranty and claim
type Store struct {
	ID             string          `json:"id"`
	Name           string          `json:"store_name"`
	OwnerAccountID string          `json:"owner_account_id"`
	ContactPhone   string          `json:"contact_phone,omitempty"`
	Address        string          `json:"address,omitempty"`
	SerialFormat   serial.Format   `json:"serial_format"`
	Messaging      MessagingConfig `json:"messaging"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MessagingConfig controls outbound chat notifications for a store
type MessagingConfig struct {
	Enabled bool   `json:"enabled"`
	Number  string `json:"number,omitempty"`
}
