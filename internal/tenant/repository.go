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
	"context"
	"time"
)

// StoreRepository defines the interface for store persistence
type StoreRepository interface {
	// Create inserts the store and the owner's grant atomically
	Create(ctx context.Context, store *Store, owner *Grant) error
	GetByID(ctx context.Context, id string) (*Store, error)
	Update(ctx context.Context, store *Store) error
	// NextSerialCounter increments and returns the store's serial counter in one statement
	NextSerialCounter(ctx context.Context, storeID string) (int64, error)
}

// GrantRepository defines the interface for store user persistence
type GrantRepository interface {
	// Create returns ErrGrantExists if the pair already has a grant
	Create(ctx context.Context, grant *Grant) error
	Get(ctx context.Context, storeID, accountID string) (*Grant, error)
	ListByStore(ctx context.Context, storeID string) ([]*Grant, error)
	ListByAccount(ctx context.Context, accountID string) ([]*Grant, error)
	Update(ctx context.Context, grant *Grant) error
	Delete(ctx context.Context, storeID, accountID string) error
}

// APIKeyRepository defines the interface for api key persistence
type APIKeyRepository interface {
	Create(ctx context.Context, key *APIKey) error
	GetByHash(ctx context.Context, hash string) (*APIKey, error)
	ListByStore(ctx context.Context, storeID string) ([]*APIKey, error)
	UpdateStatus(ctx context.Context, storeID, id string, status APIKeyStatus) error
	Touch(ctx context.Context, id string, at time.Time) error
}
