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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opentrusty/warrantyhub/internal/serial"
	"github.com/opentrusty/warrantyhub/internal/tenant"
)

// StoreRepository implements tenant.StoreRepository
type StoreRepository struct {
	db *DB
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// Create inserts the store and its owner's grant in one transaction
func (r *StoreRepository) Create(ctx context.Context, store *tenant.Store, owner *tenant.Grant) error {
	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO stores (
				id, name, owner_account_id, contact_phone, address,
				serial_prefix, serial_suffix, serial_strategy,
				messaging_enabled, messaging_number, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			store.ID, store.Name, store.OwnerAccountID, store.ContactPhone, store.Address,
			store.SerialFormat.Prefix, store.SerialFormat.Suffix, string(store.SerialFormat.Strategy),
			store.Messaging.Enabled, store.Messaging.Number, store.CreatedAt, store.UpdatedAt,
		)
		if err != nil {
			return classify(fmt.Errorf("failed to insert store: %w", err))
		}
		if err := insertGrant(ctx, tx, owner); err != nil {
			return err
		}
		return nil
	})
}

// GetByID retrieves a store by ID
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*tenant.Store, error) {
	if !validID(id) {
		return nil, tenant.ErrStoreNotFound
	}

	var s tenant.Store
	var strategy string
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, owner_account_id, contact_phone, address,
			serial_prefix, serial_suffix, serial_strategy,
			messaging_enabled, messaging_number, created_at, updated_at
		FROM stores
		WHERE id = $1
	`, id).Scan(
		&s.ID, &s.Name, &s.OwnerAccountID, &s.ContactPhone, &s.Address,
		&s.SerialFormat.Prefix, &s.SerialFormat.Suffix, &strategy,
		&s.Messaging.Enabled, &s.Messaging.Number, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrStoreNotFound
		}
		return nil, classify(fmt.Errorf("failed to get store: %w", err))
	}
	s.SerialFormat.Strategy = serial.Strategy(strategy)
	return &s, nil
}

// Update saves the store settings
func (r *StoreRepository) Update(ctx context.Context, store *tenant.Store) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE stores
		SET name = $2, contact_phone = $3, address = $4,
			serial_prefix = $5, serial_suffix = $6, serial_strategy = $7,
			messaging_enabled = $8, messaging_number = $9, updated_at = $10
		WHERE id = $1
	`,
		store.ID, store.Name, store.ContactPhone, store.Address,
		store.SerialFormat.Prefix, store.SerialFormat.Suffix, string(store.SerialFormat.Strategy),
		store.Messaging.Enabled, store.Messaging.Number, store.UpdatedAt,
	)
	if err != nil {
		return classify(fmt.Errorf("failed to update store: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrStoreNotFound
	}
	return nil
}

// NextSerialCounter increments the store's counter and returns the new value
func (r *StoreRepository) NextSerialCounter(ctx context.Context, storeID string) (int64, error) {
	var next int64
	err := r.db.pool.QueryRow(ctx, `
		UPDATE stores
		SET serial_counter = serial_counter + 1
		WHERE id = $1
		RETURNING serial_counter
	`, storeID).Scan(&next)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, tenant.ErrStoreNotFound
		}
		return 0, classify(fmt.Errorf("failed to increment serial counter: %w", err))
	}
	return next, nil
}

// GrantRepository implements tenant.GrantRepository
type GrantRepository struct {
	db *DB
}

// NewGrantRepository creates a new store user repository
func NewGrantRepository(db *DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// execer is satisfied by the pool and by transactions
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertGrant(ctx context.Context, db execer, g *tenant.Grant) error {
	_, err := db.Exec(ctx, `
		INSERT INTO store_users (id, store_id, account_id, role, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, g.ID, g.StoreID, g.AccountID, string(g.Role), permissionStrings(g.Permissions), g.CreatedAt, g.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "store_users_store_account_key") {
			return tenant.ErrGrantExists
		}
		return classify(fmt.Errorf("failed to insert store user: %w", err))
	}
	return nil
}

// Create inserts a grant
func (r *GrantRepository) Create(ctx context.Context, grant *tenant.Grant) error {
	return insertGrant(ctx, r.db.pool, grant)
}

const grantColumns = `id, store_id, account_id, role, permissions, created_at, updated_at`

func scanGrant(row pgx.Row) (*tenant.Grant, error) {
	var g tenant.Grant
	var role string
	var perms []string
	if err := row.Scan(&g.ID, &g.StoreID, &g.AccountID, &role, &perms, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.Role = tenant.Role(role)
	g.Permissions = make(tenant.PermissionSet, 0, len(perms))
	for _, p := range perms {
		g.Permissions = append(g.Permissions, tenant.Permission(p))
	}
	return &g, nil
}

func permissionStrings(perms tenant.PermissionSet) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}

// Get retrieves the grant of accountID on storeID
func (r *GrantRepository) Get(ctx context.Context, storeID, accountID string) (*tenant.Grant, error) {
	if !validID(storeID) || !validID(accountID) {
		return nil, tenant.ErrGrantNotFound
	}
	g, err := scanGrant(r.db.pool.QueryRow(ctx, `
		SELECT `+grantColumns+`
		FROM store_users
		WHERE store_id = $1 AND account_id = $2
	`, storeID, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrGrantNotFound
		}
		return nil, classify(fmt.Errorf("failed to get store user: %w", err))
	}
	return g, nil
}

// ListByStore lists the grants of a store
func (r *GrantRepository) ListByStore(ctx context.Context, storeID string) ([]*tenant.Grant, error) {
	return r.list(ctx, `
		SELECT `+grantColumns+`
		FROM store_users
		WHERE store_id = $1
		ORDER BY created_at
	`, storeID)
}

// ListByAccount lists the grants held by an account
func (r *GrantRepository) ListByAccount(ctx context.Context, accountID string) ([]*tenant.Grant, error) {
	return r.list(ctx, `
		SELECT `+grantColumns+`
		FROM store_users
		WHERE account_id = $1
		ORDER BY created_at
	`, accountID)
}

func (r *GrantRepository) list(ctx context.Context, query, id string) ([]*tenant.Grant, error) {
	if !validID(id) {
		return nil, nil
	}
	rows, err := r.db.pool.Query(ctx, query, id)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list store users: %w", err))
	}
	defer rows.Close()

	var grants []*tenant.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store user: %w", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to list store users: %w", err))
	}
	return grants, nil
}

// Update saves role and permissions
func (r *GrantRepository) Update(ctx context.Context, grant *tenant.Grant) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE store_users
		SET role = $3, permissions = $4, updated_at = $5
		WHERE store_id = $1 AND account_id = $2
	`, grant.StoreID, grant.AccountID, string(grant.Role), permissionStrings(grant.Permissions), grant.UpdatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to update store user: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrGrantNotFound
	}
	return nil
}

// Delete removes a grant
func (r *GrantRepository) Delete(ctx context.Context, storeID, accountID string) error {
	if !validID(storeID) || !validID(accountID) {
		return tenant.ErrGrantNotFound
	}
	tag, err := r.db.pool.Exec(ctx, `
		DELETE FROM store_users WHERE store_id = $1 AND account_id = $2
	`, storeID, accountID)
	if err != nil {
		return classify(fmt.Errorf("failed to delete store user: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrGrantNotFound
	}
	return nil
}

// APIKeyRepository implements tenant.APIKeyRepository
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new api key repository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

const apiKeyColumns = `id, store_id, name, key_hash, hint, status, expires_at, last_used_at, created_by, created_at`

func scanAPIKey(row pgx.Row) (*tenant.APIKey, error) {
	var k tenant.APIKey
	var status string
	err := row.Scan(&k.ID, &k.StoreID, &k.Name, &k.KeyHash, &k.Hint, &status,
		&k.ExpiresAt, &k.LastUsedAt, &k.CreatedBy, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	k.Status = tenant.APIKeyStatus(status)
	return &k, nil
}

// Create stores a new api key
func (r *APIKeyRepository) Create(ctx context.Context, key *tenant.APIKey) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO api_keys (`+apiKeyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		key.ID, key.StoreID, key.Name, key.KeyHash, key.Hint, string(key.Status),
		key.ExpiresAt, key.LastUsedAt, key.CreatedBy, key.CreatedAt,
	)
	if err != nil {
		return classify(fmt.Errorf("failed to create api key: %w", err))
	}
	return nil
}

// GetByHash retrieves a key by the hash of its secret
func (r *APIKeyRepository) GetByHash(ctx context.Context, hash string) (*tenant.APIKey, error) {
	k, err := scanAPIKey(r.db.pool.QueryRow(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE key_hash = $1
	`, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrAPIKeyNotFound
		}
		return nil, classify(fmt.Errorf("failed to get api key: %w", err))
	}
	return k, nil
}

// ListByStore lists a store's keys, newest first
func (r *APIKeyRepository) ListByStore(ctx context.Context, storeID string) ([]*tenant.APIKey, error) {
	if !validID(storeID) {
		return nil, nil
	}
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE store_id = $1
		ORDER BY created_at DESC
	`, storeID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list api keys: %w", err))
	}
	defer rows.Close()

	var keys []*tenant.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// UpdateStatus changes the status of a store's key
func (r *APIKeyRepository) UpdateStatus(ctx context.Context, storeID, id string, status tenant.APIKeyStatus) error {
	if !validID(storeID) || !validID(id) {
		return tenant.ErrAPIKeyNotFound
	}
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE api_keys SET status = $3 WHERE store_id = $1 AND id = $2
	`, storeID, id, string(status))
	if err != nil {
		return classify(fmt.Errorf("failed to update api key: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrAPIKeyNotFound
	}
	return nil
}

// Touch records the last use of a key
func (r *APIKeyRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return classify(fmt.Errorf("failed to touch api key: %w", err))
	}
	return nil
}
