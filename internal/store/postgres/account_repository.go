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

	"github.com/opentrusty/warrantyhub/internal/identity"
)

// AccountRepository implements identity.AccountRepository
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts an account with its password hash
func (r *AccountRepository) Create(ctx context.Context, account *identity.Account, passwordHash string) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, account.ID, account.Email, account.Name, passwordHash, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "accounts_email_key") {
			return identity.ErrAccountExists
		}
		return classify(fmt.Errorf("failed to insert account: %w", err))
	}
	return nil
}

const accountColumns = `id, email, name, failed_login_attempts, locked_until, created_at, updated_at`

func (r *AccountRepository) get(ctx context.Context, where string, arg string) (*identity.Account, error) {
	var a identity.Account
	err := r.db.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg).Scan(
		&a.ID, &a.Email, &a.Name, &a.FailedLoginAttempts, &a.LockedUntil, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrAccountNotFound
		}
		return nil, classify(fmt.Errorf("failed to get account: %w", err))
	}
	return &a, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*identity.Account, error) {
	if !validID(id) {
		return nil, identity.ErrAccountNotFound
	}
	return r.get(ctx, "id = $1", id)
}

// GetByEmail retrieves an account by its normalized email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	return r.get(ctx, "email = $1", email)
}

// GetPasswordHash returns the stored password hash
func (r *AccountRepository) GetPasswordHash(ctx context.Context, id string) (string, error) {
	if !validID(id) {
		return "", identity.ErrAccountNotFound
	}
	var hash string
	err := r.db.pool.QueryRow(ctx, `SELECT password_hash FROM accounts WHERE id = $1`, id).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", identity.ErrAccountNotFound
		}
		return "", classify(fmt.Errorf("failed to get password hash: %w", err))
	}
	return hash, nil
}

// UpdatePasswordHash replaces the account's password hash
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, hash)
	if err != nil {
		return classify(fmt.Errorf("failed to update password hash: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAccountNotFound
	}
	return nil
}

// UpdateLockout stores the failed attempt counter and lock deadline
func (r *AccountRepository) UpdateLockout(ctx context.Context, id string, attempts int, lockedUntil *time.Time) error {
	_, err := r.db.pool.Exec(ctx, `
		UPDATE accounts
		SET failed_login_attempts = $2, locked_until = $3, updated_at = NOW()
		WHERE id = $1
	`, id, attempts, lockedUntil)
	if err != nil {
		return classify(fmt.Errorf("failed to update lockout: %w", err))
	}
	return nil
}
