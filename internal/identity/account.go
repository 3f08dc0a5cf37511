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

package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrAccountLocked      = errors.New("account is locked")
	ErrInvalidToken       = errors.New("invalid session token")
)

// Account is a person who can sign in to the admin API. Accounts are global;
// store membership is expressed by tenant grants.
type Account struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Locked reports whether the account is locked out at now
func (a *Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	// Create stores an account together with its password hash.
	// Returns ErrAccountExists when the email is taken.
	Create(ctx context.Context, account *Account, passwordHash string) error

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByEmail retrieves an account by its (lowercased) email
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetPasswordHash returns the stored argon2id hash
	GetPasswordHash(ctx context.Context, accountID string) (string, error)

	// UpdatePasswordHash replaces the stored hash
	UpdatePasswordHash(ctx context.Context, accountID, passwordHash string) error

	// UpdateLockout records failed attempts and the lockout deadline
	UpdateLockout(ctx context.Context, accountID string, failedAttempts int, lockedUntil *time.Time) error
}
