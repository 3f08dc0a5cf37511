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
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/opentrusty/warrantyhub/internal/id"
	"github.com/opentrusty/warrantyhub/internal/observability/logger"
)

const minPasswordLength = 8

// Service provides account signup, login and lookup
type Service struct {
	repo               AccountRepository
	hasher             *PasswordHasher
	tokens             *TokenService
	security           *logger.SecurityLogger
	lockoutMaxAttempts int
	lockoutDuration    time.Duration
	now                func() time.Time
}

// NewService creates a new identity service
func NewService(
	repo AccountRepository,
	hasher *PasswordHasher,
	tokens *TokenService,
	security *logger.SecurityLogger,
	lockoutMaxAttempts int,
	lockoutDuration time.Duration,
) *Service {
	if security == nil {
		security = logger.NewSecurityLogger(nil)
	}
	return &Service{
		repo:               repo,
		hasher:             hasher,
		tokens:             tokens,
		security:           security,
		lockoutMaxAttempts: lockoutMaxAttempts,
		lockoutDuration:    lockoutDuration,
		now:                time.Now,
	}
}

// SignUp creates an account with a password
func (s *Service) SignUp(ctx context.Context, email, name, password string) (*Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	account := &Account{
		ID:        id.NewUUIDv7(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, account, hash); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.InfoContext(ctx, "account created", logger.AccountID(account.ID))
	return account, nil
}

// Authenticate verifies email and password, applying the lockout policy
func (s *Service) Authenticate(ctx context.Context, email, password, ipAddr string) (*Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		s.security.LoginFailure(ctx, email, ipAddr, "invalid_email")
		return nil, ErrInvalidCredentials
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.security.LoginFailure(ctx, email, ipAddr, "account_not_found")
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if account.Locked(now) {
		s.security.LoginFailure(ctx, email, ipAddr, "locked_out")
		return nil, ErrAccountLocked
	}

	hash, err := s.repo.GetPasswordHash(ctx, account.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, hash)
	if err != nil || !valid {
		attempts := account.FailedLoginAttempts + 1
		var lockedUntil *time.Time
		reason := "invalid_password"
		if s.lockoutMaxAttempts > 0 && attempts >= s.lockoutMaxAttempts {
			until := now.Add(s.lockoutDuration)
			lockedUntil = &until
			reason = "locked_after_failures"
		}
		if err := s.repo.UpdateLockout(ctx, account.ID, attempts, lockedUntil); err != nil {
			slog.WarnContext(ctx, "failed to record failed login", logger.Error(err), logger.AccountID(account.ID))
		}
		s.security.LoginFailure(ctx, email, ipAddr, reason)
		return nil, ErrInvalidCredentials
	}

	if account.FailedLoginAttempts > 0 || account.LockedUntil != nil {
		if err := s.repo.UpdateLockout(ctx, account.ID, 0, nil); err != nil {
			slog.WarnContext(ctx, "failed to reset lockout", logger.Error(err), logger.AccountID(account.ID))
		}
		account.FailedLoginAttempts = 0
		account.LockedUntil = nil
	}

	if s.hasher.NeedsRehash(hash) {
		if upgraded, err := s.hasher.Hash(password); err == nil {
			if err := s.repo.UpdatePasswordHash(ctx, account.ID, upgraded); err != nil {
				slog.WarnContext(ctx, "failed to upgrade password hash", logger.Error(err), logger.AccountID(account.ID))
			}
		}
	}

	s.security.LoginSuccess(ctx, account.ID, ipAddr)
	return account, nil
}

// Login authenticates and issues a session token
func (s *Service) Login(ctx context.Context, email, password, ipAddr string) (*Account, string, time.Time, error) {
	account, err := s.Authenticate(ctx, email, password, ipAddr)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, expiresAt, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, expiresAt, nil
}

// GetAccount retrieves an account by ID
func (s *Service) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

// GetAccountByEmail retrieves an account by email
func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByEmail(ctx, email)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(email) > 254 {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
