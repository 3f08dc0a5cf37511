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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opentrusty/warrantyhub/internal/observability/logger"
)

// TokenVerifier validates a session token and returns the account it names
type TokenVerifier interface {
	VerifySessionToken(token string) (accountID string, err error)
}

// Resolver turns request credentials into a Principal. Every domain
// operation on tenant data goes through it.
type Resolver struct {
	tokens TokenVerifier
	grants GrantRepository
	keys   APIKeyRepository
	now    func() time.Time
}

// NewResolver creates a resolver
func NewResolver(tokens TokenVerifier, grants GrantRepository, keys APIKeyRepository) *Resolver {
	return &Resolver{
		tokens: tokens,
		grants: grants,
		keys:   keys,
		now:    time.Now,
	}
}

// ResolveToken verifies token and, when tenantID is set, loads the
// account's grant for that store.
func (r *Resolver) ResolveToken(ctx context.Context, token, tenantID string) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}
	accountID, err := r.tokens.VerifySessionToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	p := &Principal{AccountID: accountID, Credential: CredentialSession}
	if tenantID == "" {
		return p, nil
	}

	grant, err := r.grants.Get(ctx, tenantID, accountID)
	if err != nil {
		if errors.Is(err, ErrGrantNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load store user: %w", err)
	}

	p.TenantID = grant.StoreID
	p.Role = grant.Role
	p.Permissions = grant.Permissions
	return p, nil
}

// ResolveAPIKey authenticates an external integration. The key's store is
// the principal's tenant and the permission set is {all} within it.
func (r *Resolver) ResolveAPIKey(ctx context.Context, secret string) (*Principal, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrUnauthenticated
	}
	key, err := r.keys.GetByHash(ctx, HashAPIKey(secret))
	if err != nil {
		if errors.Is(err, ErrAPIKeyNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load api key: %w", err)
	}

	now := r.now()
	if !key.Usable(now) {
		return nil, fmt.Errorf("%w: api key disabled or expired", ErrUnauthenticated)
	}

	if err := r.keys.Touch(ctx, key.ID, now); err != nil {
		slog.WarnContext(ctx, "failed to record api key usage", logger.Error(err), logger.TenantID(key.StoreID))
	}

	return &Principal{
		TenantID:    key.StoreID,
		Permissions: PermissionSet{PermissionAll},
		Credential:  CredentialAPIKey,
	}, nil
}
