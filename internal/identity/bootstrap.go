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

	"github.com/opentrusty/warrantyhub/internal/observability/logger"
	"github.com/opentrusty/warrantyhub/internal/tenant"
)

// StoreProvisioner creates a store owned by an account
type StoreProvisioner interface {
	SetupStore(ctx context.Context, accountID string, in tenant.SetupInput) (*tenant.Store, error)
	StoresForAccount(ctx context.Context, accountID string) ([]*tenant.Grant, error)
}

// BootstrapConfig names the first account and store
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	StoreName     string
}

// BootstrapService seeds the first account and store on an empty system
type BootstrapService struct {
	identityService *Service
	stores          StoreProvisioner
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(identityService *Service, stores StoreProvisioner) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		stores:          stores,
	}
}

// Bootstrap creates the configured account if it does not exist and, when a
// store name is set and the account has no store yet, a store it owns.
// Running it twice is a no-op.
func (s *BootstrapService) Bootstrap(ctx context.Context, cfg BootstrapConfig) error {
	if cfg.AdminEmail == "" {
		return nil
	}

	account, err := s.identityService.GetAccountByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
	case errors.Is(err, ErrAccountNotFound):
		if cfg.AdminPassword == "" {
			return fmt.Errorf("bootstrap account %s does not exist and no password is configured", cfg.AdminEmail)
		}
		account, err = s.identityService.SignUp(ctx, cfg.AdminEmail, "Administrator", cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to create bootstrap account: %w", err)
		}
	default:
		return fmt.Errorf("failed to look up bootstrap account: %w", err)
	}

	if cfg.StoreName == "" {
		return nil
	}
	grants, err := s.stores.StoresForAccount(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to list bootstrap account stores: %w", err)
	}
	if len(grants) > 0 {
		return nil
	}

	store, err := s.stores.SetupStore(ctx, account.ID, tenant.SetupInput{Name: cfg.StoreName})
	if err != nil {
		return fmt.Errorf("failed to create bootstrap store: %w", err)
	}

	slog.InfoContext(ctx, "bootstrapped initial store",
		logger.AccountID(account.ID),
		logger.TenantID(store.ID),
	)
	return nil
}
