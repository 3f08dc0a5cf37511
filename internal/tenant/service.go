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
	"fmt"
	"strings"
	"time"

	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/opentrusty/warrantyhub/internal/id"
	"github.com/opentrusty/warrantyhub/internal/serial"
)

// Service provides store, store user and api key management
type Service struct {
	stores        StoreRepository
	grants        GrantRepository
	keys          APIKeyRepository
	auditLogger   audit.Logger
	defaultFormat serial.Format
}

// NewService creates a new tenant service. defaultFormat seeds new stores.
func NewService(stores StoreRepository, grants GrantRepository, keys APIKeyRepository, auditLogger audit.Logger, defaultFormat serial.Format) *Service {
	return &Service{
		stores:        stores,
		grants:        grants,
		keys:          keys,
		auditLogger:   auditLogger,
		defaultFormat: defaultFormat,
	}
}

// SetupInput describes a new store
type SetupInput struct {
	Name         string
	ContactPhone string
	Address      string
	SerialPrefix string
	SerialSuffix string
	Strategy     serial.Strategy
}

// SetupStore creates a store owned by accountID and grants the owner admin
// with the all permission.
func (s *Service) SetupStore(ctx context.Context, accountID string, in SetupInput) (*Store, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: store name is required", ErrValidation)
	}
	if accountID == "" {
		return nil, ErrUnauthenticated
	}

	format := s.defaultFormat
	if in.SerialPrefix != "" {
		format.Prefix = strings.ToUpper(strings.TrimSpace(in.SerialPrefix))
	}
	if in.SerialSuffix != "" {
		format.Suffix = strings.ToUpper(strings.TrimSpace(in.SerialSuffix))
	}
	if in.Strategy != "" {
		format.Strategy = in.Strategy
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := time.Now()
	store := &Store{
		ID:             id.NewUUIDv7(),
		Name:           name,
		OwnerAccountID: accountID,
		ContactPhone:   in.ContactPhone,
		Address:        in.Address,
		SerialFormat:   format,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	owner := &Grant{
		ID:          id.NewUUIDv7(),
		StoreID:     store.ID,
		AccountID:   accountID,
		Role:        RoleAdmin,
		Permissions: PermissionSet{PermissionAll},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.stores.Create(ctx, store, owner); err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Actor:    (&Principal{AccountID: accountID}).Actor(),
		TenantID: store.ID,
		Entity:   audit.EntityStore,
		EntityID: store.ID,
		Action:   audit.ActionCreate,
		NewValue: store,
	})

	return store, nil
}

// GetStore retrieves a store by ID
func (s *Service) GetStore(ctx context.Context, id string) (*Store, error) {
	if id == "" {
		return nil, ErrStoreNotFound
	}
	return s.stores.GetByID(ctx, id)
}

// StoresForAccount lists the grants an account holds, one per store
func (s *Service) StoresForAccount(ctx context.Context, accountID string) ([]*Grant, error) {
	return s.grants.ListByAccount(ctx, accountID)
}

// SettingsInput holds optional store settings updates
type SettingsInput struct {
	Name         *string
	ContactPhone *string
	Address      *string
	SerialFormat *serial.Format
	Messaging    *MessagingConfig
}

// UpdateSettings changes store settings. Requires the settings permission.
func (s *Service) UpdateSettings(ctx context.Context, p *Principal, storeID string, in SettingsInput) (*Store, error) {
	if err := Authorize(p, storeID, PermissionSettings); err != nil {
		return nil, err
	}
	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	old := *store

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, fmt.Errorf("%w: store name is required", ErrValidation)
		}
		store.Name = strings.TrimSpace(*in.Name)
	}
	if in.ContactPhone != nil {
		store.ContactPhone = *in.ContactPhone
	}
	if in.Address != nil {
		store.Address = *in.Address
	}
	if in.SerialFormat != nil {
		f := *in.SerialFormat
		f.Prefix = strings.ToUpper(f.Prefix)
		f.Suffix = strings.ToUpper(f.Suffix)
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		store.SerialFormat = f
	}
	if in.Messaging != nil {
		if in.Messaging.Enabled && in.Messaging.Number == "" {
			return nil, fmt.Errorf("%w: messaging number is required when enabled", ErrValidation)
		}
		store.Messaging = *in.Messaging
	}
	store.UpdatedAt = time.Now()

	if err := s.stores.Update(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to update store: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Actor:    p.Actor(),
		TenantID: storeID,
		Entity:   audit.EntityStore,
		EntityID: storeID,
		Action:   audit.ActionUpdate,
		OldValue: &old,
		NewValue: store,
	})
	return store, nil
}

// GrantAccess adds an account to a store. Requires the store_users permission.
func (s *Service) GrantAccess(ctx context.Context, p *Principal, storeID, accountID string, role Role, perms PermissionSet) (*Grant, error) {
	if err := Authorize(p, storeID, PermissionStoreUsers); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
	for _, perm := range perms {
		if !perm.Valid() {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrValidation, perm)
		}
	}
	if accountID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	now := time.Now()
	grant := &Grant{
		ID:          id.NewUUIDv7(),
		StoreID:     storeID,
		AccountID:   accountID,
		Role:        role,
		Permissions: perms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.grants.Create(ctx, grant); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Actor:    p.Actor(),
		TenantID: storeID,
		Entity:   audit.EntityStoreUser,
		EntityID: grant.ID,
		Action:   audit.ActionCreate,
		NewValue: grant,
	})
	return grant, nil
}

// RevokeAccess removes an account from a store. The owner cannot be removed.
func (s *Service) RevokeAccess(ctx context.Context, p *Principal, storeID, accountID string) error {
	if err := Authorize(p, storeID, PermissionStoreUsers); err != nil {
		return err
	}
	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return err
	}
	if store.OwnerAccountID == accountID {
		return fmt.Errorf("%w: the store owner cannot be removed", ErrValidation)
	}
	grant, err := s.grants.Get(ctx, storeID, accountID)
	if err != nil {
		return err
	}
	if err := s.grants.Delete(ctx, storeID, accountID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Actor:    p.Actor(),
		TenantID: storeID,
		Entity:   audit.EntityStoreUser,
		EntityID: grant.ID,
		Action:   audit.ActionDelete,
		OldValue: grant,
	})
	return nil
}

// ListGrants lists the store users of a store
func (s *Service) ListGrants(ctx context.Context, p *Principal, storeID string) ([]*Grant, error) {
	if err := Authorize(p, storeID, PermissionStoreUsers); err != nil {
		return nil, err
	}
	return s.grants.ListByStore(ctx, storeID)
}

// CreateAPIKey issues a key for the store. Only store admins may create keys.
// The plaintext secret is returned once and never stored.
func (s *Service) CreateAPIKey(ctx context.Context, p *Principal, storeID, name string, expiresAt *time.Time) (*APIKey, string, error) {
	if err := Authorize(p, storeID, PermissionAPIKeys); err != nil {
		return nil, "", err
	}
	if p.Role != RoleAdmin {
		return nil, "", ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", fmt.Errorf("%w: key name is required", ErrValidation)
	}
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return nil, "", fmt.Errorf("%w: expiry must be in the future", ErrValidation)
	}

	secret, hint, err := NewAPIKeySecret()
	if err != nil {
		return nil, "", err
	}
	key := &APIKey{
		ID:        id.NewUUIDv7(),
		StoreID:   storeID,
		Name:      name,
		KeyHash:   HashAPIKey(secret),
		Hint:      hint,
		Status:    APIKeyEnabled,
		ExpiresAt: expiresAt,
		CreatedBy: p.AccountID,
		CreatedAt: time.Now(),
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, "", fmt.Errorf("failed to create api key: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Actor:    p.Actor(),
		TenantID: storeID,
		Entity:   audit.EntityAPIKey,
		EntityID: key.ID,
		Action:   audit.ActionCreate,
		NewValue: map[string]any{"name": key.Name, "status": key.Status},
	})
	return key, secret, nil
}

// SetAPIKeyStatus enables or disables a key
func (s *Service) SetAPIKeyStatus(ctx context.Context, p *Principal, storeID, keyID string, status APIKeyStatus) error {
	if err := Authorize(p, storeID, PermissionAPIKeys); err != nil {
		return err
	}
	if status != APIKeyEnabled && status != APIKeyDisabled {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	if err := s.keys.UpdateStatus(ctx, storeID, keyID, status); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Actor:    p.Actor(),
		TenantID: storeID,
		Entity:   audit.EntityAPIKey,
		EntityID: keyID,
		Action:   audit.ActionUpdate,
		NewValue: map[string]any{"status": status},
	})
	return nil
}

// ListAPIKeys lists a store's keys without secrets
func (s *Service) ListAPIKeys(ctx context.Context, p *Principal, storeID string) ([]*APIKey, error) {
	if err := Authorize(p, storeID, PermissionAPIKeys); err != nil {
		return nil, err
	}
	return s.keys.ListByStore(ctx, storeID)
}
