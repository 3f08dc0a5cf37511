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

// Package memory is a process-local backend implementing every repository
// interface. It mirrors the constraints of the Postgres schema (unique
// serials, one warranty per product, conditional status updates) and is
// used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/claim"
	"github.com/opentrusty/warrantyhub/internal/gateway"
	"github.com/opentrusty/warrantyhub/internal/identity"
	"github.com/opentrusty/warrantyhub/internal/serial"
	"github.com/opentrusty/warrantyhub/internal/tenant"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

// DB holds all tables behind one lock
type DB struct {
	mu         sync.Mutex
	accounts   map[string]*accountRow
	stores     map[string]*storeRow
	grants     map[string]*tenant.Grant // by store/account
	apiKeys    map[string]*tenant.APIKey
	products   map[string]*catalog.Product
	customers  map[string]*catalog.Customer
	warranties map[string]*warranty.Warranty
	claims     map[string]*claim.Claim
	events     []*gateway.Event
	auditLog   []audit.Event
}

type accountRow struct {
	account identity.Account
	hash    string
}

type storeRow struct {
	store   tenant.Store
	counter int64
}

// New creates an empty database
func New() *DB {
	return &DB{
		accounts:   map[string]*accountRow{},
		stores:     map[string]*storeRow{},
		grants:     map[string]*tenant.Grant{},
		apiKeys:    map[string]*tenant.APIKey{},
		products:   map[string]*catalog.Product{},
		customers:  map[string]*catalog.Customer{},
		warranties: map[string]*warranty.Warranty{},
		claims:     map[string]*claim.Claim{},
	}
}

func grantKey(storeID, accountID string) string { return storeID + "/" + accountID }

// Accounts returns the identity.AccountRepository view
func (db *DB) Accounts() *AccountRepository { return &AccountRepository{db: db} }

// Stores returns the tenant.StoreRepository view
func (db *DB) Stores() *StoreRepository { return &StoreRepository{db: db} }

// Grants returns the tenant.GrantRepository view
func (db *DB) Grants() *GrantRepository { return &GrantRepository{db: db} }

// APIKeys returns the tenant.APIKeyRepository view
func (db *DB) APIKeys() *APIKeyRepository { return &APIKeyRepository{db: db} }

// Products returns the catalog.ProductRepository view
func (db *DB) Products() *ProductRepository { return &ProductRepository{db: db} }

// Customers returns the catalog.CustomerRepository view
func (db *DB) Customers() *CustomerRepository { return &CustomerRepository{db: db} }

// Warranties returns the warranty.Repository view
func (db *DB) Warranties() *WarrantyRepository { return &WarrantyRepository{db: db} }

// Claims returns the claim.Repository view
func (db *DB) Claims() *ClaimRepository { return &ClaimRepository{db: db} }

// Record implements gateway.EventLog
func (db *DB) Record(_ context.Context, ev *gateway.Event) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *ev
	db.events = append(db.events, &cp)
	return nil
}

// Events returns the chat events recorded so far
func (db *DB) Events() []*gateway.Event {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]*gateway.Event(nil), db.events...)
}

// ListEvents implements gateway.EventReader
func (db *DB) ListEvents(_ context.Context, q gateway.EventQuery) ([]*gateway.Event, int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var matched []*gateway.Event
	for i := len(db.events) - 1; i >= 0; i-- {
		ev := db.events[i]
		if ev.StoreID != q.StoreID || (q.Phone != "" && ev.Phone != q.Phone) {
			continue
		}
		cp := *ev
		matched = append(matched, &cp)
	}
	lo, hi := q.PageRequest.Normalize().Window(len(matched))
	return matched[lo:hi], len(matched), nil
}

// InsertAuditRecord implements audit.Store
func (db *DB) InsertAuditRecord(_ context.Context, event audit.Event) error {
	event, err := audit.Snapshot(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit value: %w", err)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.auditLog = append(db.auditLog, event)
	return nil
}

// ListAuditRecords implements audit.Reader. Records are numbered in insertion order.
func (db *DB) ListAuditRecords(_ context.Context, q audit.Query) ([]audit.Record, int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var matched []audit.Record
	for i := len(db.auditLog) - 1; i >= 0; i-- {
		ev := db.auditLog[i]
		if ev.TenantID != q.TenantID ||
			(q.Entity != "" && ev.Entity != q.Entity) ||
			(q.EntityID != "" && ev.EntityID != q.EntityID) {
			continue
		}
		oldValue, err := audit.EncodeValue(ev.OldValue)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode audit value: %w", err)
		}
		newValue, err := audit.EncodeValue(ev.NewValue)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode audit value: %w", err)
		}
		matched = append(matched, audit.Record{
			ID:        int64(i + 1),
			Actor:     ev.Actor,
			TenantID:  ev.TenantID,
			Entity:    ev.Entity,
			EntityID:  ev.EntityID,
			Action:    ev.Action,
			OldValue:  oldValue,
			NewValue:  newValue,
			CreatedAt: ev.Timestamp,
		})
	}
	lo, hi := q.PageRequest.Normalize().Window(len(matched))
	return matched[lo:hi], len(matched), nil
}

// AuditRecords returns the persisted audit events
func (db *DB) AuditRecords() []audit.Event {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]audit.Event(nil), db.auditLog...)
}

// AccountRepository implements identity.AccountRepository
type AccountRepository struct{ db *DB }

func (r *AccountRepository) Create(_ context.Context, a *identity.Account, passwordHash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, row := range r.db.accounts {
		if row.account.Email == a.Email {
			return identity.ErrAccountExists
		}
	}
	r.db.accounts[a.ID] = &accountRow{account: *a, hash: passwordHash}
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*identity.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.accounts[id]
	if !ok {
		return nil, identity.ErrAccountNotFound
	}
	cp := row.account
	return &cp, nil
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*identity.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, row := range r.db.accounts {
		if row.account.Email == email {
			cp := row.account
			return &cp, nil
		}
	}
	return nil, identity.ErrAccountNotFound
}

func (r *AccountRepository) GetPasswordHash(_ context.Context, id string) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.accounts[id]
	if !ok {
		return "", identity.ErrAccountNotFound
	}
	return row.hash, nil
}

func (r *AccountRepository) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.accounts[id]
	if !ok {
		return identity.ErrAccountNotFound
	}
	row.hash = hash
	return nil
}

func (r *AccountRepository) UpdateLockout(_ context.Context, id string, attempts int, lockedUntil *time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.accounts[id]
	if !ok {
		return identity.ErrAccountNotFound
	}
	row.account.FailedLoginAttempts = attempts
	row.account.LockedUntil = lockedUntil
	return nil
}

// StoreRepository implements tenant.StoreRepository
type StoreRepository struct{ db *DB }

func (r *StoreRepository) Create(_ context.Context, s *tenant.Store, owner *tenant.Grant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.grants[grantKey(owner.StoreID, owner.AccountID)]; ok {
		return tenant.ErrGrantExists
	}
	r.db.stores[s.ID] = &storeRow{store: *s}
	g := *owner
	r.db.grants[grantKey(g.StoreID, g.AccountID)] = &g
	return nil
}

func (r *StoreRepository) GetByID(_ context.Context, id string) (*tenant.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.stores[id]
	if !ok {
		return nil, tenant.ErrStoreNotFound
	}
	cp := row.store
	return &cp, nil
}

func (r *StoreRepository) Update(_ context.Context, s *tenant.Store) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.stores[s.ID]
	if !ok {
		return tenant.ErrStoreNotFound
	}
	row.store = *s
	return nil
}

func (r *StoreRepository) NextSerialCounter(_ context.Context, storeID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.stores[storeID]
	if !ok {
		return 0, tenant.ErrStoreNotFound
	}
	row.counter++
	return row.counter, nil
}

// GrantRepository implements tenant.GrantRepository
type GrantRepository struct{ db *DB }

func (r *GrantRepository) Create(_ context.Context, g *tenant.Grant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := grantKey(g.StoreID, g.AccountID)
	if _, ok := r.db.grants[k]; ok {
		return tenant.ErrGrantExists
	}
	cp := *g
	r.db.grants[k] = &cp
	return nil
}

func (r *GrantRepository) Get(_ context.Context, storeID, accountID string) (*tenant.Grant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g, ok := r.db.grants[grantKey(storeID, accountID)]
	if !ok {
		return nil, tenant.ErrGrantNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *GrantRepository) list(match func(*tenant.Grant) bool) []*tenant.Grant {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*tenant.Grant
	for _, g := range r.db.grants {
		if match(g) {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *GrantRepository) ListByStore(_ context.Context, storeID string) ([]*tenant.Grant, error) {
	return r.list(func(g *tenant.Grant) bool { return g.StoreID == storeID }), nil
}

func (r *GrantRepository) ListByAccount(_ context.Context, accountID string) ([]*tenant.Grant, error) {
	return r.list(func(g *tenant.Grant) bool { return g.AccountID == accountID }), nil
}

func (r *GrantRepository) Update(_ context.Context, g *tenant.Grant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := grantKey(g.StoreID, g.AccountID)
	if _, ok := r.db.grants[k]; !ok {
		return tenant.ErrGrantNotFound
	}
	cp := *g
	r.db.grants[k] = &cp
	return nil
}

func (r *GrantRepository) Delete(_ context.Context, storeID, accountID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := grantKey(storeID, accountID)
	if _, ok := r.db.grants[k]; !ok {
		return tenant.ErrGrantNotFound
	}
	delete(r.db.grants, k)
	return nil
}

// APIKeyRepository implements tenant.APIKeyRepository
type APIKeyRepository struct{ db *DB }

func (r *APIKeyRepository) Create(_ context.Context, k *tenant.APIKey) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *k
	r.db.apiKeys[k.ID] = &cp
	return nil
}

func (r *APIKeyRepository) GetByHash(_ context.Context, hash string) (*tenant.APIKey, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, k := range r.db.apiKeys {
		if k.KeyHash == hash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, tenant.ErrAPIKeyNotFound
}

func (r *APIKeyRepository) ListByStore(_ context.Context, storeID string) ([]*tenant.APIKey, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*tenant.APIKey
	for _, k := range r.db.apiKeys {
		if k.StoreID == storeID {
			cp := *k
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *APIKeyRepository) UpdateStatus(_ context.Context, storeID, id string, status tenant.APIKeyStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k, ok := r.db.apiKeys[id]
	if !ok || k.StoreID != storeID {
		return tenant.ErrAPIKeyNotFound
	}
	k.Status = status
	return nil
}

func (r *APIKeyRepository) Touch(_ context.Context, id string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if k, ok := r.db.apiKeys[id]; ok {
		t := at
		k.LastUsedAt = &t
	}
	return nil
}

// ProductRepository implements catalog.ProductRepository
type ProductRepository struct{ db *DB }

func (r *ProductRepository) Create(_ context.Context, p *catalog.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range r.db.products {
		if x.SerialNumber == p.SerialNumber {
			return fmt.Errorf("%w: %s", serial.ErrSerialConflict, p.SerialNumber)
		}
	}
	cp := *p
	r.db.products[p.ID] = &cp
	return nil
}

func (r *ProductRepository) GetByID(_ context.Context, storeID, id string) (*catalog.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[id]
	if !ok || p.StoreID != storeID {
		return nil, catalog.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepository) GetBySerial(_ context.Context, sn string) (*catalog.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.products {
		if p.SerialNumber == sn {
			cp := *p
			return &cp, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

// CustomerRepository implements catalog.CustomerRepository
type CustomerRepository struct{ db *DB }

func (r *CustomerRepository) Create(_ context.Context, c *catalog.Customer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *c
	r.db.customers[c.ID] = &cp
	return nil
}

func (r *CustomerRepository) GetByID(_ context.Context, storeID, id string) (*catalog.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.customers[id]
	if !ok || c.StoreID != storeID {
		return nil, catalog.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CustomerRepository) FindByPhoneOrEmail(_ context.Context, storeID, phone, email string) (*catalog.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var found *catalog.Customer
	for _, c := range r.db.customers {
		if c.StoreID != storeID {
			continue
		}
		if (phone != "" && c.Phone == phone) || (email != "" && strings.EqualFold(c.Email, email)) {
			if found == nil || c.CreatedAt.Before(found.CreatedAt) {
				found = c
			}
		}
	}
	if found == nil {
		return nil, catalog.ErrCustomerNotFound
	}
	cp := *found
	return &cp, nil
}

// WarrantyRepository implements warranty.Repository
type WarrantyRepository struct{ db *DB }

func (r *WarrantyRepository) Create(_ context.Context, w *warranty.Warranty) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range r.db.warranties {
		if x.ProductID == w.ProductID {
			return warranty.ErrDuplicateWarranty
		}
	}
	cp := *w
	r.db.warranties[w.ID] = &cp
	return nil
}

func (r *WarrantyRepository) GetByID(_ context.Context, storeID, id string) (*warranty.Warranty, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	w, ok := r.db.warranties[id]
	if !ok || (storeID != "" && w.StoreID != storeID) {
		return nil, warranty.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *WarrantyRepository) GetByProduct(_ context.Context, productID string) (*warranty.Warranty, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, w := range r.db.warranties {
		if w.ProductID == productID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, warranty.ErrNotFound
}

func (r *WarrantyRepository) CompareAndSetStatus(_ context.Context, id string, from, to warranty.Status) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	w, ok := r.db.warranties[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	w.UpdatedAt = time.Now()
	return true, nil
}

func (r *WarrantyRepository) UpdateArtifacts(_ context.Context, id, codeURL, certificateURL string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	w, ok := r.db.warranties[id]
	if !ok {
		return warranty.ErrNotFound
	}
	w.CodeURL = codeURL
	w.CertificateURL = certificateURL
	return nil
}

func (r *WarrantyRepository) ExpireDue(_ context.Context, now time.Time) ([]warranty.Expiry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var expired []warranty.Expiry
	for _, w := range r.db.warranties {
		if w.Status == warranty.StatusActive && w.End.Before(now) {
			w.Status = warranty.StatusExpired
			w.UpdatedAt = now
			expired = append(expired, warranty.Expiry{ID: w.ID, StoreID: w.StoreID})
		}
	}
	return expired, nil
}

// ClaimRepository implements claim.Repository
type ClaimRepository struct{ db *DB }

func cloneClaim(c *claim.Claim) *claim.Claim {
	cp := *c
	cp.Timeline = append([]claim.TimelineEvent(nil), c.Timeline...)
	return &cp
}

func (r *ClaimRepository) Create(_ context.Context, c *claim.Claim) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	w, ok := r.db.warranties[c.WarrantyID]
	if !ok || w.StoreID != c.StoreID {
		return fmt.Errorf("%w: warranty", claim.ErrNotFound)
	}
	if w.Status != warranty.StatusActive {
		return claim.ErrWarrantyNotActive
	}
	r.db.claims[c.ID] = cloneClaim(c)
	w.Status = warranty.StatusClaimed
	w.UpdatedAt = c.CreatedAt
	return nil
}

func (r *ClaimRepository) GetByID(_ context.Context, storeID, id string) (*claim.Claim, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.claims[id]
	if !ok || (storeID != "" && c.StoreID != storeID) {
		return nil, claim.ErrNotFound
	}
	return cloneClaim(c), nil
}

func (r *ClaimRepository) ListByWarranty(_ context.Context, storeID, warrantyID string) ([]*claim.Claim, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*claim.Claim
	for _, c := range r.db.claims {
		if c.StoreID == storeID && c.WarrantyID == warrantyID {
			out = append(out, cloneClaim(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ClaimRepository) Transition(_ context.Context, storeID, id string, from, to claim.Status, event claim.TimelineEvent) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.claims[id]
	if !ok || c.StoreID != storeID || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.Timeline = append(c.Timeline, event)
	c.UpdatedAt = event.Timestamp
	return true, nil
}

func (r *ClaimRepository) AppendTimeline(_ context.Context, storeID, id string, event claim.TimelineEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.claims[id]
	if !ok || c.StoreID != storeID {
		return claim.ErrNotFound
	}
	c.Timeline = append(c.Timeline, event)
	c.UpdatedAt = event.Timestamp
	return nil
}

var (
	_ identity.AccountRepository = (*AccountRepository)(nil)
	_ tenant.StoreRepository     = (*StoreRepository)(nil)
	_ tenant.GrantRepository     = (*GrantRepository)(nil)
	_ tenant.APIKeyRepository    = (*APIKeyRepository)(nil)
	_ catalog.ProductRepository  = (*ProductRepository)(nil)
	_ catalog.CustomerRepository = (*CustomerRepository)(nil)
	_ warranty.Repository        = (*WarrantyRepository)(nil)
	_ claim.Repository           = (*ClaimRepository)(nil)
	_ gateway.EventLog           = (*DB)(nil)
	_ gateway.EventReader        = (*DB)(nil)
	_ audit.Store                = (*DB)(nil)
	_ audit.Reader               = (*DB)(nil)
)
