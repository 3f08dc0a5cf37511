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

package warranty

import (
	"context"
	"sync"
	"time"

	"github.com/opentrusty/warrantyhub/internal/actor"
	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/id"
	"github.com/opentrusty/warrantyhub/internal/tenant"
)

type memRepo struct {
	mu         sync.Mutex
	byID       map[string]*Warranty
	createErrs []error
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*Warranty{}}
}

func (m *memRepo) Create(_ context.Context, w *Warranty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		return err
	}
	for _, x := range m.byID {
		if x.ProductID == w.ProductID {
			return ErrDuplicateWarranty
		}
	}
	cp := *w
	m.byID[w.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, storeID, id string) (*Warranty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byID[id]
	if !ok || (storeID != "" && w.StoreID != storeID) {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memRepo) GetByProduct(_ context.Context, productID string) (*Warranty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.byID {
		if w.ProductID == productID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) CompareAndSetStatus(_ context.Context, id string, from, to Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byID[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	return true, nil
}

func (m *memRepo) UpdateArtifacts(_ context.Context, id, codeURL, certificateURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	w.CodeURL = codeURL
	w.CertificateURL = certificateURL
	return nil
}

func (m *memRepo) ExpireDue(_ context.Context, now time.Time) ([]Expiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []Expiry
	for _, w := range m.byID {
		if w.Status == StatusActive && w.End.Before(now) {
			w.Status = StatusExpired
			expired = append(expired, Expiry{ID: w.ID, StoreID: w.StoreID})
		}
	}
	return expired, nil
}

func (m *memRepo) set(id string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].Status = status
}

type fakeCatalog struct {
	mu        sync.Mutex
	products  []*catalog.Product
	customers []*catalog.Customer
}

func (f *fakeCatalog) addProduct(storeID, serial string, months int) *catalog.Product {
	p := &catalog.Product{
		ID:                 id.NewUUIDv7(),
		StoreID:            storeID,
		SerialNumber:       serial,
		Brand:              "Acme",
		Model:              "Toaster",
		BaseWarrantyMonths: months,
	}
	f.products = append(f.products, p)
	return p
}

func (f *fakeCatalog) addCustomer(storeID, phone string) *catalog.Customer {
	c := &catalog.Customer{ID: id.NewUUIDv7(), StoreID: storeID, Name: "Jane", Phone: phone}
	f.customers = append(f.customers, c)
	return c
}

func (f *fakeCatalog) GetProductInternal(_ context.Context, tenantID, productID string) (*catalog.Product, error) {
	for _, p := range f.products {
		if p.ID == productID && p.StoreID == tenantID {
			return p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (f *fakeCatalog) GetCustomer(_ context.Context, tenantID, customerID string) (*catalog.Customer, error) {
	for _, c := range f.customers {
		if c.ID == customerID && c.StoreID == tenantID {
			return c, nil
		}
	}
	return nil, catalog.ErrCustomerNotFound
}

func (f *fakeCatalog) ProductBySerialInScope(_ context.Context, scope, serial string) (*catalog.Product, error) {
	serial = catalog.NormalizeSerial(serial)
	for _, p := range f.products {
		if p.SerialNumber == serial && (scope == "" || p.StoreID == scope) {
			return p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (f *fakeCatalog) FindOrCreateCustomer(_ context.Context, _ actor.Actor, tenantID string, ident catalog.CustomerIdentity) (*catalog.Customer, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ident.Phone == "" && ident.Email == "" {
		return nil, false, catalog.ErrValidation
	}
	for _, c := range f.customers {
		if c.StoreID == tenantID && ((ident.Phone != "" && c.Phone == ident.Phone) || (ident.Email != "" && c.Email == ident.Email)) {
			return c, false, nil
		}
	}
	c := &catalog.Customer{ID: id.NewUUIDv7(), StoreID: tenantID, Name: ident.Name, Phone: ident.Phone, Email: ident.Email}
	f.customers = append(f.customers, c)
	return c, true, nil
}

type fakeStores map[string]*tenant.Store

func (f fakeStores) GetStore(_ context.Context, id string) (*tenant.Store, error) {
	if s, ok := f[id]; ok {
		return s, nil
	}
	return nil, tenant.ErrStoreNotFound
}

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Log(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}
