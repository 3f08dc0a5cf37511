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

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opentrusty/warrantyhub/internal/actor"
	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/opentrusty/warrantyhub/internal/id"
	"github.com/opentrusty/warrantyhub/internal/observability/logger"
	"github.com/opentrusty/warrantyhub/internal/serial"
	"github.com/opentrusty/warrantyhub/internal/tenant"
)

// Service provides product and customer operations
type Service struct {
	products    ProductRepository
	customers   CustomerRepository
	stores      StoreLookup
	serials     *serial.Generator
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new catalog service
func NewService(products ProductRepository, customers CustomerRepository, stores StoreLookup, serials *serial.Generator, auditLogger audit.Logger) *Service {
	return &Service{
		products:    products,
		customers:   customers,
		stores:      stores,
		serials:     serials,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// ProductInput describes a new product. The serial number is always issued.
type ProductInput struct {
	Brand              string
	Model              string
	Category           string
	ManufacturingDate  *time.Time
	PurchaseDate       *time.Time
	BaseWarrantyMonths int
}

// CreateProduct issues a serial with the store's format and inserts the
// product under it. Requires the products permission.
func (s *Service) CreateProduct(ctx context.Context, p *tenant.Principal, tenantID string, in ProductInput) (*Product, error) {
	if err := tenant.Authorize(p, tenantID, tenant.PermissionProducts); err != nil {
		return nil, err
	}
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)
	if in.Brand == "" || in.Model == "" {
		return nil, fmt.Errorf("%w: brand and model are required", ErrValidation)
	}
	if in.BaseWarrantyMonths < 0 {
		return nil, fmt.Errorf("%w: base warranty months must not be negative", ErrValidation)
	}
	if in.BaseWarrantyMonths == 0 {
		in.BaseWarrantyMonths = DefaultWarrantyMonths
	}

	store, err := s.stores.GetStore(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	product := &Product{
		ID:                 id.NewUUIDv7(),
		StoreID:            tenantID,
		Prefix:             store.SerialFormat.Prefix,
		Suffix:             store.SerialFormat.Suffix,
		Brand:              in.Brand,
		Model:              in.Model,
		Category:           strings.TrimSpace(in.Category),
		ManufacturingDate:  in.ManufacturingDate,
		PurchaseDate:       in.PurchaseDate,
		BaseWarrantyMonths: in.BaseWarrantyMonths,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	sn, err := s.serials.Issue(ctx, tenantID, store.SerialFormat, in.Model, func(ctx context.Context, candidate string) error {
		product.SerialNumber = candidate
		return s.products.Create(ctx, product)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue serial number: %w", err)
	}
	product.SerialNumber = sn

	s.auditLogger.Log(ctx, audit.Event{
		Actor:    p.Actor(),
		TenantID: tenantID,
		Entity:   audit.EntityProduct,
		EntityID: product.ID,
		Action:   audit.ActionCreate,
		NewValue: product,
	})
	slog.InfoContext(ctx, "product created", logger.TenantID(tenantID), logger.ProductID(product.ID), logger.Serial(sn))
	return product, nil
}

// GetProduct retrieves a product of tenantID. Requires the products permission.
func (s *Service) GetProduct(ctx context.Context, p *tenant.Principal, tenantID, productID string) (*Product, error) {
	if err := tenant.Authorize(p, tenantID, tenant.PermissionProducts); err != nil {
		return nil, err
	}
	return s.products.GetByID(ctx, tenantID, productID)
}

// ProductBySerial resolves a serial across all stores. Callers acting for a
// tenant must use ProductBySerialInScope.
func (s *Service) ProductBySerial(ctx context.Context, sn string) (*Product, error) {
	sn = NormalizeSerial(sn)
	if sn == "" {
		return nil, ErrProductNotFound
	}
	return s.products.GetBySerial(ctx, sn)
}

// ProductBySerialInScope resolves a serial and hides products of other
// stores when scope is set.
func (s *Service) ProductBySerialInScope(ctx context.Context, scope, sn string) (*Product, error) {
	product, err := s.ProductBySerial(ctx, sn)
	if err != nil {
		return nil, err
	}
	if scope != "" && product.StoreID != scope {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// GetProductInternal retrieves a product without a permission check
func (s *Service) GetProductInternal(ctx context.Context, tenantID, productID string) (*Product, error) {
	return s.products.GetByID(ctx, tenantID, productID)
}

// GetCustomer retrieves a customer of tenantID without a permission check
func (s *Service) GetCustomer(ctx context.Context, tenantID, customerID string) (*Customer, error) {
	return s.customers.GetByID(ctx, tenantID, customerID)
}

// FindOrCreateCustomer returns the store's customer with the given phone or
// email, creating one when none matches.
func (s *Service) FindOrCreateCustomer(ctx context.Context, a actor.Actor, tenantID string, ident CustomerIdentity) (*Customer, bool, error) {
	ident.Phone = strings.TrimSpace(ident.Phone)
	ident.Email = strings.ToLower(strings.TrimSpace(ident.Email))
	if ident.Phone == "" && ident.Email == "" {
		return nil, false, fmt.Errorf("%w: customer phone or email is required", ErrValidation)
	}

	existing, err := s.customers.FindByPhoneOrEmail(ctx, tenantID, ident.Phone, ident.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return nil, false, fmt.Errorf("failed to look up customer: %w", err)
	}

	name := strings.TrimSpace(ident.Name)
	if name == "" {
		name = ident.Phone
		if name == "" {
			name = ident.Email
		}
	}

	now := s.now()
	customer := &Customer{
		ID:        id.NewUUIDv7(),
		StoreID:   tenantID,
		Name:      name,
		Phone:     ident.Phone,
		Email:     ident.Email,
		Address:   strings.TrimSpace(ident.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, false, fmt.Errorf("failed to create customer: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Actor:    a,
		TenantID: tenantID,
		Entity:   audit.EntityCustomer,
		EntityID: customer.ID,
		Action:   audit.ActionCreate,
		NewValue: customer,
	})
	return customer, true, nil
}

// UpsertCustomer is FindOrCreateCustomer behind the customers permission
func (s *Service) UpsertCustomer(ctx context.Context, p *tenant.Principal, tenantID string, ident CustomerIdentity) (*Customer, bool, error) {
	if err := tenant.Authorize(p, tenantID, tenant.PermissionCustomers); err != nil {
		return nil, false, err
	}
	return s.FindOrCreateCustomer(ctx, p.Actor(), tenantID, ident)
}
