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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opentrusty/warrantyhub/internal/actor"
	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/id"
	"github.com/opentrusty/warrantyhub/internal/observability/logger"
	"github.com/opentrusty/warrantyhub/internal/observability/metrics"
	"github.com/opentrusty/warrantyhub/internal/store"
	"github.com/opentrusty/warrantyhub/internal/tenant"
)

// Catalog resolves the products and customers a warranty refers to
type Catalog interface {
	GetProductInternal(ctx context.Context, tenantID, productID string) (*catalog.Product, error)
	GetCustomer(ctx context.Context, tenantID, customerID string) (*catalog.Customer, error)
	ProductBySerialInScope(ctx context.Context, scope, serial string) (*catalog.Product, error)
	FindOrCreateCustomer(ctx context.Context, a actor.Actor, tenantID string, ident catalog.CustomerIdentity) (*catalog.Customer, bool, error)
}

// StoreLookup loads the store a warranty belongs to
type StoreLookup interface {
	GetStore(ctx context.Context, id string) (*tenant.Store, error)
}

// Registration is what a post-commit hook sees
type Registration struct {
	Warranty *Warranty
	Store    *tenant.Store
	Product  *catalog.Product
	Customer *catalog.Customer
}

// Hook runs after a warranty insert has committed. Its error is logged and
// never fails the registration.
type Hook struct {
	Name string
	Run  func(ctx context.Context, reg *Registration) error
}

// Service implements the warranty lifecycle
type Service struct {
	repo        Repository
	catalog     Catalog
	stores      StoreLookup
	auditLogger audit.Logger
	metrics     *metrics.Domain
	hooks       []Hook
	now         func() time.Time
}

// NewService creates a new warranty service
func NewService(repo Repository, cat Catalog, stores StoreLookup, auditLogger audit.Logger, m *metrics.Domain) *Service {
	if m == nil {
		m = metrics.Nop()
	}
	return &Service{
		repo:        repo,
		catalog:     cat,
		stores:      stores,
		auditLogger: auditLogger,
		metrics:     m,
		now:         time.Now,
	}
}

// Use appends post-commit hooks. Hooks run in order.
func (s *Service) Use(hooks ...Hook) {
	s.hooks = append(s.hooks, hooks...)
}

// RegisterInput identifies the product and customer to cover
type RegisterInput struct {
	TenantID   string
	ProductID  string
	CustomerID string
	Start      time.Time
}

// Register creates an active warranty for a product of the tenant. When the
// product already has a warranty, the existing one is returned together
// with ErrDuplicateWarranty.
func (s *Service) Register(ctx context.Context, a actor.Actor, in RegisterInput) (*Warranty, error) {
	if in.TenantID == "" || in.ProductID == "" || in.CustomerID == "" {
		return nil, fmt.Errorf("%w: tenant, product and customer are required", ErrValidation)
	}

	product, err := s.catalog.GetProductInternal(ctx, in.TenantID, in.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: product", ErrNotFound)
		}
		return nil, persistence(err)
	}
	customer, err := s.catalog.GetCustomer(ctx, in.TenantID, in.CustomerID)
	if err != nil {
		if errors.Is(err, catalog.ErrCustomerNotFound) {
			return nil, fmt.Errorf("%w: customer", ErrNotFound)
		}
		return nil, persistence(err)
	}

	if existing, err := s.byProduct(ctx, product.ID); err == nil {
		return existing, ErrDuplicateWarranty
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	start := in.Start
	if start.IsZero() {
		start = s.now()
	}
	months := product.BaseWarrantyMonths
	if months <= 0 {
		months = catalog.DefaultWarrantyMonths
	}

	now := s.now()
	w := &Warranty{
		ID:         id.NewUUIDv7(),
		StoreID:    in.TenantID,
		ProductID:  product.ID,
		CustomerID: customer.ID,
		Start:      start,
		End:        AddMonths(start, months),
		Status:     StatusActive,
		CreatedBy:  a.String(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = store.RetryOnce(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, w)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateWarranty) {
			if existing, getErr := s.byProduct(ctx, product.ID); getErr == nil {
				return existing, ErrDuplicateWarranty
			}
			return nil, ErrDuplicateWarranty
		}
		return nil, persistence(err)
	}

	s.metrics.WarrantyRegistered(ctx)
	created := *w
	s.auditLogger.Log(ctx, audit.Event{
		Actor:    a,
		TenantID: w.StoreID,
		Entity:   audit.EntityWarranty,
		EntityID: w.ID,
		Action:   audit.ActionCreate,
		NewValue: created,
	})
	slog.InfoContext(ctx, "warranty registered",
		logger.TenantID(w.StoreID),
		logger.WarrantyID(w.ID),
		logger.Serial(product.SerialNumber),
		logger.Actor(a.String()),
	)

	s.runHooks(ctx, &Registration{Warranty: w, Product: product, Customer: customer})
	return w, nil
}

// RegisterAs is Register behind the warranties permission
func (s *Service) RegisterAs(ctx context.Context, p *tenant.Principal, in RegisterInput) (*Warranty, error) {
	if err := tenant.Authorize(p, in.TenantID, tenant.PermissionWarranties); err != nil {
		return nil, err
	}
	return s.Register(ctx, p.Actor(), in)
}

// RegisterByExternalIdentity registers the product with the given serial for
// the customer identified by phone or email. The tenant is the product's
// store; when scope is set and differs, the product is reported as not found.
func (s *Service) RegisterByExternalIdentity(ctx context.Context, a actor.Actor, scope, serial string, ident catalog.CustomerIdentity) (*Warranty, error) {
	product, err := s.catalog.ProductBySerialInScope(ctx, scope, serial)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, catalog.ErrProductNotFound)
		}
		return nil, persistence(err)
	}

	customer, _, err := s.catalog.FindOrCreateCustomer(ctx, a, product.StoreID, ident)
	if err != nil {
		if errors.Is(err, catalog.ErrValidation) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, persistence(err)
	}

	return s.Register(ctx, a, RegisterInput{
		TenantID:   product.StoreID,
		ProductID:  product.ID,
		CustomerID: customer.ID,
		Start:      s.now(),
	})
}

// Get retrieves a warranty of tenantID
func (s *Service) Get(ctx context.Context, tenantID, warrantyID string) (*Warranty, error) {
	w, err := s.repo.GetByID(ctx, tenantID, warrantyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence(err)
	}
	return w, nil
}

// GetAs is Get behind the warranties permission
func (s *Service) GetAs(ctx context.Context, p *tenant.Principal, tenantID, warrantyID string) (*Warranty, error) {
	if err := tenant.Authorize(p, tenantID, tenant.PermissionWarranties); err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, warrantyID)
}

// BySerial finds the product with serial (within scope when set) and its
// warranty. A missing product fails with catalog.ErrProductNotFound; a
// product without a warranty returns the product and ErrNotFound.
func (s *Service) BySerial(ctx context.Context, scope, serial string) (*Warranty, *catalog.Product, error) {
	product, err := s.catalog.ProductBySerialInScope(ctx, scope, serial)
	if err != nil {
		return nil, nil, err
	}
	w, err := s.byProduct(ctx, product.ID)
	if err != nil {
		return nil, product, err
	}
	return w, product, nil
}

// MarkClaimed moves an active warranty of tenantID to claimed. A claimed
// warranty is left as is; any other status fails ErrInvalidWarrantyStatus.
func (s *Service) MarkClaimed(ctx context.Context, a actor.Actor, tenantID, warrantyID string) error {
	var swapped bool
	err := store.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		swapped, err = s.repo.CompareAndSetStatus(ctx, warrantyID, StatusActive, StatusClaimed)
		return err
	})
	if err != nil {
		return persistence(err)
	}
	if swapped {
		s.logStatusChange(ctx, a, tenantID, warrantyID, StatusActive, StatusClaimed)
		return nil
	}

	current, err := s.repo.GetByID(ctx, "", warrantyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return persistence(err)
	}
	if current.Status == StatusClaimed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidWarrantyStatus, current.Status)
}

// ExpireDue expires every active warranty whose end has passed
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	var expired []Expiry
	err := store.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		expired, err = s.repo.ExpireDue(ctx, now)
		return err
	})
	if err != nil {
		return 0, persistence(err)
	}
	for _, e := range expired {
		s.logStatusChange(ctx, actor.System(), e.StoreID, e.ID, StatusActive, StatusExpired)
	}
	n := int64(len(expired))
	slog.InfoContext(ctx, "expired due warranties", logger.RowsAffected(n))
	return n, nil
}

func (s *Service) logStatusChange(ctx context.Context, a actor.Actor, tenantID, warrantyID string, from, to Status) {
	s.auditLogger.Log(ctx, audit.Event{
		Actor:    a,
		TenantID: tenantID,
		Entity:   audit.EntityWarranty,
		EntityID: warrantyID,
		Action:   audit.ActionUpdate,
		OldValue: map[string]any{"status": from},
		NewValue: map[string]any{"status": to},
	})
}

func (s *Service) byProduct(ctx context.Context, productID string) (*Warranty, error) {
	w, err := s.repo.GetByProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence(err)
	}
	return w, nil
}

func (s *Service) runHooks(ctx context.Context, reg *Registration) {
	if len(s.hooks) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	st, err := s.stores.GetStore(ctx, reg.Warranty.StoreID)
	if err != nil {
		slog.WarnContext(ctx, "post-commit hooks skipped, store not loaded",
			logger.Error(err), logger.WarrantyID(reg.Warranty.ID))
		return
	}
	reg.Store = st

	for _, h := range s.hooks {
		if err := h.Run(ctx, reg); err != nil {
			slog.WarnContext(ctx, "post-commit hook failed",
				logger.Operation(h.Name),
				logger.Error(err),
				logger.WarrantyID(reg.Warranty.ID),
				logger.TenantID(reg.Warranty.StoreID),
			)
		}
	}
}

// persistence wraps an unexpected storage error
func persistence(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// certificateFilename is the attachment name sent to customers
func certificateFilename(serial string) string {
	return "Warranty-" + strings.ReplaceAll(serial, "/", "-") + ".pdf"
}
