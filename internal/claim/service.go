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

package claim

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
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

// Warranties is the part of the warranty engine claims depend on
type Warranties interface {
	Get(ctx context.Context, tenantID, warrantyID string) (*warranty.Warranty, error)
	BySerial(ctx context.Context, scope, serial string) (*warranty.Warranty, *catalog.Product, error)
	MarkClaimed(ctx context.Context, a actor.Actor, tenantID, warrantyID string) error
}

// Service implements the claim lifecycle
type Service struct {
	repo        Repository
	warranties  Warranties
	auditLogger audit.Logger
	metrics     *metrics.Domain
	now         func() time.Time
}

// NewService creates a new claim service
func NewService(repo Repository, warranties Warranties, auditLogger audit.Logger, m *metrics.Domain) *Service {
	if m == nil {
		m = metrics.Nop()
	}
	return &Service{
		repo:        repo,
		warranties:  warranties,
		auditLogger: auditLogger,
		metrics:     m,
		now:         time.Now,
	}
}

// CreateInput describes a new claim. Action overrides the first timeline
// entry ("Claim created" by default).
type CreateInput struct {
	TenantID    string
	WarrantyID  string
	Type        Type
	Description string
	Action      string
}

// Create opens a pending claim on an active warranty and marks the warranty
// claimed.
func (s *Service) Create(ctx context.Context, a actor.Actor, in CreateInput) (*Claim, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown claim type %q", ErrValidation, in.Type)
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}

	w, err := s.warranties.Get(ctx, in.TenantID, in.WarrantyID)
	if err != nil {
		if errors.Is(err, warranty.ErrNotFound) {
			return nil, fmt.Errorf("%w: warranty", ErrNotFound)
		}
		return nil, persistence(err)
	}
	if w.Status != warranty.StatusActive {
		return nil, fmt.Errorf("%w: status is %s", ErrWarrantyNotActive, w.Status)
	}

	action := in.Action
	if action == "" {
		action = ActionCreated
	}
	now := s.now()
	c := &Claim{
		ID:          id.NewUUIDv7(),
		StoreID:     w.StoreID,
		WarrantyID:  w.ID,
		Type:        in.Type,
		Status:      StatusPending,
		Description: in.Description,
		Timeline:    []TimelineEvent{{Timestamp: now, Action: action, Actor: a}},
		CreatedBy:   a,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = store.RetryOnce(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, c)
	})
	if err != nil {
		if errors.Is(err, ErrWarrantyNotActive) {
			return nil, ErrWarrantyNotActive
		}
		return nil, persistence(err)
	}

	if err := s.warranties.MarkClaimed(ctx, a, w.StoreID, w.ID); err != nil {
		slog.WarnContext(ctx, "failed to mark warranty claimed",
			logger.Error(err), logger.WarrantyID(w.ID), logger.ClaimID(c.ID))
	}

	s.metrics.ClaimCreated(ctx, string(c.Type))
	s.auditLogger.Log(ctx, audit.Event{
		Actor:    a,
		TenantID: c.StoreID,
		Entity:   audit.EntityClaim,
		EntityID: c.ID,
		Action:   audit.ActionCreate,
		NewValue: c,
	})
	slog.InfoContext(ctx, "claim created",
		logger.TenantID(c.StoreID), logger.ClaimID(c.ID), logger.WarrantyID(w.ID), logger.Actor(a.String()))
	return c, nil
}

// CreateAs is Create behind the claims permission
func (s *Service) CreateAs(ctx context.Context, p *tenant.Principal, in CreateInput) (*Claim, error) {
	if err := tenant.Authorize(p, in.TenantID, tenant.PermissionClaims); err != nil {
		return nil, err
	}
	return s.Create(ctx, p.Actor(), in)
}

// CreateBySerial opens a claim on the warranty of the product with serial,
// within scope when set.
func (s *Service) CreateBySerial(ctx context.Context, a actor.Actor, scope, serial string, t Type, description string) (*Claim, error) {
	w, _, err := s.warranties.BySerial(ctx, scope, serial)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) || errors.Is(err, warranty.ErrNotFound) {
			return nil, fmt.Errorf("%w: no warranty for serial", ErrNotFound)
		}
		return nil, persistence(err)
	}
	return s.Create(ctx, a, CreateInput{
		TenantID:    w.StoreID,
		WarrantyID:  w.ID,
		Type:        t,
		Description: description,
	})
}

// Transition moves a claim to target and appends "Status changed to
// <target>" with notes.
func (s *Service) Transition(ctx context.Context, a actor.Actor, tenantID, claimID string, target Status, notes string) (*Claim, error) {
	c, err := s.Get(ctx, tenantID, claimID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(c.Status, target) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, c.Status, target)
	}

	event := TimelineEvent{
		Timestamp: s.now(),
		Action:    "Status changed to " + string(target),
		Actor:     a,
		Notes:     strings.TrimSpace(notes),
	}
	var applied bool
	err = store.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		applied, err = s.repo.Transition(ctx, tenantID, claimID, c.Status, target, event)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
	}

	old := c.Status
	c.Status = target
	c.Timeline = append(c.Timeline, event)
	c.UpdatedAt = event.Timestamp

	s.metrics.ClaimTransitioned(ctx, string(target))
	s.auditLogger.Log(ctx, audit.Event{
		Actor:    a,
		TenantID: tenantID,
		Entity:   audit.EntityClaim,
		EntityID: claimID,
		Action:   audit.ActionUpdate,
		OldValue: map[string]any{"status": old},
		NewValue: map[string]any{"status": target, "notes": event.Notes},
	})
	return c, nil
}

// TransitionAs is Transition behind the claims permission
func (s *Service) TransitionAs(ctx context.Context, p *tenant.Principal, tenantID, claimID string, target Status, notes string) (*Claim, error) {
	if err := tenant.Authorize(p, tenantID, tenant.PermissionClaims); err != nil {
		return nil, err
	}
	return s.Transition(ctx, p.Actor(), tenantID, claimID, target, notes)
}

// AddTimelineEvent appends a free-form entry
func (s *Service) AddTimelineEvent(ctx context.Context, a actor.Actor, tenantID, claimID, action, notes string) (*Claim, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, fmt.Errorf("%w: action is required", ErrValidation)
	}
	event := TimelineEvent{Timestamp: s.now(), Action: action, Actor: a, Notes: strings.TrimSpace(notes)}

	err := store.RetryOnce(ctx, func(ctx context.Context) error {
		return s.repo.AppendTimeline(ctx, tenantID, claimID, event)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence(err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Actor:    a,
		TenantID: tenantID,
		Entity:   audit.EntityClaim,
		EntityID: claimID,
		Action:   audit.ActionUpdate,
		NewValue: map[string]any{"timeline": event},
	})
	return s.Get(ctx, tenantID, claimID)
}

// AddTimelineEventAs is AddTimelineEvent behind the claims permission
func (s *Service) AddTimelineEventAs(ctx context.Context, p *tenant.Principal, tenantID, claimID, action, notes string) (*Claim, error) {
	if err := tenant.Authorize(p, tenantID, tenant.PermissionClaims); err != nil {
		return nil, err
	}
	return s.AddTimelineEvent(ctx, p.Actor(), tenantID, claimID, action, notes)
}

// Get retrieves a claim of tenantID. An empty tenantID looks the claim up
// in every store; only callers without a tenant (the chat channel) use it.
func (s *Service) Get(ctx context.Context, tenantID, claimID string) (*Claim, error) {
	c, err := s.repo.GetByID(ctx, tenantID, claimID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence(err)
	}
	return c, nil
}

// GetAs is Get behind the claims permission
func (s *Service) GetAs(ctx context.Context, p *tenant.Principal, tenantID, claimID string) (*Claim, error) {
	if err := tenant.Authorize(p, tenantID, tenant.PermissionClaims); err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, claimID)
}

// BySerial lists the claims on the warranty of the product with serial
func (s *Service) BySerial(ctx context.Context, scope, serial string) ([]*Claim, error) {
	w, _, err := s.warranties.BySerial(ctx, scope, serial)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) || errors.Is(err, warranty.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence(err)
	}
	claims, err := s.repo.ListByWarranty(ctx, w.StoreID, w.ID)
	if err != nil {
		return nil, persistence(err)
	}
	return claims, nil
}

func persistence(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
