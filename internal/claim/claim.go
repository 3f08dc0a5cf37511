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

// Package claim implements the service claim lifecycle and its timeline.
package claim

import (
	"context"
	"errors"
	"time"

	"github.com/opentrusty/warrantyhub/internal/actor"
)

// Domain errors
var (
	ErrNotFound          = errors.New("claim not found")
	ErrWarrantyNotActive = errors.New("warranty is not active")
	ErrInvalidTransition = errors.New("invalid claim status transition")
	ErrPersistence       = errors.New("claim storage failed")
	ErrValidation        = errors.New("validation failed")
)

// Type of service requested
type Type string

const (
	TypeRepair      Type = "repair"
	TypeReplacement Type = "replacement"
	TypeRefund      Type = "refund"
)

// Valid reports whether t is a known claim type
func (t Type) Valid() bool {
	switch t {
	case TypeRepair, TypeReplacement, TypeRefund:
		return true
	}
	return false
}

// Status of a claim
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

// CanTransition reports whether from may move to to. Rejected and
// completed are terminal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Timeline actions
const (
	ActionCreated        = "Claim created"
	ActionCreatedViaChat = "Claim created via WhatsApp"
)

// TimelineEvent is one append-only entry of a claim's history
type TimelineEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	Action    string      `json:"action"`
	Actor     actor.Actor `json:"user_id"`
	Notes     string      `json:"notes,omitempty"`
}

// Claim is a service request against a warranty
type Claim struct {
	ID          string          `json:"id"`
	StoreID     string          `json:"store_id"`
	WarrantyID  string          `json:"warranty_id"`
	Type        Type            `json:"claim_type"`
	Status      Status          `json:"status"`
	Description string          `json:"description"`
	Timeline    []TimelineEvent `json:"timeline"`
	CreatedBy   actor.Actor     `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LatestEvent returns the last timeline entry, if any
func (c *Claim) LatestEvent() (TimelineEvent, bool) {
	if len(c.Timeline) == 0 {
		return TimelineEvent{}, false
	}
	return c.Timeline[len(c.Timeline)-1], true
}

// Repository defines the interface for claim persistence
type Repository interface {
	// Create inserts a claim. It must check, under lock in the same
	// transaction, that the warranty is active and mark it claimed, failing
	// ErrWarrantyNotActive otherwise.
	Create(ctx context.Context, c *Claim) error

	// GetByID retrieves a claim; storeID empty means any store
	GetByID(ctx context.Context, storeID, id string) (*Claim, error)

	// ListByWarranty lists a warranty's claims, oldest first
	ListByWarranty(ctx context.Context, storeID, warrantyID string) ([]*Claim, error)

	// Transition sets status to `to` only if it is still `from`, appending
	// event in the same statement. It reports false when the status moved.
	Transition(ctx context.Context, storeID, id string, from, to Status, event TimelineEvent) (bool, error)

	// AppendTimeline appends event; ErrNotFound when the claim is missing
	AppendTimeline(ctx context.Context, storeID, id string, event TimelineEvent) error
}
