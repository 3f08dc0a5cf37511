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

// Package warranty implements the warranty lifecycle: registration with its
// post-commit pipeline, claiming and expiry.
package warranty

import (
	"context"
	"errors"
	"math"
	"time"
)

// Domain errors
var (
	ErrNotFound              = errors.New("warranty not found")
	ErrDuplicateWarranty     = errors.New("warranty already registered for this product")
	ErrInvalidWarrantyStatus = errors.New("invalid warranty status for this operation")
	ErrPersistence           = errors.New("warranty storage failed")
	ErrValidation            = errors.New("validation failed")
)

// Status of a warranty
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusClaimed Status = "claimed"
	StatusVoid    Status = "void"
)

// Warranty is the coverage of one product for one customer
type Warranty struct {
	ID             string    `json:"id"`
	StoreID        string    `json:"store_id"`
	ProductID      string    `json:"product_id"`
	CustomerID     string    `json:"customer_id"`
	Start          time.Time `json:"warranty_start"`
	End            time.Time `json:"warranty_end"`
	Status         Status    `json:"status"`
	CodeURL        string    `json:"qr_code_url,omitempty"`
	CertificateURL string    `json:"warranty_pdf_url,omitempty"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DaysRemaining is the number of started days left until End, rounded up.
// ok is false once End has passed.
func (w *Warranty) DaysRemaining(now time.Time) (days int, ok bool) {
	left := w.End.Sub(now)
	if left <= 0 {
		return 0, false
	}
	return int(math.Ceil(left.Hours() / 24)), true
}

// AddMonths adds calendar months to t, clamping the day to the last day of
// the target month: 2024-01-31 + 1 month = 2024-02-29.
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(target.Year(), target.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Expiry identifies one warranty moved to expired by ExpireDue
type Expiry struct {
	ID      string
	StoreID string
}

// Repository defines the interface for warranty persistence
type Repository interface {
	// Create inserts a warranty. Returns ErrDuplicateWarranty when the
	// product already has one.
	Create(ctx context.Context, w *Warranty) error

	// GetByID retrieves a warranty; storeID empty means any store
	GetByID(ctx context.Context, storeID, id string) (*Warranty, error)

	// GetByProduct retrieves the warranty of a product
	GetByProduct(ctx context.Context, productID string) (*Warranty, error)

	// CompareAndSetStatus moves id from one status to another. It reports
	// false when the warranty was not in status from.
	CompareAndSetStatus(ctx context.Context, id string, from, to Status) (bool, error)

	// UpdateArtifacts stores the code and certificate URLs
	UpdateArtifacts(ctx context.Context, id, codeURL, certificateURL string) error

	// ExpireDue moves every active warranty whose end is before now to expired
	ExpireDue(ctx context.Context, now time.Time) ([]Expiry, error)
}
