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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/opentrusty/warrantyhub/internal/warranty"
)

// WarrantyRepository implements warranty.Repository
type WarrantyRepository struct {
	db *DB
}

// NewWarrantyRepository creates a new warranty repository
func NewWarrantyRepository(db *DB) *WarrantyRepository {
	return &WarrantyRepository{db: db}
}

// Create inserts a warranty; the unique product index rejects a second one
func (r *WarrantyRepository) Create(ctx context.Context, w *warranty.Warranty) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO warranties (
			id, store_id, product_id, customer_id, warranty_start, warranty_end,
			status, qr_code_url, warranty_pdf_url, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		w.ID, w.StoreID, w.ProductID, w.CustomerID, w.Start, w.End,
		string(w.Status), w.CodeURL, w.CertificateURL, w.CreatedBy, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "warranties_product_id_key") {
			return warranty.ErrDuplicateWarranty
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown product or customer", warranty.ErrValidation)
		}
		return classify(fmt.Errorf("failed to insert warranty: %w", err))
	}
	return nil
}

const warrantyColumns = `id, store_id, product_id, customer_id, warranty_start, warranty_end,
	status, qr_code_url, warranty_pdf_url, created_by, created_at, updated_at`

func scanWarranty(row pgx.Row) (*warranty.Warranty, error) {
	var w warranty.Warranty
	var status string
	err := row.Scan(
		&w.ID, &w.StoreID, &w.ProductID, &w.CustomerID, &w.Start, &w.End,
		&status, &w.CodeURL, &w.CertificateURL, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, warranty.ErrNotFound
		}
		return nil, classify(fmt.Errorf("failed to get warranty: %w", err))
	}
	w.Status = warranty.Status(status)
	return &w, nil
}

// GetByID retrieves a warranty; an empty storeID matches any store
func (r *WarrantyRepository) GetByID(ctx context.Context, storeID, id string) (*warranty.Warranty, error) {
	if !validID(id) || (storeID != "" && !validID(storeID)) {
		return nil, warranty.ErrNotFound
	}
	if storeID == "" {
		return scanWarranty(r.db.pool.QueryRow(ctx, `
			SELECT `+warrantyColumns+` FROM warranties WHERE id = $1
		`, id))
	}
	return scanWarranty(r.db.pool.QueryRow(ctx, `
		SELECT `+warrantyColumns+` FROM warranties WHERE id = $1 AND store_id = $2
	`, id, storeID))
}

// GetByProduct retrieves the warranty of a product
func (r *WarrantyRepository) GetByProduct(ctx context.Context, productID string) (*warranty.Warranty, error) {
	if !validID(productID) {
		return nil, warranty.ErrNotFound
	}
	return scanWarranty(r.db.pool.QueryRow(ctx, `
		SELECT `+warrantyColumns+` FROM warranties WHERE product_id = $1
	`, productID))
}

// CompareAndSetStatus updates the status only while it is still from
func (r *WarrantyRepository) CompareAndSetStatus(ctx context.Context, id string, from, to warranty.Status) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE warranties
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return false, classify(fmt.Errorf("failed to update warranty status: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateArtifacts stores the code and certificate URLs
func (r *WarrantyRepository) UpdateArtifacts(ctx context.Context, id, codeURL, certificateURL string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE warranties
		SET qr_code_url = $2, warranty_pdf_url = $3, updated_at = NOW()
		WHERE id = $1
	`, id, codeURL, certificateURL)
	if err != nil {
		return classify(fmt.Errorf("failed to update warranty artifacts: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return warranty.ErrNotFound
	}
	return nil
}

// ExpireDue expires active warranties whose end is before now
func (r *WarrantyRepository) ExpireDue(ctx context.Context, now time.Time) ([]warranty.Expiry, error) {
	rows, err := r.db.pool.Query(ctx, `
		UPDATE warranties
		SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND warranty_end < $1
		RETURNING id, store_id
	`, now)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to expire warranties: %w", err))
	}
	expired, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (warranty.Expiry, error) {
		var e warranty.Expiry
		err := row.Scan(&e.ID, &e.StoreID)
		return e, err
	})
	if err != nil {
		return nil, classify(fmt.Errorf("failed to expire warranties: %w", err))
	}
	return expired, nil
}
