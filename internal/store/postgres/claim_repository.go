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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opentrusty/warrantyhub/internal/actor"
	"github.com/opentrusty/warrantyhub/internal/claim"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

// ClaimRepository implements claim.Repository. The timeline is a JSONB array.
type ClaimRepository struct {
	db *DB
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Create locks the warranty row, checks it is active, inserts the claim and
// marks the warranty claimed in one transaction.
func (r *ClaimRepository) Create(ctx context.Context, c *claim.Claim) error {
	timeline, err := json.Marshal(c.Timeline)
	if err != nil {
		return fmt.Errorf("failed to encode timeline: %w", err)
	}

	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `
			SELECT status FROM warranties WHERE id = $1 AND store_id = $2 FOR UPDATE
		`, c.WarrantyID, c.StoreID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: warranty", claim.ErrNotFound)
			}
			return classify(fmt.Errorf("failed to lock warranty: %w", err))
		}
		if warranty.Status(status) != warranty.StatusActive {
			return claim.ErrWarrantyNotActive
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO claims (
				id, store_id, warranty_id, claim_type, status, description,
				timeline, created_by, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			c.ID, c.StoreID, c.WarrantyID, string(c.Type), string(c.Status), c.Description,
			timeline, c.CreatedBy.String(), c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return classify(fmt.Errorf("failed to insert claim: %w", err))
		}

		_, err = tx.Exec(ctx, `
			UPDATE warranties SET status = $2, updated_at = $3 WHERE id = $1
		`, c.WarrantyID, string(warranty.StatusClaimed), c.CreatedAt)
		if err != nil {
			return classify(fmt.Errorf("failed to mark warranty claimed: %w", err))
		}
		return nil
	})
}

const claimColumns = `id, store_id, warranty_id, claim_type, status, description,
	timeline, created_by, created_at, updated_at`

func scanClaim(row pgx.Row) (*claim.Claim, error) {
	var c claim.Claim
	var claimType, status, createdBy string
	var timeline []byte
	err := row.Scan(
		&c.ID, &c.StoreID, &c.WarrantyID, &claimType, &status, &c.Description,
		&timeline, &createdBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Type = claim.Type(claimType)
	c.Status = claim.Status(status)
	if c.CreatedBy, err = actor.Parse(createdBy); err != nil {
		return nil, fmt.Errorf("failed to decode claim creator: %w", err)
	}
	if err := json.Unmarshal(timeline, &c.Timeline); err != nil {
		return nil, fmt.Errorf("failed to decode timeline: %w", err)
	}
	return &c, nil
}

// GetByID retrieves a claim; an empty storeID matches any store
func (r *ClaimRepository) GetByID(ctx context.Context, storeID, id string) (*claim.Claim, error) {
	if !validID(id) || (storeID != "" && !validID(storeID)) {
		return nil, claim.ErrNotFound
	}
	var row pgx.Row
	if storeID == "" {
		row = r.db.pool.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id)
	} else {
		row = r.db.pool.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1 AND store_id = $2`, id, storeID)
	}
	c, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, claim.ErrNotFound
		}
		return nil, classify(fmt.Errorf("failed to get claim: %w", err))
	}
	return c, nil
}

// ListByWarranty lists a warranty's claims, oldest first
func (r *ClaimRepository) ListByWarranty(ctx context.Context, storeID, warrantyID string) ([]*claim.Claim, error) {
	if !validID(storeID) || !validID(warrantyID) {
		return nil, nil
	}
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+claimColumns+`
		FROM claims
		WHERE store_id = $1 AND warranty_id = $2
		ORDER BY created_at
	`, storeID, warrantyID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list claims: %w", err))
	}
	defer rows.Close()

	var claims []*claim.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to list claims: %w", err))
	}
	return claims, nil
}

// Transition sets the status and appends event in one statement, only while
// the status is still from.
func (r *ClaimRepository) Transition(ctx context.Context, storeID, id string, from, to claim.Status, event claim.TimelineEvent) (bool, error) {
	entry, err := json.Marshal([]claim.TimelineEvent{event})
	if err != nil {
		return false, fmt.Errorf("failed to encode timeline event: %w", err)
	}
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE claims
		SET status = $4, timeline = timeline || $5::jsonb, updated_at = $6
		WHERE id = $1 AND store_id = $2 AND status = $3
	`, id, storeID, string(from), string(to), entry, event.Timestamp)
	if err != nil {
		return false, classify(fmt.Errorf("failed to transition claim: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}

// AppendTimeline appends event to the claim's timeline
func (r *ClaimRepository) AppendTimeline(ctx context.Context, storeID, id string, event claim.TimelineEvent) error {
	entry, err := json.Marshal([]claim.TimelineEvent{event})
	if err != nil {
		return fmt.Errorf("failed to encode timeline event: %w", err)
	}
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE claims
		SET timeline = timeline || $3::jsonb, updated_at = $4
		WHERE id = $1 AND store_id = $2
	`, id, storeID, entry, event.Timestamp)
	if err != nil {
		return classify(fmt.Errorf("failed to append timeline event: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return claim.ErrNotFound
	}
	return nil
}
