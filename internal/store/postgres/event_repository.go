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
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opentrusty/warrantyhub/internal/actor"
	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/opentrusty/warrantyhub/internal/gateway"
)

// ChatEventRepository implements gateway.EventLog
type ChatEventRepository struct {
	db *DB
}

// NewChatEventRepository creates a new chat event repository
func NewChatEventRepository(db *DB) *ChatEventRepository {
	return &ChatEventRepository{db: db}
}

// Record inserts a chat event
func (r *ChatEventRepository) Record(ctx context.Context, ev *gateway.Event) error {
	var storeID *string
	if validID(ev.StoreID) {
		storeID = &ev.StoreID
	}
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO chat_events (
			id, store_id, phone_number, message_type, message_content, event_type, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ev.ID, storeID, ev.Phone, string(ev.Direction), ev.Content, ev.EventType, ev.Metadata, ev.CreatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to insert chat event: %w", err))
	}
	return nil
}

// ListEvents returns a store's chat events newest first
func (r *ChatEventRepository) ListEvents(ctx context.Context, q gateway.EventQuery) ([]*gateway.Event, int, error) {
	if !validID(q.StoreID) {
		return nil, 0, nil
	}
	q.PageRequest = q.PageRequest.Normalize()

	var total int64
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_events
		WHERE store_id = $1 AND ($2::text = '' OR phone_number = $2)
	`, q.StoreID, q.Phone).Scan(&total)
	if err != nil {
		return nil, 0, classify(fmt.Errorf("failed to count chat events: %w", err))
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT id::text, store_id::text, phone_number, message_type, message_content, event_type, metadata, created_at
		FROM chat_events
		WHERE store_id = $1 AND ($2::text = '' OR phone_number = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, q.StoreID, q.Phone, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, classify(fmt.Errorf("failed to list chat events: %w", err))
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*gateway.Event, error) {
		var ev gateway.Event
		var direction string
		if err := row.Scan(&ev.ID, &ev.StoreID, &ev.Phone, &direction, &ev.Content, &ev.EventType, &ev.Metadata, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Direction = gateway.Direction(direction)
		return &ev, nil
	})
	if err != nil {
		return nil, 0, classify(fmt.Errorf("failed to scan chat events: %w", err))
	}
	return events, int(total), nil
}

// AuditRepository implements audit.Store
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// InsertAuditRecord persists one audit event. Values are stored as JSONB
// after secret redaction.
func (r *AuditRepository) InsertAuditRecord(ctx context.Context, event audit.Event) error {
	var tenantID *string
	if validID(event.TenantID) {
		tenantID = &event.TenantID
	}
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor, tenant_id, entity, entity_id, action, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		event.Actor.String(), tenantID, event.Entity, event.EntityID, event.Action,
		audit.Redact(event.OldValue), audit.Redact(event.NewValue), event.Timestamp,
	)
	if err != nil {
		return classify(fmt.Errorf("failed to insert audit record: %w", err))
	}
	return nil
}

// ListAuditRecords returns a store's audit trail newest first
func (r *AuditRepository) ListAuditRecords(ctx context.Context, q audit.Query) ([]audit.Record, int, error) {
	if !validID(q.TenantID) {
		return nil, 0, nil
	}
	q.PageRequest = q.PageRequest.Normalize()

	var total int64
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_logs
		WHERE tenant_id = $1
		  AND ($2::text = '' OR entity = $2)
		  AND ($3::text = '' OR entity_id = $3)
	`, q.TenantID, q.Entity, q.EntityID).Scan(&total)
	if err != nil {
		return nil, 0, classify(fmt.Errorf("failed to count audit records: %w", err))
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT id, actor, tenant_id::text, entity, entity_id, action, old_value, new_value, created_at
		FROM audit_logs
		WHERE tenant_id = $1
		  AND ($2::text = '' OR entity = $2)
		  AND ($3::text = '' OR entity_id = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5
	`, q.TenantID, q.Entity, q.EntityID, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, classify(fmt.Errorf("failed to list audit records: %w", err))
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Record, error) {
		var rec audit.Record
		var who string
		var oldValue, newValue []byte
		if err := row.Scan(&rec.ID, &who, &rec.TenantID, &rec.Entity, &rec.EntityID, &rec.Action, &oldValue, &newValue, &rec.CreatedAt); err != nil {
			return rec, err
		}
		a, err := actor.Parse(who)
		if err != nil {
			return rec, err
		}
		rec.Actor = a
		rec.OldValue = oldValue
		rec.NewValue = newValue
		return rec, nil
	})
	if err != nil {
		return nil, 0, classify(fmt.Errorf("failed to scan audit records: %w", err))
	}
	return records, int(total), nil
}

var (
	_ gateway.EventLog    = (*ChatEventRepository)(nil)
	_ gateway.EventReader = (*ChatEventRepository)(nil)
	_ audit.Store         = (*AuditRepository)(nil)
	_ audit.Reader        = (*AuditRepository)(nil)
)
