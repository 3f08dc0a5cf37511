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

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opentrusty/warrantyhub/internal/actor"
	"github.com/opentrusty/warrantyhub/internal/store"
)

// Record is a persisted audit event as read back for review
type Record struct {
	ID        int64           `json:"id"`
	Actor     actor.Actor     `json:"actor"`
	TenantID  string          `json:"store_id"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entity_id"`
	Action    string          `json:"action"`
	OldValue  json.RawMessage `json:"old_value,omitempty"`
	NewValue  json.RawMessage `json:"new_value,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Query filters the audit trail of one store. Empty filters match everything.
type Query struct {
	TenantID string
	Entity   string
	EntityID string
	store.PageRequest
}

// Reader lists persisted audit records newest first, with the total count
// matching the filters.
type Reader interface {
	ListAuditRecords(ctx context.Context, q Query) ([]Record, int, error)
}

// Page is one page of the audit trail
type Page struct {
	Logs  []Record `json:"logs"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Pages int      `json:"pages"`
}

// List reads one page of a store's audit trail
func List(ctx context.Context, r Reader, q Query) (*Page, error) {
	q.PageRequest = q.PageRequest.Normalize()
	records, total, err := r.ListAuditRecords(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return &Page{Logs: records, Total: total, Page: q.Page, Pages: store.Pages(total, q.Limit)}, nil
}

// EncodeValue renders an old/new value as redacted JSON for storage
func EncodeValue(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(Redact(v))
}

// Snapshot replaces the old and new values of event with their redacted JSON
// so that later changes to the originals do not reach the stored record.
func Snapshot(event Event) (Event, error) {
	for _, v := range []*any{&event.OldValue, &event.NewValue} {
		if *v == nil {
			continue
		}
		if _, ok := (*v).(json.RawMessage); ok {
			continue
		}
		raw, err := EncodeValue(*v)
		if err != nil {
			return event, err
		}
		*v = raw
	}
	return event, nil
}
