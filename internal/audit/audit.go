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
	"log/slog"
	"strings"
	"time"

	"github.com/opentrusty/warrantyhub/internal/actor"
)

// Entities
const (
	EntityStore     = "stores"
	EntityStoreUser = "store_users"
	EntityAPIKey    = "api_keys"
	EntityProduct   = "products"
	EntityCustomer  = "customers"
	EntityWarranty  = "warranties"
	EntityClaim     = "claims"
)

// Actions
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is one create/update/delete on a tenant-scoped entity
type Event struct {
	Actor     actor.Actor
	TenantID  string
	Entity    string
	EntityID  string
	Action    string
	OldValue  any
	NewValue  any
	Timestamp time.Time
}

// Logger defines the interface for audit logging. Implementations must not
// block the caller and must not return errors to it.
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger using slog
type SlogLogger struct{}

// NewSlogLogger creates a new audit logger
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []any{
		slog.String("actor", event.Actor.String()),
		slog.String("tenant_id", event.TenantID),
		slog.String("entity", event.Entity),
		slog.String("entity_id", event.EntityID),
		slog.String("action", event.Action),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.OldValue != nil {
		attrs = append(attrs, slog.Any("old_value", Redact(event.OldValue)))
	}
	if event.NewValue != nil {
		attrs = append(attrs, slog.Any("new_value", Redact(event.NewValue)))
	}

	slog.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
}

// Redact replaces secret-looking keys of a map value. Other values are returned as is.
func Redact(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		if isSecret(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = val
	}
	return out
}

// isSecret checks if a key likely contains a secret
func isSecret(key string) bool {
	k := strings.ToLower(key)
	for _, s := range []string{"password", "secret", "token", "key", "authorization", "hash", "credential"} {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
