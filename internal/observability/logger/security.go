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

package logger

import (
	"context"
	"log/slog"
)

// SecurityEvent is an authentication or access-control outcome worth keeping
// apart from domain audit records.
type SecurityEvent struct {
	EventType string
	AccountID string
	TenantID  string
	IPAddress string
	Action    string
	Resource  string
	Result    string // success, failure, denied
	Reason    string
	Metadata  map[string]any
}

// SecurityLogger writes security events with a fixed component tag
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger creates a security logger; nil uses slog.Default().
func NewSecurityLogger(l *slog.Logger) *SecurityLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SecurityLogger{
		logger: l.With(Component("security")),
	}
}

// Log logs a security event
func (s *SecurityLogger) Log(ctx context.Context, event SecurityEvent) {
	attrs := []slog.Attr{
		slog.String("event_type", event.EventType),
		slog.String("action", event.Action),
		slog.String("result", event.Result),
	}

	if event.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", event.AccountID))
	}
	if event.TenantID != "" {
		attrs = append(attrs, slog.String("tenant_id", event.TenantID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Resource != "" {
		attrs = append(attrs, slog.String("resource", event.Resource))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", event.Metadata))
	}

	level := slog.LevelInfo
	if event.Result != "success" {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx, level, "security_event", attrs...)
}

// Authentication events
func (s *SecurityLogger) LoginSuccess(ctx context.Context, accountID, ipAddr string) {
	s.Log(ctx, SecurityEvent{
		EventType: "authentication",
		AccountID: accountID,
		IPAddress: ipAddr,
		Action:    "login",
		Result:    "success",
	})
}

func (s *SecurityLogger) LoginFailure(ctx context.Context, email, ipAddr, reason string) {
	s.Log(ctx, SecurityEvent{
		EventType: "authentication",
		IPAddress: ipAddr,
		Action:    "login",
		Result:    "failure",
		Reason:    reason,
		Metadata:  map[string]any{"email": email},
	})
}

func (s *SecurityLogger) CredentialRejected(ctx context.Context, kind, ipAddr, reason string) {
	s.Log(ctx, SecurityEvent{
		EventType: "authentication",
		IPAddress: ipAddr,
		Action:    "resolve_" + kind,
		Result:    "failure",
		Reason:    reason,
	})
}

// Access control events
func (s *SecurityLogger) AccessDenied(ctx context.Context, accountID, tenantID, resource, reason, ipAddr string) {
	s.Log(ctx, SecurityEvent{
		EventType: "access_control",
		AccountID: accountID,
		TenantID:  tenantID,
		IPAddress: ipAddr,
		Action:    "access",
		Resource:  resource,
		Result:    "denied",
		Reason:    reason,
	})
}

// Webhook events
func (s *SecurityLogger) WebhookRejected(ctx context.Context, ipAddr, reason string) {
	s.Log(ctx, SecurityEvent{
		EventType: "webhook",
		IPAddress: ipAddr,
		Action:    "verify_signature",
		Result:    "denied",
		Reason:    reason,
	})
}
