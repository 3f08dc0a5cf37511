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

// Package gateway sends outbound chat messages and records the chat event log.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/opentrusty/warrantyhub/internal/observability/logger"
)

// ErrGateway means the messaging provider could not be reached or refused the message
var ErrGateway = errors.New("messaging gateway failed")

// Messenger sends messages to a phone identity
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendDocument(ctx context.Context, to, url, filename, caption string) error
}

// Direction of a chat event
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Event types
const (
	EventMessageReceived = "message_received"
	EventMessageSent     = "message_sent"
	EventSendFailed      = "message_failed"
)

// Event is one entry of the chat event log
type Event struct {
	ID        string         `json:"id"`
	StoreID   string         `json:"store_id,omitempty"`
	Phone     string         `json:"phone_number"`
	Direction Direction      `json:"message_type"`
	Content   string         `json:"message_content"`
	EventType string         `json:"event_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventLog persists chat events
type EventLog interface {
	Record(ctx context.Context, event *Event) error
}

type storeKey struct{}

// WithStore tags ctx with the store an outbound message is sent for
func WithStore(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, storeKey{}, storeID)
}

// StoreFrom returns the store set by WithStore
func StoreFrom(ctx context.Context) string {
	s, _ := ctx.Value(storeKey{}).(string)
	return s
}

// Discard is the Messenger used when no provider is configured. It logs and drops.
type Discard struct{}

func (Discard) SendText(ctx context.Context, to, body string) error {
	slog.DebugContext(ctx, "messaging disabled, dropping text", logger.Phone(to))
	return nil
}

func (Discard) SendDocument(ctx context.Context, to, url, filename, caption string) error {
	slog.DebugContext(ctx, "messaging disabled, dropping document", logger.Phone(to), logger.String("filename", filename))
	return nil
}
