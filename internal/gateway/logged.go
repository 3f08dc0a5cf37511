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

package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/opentrusty/warrantyhub/internal/id"
	"github.com/opentrusty/warrantyhub/internal/observability/logger"
)

// Logged wraps a Messenger and records every outbound message in the event
// log after the send attempt.
type Logged struct {
	next Messenger
	log  EventLog
}

// NewLogged creates a logging messenger
func NewLogged(next Messenger, log EventLog) *Logged {
	return &Logged{next: next, log: log}
}

func (l *Logged) SendText(ctx context.Context, to, body string) error {
	err := l.next.SendText(ctx, to, body)
	l.record(ctx, to, body, map[string]any{"type": "text"}, err)
	return err
}

func (l *Logged) SendDocument(ctx context.Context, to, url, filename, caption string) error {
	err := l.next.SendDocument(ctx, to, url, filename, caption)
	content := caption
	if content == "" {
		content = "Media message"
	}
	l.record(ctx, to, content, map[string]any{"type": "document", "media_url": url, "filename": filename}, err)
	return err
}

func (l *Logged) record(ctx context.Context, to, content string, meta map[string]any, sendErr error) {
	eventType := EventMessageSent
	if sendErr != nil {
		eventType = EventSendFailed
		meta["error"] = sendErr.Error()
	}
	ev := &Event{
		ID:        id.NewUUIDv7(),
		StoreID:   StoreFrom(ctx),
		Phone:     to,
		Direction: DirectionOutgoing,
		Content:   content,
		EventType: eventType,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}
	if err := l.log.Record(context.WithoutCancel(ctx), ev); err != nil {
		slog.WarnContext(ctx, "failed to record outgoing chat event", logger.Error(err), logger.Phone(to))
	}
}
