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
	"sync"
	"time"

	"github.com/opentrusty/warrantyhub/internal/observability/logger"
)

// Store persists audit records
type Store interface {
	InsertAuditRecord(ctx context.Context, event Event) error
}

// AsyncLogger hands events to a background worker that writes them to a Store.
// Log never blocks: when the buffer is full the event is only written to slog.
type AsyncLogger struct {
	store   Store
	mirror  Logger
	events  chan Event
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAsyncLogger starts the worker. mirror may be nil.
func NewAsyncLogger(store Store, mirror Logger, buffer int) *AsyncLogger {
	if buffer <= 0 {
		buffer = 256
	}
	l := &AsyncLogger{
		store:   store,
		mirror:  mirror,
		events:  make(chan Event, buffer),
		timeout: 5 * time.Second,
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// Log snapshots the event values and enqueues it
func (l *AsyncLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if l.mirror != nil {
		l.mirror.Log(ctx, event)
	}

	event, err := Snapshot(event)
	if err != nil {
		slog.WarnContext(ctx, "audit value not encodable, record not persisted",
			logger.Component("audit"),
			slog.String("entity", event.Entity),
			slog.String("entity_id", event.EntityID),
			logger.Error(err),
		)
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.events <- event:
	default:
		slog.WarnContext(ctx, "audit buffer full, record not persisted",
			logger.Component("audit"),
			slog.String("entity", event.Entity),
			slog.String("entity_id", event.EntityID),
		)
	}
}

func (l *AsyncLogger) run() {
	defer l.wg.Done()
	for event := range l.events {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		if err := l.store.InsertAuditRecord(ctx, event); err != nil {
			slog.ErrorContext(ctx, "failed to persist audit record",
				logger.Component("audit"),
				slog.String("entity", event.Entity),
				slog.String("entity_id", event.EntityID),
				logger.Error(err),
			)
		}
		cancel()
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end
func (l *AsyncLogger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.events)
	}
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
