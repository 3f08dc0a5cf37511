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

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opentrusty/warrantyhub/internal/observability/logger"
)

// MemoryStore keeps sessions in process memory. A background sweep removes
// expired entries.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewMemoryStore creates a store and starts its sweeper. A non-positive
// sweepInterval disables the sweeper; Get still hides expired sessions.
func NewMemoryStore(ttl, sweepInterval time.Duration) *MemoryStore {
	m := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if sweepInterval > 0 {
		go m.sweepLoop(sweepInterval)
	} else {
		close(m.done)
	}
	return m
}

func (m *MemoryStore) Get(_ context.Context, phone string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[phone]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.IsExpired(m.now()) {
		delete(m.sessions, phone)
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	if s == nil || s.Phone == "" {
		return ErrSessionInvalid
	}
	now := m.now()
	cp := s.Clone()
	cp.UpdatedAt = now
	cp.ExpiresAt = now.Add(m.ttl)

	m.mu.Lock()
	m.sessions[s.Phone] = cp
	m.mu.Unlock()

	s.UpdatedAt = cp.UpdatedAt
	s.ExpiresAt = cp.ExpiresAt
	return nil
}

func (m *MemoryStore) Evict(_ context.Context, phone string) error {
	m.mu.Lock()
	delete(m.sessions, phone)
	m.mu.Unlock()
	return nil
}

// Sweep removes expired sessions and returns how many were removed
func (m *MemoryStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for phone, s := range m.sessions {
		if s.IsExpired(now) {
			delete(m.sessions, phone)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops the sweeper
func (m *MemoryStore) Close() {
	m.once.Do(func() { close(m.stop) })
	<-m.done
}

func (m *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("swept expired chat sessions", logger.Component("session"), logger.RowsAffected(int64(n)))
			}
		}
	}
}
