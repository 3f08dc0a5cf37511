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

// Package session stores conversational chat sessions keyed by phone.
package session

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionInvalid  = errors.New("session invalid")
)

// Session is the chat state of one phone identity
type Session struct {
	Phone     string            `json:"phone"`
	State     string            `json:"state"`
	Data      map[string]string `json:"data,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// IsExpired checks if the session has expired at now
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Clone returns a deep copy
func (s *Session) Clone() *Session {
	cp := *s
	if s.Data != nil {
		cp.Data = make(map[string]string, len(s.Data))
		for k, v := range s.Data {
			cp.Data[k] = v
		}
	}
	return &cp
}

// Store defines the interface for chat session persistence. Put refreshes
// the expiry.
type Store interface {
	// Get returns ErrSessionNotFound when there is no live session
	Get(ctx context.Context, phone string) (*Session, error)

	// Put stores the session and extends its expiry by the store's TTL
	Put(ctx context.Context, s *Session) error

	// Evict deletes the session
	Evict(ctx context.Context, phone string) error
}
