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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates the outbound KWIC request shape for text and document messages.
// Scope: Unit Test
// Security: Bearer authentication on the provider API
// Expected: POST {base}/messages with the bearer key and the documented JSON body.
// Test Case ID: GW-01
func TestKWICClient_Send(t *testing.T) {
	var (
		mu   sync.Mutex
		got  []map[string]any
		auth []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		got = append(got, body)
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"m1"}`))
	}))
	defer srv.Close()

	c := NewKWICClient(KWICConfig{BaseURL: srv.URL + "/", APIKey: "k-123", PhoneNumber: "+1000"})
	ctx := context.Background()

	require.NoError(t, c.SendText(ctx, "+15550001", "hello"))
	require.NoError(t, c.SendDocument(ctx, "+15550001", "https://cdn/x.pdf", "Warranty-X.pdf", "Your warranty"))

	require.Len(t, got, 2)
	assert.Equal(t, "Bearer k-123", auth[0])
	assert.Equal(t, map[string]any{"from": "+1000", "to": "+15550001", "type": "text", "text": "hello"}, got[0])
	assert.Equal(t, "document", got[1]["type"])
	assert.Equal(t, "https://cdn/x.pdf", got[1]["media_url"])
	assert.Equal(t, "Warranty-X.pdf", got[1]["filename"])
	assert.Equal(t, "Your warranty", got[1]["caption"])
}

func TestKWICClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewKWICClient(KWICConfig{BaseURL: srv.URL})
	err := c.SendText(context.Background(), "+1", "x")
	assert.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "status=429")
}

type memEventLog struct {
	mu     sync.Mutex
	events []*Event
}

func (m *memEventLog) Record(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

type failingMessenger struct{}

func (failingMessenger) SendText(context.Context, string, string) error {
	return ErrGateway
}

func (failingMessenger) SendDocument(context.Context, string, string, string, string) error {
	return errors.New("boom")
}

func TestLogged_RecordsOutgoing(t *testing.T) {
	log := &memEventLog{}
	ctx := WithStore(context.Background(), "store-a")

	require.NoError(t, NewLogged(Discard{}, log).SendText(ctx, "+15550001", "hi"))
	assert.Error(t, NewLogged(failingMessenger{}, log).SendDocument(ctx, "+15550001", "u", "f.pdf", ""))

	require.Len(t, log.events, 2)
	assert.Equal(t, DirectionOutgoing, log.events[0].Direction)
	assert.Equal(t, EventMessageSent, log.events[0].EventType)
	assert.Equal(t, "store-a", log.events[0].StoreID)
	assert.Equal(t, "hi", log.events[0].Content)
	assert.Equal(t, EventSendFailed, log.events[1].EventType)
	assert.Equal(t, "Media message", log.events[1].Content)
}
