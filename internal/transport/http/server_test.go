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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/chat"
	"github.com/opentrusty/warrantyhub/internal/claim"
	"github.com/opentrusty/warrantyhub/internal/gateway"
	"github.com/opentrusty/warrantyhub/internal/identity"
	"github.com/opentrusty/warrantyhub/internal/observability/metrics"
	"github.com/opentrusty/warrantyhub/internal/serial"
	"github.com/opentrusty/warrantyhub/internal/session"
	"github.com/opentrusty/warrantyhub/internal/store/memory"
	"github.com/opentrusty/warrantyhub/internal/tenant"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

const testPassword = "correct-horse-battery"

type sentMessage struct {
	to   string
	body string
}

type recordingMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *recordingMessenger) SendText(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{to: to, body: body})
	return nil
}

func (m *recordingMessenger) SendDocument(_ context.Context, to, url, filename, caption string) error {
	return m.SendText(context.Background(), to, caption)
}

func (m *recordingMessenger) last() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

// persistedAudit writes audit events straight into the store so listings
// observe them without waiting on a background worker
type persistedAudit struct{ db *memory.DB }

func (a persistedAudit) Log(ctx context.Context, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = a.db.InsertAuditRecord(ctx, event)
}

// testServer wires the real services over the in-memory store
type testServer struct {
	db        *memory.DB
	router    http.Handler
	messenger *recordingMessenger
}

func newTestServer(t *testing.T, webhook WebhookConfig) *testServer {
	t.Helper()

	db := memory.New()
	auditLogger := persistedAudit{db: db}
	domain := metrics.Nop()

	tokens := identity.NewTokenService("test-secret-0123456789abcdef", "warrantyhub-test", time.Hour)
	hasher := identity.NewPasswordHasher(identity.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	identityService := identity.NewService(db.Accounts(), hasher, tokens, nil, 5, 15*time.Minute)

	defaultFormat := serial.Format{Prefix: "SN", Suffix: "TH", Strategy: serial.StrategyCounter}
	tenantService := tenant.NewService(db.Stores(), db.Grants(), db.APIKeys(), auditLogger, defaultFormat)
	resolver := tenant.NewResolver(tokens, db.Grants(), db.APIKeys())

	catalogService := catalog.NewService(db.Products(), db.Customers(), tenantService,
		serial.NewGenerator(db.Stores(), domain), auditLogger)
	warrantyService := warranty.NewService(db.Warranties(), catalogService, tenantService, auditLogger, domain)
	claimService := claim.NewService(db.Claims(), warrantyService, auditLogger, domain)

	sessions := session.NewMemoryStore(time.Hour, 0)
	t.Cleanup(sessions.Close)
	messenger := &recordingMessenger{}
	engine := chat.NewEngine(sessions, gateway.NewLogged(messenger, db), db, warrantyService, claimService, catalogService, chat.Options{})

	h := NewHandler(Services{
		Identity:  identityService,
		Resolver:  resolver,
		Tenants:   tenantService,
		Catalog:   catalogService,
		Warranty:  warrantyService,
		Claims:    claimService,
		Chat:      engine,
		AuditLogs: db,
		History:   db,
		Webhook:   webhook,
	})

	return &testServer{
		db:        db,
		router:    NewRouter(h, nil, nil),
		messenger: messenger,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// signUpAndLogin creates an account and returns its id and bearer token
func (s *testServer) signUpAndLogin(t *testing.T, email string) (string, string) {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/auth/signup", SignUpRequest{Email: email, Name: "Owner", Password: testPassword}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	account := decode[identity.Account](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: email, Password: testPassword}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return account.ID, decode[LoginResponse](t, w).Token
}

// storeFixture is a store with an owner session and one API key
type storeFixture struct {
	accountID string
	token     string
	storeID   string
	apiKey    string
}

func (f storeFixture) admin() map[string]string {
	return map[string]string{"Authorization": "Bearer " + f.token, headerStoreID: f.storeID}
}

func (f storeFixture) external() map[string]string {
	return map[string]string{headerAPIKey: f.apiKey}
}

func (s *testServer) newStore(t *testing.T, email, name string) storeFixture {
	t.Helper()

	accountID, token := s.signUpAndLogin(t, email)
	w := s.do(t, http.MethodPost, "/api/v1/stores", SetupStoreRequest{Name: name}, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st := decode[tenant.Store](t, w)

	f := storeFixture{accountID: accountID, token: token, storeID: st.ID}
	w = s.do(t, http.MethodPost, "/api/v1/api-keys", CreateAPIKeyRequest{Name: "pos"}, f.admin())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	f.apiKey = decode[CreateAPIKeyResponse](t, w).Key
	return f
}

func (s *testServer) newProduct(t *testing.T, f storeFixture, model string) catalog.Product {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/products", CreateProductRequest{Brand: "Toa", Model: model, BaseWarrantyMonths: 12}, f.admin())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[catalog.Product](t, w)
}
