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
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/warrantyhub/internal/actor"
	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/claim"
	"github.com/opentrusty/warrantyhub/internal/gateway"
	"github.com/opentrusty/warrantyhub/internal/identity"
	"github.com/opentrusty/warrantyhub/internal/serial"
	"github.com/opentrusty/warrantyhub/internal/store"
	"github.com/opentrusty/warrantyhub/internal/tenant"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

// =============================================================================
// HTTP API TESTS
// Category: Transport - Routing, Authentication & Error Mapping
// Type: Unit Test (UT) over the in-memory store
// =============================================================================

// TestPurpose: Validates that the health endpoint answers with JSON.
// Scope: Unit Test
// Expected: 200 with status healthy and a JSON content type.
// Test Case ID: HTTP-01
func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, WebhookConfig{})

	w := s.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "healthy", decode[map[string]string](t, w)["status"])
}

// TestPurpose: Validates that the OpenAPI document is served.
// Scope: Unit Test
// Expected: 200 with a swagger 2.0 document naming the API.
// Test Case ID: HTTP-02
func TestSwaggerDoc(t *testing.T) {
	s := newTestServer(t, WebhookConfig{})

	w := s.do(t, http.MethodGet, "/swagger/doc.json", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[map[string]any](t, w)
	assert.Equal(t, "2.0", doc["swagger"])
	assert.Contains(t, doc["paths"], "/webhooks/chat")
}

// TestPurpose: Validates sign-up and login input handling.
// Scope: Unit Test
// Security: Credential validation; no account enumeration on login
// Expected: Weak passwords and bad emails are 400, duplicates 409, bad logins 401.
// Test Case ID: AUTH-01
func TestAuth_SignUpAndLogin(t *testing.T) {
	s := newTestServer(t, WebhookConfig{})
	s.signUpAndLogin(t, "owner@example.com")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"weak password", "/api/v1/auth/signup", SignUpRequest{Email: "a@example.com", Password: "short"}, http.StatusBadRequest},
		{"invalid email", "/api/v1/auth/signup", SignUpRequest{Email: "not-an-email", Password: testPassword}, http.StatusBadRequest},
		{"duplicate email", "/api/v1/auth/signup", SignUpRequest{Email: "OWNER@example.com", Password: testPassword}, http.StatusConflict},
		{"malformed json", "/api/v1/auth/signup", []byte(`{"email":`), http.StatusBadRequest},
		{"wrong password", "/api/v1/auth/login", LoginRequest{Email: "owner@example.com", Password: "wrong-password"}, http.StatusUnauthorized},
		{"unknown account", "/api/v1/auth/login", LoginRequest{Email: "nobody@example.com", Password: testPassword}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	t.Run("login failures share one message", func(t *testing.T) {
		wrong := s.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "owner@example.com", Password: "wrong-password"}, nil)
		unknown := s.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "nobody@example.com", Password: testPassword}, nil)
		assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
	})
}

// TestPurpose: Validates credential and tenant enforcement on the admin API.
// Scope: Unit Test
// Security: Session tokens, store grants and API keys are checked before any handler runs
// Expected: 401 without credentials, 400 without a store, 403 for a foreign store.
// Test Case ID: AUTH-02
func TestAuth_Enforcement(t *testing.T) {
	s := newTestServer(t, WebhookConfig{})
	a := s.newStore(t, "a@example.com", "Store A")
	b := s.newStore(t, "b@example.com", "Store B")

	tests := []struct {
		name    string
		method  string
		path    string
		headers map[string]string
		status  int
	}{
		{"no token", http.MethodGet, "/api/v1/auth/me", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/auth/me", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "/api/v1/auth/me", map[string]string{"Authorization": "Basic " + a.token}, http.StatusUnauthorized},
		{"me without store", http.MethodGet, "/api/v1/auth/me", map[string]string{"Authorization": "Bearer " + a.token}, http.StatusOK},
		{"store route without store", http.MethodGet, "/api/v1/stores/current", map[string]string{"Authorization": "Bearer " + a.token}, http.StatusBadRequest},
		{"foreign store", http.MethodGet, "/api/v1/stores/current", map[string]string{"Authorization": "Bearer " + a.token, headerStoreID: b.storeID}, http.StatusForbidden},
		{"malformed store id", http.MethodGet, "/api/v1/stores/current", map[string]string{"Authorization": "Bearer " + a.token, headerStoreID: "not-a-uuid"}, http.StatusForbidden},
		{"own store", http.MethodGet, "/api/v1/stores/current", a.admin(), http.StatusOK},
		{"no api key", http.MethodGet, "/api/external/products/SN-X", nil, http.StatusUnauthorized},
		{"unknown api key", http.MethodGet, "/api/external/products/SN-X", map[string]string{headerAPIKey: "wh_unknown"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, nil, tt.headers)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

// TestPurpose: Validates that staff without a permission cannot use the area it guards.
// Scope: Unit Test
// Security: Per-grant permission sets
// Expected: A staff grant with only claims permission gets 403 on products and 201 on claims.
// Test Case ID: AUTH-03
func TestAuth_StaffPermissions(t *testing.T) {
	s := newTestServer(t, WebhookConfig{})
	owner := s.newStore(t, "owner@example.com", "Store")
	staffID, staffToken := s.signUpAndLogin(t, "staff@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/store-users", GrantStoreUserRequest{
		AccountID:   staffID,
		Role:        tenant.RoleStaff,
		Permissions: []tenant.Permission{tenant.PermissionClaims},
	}, owner.admin())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/store-users", GrantStoreUserRequest{AccountID: staffID, Role: tenant.RoleStaff}, owner.admin())
	assert.Equal(t, http.StatusConflict, w.Code, "second grant for the same account")

	staff := map[string]string{"Authorization": "Bearer " + staffToken, headerStoreID: owner.storeID}

	w = s.do(t, http.MethodPost, "/api/v1/products", CreateProductRequest{Brand: "Toa", Model: "ZA-2000"}, staff)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/api-keys", nil, staff)
	assert.Equal(t, http.StatusForbidden, w.Code)

	product := s.newProduct(t, owner, "ZA-2000")
	wr := registerWarranty(t, s, owner, product)

	w = s.do(t, http.MethodPost, "/api/v1/claims", CreateClaimRequest{WarrantyID: wr.ID, Type: claim.TypeRepair, Description: "no sound"}, staff)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodDelete, "/api/v1/store-users/"+owner.accountID, nil, owner.admin())
	assert.Equal(t, http.StatusBadRequest, w.Code, "owner cannot be removed")

	w = s.do(t, http.MethodDelete, "/api/v1/store-users/"+staffID, nil, owner.admin())
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/stores/current", nil, staff)
	assert.Equal(t, http.StatusForbidden, w.Code, "revoked grant")
}

func registerWarranty(t *testing.T, s *testServer, f storeFixture, p catalog.Product) warranty.Warranty {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/customers", UpsertCustomerRequest{Name: "Somchai", Phone: "+66810000001"}, f.admin())
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, w.Code, w.Body.String())
	customer := decode[catalog.Customer](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/warranties", RegisterWarrantyRequest{ProductID: p.ID, CustomerID: customer.ID}, f.admin())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[warranty.Warranty](t, w)
}

// TestPurpose: Validates the admin product, warranty and claim lifecycle.
// Scope: Unit Test
// Expected: Serial issued from the store format, 409 with the existing warranty on
// duplicates, claim transitions follow the state machine.
// Test Case ID: HTTP-03
func TestAdmin_WarrantyAndClaimLifecycle(t *testing.T) {
	s := newTestServer(t, WebhookConfig{})
	f := s.newStore(t, "owner@example.com", "Store")

	product := s.newProduct(t, f, "ZA-2000")
	assert.Regexp(t, `^SN`, product.SerialNumber)
	assert.Regexp(t, `TH$`, product.SerialNumber)

	w := s.do(t, http.MethodGet, "/api/v1/products/serial/"+product.SerialNumber, nil, f.admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, product.ID, decode[catalog.Product](t, w).ID)

	wr := registerWarranty(t, s, f, product)
	assert.Equal(t, warranty.StatusActive, wr.Status)
	assert.True(t, wr.End.After(wr.Start))

	t.Run("duplicate returns existing warranty", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/warranties", RegisterWarrantyRequest{ProductID: product.ID, CustomerID: wr.CustomerID}, f.admin())
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, wr.ID, decode[DuplicateWarrantyResponse](t, w).Warranty.ID)
	})

	w = s.do(t, http.MethodPost, "/api/v1/claims", CreateClaimRequest{WarrantyID: wr.ID, Type: claim.TypeRepair, Description: "no sound"}, f.admin())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	c := decode[claim.Claim](t, w)
	assert.Equal(t, claim.StatusPending, c.Status)
	require.Len(t, c.Timeline, 1)

	w = s.do(t, http.MethodGet, "/api/v1/warranties/"+wr.ID, nil, f.admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, warranty.StatusClaimed, decode[warranty.Warranty](t, w).Status)

	w = s.do(t, http.MethodPost, "/api/v1/claims", CreateClaimRequest{WarrantyID: wr.ID, Type: claim.TypeRepair, Description: "again"}, f.admin())
	assert.Equal(t, http.StatusBadRequest, w.Code, "claimed warranty is not active")

	steps := []struct {
		status claim.Status
		code   int
	}{
		{claim.StatusCompleted, http.StatusConflict},
		{claim.StatusApproved, http.StatusOK},
		{claim.StatusRejected, http.StatusConflict},
		{claim.StatusCompleted, http.StatusOK},
		{claim.StatusApproved, http.StatusConflict},
	}
	for _, step := range steps {
		w := s.do(t, http.MethodPut, "/api/v1/claims/"+c.ID+"/status", UpdateClaimStatusRequest{Status: step.status, Notes: "checked"}, f.admin())
		assert.Equal(t, step.code, w.Code, "to %s: %s", step.status, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/v1/claims/"+c.ID+"/timeline", AddTimelineEventRequest{Action: "Customer called", Notes: "asked for ETA"}, f.admin())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	final := decode[claim.Claim](t, w)
	assert.Equal(t, claim.StatusCompleted, final.Status)
	require.Len(t, final.Timeline, 4)
	assert.Equal(t, "Status changed to approved", final.Timeline[1].Action)
	assert.Equal(t, "Customer called", final.Timeline[3].Action)

	w = s.do(t, http.MethodGet, "/api/v1/claims/not-a-uuid", nil, f.admin())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestPurpose: Validates that an API key only sees its own store.
// Scope: Unit Test
// Security: Tenant isolation for external integrations
// Expected: Every lookup or write against another store's serial is 404.
// Test Case ID: ISO-02
func TestExternal_CrossTenantIsolation(t *testing.T) {
	s := newTestServer(t, WebhookConfig{})
	a := s.newStore(t, "a@example.com", "Store A")
	b := s.newStore(t, "b@example.com", "Store B")
	productB := s.newProduct(t, b, "ZA-2000")
	registerWarranty(t, s, b, productB)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"product lookup", http.MethodGet, "/api/external/products/" + productB.SerialNumber, nil},
		{"warranty lookup", http.MethodGet, "/api/external/warranties/" + productB.SerialNumber, nil},
		{"claims lookup", http.MethodGet, "/api/external/claims/" + productB.SerialNumber, nil},
		{"register", http.MethodPost, "/api/external/warranties", ExternalRegisterRequest{SerialNumber: productB.SerialNumber, CustomerPhone: "+66810000009"}},
		{"claim", http.MethodPost, "/api/external/claims", ExternalClaimRequest{SerialNumber: productB.SerialNumber, Type: claim.TypeRepair, Description: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body, a.external())
			assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
		})
	}

	w := s.do(t, http.MethodGet, "/api/external/products/"+productB.SerialNumber, nil, b.external())
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestPurpose: Validates registration and claims through the external API.
// Scope: Unit Test
// Expected: 201 on first registration, 409 with the same warranty on repeat, 400 for
// a second claim once the warranty is claimed, 401 after the key is disabled.
// Test Case ID: HTTP-04
func TestExternal_RegisterAndClaim(t *testing.T) {
	s := newTestServer(t, WebhookConfig{})
	f := s.newStore(t, "owner@example.com", "Store")
	product := s.newProduct(t, f, "ZA-2000")

	reg := ExternalRegisterRequest{SerialNumber: product.SerialNumber, CustomerName: "Somchai", CustomerPhone: "+66810000001"}

	w := s.do(t, http.MethodPost, "/api/external/warranties", ExternalRegisterRequest{SerialNumber: product.SerialNumber}, f.external())
	assert.Equal(t, http.StatusBadRequest, w.Code, "phone or email is required")

	w = s.do(t, http.MethodPost, "/api/external/warranties", reg, f.external())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[warranty.Warranty](t, w)

	w = s.do(t, http.MethodPost, "/api/external/warranties", reg, f.external())
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, first.ID, decode[DuplicateWarrantyResponse](t, w).Warranty.ID)

	w = s.do(t, http.MethodPost, "/api/external/warranties", ExternalRegisterRequest{SerialNumber: "SN-NOPE-000000TH", CustomerPhone: "+66810000001"}, f.external())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/external/warranties/"+product.SerialNumber, nil, f.external())
	require.Equal(t, http.StatusOK, w.Code)
	lookup := decode[WarrantyLookupResponse](t, w)
	assert.Equal(t, first.ID, lookup.Warranty.ID)
	assert.Equal(t, product.ID, lookup.Product.ID)

	w = s.do(t, http.MethodPost, "/api/external/claims", ExternalClaimRequest{SerialNumber: product.SerialNumber, Type: "upgrade", Description: "x"}, f.external())
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown claim type")

	w = s.do(t, http.MethodPost, "/api/external/claims", ExternalClaimRequest{SerialNumber: product.SerialNumber, Type: claim.TypeReplacement, Description: "cracked"}, f.external())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/external/claims", ExternalClaimRequest{SerialNumber: product.SerialNumber, Type: claim.TypeRepair, Description: "again"}, f.external())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/external/claims/"+product.SerialNumber, nil, f.external())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]claim.Claim](t, w), 1)

	keys := s.do(t, http.MethodGet, "/api/v1/api-keys", nil, f.admin())
	require.Equal(t, http.StatusOK, keys.Code)
	list := decode[[]tenant.APIKey](t, keys)
	require.Len(t, list, 1)

	w = s.do(t, http.MethodPut, "/api/v1/api-keys/"+list[0].ID+"/status", SetAPIKeyStatusRequest{Status: tenant.APIKeyDisabled}, f.admin())
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/external/products/"+product.SerialNumber, nil, f.external())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func chatPayload(from, text string) map[string]any {
	return map[string]any{
		"from": from,
		"message": map[string]any{
			"type": "text",
			"text": map[string]any{"body": text},
		},
	}
}

// TestPurpose: Validates the claim conversation end to end through the webhook.
// Scope: Unit Test
// Expected: Greeting, option 3, serial and description create exactly one repair
// claim; every message is acknowledged with success and logged.
// Test Case ID: CHT-08
func TestWebhook_ChatClaimFlow(t *testing.T) {
	s := newTestServer(t, WebhookConfig{})
	f := s.newStore(t, "owner@example.com", "Store")
	product := s.newProduct(t, f, "ZA-2000")
	wr := registerWarranty(t, s, f, product)

	const phone = "+66810000001"
	for _, text := range []string{"hi", "3", product.SerialNumber, "Screen flickers"} {
		w := s.do(t, http.MethodPost, "/webhooks/chat", chatPayload(phone, text), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	}

	assert.Equal(t, phone, s.messenger.last().to)
	assert.Contains(t, s.messenger.last().body, "Claim created")

	claims, err := s.db.Claims().ListByWarranty(context.Background(), f.storeID, wr.ID)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, claim.TypeRepair, claims[0].Type)
	assert.Equal(t, "Screen flickers", claims[0].Description)
	assert.Equal(t, claim.ActionCreatedViaChat, claims[0].Timeline[0].Action)

	incoming := 0
	for _, ev := range s.db.Events() {
		if ev.Direction == "incoming" {
			incoming++
		}
	}
	assert.Equal(t, 4, incoming)
}

// TestPurpose: Validates the store-scoped audit trail and chat history listings.
// Scope: Unit Test
// Security: Tenant isolation of review data
// Expected: Registration and chat claim creation appear in the audit trail with typed actors;
// replies attributed to the store appear in chat history; another store sees neither.
// Test Case ID: HIS-01
func TestHistoryListings(t *testing.T) {
	s := newTestServer(t, WebhookConfig{})
	f := s.newStore(t, "owner@example.com", "Store")
	other := s.newStore(t, "other@example.com", "Other")
	product := s.newProduct(t, f, "ZA-2000")
	wr := registerWarranty(t, s, f, product)

	const phone = "+66810000001"
	for _, text := range []string{"hi", "3", product.SerialNumber, "Screen flickers"} {
		w := s.do(t, http.MethodPost, "/webhooks/chat", chatPayload(phone, text), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodGet, "/api/v1/audit-logs?entity=warranties&entity_id="+wr.ID, nil, f.admin())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	logs := decode[audit.Page](t, w)
	require.Equal(t, 2, logs.Total)
	require.Len(t, logs.Logs, 2)
	assert.Equal(t, audit.ActionUpdate, logs.Logs[0].Action)
	assert.Equal(t, actor.KindChatIdentity, logs.Logs[0].Actor.Kind())
	assert.JSONEq(t, `{"status":"claimed"}`, string(logs.Logs[0].NewValue))
	assert.Equal(t, audit.ActionCreate, logs.Logs[1].Action)
	assert.Equal(t, actor.KindAccount, logs.Logs[1].Actor.Kind())
	assert.Equal(t, f.accountID, logs.Logs[1].Actor.Ref())

	w = s.do(t, http.MethodGet, "/api/v1/audit-logs?entity=claims&limit=1", nil, f.admin())
	require.Equal(t, http.StatusOK, w.Code)
	logs = decode[audit.Page](t, w)
	require.Len(t, logs.Logs, 1)
	assert.Equal(t, actor.KindChatIdentity, logs.Logs[0].Actor.Kind())
	assert.Equal(t, 1, logs.Page)

	w = s.do(t, http.MethodGet, "/api/v1/chat-events?phone="+url.QueryEscape(phone), nil, f.admin())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	history := decode[gateway.EventPage](t, w)
	assert.Equal(t, 2, history.Total)
	for _, ev := range history.Events {
		assert.Equal(t, f.storeID, ev.StoreID)
		assert.Equal(t, gateway.DirectionOutgoing, ev.Direction)
	}

	w = s.do(t, http.MethodGet, "/api/v1/audit-logs?entity=warranties", nil, other.admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[audit.Page](t, w).Total)
	w = s.do(t, http.MethodGet, "/api/v1/chat-events", nil, other.admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[gateway.EventPage](t, w).Total)
}

// TestPurpose: Validates webhook payload and signature checks.
// Scope: Unit Test
// Security: HMAC-SHA256 over the raw body when a secret is configured
// Expected: Bad or missing signatures are 401, a valid one is 200, bad payloads are 400.
// Test Case ID: SEC-01
func TestWebhook_Signature(t *testing.T) {
	const secret = "webhook-secret"
	s := newTestServer(t, WebhookConfig{Secret: secret})

	body, err := json.Marshal(chatPayload("+66810000001", "hi"))
	require.NoError(t, err)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	tests := []struct {
		name      string
		body      []byte
		signature string
		status    int
	}{
		{"valid signature", body, valid, http.StatusOK},
		{"missing signature", body, "", http.StatusUnauthorized},
		{"wrong signature", body, "sha256=" + hex.EncodeToString([]byte("forged")), http.StatusUnauthorized},
		{"not hex", body, "sha256=zz", http.StatusUnauthorized},
		{"tampered body", []byte(`{"from":"+66810000002","message":{"type":"text"}}`), valid, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.signature != "" {
				headers[headerSignature] = tt.signature
			}
			w := s.do(t, http.MethodPost, "/webhooks/chat", tt.body, headers)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	t.Run("payload errors without secret", func(t *testing.T) {
		open := newTestServer(t, WebhookConfig{})
		w := open.do(t, http.MethodPost, "/webhooks/chat", []byte(`{"from":`), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = open.do(t, http.MethodPost, "/webhooks/chat", chatPayload("", "hi"), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "sender is required")
	})
}

// TestPurpose: Validates the webhook subscription handshake.
// Scope: Unit Test
// Security: Verify token must match
// Expected: The challenge is echoed only for mode=subscribe and the configured token.
// Test Case ID: SEC-02
func TestWebhook_Verify(t *testing.T) {
	s := newTestServer(t, WebhookConfig{VerifyToken: "verify-me"})

	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"valid", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=12345", http.StatusForbidden, ""},
		{"missing", "", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/webhooks/chat?"+tt.query, nil, nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

// TestPurpose: Validates the mapping of domain errors to HTTP statuses.
// Scope: Unit Test
// Security: Internal errors never reach the client verbatim
// Expected: Each sentinel maps to its status, wrapped or not; unknown errors are a generic 500.
// Test Case ID: ERR-01
func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{tenant.ErrUnauthenticated, http.StatusUnauthorized},
		{identity.ErrAccountLocked, http.StatusUnauthorized},
		{tenant.ErrUnauthorized, http.StatusForbidden},
		{fmt.Errorf("%w: %w", warranty.ErrNotFound, catalog.ErrProductNotFound), http.StatusNotFound},
		{claim.ErrNotFound, http.StatusNotFound},
		{warranty.ErrDuplicateWarranty, http.StatusConflict},
		{fmt.Errorf("failed to issue serial number: %w", serial.ErrSerialConflict), http.StatusConflict},
		{claim.ErrInvalidTransition, http.StatusConflict},
		{fmt.Errorf("failed to issue serial number: %w", serial.ErrSerialExhausted), http.StatusServiceUnavailable},
		{fmt.Errorf("claim storage failed: %w", store.ErrTransient), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("%w: brand and model are required", catalog.ErrValidation), http.StatusBadRequest},
		{claim.ErrWarrantyNotActive, http.StatusBadRequest},
		{fmt.Errorf("%w: connection reset by 10.0.0.5", claim.ErrPersistence), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, message := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			if status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", message)
			}
		})
	}

	t.Run("writeError hides internals", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		writeError(w, r, fmt.Errorf("%w: password=hunter2", claim.ErrPersistence))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "hunter2")
	})
}

// TestPurpose: Validates per-address and per-store rate limiting.
// Scope: Unit Test
// Security: Client-controlled headers cannot mint fresh buckets
// Expected: Rotating X-Forwarded-For or X-API-Key from one address is still limited with 429 and Retry-After; verified stores get independent budgets.
// Test Case ID: HTTP-05
func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	defer rl.Close()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	byAddress := RateLimitMiddleware(rl)(ok)

	call := func(h http.Handler, remote, xff, apiKey string, p *tenant.Principal) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", xff)
		if apiKey != "" {
			req.Header.Set(headerAPIKey, apiKey)
		}
		if p != nil {
			req = req.WithContext(withPrincipal(req.Context(), p))
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, call(byAddress, "10.0.0.1:4000", "1.1.1.1", "wh_a", nil).Code)
	assert.Equal(t, http.StatusOK, call(byAddress, "10.0.0.1:4001", "2.2.2.2", "wh_b", nil).Code)
	limited := call(byAddress, "10.0.0.1:4002", "3.3.3.3", "wh_c", nil)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1000", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, call(byAddress, "10.0.0.2:4000", "", "", nil).Code)

	byStore := StoreRateLimitMiddleware(rl)(ok)
	storeA := &tenant.Principal{TenantID: "store-a", Credential: tenant.CredentialAPIKey}
	storeB := &tenant.Principal{TenantID: "store-b", Credential: tenant.CredentialAPIKey}
	assert.Equal(t, http.StatusOK, call(byStore, "10.0.0.9:1", "", "", storeA).Code)
	assert.Equal(t, http.StatusOK, call(byStore, "10.0.0.9:1", "", "", storeA).Code)
	assert.Equal(t, http.StatusTooManyRequests, call(byStore, "10.0.0.9:1", "", "", storeA).Code)
	assert.Equal(t, http.StatusOK, call(byStore, "10.0.0.9:1", "", "", storeB).Code)
	assert.Equal(t, http.StatusTooManyRequests, call(byStore, "10.0.0.1:1", "", "", nil).Code)
}

func TestNewRouter_TrustProxy(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		second     int
	}{
		{"headers ignored", false, http.StatusTooManyRequests},
		{"headers trusted", true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(0.001, 1)
			defer rl.Close()
			router := NewRouter(NewHandler(Services{TrustProxy: tt.trustProxy}), rl, nil)

			get := func(xff string) int {
				req := httptest.NewRequest(http.MethodGet, "/health", nil)
				req.RemoteAddr = "10.0.0.1:4000"
				req.Header.Set("X-Forwarded-For", xff)
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)
				return w.Code
			}
			require.Equal(t, http.StatusOK, get("203.0.113.1"))
			assert.Equal(t, tt.second, get("203.0.113.2"))
		})
	}
}

// TestPurpose: Validates that idle clients are evicted from the limiter.
// Scope: Unit Test
// Expected: Only clients seen within the idle window survive a sweep.
// Test Case ID: HTTP-06
func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Close()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }
	rl.Allow("ip:old")
	rl.now = func() time.Time { return base.Add(rl.idleTTL) }
	rl.Allow("ip:fresh")
	rl.now = func() time.Time { return base.Add(rl.idleTTL + time.Second) }

	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "ip:old")
	assert.Contains(t, rl.clients, "ip:fresh")
}
