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
	"net/http"
	"strconv"

	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/opentrusty/warrantyhub/internal/gateway"
	"github.com/opentrusty/warrantyhub/internal/store"
	"github.com/opentrusty/warrantyhub/internal/tenant"
)

// ListAuditLogs returns the current store's audit trail, newest first
// @Summary List audit logs
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param entity query string false "Entity (warranties, claims, ...)"
// @Param entity_id query string false "Entity ID"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} audit.Page
// @Failure 403 {object} map[string]string
// @Router /api/v1/audit-logs [get]
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if err := tenant.Authorize(p, p.TenantID, tenant.PermissionAuditLogs); err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	page, err := audit.List(r.Context(), h.auditLogs, audit.Query{
		TenantID:    p.TenantID,
		Entity:      q.Get("entity"),
		EntityID:    q.Get("entity_id"),
		PageRequest: pageRequest(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// ListChatEvents returns the chat messages attributed to the current store
// @Summary List chat history
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param phone query string false "Customer phone"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} gateway.EventPage
// @Failure 403 {object} map[string]string
// @Router /api/v1/chat-events [get]
func (h *Handler) ListChatEvents(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if err := tenant.Authorize(p, p.TenantID, tenant.PermissionChatHistory); err != nil {
		writeError(w, r, err)
		return
	}
	page, err := gateway.ListEvents(r.Context(), h.chatHistory, gateway.EventQuery{
		StoreID:     p.TenantID,
		Phone:       r.URL.Query().Get("phone"),
		PageRequest: pageRequest(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// pageRequest reads ?page= and ?limit=; malformed values fall back to defaults
func pageRequest(r *http.Request) store.PageRequest {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return store.PageRequest{Page: page, Limit: limit}
}
