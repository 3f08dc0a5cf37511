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
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/warrantyhub/internal/serial"
	"github.com/opentrusty/warrantyhub/internal/tenant"
)

// SetupStoreRequest represents a new store
type SetupStoreRequest struct {
	Name         string          `json:"store_name"`
	ContactPhone string          `json:"contact_phone"`
	Address      string          `json:"address"`
	SerialPrefix string          `json:"serial_prefix"`
	SerialSuffix string          `json:"serial_suffix"`
	Strategy     serial.Strategy `json:"serial_strategy"`
}

// UpdateStoreRequest holds optional store settings. Absent fields are kept.
type UpdateStoreRequest struct {
	Name         *string                 `json:"store_name,omitempty"`
	ContactPhone *string                 `json:"contact_phone,omitempty"`
	Address      *string                 `json:"address,omitempty"`
	SerialFormat *serial.Format          `json:"serial_format,omitempty"`
	Messaging    *tenant.MessagingConfig `json:"messaging,omitempty"`
}

// GrantStoreUserRequest grants an account access to the current store
type GrantStoreUserRequest struct {
	AccountID   string              `json:"user_id"`
	Role        tenant.Role         `json:"role"`
	Permissions []tenant.Permission `json:"permissions"`
}

// CreateAPIKeyRequest names a new key
type CreateAPIKeyRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expired_at,omitempty"`
}

// CreateAPIKeyResponse shows the plaintext key exactly once
type CreateAPIKeyResponse struct {
	*tenant.APIKey
	Key string `json:"key"`
}

// SetAPIKeyStatusRequest enables or disables a key
type SetAPIKeyStatusRequest struct {
	Status tenant.APIKeyStatus `json:"status"`
}

// SetupStore creates a store owned by the caller
// @Summary Set up store
// @Description Creates a store; the caller becomes its admin
// @Tags Stores
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SetupStoreRequest true "Store"
// @Success 201 {object} tenant.Store
// @Failure 400 {object} map[string]string
// @Router /api/v1/stores [post]
func (h *Handler) SetupStore(w http.ResponseWriter, r *http.Request) {
	var req SetupStoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	s, err := h.tenantService.SetupStore(r.Context(), p.AccountID, tenant.SetupInput{
		Name:         req.Name,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
		SerialPrefix: req.SerialPrefix,
		SerialSuffix: req.SerialSuffix,
		Strategy:     req.Strategy,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, s)
}

// GetCurrentStore returns the store selected by X-Store-ID
// @Summary Current store
// @Tags Stores
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Success 200 {object} tenant.Store
// @Router /api/v1/stores/current [get]
func (h *Handler) GetCurrentStore(w http.ResponseWriter, r *http.Request) {
	s, err := h.tenantService.GetStore(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// UpdateCurrentStore changes store settings
// @Summary Update store settings
// @Tags Stores
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param request body UpdateStoreRequest true "Settings"
// @Success 200 {object} tenant.Store
// @Failure 403 {object} map[string]string
// @Router /api/v1/stores/current [put]
func (h *Handler) UpdateCurrentStore(w http.ResponseWriter, r *http.Request) {
	var req UpdateStoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	s, err := h.tenantService.UpdateSettings(r.Context(), p, p.TenantID, tenant.SettingsInput{
		Name:         req.Name,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
		SerialFormat: req.SerialFormat,
		Messaging:    req.Messaging,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// ListStoreUsers lists the grants of the current store
// @Summary List store users
// @Tags Store Users
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Success 200 {array} tenant.Grant
// @Router /api/v1/store-users [get]
func (h *Handler) ListStoreUsers(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	grants, err := h.tenantService.ListGrants(r.Context(), p, p.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if grants == nil {
		grants = []*tenant.Grant{}
	}
	respondJSON(w, http.StatusOK, grants)
}

// GrantStoreUser grants an account a role in the current store
// @Summary Grant store access
// @Tags Store Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param request body GrantStoreUserRequest true "Grant"
// @Success 201 {object} tenant.Grant
// @Failure 409 {object} map[string]string
// @Router /api/v1/store-users [post]
func (h *Handler) GrantStoreUser(w http.ResponseWriter, r *http.Request) {
	var req GrantStoreUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	grant, err := h.tenantService.GrantAccess(r.Context(), p, p.TenantID, req.AccountID, req.Role, tenant.PermissionSet(req.Permissions))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, grant)
}

// RevokeStoreUser removes an account's access to the current store
// @Summary Revoke store access
// @Tags Store Users
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param accountID path string true "Account ID"
// @Success 204
// @Router /api/v1/store-users/{accountID} [delete]
func (h *Handler) RevokeStoreUser(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if err := h.tenantService.RevokeAccess(r.Context(), p, p.TenantID, chi.URLParam(r, "accountID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAPIKeys lists the current store's API keys
// @Summary List API keys
// @Tags API Keys
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Success 200 {array} tenant.APIKey
// @Router /api/v1/api-keys [get]
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	keys, err := h.tenantService.ListAPIKeys(r.Context(), p, p.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if keys == nil {
		keys = []*tenant.APIKey{}
	}
	respondJSON(w, http.StatusOK, keys)
}

// CreateAPIKey issues a key for the current store
// @Summary Create API key
// @Description The plaintext key is only returned by this call
// @Tags API Keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param request body CreateAPIKeyRequest true "Key"
// @Success 201 {object} CreateAPIKeyResponse
// @Router /api/v1/api-keys [post]
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	key, secret, err := h.tenantService.CreateAPIKey(r.Context(), p, p.TenantID, req.Name, req.ExpiresAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, CreateAPIKeyResponse{APIKey: key, Key: secret})
}

// SetAPIKeyStatus enables or disables a key
// @Summary Set API key status
// @Tags API Keys
// @Accept json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param keyID path string true "Key ID"
// @Param request body SetAPIKeyStatusRequest true "Status"
// @Success 204
// @Router /api/v1/api-keys/{keyID}/status [put]
func (h *Handler) SetAPIKeyStatus(w http.ResponseWriter, r *http.Request) {
	var req SetAPIKeyStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	if err := h.tenantService.SetAPIKeyStatus(r.Context(), p, p.TenantID, chi.URLParam(r, "keyID"), req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
