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

	"github.com/opentrusty/warrantyhub/internal/identity"
	"github.com/opentrusty/warrantyhub/internal/tenant"
)

// SignUpRequest represents a new account
type SignUpRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest represents a password login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Account   *identity.Account `json:"user"`
}

// MeResponse is the current account and the stores it can access
type MeResponse struct {
	Account *identity.Account `json:"user"`
	Stores  []*tenant.Grant   `json:"stores"`
}

// SignUp handles account registration
// @Summary Sign up
// @Description Creates an account. Store access is granted separately.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SignUpRequest true "Account"
// @Success 201 {object} identity.Account
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/auth/signup [post]
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.identityService.SignUp(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, account)
}

// Login handles password authentication
// @Summary Login
// @Description Authenticates an account and returns a session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, token, expiresAt, err := h.identityService.Login(r.Context(), req.Email, req.Password, getIPAddress(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   account,
	})
}

// GetCurrentAccount returns the authenticated account
// @Summary Current account
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/me [get]
func (h *Handler) GetCurrentAccount(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	account, err := h.identityService.GetAccount(r.Context(), p.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stores, err := h.tenantService.StoresForAccount(r.Context(), p.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if stores == nil {
		stores = []*tenant.Grant{}
	}

	respondJSON(w, http.StatusOK, MeResponse{Account: account, Stores: stores})
}
