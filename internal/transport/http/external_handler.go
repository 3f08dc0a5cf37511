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
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/claim"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

// ExternalRegisterRequest registers a product for a customer identified by
// phone or email
type ExternalRegisterRequest struct {
	SerialNumber    string `json:"product_serial_number"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerEmail   string `json:"customer_email"`
	CustomerAddress string `json:"customer_address"`
}

// ExternalClaimRequest opens a claim by product serial
type ExternalClaimRequest struct {
	SerialNumber string     `json:"product_serial_number"`
	Type         claim.Type `json:"claim_type"`
	Description  string     `json:"description"`
}

// WarrantyLookupResponse pairs a warranty with its product
type WarrantyLookupResponse struct {
	Warranty *warranty.Warranty `json:"warranty"`
	Product  *catalog.Product   `json:"product"`
}

// ExternalRegisterWarranty registers a warranty in the key's store
// @Summary Register warranty (external)
// @Tags External
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Param request body ExternalRegisterRequest true "Registration"
// @Success 201 {object} warranty.Warranty
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} DuplicateWarrantyResponse
// @Router /api/external/warranties [post]
func (h *Handler) ExternalRegisterWarranty(w http.ResponseWriter, r *http.Request) {
	var req ExternalRegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	wr, err := h.warrantyService.RegisterByExternalIdentity(r.Context(), p.Actor(), p.TenantID, req.SerialNumber, catalog.CustomerIdentity{
		Name:    req.CustomerName,
		Phone:   req.CustomerPhone,
		Email:   req.CustomerEmail,
		Address: req.CustomerAddress,
	})
	respondRegistration(w, r, wr, err)
}

// ExternalCreateClaim opens a claim on the warranty of a serial in the key's store
// @Summary Create claim (external)
// @Tags External
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Param request body ExternalClaimRequest true "Claim"
// @Success 201 {object} claim.Claim
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/external/claims [post]
func (h *Handler) ExternalCreateClaim(w http.ResponseWriter, r *http.Request) {
	var req ExternalClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	c, err := h.claimService.CreateBySerial(r.Context(), p.Actor(), p.TenantID, req.SerialNumber, req.Type, req.Description)
	if err != nil {
		if errors.Is(err, claim.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no warranty found for this serial number")
			return
		}
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// ExternalGetProduct looks up a product in the key's store
// @Summary Get product by serial (external)
// @Tags External
// @Produce json
// @Security APIKeyAuth
// @Param serial path string true "Serial number"
// @Success 200 {object} catalog.Product
// @Failure 404 {object} map[string]string
// @Router /api/external/products/{serial} [get]
func (h *Handler) ExternalGetProduct(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	product, err := h.catalogService.ProductBySerialInScope(r.Context(), p.TenantID, chi.URLParam(r, "serial"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// ExternalGetWarranty looks up the warranty of a serial in the key's store
// @Summary Get warranty by serial (external)
// @Tags External
// @Produce json
// @Security APIKeyAuth
// @Param serial path string true "Serial number"
// @Success 200 {object} WarrantyLookupResponse
// @Failure 404 {object} map[string]string
// @Router /api/external/warranties/{serial} [get]
func (h *Handler) ExternalGetWarranty(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	wr, product, err := h.warrantyService.BySerial(r.Context(), p.TenantID, chi.URLParam(r, "serial"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, WarrantyLookupResponse{Warranty: wr, Product: product})
}

// ExternalListClaims lists the claims on the warranty of a serial
// @Summary List claims by serial (external)
// @Tags External
// @Produce json
// @Security APIKeyAuth
// @Param serial path string true "Serial number"
// @Success 200 {array} claim.Claim
// @Failure 404 {object} map[string]string
// @Router /api/external/claims/{serial} [get]
func (h *Handler) ExternalListClaims(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	claims, err := h.claimService.BySerial(r.Context(), p.TenantID, chi.URLParam(r, "serial"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if claims == nil {
		claims = []*claim.Claim{}
	}
	respondJSON(w, http.StatusOK, claims)
}
