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

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/warrantyhub/internal/claim"
)

// CreateClaimRequest opens a claim on a warranty of the current store
type CreateClaimRequest struct {
	WarrantyID  string     `json:"warranty_id"`
	Type        claim.Type `json:"claim_type"`
	Description string     `json:"description"`
}

// UpdateClaimStatusRequest moves a claim to a new status
type UpdateClaimStatusRequest struct {
	Status claim.Status `json:"status"`
	Notes  string       `json:"notes"`
}

// AddTimelineEventRequest appends a free-form timeline entry
type AddTimelineEventRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

// CreateClaim handles claim creation
// @Summary Create claim
// @Description Opens a pending claim; the warranty must be active and becomes claimed
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param request body CreateClaimRequest true "Claim"
// @Success 201 {object} claim.Claim
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/claims [post]
func (h *Handler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	var req CreateClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	c, err := h.claimService.CreateAs(r.Context(), p, claim.CreateInput{
		TenantID:    p.TenantID,
		WarrantyID:  req.WarrantyID,
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// GetClaim returns a claim with its timeline
// @Summary Get claim
// @Tags Claims
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param claimID path string true "Claim ID"
// @Success 200 {object} claim.Claim
// @Failure 404 {object} map[string]string
// @Router /api/v1/claims/{claimID} [get]
func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	c, err := h.claimService.GetAs(r.Context(), p, p.TenantID, chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// UpdateClaimStatus transitions a claim
// @Summary Update claim status
// @Description pending to approved or rejected; approved to completed
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param claimID path string true "Claim ID"
// @Param request body UpdateClaimStatusRequest true "Status"
// @Success 200 {object} claim.Claim
// @Failure 409 {object} map[string]string
// @Router /api/v1/claims/{claimID}/status [put]
func (h *Handler) UpdateClaimStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateClaimStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	c, err := h.claimService.TransitionAs(r.Context(), p, p.TenantID, chi.URLParam(r, "claimID"), req.Status, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// AddClaimTimelineEvent appends to a claim's timeline
// @Summary Add timeline event
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param claimID path string true "Claim ID"
// @Param request body AddTimelineEventRequest true "Event"
// @Success 201 {object} claim.Claim
// @Router /api/v1/claims/{claimID}/timeline [post]
func (h *Handler) AddClaimTimelineEvent(w http.ResponseWriter, r *http.Request) {
	var req AddTimelineEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	c, err := h.claimService.AddTimelineEventAs(r.Context(), p, p.TenantID, chi.URLParam(r, "claimID"), req.Action, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}
