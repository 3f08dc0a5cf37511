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
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/warrantyhub/internal/warranty"
)

// RegisterWarrantyRequest covers a product for a customer of the store
type RegisterWarrantyRequest struct {
	ProductID  string     `json:"product_id"`
	CustomerID string     `json:"customer_id"`
	Start      *time.Time `json:"warranty_start,omitempty"`
}

// DuplicateWarrantyResponse is returned with 409 and names the existing warranty
type DuplicateWarrantyResponse struct {
	Error    string             `json:"error"`
	Warranty *warranty.Warranty `json:"warranty"`
}

// RegisterWarranty handles warranty registration
// @Summary Register warranty
// @Description Starts a warranty for a product; the end date follows the product's warranty months
// @Tags Warranties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param request body RegisterWarrantyRequest true "Warranty"
// @Success 201 {object} warranty.Warranty
// @Failure 409 {object} DuplicateWarrantyResponse
// @Router /api/v1/warranties [post]
func (h *Handler) RegisterWarranty(w http.ResponseWriter, r *http.Request) {
	var req RegisterWarrantyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := warranty.RegisterInput{
		ProductID:  req.ProductID,
		CustomerID: req.CustomerID,
		Start:      time.Now(),
	}
	if req.Start != nil {
		in.Start = *req.Start
	}

	p := GetPrincipal(r.Context())
	in.TenantID = p.TenantID
	wr, err := h.warrantyService.RegisterAs(r.Context(), p, in)
	respondRegistration(w, r, wr, err)
}

// GetWarranty returns a warranty of the current store
// @Summary Get warranty
// @Tags Warranties
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param warrantyID path string true "Warranty ID"
// @Success 200 {object} warranty.Warranty
// @Failure 404 {object} map[string]string
// @Router /api/v1/warranties/{warrantyID} [get]
func (h *Handler) GetWarranty(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	wr, err := h.warrantyService.GetAs(r.Context(), p, p.TenantID, chi.URLParam(r, "warrantyID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wr)
}

// respondRegistration writes 201, or 409 with the existing warranty
func respondRegistration(w http.ResponseWriter, r *http.Request, wr *warranty.Warranty, err error) {
	if err != nil {
		if errors.Is(err, warranty.ErrDuplicateWarranty) && wr != nil {
			respondJSON(w, http.StatusConflict, DuplicateWarrantyResponse{
				Error:    "product already has a warranty",
				Warranty: wr,
			})
			return
		}
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, wr)
}
