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

	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/tenant"
)

// CreateProductRequest represents a new product. The serial number is
// issued by the store's serial format.
type CreateProductRequest struct {
	Brand              string     `json:"brand"`
	Model              string     `json:"model"`
	Category           string     `json:"category"`
	ManufacturingDate  *time.Time `json:"manufacturing_date,omitempty"`
	PurchaseDate       *time.Time `json:"purchase_date,omitempty"`
	BaseWarrantyMonths int        `json:"base_warranty_months"`
}

// UpsertCustomerRequest identifies a customer by phone or email
type UpsertCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// CreateProduct handles product creation
// @Summary Create product
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param request body CreateProductRequest true "Product"
// @Success 201 {object} catalog.Product
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/products [post]
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	product, err := h.catalogService.CreateProduct(r.Context(), p, p.TenantID, catalog.ProductInput{
		Brand:              req.Brand,
		Model:              req.Model,
		Category:           req.Category,
		ManufacturingDate:  req.ManufacturingDate,
		PurchaseDate:       req.PurchaseDate,
		BaseWarrantyMonths: req.BaseWarrantyMonths,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

// GetProduct returns a product of the current store
// @Summary Get product
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param productID path string true "Product ID"
// @Success 200 {object} catalog.Product
// @Failure 404 {object} map[string]string
// @Router /api/v1/products/{productID} [get]
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	product, err := h.catalogService.GetProduct(r.Context(), p, p.TenantID, chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// GetProductBySerial looks up a product of the current store by serial
// @Summary Get product by serial
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param serial path string true "Serial number"
// @Success 200 {object} catalog.Product
// @Failure 404 {object} map[string]string
// @Router /api/v1/products/serial/{serial} [get]
func (h *Handler) GetProductBySerial(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if err := tenant.Authorize(p, p.TenantID, tenant.PermissionProducts); err != nil {
		writeError(w, r, err)
		return
	}
	product, err := h.catalogService.ProductBySerialInScope(r.Context(), p.TenantID, chi.URLParam(r, "serial"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// UpsertCustomer finds the store's customer by phone or email, creating one
// when none matches
// @Summary Find or create customer
// @Tags Customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Store-ID header string true "Store ID"
// @Param request body UpsertCustomerRequest true "Customer"
// @Success 200 {object} catalog.Customer
// @Success 201 {object} catalog.Customer
// @Router /api/v1/customers [post]
func (h *Handler) UpsertCustomer(w http.ResponseWriter, r *http.Request) {
	var req UpsertCustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	customer, created, err := h.catalogService.UpsertCustomer(r.Context(), p, p.TenantID, catalog.CustomerIdentity{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, customer)
}
