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

// Package catalog manages a store's products and customers.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/opentrusty/warrantyhub/internal/tenant"
)

// Domain errors
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrValidation       = errors.New("validation failed")
)

// DefaultWarrantyMonths applies when a product does not set its own
const DefaultWarrantyMonths = 12

// Product is a serial-numbered item sold by a store
type Product struct {
	ID                 string     `json:"id"`
	StoreID            string     `json:"store_id"`
	SerialNumber       string     `json:"serial_number"`
	Prefix             string     `json:"prefix,omitempty"`
	Suffix             string     `json:"suffix,omitempty"`
	Brand              string     `json:"brand"`
	Model              string     `json:"model"`
	Category           string     `json:"category,omitempty"`
	ManufacturingDate  *time.Time `json:"manufacturing_date,omitempty"`
	PurchaseDate       *time.Time `json:"purchase_date,omitempty"`
	BaseWarrantyMonths int        `json:"base_warranty_months"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// DisplayName is "<brand> <model>"
func (p *Product) DisplayName() string {
	return strings.TrimSpace(p.Brand + " " + p.Model)
}

// Customer is the owner of a registered product
type Customer struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerIdentity identifies a customer by phone or email within a store
type CustomerIdentity struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// NormalizeSerial trims and uppercases a serial typed by a person
func NormalizeSerial(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// Create inserts a product. A taken serial number is reported as an
	// error wrapping serial.ErrSerialConflict.
	Create(ctx context.Context, product *Product) error

	// GetByID retrieves a product within a store
	GetByID(ctx context.Context, storeID, id string) (*Product, error)

	// GetBySerial retrieves a product by its globally unique serial
	GetBySerial(ctx context.Context, serial string) (*Product, error)
}

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	Create(ctx context.Context, customer *Customer) error
	GetByID(ctx context.Context, storeID, id string) (*Customer, error)

	// FindByPhoneOrEmail returns the store's customer matching phone (when
	// set) or email (when set).
	FindByPhoneOrEmail(ctx context.Context, storeID, phone, email string) (*Customer, error)
}

// StoreLookup loads the store whose serial format applies
type StoreLookup interface {
	GetStore(ctx context.Context, id string) (*tenant.Store, error)
}
