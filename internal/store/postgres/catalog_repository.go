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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/serial"
)

// ProductRepository implements catalog.ProductRepository
type ProductRepository struct {
	db *DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a product. The unique index on serial_number decides
// serial conflicts.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO products (
			id, store_id, serial_number, prefix, suffix, brand, model, category,
			manufacturing_date, purchase_date, base_warranty_months, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		p.ID, p.StoreID, p.SerialNumber, p.Prefix, p.Suffix, p.Brand, p.Model, p.Category,
		p.ManufacturingDate, p.PurchaseDate, p.BaseWarrantyMonths, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "products_serial_number_key") {
			return fmt.Errorf("%w: %s", serial.ErrSerialConflict, p.SerialNumber)
		}
		return classify(fmt.Errorf("failed to insert product: %w", err))
	}
	return nil
}

const productColumns = `id, store_id, serial_number, prefix, suffix, brand, model, category,
	manufacturing_date, purchase_date, base_warranty_months, created_at, updated_at`

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.StoreID, &p.SerialNumber, &p.Prefix, &p.Suffix, &p.Brand, &p.Model, &p.Category,
		&p.ManufacturingDate, &p.PurchaseDate, &p.BaseWarrantyMonths, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, classify(fmt.Errorf("failed to get product: %w", err))
	}
	return &p, nil
}

// GetByID retrieves a product within a store
func (r *ProductRepository) GetByID(ctx context.Context, storeID, id string) (*catalog.Product, error) {
	if !validID(storeID) || !validID(id) {
		return nil, catalog.ErrProductNotFound
	}
	return scanProduct(r.db.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE store_id = $1 AND id = $2
	`, storeID, id))
}

// GetBySerial retrieves a product by serial number
func (r *ProductRepository) GetBySerial(ctx context.Context, sn string) (*catalog.Product, error) {
	return scanProduct(r.db.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE serial_number = $1
	`, sn))
}

// CustomerRepository implements catalog.CustomerRepository
type CustomerRepository struct {
	db *DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create inserts a customer
func (r *CustomerRepository) Create(ctx context.Context, c *catalog.Customer) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO customers (id, store_id, name, phone, email, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.StoreID, c.Name, c.Phone, c.Email, c.Address, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to insert customer: %w", err))
	}
	return nil
}

const customerColumns = `id, store_id, name, phone, email, address, created_at, updated_at`

func scanCustomer(row pgx.Row) (*catalog.Customer, error) {
	var c catalog.Customer
	err := row.Scan(&c.ID, &c.StoreID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrCustomerNotFound
		}
		return nil, classify(fmt.Errorf("failed to get customer: %w", err))
	}
	return &c, nil
}

// GetByID retrieves a customer within a store
func (r *CustomerRepository) GetByID(ctx context.Context, storeID, id string) (*catalog.Customer, error) {
	if !validID(storeID) || !validID(id) {
		return nil, catalog.ErrCustomerNotFound
	}
	return scanCustomer(r.db.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE store_id = $1 AND id = $2
	`, storeID, id))
}

// FindByPhoneOrEmail returns the oldest store customer matching phone or
// email. Empty arguments never match.
func (r *CustomerRepository) FindByPhoneOrEmail(ctx context.Context, storeID, phone, email string) (*catalog.Customer, error) {
	if !validID(storeID) || (phone == "" && email == "") {
		return nil, catalog.ErrCustomerNotFound
	}
	return scanCustomer(r.db.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE store_id = $1
			AND (($2 <> '' AND phone = $2) OR ($3 <> '' AND email = $3))
		ORDER BY created_at
		LIMIT 1
	`, storeID, phone, email))
}
