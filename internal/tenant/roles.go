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

package tenant

import (
	"slices"
	"time"
)

// Role of an account within a store
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// Valid reports whether r is one of the defined roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// Permission names an area of the store a grant may act on
type Permission string

const (
	// PermissionAll satisfies every check.
	PermissionAll         Permission = "all"
	PermissionProducts    Permission = "products"
	PermissionCustomers   Permission = "customers"
	PermissionWarranties  Permission = "warranties"
	PermissionClaims      Permission = "claims"
	PermissionStoreUsers  Permission = "store_users"
	PermissionAPIKeys     Permission = "api_keys"
	PermissionSettings    Permission = "settings"
	PermissionAuditLogs   Permission = "audit_logs"
	PermissionChatHistory Permission = "whatsapp"
)

var knownPermissions = []Permission{
	PermissionAll, PermissionProducts, PermissionCustomers, PermissionWarranties, PermissionClaims,
	PermissionStoreUsers, PermissionAPIKeys, PermissionSettings, PermissionAuditLogs, PermissionChatHistory,
}

// Valid reports whether p is a known permission
func (p Permission) Valid() bool {
	return slices.Contains(knownPermissions, p)
}

// PermissionSet is the explicit permission list of a grant
type PermissionSet []Permission

// Has reports whether the set contains p or the all sentinel
func (s PermissionSet) Has(p Permission) bool {
	return slices.Contains(s, p) || slices.Contains(s, PermissionAll)
}

// Grant (a store user) binds one account to one store. At most one grant
// exists per (store, account).
type Grant struct {
	ID          string        `json:"id"`
	StoreID     string        `json:"store_id"`
	AccountID   string        `json:"user_id"`
	Role        Role          `json:"role"`
	Permissions PermissionSet `json:"permissions"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
