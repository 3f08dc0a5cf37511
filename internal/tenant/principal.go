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

import "github.com/opentrusty/warrantyhub/internal/actor"

// CredentialKind records how a principal authenticated
type CredentialKind string

const (
	CredentialSession CredentialKind = "session"
	CredentialAPIKey  CredentialKind = "api_key"
)

// Principal is the resolved caller. TenantID is empty for a session that did
// not select a store; AccountID and Role are empty for API keys.
type Principal struct {
	AccountID   string
	TenantID    string
	Role        Role
	Permissions PermissionSet
	Credential  CredentialKind
}

// Actor returns the audit/timeline identity of the principal
func (p *Principal) Actor() actor.Actor {
	if p.Credential == CredentialAPIKey {
		return actor.APIKey(p.TenantID)
	}
	return actor.Account(p.AccountID)
}

// HasPermission is true iff the role is admin, or the explicit set holds
// the action or the all sentinel.
func HasPermission(p *Principal, action Permission) bool {
	if p == nil {
		return false
	}
	if p.Role == RoleAdmin {
		return true
	}
	return p.Permissions.Has(action)
}

// Authorize checks that p is scoped to tenantID and may perform action
func Authorize(p *Principal, tenantID string, action Permission) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if tenantID == "" || p.TenantID != tenantID {
		return ErrUnauthorized
	}
	if !HasPermission(p, action) {
		return ErrUnauthorized
	}
	return nil
}
