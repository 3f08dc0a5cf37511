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
	"context"

	"github.com/opentrusty/warrantyhub/internal/tenant"
)

type contextKey string

const principalKey contextKey = "principal"

// withPrincipal stores the resolved caller in ctx
func withPrincipal(ctx context.Context, p *tenant.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the authenticated caller from context.
func GetPrincipal(ctx context.Context) *tenant.Principal {
	if val, ok := ctx.Value(principalKey).(*tenant.Principal); ok {
		return val
	}
	return nil
}

// GetTenantID retrieves the store selected for the request.
func GetTenantID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.TenantID
	}
	return ""
}
