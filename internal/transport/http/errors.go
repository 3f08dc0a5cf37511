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
	"errors"
	"log/slog"
	"net/http"

	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/claim"
	"github.com/opentrusty/warrantyhub/internal/identity"
	"github.com/opentrusty/warrantyhub/internal/observability/logger"
	"github.com/opentrusty/warrantyhub/internal/serial"
	"github.com/opentrusty/warrantyhub/internal/store"
	"github.com/opentrusty/warrantyhub/internal/tenant"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// errorTable is matched in order; an empty message echoes err.Error().
var errorTable = []errorMapping{
	{tenant.ErrUnauthenticated, http.StatusUnauthorized, "not authenticated"},
	{identity.ErrInvalidToken, http.StatusUnauthorized, "not authenticated"},
	{identity.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
	{identity.ErrAccountLocked, http.StatusUnauthorized, "invalid credentials"},
	{tenant.ErrUnauthorized, http.StatusForbidden, "access denied"},

	{catalog.ErrProductNotFound, http.StatusNotFound, "product not found"},
	{warranty.ErrNotFound, http.StatusNotFound, "warranty not found"},
	{claim.ErrNotFound, http.StatusNotFound, "claim not found"},
	{catalog.ErrCustomerNotFound, http.StatusNotFound, "customer not found"},
	{tenant.ErrStoreNotFound, http.StatusNotFound, "store not found"},
	{tenant.ErrGrantNotFound, http.StatusNotFound, "store user not found"},
	{tenant.ErrAPIKeyNotFound, http.StatusNotFound, "api key not found"},
	{identity.ErrAccountNotFound, http.StatusNotFound, "account not found"},

	{warranty.ErrDuplicateWarranty, http.StatusConflict, "product already has a warranty"},
	{tenant.ErrGrantExists, http.StatusConflict, ""},
	{identity.ErrAccountExists, http.StatusConflict, ""},
	{serial.ErrSerialConflict, http.StatusConflict, ""},
	{claim.ErrInvalidTransition, http.StatusConflict, ""},

	{serial.ErrSerialExhausted, http.StatusServiceUnavailable, ""},
	{store.ErrTransient, http.StatusServiceUnavailable, "temporarily unavailable, retry later"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "request timed out"},

	{catalog.ErrValidation, http.StatusBadRequest, ""},
	{tenant.ErrValidation, http.StatusBadRequest, ""},
	{warranty.ErrValidation, http.StatusBadRequest, ""},
	{claim.ErrValidation, http.StatusBadRequest, ""},
	{identity.ErrInvalidEmail, http.StatusBadRequest, ""},
	{identity.ErrWeakPassword, http.StatusBadRequest, ""},
	{tenant.ErrInvalidRole, http.StatusBadRequest, ""},
	{serial.ErrInvalidFormat, http.StatusBadRequest, ""},
	{claim.ErrWarrantyNotActive, http.StatusBadRequest, "warranty is not active"},
	{warranty.ErrInvalidWarrantyStatus, http.StatusBadRequest, ""},
}

// statusFor maps a domain error to an HTTP status and client message.
// Unknown errors are 500 with a generic message.
func statusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			if m.message == "" {
				return m.status, err.Error()
			}
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeError responds with the mapped status. Server-side failures are
// logged with the full error; clients only see the message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.StatusCode(status),
			logger.Error(err),
		)
	}
	respondError(w, status, message)
}
