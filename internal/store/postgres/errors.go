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
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opentrusty/warrantyhub/internal/store"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// isUniqueViolation reports whether err is a unique violation, optionally on
// the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

// classify marks err with store.ErrTransient when another attempt may succeed:
// serialization failures and deadlocks (class 40), connection exceptions
// (class 08), timeouts and errors pgconn reports as safe to retry.
func classify(err error) error {
	if err == nil || errors.Is(err, store.ErrTransient) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	transient := pgconn.SafeToRetry(err) || pgconn.Timeout(err)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		transient = strings.HasPrefix(pgErr.Code, "40") || strings.HasPrefix(pgErr.Code, "08")
	}
	if !transient {
		return err
	}
	return fmt.Errorf("%w: %w", store.ErrTransient, err)
}

// validID reports whether id can be a row key. Malformed ids never match a
// row, so callers answer not found without a round trip.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
