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

// Package store holds the storage-neutral error contract and paging types
// shared by the repositories and the services that call them.
package store

import (
	"context"
	"errors"
)

// ErrTransient marks a storage failure worth one more attempt (lost
// connection, serialization failure, deadlock, timeout).
var ErrTransient = errors.New("transient storage failure")

// RetryOnce runs fn and, if it fails with ErrTransient, runs it one more time.
func RetryOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || !errors.Is(err, ErrTransient) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}
	return fn(ctx)
}
