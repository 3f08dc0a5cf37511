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
	"context"
	"time"

	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/stretchr/testify/mock"
)

type mockStoreRepo struct {
	mock.Mock
}

func (m *mockStoreRepo) Create(ctx context.Context, store *Store, owner *Grant) error {
	args := m.Called(ctx, store, owner)
	return args.Error(0)
}

func (m *mockStoreRepo) GetByID(ctx context.Context, id string) (*Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Store), args.Error(1)
}

func (m *mockStoreRepo) Update(ctx context.Context, store *Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *mockStoreRepo) NextSerialCounter(ctx context.Context, storeID string) (int64, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).(int64), args.Error(1)
}

type mockGrantRepo struct {
	mock.Mock
}

func (m *mockGrantRepo) Create(ctx context.Context, grant *Grant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *mockGrantRepo) Get(ctx context.Context, storeID, accountID string) (*Grant, error) {
	args := m.Called(ctx, storeID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Grant), args.Error(1)
}

func (m *mockGrantRepo) ListByStore(ctx context.Context, storeID string) ([]*Grant, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]*Grant), args.Error(1)
}

func (m *mockGrantRepo) ListByAccount(ctx context.Context, accountID string) ([]*Grant, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]*Grant), args.Error(1)
}

func (m *mockGrantRepo) Update(ctx context.Context, grant *Grant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *mockGrantRepo) Delete(ctx context.Context, storeID, accountID string) error {
	args := m.Called(ctx, storeID, accountID)
	return args.Error(0)
}

type mockKeyRepo struct {
	mock.Mock
}

func (m *mockKeyRepo) Create(ctx context.Context, key *APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockKeyRepo) GetByHash(ctx context.Context, hash string) (*APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*APIKey), args.Error(1)
}

func (m *mockKeyRepo) ListByStore(ctx context.Context, storeID string) ([]*APIKey, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]*APIKey), args.Error(1)
}

func (m *mockKeyRepo) UpdateStatus(ctx context.Context, storeID, id string, status APIKeyStatus) error {
	args := m.Called(ctx, storeID, id, status)
	return args.Error(0)
}

func (m *mockKeyRepo) Touch(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

type stubVerifier map[string]string

func (s stubVerifier) VerifySessionToken(token string) (string, error) {
	if acc, ok := s[token]; ok {
		return acc, nil
	}
	return "", ErrUnauthenticated
}
