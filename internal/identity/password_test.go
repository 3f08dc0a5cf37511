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

package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHashParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// TestPurpose: Validates argon2id hashing, verification and malformed hash rejection.
// Scope: Unit Test
// Security: Credential storage
// Expected: Hashes embed their parameters, only the right password verifies, foreign formats error.
// Test Case ID: IDN-05
func TestPasswordHasher_Verify(t *testing.T) {
	hasher := NewPasswordHasher(testHashParams)
	hash, err := hasher.Hash("correct-horse-battery-staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))

	tests := []struct {
		name     string
		password string
		encoded  string
		want     bool
		wantErr  bool
	}{
		{"correct password", "correct-horse-battery-staple", hash, true, false},
		{"wrong password", "wrong", hash, false, false},
		{"foreign scheme", "x", "$bcrypt$whatever", false, true},
		{"bad version", "x", "$argon2id$v=1$m=1024,t=1,p=1$c2FsdA$a2V5", false, true},
		{"bad salt", "x", "$argon2id$v=19$m=1024,t=1,p=1$!!$a2V5", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := hasher.Verify(tt.password, tt.encoded)
			if tt.wantErr {
				assert.ErrorIs(t, err, errMalformedHash)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

// TestPurpose: Validates that hashes made under older cost parameters are flagged and still verify.
// Scope: Unit Test
// Security: Credential storage upgrades
// Expected: NeedsRehash is false for current parameters and true otherwise.
// Test Case ID: IDN-06
func TestPasswordHasher_NeedsRehash(t *testing.T) {
	old := NewPasswordHasher(testHashParams)
	hash, err := old.Hash("correct-horse-battery-staple")
	require.NoError(t, err)
	assert.False(t, old.NeedsRehash(hash))

	stronger := testHashParams
	stronger.Iterations = 2
	current := NewPasswordHasher(stronger)
	assert.True(t, current.NeedsRehash(hash))
	assert.True(t, current.NeedsRehash("garbage"))

	ok, err := current.Verify("correct-horse-battery-staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestPurpose: Validates that a successful login re-hashes a password stored under outdated parameters.
// Scope: Unit Test
// Security: Credential storage upgrades
// Expected: The stored hash carries the new iteration count after login.
// Test Case ID: IDN-07
func TestIdentity_Service_UpgradesHashOnLogin(t *testing.T) {
	ctx := context.Background()
	repo := NewMockAccountRepository()
	account, err := newTestIdentityService(repo).SignUp(ctx, "owner@example.com", "Owner", "SecurePassword123")
	require.NoError(t, err)

	stronger := testHashParams
	stronger.Iterations = 2
	tokens := NewTokenService(strings.Repeat("k", 32), "warrantyhub", time.Hour)
	s := NewService(repo, NewPasswordHasher(stronger), tokens, nil, 3, 5*time.Minute)

	_, err = s.Authenticate(ctx, "owner@example.com", "SecurePassword123", "")
	require.NoError(t, err)

	stored, err := repo.GetPasswordHash(ctx, account.ID)
	require.NoError(t, err)
	assert.Contains(t, stored, "t=2")
}

func BenchmarkPasswordHasher_Verify(b *testing.B) {
	hasher := NewPasswordHasher(HashParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 4, SaltLength: 16, KeyLength: 32})
	hash, err := hasher.Hash("correct-horse-battery-staple")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if ok, err := hasher.Verify("correct-horse-battery-staple", hash); err != nil || !ok {
			b.Fatalf("verify failed: %v", err)
		}
	}
}
