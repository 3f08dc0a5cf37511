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
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates session token verification rules.
// Scope: Unit Test
// Security: Token forgery, algorithm confusion and expiry
// Expected: Only unexpired HS256 tokens signed with the server secret and issuer verify.
// Test Case ID: IDN-04
func TestTokenService_VerifySessionToken(t *testing.T) {
	secret := strings.Repeat("s", 32)
	svc := NewTokenService(secret, "warrantyhub", time.Hour)

	token, _, err := svc.Issue("acc-1")
	require.NoError(t, err)
	got, err := svc.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService(strings.Repeat("x", 32), "warrantyhub", time.Hour)
		forged, _, err := other.Issue("acc-1")
		require.NoError(t, err)
		_, err = svc.VerifySessionToken(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenService(secret, "someone-else", time.Hour)
		tok, _, err := other.Issue("acc-1")
		require.NoError(t, err)
		_, err = svc.VerifySessionToken(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewTokenService(secret, "warrantyhub", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		tok, _, err := old.Issue("acc-1")
		require.NoError(t, err)
		_, err = svc.VerifySessionToken(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
			UserID: "acc-1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "warrantyhub",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.VerifySessionToken(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.VerifySessionToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
