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
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var errMalformedHash = errors.New("malformed password hash")

// HashParams are the argon2id cost parameters
type HashParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// PasswordHasher hashes account passwords with argon2id. Encoded hashes carry
// their own parameters so older hashes keep verifying after a cost change.
type PasswordHasher struct {
	params HashParams
}

// NewPasswordHasher creates a hasher with the given cost parameters
func NewPasswordHasher(params HashParams) *PasswordHasher {
	return &PasswordHasher{params: params}
}

// encodedHash is the parsed form of "$argon2id$v=19$m=..,t=..,p=..$salt$key"
type encodedHash struct {
	params HashParams
	salt   []byte
	key    []byte
}

func (e encodedHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, e.params.Memory, e.params.Iterations, e.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(e.salt),
		base64.RawStdEncoding.EncodeToString(e.key))
}

func parseHash(s string) (encodedHash, error) {
	var e encodedHash
	parts := strings.Split(strings.TrimPrefix(s, "$"), "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return e, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return e, fmt.Errorf("%w: version %q", errMalformedHash, parts[1])
	}
	p := &e.params
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return e, fmt.Errorf("%w: %v", errMalformedHash, err)
	}

	var err error
	if e.salt, err = base64.RawStdEncoding.DecodeString(parts[3]); err != nil {
		return e, fmt.Errorf("%w: salt: %v", errMalformedHash, err)
	}
	if e.key, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return e, fmt.Errorf("%w: key: %v", errMalformedHash, err)
	}
	p.SaltLength = uint32(len(e.salt))
	p.KeyLength = uint32(len(e.key))
	return e, nil
}

// Hash derives a new encoded hash with a fresh salt
func (h *PasswordHasher) Hash(password string) (string, error) {
	e := encodedHash{params: h.params, salt: make([]byte, h.params.SaltLength)}
	if _, err := rand.Read(e.salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	e.key = argon2.IDKey([]byte(password), e.salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)
	return e.String(), nil
}

// Verify checks password against an encoded hash using the hash's own parameters
func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	e, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	p := e.params
	key := argon2.IDKey([]byte(password), e.salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(key, e.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with different parameters
// than the hasher currently uses.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	e, err := parseHash(encoded)
	if err != nil {
		return true
	}
	return e.params != h.params
}
