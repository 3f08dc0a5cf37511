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

// Package actor models the initiator of a write so audit records and claim
// timelines are structurally typed.
package actor

import (
	"fmt"
	"strings"
)

// Kind identifies which variant an Actor holds.
type Kind string

const (
	KindAccount      Kind = "account"
	KindAPIKey       Kind = "api_key"
	KindSystem       Kind = "system"
	KindChatIdentity Kind = "chat"
)

// Actor is one of Account(id), APIKey(tenantID), System or ChatIdentity(phone).
// The zero value is not a valid actor.
type Actor struct {
	kind Kind
	ref  string
}

// Account is an interactive user acting through a session token.
func Account(accountID string) Actor { return Actor{kind: KindAccount, ref: accountID} }

// APIKey is an external integration acting for a tenant.
func APIKey(tenantID string) Actor { return Actor{kind: KindAPIKey, ref: tenantID} }

// System is a non-interactive write (jobs, CLI).
func System() Actor { return Actor{kind: KindSystem} }

// ChatIdentity is an end customer writing through the chat channel.
func ChatIdentity(phone string) Actor { return Actor{kind: KindChatIdentity, ref: phone} }

func (a Actor) Kind() Kind { return a.kind }

// Ref is the account id, tenant id or phone, depending on Kind. Empty for System.
func (a Actor) Ref() string { return a.ref }

func (a Actor) IsZero() bool { return a.kind == "" }

// String encodes the actor as "<kind>:<ref>" ("system" for System). The
// encoding is what gets persisted.
func (a Actor) String() string {
	if a.kind == KindSystem {
		return string(KindSystem)
	}
	return string(a.kind) + ":" + a.ref
}

// Parse decodes the String form.
func Parse(s string) (Actor, error) {
	if s == string(KindSystem) {
		return System(), nil
	}
	kind, ref, ok := strings.Cut(s, ":")
	if !ok || ref == "" {
		return Actor{}, fmt.Errorf("invalid actor %q", s)
	}
	switch Kind(kind) {
	case KindAccount, KindAPIKey, KindChatIdentity:
		return Actor{kind: Kind(kind), ref: ref}, nil
	default:
		return Actor{}, fmt.Errorf("invalid actor kind %q", kind)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Actor) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Actor) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
