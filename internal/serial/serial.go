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

// Package serial issues the human-readable, globally unique serial numbers
// stamped on products.
package serial

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/opentrusty/warrantyhub/internal/observability/metrics"
)

// Domain errors
var (
	// ErrSerialConflict means the candidate is already taken. Reserve
	// implementations return it (wrapped) on a unique violation.
	ErrSerialConflict = errors.New("serial number already in use")
	// ErrSerialExhausted means every attempt within the bound collided.
	ErrSerialExhausted = errors.New("failed to generate a unique serial number")
	ErrInvalidFormat   = errors.New("invalid serial format")
)

// Strategy selects how the numeric part is produced
type Strategy string

const (
	StrategyCounter Strategy = "counter"
	StrategyRandom  Strategy = "random"
)

// MaxAttempts bounds Issue for both strategies
const MaxAttempts = 10

const (
	randomMin   = 100000
	randomSpan  = 900000
	counterPad  = 6
	modelLength = 3
)

// Format is a store's serial configuration
type Format struct {
	Prefix   string   `json:"prefix"`
	Suffix   string   `json:"suffix"`
	Strategy Strategy `json:"strategy"`
}

// Validate checks the strategy and that prefix/suffix are printable ASCII without spaces
func (f Format) Validate() error {
	if f.Strategy != StrategyCounter && f.Strategy != StrategyRandom {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidFormat, f.Strategy)
	}
	for _, part := range []string{f.Prefix, f.Suffix} {
		if len(part) > 16 {
			return fmt.Errorf("%w: %q is longer than 16 characters", ErrInvalidFormat, part)
		}
		for _, r := range part {
			if r > unicode.MaxASCII || !unicode.IsPrint(r) || unicode.IsSpace(r) {
				return fmt.Errorf("%w: %q contains unsupported characters", ErrInvalidFormat, part)
			}
		}
	}
	return nil
}

// CounterSource atomically increments and returns a tenant's counter
type CounterSource interface {
	NextSerialCounter(ctx context.Context, tenantID string) (int64, error)
}

// ReserveFunc persists the record that owns serial. It must return an error
// wrapping ErrSerialConflict when serial is taken, and must check and insert
// in one operation (for example an INSERT against a unique index).
type ReserveFunc func(ctx context.Context, serial string) error

// Generator composes and reserves serial numbers
type Generator struct {
	counters CounterSource
	intN     func(n int) (int, error)
	metrics  *metrics.Domain
}

// NewGenerator creates a generator. counters may be nil when no store uses
// the counter strategy.
func NewGenerator(counters CounterSource, m *metrics.Domain) *Generator {
	if m == nil {
		m = metrics.Nop()
	}
	return &Generator{
		counters: counters,
		intN:     cryptoIntN,
		metrics:  m,
	}
}

// Generate composes one candidate serial for the tenant: prefix, counter and
// suffix under the counter strategy; prefix, model segment, random number and
// suffix under the random strategy.
func (g *Generator) Generate(ctx context.Context, tenantID string, f Format, model string) (string, error) {
	var number, seg string
	switch f.Strategy {
	case StrategyCounter:
		if g.counters == nil {
			return "", fmt.Errorf("%w: counter strategy without a counter source", ErrInvalidFormat)
		}
		n, err := g.counters.NextSerialCounter(ctx, tenantID)
		if err != nil {
			return "", fmt.Errorf("failed to increment serial counter: %w", err)
		}
		number = fmt.Sprintf("%0*d", counterPad, n)
	case StrategyRandom:
		n, err := g.intN(randomSpan)
		if err != nil {
			return "", fmt.Errorf("failed to draw random serial: %w", err)
		}
		number = fmt.Sprintf("%d", randomMin+n)
		seg = ModelSegment(model)
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidFormat, f.Strategy)
	}

	var b strings.Builder
	b.WriteString(f.Prefix)
	if seg != "" {
		b.WriteString("-" + seg + "-")
	}
	b.WriteString(number)
	b.WriteString(f.Suffix)
	return b.String(), nil
}

// Issue generates candidates and reserves them until one sticks, retrying
// conflicts up to MaxAttempts times.
func (g *Generator) Issue(ctx context.Context, tenantID string, f Format, model string, reserve ReserveFunc) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := g.Generate(ctx, tenantID, f, model)
		if err != nil {
			return "", err
		}
		err = reserve(ctx, candidate)
		switch {
		case err == nil:
			g.metrics.SerialAttempt(ctx, string(f.Strategy), "reserved")
			return candidate, nil
		case errors.Is(err, ErrSerialConflict):
			g.metrics.SerialAttempt(ctx, string(f.Strategy), "conflict")
			continue
		default:
			return "", err
		}
	}
	g.metrics.SerialAttempt(ctx, string(f.Strategy), "exhausted")
	return "", ErrSerialExhausted
}

func cryptoIntN(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// ModelSegment derives the model part of a serial: the first three
// alphanumerics of model, uppercased and padded with X. Empty model, empty segment.
func ModelSegment(model string) string {
	if model == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range model {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() == modelLength {
				break
			}
		}
	}
	for b.Len() < modelLength {
		b.WriteByte('X')
	}
	return b.String()
}
