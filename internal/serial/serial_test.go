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

package serial

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type atomicCounter struct {
	n atomic.Int64
}

func (c *atomicCounter) NextSerialCounter(ctx context.Context, tenantID string) (int64, error) {
	return c.n.Add(1), nil
}

// registry reserves serials the way a unique index would
type registry struct {
	mu    sync.Mutex
	taken map[string]bool
}

func newRegistry() *registry { return &registry{taken: map[string]bool{}} }

func (r *registry) reserve(ctx context.Context, serial string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken[serial] {
		return fmt.Errorf("insert product: %w", ErrSerialConflict)
	}
	r.taken[serial] = true
	return nil
}

func TestModelSegment(t *testing.T) {
	tests := map[string]string{
		"":           "",
		"Galaxy S24": "GAL",
		"x1":         "X1X",
		"--":         "XXX",
		"i-Phone":    "IPH",
	}
	for in, want := range tests {
		assert.Equal(t, want, ModelSegment(in), in)
	}
}

func TestGenerate_Composition(t *testing.T) {
	g := NewGenerator(&atomicCounter{}, nil)
	g.intN = func(n int) (int, error) { return 23456, nil }

	tests := []struct {
		name   string
		format Format
		model  string
		want   string
	}{
		{"random with model", Format{Prefix: "PRD", Suffix: "-ID", Strategy: StrategyRandom}, "Galaxy", "PRD-GAL-123456-ID"},
		{"random without model", Format{Prefix: "PRD", Strategy: StrategyRandom}, "", "PRD123456"},
		{"counter", Format{Prefix: "TV", Strategy: StrategyCounter}, "", "TV000001"},
		{"counter ignores model", Format{Prefix: "TV", Suffix: "-X", Strategy: StrategyCounter}, "Galaxy", "TV000002-X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := g.Generate(context.Background(), "store-1", tt.format, tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}

	g.intN = func(int) (int, error) { return 0, errors.New("entropy unavailable") }
	_, err := g.Generate(context.Background(), "store-1", Format{Strategy: StrategyRandom}, "")
	assert.Error(t, err)
}

func TestGenerate_RandomRange(t *testing.T) {
	g := NewGenerator(nil, nil)
	for i := 0; i < 1000; i++ {
		s, err := g.Generate(context.Background(), "t", Format{Strategy: StrategyRandom}, "")
		require.NoError(t, err)
		require.Len(t, s, 6)
		assert.GreaterOrEqual(t, s, "100000")
		assert.LessOrEqual(t, s, "999999")
	}
}

// TestPurpose: Validates that concurrent issuance under the counter strategy never yields duplicate serials.
// Scope: Unit Test
// Security: Product identity uniqueness
// Expected: N concurrent Issue calls for one tenant produce N distinct serials.
// Test Case ID: SER-01
func TestIssue_CounterConcurrentDistinct(t *testing.T) {
	const n = 200
	g := NewGenerator(&atomicCounter{}, nil)
	reg := newRegistry()
	format := Format{Prefix: "PRD", Strategy: StrategyCounter}

	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := g.Issue(context.Background(), "store-1", format, "", reg.reserve)
			if assert.NoError(t, err) {
				results <- s
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for s := range results {
		assert.False(t, seen[s], "duplicate serial %s", s)
		seen[s] = true
	}
	assert.Len(t, seen, n)
}

// TestPurpose: Validates that the random strategy yields either distinct serials or SerialExhausted, never a silent duplicate.
// Scope: Unit Test
// Security: Product identity uniqueness under a deliberately tiny random space
// Expected: Every successful serial is unique; failures are exactly ErrSerialExhausted.
// Test Case ID: SER-02
func TestIssue_RandomConcurrentDistinctOrExhausted(t *testing.T) {
	const n = 50
	g := NewGenerator(nil, nil)
	var mu sync.Mutex
	seq := 0
	g.intN = func(int) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return seq % 20, nil // only 20 possible serials
	}
	reg := newRegistry()
	format := Format{Prefix: "R", Strategy: StrategyRandom}

	var wg sync.WaitGroup
	var exhausted atomic.Int32
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := g.Issue(context.Background(), "store-1", format, "", reg.reserve)
			if err != nil {
				assert.ErrorIs(t, err, ErrSerialExhausted)
				exhausted.Add(1)
				return
			}
			results <- s
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for s := range results {
		assert.False(t, seen[s], "duplicate serial %s", s)
		seen[s] = true
	}
	assert.Equal(t, n, len(seen)+int(exhausted.Load()))
	assert.LessOrEqual(t, len(seen), 20)
}

func TestIssue_ExhaustedAfterBound(t *testing.T) {
	g := NewGenerator(nil, nil)
	g.intN = func(int) (int, error) { return 0, nil }

	attempts := 0
	reserve := func(ctx context.Context, serial string) error {
		attempts++
		return ErrSerialConflict
	}

	_, err := g.Issue(context.Background(), "t", Format{Strategy: StrategyRandom}, "", reserve)
	assert.ErrorIs(t, err, ErrSerialExhausted)
	assert.NotErrorIs(t, err, ErrSerialConflict)
	assert.Equal(t, MaxAttempts, attempts)
}

func TestIssue_OtherErrorsStopImmediately(t *testing.T) {
	g := NewGenerator(nil, nil)
	boom := errors.New("connection refused")
	attempts := 0
	_, err := g.Issue(context.Background(), "t", Format{Strategy: StrategyRandom}, "", func(ctx context.Context, serial string) error {
		attempts++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestFormat_Validate(t *testing.T) {
	assert.NoError(t, Format{Prefix: "PRD", Strategy: StrategyRandom}.Validate())
	assert.ErrorIs(t, Format{Prefix: "PRD", Strategy: "uuid"}.Validate(), ErrInvalidFormat)
	assert.ErrorIs(t, Format{Prefix: "P D", Strategy: StrategyCounter}.Validate(), ErrInvalidFormat)
}
