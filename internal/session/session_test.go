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

package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates that both session stores honour the same contract.
// Scope: Unit Test
// Security: Sessions of different phones never mix
// Expected: Put then Get round-trips a copy; Evict removes; unknown phones are ErrSessionNotFound.
// Test Case ID: SES-01
func TestStores_Contract(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mem := NewMemoryStore(time.Minute, 0)
	t.Cleanup(mem.Close)

	stores := map[string]Store{
		"memory": mem,
		"redis":  NewRedisStore(rdb, time.Minute),
	}
	for name, st := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := st.Get(ctx, "+1")
			assert.ErrorIs(t, err, ErrSessionNotFound)

			s := &Session{Phone: "+1", State: "create_claim_description", Data: map[string]string{"warranty_id": "w-1"}}
			require.NoError(t, st.Put(ctx, s))
			assert.False(t, s.ExpiresAt.IsZero())

			got, err := st.Get(ctx, "+1")
			require.NoError(t, err)
			assert.Equal(t, "create_claim_description", got.State)
			assert.Equal(t, "w-1", got.Data["warranty_id"])

			got.Data["warranty_id"] = "changed"
			again, err := st.Get(ctx, "+1")
			require.NoError(t, err)
			assert.Equal(t, "w-1", again.Data["warranty_id"])

			_, err = st.Get(ctx, "+2")
			assert.ErrorIs(t, err, ErrSessionNotFound)

			require.NoError(t, st.Evict(ctx, "+1"))
			_, err = st.Get(ctx, "+1")
			assert.ErrorIs(t, err, ErrSessionNotFound)

			assert.ErrorIs(t, st.Put(ctx, &Session{}), ErrSessionInvalid)
		})
	}
}

func TestMemoryStore_ExpiryAndSweep(t *testing.T) {
	mem := NewMemoryStore(time.Minute, 0)
	defer mem.Close()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, mem.Put(ctx, &Session{Phone: "+1", State: "menu"}))
	require.NoError(t, mem.Put(ctx, &Session{Phone: "+2", State: "menu"}))

	now = now.Add(2 * time.Minute)
	_, err := mem.Get(ctx, "+1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, mem.Len())

	assert.Equal(t, 1, mem.Sweep())
	assert.Equal(t, 0, mem.Len())
}

func TestMemoryStore_SweeperStops(t *testing.T) {
	mem := NewMemoryStore(time.Millisecond, time.Millisecond)
	require.NoError(t, mem.Put(context.Background(), &Session{Phone: "+1"}))
	assert.Eventually(t, func() bool { return mem.Len() == 0 }, time.Second, 5*time.Millisecond)
	mem.Close()
	mem.Close()
}

func TestRedisStore_KeyTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	st := NewRedisStore(rdb, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, &Session{Phone: "+1", State: "menu"}))
	assert.Equal(t, 30*time.Minute, mr.TTL(defaultKeyPrefix+"+1"))

	mr.FastForward(31 * time.Minute)
	_, err := st.Get(ctx, "+1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	require.NoError(t, st.Ping(ctx))
}
