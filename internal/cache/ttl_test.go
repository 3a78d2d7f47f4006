package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drug-risk-service/internal/testutil"
)

func TestTTL_GetSet(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	c := NewTTL[string](time.Minute, WithClock(clock.Now))

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("trust:m1", "gold")
	got, ok := c.Get("trust:m1")
	require.True(t, ok)
	assert.Equal(t, "gold", got)
}

func TestTTL_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		wantHit bool
	}{
		{"just before expiry", time.Minute - time.Millisecond, true},
		{"exactly at expiry", time.Minute, false},
		{"after expiry", 2 * time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := testutil.NewClock(time.Unix(0, 0))
			c := NewTTL[int](time.Minute, WithClock(clock.Now))

			c.Set("k", 42)
			clock.Advance(tt.advance)

			got, ok := c.Get("k")
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, 42, got)
				assert.Equal(t, 1, c.Len())
			} else {
				assert.Zero(t, got)
				assert.Equal(t, 0, c.Len(), "expired entry is removed by Get")
			}
		})
	}
}

func TestTTL_ExpiredEntriesStayUntilRead(t *testing.T) {
	clock := testutil.NewClock(time.Unix(0, 0))
	c := NewTTL[string](time.Second, WithClock(clock.Now))

	c.Set("a", "1")
	c.Set("b", "2")
	clock.Advance(5 * time.Second)

	assert.Equal(t, 2, c.Len(), "no background sweeper")

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 0, c.Len())
}

func TestTTL_SetOverwritesAndResetsExpiry(t *testing.T) {
	clock := testutil.NewClock(time.Unix(0, 0))
	c := NewTTL[string](10*time.Second, WithClock(clock.Now))

	c.Set("k", "old")
	clock.Advance(8 * time.Second)
	c.Set("k", "new")
	clock.Advance(8 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestTTL_Delete(t *testing.T) {
	c := NewTTL[string](time.Minute)

	c.Set("k", "v")
	c.Delete("k")
	c.Delete("never-set")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTL_NilValuesAreHits(t *testing.T) {
	c := NewTTL[*float64](time.Minute)

	c.Set("trust:unknown", nil)
	got, ok := c.Get("trust:unknown")

	assert.True(t, ok, "a stored nil is a negative entry, not a miss")
	assert.Nil(t, got)
}

func TestTTL_ConcurrentAccess(t *testing.T) {
	c := NewTTL[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%10)
				c.Set(key, worker)
				c.Get(key)
				if j%50 == 0 {
					c.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 10)
}
