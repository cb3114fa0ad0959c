package status

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedCreatesAllKeys(t *testing.T) {
	s := NewStore()
	s.Seed([]string{"cloudflare", "aliyun"})

	snap := s.Snapshot()
	require.Len(t, snap.Providers, 2)
	assert.Contains(t, snap.Providers, "cloudflare")
	assert.Contains(t, snap.Providers, "aliyun")
	assert.Nil(t, snap.Providers["cloudflare"].LastOK)
	assert.Empty(t, snap.Providers["cloudflare"].LastErr)
}

func TestSnapshotIsImmutable(t *testing.T) {
	s := NewStore()
	s.Seed([]string{"cloudflare"})
	s.SetDetected("203.0.113.5", time.Now(), nil)

	snap := s.Snapshot()

	// mutate after the snapshot was taken
	s.SetDetected("198.51.100.9", time.Now(), nil)
	s.SetProviderErr("cloudflare", "boom")

	assert.Equal(t, "203.0.113.5", snap.CurrentIP)
	assert.Empty(t, snap.Providers["cloudflare"].LastErr)
}

func TestSuccessClearsError(t *testing.T) {
	s := NewStore()
	s.Seed([]string{"cf"})

	s.SetProviderErr("cf", "api rejected")
	assert.Equal(t, "api rejected", s.Snapshot().Providers["cf"].LastErr)

	now := time.Now()
	s.SetProviderOK("cf", now)

	stat := s.Snapshot().Providers["cf"]
	require.NotNil(t, stat.LastOK)
	assert.True(t, stat.LastOK.Equal(now))
	assert.Empty(t, stat.LastErr)
}

func TestErrorKeepsPriorSuccess(t *testing.T) {
	s := NewStore()
	s.Seed([]string{"cf"})

	firstOK := time.Now().Add(-time.Hour)
	s.SetProviderOK("cf", firstOK)
	s.SetProviderErr("cf", "later failure")

	stat := s.Snapshot().Providers["cf"]
	require.NotNil(t, stat.LastOK)
	assert.True(t, stat.LastOK.Equal(firstOK))
	assert.Equal(t, "later failure", stat.LastErr)
}

func TestNextTick(t *testing.T) {
	s := NewStore()
	next := time.Now().Add(5 * time.Minute)

	s.SetDetected("203.0.113.5", time.Now(), &next)
	snap := s.Snapshot()
	require.NotNil(t, snap.NextTick)
	assert.True(t, snap.NextTick.Equal(next))

	s.SetDetected("203.0.113.5", time.Now(), nil)
	assert.Nil(t, s.Snapshot().NextTick)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := NewStore()
	s.Seed([]string{"a", "b", "c"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetProviderOK("a", time.Now())
				s.SetProviderErr("b", "x")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := s.Snapshot()
				_ = snap.Providers["a"]
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.Snapshot().Providers, 3)
}
