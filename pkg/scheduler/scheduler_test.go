package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudspire/ddnsd/pkg/config"
	"github.com/cloudspire/ddnsd/pkg/detector"
	"github.com/cloudspire/ddnsd/pkg/events"
	"github.com/cloudspire/ddnsd/pkg/provider"
	"github.com/cloudspire/ddnsd/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStrategy is a canned detection result
type stubStrategy struct {
	ip  string
	err error
}

func (s *stubStrategy) Kind() string     { return "stub" }
func (s *stubStrategy) Describe() string { return "stub" }
func (s *stubStrategy) Detect(context.Context) (string, error) {
	return s.ip, s.err
}

// fakeProvider counts attempts and can fail a configured number of times
type fakeProvider struct {
	failFirst  int  // fail this many initial attempts
	alwaysFail bool // never succeed
	delay      time.Duration

	mu       sync.Mutex
	calls    int
	inflight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeProvider) Name() string                    { return "fake" }
func (f *fakeProvider) Zone() string                    { return "example.com" }
func (f *fakeProvider) Record() string                  { return "home" }
func (f *fakeProvider) RecordType() provider.RecordType { return provider.A }

func (f *fakeProvider) Upsert(ctx context.Context, _, _ string, _ provider.RecordType, _ string, _ int) error {
	cur := f.inflight.Add(1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	f.inflight.Add(-1)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.alwaysFail {
		return errors.New("vendor unavailable")
	}
	if f.calls <= f.failFirst {
		return errors.New("transient vendor error")
	}
	return nil
}

func (f *fakeProvider) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// sleepRecorder captures backoff waits while returning instantly
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.waits))
	copy(out, r.waits)
	return out
}

func newTestScheduler(t *testing.T, cfg *config.AppConfig, entries []provider.Entry) (*Scheduler, *status.Store) {
	t.Helper()
	store := status.NewStore()
	bus := events.NewBroker()
	s, err := New(cfg, entries, store, bus)
	require.NoError(t, err)

	rec := &sleepRecorder{}
	s.sleep = rec.sleep
	return s, store
}

func TestSeedHappensBeforeFirstCycle(t *testing.T) {
	entries := []provider.Entry{
		{Key: "cf", TTL: 60, Provider: &fakeProvider{}},
		{Key: "ali", TTL: 60, Provider: &fakeProvider{}},
	}
	s, store := newTestScheduler(t, &config.AppConfig{}, entries)
	_ = s

	snap := store.Snapshot()
	assert.Contains(t, snap.Providers, "cf")
	assert.Contains(t, snap.Providers, "ali")
}

func TestDetectionFailureLeavesProvidersUntouched(t *testing.T) {
	p := &fakeProvider{}
	s, store := newTestScheduler(t, &config.AppConfig{}, []provider.Entry{
		{Key: "cf", TTL: 60, Provider: p},
	})
	s.strategies = []detector.Strategy{&stubStrategy{err: errors.New("down")}}

	err := s.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, detector.ErrAllFailed)

	assert.Equal(t, 0, p.attempts(), "no provider update may run after failed detection")
	snap := store.Snapshot()
	assert.Empty(t, snap.CurrentIP)
	assert.Nil(t, snap.Providers["cf"].LastOK)
	assert.Empty(t, snap.Providers["cf"].LastErr)
}

func TestCycleSuccessSecondAttempt(t *testing.T) {
	p := &fakeProvider{failFirst: 1}
	s, store := newTestScheduler(t, &config.AppConfig{}, []provider.Entry{
		{Key: "thatkey", TTL: 60, Provider: p},
	})
	s.strategies = []detector.Strategy{&stubStrategy{ip: "203.0.113.5"}}

	require.NoError(t, s.RunCycle(context.Background()))

	assert.Equal(t, 2, p.attempts())

	snap := store.Snapshot()
	assert.Equal(t, "203.0.113.5", snap.CurrentIP)
	require.NotNil(t, snap.Providers["thatkey"].LastOK)
	assert.Empty(t, snap.Providers["thatkey"].LastErr)
	assert.Nil(t, snap.NextTick, "one-shot mode has no next tick")
}

func TestAlwaysFailingProviderAttemptsAndBackoff(t *testing.T) {
	p := &fakeProvider{alwaysFail: true}
	s, store := newTestScheduler(t, &config.AppConfig{}, []provider.Entry{
		{Key: "cf", TTL: 60, Provider: p},
	})
	s.strategies = []detector.Strategy{&stubStrategy{ip: "203.0.113.5"}}

	rec := &sleepRecorder{}
	s.sleep = rec.sleep

	require.NoError(t, s.RunCycle(context.Background()))

	assert.Equal(t, MaxRetry+1, p.attempts(), "1 initial + MaxRetry retries")

	waits := rec.recorded()
	require.Len(t, waits, MaxRetry)
	expect := []time.Duration{10, 20, 40, 80, 160}
	for i, w := range waits {
		assert.Equal(t, expect[i]*time.Second, w)
		if i > 0 {
			assert.Equal(t, 2*waits[i-1], w, "waits must double")
		}
	}

	stat := store.Snapshot().Providers["cf"]
	assert.NotEmpty(t, stat.LastErr)
	assert.Nil(t, stat.LastOK)
}

func TestGiveUpKeepsPriorSuccess(t *testing.T) {
	p := &fakeProvider{alwaysFail: true}
	s, store := newTestScheduler(t, &config.AppConfig{}, []provider.Entry{
		{Key: "cf", TTL: 60, Provider: p},
	})
	s.strategies = []detector.Strategy{&stubStrategy{ip: "203.0.113.5"}}

	earlier := time.Now().Add(-time.Hour)
	store.SetProviderOK("cf", earlier)

	require.NoError(t, s.RunCycle(context.Background()))

	stat := store.Snapshot().Providers["cf"]
	assert.NotEmpty(t, stat.LastErr)
	require.NotNil(t, stat.LastOK, "give-up must not clear a prior success")
	assert.True(t, stat.LastOK.Equal(earlier))
}

func TestFailTwiceThenSucceed(t *testing.T) {
	p := &fakeProvider{failFirst: 2}
	s, store := newTestScheduler(t, &config.AppConfig{}, []provider.Entry{
		{Key: "cf", TTL: 60, Provider: p},
	})
	s.strategies = []detector.Strategy{&stubStrategy{ip: "203.0.113.5"}}

	require.NoError(t, s.RunCycle(context.Background()))

	assert.Equal(t, 3, p.attempts())
	stat := store.Snapshot().Providers["cf"]
	require.NotNil(t, stat.LastOK)
	assert.Empty(t, stat.LastErr)
}

func TestConcurrencyLimitIsRespected(t *testing.T) {
	const limit = 2
	const providers = 6

	entries := make([]provider.Entry, 0, providers)
	fakes := make([]*fakeProvider, 0, providers)
	for i := 0; i < providers; i++ {
		f := &fakeProvider{delay: 20 * time.Millisecond}
		fakes = append(fakes, f)
		entries = append(entries, provider.Entry{Key: string(rune('a' + i)), TTL: 60, Provider: f})
	}

	cfg := &config.AppConfig{Scheduler: config.SchedulerCfg{Concurrency: limit}}
	s, _ := newTestScheduler(t, cfg, entries)
	s.strategies = []detector.Strategy{&stubStrategy{ip: "203.0.113.5"}}

	require.NoError(t, s.RunCycle(context.Background()))

	for _, f := range fakes {
		assert.LessOrEqual(t, f.maxSeen.Load(), int32(limit),
			"no more than %d upserts may run simultaneously", limit)
	}
}

func TestFailureIsolationBetweenProviders(t *testing.T) {
	failing := &fakeProvider{alwaysFail: true}
	succeeding := &fakeProvider{}

	cfg := &config.AppConfig{Scheduler: config.SchedulerCfg{Concurrency: 1}}
	s, store := newTestScheduler(t, cfg, []provider.Entry{
		{Key: "bad", TTL: 60, Provider: failing},
		{Key: "good", TTL: 60, Provider: succeeding},
	})
	s.strategies = []detector.Strategy{&stubStrategy{ip: "203.0.113.5"}}

	require.NoError(t, s.RunCycle(context.Background()))

	assert.Equal(t, MaxRetry+1, failing.attempts())
	assert.Equal(t, 1, succeeding.attempts())

	snap := store.Snapshot()
	assert.NotEmpty(t, snap.Providers["bad"].LastErr)
	assert.Nil(t, snap.Providers["bad"].LastOK)
	require.NotNil(t, snap.Providers["good"].LastOK)
	assert.Empty(t, snap.Providers["good"].LastErr)
}

func TestNextTickComputedInCronMode(t *testing.T) {
	cfg := &config.AppConfig{Scheduler: config.SchedulerCfg{Cron: "*/5 * * * *"}}
	s, store := newTestScheduler(t, cfg, []provider.Entry{
		{Key: "cf", TTL: 60, Provider: &fakeProvider{}},
	})
	s.strategies = []detector.Strategy{&stubStrategy{ip: "203.0.113.5"}}

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.RunCycle(context.Background()))

	snap := store.Snapshot()
	require.NotNil(t, snap.NextTick)
	assert.True(t, snap.NextTick.After(fixed), "next tick is strictly after now")
	assert.Equal(t, time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC), snap.NextTick.UTC())
}

func TestRunOneShotPropagatesDetectionFailure(t *testing.T) {
	s, _ := newTestScheduler(t, &config.AppConfig{}, nil)
	s.strategies = []detector.Strategy{&stubStrategy{err: errors.New("down")}}

	err := s.Run(context.Background())
	assert.Error(t, err)
}

func TestRunCronStopsOnCancel(t *testing.T) {
	cfg := &config.AppConfig{Scheduler: config.SchedulerCfg{Cron: "* * * * *"}}
	s, _ := newTestScheduler(t, cfg, nil)
	s.strategies = []detector.Strategy{&stubStrategy{ip: "203.0.113.5"}}
	s.sleep = sleepCtx // real context-aware sleep

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a clean shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func TestStatusEventsPublished(t *testing.T) {
	store := status.NewStore()
	bus := events.NewBroker()
	bus.Start()
	defer bus.Stop()

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	s, err := New(&config.AppConfig{}, []provider.Entry{
		{Key: "cf", TTL: 60, Provider: &fakeProvider{}},
	}, store, bus)
	require.NoError(t, err)
	s.strategies = []detector.Strategy{&stubStrategy{ip: "203.0.113.5"}}

	require.NoError(t, s.RunCycle(context.Background()))

	var sawStatus, sawLog bool
	timeout := time.After(2 * time.Second)
	for !(sawStatus && sawLog) {
		select {
		case ev := <-sub:
			switch ev.Type {
			case events.EventStatus:
				sawStatus = true
			case events.EventLog:
				sawLog = true
			}
		case <-timeout:
			t.Fatal("expected status and log events after a cycle")
		}
	}
}
