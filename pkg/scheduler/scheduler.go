package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudspire/ddnsd/pkg/config"
	"github.com/cloudspire/ddnsd/pkg/detector"
	"github.com/cloudspire/ddnsd/pkg/events"
	"github.com/cloudspire/ddnsd/pkg/log"
	"github.com/cloudspire/ddnsd/pkg/metrics"
	"github.com/cloudspire/ddnsd/pkg/provider"
	"github.com/cloudspire/ddnsd/pkg/status"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const (
	// MaxRetry is the retry ceiling per provider per cycle (attempts
	// total MaxRetry + 1)
	MaxRetry = 5

	// BackoffBase is the exponential backoff base; wait after attempt n
	// is BackoffBase << n, giving 10s, 20s, 40s, 80s, 160s
	BackoffBase = 5 * time.Second
)

// Scheduler runs detect-then-update cycles, either exactly once or on a
// cron schedule. At most one cycle is in flight at any time: the loop
// only computes the next occurrence after the current cycle returns, so
// an occurrence falling inside a long cycle is skipped, never queued.
type Scheduler struct {
	strategies []detector.Strategy
	entries    []provider.Entry
	sem        *semaphore.Weighted
	store      *status.Store
	bus        *events.Broker
	schedule   cron.Schedule // nil means one-shot
	logger     zerolog.Logger

	// injectable clock for deterministic backoff tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires a scheduler from validated configuration, pre-seeding the
// status store so every provider key is visible before the first cycle.
func New(cfg *config.AppConfig, entries []provider.Entry, store *status.Store, bus *events.Broker) (*Scheduler, error) {
	var schedule cron.Schedule
	if cfg.Scheduler.Cron != "" {
		var err error
		schedule, err = config.CronParser.Parse(cfg.Scheduler.Cron)
		if err != nil {
			return nil, fmt.Errorf("parsing cron expression %q: %w", cfg.Scheduler.Cron, err)
		}
	}

	concurrency := cfg.Scheduler.Concurrency
	if concurrency <= 0 {
		concurrency = config.DefaultConcurrency
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	store.Seed(keys)

	return &Scheduler{
		strategies: detector.Build(cfg.Detect),
		entries:    entries,
		sem:        semaphore.NewWeighted(int64(concurrency)),
		store:      store,
		bus:        bus,
		schedule:   schedule,
		logger:     log.WithComponent("scheduler"),
		now:        time.Now,
		sleep:      sleepCtx,
	}, nil
}

// Run drives the scheduler until ctx is cancelled. In one-shot mode it
// runs a single cycle and returns its detection error, if any, so the
// caller can exit non-zero. In cron mode it parks between occurrences
// and runs forever; per-cycle failures are logged, never returned.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.schedule == nil {
		return s.RunCycle(ctx)
	}

	s.logger.Info().Msg("cron schedule active")
	for {
		next := s.schedule.Next(s.now())
		if next.IsZero() {
			s.logger.Warn().Msg("cron schedule has no future occurrence; stopping")
			return nil
		}
		s.logger.Debug().Time("next", next).Msg("waiting for next occurrence")

		if err := s.sleep(ctx, next.Sub(s.now())); err != nil {
			return nil // cooperative shutdown
		}
		if err := s.RunCycle(ctx); err != nil {
			s.logger.Error().Err(err).Msg("cycle failed")
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// RunCycle performs one full detect-then-update pass. Detection failure
// ends the cycle early without touching provider state; individual
// provider failures are isolated and never propagate as a cycle error.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	metrics.CyclesTotal.Inc()

	start := s.now()
	ip, err := detector.Detect(ctx, s.strategies)
	metrics.DetectDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DetectFailuresTotal.Inc()
		s.logger.Error().Err(err).Msg("IP detection failed; skipping provider updates")
		return err
	}
	s.logger.Info().Str("ip", ip).Msg("detected public IP")

	now := s.now()
	s.store.SetDetected(ip, now, s.nextAfter(now))
	s.bus.PublishStatus(s.store.Snapshot())
	s.bus.PublishLog(fmt.Sprintf("detected IP %s", ip))

	var wg sync.WaitGroup
	for _, entry := range s.entries {
		wg.Add(1)
		go func(e provider.Entry) {
			defer wg.Done()
			s.retryUpdate(ctx, e, ip)
		}(entry)
	}
	wg.Wait()
	return nil
}

// nextAfter returns the first occurrence strictly after t, or nil in
// one-shot mode or when the schedule has no future occurrence.
func (s *Scheduler) nextAfter(t time.Time) *time.Time {
	if s.schedule == nil {
		return nil
	}
	next := s.schedule.Next(t)
	if next.IsZero() {
		return nil
	}
	return &next
}

// retryUpdate drives one provider through its per-cycle retry loop.
// Attempts are strictly sequential for a given provider. The concurrency
// slot is held only for the duration of the upsert call itself — backoff
// sleeps happen with no slot held, so a waiting provider never starves
// its siblings.
func (s *Scheduler) retryUpdate(ctx context.Context, entry provider.Entry, ip string) {
	p := entry.Provider
	logger := s.logger.With().Str("provider", entry.Key).Logger()

	attempt := 0
	for {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return // shutdown while waiting for a slot
		}
		err := p.Upsert(ctx, p.Zone(), p.Record(), p.RecordType(), ip, entry.TTL)
		s.sem.Release(1)

		if err == nil {
			s.store.SetProviderOK(entry.Key, s.now())
			metrics.ProviderUpdatesTotal.WithLabelValues(entry.Key, "ok").Inc()
			s.bus.PublishStatus(s.store.Snapshot())
			s.bus.PublishLog(fmt.Sprintf("%s OK", entry.Key))
			logger.Info().Str("ip", ip).Msg("record updated")
			return
		}

		if attempt < MaxRetry {
			attempt++
			metrics.ProviderRetriesTotal.WithLabelValues(entry.Key).Inc()
			wait := BackoffBase << attempt
			logger.Error().Err(err).
				Int("attempt", attempt).
				Int("max", MaxRetry).
				Dur("wait", wait).
				Msg("update failed; backing off")
			if s.sleep(ctx, wait) != nil {
				return // shutdown during backoff
			}
			continue
		}

		s.store.SetProviderErr(entry.Key, err.Error())
		metrics.ProviderUpdatesTotal.WithLabelValues(entry.Key, "given_up").Inc()
		s.bus.PublishStatus(s.store.Snapshot())
		s.bus.PublishLog(fmt.Sprintf("%s give up: %v", entry.Key, err))
		logger.Error().Err(err).Msg("retries exhausted; giving up until next cycle")
		return
	}
}

// sleepCtx waits for d or until ctx is cancelled
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
