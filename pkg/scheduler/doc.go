/*
Package scheduler is the update-orchestration engine of ddnsd.

It drives detect-then-update cycles either exactly once (no cron
expression configured) or on a cron schedule, and fans each detected IP
out to every configured DNS provider with bounded concurrency,
independent per-provider retries and full failure isolation.

# Cycle

	Idle → Detecting → UpdatingProviders → Idle

 1. Detect the public IP. On failure the cycle ends early: nothing is
    updated, the error is logged, and the next occurrence retries from
    scratch. This is a recoverable condition, never a crash.
 2. On success, atomically record the IP and the next scheduled
    occurrence in the status store, then broadcast status-changed and
    log events.
 3. Update every provider concurrently, bounded by a shared weighted
    semaphore (default 4 slots), and wait for all of them. A provider's
    failure never aborts its siblings or the cycle.

# Retry and Backoff

Each provider retries independently up to MaxRetry times with
exponential backoff (BackoffBase << attempt: 10s, 20s, 40s, 80s, 160s).
The semaphore slot is held only while the upsert call is in flight;
backoff sleeps hold no slot, so a provider waiting out a backoff never
blocks others. After the ceiling, the error is recorded in status for
this cycle only — a prior success timestamp is left intact — and the
provider is retried fresh on the next cycle.

Within one provider the attempts are strictly sequential. Across
providers, updates interleave arbitrarily under the concurrency limit,
so a status snapshot read mid-cycle may mix updated and not-yet-updated
entries; the store documents this as an accepted property.

# Overlap Policy

At most one cycle runs at a time by construction: the cron loop computes
the next occurrence only after the current cycle returns, so an
occurrence that fires while a cycle is still updating providers is
skipped rather than queued or overlapped.

# Shutdown

Run honors context cancellation cooperatively: between cycles, during
inter-occurrence waits, during backoff sleeps and while waiting for a
semaphore slot. Cancellation is a clean stop, not an error.
*/
package scheduler
