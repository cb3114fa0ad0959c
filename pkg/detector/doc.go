/*
Package detector discovers the host's current public IP address.

Three strategy kinds are supported:

  - http: GET an external echo endpoint and use the trimmed body
  - interface: read the first IPv4 address bound to a named interface
  - command: run a shell command and use its trimmed standard output

Strategies are ordered by a configured priority (default 100, lower runs
first; ties keep declaration order) and tried one at a time. The first
strategy returning a non-error, non-empty address wins and the rest are
skipped. Each attempt may carry its own timeout; a timed-out attempt is
abandoned, never the process.

There are no retries inside a strategy. When every strategy fails,
Detect returns an error wrapping ErrAllFailed along with each
per-strategy reason, and the caller decides what to do with the cycle —
typically log it and wait for the next trigger.

# Usage

	strategies := detector.Build(cfg.Detect)
	ip, err := detector.Detect(ctx, strategies)
	if err != nil {
		// all strategies failed; recoverable, retry next cycle
	}
*/
package detector
