/*
Package status holds the shared runtime status of ddnsd.

The Store is the single source of truth for what the daemon currently
knows: the last detected public IP, the next scheduled run, and the
latest per-provider outcome. The scheduler writes to it; the dashboard
and tests read from it.

# Read/Write Discipline

All writes are short lock-held field assignments — no network or disk
I/O ever happens while the write lock is held. Readers call Snapshot()
and receive a value copy with its own provider map; a snapshot is a
fixed point in time and is never affected by later writes.

Because provider updates complete independently, a snapshot taken
mid-cycle may mix already-updated and not-yet-updated provider entries.
That is an accepted eventual-consistency property: each ProviderStat is
updated atomically, and the next status-changed event prompts readers
to fetch a fresh snapshot.

# Provider Entries

Provider keys are seeded at startup, before the first cycle, so that a
dashboard never sees a missing key. Within one entry, LastOK and
LastErr do not invalidate each other: a failure records LastErr while
keeping the previous LastOK, and a success clears LastErr.
*/
package status
