package status

import (
	"sync"
	"time"
)

// ProviderStat records the most recent outcome for one provider. LastOK
// and LastErr are independent: a failed cycle sets LastErr without
// clearing the previous LastOK, while a success clears LastErr.
type ProviderStat struct {
	LastOK  *time.Time `json:"last_ok"`
	LastErr string     `json:"last_err,omitempty"`
}

// AppStatus is the canonical point-in-time snapshot served to the
// dashboard. CurrentIP is empty until the first successful detection;
// NextTick is nil in one-shot mode.
type AppStatus struct {
	Now       time.Time               `json:"now"`
	NextTick  *time.Time              `json:"next_tick"`
	CurrentIP string                  `json:"current_ip,omitempty"`
	Providers map[string]ProviderStat `json:"providers"`
}

// Store holds the shared application status behind a read/write lock.
// All mutations are short field assignments; no I/O happens under the
// lock. Readers receive value copies and may never observe later writes.
type Store struct {
	mu sync.RWMutex
	st AppStatus
}

// NewStore creates an empty status store
func NewStore() *Store {
	return &Store{
		st: AppStatus{
			Providers: make(map[string]ProviderStat),
		},
	}
}

// Seed pre-creates a zero-value entry for every provider key so that
// readers always see the full provider set, even before the first cycle.
func (s *Store) Seed(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		if _, ok := s.st.Providers[k]; !ok {
			s.st.Providers[k] = ProviderStat{}
		}
	}
}

// Snapshot returns an immutable copy of the current status. The provider
// map is copied; ProviderStat values are plain values, so mutating the
// store afterwards cannot change a previously returned snapshot.
func (s *Store) Snapshot() AppStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.st
	out.Providers = make(map[string]ProviderStat, len(s.st.Providers))
	for k, v := range s.st.Providers {
		out.Providers[k] = v
	}
	return out
}

// SetDetected records a successful IP detection and the next scheduled
// run time (nil when running one-shot).
func (s *Store) SetDetected(ip string, now time.Time, next *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.Now = now
	s.st.CurrentIP = ip
	s.st.NextTick = next
}

// SetProviderOK records a successful upsert and clears any stored error
func (s *Store) SetProviderOK(key string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.st.Providers[key]
	ok := t
	ent.LastOK = &ok
	ent.LastErr = ""
	s.st.Providers[key] = ent
}

// SetProviderErr records a terminal failure for this cycle. The previous
// success timestamp, if any, is left untouched.
func (s *Store) SetProviderErr(key, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.st.Providers[key]
	ent.LastErr = msg
	s.st.Providers[key] = ent
}
