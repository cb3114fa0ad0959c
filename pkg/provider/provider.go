package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudspire/ddnsd/pkg/config"
)

// RecordType is the DNS record type managed by a provider
type RecordType string

const (
	A    RecordType = "A"
	AAAA RecordType = "AAAA"
)

// ParseRecordType maps a config string to a RecordType; anything that is
// not AAAA (case-insensitive) is treated as A.
func ParseRecordType(s string) RecordType {
	if strings.EqualFold(s, string(AAAA)) {
		return AAAA
	}
	return A
}

// ErrUnknownKind is returned for an unrecognized provider kind
var ErrUnknownKind = errors.New("unknown provider kind")

// APIError is a vendor-rejected request, as opposed to a transport-level
// failure. Both are retryable as far as the scheduler is concerned; the
// distinction is kept for logs and vendor-specific handling.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error: %s", e.Message)
}

// Provider is the narrow contract a DNS vendor client must satisfy. The
// scheduler is polymorphic over this interface and never inspects
// vendor-specific state. Implementations are constructed once at startup
// and reused for every cycle; they may cache vendor-side identifiers
// (zone ID, record ID) across calls, but must tolerate sequential reuse
// across cycles.
type Provider interface {
	// Name returns a human-readable vendor name
	Name() string

	// Zone returns the configured DNS zone
	Zone() string

	// Record returns the configured record name within the zone
	Record() string

	// RecordType returns the managed record type (A or AAAA)
	RecordType() RecordType

	// Upsert creates the record with the given address if absent, or
	// updates it if present.
	Upsert(ctx context.Context, zone, record string, rtype RecordType, ip string, ttl int) error
}

// Entry pairs a provider with its status display key and record TTL.
// Entries are built once at startup and shared, read-only, by every
// scheduler cycle.
type Entry struct {
	Key      string
	TTL      int
	Provider Provider
}

// New constructs a provider from its configuration, failing fast when
// the kind is unrecognized or required credentials are missing.
func New(cfg config.ProviderCfg) (Provider, error) {
	switch strings.ToLower(cfg.Kind) {
	case "cloudflare":
		return newCloudflare(cfg)
	case "aliyun":
		return newAliyun(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// Entries constructs the full provider set from configuration. Any
// construction failure aborts startup; the daemon never runs with a
// partially configured provider set.
func Entries(cfgs []config.ProviderCfg) ([]Entry, error) {
	out := make([]Entry, 0, len(cfgs))
	seen := make(map[string]bool, len(cfgs))
	for i, cfg := range cfgs {
		key := cfg.DisplayKey()
		if seen[key] {
			return nil, fmt.Errorf("provider[%d]: duplicate display key %q", i, key)
		}
		seen[key] = true

		p, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("provider[%d] (%s): %w", i, key, err)
		}
		out = append(out, Entry{Key: key, TTL: cfg.TTL, Provider: p})
	}
	return out, nil
}

// fqdn joins a record name with its zone; "@" addresses the zone apex
func fqdn(record, zone string) string {
	if record == "@" || record == "" {
		return zone
	}
	return record + "." + zone
}
