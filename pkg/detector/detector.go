package detector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cloudspire/ddnsd/pkg/config"
	"github.com/cloudspire/ddnsd/pkg/log"
)

// ErrAllFailed is returned when every configured strategy failed
var ErrAllFailed = errors.New("all detect strategies failed")

// Strategy is one configured way of discovering the current public IP
type Strategy interface {
	// Kind returns the strategy kind ("http", "interface", "command")
	Kind() string

	// Describe returns the strategy's target (URL, interface name or
	// command) for log lines
	Describe() string

	// Detect attempts to discover the current public address. It must
	// honor ctx cancellation and return a non-empty address on success.
	Detect(ctx context.Context) (string, error)
}

// Build constructs strategies from configuration, ordered by priority
// ascending. The sort is stable: entries with equal priority keep their
// declaration order.
func Build(cfgs []config.DetectCfg) []Strategy {
	sorted := make([]config.DetectCfg, len(cfgs))
	copy(sorted, cfgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectivePriority() < sorted[j].EffectivePriority()
	})

	out := make([]Strategy, 0, len(sorted))
	for _, c := range sorted {
		timeout := time.Duration(c.Timeout) * time.Millisecond
		switch c.Kind {
		case "http":
			out = append(out, &HTTPStrategy{URL: c.URL, Timeout: timeout})
		case "interface":
			out = append(out, &InterfaceStrategy{Name: c.Iface})
		case "command":
			out = append(out, &CommandStrategy{Cmd: c.Cmd, Timeout: timeout})
		}
	}
	return out
}

// Detect tries each strategy in order and returns the first successful
// non-empty address. A strategy failure only falls through to the next
// strategy; if every strategy fails the aggregate error wraps
// ErrAllFailed together with each per-strategy reason.
func Detect(ctx context.Context, strategies []Strategy) (string, error) {
	if len(strategies) == 0 {
		return "", fmt.Errorf("%w: no strategies configured", ErrAllFailed)
	}

	errs := make([]error, 0, len(strategies))
	for _, s := range strategies {
		logger := log.WithStrategy(s.Kind())
		ip, err := s.Detect(ctx)
		if err != nil {
			logger.Debug().
				Str("target", s.Describe()).
				Err(err).
				Msg("strategy failed")
			errs = append(errs, fmt.Errorf("%s %s: %w", s.Kind(), s.Describe(), err))
			continue
		}
		if ip == "" {
			errs = append(errs, fmt.Errorf("%s %s: empty address", s.Kind(), s.Describe()))
			continue
		}
		logger.Info().
			Str("target", s.Describe()).
			Str("ip", ip).
			Msg("detected address")
		return ip, nil
	}
	return "", fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}
