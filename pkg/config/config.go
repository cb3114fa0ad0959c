package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Defaults applied while loading.
const (
	DefaultListen      = "0.0.0.0:8080"
	DefaultJWTSecret   = "dev_only_change_me"
	DefaultTokenTTLSec = 24 * 60 * 60
	DefaultConcurrency = 4
	DefaultRecordType  = "A"
	DefaultTTL         = 60
	DefaultPriority    = 100
)

// CronParser accepts standard five-field expressions with an optional
// leading seconds field.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// DetectCfg configures one IP detection strategy. Kind selects the
// strategy; the other fields are interpreted per kind.
type DetectCfg struct {
	// Kind is one of "http", "interface" or "command"
	Kind string `yaml:"kind"`

	// URL is the endpoint queried by the http strategy
	URL string `yaml:"url,omitempty"`

	// Iface is the network interface name read by the interface strategy
	Iface string `yaml:"iface,omitempty"`

	// Cmd is the shell command run by the command strategy
	Cmd string `yaml:"cmd,omitempty"`

	// Timeout bounds a single attempt, in milliseconds; 0 means none
	Timeout int64 `yaml:"timeout,omitempty"`

	// Priority orders strategies, lower first; nil means DefaultPriority
	Priority *int `yaml:"priority,omitempty"`
}

// EffectivePriority returns the configured priority or the default
func (d DetectCfg) EffectivePriority() int {
	if d.Priority != nil {
		return *d.Priority
	}
	return DefaultPriority
}

// ProviderCfg configures one DNS provider
type ProviderCfg struct {
	Kind   string `yaml:"kind"`
	Zone   string `yaml:"zone"`
	Record string `yaml:"record"`

	// Alias overrides the status display key; defaults to Kind
	Alias      string `yaml:"alias,omitempty"`
	RecordType string `yaml:"record_type,omitempty"`
	TTL        int    `yaml:"ttl,omitempty"`

	// cloudflare
	Token string `yaml:"token,omitempty"`
	// aliyun
	AccessKey    string `yaml:"access_key,omitempty"`
	AccessSecret string `yaml:"access_secret,omitempty"`
	Region       string `yaml:"region,omitempty"`
}

// DisplayKey returns the key that identifies this provider in status
// output: the alias when set, otherwise the kind.
func (p ProviderCfg) DisplayKey() string {
	if p.Alias != "" {
		return p.Alias
	}
	return p.Kind
}

// SchedulerCfg configures cycle scheduling
type SchedulerCfg struct {
	// Cron expression; empty means run exactly once
	Cron string `yaml:"cron,omitempty"`
	// Concurrency is the max concurrent provider updates
	Concurrency int `yaml:"concurrency,omitempty"`
}

// AuthCfg enables dashboard login when present
type AuthCfg struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HTTPCfg configures the dashboard server
type HTTPCfg struct {
	Listen       string   `yaml:"listen,omitempty"`
	IntranetOnly *bool    `yaml:"intranet_only,omitempty"`
	JWTSecret    string   `yaml:"jwt_secret,omitempty"`
	TokenTTLSec  int64    `yaml:"token_ttl_sec,omitempty"`
	Auth         *AuthCfg `yaml:"auth,omitempty"`
}

// IntranetGuard reports whether the private-network guard is enabled
// (the default when unset).
func (h HTTPCfg) IntranetGuard() bool {
	return h.IntranetOnly == nil || *h.IntranetOnly
}

// AppConfig is the merged, validated configuration consumed by the
// scheduler and dashboard. It is immutable after Load returns.
type AppConfig struct {
	HTTP      HTTPCfg       `yaml:"http"`
	Scheduler SchedulerCfg  `yaml:"scheduler"`
	Detect    []DetectCfg   `yaml:"detect"`
	Provider  []ProviderCfg `yaml:"provider"`
}

// Load reads the YAML config file at path (skipped when absent), applies
// DDNS_* environment overrides and validates the result.
//
// Environment precedence mirrors the file layout:
//   - scalars: DDNS_HTTP_LISTEN, DDNS_SCHEDULER_CRON, ...
//   - arrays:  DDNS_DETECT_0_KIND, DDNS_PROVIDER_1_ZONE, ... replace the
//     file's detect/provider lists wholesale when any are present
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// environment-only mode
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	applyScalarEnv(cfg)
	if detect := collectDetectEnv(); detect != nil {
		cfg.Detect = detect
	}
	if provider := collectProviderEnv(); provider != nil {
		cfg.Provider = provider
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = DefaultListen
	}
	if cfg.HTTP.JWTSecret == "" {
		cfg.HTTP.JWTSecret = DefaultJWTSecret
	}
	if cfg.HTTP.TokenTTLSec <= 0 {
		cfg.HTTP.TokenTTLSec = DefaultTokenTTLSec
	}
	if cfg.Scheduler.Concurrency <= 0 {
		cfg.Scheduler.Concurrency = DefaultConcurrency
	}
	for i := range cfg.Provider {
		if cfg.Provider[i].RecordType == "" {
			cfg.Provider[i].RecordType = DefaultRecordType
		}
		if cfg.Provider[i].TTL <= 0 {
			cfg.Provider[i].TTL = DefaultTTL
		}
	}
}

// Validate checks the configuration invariants that must hold before the
// scheduler starts. Violations are fatal at startup.
func (c *AppConfig) Validate() error {
	if c.Scheduler.Cron != "" {
		if _, err := CronParser.Parse(c.Scheduler.Cron); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", c.Scheduler.Cron, err)
		}
	}

	seen := make(map[string]bool)
	for i, p := range c.Provider {
		if p.Kind == "" {
			return fmt.Errorf("provider[%d]: kind is required", i)
		}
		if p.Zone == "" {
			return fmt.Errorf("provider[%d]: zone is required", i)
		}
		if p.Record == "" {
			return fmt.Errorf("provider[%d]: record is required", i)
		}
		key := p.DisplayKey()
		if seen[key] {
			return fmt.Errorf("provider[%d]: duplicate display key %q; set a unique alias", i, key)
		}
		seen[key] = true
	}

	for i, d := range c.Detect {
		switch d.Kind {
		case "http":
			if d.URL == "" {
				return fmt.Errorf("detect[%d]: url is required for kind http", i)
			}
		case "interface":
			if d.Iface == "" {
				return fmt.Errorf("detect[%d]: iface is required for kind interface", i)
			}
		case "command":
			if d.Cmd == "" {
				return fmt.Errorf("detect[%d]: cmd is required for kind command", i)
			}
		default:
			return fmt.Errorf("detect[%d]: unknown kind %q", i, d.Kind)
		}
	}
	return nil
}

const envPrefix = "DDNS_"

func applyScalarEnv(cfg *AppConfig) {
	if v, ok := os.LookupEnv("DDNS_HTTP_LISTEN"); ok {
		cfg.HTTP.Listen = v
	}
	if v, ok := os.LookupEnv("DDNS_HTTP_INTRANET_ONLY"); ok {
		b := strings.EqualFold(v, "true")
		cfg.HTTP.IntranetOnly = &b
	}
	if v, ok := os.LookupEnv("DDNS_HTTP_JWT_SECRET"); ok {
		cfg.HTTP.JWTSecret = v
	}
	if v, ok := os.LookupEnv("DDNS_HTTP_TOKEN_TTL_SEC"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.HTTP.TokenTTLSec = n
		}
	}
	if v, ok := os.LookupEnv("DDNS_HTTP_AUTH_USERNAME"); ok {
		if cfg.HTTP.Auth == nil {
			cfg.HTTP.Auth = &AuthCfg{}
		}
		cfg.HTTP.Auth.Username = v
	}
	if v, ok := os.LookupEnv("DDNS_HTTP_AUTH_PASSWORD"); ok {
		if cfg.HTTP.Auth == nil {
			cfg.HTTP.Auth = &AuthCfg{}
		}
		cfg.HTTP.Auth.Password = v
	}
	if v, ok := os.LookupEnv("DDNS_SCHEDULER_CRON"); ok {
		cfg.Scheduler.Cron = v
	}
	if v, ok := os.LookupEnv("DDNS_SCHEDULER_CONCURRENCY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.Concurrency = n
		}
	}
}

// envBucket is the set of FIELD=value pairs collected for one array index
type envBucket map[string]string

// collectIndexed gathers DDNS_<SECTION>_<idx>_<FIELD> variables into
// per-index buckets, ordered by index.
func collectIndexed(section string) []envBucket {
	prefix := envPrefix + strings.ToUpper(section) + "_"
	buckets := make(map[int]envBucket)

	for _, kv := range os.Environ() {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 || !strings.HasPrefix(kv[:eq], prefix) {
			continue
		}
		rest := kv[len(prefix):eq]
		us := strings.IndexByte(rest, '_')
		if us < 0 {
			continue
		}
		idx, err := strconv.Atoi(rest[:us])
		if err != nil {
			continue
		}
		field := strings.ToLower(rest[us+1:])
		if buckets[idx] == nil {
			buckets[idx] = make(envBucket)
		}
		buckets[idx][field] = kv[eq+1:]
	}

	if len(buckets) == 0 {
		return nil
	}
	idxs := make([]int, 0, len(buckets))
	for i := range buckets {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	out := make([]envBucket, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, buckets[i])
	}
	return out
}

func collectDetectEnv() []DetectCfg {
	buckets := collectIndexed("detect")
	if buckets == nil {
		return nil
	}
	out := make([]DetectCfg, 0, len(buckets))
	for _, b := range buckets {
		d := DetectCfg{
			Kind:  b["kind"],
			URL:   b["url"],
			Iface: b["iface"],
			Cmd:   b["cmd"],
		}
		if v, ok := b["timeout"]; ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				d.Timeout = n
			}
		}
		if v, ok := b["priority"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				d.Priority = &n
			}
		}
		out = append(out, d)
	}
	return out
}

func collectProviderEnv() []ProviderCfg {
	buckets := collectIndexed("provider")
	if buckets == nil {
		return nil
	}
	out := make([]ProviderCfg, 0, len(buckets))
	for _, b := range buckets {
		p := ProviderCfg{
			Kind:         b["kind"],
			Zone:         b["zone"],
			Record:       b["record"],
			Alias:        b["alias"],
			RecordType:   b["record_type"],
			Token:        b["token"],
			AccessKey:    b["access_key"],
			AccessSecret: b["access_secret"],
			Region:       b["region"],
		}
		if v, ok := b["ttl"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				p.TTL = n
			}
		}
		out = append(out, p)
	}
	return out
}
