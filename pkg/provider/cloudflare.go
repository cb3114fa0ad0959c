package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudflare/cloudflare-go"
	"github.com/cloudspire/ddnsd/pkg/config"
	"github.com/cloudspire/ddnsd/pkg/log"
)

// cloudflareProvider manages one record through the Cloudflare v4 API.
// Auth is via API token (needs Zone:Read and DNS:Edit). The zone ID and
// record ID are cached after the first lookup to cut API calls; the
// retry loop for one provider is sequential, so a plain mutex suffices.
type cloudflareProvider struct {
	zone   string
	record string
	rtype  RecordType
	ttl    int
	api    *cloudflare.API

	mu       sync.Mutex
	zoneID   string
	recordID string
}

func newCloudflare(cfg config.ProviderCfg) (Provider, error) {
	if cfg.Token == "" {
		return nil, errors.New("cloudflare: token is required")
	}
	api, err := cloudflare.NewWithAPIToken(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: creating api client: %w", err)
	}
	return &cloudflareProvider{
		zone:   cfg.Zone,
		record: cfg.Record,
		rtype:  ParseRecordType(cfg.RecordType),
		ttl:    cfg.TTL,
		api:    api,
	}, nil
}

func (p *cloudflareProvider) Name() string           { return "Cloudflare" }
func (p *cloudflareProvider) Zone() string           { return p.zone }
func (p *cloudflareProvider) Record() string         { return p.record }
func (p *cloudflareProvider) RecordType() RecordType { return p.rtype }

func (p *cloudflareProvider) Upsert(ctx context.Context, zone, record string, rtype RecordType, ip string, ttl int) error {
	zid, err := p.ensureZoneID(ctx)
	if err != nil {
		return err
	}

	rid, err := p.ensureRecordID(ctx, zid)
	if err != nil {
		return err
	}

	logger := log.WithProvider("cloudflare")
	rc := cloudflare.ZoneIdentifier(zid)

	if rid != "" {
		_, err = p.api.UpdateDNSRecord(ctx, rc, cloudflare.UpdateDNSRecordParams{
			ID:      rid,
			Type:    string(p.rtype),
			Name:    fqdn(p.record, p.zone),
			Content: ip,
			TTL:     p.ttl,
			Proxied: cloudflare.BoolPtr(false),
		})
		if err != nil {
			return fmt.Errorf("updating record: %w", err)
		}
		logger.Debug().Str("record_id", rid).Str("ip", ip).Msg("record updated")
		return nil
	}

	created, err := p.api.CreateDNSRecord(ctx, rc, cloudflare.CreateDNSRecordParams{
		Type:    string(p.rtype),
		Name:    fqdn(p.record, p.zone),
		Content: ip,
		TTL:     p.ttl,
		Proxied: cloudflare.BoolPtr(false),
		Comment: "managed by ddnsd",
	})
	if err != nil {
		return fmt.Errorf("creating record: %w", err)
	}

	p.mu.Lock()
	p.recordID = created.ID
	p.mu.Unlock()
	logger.Info().Str("record_id", created.ID).Str("ip", ip).Msg("record created")
	return nil
}

func (p *cloudflareProvider) ensureZoneID(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.zoneID != "" {
		return p.zoneID, nil
	}
	zid, err := p.api.ZoneIDByName(p.zone)
	if err != nil {
		return "", fmt.Errorf("looking up zone %q: %w", p.zone, err)
	}
	p.zoneID = zid
	return zid, nil
}

func (p *cloudflareProvider) ensureRecordID(ctx context.Context, zid string) (string, error) {
	p.mu.Lock()
	if p.recordID != "" {
		defer p.mu.Unlock()
		return p.recordID, nil
	}
	p.mu.Unlock()

	records, _, err := p.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.ListDNSRecordsParams{
		Type: string(p.rtype),
		Name: fqdn(p.record, p.zone),
	})
	if err != nil {
		return "", fmt.Errorf("listing records: %w", err)
	}
	if len(records) == 0 {
		return "", nil // absent; caller creates it
	}

	p.mu.Lock()
	p.recordID = records[0].ID
	p.mu.Unlock()
	return records[0].ID, nil
}
