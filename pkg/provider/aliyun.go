package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cloudspire/ddnsd/pkg/config"
	"github.com/cloudspire/ddnsd/pkg/log"
	"github.com/google/uuid"
)

const (
	aliyunEndpoint   = "https://alidns.aliyuncs.com/"
	aliyunAPIVersion = "2015-01-09"
	defaultRegion    = "cn-hangzhou"
)

// aliyunProvider manages one record through the Alibaba Cloud DNS API.
// Requests are signed with HMAC-SHA1 per the Aliyun RPC signature spec;
// a RAM sub-account with DNS read/write is sufficient. The domain ID and
// record ID are cached after first lookup.
type aliyunProvider struct {
	zone   string
	record string
	rtype  RecordType
	ttl    int

	accessKey    string
	accessSecret string
	region       string

	client   *http.Client
	endpoint string

	mu       sync.Mutex
	domainID string
	recordID string
}

func newAliyun(cfg config.ProviderCfg) (Provider, error) {
	if cfg.AccessKey == "" {
		return nil, errors.New("aliyun: access_key is required")
	}
	if cfg.AccessSecret == "" {
		return nil, errors.New("aliyun: access_secret is required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	return &aliyunProvider{
		zone:         cfg.Zone,
		record:       cfg.Record,
		rtype:        ParseRecordType(cfg.RecordType),
		ttl:          cfg.TTL,
		accessKey:    cfg.AccessKey,
		accessSecret: cfg.AccessSecret,
		region:       region,
		client:       &http.Client{Timeout: 30 * time.Second},
		endpoint:     aliyunEndpoint,
	}, nil
}

func (p *aliyunProvider) Name() string           { return "Aliyun" }
func (p *aliyunProvider) Zone() string           { return p.zone }
func (p *aliyunProvider) Record() string         { return p.record }
func (p *aliyunProvider) RecordType() RecordType { return p.rtype }

func (p *aliyunProvider) Upsert(ctx context.Context, zone, record string, rtype RecordType, ip string, ttl int) error {
	if err := p.ensureDomain(ctx); err != nil {
		return err
	}

	rid, err := p.ensureRecordID(ctx)
	if err != nil {
		return err
	}

	logger := log.WithProvider("aliyun")

	if rid != "" {
		_, err := p.call(ctx, "UpdateDomainRecord", map[string]string{
			"RecordId": rid,
			"RR":       p.record,
			"Type":     string(p.rtype),
			"Value":    ip,
			"TTL":      strconv.Itoa(p.ttl),
		})
		// DomainRecordDuplicate means the record already holds this
		// value; the upsert is a no-op, not a failure.
		var apiErr *APIError
		if err != nil && errors.As(err, &apiErr) && apiErr.Code == "DomainRecordDuplicate" {
			logger.Debug().Str("ip", ip).Msg("record already up to date")
			return nil
		}
		if err != nil {
			return fmt.Errorf("updating record: %w", err)
		}
		logger.Debug().Str("record_id", rid).Str("ip", ip).Msg("record updated")
		return nil
	}

	resp, err := p.call(ctx, "AddDomainRecord", map[string]string{
		"DomainName": p.zone,
		"RR":         p.record,
		"Type":       string(p.rtype),
		"Value":      ip,
		"TTL":        strconv.Itoa(p.ttl),
	})
	if err != nil {
		return fmt.Errorf("creating record: %w", err)
	}

	var created struct {
		RecordID string `json:"RecordId"`
	}
	if err := json.Unmarshal(resp, &created); err != nil {
		return fmt.Errorf("decoding create response: %w", err)
	}

	p.mu.Lock()
	p.recordID = created.RecordID
	p.mu.Unlock()
	logger.Info().Str("record_id", created.RecordID).Str("ip", ip).Msg("record created")
	return nil
}

func (p *aliyunProvider) ensureDomain(ctx context.Context) error {
	p.mu.Lock()
	if p.domainID != "" {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	resp, err := p.call(ctx, "DescribeDomainInfo", map[string]string{
		"DomainName": p.zone,
	})
	if err != nil {
		return fmt.Errorf("looking up zone %q: %w", p.zone, err)
	}

	var info struct {
		DomainID string `json:"DomainId"`
	}
	if err := json.Unmarshal(resp, &info); err != nil {
		return fmt.Errorf("decoding domain info: %w", err)
	}
	if info.DomainID == "" {
		return &APIError{Message: fmt.Sprintf("zone %q not found", p.zone)}
	}

	p.mu.Lock()
	p.domainID = info.DomainID
	p.mu.Unlock()
	return nil
}

func (p *aliyunProvider) ensureRecordID(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.recordID != "" {
		defer p.mu.Unlock()
		return p.recordID, nil
	}
	p.mu.Unlock()

	resp, err := p.call(ctx, "DescribeSubDomainRecords", map[string]string{
		"SubDomain": fqdn(p.record, p.zone),
		"Type":      string(p.rtype),
	})
	if err != nil {
		return "", fmt.Errorf("listing records: %w", err)
	}

	var records struct {
		DomainRecords struct {
			Record []struct {
				RecordID string `json:"RecordId"`
			} `json:"Record"`
		} `json:"DomainRecords"`
	}
	if err := json.Unmarshal(resp, &records); err != nil {
		return "", fmt.Errorf("decoding record list: %w", err)
	}
	if len(records.DomainRecords.Record) == 0 {
		return "", nil // absent; caller creates it
	}

	rid := records.DomainRecords.Record[0].RecordID
	p.mu.Lock()
	p.recordID = rid
	p.mu.Unlock()
	return rid, nil
}

// call issues one signed GET to the Aliyun RPC API and returns the raw
// response body; vendor rejections come back as *APIError.
func (p *aliyunProvider) call(ctx context.Context, action string, params map[string]string) ([]byte, error) {
	q := map[string]string{
		"Action":           action,
		"Format":           "JSON",
		"Version":          aliyunAPIVersion,
		"AccessKeyId":      p.accessKey,
		"SignatureMethod":  "HMAC-SHA1",
		"SignatureVersion": "1.0",
		"SignatureNonce":   uuid.New().String(),
		"Timestamp":        time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		"RegionId":         p.region,
	}
	for k, v := range params {
		q[k] = v
	}
	q["Signature"] = sign(q, p.accessSecret)

	values := url.Values{}
	for k, v := range q {
		values.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		}
		if json.Unmarshal(body, &failure) == nil && failure.Message != "" {
			return nil, &APIError{Code: failure.Code, Message: failure.Message}
		}
		return nil, &APIError{Message: fmt.Sprintf("unexpected status %s", resp.Status)}
	}
	return body, nil
}

// sign computes the Aliyun RPC HMAC-SHA1 request signature over the
// canonicalized query string.
func sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}
	canonical := strings.Join(pairs, "&")
	stringToSign := "GET&" + percentEncode("/") + "&" + percentEncode(canonical)

	mac := hmac.New(sha1.New, []byte(secret+"&"))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode escapes per RFC 3986 as the signature spec requires,
// which differs from QueryEscape in three characters.
func percentEncode(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	e = strings.ReplaceAll(e, "*", "%2A")
	e = strings.ReplaceAll(e, "%7E", "~")
	return e
}
