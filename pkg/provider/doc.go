/*
Package provider defines the DNS vendor contract and its implementations.

The scheduler treats every vendor as one narrow capability: identity
accessors (name, zone, record, record type) plus a single Upsert
operation with create-or-update semantics. Vendor-specific behavior —
request signing, identifier caching, error mapping — stays inside the
implementation and is invisible to the orchestrator.

# Supported Vendors

  - cloudflare: v4 API via the official Go client, API-token auth
  - aliyun: Alibaba Cloud DNS RPC API, AccessKey/Secret HMAC-SHA1 signing

Both cache the vendor-side zone and record identifiers after the first
lookup. A provider instance is constructed once at startup and reused
for every cycle; its retry loop is sequential, so caches only need to
tolerate sequential reuse.

# Error Classification

Vendor rejections surface as *APIError (with the vendor's error code
where available); everything else is a transport-level failure wrapped
with context. The scheduler retries both kinds identically — the
classification exists for logs and provider-internal decisions such as
treating Aliyun's DomainRecordDuplicate as a successful no-op.

# Construction

Providers are built from configuration via Entries, which fails fast on
an unknown kind, missing credentials, or a duplicate display key. A
construction failure aborts startup: the daemon never runs with a
partially configured provider set.
*/
package provider
