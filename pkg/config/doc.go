// Package config loads and validates the ddnsd configuration.
//
// Configuration comes from two sources, merged in this order (later wins):
//
//  1. A YAML file (default ddns.yaml), optional. When it is absent the
//     daemon runs in environment-only mode.
//  2. DDNS_* environment variables.
//
// # File Format
//
//	scheduler:
//	  cron: "0 */5 * * * *"   # optional; omit to run exactly once
//	  concurrency: 4          # max concurrent provider updates
//
//	detect:
//	  - kind: http
//	    url: https://api.ipify.org
//	    timeout: 3000         # milliseconds
//	    priority: 10          # lower runs first, default 100
//	  - kind: interface
//	    iface: eth0
//	  - kind: command
//	    cmd: "dig +short myip.opendns.com @resolver1.opendns.com"
//
//	provider:
//	  - kind: cloudflare
//	    zone: example.com
//	    record: home
//	    token: cf-api-token
//	  - kind: aliyun
//	    zone: example.cn
//	    record: home
//	    access_key: AK
//	    access_secret: SK
//
//	http:
//	  listen: 0.0.0.0:8080
//	  intranet_only: true
//	  jwt_secret: change-me
//	  auth:
//	    username: admin
//	    password: secret
//
// # Environment Overrides
//
// Scalars map the file layout with underscores:
//
//	DDNS_HTTP_LISTEN=127.0.0.1:9090
//	DDNS_SCHEDULER_CRON="*/5 * * * *"
//
// Array sections are index-encoded and, when any matching variable is set,
// replace the file's list entirely:
//
//	DDNS_PROVIDER_0_KIND=cloudflare
//	DDNS_PROVIDER_0_ZONE=example.com
//	DDNS_PROVIDER_0_RECORD=home
//	DDNS_PROVIDER_0_TOKEN=cf-api-token
//
// # Validation
//
// Load fails when a provider is missing kind/zone/record, when two providers
// share a display key (alias, else kind), when a detect entry is missing its
// kind-specific field, or when the cron expression does not parse. These are
// startup-fatal: the daemon refuses to run with a partial provider set.
package config
