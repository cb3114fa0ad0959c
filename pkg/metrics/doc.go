/*
Package metrics exposes Prometheus metrics for ddnsd.

Collectors are package-level variables registered once at startup via
Register() and scraped from the dashboard's /metrics endpoint.

Exposed metrics:

	ddnsd_cycles_total              counter  update cycles started
	ddnsd_detect_failures_total     counter  cycles with no usable IP
	ddnsd_detect_duration_seconds   histogram detection latency
	ddnsd_provider_updates_total    counter  outcomes by provider/result
	ddnsd_provider_retries_total    counter  retries by provider
	ddnsd_api_requests_total        counter  API requests by path/code
*/
package metrics
