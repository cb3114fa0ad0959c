/*
Package api serves the ddnsd dashboard and its JSON/streaming API.

The server is a pure consumer of the rest of the daemon: it reads the
status.Store, subscribes to the events.Broker, and exposes the
Prometheus registry. It never triggers detection or provider updates.

# Routes

	GET  /            embedded dashboard page
	GET  /login       embedded login page
	POST /api/login   exchange credentials for a JWT
	GET  /api/status  current AppStatus snapshot as JSON
	GET  /api/events  event stream as Server-Sent Events
	GET  /api/ws      event stream over WebSocket
	GET  /metrics     Prometheus exposition

# Access Control

Two middlewares gate every route. The intranet guard (on by default)
rejects requests whose source address is not loopback or RFC 1918
private with 403 — the dashboard is meant for the operator's LAN, not
the open internet. The auth guard checks for a JWT in the Authorization
Bearer header or the ddns_token cookie; it is bypassed entirely when no
auth block is configured, and always skips /login, /api/login, and
/metrics. Browser clients (Accept: text/html) are redirected to /login
instead of receiving a bare 401.

# Streaming

Both /api/events and /api/ws attach one broker subscription per client
and relay every event verbatim. Delivery is lossy under sustained
backpressure (see package events); clients detect gaps through the Seq
field and recover by refetching /api/status.
*/
package api
