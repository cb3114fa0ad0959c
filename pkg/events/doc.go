/*
Package events provides the in-memory event broker for ddnsd's pub/sub
notifications.

The scheduler publishes two kinds of events: status-changed (carrying a
full status snapshot) and log lines. The dashboard subscribes and relays
them to browsers over SSE and WebSocket. Events are a best-effort,
derived notification stream — the status store remains the single source
of truth, so losing an event only delays a refresh.

# Delivery Semantics

Publishing never blocks and never fails, even with zero subscribers:

  - the main channel is bounded (1024); if the distribution loop is that
    far behind, new events are dropped at the door
  - each subscriber channel is bounded (64); when a subscriber lags, its
    oldest buffered event is discarded to make room for the newest

Every event carries a monotonically increasing sequence number. A
subscriber that sees a gap between consecutive Seq values has missed
events and should re-fetch the authoritative snapshot rather than treat
the gap as an error.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.PublishLog("detected IP 203.0.113.5")

	for ev := range sub {
		// handle ev
	}
*/
package events
