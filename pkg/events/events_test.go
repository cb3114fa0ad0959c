package events

import (
	"testing"
	"time"

	"github.com/cloudspire/ddnsd/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitEvent(t *testing.T, sub Subscriber) *Event {
	t.Helper()
	select {
	case ev := <-sub:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishAndSubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.PublishLog("hello")

	ev := waitEvent(t, sub)
	assert.Equal(t, EventLog, ev.Type)
	assert.Equal(t, "hello", ev.Message)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestStatusEventCarriesSnapshot(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	snap := status.AppStatus{CurrentIP: "203.0.113.5"}
	b.PublishStatus(snap)

	ev := waitEvent(t, sub)
	assert.Equal(t, EventStatus, ev.Type)
	require.NotNil(t, ev.Status)
	assert.Equal(t, "203.0.113.5", ev.Status.CurrentIP)
}

func TestPublishWithZeroSubscribersDoesNotBlock(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultBuffer*2; i++ {
			b.PublishLog("noop")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked with zero subscribers")
	}
}

func TestSeqIsMonotonic(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	for i := 0; i < 5; i++ {
		b.PublishLog("n")
	}

	var last uint64
	for i := 0; i < 5; i++ {
		ev := waitEvent(t, sub)
		assert.Greater(t, ev.Seq, last)
		last = ev.Seq
	}
}

func TestLaggingSubscriberDropsOldest(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	// Overflow the subscriber buffer without consuming.
	total := subscriberBuffer * 3
	for i := 0; i < total; i++ {
		b.PublishLog("n")
	}

	// Give the distribution loop time to drain the main channel.
	deadline := time.Now().Add(2 * time.Second)
	for len(sub) < subscriberBuffer && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	first := waitEvent(t, sub)
	// The oldest events were discarded, so the first delivered event has
	// a sequence gap the subscriber can detect.
	assert.Greater(t, first.Seq, uint64(1))

	// Everything still delivered afterwards stays in order.
	prev := first.Seq
	for len(sub) > 0 {
		ev := <-sub
		assert.Greater(t, ev.Seq, prev)
		prev = ev.Seq
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	assert.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub
	assert.False(t, open)

	// double unsubscribe is a no-op
	b.Unsubscribe(sub)
}
