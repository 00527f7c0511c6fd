package adminapi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishFansOutToSubscribers(t *testing.T) {
	h := NewHub()
	c1, unsub1 := h.subscribe()
	defer unsub1()
	c2, unsub2 := h.subscribe()
	defer unsub2()

	h.Publish(Event{Kind: EventAgentCreated, AgentID: "a1"})

	for _, c := range []chan []byte{c1, c2} {
		select {
		case payload := <-c:
			var evt Event
			require.NoError(t, json.Unmarshal(payload, &evt))
			assert.Equal(t, EventAgentCreated, evt.Kind)
			assert.Equal(t, "a1", evt.AgentID)
			assert.False(t, evt.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub()
	_, unsub := h.subscribe()
	unsub()
	assert.Equal(t, 0, h.Subscribers())

	h.Publish(Event{Kind: EventAgentDisposed})
}

func TestHubSubscribersCounts(t *testing.T) {
	h := NewHub()
	assert.Equal(t, 0, h.Subscribers())
	_, unsub := h.subscribe()
	assert.Equal(t, 1, h.Subscribers())
	unsub()
	assert.Equal(t, 0, h.Subscribers())
}
