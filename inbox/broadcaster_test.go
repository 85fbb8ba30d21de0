package inbox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBroadcaster_PublishReachesOnlyRecipient(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())

	bobID, bobEvents := b.Subscribe("bob")
	defer b.Unsubscribe(bobID)
	carolID, carolEvents := b.Subscribe("carol")
	defer b.Unsubscribe(carolID)

	n := b.Publish("bob", Event{Name: EventMessage, Data: "hi"})
	assert.Equal(t, 1, n)

	select {
	case ev := <-bobEvents:
		assert.Equal(t, "hi", ev.Data)
	default:
		t.Fatal("bob did not receive the event")
	}
	assert.Empty(t, carolEvents)
}

func TestBroadcaster_PublishWithoutSubscribers(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	assert.Equal(t, 0, b.Publish("nobody", Event{Data: "x"}))
}

func TestBroadcaster_FullStreamDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	id, _ := b.Subscribe("bob")
	defer b.Unsubscribe(id)

	for i := 0; i < subscriberBuffer; i++ {
		require.Equal(t, 1, b.Publish("bob", Event{Data: "x"}))
	}
	assert.Equal(t, 0, b.Publish("bob", Event{Data: "overflow"}))
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	id, events := b.Subscribe("bob")
	require.Equal(t, 1, b.Subscribers("bob"))

	b.Unsubscribe(id)
	b.Unsubscribe(id) // unknown id is a no-op

	_, open := <-events
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers("bob"))
}

func TestEvent_WriteTo(t *testing.T) {
	var buf bytes.Buffer
	_, err := Event{Name: "message", Data: "line one\nline two"}.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "event: message\ndata: line one\ndata: line two\n\n", buf.String())

	buf.Reset()
	ev, err := NewJSONEvent("message", map[string]int{"id": 7})
	require.NoError(t, err)
	_, err = ev.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "event: message\ndata: {\"id\":7}\n\n", buf.String())
}

func TestBroadcaster_CloseEndsStreams(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	id, events := b.Subscribe("bob")

	b.Close()
	b.Close()
	_, open := <-events
	assert.False(t, open)

	b.Unsubscribe(id) // already gone

	_, late := b.Subscribe("bob")
	_, open = <-late
	assert.False(t, open)
	assert.Equal(t, 0, b.Publish("bob", Event{Data: "x"}))
}
