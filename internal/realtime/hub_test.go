package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderUpdate(status string) Event {
	return Event{
		Table: "orders",
		Type:  Update,
		New:   []byte(`{"id":"o1","status":"` + status + `"}`),
	}
}

func TestHub_DeliversMatching(t *testing.T) {
	h := NewHub(nil, 4)

	updates, err := h.Subscribe("orders", Update)
	require.NoError(t, err)
	all, err := h.Subscribe("orders", Any)
	require.NoError(t, err)
	products, err := h.Subscribe("products", Update)
	require.NoError(t, err)

	h.Publish(orderUpdate("processing"))
	h.Publish(Event{Table: "orders", Type: Insert})

	require.Len(t, updates.C(), 1)
	assert.Equal(t, Update, (<-updates.C()).Type)
	assert.Len(t, all.C(), 2)
	assert.Empty(t, products.C())
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	h := NewHub(nil, 1)
	s, err := h.Subscribe("orders", Update)
	require.NoError(t, err)
	require.Equal(t, 1, h.Len())

	h.Unsubscribe(s)
	h.Unsubscribe(s)
	h.Unsubscribe(nil)

	assert.Zero(t, h.Len())
	_, ok := <-s.C()
	assert.False(t, ok, "channel is closed")

	// Publishing after unsubscribe must not panic on the closed channel.
	h.Publish(orderUpdate("completed"))
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	h := NewHub(nil, 1)
	s, err := h.Subscribe("orders", Update)
	require.NoError(t, err)

	h.Publish(orderUpdate("processing"))
	h.Publish(orderUpdate("completed"))
	h.Publish(orderUpdate("pending"))

	assert.Len(t, s.C(), 1)
	assert.Equal(t, int64(2), s.Dropped())

	got := <-s.C()
	status, ok := StringField(got.New, "status")
	require.True(t, ok)
	assert.Equal(t, "processing", status, "first event is kept")
}

func TestHub_Close(t *testing.T) {
	h := NewHub(nil, 0)
	s, err := h.Subscribe("orders", Any)
	require.NoError(t, err)

	h.Close()
	h.Close()

	_, ok := <-s.C()
	assert.False(t, ok)

	_, err = h.Subscribe("orders", Any)
	require.ErrorIs(t, err, ErrClosed)

	h.Unsubscribe(s)
}

func TestParseEvent(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		e, err := ParseEvent([]byte(`{"table":"orders","type":"UPDATE","new":{"id":"o1","status":"processing"},"old":{"id":"o1","status":"pending"},"extra":1}`))
		require.NoError(t, err)
		assert.Equal(t, "orders", e.Table)
		assert.Equal(t, Update, e.Type)

		s, ok := StringField(e.New, "status")
		require.True(t, ok)
		assert.Equal(t, "processing", s)
		s, ok = StringField(e.Old, "status")
		require.True(t, ok)
		assert.Equal(t, "pending", s)
	})

	t.Run("null old", func(t *testing.T) {
		e, err := ParseEvent([]byte(`{"table":"orders","type":"INSERT","new":{"id":"o1"},"old":null}`))
		require.NoError(t, err)
		assert.Empty(t, e.Old)
		_, ok := StringField(e.Old, "status")
		assert.False(t, ok)
	})

	for name, payload := range map[string]string{
		"malformed":     `{"table":`,
		"missing table": `{"type":"UPDATE"}`,
		"not an object": `[1,2]`,
		"wrong type":    `{"table":1,"type":"UPDATE"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEvent([]byte(payload))
			require.Error(t, err)
		})
	}
}

func TestStringField(t *testing.T) {
	raw := []byte(`{"id":"o1","total":"12.50","count":3,"nested":{"status":"x"}}`)

	v, ok := StringField(raw, "total")
	require.True(t, ok)
	assert.Equal(t, "12.50", v)

	_, ok = StringField(raw, "count")
	assert.False(t, ok, "non-string values are not returned")

	_, ok = StringField(raw, "status")
	assert.False(t, ok, "nested fields are not searched")
}
