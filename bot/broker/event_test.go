package broker

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	payload := []byte(`{
		"user": {"telegram_id": 42},
		"concerts": [{
			"title": "Концерт",
			"afisha_url": "https://afisha.example/1",
			"artists": [{"name": "Группа"}]
		}]
	}`)

	ev, err := DecodeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ev.User.TelegramID)
	require.Len(t, ev.Concerts, 1)
	assert.Equal(t, "Концерт", ev.Concerts[0].Title)
}

func TestDecodeEventRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"garbage":      `{{{`,
		"no user":      `{"concerts": [{"title": "x"}]}`,
		"zero user":    `{"user": {"telegram_id": 0}, "concerts": [{"title": "x"}]}`,
		"no concerts":  `{"user": {"telegram_id": 42}}`,
		"empty slice":  `{"user": {"telegram_id": 42}, "concerts": []}`,
		"wrong shapes": `{"user": 42, "concerts": "none"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(payload))
			assert.Error(t, err)
		})
	}
}

func TestDedupKeyPrefersMessageID(t *testing.T) {
	msg := &nats.Msg{Data: []byte(`{}`), Header: nats.Header{}}
	msg.Header.Set(nats.MsgIdHdr, "evt-123")
	assert.Equal(t, "evt-123", DedupKey(msg))
}

func TestDedupKeyFallsBackToDigest(t *testing.T) {
	a := &nats.Msg{Data: []byte(`{"user":{"telegram_id":1}}`), Header: nats.Header{}}
	b := &nats.Msg{Data: []byte(`{"user":{"telegram_id":1}}`), Header: nats.Header{}}
	c := &nats.Msg{Data: []byte(`{"user":{"telegram_id":2}}`), Header: nats.Header{}}

	assert.Equal(t, DedupKey(a), DedupKey(b), "identical payloads collapse")
	assert.NotEqual(t, DedupKey(a), DedupKey(c))
	assert.Len(t, DedupKey(a), 64)
}
