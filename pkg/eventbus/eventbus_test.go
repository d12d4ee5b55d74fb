package eventbus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventJSONRoundTrip(t *testing.T) {
	ev := Event{Subject: "agent-1", Reason: "directive_added"}

	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, ev, decoded)
}

func TestNewClientConfiguresAddr(t *testing.T) {
	client := NewClient("localhost:6379", "", 0)
	require.NotNil(t, client)
	require.NoError(t, client.Close())
}
