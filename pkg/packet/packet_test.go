package packet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPacketAddTagIsSetSemantics(t *testing.T) {
	p := Packet{}
	p.AddTag("governance")
	p.AddTag("governance")
	p.AddTag("retry")

	require.Equal(t, []string{"governance", "retry"}, p.Tags)
	require.True(t, p.HasTag("retry"))
	require.False(t, p.HasTag("missing"))
}

func TestPacketExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		p    Packet
		want bool
	}{
		{"no ttl", Packet{}, false},
		{"future ttl", Packet{TTL: &future}, false},
		{"past ttl", Packet{TTL: &past}, true},
		{"past ttl but immutable", Packet{TTL: &past, Metadata: Metadata{Immutable: true}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.p.Expired(now))
		})
	}
}
