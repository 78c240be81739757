package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNFTID(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    uint64
		ok      bool
	}{
		{"string id", `"42"`, 42, true},
		{"bare number", `42`, 42, true},
		{"garbage string", `"abc"`, 0, false},
		{"object", `{"id":1}`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseNFTID(json.RawMessage(tt.payload))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestHubEncode(t *testing.T) {
	h := NewHub(nil)

	message, ok := h.encode("bid_placed", map[string]uint64{"nft_id": 1, "amount": 100})
	assert.True(t, ok)

	var decoded WebSocketMessage
	assert.NoError(t, json.Unmarshal(message, &decoded))
	assert.Equal(t, "bid_placed", decoded.Type)

	_, ok = h.encode("bad", func() {})
	assert.False(t, ok, "unmarshalable payload is dropped")
}
