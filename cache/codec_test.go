package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-campaigns/types"
)

func TestEncodeEntryKeepsAbsentApartFromPayloads(t *testing.T) {
	absent, err := encodeEntry(types.Absent())
	require.NoError(t, err)

	for _, payload := range []string{"", "a", "-1", "false", "null"} {
		raw, err := encodeEntry(types.Present([]byte(payload)))
		require.NoError(t, err)
		assert.NotEqual(t, absent, raw, "payload %q", payload)

		decoded, err := decodeEntry(raw)
		require.NoError(t, err)
		assert.True(t, decoded.IsPresent())
		assert.Equal(t, payload, string(decoded.Value))
	}

	decoded, err := decodeEntry(absent)
	require.NoError(t, err)
	assert.True(t, decoded.IsAbsent())
}

func TestDecodeEntryRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":            nil,
		"unknown tag":      []byte("x{}"),
		"absent with data": []byte("a1"),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeEntry(raw)
			assert.ErrorIs(t, err, types.ErrCacheEntryInvalid)
		})
	}

	_, err := encodeEntry(types.CacheEntry{})
	assert.ErrorIs(t, err, types.ErrCacheEntryInvalid)
}
