package cache

import (
	"github.com/saiset-co/sai-campaigns/types"
)

// Remote caches store a tag byte ahead of the payload so the absent marker
// occupies a separate value space from every payload.
const (
	tagPresent byte = 'p'
	tagAbsent  byte = 'a'
)

func encodeEntry(entry types.CacheEntry) ([]byte, error) {
	switch entry.State {
	case types.CachePresent:
		out := make([]byte, 1+len(entry.Value))
		out[0] = tagPresent
		copy(out[1:], entry.Value)
		return out, nil
	case types.CacheAbsent:
		return []byte{tagAbsent}, nil
	default:
		return nil, types.Errorf(types.ErrCacheEntryInvalid, "cannot encode state %s", entry.State)
	}
}

func decodeEntry(raw []byte) (types.CacheEntry, error) {
	if len(raw) == 0 {
		return types.CacheEntry{}, types.Errorf(types.ErrCacheEntryInvalid, "empty entry")
	}

	switch raw[0] {
	case tagPresent:
		return types.Present(cloneBytes(raw[1:])), nil
	case tagAbsent:
		if len(raw) != 1 {
			return types.CacheEntry{}, types.Errorf(types.ErrCacheEntryInvalid, "absent entry carries %d payload bytes", len(raw)-1)
		}
		return types.Absent(), nil
	default:
		return types.CacheEntry{}, types.Errorf(types.ErrCacheEntryInvalid, "unknown tag %q", raw[0])
	}
}
