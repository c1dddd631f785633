package types

import (
	"context"
)

// CacheState is the lookup result of a ProcessCache read.
type CacheState uint8

const (
	// CacheUnknown means nothing is cached for the key.
	CacheUnknown CacheState = iota
	// CachePresent means the cache holds a serialized value.
	CachePresent
	// CacheAbsent means a previous durable read found no record.
	CacheAbsent
)

func (s CacheState) String() string {
	switch s {
	case CachePresent:
		return "present"
	case CacheAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// CacheEntry is a tagged value: the absent marker lives in State, never in Value,
// so no payload can be mistaken for it.
type CacheEntry struct {
	State CacheState
	Value []byte
}

func Present(value []byte) CacheEntry {
	return CacheEntry{State: CachePresent, Value: value}
}

func Absent() CacheEntry {
	return CacheEntry{State: CacheAbsent}
}

func (e CacheEntry) IsPresent() bool { return e.State == CachePresent }
func (e CacheEntry) IsAbsent() bool  { return e.State == CacheAbsent }
func (e CacheEntry) IsUnknown() bool { return e.State == CacheUnknown }

// ProcessCache is shared by every request and must be safe for concurrent use.
// Entries may be evicted at any time.
type ProcessCache interface {
	LifecycleManager
	Read(ctx context.Context, key string) (CacheEntry, error)
	Write(ctx context.Context, key string, entry CacheEntry) error
	Ping(ctx context.Context) error
}

type CacheCreator func(config interface{}) (ProcessCache, error)
