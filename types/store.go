package types

import (
	"context"
)

// Autoload is an opaque hint kept next to every option row.
type Autoload string

const (
	AutoloadYes Autoload = "yes"
	AutoloadNo  Autoload = "no"
)

func (a Autoload) Valid() bool {
	return a == AutoloadYes || a == AutoloadNo
}

// DurableStore is a key/value options table holding at most one row per name.
type DurableStore interface {
	LifecycleManager
	Read(ctx context.Context, name string) ([]byte, bool, error)
	Upsert(ctx context.Context, name string, value []byte, autoload Autoload) error
	Ping(ctx context.Context) error
}

type StoreCreator func(config interface{}) (DurableStore, error)

// Maintainer is implemented by stores and caches that need periodic housekeeping.
type Maintainer interface {
	Maintain(ctx context.Context) error
}
