package database

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

type BadgerConfig struct {
	// KeyTTL expires rows after the given duration; zero keeps them forever.
	KeyTTL       time.Duration `json:"key_ttl"`
	DiscardRatio float64       `json:"discard_ratio"`
	SyncWrites   bool          `json:"sync_writes"`
}

const (
	autoloadYesByte byte = 'y'
	autoloadNoByte  byte = 'n'
)

var optionKeyPrefix = []byte(OptionsTable + "/")

// BadgerStore keeps option rows in an embedded badger database. Each value is
// prefixed with one autoload byte.
type BadgerStore struct {
	db     *badger.DB
	logger types.Logger
	path   string
	config *BadgerConfig
	state  atomic.Value
}

func NewBadgerStore(logger types.Logger, config *types.StoreConfig) (*BadgerStore, error) {
	var badgerConfig = &BadgerConfig{
		DiscardRatio: 0.5,
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, badgerConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal badger store config")
		}
	}

	path := config.Path
	if path == "" {
		path = "data/badger"
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(badgerConfig.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, types.Errorf(types.ErrStoreOpenFailed, "open badger db: %w", err)
	}

	store := &BadgerStore{
		db:     db,
		logger: logger,
		path:   path,
		config: badgerConfig,
	}

	store.state.Store(StateStopped)
	return store, nil
}

func (b *BadgerStore) Start() error {
	if !b.state.CompareAndSwap(StateStopped, StateRunning) {
		return types.ErrServerAlreadyRunning
	}

	b.logger.Info("Badger store started",
		zap.String("path", b.path),
		zap.Duration("key_ttl", b.config.KeyTTL))
	return nil
}

func (b *BadgerStore) Stop() error {
	if !b.state.CompareAndSwap(StateRunning, StateStopped) {
		return types.ErrServerNotRunning
	}

	if err := b.db.Close(); err != nil {
		return types.WrapError(err, "failed to close badger db")
	}

	b.logger.Info("Badger store stopped gracefully")
	return nil
}

func (b *BadgerStore) IsRunning() bool {
	return b.state.Load().(State) == StateRunning
}

func (b *BadgerStore) Read(_ context.Context, name string) ([]byte, bool, error) {
	if name == "" {
		return nil, false, types.ErrStoreNameEmpty
	}

	var raw []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(optionKey(name))
		if err != nil {
			return err
		}

		// item values are only valid inside the transaction
		raw, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, types.Errorf(types.ErrStoreOperationFailed, "read %s: %w", name, err)
	}

	if len(raw) == 0 || (raw[0] != autoloadYesByte && raw[0] != autoloadNoByte) {
		return nil, false, types.Errorf(types.ErrStoreRecordCorrupted, "option %s has no autoload byte", name)
	}

	return raw[1:], true, nil
}

func (b *BadgerStore) Upsert(_ context.Context, name string, value []byte, autoload types.Autoload) error {
	if err := validateUpsert(name, autoload); err != nil {
		return err
	}

	raw := make([]byte, 1+len(value))
	raw[0] = autoloadNoByte
	if autoload == types.AutoloadYes {
		raw[0] = autoloadYesByte
	}
	copy(raw[1:], value)

	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(optionKey(name), raw)
		if b.config.KeyTTL > 0 {
			entry = entry.WithTTL(b.config.KeyTTL)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return types.Errorf(types.ErrStoreOperationFailed, "upsert %s: %w", name, err)
	}

	return nil
}

func (b *BadgerStore) Ping(context.Context) error {
	if b.db.IsClosed() {
		return types.Errorf(types.ErrStoreOperationFailed, "badger db is closed")
	}
	return nil
}

// Maintain runs value log garbage collection; expired rows are only reclaimed here.
func (b *BadgerStore) Maintain(context.Context) error {
	err := b.db.RunValueLogGC(b.config.DiscardRatio)
	if err == nil || errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
		return nil
	}
	return types.Errorf(types.ErrStoreOperationFailed, "value log gc: %w", err)
}

func optionKey(name string) []byte {
	key := make([]byte, 0, len(optionKeyPrefix)+len(name))
	key = append(key, optionKeyPrefix...)
	return append(key, name...)
}
