package database

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ostafen/clover"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
)

const (
	fieldOptionName  = "option_name"
	fieldOptionValue = "option_value"
	fieldAutoload    = "autoload"
)

// CloverStore keeps option rows as documents in a clover collection.
type CloverStore struct {
	db     *clover.DB
	logger types.Logger
	path   string
	// clover has no unique index, so upserts are serialized.
	writeMu sync.Mutex
	state   atomic.Value
}

func NewCloverStore(logger types.Logger, config *types.StoreConfig) (*CloverStore, error) {
	path := config.Path
	if path == "" {
		path = "data/clover"
	}

	db, err := clover.Open(path)
	if err != nil {
		return nil, types.Errorf(types.ErrStoreOpenFailed, "open clover db: %w", err)
	}

	exists, err := db.HasCollection(OptionsTable)
	if err != nil {
		_ = db.Close()
		return nil, types.Errorf(types.ErrStoreOpenFailed, "check collection: %w", err)
	}

	if !exists {
		if err = db.CreateCollection(OptionsTable); err != nil {
			_ = db.Close()
			return nil, types.Errorf(types.ErrStoreOpenFailed, "create collection: %w", err)
		}
	}

	store := &CloverStore{
		db:     db,
		logger: logger,
		path:   path,
	}

	store.state.Store(StateStopped)
	return store, nil
}

func (c *CloverStore) Start() error {
	if !c.state.CompareAndSwap(StateStopped, StateRunning) {
		return types.ErrServerAlreadyRunning
	}

	c.logger.Info("Clover store started", zap.String("path", c.path))
	return nil
}

func (c *CloverStore) Stop() error {
	if !c.state.CompareAndSwap(StateRunning, StateStopped) {
		return types.ErrServerNotRunning
	}

	if err := c.db.Close(); err != nil {
		return types.WrapError(err, "failed to close clover db")
	}

	c.logger.Info("Clover store stopped gracefully")
	return nil
}

func (c *CloverStore) IsRunning() bool {
	return c.state.Load().(State) == StateRunning
}

func (c *CloverStore) Read(_ context.Context, name string) ([]byte, bool, error) {
	if name == "" {
		return nil, false, types.ErrStoreNameEmpty
	}

	docs, err := c.db.Query(OptionsTable).Where(clover.Field(fieldOptionName).Eq(name)).FindAll()
	if err != nil {
		return nil, false, types.Errorf(types.ErrStoreOperationFailed, "read %s: %w", name, err)
	}

	if len(docs) == 0 {
		return nil, false, nil
	}

	raw, ok := docs[0].Get(fieldOptionValue).(string)
	if !ok {
		return nil, false, types.Errorf(types.ErrStoreRecordCorrupted, "option %s has no string value", name)
	}

	return []byte(raw), true, nil
}

func (c *CloverStore) Upsert(_ context.Context, name string, value []byte, autoload types.Autoload) error {
	if err := validateUpsert(name, autoload); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	query := c.db.Query(OptionsTable).Where(clover.Field(fieldOptionName).Eq(name))

	count, err := query.Count()
	if err != nil {
		return types.Errorf(types.ErrStoreOperationFailed, "count %s: %w", name, err)
	}

	if count > 0 {
		err = query.Update(map[string]interface{}{
			fieldOptionValue: string(value),
			fieldAutoload:    string(autoload),
		})
		if err != nil {
			return types.Errorf(types.ErrStoreOperationFailed, "update %s: %w", name, err)
		}
		return nil
	}

	doc := clover.NewDocument()
	doc.Set(fieldOptionName, name)
	doc.Set(fieldOptionValue, string(value))
	doc.Set(fieldAutoload, string(autoload))

	if err = c.db.Insert(OptionsTable, doc); err != nil {
		return types.Errorf(types.ErrStoreOperationFailed, "insert %s: %w", name, err)
	}

	return nil
}

func (c *CloverStore) Ping(context.Context) error {
	if _, err := c.db.HasCollection(OptionsTable); err != nil {
		return types.Errorf(types.ErrStoreOperationFailed, "ping: %w", err)
	}
	return nil
}
