package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

type SQLiteConfig struct {
	BusyTimeout  time.Duration `json:"busy_timeout"`
	MaxOpenConns int           `json:"max_open_conns"`
	JournalMode  string        `json:"journal_mode"`
}

const createOptionsTable = `CREATE TABLE IF NOT EXISTS ` + OptionsTable + ` (
	option_id    INTEGER PRIMARY KEY AUTOINCREMENT,
	option_name  TEXT NOT NULL UNIQUE,
	option_value BLOB NOT NULL,
	autoload     TEXT NOT NULL DEFAULT 'yes'
)`

const selectOption = `SELECT option_value FROM ` + OptionsTable + ` WHERE option_name = ? LIMIT 1`

const upsertOption = `INSERT INTO ` + OptionsTable + ` (option_name, option_value, autoload)
	VALUES (?, ?, ?)
	ON CONFLICT(option_name) DO UPDATE SET
		option_value = excluded.option_value,
		autoload = excluded.autoload`

// SQLiteStore keeps option rows in a SQLite file, one row per option name.
type SQLiteStore struct {
	db     *sql.DB
	logger types.Logger
	path   string
	config *SQLiteConfig
	state  atomic.Value
}

func NewSQLiteStore(ctx context.Context, logger types.Logger, config *types.StoreConfig) (*SQLiteStore, error) {
	var sqliteConfig = &SQLiteConfig{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
		JournalMode:  "WAL",
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, sqliteConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal sqlite store config")
		}
	}

	path := config.Path
	if path == "" {
		path = "data/campaigns.db"
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, types.Errorf(types.ErrStoreOpenFailed, "create directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=%s",
		path, sqliteConfig.BusyTimeout.Milliseconds(), sqliteConfig.JournalMode)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.Errorf(types.ErrStoreOpenFailed, "open sqlite db: %w", err)
	}

	db.SetMaxOpenConns(sqliteConfig.MaxOpenConns)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, types.Errorf(types.ErrStoreOpenFailed, "ping sqlite db: %w", err)
	}

	if _, err = db.ExecContext(ctx, createOptionsTable); err != nil {
		_ = db.Close()
		return nil, types.Errorf(types.ErrStoreOpenFailed, "create options table: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger,
		path:   path,
		config: sqliteConfig,
	}

	store.state.Store(StateStopped)
	return store, nil
}

func (s *SQLiteStore) Start() error {
	if !s.state.CompareAndSwap(StateStopped, StateRunning) {
		return types.ErrServerAlreadyRunning
	}

	s.logger.Info("SQLite store started", zap.String("path", s.path))
	return nil
}

func (s *SQLiteStore) Stop() error {
	if !s.state.CompareAndSwap(StateRunning, StateStopped) {
		return types.ErrServerNotRunning
	}

	if err := s.db.Close(); err != nil {
		return types.WrapError(err, "failed to close sqlite db")
	}

	s.logger.Info("SQLite store stopped gracefully")
	return nil
}

func (s *SQLiteStore) IsRunning() bool {
	return s.state.Load().(State) == StateRunning
}

func (s *SQLiteStore) Read(ctx context.Context, name string) ([]byte, bool, error) {
	if name == "" {
		return nil, false, types.ErrStoreNameEmpty
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, selectOption, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, types.Errorf(types.ErrStoreOperationFailed, "read %s: %w", name, err)
	}

	return value, true, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, name string, value []byte, autoload types.Autoload) error {
	if err := validateUpsert(name, autoload); err != nil {
		return err
	}

	if value == nil {
		value = []byte{}
	}

	if _, err := s.db.ExecContext(ctx, upsertOption, name, value, string(autoload)); err != nil {
		return types.Errorf(types.ErrStoreOperationFailed, "upsert %s: %w", name, err)
	}

	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return types.Errorf(types.ErrStoreOperationFailed, "ping: %w", err)
	}
	return nil
}

// Maintain lets SQLite refresh its query planner statistics.
func (s *SQLiteStore) Maintain(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return types.Errorf(types.ErrStoreOperationFailed, "optimize: %w", err)
	}
	return nil
}
