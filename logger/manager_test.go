package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/config"
	"github.com/saiset-co/sai-campaigns/types"
)

func TestFileLoggerWritesJSONWithStack(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "campaigns.log")

	cfg := config.NewLoader().Defaults()
	cfg.Logger.Level = "info"
	cfg.Logger.Config = map[string]interface{}{
		"format": "json",
		"output": "file",
		"file":   logFile,
	}

	manager, err := NewManager(config.NewStaticManager(cfg))
	require.NoError(t, err)
	require.NoError(t, manager.Start())

	manager.Debug("filtered out")
	manager.ErrorWithErrStack("store upsert failed", errors.Wrap(errors.New("disk full"), "upsert _transient_k"),
		zap.String("store", "sqlite"))

	require.NoError(t, manager.Stop())
	assert.False(t, manager.IsRunning())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	out := string(data)
	assert.NotContains(t, out, "filtered out")
	assert.Contains(t, out, `"msg":"store upsert failed"`)
	assert.Contains(t, out, `"cause":"disk full"`)
	assert.Contains(t, out, `"store":"sqlite"`)
	assert.Contains(t, out, `"stack":`)
}

func TestFileLoggerRequiresPath(t *testing.T) {
	cfg := config.NewLoader().Defaults()
	cfg.Logger.Config = map[string]interface{}{"output": "file"}

	_, err := NewManager(config.NewStaticManager(cfg))
	assert.ErrorIs(t, err, types.ErrLogFileIsEmpty)
}

func TestLoggerTypes(t *testing.T) {
	cfg := config.NewLoader().Defaults()

	cfg.Logger.Type = "nop"
	_, err := NewManager(config.NewStaticManager(cfg))
	require.NoError(t, err)

	cfg.Logger.Type = "carrier-pigeon"
	_, err = NewManager(config.NewStaticManager(cfg))
	assert.ErrorIs(t, err, types.ErrLoggerTypeUnknown)

	var received interface{}
	RegisterLogger("carrier-pigeon", func(raw interface{}) (types.Logger, error) {
		received = raw
		return NewNop(), nil
	})
	defer delete(customLoggerCreators, "carrier-pigeon")

	cfg.Logger.Config = map[string]interface{}{"coop": "north"}
	_, err = NewManager(config.NewStaticManager(cfg))
	require.NoError(t, err)
	assert.Equal(t, cfg.Logger.Config, received)
}

func TestLifecycle(t *testing.T) {
	cfg := config.NewLoader().Defaults()
	cfg.Logger.Type = "nop"

	manager, err := NewManager(config.NewStaticManager(cfg))
	require.NoError(t, err)

	assert.ErrorIs(t, manager.Stop(), types.ErrServerNotRunning)
	require.NoError(t, manager.Start())
	assert.ErrorIs(t, manager.Start(), types.ErrServerAlreadyRunning)
}
