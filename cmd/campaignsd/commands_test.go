package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-campaigns/campaign"
	"github.com/saiset-co/sai-campaigns/database"
	"github.com/saiset-co/sai-campaigns/logger"
	"github.com/saiset-co/sai-campaigns/transient"
	"github.com/saiset-co/sai-campaigns/types"
)

func writeConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()

	dir := t.TempDir()
	dbPath = filepath.Join(dir, "campaigns.db")
	configPath = filepath.Join(dir, "config.yml")

	content := "name: sai-campaigns\n" +
		"version: 1.0.0\n" +
		"logger:\n  level: error\n" +
		"store:\n  type: sqlite\n  path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return configPath, dbPath
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspectCampaign(t *testing.T) {
	configPath, dbPath := writeConfig(t)

	store, err := database.NewSQLiteStore(context.Background(), logger.NewNop(), &types.StoreConfig{Type: "sqlite", Path: dbPath})
	require.NoError(t, err)
	require.NoError(t, store.Start())
	require.NoError(t, store.Upsert(context.Background(),
		transient.NamePrefix+campaign.CampaignKey("abc123", "42"),
		[]byte(`{"count":3,"last_viewed":1700000000,"suppress_forever":true}`),
		types.AutoloadNo))
	require.NoError(t, store.Stop())

	out, err := runCmd(t, "--config", configPath, "inspect", "campaign", "abc123", "42", "--counters")
	require.NoError(t, err)

	assert.Contains(t, out, `"count":3`)
	assert.Contains(t, out, `"suppress_forever":true`)
	assert.Contains(t, out, `"read_query_count":1`)
}

func TestInspectClientDefaults(t *testing.T) {
	configPath, _ := writeConfig(t)

	out, err := runCmd(t, "--config", configPath, "inspect", "client", "nobody")
	require.NoError(t, err)

	assert.Contains(t, out, `"suppressed_newsletter_campaign":false`)
	assert.NotContains(t, out, `"debug"`)
}

func TestInspectRequiresArguments(t *testing.T) {
	configPath, _ := writeConfig(t)

	_, err := runCmd(t, "--config", configPath, "inspect", "campaign", "abc123")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, `"go_version"`)
}
