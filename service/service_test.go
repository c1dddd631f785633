package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-campaigns/config"
	"github.com/saiset-co/sai-campaigns/cron"
	"github.com/saiset-co/sai-campaigns/types"
)

func testConfig(t *testing.T) *types.ServiceConfig {
	t.Helper()

	cfg := config.NewLoader().Defaults()
	cfg.Server.HTTP.Host = "127.0.0.1"
	cfg.Server.HTTP.Port = 0
	cfg.Store.Type = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "campaigns.db")
	cfg.Cron.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.Type = "prometheus"
	return cfg
}

func TestContainerWiresComponents(t *testing.T) {
	container, err := NewContainer(context.Background(), config.NewStaticManager(testConfig(t)))
	require.NoError(t, err)

	require.NotNil(t, container.Health)
	require.NotNil(t, container.Cron)

	jobs := container.Cron.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, cron.CacheMaintenanceJob, jobs[0].Name)
	assert.Equal(t, cron.StoreMaintenanceJob, jobs[1].Name)

	paths := make(map[string]bool)
	for _, route := range container.Router.Routes() {
		paths[route.Method+" "+route.Path] = true
	}
	assert.True(t, paths["GET /health"])
	assert.True(t, paths["GET /metrics"])
	assert.True(t, paths["POST /api/campaigns/{client_id}/{campaign_id}/view"])
	assert.True(t, paths["GET /api/clients/{client_id}"])
}

func TestServiceServesUntilStopped(t *testing.T) {
	svc, err := NewServiceWithConfig(context.Background(), config.NewStaticManager(testConfig(t)))
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() { result <- svc.Start() }()

	select {
	case <-svc.Started():
	case err := <-result:
		t.Fatalf("service exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not start")
	}

	assert.True(t, svc.IsRunning())
	assert.ErrorIs(t, svc.Start(), types.ErrServiceIsRunning)

	addr := svc.Container().HTTPServer.Addr().String()

	status, body, err := fasthttp.Get(nil, "http://"+addr+"/health")
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Contains(t, string(body), `"status":"healthy"`)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://" + addr + "/api/campaigns/abc123/42/view")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Referer", "http://"+addr+"/landing")
	require.NoError(t, fasthttp.Do(req, resp))
	assert.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), `"count":1`)

	require.NoError(t, svc.Stop())

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("service did not stop")
	}

	assert.False(t, svc.IsRunning())
	assert.False(t, svc.Container().Store.IsRunning())
	assert.ErrorIs(t, svc.Stop(), types.ErrServiceIsNotRunning)
}

func TestNewServiceRequiresConfigFile(t *testing.T) {
	_, err := NewService(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrConfigInvalidPath)

	_, err = NewService(context.Background(), filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
