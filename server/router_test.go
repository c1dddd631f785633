package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-campaigns/config"
	"github.com/saiset-co/sai-campaigns/logger"
	"github.com/saiset-co/sai-campaigns/types"
)

func named(name string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(name)
	}
}

func TestRouterLookup(t *testing.T) {
	r := NewRouter()
	r.GET("/health", named("health"))
	r.GET("/api/campaigns/{client_id}/{campaign_id}", named("get"))
	r.POST("/api/campaigns/{client_id}/{campaign_id}/view", named("view"))
	r.Add(fasthttp.MethodGet, "/metrics/", named("metrics"), &types.RouteConfig{DisabledMiddlewares: []string{"logging"}})

	handler, _, params, found := r.Lookup("GET", "/api/campaigns/abc123/42")
	require.NotNil(t, handler)
	assert.True(t, found)
	assert.Equal(t, map[string]string{"client_id": "abc123", "campaign_id": "42"}, params)

	handler, _, params, _ = r.Lookup("POST", "/api/campaigns/abc123/42/view/")
	require.NotNil(t, handler)
	assert.Equal(t, "42", params["campaign_id"])

	handler, config, _, _ := r.Lookup("GET", "/metrics")
	require.NotNil(t, handler)
	assert.Equal(t, []string{"logging"}, config.DisabledMiddlewares)

	handler, _, _, found = r.Lookup("POST", "/api/campaigns/abc123/42")
	assert.Nil(t, handler)
	assert.True(t, found)

	handler, _, _, found = r.Lookup("POST", "/health")
	assert.Nil(t, handler)
	assert.True(t, found)

	handler, _, _, found = r.Lookup("GET", "/api/campaigns/abc123")
	assert.Nil(t, handler)
	assert.False(t, found)

	assert.Len(t, r.Routes(), 4)
}

func TestServerHandlerDispatch(t *testing.T) {
	r := NewRouter()
	r.GET("/api/clients/{client_id}", func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(ctx.UserValue("client_id").(string))
	})

	srv, err := NewHTTPServer(config.NewStaticManager(config.NewLoader().Defaults()), logger.NewNop(), nil, r)
	require.NoError(t, err)
	handler := srv.Handler()

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.SetRequestURI("/api/clients/abc123")
	handler(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "abc123", string(ctx.Response.Body()))

	ctx = &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.SetRequestURI("/nowhere")
	handler(ctx)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"not_found"}`, string(ctx.Response.Body()))

	ctx = &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod("POST")
	ctx.Request.SetRequestURI("/api/clients/abc123")
	handler(ctx)
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())
}

func TestServerLifecycle(t *testing.T) {
	cfg := config.NewLoader().Defaults()
	cfg.Server.HTTP.Host = "127.0.0.1"
	cfg.Server.HTTP.Port = 0

	srv, err := NewHTTPServer(config.NewStaticManager(cfg), logger.NewNop(), nil, NewRouter())
	require.NoError(t, err)

	require.NoError(t, srv.Start())
	assert.True(t, srv.IsRunning())
	assert.NotNil(t, srv.Addr())
	assert.ErrorIs(t, srv.Start(), types.ErrServerAlreadyRunning)

	require.NoError(t, srv.Stop())
	assert.False(t, srv.IsRunning())
	assert.ErrorIs(t, srv.Stop(), types.ErrServerNotRunning)
}
