package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-campaigns/config"
	"github.com/saiset-co/sai-campaigns/logger"
	"github.com/saiset-co/sai-campaigns/metrics"
	"github.com/saiset-co/sai-campaigns/types"
)

type tracingMiddleware struct {
	name   string
	weight int
	trace  *[]string
}

func (t *tracingMiddleware) Name() string { return t.name }
func (t *tracingMiddleware) Weight() int  { return t.weight }

func (t *tracingMiddleware) Handle(ctx *fasthttp.RequestCtx, next fasthttp.RequestHandler, _ *types.RouteConfig) {
	*t.trace = append(*t.trace, t.name)
	next(ctx)
}

func newTestManager() *Manager {
	cfg := config.NewStaticManager(config.NewLoader().Defaults())
	return NewManager(cfg, logger.NewNop(), metrics.NewNoopMetrics())
}

func TestExecuteOrdersByWeightAndHonoursDisabled(t *testing.T) {
	var trace []string
	m := newTestManager()

	require.NoError(t, m.Register(&tracingMiddleware{name: "c", weight: 30, trace: &trace}))
	require.NoError(t, m.Register(&tracingMiddleware{name: "a", weight: 10, trace: &trace}))
	require.NoError(t, m.Register(&tracingMiddleware{name: "b", weight: 20, trace: &trace}))
	require.NoError(t, m.Finalize())

	handler := func(ctx *fasthttp.RequestCtx) { trace = append(trace, "handler") }

	m.Execute(&fasthttp.RequestCtx{}, handler, nil)
	assert.Equal(t, []string{"a", "b", "c", "handler"}, trace)

	trace = nil
	m.Execute(&fasthttp.RequestCtx{}, handler, &types.RouteConfig{DisabledMiddlewares: []string{"b", "unknown"}})
	assert.Equal(t, []string{"a", "c", "handler"}, trace)

	assert.Error(t, m.Register(&tracingMiddleware{name: "late", weight: 40, trace: &trace}))
}

func TestFinalizeRejectsDuplicateWeights(t *testing.T) {
	var trace []string
	m := newTestManager()

	require.NoError(t, m.Register(&tracingMiddleware{name: "a", weight: 10, trace: &trace}))
	require.NoError(t, m.Register(&tracingMiddleware{name: "b", weight: 10, trace: &trace}))
	assert.Error(t, m.Finalize())
}

func TestConfiguredChainRecoversPanics(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.RegisterMiddlewares())

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.SetRequestURI("/api/clients/abc123")

	m.Execute(ctx, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		panic("boom")
	}, nil)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"internal_error"}`, string(ctx.Response.Body()))
	assert.NotEmpty(t, ctx.Response.Header.Peek(RequestIDHeader))
}

func TestMetadataKeepsIncomingRequestID(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.RegisterMiddlewares())

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set(RequestIDHeader, "req-1")

	var seen interface{}
	m.Execute(ctx, func(ctx *fasthttp.RequestCtx) {
		seen = ctx.UserValue(RequestIDUserKey)
	}, nil)

	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", string(ctx.Response.Header.Peek(RequestIDHeader)))
}
