package middleware

import (
	"runtime"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

type RecoveryConfig struct {
	StackTrace bool `json:"stack_trace"`
}

// RecoveryMiddleware turns a panic into a 400 internal_error response, so
// every request still ends with exactly one JSON object.
type RecoveryMiddleware struct {
	logger         types.Logger
	metrics        types.MetricsManager
	recoveryConfig *RecoveryConfig
	weight         int
}

func NewRecoveryMiddleware(config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) *RecoveryMiddleware {
	var recoveryConfig = &RecoveryConfig{
		StackTrace: true,
	}

	item := config.GetConfig().Middlewares.Recovery
	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, recoveryConfig); err != nil {
			logger.Error("Failed to unmarshal Recovery middleware config", zap.Error(err))
		}
	}

	return &RecoveryMiddleware{
		logger:         logger,
		metrics:        metrics,
		recoveryConfig: recoveryConfig,
		weight:         item.Weight,
	}
}

func (r *RecoveryMiddleware) Name() string { return "recovery" }
func (r *RecoveryMiddleware) Weight() int  { return r.weight }

func (r *RecoveryMiddleware) Handle(ctx *fasthttp.RequestCtx, next fasthttp.RequestHandler, _ *types.RouteConfig) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logPanic(ctx, rec)
			r.metrics.Counter("http_panics_total", map[string]string{"middleware": "recovery"}).Inc()

			ctx.Response.Reset()
			utils.CreateErrorResponse(ctx, fasthttp.StatusBadRequest, "internal_error")
		}
	}()

	next(ctx)
}

func (r *RecoveryMiddleware) logPanic(ctx *fasthttp.RequestCtx, rec interface{}) {
	fields := []zap.Field{
		zap.Any("panic", rec),
		zap.ByteString("method", ctx.Method()),
		zap.ByteString("path", ctx.Path()),
		zap.String("remote_addr", ctx.RemoteIP().String()),
	}

	if requestID := ctx.Request.Header.Peek("X-Request-ID"); len(requestID) > 0 {
		fields = append(fields, zap.ByteString("request_id", requestID))
	}

	if r.recoveryConfig.StackTrace {
		buf := make([]byte, 16384)
		n := runtime.Stack(buf, false)
		fields = append(fields, zap.String("stack", utils.BytesToString(buf[:n])))
	}

	if err, ok := rec.(error); ok {
		r.logger.ErrorWithErrStack("Recovered from panic", err, fields...)
		return
	}

	r.logger.Error("Recovered from panic", fields...)
}
