package middleware

import (
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

type LoggingConfig struct {
	LogLevel   string `json:"log_level"`
	LogHeaders bool   `json:"log_headers"`
}

type LoggingMiddleware struct {
	logger        types.Logger
	metrics       types.MetricsManager
	loggingConfig *LoggingConfig
	weight        int
}

func NewLoggingMiddleware(config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) *LoggingMiddleware {
	var loggingConfig = &LoggingConfig{
		LogLevel: "info",
	}

	item := config.GetConfig().Middlewares.Logging
	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, loggingConfig); err != nil {
			logger.Error("Failed to unmarshal Logging middleware config", zap.Error(err))
		}
	}

	return &LoggingMiddleware{
		logger:        logger,
		metrics:       metrics,
		loggingConfig: loggingConfig,
		weight:        item.Weight,
	}
}

func (l *LoggingMiddleware) Name() string { return "logging" }
func (l *LoggingMiddleware) Weight() int  { return l.weight }

func (l *LoggingMiddleware) Handle(ctx *fasthttp.RequestCtx, next fasthttp.RequestHandler, _ *types.RouteConfig) {
	start := time.Now()

	next(ctx)

	duration := time.Since(start)
	status := ctx.Response.StatusCode()

	fields := []zap.Field{
		zap.ByteString("method", ctx.Method()),
		zap.ByteString("path", ctx.Path()),
		zap.Int("status", status),
		zap.Duration("duration", duration),
		zap.String("remote_addr", realIP(ctx)),
	}

	if requestID := ctx.Request.Header.Peek(RequestIDHeader); len(requestID) > 0 {
		fields = append(fields, zap.ByteString("request_id", requestID))
	}

	if l.loggingConfig.LogHeaders {
		fields = append(fields, zap.Any("headers", sanitizeHeaders(ctx)))
	}

	l.metrics.Counter("http_requests_total", map[string]string{
		"method": string(ctx.Method()),
		"status": strconv.Itoa(status),
	}).Inc()
	l.metrics.Histogram("http_request_duration_seconds",
		[]float64{0.001, 0.005, 0.025, 0.1, 0.5, 2},
		map[string]string{"method": string(ctx.Method())},
	).Observe(duration.Seconds())

	if status >= 400 {
		l.logger.Warn("Request completed", fields...)
		return
	}

	l.logWithLevel("Request completed", fields...)
}

func sanitizeHeaders(ctx *fasthttp.RequestCtx) map[string]string {
	headers := make(map[string]string)
	ctx.Request.Header.VisitAll(func(key, value []byte) {
		switch string(key) {
		case "Authorization", "Cookie":
			headers[string(key)] = "[REDACTED]"
		default:
			headers[string(key)] = string(value)
		}
	})
	return headers
}

func (l *LoggingMiddleware) logWithLevel(msg string, fields ...zap.Field) {
	switch l.loggingConfig.LogLevel {
	case "debug":
		l.logger.Debug(msg, fields...)
	case "warn":
		l.logger.Warn(msg, fields...)
	default:
		l.logger.Info(msg, fields...)
	}
}
