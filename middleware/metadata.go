package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

const (
	RequestIDHeader  = "X-Request-ID"
	MetadataKey      = "metadata"
	RequestIDUserKey = "request_id"
)

type MetadataConfig struct {
	GenerateRequestID bool `json:"generate_request_id"`
}

// MetadataMiddleware makes sure every request carries an X-Request-ID and
// stores client metadata as user values for handlers and logs.
type MetadataMiddleware struct {
	logger         types.Logger
	metadataConfig *MetadataConfig
	weight         int
}

func NewMetadataMiddleware(config types.ConfigManager, logger types.Logger) *MetadataMiddleware {
	var metadataConfig = &MetadataConfig{
		GenerateRequestID: true,
	}

	item := config.GetConfig().Middlewares.Metadata
	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, metadataConfig); err != nil {
			logger.Error("Failed to unmarshal Metadata middleware config", zap.Error(err))
		}
	}

	return &MetadataMiddleware{
		logger:         logger,
		metadataConfig: metadataConfig,
		weight:         item.Weight,
	}
}

func (m *MetadataMiddleware) Name() string { return "metadata" }
func (m *MetadataMiddleware) Weight() int  { return m.weight }

func (m *MetadataMiddleware) Handle(ctx *fasthttp.RequestCtx, next fasthttp.RequestHandler, _ *types.RouteConfig) {
	requestID := string(ctx.Request.Header.Peek(RequestIDHeader))
	if requestID == "" && m.metadataConfig.GenerateRequestID {
		requestID = uuid.New().String()
		ctx.Request.Header.Set(RequestIDHeader, requestID)
	}

	metadata := map[string]string{
		"request_id": requestID,
		"real_ip":    realIP(ctx),
		"referer":    string(ctx.Referer()),
	}

	ctx.SetUserValue(RequestIDUserKey, requestID)
	ctx.SetUserValue(MetadataKey, metadata)

	next(ctx)

	if requestID != "" {
		ctx.Response.Header.Set(RequestIDHeader, requestID)
	}
}

func realIP(ctx *fasthttp.RequestCtx) string {
	if ip := string(ctx.Request.Header.Peek("X-Real-IP")); ip != "" {
		return ip
	}

	if forwarded := string(ctx.Request.Header.Peek("X-Forwarded-For")); forwarded != "" {
		if comma := strings.Index(forwarded, ","); comma > 0 {
			return strings.TrimSpace(forwarded[:comma])
		}
		return strings.TrimSpace(forwarded)
	}

	return ctx.RemoteIP().String()
}
