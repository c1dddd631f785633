package api

import (
	"errors"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/campaign"
	"github.com/saiset-co/sai-campaigns/request"
	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

const (
	CodeInvalidParams    = "invalid_params"
	CodeStoreUnavailable = "store_unavailable"
	CodeCorruptRecord    = "corrupt_record"

	maxIDLength = 256
)

// Handler serves the campaign and client endpoints. Every request builds one
// request.Context and writes exactly the outcome it concludes with.
type Handler struct {
	deps request.Dependencies
}

func NewHandler(config types.ConfigManager, store campaign.TransientStore, logger types.Logger, metrics types.MetricsManager) *Handler {
	serviceConfig := config.GetConfig()

	var allowed []string
	if serviceConfig.Trust != nil {
		allowed = serviceConfig.Trust.AllowedHosts
	}

	return &Handler{
		deps: request.Dependencies{
			Store:   store,
			Trust:   request.NewRefererVerifier(allowed...),
			Logger:  logger,
			Metrics: metrics,
			Debug:   serviceConfig.Debug,
			Clock:   time.Now,
		},
	}
}

func (h *Handler) RegisterRoutes(router types.HTTPRouter) {
	router.GET("/api/campaigns/{client_id}/{campaign_id}", h.GetCampaign)
	router.POST("/api/campaigns/{client_id}/{campaign_id}/view", h.RecordView)
	router.POST("/api/campaigns/{client_id}/{campaign_id}/suppress", h.SuppressCampaign)
	router.GET("/api/clients/{client_id}", h.GetClient)
	router.POST("/api/clients/{client_id}/newsletter", h.SuppressNewsletter)
}

func (h *Handler) GetCampaign(ctx *fasthttp.RequestCtx) {
	h.serveCampaign(ctx, func(repo *campaign.Repository, clientID, campaignID string) (interface{}, error) {
		return repo.GetCampaignData(ctx, clientID, campaignID)
	})
}

func (h *Handler) RecordView(ctx *fasthttp.RequestCtx) {
	h.serveCampaign(ctx, func(repo *campaign.Repository, clientID, campaignID string) (interface{}, error) {
		return repo.RecordView(ctx, clientID, campaignID, h.deps.Clock())
	})
}

func (h *Handler) SuppressCampaign(ctx *fasthttp.RequestCtx) {
	h.serveCampaign(ctx, func(repo *campaign.Repository, clientID, campaignID string) (interface{}, error) {
		return repo.SuppressCampaign(ctx, clientID, campaignID)
	})
}

func (h *Handler) GetClient(ctx *fasthttp.RequestCtx) {
	h.serveClient(ctx, func(repo *campaign.Repository, clientID string) (interface{}, error) {
		return repo.GetClientData(ctx, clientID)
	})
}

func (h *Handler) SuppressNewsletter(ctx *fasthttp.RequestCtx) {
	h.serveClient(ctx, func(repo *campaign.Repository, clientID string) (interface{}, error) {
		return repo.SuppressNewsletter(ctx, clientID)
	})
}

type campaignOperation func(repo *campaign.Repository, clientID, campaignID string) (interface{}, error)

type clientOperation func(repo *campaign.Repository, clientID string) (interface{}, error)

func (h *Handler) serveCampaign(ctx *fasthttp.RequestCtx, op campaignOperation) {
	h.serve(ctx, "campaign", func(repo *campaign.Repository) (interface{}, error) {
		clientID, campaignID := pathParam(ctx, "client_id"), pathParam(ctx, "campaign_id")
		if clientID == "" || campaignID == "" {
			return nil, types.Errorf(types.ErrInvalidParameter, "client_id and campaign_id are required")
		}
		return op(repo, clientID, campaignID)
	})
}

func (h *Handler) serveClient(ctx *fasthttp.RequestCtx, op clientOperation) {
	h.serve(ctx, "client", func(repo *campaign.Repository) (interface{}, error) {
		clientID := pathParam(ctx, "client_id")
		if clientID == "" {
			return nil, types.Errorf(types.ErrInvalidParameter, "client_id is required")
		}
		return op(repo, clientID)
	})
}

func (h *Handler) serve(ctx *fasthttp.RequestCtx, field string, run func(*campaign.Repository) (interface{}, error)) {
	rc := request.New(h.deps, request.Info{
		Referer: string(ctx.Referer()),
		Host:    string(ctx.Host()),
	})

	writeOutcome(ctx, h.conclude(ctx, rc, field, run))
}

func (h *Handler) conclude(ctx *fasthttp.RequestCtx, rc *request.Context, field string, run func(*campaign.Repository) (interface{}, error)) request.Outcome {
	if outcome, concluded := rc.Outcome(); concluded {
		return outcome
	}

	repo, err := rc.Campaigns()
	if err != nil {
		return rc.Error(request.CodeInternalError)
	}

	result, err := run(repo)
	if err != nil {
		code := ErrorCode(err)
		h.deps.Logger.Warn("Request failed",
			zap.ByteString("path", ctx.Path()),
			zap.String("code", code),
			zap.Error(err))
		return rc.Error(code)
	}

	if err = rc.Set(field, result); err != nil {
		return rc.Error(request.CodeInternalError)
	}

	return rc.Respond()
}

// ErrorCode maps an error to the code reported to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidParameter):
		return CodeInvalidParams
	case errors.Is(err, types.ErrDecodeFailed),
		errors.Is(err, types.ErrStoreRecordCorrupted),
		errors.Is(err, types.ErrCacheEntryInvalid):
		return CodeCorruptRecord
	case errors.Is(err, types.ErrStoreOperationFailed),
		errors.Is(err, types.ErrStoreOpenFailed),
		errors.Is(err, types.ErrStoreNotRunning),
		errors.Is(err, types.ErrCacheOperationFailed),
		errors.Is(err, types.ErrCacheConnectionFailed):
		return CodeStoreUnavailable
	default:
		return request.CodeInternalError
	}
}

func writeOutcome(ctx *fasthttp.RequestCtx, outcome request.Outcome) {
	utils.WriteJSON(ctx, outcome.Status, outcome.Body)
}

func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	value, _ := ctx.UserValue(name).(string)
	if len(value) > maxIDLength {
		return ""
	}
	return value
}
