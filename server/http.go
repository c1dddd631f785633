package server

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

type FastHTTPServer struct {
	logger          types.Logger
	middlewares     types.MiddlewareManager
	router          *Router
	server          *fasthttp.Server
	listener        net.Listener
	httpConfig      *types.HTTPConfig
	state           atomic.Value
	shutdownTimeout time.Duration
}

func NewHTTPServer(config types.ConfigManager, logger types.Logger, middlewares types.MiddlewareManager, router *Router) (*FastHTTPServer, error) {
	serverConfig := config.GetConfig().Server
	if serverConfig == nil || serverConfig.HTTP == nil {
		return nil, types.ErrConfigIsNil
	}

	shutdownTimeout := time.Duration(serverConfig.HTTP.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}

	server := &FastHTTPServer{
		logger:          logger,
		middlewares:     middlewares,
		router:          router,
		httpConfig:      serverConfig.HTTP,
		shutdownTimeout: shutdownTimeout,
	}

	server.state.Store(StateStopped)
	return server, nil
}

func (h *FastHTTPServer) Start() error {
	if !h.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	addr := fmt.Sprintf("%s:%d", h.httpConfig.Host, h.httpConfig.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		h.setState(StateStopped)
		return types.Errorf(types.ErrServerStartFailed, "listen %s: %w", addr, err)
	}

	h.listener = listener
	h.server = &fasthttp.Server{
		Handler:                      h.Handler(),
		ReadTimeout:                  time.Duration(h.httpConfig.ReadTimeout) * time.Second,
		WriteTimeout:                 time.Duration(h.httpConfig.WriteTimeout) * time.Second,
		IdleTimeout:                  time.Duration(h.httpConfig.IdleTimeout) * time.Second,
		TCPKeepalive:                 true,
		DisablePreParseMultipartForm: true,
		CloseOnShutdown:              true,
	}

	go func() {
		if err := h.server.Serve(listener); err != nil {
			h.logger.Error("HTTP server failed", zap.Error(err))
			h.setState(StateStopped)
		}
	}()

	h.setState(StateRunning)
	h.logger.Info("HTTP server started successfully", zap.String("address", addr))

	return nil
}

func (h *FastHTTPServer) Stop() error {
	if !h.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer h.setState(StateStopped)

	ctx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()

	if err := h.server.ShutdownWithContext(ctx); err != nil {
		h.logger.Warn("Server stop timeout, some connections may not have closed gracefully", zap.Error(err))
		return nil
	}

	h.logger.Info("HTTP server stopped gracefully")
	return nil
}

func (h *FastHTTPServer) IsRunning() bool {
	return h.getState() == StateRunning
}

// Handler routes a request and runs it through the middleware chain.
func (h *FastHTTPServer) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		handler, config, params, found := h.router.Lookup(string(ctx.Method()), string(ctx.Path()))

		if handler == nil {
			status, code := fasthttp.StatusNotFound, "not_found"
			if found {
				status, code = fasthttp.StatusMethodNotAllowed, "method_not_allowed"
			}
			utils.CreateErrorResponse(ctx, status, code)
			return
		}

		for name, value := range params {
			ctx.SetUserValue(name, value)
		}

		if h.middlewares == nil {
			handler(ctx)
			return
		}

		h.middlewares.Execute(ctx, handler, config)
	}
}

func (h *FastHTTPServer) Addr() net.Addr {
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

func (h *FastHTTPServer) getState() State {
	return h.state.Load().(State)
}

func (h *FastHTTPServer) setState(newState State) {
	h.state.Store(newState)
}

func (h *FastHTTPServer) transitionState(from, to State) bool {
	return h.state.CompareAndSwap(from, to)
}
