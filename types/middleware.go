package types

import "github.com/valyala/fasthttp"

type MiddlewareManager interface {
	Register(middleware Middleware) error
	Execute(ctx *fasthttp.RequestCtx, handler fasthttp.RequestHandler, config *RouteConfig)
}

type Middleware interface {
	Handle(ctx *fasthttp.RequestCtx, next fasthttp.RequestHandler, config *RouteConfig)
	Name() string
	Weight() int
}
