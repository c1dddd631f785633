package types

import (
	"github.com/valyala/fasthttp"
)

type HTTPServer interface {
	LifecycleManager
}

type HTTPRouter interface {
	Add(method, path string, handler fasthttp.RequestHandler, config *RouteConfig)
	GET(path string, handler fasthttp.RequestHandler)
	POST(path string, handler fasthttp.RequestHandler)
	Routes() []RouteDefinition
}

type RouteConfig struct {
	DisabledMiddlewares []string
}

type RouteDefinition struct {
	Method  string
	Path    string
	Handler fasthttp.RequestHandler
	Config  *RouteConfig
}
