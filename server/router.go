package server

import (
	"strings"
	"sync"

	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-campaigns/types"
)

type compiledRoute struct {
	method   string
	pattern  string
	segments []string
	handler  fasthttp.RequestHandler
	config   *types.RouteConfig
}

// Router matches exact paths through a map and patterns with {name} segments
// in registration order. Matched parameters are stored as user values.
type Router struct {
	mu          sync.RWMutex
	static      map[string]*compiledRoute
	dynamic     []*compiledRoute
	definitions []types.RouteDefinition
}

func NewRouter() *Router {
	return &Router{
		static: make(map[string]*compiledRoute),
	}
}

func (r *Router) Add(method, path string, handler fasthttp.RequestHandler, config *types.RouteConfig) {
	if config == nil {
		config = &types.RouteConfig{}
	}

	path = normalizePath(path)
	route := &compiledRoute{
		method:   method,
		pattern:  path,
		segments: splitPath(path),
		handler:  handler,
		config:   config,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.Contains(path, "{") {
		r.dynamic = append(r.dynamic, route)
	} else {
		r.static[method+" "+path] = route
	}

	r.definitions = append(r.definitions, types.RouteDefinition{
		Method:  method,
		Path:    path,
		Handler: handler,
		Config:  config,
	})
}

func (r *Router) GET(path string, handler fasthttp.RequestHandler) {
	r.Add(fasthttp.MethodGet, path, handler, nil)
}

func (r *Router) POST(path string, handler fasthttp.RequestHandler) {
	r.Add(fasthttp.MethodPost, path, handler, nil)
}

func (r *Router) Routes() []types.RouteDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.RouteDefinition, len(r.definitions))
	copy(out, r.definitions)
	return out
}

// Lookup finds the route for method and path. found is true when some route
// matches the path, even if not for this method.
func (r *Router) Lookup(method, path string) (handler fasthttp.RequestHandler, config *types.RouteConfig, params map[string]string, found bool) {
	path = normalizePath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if route, ok := r.static[method+" "+path]; ok {
		return route.handler, route.config, nil, true
	}

	segments := splitPath(path)
	for _, route := range r.dynamic {
		matched, ok := matchSegments(route.segments, segments)
		if !ok {
			continue
		}
		if route.method == method {
			return route.handler, route.config, matched, true
		}
		found = true
	}

	if !found {
		for key := range r.static {
			if strings.HasSuffix(key, " "+path) {
				found = true
				break
			}
		}
	}

	return nil, nil, nil, found
}

func matchSegments(pattern, path []string) (map[string]string, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}

	var params map[string]string
	for i, segment := range pattern {
		if isParam(segment) {
			if path[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string, 2)
			}
			params[segment[1:len(segment)-1]] = path[i]
			continue
		}
		if segment != path[i] {
			return nil, false
		}
	}

	return params, true
}

func isParam(segment string) bool {
	return len(segment) > 2 && segment[0] == '{' && segment[len(segment)-1] == '}'
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return []string{}
	}
	return strings.Split(path, "/")
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if path[0] != '/' {
		path = "/" + path
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = strings.TrimRight(path, "/")
	}
	return path
}
