package server

import (
	"net/http"
	"slices"
	"strings"
)

var _ Router = (*BasicRouter)(nil)

// BasicRouter dispatches through an [http.ServeMux] and runs every route through the
// middleware registered with [BasicRouter.Use].
//
// Middleware must be registered before the routes it should wrap.
type BasicRouter struct {
	mux   *http.ServeMux
	stack []Middleware
}

// NewBasicRouter creates an empty [BasicRouter].
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. The first one added is the outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.stack = append(r.stack, middleware...)
}

// Handle registers handler for path. When methods are given, any other method gets a
// JSON 405 with an Allow header. Rejected requests still pass through the middleware.
func (r *BasicRouter) Handle(path string, handler http.Handler, methods ...string) {
	if len(methods) > 0 {
		handler = allowMethods(handler, methods)
	}
	r.mux.Handle(path, r.wrap(handler))
}

// ServeHTTP implements [http.Handler].
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *BasicRouter) wrap(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(r.stack) {
		handler = mw(handler)
	}
	return handler
}

func allowMethods(next http.Handler, methods []string) http.Handler {
	allow := strings.Join(methods, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !slices.ContainsFunc(methods, func(m string) bool { return strings.EqualFold(m, req.Method) }) {
			w.Header().Set("Allow", allow)
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		next.ServeHTTP(w, req)
	})
}
