package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/bobmcallan/doc-mcp-server/internal/handlers"
)

// RouteHandler is a function type for HTTP handlers.
type RouteHandler func(http.ResponseWriter, *http.Request)

// MethodRouter maps HTTP methods to handlers.
type MethodRouter map[string]RouteHandler

// RouteByMethod routes requests based on HTTP method. HEAD falls back to GET.
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	handler, ok := routes[r.Method]
	if !ok && r.Method == http.MethodHead {
		handler, ok = routes[http.MethodGet]
	}
	if !ok {
		w.Header().Set("Allow", routes.allowed())
		handlers.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	handler(w, r)
}

func (m MethodRouter) allowed() string {
	methods := make([]string, 0, len(m))
	for method := range m {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
