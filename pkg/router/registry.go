package router

import (
	"net/http"

	"github.com/Suhaibinator/SDispatch/pkg/common"
)

// Method is one of the HTTP methods a router can bind a handler to.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// Methods lists the supported methods in registration order.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// ParseMethod resolves a raw request method to a supported Method.
// Matching is exact, as with net/http: "get" is not GET.
func ParseMethod(raw string) (Method, bool) {
	switch Method(raw) {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return Method(raw), true
	}
	return "", false
}

// RouteEntry is the handler bound to one method together with the
// middleware that runs before it on that binding only.
type RouteEntry struct {
	Handler     common.Handler
	Middlewares common.MiddlewareChain
}

// HandlerSetter is the mutation contract shared by the router and its
// builders: a plain slot assignment per method.
type HandlerSetter interface {
	SetHandler(method Method, entry RouteEntry)
}

// Registry holds at most one RouteEntry per method.
// It is not synchronized: all writes are expected to happen at startup,
// before the router is handed to a server.
type Registry struct {
	entries map[Method]RouteEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Method]RouteEntry, len(Methods))}
}

// SetHandler stores entry for method, replacing any previous entry.
func (reg *Registry) SetHandler(method Method, entry RouteEntry) {
	reg.entries[method] = entry
}

// Get returns the entry bound to method.
// The boolean is false when nothing usable is bound.
func (reg *Registry) Get(method Method) (RouteEntry, bool) {
	entry, ok := reg.entries[method]
	if !ok || entry.Handler == nil {
		return RouteEntry{}, false
	}
	return entry, true
}

// BindHandler binds handler to method with no route middleware.
func (reg *Registry) BindHandler(method Method, handler common.Handler) {
	reg.SetHandler(method, RouteEntry{Handler: handler})
}

// BindHandlerWithMiddleware binds handler to method behind middlewares.
func (reg *Registry) BindHandlerWithMiddleware(method Method, handler common.Handler, middlewares []common.Middleware) {
	reg.SetHandler(method, RouteEntry{
		Handler:     handler,
		Middlewares: common.NewMiddlewareChain(middlewares...),
	})
}

// Bound returns the methods that currently have a handler, in Methods order.
func (reg *Registry) Bound() []Method {
	var bound []Method
	for _, m := range Methods {
		if _, ok := reg.Get(m); ok {
			bound = append(bound, m)
		}
	}
	return bound
}
