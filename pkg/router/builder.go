package router

import (
	"net/http"

	"github.com/Suhaibinator/SDispatch/pkg/common"
)

// ChainBuilder binds one middleware list to any number of methods.
// It is write-only: binders store (handler, middlewares) and return nothing,
// and there is no way to narrow the list further from a builder.
type ChainBuilder struct {
	setter      HandlerSetter
	middlewares common.MiddlewareChain
}

func newChainBuilder(setter HandlerSetter, middlewares []common.Middleware) *ChainBuilder {
	return &ChainBuilder{
		setter:      setter,
		middlewares: common.NewMiddlewareChain(middlewares...),
	}
}

func (b *ChainBuilder) bind(method Method, handler common.Handler) {
	b.setter.SetHandler(method, RouteEntry{Handler: handler, Middlewares: b.middlewares})
}

// Get binds handler to GET behind the builder's middleware.
func (b *ChainBuilder) Get(handler common.Handler) { b.bind(MethodGet, handler) }

// Post binds handler to POST behind the builder's middleware.
func (b *ChainBuilder) Post(handler common.Handler) { b.bind(MethodPost, handler) }

// Put binds handler to PUT behind the builder's middleware.
func (b *ChainBuilder) Put(handler common.Handler) { b.bind(MethodPut, handler) }

// Patch binds handler to PATCH behind the builder's middleware.
func (b *ChainBuilder) Patch(handler common.Handler) { b.bind(MethodPatch, handler) }

// Delete binds handler to DELETE behind the builder's middleware.
func (b *ChainBuilder) Delete(handler common.Handler) { b.bind(MethodDelete, handler) }

// GlobalBuilder is returned by Router.GlobalMiddleware.
// Its binders attach no route middleware of their own, because global
// middleware is applied at dispatch time rather than stored per route.
type GlobalBuilder struct {
	router *Router
}

// Get binds handler to GET with no route middleware.
func (g *GlobalBuilder) Get(handler common.Handler) { g.router.Get(handler) }

// Post binds handler to POST with no route middleware.
func (g *GlobalBuilder) Post(handler common.Handler) { g.router.Post(handler) }

// Put binds handler to PUT with no route middleware.
func (g *GlobalBuilder) Put(handler common.Handler) { g.router.Put(handler) }

// Patch binds handler to PATCH with no route middleware.
func (g *GlobalBuilder) Patch(handler common.Handler) { g.router.Patch(handler) }

// Delete binds handler to DELETE with no route middleware.
func (g *GlobalBuilder) Delete(handler common.Handler) { g.router.Delete(handler) }

// Middleware declares route middleware to combine with the global set.
// Route middleware still runs before the global middleware.
func (g *GlobalBuilder) Middleware(middlewares ...common.Middleware) *ChainBuilder {
	return g.router.Middleware(middlewares...)
}

// Export returns the router's dispatch handler.
func (g *GlobalBuilder) Export() http.Handler {
	return g.router.Export()
}
