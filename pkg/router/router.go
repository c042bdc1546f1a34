// Package router provides a method-dispatching request handler with
// composable field middleware and centralized error translation.
package router

import (
	"context"
	"net/http"
	"sync"

	"github.com/Suhaibinator/SDispatch/pkg/codec"
	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/Suhaibinator/SDispatch/pkg/metrics"
	"go.uber.org/zap"
)

// Router is a single logical endpoint multiplexed by HTTP method.
// It binds at most one handler per method, runs field middleware before the
// handler and writes the handler's result as JSON. Router implements
// http.Handler; Export returns the same dispatch function.
//
// Registration is not synchronized. Register every route before the router
// starts serving; registering while requests are in flight is unsupported.
type Router struct {
	config            RouterConfig
	registry          *Registry
	globalMiddlewares common.MiddlewareChain
	errorHandler      ErrorHandler
	codec             codec.Codec
	logger            *zap.Logger
	metrics           metrics.Collector
	wg                sync.WaitGroup
	shutdown          bool
	shutdownMu        sync.RWMutex
	writerPool        sync.Pool // Pool for reusing dispatchWriter objects
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(config RouterConfig) *Router {
	// Set up the logger
	logger := config.Logger
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			// Fallback to a no-op logger if we can't create a production logger
			logger = zap.NewNop()
		}
	}

	r := &Router{
		config:            config,
		registry:          NewRegistry(),
		globalMiddlewares: common.NewMiddlewareChain(config.Middlewares...),
		errorHandler:      config.ErrorHandler,
		codec:             config.Codec,
		logger:            logger,
		metrics:           config.Metrics,
		writerPool: sync.Pool{
			New: func() interface{} {
				return &dispatchWriter{}
			},
		},
	}

	if r.errorHandler == nil {
		r.errorHandler = DefaultErrorHandler
	}
	if r.codec == nil {
		r.codec = codec.NewJSONCodec()
	}

	return r
}

// SetHandler stores entry for method, replacing any previous binding.
// It makes Router a HandlerSetter.
func (r *Router) SetHandler(method Method, entry RouteEntry) {
	r.registry.SetHandler(method, entry)
}

// Route returns the entry currently bound to method.
func (r *Router) Route(method Method) (RouteEntry, bool) {
	return r.registry.Get(method)
}

// Get binds handler to GET with no route middleware.
func (r *Router) Get(handler common.Handler) { r.registry.BindHandler(MethodGet, handler) }

// Post binds handler to POST with no route middleware.
func (r *Router) Post(handler common.Handler) { r.registry.BindHandler(MethodPost, handler) }

// Put binds handler to PUT with no route middleware.
func (r *Router) Put(handler common.Handler) { r.registry.BindHandler(MethodPut, handler) }

// Patch binds handler to PATCH with no route middleware.
func (r *Router) Patch(handler common.Handler) { r.registry.BindHandler(MethodPatch, handler) }

// Delete binds handler to DELETE with no route middleware.
func (r *Router) Delete(handler common.Handler) { r.registry.BindHandler(MethodDelete, handler) }

// Middleware returns a builder that binds handlers behind middlewares.
// The middlewares run in the given order, before any global middleware.
func (r *Router) Middleware(middlewares ...common.Middleware) *ChainBuilder {
	return newChainBuilder(r, middlewares)
}

// GlobalMiddleware replaces the router's global middleware list.
// Global middleware runs on every route, after the route's own middleware
// and immediately before the handler. The list is read on each dispatch, so
// handlers exported earlier see the new list too.
func (r *Router) GlobalMiddleware(middlewares ...common.Middleware) *GlobalBuilder {
	r.globalMiddlewares = common.NewMiddlewareChain(middlewares...)
	return &GlobalBuilder{router: r}
}

// Export returns the dispatch function as an http.Handler.
// The handler reads the router's registry and global middleware at call
// time, so registrations made after Export are visible to it.
func (r *Router) Export() http.Handler {
	r.logger.Debug("Router exported",
		zap.Strings("methods", methodStrings(r.registry.Bound())),
		zap.Int("global_middlewares", len(r.globalMiddlewares)),
	)
	return http.HandlerFunc(r.ServeHTTP)
}

// Shutdown gracefully shuts down the router.
// It stops accepting new requests and waits for existing requests to complete.
// If the context is canceled before all requests complete, it returns the context's error.
func (r *Router) Shutdown(ctx context.Context) error {
	// Mark the router as shutting down
	r.shutdownMu.Lock()
	r.shutdown = true
	r.shutdownMu.Unlock()

	// Create a channel to signal when all requests are done
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	// Wait for all requests to finish or for the context to be canceled
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enter registers an in-flight dispatch, or reports that the router is
// shutting down. Callers that get true must call r.wg.Done.
func (r *Router) enter() bool {
	// Add under the read lock: Shutdown sets the flag under the write lock,
	// so no Add can follow the start of its Wait.
	r.shutdownMu.RLock()
	defer r.shutdownMu.RUnlock()

	if r.shutdown {
		return false
	}
	r.wg.Add(1)
	return true
}

func methodStrings(methods []Method) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = string(m)
	}
	return out
}
