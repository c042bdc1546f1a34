// Package mount attaches exported dispatchers to URL paths.
// Path routing is outside the dispatcher: a Mux resolves the path with
// httprouter and hands every method to the mounted handler, which decides
// on its own which methods it supports.
package mount

import (
	"context"
	"net/http"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ParamsKey is the key used to store httprouter.Params in the request context.
	ParamsKey contextKey = "params"

	// ParamsField is the field under which Params stores the path parameters.
	ParamsField = "params"
)

// mountedMethods are forwarded to mounted handlers. HEAD and OPTIONS are
// included so that the mounted handler answers them, not the mux.
var mountedMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// MuxConfig configures a Mux.
type MuxConfig struct {
	Logger *zap.Logger

	// NotFound handles paths with nothing mounted. Defaults to http.NotFound.
	NotFound http.Handler
}

// Mux routes request paths to mounted handlers.
type Mux struct {
	router *httprouter.Router
	logger *zap.Logger
}

// NewMux creates an empty Mux.
func NewMux(config MuxConfig) *Mux {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hr := httprouter.New()
	hr.HandleMethodNotAllowed = false
	hr.HandleOPTIONS = false
	if config.NotFound != nil {
		hr.NotFound = config.NotFound
	}

	return &Mux{router: hr, logger: logger}
}

// Mount attaches h to path for every method. Path may contain httprouter
// parameters such as /users/:id. Mounting two handlers on conflicting paths
// panics, as httprouter does.
func (m *Mux) Mount(path string, h http.Handler) {
	handle := withParams(h)
	for _, method := range mountedMethods {
		m.router.Handle(method, path, handle)
	}
	m.logger.Debug("Mounted handler", zap.String("path", path))
}

// ServeHTTP implements the http.Handler interface.
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.router.ServeHTTP(w, r)
}

// withParams stores the route parameters in the request context so the
// Params middleware can read them.
func withParams(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if len(ps) > 0 {
			r = r.WithContext(context.WithValue(r.Context(), ParamsKey, ps))
		}
		h.ServeHTTP(w, r)
	}
}

// GetParams retrieves the httprouter.Params from the request context.
func GetParams(r *http.Request) httprouter.Params {
	params, _ := r.Context().Value(ParamsKey).(httprouter.Params)
	return params
}

// GetParam retrieves a specific parameter from the request context.
func GetParam(r *http.Request, name string) string {
	return GetParams(r).ByName(name)
}

// Params returns a middleware that contributes the path parameters as a
// map[string]string under ParamsField. The map is empty, never nil, when
// the path has no parameters.
func Params() common.Middleware {
	return func(_ http.ResponseWriter, r *http.Request, _ common.Fields) (common.Fields, error) {
		ps := GetParams(r)
		params := make(map[string]string, len(ps))
		for _, p := range ps {
			params[p.Key] = p.Value
		}
		return common.Fields{ParamsField: params}, nil
	}
}

// ParamsFrom reads the parameters contributed by Params.
func ParamsFrom(fields common.Fields) map[string]string {
	params, _ := common.Get[map[string]string](fields, ParamsField)
	return params
}
