package router

import (
	"net/http"
	"time"

	"github.com/Suhaibinator/SDispatch/pkg/codec"
	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/Suhaibinator/SDispatch/pkg/metrics"
	"go.uber.org/zap"
)

// ErrorHandler translates a failure into a written response.
// It must write exactly one response and must not panic.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// RouterConfig defines the configuration for a router.
// Every field is optional; the zero value gives a JSON router with a
// production zap logger and the default error handler.
type RouterConfig struct {
	Logger             *zap.Logger         // Logger for all router operations
	ErrorHandler       ErrorHandler        // Error translator, DefaultErrorHandler when nil
	Codec              codec.Codec         // Response codec, JSON when nil
	Middlewares        []common.Middleware // Initial global middleware, run after route middleware
	Metrics            metrics.Collector   // Dispatch metrics collector (optional)
	EnableTracing      bool                // Log a debug record for every dispatch
	EnableTraceID      bool                // Include the trace_id field in dispatch logs when present
	SlowRequestTimeout time.Duration       // Dispatches slower than this are logged at Warn, 1s when zero
}

// Middleware is an alias for common.Middleware.
type Middleware = common.Middleware

// Handler is an alias for common.Handler.
type Handler = common.Handler

// Fields is an alias for common.Fields.
type Fields = common.Fields

// HTTPError is an alias for common.HTTPError.
type HTTPError = common.HTTPError

// NewHTTPError creates a new HTTPError with the specified status code and message.
func NewHTTPError(statusCode int, message string) *HTTPError {
	return common.NewHTTPError(statusCode, message)
}
