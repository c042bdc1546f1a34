// Package middleware provides field middleware and host-level handler
// wrappers for the SDispatch framework.
package middleware

import (
	"net/http"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/google/uuid"
)

// TraceIDField is the field under which Trace stores the request's trace ID.
const TraceIDField = "trace_id"

// TraceConfig configures the Trace middleware.
type TraceConfig struct {
	// Header is read for an incoming trace ID and set on the response.
	// Empty disables both.
	Header string

	// Generator creates new trace IDs. Defaults to UUID v4.
	Generator func() string
}

// DefaultTraceConfig propagates trace IDs through X-Request-ID.
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		Header:    "X-Request-ID",
		Generator: generateTraceID,
	}
}

func generateTraceID() string {
	return uuid.New().String()
}

// Trace returns a middleware that contributes a unique trace ID per request.
func Trace() common.Middleware {
	return TraceWithConfig(DefaultTraceConfig())
}

// TraceWithConfig returns a Trace middleware with config.
// An incoming ID in the configured header is reused, otherwise a new one is
// generated. The ID is echoed on the response header before anything is
// written, so it does not finish the response.
func TraceWithConfig(config TraceConfig) common.Middleware {
	if config.Generator == nil {
		config.Generator = generateTraceID
	}

	return func(w http.ResponseWriter, r *http.Request, _ common.Fields) (common.Fields, error) {
		var traceID string
		if config.Header != "" {
			traceID = r.Header.Get(config.Header)
		}
		if traceID == "" {
			traceID = config.Generator()
		}
		if config.Header != "" {
			w.Header().Set(config.Header, traceID)
		}
		return common.Fields{TraceIDField: traceID}, nil
	}
}

// TraceID extracts the trace ID from the fields.
// Returns an empty string if no trace ID is found.
func TraceID(fields common.Fields) string {
	traceID, _ := common.Get[string](fields, TraceIDField)
	return traceID
}
