package router

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/Suhaibinator/SDispatch/pkg/metrics"
	"github.com/Suhaibinator/SDispatch/pkg/middleware"
	"go.uber.org/zap"
)

// ServeHTTP implements the http.Handler interface.
// It dispatches the request and then records metrics and trace logs.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// Get a dispatchWriter from the pool
	dw := r.writerPool.Get().(*dispatchWriter)
	dw.reset(w)
	start := time.Now()

	fields, shortCircuited := r.dispatch(dw, req)

	r.observe(dw, req, fields, time.Since(start), shortCircuited)

	// Reset fields that might hold references to prevent memory leaks
	dw.ResponseWriter = nil
	r.writerPool.Put(dw)
}

// dispatch runs one request through resolution, middleware and handler.
// It returns the accumulated fields and whether a middleware finished the
// response. Every failure ends in exactly one call to r.fail.
func (r *Router) dispatch(w *dispatchWriter, req *http.Request) (fields common.Fields, shortCircuited bool) {
	if !r.enter() {
		r.fail(w, req, nil, NewHTTPError(http.StatusServiceUnavailable, "service unavailable"))
		return nil, false
	}
	defer r.wg.Done()

	// Runs before wg.Done, so Shutdown waits for the fallback response.
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			r.logger.Error("Panic recovered",
				r.logFields(req, fields,
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
				)...,
			)
			r.fail(w, req, fields, fmt.Errorf("panic: %v", rec))
		}
	}()

	entry, ok := r.resolve(req.Method)
	if !ok {
		r.fail(w, req, nil, NewHTTPError(http.StatusMethodNotAllowed, fmt.Sprintf("%s method not allowed", req.Method)))
		return nil, false
	}

	fields = common.Fields{}

	// Route middleware first, then global middleware
	chain := entry.Middlewares.Append(r.globalMiddlewares...)

	for i, m := range chain {
		contributed, err := m(w, req, fields)

		if w.Written() {
			if err != nil {
				r.logger.Error("Middleware failed after writing response",
					r.logFields(req, fields, zap.Error(err), zap.Int("middleware", i))...,
				)
			}
			return fields, true
		}

		if err != nil {
			r.fail(w, req, fields, err)
			return fields, false
		}

		fields.Merge(contributed)
	}

	result, err := entry.Handler(req, fields)
	if err != nil {
		r.fail(w, req, fields, err)
		return fields, false
	}

	if err := r.codec.Encode(w, http.StatusOK, result); err != nil {
		r.fail(w, req, fields, fmt.Errorf("encode response: %w", err))
	}
	return fields, false
}

// resolve maps a raw request method to its route entry.
func (r *Router) resolve(raw string) (RouteEntry, bool) {
	method, ok := ParseMethod(raw)
	if !ok {
		return RouteEntry{}, false
	}
	return r.registry.Get(method)
}

// fail logs err and hands it to the error handler, unless a response has
// already been written, in which case it only logs.
func (r *Router) fail(w *dispatchWriter, req *http.Request, fields common.Fields, err error) {
	if httpErr, ok := common.AsHTTPError(err); ok && isErrorStatus(httpErr.StatusCode) && httpErr.StatusCode < http.StatusInternalServerError {
		r.logger.Warn("Request failed", r.logFields(req, fields, zap.Error(err), zap.Int("status", httpErr.StatusCode))...)
	} else {
		r.logger.Error("Request failed", r.logFields(req, fields, zap.Error(err))...)
	}

	if w.Written() {
		r.logger.Error("Response already written, dropping error response", r.logFields(req, fields)...)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Error handler panicked", r.logFields(req, fields, zap.Any("panic", rec))...)
			if !w.Written() {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}
	}()

	r.errorHandler(w, req, err)
}

// observe records metrics and trace logs for a finished dispatch.
func (r *Router) observe(w *dispatchWriter, req *http.Request, fields common.Fields, duration time.Duration, shortCircuited bool) {
	if r.metrics != nil {
		r.metrics.ObserveRequest(req, metrics.Observation{
			Status:         w.Status(),
			Duration:       duration,
			BytesWritten:   w.bytesWritten,
			ShortCircuited: shortCircuited,
		})
	}

	slow := r.config.SlowRequestTimeout
	if slow <= 0 {
		slow = time.Second
	}
	if duration > slow {
		r.logger.Warn("Slow request",
			r.logFields(req, fields, zap.Int("status", w.Status()), zap.Duration("duration", duration))...,
		)
	}

	if r.config.EnableTracing {
		r.logger.Debug("Request trace",
			r.logFields(req, fields,
				zap.String("remote_addr", req.RemoteAddr),
				zap.String("user_agent", req.UserAgent()),
				zap.Int("status", w.Status()),
				zap.Duration("duration", duration),
				zap.Int64("bytes", w.bytesWritten),
				zap.Bool("short_circuited", shortCircuited),
			)...,
		)
	}
}

// logFields builds the common log fields for a request, prefixed with the
// trace ID when tracing IDs are enabled and a middleware contributed one.
func (r *Router) logFields(req *http.Request, fields common.Fields, extra ...zap.Field) []zap.Field {
	out := make([]zap.Field, 0, len(extra)+3)
	if r.config.EnableTraceID {
		if traceID := middleware.TraceID(fields); traceID != "" {
			out = append(out, zap.String("trace_id", traceID))
		}
	}
	out = append(out,
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
	)
	return append(out, extra...)
}

// dispatchWriter is a wrapper around http.ResponseWriter that records whether
// the response has been started, the status code and the bytes written.
// Once anything is written the response counts as finalized for the dispatch.
type dispatchWriter struct {
	http.ResponseWriter
	written      bool
	statusCode   int
	bytesWritten int64
}

func (w *dispatchWriter) reset(rw http.ResponseWriter) {
	w.ResponseWriter = rw
	w.written = false
	w.statusCode = http.StatusOK
	w.bytesWritten = 0
}

// WriteHeader captures the status code and calls the underlying ResponseWriter.WriteHeader.
// The response only counts as written once the underlying call returns, so
// an invalid code that panics there still leaves room for a fallback.
func (w *dispatchWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	if !w.written {
		w.statusCode = statusCode
	}
	w.written = true
}

// Write marks the response as written and counts the bytes.
func (w *dispatchWriter) Write(b []byte) (int, error) {
	w.written = true
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// Flush calls the underlying ResponseWriter.Flush if it implements http.Flusher.
func (w *dispatchWriter) Flush() {
	w.written = true
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *dispatchWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Written reports whether a status or body has been written.
func (w *dispatchWriter) Written() bool {
	return w.written
}

// Status returns the status code written, or 200 if none was set explicitly.
func (w *dispatchWriter) Status() int {
	return w.statusCode
}
