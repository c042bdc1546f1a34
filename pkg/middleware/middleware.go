package middleware

import (
	"bytes"
	"context"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Wrapper decorates an http.Handler. Wrappers run outside the dispatcher,
// around the handler returned by Router.Export, and see every request
// including the ones the dispatcher rejects.
type Wrapper func(next http.Handler) http.Handler

// Chain composes wrappers so that the first one is outermost.
func Chain(wrappers ...Wrapper) Wrapper {
	return func(next http.Handler) http.Handler {
		for i := len(wrappers) - 1; i >= 0; i-- {
			next = wrappers[i](next)
		}
		return next
	}
}

// Recovery recovers from panics that escape next
func Recovery(logger *zap.Logger) Wrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("Panic recovered",
						zap.Any("panic", rec),
						zap.String("stack", string(debug.Stack())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
					)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Logging logs one line per request. Server errors are logged at Error,
// client errors and slow requests at Warn, and everything else at Debug.
func Logging(logger *zap.Logger, slowThreshold time.Duration) Wrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slowThreshold <= 0 {
		slowThreshold = time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Int64("bytes", rw.bytes),
				zap.Duration("duration", duration),
			}
			if id := rw.Header().Get("X-Request-ID"); id != "" {
				fields = append(fields, zap.String("trace_id", id))
			}

			switch {
			case rw.statusCode >= 500:
				logger.Error("Server error", append(fields, zap.String("remote_addr", r.RemoteAddr))...)
			case rw.statusCode >= 400:
				logger.Warn("Client error", fields...)
			case duration > slowThreshold:
				logger.Warn("Slow request", fields...)
			default:
				logger.Debug("Request", fields...)
			}
		})
	}
}

// MaxBodySize caps the request body at maxSize bytes. Reads past the cap
// fail, which a decoding middleware reports as a bad request.
func MaxBodySize(maxSize int64) Wrapper {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxSize)
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds the request with a context deadline. If next has not
// finished in time, a 503 is written and whatever next writes afterwards is
// discarded.
func Timeout(timeout time.Duration) Wrapper {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			r = r.WithContext(ctx)

			tw := &timeoutWriter{header: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						panicked <- rec
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case rec := <-panicked:
				panic(rec)
			case <-done:
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.flushTo(w)
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.timedOut = true
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			}
		})
	}
}

// timeoutWriter buffers the response so that a late writer cannot interleave
// with the timeout response.
type timeoutWriter struct {
	mu       sync.Mutex
	header   http.Header
	buf      bytes.Buffer
	status   int
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.header
}

func (tw *timeoutWriter) WriteHeader(statusCode int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.status != 0 {
		return
	}
	tw.status = statusCode
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if tw.status == 0 {
		tw.status = http.StatusOK
	}
	return tw.buf.Write(b)
}

// flushTo copies the buffered response to w. Callers hold tw.mu.
func (tw *timeoutWriter) flushTo(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range tw.header {
		dst[k] = v
	}
	if tw.status == 0 {
		tw.status = http.StatusOK
	}
	w.WriteHeader(tw.status)
	_, _ = w.Write(tw.buf.Bytes())
}

// CORSConfig configures the CORS wrapper.
type CORSConfig struct {
	// AllowOrigins lists permitted origins; "*" permits any.
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	// MaxAge is how long browsers may cache a preflight result.
	MaxAge time.Duration
}

// CORS adds CORS headers and answers preflight requests itself. Preflights
// never reach the dispatcher, which would reject OPTIONS with a 405.
func CORS(config CORSConfig) Wrapper {
	wildcard := slices.Contains(config.AllowOrigins, "*")
	methods := strings.Join(config.AllowMethods, ", ")
	headers := strings.Join(config.AllowHeaders, ", ")
	expose := strings.Join(config.ExposeHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			if origin != "" {
				h.Add("Vary", "Origin")
				switch {
				case wildcard && !config.AllowCredentials:
					h.Set("Access-Control-Allow-Origin", "*")
				case wildcard || slices.Contains(config.AllowOrigins, origin):
					h.Set("Access-Control-Allow-Origin", origin)
				}
				if config.AllowCredentials && h.Get("Access-Control-Allow-Origin") != "" {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if expose != "" {
					h.Set("Access-Control-Expose-Headers", expose)
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if methods != "" {
					h.Set("Access-Control-Allow-Methods", methods)
				}
				if headers != "" {
					h.Set("Access-Control-Allow-Headers", headers)
				}
				if config.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(int(config.MaxAge/time.Second)))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the status code and body size of a response
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	bytes       int64
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// Flush calls the underlying ResponseWriter.Flush if it implements http.Flusher
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
