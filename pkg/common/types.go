// Package common provides shared types and utilities used across the SDispatch framework.
package common

import (
	"net/http"
)

// Fields is the per-request context accumulated across a middleware chain.
// Each middleware's returned Fields are shallow-merged into it, later keys
// overwriting earlier ones, and the final map is handed to the route handler.
// A Fields value lives for exactly one dispatch.
type Fields map[string]any

// Middleware is a unit of pre-processing run before a route handler.
// It receives the response writer so it can finish the response early, and a
// read-only view of the fields contributed by the middleware that ran before it.
// The returned Fields are merged into the shared context; nil contributes nothing.
// A non-nil error aborts the dispatch and is passed to the router's error handler.
type Middleware func(w http.ResponseWriter, r *http.Request, fields Fields) (Fields, error)

// Handler is the final function bound to a method on a router.
// It receives the request and the merged fields, and returns a value that is
// serialized as the response body with status 200, or an error.
type Handler func(r *http.Request, fields Fields) (any, error)

// Merge copies every key of src into f, overwriting existing keys.
func (f Fields) Merge(src Fields) {
	for k, v := range src {
		f[k] = v
	}
}

// Has reports whether key was contributed by some middleware.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Get retrieves a field and asserts it to T.
// The boolean is false if the key is missing or holds a value of another type.
func Get[T any](f Fields, key string) (T, bool) {
	v, ok := f[key].(T)
	return v, ok
}

// MustGet is like Get but panics when the field is absent or mistyped.
// It is meant for handlers whose middleware chain guarantees the field.
func MustGet[T any](f Fields, key string) T {
	v, ok := Get[T](f, key)
	if !ok {
		panic("common: field " + key + " missing or of unexpected type")
	}
	return v
}
