// Package common provides shared types and utilities used across the SDispatch framework.
package common

// MiddlewareChain represents an ordered list of field middleware.
// Order is execution order: index 0 runs first.
type MiddlewareChain []Middleware

// NewMiddlewareChain creates a new middleware chain
func NewMiddlewareChain(middlewares ...Middleware) MiddlewareChain {
	return middlewares
}

// Append returns a new chain with middlewares added to the end.
// The receiver is never modified, so a route's list can be shared safely.
func (c MiddlewareChain) Append(middlewares ...Middleware) MiddlewareChain {
	result := make(MiddlewareChain, 0, len(c)+len(middlewares))
	result = append(result, c...)
	return append(result, middlewares...)
}
