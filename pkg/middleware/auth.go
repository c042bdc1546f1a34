package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"go.uber.org/zap"
)

// UserField is the field under which AuthenticationWithUser stores the user.
const UserField = "user"

// AuthProvider defines an interface for authentication providers.
// Different authentication mechanisms can implement this interface
// to be used with the Authentication middleware.
type AuthProvider interface {
	// Authenticate returns true if the request carries valid credentials.
	Authenticate(r *http.Request) bool
}

// BasicAuthProvider provides HTTP Basic Authentication.
// It validates username and password credentials against a predefined map.
type BasicAuthProvider struct {
	Credentials map[string]string // username -> password
}

// Authenticate authenticates a request using HTTP Basic Authentication.
func (p *BasicAuthProvider) Authenticate(r *http.Request) bool {
	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}

	expectedPassword, exists := p.Credentials[username]
	if !exists {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(password), []byte(expectedPassword)) == 1
}

// BearerTokenProvider provides Bearer Token Authentication.
// It can validate tokens against a predefined map or using a custom validator function.
type BearerTokenProvider struct {
	ValidTokens map[string]bool         // token -> valid
	Validator   func(token string) bool // optional token validator
}

// Authenticate authenticates a request using Bearer Token Authentication.
// The Validator takes precedence over ValidTokens when both are set.
func (p *BearerTokenProvider) Authenticate(r *http.Request) bool {
	token, ok := BearerToken(r)
	if !ok {
		return false
	}

	if p.Validator != nil {
		return p.Validator(token)
	}

	return p.ValidTokens[token]
}

// APIKeyProvider provides API Key Authentication.
// It can validate API keys provided in a header or query parameter.
type APIKeyProvider struct {
	ValidKeys map[string]bool // key -> valid
	Header    string          // header name (e.g., "X-API-Key")
	Query     string          // query parameter name (e.g., "api_key")
}

// Authenticate checks the header first, then the query parameter.
func (p *APIKeyProvider) Authenticate(r *http.Request) bool {
	if p.Header != "" {
		if key := r.Header.Get(p.Header); key != "" && p.ValidKeys[key] {
			return true
		}
	}

	if p.Query != "" {
		if key := r.URL.Query().Get(p.Query); key != "" && p.ValidKeys[key] {
			return true
		}
	}

	return false
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// Authentication is a middleware that checks credentials with provider.
// On failure it writes 401 Unauthorized itself, which ends the dispatch:
// no later middleware and no handler runs. It contributes no fields.
func Authentication(provider AuthProvider, logger *zap.Logger) common.Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request, _ common.Fields) (common.Fields, error) {
		if !provider.Authenticate(r) {
			logger.Warn("Authentication failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		}
		return nil, nil
	}
}

// NewBasicAuthMiddleware creates a middleware that uses HTTP Basic Authentication.
func NewBasicAuthMiddleware(credentials map[string]string, logger *zap.Logger) common.Middleware {
	return Authentication(&BasicAuthProvider{Credentials: credentials}, logger)
}

// NewBearerTokenMiddleware creates a middleware that uses Bearer Token Authentication.
func NewBearerTokenMiddleware(validTokens map[string]bool, logger *zap.Logger) common.Middleware {
	return Authentication(&BearerTokenProvider{ValidTokens: validTokens}, logger)
}

// NewAPIKeyMiddleware creates a middleware that uses API Key Authentication.
func NewAPIKeyMiddleware(validKeys map[string]bool, header, query string, logger *zap.Logger) common.Middleware {
	return Authentication(&APIKeyProvider{ValidKeys: validKeys, Header: header, Query: query}, logger)
}

// UserAuthProvider defines an interface for authentication providers that return a user object.
type UserAuthProvider[T any] interface {
	// AuthenticateUser returns the user if the request is authenticated,
	// or nil and an error otherwise.
	AuthenticateUser(r *http.Request) (*T, error)
}

// UserAuthFunc adapts a function to UserAuthProvider.
type UserAuthFunc[T any] func(r *http.Request) (*T, error)

// AuthenticateUser implements UserAuthProvider.
func (f UserAuthFunc[T]) AuthenticateUser(r *http.Request) (*T, error) {
	return f(r)
}

// BearerTokenUserAuthProvider provides Bearer Token Authentication with user object return.
type BearerTokenUserAuthProvider[T any] struct {
	GetUserFunc func(token string) (*T, error)
}

// AuthenticateUser authenticates a request using Bearer Token Authentication.
func (p *BearerTokenUserAuthProvider[T]) AuthenticateUser(r *http.Request) (*T, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, errors.New("no bearer token")
	}
	return p.GetUserFunc(token)
}

// BasicUserAuthProvider provides HTTP Basic Authentication with user object return.
type BasicUserAuthProvider[T any] struct {
	GetUserFunc func(username, password string) (*T, error)
}

// AuthenticateUser authenticates a request using HTTP Basic Authentication.
func (p *BasicUserAuthProvider[T]) AuthenticateUser(r *http.Request) (*T, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, errors.New("no basic auth credentials")
	}
	return p.GetUserFunc(username, password)
}

// AuthenticationWithUser contributes the authenticated user under UserField.
// Unlike Authentication it does not write the response: a failed
// authentication is returned as a 401 HTTPError for the router's error handler.
func AuthenticationWithUser[T any](provider UserAuthProvider[T], logger *zap.Logger) common.Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(_ http.ResponseWriter, r *http.Request, _ common.Fields) (common.Fields, error) {
		user, err := provider.AuthenticateUser(r)
		if err != nil || user == nil {
			logger.Warn("Authentication failed",
				zap.Error(err),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			return nil, common.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}
		return common.Fields{UserField: user}, nil
	}
}

// UserFrom reads the user contributed by AuthenticationWithUser.
// Returns nil if no user of type T is present.
func UserFrom[T any](fields common.Fields) *T {
	user, ok := common.Get[*T](fields, UserField)
	if !ok {
		return nil
	}
	return user
}
