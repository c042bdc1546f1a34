package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// SessionField is the field under which JWTSession stores the token claims.
const SessionField = "session"

// JWTConfig configures the JWTSession middleware.
type JWTConfig struct {
	// Secret is the HMAC key tokens are signed with.
	Secret []byte

	// Issuer, when set, must match the token's iss claim.
	Issuer string

	// Leeway tolerates clock skew when checking exp and nbf.
	Leeway time.Duration

	Logger *zap.Logger
}

// JWTSession returns a middleware that validates an HMAC-signed bearer token
// and contributes its claims as jwt.MapClaims under SessionField.
// A missing or invalid token is returned as a 401 HTTPError.
func JWTSession(config JWTConfig) common.Middleware {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	parser := jwt.NewParser(opts...)

	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.Secret, nil
	}

	return func(_ http.ResponseWriter, r *http.Request, _ common.Fields) (common.Fields, error) {
		raw, ok := BearerToken(r)
		if !ok {
			return nil, common.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(raw, claims, keyFunc)
		if err != nil || !token.Valid {
			logger.Warn("Invalid session token",
				zap.Error(err),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			return nil, common.NewHTTPError(http.StatusUnauthorized, "invalid session token")
		}

		return common.Fields{SessionField: claims}, nil
	}
}

// SessionFrom reads the claims contributed by JWTSession.
func SessionFrom(fields common.Fields) (jwt.MapClaims, bool) {
	return common.Get[jwt.MapClaims](fields, SessionField)
}

// SignSession issues an HS256 token for claims. It is the counterpart of
// JWTSession for login handlers and tests.
func SignSession(secret []byte, claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
