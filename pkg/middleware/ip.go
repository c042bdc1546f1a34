package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/Suhaibinator/SDispatch/pkg/common"
)

// ClientIPField is the field under which ClientIP stores the client address.
const ClientIPField = "client_ip"

// IPSourceType defines the source for client IP addresses
type IPSourceType string

const (
	// IPSourceRemoteAddr uses the request's RemoteAddr field
	IPSourceRemoteAddr IPSourceType = "remote_addr"

	// IPSourceXForwardedFor uses the X-Forwarded-For header
	IPSourceXForwardedFor IPSourceType = "x_forwarded_for"

	// IPSourceXRealIP uses the X-Real-IP header
	IPSourceXRealIP IPSourceType = "x_real_ip"

	// IPSourceCustomHeader uses a custom header specified in the configuration
	IPSourceCustomHeader IPSourceType = "custom_header"
)

// IPConfig defines configuration for IP extraction
type IPConfig struct {
	// Source specifies where to extract the client IP from
	Source IPSourceType

	// CustomHeader is the name of the custom header to use when Source is IPSourceCustomHeader
	CustomHeader string

	// TrustProxy determines whether to trust proxy headers like X-Forwarded-For.
	// If false, RemoteAddr is always used.
	TrustProxy bool
}

// DefaultIPConfig returns the default IP configuration
func DefaultIPConfig() *IPConfig {
	return &IPConfig{
		Source:     IPSourceXForwardedFor,
		TrustProxy: true,
	}
}

// ClientIP returns a middleware that contributes the client IP address.
func ClientIP(config *IPConfig) common.Middleware {
	if config == nil {
		config = DefaultIPConfig()
	}

	return func(_ http.ResponseWriter, r *http.Request, _ common.Fields) (common.Fields, error) {
		return common.Fields{ClientIPField: ExtractClientIP(r, config)}, nil
	}
}

// ClientIPFrom reads the client IP contributed by ClientIP.
func ClientIPFrom(fields common.Fields) string {
	ip, _ := common.Get[string](fields, ClientIPField)
	return ip
}

// ExtractClientIP extracts the client IP from the request based on the configuration
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	var ip string

	if config.TrustProxy {
		switch config.Source {
		case IPSourceXRealIP:
			ip = r.Header.Get("X-Real-IP")
		case IPSourceCustomHeader:
			ip = r.Header.Get(config.CustomHeader)
		case IPSourceRemoteAddr:
			ip = r.RemoteAddr
		default:
			ip = firstForwardedFor(r.Header.Get("X-Forwarded-For"))
		}
	}

	if ip == "" {
		ip = r.RemoteAddr
	}

	return stripPort(strings.TrimSpace(ip))
}

// firstForwardedFor returns the leftmost entry of an X-Forwarded-For value,
// which is the original client.
func firstForwardedFor(xff string) string {
	if xff == "" {
		return ""
	}
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}

// stripPort removes the port from host:port and [v6]:port forms.
// Bare IPv6 addresses are returned unchanged.
func stripPort(ip string) string {
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return strings.TrimSuffix(strings.TrimPrefix(ip, "["), "]")
}
