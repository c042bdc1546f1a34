package router

import (
	mathrand "math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Suhaibinator/SDispatch/pkg/codec"
	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	problemContentType = "application/problem+json"
	statusDocBaseURL   = "https://httpstatuses.io"

	// internalErrorMessage is the only detail exposed for unexpected failures.
	internalErrorMessage = "Internal Server Error"
)

var errorCodec = codec.NewJSONCodec()

// ErrorResponse is the body written by DefaultErrorHandler.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// DefaultErrorHandler writes explicit HTTPErrors with their own status and
// message, and every other error as a 500 with an opaque message.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status, message, _ := classify(err)
	writeError(w, status, ErrorResponse{Status: status, Message: message}, codec.ContentTypeJSON)
}

// classify maps an error to the status and client-visible message, and
// reports whether the message came from an explicit HTTPError. An HTTPError
// whose status is not a 4xx or 5xx code is treated as unexpected.
func classify(err error) (int, string, bool) {
	if httpErr, ok := common.AsHTTPError(err); ok && isErrorStatus(httpErr.StatusCode) {
		return httpErr.StatusCode, httpErr.Message, true
	}
	return http.StatusInternalServerError, internalErrorMessage, false
}

func isErrorStatus(status int) bool {
	return status >= 400 && status <= 599
}

func writeError(w http.ResponseWriter, status int, payload any, contentType string) {
	body, err := errorCodec.Marshal(payload)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// ProblemDetails aligns error responses with RFC 9457 problem documents.
type ProblemDetails struct {
	Type      string `json:"type,omitempty"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ProblemErrorHandler returns an ErrorHandler that renders problem documents.
// Each response carries a ULID trace identifier, logged alongside the error.
// Unexpected failures get no detail in the body.
func ProblemErrorHandler(logger *zap.Logger) ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request, err error) {
		status, message, explicit := classify(err)

		problem := ProblemDetails{
			Type:      statusDocBaseURL + "/" + strconv.Itoa(status),
			Title:     http.StatusText(status),
			Status:    status,
			TraceID:   newTraceID(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if explicit {
			problem.Detail = message
		}
		if r != nil && r.URL != nil {
			problem.Instance = r.URL.RequestURI()
		}

		logger.Info("Problem response",
			zap.String("trace_id", problem.TraceID),
			zap.Int("status", status),
			zap.Error(err),
		)

		writeError(w, status, problem, problemContentType)
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

func newTraceID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}
