package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"go.uber.org/zap"
)

func newTestRouter() *Router {
	return NewRouter(RouterConfig{Logger: zap.NewNop()})
}

func serve(h http.Handler, method string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error body %q: %v", rr.Body.String(), err)
	}
	return resp
}

// fieldSetter returns a middleware that contributes key=value and records its
// name in order.
func fieldSetter(name string, order *[]string, key string, value any) common.Middleware {
	return func(_ http.ResponseWriter, _ *http.Request, _ common.Fields) (common.Fields, error) {
		*order = append(*order, name)
		return common.Fields{key: value}, nil
	}
}

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// TestHandlerWithoutMiddleware tests a GET handler with no middleware
func TestHandlerWithoutMiddleware(t *testing.T) {
	r := newTestRouter()

	var got common.Fields
	r.Get(func(_ *http.Request, fields common.Fields) (any, error) {
		got = fields
		return person{Name: "yoo", Age: 19}, nil
	})

	rr := serve(r.Export(), http.MethodGet)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}
	if body := rr.Body.String(); body != `{"name":"yoo","age":19}` {
		t.Errorf("Expected body %q, got %q", `{"name":"yoo","age":19}`, body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %q", ct)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil fields, got %#v", got)
	}
}

// TestMiddlewareChainFields tests that fields from a middleware chain reach the handler
func TestMiddlewareChainFields(t *testing.T) {
	r := newTestRouter()

	auth := func(_ http.ResponseWriter, _ *http.Request, _ common.Fields) (common.Fields, error) {
		return common.Fields{"session": map[string]int{"id": 1}}, nil
	}
	body := func(_ http.ResponseWriter, _ *http.Request, fields common.Fields) (common.Fields, error) {
		if !fields.Has("session") {
			t.Error("Expected session field to be visible to the second middleware")
		}
		return common.Fields{"verifiedBody": map[string]string{"id": "woo"}}, nil
	}

	var seen common.Fields
	r.Middleware(auth, body).Get(func(_ *http.Request, fields common.Fields) (any, error) {
		seen = fields
		return map[string]string{"something": "yes"}, nil
	})

	rr := serve(r.Export(), http.MethodGet)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != `{"something":"yes"}` {
		t.Errorf("Unexpected body %q", rr.Body.String())
	}

	session, ok := common.Get[map[string]int](seen, "session")
	if !ok || session["id"] != 1 {
		t.Errorf("Expected session {id:1}, got %#v", seen["session"])
	}
	verified, ok := common.Get[map[string]string](seen, "verifiedBody")
	if !ok || verified["id"] != "woo" {
		t.Errorf("Expected verifiedBody {id:woo}, got %#v", seen["verifiedBody"])
	}
}

// TestUnregisteredMethod tests that a supported but unbound method yields 405
func TestUnregisteredMethod(t *testing.T) {
	r := newTestRouter()
	r.Get(func(_ *http.Request, _ common.Fields) (any, error) { return "ok", nil })

	rr := serve(r.Export(), http.MethodPost)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status code %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
	resp := decodeError(t, rr)
	if !strings.Contains(resp.Message, "POST method not allowed") {
		t.Errorf("Expected message to contain %q, got %q", "POST method not allowed", resp.Message)
	}
	if resp.Status != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d in body, got %d", http.StatusMethodNotAllowed, resp.Status)
	}
}

// TestUnsupportedMethods tests that methods outside the supported set yield 405
func TestUnsupportedMethods(t *testing.T) {
	r := newTestRouter()
	handler := func(_ *http.Request, _ common.Fields) (any, error) { return "ok", nil }
	r.Get(handler)
	r.Post(handler)
	r.Put(handler)
	r.Patch(handler)
	r.Delete(handler)

	h := r.Export()
	for _, method := range []string{http.MethodHead, http.MethodOptions, http.MethodTrace, "PROPFIND", "get"} {
		rr := serve(h, method)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected status code %d, got %d", method, http.StatusMethodNotAllowed, rr.Code)
			continue
		}
		if method == http.MethodHead {
			continue
		}
		resp := decodeError(t, rr)
		if resp.Message != method+" method not allowed" {
			t.Errorf("%s: unexpected message %q", method, resp.Message)
		}
	}
}

// TestAllMethodsBind tests that every supported method reaches its own handler
func TestAllMethodsBind(t *testing.T) {
	r := newTestRouter()
	bind := map[string]func(common.Handler){
		http.MethodGet:    r.Get,
		http.MethodPost:   r.Post,
		http.MethodPut:    r.Put,
		http.MethodPatch:  r.Patch,
		http.MethodDelete: r.Delete,
	}
	for _, b := range bind {
		b(func(req *http.Request, _ common.Fields) (any, error) {
			return req.Method, nil
		})
	}

	h := r.Export()
	for method := range bind {
		rr := serve(h, method)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected status code %d, got %d", method, http.StatusOK, rr.Code)
		}
		if rr.Body.String() != `"`+method+`"` {
			t.Errorf("%s: unexpected body %q", method, rr.Body.String())
		}
	}
}

// TestGlobalMiddlewareOrder tests that route middleware runs before global middleware
func TestGlobalMiddlewareOrder(t *testing.T) {
	r := newTestRouter()
	var order []string

	var x any
	r.GlobalMiddleware(fieldSetter("global", &order, "x", "global")).
		Middleware(fieldSetter("route", &order, "x", "route")).
		Get(func(_ *http.Request, fields common.Fields) (any, error) {
			x = fields["x"]
			return nil, nil
		})

	rr := serve(r.Export(), http.MethodGet)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}
	if strings.Join(order, ",") != "route,global" {
		t.Errorf("Expected order route,global, got %v", order)
	}
	if x != "global" {
		t.Errorf("Expected handler to see global value, got %v", x)
	}
}

// TestLaterMiddlewareOverwrites tests shallow merging with later keys winning
func TestLaterMiddlewareOverwrites(t *testing.T) {
	r := newTestRouter()
	var order []string

	var seen common.Fields
	r.Middleware(
		fieldSetter("m1", &order, "k", 1),
		func(_ http.ResponseWriter, _ *http.Request, _ common.Fields) (common.Fields, error) {
			return common.Fields{"k": 2, "other": "b"}, nil
		},
		func(_ http.ResponseWriter, _ *http.Request, _ common.Fields) (common.Fields, error) {
			return nil, nil
		},
	).Get(func(_ *http.Request, fields common.Fields) (any, error) {
		seen = fields
		return nil, nil
	})

	serve(r.Export(), http.MethodGet)

	if seen["k"] != 2 || seen["other"] != "b" || len(seen) != 2 {
		t.Errorf("Unexpected merged fields %#v", seen)
	}
}

// TestGlobalBuilderBinders tests the binders returned by GlobalMiddleware
func TestGlobalBuilderBinders(t *testing.T) {
	r := newTestRouter()
	var order []string

	g := r.GlobalMiddleware(fieldSetter("global", &order, "g", true))
	g.Post(func(_ *http.Request, fields common.Fields) (any, error) {
		return fields["g"], nil
	})

	rr := serve(g.Export(), http.MethodPost)
	if rr.Code != http.StatusOK || rr.Body.String() != "true" {
		t.Errorf("Expected 200 true, got %d %q", rr.Code, rr.Body.String())
	}

	entry, ok := r.Route(MethodPost)
	if !ok {
		t.Fatal("Expected POST to be bound")
	}
	if len(entry.Middlewares) != 0 {
		t.Errorf("Expected no route middleware on a global binding, got %d", len(entry.Middlewares))
	}
}

// TestGlobalMiddlewareReplaces tests that a second GlobalMiddleware call replaces the list
func TestGlobalMiddlewareReplaces(t *testing.T) {
	r := newTestRouter()
	var order []string

	r.GlobalMiddleware(fieldSetter("first", &order, "a", 1))
	r.GlobalMiddleware(fieldSetter("second", &order, "b", 2)).Get(func(_ *http.Request, _ common.Fields) (any, error) {
		return nil, nil
	})

	serve(r.Export(), http.MethodGet)

	if strings.Join(order, ",") != "second" {
		t.Errorf("Expected only the second global middleware to run, got %v", order)
	}
}

// TestReRegistrationReplaces tests that binding a method again replaces the entry
func TestReRegistrationReplaces(t *testing.T) {
	r := newTestRouter()
	var order []string

	r.Middleware(fieldSetter("old", &order, "old", true)).Get(func(_ *http.Request, _ common.Fields) (any, error) {
		return "old", nil
	})
	r.Get(func(_ *http.Request, fields common.Fields) (any, error) {
		if fields.Has("old") {
			t.Error("Expected old middleware not to run")
		}
		return "new", nil
	})

	rr := serve(r.Export(), http.MethodGet)

	if rr.Body.String() != `"new"` {
		t.Errorf("Expected body %q, got %q", `"new"`, rr.Body.String())
	}
	if len(order) != 0 {
		t.Errorf("Expected no middleware to run, got %v", order)
	}
}

// TestLiveExport tests that registrations after Export are visible to the exported handler
func TestLiveExport(t *testing.T) {
	r := newTestRouter()
	h := r.Export()

	if rr := serve(h, http.MethodGet); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected status code %d before registration, got %d", http.StatusMethodNotAllowed, rr.Code)
	}

	var order []string
	r.Get(func(_ *http.Request, fields common.Fields) (any, error) {
		return fields["late"], nil
	})
	r.GlobalMiddleware(fieldSetter("late", &order, "late", "yes"))

	rr := serve(h, http.MethodGet)
	if rr.Code != http.StatusOK || rr.Body.String() != `"yes"` {
		t.Errorf("Expected 200 %q, got %d %q", `"yes"`, rr.Code, rr.Body.String())
	}
}

// TestIdempotentDispatch tests that identical requests yield identical responses
func TestIdempotentDispatch(t *testing.T) {
	r := newTestRouter()
	r.Middleware(func(_ http.ResponseWriter, req *http.Request, _ common.Fields) (common.Fields, error) {
		return common.Fields{"q": req.URL.Query().Get("q")}, nil
	}).Get(func(_ *http.Request, fields common.Fields) (any, error) {
		return map[string]any{"q": fields["q"]}, nil
	})

	h := r.Export()
	var bodies []string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/?q=same", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status code %d, got %d", http.StatusOK, rr.Code)
		}
		bodies = append(bodies, rr.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Errorf("Expected identical bodies, got %q and %q", bodies[0], bodies[1])
	}
}

// TestRegistry tests the registry contract directly
func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	if _, ok := reg.Get(MethodGet); ok {
		t.Error("Expected empty registry to have no GET entry")
	}

	handler := func(_ *http.Request, _ common.Fields) (any, error) { return nil, nil }
	mw := func(_ http.ResponseWriter, _ *http.Request, _ common.Fields) (common.Fields, error) { return nil, nil }

	reg.BindHandler(MethodGet, handler)
	reg.BindHandlerWithMiddleware(MethodDelete, handler, []common.Middleware{mw, mw})
	reg.SetHandler(MethodPut, RouteEntry{})

	entry, ok := reg.Get(MethodGet)
	if !ok || len(entry.Middlewares) != 0 {
		t.Errorf("Expected GET bound without middleware, got ok=%v len=%d", ok, len(entry.Middlewares))
	}
	entry, ok = reg.Get(MethodDelete)
	if !ok || len(entry.Middlewares) != 2 {
		t.Errorf("Expected DELETE bound with 2 middleware, got ok=%v len=%d", ok, len(entry.Middlewares))
	}
	if _, ok := reg.Get(MethodPut); ok {
		t.Error("Expected PUT with nil handler to be treated as unbound")
	}

	bound := reg.Bound()
	if len(bound) != 2 || bound[0] != MethodGet || bound[1] != MethodDelete {
		t.Errorf("Unexpected bound methods %v", bound)
	}
}

// TestParseMethod tests method resolution
func TestParseMethod(t *testing.T) {
	for _, m := range Methods {
		if got, ok := ParseMethod(string(m)); !ok || got != m {
			t.Errorf("Expected %s to parse, got %q %v", m, got, ok)
		}
	}
	for _, raw := range []string{"", "HEAD", "OPTIONS", "get", "CONNECT"} {
		if _, ok := ParseMethod(raw); ok {
			t.Errorf("Expected %q not to parse", raw)
		}
	}
}
