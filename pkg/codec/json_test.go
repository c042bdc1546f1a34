package codec

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type testRequest struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type brokenValue struct{}

func (brokenValue) MarshalJSON() ([]byte, error) {
	return nil, errors.New("broken")
}

// TestJSONCodec tests the JSONCodec
func TestJSONCodec(t *testing.T) {
	codec := NewJSONCodec()

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"name":"John","age":30}`))
	var data testRequest
	if err := codec.Decode(req, &data); err != nil {
		t.Fatalf("Failed to decode request: %v", err)
	}
	if data.Name != "John" || data.Age != 30 {
		t.Errorf("Unexpected decoded data %+v", data)
	}

	rr := httptest.NewRecorder()
	if err := codec.Encode(rr, http.StatusCreated, testRequest{Name: "Jane", Age: 31}); err != nil {
		t.Fatalf("Failed to encode response: %v", err)
	}
	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status code %d, got %d", http.StatusCreated, rr.Code)
	}
	if rr.Header().Get("Content-Type") != ContentTypeJSON {
		t.Errorf("Expected Content-Type %q, got %q", ContentTypeJSON, rr.Header().Get("Content-Type"))
	}
	if rr.Body.String() != `{"name":"Jane","age":31}` {
		t.Errorf("Unexpected body %q", rr.Body.String())
	}
	if codec.ContentType() != ContentTypeJSON {
		t.Errorf("Unexpected content type %q", codec.ContentType())
	}
}

// TestJSONCodecDecodeErrors tests decoding of empty and malformed bodies
func TestJSONCodecDecodeErrors(t *testing.T) {
	codec := NewJSONCodec()

	var data testRequest
	empty := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))
	if err := codec.Decode(empty, &data); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("Expected ErrEmptyBody, got %v", err)
	}

	noBody := &http.Request{Method: http.MethodPost}
	if err := codec.Decode(noBody, &data); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("Expected ErrEmptyBody for a nil body, got %v", err)
	}

	malformed := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"name":`))
	if err := codec.Decode(malformed, &data); err == nil {
		t.Error("Expected an error for malformed JSON")
	}
}

// TestJSONCodecEncodeError tests that a failed marshal leaves the response untouched
func TestJSONCodecEncodeError(t *testing.T) {
	codec := NewJSONCodec()
	rr := httptest.NewRecorder()

	if err := codec.Encode(rr, http.StatusOK, brokenValue{}); err == nil {
		t.Fatal("Expected an encode error")
	}
	if rr.Header().Get("Content-Type") != "" || rr.Body.Len() != 0 {
		t.Errorf("Expected untouched response, got headers %v body %q", rr.Header(), rr.Body.String())
	}
}
