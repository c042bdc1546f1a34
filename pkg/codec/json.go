// Package codec provides encoding and decoding functionality for different data formats.
package codec

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

// ContentTypeJSON is the content type written by JSONCodec.
const ContentTypeJSON = "application/json"

// ErrEmptyBody is returned by Decode when the request carries no body.
var ErrEmptyBody = errors.New("codec: request body is empty")

// Codec serializes handler results into responses and decodes request bodies.
// The router uses it to write successful responses; body verification
// middleware uses it to read requests.
type Codec interface {
	// Encode writes v to w with the given status code and the codec's content type.
	Encode(w http.ResponseWriter, status int, v any) error

	// Decode reads the request body into v, which must be a pointer.
	Decode(r *http.Request, v any) error

	// ContentType returns the media type this codec produces.
	ContentType() string
}

// JSONCodec is a codec that uses JSON for marshaling and unmarshaling.
// Encoding goes through sonic's standard-library compatible API, so struct
// tags and map ordering behave as with encoding/json.
type JSONCodec struct {
	api sonic.API
}

// NewJSONCodec creates a new JSONCodec instance.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{api: sonic.ConfigStd}
}

// ContentType implements Codec.
func (c *JSONCodec) ContentType() string {
	return ContentTypeJSON
}

// Encode marshals v before touching the response, so a value that cannot be
// serialized leaves w untouched and the caller can still report the failure.
func (c *JSONCodec) Encode(w http.ResponseWriter, status int, v any) error {
	body, err := c.Marshal(v)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

// Decode decodes the request body into v.
// It reads the entire request body and unmarshals it from JSON.
func (c *JSONCodec) Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return ErrEmptyBody
	}

	return c.api.Unmarshal(body, v)
}

// Marshal serializes v to JSON.
func (c *JSONCodec) Marshal(v any) ([]byte, error) {
	return c.api.Marshal(v)
}
