package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// RequestSpec is a transport independent outbound request.
type RequestSpec struct {
	Method  string
	Path    string // relative to the transport's base URL, may carry a query
	Body    []byte // optional
	Headers http.Header
}

// Response is what came back, whatever the status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewJSONRequest encodes body as JSON. A nil body sends no payload.
func NewJSONRequest(method, path string, body any) (RequestSpec, error) {
	spec := RequestSpec{Method: method, Path: path, Headers: http.Header{}}
	spec.Headers.Set("Accept", "application/json")
	if body == nil {
		return spec, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return RequestSpec{}, fmt.Errorf("encode request body: %w", err)
	}
	spec.Body = data
	spec.Headers.Set("Content-Type", "application/json")
	return spec, nil
}

// withHeader returns a copy of spec with key set; the caller's headers are not touched.
func (spec RequestSpec) withHeader(key, value string) RequestSpec {
	out := spec
	out.Headers = spec.Headers.Clone()
	if out.Headers == nil {
		out.Headers = http.Header{}
	}
	out.Headers.Set(key, value)
	return out
}

func (spec RequestSpec) bodyReader() *bytes.Reader {
	if len(spec.Body) == 0 {
		return nil
	}
	return bytes.NewReader(spec.Body)
}
