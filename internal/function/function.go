// Package function adapts the photo wall handlers to a serverless runtime
// that delivers each request as a JSON event and expects a JSON response.
//
// The server honours Content-Transfer-Encoding: base64 on request bodies.
// Request sets that header from the event's isBase64Encoded flag alone and
// drops any copy the client sent.
package function

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Event is one inbound invocation.
type Event struct {
	HTTPMethod      string            `json:"httpMethod"`
	Path            string            `json:"path"`
	Headers         map[string]string `json:"headers"`
	QueryParameters map[string]string `json:"queryStringParameters,omitempty"`
	Body            string            `json:"body"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
}

// Response is what the runtime sends back to the caller.
type Response struct {
	StatusCode      int               `json:"statusCode"`
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`
	IsBase64Encoded bool              `json:"isBase64Encoded,omitempty"`
}

// Request converts ev into an *http.Request. A base64 body is passed through
// untouched and flagged with Content-Transfer-Encoding so the upload handler
// decodes it itself.
func Request(ctx context.Context, ev Event) (*http.Request, error) {
	method := ev.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}
	path := ev.Path
	if path == "" {
		path = "/"
	}

	u := &url.URL{Path: path}
	if len(ev.QueryParameters) > 0 {
		q := url.Values{}
		for k, v := range ev.QueryParameters {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(ev.Body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range ev.Headers {
		req.Header.Set(k, v)
	}
	// Only the event flag decides whether the body is base64.
	req.Header.Del("Content-Transfer-Encoding")
	if ev.IsBase64Encoded {
		req.Header.Set("Content-Transfer-Encoding", "base64")
	}
	req.ContentLength = int64(len(ev.Body))
	req.RequestURI = u.RequestURI()
	return req, nil
}

// Invoke runs h for one event and captures its response.
func Invoke(ctx context.Context, h http.Handler, ev Event) (Response, error) {
	req, err := Request(ctx, ev)
	if err != nil {
		return Response{}, err
	}

	w := newResponseWriter()
	h.ServeHTTP(w, req)

	headers := make(map[string]string, len(w.header))
	for k, v := range w.header {
		headers[k] = strings.Join(v, ", ")
	}
	body := &w.body

	out := Response{StatusCode: w.status, Headers: headers}
	if isText(w.header.Get("Content-Type")) || body.Len() == 0 {
		out.Body = body.String()
	} else {
		out.Body = base64.StdEncoding.EncodeToString(body.Bytes())
		out.IsBase64Encoded = true
	}
	return out, nil
}

func isText(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" ||
		strings.HasPrefix(ct, "text/") ||
		strings.HasPrefix(ct, "application/json")
}

// responseWriter buffers one response in memory.
type responseWriter struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: make(http.Header), status: http.StatusOK}
}

func (w *responseWriter) Header() http.Header { return w.header }

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.body.Write(b)
}
