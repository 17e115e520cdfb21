// Package proxy provides HTTP clients for the backend services.
//
// Each Upstream wraps one service's base URL. Forward passes a request
// through unchanged; Call is used by handlers that orchestrate several
// upstream calls and need to inspect the responses.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	pkgrest "github.com/bibbank/settlement/pkg/rest"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// ErrUnavailable wraps transport failures talking to an upstream.
var ErrUnavailable = errors.New("upstream unavailable")

// forwardedHeaders are copied from the client request to the upstream.
var forwardedHeaders = []string{"Content-Type", "Accept", "X-Request-ID"}

// NewClient returns an http.Client whose transport propagates trace context
// to the upstreams.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Response is a buffered upstream response.
type Response struct {
	Status int
	Body   []byte
}

// OK reports whether the upstream answered 2xx.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Upstream is one backend service.
type Upstream struct {
	name    string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewUpstream creates an Upstream. baseURL has no trailing slash.
func NewUpstream(name, baseURL string, client *http.Client, logger *slog.Logger) *Upstream {
	return &Upstream{
		name:    name,
		baseURL: baseURL,
		client:  client,
		logger:  logger.With("component", "proxy", "upstream", name),
	}
}

// Name returns the upstream's name.
func (u *Upstream) Name() string {
	return u.name
}

// Call sends body as JSON to path and buffers the response. query may be nil.
// A transport failure is returned as ErrUnavailable; any HTTP status,
// including errors, is returned in Response.
func (u *Upstream) Call(ctx context.Context, method, path string, query url.Values, body any, header http.Header) (Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return Response{}, fmt.Errorf("%s: encode request: %w", u.name, err)
		}
		reader = bytes.NewReader(b)
	}

	target := u.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return Response{}, fmt.Errorf("%s: build request: %w", u.name, err)
	}
	copyHeaders(req.Header, header)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return u.do(req)
}

// Forward relays r to the same path and query on the upstream and writes the
// upstream's answer back to w.
func (u *Upstream) Forward(w http.ResponseWriter, r *http.Request) {
	target := u.baseURL + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		pkgrest.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}
	copyHeaders(req.Header, r.Header)

	resp, err := u.do(req)
	if err != nil {
		u.WriteUnavailable(w, err)
		return
	}
	resp.Write(w)
}

// Ping checks the upstream's liveness endpoint.
func (u *Upstream) Ping(ctx context.Context) error {
	resp, err := u.Call(ctx, http.MethodGet, "/healthz", nil, nil, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("%s: healthz returned %d", u.name, resp.Status)
	}
	return nil
}

// WriteUnavailable logs err and answers 502.
func (u *Upstream) WriteUnavailable(w http.ResponseWriter, err error) {
	u.logger.Error("upstream call failed", "error", err)
	pkgrest.WriteError(w, http.StatusBadGateway, ErrUnavailable.Error())
}

// Write copies the buffered response to w.
func (r Response) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.Status)
	_, _ = w.Write(r.Body)
}

func (u *Upstream) do(req *http.Request) (Response, error) {
	resp, err := u.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%w: read %s response: %w", ErrUnavailable, u.name, err)
	}
	return Response{Status: resp.StatusCode, Body: body}, nil
}

func copyHeaders(dst, src http.Header) {
	for _, h := range forwardedHeaders {
		if v := src.Get(h); v != "" {
			dst.Set(h, v)
		}
	}
}
