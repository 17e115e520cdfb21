package proxy

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpstream_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 5, body["amount"])

		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"order already exists"}`))
	}))
	defer srv.Close()

	u := NewUpstream("orders", srv.URL, NewClient(time.Second), discard())
	header := http.Header{}
	header.Set("X-Request-ID", "req-1")

	resp, err := u.Call(context.Background(), http.MethodPost, "/orders", url.Values{"user_id": {"u1"}}, map[string]any{"amount": 5}, header)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.False(t, resp.OK())
	assert.JSONEq(t, `{"error":"order already exists"}`, string(resp.Body))
}

func TestUpstream_CallUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	u := NewUpstream("payments", srv.URL, NewClient(time.Second), discard())
	_, err := u.Call(context.Background(), http.MethodGet, "/healthz", nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Error(t, u.Ping(context.Background()))
}

func TestUpstream_Forward(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `","query":"` + r.URL.RawQuery + `","body":` + string(b) + `}`))
	}))
	defer srv.Close()

	u := NewUpstream("payments", srv.URL, NewClient(time.Second), discard())
	req := httptest.NewRequest(http.MethodPost, "/accounts/abc/deposit?x=1", strings.NewReader(`{"amount":5}`))
	rec := httptest.NewRecorder()
	u.Forward(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":"/accounts/abc/deposit","query":"x=1","body":{"amount":5}}`, rec.Body.String())
}

func TestUpstream_ForwardUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	u := NewUpstream("payments", srv.URL, NewClient(time.Second), discard())
	rec := httptest.NewRecorder()
	u.Forward(rec, httptest.NewRequest(http.MethodGet, "/accounts/abc", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"upstream unavailable"}`, rec.Body.String())
}
