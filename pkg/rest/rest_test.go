package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthz(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler("orders-service", discardLogger()).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "orders-service", body.Service)
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		dbErr      error
		wantStatus int
		wantBody   string
		wantCheck  string
	}{
		{name: "all checks pass", wantStatus: http.StatusOK, wantBody: "ok", wantCheck: "ok"},
		{
			name:       "database down",
			dbErr:      errors.New("connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unavailable",
			wantCheck:  "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("payments-service", discardLogger()).
				AddCheck("database", func(context.Context) error { return tt.dbErr }).
				AddCheck("broker", func(context.Context) error { return nil })

			mux := http.NewServeMux()
			h.RegisterRoutes(mux)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			var body readinessResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantBody, body.Status)
			assert.Equal(t, tt.wantCheck, body.Checks["database"])
			assert.Equal(t, "ok", body.Checks["broker"])
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, "account not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"account not found"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Amount string `json:"amount"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10.00"}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, "10.00", v.Amount)

	req = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	require.NoError(t, DecodeJSON(req, &v))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	assert.ErrorIs(t, DecodeJSON(req, &v), ErrInvalidRequest)
}

func TestPathAndQueryUUID(t *testing.T) {
	id := uuid.New()

	var gotPath, gotQuery uuid.UUID
	var pathErr, queryErr error
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{order_id}", func(_ http.ResponseWriter, r *http.Request) {
		gotPath, pathErr = PathUUID(r, "order_id")
		gotQuery, queryErr = QueryUUID(r, "user_id")
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/"+id.String()+"?user_id="+id.String(), nil))
	require.NoError(t, pathErr)
	require.NoError(t, queryErr)
	assert.Equal(t, id, gotPath)
	assert.Equal(t, id, gotQuery)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil))
	assert.ErrorIs(t, pathErr, ErrInvalidRequest)
	assert.ErrorIs(t, queryErr, ErrInvalidRequest)
	assert.Contains(t, queryErr.Error(), "user_id is required")
}

func TestChainOrder(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls = append(calls, "handler")
	}), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestLoggingCapturesStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusConflict, "hold already exists")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/accounts/x/hold", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/accounts/x/hold", entry["path"])
	assert.EqualValues(t, http.StatusConflict, entry["status"])
}

func TestRecover(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestNewHandlerServesRoutes(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler("gateway", discardLogger()).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	NewHandler("gateway", mux, discardLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(0, http.NotFoundHandler(), discardLogger())

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	cancel()

	require.NoError(t, <-done)
}
