package rest_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/settlement/services/payments-service/internal/application/usecase"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/service"
	"github.com/bibbank/settlement/services/payments-service/internal/infrastructure/memory"
	"github.com/bibbank/settlement/services/payments-service/internal/presentation/rest"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewLedgerStore()
	ledger := service.NewLedger()
	h := rest.NewAccountHandler(rest.UseCases{
		Create:  usecase.NewCreateAccount(store, ledger),
		Deposit: usecase.NewDeposit(store, ledger),
		Get:     usecase.NewGetAccount(store),
		Hold:    usecase.NewHoldFunds(store, ledger),
		Release: usecase.NewReleaseHold(store, ledger),
		Capture: usecase.NewCaptureHold(store, ledger),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return decode(t, resp)
}

func get(t *testing.T, srv *httptest.Server, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	return decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) (int, map[string]any) {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestAccountLifecycle(t *testing.T) {
	srv := newServer(t)
	user := uuid.NewString()

	status, body := post(t, srv, "/accounts/"+user, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, user, body["user_id"])
	assert.EqualValues(t, 0, body["balance"])
	assert.NotEmpty(t, body["created_at"])

	status, body = post(t, srv, "/accounts/"+user, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "account already exists", body["error"])

	status, body = post(t, srv, "/accounts/"+user+"/deposit", `{"amount": 100}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 100, body["balance"])

	status, body = get(t, srv, "/accounts/"+user)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 100, body["balance"])
}

func TestAccountErrors(t *testing.T) {
	srv := newServer(t)
	user := uuid.NewString()
	_, _ = post(t, srv, "/accounts/"+user, "")

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "bad uuid", path: "/accounts/not-a-uuid", wantStatus: http.StatusUnprocessableEntity},
		{name: "unknown account deposit", path: "/accounts/" + uuid.NewString() + "/deposit", body: `{"amount": 5}`, wantStatus: http.StatusNotFound, wantError: "account not found"},
		{name: "zero deposit", path: "/accounts/" + user + "/deposit", body: `{"amount": 0}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "malformed amount", path: "/accounts/" + user + "/deposit", body: `{"amount": "lots"}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "exponent deposit", path: "/accounts/" + user + "/deposit", body: `{"amount": 1e200000000}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "deposit above column", path: "/accounts/" + user + "/deposit", body: `{"amount": 1e17}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "exponent hold", path: "/accounts/" + user + "/hold", body: `{"order_id": "` + uuid.NewString() + `", "amount": 1e200000000}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "hold without funds", path: "/accounts/" + user + "/hold", body: `{"order_id": "` + uuid.NewString() + `", "amount": 10}`, wantStatus: http.StatusBadRequest, wantError: "insufficient_funds"},
		{name: "release unknown hold", path: "/accounts/" + user + "/release", body: `{"order_id": "` + uuid.NewString() + `"}`, wantStatus: http.StatusNotFound, wantError: "hold not found"},
		{name: "capture unknown hold", path: "/accounts/" + user + "/capture", body: `{"order_id": "` + uuid.NewString() + `"}`, wantStatus: http.StatusNotFound, wantError: "hold not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := post(t, srv, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	srv := newServer(t)
	status, body := get(t, srv, "/accounts/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "account not found", body["error"])
}

func TestHoldReleaseCapture(t *testing.T) {
	srv := newServer(t)
	user := uuid.NewString()
	_, _ = post(t, srv, "/accounts/"+user, "")
	_, _ = post(t, srv, "/accounts/"+user+"/deposit", `{"amount": "100.00"}`)

	first, second := uuid.NewString(), uuid.NewString()

	status, body := post(t, srv, "/accounts/"+user+"/hold", `{"order_id": "`+first+`", "amount": 40}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "held", body["status"])
	assert.EqualValues(t, 60, body["balance"])

	status, body = post(t, srv, "/accounts/"+user+"/hold", `{"order_id": "`+first+`", "amount": 1}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "hold already exists", body["error"])

	status, body = post(t, srv, "/accounts/"+user+"/release", `{"order_id": "`+first+`"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "released", body["status"])

	status, _ = post(t, srv, "/accounts/"+user+"/release", `{"order_id": "`+first+`"}`)
	assert.Equal(t, http.StatusNotFound, status)

	_, _ = post(t, srv, "/accounts/"+user+"/hold", `{"order_id": "`+second+`", "amount": 25}`)
	status, body = post(t, srv, "/accounts/"+user+"/capture", `{"order_id": "`+second+`"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "captured", body["status"])

	_, body = get(t, srv, "/accounts/"+user)
	assert.EqualValues(t, 75, body["balance"])
}
