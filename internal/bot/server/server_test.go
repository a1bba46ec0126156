package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brrbot/brrbot/internal/bot/metrics"
	"github.com/brrbot/brrbot/internal/common/middleware"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.Interactions == nil {
		opts.Interactions = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"type":1}`))
		})
	}
	s, err := CreateNewServer(opts)
	require.NoError(t, err)
	s.MountHandlers()
	srv := httptest.NewServer(s.Router)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	rsp, err := http.Get(url)
	require.NoError(t, err)
	defer rsp.Body.Close()
	b, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	return rsp, string(b)
}

func TestCreateNewServerRequiresInteractions(t *testing.T) {
	_, err := CreateNewServer(Options{})
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	srv := newTestServer(t, Options{})
	rsp, body := get(t, srv.URL+"/version")
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.JSONEq(t, `{"serverVersion":"brrbot: `+Version+`","apiVersion":"v10"}`, body)
	assert.NotEmpty(t, rsp.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, Version, SemVer().String())
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		readiness  func(context.Context) error
		wantStatus int
	}{
		{name: "no check", wantStatus: http.StatusOK},
		{name: "check passes", readiness: func(context.Context) error { return nil }, wantStatus: http.StatusOK},
		{name: "check fails", readiness: func(context.Context) error { return errors.New("autobrr unreachable") }, wantStatus: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Options{Readiness: tt.readiness})
			rsp, body := get(t, srv.URL+"/ready")
			assert.Equal(t, tt.wantStatus, rsp.StatusCode)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"status":"ready"}`, body)
			} else {
				assert.JSONEq(t, `{"result":0,"error":"not ready"}`, body)
			}
		})
	}
}

func TestInteractionsRoute(t *testing.T) {
	srv := newTestServer(t, Options{})
	rsp, err := http.Post(srv.URL+"/interactions", "application/json", strings.NewReader(`{"type":1}`))
	require.NoError(t, err)
	defer rsp.Body.Close()
	assert.Equal(t, http.StatusOK, rsp.StatusCode)

	rsp2, body := get(t, srv.URL+"/interactions")
	assert.Equal(t, http.StatusMethodNotAllowed, rsp2.StatusCode)
	assert.Equal(t, "application/json", rsp2.Header.Get("Content-Type"))
	assert.Contains(t, body, `"request method not supported"`)
}

func TestMetricsRoute(t *testing.T) {
	metrics.ObserveCommand("status", metrics.OutcomeSuccess)
	srv := newTestServer(t, Options{})
	rsp, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.Contains(t, body, "brrbot_commands_total")
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, Options{HandleCORS: true})
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/version", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rsp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer rsp.Body.Close()
	assert.Equal(t, "*", rsp.Header.Get("Access-Control-Allow-Origin"))
}
