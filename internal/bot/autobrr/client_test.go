package autobrr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brrbot/brrbot/internal/bot/metrics"
	"github.com/brrbot/brrbot/internal/common/apperrors"
)

// fakeAutobrr routes requests to per-path handlers and counts calls per path.
type fakeAutobrr struct {
	t        *testing.T
	srv      *httptest.Server
	handlers map[string]http.HandlerFunc
	calls    map[string]*atomic.Int32
}

func newFakeAutobrr(t *testing.T) *fakeAutobrr {
	f := &fakeAutobrr{
		t:        t,
		handlers: map[string]http.HandlerFunc{},
		calls:    map[string]*atomic.Int32{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		h, ok := f.handlers[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.calls[key].Add(1)
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAutobrr) handle(method, path string, h http.HandlerFunc) {
	key := method + " " + path
	f.handlers[key] = h
	f.calls[key] = &atomic.Int32{}
}

func (f *fakeAutobrr) count(method, path string) int {
	c, ok := f.calls[method+" "+path]
	if !ok {
		return 0
	}
	return int(c.Load())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestAuthenticateAPIKeyOnlyIsNoop(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"token":"x"}`)
	})
	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key"})

	for i := 0; i < 2; i++ {
		ok, err := c.Authenticate(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 0, f.count(http.MethodPost, "/api/auth/login"))
	assert.False(t, c.HasToken())
}

func TestAuthenticateStoresToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	f := newFakeAutobrr(t)
	f.handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user", body["username"])
		assert.Equal(t, "pass", body["password"])
		writeJSON(w, http.StatusOK, `{"token":"`+token+`"}`)
	})
	f.handle(http.MethodGet, "/api/filters", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get(APIKeyHeader))
		writeJSON(w, http.StatusOK, `[]`)
	})

	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key", Username: "user", Password: "pass"})
	ok, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, c.HasToken())
	assert.True(t, exp.Equal(c.TokenExpiry()))

	_, err = c.GetFilters(context.Background())
	require.NoError(t, err)
}

func TestAuthenticateFailure(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"message":"invalid credentials"}`)
	})
	c := NewClient(Options{BaseURL: f.srv.URL, Username: "user", Password: "bad"})

	ok, err := c.Authenticate(context.Background())
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrAuthentication)
	msg, userFacing := apperrors.UserMessage(err)
	assert.True(t, userFacing)
	assert.Equal(t, "Authentication failed", msg)
}

func TestAuthenticateMissingToken(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	c := NewClient(Options{BaseURL: f.srv.URL, Username: "user", Password: "pass"})
	_, err := c.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.False(t, c.HasToken())
}

func TestAPIKeyHeaderWithoutToken(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodGet, "/api/filters", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get(APIKeyHeader))
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `[]`)
	})
	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key"})
	_, err := c.GetFilters(context.Background())
	require.NoError(t, err)
}

func TestReauthenticateOnceThenSucceed(t *testing.T) {
	f := newFakeAutobrr(t)
	var filterCalls atomic.Int32
	f.handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"token":"fresh"}`)
	})
	f.handle(http.MethodGet, "/api/filters", func(w http.ResponseWriter, r *http.Request) {
		if filterCalls.Add(1) == 1 {
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusUnauthorized, `{"message":"unauthorized"}`)
			return
		}
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `[{"id":1,"name":"tv","enabled":true,"priority":10}]`)
	})

	c := NewClient(Options{BaseURL: f.srv.URL, Username: "user", Password: "pass"})
	filters, err := c.GetFilters(context.Background())
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "tv", filters[0].Name)
	assert.Equal(t, 2, f.count(http.MethodGet, "/api/filters"))
	assert.Equal(t, 1, f.count(http.MethodPost, "/api/auth/login"))
}

func TestReauthenticateOnceThenFail(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantLogins int
	}{
		{
			name:       "login mode",
			opts:       Options{Username: "user", Password: "pass"},
			wantLogins: 1,
		},
		{
			name:       "api key mode",
			opts:       Options{APIKey: "stale"},
			wantLogins: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAutobrr(t)
			f.handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{"token":"fresh"}`)
			})
			f.handle(http.MethodGet, "/api/release", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, `{"message":"unauthorized"}`)
			})

			opts := tt.opts
			opts.BaseURL = f.srv.URL
			c := NewClient(opts)
			before := testutil.ToFloat64(metrics.ReauthenticationCounter())
			_, err := c.GetReleases(context.Background(), 5)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRemoteOperation)
			assert.Equal(t, "Failed to retrieve releases", err.Error())
			assert.Equal(t, 2, f.count(http.MethodGet, "/api/release"))
			assert.Equal(t, tt.wantLogins, f.count(http.MethodPost, "/api/auth/login"))
			assert.Equal(t, before+float64(tt.wantLogins), testutil.ToFloat64(metrics.ReauthenticationCounter()))
		})
	}
}

func TestReauthenticationFailurePropagates(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"bad password"}`)
	})
	f.handle(http.MethodGet, "/api/logs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, ``)
	})

	c := NewClient(Options{BaseURL: f.srv.URL, Username: "user", Password: "pass"})
	_, err := c.GetLogs(context.Background(), 10)
	require.ErrorIs(t, err, ErrAuthentication)
	assert.False(t, errors.Is(err, ErrRemoteOperation))
	assert.Equal(t, 1, f.count(http.MethodGet, "/api/logs"))
	assert.Equal(t, 1, f.count(http.MethodPost, "/api/auth/login"))
}

func TestGetFilterNotFound(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodGet, "/api/filters/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message":"filter not found"}`)
	})
	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key"})

	_, err := c.GetFilter(context.Background(), 7)
	require.ErrorIs(t, err, ErrRemoteOperation)
	msg, ok := apperrors.UserMessage(err)
	require.True(t, ok)
	assert.Equal(t, "Failed to retrieve filter 7", msg)
	assert.Equal(t, 1, f.count(http.MethodGet, "/api/filters/7"))
}

func TestTimeoutIsRemoteOperationError(t *testing.T) {
	release := make(chan struct{})
	f := newFakeAutobrr(t)
	f.handle(http.MethodGet, "/api/config", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key", Timeout: 50 * time.Millisecond})
	_, err := c.GetSettings(context.Background())
	require.ErrorIs(t, err, ErrRemoteOperation)
	assert.False(t, errors.Is(err, ErrAuthentication))
	assert.Equal(t, "Failed to retrieve settings", err.Error())
}

func TestInvalidArgumentsMakeNoCalls(t *testing.T) {
	f := newFakeAutobrr(t)
	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key"})
	ctx := context.Background()

	_, err := c.GetFilter(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = c.GetReleases(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = c.GetLogs(ctx, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, c.ApproveRelease(ctx, -3), ErrInvalidArgument)
	assert.ErrorIs(t, c.RejectRelease(ctx, 0), ErrInvalidArgument)
}

func TestGetStatus(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantVersion string
		wantUptime  string
	}{
		{name: "plain text", body: "OK", wantVersion: Unknown, wantUptime: Unknown},
		{name: "json", body: `{"version":"v1.45.0","uptime":"3h2m"}`, wantVersion: "v1.45.0", wantUptime: "3h2m"},
		{name: "numeric uptime", body: `{"uptime":3600}`, wantVersion: Unknown, wantUptime: "3600"},
		{name: "empty version", body: `{"version":""}`, wantVersion: Unknown, wantUptime: Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAutobrr(t)
			f.handle(http.MethodGet, "/api/healthz/liveness", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key"})
			st, err := c.GetStatus(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "online", st.Status)
			assert.Equal(t, tt.wantVersion, st.Version)
			assert.Equal(t, tt.wantUptime, st.Uptime)
		})
	}
}

func TestStatusCompatible(t *testing.T) {
	constraint, err := semver.NewConstraint(">= 1.30.0")
	require.NoError(t, err)

	assert.Equal(t, Compatible, Status{Version: "v1.45.0"}.Compatible(constraint))
	assert.Equal(t, Incompatible, Status{Version: "1.2.0"}.Compatible(constraint))
	assert.Equal(t, CompatibilityUnknown, Status{Version: Unknown}.Compatible(constraint))
	assert.Equal(t, CompatibilityUnknown, Status{Version: "v1.45.0"}.Compatible(nil))
}

func TestGetFilters(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodGet, "/api/filters", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[
			{"id":1,"name":"tv","enabled":true,"priority":5,"indexers":["ipt","tl"]},
			{"id":2,"name":"movies","enabled":false,"priority":1,"match_releases":"*1080p*","use_regex":true,
			 "indexers":[{"name":"BTN"},{"identifier":"ptp"},{}]}
		]}`)
	})
	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key"})

	filters, err := c.GetFilters(context.Background())
	require.NoError(t, err)
	require.Len(t, filters, 2)
	assert.Equal(t, Filter{ID: 1, Name: "tv", Enabled: true, Priority: 5, Indexers: []string{"ipt", "tl"}}, filters[0])
	assert.Equal(t, "*1080p*", filters[1].MatchReleases)
	assert.Equal(t, "", filters[1].ExceptReleases)
	assert.True(t, filters[1].UseRegex)
	assert.Equal(t, []string{"BTN", "ptp"}, filters[1].Indexers)
}

func TestGetFiltersInvalidBody(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodGet, "/api/filters", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `"nope"`)
	})
	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key"})
	_, err := c.GetFilters(context.Background())
	require.ErrorIs(t, err, ErrRemoteOperation)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, "Failed to retrieve filters", err.Error())
}

func TestGetReleases(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodGet, "/api/release", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		writeJSON(w, http.StatusOK, `[
			{"id":10,"name":"Show.S01E01","status":"APPROVED","size":1073741824,"indexer":"ipt"},
			{"id":11,"name":"Movie.2024","size":"1.5 GB"},
			{"id":12,"name":"Other"}
		]`)
	})
	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key"})

	releases, err := c.GetReleases(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, releases, 3)
	assert.Equal(t, Release{ID: 10, Name: "Show.S01E01", Status: "APPROVED", Size: 1073741824, Indexer: "ipt"}, releases[0])
	assert.Equal(t, "Unknown", releases[1].Status)
	assert.Equal(t, uint64(1500000000), releases[1].Size)
	assert.Equal(t, uint64(0), releases[2].Size)
	assert.Equal(t, "", releases[2].Indexer)
}

func TestApproveAndRejectRelease(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodPost, "/api/release/42/approve", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f.handle(http.MethodPost, "/api/release/42/reject", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"message":"release not pending"}`)
	})
	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key"})

	require.NoError(t, c.ApproveRelease(context.Background(), 42))
	assert.Equal(t, 1, f.count(http.MethodPost, "/api/release/42/approve"))

	err := c.RejectRelease(context.Background(), 42)
	require.ErrorIs(t, err, ErrRemoteOperation)
	assert.Equal(t, "Failed to reject release 42", err.Error())
}

func TestGetLogs(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodGet, "/api/logs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, `[
			{"timestamp":"2026-10-15T10:00:00Z","level":"INFO","message":"started"},
			{"timestamp":"yesterday","level":"WARN","message":"odd"}
		]`)
	})
	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key"})

	entries, err := c.GetLogs(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC), entries[0].Time.UTC())
	assert.Equal(t, "started", entries[0].Message)
	assert.True(t, entries[1].Time.IsZero())
	assert.Equal(t, "yesterday", entries[1].RawTimestamp)
}

func TestGetSettings(t *testing.T) {
	f := newFakeAutobrr(t)
	f.handle(http.MethodGet, "/api/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"host":"0.0.0.0","port":7474,"log_level":"DEBUG","session_secret":"s3cr3t","api_key":"k"}`)
	})
	c := NewClient(Options{BaseURL: f.srv.URL, APIKey: "key"})

	settings, err := c.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Settings{Host: "0.0.0.0", Port: "7474", LogLevel: "DEBUG"}, settings)
}

func TestSanitizeSettings(t *testing.T) {
	raw := []byte(`{"host":"h","password":"p","sessionSecret":"s","oidc.token":"t","nested":{"api_key":"kept-nested"}}`)
	out := SanitizeSettings(raw)

	doc := map[string]any{}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "h", doc["host"])
	assert.NotContains(t, doc, "password")
	assert.NotContains(t, doc, "sessionSecret")
	assert.NotContains(t, doc, "oidc.token")
	assert.Contains(t, doc, "nested")

	assert.Equal(t, []byte("OK"), SanitizeSettings([]byte("OK")))
}
