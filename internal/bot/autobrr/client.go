// Package autobrr implements the authenticated client for the autobrr REST API.
//
// A Client owns one session. Requests carry the session's bearer token when one is
// held, else the configured API key. When autobrr answers 401 the client logs in once
// and replays the request once; a second failure is returned to the caller.
package autobrr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/brrbot/brrbot/internal/bot/metrics"
	"github.com/brrbot/brrbot/internal/common/httpclient"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxAttempts is the original request plus one replay after re-authentication.
const maxAttempts = 2

// Options configures a Client.
type Options struct {
	BaseURL  string
	APIKey   string
	Username string
	Password string
	Timeout  time.Duration
}

// Client performs authenticated calls against autobrr.
type Client struct {
	session  *session
	http     httpclient.HTTPClientInterface
	username string
	password string
}

// NewClient creates a Client with an empty session.
func NewClient(opts Options) *Client {
	s := newSession(opts.BaseURL, opts.APIKey)
	return &Client{
		session: s,
		http: httpclient.NewClient(s, httpclient.ClientOptions{
			Timeout:   opts.Timeout,
			UserAgent: "brrbot",
		}),
		username: opts.Username,
		password: opts.Password,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authenticate logs in with the configured username and password and stores the
// returned token. It reports false without contacting autobrr when no username and
// password are configured, which is the normal case in API-key mode.
func (c *Client) Authenticate(ctx context.Context) (bool, error) {
	if c.username == "" || c.password == "" {
		return false, nil
	}

	req, err := json.Marshal(loginRequest{Username: c.username, Password: c.password})
	if err != nil {
		return false, ErrAuthentication.Err(err)
	}

	body, err := c.http.Post(ctx, "/api/auth/login", req)
	metrics.ObserveRemoteRequest(http.MethodPost, statusOf(err))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to authenticate with autobrr")
		return false, ErrAuthentication.Err(err)
	}

	token := gjson.GetBytes(body, "token")
	if token.Type != gjson.String || token.String() == "" {
		log.Ctx(ctx).Error().Msg("autobrr login response carried no token")
		return false, ErrAuthentication.Err(ErrInvalidResponse)
	}
	c.session.setToken(token.String())

	evt := log.Ctx(ctx).Info()
	if exp := c.session.tokenExpiry(); !exp.IsZero() {
		evt = evt.Time("token_expires_at", exp)
	}
	evt.Msg("authenticated with autobrr")
	return true, nil
}

// HasToken reports whether a bearer token is held.
func (c *Client) HasToken() bool {
	return c.session.GetToken() != ""
}

// TokenExpiry returns the expiry embedded in the held token, or the zero time when
// unknown.
func (c *Client) TokenExpiry() time.Time {
	return c.session.tokenExpiry()
}

// do sends the request and, on 401, re-authenticates once and replays it once.
func (c *Client) do(ctx context.Context, opts httpclient.RequestOptions) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, err := c.http.DoRequest(ctx, opts)
		metrics.ObserveRemoteRequest(opts.Method, statusOf(err))
		if err == nil {
			return body, nil
		}
		lastErr = err

		if httpclient.StatusCode(err) != http.StatusUnauthorized || attempt == maxAttempts {
			break
		}

		log.Ctx(ctx).Warn().Str("path", opts.Path).Msg("autobrr rejected credentials, re-authenticating")
		ok, err := c.Authenticate(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			metrics.ObserveReauthentication()
		}
	}
	return nil, lastErr
}

// call wraps do and converts any failure other than an authentication failure into
// an ErrRemoteOperation carrying desc.
func (c *Client) call(ctx context.Context, opts httpclient.RequestOptions, desc string) ([]byte, error) {
	body, err := c.do(ctx, opts)
	if err == nil {
		return body, nil
	}
	if errors.Is(err, ErrAuthentication) {
		return nil, err
	}
	log.Ctx(ctx).Error().Err(err).Str("method", opts.Method).Str("path", opts.Path).Msg(desc)
	return nil, ErrRemoteOperation.MsgErr(desc, err)
}

// GetStatus queries the liveness endpoint. A reachable service is reported online;
// version and uptime default to "unknown".
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	const desc = "Failed to retrieve system status"
	body, err := c.call(ctx, httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/healthz/liveness",
	}, desc)
	if err != nil {
		return nil, err
	}
	return parseStatus(body), nil
}

// GetFilters lists all configured filters.
func (c *Client) GetFilters(ctx context.Context) ([]Filter, error) {
	const desc = "Failed to retrieve filters"
	body, err := c.call(ctx, httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/filters",
	}, desc)
	if err != nil {
		return nil, err
	}
	items, err := listItems(body)
	if err != nil {
		return nil, ErrRemoteOperation.MsgErr(desc, err)
	}
	filters := make([]Filter, 0, len(items))
	for _, item := range items {
		filters = append(filters, parseFilter(item))
	}
	return filters, nil
}

// GetFilter fetches one filter by id.
func (c *Client) GetFilter(ctx context.Context, id int64) (*Filter, error) {
	if id <= 0 {
		return nil, ErrInvalidArgument.New("Filter ID must be a positive integer")
	}
	desc := fmt.Sprintf("Failed to retrieve filter %d", id)
	body, err := c.call(ctx, httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/api/filters/%d", id),
	}, desc)
	if err != nil {
		return nil, err
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, ErrRemoteOperation.MsgErr(desc, ErrInvalidResponse)
	}
	f := parseFilter(doc)
	return &f, nil
}

// GetReleases lists the most recent releases, newest first as returned by autobrr.
func (c *Client) GetReleases(ctx context.Context, limit int) ([]Release, error) {
	if limit <= 0 {
		return nil, ErrInvalidArgument.New("Limit must be a positive integer")
	}
	const desc = "Failed to retrieve releases"
	body, err := c.call(ctx, httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/release",
		QueryParams: map[string]string{
			"limit":  strconv.Itoa(limit),
			"offset": "0",
		},
	}, desc)
	if err != nil {
		return nil, err
	}
	items, err := listItems(body)
	if err != nil {
		return nil, ErrRemoteOperation.MsgErr(desc, err)
	}
	releases := make([]Release, 0, len(items))
	for _, item := range items {
		releases = append(releases, parseRelease(item))
	}
	return releases, nil
}

// ApproveRelease approves a pending release.
func (c *Client) ApproveRelease(ctx context.Context, id int64) error {
	return c.releaseAction(ctx, id, "approve")
}

// RejectRelease rejects a pending release.
func (c *Client) RejectRelease(ctx context.Context, id int64) error {
	return c.releaseAction(ctx, id, "reject")
}

func (c *Client) releaseAction(ctx context.Context, id int64, action string) error {
	if id <= 0 {
		return ErrInvalidArgument.New("Release ID must be a positive integer")
	}
	_, err := c.call(ctx, httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/api/release/%d/%s", id, action),
	}, fmt.Sprintf("Failed to %s release %d", action, id))
	return err
}

// GetLogs returns up to limit recent log entries.
func (c *Client) GetLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		return nil, ErrInvalidArgument.New("Limit must be a positive integer")
	}
	const desc = "Failed to retrieve logs"
	body, err := c.call(ctx, httpclient.RequestOptions{
		Method:      http.MethodGet,
		Path:        "/api/logs",
		QueryParams: map[string]string{"limit": strconv.Itoa(limit)},
	}, desc)
	if err != nil {
		return nil, err
	}
	items, err := listItems(body)
	if err != nil {
		return nil, ErrRemoteOperation.MsgErr(desc, err)
	}
	entries := make([]LogEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, parseLogEntry(item))
	}
	return entries, nil
}

// GetSettings returns the non-sensitive part of the remote configuration.
func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	const desc = "Failed to retrieve settings"
	body, err := c.call(ctx, httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/config",
	}, desc)
	if err != nil {
		return nil, err
	}
	sanitized := SanitizeSettings(body)
	settings, err := decodeSettings(sanitized)
	if err != nil {
		return nil, ErrRemoteOperation.MsgErr(desc, err)
	}
	log.Ctx(ctx).Debug().RawJSON("config", sanitized).Msg("fetched autobrr settings")
	return settings, nil
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return httpclient.StatusCode(err)
}
