package autobrr

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// APIKeyHeader carries the static API key when no bearer token is held.
const APIKeyHeader = "X-API-Token"

// session holds the credentials of one Client. It starts empty and is overwritten by
// every successful login. The mutex keeps concurrent reads and writes race-free; it does
// not serialize logins.
type session struct {
	mu        sync.RWMutex
	baseURL   string
	apiKey    string
	token     string
	expiresAt time.Time
}

func newSession(baseURL, apiKey string) *session {
	return &session{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// GetServerURL implements httpclient.Configurator.
func (s *session) GetServerURL() string {
	return s.baseURL
}

// GetToken implements httpclient.Configurator.
func (s *session) GetToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// GetAPIKey implements httpclient.Configurator.
func (s *session) GetAPIKey() string {
	return s.apiKey
}

// GetAPIKeyHeader implements httpclient.Configurator.
func (s *session) GetAPIKeyHeader() string {
	return APIKeyHeader
}

// tokenExpiry returns the exp claim of the held token, or the zero time.
func (s *session) tokenExpiry() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *session) setToken(token string) {
	expiresAt := unverifiedExpiry(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiresAt
}

// unverifiedExpiry reads the exp claim when the token is a JWT. The signature is not
// checked; the value is informational only.
func unverifiedExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
