package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domainErr "github.com/mwangikim/nyumbapay/internal/domain/error"
	"github.com/mwangikim/nyumbapay/internal/domain/port/core"
)

// TokenSource provides bearer tokens for gateway calls. Implementations
// are safe for concurrent use.
type TokenSource interface {
	// Token returns a valid access token, refreshing it if needed
	Token(ctx context.Context) (string, error)
	// Invalidate discards the cached token so the next call refreshes
	Invalidate()
}

// tokenResponse is the gateway's OAuth response body
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// CachedTokenSource caches an OAuth access token in memory and refreshes
// it before expiry. Concurrent callers that miss the cache share a single
// refresh request.
type CachedTokenSource struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	slack          time.Duration
	timeProvider   core.TimeProvider
	logger         core.Logger

	group singleflight.Group

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewCachedTokenSource creates a token source backed by the gateway's
// OAuth endpoint
func NewCachedTokenSource(
	httpClient *http.Client,
	baseURL string,
	consumerKey string,
	consumerSecret string,
	slack time.Duration,
	timeProvider core.TimeProvider,
	logger core.Logger,
) *CachedTokenSource {
	return &CachedTokenSource{
		httpClient:     httpClient,
		baseURL:        baseURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		slack:          slack,
		timeProvider:   timeProvider,
		logger:         logger,
	}
}

// Token returns the cached token if it is still fresh, otherwise fetches
// a new one. A token within the slack window of its expiry counts as stale.
func (s *CachedTokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := s.cached(); ok {
		return token, nil
	}

	result, err, _ := s.group.Do("token", func() (any, error) {
		// A concurrent caller may have refreshed while we queued
		if token, ok := s.cached(); ok {
			return token, nil
		}
		// The refresh outcome is shared with queued callers, so it must
		// not die with the first caller's context
		return s.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate drops the cached token
func (s *CachedTokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}

func (s *CachedTokenSource) cached() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", false
	}
	if !s.timeProvider.Now().Add(s.slack).Before(s.expiresAt) {
		return "", false
	}
	return s.token, true
}

func (s *CachedTokenSource) refresh(ctx context.Context) (string, error) {
	url := s.baseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", domainErr.NewGatewayTransportError("token_refresh", err)
	}

	credentials := base64.StdEncoding.EncodeToString(
		[]byte(s.consumerKey + ":" + s.consumerSecret))
	req.Header.Set("Authorization", "Basic "+credentials)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", domainErr.NewGatewayTransportError("token_refresh", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domainErr.NewGatewayTransportError("token_refresh", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", domainErr.NewGatewayRejectedError(
			"token_refresh", resp.StatusCode, "",
			fmt.Sprintf("token endpoint returned status %d", resp.StatusCode))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", domainErr.NewGatewayTransportError("token_refresh", err)
	}
	if parsed.AccessToken == "" {
		return "", domainErr.NewGatewayRejectedError(
			"token_refresh", resp.StatusCode, "", "token endpoint returned empty token")
	}

	// The gateway reports lifetime as a string of seconds
	lifetime, err := strconv.Atoi(parsed.ExpiresIn)
	if err != nil || lifetime <= 0 {
		lifetime = 3600
	}

	now := s.timeProvider.Now()
	s.mu.Lock()
	s.token = parsed.AccessToken
	s.expiresAt = now.Add(time.Duration(lifetime) * time.Second)
	s.mu.Unlock()

	s.logger.Debug("gateway access token refreshed", map[string]any{
		"expiresIn": lifetime,
	})

	return parsed.AccessToken, nil
}

// StaticTokenSource returns a fixed token, useful in tests
type StaticTokenSource struct {
	AccessToken string
}

func (s *StaticTokenSource) Token(_ context.Context) (string, error) {
	return s.AccessToken, nil
}

func (s *StaticTokenSource) Invalidate() {}
