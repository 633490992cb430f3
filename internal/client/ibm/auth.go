package ibm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"capbudget/internal/config"
)

// Service names the token cache knows about.
const (
	ServiceCOS      = "cos"
	ServiceWatsonML = "watson_ml"
)

type tokenEntry struct {
	token     string
	expiresAt time.Time
}

// TokenCache exchanges per-service API keys for IAM bearer tokens and caches
// them until shortly before the provider expiry. The mutex is held across the
// fetch so concurrent callers on a cold cache trigger exactly one request.
type TokenCache struct {
	tokenURL  string
	grantType string
	ttl       time.Duration

	HTTP *http.Client

	mu      sync.Mutex
	apiKeys map[string]string
	entries map[string]tokenEntry
}

func NewTokenCache(cfg config.AuthConfig) *TokenCache {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 55 * time.Minute
	}
	return &TokenCache{
		tokenURL:  cfg.TokenURL,
		grantType: cfg.GrantType,
		ttl:       ttl,
		HTTP:      &http.Client{Timeout: cfg.Timeout},
		apiKeys:   map[string]string{},
		entries:   map[string]tokenEntry{},
	}
}

// RegisterService binds an API key to a service name. Tokens for unregistered
// services always fail with an AuthError.
func (c *TokenCache) RegisterService(service, apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKeys[service] = strings.TrimSpace(apiKey)
}

func (c *TokenCache) Token(ctx context.Context, service string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[service]; ok && time.Now().Before(entry.expiresAt) {
		return entry.token, nil
	}

	apiKey, ok := c.apiKeys[service]
	if !ok || apiKey == "" {
		return "", &AuthError{Service: service, Err: errors.New("no api key registered")}
	}

	token, err := c.fetch(ctx, apiKey)
	if err != nil {
		return "", &AuthError{Service: service, Err: err}
	}
	c.entries[service] = tokenEntry{token: token, expiresAt: time.Now().Add(c.ttl)}
	return token, nil
}

// Invalidate drops the cached token for a service, forcing a refresh on the
// next Token call. Callers use it after a 401 from a dependent service.
func (c *TokenCache) Invalidate(service string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, service)
}

func (c *TokenCache) fetch(ctx context.Context, apiKey string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", c.grantType)
	form.Set("apikey", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("identity endpoint http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", errors.New("identity response has no access_token")
	}
	return payload.AccessToken, nil
}

func (c *TokenCache) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 15 * time.Second}
}
