package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"nexlearn-exam-client/internal/domain"
)

// TokenStore holds the live credential pair for the process. Implementations
// must be safe for concurrent use.
type TokenStore interface {
	Tokens() (domain.Tokens, bool)
	SetTokens(domain.Tokens)
	Clear()
}

// Client wraps outbound HTTP calls, attaches bearer credentials, and recovers
// from credential expiry with a single in-flight refresh shared by every
// concurrent caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore
	sf         singleflight.Group
	onAuthLost func()
}

// New builds a gateway for the given backend base URL. onAuthLost is invoked
// after the store is cleared when credentials cannot be recovered; the
// presentation layer uses it to return the user to the login entry point.
func New(baseURL string, timeout time.Duration, store TokenStore, onAuthLost func()) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
		onAuthLost: onAuthLost,
	}
}

// BaseURL returns the configured backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes a request built by build. On a 401 it refreshes the credential
// pair exactly once and retries with a freshly built request so body readers
// are not reused. A second 401 is returned to the caller as-is, never looped.
func (c *Client) Do(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	requestID := uuid.NewString()

	resp, err := c.send(ctx, build, requestID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	if _, err := c.refresh(ctx); err != nil {
		return nil, err
	}
	log.Printf("gateway: request %s retrying after token refresh", requestID)
	return c.send(ctx, build, requestID)
}

func (c *Client) send(ctx context.Context, build func() (*http.Request, error), requestID string) (*http.Response, error) {
	req, err := build()
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("X-Request-ID", requestID)
	if tokens, ok := c.store.Tokens(); ok && tokens.AccessToken != "" {
		tokenType := tokens.TokenType
		if tokenType == "" {
			tokenType = "Bearer"
		}
		req.Header.Set("Authorization", tokenType+" "+tokens.AccessToken)
	}
	return c.httpClient.Do(req)
}

// refresh rotates the credential pair. Concurrent callers share one refresh
// call; singleflight guarantees the rotation happens before any waiter is
// released with the new pair. On any failure the store is cleared and the
// auth-lost hook fires.
func (c *Client) refresh(ctx context.Context) (domain.Tokens, error) {
	result, err, _ := c.sf.Do("refresh", func() (interface{}, error) {
		tokens, ok := c.store.Tokens()
		if !ok || tokens.RefreshToken == "" {
			c.authLost()
			return nil, domain.ErrSessionExpired
		}

		body, err := json.Marshal(map[string]string{"refresh_token": tokens.RefreshToken})
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.authLost()
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			c.authLost()
			return nil, domain.ErrSessionExpired
		}

		var fresh domain.Tokens
		if err := json.NewDecoder(resp.Body).Decode(&fresh); err != nil {
			c.authLost()
			return nil, err
		}
		if fresh.TokenType == "" {
			fresh.TokenType = "Bearer"
		}
		c.store.SetTokens(fresh)
		return fresh, nil
	})
	if err != nil {
		return domain.Tokens{}, err
	}
	return result.(domain.Tokens), nil
}

func (c *Client) authLost() {
	c.store.Clear()
	if c.onAuthLost != nil {
		c.onAuthLost()
	}
}
