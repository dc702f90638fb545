// Package reddit implements the content-source client over Reddit's
// JSON API: bounded search, recent-comment listings, and a praw-style
// polled comment stream. Authenticated (OAuth password or
// client-credentials grant) when credentials are configured, public
// endpoints otherwise.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "redwatch/pkg/logx"
)

const (
	publicBaseURL = "https://www.reddit.com"
	oauthBaseURL  = "https://oauth.reddit.com"
	authTokenPath = "/api/v1/access_token"

	defaultUserAgent = "redwatch:v1.0"
	defaultTimeout   = 30 * time.Second
	// Reddit asks unauthenticated clients to stay around 1 req/s.
	defaultRequestInterval = time.Second
	defaultStreamInterval  = 2 * time.Second
)

type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string

	// BaseURL/AuthURL are overridable for tests.
	BaseURL string
	AuthURL string

	Timeout         time.Duration
	RequestInterval time.Duration
	StreamInterval  time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     logx.Logger

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New builds a client. Credentials are optional; without them the
// public endpoints are used at the public rate.
func New(cfg Config, log logx.Logger) (*Client, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = defaultRequestInterval
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = defaultStreamInterval
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = publicBaseURL
	}
	if cfg.BaseURL == "" {
		if cfg.ClientID != "" {
			cfg.BaseURL = oauthBaseURL
		} else {
			cfg.BaseURL = publicBaseURL
		}
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		log:     log,
	}, nil
}

func (c *Client) authenticated() bool { return c.cfg.ClientID != "" }

// accessToken returns a cached OAuth token, refreshing when it is
// within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{}
	if c.cfg.Username != "" && c.cfg.Password != "" {
		form.Set("grant_type", "password")
		form.Set("username", c.cfg.Username)
		form.Set("password", c.cfg.Password)
	} else {
		form.Set("grant_type", "client_credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.AuthURL+authTokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("token decode: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}
	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

// get fetches one listing endpoint, rate-limited and cancellable.
func (c *Client) get(ctx context.Context, path string, query url.Values) (listing, error) {
	var l listing

	if err := c.limiter.Wait(ctx); err != nil {
		return l, err
	}

	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return l, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.authenticated() {
		tok, err := c.accessToken(ctx)
		if err != nil {
			return l, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return l, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return l, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return l, fmt.Errorf("decode %s: %w", path, err)
	}
	return l, nil
}
