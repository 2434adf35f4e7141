// Package mdm is a client for an MDM server's token-based REST API and
// its basic-auth legacy XML API. A Client owns one session against each
// surface; both are opened at construction and released together by
// Close.
package mdm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/martinsuchenak/mdmkit/internal/config"
	"github.com/martinsuchenak/mdmkit/internal/log"
)

const (
	apiRoot     = "/uapi/"
	classicRoot = "/JSSResource/"

	authEndpoint         = "auth/tokens"
	validationEndpoint   = "auth/current"
	invalidateEndpoint   = "auth/invalidateToken"
	mobileDeviceEndpoint = "inventory/obj/mobileDevice"
	searchDeviceEndpoint = "inventory/searchMobileDevices"
	serverURLEndpoint    = "v1/jamf-pro-server-url"
)

const (
	defaultMaxConnections = 25
	defaultRetryAttempts  = 5
	defaultRetryBackoff   = 500 * time.Millisecond
	defaultTimeout        = 30 * time.Second
)

// Client holds the credentials and the two live sessions. Authenticate,
// Validate and Invalidate must be called from a single control flow;
// they are not safe to race against each other or against a running
// bulk fetch.
type Client struct {
	server   string
	username string
	password string

	rest             *http.Client
	classic          *http.Client
	restTransport    *retryTransport
	classicTransport *retryTransport

	maxConnections int
	retryAttempts  int
	retryBackoff   time.Duration
	timeout        time.Duration
	tlsCAFile      string
	tlsInsecure    bool

	token  string
	expiry time.Time
}

// New builds a client for the given server. Both sessions are ready
// immediately; the REST session uses basic auth until Authenticate
// swaps it for a bearer token.
func New(cfg *config.Config) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("%w: server URL is required", ErrInvalidArgument)
	}
	u, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: server URL must include protocol and host", ErrInvalidArgument)
	}

	tlsCfg, err := tlsConfigFor(cfg.CAFile, cfg.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = defaultMaxConnections
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	restTransport := newTransport(tlsCfg, maxConns, attempts, defaultRetryBackoff)
	classicTransport := newTransport(tlsCfg, maxConns, attempts, defaultRetryBackoff)

	return &Client{
		server:           strings.TrimRight(u.String(), "/"),
		username:         cfg.Username,
		password:         cfg.Password,
		rest:             &http.Client{Transport: restTransport, Timeout: timeout},
		classic:          &http.Client{Transport: classicTransport, Timeout: timeout},
		restTransport:    restTransport,
		classicTransport: classicTransport,
		maxConnections:   maxConns,
		retryAttempts:    attempts,
		retryBackoff:     defaultRetryBackoff,
		timeout:          timeout,
		tlsCAFile:        cfg.CAFile,
		tlsInsecure:      cfg.SkipTLSVerify,
	}, nil
}

// Available checks whether the server is reachable. A 401 counts as
// reachable since the probe endpoint requires no credentials to answer.
func Available(ctx context.Context, server, caFile string, insecure bool) (bool, error) {
	tlsCfg, err := tlsConfigFor(caFile, insecure)
	if err != nil {
		return false, err
	}
	hc := &http.Client{
		Transport: &http.Transport{TLSClientConfig: tlsCfg},
		Timeout:   defaultTimeout,
	}
	defer hc.CloseIdleConnections()

	probe := strings.TrimRight(server, "/") + apiRoot + serverURLEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe, nil)
	if err != nil {
		return false, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	log.Debug("Server probe", "url", probe, "status", resp.StatusCode)
	return resp.StatusCode < 300 || resp.StatusCode == http.StatusUnauthorized, nil
}

// Authenticate requests a bearer token with the stored credentials. On
// success the REST session drops basic auth in favor of the token; the
// token expiry is the server's epoch-millisecond value.
func (c *Client) Authenticate(ctx context.Context) error {
	resp, err := c.restDo(ctx, c.rest, http.MethodPost, authEndpoint, nil)
	if err != nil {
		return fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		return &AuthError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(detail))}
	}

	var auth struct {
		Token   string `json:"token"`
		Expires int64  `json:"expires"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("decoding token response: %w", err)
	}

	c.token = auth.Token
	c.expiry = time.UnixMilli(auth.Expires)
	log.Debug("Authenticated", "server", c.server, "expires", c.expiry.Format(time.RFC3339))
	return nil
}

// Authenticated reports whether a token is held and still valid. Local
// clock comparison only, no network call.
func (c *Client) Authenticated() bool {
	return c.token != "" && c.expiry.After(time.Now())
}

// Validate asks the server whether the current token is live. Session
// state is not altered.
func (c *Client) Validate(ctx context.Context) (bool, error) {
	resp, err := c.restDo(ctx, c.rest, http.MethodPost, validationEndpoint, nil)
	if err != nil {
		return false, fmt.Errorf("validating token: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK, nil
}

// Invalidate revokes the current token. Calling it without a live token
// is a no-op. On an HTTP failure the session state is left untouched so
// the caller can retry.
func (c *Client) Invalidate(ctx context.Context) error {
	if !c.Authenticated() {
		return nil
	}
	resp, err := c.restDo(ctx, c.rest, http.MethodPost, invalidateEndpoint, nil)
	if err != nil {
		return fmt.Errorf("invalidating token: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Status: resp.StatusCode, Endpoint: invalidateEndpoint}
	}
	c.token = ""
	c.expiry = time.Time{}
	log.Debug("Token invalidated", "server", c.server)
	return nil
}

// Close invalidates the token and releases both client contexts. The
// connections are released even when invalidation fails.
func (c *Client) Close(ctx context.Context) error {
	err := c.Invalidate(ctx)
	if err != nil {
		log.Warn("Token invalidation on close failed", "error", err)
	}
	c.restTransport.CloseIdleConnections()
	c.classicTransport.CloseIdleConnections()
	return err
}

func (c *Client) restURL(endpoint string) string {
	return c.server + apiRoot + endpoint
}

func (c *Client) classicURL(path string) string {
	return c.server + classicRoot + path
}

// restDo issues one REST request through the given client. The bearer
// token is attached when held, otherwise the basic-auth credentials;
// status handling stays with the caller because the endpoints disagree
// on what a failure looks like.
func (c *Client) restDo(ctx context.Context, hc *http.Client, method, endpoint string, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.restURL(endpoint), rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else {
		req.SetBasicAuth(c.username, c.password)
	}
	return hc.Do(req)
}

// classicDo issues one legacy XML API request. The legacy surface never
// uses the bearer token.
func (c *Client) classicDo(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.classicURL(path), rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}
	req.SetBasicAuth(c.username, c.password)
	return c.classic.Do(req)
}
