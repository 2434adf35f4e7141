package mdm

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/martinsuchenak/mdmkit/internal/log"
)

// retryTransport retries transient failures with exponential backoff
// before handing the response to the caller. Connection errors and
// gateway-class statuses (502, 503, 504) are retried; every other status
// is returned as-is so each endpoint can apply its own contract.
type retryTransport struct {
	base     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < t.attempts; attempt++ {
		r := req
		if attempt > 0 && req.Body != nil {
			if req.GetBody == nil {
				break
			}
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			r = req.Clone(req.Context())
			r.Body = body
		}

		resp, err := t.base.RoundTrip(r)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		last := attempt == t.attempts-1
		if err != nil {
			lastErr = err
			log.Debug("Request failed", "method", req.Method, "url", req.URL.String(), "attempt", attempt+1, "error", err)
		} else {
			if last {
				return resp, nil
			}
			log.Debug("Request returned retryable status", "method", req.Method, "url", req.URL.String(), "attempt", attempt+1, "status", resp.StatusCode)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		if last {
			break
		}

		// Exponential backoff: base, 2x, 4x, ...
		delay := t.backoff * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("request body cannot be replayed")
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", t.attempts, lastErr)
}

func (t *retryTransport) CloseIdleConnections() {
	if tr, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		tr.CloseIdleConnections()
	}
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// newTransport builds the retrying transport for one client context.
// maxConns caps both in-flight and idle connections per host so a bulk
// fetch never holds more sockets to the server than its bound.
func newTransport(tlsConfig *tls.Config, maxConns, attempts int, backoff time.Duration) *retryTransport {
	return &retryTransport{
		base: &http.Transport{
			TLSClientConfig:     tlsConfig,
			MaxConnsPerHost:     maxConns,
			MaxIdleConnsPerHost: maxConns,
			IdleConnTimeout:     90 * time.Second,
		},
		attempts: attempts,
		backoff:  backoff,
	}
}

// tlsConfigFor builds the TLS settings from the verification options:
// a PEM CA bundle path for custom validation, or insecure to accept
// self-signed certificates.
func tlsConfigFor(caFile string, insecure bool) (*tls.Config, error) {
	if insecure {
		return &tls.Config{InsecureSkipVerify: true}, nil
	}
	if caFile == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("reading CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}
	return &tls.Config{RootCAs: pool}, nil
}
