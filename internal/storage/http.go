package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/TravelMesh/read_layer/pkg/logger"
)

const maxDocumentBytes = 4 << 20

// HTTPAdapter fetches JSON documents over HTTP(S). Remote stores are assumed
// expensive and rate-limited, so fetches pass through a token-bucket limiter
// and transient failures back off exponentially.
type HTTPAdapter struct {
	client  *http.Client
	limiter *rate.Limiter
	retries uint64
	log     *logger.Logger
}

// HTTPConfig configures the HTTP adapter.
type HTTPConfig struct {
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
	MaxRetries     uint64
}

// NewHTTPAdapter creates an HTTP adapter with defaulted timeout, rate limit
// and retry budget.
func NewHTTPAdapter(cfg HTTPConfig, log *logger.Logger) *HTTPAdapter {
	if log == nil {
		log = logger.NewDefault("storage.http")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 3
	}
	return &HTTPAdapter{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		retries: retries,
		log:     log,
	}
}

// Fetch retrieves and decodes the JSON document at uri.
func (a *HTTPAdapter) Fetch(ctx context.Context, uri string) (map[string]any, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", ErrUnreachable, err)
	}

	var doc map[string]any
	backoff := retry.WithMaxRetries(a.retries, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetched, err := a.fetchOnce(ctx, uri)
		if err != nil {
			a.log.WithField("uri", uri).WithError(err).Debug("document fetch attempt failed")
			return retry.RetryableError(err)
		}
		doc = fetched
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrUnreachable, uri, err)
	}
	return doc, nil
}

func (a *HTTPAdapter) fetchOnce(ctx context.Context, uri string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
