// Package routerquery is the HTTP client for the external quoting provider,
// with endpoint failover: a primary endpoint, optional backups, bounded
// retries with doubling delay, and a background health checker that restores
// the primary once it answers again.
package routerquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/openport-labs/swapquote/quoting"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "routerquery").Logger()
}

// FailoverConfig controls retry and failover behavior.
type FailoverConfig struct {
	// MaxRetries is the number of times a failed request is retried on the
	// current endpoint before failing over.
	MaxRetries int
	// RetryDelay is the initial delay between retries; it doubles each time.
	RetryDelay time.Duration
	// HealthCheckInterval is how often the health checker probes the primary
	// while a backup is in use.
	HealthCheckInterval time.Duration
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration
}

// DefaultFailoverConfig returns sensible defaults.
func DefaultFailoverConfig() FailoverConfig {
	return FailoverConfig{
		MaxRetries:          2,
		RetryDelay:          500 * time.Millisecond,
		HealthCheckInterval: 30 * time.Second,
		Timeout:             10 * time.Second,
	}
}

// Client queries the quoting provider. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	primaryURL string
	backupURLs []string
	cfg        FailoverConfig

	mu         sync.RWMutex
	currentURL string

	checker *healthChecker
}

// healthChecker probes the primary endpoint while a backup is active.
type healthChecker struct {
	client    *Client
	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
	mu        sync.Mutex
}

// New creates a Client with a single endpoint.
func New(providerURL string) (*Client, error) {
	return NewWithFailover(providerURL, nil, DefaultFailoverConfig())
}

// NewWithFailover creates a Client with backup endpoints.
func NewWithFailover(primaryURL string, backupURLs []string, cfg FailoverConfig) (*Client, error) {
	if _, err := url.Parse(primaryURL); err != nil || primaryURL == "" {
		return nil, fmt.Errorf("invalid provider url %q: %w", primaryURL, err)
	}

	validBackups := make([]string, 0, len(backupURLs))
	for _, u := range backupURLs {
		if _, err := url.Parse(u); err != nil {
			log.Warn().Err(err).Str("url", u).Msg("invalid backup url, skipping")
			continue
		}
		validBackups = append(validBackups, u)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		primaryURL: primaryURL,
		backupURLs: validBackups,
		currentURL: primaryURL,
		cfg:        cfg,
	}
	if len(validBackups) > 0 {
		c.startHealthChecker()
	}

	log.Info().
		Str("primary", primaryURL).
		Int("backups", len(validBackups)).
		Msg("router query client initialized")
	return c, nil
}

// Close stops the health checker.
func (c *Client) Close() {
	if c.checker != nil {
		c.checker.stop()
	}
}

// FetchQuote asks the provider for a quote matching args. Identical args may
// be issued repeatedly (the provider treats them as idempotent reads) and
// the request is cancelled when ctx is.
func (c *Client) FetchQuote(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
	if args.IsSkip() {
		return nil, fmt.Errorf("refusing to fetch the skip sentinel")
	}

	query := url.Values{}
	query.Set("tokenInChain", args.TokenInChainID)
	query.Set("tokenInDenom", args.TokenInDenom)
	query.Set("tokenOutChain", args.TokenOutChainID)
	query.Set("tokenOutDenom", args.TokenOutDenom)
	query.Set("amount", args.Amount)
	query.Set("type", args.TradeType.String())

	body, err := c.getWithFailover(ctx, args.EndpointOverride, "/router/quote?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}
	if _, err := decimal.NewFromString(resp.Amount); err != nil {
		return nil, fmt.Errorf("provider returned malformed amount %q: %w", resp.Amount, err)
	}
	if resp.GasUSD != "" {
		if _, err := decimal.NewFromString(resp.GasUSD); err != nil {
			return nil, fmt.Errorf("provider returned malformed gas estimate %q: %w", resp.GasUSD, err)
		}
	}

	return &quoting.QuoteResult{
		Amount:      resp.Amount,
		BlockNumber: resp.BlockNumber,
		GasUSD:      resp.GasUSD,
		Route:       resp.Route,
	}, nil
}

// LatestBlock reports the provider's most recent block; it backs the block
// freshness oracle.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	body, err := c.getWithFailover(ctx, "", "/status")
	if err != nil {
		return 0, err
	}
	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode status response: %w", err)
	}
	return resp.LatestBlockNumber, nil
}

// getWithFailover issues a GET against the current endpoint with retries,
// then walks the backups. An explicit override skips failover entirely.
func (c *Client) getWithFailover(ctx context.Context, override, path string) ([]byte, error) {
	if override != "" {
		return c.get(ctx, override+path)
	}

	current := c.current()
	body, err := c.getWithRetries(ctx, current+path)
	if err == nil {
		return body, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	for _, backup := range c.endpointsAfter(current) {
		log.Warn().
			Str("failed", current).
			Str("next", backup).
			Msg("endpoint failed, trying next")
		body, berr := c.getWithRetries(ctx, backup+path)
		if berr == nil {
			c.setCurrent(backup)
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, berr
		}
		err = berr
	}
	return nil, err
}

func (c *Client) getWithRetries(ctx context.Context, fullURL string) ([]byte, error) {
	delay := c.cfg.RetryDelay
	var err error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		var body []byte
		body, err = c.get(ctx, fullURL)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, err
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return body, nil
}

func (c *Client) current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentURL
}

func (c *Client) setCurrent(u string) {
	c.mu.Lock()
	c.currentURL = u
	c.mu.Unlock()
}

// endpointsAfter lists the candidates to try once current has failed:
// every configured endpoint except current, primary first.
func (c *Client) endpointsAfter(current string) []string {
	out := make([]string, 0, len(c.backupURLs)+1)
	if current != c.primaryURL {
		out = append(out, c.primaryURL)
	}
	for _, b := range c.backupURLs {
		if b != current {
			out = append(out, b)
		}
	}
	return out
}

func (c *Client) startHealthChecker() {
	c.checker = &healthChecker{
		client:    c,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	c.checker.start()
}

func (h *healthChecker) start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true

	go func() {
		defer close(h.stoppedCh)
		ticker := time.NewTicker(h.client.cfg.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.probePrimary()
			}
		}
	}()
}

func (h *healthChecker) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.stopCh)
	<-h.stoppedCh
}

// probePrimary switches back to the primary endpoint as soon as it answers.
func (h *healthChecker) probePrimary() {
	c := h.client
	if c.current() == c.primaryURL {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	if _, err := c.get(ctx, c.primaryURL+"/status"); err != nil {
		return
	}

	c.setCurrent(c.primaryURL)
	log.Info().Str("url", c.primaryURL).Msg("primary endpoint restored")
}
