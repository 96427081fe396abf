package marketdata

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/models"
	"github.com/sony/gobreaker"
)

// FeedConfig defines the HTTP bar feed and its retry policy.
type FeedConfig struct {
	BaseURL        string
	APIKey         string
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

// DefaultFeedConfig is the retry policy used when callers pass zero values.
var DefaultFeedConfig = FeedConfig{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	Timeout:        2 * time.Minute,
}

// HTTPProvider fetches bars from a REST endpoint. Requests go through a
// circuit breaker so a flapping upstream fails fast instead of burning the
// whole retry budget on every call.
type HTTPProvider struct {
	cfg     FeedConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *log.Logger
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider creates the provider. Zero retry fields fall back to
// DefaultFeedConfig values.
func NewHTTPProvider(cfg FeedConfig, logger *log.Logger) *HTTPProvider {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultFeedConfig.MaxRetries
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = DefaultFeedConfig.InitialBackoff
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = DefaultFeedConfig.MaxBackoff
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultFeedConfig.Timeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bar-feed",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &HTTPProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		breaker: breaker,
		logger:  logger,
	}
}

type barResponse struct {
	Bars []models.MarketBar `json:"bars"`
}

// Bars fetches the range, retrying transient failures with capped exponential
// backoff and jitter.
func (p *HTTPProvider) Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.MarketBar, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	var lastErr error
	backoff := p.cfg.InitialBackoff

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if fetchCtx.Err() != nil {
			return nil, fmt.Errorf("bar fetch timed out: %w", fetchCtx.Err())
		}

		bars, err := p.fetch(fetchCtx, symbol, start, end)
		if err == nil {
			return bars, nil
		}
		lastErr = err
		p.logger.Printf("bar fetch attempt %d/%d failed: %v", attempt+1, p.cfg.MaxRetries+1, err)

		if !isTransientError(err) || attempt == p.cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(backoff):
			backoff = nextBackoff(backoff, p.cfg.MaxBackoff)
		case <-fetchCtx.Done():
			return nil, fmt.Errorf("bar fetch timed out during backoff: %w", fetchCtx.Err())
		}
	}
	return nil, fmt.Errorf("failed to fetch bars after %d attempts: %w", p.cfg.MaxRetries+1, lastErr)
}

func (p *HTTPProvider) fetch(ctx context.Context, symbol string, start, end time.Time) ([]models.MarketBar, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		u := fmt.Sprintf("%s/v1/bars?symbol=%s&start=%s&end=%s",
			strings.TrimRight(p.cfg.BaseURL, "/"),
			url.QueryEscape(symbol),
			url.QueryEscape(start.Format(time.RFC3339)),
			url.QueryEscape(end.Format(time.RFC3339)),
		)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		if p.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("feed returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var parsed barResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("decoding feed response: %w", err)
		}
		return parsed.Bars, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.MarketBar), nil
}

func nextBackoff(current, max time.Duration) time.Duration {
	backoff := time.Duration(float64(current) * 1.5)
	if backoff > max {
		backoff = max
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err == nil {
			backoff += time.Duration(jitterVal.Int64())
		}
	}
	return backoff
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"server error",
		"rate limit",
		"429",
		"502",
		"503",
		"504",
		"network",
		"dns",
		"tcp",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
