// Package fplapi reads the public Fantasy Premier League endpoints.
package fplapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"github.com/riskibarqy/fpl-predictor/internal/platform/resilience"
	"github.com/riskibarqy/fpl-predictor/internal/usecase"
	"github.com/valyala/fasthttp"
)

const (
	defaultBaseURL   = "https://fantasy.premierleague.com/api"
	defaultUserAgent = "fpl-predictor/1.0"
	maxResponseBytes = 16 << 20
)

var errTransient = crerr.New("fpl api transient failure")

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fpl api %s status=%d body=%s", e.Path, e.Status, e.Body)
}

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	http      *fasthttp.Client
	baseURL   string
	userAgent string
	timeout   time.Duration
	retries   int
	backoff   time.Duration
	logger    *logging.Logger
	breaker   *resilience.CircuitBreaker
	flight    resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("fplapi")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                     defaultUserAgent,
			MaxResponseBodySize:      maxResponseBytes,
			NoDefaultUserAgentHeader: true,
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		http:      httpClient,
		baseURL:   baseURL,
		userAgent: userAgent,
		timeout:   timeout,
		retries:   max(cfg.MaxRetries, 0),
		backoff:   backoff,
		logger:    logger,
		breaker: resilience.NewCircuitBreaker("fplapi", cfg.CircuitBreaker, func(name string, from, to resilience.CircuitState) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", string(from), "to", string(to))
		}),
	}
}

// Bootstrap returns teams and players from bootstrap-static.
func (c *Client) Bootstrap(ctx context.Context) (usecase.ExternalBootstrap, error) {
	var payload bootstrapPayload
	if err := c.getJSON(ctx, "/bootstrap-static/", &payload); err != nil {
		return usecase.ExternalBootstrap{}, err
	}
	out := mapBootstrap(payload)
	if out.Skipped > 0 {
		c.logger.DebugContext(ctx, "skipped non-player elements", "count", out.Skipped)
	}
	return out, nil
}

// PlayerHistory returns the season's per-match rows of one player.
func (c *Client) PlayerHistory(ctx context.Context, playerID int64) ([]player.MatchRecord, error) {
	if playerID <= 0 {
		return nil, crerr.Newf("player id must be > 0, got %d", playerID)
	}
	var payload elementSummaryPayload
	if err := c.getJSON(ctx, fmt.Sprintf("/element-summary/%d/", playerID), &payload); err != nil {
		return nil, err
	}
	return mapHistory(playerID, payload.History), nil
}

func (c *Client) Fixtures(ctx context.Context) ([]fixture.Fixture, error) {
	var payload []fixtureItem
	if err := c.getJSON(ctx, "/fixtures/", &payload); err != nil {
		return nil, err
	}
	return mapFixtures(payload), nil
}

func (c *Client) BreakerState() resilience.CircuitState {
	return c.breaker.State()
}

// getJSON fetches path once per concurrent burst and decodes it into target.
func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	raw, err := resilience.Share(&c.flight, path, func() ([]byte, error) {
		var body []byte
		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			var reqErr error
			body, reqErr = c.fetch(ctx, path)
			return reqErr
		}, isBreakerFailure)
		return body, err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "fpl api request rejected by circuit breaker", "path", path)
		return fmt.Errorf("%w: fpl api circuit open for %s", usecase.ErrDependencyUnavailable, path)
	}
	if err != nil {
		return err
	}

	if err := decode(raw, target); err != nil {
		return crerr.Wrapf(err, "decode %s", path)
	}
	return nil
}

// fetch retries transport errors, 429 and 5xx with linear backoff.
func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, status, err := c.do(ctx, url)
		switch {
		case err != nil:
			lastErr = crerr.Mark(crerr.Wrapf(err, "get %s", path), errTransient)
		case status >= 200 && status < 300:
			return body, nil
		case isRetryableStatus(status):
			lastErr = crerr.Mark(&StatusError{Path: path, Status: status, Body: abbreviate(body)}, errTransient)
		default:
			return nil, &StatusError{Path: path, Status: status, Body: abbreviate(body)}
		}

		if attempt == c.retries {
			break
		}
		c.logger.DebugContext(ctx, "retrying fpl api request", "path", path, "attempt", attempt+1, "error", lastErr)
		timer := time.NewTimer(time.Duration(attempt+1) * c.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "fpl api request failed", "path", path, "attempts", c.retries+1, "error", lastErr)
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, url string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.Header.SetUserAgent(c.userAgent)

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, 0, err
	}
	body := append([]byte(nil), resp.Body()...)
	return body, resp.StatusCode(), nil
}

// isBreakerFailure counts only upstream trouble; a 404 for an unknown player
// says nothing about the API's health.
func isBreakerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && !isRetryableStatus(statusErr.Status) {
		return false
	}
	return true
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusTooManyRequests || status >= 500
}

func abbreviate(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		return text[:256] + "..."
	}
	return text
}
