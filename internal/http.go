package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// Job is a single request to execute. It is built once and not modified after
// being handed to an executor.
type Job struct {
	Route  Route
	Query  Params
	Body   any
	Auth   AuthMode
	Stream bool
}

// Result is the outcome of a successful Job. For stream jobs only Stream,
// StatusCode and Header are set and the caller owns Stream.
type Result struct {
	StatusCode int
	Header     http.Header
	Envelope   *types.Response
	Raw        []byte
	Stream     io.ReadCloser
	// Partial holds problems reported next to a successful "data" payload.
	// The caller delivers them once the route is free again.
	Partial []types.Problem
}

// Executor executes a Job. RouteQueues wraps one to serialize per bucket.
type Executor interface {
	Execute(ctx context.Context, job *Job) (*Result, error)
}

// Client executes jobs against the versioned API root.
type Client struct {
	client    *http.Client
	BaseURL   *url.URL
	UserAgent string
	auth      *Authenticator
	parser    *Parser
	logger    *slog.Logger

	limiter *rate.Limiter
	mu      sync.Mutex
	// bucket key -> earliest time the next request on it may be sent
	forceWaitUntil map[string]time.Time
}

// RateLimitConfig controls how requests are throttled before reaching the API.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput across all routes. Defaults to 900 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 50 if zero.
	Burst int
}

const (
	DefaultRequestsPerMinute = 900
	DefaultRateLimitBurst    = 50
	SecondsPerMinute         = 60.0

	// maxErrorBodyBytes bounds how much of a failed response is read.
	maxErrorBodyBytes = 1 << 20
)

// NewClient returns a job executor rooted at baseURL, which should already
// include the API version (e.g. "https://api.twitter.com/2/").
// If a nil httpClient is provided, http.DefaultClient will be used.
func NewClient(httpClient *http.Client, auth *Authenticator, baseURL, userAgent string, rateCfg *RateLimitConfig, logger *slog.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if auth == nil {
		return nil, &pkgerrs.ConfigError{Field: "auth", Message: "authenticator cannot be nil"}
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.ClientError{Operation: "parse base URL", Err: err}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	if rateCfg == nil {
		rateCfg = &RateLimitConfig{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		client:         httpClient,
		BaseURL:        parsedURL,
		UserAgent:      userAgent,
		auth:           auth,
		parser:         NewParser(),
		logger:         logger,
		limiter:        buildLimiter(*rateCfg),
		forceWaitUntil: make(map[string]time.Time),
	}, nil
}

// NewRequest builds the HTTP request for job, including authorization.
func (c *Client) NewRequest(ctx context.Context, job *Job) (*http.Request, error) {
	u, err := c.BaseURL.Parse(job.Route.Path)
	if err != nil {
		return nil, &pkgerrs.ClientError{Operation: "build URL", Err: err}
	}
	u.RawQuery = job.Query.Encode()

	var body io.Reader
	hasBody := job.Body != nil && job.Route.Method != http.MethodGet
	if hasBody {
		payload, err := json.Marshal(job.Body)
		if err != nil {
			return nil, &pkgerrs.ClientError{Operation: "encode request body", Err: err}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, job.Route.Method, u.String(), body)
	if err != nil {
		return nil, &pkgerrs.ClientError{Operation: "build request", Err: err}
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	if err := c.auth.Authorize(req, job.Auth); err != nil {
		return nil, err
	}
	return req, nil
}

// Execute sends job and classifies the response. Ordinary jobs are never retried.
func (c *Client) Execute(ctx context.Context, job *Job) (*Result, error) {
	bucket := job.Route.String()

	if !job.Stream {
		if err := c.waitForRateLimit(ctx, bucket); err != nil {
			return nil, &pkgerrs.RequestError{Operation: bucket, Err: err}
		}
	}

	req, err := c.NewRequest(ctx, job)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sending request", "route", bucket, "url", req.URL.String(), "stream", job.Stream)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: bucket, URL: req.URL.String(), Err: err}
	}

	c.applyRateHeaders(bucket, resp)

	if job.Stream {
		return c.classifyStream(resp)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.apiError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: bucket, URL: req.URL.String(), Message: "failed to read response body", Err: err}
	}

	result := &Result{StatusCode: resp.StatusCode, Header: resp.Header, Raw: raw}
	if !isJSON(resp.Header.Get("Content-Type")) && !looksLikeJSON(raw) {
		return result, nil
	}

	envelope, err := c.parser.ParseEnvelope(raw)
	if err != nil {
		return nil, &pkgerrs.ParseError{Operation: bucket, Err: err}
	}
	result.Envelope = envelope

	if len(envelope.Errors) > 0 {
		if !envelope.HasData() {
			return nil, &pkgerrs.APIError{
				StatusCode: resp.StatusCode,
				Problem:    envelope.Errors[0],
				Additional: envelope.Errors[1:],
			}
		}
		c.logger.Warn("partial errors in successful response", "route", bucket, "count", len(envelope.Errors))
		result.Partial = envelope.Errors
	}

	c.logger.Debug("request completed", "route", bucket, "status", resp.StatusCode, "bytes", len(raw))
	return result, nil
}

func (c *Client) classifyStream(resp *http.Response) (*Result, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.apiError(resp)
	}
	return &Result{StatusCode: resp.StatusCode, Header: resp.Header, Stream: resp.Body}, nil
}

func (c *Client) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	primary, additional := c.parser.ParseProblem(body)
	return &pkgerrs.APIError{StatusCode: resp.StatusCode, Problem: primary, Additional: additional}
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func looksLikeJSON(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / SecondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

func (c *Client) waitForRateLimit(ctx context.Context, bucket string) error {
	if err := c.waitForForcedDelay(ctx, bucket); err != nil {
		return err
	}

	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

func (c *Client) waitForForcedDelay(ctx context.Context, bucket string) error {
	for {
		c.mu.Lock()
		waitUntil := c.forceWaitUntil[bucket]
		c.mu.Unlock()

		if waitUntil.IsZero() {
			return nil
		}

		now := time.Now()
		if !now.Before(waitUntil) {
			c.clearForcedDelay(bucket, waitUntil)
			return nil
		}

		c.logger.Debug("route rate limited, waiting", "route", bucket, "until", waitUntil)

		timer := time.NewTimer(waitUntil.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			c.clearForcedDelay(bucket, waitUntil)
		}
	}
}

func (c *Client) clearForcedDelay(bucket string, previous time.Time) {
	c.mu.Lock()
	if previous.Equal(c.forceWaitUntil[bucket]) {
		delete(c.forceWaitUntil, bucket)
	}
	c.mu.Unlock()
}

// applyRateHeaders defers the bucket until the reset time when the response says
// the window is used up. x-rate-limit-reset is an epoch timestamp in seconds.
func (c *Client) applyRateHeaders(bucket string, resp *http.Response) {
	remainingHeader := resp.Header.Get("X-Rate-Limit-Remaining")
	resetHeader := resp.Header.Get("X-Rate-Limit-Reset")
	if remainingHeader == "" || resetHeader == "" {
		return
	}

	remaining, errRemaining := strconv.Atoi(remainingHeader)
	resetEpoch, errReset := strconv.ParseInt(resetHeader, 10, 64)
	if errRemaining != nil || errReset != nil || resetEpoch <= 0 {
		return
	}

	if remaining <= 0 || resp.StatusCode == http.StatusTooManyRequests {
		c.deferBucket(bucket, time.Unix(resetEpoch, 0))
	}
}

func (c *Client) deferBucket(bucket string, until time.Time) {
	if !until.After(time.Now()) {
		return
	}

	c.mu.Lock()
	if until.After(c.forceWaitUntil[bucket]) {
		c.forceWaitUntil[bucket] = until
	}
	c.mu.Unlock()
}

// String renders the request target for error messages.
func (j *Job) String() string {
	return fmt.Sprintf("%s %s", j.Route.Method, j.Route.Path)
}
