package internal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

const (
	// DefaultConnectRetryDelay is the fixed wait after a streaming endpoint answers
	// with a non-2xx status. The API rejects a new connection for a while after a
	// previous one to the same endpoint was dropped.
	DefaultConnectRetryDelay = 20 * time.Second
	// DefaultConnectRetries bounds how many times a rejected connect is retried.
	DefaultConnectRetries = 5
	// DefaultMaxEventBytes is the largest single event line accepted.
	DefaultMaxEventBytes = 1 << 20
)

// StreamConfig tunes a StreamConn. Zero fields take the defaults above.
type StreamConfig struct {
	// ConnectRetryDelay is waited between connect attempts rejected with a non-2xx status.
	ConnectRetryDelay time.Duration
	// ConnectRetries is the number of extra connect attempts. Negative disables them.
	ConnectRetries int
	// ReconnectDelay is the first wait before re-opening a stream that dropped
	// mid-read. Later waits grow exponentially. Defaults to ConnectRetryDelay.
	ReconnectDelay time.Duration
	// MaxReconnects caps consecutive failed reconnects. Zero means no cap.
	MaxReconnects int
	// MaxEventBytes bounds one event line.
	MaxEventBytes int
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.ConnectRetryDelay <= 0 {
		c.ConnectRetryDelay = DefaultConnectRetryDelay
	}
	if c.ConnectRetries == 0 {
		c.ConnectRetries = DefaultConnectRetries
	} else if c.ConnectRetries < 0 {
		c.ConnectRetries = 0
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = c.ConnectRetryDelay
	}
	if c.MaxEventBytes <= 0 {
		c.MaxEventBytes = DefaultMaxEventBytes
	}
	return c
}

// StreamHooks are optional callbacks fired from the goroutine running Run.
type StreamHooks struct {
	OnConnect    func()
	OnDisconnect func(err error)
	OnRetry      func(err error, wait time.Duration)
	// OnSkip receives chunks that were not valid JSON.
	OnSkip func(chunk []byte)
}

// StreamConn owns one long-lived streaming connection. Each line of the response
// that holds a complete JSON value is handed to the handler, synchronously and
// in arrival order. Blank keep-alive lines and malformed chunks are skipped.
// When the connection drops, it is re-opened with exponential backoff until the
// context ends, Close is called, or MaxReconnects is exceeded.
type StreamConn struct {
	exec    Executor
	job     *Job
	cfg     StreamConfig
	hooks   StreamHooks
	handler func(json.RawMessage)
	logger  *slog.Logger

	mu     sync.Mutex
	body   io.ReadCloser
	closed bool
	// cancel ends the context of the running Run, waking any wait.
	cancel context.CancelFunc
}

// NewStreamConn prepares a connection for job. The job is marked as a stream job.
func NewStreamConn(exec Executor, job *Job, cfg StreamConfig, handler func(json.RawMessage), logger *slog.Logger) *StreamConn {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	streamJob := *job
	streamJob.Stream = true

	return &StreamConn{
		exec:    exec,
		job:     &streamJob,
		cfg:     cfg.withDefaults(),
		handler: handler,
		logger:  logger.With("route", job.Route.String()),
	}
}

// SetHooks installs lifecycle callbacks. Call before Run.
func (s *StreamConn) SetHooks(h StreamHooks) {
	s.hooks = h
}

// Run connects and consumes the stream until ctx is done or Close is called, in
// which case it returns ctx.Err() or nil respectively. The first connect failing
// after its retries is returned as is; later failures go through reconnection.
func (s *StreamConn) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !s.start(cancel) {
		return nil
	}

	body, err := s.connect(ctx)
	if err != nil {
		if s.isClosed() {
			return nil
		}
		return err
	}

	policy := s.reconnectPolicy(ctx)
	for {
		readErr := s.consume(body)

		if s.isClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if readErr == nil {
			readErr = io.EOF
		}
		s.logger.Warn("stream disconnected", "error", readErr)
		if s.hooks.OnDisconnect != nil {
			s.hooks.OnDisconnect(readErr)
		}

		body, err = s.reconnect(ctx, policy)
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return err
		}
	}
}

// Close stops the stream. A blocked read is interrupted by closing the body and
// a pending connect or reconnect wait is cut short.
func (s *StreamConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.body != nil {
		return s.body.Close()
	}
	return nil
}

// start records cancel for Close. It reports false when already closed.
func (s *StreamConn) start(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.cancel = cancel
	return true
}

func (s *StreamConn) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// connect opens the stream, waiting ConnectRetryDelay after every non-2xx answer.
func (s *StreamConn) connect(ctx context.Context) (io.ReadCloser, error) {
	for attempt := 0; ; attempt++ {
		if s.isClosed() {
			return nil, &pkgerrs.StateError{Message: "stream closed"}
		}

		res, err := s.exec.Execute(ctx, s.job)
		if err == nil {
			if !s.attach(res.Stream) {
				_ = res.Stream.Close()
				return nil, &pkgerrs.StateError{Message: "stream closed"}
			}
			s.logger.Info("stream connected", "attempt", attempt+1)
			if s.hooks.OnConnect != nil {
				s.hooks.OnConnect()
			}
			return res.Stream, nil
		}

		var apiErr *pkgerrs.APIError
		if !errors.As(err, &apiErr) || attempt >= s.cfg.ConnectRetries {
			return nil, err
		}

		s.logger.Warn("stream connect rejected, retrying", "status", apiErr.StatusCode, "attempt", attempt+1, "wait", s.cfg.ConnectRetryDelay)
		if s.hooks.OnRetry != nil {
			s.hooks.OnRetry(err, s.cfg.ConnectRetryDelay)
		}

		timer := time.NewTimer(s.cfg.ConnectRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *StreamConn) attach(body io.ReadCloser) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.body = body
	return true
}

func (s *StreamConn) reconnectPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.ReconnectDelay
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	var policy backoff.BackOff = b
	if s.cfg.MaxReconnects > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(s.cfg.MaxReconnects))
	}
	return backoff.WithContext(policy, ctx)
}

func (s *StreamConn) reconnect(ctx context.Context, policy backoff.BackOff) (io.ReadCloser, error) {
	var body io.ReadCloser
	op := func() error {
		b, err := s.connect(ctx)
		if err != nil {
			if s.permanent(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("stream reconnect failed", "error", err, "wait", wait)
		if s.hooks.OnRetry != nil {
			s.hooks.OnRetry(err, wait)
		}
	}

	// The stream was up a moment ago, so the first attempt is delayed too.
	s.logger.Info("reconnecting stream", "wait", s.cfg.ReconnectDelay)
	timer := time.NewTimer(s.cfg.ReconnectDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	case <-timer.C:
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return body, nil
}

// permanent reports errors that another connect attempt cannot fix.
func (s *StreamConn) permanent(ctx context.Context, err error) bool {
	if ctx.Err() != nil || s.isClosed() {
		return true
	}
	var (
		mc  *pkgerrs.MissingCredentialsError
		cfg *pkgerrs.ConfigError
	)
	return errors.As(err, &mc) || errors.As(err, &cfg)
}

// consume reads body until it fails or ends.
func (s *StreamConn) consume(body io.ReadCloser) error {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, min(64*1024, s.cfg.MaxEventBytes)), s.cfg.MaxEventBytes)

	for scanner.Scan() {
		chunk := bytes.TrimSpace(scanner.Bytes())
		if len(chunk) == 0 {
			continue
		}
		if !json.Valid(chunk) {
			s.logger.Debug("skipping malformed chunk", "bytes", len(chunk))
			if s.hooks.OnSkip != nil {
				s.hooks.OnSkip(append([]byte(nil), chunk...))
			}
			continue
		}
		if s.handler != nil {
			s.handler(append(json.RawMessage(nil), chunk...))
		}
	}
	return scanner.Err()
}
