package gtaw

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// StreamOptions tune a streaming endpoint.
type StreamOptions struct {
	// BackfillMinutes asks the API to replay up to five minutes of Tweets
	// missed during a disconnect. Zero disables backfill.
	BackfillMinutes int
	// Extra parameters merged last.
	Extra Params
}

// StreamStats counts what a Stream has seen so far.
type StreamStats struct {
	Events   int64
	Skipped  int64
	Connects int64
	Drops    int64
}

// Stream is a long-lived connection to a streaming endpoint. Register
// listeners, then call Run. Listeners run on the goroutine calling Run, in
// arrival order.
type Stream struct {
	c    *Client
	conn *internal.StreamConn

	events   internal.Emitter[*types.StreamEvent]
	problems internal.Emitter[types.Problem]
	drops    internal.Emitter[error]

	nEvents   atomic.Int64
	nSkipped  atomic.Int64
	nConnects atomic.Int64
	nDrops    atomic.Int64
}

// FilteredStream opens the stream of Tweets matching the rules managed
// through Rules. It requires app-only authentication.
func (c *Client) FilteredStream(opts *StreamOptions) (*Stream, error) {
	return c.newStream(internal.NewRoute("tweets", "search", "stream").Get(), opts)
}

// SampleStream opens the roughly 1% random sample of all public Tweets.
func (c *Client) SampleStream(opts *StreamOptions) (*Stream, error) {
	return c.newStream(internal.NewRoute("tweets", "sample", "stream").Get(), opts)
}

func (c *Client) newStream(route internal.Route, opts *StreamOptions) (*Stream, error) {
	if opts == nil {
		opts = &StreamOptions{}
	}
	if opts.BackfillMinutes < 0 || opts.BackfillMinutes > 5 {
		return nil, &pkgerrs.ConfigError{Field: "backfill_minutes", Message: "must be between 0 and 5"}
	}
	extra := Params{}
	if opts.BackfillMinutes > 0 {
		extra["backfill_minutes"] = opts.BackfillMinutes
	}

	s := &Stream{c: c}
	job := &internal.Job{
		Route: route,
		Query: c.paramsFor(fieldsTweet, internal.Merge(extra, opts.Extra)),
		Auth:  AuthBearer,
	}
	s.conn = internal.NewStreamConn(c.streamHTTP, job, c.config.Stream, s.handle, c.logger)
	s.conn.SetHooks(internal.StreamHooks{
		OnConnect: func() { s.nConnects.Add(1) },
		OnDisconnect: func(err error) {
			s.nDrops.Add(1)
			s.drops.Emit(err)
		},
		OnSkip: func([]byte) { s.nSkipped.Add(1) },
	})
	return s, nil
}

// OnEvent registers fn for every decoded event carrying a Tweet. The returned
// function removes the listener.
func (s *Stream) OnEvent(fn func(*types.StreamEvent)) (off func()) {
	return s.events.On(fn)
}

// OnProblem registers fn for problems the API sends in-band, such as an
// operational disconnect notice.
func (s *Stream) OnProblem(fn func(types.Problem)) (off func()) {
	return s.problems.On(fn)
}

// OnDisconnect registers fn for every dropped connection. A reconnect
// follows unless the stream is closing.
func (s *Stream) OnDisconnect(fn func(error)) (off func()) {
	return s.drops.On(fn)
}

// Run connects and delivers events until ctx ends or Close is called. See
// StreamConfig for the retry and reconnect policy.
func (s *Stream) Run(ctx context.Context) error {
	if err := s.c.ensureConnected(ctx); err != nil {
		return err
	}
	return s.conn.Run(ctx)
}

// Close stops the stream. Run returns nil afterwards.
func (s *Stream) Close() error {
	return s.conn.Close()
}

// Stats returns the counters of this stream.
func (s *Stream) Stats() StreamStats {
	return StreamStats{
		Events:   s.nEvents.Load(),
		Skipped:  s.nSkipped.Load(),
		Connects: s.nConnects.Load(),
		Drops:    s.nDrops.Load(),
	}
}

func (s *Stream) handle(raw json.RawMessage) {
	var ev types.StreamEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		s.nSkipped.Add(1)
		s.c.logger.Debug("skipping undecodable stream event", "error", err)
		return
	}

	for _, p := range ev.Errors {
		s.problems.Emit(p)
	}
	if ev.Tweet == nil || ev.Tweet.ID == "" {
		if len(ev.Errors) == 0 {
			s.nSkipped.Add(1)
			s.c.logger.Debug("skipping stream chunk without a Tweet", "bytes", len(raw))
		}
		return
	}

	s.nEvents.Add(1)
	s.c.remember(ev.Tweet)
	s.c.rememberIncludes(ev.Includes)
	s.events.Emit(&ev)
}
