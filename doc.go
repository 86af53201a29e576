// Package gtaw provides a Go client for the Twitter API v2.
//
// # Overview
//
// The package wraps the REST and streaming endpoints of the v2 API behind a
// typed interface. It supports app-only authentication with a bearer token and
// user-context authentication with OAuth 1.0a HMAC-SHA1 signing.
//
// # Features
//
//   - Bearer token and OAuth1 user-context authentication
//   - Per-endpoint request queues: requests to one endpoint are sent one at a
//     time in call order, different endpoints run concurrently
//   - Client-side rate limiting that honours the x-rate-limit headers
//   - Books: cursor-paginated collections you walk page by page
//   - Streaming connections that skip malformed chunks and reconnect
//   - Structured logging support via Go's slog package
//   - An expiring cache of recently seen Tweets, users and Lists
//
// # Quick Start
//
//	client, err := gtaw.NewClient(&gtaw.Config{
//		BearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
//		UserAgent:   "myapp/1.0",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Connection Lifecycle
//
// NewClient validates the configuration and makes no network call. Connect
// resolves the signed-in account for user-context sessions; every API method
// connects lazily, so calling it is optional. Rejected credentials surface as
// an *AuthError from Connect or from the first request.
//
// # Pagination
//
// Collection endpoints return a Book. A fresh Book always fetches on Next; once
// a response carries no next token the Book is exhausted and further calls to
// Next fail with an error matching ErrTailReached without touching the
// network.
//
//	book, err := client.Users().Followers(ctx, gtaw.Username("golang"), &gtaw.PageOptions{MaxResults: 1000})
//	if err != nil {
//		log.Fatal(err)
//	}
//	for book.CanAdvance() {
//		page, err := book.Next(ctx)
//		if err != nil {
//			log.Fatal(err)
//		}
//		for _, u := range page.Items() {
//			fmt.Println(u.Username)
//		}
//	}
//
// Iter wraps a Book and yields one item at a time:
//
//	tweets, err := book.Iter(ctx).Collect(500)
//
// # Streaming
//
// Filtered and sample streams deliver events to listeners until the context
// ends or Close is called:
//
//	stream, err := client.FilteredStream(nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	stream.OnEvent(func(ev *types.StreamEvent) {
//		fmt.Println(ev.Tweet.Text)
//	})
//	err = stream.Run(ctx)
//
// A rejected connect is retried after a fixed delay (20 seconds by default).
// A connection that drops mid-read is re-opened with exponential backoff.
//
// # Error Handling
//
// Local failures are reported before any request is made:
//
//	*ConfigError                 invalid argument or configuration
//	*MissingCredentialsError     the call needs a scheme the client lacks
//	*PaginationError             tail or head of a Book reached
//	*UnresolvedIdentifierError   a username could not be turned into an ID
//
// Remote failures:
//
//	*APIError      the API answered with a problem
//	*AuthError     credentials were rejected while connecting
//	*RequestError  transport failure or cancellation
//	*ParseError    the response could not be decoded
//
// Problems returned next to a successful payload are not errors; register
// OnPartialError to see them.
//
// # Logging
//
// Enable debug logging by providing a logger in the config:
//
//	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
//		Level: slog.LevelDebug,
//	}))
//
//	config := &gtaw.Config{
//		// ... other config ...
//		Logger: logger,
//	}
//
// # Twitter API Documentation
//
// For endpoint details refer to https://developer.twitter.com/en/docs/twitter-api.
package gtaw
