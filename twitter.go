package gtaw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

const (
	// DefaultBaseURL is the default API host.
	DefaultBaseURL = "https://api.twitter.com/"
	// DefaultAPIVersion is the API version prefix appended to the base URL.
	DefaultAPIVersion = "2"
	// DefaultUserAgent is the default user agent string
	DefaultUserAgent = "go-twitter-api-wrapper/0.1"
	// DefaultTimeout is the default HTTP client timeout. Streams use a client
	// without a timeout derived from the same transport.
	DefaultTimeout = 30 * time.Second
	// DefaultCacheSize is the number of entities kept in the client cache.
	DefaultCacheSize = 1024
	// DefaultCacheTTL is how long a cached entity stays valid.
	DefaultCacheTTL = 15 * time.Minute
)

// Params are query parameters. Slice values are sent comma-joined; nil, empty
// strings, empty slices and zero times are omitted.
type Params = internal.Params

// RateLimitConfig controls the client-side request limiter.
type RateLimitConfig = internal.RateLimitConfig

// StreamConfig controls connect retries and reconnection of streams.
type StreamConfig = internal.StreamConfig

// AuthMode selects the authorization scheme of a request.
type AuthMode = internal.AuthMode

// Authorization modes. AuthAuto uses whichever scheme the client carries.
const (
	AuthAuto   = internal.AuthAuto
	AuthBearer = internal.AuthBearer
	AuthUser   = internal.AuthUser
)

// Config holds the configuration for the client.
//
// Provide exactly one credential set: BearerToken for app-only access, or all
// four of ConsumerKey, ConsumerSecret, AccessToken and AccessSecret for
// user-context access.
//
//	client, err := gtaw.NewClient(&gtaw.Config{
//		BearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
//	})
type Config struct {
	// BearerToken enables app-only authentication.
	BearerToken string

	// OAuth1 user-context credentials.
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string

	// UserAgent identifies your application.
	UserAgent string

	// BaseURL is the API host. Defaults to DefaultBaseURL.
	BaseURL string

	// APIVersion is appended to BaseURL. Defaults to DefaultAPIVersion.
	APIVersion string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	HTTPClient *http.Client

	// Logger for structured diagnostics. Optional.
	Logger *slog.Logger

	// RateLimit configures the client-side limiter. Optional.
	RateLimit *RateLimitConfig

	// QueryDefaults are merged over DefaultQueryParameters() and sent with every
	// request whose endpoint accepts them. Set a key to nil to drop a default.
	QueryDefaults Params

	// CacheSize and CacheTTL size the entity cache. Zero takes the defaults; a
	// negative CacheSize disables caching.
	CacheSize int
	CacheTTL  time.Duration

	// Stream tunes streaming connections.
	Stream StreamConfig
}

// DefaultQueryParameters returns the field selections sent with every request
// unless overridden through Config.QueryDefaults. A fresh map is returned on
// every call.
func DefaultQueryParameters() Params {
	return Params{
		"tweet.fields": []string{"author_id", "conversation_id", "created_at", "in_reply_to_user_id", "lang", "public_metrics", "referenced_tweets", "source"},
		"user.fields":  []string{"created_at", "description", "location", "pinned_tweet_id", "profile_image_url", "protected", "public_metrics", "url", "verified"},
		"list.fields":  []string{"created_at", "description", "follower_count", "member_count", "owner_id", "private"},
		"expansions":   []string{"author_id"},
	}
}

// fieldset names which default parameters an endpoint accepts.
type fieldset int

const (
	fieldsNone fieldset = iota
	fieldsTweet
	fieldsUser
	fieldsList
)

func (f fieldset) keys() []string {
	switch f {
	case fieldsTweet:
		return []string{"tweet.fields", "user.fields", "expansions"}
	case fieldsUser:
		return []string{"user.fields"}
	case fieldsList:
		return []string{"list.fields"}
	default:
		return nil
	}
}

// Client is the main API client. It is safe for concurrent use.
//
// Requests to the same endpoint (ignoring IDs) are sent one at a time in the
// order they were made; requests to different endpoints run concurrently.
type Client struct {
	config    *Config
	auth      *internal.Authenticator
	http      *internal.Client
	queues    *internal.RouteQueues
	validator *internal.Validator
	conn      *internal.ConnectionManager
	logger    *slog.Logger
	defaults  Params

	// streamHTTP carries no overall timeout.
	streamHTTP *internal.Client

	entities  *expirable.LRU[string, types.Entity]
	usernames *expirable.LRU[string, string]

	partial internal.Emitter[PartialError]

	mu sync.RWMutex
	me *types.User

	rules *ruleMirror
}

// PartialError reports problems the API returned next to a successful payload,
// such as a batch lookup where some IDs no longer exist.
type PartialError struct {
	// Route is the bucketed route, e.g. "GET tweets".
	Route    string
	Problems []types.Problem
}

// NewClient creates a new client with the provided configuration. It validates
// the configuration but makes no network call; see Connect.
//
// Returns a *ConfigError if:
//   - config is nil
//   - both or neither credential sets are provided
//   - the OAuth1 credential set is incomplete
//   - the user agent is invalid
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &pkgerrs.ConfigError{Message: "config cannot be nil"}
	}

	cfg := *config
	validator := internal.NewValidator()

	creds := internal.OAuth1Credentials{
		ConsumerKey:    cfg.ConsumerKey,
		ConsumerSecret: cfg.ConsumerSecret,
		AccessToken:    cfg.AccessToken,
		AccessSecret:   cfg.AccessSecret,
	}
	anyOAuth := creds.ConsumerKey != "" || creds.ConsumerSecret != "" || creds.AccessToken != "" || creds.AccessSecret != ""

	var auth *internal.Authenticator
	switch {
	case cfg.BearerToken != "" && anyOAuth:
		return nil, &pkgerrs.ConfigError{Field: "credentials", Message: "provide either a bearer token or OAuth1 credentials, not both"}
	case cfg.BearerToken != "":
		auth = internal.NewBearerAuthenticator(cfg.BearerToken)
	case anyOAuth:
		if !creds.Complete() {
			return nil, &pkgerrs.ConfigError{Field: "credentials", Message: "OAuth1 requires consumer key, consumer secret, access token and access secret"}
		}
		auth = internal.NewUserAuthenticator(creds)
	default:
		return nil, &pkgerrs.ConfigError{Field: "credentials", Message: "a bearer token or OAuth1 credentials are required"}
	}

	// Set defaults
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if err := validator.ValidateUserAgent(cfg.UserAgent); err != nil {
		return nil, &pkgerrs.ConfigError{Field: "UserAgent", Message: err.Error()}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	root := strings.TrimSuffix(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.APIVersion, "/") + "/"

	httpClient, err := internal.NewClient(cfg.HTTPClient, auth, root, cfg.UserAgent, cfg.RateLimit, logger)
	if err != nil {
		return nil, err
	}

	streamClient := *cfg.HTTPClient
	streamClient.Timeout = 0
	streamHTTP, err := internal.NewClient(&streamClient, auth, root, cfg.UserAgent, cfg.RateLimit, logger)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:     &cfg,
		auth:       auth,
		http:       httpClient,
		streamHTTP: streamHTTP,
		queues:     internal.NewRouteQueues(httpClient, logger),
		validator:  validator,
		conn:       internal.NewConnectionManager(),
		logger:     logger,
		defaults:   internal.Merge(DefaultQueryParameters(), cfg.QueryDefaults),
		rules:      newRuleMirror(),
	}

	if cfg.CacheSize > 0 {
		c.entities = expirable.NewLRU[string, types.Entity](cfg.CacheSize, nil, cfg.CacheTTL)
		c.usernames = expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL)
	}

	return c, nil
}

// Connect prepares the client for use. For user-context sessions it resolves
// the signed-in account through GET users/me, which also verifies the
// credentials. For app-only sessions there is nothing to do.
//
// It is safe to call Connect multiple times; after a success it is a no-op.
// API methods connect lazily, so calling Connect is optional.
func (c *Client) Connect(ctx context.Context) error {
	return c.conn.Initialize(ctx, c.initialize)
}

func (c *Client) initialize(ctx context.Context) error {
	if !c.auth.UserContext() {
		return nil
	}

	res, err := c.execute(ctx, &internal.Job{
		Route: internal.NewRoute("users", "me").Get(),
		Query: c.paramsFor(fieldsUser, nil),
		Auth:  internal.AuthUser,
	})
	if err != nil {
		var apiErr *pkgerrs.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return &pkgerrs.AuthError{StatusCode: apiErr.StatusCode, Message: "credentials rejected", Err: err}
		}
		return err
	}

	me, err := internal.DecodeOne[types.User](res.Envelope.Data)
	if err != nil {
		return &pkgerrs.ParseError{Operation: "users/me", Err: err}
	}

	c.mu.Lock()
	c.me = me
	c.mu.Unlock()
	c.auth.SetUsername(me.Username)
	c.remember(me)

	c.logger.Info("connected", "username", me.Username, "id", me.ID)
	return nil
}

// ensureConnected lazily initializes the client before handling a request.
func (c *Client) ensureConnected(ctx context.Context) error {
	if c.conn.IsInitialized() {
		return nil
	}
	return c.Connect(ctx)
}

// IsConnected reports whether Connect has succeeded.
func (c *Client) IsConnected() bool {
	return c.conn.IsInitialized()
}

// UserContext reports whether requests are signed on behalf of a user.
func (c *Client) UserContext() bool {
	return c.auth.UserContext()
}

// Username returns the signed-in account's username once connected, or "".
func (c *Client) Username() string {
	return c.auth.Username()
}

// OnPartialError registers fn to receive partial errors. fn is called
// synchronously, before the call that produced the errors returns. The
// returned function removes the listener.
func (c *Client) OnPartialError(fn func(PartialError)) (off func()) {
	return c.partial.On(fn)
}

// RouteBuckets lists the route buckets that have been used so far.
func (c *Client) RouteBuckets() []string {
	return c.queues.Buckets()
}

// do connects if needed and runs job through the route queues.
func (c *Client) do(ctx context.Context, job *internal.Job) (*internal.Result, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return c.execute(ctx, job)
}

// execute runs job through the route queues and reports partial errors once
// the bucket has been released, so listeners may call the same route.
func (c *Client) execute(ctx context.Context, job *internal.Job) (*internal.Result, error) {
	res, err := c.queues.Execute(ctx, job)
	if err != nil {
		return nil, err
	}
	if len(res.Partial) > 0 {
		c.partial.Emit(PartialError{Route: job.Route.String(), Problems: res.Partial})
	}
	return res, nil
}

// doData runs job and requires a JSON envelope in the answer.
func (c *Client) doData(ctx context.Context, job *internal.Job) (*types.Response, error) {
	res, err := c.do(ctx, job)
	if err != nil {
		return nil, err
	}
	if res.Envelope == nil {
		return nil, &pkgerrs.ParseError{Operation: job.Route.String(), Message: fmt.Sprintf("expected JSON response, got %d bytes of %s", len(res.Raw), res.Header.Get("Content-Type"))}
	}
	return res.Envelope, nil
}

// paramsFor merges the client defaults an endpoint accepts with extra.
func (c *Client) paramsFor(fs fieldset, extra Params) Params {
	base := Params{}
	for _, k := range fs.keys() {
		if v, ok := c.defaults[k]; ok {
			base[k] = v
		}
	}
	return internal.Merge(base, extra)
}

func cacheKey(e types.Entity) string {
	switch e.(type) {
	case *types.Tweet:
		return "tweet:" + e.GetID()
	case *types.User:
		return "user:" + e.GetID()
	case *types.List:
		return "list:" + e.GetID()
	default:
		return ""
	}
}

// remember stores entities in the cache. Users also feed the username index.
func (c *Client) remember(entities ...types.Entity) {
	if c.entities == nil {
		return
	}
	for _, e := range entities {
		if e == nil || e.GetID() == "" {
			continue
		}
		key := cacheKey(e)
		if key == "" {
			continue
		}
		c.entities.Add(key, e)
		if u, ok := e.(*types.User); ok && u.Username != "" {
			c.usernames.Add(strings.ToLower(u.Username), u.ID)
		}
	}
}

func (c *Client) rememberIncludes(inc *types.Includes) {
	if inc == nil {
		return
	}
	for _, u := range inc.Users {
		c.remember(u)
	}
	for _, t := range inc.Tweets {
		c.remember(t)
	}
}

// CachedTweet returns a Tweet seen in a recent response, if still cached.
func (c *Client) CachedTweet(id string) (*types.Tweet, bool) {
	return cached[*types.Tweet](c, "tweet:"+id)
}

// CachedUser returns a User seen in a recent response, if still cached.
func (c *Client) CachedUser(id string) (*types.User, bool) {
	return cached[*types.User](c, "user:"+id)
}

func cached[T types.Entity](c *Client, key string) (T, bool) {
	var zero T
	if c.entities == nil {
		return zero, false
	}
	e, ok := c.entities.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := e.(T)
	return t, ok
}
