package gtaw

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// UserRef identifies a user by ID, by username, or by a User value. The zero
// UserRef identifies nobody.
type UserRef struct {
	ID       string
	Username string
	User     *types.User
}

// UserID refers to a user by numeric ID.
func UserID(id string) UserRef { return UserRef{ID: id} }

// Username refers to a user by handle. A leading "@" is ignored.
func Username(name string) UserRef { return UserRef{Username: strings.TrimPrefix(name, "@")} }

// UserOf refers to an already fetched user.
func UserOf(u *types.User) UserRef { return UserRef{User: u} }

// ParseUserRef reads "@name" or a bare handle as a username and an all-digit
// string as an ID.
func ParseUserRef(s string) UserRef {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "@") {
		return Username(s)
	}
	if internal.IsID(s) {
		return UserID(s)
	}
	return Username(s)
}

func (r UserRef) String() string {
	switch {
	case r.ID != "":
		return r.ID
	case r.User != nil && r.User.ID != "":
		return r.User.ID
	case r.User != nil && r.User.Username != "":
		return "@" + r.User.Username
	case r.Username != "":
		return "@" + r.Username
	default:
		return ""
	}
}

// UserService groups the user endpoints.
type UserService struct {
	c *Client
}

// Users returns the user endpoints.
func (c *Client) Users() *UserService {
	return &UserService{c: c}
}

// Me returns the signed-in user. It requires user-context credentials and is
// answered from the value resolved by Connect.
func (s *UserService) Me(ctx context.Context) (*types.User, error) {
	if !s.c.auth.UserContext() {
		return nil, &pkgerrs.MissingCredentialsError{Scheme: "oauth1"}
	}
	if err := s.c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	s.c.mu.RLock()
	defer s.c.mu.RUnlock()
	return s.c.me, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*types.User, error) {
	if err := s.c.validator.ValidateID("id", id); err != nil {
		return nil, err
	}
	return getOne[types.User](ctx, s.c, &internal.Job{
		Route: internal.NewRoute("users", id).Get(),
		Query: s.c.paramsFor(fieldsUser, nil),
	})
}

// ByUsername returns a user by handle.
func (s *UserService) ByUsername(ctx context.Context, username string) (*types.User, error) {
	username = strings.TrimPrefix(username, "@")
	if err := s.c.validator.ValidateUsername(username); err != nil {
		return nil, err
	}
	return getOne[types.User](ctx, s.c, &internal.Job{
		Route: internal.NewRoute("users", "by", "username").Param("username", username).Get(),
		Query: s.c.paramsFor(fieldsUser, nil),
	})
}

// Lookup returns up to 100 users by ID.
func (s *UserService) Lookup(ctx context.Context, ids []string) (*types.Page[*types.User], error) {
	if err := s.c.validator.ValidateIDs("ids", ids); err != nil {
		return nil, err
	}
	return getPage[*types.User](ctx, s.c, &internal.Job{
		Route: internal.NewRoute("users").Get(),
		Query: s.c.paramsFor(fieldsUser, Params{"ids": ids}),
	})
}

// LookupUsernames returns up to 100 users by handle.
func (s *UserService) LookupUsernames(ctx context.Context, usernames []string) (*types.Page[*types.User], error) {
	if len(usernames) == 0 || len(usernames) > 100 {
		return nil, &pkgerrs.ConfigError{Field: "usernames", Message: "between 1 and 100 usernames are required"}
	}
	clean := make([]string, len(usernames))
	for i, u := range usernames {
		u = strings.TrimPrefix(u, "@")
		if err := s.c.validator.ValidateUsername(u); err != nil {
			return nil, err
		}
		clean[i] = u
	}
	return getPage[*types.User](ctx, s.c, &internal.Job{
		Route: internal.NewRoute("users", "by").Get(),
		Query: s.c.paramsFor(fieldsUser, Params{"usernames": clean}),
	})
}

// Resolve turns ref into a user ID. Usernames are looked up through the cache
// first and then through GET users/by/username. Failures are returned as
// *UnresolvedIdentifierError.
func (s *UserService) Resolve(ctx context.Context, ref UserRef) (string, error) {
	switch {
	case ref.ID != "":
		if !internal.IsID(ref.ID) {
			return "", &pkgerrs.UnresolvedIdentifierError{Kind: "user", Reference: ref.ID}
		}
		return ref.ID, nil
	case ref.User != nil && ref.User.ID != "":
		return ref.User.ID, nil
	case ref.User != nil && ref.User.Username != "":
		ref.Username = ref.User.Username
	}

	name := strings.TrimPrefix(ref.Username, "@")
	if name == "" {
		return "", &pkgerrs.UnresolvedIdentifierError{Kind: "user", Reference: ref.String()}
	}

	if s.c.usernames != nil {
		if id, ok := s.c.usernames.Get(strings.ToLower(name)); ok {
			return id, nil
		}
	}

	user, err := s.ByUsername(ctx, name)
	if err != nil {
		return "", &pkgerrs.UnresolvedIdentifierError{Kind: "user", Reference: "@" + name, Err: err}
	}
	return user.ID, nil
}

// Followers pages through the accounts following ref.
func (s *UserService) Followers(ctx context.Context, ref UserRef, opts *PageOptions) (*Book[*types.User], error) {
	return s.userEdge(ctx, ref, "followers", opts)
}

// Following pages through the accounts ref follows.
func (s *UserService) Following(ctx context.Context, ref UserRef, opts *PageOptions) (*Book[*types.User], error) {
	return s.userEdge(ctx, ref, "following", opts)
}

// Blocking pages through the accounts the signed-in user blocks.
func (s *UserService) Blocking(ctx context.Context, opts *PageOptions) (*Book[*types.User], error) {
	return s.selfEdge(ctx, "blocking", opts)
}

// Muting pages through the accounts the signed-in user mutes.
func (s *UserService) Muting(ctx context.Context, opts *PageOptions) (*Book[*types.User], error) {
	return s.selfEdge(ctx, "muting", opts)
}

func (s *UserService) userEdge(ctx context.Context, ref UserRef, edge string, opts *PageOptions) (*Book[*types.User], error) {
	id, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	params, err := s.c.pageParams(fieldsUser, opts, boundsFollows)
	if err != nil {
		return nil, err
	}
	return NewBook(s.c, BookSpec[*types.User]{
		Endpoint: "users/" + id + "/" + edge,
		Params:   params,
	}), nil
}

func (s *UserService) selfEdge(ctx context.Context, edge string, opts *PageOptions) (*Book[*types.User], error) {
	me, err := s.Me(ctx)
	if err != nil {
		return nil, err
	}
	params, err := s.c.pageParams(fieldsUser, opts, boundsFollows)
	if err != nil {
		return nil, err
	}
	return NewBook(s.c, BookSpec[*types.User]{
		Endpoint: "users/" + me.ID + "/" + edge,
		Params:   params,
		Auth:     AuthUser,
	}), nil
}

// TimelineOptions tune a user's Tweet timeline.
type TimelineOptions struct {
	SearchOptions
	ExcludeReplies  bool
	ExcludeRetweets bool
}

// Timeline pages through the Tweets ref posted, newest first.
func (s *UserService) Timeline(ctx context.Context, ref UserRef, opts *TimelineOptions) (*Book[*types.Tweet], error) {
	if opts == nil {
		opts = &TimelineOptions{}
	}
	var exclude []string
	if opts.ExcludeReplies {
		exclude = append(exclude, "replies")
	}
	if opts.ExcludeRetweets {
		exclude = append(exclude, "retweets")
	}
	search := opts.SearchOptions
	search.Extra = internal.Merge(Params{"exclude": exclude}, search.Extra)
	return s.tweetEdge(ctx, ref, "tweets", &search)
}

// Mentions pages through the Tweets mentioning ref.
func (s *UserService) Mentions(ctx context.Context, ref UserRef, opts *SearchOptions) (*Book[*types.Tweet], error) {
	return s.tweetEdge(ctx, ref, "mentions", opts)
}

// LikedTweets pages through the Tweets ref liked.
func (s *UserService) LikedTweets(ctx context.Context, ref UserRef, opts *PageOptions) (*Book[*types.Tweet], error) {
	id, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	params, err := s.c.pageParams(fieldsTweet, opts, boundsTimeline)
	if err != nil {
		return nil, err
	}
	return NewBook(s.c, BookSpec[*types.Tweet]{
		Endpoint: "users/" + id + "/liked_tweets",
		Params:   params,
	}), nil
}

func (s *UserService) tweetEdge(ctx context.Context, ref UserRef, edge string, opts *SearchOptions) (*Book[*types.Tweet], error) {
	id, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if opts != nil && opts.SortOrder != "" {
		return nil, &pkgerrs.ConfigError{Field: "sort_order", Message: "not supported on timelines"}
	}
	params, err := s.c.searchParams("", opts, boundsTimeline)
	if err != nil {
		return nil, err
	}
	return NewBook(s.c, BookSpec[*types.Tweet]{
		Endpoint: "users/" + id + "/" + edge,
		Params:   params,
	}), nil
}

// UserOverview is a user together with the first page of their recent
// Tweets, followers and followed accounts.
type UserOverview struct {
	User      *types.User
	Tweets    *types.Page[*types.Tweet]
	Followers *types.Page[*types.User]
	Following *types.Page[*types.User]
}

// Overview fetches a user and the first page of three of their collections.
// The four requests go to different routes and run concurrently. The first
// error cancels the rest; whatever was fetched before that is still returned.
func (s *UserService) Overview(ctx context.Context, ref UserRef, pageSize int) (*UserOverview, error) {
	id, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	tweets, err := s.Timeline(ctx, UserID(id), &TimelineOptions{SearchOptions: SearchOptions{MaxResults: clamp(pageSize, boundsTimeline)}})
	if err != nil {
		return nil, err
	}
	followers, err := s.Followers(ctx, UserID(id), &PageOptions{MaxResults: clamp(pageSize, boundsFollows)})
	if err != nil {
		return nil, err
	}
	following, err := s.Following(ctx, UserID(id), &PageOptions{MaxResults: clamp(pageSize, boundsFollows)})
	if err != nil {
		return nil, err
	}

	out := &UserOverview{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.Get(gctx, id)
		out.User = u
		return err
	})
	g.Go(func() error {
		p, err := tweets.Next(gctx)
		out.Tweets = p
		return err
	})
	g.Go(func() error {
		p, err := followers.Next(gctx)
		out.Followers = p
		return err
	})
	g.Go(func() error {
		p, err := following.Next(gctx)
		out.Following = p
		return err
	})

	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

func clamp(n int, b bounds) int {
	if n <= 0 {
		return 0
	}
	if n < b.lo {
		return b.lo
	}
	if n > b.hi {
		return b.hi
	}
	return n
}
