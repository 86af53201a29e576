package gtaw

import (
	"context"
	"encoding/json"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// TweetService groups the Tweet endpoints.
type TweetService struct {
	c *Client
}

// Tweets returns the Tweet endpoints.
func (c *Client) Tweets() *TweetService {
	return &TweetService{c: c}
}

// Get returns a single Tweet.
func (s *TweetService) Get(ctx context.Context, id string) (*types.Tweet, error) {
	if err := s.c.validator.ValidateID("id", id); err != nil {
		return nil, err
	}
	return getOne[types.Tweet](ctx, s.c, &internal.Job{
		Route: internal.NewRoute("tweets", id).Get(),
		Query: s.c.paramsFor(fieldsTweet, nil),
	})
}

// Lookup returns up to 100 Tweets by ID. IDs that no longer resolve are
// reported through OnPartialError.
func (s *TweetService) Lookup(ctx context.Context, ids []string) (*types.Page[*types.Tweet], error) {
	if err := s.c.validator.ValidateIDs("ids", ids); err != nil {
		return nil, err
	}
	return getPage[*types.Tweet](ctx, s.c, &internal.Job{
		Route: internal.NewRoute("tweets").Get(),
		Query: s.c.paramsFor(fieldsTweet, Params{"ids": ids}),
	})
}

// SearchRecent searches the last seven days of Tweets.
func (s *TweetService) SearchRecent(query string, opts *SearchOptions) (*Book[*types.Tweet], error) {
	if err := s.c.validator.ValidateQuery("query", query); err != nil {
		return nil, err
	}
	params, err := s.c.searchParams(query, opts, boundsSearchRecent)
	if err != nil {
		return nil, err
	}
	return NewBook(s.c, BookSpec[*types.Tweet]{
		Endpoint:   "tweets/search/recent",
		Params:     params,
		TokenParam: "next_token",
	}), nil
}

// SearchAll searches the full archive. It requires app-only authentication
// with academic or enterprise access.
func (s *TweetService) SearchAll(query string, opts *SearchOptions) (*Book[*types.Tweet], error) {
	if err := s.c.validator.ValidateQuery("query", query); err != nil {
		return nil, err
	}
	params, err := s.c.searchParams(query, opts, boundsSearchAll)
	if err != nil {
		return nil, err
	}
	return NewBook(s.c, BookSpec[*types.Tweet]{
		Endpoint:   "tweets/search/all",
		Params:     params,
		TokenParam: "next_token",
		Auth:       AuthBearer,
	}), nil
}

// CountsRecent counts Tweets matching query over the last seven days.
func (s *TweetService) CountsRecent(query string, opts *CountOptions) (*Book[*types.TweetCount], error) {
	params, err := s.c.countParams(query, opts)
	if err != nil {
		return nil, err
	}
	return NewBook(s.c, BookSpec[*types.TweetCount]{
		Endpoint:   "tweets/counts/recent",
		Params:     params,
		TokenParam: "next_token",
		Auth:       AuthBearer,
	}), nil
}

// CountsAll counts Tweets matching query over the full archive.
func (s *TweetService) CountsAll(query string, opts *CountOptions) (*Book[*types.TweetCount], error) {
	params, err := s.c.countParams(query, opts)
	if err != nil {
		return nil, err
	}
	return NewBook(s.c, BookSpec[*types.TweetCount]{
		Endpoint:   "tweets/counts/all",
		Params:     params,
		TokenParam: "next_token",
		Auth:       AuthBearer,
	}), nil
}

// LikingUsers pages through the users who liked a Tweet.
func (s *TweetService) LikingUsers(id string, opts *PageOptions) (*Book[*types.User], error) {
	return s.userBook(id, "liking_users", opts)
}

// Retweeters pages through the users who retweeted a Tweet.
func (s *TweetService) Retweeters(id string, opts *PageOptions) (*Book[*types.User], error) {
	return s.userBook(id, "retweeted_by", opts)
}

func (s *TweetService) userBook(id, edge string, opts *PageOptions) (*Book[*types.User], error) {
	if err := s.c.validator.ValidateID("id", id); err != nil {
		return nil, err
	}
	params, err := s.c.pageParams(fieldsUser, opts, boundsTweetUsers)
	if err != nil {
		return nil, err
	}
	return NewBook(s.c, BookSpec[*types.User]{
		Endpoint: "tweets/" + id + "/" + edge,
		Params:   params,
	}), nil
}

// QuoteTweets pages through the Tweets quoting a Tweet.
func (s *TweetService) QuoteTweets(id string, opts *PageOptions) (*Book[*types.Tweet], error) {
	if err := s.c.validator.ValidateID("id", id); err != nil {
		return nil, err
	}
	params, err := s.c.pageParams(fieldsTweet, opts, boundsTimeline)
	if err != nil {
		return nil, err
	}
	return NewBook(s.c, BookSpec[*types.Tweet]{
		Endpoint: "tweets/" + id + "/quote_tweets",
		Params:   params,
	}), nil
}

// CreateTweetOptions are the optional parts of a new Tweet.
type CreateTweetOptions struct {
	// InReplyTo makes the Tweet a reply.
	InReplyTo string
	// QuoteTweetID quotes another Tweet.
	QuoteTweetID string
}

type createTweetBody struct {
	Text         string            `json:"text"`
	QuoteTweetID string            `json:"quote_tweet_id,omitempty"`
	Reply        *createTweetReply `json:"reply,omitempty"`
}

type createTweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

// Create posts a Tweet as the signed-in user.
func (s *TweetService) Create(ctx context.Context, text string, opts *CreateTweetOptions) (*types.Tweet, error) {
	if text == "" {
		return nil, &pkgerrs.ConfigError{Field: "text", Message: "tweet text cannot be empty"}
	}
	body := createTweetBody{Text: text}
	if opts != nil {
		if opts.InReplyTo != "" {
			if err := s.c.validator.ValidateID("in_reply_to", opts.InReplyTo); err != nil {
				return nil, err
			}
			body.Reply = &createTweetReply{InReplyToTweetID: opts.InReplyTo}
		}
		if opts.QuoteTweetID != "" {
			if err := s.c.validator.ValidateID("quote_tweet_id", opts.QuoteTweetID); err != nil {
				return nil, err
			}
			body.QuoteTweetID = opts.QuoteTweetID
		}
	}

	return getOne[types.Tweet](ctx, s.c, &internal.Job{
		Route: internal.NewRoute("tweets").Post(),
		Body:  body,
		Auth:  AuthUser,
	})
}

// Delete removes a Tweet owned by the signed-in user. It reports whether the
// API confirmed the deletion.
func (s *TweetService) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.c.validator.ValidateID("id", id); err != nil {
		return false, err
	}
	env, err := s.c.doData(ctx, &internal.Job{
		Route: internal.NewRoute("tweets", id).Delete(),
		Auth:  AuthUser,
	})
	if err != nil {
		return false, err
	}

	var result struct {
		Deleted bool `json:"deleted"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return false, &pkgerrs.ParseError{Operation: "DELETE tweets/:id", Err: err}
	}
	if result.Deleted && s.c.entities != nil {
		s.c.entities.Remove("tweet:" + id)
	}
	return result.Deleted, nil
}
