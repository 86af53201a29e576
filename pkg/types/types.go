package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Entity defines the common behavior for all API objects that can be placed in a Page,
// such as Tweets, Users and Lists.
type Entity interface {
	GetID() string
}

// FlexibleID is an identifier the API sometimes encodes as a JSON string and
// sometimes as a JSON number (older stream rule payloads do the latter).
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler to accept both string and numeric IDs.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unrecognized type for id field: %s", string(data))
	}
	if _, err := strconv.ParseUint(n.String(), 10, 64); err != nil {
		return fmt.Errorf("id is not an unsigned integer: %s", n.String())
	}
	*id = FlexibleID(n.String())
	return nil
}

// String returns the identifier as a plain string.
func (id FlexibleID) String() string {
	return string(id)
}

// PublicMetrics holds the engagement counters attached to a Tweet.
type PublicMetrics struct {
	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	LikeCount       int `json:"like_count"`
	QuoteCount      int `json:"quote_count"`
	BookmarkCount   int `json:"bookmark_count"`
	ImpressionCount int `json:"impression_count"`
}

// ReferencedTweet links a Tweet to the Tweet it replies to, quotes or retweets.
type ReferencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Tweet represents a single Tweet object.
type Tweet struct {
	ID                  string            `json:"id"`
	Text                string            `json:"text"`
	AuthorID            string            `json:"author_id,omitempty"`
	ConversationID      string            `json:"conversation_id,omitempty"`
	InReplyToUserID     string            `json:"in_reply_to_user_id,omitempty"`
	CreatedAt           *time.Time        `json:"created_at,omitempty"`
	Lang                string            `json:"lang,omitempty"`
	PossiblySensitive   bool              `json:"possibly_sensitive,omitempty"`
	Source              string            `json:"source,omitempty"`
	EditHistoryTweetIDs []string          `json:"edit_history_tweet_ids,omitempty"`
	ReferencedTweets    []ReferencedTweet `json:"referenced_tweets,omitempty"`
	PublicMetrics       *PublicMetrics    `json:"public_metrics,omitempty"`
	Entities            json.RawMessage   `json:"entities,omitempty"`
	Attachments         json.RawMessage   `json:"attachments,omitempty"`
}

// GetID returns the Tweet ID.
func (t *Tweet) GetID() string {
	if t == nil {
		return ""
	}
	return t.ID
}

// UserMetrics holds the public counters attached to a User.
type UserMetrics struct {
	FollowersCount int `json:"followers_count"`
	FollowingCount int `json:"following_count"`
	TweetCount     int `json:"tweet_count"`
	ListedCount    int `json:"listed_count"`
}

// User represents a single User object.
type User struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Username        string       `json:"username"`
	CreatedAt       *time.Time   `json:"created_at,omitempty"`
	Description     string       `json:"description,omitempty"`
	Location        string       `json:"location,omitempty"`
	PinnedTweetID   string       `json:"pinned_tweet_id,omitempty"`
	ProfileImageURL string       `json:"profile_image_url,omitempty"`
	Protected       bool         `json:"protected,omitempty"`
	URL             string       `json:"url,omitempty"`
	Verified        bool         `json:"verified,omitempty"`
	PublicMetrics   *UserMetrics `json:"public_metrics,omitempty"`
}

// GetID returns the User ID.
func (u *User) GetID() string {
	if u == nil {
		return ""
	}
	return u.ID
}

// List represents a curated List object.
type List struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Private       bool       `json:"private,omitempty"`
	OwnerID       string     `json:"owner_id,omitempty"`
	FollowerCount int        `json:"follower_count,omitempty"`
	MemberCount   int        `json:"member_count,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// GetID returns the List ID.
func (l *List) GetID() string {
	if l == nil {
		return ""
	}
	return l.ID
}

// TweetCount is one bucket of a Tweet count aggregation. Buckets have no ID of
// their own, so the bucket start time is used as the page key.
type TweetCount struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	TweetCount int       `json:"tweet_count"`
}

// GetID returns the RFC3339 start of the bucket.
func (c *TweetCount) GetID() string {
	if c == nil {
		return ""
	}
	return c.Start.UTC().Format(time.RFC3339)
}

// Includes holds the expanded objects returned next to "data". Media, Place
// and Poll objects are kept raw.
type Includes struct {
	Users  []*User           `json:"users,omitempty"`
	Tweets []*Tweet          `json:"tweets,omitempty"`
	Media  []json.RawMessage `json:"media,omitempty"`
	Places []json.RawMessage `json:"places,omitempty"`
	Polls  []json.RawMessage `json:"polls,omitempty"`
}

// Meta carries the pagination and summary fields of a response.
type Meta struct {
	ResultCount     int             `json:"result_count"`
	NextToken       string          `json:"next_token,omitempty"`
	PreviousToken   string          `json:"previous_token,omitempty"`
	NewestID        string          `json:"newest_id,omitempty"`
	OldestID        string          `json:"oldest_id,omitempty"`
	TotalTweetCount int             `json:"total_tweet_count,omitempty"`
	Sent            string          `json:"sent,omitempty"`
	Summary         json.RawMessage `json:"summary,omitempty"`
}

// Problem is the error object the API returns, either inside an "errors" array
// or as the whole body of a non-2xx response. Every field is optional.
type Problem struct {
	Title              *string `json:"title,omitempty"`
	Detail             *string `json:"detail,omitempty"`
	Type               *string `json:"type,omitempty"`
	Message            *string `json:"message,omitempty"`
	Status             *int    `json:"status,omitempty"`
	Value              *string `json:"value,omitempty"`
	Scope              *string `json:"scope,omitempty"`
	Field              *string `json:"field,omitempty"`
	Reason             *string `json:"reason,omitempty"`
	Parameter          *string `json:"parameter,omitempty"`
	ResourceID         *string `json:"resource_id,omitempty"`
	ResourceType       *string `json:"resource_type,omitempty"`
	Section            *string `json:"section,omitempty"`
	ClientID           *string `json:"client_id,omitempty"`
	RequiredEnrollment *string `json:"required_enrollment,omitempty"`
	RegistrationURL    *string `json:"registration_url,omitempty"`
	ConnectionIssue    *string `json:"connection_issue,omitempty"`
}

// Summary returns the most descriptive text the problem carries.
func (p Problem) Summary() string {
	switch {
	case p.Detail != nil && *p.Detail != "":
		return *p.Detail
	case p.Message != nil && *p.Message != "":
		return *p.Message
	case p.Title != nil && *p.Title != "":
		return *p.Title
	default:
		return "unknown problem"
	}
}

// Response is the envelope shared by every REST endpoint. Data is kept raw so
// that a single decode can serve objects and arrays alike.
type Response struct {
	Data     json.RawMessage `json:"data,omitempty"`
	Includes *Includes       `json:"includes,omitempty"`
	Meta     *Meta           `json:"meta,omitempty"`
	Errors   []Problem       `json:"errors,omitempty"`
}

// HasData reports whether the envelope carries a non-null data member.
func (r *Response) HasData() bool {
	if r == nil {
		return false
	}
	d := bytes.TrimSpace(r.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// StreamRule is a filter expression registered for the filtered stream.
type StreamRule struct {
	ID    FlexibleID `json:"id,omitempty"`
	Tag   string     `json:"tag,omitempty"`
	Value string     `json:"value"`
}

// GetID returns the rule ID.
func (r *StreamRule) GetID() string {
	if r == nil {
		return ""
	}
	return r.ID.String()
}

// MatchingRule identifies which filter rule caused a streamed Tweet to be delivered.
type MatchingRule struct {
	ID  FlexibleID `json:"id"`
	Tag string     `json:"tag,omitempty"`
}

// StreamEvent is one parsed record of a streaming connection.
type StreamEvent struct {
	Tweet         *Tweet         `json:"data,omitempty"`
	Includes      *Includes      `json:"includes,omitempty"`
	MatchingRules []MatchingRule `json:"matching_rules,omitempty"`
	Errors        []Problem      `json:"errors,omitempty"`
}
