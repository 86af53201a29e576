// Package validation checks decoded API entities for internal consistency.
// The client never rejects a response on these grounds; the checks are meant
// for tests, fixtures and callers that want to audit data they store.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

var (
	// idRegex matches the numeric IDs used for Tweets, users, lists and rules.
	idRegex = regexp.MustCompile(`^[0-9]{1,20}$`)

	// usernameRegex matches handles: 1-15 letters, digits or underscores.
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
)

const (
	// snowflakeEpoch is the millisecond epoch of snowflake IDs.
	snowflakeEpoch = 1288834974657
	// firstSnowflake is roughly the smallest ID issued once snowflakes were
	// introduced in November 2010. Smaller IDs are sequential and carry no time.
	firstSnowflake = 29700859247

	// snowflakeSkew tolerates rounding between the ID time and created_at.
	snowflakeSkew = 2 * time.Second
)

// launch is when the first Tweet was sent.
var launch = time.Date(2006, 3, 21, 0, 0, 0, 0, time.UTC)

// IsValidID reports whether s is a numeric resource ID.
func IsValidID(s string) bool {
	return idRegex.MatchString(s)
}

// IsValidUsername reports whether s is a valid handle, without the "@".
func IsValidUsername(s string) bool {
	return usernameRegex.MatchString(s)
}

// SnowflakeTime extracts the creation time encoded in a snowflake ID. ok is
// false for malformed IDs and for IDs issued before snowflakes existed.
func SnowflakeTime(id string) (t time.Time, ok bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n < firstSnowflake {
		return time.Time{}, false
	}
	ms := int64(n>>22) + snowflakeEpoch
	return time.UnixMilli(ms).UTC(), true
}

// ValidateEntity validates the ID of any entity.
func ValidateEntity(e types.Entity) error {
	if e == nil {
		return fmt.Errorf("entity is nil")
	}
	id := e.GetID()
	if id == "" {
		return fmt.Errorf("ID is required")
	}
	if !IsValidID(id) {
		return fmt.Errorf("ID has invalid format: %s", id)
	}
	return nil
}

// validateCreated checks a creation time against the platform launch, the
// clock and, when the ID is a snowflake, the time encoded in the ID.
func validateCreated(id string, created *time.Time) []error {
	if created == nil {
		return nil
	}

	var errs []error
	if created.Before(launch) {
		errs = append(errs, fmt.Errorf("created_at is before the first Tweet: %s", created.Format(time.RFC3339)))
	}
	// One hour grace period for clock skew
	if created.After(time.Now().Add(time.Hour)) {
		errs = append(errs, fmt.Errorf("created_at is in the future: %s", created.Format(time.RFC3339)))
	}
	if at, ok := SnowflakeTime(id); ok {
		if d := created.Sub(at); d > snowflakeSkew || d < -snowflakeSkew {
			errs = append(errs, fmt.Errorf("created_at %s does not match the ID time %s",
				created.Format(time.RFC3339), at.Format(time.RFC3339)))
		}
	}
	return errs
}

// ValidateTweet validates a Tweet's fields
func ValidateTweet(t *types.Tweet) error {
	if t == nil {
		return fmt.Errorf("tweet is nil")
	}

	var errs []error
	if err := ValidateEntity(t); err != nil {
		errs = append(errs, err)
	}
	if t.AuthorID != "" && !IsValidID(t.AuthorID) {
		errs = append(errs, fmt.Errorf("author_id has invalid format: %s", t.AuthorID))
	}
	if t.ConversationID != "" && !IsValidID(t.ConversationID) {
		errs = append(errs, fmt.Errorf("conversation_id has invalid format: %s", t.ConversationID))
	}
	errs = append(errs, validateCreated(t.ID, t.CreatedAt)...)

	replies := 0
	for i, ref := range t.ReferencedTweets {
		switch ref.Type {
		case "replied_to":
			replies++
		case "quoted", "retweeted":
		default:
			errs = append(errs, fmt.Errorf("referenced_tweets[%d] has unknown type %q", i, ref.Type))
		}
		if !IsValidID(ref.ID) {
			errs = append(errs, fmt.Errorf("referenced_tweets[%d] has invalid ID: %s", i, ref.ID))
		}
		if ref.ID == t.ID {
			errs = append(errs, fmt.Errorf("tweet references itself"))
		}
	}
	if replies > 1 {
		errs = append(errs, fmt.Errorf("tweet replies to %d Tweets", replies))
	}
	if replies == 0 && t.InReplyToUserID != "" {
		errs = append(errs, fmt.Errorf("in_reply_to_user_id set on a Tweet that is not a reply"))
	}

	if m := t.PublicMetrics; m != nil {
		if m.LikeCount < 0 || m.ReplyCount < 0 || m.RetweetCount < 0 || m.QuoteCount < 0 {
			errs = append(errs, fmt.Errorf("public_metrics contain a negative count"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("tweet validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidateUser validates a User's fields
func ValidateUser(u *types.User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}

	var errs []error
	if err := ValidateEntity(u); err != nil {
		errs = append(errs, err)
	}
	if !IsValidUsername(u.Username) {
		errs = append(errs, fmt.Errorf("username has invalid format: %q", u.Username))
	}
	if u.Name == "" {
		errs = append(errs, fmt.Errorf("name is required"))
	}
	if u.PinnedTweetID != "" && !IsValidID(u.PinnedTweetID) {
		errs = append(errs, fmt.Errorf("pinned_tweet_id has invalid format: %s", u.PinnedTweetID))
	}
	errs = append(errs, validateCreated(u.ID, u.CreatedAt)...)

	if m := u.PublicMetrics; m != nil {
		if m.FollowersCount < 0 || m.FollowingCount < 0 || m.TweetCount < 0 || m.ListedCount < 0 {
			errs = append(errs, fmt.Errorf("public_metrics contain a negative count"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("user validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidateList validates a List's fields
func ValidateList(l *types.List) error {
	if l == nil {
		return fmt.Errorf("list is nil")
	}

	var errs []error
	if err := ValidateEntity(l); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(l.Name) == "" {
		errs = append(errs, fmt.Errorf("name is required"))
	}
	if l.OwnerID != "" && !IsValidID(l.OwnerID) {
		errs = append(errs, fmt.Errorf("owner_id has invalid format: %s", l.OwnerID))
	}
	if l.MemberCount < 0 || l.FollowerCount < 0 {
		errs = append(errs, fmt.Errorf("counts must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("list validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidateTweetCount validates one bucket of a counts response
func ValidateTweetCount(c *types.TweetCount) error {
	if c == nil {
		return fmt.Errorf("tweet count is nil")
	}

	var errs []error
	if c.Start.IsZero() || c.End.IsZero() {
		errs = append(errs, fmt.Errorf("start and end are required"))
	} else if !c.End.After(c.Start) {
		errs = append(errs, fmt.Errorf("end %s is not after start %s", c.End.Format(time.RFC3339), c.Start.Format(time.RFC3339)))
	}
	if c.TweetCount < 0 {
		errs = append(errs, fmt.Errorf("tweet_count is negative: %d", c.TweetCount))
	}

	if len(errs) > 0 {
		return fmt.Errorf("tweet count validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidateStreamRule validates a filtered stream rule. IDs are optional since
// rules being added have none yet.
func ValidateStreamRule(r *types.StreamRule) error {
	if r == nil {
		return fmt.Errorf("rule is nil")
	}

	var errs []error
	if id := r.GetID(); id != "" && !IsValidID(id) {
		errs = append(errs, fmt.Errorf("ID has invalid format: %s", id))
	}
	if strings.TrimSpace(r.Value) == "" {
		errs = append(errs, fmt.Errorf("value is required"))
	}
	if strings.Count(r.Value, "(") != strings.Count(r.Value, ")") {
		errs = append(errs, fmt.Errorf("value has unbalanced parentheses"))
	}
	if strings.Count(r.Value, `"`)%2 != 0 {
		errs = append(errs, fmt.Errorf("value has an unterminated quote"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("rule validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidateMeta validates pagination metadata against the page it came with.
func ValidateMeta(m *types.Meta, items int) error {
	if m == nil {
		return fmt.Errorf("meta is nil")
	}

	var errs []error
	if m.ResultCount < 0 {
		errs = append(errs, fmt.Errorf("result_count is negative: %d", m.ResultCount))
	}
	if items > 0 && m.ResultCount != 0 && m.ResultCount != items {
		errs = append(errs, fmt.Errorf("result_count %d does not match %d items", m.ResultCount, items))
	}
	if m.NextToken != "" && m.NextToken == m.PreviousToken {
		errs = append(errs, fmt.Errorf("next_token equals previous_token"))
	}
	if m.NewestID != "" && m.OldestID != "" {
		newest, err1 := strconv.ParseUint(m.NewestID, 10, 64)
		oldest, err2 := strconv.ParseUint(m.OldestID, 10, 64)
		if err1 != nil || err2 != nil {
			errs = append(errs, fmt.Errorf("newest_id and oldest_id must be numeric"))
		} else if newest < oldest {
			errs = append(errs, fmt.Errorf("newest_id %s is older than oldest_id %s", m.NewestID, m.OldestID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("meta validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidatePage validates every item of p with validate, then its meta.
func ValidatePage[T types.Entity](p *types.Page[T], validate func(T) error) error {
	if p == nil {
		return fmt.Errorf("page is nil")
	}

	var errs []error
	for i, item := range p.Items() {
		if err := validate(item); err != nil {
			errs = append(errs, fmt.Errorf("item %d: %w", i, err))
		}
	}
	meta := p.Meta()
	if err := ValidateMeta(&meta, 0); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinValidationErrors(errs)
	}
	return nil
}

// joinValidationErrors combines multiple errors into a single error message
func joinValidationErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
