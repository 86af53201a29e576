package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestIsValidID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid snowflake", "1445880548472328192", true},
		{"valid short", "20", true},
		{"valid at max length", "12345678901234567890", true},
		{"invalid too long", "123456789012345678901", false},
		{"invalid letters", "12a4", false},
		{"invalid negative", "-1", false},
		{"invalid space", "1 2", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidID(tt.input); got != tt.want {
				t.Errorf("IsValidID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid lowercase", "jack", true},
		{"valid with underscore", "twitter_dev", true},
		{"valid mixed", "TwitterDev123", true},
		{"valid single char", "a", true},
		{"valid at max length", "abcdefghijklmno", true},
		{"invalid too long", "abcdefghijklmnop", false},
		{"invalid hyphen", "twitter-dev", false},
		{"invalid at sign", "@jack", false},
		{"invalid space", "jack dorsey", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidUsername(tt.input); got != tt.want {
				t.Errorf("IsValidUsername(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSnowflakeTime(t *testing.T) {
	got, ok := SnowflakeTime("1445880548472328192")
	if !ok {
		t.Fatal("expected a snowflake")
	}
	want := time.Date(2021, 10, 6, 22, 36, 0, 574e6, time.UTC)
	if !got.Equal(want) {
		t.Errorf("SnowflakeTime = %s, want %s", got, want)
	}

	for _, id := range []string{"20", "abc", ""} {
		if _, ok := SnowflakeTime(id); ok {
			t.Errorf("SnowflakeTime(%q) should not be ok", id)
		}
	}
}

func TestValidateTweet(t *testing.T) {
	valid := func() *types.Tweet {
		return &types.Tweet{
			ID:               "1445880548472328192",
			Text:             "Hello world!",
			AuthorID:         "2244994945",
			ConversationID:   "1445880548472328100",
			CreatedAt:        ptrTime(time.Date(2021, 10, 6, 22, 36, 0, 0, time.UTC)),
			InReplyToUserID:  "783214",
			ReferencedTweets: []types.ReferencedTweet{{Type: "replied_to", ID: "1445880548472328100"}},
			PublicMetrics:    &types.PublicMetrics{LikeCount: 3},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*types.Tweet)
		wantErr string
	}{
		{name: "valid", mutate: func(*types.Tweet) {}},
		{name: "pre-snowflake ID without time check", mutate: func(tw *types.Tweet) {
			tw.ID = "20"
			tw.CreatedAt = ptrTime(time.Date(2006, 3, 21, 20, 50, 14, 0, time.UTC))
		}},
		{name: "missing ID", mutate: func(tw *types.Tweet) { tw.ID = "" }, wantErr: "ID is required"},
		{name: "bad author", mutate: func(tw *types.Tweet) { tw.AuthorID = "jack" }, wantErr: "author_id"},
		{name: "created_at disagrees with ID", mutate: func(tw *types.Tweet) {
			tw.CreatedAt = ptrTime(time.Date(2021, 10, 7, 0, 0, 0, 0, time.UTC))
		}, wantErr: "does not match the ID time"},
		{name: "future", mutate: func(tw *types.Tweet) {
			tw.ID = "20"
			tw.CreatedAt = ptrTime(time.Now().Add(48 * time.Hour))
		}, wantErr: "in the future"},
		{name: "unknown reference", mutate: func(tw *types.Tweet) {
			tw.ReferencedTweets = append(tw.ReferencedTweets, types.ReferencedTweet{Type: "liked", ID: "1"})
		}, wantErr: "unknown type"},
		{name: "self reference", mutate: func(tw *types.Tweet) {
			tw.ReferencedTweets[0].ID = tw.ID
		}, wantErr: "references itself"},
		{name: "reply user without reply", mutate: func(tw *types.Tweet) {
			tw.ReferencedTweets = nil
		}, wantErr: "not a reply"},
		{name: "negative metrics", mutate: func(tw *types.Tweet) { tw.PublicMetrics.LikeCount = -1 }, wantErr: "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := valid()
			tt.mutate(tw)
			err := ValidateTweet(tw)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}

	if err := ValidateTweet(nil); err == nil {
		t.Error("nil Tweet should fail")
	}
}

func TestValidateUser(t *testing.T) {
	u := &types.User{ID: "2244994945", Name: "Twitter Dev", Username: "TwitterDev", PublicMetrics: &types.UserMetrics{FollowersCount: 10}}
	if err := ValidateUser(u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u.Username = "twitter-dev"
	u.Name = ""
	err := ValidateUser(u)
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"username", "name is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

func TestValidateList(t *testing.T) {
	if err := ValidateList(&types.List{ID: "84839422", Name: "Official Twitter Accounts", OwnerID: "783214"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateList(&types.List{ID: "84839422", Name: " ", MemberCount: -1}); err == nil {
		t.Error("expected an error")
	}
}

func TestValidateTweetCount(t *testing.T) {
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := ValidateTweetCount(&types.TweetCount{Start: start, End: start.Add(time.Hour), TweetCount: 4}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateTweetCount(&types.TweetCount{Start: start, End: start}); err == nil {
		t.Error("empty bucket should fail")
	}
}

func TestValidateStreamRule(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{`cat has:images`, true},
		{`(cat OR dog) -is:retweet`, true},
		{`"happy birthday" lang:en`, true},
		{``, false},
		{`(cat OR dog`, false},
		{`"unterminated`, false},
	}
	for _, tt := range tests {
		err := ValidateStreamRule(&types.StreamRule{Value: tt.value})
		if (err == nil) != tt.ok {
			t.Errorf("ValidateStreamRule(%q) error = %v, want ok %v", tt.value, err, tt.ok)
		}
	}
	if err := ValidateStreamRule(&types.StreamRule{ID: "x1", Value: "cat"}); err == nil {
		t.Error("a non-numeric rule ID should fail")
	}
}

func TestValidateMeta(t *testing.T) {
	tests := []struct {
		name  string
		meta  types.Meta
		items int
		ok    bool
	}{
		{"consistent", types.Meta{ResultCount: 2, NextToken: "b", NewestID: "30", OldestID: "29"}, 2, true},
		{"empty page", types.Meta{ResultCount: 0, NextToken: "b"}, 0, true},
		{"count mismatch", types.Meta{ResultCount: 3}, 2, false},
		{"same tokens", types.Meta{NextToken: "a", PreviousToken: "a"}, 0, false},
		{"inverted range", types.Meta{NewestID: "1", OldestID: "2"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMeta(&tt.meta, tt.items)
			if (err == nil) != tt.ok {
				t.Errorf("ValidateMeta error = %v, want ok %v", err, tt.ok)
			}
		})
	}
}

func TestValidatePage(t *testing.T) {
	page := types.NewPage([]*types.User{
		{ID: "1", Name: "a", Username: "a"},
		{ID: "2", Name: "", Username: "b"},
	}, &types.Meta{ResultCount: 2}, nil)

	err := ValidatePage(page, ValidateUser)
	if err == nil || !strings.Contains(err.Error(), "item 1") {
		t.Errorf("expected item 1 to fail, got %v", err)
	}
}
