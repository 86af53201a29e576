package test_generators

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

const snowflakeEpoch = 1288834974657

// TweetGenerator generates realistic Tweets and users for testing. IDs are
// snowflakes whose embedded time matches created_at.
type TweetGenerator struct {
	rand      *rand.Rand
	now       time.Time
	seq       int64
	templates []string
	topics    []string
	replies   []string
	users     []*types.User
}

// ConversationOptions shape a generated conversation
type ConversationOptions struct {
	// MaxDepth bounds reply nesting below the root.
	MaxDepth int
	// MaxTweets bounds the size of the conversation, root included.
	MaxTweets int
	// MaxFanout bounds direct replies per Tweet. Defaults to 3.
	MaxFanout int
	// RootAuthor authors the root Tweet when set.
	RootAuthor *types.User
}

// NewTweetGenerator creates a new generator. A zero seed uses the clock.
func NewTweetGenerator(seed int64) *TweetGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &TweetGenerator{
		rand: rand.New(rand.NewSource(seed)),
		now:  time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC),
		templates: []string{
			"Just shipped a new release of %s 🚀",
			"Hot take: %s is underrated.",
			"Anyone else debugging %s today?",
			"Thread on what I learned about %s 🧵",
			"Reading the docs for %s and loving it.",
			"Is %s worth learning in 2023?",
		},
		topics: []string{
			"generics", "goroutines", "the API v2", "rate limits", "pagination",
			"streaming", "OAuth", "context cancellation", "error wrapping",
		},
		replies: []string{
			"Totally agree!",
			"Not sure about this one.",
			"Great thread, thanks for sharing.",
			"Do you have a link to the docs?",
			"This saved me hours.",
			"Counterpoint: it depends.",
		},
	}
	for i, name := range []string{"gopher", "TwitterDev", "api_fan", "jdoe", "rustacean", "sre_life", "devrel_dan", "nightowl"} {
		g.users = append(g.users, &types.User{
			ID:            strconv.Itoa(1000 + i),
			Name:          name,
			Username:      name,
			PublicMetrics: &types.UserMetrics{FollowersCount: g.rand.Intn(50000)},
		})
	}
	return g
}

// Users returns the authors the generator draws from.
func (g *TweetGenerator) Users() []*types.User {
	return g.users
}

// snowflake returns an ID for at and the created_at it encodes, truncated to
// the millisecond like the API does.
func (g *TweetGenerator) snowflake(at time.Time) (string, time.Time) {
	g.seq++
	ms := at.UnixMilli()
	id := (ms-snowflakeEpoch)<<22 | (g.seq & 0xfff)
	return strconv.FormatInt(id, 10), time.UnixMilli(ms).UTC()
}

// GenerateTweet creates a standalone Tweet from the last 24 hours
func (g *TweetGenerator) GenerateTweet() *types.Tweet {
	at := g.now.Add(-time.Duration(g.rand.Intn(86400)) * time.Second)
	return g.tweetAt(at, g.randUser(), fmt.Sprintf(g.randElement(g.templates), g.randElement(g.topics)))
}

func (g *TweetGenerator) tweetAt(at time.Time, author *types.User, text string) *types.Tweet {
	id, created := g.snowflake(at)
	return &types.Tweet{
		ID:             id,
		Text:           text,
		AuthorID:       author.ID,
		ConversationID: id,
		CreatedAt:      &created,
		Lang:           "en",
		PublicMetrics: &types.PublicMetrics{
			LikeCount:    g.generateLikes(),
			ReplyCount:   0,
			RetweetCount: g.rand.Intn(20),
		},
	}
}

// GenerateTimeline creates count Tweets newest first, as search returns them.
func (g *TweetGenerator) GenerateTimeline(count int) []*types.Tweet {
	out := make([]*types.Tweet, count)
	at := g.now
	for i := range out {
		at = at.Add(-time.Duration(g.rand.Intn(600)+1) * time.Second)
		out[i] = g.tweetAt(at, g.randUser(), fmt.Sprintf(g.randElement(g.templates), g.randElement(g.topics)))
	}
	return out
}

// GenerateConversation creates a root Tweet and a reply tree below it, flat
// and in creation order. Every reply is newer than its parent.
func (g *TweetGenerator) GenerateConversation(opts ConversationOptions) []*types.Tweet {
	if opts.MaxTweets <= 0 {
		return nil
	}
	if opts.MaxFanout <= 0 {
		opts.MaxFanout = 3
	}
	author := opts.RootAuthor
	if author == nil {
		author = g.randUser()
	}

	root := g.tweetAt(g.now.Add(-48*time.Hour), author, fmt.Sprintf(g.randElement(g.templates), g.randElement(g.topics)))
	out := []*types.Tweet{root}
	remaining := opts.MaxTweets - 1
	g.generateReplies(root, root, 1, opts, &remaining, &out)
	return out
}

func (g *TweetGenerator) generateReplies(root, parent *types.Tweet, depth int, opts ConversationOptions, remaining *int, out *[]*types.Tweet) {
	if depth > opts.MaxDepth || *remaining <= 0 {
		return
	}

	replyCount := g.rand.Intn(opts.MaxFanout) + 1
	for i := 0; i < replyCount && *remaining > 0; i++ {
		at := parent.CreatedAt.Add(time.Duration(g.rand.Intn(3600)+1) * time.Second)
		reply := g.tweetAt(at, g.randUser(), g.randElement(g.replies))
		reply.ConversationID = root.ID
		reply.InReplyToUserID = parent.AuthorID
		reply.ReferencedTweets = []types.ReferencedTweet{{Type: "replied_to", ID: parent.ID}}
		parent.PublicMetrics.ReplyCount++

		*out = append(*out, reply)
		*remaining--
		g.generateReplies(root, reply, depth+1, opts, remaining, out)
	}
}

// GenerateUsers creates count distinct users with IDs from base upward
func (g *TweetGenerator) GenerateUsers(base, count int) []*types.User {
	out := make([]*types.User, count)
	for i := range out {
		name := fmt.Sprintf("user_%d", base+i)
		out[i] = &types.User{
			ID:            strconv.Itoa(base + i),
			Name:          name,
			Username:      name,
			PublicMetrics: &types.UserMetrics{FollowersCount: g.rand.Intn(1000), TweetCount: g.rand.Intn(5000)},
		}
	}
	return out
}

// MaxReplyDepth returns the deepest reply level in a flat conversation.
func MaxReplyDepth(tweets []*types.Tweet) int {
	parent := make(map[string]string, len(tweets))
	for _, t := range tweets {
		for _, ref := range t.ReferencedTweets {
			if ref.Type == "replied_to" {
				parent[t.ID] = ref.ID
			}
		}
	}

	deepest := 0
	for _, t := range tweets {
		depth := 0
		for id := t.ID; parent[id] != ""; id = parent[id] {
			depth++
		}
		if depth > deepest {
			deepest = depth
		}
	}
	return deepest
}

func (g *TweetGenerator) generateLikes() int {
	// Most Tweets get few likes; a handful take off.
	if g.rand.Float32() < 0.05 {
		return g.rand.Intn(10000) + 1000
	}
	return g.rand.Intn(50)
}

func (g *TweetGenerator) randUser() *types.User {
	return g.users[g.rand.Intn(len(g.users))]
}

func (g *TweetGenerator) randElement(slice []string) string {
	return slice[g.rand.Intn(len(slice))]
}
