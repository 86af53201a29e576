package gtaw

import (
	"context"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// ConversationTree provides utility methods for working with a reply thread.
type ConversationTree interface {
	Roots() []*types.Tweet
	Replies(id string) []*types.Tweet
	Flatten() []*types.Tweet
	Filter(func(*types.Tweet) bool) []*types.Tweet
	Find(func(*types.Tweet) bool) *types.Tweet
	GetByID(string) *types.Tweet
	GetByAuthor(string) []*types.Tweet
	Depth() int
	Count() int
	Walk(func(t *types.Tweet, depth int))
}

// NewConversationTree links tweets through their reply references.
func NewConversationTree(tweets []*types.Tweet) ConversationTree {
	return internal.NewConversationTree(tweets)
}

// ThreadIteratorOptions tune a ThreadIterator.
type ThreadIteratorOptions = internal.ThreadIteratorOptions

// ThreadIterator walks a conversation one Tweet at a time.
type ThreadIterator = internal.ThreadIterator

// NewThreadIterator walks tree from its roots. tree must come from
// NewConversationTree.
func NewThreadIterator(tree ConversationTree, opts *ThreadIteratorOptions) *ThreadIterator {
	ct, ok := tree.(*internal.ConversationTree)
	if !ok {
		ct = internal.NewConversationTree(tree.Flatten())
	}
	return internal.NewThreadIterator(ct, opts)
}

// ConversationOptions bound a Conversation fetch.
type ConversationOptions struct {
	// MaxTweets caps the replies collected. Zero means all of them.
	MaxTweets int
	// PageSize is the search page size. Zero uses the endpoint default.
	PageSize int
}

// Conversation fetches the Tweet id, looks up its conversation and collects
// every reply recent search can see. Replies older than seven days are not
// returned; their descendants then show up as extra roots.
func (s *TweetService) Conversation(ctx context.Context, id string, opts *ConversationOptions) (ConversationTree, error) {
	if opts == nil {
		opts = &ConversationOptions{}
	}
	tweet, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	convID := tweet.ConversationID
	if convID == "" {
		convID = tweet.ID
	}

	book, err := s.SearchRecent("conversation_id:"+convID, &SearchOptions{MaxResults: clamp(opts.PageSize, boundsSearchRecent)})
	if err != nil {
		return nil, err
	}
	replies, err := book.Iter(ctx).Collect(opts.MaxTweets)
	if err != nil {
		return nil, err
	}

	all := make([]*types.Tweet, 0, len(replies)+2)
	all = append(all, tweet)
	if convID != tweet.ID {
		if head, ok := s.c.CachedTweet(convID); ok {
			all = append(all, head)
		}
	}
	all = append(all, replies...)

	s.c.logger.Debug("conversation collected", "conversation_id", convID, "tweets", len(all))
	return internal.NewConversationTree(all), nil
}
