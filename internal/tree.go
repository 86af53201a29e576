package internal

import (
	"sort"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// ConversationTree arranges the Tweets of one conversation by reply edges. A
// Tweet whose parent is not in the set is treated as a root.
type ConversationTree struct {
	roots    []*types.Tweet
	children map[string][]*types.Tweet
	byID     map[string]*types.Tweet
}

// NewConversationTree links tweets through their "replied_to" references.
// Siblings are ordered by ID, which for snowflakes is creation order.
func NewConversationTree(tweets []*types.Tweet) *ConversationTree {
	ct := &ConversationTree{
		children: make(map[string][]*types.Tweet),
		byID:     make(map[string]*types.Tweet, len(tweets)),
	}

	for _, t := range tweets {
		if t == nil || t.ID == "" {
			continue
		}
		if _, dup := ct.byID[t.ID]; dup {
			continue
		}
		ct.byID[t.ID] = t
	}

	for _, t := range ct.byID {
		parent := ParentID(t)
		if parent != "" && parent != t.ID {
			if _, ok := ct.byID[parent]; ok {
				ct.children[parent] = append(ct.children[parent], t)
				continue
			}
		}
		ct.roots = append(ct.roots, t)
	}

	sortTweets(ct.roots)
	for _, kids := range ct.children {
		sortTweets(kids)
	}
	return ct
}

// ParentID returns the ID of the Tweet t replies to, or "".
func ParentID(t *types.Tweet) string {
	if t == nil {
		return ""
	}
	for _, ref := range t.ReferencedTweets {
		if ref.Type == "replied_to" {
			return ref.ID
		}
	}
	return ""
}

func sortTweets(ts []*types.Tweet) {
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i].ID, ts[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}

// Roots returns the top-level Tweets.
func (ct *ConversationTree) Roots() []*types.Tweet {
	return ct.roots
}

// Replies returns the direct replies to id.
func (ct *ConversationTree) Replies(id string) []*types.Tweet {
	return ct.children[id]
}

// GetByID returns a Tweet by its ID.
func (ct *ConversationTree) GetByID(id string) *types.Tweet {
	return ct.byID[id]
}

// Flatten returns all Tweets depth-first, parents before their replies.
func (ct *ConversationTree) Flatten() []*types.Tweet {
	result := make([]*types.Tweet, 0, len(ct.byID))
	ct.Walk(func(t *types.Tweet, _ int) {
		result = append(result, t)
	})
	return result
}

// Filter returns Tweets that match the given filter function, depth-first.
func (ct *ConversationTree) Filter(filterFunc func(*types.Tweet) bool) []*types.Tweet {
	var result []*types.Tweet
	ct.Walk(func(t *types.Tweet, _ int) {
		if filterFunc(t) {
			result = append(result, t)
		}
	})
	return result
}

// Find returns the first Tweet, depth-first, that matches the given condition.
func (ct *ConversationTree) Find(condition func(*types.Tweet) bool) *types.Tweet {
	return ct.findRecursive(ct.roots, condition)
}

func (ct *ConversationTree) findRecursive(tweets []*types.Tweet, condition func(*types.Tweet) bool) *types.Tweet {
	for _, t := range tweets {
		if condition(t) {
			return t
		}
		if found := ct.findRecursive(ct.children[t.ID], condition); found != nil {
			return found
		}
	}
	return nil
}

// GetByAuthor returns all Tweets written by authorID.
func (ct *ConversationTree) GetByAuthor(authorID string) []*types.Tweet {
	return ct.Filter(func(t *types.Tweet) bool {
		return t.AuthorID == authorID
	})
}

// Depth returns the maximum reply depth. A tree of roots only has depth 0.
func (ct *ConversationTree) Depth() int {
	maxDepth := 0
	ct.Walk(func(_ *types.Tweet, depth int) {
		if depth > maxDepth {
			maxDepth = depth
		}
	})
	return maxDepth
}

// Count returns the total number of Tweets in the tree.
func (ct *ConversationTree) Count() int {
	return len(ct.byID)
}

// Walk calls fn for each Tweet depth-first with its depth below the roots.
func (ct *ConversationTree) Walk(fn func(t *types.Tweet, depth int)) {
	ct.walkRecursive(ct.roots, 0, fn)
}

func (ct *ConversationTree) walkRecursive(tweets []*types.Tweet, depth int, fn func(*types.Tweet, int)) {
	for _, t := range tweets {
		fn(t, depth)
		ct.walkRecursive(ct.children[t.ID], depth+1, fn)
	}
}
