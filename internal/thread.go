package internal

import (
	"fmt"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// ThreadIterator walks a ConversationTree one Tweet at a time.
type ThreadIterator struct {
	tree       *ConversationTree
	stack      []*types.Tweet
	visited    map[string]bool
	depthFirst bool
	filterFunc func(*types.Tweet) bool
	maxDepth   int
	depths     map[string]int
}

// ThreadIteratorOptions provides options for thread iteration.
type ThreadIteratorOptions struct {
	DepthFirst bool
	// FilterFunc skips a Tweet and its replies when it returns false.
	FilterFunc func(*types.Tweet) bool
	// MaxDepth stops descending below this depth. Zero means unlimited.
	MaxDepth int
}

// NewThreadIterator creates an iterator over tree starting at its roots.
func NewThreadIterator(tree *ConversationTree, opts *ThreadIteratorOptions) *ThreadIterator {
	if opts == nil {
		opts = &ThreadIteratorOptions{DepthFirst: true}
	}

	roots := tree.Roots()
	it := &ThreadIterator{
		tree:       tree,
		stack:      make([]*types.Tweet, len(roots)),
		visited:    make(map[string]bool),
		depthFirst: opts.DepthFirst,
		filterFunc: opts.FilterFunc,
		maxDepth:   opts.MaxDepth,
		depths:     make(map[string]int),
	}
	copy(it.stack, roots)

	if opts.DepthFirst {
		for i, j := 0, len(it.stack)-1; i < j; i, j = i+1, j-1 {
			it.stack[i], it.stack[j] = it.stack[j], it.stack[i]
		}
	}
	return it
}

// HasNext returns true if there are Tweets left to visit. A filter can still
// reject all of them.
func (it *ThreadIterator) HasNext() bool {
	return len(it.stack) > 0
}

// Next returns the next Tweet together with its depth below the roots.
func (it *ThreadIterator) Next() (*types.Tweet, int, error) {
	for len(it.stack) > 0 {
		var t *types.Tweet
		if it.depthFirst {
			t = it.stack[len(it.stack)-1]
			it.stack = it.stack[:len(it.stack)-1]
		} else {
			t = it.stack[0]
			it.stack = it.stack[1:]
		}

		if t == nil || it.visited[t.ID] {
			continue
		}
		it.visited[t.ID] = true

		if it.filterFunc != nil && !it.filterFunc(t) {
			continue
		}

		depth := it.depths[t.ID]
		if it.maxDepth == 0 || depth < it.maxDepth {
			replies := it.tree.Replies(t.ID)
			for _, r := range replies {
				it.depths[r.ID] = depth + 1
			}
			if it.depthFirst {
				for i := len(replies) - 1; i >= 0; i-- {
					it.stack = append(it.stack, replies[i])
				}
			} else {
				it.stack = append(it.stack, replies...)
			}
		}
		return t, depth, nil
	}
	return nil, 0, fmt.Errorf("no more tweets in thread")
}
