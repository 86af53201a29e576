package gtaw

import (
	"context"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// Iterator yields the items of a Book one at a time, fetching pages as needed.
//
//	it := client.Tweets().SearchRecent("golang", nil).Iter(ctx)
//	for it.HasNext() {
//		tweet, err := it.Next()
//		if err != nil {
//			break
//		}
//		fmt.Println(tweet.Text)
//	}
type Iterator[T types.Entity] struct {
	ctx       context.Context
	book      *Book[T]
	buffer    []T
	bufferIdx int
	err       error
}

// Iter returns an Iterator that continues from the Book's current position.
// The Iterator advances the Book; do not call Next on both.
func (b *Book[T]) Iter(ctx context.Context) *Iterator[T] {
	return &Iterator[T]{ctx: ctx, book: b}
}

// HasNext returns true if there may be more items. An empty final page can make
// HasNext true while Next then reports the tail.
func (it *Iterator[T]) HasNext() bool {
	if it.err != nil {
		return false
	}
	return it.bufferIdx < len(it.buffer) || it.book.CanAdvance()
}

// Next returns the next item. At the end of the collection the error matches
// ErrTailReached.
func (it *Iterator[T]) Next() (T, error) {
	var zero T
	if it.err != nil {
		return zero, it.err
	}

	// Pages can come back empty while still carrying a next token.
	for it.bufferIdx >= len(it.buffer) {
		page, err := it.book.Next(it.ctx)
		if err != nil {
			it.err = err
			return zero, err
		}
		it.buffer = page.Items()
		it.bufferIdx = 0
	}

	item := it.buffer[it.bufferIdx]
	it.bufferIdx++
	return item, nil
}

// Error returns any error encountered during iteration. Reaching the tail is
// reported here too.
func (it *Iterator[T]) Error() error {
	return it.err
}

// Reset rewinds the underlying Book and clears the buffer.
func (it *Iterator[T]) Reset() {
	it.book.Reset()
	it.buffer = nil
	it.bufferIdx = 0
	it.err = nil
}

// Collect fetches all remaining items up to max (0 means no limit). Reaching
// the tail is not an error.
func (it *Iterator[T]) Collect(max int) ([]T, error) {
	var items []T
	for it.HasNext() && (max <= 0 || len(items) < max) {
		item, err := it.Next()
		if err != nil {
			if isTail(err) {
				return items, nil
			}
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}
