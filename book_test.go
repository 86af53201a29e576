package gtaw

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// pagedHandler serves pages keyed by the value of tokenParam ("" for the first).
func pagedHandler(t *testing.T, tokenParam string, pages map[string]string, calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, ok := pages[r.URL.Query().Get(tokenParam)]
		if !ok {
			t.Errorf("unexpected token %q", r.URL.Query().Get(tokenParam))
			writeJSON(w, http.StatusBadRequest, `{"title":"Invalid Request","detail":"bad token"}`)
			return
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func searchBook(t *testing.T, client *Client) *Book[*types.Tweet] {
	t.Helper()
	book, err := client.Tweets().SearchRecent("golang", nil)
	if err != nil {
		t.Fatalf("SearchRecent: %v", err)
	}
	return book
}

func TestBook_ForwardToTail(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, pagedHandler(t, "next_token", map[string]string{
		"":   `{"data":[{"id":"3","text":"c"},{"id":"2","text":"b"}],"meta":{"result_count":2,"next_token":"T1"}}`,
		"T1": `{"data":[{"id":"1","text":"a"}],"meta":{"result_count":1}}`,
	}, &calls))
	ctx := context.Background()

	book := searchBook(t, client)
	if book.State() != BookFresh {
		t.Fatalf("initial state = %v", book.State())
	}

	page, err := book.Next(ctx)
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if page.Len() != 2 {
		t.Errorf("first page has %d items", page.Len())
	}
	if book.State() != BookHasMore || book.Cursor().NextToken != "T1" {
		t.Fatalf("after first page: state %v cursor %+v", book.State(), book.Cursor())
	}

	page, err = book.Next(ctx)
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if ids := page.IDs(); len(ids) != 1 || ids[0] != "1" {
		t.Errorf("second page IDs = %v", ids)
	}
	if book.State() != BookExhausted {
		t.Fatalf("after last page: state %v", book.State())
	}

	before := calls.Load()
	_, err = book.Next(ctx)
	if !errors.Is(err, ErrTailReached) {
		t.Fatalf("expected ErrTailReached, got %v", err)
	}
	var pErr *PaginationError
	if !errors.As(err, &pErr) || pErr.Direction != pkgerrs.Forward {
		t.Errorf("expected forward *PaginationError, got %#v", err)
	}
	if calls.Load() != before {
		t.Error("an exhausted Book must not make a request")
	}
}

func TestBook_FreshNeverTailErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, pagedHandler(t, "next_token", map[string]string{
		"": `{"meta":{"result_count":0}}`,
	}, &calls))

	book := searchBook(t, client)
	if book.HasMore() {
		t.Error("a fresh Book has no next token yet")
	}
	if !book.CanAdvance() {
		t.Error("a fresh Book must be able to fetch its first page")
	}
	for i := 0; i < 3; i++ {
		book.Reset()
		if _, err := book.Next(context.Background()); err != nil {
			t.Fatalf("Next on a fresh Book: %v", err)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", calls.Load())
	}
}

func TestBook_ZeroResultPage(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, pagedHandler(t, "next_token", map[string]string{
		"":   `{"meta":{"result_count":0,"next_token":"T1"}}`,
		"T1": `{"meta":{"result_count":0}}`,
	}, &calls))
	ctx := context.Background()

	book := searchBook(t, client)
	page, err := book.Next(ctx)
	if err != nil {
		t.Fatalf("zero-result page should not be an error: %v", err)
	}
	if page.Len() != 0 || page.Meta().ResultCount != 0 {
		t.Errorf("expected an empty page, got %d items", page.Len())
	}
	if !book.HasMore() || !book.CanAdvance() {
		t.Error("next token on an empty page must still be followed")
	}

	if _, err := book.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if book.HasMore() || book.CanAdvance() {
		t.Error("expected exhausted")
	}
}

func TestBook_RefetchSameToken(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, pagedHandler(t, "next_token", map[string]string{
		"":   `{"data":[{"id":"9","text":"x"},{"id":"8","text":"y"}],"meta":{"result_count":2,"next_token":"T1"}}`,
		"T1": `{"data":[{"id":"7","text":"z"}],"meta":{"result_count":1}}`,
	}, &calls))
	ctx := context.Background()

	book := searchBook(t, client)
	first, err := book.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	book.Reset()
	again, err := book.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}

	a, b := first.IDs(), again.IDs()
	if len(a) != len(b) {
		t.Fatalf("%v != %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("%v != %v", a, b)
		}
	}
}

func TestBook_PreviousIndependentOfNext(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, pagedHandler(t, "pagination_token", map[string]string{
		"":   `{"data":[{"id":"1","name":"a","username":"a"}],"meta":{"result_count":1,"next_token":"N1"}}`,
		"N1": `{"data":[{"id":"2","name":"b","username":"b"}],"meta":{"result_count":1,"previous_token":"P0"}}`,
		"P0": `{"data":[{"id":"1","name":"a","username":"a"}],"meta":{"result_count":1,"next_token":"N1"}}`,
	}, &calls))
	ctx := context.Background()

	book, err := client.Users().Followers(ctx, UserID("12"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if book.Endpoint() != "GET users/:id/followers" {
		t.Errorf("Endpoint() = %q", book.Endpoint())
	}

	if _, err := book.Previous(ctx); !errors.Is(err, ErrHeadReached) {
		t.Fatalf("Previous on a fresh Book: expected ErrHeadReached, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("head error must not make a request")
	}

	if _, err := book.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := book.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if book.State() != BookExhausted {
		t.Fatalf("state = %v", book.State())
	}

	page, err := book.Previous(ctx)
	if err != nil {
		t.Fatalf("Previous after exhausting next: %v", err)
	}
	if page.IDs()[0] != "1" {
		t.Errorf("previous page IDs = %v", page.IDs())
	}
	if book.State() != BookHasMore || book.Cursor().PreviousToken != "" {
		t.Errorf("cursor should be replaced wholesale, got %+v", book.Cursor())
	}
}

func TestBook_FailedFetchKeepsCursor(t *testing.T) {
	var fail atomic.Bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			writeJSON(w, http.StatusServiceUnavailable, `{"title":"Service Unavailable","detail":"try later"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"data":[{"id":"1","text":"a"}],"meta":{"result_count":1,"next_token":"T1"}}`)
	})
	ctx := context.Background()

	book := searchBook(t, client)
	if _, err := book.Next(ctx); err != nil {
		t.Fatal(err)
	}
	fail.Store(true)
	_, err := book.Next(ctx)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 *APIError, got %v", err)
	}
	if book.Cursor().NextToken != "T1" {
		t.Errorf("cursor changed after a failure: %+v", book.Cursor())
	}
}

func TestIterator_Collect(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, pagedHandler(t, "next_token", map[string]string{
		"":   `{"data":[{"id":"6","text":"a"},{"id":"5","text":"b"}],"meta":{"result_count":2,"next_token":"T1"}}`,
		"T1": `{"meta":{"result_count":0,"next_token":"T2"}}`,
		"T2": `{"data":[{"id":"4","text":"c"},{"id":"3","text":"d"}],"meta":{"result_count":2}}`,
	}, &calls))
	ctx := context.Background()

	t.Run("all", func(t *testing.T) {
		items, err := searchBook(t, client).Iter(ctx).Collect(0)
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}
		if len(items) != 4 {
			t.Errorf("collected %d items", len(items))
		}
	})

	t.Run("capped", func(t *testing.T) {
		calls.Store(0)
		items, err := searchBook(t, client).Iter(ctx).Collect(3)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != 3 || items[2].ID != "4" {
			t.Errorf("unexpected items %d", len(items))
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 requests, got %d", calls.Load())
		}
	})

	t.Run("next after end", func(t *testing.T) {
		it := searchBook(t, client).Iter(ctx)
		for it.HasNext() {
			if _, err := it.Next(); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := it.Next(); !errors.Is(err, ErrTailReached) {
			t.Errorf("expected ErrTailReached, got %v", err)
		}
		it.Reset()
		if !it.HasNext() {
			t.Error("Reset should rewind the iterator")
		}
	})
}
