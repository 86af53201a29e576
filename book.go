package gtaw

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// BookState is where a Book stands in its collection.
type BookState int

const (
	// BookFresh has not fetched anything yet. Next always makes a request.
	BookFresh BookState = iota
	// BookHasMore has a next token.
	BookHasMore
	// BookExhausted has fetched at least once and holds no next token.
	BookExhausted
)

func (s BookState) String() string {
	switch s {
	case BookFresh:
		return "fresh"
	case BookHasMore:
		return "has-more"
	case BookExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Cursor is the pagination state of a Book. Every successful fetch replaces
// both tokens with the values of the latest response.
type Cursor struct {
	NextToken     string
	PreviousToken string
	Started       bool
}

// HasMore reports whether a next page exists.
func (c Cursor) HasMore() bool {
	return c.NextToken != ""
}

// BookSpec describes one paginated endpoint.
type BookSpec[T types.Entity] struct {
	// Endpoint is the path below the API version, e.g. "users/2244994945/followers".
	Endpoint string
	// Method defaults to GET.
	Method string
	// Params are sent with every page request.
	Params Params
	// TokenParam is the query parameter that carries the cursor. Defaults to
	// "pagination_token"; search endpoints use "next_token".
	TokenParam string
	// Auth selects the authorization scheme.
	Auth AuthMode
	// Decode turns the "data" member into entities. Defaults to decoding an
	// array of T.
	Decode func(json.RawMessage) ([]T, error)
}

// Book walks a cursor-paginated collection one page at a time. A Book is safe
// for concurrent use; concurrent calls are serialized.
type Book[T types.Entity] struct {
	client *Client
	spec   BookSpec[T]
	route  internal.Route

	mu     sync.Mutex
	cursor Cursor
}

// NewBook returns a Book for spec. Most callers use the accessors on Tweets(),
// Users() and Lists() instead.
func NewBook[T types.Entity](c *Client, spec BookSpec[T]) *Book[T] {
	if spec.TokenParam == "" {
		spec.TokenParam = "pagination_token"
	}
	if spec.Decode == nil {
		spec.Decode = internal.DecodeList[T]
	}

	b := internal.NewRoute(spec.Endpoint)
	var route internal.Route
	switch spec.Method {
	case http.MethodPost:
		route = b.Post()
	default:
		route = b.Get()
	}

	return &Book[T]{client: c, spec: spec, route: route}
}

// Next fetches the next page. A fresh Book fetches the first page. An
// exhausted Book returns a *PaginationError matching ErrTailReached without
// making a request.
func (b *Book[T]) Next(ctx context.Context) (*types.Page[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cursor.Started && b.cursor.NextToken == "" {
		return nil, &pkgerrs.PaginationError{Direction: pkgerrs.Forward, Endpoint: b.route.String()}
	}
	return b.fetch(ctx, b.cursor.NextToken)
}

// Previous fetches the page before the current one. Without a previous token
// it returns a *PaginationError matching ErrHeadReached without making a request.
func (b *Book[T]) Previous(ctx context.Context) (*types.Page[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cursor.PreviousToken == "" {
		return nil, &pkgerrs.PaginationError{Direction: pkgerrs.Backward, Endpoint: b.route.String()}
	}
	return b.fetch(ctx, b.cursor.PreviousToken)
}

// HasMore reports whether the last fetch returned a next token. It is false
// for a Fresh Book; use CanAdvance to drive a paging loop.
func (b *Book[T]) HasMore() bool {
	return b.Cursor().HasMore()
}

// CanAdvance reports whether Next would make a request: the Book is Fresh or
// has a next token.
func (b *Book[T]) CanAdvance() bool {
	return b.State() != BookExhausted
}

// State returns the current BookState.
func (b *Book[T]) State() BookState {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case !b.cursor.Started:
		return BookFresh
	case b.cursor.NextToken != "":
		return BookHasMore
	default:
		return BookExhausted
	}
}

// Cursor returns a copy of the pagination state.
func (b *Book[T]) Cursor() Cursor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// Reset returns the Book to BookFresh.
func (b *Book[T]) Reset() {
	b.mu.Lock()
	b.cursor = Cursor{}
	b.mu.Unlock()
}

// Endpoint returns the bucketed route of the Book, e.g. "GET users/:id/followers".
func (b *Book[T]) Endpoint() string {
	return b.route.String()
}

// fetch requests one page with token and replaces the cursor. The cursor is
// left untouched when the request fails. Callers hold b.mu.
func (b *Book[T]) fetch(ctx context.Context, token string) (*types.Page[T], error) {
	query := b.spec.Params
	if token != "" {
		query = internal.Merge(b.spec.Params, Params{b.spec.TokenParam: token})
	}

	env, err := b.client.doData(ctx, &internal.Job{
		Route: b.route,
		Query: query,
		Auth:  b.spec.Auth,
	})
	if err != nil {
		return nil, err
	}

	items, err := b.spec.Decode(env.Data)
	if err != nil {
		return nil, &pkgerrs.ParseError{Operation: b.route.String(), Err: err}
	}

	page := types.NewPage(items, env.Meta, env.Includes)

	b.cursor = Cursor{Started: true}
	if env.Meta != nil {
		b.cursor.NextToken = env.Meta.NextToken
		b.cursor.PreviousToken = env.Meta.PreviousToken
	}

	for _, item := range page.Items() {
		b.client.remember(item)
	}
	b.client.rememberIncludes(env.Includes)

	b.client.logger.Debug("fetched page", "route", b.route.String(), "items", page.Len(), "has_more", b.cursor.HasMore())
	return page, nil
}
