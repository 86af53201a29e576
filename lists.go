package gtaw

import (
	"context"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// ListService groups the List endpoints.
type ListService struct {
	c *Client
}

// Lists returns the List endpoints.
func (c *Client) Lists() *ListService {
	return &ListService{c: c}
}

// Get returns a List by ID.
func (s *ListService) Get(ctx context.Context, id string) (*types.List, error) {
	if err := s.c.validator.ValidateID("id", id); err != nil {
		return nil, err
	}
	return getOne[types.List](ctx, s.c, &internal.Job{
		Route: internal.NewRoute("lists", id).Get(),
		Query: s.c.paramsFor(fieldsList, nil),
	})
}

// Members pages through the members of a List.
func (s *ListService) Members(id string, opts *PageOptions) (*Book[*types.User], error) {
	return listBook[*types.User](s.c, id, "members", fieldsUser, opts)
}

// Followers pages through the followers of a List.
func (s *ListService) Followers(id string, opts *PageOptions) (*Book[*types.User], error) {
	return listBook[*types.User](s.c, id, "followers", fieldsUser, opts)
}

// Tweets pages through the Tweets of a List's members.
func (s *ListService) Tweets(id string, opts *PageOptions) (*Book[*types.Tweet], error) {
	return listBook[*types.Tweet](s.c, id, "tweets", fieldsTweet, opts)
}

// Owned pages through the Lists ref owns.
func (s *ListService) Owned(ctx context.Context, ref UserRef, opts *PageOptions) (*Book[*types.List], error) {
	id, err := s.c.Users().Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	params, err := s.c.pageParams(fieldsList, opts, boundsLists)
	if err != nil {
		return nil, err
	}
	return NewBook(s.c, BookSpec[*types.List]{
		Endpoint: "users/" + id + "/owned_lists",
		Params:   params,
	}), nil
}

func listBook[T types.Entity](c *Client, id, edge string, fs fieldset, opts *PageOptions) (*Book[T], error) {
	if err := c.validator.ValidateID("id", id); err != nil {
		return nil, err
	}
	params, err := c.pageParams(fs, opts, boundsLists)
	if err != nil {
		return nil, err
	}
	return NewBook(c, BookSpec[T]{
		Endpoint: "lists/" + id + "/" + edge,
		Params:   params,
	}), nil
}
