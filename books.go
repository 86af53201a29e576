package gtaw

import (
	"context"
	"time"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// PageOptions tune a paginated endpoint.
type PageOptions struct {
	// MaxResults is the page size. Zero uses the endpoint default.
	MaxResults int
	// Extra parameters merged last, for fields this package does not model.
	Extra Params
}

// SearchOptions tune search and timeline endpoints.
type SearchOptions struct {
	MaxResults int
	StartTime  time.Time
	EndTime    time.Time
	SinceID    string
	UntilID    string
	// SortOrder is "recency" or "relevancy". Search only.
	SortOrder string
	Extra     Params
}

// CountOptions tune the Tweet counts endpoints.
type CountOptions struct {
	// Granularity is "minute", "hour" or "day".
	Granularity string
	StartTime   time.Time
	EndTime     time.Time
	SinceID     string
	UntilID     string
	Extra       Params
}

// page size bounds per endpoint family
type bounds struct{ lo, hi int }

var (
	boundsSearchRecent = bounds{10, 100}
	boundsSearchAll    = bounds{10, 500}
	boundsTimeline     = bounds{5, 100}
	boundsFollows      = bounds{1, 1000}
	boundsTweetUsers   = bounds{1, 100}
	boundsLists        = bounds{1, 100}
)

func (c *Client) pageParams(fs fieldset, opts *PageOptions, b bounds) (Params, error) {
	if opts == nil {
		opts = &PageOptions{}
	}
	if err := c.validator.ValidateMaxResults(opts.MaxResults, b.lo, b.hi); err != nil {
		return nil, err
	}
	extra := Params{}
	if opts.MaxResults > 0 {
		extra["max_results"] = opts.MaxResults
	}
	return c.paramsFor(fs, internal.Merge(extra, opts.Extra)), nil
}

func (c *Client) searchParams(query string, opts *SearchOptions, b bounds) (Params, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	if query != "" {
		if err := c.validator.ValidateQuery("query", query); err != nil {
			return nil, err
		}
	}
	if err := c.validator.ValidateMaxResults(opts.MaxResults, b.lo, b.hi); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateTimeRange(opts.StartTime, opts.EndTime); err != nil {
		return nil, err
	}
	for field, id := range map[string]string{"since_id": opts.SinceID, "until_id": opts.UntilID} {
		if id == "" {
			continue
		}
		if err := c.validator.ValidateID(field, id); err != nil {
			return nil, err
		}
	}

	extra := Params{
		"start_time": opts.StartTime,
		"end_time":   opts.EndTime,
		"since_id":   opts.SinceID,
		"until_id":   opts.UntilID,
		"sort_order": opts.SortOrder,
	}
	if query != "" {
		extra["query"] = query
	}
	if opts.MaxResults > 0 {
		extra["max_results"] = opts.MaxResults
	}
	return c.paramsFor(fieldsTweet, internal.Merge(extra, opts.Extra)), nil
}

func (c *Client) countParams(query string, opts *CountOptions) (Params, error) {
	if opts == nil {
		opts = &CountOptions{}
	}
	if err := c.validator.ValidateQuery("query", query); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateTimeRange(opts.StartTime, opts.EndTime); err != nil {
		return nil, err
	}
	switch opts.Granularity {
	case "", "minute", "hour", "day":
	default:
		return nil, &pkgerrs.ConfigError{Field: "granularity", Message: "must be minute, hour or day"}
	}

	return internal.Merge(Params{
		"query":       query,
		"granularity": opts.Granularity,
		"start_time":  opts.StartTime,
		"end_time":    opts.EndTime,
		"since_id":    opts.SinceID,
		"until_id":    opts.UntilID,
	}, opts.Extra), nil
}

// getOne fetches a single object and caches it.
func getOne[T any, PT interface {
	*T
	types.Entity
}](ctx context.Context, c *Client, job *internal.Job) (PT, error) {
	var zero PT
	env, err := c.doData(ctx, job)
	if err != nil {
		return zero, err
	}
	item, err := internal.DecodeOne[T](env.Data)
	if err != nil {
		return zero, &pkgerrs.ParseError{Operation: job.Route.String(), Err: err}
	}
	c.remember(PT(item))
	c.rememberIncludes(env.Includes)
	return PT(item), nil
}

// getPage fetches a non-paginated list, such as a batch lookup.
func getPage[T types.Entity](ctx context.Context, c *Client, job *internal.Job) (*types.Page[T], error) {
	env, err := c.doData(ctx, job)
	if err != nil {
		return nil, err
	}
	items, err := internal.DecodeList[T](env.Data)
	if err != nil {
		return nil, &pkgerrs.ParseError{Operation: job.Route.String(), Err: err}
	}
	page := types.NewPage(items, env.Meta, env.Includes)
	for _, item := range page.Items() {
		c.remember(item)
	}
	c.rememberIncludes(env.Includes)
	return page, nil
}
