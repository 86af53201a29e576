package internal

import (
	"net/http"
	"strings"
)

// IDPlaceholder replaces ID-like path segments in a Route's Bucket.
const IDPlaceholder = ":id"

// Route is an HTTP verb plus a path relative to the versioned API root.
// Path keeps the real IDs and is used to build the URL. Bucket has every ID
// segment replaced by IDPlaceholder and is the key requests are queued under,
// so two requests that differ only in the ID they target share a bucket.
type Route struct {
	Method string
	Path   string
	Bucket string
}

// String renders the route for logs, e.g. "GET users/:id/followers".
func (r Route) String() string {
	return r.Method + " " + r.Bucket
}

// RouteBuilder accumulates path segments until a terminal verb method
// produces a Route. A builder is not safe for concurrent use; build a new one
// per route.
type RouteBuilder struct {
	segments []string
	// buckets holds the bucket form of each segment; "" means derive it.
	buckets []string
}

// NewRoute starts a route with the given segments. Segments may contain
// slashes, which are split into separate segments.
func NewRoute(segments ...string) *RouteBuilder {
	b := &RouteBuilder{}
	return b.Seg(segments...)
}

// Seg appends path segments. Empty segments are ignored.
func (b *RouteBuilder) Seg(segments ...string) *RouteBuilder {
	for _, s := range segments {
		for _, part := range strings.Split(s, "/") {
			if part != "" {
				b.segments = append(b.segments, part)
				b.buckets = append(b.buckets, "")
			}
		}
	}
	return b
}

// Param appends a named variable segment such as a username. The value goes
// into Path as is and ":name" into Bucket, so every value shares one bucket.
func (b *RouteBuilder) Param(name, value string) *RouteBuilder {
	b.segments = append(b.segments, value)
	b.buckets = append(b.buckets, ":"+name)
	return b
}

// Get terminates the builder with GET.
func (b *RouteBuilder) Get() Route { return b.build(http.MethodGet) }

// Post terminates the builder with POST.
func (b *RouteBuilder) Post() Route { return b.build(http.MethodPost) }

// Put terminates the builder with PUT.
func (b *RouteBuilder) Put() Route { return b.build(http.MethodPut) }

// Delete terminates the builder with DELETE.
func (b *RouteBuilder) Delete() Route { return b.build(http.MethodDelete) }

func (b *RouteBuilder) build(method string) Route {
	normalized := make([]string, len(b.segments))
	for i, s := range b.segments {
		switch {
		case b.buckets[i] != "":
			normalized[i] = b.buckets[i]
		case IsID(s):
			normalized[i] = IDPlaceholder
		default:
			normalized[i] = s
		}
	}

	return Route{
		Method: method,
		Path:   strings.Join(b.segments, "/"),
		Bucket: strings.Join(normalized, "/"),
	}
}
