package internal

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteBuilder(t *testing.T) {
	tests := []struct {
		name       string
		route      Route
		wantMethod string
		wantPath   string
		wantBucket string
	}{
		{
			name:       "static path",
			route:      NewRoute("tweets", "search", "recent").Get(),
			wantMethod: http.MethodGet,
			wantPath:   "tweets/search/recent",
			wantBucket: "tweets/search/recent",
		},
		{
			name:       "id segment normalized",
			route:      NewRoute("users", "2244994945", "followers").Get(),
			wantMethod: http.MethodGet,
			wantPath:   "users/2244994945/followers",
			wantBucket: "users/:id/followers",
		},
		{
			name:       "slashes split and empty segments dropped",
			route:      NewRoute("/tweets/", "", "1460323737035677698/liking_users").Post(),
			wantMethod: http.MethodPost,
			wantPath:   "tweets/1460323737035677698/liking_users",
			wantBucket: "tweets/:id/liking_users",
		},
		{
			name:       "two ids",
			route:      NewRoute("users", "12").Seg("likes", "1460323737035677698").Delete(),
			wantMethod: http.MethodDelete,
			wantPath:   "users/12/likes/1460323737035677698",
			wantBucket: "users/:id/likes/:id",
		},
		{
			name:       "named parameter",
			route:      NewRoute("users", "by", "username").Param("username", "jack").Get(),
			wantMethod: http.MethodGet,
			wantPath:   "users/by/username/jack",
			wantBucket: "users/by/username/:username",
		},
		{
			name:       "numeric parameter keeps its name",
			route:      NewRoute("users", "by", "username").Param("username", "1234").Seg("x").Get(),
			wantMethod: http.MethodGet,
			wantPath:   "users/by/username/1234/x",
			wantBucket: "users/by/username/:username/x",
		},
		{
			name:       "overlong digit run is not an id",
			route:      NewRoute("x", "123456789012345678901").Put(),
			wantMethod: http.MethodPut,
			wantPath:   "x/123456789012345678901",
			wantBucket: "x/123456789012345678901",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMethod, tt.route.Method)
			assert.Equal(t, tt.wantPath, tt.route.Path)
			assert.Equal(t, tt.wantBucket, tt.route.Bucket)
		})
	}
}

func TestRoute_SameBucketForDifferentIDs(t *testing.T) {
	a := NewRoute("tweets", "1", "retweeted_by").Get()
	b := NewRoute("tweets", "99999", "retweeted_by").Get()

	assert.NotEqual(t, a.Path, b.Path)
	assert.Equal(t, a.Bucket, b.Bucket)
	assert.Equal(t, "GET tweets/:id/retweeted_by", a.String())
}

func TestRoute_SameBucketForDifferentParams(t *testing.T) {
	a := NewRoute("users", "by", "username").Param("username", "alice").Get()
	b := NewRoute("users", "by", "username").Param("username", "bob").Get()

	assert.NotEqual(t, a.Path, b.Path)
	assert.Equal(t, a.Bucket, b.Bucket)
	assert.Equal(t, "GET users/by/username/:username", a.String())
}
