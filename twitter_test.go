package gtaw

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

// newTestClient starts a server for handler and returns a bearer client aimed
// at it. mutate can adjust the config before the client is built.
func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &Config{
		BearerToken: "test-bearer",
		BaseURL:     server.URL,
		RateLimit:   &RateLimitConfig{RequestsPerMinute: 60000, Burst: 1000},
	}
	for _, m := range mutate {
		m(cfg)
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func withOAuth1(cfg *Config) {
	cfg.BearerToken = ""
	cfg.ConsumerKey = "ck"
	cfg.ConsumerSecret = "cs"
	cfg.AccessToken = "at"
	cfg.AccessSecret = "as"
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

const meBody = `{"data":{"id":"2244994945","name":"Twitter Dev","username":"TwitterDev"}}`

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		wantError bool
		userCtx   bool
	}{
		{name: "nil config", config: nil, wantError: true},
		{name: "no credentials", config: &Config{}, wantError: true},
		{
			name:      "bearer and oauth1",
			config:    &Config{BearerToken: "b", ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessSecret: "as"},
			wantError: true,
		},
		{
			name:      "incomplete oauth1",
			config:    &Config{ConsumerKey: "ck", ConsumerSecret: "cs"},
			wantError: true,
		},
		{
			name:      "user agent with newline",
			config:    &Config{BearerToken: "b", UserAgent: "app\r\nX-Evil: 1"},
			wantError: true,
		},
		{name: "bearer", config: &Config{BearerToken: "b"}},
		{
			name:    "oauth1",
			config:  &Config{ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessSecret: "as"},
			userCtx: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error")
				}
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected *ConfigError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.UserContext() != tt.userCtx {
				t.Errorf("UserContext() = %v, want %v", client.UserContext(), tt.userCtx)
			}
			if client.IsConnected() {
				t.Error("a new client should not be connected")
			}
		})
	}
}

func TestNewClient_DoesNotMutateConfig(t *testing.T) {
	cfg := &Config{BearerToken: "b"}
	if _, err := NewClient(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.UserAgent != "" || cfg.BaseURL != "" || cfg.HTTPClient != nil {
		t.Errorf("caller config was modified: %+v", cfg)
	}
}

func TestClient_Connect_UserContext(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/2/users/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "OAuth ") || !strings.Contains(auth, "oauth_signature=") {
			t.Errorf("expected OAuth1 header, got %q", auth)
		}
		writeJSON(w, http.StatusOK, meBody)
	}, withOAuth1)

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("second Connect: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
	if client.Username() != "TwitterDev" {
		t.Errorf("Username() = %q", client.Username())
	}

	me, err := client.Users().Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.ID != "2244994945" {
		t.Errorf("Me().ID = %q", me.ID)
	}
	if u, ok := client.CachedUser("2244994945"); !ok || u.Username != "TwitterDev" {
		t.Error("signed-in user should be cached")
	}
}

func TestClient_Connect_Bearer(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `{}`)
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if calls.Load() != 0 {
		t.Error("bearer sessions should connect without a request")
	}
	if !client.IsConnected() {
		t.Error("expected connected")
	}

	_, err := client.Users().Me(context.Background())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Me on a bearer session: expected ErrMissingCredentials, got %v", err)
	}
}

func TestClient_Connect_RejectedThenRetried(t *testing.T) {
	var reject atomic.Bool
	reject.Store(true)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if reject.Load() {
			writeJSON(w, http.StatusUnauthorized, `{"title":"Unauthorized","type":"about:blank","status":401,"detail":"Unauthorized"}`)
			return
		}
		writeJSON(w, http.StatusOK, meBody)
	}, withOAuth1)

	err := client.Connect(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", authErr.StatusCode)
	}
	if client.IsConnected() {
		t.Fatal("failed Connect must not mark the client connected")
	}

	reject.Store(false)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect after recovery: %v", err)
	}
	if client.Username() != "TwitterDev" {
		t.Errorf("Username() = %q", client.Username())
	}
}

func TestClient_PartialErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{
			"data":[{"id":"20","text":"still here"}],
			"errors":[{"value":"1276230436478386177","detail":"Could not find tweet with ids: [1276230436478386177].","title":"Not Found Error","resource_type":"tweet","parameter":"ids","resource_id":"1276230436478386177","type":"https://api.twitter.com/2/problems/resource-not-found"}]
		}`)
	})

	var mu sync.Mutex
	var got []PartialError
	off := client.OnPartialError(func(pe PartialError) {
		mu.Lock()
		got = append(got, pe)
		mu.Unlock()
	})

	page, err := client.Tweets().Lookup(context.Background(), []string{"20", "1276230436478386177"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if page.Len() != 1 || page.Items()[0].ID != "20" {
		t.Errorf("unexpected page %v", page.IDs())
	}

	mu.Lock()
	if len(got) != 1 {
		mu.Unlock()
		t.Fatalf("expected 1 partial error, got %d", len(got))
	}
	if got[0].Route != "GET tweets" {
		t.Errorf("Route = %q", got[0].Route)
	}
	if len(got[0].Problems) != 1 || *got[0].Problems[0].ResourceID != "1276230436478386177" {
		t.Errorf("unexpected problems %+v", got[0].Problems)
	}
	mu.Unlock()

	off()
	if _, err := client.Tweets().Lookup(context.Background(), []string{"20"}); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Error("listener should not fire after off()")
	}
}

func TestClient_PartialErrorListenerMayCallSameRoute(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") == "3" {
			writeJSON(w, http.StatusOK, `{"data":[{"id":"3","text":"third"}]}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"data":[{"id":"1","text":"first"}],"errors":[{"detail":"Could not find tweet with ids: [2].","resource_id":"2"}]}`)
	})

	var nested atomic.Int32
	client.OnPartialError(func(pe PartialError) {
		page, err := client.Tweets().Lookup(context.Background(), []string{"3"})
		if err == nil && page.Len() == 1 {
			nested.Add(1)
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := client.Tweets().Lookup(context.Background(), []string{"1", "2"})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Lookup blocked while its listener used the same route")
	}
	if nested.Load() != 1 {
		t.Errorf("nested Lookup did not complete inside the listener")
	}
}

func TestClient_ErrorsWithoutData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"errors":[
			{"title":"Not Found Error","detail":"Could not find tweet with id: [1].","type":"https://api.twitter.com/2/problems/resource-not-found"},
			{"title":"Not Found Error","detail":"second"}
		]}`)
	})

	_, err := client.Tweets().Get(context.Background(), "1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Problem.Summary() != "Could not find tweet with id: [1]." {
		t.Errorf("primary problem = %q", apiErr.Problem.Summary())
	}
	if len(apiErr.Additional) != 1 {
		t.Errorf("expected 1 additional problem, got %d", len(apiErr.Additional))
	}
}

func TestClient_QueryDefaults(t *testing.T) {
	var query atomic.Value
	handler := func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		writeJSON(w, http.StatusOK, `{"data":{"id":"1","text":"hi"}}`)
	}

	t.Run("defaults sent", func(t *testing.T) {
		client := newTestClient(t, handler)
		if _, err := client.Tweets().Get(context.Background(), "1"); err != nil {
			t.Fatal(err)
		}
		q := query.Load().(url.Values)
		if !strings.Contains(q["tweet.fields"][0], "conversation_id") {
			t.Errorf("tweet.fields = %v", q["tweet.fields"])
		}
		if q["expansions"][0] != "author_id" {
			t.Errorf("expansions = %v", q["expansions"])
		}
		if _, ok := q["list.fields"]; ok {
			t.Error("list.fields should not be sent to a Tweet endpoint")
		}
	})

	t.Run("override and drop", func(t *testing.T) {
		client := newTestClient(t, handler, func(cfg *Config) {
			cfg.QueryDefaults = Params{
				"tweet.fields": []string{"lang"},
				"expansions":   nil,
			}
		})
		if _, err := client.Tweets().Get(context.Background(), "1"); err != nil {
			t.Fatal(err)
		}
		q := query.Load().(url.Values)
		if q["tweet.fields"][0] != "lang" {
			t.Errorf("tweet.fields = %v", q["tweet.fields"])
		}
		if _, ok := q["expansions"]; ok {
			t.Error("expansions should have been dropped")
		}
	})

	t.Run("fresh map each call", func(t *testing.T) {
		a := DefaultQueryParameters()
		a["expansions"] = nil
		if DefaultQueryParameters()["expansions"] == nil {
			t.Error("DefaultQueryParameters must not share state")
		}
	})
}

func TestClient_Cache(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `{"data":{"id":"1","text":"hi","author_id":"7"},"includes":{"users":[{"id":"7","name":"Seven","username":"Seven"}]}}`)
	})

	if _, err := client.Tweets().Get(context.Background(), "1"); err != nil {
		t.Fatal(err)
	}
	if tw, ok := client.CachedTweet("1"); !ok || tw.Text != "hi" {
		t.Error("tweet should be cached")
	}
	if _, ok := client.CachedUser("7"); !ok {
		t.Error("included user should be cached")
	}

	id, err := client.Users().Resolve(context.Background(), Username("@seven"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "7" {
		t.Errorf("Resolve = %q", id)
	}
	if calls.Load() != 1 {
		t.Errorf("username resolution should hit the cache, got %d requests", calls.Load())
	}

	t.Run("disabled", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"data":{"id":"1","text":"hi"}}`)
		}, func(cfg *Config) { cfg.CacheSize = -1 })
		if _, err := client.Tweets().Get(context.Background(), "1"); err != nil {
			t.Fatal(err)
		}
		if _, ok := client.CachedTweet("1"); ok {
			t.Error("cache should be disabled")
		}
	})
}

func TestClient_RouteQueues(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		writeJSON(w, http.StatusOK, `{"data":{"id":"1","text":"hi"}}`)
	})

	var wg sync.WaitGroup
	for _, id := range []string{"1", "2", "3", "4"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := client.Tweets().Get(context.Background(), id); err != nil {
				t.Errorf("Get(%s): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Errorf("requests on one route overlapped: max in flight %d", maxInFlight.Load())
	}
	buckets := client.RouteBuckets()
	if len(buckets) != 1 || buckets[0] != "GET tweets/:id" {
		t.Errorf("RouteBuckets() = %v", buckets)
	}
}

func TestClient_LocalErrorsMakeNoRequest(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `{}`)
	})
	ctx := context.Background()

	checks := []struct {
		name string
		call func() error
	}{
		{"bad tweet id", func() error { _, err := client.Tweets().Get(ctx, "abc"); return err }},
		{"too many ids", func() error { _, err := client.Tweets().Lookup(ctx, make([]string, 101)); return err }},
		{"bad username", func() error { _, err := client.Users().ByUsername(ctx, "not a name"); return err }},
		{"empty query", func() error { _, err := client.Tweets().SearchRecent("  ", nil); return err }},
		{"page size", func() error { _, err := client.Tweets().SearchRecent("go", &SearchOptions{MaxResults: 5}); return err }},
		{"time range", func() error {
			now := time.Now()
			_, err := client.Tweets().SearchRecent("go", &SearchOptions{StartTime: now, EndTime: now.Add(-time.Hour)})
			return err
		}},
		{"granularity", func() error { _, err := client.Tweets().CountsRecent("go", &CountOptions{Granularity: "week"}); return err }},
		{"sort order on timeline", func() error {
			_, err := client.Users().Timeline(ctx, UserID("1"), &TimelineOptions{SearchOptions: SearchOptions{SortOrder: "recency"}})
			return err
		}},
		{"empty tweet", func() error { _, err := client.Tweets().Create(ctx, "", nil); return err }},
		{"backfill", func() error { _, err := client.FilteredStream(&StreamOptions{BackfillMinutes: 9}); return err }},
	}

	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			err := c.call()
			var cfgErr *pkgerrs.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected *ConfigError, got %T: %v", err, err)
			}
		})
	}
	if calls.Load() != 0 {
		t.Errorf("local validation made %d requests", calls.Load())
	}
}
