package internal

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func benchExecutor(b *testing.B, body []byte, level slog.Level) *Client {
	b.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Rate-Limit-Remaining", "899")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
	b.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level}))
	client, err := NewClient(server.Client(), NewBearerAuthenticator("bench-token"), server.URL+"/2/", "bench/1.0",
		&RateLimitConfig{RequestsPerMinute: 6e7, Burst: 1 << 20}, logger)
	if err != nil {
		b.Fatalf("NewClient: %v", err)
	}
	return client
}

func BenchmarkClient_Execute_SingleObject(b *testing.B) {
	client := benchExecutor(b, []byte(`{"data":{"id":"2244994945","username":"TwitterDev"}}`), slog.LevelInfo)
	job := &Job{Route: NewRoute("users", "me").Get()}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := client.Execute(ctx, job); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkClient_Execute_PageWithDebugLogging(b *testing.B) {
	var body bytes.Buffer
	body.WriteString(`{"data":[`)
	for i := 0; i < 100; i++ {
		if i > 0 {
			body.WriteByte(',')
		}
		body.WriteString(`{"id":"1460323737035677698","text":"Introducing a new era for the Twitter Developer Platform!"}`)
	}
	body.WriteString(`],"meta":{"result_count":100,"next_token":"7140dibdnow9c7btw3w29grvxfcgvpb9n9coehpk7xz5i"}}`)

	client := benchExecutor(b, body.Bytes(), slog.LevelDebug)
	job := &Job{
		Route: NewRoute("tweets", "search", "recent").Get(),
		Query: Params{"query": "from:TwitterDev", "max_results": 100},
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := client.Execute(ctx, job); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParams_Encode(b *testing.B) {
	p := Params{
		"query":        "from:TwitterDev -is:retweet",
		"tweet.fields": []string{"created_at", "author_id", "public_metrics", "conversation_id"},
		"expansions":   []string{"author_id"},
		"max_results":  100,
	}
	for i := 0; i < b.N; i++ {
		_ = p.Encode()
	}
}
