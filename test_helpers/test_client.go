package test_helpers

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	gtaw "github.com/jamesprial/go-twitter-api-wrapper"
)

// TestClient provides a wrapper around the Twitter client for testing
type TestClient struct {
	*gtaw.Client
	mockServer *TwitterMockServer
	config     MockClientConfig
}

// MockClientConfig provides configuration for mock clients
type MockClientConfig struct {
	UserAgent string
	Timeout   time.Duration
	// UserContext signs requests with OAuth1 instead of a bearer token.
	UserContext bool
	// RequestsPerMinute loosens the client limiter so tests are not throttled.
	RequestsPerMinute float64
	Stream            gtaw.StreamConfig
}

// DefaultMockClientConfig returns default configuration for mock clients
func DefaultMockClientConfig() MockClientConfig {
	return MockClientConfig{
		UserAgent:         "test-client/1.0",
		Timeout:           5 * time.Second,
		RequestsPerMinute: 60000,
		Stream: gtaw.StreamConfig{
			ConnectRetryDelay: 10 * time.Millisecond,
			ReconnectDelay:    10 * time.Millisecond,
			MaxReconnects:     2,
		},
	}
}

// NewTestClient creates a new test client backed by a fresh mock server
func NewTestClient(config *MockClientConfig) *TestClient {
	if config == nil {
		defaultConfig := DefaultMockClientConfig()
		config = &defaultConfig
	}

	mockServer := NewTwitterMockServer()

	cfg := &gtaw.Config{
		UserAgent:  config.UserAgent,
		BaseURL:    mockServer.URL(),
		HTTPClient: &http.Client{Timeout: config.Timeout},
		RateLimit:  &gtaw.RateLimitConfig{RequestsPerMinute: config.RequestsPerMinute, Burst: int(config.RequestsPerMinute)},
		Stream:     config.Stream,
	}
	if config.UserContext {
		cfg.ConsumerKey = "test_consumer_key"
		cfg.ConsumerSecret = "test_consumer_secret"
		cfg.AccessToken = "test_access_token"
		cfg.AccessSecret = "test_access_secret"
	} else {
		cfg.BearerToken = "test_bearer_token"
	}

	client, err := gtaw.NewClient(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create twitter client: %v", err))
	}

	return &TestClient{
		Client:     client,
		mockServer: mockServer,
		config:     *config,
	}
}

// MockServer returns the underlying mock server
func (tc *TestClient) MockServer() *TwitterMockServer {
	return tc.mockServer
}

// Close closes the mock server
func (tc *TestClient) Close() {
	tc.mockServer.Close()
}

// Reset clears the request log of the mock server
func (tc *TestClient) Reset() {
	tc.mockServer.ClearLog()
}

// SetupRejectedCredentials makes GET users/me answer 401.
func (tc *TestClient) SetupRejectedCredentials() {
	tc.mockServer.SetResponse("/2/users/me", Problem(http.StatusUnauthorized, "Unauthorized", "Unauthorized"))
}

// ConcurrentTestHelper runs one scenario against several independent clients
type ConcurrentTestHelper struct {
	clients []*TestClient
	mu      sync.RWMutex
}

// NewConcurrentTestHelper creates a helper for concurrent testing
func NewConcurrentTestHelper(clientCount int) *ConcurrentTestHelper {
	helper := &ConcurrentTestHelper{
		clients: make([]*TestClient, clientCount),
	}
	for i := 0; i < clientCount; i++ {
		helper.clients[i] = NewTestClient(nil)
	}
	return helper
}

// GetClient returns a client by index
func (cth *ConcurrentTestHelper) GetClient(index int) *TestClient {
	cth.mu.RLock()
	defer cth.mu.RUnlock()

	if index < 0 || index >= len(cth.clients) {
		return nil
	}
	return cth.clients[index]
}

// Close closes all clients
func (cth *ConcurrentTestHelper) Close() {
	cth.mu.Lock()
	defer cth.mu.Unlock()

	for _, client := range cth.clients {
		client.Close()
	}
}

// RunConcurrentTest runs testFunc with every client at once and returns the
// error of each, indexed like the clients.
func (cth *ConcurrentTestHelper) RunConcurrentTest(testFunc func(*TestClient) error) []error {
	cth.mu.RLock()
	clients := make([]*TestClient, len(cth.clients))
	copy(clients, cth.clients)
	cth.mu.RUnlock()

	errs := make([]error, len(clients))
	var wg sync.WaitGroup
	for i, client := range clients {
		wg.Add(1)
		go func(index int, tc *TestClient) {
			defer wg.Done()
			errs[index] = testFunc(tc)
		}(i, client)
	}
	wg.Wait()
	return errs
}
