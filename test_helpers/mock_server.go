package test_helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockServer provides a configurable mock Twitter API server for testing.
// Responses are keyed by path; query strings are ignored unless a paged
// response is installed.
type MockServer struct {
	server *httptest.Server

	mu          sync.RWMutex
	responses   map[string][]*MockResponse
	pages       map[string]*pagedResponse
	defaultResp *MockResponse
	delay       time.Duration

	logMutex   sync.Mutex
	requestLog []RequestEntry
	callCount  map[string]int
}

// RequestEntry logs incoming requests for debugging
type RequestEntry struct {
	Method       string
	Path         string
	Query        url.Values
	Headers      http.Header
	Body         string
	Timestamp    time.Time
	ResponseCode int
}

// MockResponse defines a mock API response
type MockResponse struct {
	Status  int
	Body    string
	Headers map[string]string
	Delay   time.Duration
}

type pagedResponse struct {
	tokenParam string
	pages      map[string]*MockResponse
}

// NewMockServer creates a new mock server instance
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string][]*MockResponse),
		pages:     make(map[string]*pagedResponse),
		callCount: make(map[string]int),
		defaultResp: &MockResponse{
			Status:  http.StatusNotFound,
			Body:    `{"title":"Not Found Error","detail":"no mock response","type":"https://api.twitter.com/2/problems/resource-not-found"}`,
			Headers: map[string]string{"Content-Type": "application/problem+json"},
		},
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.serveHTTP))
	return ms
}

// URL returns the base URL of the mock server
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close shuts down the mock server
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse configures a fixed response for a path
func (ms *MockServer) SetResponse(path string, response *MockResponse) {
	ms.SetSequence(path, response)
}

// SetSequence configures responses served in order for a path. The last one
// repeats once the sequence is used up.
func (ms *MockServer) SetSequence(path string, responses ...*MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = responses
}

// SetPages serves a paginated path. pages maps the value of tokenParam to the
// response; the first page is keyed by "".
func (ms *MockServer) SetPages(path, tokenParam string, pages map[string]*MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.pages[path] = &pagedResponse{tokenParam: tokenParam, pages: pages}
}

// SetDefaultResponse configures the response for unknown paths
func (ms *MockServer) SetDefaultResponse(response *MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.defaultResp = response
}

// SetDelay adds delay to all responses
func (ms *MockServer) SetDelay(delay time.Duration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.delay = delay
}

// GetRequestLog returns the request log
func (ms *MockServer) GetRequestLog() []RequestEntry {
	ms.logMutex.Lock()
	defer ms.logMutex.Unlock()
	return append([]RequestEntry{}, ms.requestLog...)
}

// GetCallCount returns the call count for a path
func (ms *MockServer) GetCallCount(path string) int {
	ms.logMutex.Lock()
	defer ms.logMutex.Unlock()
	return ms.callCount[path]
}

// ClearLog clears the request log and call counts
func (ms *MockServer) ClearLog() {
	ms.logMutex.Lock()
	defer ms.logMutex.Unlock()
	ms.requestLog = ms.requestLog[:0]
	ms.callCount = make(map[string]int)
}

func (ms *MockServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	entry := RequestEntry{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		Headers:   r.Header.Clone(),
		Timestamp: time.Now(),
	}
	if r.Body != nil {
		body, _ := io.ReadAll(r.Body)
		entry.Body = string(body)
	}

	ms.logMutex.Lock()
	ms.callCount[r.URL.Path]++
	call := ms.callCount[r.URL.Path]
	ms.logMutex.Unlock()

	response := ms.pick(r, call)

	ms.mu.RLock()
	totalDelay := ms.delay + response.Delay
	ms.mu.RUnlock()
	if totalDelay > 0 {
		select {
		case <-time.After(totalDelay):
		case <-r.Context().Done():
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	status := response.Status
	if status == 0 {
		status = http.StatusOK
	}

	// Logged before the response is written so a caller that has its answer
	// always finds the entry.
	entry.ResponseCode = status
	ms.logMutex.Lock()
	ms.requestLog = append(ms.requestLog, entry)
	ms.logMutex.Unlock()

	w.WriteHeader(status)
	_, _ = w.Write([]byte(response.Body))
}

func (ms *MockServer) pick(r *http.Request, call int) *MockResponse {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if paged, ok := ms.pages[r.URL.Path]; ok {
		if resp, ok := paged.pages[r.URL.Query().Get(paged.tokenParam)]; ok {
			return resp
		}
		return &MockResponse{
			Status: http.StatusBadRequest,
			Body:   `{"errors":[{"parameters":{},"message":"invalid pagination token"}],"title":"Invalid Request","detail":"One or more parameters to your request was invalid.","type":"https://api.twitter.com/2/problems/invalid-request"}`,
		}
	}

	seq, ok := ms.responses[r.URL.Path]
	if !ok || len(seq) == 0 {
		return ms.defaultResp
	}
	if call > len(seq) {
		return seq[len(seq)-1]
	}
	return seq[call-1]
}

// TwitterMockServer provides Twitter-specific mock responses under the /2/ prefix
type TwitterMockServer struct {
	*MockServer
}

// NewTwitterMockServer creates a mock server pre-configured with a signed-in
// user and one page of recent search results.
func NewTwitterMockServer() *TwitterMockServer {
	server := &TwitterMockServer{MockServer: NewMockServer()}
	server.setupDefaultResponses()
	return server
}

// JSON wraps body as a 200 application/json response.
func JSON(body string) *MockResponse {
	return &MockResponse{
		Status:  http.StatusOK,
		Body:    body,
		Headers: map[string]string{"Content-Type": "application/json"},
	}
}

// Problem builds a non-2xx problem response.
func Problem(status int, title, detail string) *MockResponse {
	body, _ := json.Marshal(map[string]any{
		"title":  title,
		"detail": detail,
		"type":   "about:blank",
		"status": status,
	})
	return &MockResponse{
		Status:  status,
		Body:    string(body),
		Headers: map[string]string{"Content-Type": "application/problem+json"},
	}
}

func (tms *TwitterMockServer) setupDefaultResponses() {
	tms.SetResponse("/2/users/me", JSON(`{"data":{"id":"2244994945","name":"Twitter Dev","username":"TwitterDev"}}`))
	tms.SetResponse("/2/tweets/search/recent", JSON(`{"data":[{"id":"1460323737035677698","text":"Introducing a new era","author_id":"2244994945"}],"includes":{"users":[{"id":"2244994945","name":"Twitter Dev","username":"TwitterDev"}]},"meta":{"result_count":1,"newest_id":"1460323737035677698","oldest_id":"1460323737035677698"}}`))
}

// SetupUser configures GET users/:id and GET users/by/username/:username.
func (tms *TwitterMockServer) SetupUser(id, username string) {
	body, _ := json.Marshal(map[string]any{
		"data": map[string]any{"id": id, "name": username, "username": username},
	})
	tms.SetResponse("/2/users/"+id, JSON(string(body)))
	tms.SetResponse("/2/users/by/username/"+username, JSON(string(body)))
}

// SetupTweetPages serves path as a chain of Tweet pages with the given IDs per
// page. Page i is reached with token "t<i>".
func (tms *TwitterMockServer) SetupTweetPages(path, tokenParam string, pages ...[]string) {
	out := make(map[string]*MockResponse, len(pages))
	for i, ids := range pages {
		data := make([]map[string]any, len(ids))
		for j, id := range ids {
			data[j] = map[string]any{"id": id, "text": "tweet " + id}
		}
		meta := map[string]any{"result_count": len(ids)}
		if i+1 < len(pages) {
			meta["next_token"] = "t" + strconv.Itoa(i+1)
		}
		if i > 1 {
			meta["previous_token"] = tokenFor(i - 1)
		}
		body, _ := json.Marshal(map[string]any{"data": data, "meta": meta})
		if len(ids) == 0 {
			body, _ = json.Marshal(map[string]any{"meta": meta})
		}
		out[tokenFor(i)] = JSON(string(body))
	}
	tms.SetPages(path, tokenParam, out)
}

func tokenFor(page int) string {
	if page == 0 {
		return ""
	}
	return "t" + strconv.Itoa(page)
}

// SetupRateLimit attaches rate limit headers to a path's response.
func (tms *TwitterMockServer) SetupRateLimit(path string, resp *MockResponse, remaining int, reset time.Time) {
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers["X-Rate-Limit-Limit"] = "900"
	resp.Headers["X-Rate-Limit-Remaining"] = strconv.Itoa(remaining)
	resp.Headers["X-Rate-Limit-Reset"] = strconv.FormatInt(reset.Unix(), 10)
	tms.SetResponse(path, resp)
}

// SetupError makes every unknown path answer with a problem.
func (tms *TwitterMockServer) SetupError(statusCode int, message string) {
	tms.SetDefaultResponse(Problem(statusCode, http.StatusText(statusCode), message))
}

// WaitForRequests waits for a specific number of requests to be made
func (ms *MockServer) WaitForRequests(count int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %d requests", count)
		case <-ticker.C:
			ms.logMutex.Lock()
			total := len(ms.requestLog)
			ms.logMutex.Unlock()
			if total >= count {
				return nil
			}
		}
	}
}

// AssertRequestCount asserts that a specific number of requests were made to a path
func (ms *MockServer) AssertRequestCount(path string, expectedCount int) error {
	actualCount := ms.GetCallCount(path)
	if actualCount != expectedCount {
		return fmt.Errorf("expected %d requests to %s, got %d", expectedCount, path, actualCount)
	}
	return nil
}

// GetLastRequest returns the last request made to a specific path
func (ms *MockServer) GetLastRequest(path string) (*RequestEntry, error) {
	ms.logMutex.Lock()
	defer ms.logMutex.Unlock()

	for i := len(ms.requestLog) - 1; i >= 0; i-- {
		if ms.requestLog[i].Path == path {
			return &ms.requestLog[i], nil
		}
	}
	return nil, fmt.Errorf("no requests found for path: %s", path)
}
