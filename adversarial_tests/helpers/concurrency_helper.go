package helpers

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// GoroutineSnapshot captures the state of goroutines at a point in time
type GoroutineSnapshot struct {
	Count     int
	Timestamp time.Time
}

// TakeGoroutineSnapshot captures current goroutine count
func TakeGoroutineSnapshot() *GoroutineSnapshot {
	return &GoroutineSnapshot{
		Count:     runtime.NumGoroutine(),
		Timestamp: time.Now(),
	}
}

// WaitForGoroutineCleanup waits until the goroutine count is back within
// tolerance of before, retrying with GC.
func WaitForGoroutineCleanup(before *GoroutineSnapshot, maxWait time.Duration, tolerance int) error {
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		if runtime.NumGoroutine()-before.Count <= tolerance {
			return nil
		}
		runtime.GC()
		time.Sleep(50 * time.Millisecond)
	}

	final := runtime.NumGoroutine()
	return fmt.Errorf("goroutines did not clean up within %v: started with %d, ended with %d (tolerance %d)",
		maxWait, before.Count, final, tolerance)
}

// DeadlockDetector helps detect potential deadlocks in concurrent operations
type DeadlockDetector struct {
	timeout time.Duration
}

// NewDeadlockDetector creates a new deadlock detector
func NewDeadlockDetector(timeout time.Duration) *DeadlockDetector {
	return &DeadlockDetector{timeout: timeout}
}

// Run executes the function with deadlock detection
func (dd *DeadlockDetector) Run(fn func() error) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- fn()
	}()

	select {
	case err := <-errChan:
		return err
	case <-time.After(dd.timeout):
		return fmt.Errorf("operation timed out after %v (possible deadlock)", dd.timeout)
	}
}

// InFlightTracker records how many requests a test server handles at once,
// overall and per path.
type InFlightTracker struct {
	current atomic.Int32
	peak    atomic.Int32
	total   atomic.Int32

	mu      sync.Mutex
	perPath map[string]int
	peaks   map[string]int
}

// NewInFlightTracker creates an empty tracker
func NewInFlightTracker() *InFlightTracker {
	return &InFlightTracker{
		perPath: make(map[string]int),
		peaks:   make(map[string]int),
	}
}

// Enter marks a request on path as started. Call the returned func when it ends.
func (t *InFlightTracker) Enter(path string) (leave func()) {
	t.total.Add(1)
	cur := t.current.Add(1)
	for {
		peak := t.peak.Load()
		if cur <= peak || t.peak.CompareAndSwap(peak, cur) {
			break
		}
	}

	t.mu.Lock()
	t.perPath[path]++
	if t.perPath[path] > t.peaks[path] {
		t.peaks[path] = t.perPath[path]
	}
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		t.perPath[path]--
		t.mu.Unlock()
		t.current.Add(-1)
	}
}

// Peak returns the highest overall concurrency observed
func (t *InFlightTracker) Peak() int {
	return int(t.peak.Load())
}

// PeakFor returns the highest concurrency observed on path
func (t *InFlightTracker) PeakFor(path string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peaks[path]
}

// Total returns the number of requests seen
func (t *InFlightTracker) Total() int {
	return int(t.total.Load())
}

// GenerateMaliciousRateHeaders creates pathological rate limit header
// combinations. None of them may stall the client.
func GenerateMaliciousRateHeaders() map[string]map[string]string {
	return map[string]map[string]string{
		"nan_remaining": {
			"X-Rate-Limit-Remaining": "NaN",
			"X-Rate-Limit-Reset":     "9999999999",
		},
		"float_remaining": {
			"X-Rate-Limit-Remaining": "0.0",
			"X-Rate-Limit-Reset":     "9999999999",
		},
		"huge_negative_remaining_past_reset": {
			"X-Rate-Limit-Remaining": "-9999999999",
			"X-Rate-Limit-Reset":     "1",
		},
		"negative_reset": {
			"X-Rate-Limit-Remaining": "0",
			"X-Rate-Limit-Reset":     "-60",
		},
		"zero_reset": {
			"X-Rate-Limit-Remaining": "0",
			"X-Rate-Limit-Reset":     "0",
		},
		"reset_in_the_past": {
			"X-Rate-Limit-Remaining": "0",
			"X-Rate-Limit-Reset":     "1000000000",
		},
		"invalid_format_remaining": {
			"X-Rate-Limit-Remaining": "not_a_number",
			"X-Rate-Limit-Reset":     "9999999999",
		},
		"invalid_format_reset": {
			"X-Rate-Limit-Remaining": "0",
			"X-Rate-Limit-Reset":     "not_a_number",
		},
		"overflowing_reset": {
			"X-Rate-Limit-Remaining": "0",
			"X-Rate-Limit-Reset":     "99999999999999999999999",
		},
		"missing_remaining": {
			"X-Rate-Limit-Reset": "9999999999",
		},
		"missing_reset": {
			"X-Rate-Limit-Remaining": "0",
		},
		"empty_headers": {},
	}
}
