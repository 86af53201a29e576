package internal

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

// RouteQueues serializes jobs per route bucket. At most one job per bucket is in
// flight and waiting jobs are released in the order they arrived, whatever the
// outcome of the job ahead of them. Jobs on different buckets run concurrently.
// Stream jobs are long-lived and bypass the queues.
type RouteQueues struct {
	exec   Executor
	logger *slog.Logger

	mu     sync.Mutex
	queues map[string]*semaphore.Weighted
}

// NewRouteQueues wraps exec. A nil logger discards output.
func NewRouteQueues(exec Executor, logger *slog.Logger) *RouteQueues {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RouteQueues{
		exec:   exec,
		logger: logger,
		queues: make(map[string]*semaphore.Weighted),
	}
}

// Execute runs job once its bucket is free. A job whose context is cancelled
// while it waits leaves the queue without running.
func (q *RouteQueues) Execute(ctx context.Context, job *Job) (*Result, error) {
	if job.Stream {
		return q.exec.Execute(ctx, job)
	}

	key := job.Route.String()
	sem := q.queue(key)

	if err := sem.Acquire(ctx, 1); err != nil {
		q.logger.Debug("gave up waiting for route", "route", key, "error", err)
		return nil, &pkgerrs.RequestError{Operation: key, Message: "cancelled while queued", Err: err}
	}
	defer sem.Release(1)

	return q.exec.Execute(ctx, job)
}

func (q *RouteQueues) queue(key string) *semaphore.Weighted {
	q.mu.Lock()
	defer q.mu.Unlock()

	sem, ok := q.queues[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		q.queues[key] = sem
	}
	return sem
}

// Buckets lists the keys of every queue created so far, sorted.
func (q *RouteQueues) Buckets() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	keys := make([]string, 0, len(q.queues))
	for k := range q.queues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
