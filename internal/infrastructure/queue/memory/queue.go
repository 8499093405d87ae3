// Package memory provides a channel-backed job queue for tests and
// single-node runs. It keeps the queue contract but offers no durability;
// production deployments use the NATS or Kafka backend.
package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/belugamedia/beluga/internal/importer/domain"
	"github.com/belugamedia/beluga/internal/infrastructure/queue"
	"github.com/belugamedia/beluga/pkg/interfaces"
)

// Queue is an in-memory FIFO job queue safe for concurrent producers and a
// pool of consumers.
type Queue struct {
	jobs   chan *domain.ImportJob
	logger interfaces.Logger
}

// NewQueue creates an in-memory queue with the given buffer size.
func NewQueue(size int, logger interfaces.Logger) *Queue {
	if size <= 0 {
		size = 128
	}
	return &Queue{
		jobs:   make(chan *domain.ImportJob, size),
		logger: logger,
	}
}

// Enqueue pushes a job and returns its identifier.
func (q *Queue) Enqueue(ctx context.Context, job *domain.ImportJob) (string, error) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	select {
	case q.jobs <- job:
		return job.JobID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Consume feeds jobs to the handler until the context is cancelled. Handler
// failures are logged and the job is dropped; redelivery is a property of the
// broker backends only.
func (q *Queue) Consume(ctx context.Context, handler queue.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-q.jobs:
			if err := handler(ctx, job); err != nil {
				q.logger.Error("Import job handler failed",
					interfaces.String("job_id", job.JobID),
					interfaces.Error(err))
			}
		}
	}
}

// Len reports the number of jobs waiting in the queue.
func (q *Queue) Len() int {
	return len(q.jobs)
}
