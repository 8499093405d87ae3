// Package queue defines the durable import job queue contract shared by the
// broker-backed and in-memory implementations.
package queue

import (
	"context"

	"github.com/belugamedia/beluga/internal/importer/domain"
)

// Handler processes one delivered import job. Returning an error signals the
// backend that delivery failed and the job may be redelivered.
type Handler func(ctx context.Context, job *domain.ImportJob) error

// Producer pushes import jobs onto the queue. Delivery is at-least-once and
// identical submissions are not deduplicated.
type Producer interface {
	// Enqueue pushes a job and returns its opaque identifier.
	Enqueue(ctx context.Context, job *domain.ImportJob) (string, error)
}

// Consumer delivers queued jobs to a handler until the context is cancelled.
type Consumer interface {
	// Consume blocks, feeding jobs to the handler.
	Consume(ctx context.Context, handler Handler) error
}
