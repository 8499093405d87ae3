package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/belugamedia/beluga/internal/importer/domain"
)

// MediaService is the collaborator that owns committed media, progress,
// reviews, and collections. The importer consumes it; its implementation
// lives with the media bounded context.
type MediaService interface {
	// CommitMedia resolves an external identifier against the metadata
	// provider and commits the result. May perform network I/O.
	CommitMedia(ctx context.Context, lot domain.MediaLot, provider domain.MediaProvider, identifier string) (*domain.MediaRecord, error)

	// CommitMediaInternal commits already-complete details directly.
	CommitMediaInternal(ctx context.Context, details *domain.MediaDetails) (*domain.MediaRecord, error)

	// ProgressUpdate records one watched/read entry for the user.
	ProgressUpdate(ctx context.Context, userID uuid.UUID, input domain.ProgressUpdateInput) error

	// PostReview posts a review on behalf of the user.
	PostReview(ctx context.Context, userID uuid.UUID, input domain.PostReviewInput) error

	// CreateOrUpdateCollection upserts a collection by name.
	CreateOrUpdateCollection(ctx context.Context, userID uuid.UUID, input domain.CreateOrUpdateCollectionInput) error

	// AddMediaToCollection adds committed media to a named collection.
	AddMediaToCollection(ctx context.Context, userID uuid.UUID, input domain.AddMediaToCollectionInput) error

	// DeployRecalculateSummaryJob queues a summary recalculation for the user.
	DeployRecalculateSummaryJob(ctx context.Context, userID uuid.UUID) error
}

// JobQueue accepts import jobs for asynchronous processing. Implementations
// are durable and deliver at least once; identical submissions are not
// deduplicated.
type JobQueue interface {
	// Enqueue pushes a job and returns its opaque identifier.
	Enqueue(ctx context.Context, job *domain.ImportJob) (string, error)
}
