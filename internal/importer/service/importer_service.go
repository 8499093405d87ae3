package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/belugamedia/beluga/internal/importer/domain"
	"github.com/belugamedia/beluga/internal/importer/repository"
	"github.com/belugamedia/beluga/internal/importer/source"
	"github.com/belugamedia/beluga/pkg/errors"
	"github.com/belugamedia/beluga/pkg/interfaces"
)

// DefaultStaleThreshold is how long a report may stay in the running state
// before the reconciler presumes its worker dead.
const DefaultStaleThreshold = 24 * time.Hour

// ImporterService orchestrates history imports: it validates and enqueues
// submissions, runs the commit pipeline for dequeued jobs, answers report
// queries, and invalidates reports whose jobs silently died.
type ImporterService struct {
	store      repository.ReportStore
	media      MediaService
	queue      JobQueue
	adapters   *source.Registry
	logger     interfaces.Logger
	staleAfter time.Duration
}

// NewImporterService creates a new importer service. A zero staleAfter falls
// back to DefaultStaleThreshold.
func NewImporterService(
	store repository.ReportStore,
	media MediaService,
	queue JobQueue,
	adapters *source.Registry,
	logger interfaces.Logger,
	staleAfter time.Duration,
) *ImporterService {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleThreshold
	}
	return &ImporterService{
		store:      store,
		media:      media,
		queue:      queue,
		adapters:   adapters,
		logger:     logger,
		staleAfter: staleAfter,
	}
}

// DeployImport validates and normalizes a submission, then enqueues it. It
// returns the opaque job identifier and does not wait for the import to run.
func (s *ImporterService) DeployImport(ctx context.Context, userID uuid.UUID, input domain.DeployImportInput) (string, error) {
	if err := validateDeployInput(input); err != nil {
		return "", err
	}
	normalizeDeployInput(&input)

	jobID, err := s.queue.Enqueue(ctx, &domain.ImportJob{
		UserID: userID,
		Input:  input,
	})
	if err != nil {
		s.logger.Error("Failed to enqueue import job",
			interfaces.String("user_id", userID.String()),
			interfaces.String("source", string(input.Source)),
			interfaces.Error(err))
		return "", err
	}

	s.logger.Info("Import job deployed",
		interfaces.String("job_id", jobID),
		interfaces.String("user_id", userID.String()),
		interfaces.String("source", string(input.Source)))

	return jobID, nil
}

// validateDeployInput checks that exactly one provider payload is present and
// that it matches the declared source.
func validateDeployInput(input domain.DeployImportInput) error {
	payloads := 0
	if input.MediaTracker != nil {
		payloads++
	}
	if input.Goodreads != nil {
		payloads++
	}
	if payloads != 1 {
		return errors.Validation("exactly one provider payload must be supplied")
	}

	switch input.Source {
	case domain.ImportSourceMediaTracker:
		if input.MediaTracker == nil {
			return errors.Validation("media_tracker payload required for source media_tracker")
		}
	case domain.ImportSourceGoodreads:
		if input.Goodreads == nil {
			return errors.Validation("goodreads payload required for source goodreads")
		}
	default:
		return errors.Validation("unsupported import source")
	}
	return nil
}

// normalizeDeployInput trims trailing path separators from provider URLs.
func normalizeDeployInput(input *domain.DeployImportInput) {
	if input.MediaTracker != nil {
		input.MediaTracker.APIURL = strings.TrimRight(input.MediaTracker.APIURL, "/")
	}
	if input.Goodreads != nil {
		input.Goodreads.RSSURL = strings.TrimRight(input.Goodreads.RSSURL, "/")
	}
}

// Reports returns the user's import reports, newest first.
func (s *ImporterService) Reports(ctx context.Context, userID uuid.UUID) ([]*domain.ImportReport, error) {
	return s.store.ListReportsByUser(ctx, userID)
}

// ImportFromSource runs the commit pipeline for one dequeued job. The report
// row is created before any provider I/O so the job is observable as running
// and the reconciler has a target if this worker dies. Within the job, steps
// run strictly sequentially; items are committed one at a time in their
// original order.
func (s *ImporterService) ImportFromSource(ctx context.Context, userID uuid.UUID, input domain.DeployImportInput) error {
	report := &domain.ImportReport{
		UserID:    userID,
		Source:    input.Source,
		StartedOn: time.Now().UTC(),
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return err
	}
	log := s.logger.WithFields(
		interfaces.String("report_id", report.ID.String()),
		interfaces.String("user_id", userID.String()),
		interfaces.String("source", string(input.Source)))

	result, err := s.fetchFromSource(ctx, input)
	if err != nil {
		// A fetch failure is not isolated per item: the whole job aborts.
		log.Error("Source fetch failed", interfaces.Error(err))
		report.FailedItems = append(report.FailedItems, domain.FailedItem{
			Step:       domain.FailStepFetchFromSource,
			Identifier: string(input.Source),
			Error:      err.Error(),
		})
		return s.finalize(ctx, report, false)
	}

	for _, col := range result.Collections {
		if err := s.media.CreateOrUpdateCollection(ctx, userID, col); err != nil {
			// Same severity as a fetch failure: the whole job aborts.
			log.Error("Collection upsert failed",
				interfaces.String("collection", col.Name),
				interfaces.Error(err))
			if ferr := s.finalize(ctx, report, false); ferr != nil {
				return ferr
			}
			return errors.Wrap(errors.ErrorTypeInternal, "collection upsert aborted import", err)
		}
	}

	for idx, item := range result.Items {
		log.Debug("Importing item",
			interfaces.Int("index", idx),
			interfaces.String("identifier", item.SourceID))

		metadata, err := s.commitItem(ctx, &item)
		if err != nil {
			// Isolated per item: record and move on.
			log.Error("Failed to commit item",
				interfaces.String("identifier", item.SourceID),
				interfaces.Error(err))
			result.FailedItems = append(result.FailedItems, domain.FailedItem{
				Lot:        item.Lot,
				Step:       domain.FailStepCommitToProvider,
				Identifier: item.SourceID,
				Error:      err.Error(),
			})
			continue
		}

		if err := s.replayItem(ctx, userID, &item, metadata, log); err != nil {
			// Replay failures propagate without finalizing; the report stays
			// running and is picked up by the reconciliation sweep.
			return err
		}

		log.Debug("Imported item",
			interfaces.Int("index", idx),
			interfaces.String("lot", string(item.Lot)),
			interfaces.Int("seen_entries", len(item.SeenHistory)),
			interfaces.Int("reviews", len(item.Reviews)))
	}

	if err := s.media.DeployRecalculateSummaryJob(ctx, userID); err != nil {
		// Best effort only.
		log.Warn("Failed to deploy summary recalculation", interfaces.Error(err))
	}

	total := len(result.Items) - len(result.FailedItems)
	if total < 0 {
		total = 0
	}
	report.Details.TotalImported = total
	report.FailedItems = result.FailedItems

	log.Info("Import finished",
		interfaces.Int("total_imported", total),
		interfaces.Int("failed_items", len(result.FailedItems)))

	return s.finalize(ctx, report, true)
}

// fetchFromSource dispatches to the adapter matching the declared source.
func (s *ImporterService) fetchFromSource(ctx context.Context, input domain.DeployImportInput) (*domain.ImportResult, error) {
	adapter, err := s.adapters.Resolve(input.Source)
	if err != nil {
		return nil, err
	}
	return adapter.Import(ctx, input)
}

// commitItem resolves an item to committed media. An item with details
// already filled never goes through identifier-based resolution.
func (s *ImporterService) commitItem(ctx context.Context, item *domain.CanonicalItem) (*domain.MediaRecord, error) {
	if item.Identifier.AlreadyFilled != nil {
		return s.media.CommitMediaInternal(ctx, item.Identifier.AlreadyFilled)
	}
	return s.media.CommitMedia(ctx, item.Lot, item.Provider, item.Identifier.NeedsDetails)
}

// replayItem replays an item's seen history, reviews, and collection
// memberships against the committed media record.
func (s *ImporterService) replayItem(
	ctx context.Context,
	userID uuid.UUID,
	item *domain.CanonicalItem,
	metadata *domain.MediaRecord,
	log interfaces.Logger,
) error {
	progress := 100
	for _, seen := range item.SeenHistory {
		input := domain.ProgressUpdateInput{
			Identifier:           seen.ID,
			MetadataID:           metadata.ID,
			Progress:             &progress,
			Date:                 seen.EndedOn,
			ShowSeasonNumber:     seen.ShowSeasonNumber,
			ShowEpisodeNumber:    seen.ShowEpisodeNumber,
			PodcastEpisodeNumber: seen.PodcastEpisodeNumber,
		}
		if err := s.media.ProgressUpdate(ctx, userID, input); err != nil {
			return err
		}
	}

	for _, review := range item.Reviews {
		input := domain.PostReviewInput{
			Identifier: review.ID,
			MetadataID: metadata.ID,
			Rating:     review.Rating,
		}
		if review.Review != nil {
			input.Text = &review.Review.Text
			input.Spoiler = &review.Review.Spoiler
			input.Date = review.Review.Date
		}
		if err := s.media.PostReview(ctx, userID, input); err != nil {
			return err
		}
	}

	for _, col := range item.Collections {
		if err := s.media.CreateOrUpdateCollection(ctx, userID, domain.CreateOrUpdateCollectionInput{Name: col}); err != nil {
			return err
		}
		err := s.media.AddMediaToCollection(ctx, userID, domain.AddMediaToCollectionInput{
			CollectionName: col,
			MediaID:        metadata.ID,
		})
		if err != nil {
			// Swallowed: membership is nice to have, the item is already in.
			log.Warn("Failed to add media to collection",
				interfaces.String("collection", col),
				interfaces.String("identifier", item.SourceID),
				interfaces.Error(err))
		}
	}

	return nil
}

// finalize records the single transition of the report's tri-state success
// out of the running state.
func (s *ImporterService) finalize(ctx context.Context, report *domain.ImportReport, success bool) error {
	now := time.Now().UTC()
	report.Success = &success
	report.FinishedOn = &now
	return s.store.UpdateReport(ctx, report)
}

// InvalidateStaleReports marks long-running, still-unset reports as failed.
// It is bookkeeping only: the original worker may be unreachable, so nothing
// is retried or resumed. Re-running is idempotent because terminal reports
// never match the unset filter.
func (s *ImporterService) InvalidateStaleReports(ctx context.Context) (int, error) {
	stale, err := s.store.FindStaleReports(ctx, s.staleAfter)
	if err != nil {
		return 0, err
	}

	invalidated := 0
	for _, report := range stale {
		s.logger.Info("Invalidating stale import job",
			interfaces.String("report_id", report.ID.String()),
			interfaces.String("user_id", report.UserID.String()))
		failed := false
		report.Success = &failed
		if err := s.store.UpdateReport(ctx, report); err != nil {
			return invalidated, err
		}
		invalidated++
	}

	return invalidated, nil
}
