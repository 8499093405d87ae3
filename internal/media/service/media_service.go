// Package service implements the media bounded context consumed by the
// import pipeline: committed metadata, seen history, reviews, collections,
// and user summary bookkeeping.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/belugamedia/beluga/internal/importer/domain"
	"github.com/belugamedia/beluga/internal/media/repository"
	"github.com/belugamedia/beluga/pkg/errors"
	"github.com/belugamedia/beluga/pkg/interfaces"
)

// MediaService owns committed media and the user activity recorded against
// it.
type MediaService struct {
	store  *repository.GormMediaStore
	logger interfaces.Logger
}

// NewMediaService creates a new media service.
func NewMediaService(store *repository.GormMediaStore, logger interfaces.Logger) *MediaService {
	return &MediaService{
		store:  store,
		logger: logger,
	}
}

// CommitMedia commits media known only by its external identifier. The row
// is created partial; a later metadata refresh resolves the full details
// against the provider.
func (s *MediaService) CommitMedia(ctx context.Context, lot domain.MediaLot, provider domain.MediaProvider, identifier string) (*domain.MediaRecord, error) {
	if identifier == "" {
		return nil, errors.Validation("media identifier is required")
	}

	existing, err := s.store.FindMetadata(ctx, string(lot), string(provider), identifier)
	if err == nil {
		return toRecord(existing), nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	model, err := s.store.CreateMetadata(ctx, &repository.MetadataModel{
		Lot:        string(lot),
		Provider:   string(provider),
		Identifier: identifier,
		IsPartial:  true,
	})
	if err != nil {
		return nil, errors.ProviderCommit("failed to commit media", err)
	}

	s.logger.Debug("Committed partial media",
		interfaces.String("lot", string(lot)),
		interfaces.String("provider", string(provider)),
		interfaces.String("identifier", identifier))

	return toRecord(model), nil
}

// CommitMediaInternal commits media whose details are already complete. An
// existing partial row for the same identity is filled in rather than
// duplicated.
func (s *MediaService) CommitMediaInternal(ctx context.Context, details *domain.MediaDetails) (*domain.MediaRecord, error) {
	if details == nil || details.Identifier == "" {
		return nil, errors.Validation("media details with an identifier are required")
	}

	existing, err := s.store.FindMetadata(ctx, string(details.Lot), string(details.Provider), details.Identifier)
	if err == nil {
		if existing.IsPartial {
			applyDetails(existing, details)
			if err := s.store.UpdateMetadata(ctx, existing); err != nil {
				return nil, errors.ProviderCommit("failed to fill partial media", err)
			}
		}
		return toRecord(existing), nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	model := &repository.MetadataModel{
		Lot:        string(details.Lot),
		Provider:   string(details.Provider),
		Identifier: details.Identifier,
	}
	applyDetails(model, details)
	model, err = s.store.CreateMetadata(ctx, model)
	if err != nil {
		return nil, errors.ProviderCommit("failed to commit media", err)
	}

	return toRecord(model), nil
}

// ProgressUpdate records one watched/read entry.
func (s *MediaService) ProgressUpdate(ctx context.Context, userID uuid.UUID, input domain.ProgressUpdateInput) error {
	if input.MetadataID == uuid.Nil {
		return errors.Validation("metadata id is required")
	}

	progress := 0
	if input.Progress != nil {
		progress = *input.Progress
	}
	return s.store.CreateSeen(ctx, &repository.SeenModel{
		UserID:               userID,
		MetadataID:           input.MetadataID,
		Progress:             progress,
		FinishedOn:           input.Date,
		ShowSeasonNumber:     input.ShowSeasonNumber,
		ShowEpisodeNumber:    input.ShowEpisodeNumber,
		PodcastEpisodeNumber: input.PodcastEpisodeNumber,
	})
}

// PostReview posts a review on behalf of the user.
func (s *MediaService) PostReview(ctx context.Context, userID uuid.UUID, input domain.PostReviewInput) error {
	if input.MetadataID == uuid.Nil {
		return errors.Validation("metadata id is required")
	}
	if input.Rating == nil && (input.Text == nil || *input.Text == "") {
		return errors.Validation("a review needs a rating or text")
	}

	model := &repository.ReviewModel{
		UserID:     userID,
		MetadataID: input.MetadataID,
		Rating:     input.Rating,
		PostedOn:   time.Now().UTC(),
	}
	if input.Text != nil {
		model.Text = *input.Text
	}
	if input.Spoiler != nil {
		model.Spoiler = *input.Spoiler
	}
	if input.Date != nil {
		model.PostedOn = input.Date.UTC()
	}
	return s.store.CreateReview(ctx, model)
}

// CreateOrUpdateCollection upserts a collection by name.
func (s *MediaService) CreateOrUpdateCollection(ctx context.Context, userID uuid.UUID, input domain.CreateOrUpdateCollectionInput) error {
	if input.Name == "" {
		return errors.Validation("collection name is required")
	}
	return s.store.UpsertCollection(ctx, &repository.CollectionModel{
		UserID:      userID,
		Name:        input.Name,
		Description: input.Description,
	})
}

// AddMediaToCollection adds committed media to a named collection.
func (s *MediaService) AddMediaToCollection(ctx context.Context, userID uuid.UUID, input domain.AddMediaToCollectionInput) error {
	collection, err := s.store.FindCollection(ctx, userID, input.CollectionName)
	if err != nil {
		return err
	}
	return s.store.AddCollectionEntry(ctx, &repository.CollectionEntryModel{
		CollectionID: collection.ID,
		MetadataID:   input.MediaID,
	})
}

// DeployRecalculateSummaryJob queues a summary recalculation. A pending job
// for the user collapses repeated requests.
func (s *MediaService) DeployRecalculateSummaryJob(ctx context.Context, userID uuid.UUID) error {
	pending, err := s.store.PendingSummaryJobExists(ctx, userID)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}
	return s.store.CreateSummaryJob(ctx, &repository.SummaryJobModel{
		UserID:      userID,
		ScheduledOn: time.Now().UTC(),
	})
}

func toRecord(model *repository.MetadataModel) *domain.MediaRecord {
	return &domain.MediaRecord{
		ID:         model.ID,
		Identifier: model.Identifier,
		Lot:        domain.MediaLot(model.Lot),
	}
}

func applyDetails(model *repository.MetadataModel, details *domain.MediaDetails) {
	model.Title = details.Title
	model.Description = details.Description
	model.PublishYear = details.PublishYear
	model.IsPartial = false
	if len(details.Creators) > 0 {
		model.Creators, _ = json.Marshal(details.Creators)
	}
	if len(details.Genres) > 0 {
		model.Genres, _ = json.Marshal(details.Genres)
	}
	if len(details.Images) > 0 {
		model.Images, _ = json.Marshal(details.Images)
	}
}
