package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/belugamedia/beluga/pkg/errors"
	"github.com/belugamedia/beluga/pkg/repository"
)

// GormMediaStore persists media metadata, history, reviews, and collections.
type GormMediaStore struct {
	db *gorm.DB
}

// NewGormMediaStore creates a new GORM-backed media store.
func NewGormMediaStore(db *gorm.DB) *GormMediaStore {
	return &GormMediaStore{db: db}
}

// FindMetadata looks up a metadata row by its provider identity.
func (s *GormMediaStore) FindMetadata(ctx context.Context, lot, provider, identifier string) (*MetadataModel, error) {
	return repository.FindOneBy[MetadataModel](ctx, s.db,
		"lot = ? AND provider = ? AND identifier = ?", lot, provider, identifier)
}

// CreateMetadata inserts a metadata row. On an identity conflict the existing
// row is returned instead, so concurrent commits of the same media converge.
func (s *GormMediaStore) CreateMetadata(ctx context.Context, model *MetadataModel) (*MetadataModel, error) {
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	err := repository.Create(ctx, s.db, model)
	if err == nil {
		return model, nil
	}
	if pkgerrors.IsConflict(err) {
		return s.FindMetadata(ctx, model.Lot, model.Provider, model.Identifier)
	}
	return nil, err
}

// UpdateMetadata saves changes to an existing metadata row.
func (s *GormMediaStore) UpdateMetadata(ctx context.Context, model *MetadataModel) error {
	return repository.Update(ctx, s.db, model)
}

// CreateSeen inserts a watched/read record.
func (s *GormMediaStore) CreateSeen(ctx context.Context, model *SeenModel) error {
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	return repository.Create(ctx, s.db, model)
}

// CreateReview inserts a review record.
func (s *GormMediaStore) CreateReview(ctx context.Context, model *ReviewModel) error {
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	return repository.Create(ctx, s.db, model)
}

// UpsertCollection creates the user's collection or updates its description.
func (s *GormMediaStore) UpsertCollection(ctx context.Context, model *CollectionModel) error {
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "updated_at"}),
	}).Create(model).Error
}

// FindCollection looks up a user's collection by name.
func (s *GormMediaStore) FindCollection(ctx context.Context, userID uuid.UUID, name string) (*CollectionModel, error) {
	return repository.FindOneBy[CollectionModel](ctx, s.db,
		"user_id = ? AND name = ?", userID, name)
}

// AddCollectionEntry links metadata into a collection. Re-adding an existing
// member is a no-op.
func (s *GormMediaStore) AddCollectionEntry(ctx context.Context, model *CollectionEntryModel) error {
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	err := repository.Create(ctx, s.db, model)
	if err != nil && pkgerrors.IsConflict(err) {
		return nil
	}
	return err
}

// CreateSummaryJob records a pending summary recalculation.
func (s *GormMediaStore) CreateSummaryJob(ctx context.Context, model *SummaryJobModel) error {
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	return repository.Create(ctx, s.db, model)
}

// PendingSummaryJobExists reports whether the user already has an
// unprocessed recalculation queued.
func (s *GormMediaStore) PendingSummaryJobExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	_, err := repository.FindOneBy[SummaryJobModel](ctx, s.db,
		"user_id = ? AND processed_on IS NULL", userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || pkgerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
