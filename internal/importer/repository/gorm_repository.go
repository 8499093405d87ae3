package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/belugamedia/beluga/internal/importer/domain"
	"github.com/belugamedia/beluga/pkg/repository"
)

// GormReportStore implements ReportStore using GORM.
type GormReportStore struct {
	db *gorm.DB
}

// NewGormReportStore creates a new GORM-backed report store.
func NewGormReportStore(db *gorm.DB) *GormReportStore {
	return &GormReportStore{db: db}
}

// CreateReport persists a new report row.
func (r *GormReportStore) CreateReport(ctx context.Context, report *domain.ImportReport) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	model, err := toModel(report)
	if err != nil {
		return err
	}
	return repository.Create(ctx, r.db, model)
}

// UpdateReport writes the report's mutable columns. The row was created by
// CreateReport; identity columns never change after that.
func (r *GormReportStore) UpdateReport(ctx context.Context, report *domain.ImportReport) error {
	model, err := toModel(report)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&ImportReportModel{}).
		Where("id = ?", report.ID).
		Updates(map[string]interface{}{
			"finished_on":    model.FinishedOn,
			"success":        model.Success,
			"total_imported": model.TotalImported,
			"failed_items":   model.FailedItems,
		}).Error
}

// GetReport retrieves a report by ID.
func (r *GormReportStore) GetReport(ctx context.Context, id uuid.UUID) (*domain.ImportReport, error) {
	model, err := repository.FindByID[ImportReportModel](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return model.toDomain()
}

// ListReportsByUser returns the user's reports, newest first.
func (r *GormReportStore) ListReportsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ImportReport, error) {
	var models []*ImportReportModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_on DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list import reports: %w", err)
	}
	return toDomainList(models)
}

// FindStaleReports returns reports whose success is still unset and whose
// start time is older than the threshold.
func (r *GormReportStore) FindStaleReports(ctx context.Context, threshold time.Duration) ([]*domain.ImportReport, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	var models []*ImportReportModel
	if err := r.db.WithContext(ctx).
		Where("success IS NULL AND started_on < ?", cutoff).
		Order("started_on").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find stale import reports: %w", err)
	}
	return toDomainList(models)
}

func toDomainList(models []*ImportReportModel) ([]*domain.ImportReport, error) {
	reports := make([]*domain.ImportReport, 0, len(models))
	for _, m := range models {
		report, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
