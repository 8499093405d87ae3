package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/belugamedia/beluga/internal/importer/domain"
)

// ImportReportModel is the database representation of an import report.
type ImportReportModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Source        string    `gorm:"type:varchar(50);not null"`
	StartedOn     time.Time `gorm:"not null;index"`
	FinishedOn    *time.Time
	Success       *bool  `gorm:"index"`
	TotalImported int    `gorm:"not null;default:0"`
	FailedItems   []byte `gorm:"type:jsonb"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the table name for ImportReportModel
func (ImportReportModel) TableName() string {
	return "media_import_reports"
}

// toModel converts a domain report to its database representation.
func toModel(report *domain.ImportReport) (*ImportReportModel, error) {
	failed, err := json.Marshal(report.FailedItems)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal failed items: %w", err)
	}
	return &ImportReportModel{
		ID:            report.ID,
		UserID:        report.UserID,
		Source:        string(report.Source),
		StartedOn:     report.StartedOn,
		FinishedOn:    report.FinishedOn,
		Success:       report.Success,
		TotalImported: report.Details.TotalImported,
		FailedItems:   failed,
	}, nil
}

// toDomain converts a database row back into a domain report.
func (m *ImportReportModel) toDomain() (*domain.ImportReport, error) {
	var failed []domain.FailedItem
	if len(m.FailedItems) > 0 {
		if err := json.Unmarshal(m.FailedItems, &failed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failed items: %w", err)
		}
	}
	return &domain.ImportReport{
		ID:          m.ID,
		UserID:      m.UserID,
		Source:      domain.ImportSource(m.Source),
		StartedOn:   m.StartedOn,
		FinishedOn:  m.FinishedOn,
		Success:     m.Success,
		Details:     domain.ImportDetails{TotalImported: m.TotalImported},
		FailedItems: failed,
	}, nil
}
