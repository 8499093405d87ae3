package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/belugamedia/beluga/internal/importer/domain"
)

// ReportStore is the durable ledger of import job lifecycle and outcome.
// Each running job owns exactly one report row; different jobs touch disjoint
// rows, so no cross-row coordination is needed.
type ReportStore interface {
	// CreateReport persists a new report and fills in its ID.
	CreateReport(ctx context.Context, report *domain.ImportReport) error

	// UpdateReport saves the full state of an existing report.
	UpdateReport(ctx context.Context, report *domain.ImportReport) error

	// GetReport retrieves a report by ID.
	GetReport(ctx context.Context, id uuid.UUID) (*domain.ImportReport, error)

	// ListReportsByUser returns the user's reports, newest first.
	ListReportsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ImportReport, error)

	// FindStaleReports returns reports whose success is still unset and whose
	// start time is older than the threshold.
	FindStaleReports(ctx context.Context, threshold time.Duration) ([]*domain.ImportReport, error)
}
