package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/belugamedia/beluga/internal/importer/domain"
)

// CreateTestDeployInput creates a valid MediaTracker submission.
func CreateTestDeployInput(apiURL string) domain.DeployImportInput {
	return domain.DeployImportInput{
		Source: domain.ImportSourceMediaTracker,
		MediaTracker: &domain.DeployMediaTrackerImportInput{
			APIURL: apiURL,
			APIKey: "test-token",
		},
	}
}

// CreateTestGoodreadsInput creates a valid Goodreads submission.
func CreateTestGoodreadsInput(rssURL string) domain.DeployImportInput {
	return domain.DeployImportInput{
		Source: domain.ImportSourceGoodreads,
		Goodreads: &domain.DeployGoodreadsImportInput{
			RSSURL: rssURL,
		},
	}
}

// CreateTestCanonicalItem creates an identifier-only item with one finished
// seen entry.
func CreateTestCanonicalItem(sourceID string) domain.CanonicalItem {
	endedOn := time.Now().UTC().Add(-24 * time.Hour)
	return domain.CanonicalItem{
		SourceID:   sourceID,
		Lot:        domain.MediaLotMovie,
		Provider:   domain.MediaProviderTmdb,
		Identifier: domain.NeedsDetails(sourceID),
		SeenHistory: []domain.SeenEntry{
			{EndedOn: &endedOn},
		},
	}
}

// CreateTestFilledItem creates an item whose details are already complete.
func CreateTestFilledItem(identifier, title string) domain.CanonicalItem {
	return domain.CanonicalItem{
		SourceID: identifier,
		Lot:      domain.MediaLotBook,
		Provider: domain.MediaProviderGoodreads,
		Identifier: domain.AlreadyFilled(&domain.MediaDetails{
			Identifier: identifier,
			Title:      title,
			Lot:        domain.MediaLotBook,
			Provider:   domain.MediaProviderGoodreads,
		}),
	}
}

// CreateTestImportResult creates a result with n identifier-only items and no
// collections.
func CreateTestImportResult(n int) *domain.ImportResult {
	result := &domain.ImportResult{}
	for i := 0; i < n; i++ {
		result.Items = append(result.Items, CreateTestCanonicalItem(fmt.Sprintf("item-%d", i)))
	}
	return result
}

// CreateTestReport creates a running report started at the given time.
func CreateTestReport(userID uuid.UUID, startedOn time.Time) *domain.ImportReport {
	return &domain.ImportReport{
		ID:        uuid.New(),
		UserID:    userID,
		Source:    domain.ImportSourceMediaTracker,
		StartedOn: startedOn,
	}
}

// CreateTestMediaRecord creates a committed media record.
func CreateTestMediaRecord(identifier string) *domain.MediaRecord {
	return &domain.MediaRecord{
		ID:         uuid.New(),
		Identifier: identifier,
		Lot:        domain.MediaLotMovie,
	}
}
