package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/belugamedia/beluga/internal/importer/domain"
	"github.com/belugamedia/beluga/internal/importer/repository"
	"github.com/belugamedia/beluga/test/testutil"
)

type GormReportStoreTestSuite struct {
	suite.Suite

	ctx   context.Context
	db    *gorm.DB
	store repository.ReportStore
}

func (suite *GormReportStoreTestSuite) SetupTest() {
	suite.ctx = context.Background()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(&repository.ImportReportModel{}))

	suite.db = db
	suite.store = repository.NewGormReportStore(db)
}

func (suite *GormReportStoreTestSuite) TestCreateReport() {
	// Arrange
	report := &domain.ImportReport{
		UserID:    uuid.New(),
		Source:    domain.ImportSourceMediaTracker,
		StartedOn: time.Now().UTC(),
	}

	// Act
	err := suite.store.CreateReport(suite.ctx, report)

	// Assert
	suite.Require().NoError(err)
	suite.NotEqual(uuid.Nil, report.ID)

	retrieved, err := suite.store.GetReport(suite.ctx, report.ID)
	suite.Require().NoError(err)
	suite.Equal(report.UserID, retrieved.UserID)
	suite.Equal(domain.ImportSourceMediaTracker, retrieved.Source)
	suite.Nil(retrieved.Success)
	suite.Nil(retrieved.FinishedOn)
}

func (suite *GormReportStoreTestSuite) TestUpdateReport_FinalizesOnce() {
	// Arrange
	report := testutil.CreateTestReport(uuid.New(), time.Now().UTC())
	suite.Require().NoError(suite.store.CreateReport(suite.ctx, report))

	success := true
	finished := time.Now().UTC()
	report.Success = &success
	report.FinishedOn = &finished
	report.Details.TotalImported = 7
	report.FailedItems = []domain.FailedItem{
		{
			Lot:        domain.MediaLotMovie,
			Step:       domain.FailStepCommitToProvider,
			Identifier: "movie-2",
			Error:      "provider rejected item",
		},
	}

	// Act
	err := suite.store.UpdateReport(suite.ctx, report)

	// Assert
	suite.Require().NoError(err)

	retrieved, err := suite.store.GetReport(suite.ctx, report.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(retrieved.Success)
	suite.True(*retrieved.Success)
	suite.NotNil(retrieved.FinishedOn)
	suite.Equal(7, retrieved.Details.TotalImported)
	suite.Require().Len(retrieved.FailedItems, 1)
	suite.Equal("movie-2", retrieved.FailedItems[0].Identifier)
	suite.Equal(domain.FailStepCommitToProvider, retrieved.FailedItems[0].Step)
}

func (suite *GormReportStoreTestSuite) TestListReportsByUser_NewestFirst() {
	// Arrange: three reports for the user, one for somebody else
	userID := uuid.New()
	now := time.Now().UTC()
	for _, age := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		report := testutil.CreateTestReport(userID, now.Add(-age))
		report.ID = uuid.Nil
		suite.Require().NoError(suite.store.CreateReport(suite.ctx, report))
	}
	other := testutil.CreateTestReport(uuid.New(), now)
	other.ID = uuid.Nil
	suite.Require().NoError(suite.store.CreateReport(suite.ctx, other))

	// Act
	reports, err := suite.store.ListReportsByUser(suite.ctx, userID)

	// Assert
	suite.Require().NoError(err)
	suite.Require().Len(reports, 3)
	for i := 1; i < len(reports); i++ {
		suite.True(reports[i-1].StartedOn.After(reports[i].StartedOn) ||
			reports[i-1].StartedOn.Equal(reports[i].StartedOn))
	}
}

func (suite *GormReportStoreTestSuite) TestFindStaleReports() {
	// Arrange: one stale running report, one fresh running, one old finished
	userID := uuid.New()
	now := time.Now().UTC()

	stale := testutil.CreateTestReport(userID, now.Add(-25*time.Hour))
	stale.ID = uuid.Nil
	suite.Require().NoError(suite.store.CreateReport(suite.ctx, stale))

	fresh := testutil.CreateTestReport(userID, now.Add(-time.Hour))
	fresh.ID = uuid.Nil
	suite.Require().NoError(suite.store.CreateReport(suite.ctx, fresh))

	finished := testutil.CreateTestReport(userID, now.Add(-48*time.Hour))
	finished.ID = uuid.Nil
	suite.Require().NoError(suite.store.CreateReport(suite.ctx, finished))
	success := true
	finishedOn := now.Add(-47 * time.Hour)
	finished.Success = &success
	finished.FinishedOn = &finishedOn
	suite.Require().NoError(suite.store.UpdateReport(suite.ctx, finished))

	// Act
	found, err := suite.store.FindStaleReports(suite.ctx, 24*time.Hour)

	// Assert: only the still-running report past the threshold
	suite.Require().NoError(err)
	suite.Require().Len(found, 1)
	suite.Equal(stale.ID, found[0].ID)
	suite.Nil(found[0].Success)
}

func (suite *GormReportStoreTestSuite) TestFindStaleReports_IdempotentAfterInvalidation() {
	// Arrange
	userID := uuid.New()
	stale := testutil.CreateTestReport(userID, time.Now().UTC().Add(-25*time.Hour))
	stale.ID = uuid.Nil
	suite.Require().NoError(suite.store.CreateReport(suite.ctx, stale))

	found, err := suite.store.FindStaleReports(suite.ctx, 24*time.Hour)
	suite.Require().NoError(err)
	suite.Require().Len(found, 1)

	failed := false
	found[0].Success = &failed
	suite.Require().NoError(suite.store.UpdateReport(suite.ctx, found[0]))

	// Act: a second sweep sees nothing
	found, err = suite.store.FindStaleReports(suite.ctx, 24*time.Hour)

	// Assert
	suite.Require().NoError(err)
	suite.Empty(found)
}

func (suite *GormReportStoreTestSuite) TestGetReport_NotFound() {
	// Act
	_, err := suite.store.GetReport(suite.ctx, uuid.New())

	// Assert
	suite.Require().Error(err)
}

func TestGormReportStoreTestSuite(t *testing.T) {
	suite.Run(t, new(GormReportStoreTestSuite))
}
