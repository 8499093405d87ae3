package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/belugamedia/beluga/internal/importer/domain"
	"github.com/belugamedia/beluga/internal/importer/service"
	"github.com/belugamedia/beluga/internal/importer/source"
	"github.com/belugamedia/beluga/pkg/errors"
	"github.com/belugamedia/beluga/pkg/logger"
	"github.com/belugamedia/beluga/test/testutil"
)

// MockReportStore is a mock for the report store
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) CreateReport(ctx context.Context, report *domain.ImportReport) error {
	args := m.Called(ctx, report)
	if args.Error(0) == nil && report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockReportStore) UpdateReport(ctx context.Context, report *domain.ImportReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportStore) GetReport(ctx context.Context, id uuid.UUID) (*domain.ImportReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportReport), args.Error(1)
}

func (m *MockReportStore) ListReportsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ImportReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ImportReport), args.Error(1)
}

func (m *MockReportStore) FindStaleReports(ctx context.Context, threshold time.Duration) ([]*domain.ImportReport, error) {
	args := m.Called(ctx, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ImportReport), args.Error(1)
}

// MockMediaService is a mock for the media service collaborator
type MockMediaService struct {
	mock.Mock
}

func (m *MockMediaService) CommitMedia(ctx context.Context, lot domain.MediaLot, provider domain.MediaProvider, identifier string) (*domain.MediaRecord, error) {
	args := m.Called(ctx, lot, provider, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MediaRecord), args.Error(1)
}

func (m *MockMediaService) CommitMediaInternal(ctx context.Context, details *domain.MediaDetails) (*domain.MediaRecord, error) {
	args := m.Called(ctx, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MediaRecord), args.Error(1)
}

func (m *MockMediaService) ProgressUpdate(ctx context.Context, userID uuid.UUID, input domain.ProgressUpdateInput) error {
	args := m.Called(ctx, userID, input)
	return args.Error(0)
}

func (m *MockMediaService) PostReview(ctx context.Context, userID uuid.UUID, input domain.PostReviewInput) error {
	args := m.Called(ctx, userID, input)
	return args.Error(0)
}

func (m *MockMediaService) CreateOrUpdateCollection(ctx context.Context, userID uuid.UUID, input domain.CreateOrUpdateCollectionInput) error {
	args := m.Called(ctx, userID, input)
	return args.Error(0)
}

func (m *MockMediaService) AddMediaToCollection(ctx context.Context, userID uuid.UUID, input domain.AddMediaToCollectionInput) error {
	args := m.Called(ctx, userID, input)
	return args.Error(0)
}

func (m *MockMediaService) DeployRecalculateSummaryJob(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockJobQueue is a mock for the job queue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job *domain.ImportJob) (string, error) {
	args := m.Called(ctx, job)
	return args.String(0), args.Error(1)
}

// MockAdapter is a mock source adapter
type MockAdapter struct {
	mock.Mock

	source domain.ImportSource
}

func (m *MockAdapter) Source() domain.ImportSource {
	return m.source
}

func (m *MockAdapter) Import(ctx context.Context, input domain.DeployImportInput) (*domain.ImportResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportResult), args.Error(1)
}

type ImporterServiceTestSuite struct {
	suite.Suite

	ctx         context.Context
	userID      uuid.UUID
	mockStore   *MockReportStore
	mockMedia   *MockMediaService
	mockQueue   *MockJobQueue
	mockAdapter *MockAdapter
	importer    *service.ImporterService
}

func (suite *ImporterServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.userID = uuid.New()
	suite.mockStore = new(MockReportStore)
	suite.mockMedia = new(MockMediaService)
	suite.mockQueue = new(MockJobQueue)
	suite.mockAdapter = &MockAdapter{source: domain.ImportSourceMediaTracker}

	suite.importer = service.NewImporterService(
		suite.mockStore,
		suite.mockMedia,
		suite.mockQueue,
		source.NewRegistry(suite.mockAdapter),
		logger.NewNoopLogger(),
		0,
	)
}

func (suite *ImporterServiceTestSuite) TearDownTest() {
	suite.mockStore.AssertExpectations(suite.T())
	suite.mockMedia.AssertExpectations(suite.T())
	suite.mockQueue.AssertExpectations(suite.T())
	suite.mockAdapter.AssertExpectations(suite.T())
}

func (suite *ImporterServiceTestSuite) TestDeployImport_Success() {
	// Arrange
	input := testutil.CreateTestDeployInput("https://tracker.example.com")

	suite.mockQueue.On("Enqueue", suite.ctx, mock.AnythingOfType("*domain.ImportJob")).
		Return("job-1", nil)

	// Act
	jobID, err := suite.importer.DeployImport(suite.ctx, suite.userID, input)

	// Assert
	suite.Require().NoError(err)
	suite.Equal("job-1", jobID)
}

func (suite *ImporterServiceTestSuite) TestDeployImport_TrimsTrailingSlashes() {
	// Arrange
	input := testutil.CreateTestDeployInput("https://tracker.example.com///")

	var enqueued *domain.ImportJob
	suite.mockQueue.On("Enqueue", suite.ctx, mock.AnythingOfType("*domain.ImportJob")).
		Run(func(args mock.Arguments) {
			enqueued = args.Get(1).(*domain.ImportJob)
		}).
		Return("job-1", nil)

	// Act
	_, err := suite.importer.DeployImport(suite.ctx, suite.userID, input)

	// Assert
	suite.Require().NoError(err)
	suite.Equal("https://tracker.example.com", enqueued.Input.MediaTracker.APIURL)
	suite.Equal(suite.userID, enqueued.UserID)
}

func (suite *ImporterServiceTestSuite) TestDeployImport_NoPayload() {
	// Act
	_, err := suite.importer.DeployImport(suite.ctx, suite.userID, domain.DeployImportInput{
		Source: domain.ImportSourceMediaTracker,
	})

	// Assert
	suite.Require().Error(err)
	suite.True(errors.IsValidation(err))
	suite.mockQueue.AssertNotCalled(suite.T(), "Enqueue", mock.Anything, mock.Anything)
}

func (suite *ImporterServiceTestSuite) TestDeployImport_MismatchedPayload() {
	// Arrange: goodreads payload under a media_tracker source
	input := domain.DeployImportInput{
		Source:    domain.ImportSourceMediaTracker,
		Goodreads: &domain.DeployGoodreadsImportInput{RSSURL: "https://goodreads.example.com/rss"},
	}

	// Act
	_, err := suite.importer.DeployImport(suite.ctx, suite.userID, input)

	// Assert
	suite.Require().Error(err)
	suite.True(errors.IsValidation(err))
	suite.mockQueue.AssertNotCalled(suite.T(), "Enqueue", mock.Anything, mock.Anything)
}

func (suite *ImporterServiceTestSuite) TestDeployImport_BothPayloads() {
	// Arrange
	input := testutil.CreateTestDeployInput("https://tracker.example.com")
	input.Goodreads = &domain.DeployGoodreadsImportInput{RSSURL: "https://goodreads.example.com/rss"}

	// Act
	_, err := suite.importer.DeployImport(suite.ctx, suite.userID, input)

	// Assert
	suite.Require().Error(err)
	suite.True(errors.IsValidation(err))
}

func (suite *ImporterServiceTestSuite) TestImportFromSource_Success() {
	// Arrange
	input := testutil.CreateTestDeployInput("https://tracker.example.com")
	result := &domain.ImportResult{
		Collections: []domain.CreateOrUpdateCollectionInput{{Name: "Watchlist"}},
		Items: []domain.CanonicalItem{
			testutil.CreateTestCanonicalItem("movie-1"),
			testutil.CreateTestFilledItem("book-1", "A Book"),
		},
	}

	var finalized *domain.ImportReport
	suite.mockStore.On("CreateReport", suite.ctx, mock.AnythingOfType("*domain.ImportReport")).Return(nil)
	suite.mockStore.On("UpdateReport", suite.ctx, mock.AnythingOfType("*domain.ImportReport")).
		Run(func(args mock.Arguments) {
			finalized = args.Get(1).(*domain.ImportReport)
		}).
		Return(nil)
	suite.mockAdapter.On("Import", suite.ctx, input).Return(result, nil)
	suite.mockMedia.On("CreateOrUpdateCollection", suite.ctx, suite.userID,
		domain.CreateOrUpdateCollectionInput{Name: "Watchlist"}).Return(nil)
	suite.mockMedia.On("CommitMedia", suite.ctx, domain.MediaLotMovie, domain.MediaProviderTmdb, "movie-1").
		Return(testutil.CreateTestMediaRecord("movie-1"), nil)
	suite.mockMedia.On("CommitMediaInternal", suite.ctx, mock.AnythingOfType("*domain.MediaDetails")).
		Return(testutil.CreateTestMediaRecord("book-1"), nil)
	suite.mockMedia.On("ProgressUpdate", suite.ctx, suite.userID, mock.AnythingOfType("domain.ProgressUpdateInput")).
		Return(nil)
	suite.mockMedia.On("DeployRecalculateSummaryJob", suite.ctx, suite.userID).Return(nil)

	// Act
	err := suite.importer.ImportFromSource(suite.ctx, suite.userID, input)

	// Assert
	suite.Require().NoError(err)
	suite.Require().NotNil(finalized)
	suite.Require().NotNil(finalized.Success)
	suite.True(*finalized.Success)
	suite.NotNil(finalized.FinishedOn)
	suite.Equal(2, finalized.Details.TotalImported)
	suite.Empty(finalized.FailedItems)
}

func (suite *ImporterServiceTestSuite) TestImportFromSource_FilledItemSkipsResolution() {
	// Arrange
	input := testutil.CreateTestDeployInput("https://tracker.example.com")
	result := &domain.ImportResult{
		Items: []domain.CanonicalItem{testutil.CreateTestFilledItem("book-1", "A Book")},
	}

	suite.mockStore.On("CreateReport", suite.ctx, mock.Anything).Return(nil)
	suite.mockStore.On("UpdateReport", suite.ctx, mock.Anything).Return(nil)
	suite.mockAdapter.On("Import", suite.ctx, input).Return(result, nil)
	suite.mockMedia.On("CommitMediaInternal", suite.ctx, mock.AnythingOfType("*domain.MediaDetails")).
		Return(testutil.CreateTestMediaRecord("book-1"), nil)
	suite.mockMedia.On("DeployRecalculateSummaryJob", suite.ctx, suite.userID).Return(nil)

	// Act
	err := suite.importer.ImportFromSource(suite.ctx, suite.userID, input)

	// Assert
	suite.Require().NoError(err)
	suite.mockMedia.AssertNotCalled(suite.T(), "CommitMedia",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ImporterServiceTestSuite) TestImportFromSource_ItemFailureIsIsolated() {
	// Arrange: three items, the middle one fails to commit
	input := testutil.CreateTestDeployInput("https://tracker.example.com")
	result := &domain.ImportResult{
		Items: []domain.CanonicalItem{
			testutil.CreateTestCanonicalItem("movie-1"),
			testutil.CreateTestCanonicalItem("movie-2"),
			testutil.CreateTestCanonicalItem("movie-3"),
		},
	}

	var finalized *domain.ImportReport
	suite.mockStore.On("CreateReport", suite.ctx, mock.Anything).Return(nil)
	suite.mockStore.On("UpdateReport", suite.ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			finalized = args.Get(1).(*domain.ImportReport)
		}).
		Return(nil)
	suite.mockAdapter.On("Import", suite.ctx, input).Return(result, nil)
	suite.mockMedia.On("CommitMedia", suite.ctx, domain.MediaLotMovie, domain.MediaProviderTmdb, "movie-1").
		Return(testutil.CreateTestMediaRecord("movie-1"), nil)
	suite.mockMedia.On("CommitMedia", suite.ctx, domain.MediaLotMovie, domain.MediaProviderTmdb, "movie-2").
		Return(nil, errors.ProviderCommit("provider rejected item", nil))
	suite.mockMedia.On("CommitMedia", suite.ctx, domain.MediaLotMovie, domain.MediaProviderTmdb, "movie-3").
		Return(testutil.CreateTestMediaRecord("movie-3"), nil)
	suite.mockMedia.On("ProgressUpdate", suite.ctx, suite.userID, mock.AnythingOfType("domain.ProgressUpdateInput")).
		Return(nil)
	suite.mockMedia.On("DeployRecalculateSummaryJob", suite.ctx, suite.userID).Return(nil)

	// Act
	err := suite.importer.ImportFromSource(suite.ctx, suite.userID, input)

	// Assert: job still succeeds with the failure recorded
	suite.Require().NoError(err)
	suite.Require().NotNil(finalized.Success)
	suite.True(*finalized.Success)
	suite.Equal(2, finalized.Details.TotalImported)
	suite.Require().Len(finalized.FailedItems, 1)
	suite.Equal("movie-2", finalized.FailedItems[0].Identifier)
	suite.Equal(domain.FailStepCommitToProvider, finalized.FailedItems[0].Step)
}

func (suite *ImporterServiceTestSuite) TestImportFromSource_FetchFailure() {
	// Arrange
	input := testutil.CreateTestDeployInput("https://tracker.example.com")

	var finalized *domain.ImportReport
	suite.mockStore.On("CreateReport", suite.ctx, mock.Anything).Return(nil)
	suite.mockStore.On("UpdateReport", suite.ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			finalized = args.Get(1).(*domain.ImportReport)
		}).
		Return(nil)
	suite.mockAdapter.On("Import", suite.ctx, input).
		Return(nil, errors.SourceFetch("tracker unreachable", nil))

	// Act
	err := suite.importer.ImportFromSource(suite.ctx, suite.userID, input)

	// Assert: finalized as failed, no items were attempted
	suite.Require().NoError(err)
	suite.Require().NotNil(finalized.Success)
	suite.False(*finalized.Success)
	suite.Require().Len(finalized.FailedItems, 1)
	suite.Equal(domain.FailStepFetchFromSource, finalized.FailedItems[0].Step)
	suite.mockMedia.AssertNotCalled(suite.T(), "CommitMedia",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ImporterServiceTestSuite) TestImportFromSource_CollectionUpsertAborts() {
	// Arrange
	input := testutil.CreateTestDeployInput("https://tracker.example.com")
	result := &domain.ImportResult{
		Collections: []domain.CreateOrUpdateCollectionInput{{Name: "Watchlist"}},
		Items:       []domain.CanonicalItem{testutil.CreateTestCanonicalItem("movie-1")},
	}

	var finalized *domain.ImportReport
	suite.mockStore.On("CreateReport", suite.ctx, mock.Anything).Return(nil)
	suite.mockStore.On("UpdateReport", suite.ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			finalized = args.Get(1).(*domain.ImportReport)
		}).
		Return(nil)
	suite.mockAdapter.On("Import", suite.ctx, input).Return(result, nil)
	suite.mockMedia.On("CreateOrUpdateCollection", suite.ctx, suite.userID,
		domain.CreateOrUpdateCollectionInput{Name: "Watchlist"}).
		Return(errors.Internal("database unavailable"))

	// Act
	err := suite.importer.ImportFromSource(suite.ctx, suite.userID, input)

	// Assert
	suite.Require().Error(err)
	suite.Require().NotNil(finalized.Success)
	suite.False(*finalized.Success)
	suite.mockMedia.AssertNotCalled(suite.T(), "CommitMedia",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ImporterServiceTestSuite) TestImportFromSource_ReplayFailureLeavesReportRunning() {
	// Arrange
	input := testutil.CreateTestDeployInput("https://tracker.example.com")
	result := &domain.ImportResult{
		Items: []domain.CanonicalItem{testutil.CreateTestCanonicalItem("movie-1")},
	}

	suite.mockStore.On("CreateReport", suite.ctx, mock.Anything).Return(nil)
	suite.mockAdapter.On("Import", suite.ctx, input).Return(result, nil)
	suite.mockMedia.On("CommitMedia", suite.ctx, domain.MediaLotMovie, domain.MediaProviderTmdb, "movie-1").
		Return(testutil.CreateTestMediaRecord("movie-1"), nil)
	suite.mockMedia.On("ProgressUpdate", suite.ctx, suite.userID, mock.AnythingOfType("domain.ProgressUpdateInput")).
		Return(errors.Internal("seen insert failed"))

	// Act
	err := suite.importer.ImportFromSource(suite.ctx, suite.userID, input)

	// Assert: the error surfaces and the report keeps its unset success, so
	// the staleness sweep eventually claims it
	suite.Require().Error(err)
	suite.mockStore.AssertNotCalled(suite.T(), "UpdateReport", mock.Anything, mock.Anything)
}

func (suite *ImporterServiceTestSuite) TestImportFromSource_AddToCollectionSwallowed() {
	// Arrange: item carries a collection whose membership insert fails
	input := testutil.CreateTestDeployInput("https://tracker.example.com")
	item := testutil.CreateTestCanonicalItem("movie-1")
	item.Collections = []string{"Favorites"}
	result := &domain.ImportResult{Items: []domain.CanonicalItem{item}}

	var finalized *domain.ImportReport
	suite.mockStore.On("CreateReport", suite.ctx, mock.Anything).Return(nil)
	suite.mockStore.On("UpdateReport", suite.ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			finalized = args.Get(1).(*domain.ImportReport)
		}).
		Return(nil)
	suite.mockAdapter.On("Import", suite.ctx, input).Return(result, nil)
	suite.mockMedia.On("CommitMedia", suite.ctx, domain.MediaLotMovie, domain.MediaProviderTmdb, "movie-1").
		Return(testutil.CreateTestMediaRecord("movie-1"), nil)
	suite.mockMedia.On("ProgressUpdate", suite.ctx, suite.userID, mock.AnythingOfType("domain.ProgressUpdateInput")).
		Return(nil)
	suite.mockMedia.On("CreateOrUpdateCollection", suite.ctx, suite.userID,
		domain.CreateOrUpdateCollectionInput{Name: "Favorites"}).Return(nil)
	suite.mockMedia.On("AddMediaToCollection", suite.ctx, suite.userID, mock.AnythingOfType("domain.AddMediaToCollectionInput")).
		Return(errors.Internal("membership insert failed"))
	suite.mockMedia.On("DeployRecalculateSummaryJob", suite.ctx, suite.userID).Return(nil)

	// Act
	err := suite.importer.ImportFromSource(suite.ctx, suite.userID, input)

	// Assert
	suite.Require().NoError(err)
	suite.Require().NotNil(finalized.Success)
	suite.True(*finalized.Success)
	suite.Equal(1, finalized.Details.TotalImported)
}

func (suite *ImporterServiceTestSuite) TestImportFromSource_SummaryJobBestEffort() {
	// Arrange
	input := testutil.CreateTestDeployInput("https://tracker.example.com")
	result := testutil.CreateTestImportResult(1)

	var finalized *domain.ImportReport
	suite.mockStore.On("CreateReport", suite.ctx, mock.Anything).Return(nil)
	suite.mockStore.On("UpdateReport", suite.ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			finalized = args.Get(1).(*domain.ImportReport)
		}).
		Return(nil)
	suite.mockAdapter.On("Import", suite.ctx, input).Return(result, nil)
	suite.mockMedia.On("CommitMedia", suite.ctx, domain.MediaLotMovie, domain.MediaProviderTmdb, "item-0").
		Return(testutil.CreateTestMediaRecord("item-0"), nil)
	suite.mockMedia.On("ProgressUpdate", suite.ctx, suite.userID, mock.AnythingOfType("domain.ProgressUpdateInput")).
		Return(nil)
	suite.mockMedia.On("DeployRecalculateSummaryJob", suite.ctx, suite.userID).
		Return(errors.Internal("job queue unavailable"))

	// Act
	err := suite.importer.ImportFromSource(suite.ctx, suite.userID, input)

	// Assert: summary recalculation is best effort only
	suite.Require().NoError(err)
	suite.Require().NotNil(finalized.Success)
	suite.True(*finalized.Success)
}

func (suite *ImporterServiceTestSuite) TestInvalidateStaleReports() {
	// Arrange: two reports past the threshold
	stale := []*domain.ImportReport{
		testutil.CreateTestReport(suite.userID, time.Now().UTC().Add(-25*time.Hour)),
		testutil.CreateTestReport(suite.userID, time.Now().UTC().Add(-26*time.Hour)),
	}

	var updated []*domain.ImportReport
	suite.mockStore.On("FindStaleReports", suite.ctx, service.DefaultStaleThreshold).Return(stale, nil)
	suite.mockStore.On("UpdateReport", suite.ctx, mock.AnythingOfType("*domain.ImportReport")).
		Run(func(args mock.Arguments) {
			updated = append(updated, args.Get(1).(*domain.ImportReport))
		}).
		Return(nil)

	// Act
	count, err := suite.importer.InvalidateStaleReports(suite.ctx)

	// Assert: both flipped to failed, finish time untouched
	suite.Require().NoError(err)
	suite.Equal(2, count)
	suite.Require().Len(updated, 2)
	for _, report := range updated {
		suite.Require().NotNil(report.Success)
		suite.False(*report.Success)
		suite.Nil(report.FinishedOn)
	}
}

func (suite *ImporterServiceTestSuite) TestInvalidateStaleReports_NothingStale() {
	// Arrange
	suite.mockStore.On("FindStaleReports", suite.ctx, service.DefaultStaleThreshold).
		Return([]*domain.ImportReport{}, nil)

	// Act
	count, err := suite.importer.InvalidateStaleReports(suite.ctx)

	// Assert
	suite.Require().NoError(err)
	suite.Zero(count)
	suite.mockStore.AssertNotCalled(suite.T(), "UpdateReport", mock.Anything, mock.Anything)
}

func (suite *ImporterServiceTestSuite) TestReports() {
	// Arrange
	reports := []*domain.ImportReport{
		testutil.CreateTestReport(suite.userID, time.Now().UTC()),
	}
	suite.mockStore.On("ListReportsByUser", suite.ctx, suite.userID).Return(reports, nil)

	// Act
	got, err := suite.importer.Reports(suite.ctx, suite.userID)

	// Assert
	suite.Require().NoError(err)
	suite.Len(got, 1)
}

func TestImporterServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ImporterServiceTestSuite))
}
