package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportSource identifies an external tracking service a user can import
// their history from.
type ImportSource string

const (
	ImportSourceMediaTracker ImportSource = "media_tracker"
	ImportSourceGoodreads    ImportSource = "goodreads"
)

// MediaLot is the kind of media an item represents.
type MediaLot string

const (
	MediaLotAudioBook MediaLot = "audio_book"
	MediaLotBook      MediaLot = "book"
	MediaLotMovie     MediaLot = "movie"
	MediaLotPodcast   MediaLot = "podcast"
	MediaLotShow      MediaLot = "show"
	MediaLotVideoGame MediaLot = "video_game"
)

// MediaProvider is the metadata provider an item's external identifier
// belongs to.
type MediaProvider string

const (
	MediaProviderAudible     MediaProvider = "audible"
	MediaProviderGoodreads   MediaProvider = "goodreads"
	MediaProviderIgdb        MediaProvider = "igdb"
	MediaProviderListennotes MediaProvider = "listennotes"
	MediaProviderOpenlibrary MediaProvider = "openlibrary"
	MediaProviderTmdb        MediaProvider = "tmdb"
)

// DeployMediaTrackerImportInput carries MediaTracker credentials.
type DeployMediaTrackerImportInput struct {
	// The base url where the resource is present at
	APIURL string `json:"api_url"`
	// An application token generated by an admin
	APIKey string `json:"api_key"`
}

// DeployGoodreadsImportInput carries the RSS url found on the user's
// Goodreads profile.
type DeployGoodreadsImportInput struct {
	RSSURL string `json:"rss_url"`
}

// DeployImportInput is a user's import submission. Exactly one of the
// provider payloads must be present and it must match Source.
type DeployImportInput struct {
	Source       ImportSource                   `json:"source"`
	MediaTracker *DeployMediaTrackerImportInput `json:"media_tracker,omitempty"`
	Goodreads    *DeployGoodreadsImportInput    `json:"goodreads,omitempty"`
}

// ImportJob is the envelope pushed onto the job queue.
type ImportJob struct {
	JobID  string            `json:"job_id"`
	UserID uuid.UUID         `json:"user_id"`
	Input  DeployImportInput `json:"input"`
}

// SeenEntry is a single watched/read record for an item.
type SeenEntry struct {
	ID                   *string    `json:"id,omitempty"`
	EndedOn              *time.Time `json:"ended_on,omitempty"`
	ShowSeasonNumber     *int       `json:"show_season_number,omitempty"`
	ShowEpisodeNumber    *int       `json:"show_episode_number,omitempty"`
	PodcastEpisodeNumber *int       `json:"podcast_episode_number,omitempty"`
}

// ReviewBody is the free-text part of a review.
type ReviewBody struct {
	Date    *time.Time `json:"date,omitempty"`
	Spoiler bool       `json:"spoiler"`
	Text    string     `json:"text"`
}

// ReviewEntry is a rating and/or review for an item.
type ReviewEntry struct {
	ID     *string     `json:"id,omitempty"`
	Rating *float64    `json:"rating,omitempty"`
	Review *ReviewBody `json:"review,omitempty"`
}

// ItemIdentifier says how an item resolves to committed media. Exactly one
// side is set: NeedsDetails holds an external identifier that still has to be
// resolved against the metadata provider, AlreadyFilled holds details ready
// to commit as-is.
type ItemIdentifier struct {
	NeedsDetails  string
	AlreadyFilled *MediaDetails
}

// NeedsDetails builds an identifier that requires provider resolution.
func NeedsDetails(identifier string) ItemIdentifier {
	return ItemIdentifier{NeedsDetails: identifier}
}

// AlreadyFilled builds an identifier whose details are complete.
func AlreadyFilled(details *MediaDetails) ItemIdentifier {
	return ItemIdentifier{AlreadyFilled: details}
}

// CanonicalItem is the normalized representation of one history entry,
// ready for the commit pipeline.
type CanonicalItem struct {
	SourceID    string
	Lot         MediaLot
	Provider    MediaProvider
	Identifier  ItemIdentifier
	SeenHistory []SeenEntry
	Reviews     []ReviewEntry
	Collections []string
}

// FailStep is the pipeline step at which an item failed.
type FailStep string

const (
	// FailStepFetchFromSource means the source itself could not supply the item
	FailStepFetchFromSource FailStep = "fetch_from_source"
	// FailStepCommitToProvider means resolving or committing against the
	// metadata provider failed
	FailStepCommitToProvider FailStep = "commit_to_provider"
)

// FailedItem records one item the pipeline could not import.
type FailedItem struct {
	Lot        MediaLot `json:"lot"`
	Step       FailStep `json:"step"`
	Identifier string   `json:"identifier"`
	Error      string   `json:"error,omitempty"`
}

// ImportResult is what a source adapter produces: collections to upsert and
// the ordered items to commit. FailedItems starts out holding any entries the
// adapter could not normalize and the pipeline appends commit failures to it.
type ImportResult struct {
	Collections []CreateOrUpdateCollectionInput
	Items       []CanonicalItem
	FailedItems []FailedItem
}

// ImportDetails summarizes a finished import.
type ImportDetails struct {
	TotalImported int `json:"total_imported"`
}

// ImportReport is the durable ledger row for one import job. Success is
// tri-state: nil while the job runs, then exactly one transition to true
// (completed) or false (failed or invalidated by reconciliation).
type ImportReport struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	Source      ImportSource  `json:"source"`
	StartedOn   time.Time     `json:"started_on"`
	FinishedOn  *time.Time    `json:"finished_on,omitempty"`
	Success     *bool         `json:"success,omitempty"`
	Details     ImportDetails `json:"details"`
	FailedItems []FailedItem  `json:"failed_items"`
}
