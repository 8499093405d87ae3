package domain

import (
	"time"

	"github.com/google/uuid"
)

// MediaDetails is a full metadata record for one piece of media, as supplied
// by a source adapter when the source already carries everything needed.
type MediaDetails struct {
	Identifier  string        `json:"identifier"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Lot         MediaLot      `json:"lot"`
	Provider    MediaProvider `json:"provider"`
	Creators    []string      `json:"creators,omitempty"`
	Genres      []string      `json:"genres,omitempty"`
	PublishYear *int          `json:"publish_year,omitempty"`
	Images      []string      `json:"images,omitempty"`
}

// MediaRecord is committed media as known to the media service.
type MediaRecord struct {
	ID         uuid.UUID
	Identifier string
	Lot        MediaLot
}

// ProgressUpdateInput replays one seen entry as a progress update.
type ProgressUpdateInput struct {
	Identifier           *string    `json:"identifier,omitempty"`
	MetadataID           uuid.UUID  `json:"metadata_id"`
	Progress             *int       `json:"progress,omitempty"`
	Date                 *time.Time `json:"date,omitempty"`
	ShowSeasonNumber     *int       `json:"show_season_number,omitempty"`
	ShowEpisodeNumber    *int       `json:"show_episode_number,omitempty"`
	PodcastEpisodeNumber *int       `json:"podcast_episode_number,omitempty"`
}

// PostReviewInput replays one review entry as a posted review.
type PostReviewInput struct {
	Identifier *string    `json:"identifier,omitempty"`
	MetadataID uuid.UUID  `json:"metadata_id"`
	Rating     *float64   `json:"rating,omitempty"`
	Text       *string    `json:"text,omitempty"`
	Spoiler    *bool      `json:"spoiler,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
}

// CreateOrUpdateCollectionInput upserts a collection by name.
type CreateOrUpdateCollectionInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AddMediaToCollectionInput adds committed media to a named collection.
type AddMediaToCollectionInput struct {
	CollectionName string    `json:"collection_name"`
	MediaID        uuid.UUID `json:"media_id"`
}
