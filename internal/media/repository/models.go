package repository

import (
	"time"

	"github.com/google/uuid"
)

// MetadataModel is a committed piece of media. IsPartial marks rows committed
// from an external identifier alone; a later metadata refresh fills them in.
type MetadataModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Lot         string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_metadata_identity"`
	Provider    string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_metadata_identity"`
	Identifier  string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_metadata_identity"`
	Title       string    `gorm:"type:varchar(255)"`
	Description string    `gorm:"type:text"`
	PublishYear *int
	Creators    []byte `gorm:"type:jsonb"`
	Genres      []byte `gorm:"type:jsonb"`
	Images      []byte `gorm:"type:jsonb"`
	IsPartial   bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for MetadataModel
func (MetadataModel) TableName() string {
	return "media_metadata"
}

// SeenModel is one watched/read record for a user and metadata row.
type SeenModel struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;index"`
	MetadataID           uuid.UUID `gorm:"type:uuid;not null;index"`
	Progress             int       `gorm:"not null;default:0"`
	FinishedOn           *time.Time
	ShowSeasonNumber     *int
	ShowEpisodeNumber    *int
	PodcastEpisodeNumber *int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName specifies the table name for SeenModel
func (SeenModel) TableName() string {
	return "media_seen"
}

// ReviewModel is a user's rating and/or review of a metadata row.
type ReviewModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	MetadataID uuid.UUID `gorm:"type:uuid;not null;index"`
	Rating     *float64
	Text       string `gorm:"type:text"`
	Spoiler    bool   `gorm:"not null;default:false"`
	PostedOn   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName specifies the table name for ReviewModel
func (ReviewModel) TableName() string {
	return "media_reviews"
}

// CollectionModel is a user's named collection.
type CollectionModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_collection_owner_name"`
	Name        string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_collection_owner_name"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for CollectionModel
func (CollectionModel) TableName() string {
	return "media_collections"
}

// CollectionEntryModel links metadata into a collection.
type CollectionEntryModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	CollectionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_collection_entry"`
	MetadataID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_collection_entry"`
	CreatedAt    time.Time
}

// TableName specifies the table name for CollectionEntryModel
func (CollectionEntryModel) TableName() string {
	return "media_collection_entries"
}

// SummaryJobModel is a queued request to recalculate a user's summary.
type SummaryJobModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ScheduledOn time.Time `gorm:"not null"`
	ProcessedOn *time.Time
	CreatedAt   time.Time
}

// TableName specifies the table name for SummaryJobModel
func (SummaryJobModel) TableName() string {
	return "user_summary_jobs"
}
