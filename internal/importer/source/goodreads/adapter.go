// Package goodreads imports a user's shelves from their public Goodreads
// RSS feed.
package goodreads

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/belugamedia/beluga/internal/importer/domain"
	"github.com/belugamedia/beluga/internal/importer/source"
	"github.com/belugamedia/beluga/pkg/errors"
	"github.com/belugamedia/beluga/pkg/interfaces"
)

// readAtLayout is the timestamp format Goodreads uses in its feeds.
const readAtLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

// Adapter fetches and normalizes a Goodreads shelf feed.
type Adapter struct {
	parser *gofeed.Parser
	logger interfaces.Logger
}

// NewAdapter creates a Goodreads adapter.
func NewAdapter(logger interfaces.Logger) *Adapter {
	return &Adapter{
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// Source returns the provider this adapter serves.
func (a *Adapter) Source() domain.ImportSource {
	return domain.ImportSourceGoodreads
}

// Import parses the feed. Goodreads items carry full book details, so every
// item is already filled and needs no provider resolution.
func (a *Adapter) Import(ctx context.Context, input domain.DeployImportInput) (*domain.ImportResult, error) {
	creds := input.Goodreads
	if creds == nil {
		return nil, errors.Validation("goodreads credentials missing")
	}

	feed, err := a.parser.ParseURLWithContext(creds.RSSURL, ctx)
	if err != nil {
		return nil, errors.SourceFetch("failed to fetch or parse Goodreads feed", err)
	}

	result := &domain.ImportResult{}
	shelves := make(map[string]bool)

	for _, entry := range feed.Items {
		item, itemShelves, err := a.normalizeEntry(entry)
		if err != nil {
			result.FailedItems = append(result.FailedItems, domain.FailedItem{
				Lot:        domain.MediaLotBook,
				Step:       domain.FailStepFetchFromSource,
				Identifier: entry.Title,
				Error:      err.Error(),
			})
			continue
		}
		for _, shelf := range itemShelves {
			if !shelves[shelf] {
				shelves[shelf] = true
				result.Collections = append(result.Collections, domain.CreateOrUpdateCollectionInput{
					Name: shelf,
				})
			}
		}
		result.Items = append(result.Items, *item)
	}

	return result, nil
}

// normalizeEntry converts one feed entry into a canonical item plus the
// shelves it sits on.
func (a *Adapter) normalizeEntry(entry *gofeed.Item) (*domain.CanonicalItem, []string, error) {
	bookID := entry.Custom["book_id"]
	if bookID == "" {
		return nil, nil, errors.Validation("feed entry has no book id")
	}

	details := &domain.MediaDetails{
		Identifier:  bookID,
		Title:       entry.Title,
		Description: entry.Description,
		Lot:         domain.MediaLotBook,
		Provider:    domain.MediaProviderGoodreads,
	}
	if author := entry.Custom["author_name"]; author != "" {
		details.Creators = []string{author}
	}
	if pubYear := entry.Custom["book_published"]; pubYear != "" {
		if year, err := strconv.Atoi(pubYear); err == nil {
			details.PublishYear = &year
		}
	}
	if img := entry.Custom["book_large_image_url"]; img != "" {
		details.Images = []string{img}
	}

	item := &domain.CanonicalItem{
		SourceID:   bookID,
		Lot:        domain.MediaLotBook,
		Provider:   domain.MediaProviderGoodreads,
		Identifier: domain.AlreadyFilled(details),
	}

	var shelves []string
	for _, shelf := range strings.Split(entry.Custom["user_shelves"], ",") {
		shelf = strings.TrimSpace(shelf)
		if shelf != "" {
			shelves = append(shelves, shelf)
		}
	}
	item.Collections = shelves

	var readAt *time.Time
	if raw := entry.Custom["user_read_at"]; raw != "" {
		if t, err := time.Parse(readAtLayout, raw); err == nil {
			utc := t.UTC()
			readAt = &utc
		} else {
			a.logger.Warn("Unparseable read-at date in Goodreads feed",
				interfaces.String("book_id", bookID),
				interfaces.String("value", raw))
		}
	}
	if readAt != nil {
		item.SeenHistory = append(item.SeenHistory, domain.SeenEntry{EndedOn: readAt})
	}

	rating := 0.0
	if raw := entry.Custom["user_rating"]; raw != "" {
		if r, err := strconv.ParseFloat(raw, 64); err == nil {
			rating = r
		}
	}
	reviewText := strings.TrimSpace(entry.Custom["user_review"])
	if rating > 0 || reviewText != "" {
		review := domain.ReviewEntry{}
		if rating > 0 {
			review.Rating = &rating
		}
		if reviewText != "" {
			review.Review = &domain.ReviewBody{
				Date: readAt,
				Text: reviewText,
			}
		}
		item.Reviews = append(item.Reviews, review)
	}

	return item, shelves, nil
}

var _ source.Adapter = (*Adapter)(nil)
