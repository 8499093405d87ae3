// Package mediatracker imports a user's history from a MediaTracker
// instance through its REST API.
package mediatracker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/belugamedia/beluga/internal/importer/domain"
	"github.com/belugamedia/beluga/internal/importer/source"
	"github.com/belugamedia/beluga/pkg/errors"
	"github.com/belugamedia/beluga/pkg/interfaces"
)

// Adapter fetches and normalizes MediaTracker history.
type Adapter struct {
	logger interfaces.Logger
}

// NewAdapter creates a MediaTracker adapter.
func NewAdapter(logger interfaces.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// Source returns the provider this adapter serves.
func (a *Adapter) Source() domain.ImportSource {
	return domain.ImportSourceMediaTracker
}

// list is a MediaTracker list, imported as a collection.
type list struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// listItem is one entry of a MediaTracker list.
type listItem struct {
	MediaItem mediaItem `json:"mediaItem"`
}

// mediaItem is MediaTracker's media record.
type mediaItem struct {
	ID            int    `json:"id"`
	MediaType     string `json:"mediaType"`
	TmdbID        int    `json:"tmdbId"`
	OpenlibraryID string `json:"openlibraryId"`
	IgdbID        int    `json:"igdbId"`
	AudibleID     string `json:"audibleId"`
}

// itemDetails is the per-item response carrying history and ratings.
type itemDetails struct {
	mediaItem
	SeenHistory []seenRecord  `json:"seenHistory"`
	UserRating  *ratingRecord `json:"userRating"`
}

type seenRecord struct {
	ID      int    `json:"id"`
	Date    *int64 `json:"date"` // epoch millis
	Season  *int   `json:"seasonNumber"`
	Episode *int   `json:"episodeNumber"`
}

type ratingRecord struct {
	Date    *int64   `json:"date"`
	Rating  *float64 `json:"rating"`
	Review  string   `json:"review"`
	Spoiler bool     `json:"containsSpoilers"`
}

// Import walks the user's lists, then pulls details for every distinct item.
// Items whose detail fetch fails are recorded against the source step; the
// rest of the import proceeds.
func (a *Adapter) Import(ctx context.Context, input domain.DeployImportInput) (*domain.ImportResult, error) {
	creds := input.MediaTracker
	if creds == nil {
		return nil, errors.Validation("media_tracker credentials missing")
	}

	client := resty.New().
		SetBaseURL(creds.APIURL).
		SetHeader("Access-Token", creds.APIKey).
		SetTimeout(30 * time.Second)

	var lists []list
	resp, err := client.R().
		SetContext(ctx).
		SetResult(&lists).
		Get("/api/lists")
	if err != nil {
		return nil, errors.SourceFetch("failed to reach MediaTracker", err)
	}
	if resp.IsError() {
		return nil, errors.SourceFetch(fmt.Sprintf("MediaTracker returned status %d", resp.StatusCode()), nil)
	}

	result := &domain.ImportResult{}
	itemLists := make(map[int][]string)
	itemOrder := make([]int, 0)

	for _, l := range lists {
		result.Collections = append(result.Collections, domain.CreateOrUpdateCollectionInput{
			Name: l.Name,
		})

		var items []listItem
		resp, err := client.R().
			SetContext(ctx).
			SetQueryParam("listId", strconv.Itoa(l.ID)).
			SetResult(&items).
			Get("/api/list/items")
		if err != nil {
			return nil, errors.SourceFetch(fmt.Sprintf("failed to fetch list %q", l.Name), err)
		}
		if resp.IsError() {
			return nil, errors.SourceFetch(fmt.Sprintf("MediaTracker returned status %d for list %q", resp.StatusCode(), l.Name), nil)
		}

		for _, it := range items {
			id := it.MediaItem.ID
			if _, seen := itemLists[id]; !seen {
				itemOrder = append(itemOrder, id)
			}
			itemLists[id] = append(itemLists[id], l.Name)
		}
	}

	for _, id := range itemOrder {
		var details itemDetails
		resp, err := client.R().
			SetContext(ctx).
			SetResult(&details).
			Get(fmt.Sprintf("/api/details/%d", id))
		if err != nil || resp.IsError() {
			msg := "failed to fetch item details"
			if err != nil {
				msg = err.Error()
			} else if resp.IsError() {
				msg = fmt.Sprintf("MediaTracker returned status %d", resp.StatusCode())
			}
			a.logger.Warn("Skipping MediaTracker item",
				interfaces.Int("item_id", id),
				interfaces.String("reason", msg))
			result.FailedItems = append(result.FailedItems, domain.FailedItem{
				Step:       domain.FailStepFetchFromSource,
				Identifier: strconv.Itoa(id),
				Error:      msg,
			})
			continue
		}

		item, err := a.normalizeItem(&details, itemLists[id])
		if err != nil {
			result.FailedItems = append(result.FailedItems, domain.FailedItem{
				Step:       domain.FailStepFetchFromSource,
				Identifier: strconv.Itoa(id),
				Error:      err.Error(),
			})
			continue
		}
		result.Items = append(result.Items, *item)
	}

	return result, nil
}

// normalizeItem converts one MediaTracker item into a canonical item.
func (a *Adapter) normalizeItem(details *itemDetails, collections []string) (*domain.CanonicalItem, error) {
	lot, provider, identifier, err := mapIdentifier(&details.mediaItem)
	if err != nil {
		return nil, err
	}

	item := &domain.CanonicalItem{
		SourceID:    strconv.Itoa(details.ID),
		Lot:         lot,
		Provider:    provider,
		Identifier:  domain.NeedsDetails(identifier),
		Collections: collections,
	}

	for _, seen := range details.SeenHistory {
		entry := domain.SeenEntry{
			ShowSeasonNumber:  seen.Season,
			ShowEpisodeNumber: seen.Episode,
		}
		seenID := strconv.Itoa(seen.ID)
		entry.ID = &seenID
		if seen.Date != nil {
			t := time.UnixMilli(*seen.Date).UTC()
			entry.EndedOn = &t
		}
		if lot == domain.MediaLotPodcast {
			entry.PodcastEpisodeNumber = seen.Episode
			entry.ShowSeasonNumber = nil
			entry.ShowEpisodeNumber = nil
		}
		item.SeenHistory = append(item.SeenHistory, entry)
	}

	if r := details.UserRating; r != nil {
		review := domain.ReviewEntry{Rating: r.Rating}
		if r.Review != "" {
			body := domain.ReviewBody{
				Spoiler: r.Spoiler,
				Text:    r.Review,
			}
			if r.Date != nil {
				t := time.UnixMilli(*r.Date).UTC()
				body.Date = &t
			}
			review.Review = &body
		}
		item.Reviews = append(item.Reviews, review)
	}

	return item, nil
}

// mapIdentifier picks the metadata provider and external id for an item.
func mapIdentifier(m *mediaItem) (domain.MediaLot, domain.MediaProvider, string, error) {
	switch m.MediaType {
	case "movie":
		return domain.MediaLotMovie, domain.MediaProviderTmdb, strconv.Itoa(m.TmdbID), nil
	case "tv":
		return domain.MediaLotShow, domain.MediaProviderTmdb, strconv.Itoa(m.TmdbID), nil
	case "book":
		if m.OpenlibraryID == "" {
			return "", "", "", fmt.Errorf("book %d has no openlibrary identifier", m.ID)
		}
		return domain.MediaLotBook, domain.MediaProviderOpenlibrary, m.OpenlibraryID, nil
	case "video_game":
		return domain.MediaLotVideoGame, domain.MediaProviderIgdb, strconv.Itoa(m.IgdbID), nil
	case "audiobook":
		if m.AudibleID == "" {
			return "", "", "", fmt.Errorf("audiobook %d has no audible identifier", m.ID)
		}
		return domain.MediaLotAudioBook, domain.MediaProviderAudible, m.AudibleID, nil
	case "podcast":
		if m.AudibleID == "" {
			return "", "", "", fmt.Errorf("podcast %d has no external identifier", m.ID)
		}
		return domain.MediaLotPodcast, domain.MediaProviderListennotes, m.AudibleID, nil
	default:
		return "", "", "", fmt.Errorf("unsupported media type %q", m.MediaType)
	}
}

var _ source.Adapter = (*Adapter)(nil)
