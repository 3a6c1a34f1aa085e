package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/matthewjhunter/plantdoc/internal/catalog"
	"github.com/matthewjhunter/plantdoc/internal/storage"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

const userAgent = "plantdoc/1.0"

// Fetcher pulls plant-protection bulletins and stores them as alerts.
type Fetcher struct {
	parser *gofeed.Parser
	client *http.Client
	store  storage.Store
	strip  *bluemonday.Policy
	logger *slog.Logger
}

// OPML structures for parsing
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Body    OPMLBody `xml:"body"`
}

type OPMLBody struct {
	Outlines []OPMLOutline `xml:"outline"`
}

type OPMLOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr"`
	Type     string        `xml:"type,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	HTMLURL  string        `xml:"htmlUrl,attr"`
	Outlines []OPMLOutline `xml:"outline"`
}

// NewFetcher creates a new feed fetcher
func NewFetcher(store storage.Store, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &Fetcher{
		parser: parser,
		client: &http.Client{},
		store:  store,
		strip:  bluemonday.StrictPolicy(),
		logger: logger,
	}
}

// FetchResult holds the outcome of a conditional feed fetch.
type FetchResult struct {
	Feed         *gofeed.Feed // nil when NotModified is true
	ETag         string       // ETag from response (empty if absent)
	LastModified string       // Last-Modified from response (empty if absent)
	NotModified  bool         // true when server returned 304
}

// FetchStats summarizes one FetchAll run.
type FetchStats struct {
	Feeds       int `json:"feeds"`
	NotModified int `json:"not_modified"`
	Errors      int `json:"errors"`
	Stored      int `json:"stored"`
	Tagged      int `json:"tagged"`
}

// FetchFeed fetches and parses a single feed using conditional HTTP requests.
// If the feed has stored ETag or Last-Modified values, they are sent as
// If-None-Match / If-Modified-Since headers. A 304 response skips parsing
// entirely and returns NotModified=true.
func (f *Fetcher) FetchFeed(ctx context.Context, feed storage.Feed) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", feed.URL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if feed.ETag != "" {
		req.Header.Set("If-None-Match", feed.ETag)
	}
	if feed.LastModified != "" {
		req.Header.Set("If-Modified-Since", feed.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", feed.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &FetchResult{NotModified: true}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned status %d", feed.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", feed.URL, err)
	}

	parsed, err := f.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feed.URL, err)
	}

	return &FetchResult{
		Feed:         parsed,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

// AddFeed subscribes to a bulletin feed. An already known URL returns its
// existing id.
func (f *Fetcher) AddFeed(url, title string) (int64, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return 0, fmt.Errorf("feed url is empty")
	}
	if title == "" {
		title = url
	}
	feedID, err := f.store.AddFeed(url, title, "")
	if err == nil {
		return feedID, nil
	}
	if id := f.findFeed(url); id != 0 {
		return id, nil
	}
	return 0, err
}

func (f *Fetcher) findFeed(url string) int64 {
	feeds, err := f.store.GetAllFeeds()
	if err != nil {
		return 0
	}
	for _, existing := range feeds {
		if existing.URL == url {
			return existing.ID
		}
	}
	return 0
}

// ImportOPML adds every feed found in an OPML file, folders included.
// It returns the number of feeds added or already present.
func (f *Fetcher) ImportOPML(opmlPath string) (int, error) {
	data, err := os.ReadFile(opmlPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read OPML file: %w", err)
	}

	var opml OPML
	if err := xml.Unmarshal(data, &opml); err != nil {
		return 0, fmt.Errorf("failed to parse OPML: %w", err)
	}

	added := 0
	var processOutlines func(outlines []OPMLOutline)
	processOutlines = func(outlines []OPMLOutline) {
		for _, outline := range outlines {
			if outline.XMLURL != "" {
				title := outline.Title
				if title == "" {
					title = outline.Text
				}
				if _, err := f.AddFeed(outline.XMLURL, title); err != nil {
					f.logger.Warn("failed to add feed", "url", outline.XMLURL, "error", err)
				} else {
					added++
				}
			}

			// folders
			if len(outline.Outlines) > 0 {
				processOutlines(outline.Outlines)
			}
		}
	}

	processOutlines(opml.Body.Outlines)
	f.logger.Info("imported opml", "path", opmlPath, "feeds", added)
	return added, nil
}

// StoreAlerts stores the items of a feed and tags each new alert with the
// diseases it mentions. It returns the number of new alerts and how many
// of them were tagged.
func (f *Fetcher) StoreAlerts(feedID int64, feed *gofeed.Feed, diseases []catalog.Disease) (stored, tagged int, err error) {
	for _, item := range feed.Items {
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			guid = item.Title
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		alert := &storage.Alert{
			FeedID:      feedID,
			GUID:        guid,
			Title:       item.Title,
			URL:         item.Link,
			Description: description,
		}
		if item.PublishedParsed != nil {
			alert.PublishedDate = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			alert.PublishedDate = item.UpdatedParsed
		}

		alertID, err := f.store.AddAlert(alert)
		if err != nil {
			return stored, tagged, err
		}
		if alertID == 0 {
			continue
		}
		stored++

		ids := TagDiseases(item.Title+"\n"+f.strip.Sanitize(description), diseases)
		if len(ids) == 0 {
			continue
		}
		if err := f.store.TagAlertDiseases(alertID, ids); err != nil {
			return stored, tagged, err
		}
		tagged++
	}
	return stored, tagged, nil
}

// FetchAll fetches every enabled feed and stores new alerts. A failing feed
// is recorded on the feed and counted; it does not stop the run.
func (f *Fetcher) FetchAll(ctx context.Context, diseases []catalog.Disease) (FetchStats, error) {
	var stats FetchStats
	feeds, err := f.store.GetAllFeeds()
	if err != nil {
		return stats, fmt.Errorf("failed to get feeds: %w", err)
	}

	for _, feed := range feeds {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Feeds++

		feedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		result, err := f.FetchFeed(feedCtx, feed)
		cancel()
		if err != nil {
			stats.Errors++
			f.logger.Warn("failed to fetch feed", "url", feed.URL, "error", err)
			if err := f.store.UpdateFeedError(feed.ID, err.Error()); err != nil {
				f.logger.Warn("failed to record feed error", "url", feed.URL, "error", err)
			}
			continue
		}

		if result.NotModified {
			stats.NotModified++
		} else {
			stored, tagged, err := f.StoreAlerts(feed.ID, result.Feed, diseases)
			stats.Stored += stored
			stats.Tagged += tagged
			if err != nil {
				// cache headers stay unchanged so the next run refetches the items
				stats.Errors++
				f.logger.Warn("error storing alerts", "url", feed.URL, "error", err)
				if err := f.store.UpdateFeedError(feed.ID, err.Error()); err != nil {
					f.logger.Warn("failed to record feed error", "url", feed.URL, "error", err)
				}
				continue
			}

			if result.ETag != "" || result.LastModified != "" {
				if err := f.store.UpdateFeedCacheHeaders(feed.ID, result.ETag, result.LastModified); err != nil {
					f.logger.Warn("failed to store cache headers", "url", feed.URL, "error", err)
				}
			}
		}

		if err := f.store.ClearFeedError(feed.ID); err != nil {
			f.logger.Warn("failed to update last_fetched", "url", feed.URL, "error", err)
		}
	}

	f.logger.Info("alerts fetched", "feeds", stats.Feeds, "stored", stats.Stored,
		"tagged", stats.Tagged, "not_modified", stats.NotModified, "errors", stats.Errors)
	return stats, nil
}

// TagDiseases returns the ids of the diseases mentioned in text. A disease
// is mentioned when its name, or its name without the crop prefix, occurs
// in text. When text also names one or more catalog crops, only diseases of
// those crops are kept, so "番茄早疫病" does not tag the potato record.
func TagDiseases(text string, diseases []catalog.Disease) []int {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	mentionedCrops := make(map[string]bool)
	for _, d := range diseases {
		if d.Crop != "" && strings.Contains(text, d.Crop) {
			mentionedCrops[d.Crop] = true
		}
	}

	var ids []int
	seen := make(map[int]bool)
	for _, d := range diseases {
		if seen[d.ID] || d.Name == "" {
			continue
		}
		if !strings.Contains(text, d.Name) && !strings.Contains(text, d.ShortName()) {
			continue
		}
		if len(mentionedCrops) > 0 && !mentionedCrops[d.Crop] {
			continue
		}
		seen[d.ID] = true
		ids = append(ids, d.ID)
	}
	return ids
}
