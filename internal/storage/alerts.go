package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// AddFeed adds a new bulletin feed to the database
func (s *SQLiteStore) AddFeed(url, title, description string) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO feeds (url, title, description) VALUES (?, ?, ?)",
		url, title, description,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add feed: %w", err)
	}
	return result.LastInsertId()
}

// GetAllFeeds returns all enabled feeds
func (s *SQLiteStore) GetAllFeeds() ([]Feed, error) {
	rows, err := s.db.Query("SELECT id, url, title, description, last_fetched, last_error, etag, last_modified, enabled, created_at FROM feeds WHERE enabled = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var f Feed
		var desc, etag, lastMod sql.NullString
		if err := rows.Scan(&f.ID, &f.URL, &f.Title, &desc, &f.LastFetched, &f.LastError, &etag, &lastMod, &f.Enabled, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		f.Description = desc.String
		f.ETag = etag.String
		f.LastModified = lastMod.String
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

// UpdateFeedError records a fetch error for a feed.
func (s *SQLiteStore) UpdateFeedError(feedID int64, errMsg string) error {
	_, err := s.db.Exec("UPDATE feeds SET last_error = ? WHERE id = ?", errMsg, feedID)
	if err != nil {
		return fmt.Errorf("failed to update feed error: %w", err)
	}
	return nil
}

// ClearFeedError clears the last error and updates last_fetched for a feed.
func (s *SQLiteStore) ClearFeedError(feedID int64) error {
	_, err := s.db.Exec("UPDATE feeds SET last_error = NULL, last_fetched = CURRENT_TIMESTAMP WHERE id = ?", feedID)
	if err != nil {
		return fmt.Errorf("failed to clear feed error: %w", err)
	}
	return nil
}

// UpdateFeedCacheHeaders stores the HTTP cache headers from the last successful fetch.
func (s *SQLiteStore) UpdateFeedCacheHeaders(feedID int64, etag, lastModified string) error {
	_, err := s.db.Exec("UPDATE feeds SET etag = ?, last_modified = ? WHERE id = ?", etag, lastModified, feedID)
	if err != nil {
		return fmt.Errorf("failed to update feed cache headers: %w", err)
	}
	return nil
}

// RenameFeed updates the display title of a feed.
func (s *SQLiteStore) RenameFeed(feedID int64, title string) error {
	_, err := s.db.Exec("UPDATE feeds SET title = ? WHERE id = ?", title, feedID)
	if err != nil {
		return fmt.Errorf("failed to rename feed: %w", err)
	}
	return nil
}

// AddAlert stores a bulletin item. Returns 0 if the item was already stored.
func (s *SQLiteStore) AddAlert(alert *Alert) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO alerts (feed_id, guid, title, url, description, published_date)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(feed_id, guid) DO NOTHING`,
		alert.FeedID, alert.GUID, alert.Title, alert.URL,
		alert.Description, alert.PublishedDate,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add alert: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// TagAlertDiseases links an alert to the diseases it mentions.
func (s *SQLiteStore) TagAlertDiseases(alertID int64, diseaseIDs []int) error {
	for _, id := range diseaseIDs {
		if _, err := s.db.Exec(
			"INSERT OR IGNORE INTO alert_diseases (alert_id, disease_id) VALUES (?, ?)",
			alertID, id,
		); err != nil {
			return fmt.Errorf("tag alert %d: %w", alertID, err)
		}
	}
	return nil
}

// GetRecentAlerts returns the newest alerts with their disease tags.
func (s *SQLiteStore) GetRecentAlerts(limit int) ([]Alert, error) {
	query := `
		SELECT id, feed_id, guid, title, url, description, published_date, fetched_date
		FROM alerts
		ORDER BY COALESCE(published_date, fetched_date) DESC, id DESC
		LIMIT ?
	`
	alerts, err := s.queryAlerts(query, limit)
	if err != nil {
		return nil, err
	}
	return alerts, s.loadAlertTags(alerts)
}

// GetAlertsForDiseases returns the newest alerts tagged with any of the given diseases.
func (s *SQLiteStore) GetAlertsForDiseases(diseaseIDs []int, limit int) ([]Alert, error) {
	if len(diseaseIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(diseaseIDs)), ",")
	query := fmt.Sprintf(`
		SELECT DISTINCT a.id, a.feed_id, a.guid, a.title, a.url, a.description, a.published_date, a.fetched_date
		FROM alerts a
		JOIN alert_diseases ad ON ad.alert_id = a.id
		WHERE ad.disease_id IN (%s)
		ORDER BY COALESCE(a.published_date, a.fetched_date) DESC, a.id DESC
		LIMIT ?
	`, placeholders)

	args := make([]any, 0, len(diseaseIDs)+1)
	for _, id := range diseaseIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	alerts, err := s.queryAlerts(query, args...)
	if err != nil {
		return nil, err
	}
	return alerts, s.loadAlertTags(alerts)
}

func (s *SQLiteStore) queryAlerts(query string, args ...any) ([]Alert, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var desc sql.NullString
		if err := rows.Scan(&a.ID, &a.FeedID, &a.GUID, &a.Title, &a.URL, &desc, &a.PublishedDate, &a.FetchedDate); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Description = desc.String
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteStore) loadAlertTags(alerts []Alert) error {
	for i := range alerts {
		rows, err := s.db.Query(
			"SELECT disease_id FROM alert_diseases WHERE alert_id = ? ORDER BY disease_id",
			alerts[i].ID,
		)
		if err != nil {
			return fmt.Errorf("get alert tags: %w", err)
		}
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan alert tag: %w", err)
			}
			alerts[i].DiseaseIDs = append(alerts[i].DiseaseIDs, id)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
