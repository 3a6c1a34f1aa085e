package storage

import "time"

// Store defines the storage interface for plantdoc's data layer.
type Store interface {
	Close() error

	// Users
	CreateUser(name string) (int64, error)
	GetUserByName(name string) (*User, error)
	ListUsers() ([]User, error)
	EnsureUser(id int64, name string) error

	// User preferences
	GetUserPreference(userID int64, key string) (string, error)
	SetUserPreference(userID int64, key, value string) error
	GetAllUserPreferences(userID int64) (map[string]string, error)
	DeleteUserPreference(userID int64, key string) error

	// Data sources
	GetDataSource(url string) (*DataSource, error)
	UpdateDataSourceCacheHeaders(url, etag, lastModified string) error
	UpdateDataSourceError(url, errMsg string) error

	// Alert feeds
	AddFeed(url, title, description string) (int64, error)
	GetAllFeeds() ([]Feed, error)
	UpdateFeedError(feedID int64, errMsg string) error
	ClearFeedError(feedID int64) error
	UpdateFeedCacheHeaders(feedID int64, etag, lastModified string) error
	RenameFeed(feedID int64, title string) error

	// Alerts
	AddAlert(alert *Alert) (int64, error)
	TagAlertDiseases(alertID int64, diseaseIDs []int) error
	GetRecentAlerts(limit int) ([]Alert, error)
	GetAlertsForDiseases(diseaseIDs []int, limit int) ([]Alert, error)

	// Embeddings
	GetDiseaseEmbedding(diseaseID int, model string) (*DiseaseEmbedding, error)
	UpsertDiseaseEmbedding(e *DiseaseEmbedding) error
	ListDiseaseEmbeddings(model string) ([]DiseaseEmbedding, error)
}

type User struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// DataSource holds the HTTP cache state of a remote dataset URL.
type DataSource struct {
	URL          string
	ETag         string
	LastModified string
	LastFetched  *time.Time
	LastError    *string
}

type Feed struct {
	ID           int64
	URL          string
	Title        string
	Description  string
	LastFetched  *time.Time
	LastError    *string
	ETag         string
	LastModified string
	Enabled      bool
	CreatedAt    time.Time
}

type Alert struct {
	ID            int64
	FeedID        int64
	GUID          string
	Title         string
	URL           string
	Description   string
	PublishedDate *time.Time
	FetchedDate   time.Time
	DiseaseIDs    []int
}

type DiseaseEmbedding struct {
	DiseaseID   int
	Model       string
	ContentHash string
	Embedding   []byte
	UpdatedAt   time.Time
}
