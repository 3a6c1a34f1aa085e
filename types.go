package plantdoc

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/matthewjhunter/plantdoc/internal/ai"
	"github.com/matthewjhunter/plantdoc/internal/catalog"
	"github.com/matthewjhunter/plantdoc/internal/feeds"
	"github.com/matthewjhunter/plantdoc/internal/gallery"
	"github.com/matthewjhunter/plantdoc/internal/prefs"
	"github.com/matthewjhunter/plantdoc/internal/share"
	"github.com/matthewjhunter/plantdoc/internal/storage"
)

// EngineConfig configures the plantdoc engine.
type EngineConfig struct {
	DBPath string

	DataURL     string // base URL serving diseases.json and images/frontend_images.json
	DataDir     string // local data directory, used when DataURL is empty
	DataTimeout time.Duration

	PageSize          int
	SlideshowInterval time.Duration

	OllamaBaseURL string
	ChatModel     string
	EmbedModel    string
	Temperature   float64
	AdvisorPrompt string // overrides the built-in advisor prompt
	TriagePrompt  string // overrides the built-in triage prompt

	ShareSecret string // random per process when empty
	ShareTTL    time.Duration

	Logger     *slog.Logger
	HTTPClient *http.Client
}

// EngineConfigFrom maps a loaded config file onto an EngineConfig.
func EngineConfigFrom(cfg *storage.Config, logger *slog.Logger) EngineConfig {
	return EngineConfig{
		DBPath:            cfg.Database.Path,
		DataURL:           cfg.Data.URL,
		DataDir:           cfg.Data.Dir,
		DataTimeout:       cfg.Data.Timeout,
		PageSize:          cfg.Gallery.PageSize,
		SlideshowInterval: cfg.Gallery.SlideshowInterval,
		OllamaBaseURL:     cfg.Ollama.BaseURL,
		ChatModel:         cfg.Ollama.ChatModel,
		EmbedModel:        cfg.Ollama.EmbedModel,
		Temperature:       cfg.Ollama.Temperature,
		AdvisorPrompt:     cfg.Prompts.Advisor,
		TriagePrompt:      cfg.Prompts.Triage,
		ShareSecret:       cfg.Share.Secret,
		ShareTTL:          cfg.Share.TTL,
		Logger:            logger,
	}
}

// Catalog types.
type (
	Disease       = catalog.Disease
	Pesticide     = catalog.Pesticide
	Image         = catalog.Image
	Filter        = catalog.Filter
	FilterOptions = catalog.FilterOptions
	Suggestion    = catalog.Suggestion
	Graph         = catalog.Graph
	CompareTable  = catalog.CompareTable
	ImageMatch    = catalog.ImageMatch
	Stats         = catalog.Stats
	LoadResult    = catalog.LoadResult
	GalleryFilter = gallery.Filter
	UserData      = prefs.UserData
	Settings      = prefs.Settings
	TriageMatch   = ai.TriageMatch
	FetchStats    = feeds.FetchStats
)

// Sentinel errors returned by the engine.
var (
	ErrNotFound           = catalog.ErrNotFound
	ErrCompareFull        = prefs.ErrCompareFull
	ErrNotEnoughToCompare = prefs.ErrNotEnoughToCompare
	ErrEmptyQuestion      = ai.ErrEmptyQuestion
	ErrInvalidToken       = share.ErrInvalidToken
)

// User represents a registered user.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Feed represents a bulletin feed subscription.
type Feed struct {
	ID          int64      `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	LastFetched *time.Time `json:"last_fetched,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
	Enabled     bool       `json:"enabled"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Alert is one bulletin item, tagged with the diseases it mentions.
type Alert struct {
	ID            int64      `json:"id"`
	FeedID        int64      `json:"feed_id"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	Description   string     `json:"description,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	FetchedDate   time.Time  `json:"fetched_date"`
	DiseaseIDs    []int      `json:"disease_ids,omitempty"`
}

// DatasetStatus describes the dataset currently served.
type DatasetStatus struct {
	Diseases         int         `json:"diseases"`
	Images           int         `json:"images"`
	DiseasesFallback bool        `json:"diseases_fallback"`
	ImagesFallback   bool        `json:"images_fallback"`
	LastUpdated      string      `json:"last_updated,omitempty"`
	LoadedAt         time.Time   `json:"loaded_at"`
	LastLoad         *LoadResult `json:"last_load,omitempty"`
}

// DiseaseDetail is everything the detail view shows for one disease.
type DiseaseDetail struct {
	Disease         Disease    `json:"disease"`
	SeverityLabel   string     `json:"severity_label"`
	Gallery         ImageMatch `json:"gallery"`
	Graph           Graph      `json:"graph"`
	SymptomKeywords []string   `json:"symptom_keywords,omitempty"`
	Related         []Disease  `json:"related,omitempty"`
	IsFavorite      bool       `json:"is_favorite"`
	InCompare       bool       `json:"in_compare"`
}

// GalleryPage is one page of the filtered image gallery.
type GalleryPage struct {
	Filter      GalleryFilter `json:"filter"`
	Images      []Image       `json:"images"`
	Page        int           `json:"page"`
	TotalPages  int           `json:"total_pages"`
	Total       int           `json:"total"`
	PageSize    int           `json:"page_size"`
	Pages       []int         `json:"pages"` // page window, 0 marks a gap
	QuickAccess []Image       `json:"quick_access,omitempty"`
	Crops       []string      `json:"crops"`
	Diseases    []string      `json:"diseases"`
	Types       []string      `json:"types"`
}

// ImageView is one gallery image opened in the viewer, with its
// thumbnail strip.
type ImageView struct {
	Image        Image   `json:"image"`
	Index        int     `json:"index"`
	Total        int     `json:"total"`
	Thumbnails   []Image `json:"thumbnails"`
	ThumbOffset  int     `json:"thumb_offset"`
	Similar      []Image `json:"similar,omitempty"`
	DownloadName string  `json:"download_name"`
}

// SimilarDisease is a disease ranked by embedding similarity.
type SimilarDisease struct {
	Disease    Disease `json:"disease"`
	Similarity float64 `json:"similarity"`
}

// Export is the downloadable copy of a user's stored data.
type Export struct {
	UserData   UserData  `json:"userData"`
	Settings   Settings  `json:"userSettings"`
	Favorites  []int     `json:"disease_favorites"`
	Compare    []int     `json:"disease_compare"`
	History    []string  `json:"disease_search_history"`
	ExportedAt time.Time `json:"exportedAt"`
}
