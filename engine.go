package plantdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matthewjhunter/plantdoc/internal/ai"
	"github.com/matthewjhunter/plantdoc/internal/catalog"
	"github.com/matthewjhunter/plantdoc/internal/feeds"
	"github.com/matthewjhunter/plantdoc/internal/gallery"
	"github.com/matthewjhunter/plantdoc/internal/notify"
	"github.com/matthewjhunter/plantdoc/internal/prefs"
	"github.com/matthewjhunter/plantdoc/internal/share"
	"github.com/matthewjhunter/plantdoc/internal/storage"
)

const defaultSimilarCount = 5

// Engine is the public API for plantdoc. It wraps the catalog, the
// preference store, the alert fetcher and the optional Ollama features.
// It is safe for concurrent use; preference updates are serialized.
type Engine struct {
	catalog *catalog.Catalog
	loader  *catalog.Loader
	store   storage.Store
	fetcher *feeds.Fetcher
	prompts *ai.PromptLoader
	advisor *ai.Advisor
	index   *ai.SimilarityIndex
	signer  *share.Signer
	config  EngineConfig
	logger  *slog.Logger

	mu sync.Mutex // preference read-modify-write

	loadMu   sync.Mutex
	lastLoad *LoadResult
}

// NewEngine creates an engine backed by the given SQLite database. It
// starts with the built-in fallback data; call Reload to load the
// configured source. The Ollama clients are created eagerly but only
// contact the server when an AI method is called.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DataTimeout == 0 {
		cfg.DataTimeout = 10 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = gallery.DefaultPageSize
	}
	if cfg.SlideshowInterval <= 0 {
		cfg.SlideshowInterval = gallery.DefaultSlideshowInterval
	}
	if cfg.OllamaBaseURL == "" {
		cfg.OllamaBaseURL = "http://localhost:11434"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "llama3"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "nomic-embed-text"
	}
	if cfg.ShareTTL == 0 {
		cfg.ShareTTL = share.DefaultTTL
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	storeCfg := storage.DefaultConfig()
	storeCfg.Ollama.Temperature = cfg.Temperature
	storeCfg.Prompts.Advisor = cfg.AdvisorPrompt
	storeCfg.Prompts.Triage = cfg.TriagePrompt
	prompts := ai.NewPromptLoader(store, storeCfg)

	advisor, err := ai.NewAdvisor(cfg.OllamaBaseURL, cfg.ChatModel, prompts, cfg.HTTPClient)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create advisor: %w", err)
	}
	embedder, err := ai.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.EmbedModel, cfg.HTTPClient)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	signer, err := share.NewSigner(cfg.ShareSecret)
	if err != nil {
		store.Close()
		return nil, err
	}

	loader := catalog.NewLoader(catalog.LoaderConfig{
		BaseURL: cfg.DataURL,
		Dir:     cfg.DataDir,
		Timeout: cfg.DataTimeout,
		Client:  cfg.HTTPClient,
		Cache:   store,
		Logger:  cfg.Logger,
	})

	return &Engine{
		catalog: catalog.New(),
		loader:  loader,
		store:   store,
		fetcher: feeds.NewFetcher(store, cfg.Logger),
		prompts: prompts,
		advisor: advisor,
		index:   ai.NewSimilarityIndex(embedder, store),
		signer:  signer,
		config:  cfg,
		logger:  cfg.Logger,
	}, nil
}

// Close releases all resources held by the engine.
func (e *Engine) Close() error {
	return e.store.Close()
}

// --- dataset ---

// Reload loads the configured data source and swaps it in. It never fails:
// collections that cannot be loaded fall back to the built-in data.
func (e *Engine) Reload(ctx context.Context) LoadResult {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	ds, result := e.loader.Load(ctx, e.catalog.Snapshot())
	e.catalog.Replace(ds)
	e.lastLoad = &result
	return result
}

// Watch reloads the data whenever the files in the local data directory
// change. It blocks until ctx is done.
func (e *Engine) Watch(ctx context.Context) error {
	if e.config.DataURL != "" || e.config.DataDir == "" {
		return fmt.Errorf("watch needs a local data directory")
	}
	return catalog.Watch(ctx, e.config.DataDir, catalog.DefaultWatchDebounce, e.logger, func() {
		e.Reload(ctx)
	})
}

// Status describes the dataset currently served.
func (e *Engine) Status() DatasetStatus {
	ds := e.catalog.Snapshot()
	e.loadMu.Lock()
	last := e.lastLoad
	e.loadMu.Unlock()
	return DatasetStatus{
		Diseases:         len(ds.Diseases),
		Images:           len(ds.Images),
		DiseasesFallback: ds.DiseasesFallback,
		ImagesFallback:   ds.ImagesFallback,
		LastUpdated:      ds.LastUpdated,
		LoadedAt:         ds.LoadedAt,
		LastLoad:         last,
	}
}

// --- catalog ---

// Diseases returns every disease in source order.
func (e *Engine) Diseases() []Disease {
	return e.catalog.Diseases()
}

// Disease returns one disease by id.
func (e *Engine) Disease(id int) (Disease, error) {
	return e.catalog.Disease(id)
}

// Search applies the filter and free-text term. An empty filter returns
// the whole catalog in source order.
func (e *Engine) Search(f Filter) []Disease {
	return catalog.Search(e.catalog.Diseases(), f)
}

// FilterOptions lists the values the catalog filters can take.
func (e *Engine) FilterOptions() FilterOptions {
	return catalog.Options(e.catalog.Diseases())
}

// FilterLabels returns the human-readable labels of the active filters.
func (e *Engine) FilterLabels(f Filter) []string {
	return catalog.ActiveFilterLabels(f)
}

func (e *Engine) Suggest(term string) []Suggestion {
	return catalog.Suggest(term, e.catalog.Diseases())
}

func (e *Engine) PopularSearches() []string {
	return catalog.PopularSearches(e.catalog.Diseases())
}

// Graph builds the knowledge graph of one disease.
func (e *Engine) Graph(id int) (Graph, error) {
	d, err := e.catalog.Disease(id)
	if err != nil {
		return Graph{}, err
	}
	return catalog.BuildGraph(d, e.catalog.Diseases()), nil
}

// Detail gathers the detail view of a disease for a user.
func (e *Engine) Detail(userID int64, id int) (*DiseaseDetail, error) {
	d, err := e.catalog.Disease(id)
	if err != nil {
		return nil, err
	}
	state := e.loadState(userID)
	ds := e.catalog.Snapshot()
	return &DiseaseDetail{
		Disease:         d,
		SeverityLabel:   catalog.SeverityLabel(d.Severity),
		Gallery:         catalog.MatchImages(d, ds.Images),
		Graph:           catalog.BuildGraph(d, ds.Diseases),
		SymptomKeywords: catalog.SymptomKeywords(d),
		Related:         e.catalog.DiseasesByID(d.RelatedDiseases),
		IsFavorite:      state.IsFavorite(id),
		InCompare:       state.InCompare(id),
	}, nil
}

// Stats summarizes the dataset for the dashboard.
func (e *Engine) Stats() Stats {
	return catalog.ComputeStats(e.catalog.Snapshot())
}

// CompareDiseases builds the compare table for the given ids, skipping ids
// that are not in the catalog.
func (e *Engine) CompareDiseases(ids []int) (CompareTable, error) {
	diseases := e.catalog.DiseasesByID(ids)
	if len(diseases) < prefs.MinCompare {
		return CompareTable{}, ErrNotEnoughToCompare
	}
	return catalog.BuildCompareTable(diseases), nil
}

// --- gallery ---

// GalleryImages returns every image passing the filter.
func (e *Engine) GalleryImages(f GalleryFilter) []Image {
	g := gallery.New(e.catalog.Images(), e.config.PageSize)
	g.Apply(f)
	return g.Images()
}

// GalleryPage returns one page of the filtered gallery. The page number is
// clamped to the available pages.
func (e *Engine) GalleryPage(f GalleryFilter, page int) GalleryPage {
	ds := e.catalog.Snapshot()
	g := gallery.New(ds.Images, e.config.PageSize)
	g.Apply(f)
	images := g.Page(page)

	types := make(map[string]bool)
	for _, img := range ds.Images {
		if img.Type != "" {
			types[img.Type] = true
		}
	}
	typeList := make([]string, 0, len(types))
	for t := range types {
		typeList = append(typeList, t)
	}
	sort.Strings(typeList)

	return GalleryPage{
		Filter:      f,
		Images:      images,
		Page:        g.CurrentPage(),
		TotalPages:  g.TotalPages(),
		Total:       g.Len(),
		PageSize:    g.PageSize(),
		Pages:       gallery.PageWindow(g.CurrentPage(), g.TotalPages()),
		QuickAccess: g.QuickAccess(),
		Crops:       ds.Crops,
		Diseases:    ds.ImageTypes,
		Types:       typeList,
	}
}

// GalleryImage opens one image of the filtered gallery in the viewer.
func (e *Engine) GalleryImage(f GalleryFilter, id string) (*ImageView, error) {
	g := gallery.New(e.catalog.Images(), e.config.PageSize)
	g.Apply(f)
	images := g.Images()
	for i, img := range images {
		if img.ID != id {
			continue
		}
		thumbs, offset := g.Thumbnails(i)
		return &ImageView{
			Image:        img,
			Index:        i,
			Total:        len(images),
			Thumbnails:   thumbs,
			ThumbOffset:  offset,
			Similar:      g.Similar(img),
			DownloadName: gallery.DownloadName(img),
		}, nil
	}
	return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
}

// GallerySelection narrows the filtered gallery to the given image ids, in
// selection order. Ids outside the filter are ignored.
func (e *Engine) GallerySelection(f GalleryFilter, ids []string) ([]Image, error) {
	g := gallery.New(e.catalog.Images(), e.config.PageSize)
	g.Apply(f)
	visible := make(map[string]bool, g.Len())
	for _, img := range g.Images() {
		visible[img.ID] = true
	}
	for _, id := range ids {
		if visible[id] && !g.IsSelected(id) {
			g.Toggle(id)
		}
	}
	if err := g.ViewSelected(); err != nil {
		return nil, err
	}
	return g.Images(), nil
}

// SlideshowInterval is the configured auto-advance interval.
func (e *Engine) SlideshowInterval() time.Duration {
	return e.config.SlideshowInterval
}

// --- users ---

func (e *Engine) CreateUser(name string) (int64, error) {
	return e.store.CreateUser(name)
}

// EnsureUser creates the user with the given id if it does not exist.
func (e *Engine) EnsureUser(id int64, name string) error {
	return e.store.EnsureUser(id, name)
}

func (e *Engine) GetUserByName(name string) (*User, error) {
	u, err := e.store.GetUserByName(name)
	if err != nil || u == nil {
		return nil, err
	}
	return &User{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt}, nil
}

func (e *Engine) ListUsers() ([]User, error) {
	users, err := e.store.ListUsers()
	if err != nil {
		return nil, err
	}
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = User{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt}
	}
	return out, nil
}

// --- preferences ---

// loadPref decodes one stored preference and reports whether dest was
// filled. Missing keys leave dest alone; malformed values are logged and
// must be ignored by the caller.
func (e *Engine) loadPref(userID int64, key string, dest any) bool {
	found, err := storage.LoadJSONPreference(e.store, userID, key, dest)
	if err == nil {
		return found
	}
	if errors.Is(err, storage.ErrMalformedPreference) {
		e.logger.Warn("ignoring malformed preference", "user", userID, "key", key, "error", err)
	} else {
		e.logger.Error("failed to read preference", "user", userID, "key", key, "error", err)
	}
	return false
}

func (e *Engine) loadState(userID int64) prefs.State {
	var s prefs.State
	var favorites, compare []int
	var history []string
	if e.loadPref(userID, storage.PrefFavorites, &favorites) {
		s.Favorites = favorites
	}
	if e.loadPref(userID, storage.PrefCompare, &compare) {
		s.Compare = compare
	}
	if e.loadPref(userID, storage.PrefSearchHistory, &history) {
		s.History = history
	}
	s.Normalize()
	return s
}

// ToggleFavorite adds or removes a favorite and reports whether the disease
// is a favorite afterwards. Only diseases in the catalog can be added.
func (e *Engine) ToggleFavorite(userID int64, id int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.loadState(userID)
	if !s.IsFavorite(id) {
		if _, err := e.catalog.Disease(id); err != nil {
			return false, err
		}
	}
	on := s.ToggleFavorite(id)
	if err := storage.SaveJSONPreference(e.store, userID, storage.PrefFavorites, nonNilInts(s.Favorites)); err != nil {
		return !on, err
	}
	return on, nil
}

// Favorites returns the favorite disease ids in the order they were added.
func (e *Engine) Favorites(userID int64) []int {
	return e.loadState(userID).Favorites
}

// FavoriteDiseases returns the favorites that exist in the current catalog.
func (e *Engine) FavoriteDiseases(userID int64) []Disease {
	return e.catalog.DiseasesByID(e.Favorites(userID))
}

// AddToCompare appends a disease to the compare list and returns the list.
// A full list returns ErrCompareFull and is left unchanged.
func (e *Engine) AddToCompare(userID int64, id int) ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.catalog.Disease(id); err != nil {
		return nil, err
	}
	s := e.loadState(userID)
	if err := s.AddCompare(id); err != nil {
		return s.Compare, err
	}
	return s.Compare, e.saveCompare(userID, s.Compare)
}

// RemoveFromCompare drops a disease from the compare list and returns the list.
func (e *Engine) RemoveFromCompare(userID int64, id int) ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.loadState(userID)
	if !s.RemoveCompare(id) {
		return s.Compare, nil
	}
	return s.Compare, e.saveCompare(userID, s.Compare)
}

func (e *Engine) ClearCompare(userID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveCompare(userID, nil)
}

func (e *Engine) saveCompare(userID int64, ids []int) error {
	return storage.SaveJSONPreference(e.store, userID, storage.PrefCompare, nonNilInts(ids))
}

// CompareList returns the compare ids in insertion order.
func (e *Engine) CompareList(userID int64) []int {
	return e.loadState(userID).Compare
}

// CompareTable builds the table for the user's compare list. At least two
// diseases are needed.
func (e *Engine) CompareTable(userID int64) (CompareTable, error) {
	s := e.loadState(userID)
	if err := s.CanCompare(); err != nil {
		return CompareTable{}, err
	}
	return e.CompareDiseases(s.Compare)
}

// RecordSearch puts a search term at the front of the user's history.
func (e *Engine) RecordSearch(userID int64, term string) error {
	if strings.TrimSpace(term) == "" {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.loadState(userID)
	s.RecordSearch(term)
	return storage.SaveJSONPreference(e.store, userID, storage.PrefSearchHistory, s.History)
}

// SearchHistory returns the user's recent searches, newest first.
func (e *Engine) SearchHistory(userID int64) []string {
	return e.loadState(userID).History
}

func (e *Engine) ClearSearchHistory(userID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return storage.SaveJSONPreference(e.store, userID, storage.PrefSearchHistory, []string{})
}

// UserData returns the stored profile, or the default profile when none
// has been saved.
func (e *Engine) UserData(userID int64) UserData {
	data := prefs.DefaultUserData()
	stored := data
	if e.loadPref(userID, storage.PrefUserData, &stored) {
		data = stored
	}
	return data
}

// SaveUserData merges the non-empty fields of update into the profile.
func (e *Engine) SaveUserData(userID int64, update UserData) (UserData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data := e.UserData(userID).Merge(update)
	if err := storage.SaveJSONPreference(e.store, userID, storage.PrefUserData, data); err != nil {
		return UserData{}, err
	}
	return data, nil
}

// UserSettings returns the stored settings, never nil.
func (e *Engine) UserSettings(userID int64) Settings {
	var settings Settings
	if !e.loadPref(userID, storage.PrefUserSettings, &settings) || settings == nil {
		settings = Settings{}
	}
	return settings
}

// SaveSetting stores one setting and returns the updated settings.
func (e *Engine) SaveSetting(userID int64, key, value string) (Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings := e.UserSettings(userID)
	if err := settings.Set(key, value); err != nil {
		return nil, err
	}
	if err := storage.SaveJSONPreference(e.store, userID, storage.PrefUserSettings, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// ExportUserData returns all stored data of a user as indented JSON.
func (e *Engine) ExportUserData(userID int64) ([]byte, error) {
	s := e.loadState(userID)
	export := Export{
		UserData:   e.UserData(userID),
		Settings:   e.UserSettings(userID),
		Favorites:  nonNilInts(s.Favorites),
		Compare:    nonNilInts(s.Compare),
		History:    s.History,
		ExportedAt: time.Now().UTC(),
	}
	if export.History == nil {
		export.History = []string{}
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

func nonNilInts(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}

// --- share links ---

// ShareCompare signs a link token for the user's compare list.
func (e *Engine) ShareCompare(userID int64) (string, error) {
	s := e.loadState(userID)
	if err := s.CanCompare(); err != nil {
		return "", err
	}
	return e.signer.Sign(s.Compare, e.config.ShareTTL)
}

// SharedCompare verifies a share token and builds its compare table.
func (e *Engine) SharedCompare(token string) (CompareTable, error) {
	ids, err := e.signer.Verify(token)
	if err != nil {
		return CompareTable{}, err
	}
	return e.CompareDiseases(ids)
}

// --- alerts ---

// AddFeed subscribes to a bulletin feed.
func (e *Engine) AddFeed(url, title string) (int64, error) {
	return e.fetcher.AddFeed(url, title)
}

// ImportOPML subscribes to every feed in an OPML file.
func (e *Engine) ImportOPML(path string) (int, error) {
	return e.fetcher.ImportOPML(path)
}

func (e *Engine) Feeds() ([]Feed, error) {
	feeds, err := e.store.GetAllFeeds()
	if err != nil {
		return nil, err
	}
	out := make([]Feed, len(feeds))
	for i, f := range feeds {
		out[i] = Feed{
			ID:          f.ID,
			URL:         f.URL,
			Title:       f.Title,
			LastFetched: f.LastFetched,
			LastError:   f.LastError,
			Enabled:     f.Enabled,
			CreatedAt:   f.CreatedAt,
		}
	}
	return out, nil
}

// FetchAlerts polls every feed and tags new alerts with catalog diseases.
func (e *Engine) FetchAlerts(ctx context.Context) (FetchStats, error) {
	return e.fetcher.FetchAll(ctx, e.catalog.Diseases())
}

// Alerts returns the newest alerts.
func (e *Engine) Alerts(limit int) ([]Alert, error) {
	alerts, err := e.store.GetRecentAlerts(limit)
	if err != nil {
		return nil, err
	}
	return alertsFromInternal(alerts), nil
}

// AlertsForUser returns the newest alerts that mention a favorite disease.
func (e *Engine) AlertsForUser(userID int64, limit int) ([]Alert, error) {
	alerts, err := e.store.GetAlertsForDiseases(e.Favorites(userID), limit)
	if err != nil {
		return nil, err
	}
	return alertsFromInternal(alerts), nil
}

// NotifyFollowed hands the user's followed alerts to n.
func (e *Engine) NotifyFollowed(n *notify.Notifier, userID int64, limit int) (int, error) {
	favorites := e.Favorites(userID)
	alerts, err := e.store.GetAlertsForDiseases(favorites, limit)
	if err != nil {
		return 0, err
	}
	return n.NotifyFollowed(alerts, favorites, e.catalog.Diseases())
}

func alertsFromInternal(alerts []storage.Alert) []Alert {
	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = Alert{
			ID:            a.ID,
			FeedID:        a.FeedID,
			Title:         a.Title,
			URL:           a.URL,
			Description:   a.Description,
			PublishedDate: a.PublishedDate,
			FetchedDate:   a.FetchedDate,
			DiseaseIDs:    a.DiseaseIDs,
		}
	}
	return out
}

// --- advisor ---

// Ask answers a question about one disease with the chat model.
func (e *Engine) Ask(ctx context.Context, userID int64, id int, question string) (string, error) {
	d, err := e.catalog.Disease(id)
	if err != nil {
		return "", err
	}
	return e.advisor.Ask(ctx, userID, d, question)
}

// Triage asks the chat model which diseases passing f best explain a field
// description.
func (e *Engine) Triage(ctx context.Context, userID int64, description string, f Filter) ([]TriageMatch, error) {
	f.Search = ""
	candidates := e.Search(f)
	if len(candidates) == 0 {
		return nil, nil
	}
	return e.advisor.Triage(ctx, userID, description, candidates)
}

// Similar ranks the other diseases by embedding similarity. The catalog is
// indexed first; unchanged diseases are not embedded again.
func (e *Engine) Similar(ctx context.Context, id, k int) ([]SimilarDisease, error) {
	if _, err := e.catalog.Disease(id); err != nil {
		return nil, err
	}
	if err := e.reindex(ctx); err != nil {
		return nil, err
	}
	ranked, err := e.index.Similar(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	return e.resolveSimilar(ranked, k), nil
}

// SemanticSearch ranks the catalog against free text by embedding similarity.
func (e *Engine) SemanticSearch(ctx context.Context, text string, k int) ([]SimilarDisease, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuestion
	}
	if err := e.reindex(ctx); err != nil {
		return nil, err
	}
	ranked, err := e.index.SearchText(ctx, text, 0)
	if err != nil {
		return nil, err
	}
	return e.resolveSimilar(ranked, k), nil
}

func (e *Engine) reindex(ctx context.Context) error {
	stats, err := e.index.Index(ctx, e.catalog.Diseases())
	if err != nil {
		return fmt.Errorf("index diseases: %w", err)
	}
	if stats.Embedded > 0 {
		e.logger.Info("indexed diseases", "embedded", stats.Embedded, "skipped", stats.Skipped)
	}
	return nil
}

// resolveSimilar keeps the ranked ids still in the catalog, up to k.
func (e *Engine) resolveSimilar(ranked []ai.SimilarDisease, k int) []SimilarDisease {
	if k <= 0 {
		k = defaultSimilarCount
	}
	var out []SimilarDisease
	for _, r := range ranked {
		if len(out) == k {
			break
		}
		d, err := e.catalog.Disease(r.DiseaseID)
		if err != nil {
			continue
		}
		out = append(out, SimilarDisease{Disease: d, Similarity: r.Similarity})
	}
	return out
}

// --- prompts ---

// Prompt returns the prompt template in effect for a user.
func (e *Engine) Prompt(userID int64, promptType string) (string, error) {
	return e.prompts.GetPrompt(userID, ai.PromptType(promptType))
}

// SetPrompt stores a user's override of a prompt template.
func (e *Engine) SetPrompt(userID int64, promptType, template string) error {
	if _, err := e.prompts.GetPrompt(userID, ai.PromptType(promptType)); err != nil {
		return err
	}
	if err := ai.ParsePrompt(template); err != nil {
		return err
	}
	if err := e.store.SetUserPreference(userID, storage.PrefPromptPrefix+promptType, template); err != nil {
		return err
	}
	e.prompts.Invalidate(userID)
	return nil
}

// ResetPrompt removes a user's prompt override.
func (e *Engine) ResetPrompt(userID int64, promptType string) error {
	if err := e.store.DeleteUserPreference(userID, storage.PrefPromptPrefix+promptType); err != nil {
		return err
	}
	e.prompts.Invalidate(userID)
	return nil
}
