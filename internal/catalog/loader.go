package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matthewjhunter/plantdoc/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Dataset file locations relative to the data source root.
const (
	DiseasesPath = "diseases.json"
	ImagesPath   = "images/frontend_images.json"
)

const userAgent = "plantdoc/1.0"

// SourceCache persists HTTP cache validators between loads.
type SourceCache interface {
	GetDataSource(url string) (*storage.DataSource, error)
	UpdateDataSourceCacheHeaders(url, etag, lastModified string) error
	UpdateDataSourceError(url, errMsg string) error
}

type LoaderConfig struct {
	BaseURL string // http(s) root serving both files
	Dir     string // local directory, used when BaseURL is empty or unreachable
	Timeout time.Duration
	Client  *http.Client
	Cache   SourceCache // optional
	Logger  *slog.Logger
}

// Loader fetches the disease and image collections.
type Loader struct {
	baseURL string
	dir     string
	timeout time.Duration
	client  *http.Client
	cache   SourceCache
	logger  *slog.Logger
}

// SourceStatus describes how one collection was obtained.
type SourceStatus struct {
	Source      string `json:"source"`
	Count       int    `json:"count"`
	NotModified bool   `json:"not_modified,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
	Error       string `json:"error,omitempty"`
}

// LoadResult reports the outcome of Load for both collections.
type LoadResult struct {
	Diseases SourceStatus `json:"diseases"`
	Images   SourceStatus `json:"images"`
}

// fetchResult holds the outcome of a conditional fetch.
type fetchResult struct {
	Body         []byte
	ETag         string
	LastModified string
	NotModified  bool
}

func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loader{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		dir:     cfg.Dir,
		timeout: cfg.Timeout,
		client:  cfg.Client,
		cache:   cfg.Cache,
		logger:  cfg.Logger,
	}
}

// Load fetches both collections concurrently. A collection that cannot be
// fetched or parsed falls back to the built-in data; a 304 response keeps
// the collection from prev. Load never fails: problems are logged and
// reported in the LoadResult.
func (l *Loader) Load(ctx context.Context, prev *Dataset) (*Dataset, LoadResult) {
	var (
		result   LoadResult
		diseases *DiseaseFile
		images   *ImageFile
		g        errgroup.Group
	)

	g.Go(func() error {
		diseases, result.Diseases = l.loadDiseases(ctx, prev)
		return nil
	})
	g.Go(func() error {
		images, result.Images = l.loadImages(ctx, prev)
		return nil
	})
	g.Wait()

	ds := &Dataset{
		Diseases:         diseases.Diseases,
		Images:           images.Images,
		Crops:            images.Crops,
		ImageTypes:       images.Diseases,
		LastUpdated:      diseases.LastUpdated,
		LoadedAt:         time.Now(),
		DiseasesFallback: result.Diseases.Fallback,
		ImagesFallback:   result.Images.Fallback,
	}

	l.logger.Info("dataset loaded",
		"diseases", len(ds.Diseases), "diseases_source", result.Diseases.Source,
		"images", len(ds.Images), "images_source", result.Images.Source)
	return ds, result
}

func (l *Loader) loadDiseases(ctx context.Context, prev *Dataset) (*DiseaseFile, SourceStatus) {
	havePrev := prev != nil && !prev.DiseasesFallback && len(prev.Diseases) > 0
	fr, status, err := l.fetch(ctx, DiseasesPath, havePrev)
	if err == nil && fr.NotModified {
		if havePrev {
			status.NotModified = true
			status.Count = len(prev.Diseases)
			return &DiseaseFile{Diseases: prev.Diseases, LastUpdated: prev.LastUpdated}, status
		}
		err = errors.New("not modified but no previous data")
	}

	var file *DiseaseFile
	if err == nil {
		file, err = ParseDiseases(fr.Body)
	}
	if err != nil {
		l.recordError(status.Source, err)
		file = FallbackDiseases()
		status.Fallback = true
		status.Error = err.Error()
		status.Count = len(file.Diseases)
		return file, status
	}

	l.recordSuccess(status.Source, fr)
	status.Count = len(file.Diseases)
	return file, status
}

func (l *Loader) loadImages(ctx context.Context, prev *Dataset) (*ImageFile, SourceStatus) {
	havePrev := prev != nil && !prev.ImagesFallback && len(prev.Images) > 0
	fr, status, err := l.fetch(ctx, ImagesPath, havePrev)
	if err == nil && fr.NotModified {
		if havePrev {
			status.NotModified = true
			status.Count = len(prev.Images)
			return &ImageFile{Images: prev.Images, Crops: prev.Crops, Diseases: prev.ImageTypes}, status
		}
		err = errors.New("not modified but no previous data")
	}

	var file *ImageFile
	if err == nil {
		file, err = ParseImages(fr.Body)
	}
	if err != nil {
		l.recordError(status.Source, err)
		file = FallbackImages()
		status.Fallback = true
		status.Error = err.Error()
		status.Count = len(file.Images)
		return file, status
	}

	l.recordSuccess(status.Source, fr)
	status.Count = len(file.Images)
	return file, status
}

// fetch reads rel from the configured source: the base URL first, then the
// local directory when the URL cannot be fetched. Conditional headers are
// only sent when the caller still holds the previous collection.
func (l *Loader) fetch(ctx context.Context, rel string, conditional bool) (*fetchResult, SourceStatus, error) {
	if l.baseURL != "" {
		url := l.baseURL + "/" + rel
		fr, err := l.fetchHTTP(ctx, url, conditional)
		if err == nil || l.dir == "" {
			return fr, SourceStatus{Source: url}, err
		}
		l.logger.Warn("data url failed, reading local directory", "source", url, "dir", l.dir, "error", err)
		l.recordRemoteError(url, err)
	}
	if l.dir != "" {
		path := filepath.Join(l.dir, filepath.FromSlash(rel))
		status := SourceStatus{Source: path}
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, status, fmt.Errorf("read %s: %w", path, err)
		}
		return &fetchResult{Body: body}, status, nil
	}
	return nil, SourceStatus{Source: "builtin"}, errors.New("no data source configured")
}

// fetchHTTP performs a conditional GET. If the cache holds an ETag or
// Last-Modified value for url, they are sent as If-None-Match /
// If-Modified-Since. A 304 response returns NotModified=true.
func (l *Loader) fetchHTTP(ctx context.Context, url string, conditional bool) (*fetchResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	if conditional && l.cache != nil {
		if ds, err := l.cache.GetDataSource(url); err == nil && ds != nil {
			if ds.ETag != "" {
				req.Header.Set("If-None-Match", ds.ETag)
			}
			if ds.LastModified != "" {
				req.Header.Set("If-Modified-Since", ds.LastModified)
			}
		}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &fetchResult{NotModified: true}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	return &fetchResult{
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

func (l *Loader) recordError(source string, err error) {
	l.logger.Warn("data source failed, using fallback", "source", source, "error", err)
	l.recordRemoteError(source, err)
}

// remote reports whether source is a URL under the base URL.
func (l *Loader) remote(source string) bool {
	return l.baseURL != "" && strings.HasPrefix(source, l.baseURL+"/")
}

func (l *Loader) recordRemoteError(source string, err error) {
	if l.cache == nil || !l.remote(source) {
		return
	}
	if cerr := l.cache.UpdateDataSourceError(source, err.Error()); cerr != nil {
		l.logger.Warn("record data source error", "source", source, "error", cerr)
	}
}

func (l *Loader) recordSuccess(source string, fr *fetchResult) {
	if l.cache == nil || !l.remote(source) {
		return
	}
	if err := l.cache.UpdateDataSourceCacheHeaders(source, fr.ETag, fr.LastModified); err != nil {
		l.logger.Warn("store cache headers", "source", source, "error", err)
	}
}
