package main

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/matthewjhunter/plantdoc"
)

//go:embed templates static
var embedded embed.FS

// newRouter sets up all routes using Go 1.22+ enhanced routing.
func newRouter(engine *plantdoc.Engine, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	staticFS, _ := fs.Sub(embedded, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	h := newHandlers(engine, logger)

	// Full-page routes
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /u/{userID}", requireUser(h.handleCatalog))
	mux.HandleFunc("GET /u/{userID}/diseases/{id}", requireUser(h.handleDetail))
	mux.HandleFunc("GET /u/{userID}/compare", requireUser(h.handleCompare))
	mux.HandleFunc("GET /u/{userID}/favorites", requireUser(h.handleFavorites))
	mux.HandleFunc("GET /u/{userID}/gallery", requireUser(h.handleGallery))
	mux.HandleFunc("GET /u/{userID}/dashboard", requireUser(h.handleDashboard))
	mux.HandleFunc("GET /u/{userID}/profile", requireUser(h.handleProfile))
	mux.HandleFunc("GET /share/{token}", h.handleShared)

	// Actions
	mux.HandleFunc("POST /u/{userID}/favorites/{id}", requireUser(h.handleFavoriteToggle))
	mux.HandleFunc("POST /u/{userID}/compare/{id}", requireUser(h.handleCompareAdd))
	mux.HandleFunc("DELETE /u/{userID}/compare/{id}", requireUser(h.handleCompareRemove))
	mux.HandleFunc("POST /u/{userID}/compare/clear", requireUser(h.handleCompareClear))
	mux.HandleFunc("POST /u/{userID}/compare/share", requireUser(h.handleCompareShare))
	mux.HandleFunc("POST /u/{userID}/history/clear", requireUser(h.handleHistoryClear))
	mux.HandleFunc("POST /u/{userID}/profile", requireUser(h.handleProfileSave))
	mux.HandleFunc("POST /u/{userID}/settings", requireUser(h.handleSettingsSave))
	mux.HandleFunc("GET /u/{userID}/profile/export", requireUser(h.handleExport))

	// JSON endpoints
	mux.HandleFunc("GET /api/suggest", h.apiSuggest)
	mux.HandleFunc("GET /api/diseases/{id}/graph", h.apiGraph)
	mux.HandleFunc("GET /api/gallery", h.apiGallery)
	mux.HandleFunc("GET /api/stats", h.apiStats)

	mux.HandleFunc("GET /ws/slideshow", h.handleSlideshow)

	return mux
}
