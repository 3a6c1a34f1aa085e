package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matthewjhunter/plantdoc"
	"github.com/matthewjhunter/plantdoc/internal/catalog"
	"github.com/matthewjhunter/plantdoc/internal/prefs"
	"github.com/microcosm-cc/bluemonday"
)

const userCookie = "plantdoc_user"

// handlers holds dependencies for all HTTP handler methods.
type handlers struct {
	engine *plantdoc.Engine
	logger *slog.Logger
	pages  map[string]*template.Template // per-page template sets
	policy *bluemonday.Policy
}

// Each page gets its own template tree: base.html + shared partials + page
// template, so every page can define its own "content" block.
func newHandlers(engine *plantdoc.Engine, logger *slog.Logger) *handlers {
	funcMap := template.FuncMap{
		"severityLabel": catalog.SeverityLabel,
		"join":          strings.Join,
		"has":           func(list []string, v string) bool { return slices.Contains(list, v) },
		"add":           func(a, b int) int { return a + b },
		"formatDate":    formatDate,
	}

	tmplFS, _ := fs.Sub(embedded, "templates")
	shared := []string{"base.html", "partials.html", "error.html"}
	pages := []string{"index.html", "catalog.html", "detail.html", "compare.html", "favorites.html",
		"gallery.html", "dashboard.html", "profile.html"}

	h := &handlers{
		engine: engine,
		logger: logger,
		pages:  make(map[string]*template.Template, len(pages)),
		policy: bluemonday.UGCPolicy(),
	}
	for _, page := range pages {
		files := append(append([]string{}, shared...), page)
		h.pages[page] = template.Must(template.New("").Funcs(funcMap).ParseFS(tmplFS, files...))
	}
	return h
}

// --- Template data types ---

type indexData struct {
	UserID int64
	Users  []plantdoc.User
}

type catalogData struct {
	UserID    int64
	Filter    plantdoc.Filter
	Labels    []string
	Options   plantdoc.FilterOptions
	Diseases  []diseaseRow
	Popular   []string
	History   []string
	Total     int
	Compare   int
	Searching bool
}

type diseaseRow struct {
	UserID     int64
	Disease    plantdoc.Disease
	IsFavorite bool
	InCompare  bool
}

type detailData struct {
	UserID    int64
	Detail    *plantdoc.DiseaseDetail
	Row       diseaseRow
	GraphJSON template.JS
}

type compareData struct {
	UserID   int64
	IDs      []int
	Table    *plantdoc.CompareTable
	ShareURL string
	Shared   bool
	Message  string
}

type favoritesData struct {
	UserID   int64
	Diseases []diseaseRow
	Alerts   []alertRow
}

type alertRow struct {
	plantdoc.Alert
	PublishedFmt string
	Description  template.HTML
	Diseases     []plantdoc.Disease
}

type galleryData struct {
	UserID   int64
	Page     plantdoc.GalleryPage
	Links    []pageLink
	Query    string // filter query string without page
	Interval int    // slideshow seconds
}

// pageLink is one entry of the pagination bar; Page 0 marks a gap.
type pageLink struct {
	Page    int
	URL     string
	Current bool
}

type dashboardData struct {
	UserID int64
	Stats  plantdoc.Stats
	Status plantdoc.DatasetStatus
	Alerts []alertRow
}

type profileData struct {
	UserID   int64
	Data     plantdoc.UserData
	Settings plantdoc.Settings
	History  []string
	Saved    bool
}

type errorData struct {
	Message string
	Detail  string
}

// --- Helper methods ---

func (h *handlers) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	t, ok := h.pages[name]
	if !ok {
		h.logger.Error("unknown page template", "name", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	// htmx requests get the content block only
	root := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		root = "content"
	}
	if err := t.ExecuteTemplate(w, root, data); err != nil {
		h.logger.Error("template error", "page", name, "error", err)
	}
}

func (h *handlers) renderFragment(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	for _, t := range h.pages {
		if tmpl := t.Lookup(name); tmpl != nil {
			if err := tmpl.Execute(w, data); err != nil {
				h.logger.Error("template error", "fragment", name, "error", err)
			}
			return
		}
	}
	h.logger.Error("unknown fragment template", "name", name)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (h *handlers) renderError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	// error.html is shared across all page trees
	for _, t := range h.pages {
		if tmpl := t.Lookup("error"); tmpl != nil {
			tmpl.Execute(w, errorData{Message: msg})
			return
		}
	}
}

// redirectBack sends non-htmx form posts back to the referring page.
func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	target := fallback
	if ref := r.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil && (u.Host == "" || u.Host == r.Host) {
			target = u.RequestURI()
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	diff := time.Since(*t)
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%d分钟前", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d小时前", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d天前", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}

func diseaseIDFromRequest(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil && id > 0
}

// catalogFilter reads the catalog filter from the query string. Multi-value
// fields accept repeated parameters or comma-joined values.
func catalogFilter(q url.Values) plantdoc.Filter {
	list := func(key string) []string {
		var out []string
		for _, v := range q[key] {
			out = append(out, catalog.ParseList(v)...)
		}
		return out
	}
	return plantdoc.Filter{
		Severity:      q.Get("severity"),
		Crops:         list("crop"),
		PathogenTypes: list("pathogen_type"),
		Conditions:    list("condition"),
		Search:        strings.TrimSpace(q.Get("q")),
	}
}

func galleryFilter(q url.Values) plantdoc.GalleryFilter {
	return plantdoc.GalleryFilter{
		Crop:    q.Get("crop"),
		Disease: q.Get("disease"),
		Type:    q.Get("type"),
		Search:  q.Get("search"),
	}
}

func (h *handlers) rows(uid int64, diseases []plantdoc.Disease) []diseaseRow {
	favorites := make(map[int]bool)
	for _, id := range h.engine.Favorites(uid) {
		favorites[id] = true
	}
	compare := make(map[int]bool)
	for _, id := range h.engine.CompareList(uid) {
		compare[id] = true
	}
	rows := make([]diseaseRow, len(diseases))
	for i, d := range diseases {
		rows[i] = diseaseRow{UserID: uid, Disease: d, IsFavorite: favorites[d.ID], InCompare: compare[d.ID]}
	}
	return rows
}

func (h *handlers) alertRows(alerts []plantdoc.Alert) []alertRow {
	rows := make([]alertRow, len(alerts))
	for i, a := range alerts {
		rows[i] = alertRow{
			Alert:        a,
			PublishedFmt: formatDate(a.PublishedDate),
			Description:  template.HTML(h.policy.Sanitize(a.Description)), //nolint:gosec // sanitized by bluemonday
		}
		for _, id := range a.DiseaseIDs {
			if d, err := h.engine.Disease(id); err == nil {
				rows[i].Diseases = append(rows[i].Diseases, d)
			}
		}
	}
	return rows
}

// --- Full-page handlers ---

func (h *handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(userCookie); err == nil {
		if uid, err := strconv.ParseInt(c.Value, 10, 64); err == nil && uid > 0 {
			http.Redirect(w, r, fmt.Sprintf("/u/%d", uid), http.StatusFound)
			return
		}
	}

	users, err := h.engine.ListUsers()
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	h.renderPage(w, r, "index.html", indexData{Users: users})
}

func (h *handlers) handleCatalog(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	if err := h.engine.EnsureUser(uid, fmt.Sprintf("user%d", uid)); err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     userCookie,
		Value:    strconv.FormatInt(uid, 10),
		Path:     "/",
		MaxAge:   365 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	f := catalogFilter(r.URL.Query())
	if f.Search != "" {
		if err := h.engine.RecordSearch(uid, f.Search); err != nil {
			h.logger.Warn("failed to record search", "user", uid, "error", err)
		}
	}

	diseases := h.engine.Search(f)
	data := catalogData{
		UserID:    uid,
		Filter:    f,
		Labels:    h.engine.FilterLabels(f),
		Options:   h.engine.FilterOptions(),
		Diseases:  h.rows(uid, diseases),
		Popular:   h.engine.PopularSearches(),
		History:   h.engine.SearchHistory(uid),
		Total:     len(h.engine.Diseases()),
		Compare:   len(h.engine.CompareList(uid)),
		Searching: f.Search != "",
	}
	h.renderPage(w, r, "catalog.html", data)
}

func (h *handlers) handleDetail(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	id, ok := diseaseIDFromRequest(r)
	if !ok {
		h.renderError(w, http.StatusBadRequest, "Invalid disease ID")
		return
	}

	detail, err := h.engine.Detail(uid, id)
	if errors.Is(err, plantdoc.ErrNotFound) {
		h.renderError(w, http.StatusNotFound, "Disease not found")
		return
	}
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to load disease")
		return
	}

	graph, err := json.Marshal(detail.Graph)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to encode graph")
		return
	}

	h.renderPage(w, r, "detail.html", detailData{
		UserID:    uid,
		Detail:    detail,
		Row:       diseaseRow{UserID: uid, Disease: detail.Disease, IsFavorite: detail.IsFavorite, InCompare: detail.InCompare},
		GraphJSON: template.JS(graph), //nolint:gosec // encoded by encoding/json
	})
}

func (h *handlers) handleCompare(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	data := compareData{UserID: uid, IDs: h.engine.CompareList(uid)}

	table, err := h.engine.CompareTable(uid)
	switch {
	case errors.Is(err, plantdoc.ErrNotEnoughToCompare):
		data.Message = "请至少选择2种病害进行对比"
	case err != nil:
		h.renderError(w, http.StatusInternalServerError, "Failed to build compare table")
		return
	default:
		data.Table = &table
	}

	h.renderPage(w, r, "compare.html", data)
}

func (h *handlers) handleShared(w http.ResponseWriter, r *http.Request) {
	table, err := h.engine.SharedCompare(r.PathValue("token"))
	if errors.Is(err, plantdoc.ErrInvalidToken) {
		h.renderError(w, http.StatusNotFound, "This share link is invalid or has expired")
		return
	}
	if errors.Is(err, plantdoc.ErrNotEnoughToCompare) {
		h.renderError(w, http.StatusNotFound, "The shared diseases are no longer in the catalog")
		return
	}
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to build compare table")
		return
	}

	h.renderPage(w, r, "compare.html", compareData{Table: &table, IDs: table.IDs, Shared: true})
}

func (h *handlers) handleFavorites(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)

	alerts, err := h.engine.AlertsForUser(uid, 20)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to load alerts")
		return
	}

	h.renderPage(w, r, "favorites.html", favoritesData{
		UserID:   uid,
		Diseases: h.rows(uid, h.engine.FavoriteDiseases(uid)),
		Alerts:   h.alertRows(alerts),
	})
}

func (h *handlers) handleGallery(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	q := r.URL.Query()
	f := galleryFilter(q)
	page := h.engine.GalleryPage(f, parseIntParam(r, "page", 1))

	q.Del("page")
	links := make([]pageLink, len(page.Pages))
	for i, n := range page.Pages {
		links[i] = pageLink{Page: n, Current: n == page.Page}
		if n > 0 {
			q.Set("page", strconv.Itoa(n))
			links[i].URL = r.URL.Path + "?" + q.Encode()
		}
	}
	q.Del("page")

	h.renderPage(w, r, "gallery.html", galleryData{
		UserID:   uid,
		Page:     page,
		Links:    links,
		Query:    q.Encode(),
		Interval: int(h.engine.SlideshowInterval() / time.Second),
	})
}

func (h *handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)

	alerts, err := h.engine.Alerts(10)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to load alerts")
		return
	}

	h.renderPage(w, r, "dashboard.html", dashboardData{
		UserID: uid,
		Stats:  h.engine.Stats(),
		Status: h.engine.Status(),
		Alerts: h.alertRows(alerts),
	})
}

func (h *handlers) handleProfile(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	h.renderPage(w, r, "profile.html", profileData{
		UserID:   uid,
		Data:     h.engine.UserData(uid),
		Settings: h.engine.UserSettings(uid),
		History:  h.engine.SearchHistory(uid),
		Saved:    r.URL.Query().Get("saved") == "1",
	})
}

// --- Actions ---

func (h *handlers) handleFavoriteToggle(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	id, ok := diseaseIDFromRequest(r)
	if !ok {
		h.renderError(w, http.StatusBadRequest, "Invalid disease ID")
		return
	}

	on, err := h.engine.ToggleFavorite(uid, id)
	if errors.Is(err, plantdoc.ErrNotFound) {
		h.renderError(w, http.StatusNotFound, "Disease not found")
		return
	}
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to update favorites")
		return
	}

	if !isHTMX(r) {
		redirectBack(w, r, fmt.Sprintf("/u/%d/favorites", uid))
		return
	}
	w.Header().Set("HX-Trigger", "favorites-changed")
	h.renderFragment(w, "favorite_button", diseaseRow{UserID: uid, Disease: plantdoc.Disease{ID: id}, IsFavorite: on})
}

func (h *handlers) handleCompareAdd(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	id, ok := diseaseIDFromRequest(r)
	if !ok {
		h.renderError(w, http.StatusBadRequest, "Invalid disease ID")
		return
	}

	_, err := h.engine.AddToCompare(uid, id)
	switch {
	case errors.Is(err, plantdoc.ErrCompareFull):
		h.renderError(w, http.StatusConflict, fmt.Sprintf("最多只能对比%d种病害", prefs.MaxCompare))
		return
	case errors.Is(err, plantdoc.ErrNotFound):
		h.renderError(w, http.StatusNotFound, "Disease not found")
		return
	case err != nil:
		h.renderError(w, http.StatusInternalServerError, "Failed to update compare list")
		return
	}

	h.compareChanged(w, r, uid, id, true)
}

func (h *handlers) handleCompareRemove(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	id, ok := diseaseIDFromRequest(r)
	if !ok {
		h.renderError(w, http.StatusBadRequest, "Invalid disease ID")
		return
	}

	if _, err := h.engine.RemoveFromCompare(uid, id); err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to update compare list")
		return
	}

	h.compareChanged(w, r, uid, id, false)
}

func (h *handlers) compareChanged(w http.ResponseWriter, r *http.Request, uid int64, id int, in bool) {
	if !isHTMX(r) {
		redirectBack(w, r, fmt.Sprintf("/u/%d/compare", uid))
		return
	}
	w.Header().Set("HX-Trigger", "compare-changed")
	h.renderFragment(w, "compare_button", diseaseRow{UserID: uid, Disease: plantdoc.Disease{ID: id}, InCompare: in})
}

func (h *handlers) handleCompareClear(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	if err := h.engine.ClearCompare(uid); err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to clear compare list")
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/u/%d/compare", uid), http.StatusSeeOther)
}

func (h *handlers) handleCompareShare(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)

	token, err := h.engine.ShareCompare(uid)
	if errors.Is(err, plantdoc.ErrNotEnoughToCompare) {
		h.renderError(w, http.StatusBadRequest, "请至少选择2种病害进行对比")
		return
	}
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to create share link")
		return
	}

	table, err := h.engine.CompareTable(uid)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to build compare table")
		return
	}

	h.renderPage(w, r, "compare.html", compareData{
		UserID:   uid,
		IDs:      table.IDs,
		Table:    &table,
		ShareURL: "/share/" + token,
	})
}

func (h *handlers) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	if err := h.engine.ClearSearchHistory(uid); err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}
	redirectBack(w, r, fmt.Sprintf("/u/%d", uid))
}

func (h *handlers) handleProfileSave(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	update := plantdoc.UserData{
		FullName:  r.FormValue("fullName"),
		Email:     r.FormValue("email"),
		Region:    r.FormValue("region"),
		BirthDate: r.FormValue("birthDate"),
		Phone:     r.FormValue("phone"),
	}
	if _, err := h.engine.SaveUserData(uid, update); err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}

	if isHTMX(r) {
		w.Header().Set("HX-Trigger", "profile-saved")
		fmt.Fprint(w, "个人信息已保存")
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/u/%d/profile?saved=1", uid), http.StatusSeeOther)
}

// handleSettingsSave stores the settings toggles. Unchecked checkboxes are
// absent from the form and saved as false.
func (h *handlers) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	for _, key := range []string{prefs.SettingNotifications, prefs.SettingDarkMode, prefs.SettingAutoBackup} {
		value := "false"
		if v := r.FormValue(key); v == "on" || v == "true" {
			value = "true"
		}
		if _, err := h.engine.SaveSetting(uid, key, value); err != nil {
			h.renderError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
	}

	if isHTMX(r) {
		w.Header().Set("HX-Trigger", "settings-saved")
		fmt.Fprint(w, "设置已保存")
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/u/%d/profile?saved=1", uid), http.StatusSeeOther)
}

func (h *handlers) handleExport(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromRequest(r)
	data, err := h.engine.ExportUserData(uid)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Failed to export data")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="plantdoc-export-%s.json"`, uuid.NewString()))
	w.Write(data)
}
