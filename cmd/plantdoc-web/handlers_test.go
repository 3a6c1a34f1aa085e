package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matthewjhunter/plantdoc"
)

type testFixtures struct {
	router http.Handler
	engine *plantdoc.Engine
	userID int64
}

// newTestFixtures creates an engine on the built-in dataset with one user.
func newTestFixtures(t *testing.T) *testFixtures {
	t.Helper()

	engine, err := plantdoc.NewEngine(plantdoc.EngineConfig{
		DBPath:        filepath.Join(t.TempDir(), "test.db"),
		OllamaBaseURL: "http://127.0.0.1:1",
		ShareSecret:   "test-secret",
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	if err := engine.EnsureUser(1, "tester"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	return &testFixtures{
		router: newRouter(engine, logger),
		engine: engine,
		userID: 1,
	}
}

func (f *testFixtures) request(method, path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *testFixtures) requestForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestIndexListsUsers(t *testing.T) {
	f := newTestFixtures(t)
	w := f.request("GET", "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "tester") {
		t.Error("index should list the user")
	}
}

func TestIndexRedirectsToRememberedUser(t *testing.T) {
	f := newTestFixtures(t)
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: userCookie, Value: "1"})
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/u/1" {
		t.Errorf("Location = %q, want /u/1", loc)
	}
}

func TestInvalidUserRejected(t *testing.T) {
	f := newTestFixtures(t)
	for _, path := range []string{"/u/abc", "/u/0/compare", "/u/-3/favorites"} {
		if w := f.request("GET", path); w.Code != http.StatusBadRequest {
			t.Errorf("GET %s: status = %d, want 400", path, w.Code)
		}
	}
}

func TestCatalogFilterByCrop(t *testing.T) {
	f := newTestFixtures(t)
	w := f.request("GET", "/u/1?"+url.Values{"crop": {"番茄"}}.Encode())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "叶霉病") {
		t.Error("tomato diseases should be listed")
	}
	if strings.Contains(body, "苹果黑星病") {
		t.Error("apple diseases should be filtered out")
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), userCookie+"=1") {
		t.Errorf("Set-Cookie = %q, want the user cookie", w.Header().Get("Set-Cookie"))
	}
}

func TestCatalogSearchRecordsHistory(t *testing.T) {
	f := newTestFixtures(t)
	w := f.request("GET", "/u/1?"+url.Values{"q": {"早疫病"}}.Encode())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	history := f.engine.SearchHistory(f.userID)
	if len(history) != 1 || history[0] != "早疫病" {
		t.Errorf("history = %v, want [早疫病]", history)
	}
}

func TestCatalogHTMXRendersFragment(t *testing.T) {
	f := newTestFixtures(t)
	w := f.request("GET", "/u/1", "HX-Request", "true")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx request should get the content block only")
	}
	if !strings.Contains(body, "苹果黑星病") {
		t.Error("fragment should contain the disease cards")
	}
}

func TestDetail(t *testing.T) {
	f := newTestFixtures(t)

	w := f.request("GET", "/u/1/diseases/14")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"早疫病", "高危害", "window.diseaseGraph = {"} {
		if !strings.Contains(body, want) {
			t.Errorf("detail page missing %q", want)
		}
	}

	if w := f.request("GET", "/u/1/diseases/999"); w.Code != http.StatusNotFound {
		t.Errorf("unknown disease: status = %d, want 404", w.Code)
	}
	if w := f.request("GET", "/u/1/diseases/abc"); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", w.Code)
	}
}

func TestFavoriteToggle(t *testing.T) {
	f := newTestFixtures(t)

	w := f.request("POST", "/u/1/favorites/14", "HX-Request", "true")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "已收藏") {
		t.Errorf("fragment should show the favorited state, got %q", w.Body.String())
	}
	if favs := f.engine.Favorites(f.userID); len(favs) != 1 || favs[0] != 14 {
		t.Errorf("favorites = %v, want [14]", favs)
	}

	// plain form post toggles back and redirects
	w = f.request("POST", "/u/1/favorites/14")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if favs := f.engine.Favorites(f.userID); len(favs) != 0 {
		t.Errorf("favorites = %v, want empty", favs)
	}

	if w := f.request("POST", "/u/1/favorites/999"); w.Code != http.StatusNotFound {
		t.Errorf("unknown disease: status = %d, want 404", w.Code)
	}
}

func TestFavoritesPage(t *testing.T) {
	f := newTestFixtures(t)
	if _, err := f.engine.ToggleFavorite(f.userID, 16); err != nil {
		t.Fatal(err)
	}
	w := f.request("GET", "/u/1/favorites")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "叶霉病") {
		t.Error("favorites page should list the favorite disease")
	}
}

func TestCompareFullReturnsConflict(t *testing.T) {
	f := newTestFixtures(t)
	for id := 1; id <= 4; id++ {
		w := f.request("POST", "/u/1/compare/"+strconv.Itoa(id), "HX-Request", "true")
		if w.Code != http.StatusOK {
			t.Fatalf("add %d: status = %d, want 200", id, w.Code)
		}
	}
	if w := f.request("POST", "/u/1/compare/5"); w.Code != http.StatusConflict {
		t.Errorf("fifth add: status = %d, want 409", w.Code)
	}
	if got := f.engine.CompareList(f.userID); len(got) != 4 {
		t.Errorf("compare list = %v, want 4 entries", got)
	}

	if w := f.request("DELETE", "/u/1/compare/2", "HX-Request", "true"); w.Code != http.StatusOK {
		t.Fatalf("remove: status = %d, want 200", w.Code)
	}
	if got := f.engine.CompareList(f.userID); len(got) != 3 {
		t.Errorf("compare list after remove = %v, want 3 entries", got)
	}

	if w := f.request("POST", "/u/1/compare/clear"); w.Code != http.StatusSeeOther {
		t.Errorf("clear: status = %d, want 303", w.Code)
	}
	if got := f.engine.CompareList(f.userID); len(got) != 0 {
		t.Errorf("compare list after clear = %v, want empty", got)
	}
}

func TestComparePageNeedsTwo(t *testing.T) {
	f := newTestFixtures(t)
	w := f.request("GET", "/u/1/compare")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "请至少选择2种病害进行对比") {
		t.Error("compare page should ask for at least two diseases")
	}
}

var shareLink = regexp.MustCompile(`/share/([A-Za-z0-9._-]+)`)

func TestShareRoundTrip(t *testing.T) {
	f := newTestFixtures(t)
	for _, id := range []int{14, 16} {
		if _, err := f.engine.AddToCompare(f.userID, id); err != nil {
			t.Fatal(err)
		}
	}

	w := f.request("POST", "/u/1/compare/share")
	if w.Code != http.StatusOK {
		t.Fatalf("share: status = %d, want 200", w.Code)
	}
	m := shareLink.FindStringSubmatch(w.Body.String())
	if m == nil {
		t.Fatal("share page should contain a share link")
	}

	// the shared view does not depend on the user's current list
	if err := f.engine.ClearCompare(f.userID); err != nil {
		t.Fatal(err)
	}

	w = f.request("GET", "/share/"+m[1])
	if w.Code != http.StatusOK {
		t.Fatalf("shared: status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "早疫病 (番茄)") || !strings.Contains(body, "叶霉病 (番茄)") {
		t.Error("shared page should show both compared diseases")
	}

	if w := f.request("GET", "/share/not-a-token"); w.Code != http.StatusNotFound {
		t.Errorf("bad token: status = %d, want 404", w.Code)
	}
}

func TestProfileAndSettingsSave(t *testing.T) {
	f := newTestFixtures(t)

	w := f.requestForm("/u/1/profile", url.Values{"fullName": {"李四"}, "email": {""}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("profile: status = %d, want 303", w.Code)
	}
	data := f.engine.UserData(f.userID)
	if data.FullName != "李四" {
		t.Errorf("FullName = %q, want 李四", data.FullName)
	}
	if data.Email != "zhangsan@example.com" {
		t.Errorf("empty email should keep the stored value, got %q", data.Email)
	}

	w = f.requestForm("/u/1/settings", url.Values{"darkMode": {"on"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("settings: status = %d, want 303", w.Code)
	}
	s := f.engine.UserSettings(f.userID)
	if !s.Bool("darkMode") {
		t.Error("darkMode should be on")
	}
	if s.Bool("notifications") {
		t.Error("unchecked notifications should be off")
	}

	w = f.request("GET", "/u/1/profile?saved=1")
	if w.Code != http.StatusOK {
		t.Fatalf("profile page: status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `value="李四"`) {
		t.Error("profile page should show the saved name")
	}
}

func TestExport(t *testing.T) {
	f := newTestFixtures(t)
	if _, err := f.engine.ToggleFavorite(f.userID, 3); err != nil {
		t.Fatal(err)
	}

	w := f.request("GET", "/u/1/profile/export")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, `attachment; filename="plantdoc-export-`) || !strings.HasSuffix(cd, `.json"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	var export plantdoc.Export
	if err := json.Unmarshal(w.Body.Bytes(), &export); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(export.Favorites) != 1 || export.Favorites[0] != 3 {
		t.Errorf("exported favorites = %v, want [3]", export.Favorites)
	}
}

func TestGalleryAndDashboardPages(t *testing.T) {
	f := newTestFixtures(t)
	for _, path := range []string{"/u/1/gallery", "/u/1/gallery?crop=%E7%95%AA%E8%8C%84&page=9", "/u/1/dashboard"} {
		if w := f.request("GET", path); w.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, want 200", path, w.Code)
		}
	}
}

func TestAPI(t *testing.T) {
	f := newTestFixtures(t)

	w := f.request("GET", "/api/diseases/14/graph")
	if w.Code != http.StatusOK {
		t.Fatalf("graph: status = %d, want 200", w.Code)
	}
	var g plantdoc.Graph
	if err := json.Unmarshal(w.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	if len(g.Nodes) == 0 {
		t.Error("graph should have nodes")
	}

	if w := f.request("GET", "/api/diseases/999/graph"); w.Code != http.StatusNotFound {
		t.Errorf("unknown graph: status = %d, want 404", w.Code)
	}

	w = f.request("GET", "/api/gallery")
	var page plantdoc.GalleryPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode gallery: %v", err)
	}
	if page.Total != 6 {
		t.Errorf("gallery total = %d, want 6", page.Total)
	}

	w = f.request("GET", "/api/suggest?q=")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty suggest = %q, want []", w.Body.String())
	}

	w = f.request("GET", "/api/stats")
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	var stats struct {
		Stats plantdoc.Stats `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Stats.Diseases != 21 {
		t.Errorf("diseases = %d, want 21", stats.Stats.Diseases)
	}
}

func TestSlideshowWebsocket(t *testing.T) {
	f := newTestFixtures(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/slideshow?autoplay=0"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var frame slideFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read first frame: %v", err)
	}
	if frame.Total != 6 || frame.Index != 0 || frame.Running || frame.Image == nil {
		t.Fatalf("first frame = %+v", frame)
	}
	session := frame.Session

	steps := []struct {
		action string
		index  int
	}{
		{"prev", 5},
		{"next", 0},
		{"next", 1},
	}
	for _, s := range steps {
		if err := conn.WriteJSON(slideAction{Action: s.action}); err != nil {
			t.Fatalf("write %s: %v", s.action, err)
		}
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read after %s: %v", s.action, err)
		}
		if frame.Index != s.index {
			t.Errorf("after %s: index = %d, want %d", s.action, frame.Index, s.index)
		}
		if frame.Session != session {
			t.Errorf("session changed: %q -> %q", session, frame.Session)
		}
	}
}

func TestSlideshowIntervalClamped(t *testing.T) {
	def := 5 * time.Second
	cases := []struct {
		secs int
		want time.Duration
	}{
		{0, def},
		{-3, def},
		{10, 10 * time.Second},
		{60, time.Minute},
		{1 << 40, time.Minute},
	}
	for _, c := range cases {
		if got := slideshowInterval(c.secs, def); got != c.want {
			t.Errorf("slideshowInterval(%d) = %v, want %v", c.secs, got, c.want)
		}
	}
}

func TestLogRequestsRecordsStatus(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := logRequests(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/u/1/catalog", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", w.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "path=/u/1/catalog") || !strings.Contains(out, "status=418") {
		t.Errorf("log line = %q", out)
	}
}
