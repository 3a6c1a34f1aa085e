package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/matthewjhunter/plantdoc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	engine  *plantdoc.Engine
	session *mcp.ClientSession
	ctx     context.Context
}

// newTestEnv starts the server on the built-in dataset and connects a client.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	engine, err := plantdoc.NewEngine(plantdoc.EngineConfig{
		DBPath:        filepath.Join(t.TempDir(), "test.db"),
		OllamaBaseURL: "http://127.0.0.1:1",
		ShareSecret:   "test-secret",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	require.NoError(t, engine.EnsureUser(1, "alice"))
	_, err = engine.CreateUser("bob")
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	srv := newServer(engine, 1, newRefresher(engine, nil, time.Hour, logger), "test", logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.mcp.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return &testEnv{engine: engine, session: session, ctx: ctx}
}

func (e *testEnv) call(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := e.session.CallTool(e.ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content should be text")
	return tc.Text
}

func TestServerInfoAndTools(t *testing.T) {
	env := newTestEnv(t)

	info := env.session.InitializeResult()
	require.NotNil(t, info)
	assert.Equal(t, "plantdoc", info.ServerInfo.Name)

	tools, err := env.session.ListTools(env.ctx, nil)
	require.NoError(t, err)
	names := make([]string, len(tools.Tools))
	for i, tool := range tools.Tools {
		names[i] = tool.Name
	}
	assert.ElementsMatch(t, []string{
		"search_diseases", "get_disease", "disease_graph", "suggest", "compare_diseases",
		"toggle_favorite", "list_favorites", "gallery_search", "catalog_stats",
		"list_alerts", "ask_advisor", "refresh_now",
	}, names)
}

func TestSearchDiseases(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, "search_diseases", map[string]any{"query": "疫病", "crops": []string{"番茄"}})
	require.False(t, res.IsError)

	var out struct {
		Count    int              `json:"count"`
		Diseases []diseaseSummary `json:"diseases"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	require.Equal(t, len(out.Diseases), out.Count)
	names := make([]string, 0, len(out.Diseases))
	for _, d := range out.Diseases {
		assert.Equal(t, "番茄", d.Crop)
		names = append(names, d.Name)
	}
	assert.Subset(t, names, []string{"早疫病", "晚疫病"})

	assert.Equal(t, []string{"疫病"}, env.engine.SearchHistory(1))
}

func TestSearchHistoryFollowsUser(t *testing.T) {
	env := newTestEnv(t)

	env.call(t, "search_diseases", map[string]any{"query": "锈病", "user": "bob"})
	bob, err := env.engine.GetUserByName("bob")
	require.NoError(t, err)
	require.NotNil(t, bob)

	assert.Equal(t, []string{"锈病"}, env.engine.SearchHistory(bob.ID))
	assert.Empty(t, env.engine.SearchHistory(1))
}

func TestGetDisease(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, "get_disease", map[string]any{"disease_id": 14})
	require.False(t, res.IsError)
	var detail plantdoc.DiseaseDetail
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &detail))
	assert.Equal(t, "早疫病", detail.Disease.Name)
	assert.Equal(t, "高危害", detail.SeverityLabel)

	res = env.call(t, "get_disease", map[string]any{"disease_id": 999})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not found")
}

func TestCompareDiseases(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, "compare_diseases", map[string]any{"disease_ids": []int{14, 16}})
	require.False(t, res.IsError)
	var table plantdoc.CompareTable
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &table))
	assert.Equal(t, []string{"早疫病 (番茄)", "叶霉病 (番茄)"}, table.Headers)

	res = env.call(t, "compare_diseases", map[string]any{"disease_ids": []int{14}})
	assert.True(t, res.IsError)

	res = env.call(t, "compare_diseases", map[string]any{"disease_ids": []int{1, 2, 3, 4, 5}})
	assert.True(t, res.IsError)
}

func TestToggleFavorite(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, "toggle_favorite", map[string]any{"disease_id": 12})
	require.False(t, res.IsError)
	assert.Equal(t, []int{12}, env.engine.Favorites(1))

	res = env.call(t, "list_favorites", nil)
	var favs []diseaseSummary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &favs))
	require.Len(t, favs, 1)
	assert.Equal(t, "晚疫病", favs[0].Name)

	env.call(t, "toggle_favorite", map[string]any{"disease_id": 12})
	assert.Empty(t, env.engine.Favorites(1))

	res = env.call(t, "toggle_favorite", map[string]any{"disease_id": 999})
	assert.True(t, res.IsError)
}

func TestGalleryAndStats(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, "gallery_search", map[string]any{"crop": "番茄"})
	require.False(t, res.IsError)
	var page plantdoc.GalleryPage
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &page))
	assert.Positive(t, page.Total)
	for _, img := range page.Images {
		assert.Equal(t, "番茄", img.Crop)
	}

	res = env.call(t, "catalog_stats", nil)
	var out struct {
		Stats  plantdoc.Stats         `json:"stats"`
		Status plantdoc.DatasetStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, 21, out.Stats.Diseases)
	assert.True(t, out.Status.DiseasesFallback)
}

func TestAlertsAndRefresh(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, "list_alerts", map[string]any{"mine": true})
	require.False(t, res.IsError)
	assert.JSONEq(t, "[]", resultText(t, res))

	res = env.call(t, "refresh_now", nil)
	require.False(t, res.IsError)
	var out refreshResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.True(t, out.Load.Diseases.Fallback)
	assert.Zero(t, out.Alerts.Feeds)
}

func TestAskAdvisorUnknownDisease(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, "ask_advisor", map[string]any{"disease_id": 999, "question": "怎么防治？"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not found")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
