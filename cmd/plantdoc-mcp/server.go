package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/matthewjhunter/plantdoc"
	"github.com/matthewjhunter/plantdoc/internal/prefs"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	maxArgLogLen         = 200
	slowRequestThreshold = 500 * time.Millisecond
)

// server is the plantdoc MCP server.
type server struct {
	engine    *plantdoc.Engine
	userID    int64
	logger    *slog.Logger
	refresher *refresher
	mcp       *mcp.Server
}

func newServer(engine *plantdoc.Engine, userID int64, refresher *refresher, version string, logger *slog.Logger) *server {
	s := &server{
		engine:    engine,
		userID:    userID,
		logger:    logger,
		refresher: refresher,
		mcp:       mcp.NewServer(&mcp.Implementation{Name: "plantdoc", Version: version}, nil),
	}
	s.mcp.AddReceivingMiddleware(loggingMiddleware(logger))
	s.registerTools()
	return s
}

// run serves MCP over stdio until the client disconnects or ctx is done.
func (s *server) run(ctx context.Context) error {
	s.logger.Info("plantdoc-mcp starting", "user", s.userID, "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// resolveUser maps a user name to a user ID. Empty or unknown names fall
// back to the default user.
func (s *server) resolveUser(name *string) int64 {
	if name == nil || *name == "" {
		return s.userID
	}
	u, err := s.engine.GetUserByName(*name)
	if err != nil || u == nil {
		return s.userID
	}
	return u.ID
}

func (s *server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_diseases",
		Description: "Search the plant disease catalog. Combines free-text search with severity, crop, pathogen type and condition filters. Returns matching diseases with their crop, pathogen, severity and symptoms.",
	}, s.searchDiseases)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_disease",
		Description: "Get everything known about one disease by ID: symptoms, conditions, prevention, pesticides, matching gallery images, related diseases and whether it is a favorite.",
	}, s.getDisease)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "disease_graph",
		Description: "Get the knowledge graph of a disease: nodes for its pathogen, crop, pesticides and related diseases, and the links between them.",
	}, s.diseaseGraph)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "suggest",
		Description: "Complete a partial search term with disease names, crops, symptom words and pathogens.",
	}, s.suggest)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "compare_diseases",
		Description: "Compare two to four diseases side by side: crop, pathogen, severity, symptoms, conditions and control measures.",
	}, s.compareDiseases)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "toggle_favorite",
		Description: "Add a disease to the user's favorites, or remove it if it is already one. Alerts about favorite diseases are reported by list_alerts with mine=true.",
	}, s.toggleFavorite)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_favorites",
		Description: "List the user's favorite diseases.",
	}, s.listFavorites)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "gallery_search",
		Description: "Browse the disease image gallery one page at a time, filtered by crop, disease, type or free text.",
	}, s.gallerySearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "catalog_stats",
		Description: "Get dataset statistics (diseases, crops, pesticides, images, counts by crop, severity and pathogen type) and where the data was loaded from.",
	}, s.catalogStats)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_alerts",
		Description: "List recent plant-protection bulletin alerts, each tagged with the catalog diseases it mentions.",
	}, s.listAlerts)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask_advisor",
		Description: "Ask the plant-protection advisor model a question about one disease. The answer is grounded on the catalog entry.",
	}, s.askAdvisor)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "refresh_now",
		Description: "Reload the disease dataset from its source and fetch every bulletin feed right now. Use this when the user asks for the latest data or alerts.",
	}, s.refreshNow)
}

// --- tool handlers ---

type diseaseSummary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Crop         string `json:"crop"`
	Pathogen     string `json:"pathogen"`
	PathogenType string `json:"pathogen_type,omitempty"`
	Severity     string `json:"severity"`
	Symptoms     string `json:"symptoms"`
}

func summarize(diseases []plantdoc.Disease) []diseaseSummary {
	out := make([]diseaseSummary, len(diseases))
	for i, d := range diseases {
		out[i] = diseaseSummary{
			ID:           d.ID,
			Name:         d.Name,
			Crop:         d.Crop,
			Pathogen:     d.Pathogen,
			PathogenType: d.PathogenType,
			Severity:     d.Severity,
			Symptoms:     d.Symptoms,
		}
	}
	return out
}

func (s *server) searchDiseases(ctx context.Context, req *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, any, error) {
	f := plantdoc.Filter{
		Search:        strings.TrimSpace(deref(in.Query)),
		Severity:      deref(in.Severity),
		Crops:         in.Crops,
		PathogenTypes: in.PathogenTypes,
		Conditions:    in.Conditions,
	}
	if f.Search != "" {
		if err := s.engine.RecordSearch(s.resolveUser(in.User), f.Search); err != nil {
			s.logger.Warn("failed to record search", "error", err)
		}
	}

	diseases := s.engine.Search(f)
	return jsonResult(map[string]any{
		"filters":  s.engine.FilterLabels(f),
		"count":    len(diseases),
		"diseases": summarize(diseases),
	})
}

func (s *server) getDisease(ctx context.Context, req *mcp.CallToolRequest, in diseaseIDInput) (*mcp.CallToolResult, any, error) {
	detail, err := s.engine.Detail(s.resolveUser(in.User), in.DiseaseID)
	if err != nil {
		return diseaseError(in.DiseaseID, err), nil, nil
	}
	return jsonResult(detail)
}

func (s *server) diseaseGraph(ctx context.Context, req *mcp.CallToolRequest, in diseaseIDInput) (*mcp.CallToolResult, any, error) {
	g, err := s.engine.Graph(in.DiseaseID)
	if err != nil {
		return diseaseError(in.DiseaseID, err), nil, nil
	}
	return jsonResult(g)
}

func (s *server) suggest(ctx context.Context, req *mcp.CallToolRequest, in suggestInput) (*mcp.CallToolResult, any, error) {
	suggestions := s.engine.Suggest(in.Term)
	if suggestions == nil {
		suggestions = []plantdoc.Suggestion{}
	}
	return jsonResult(suggestions)
}

func (s *server) compareDiseases(ctx context.Context, req *mcp.CallToolRequest, in compareInput) (*mcp.CallToolResult, any, error) {
	if len(in.DiseaseIDs) > prefs.MaxCompare {
		return errorResult(fmt.Sprintf("at most %d diseases can be compared", prefs.MaxCompare)), nil, nil
	}
	table, err := s.engine.CompareDiseases(in.DiseaseIDs)
	if errors.Is(err, plantdoc.ErrNotEnoughToCompare) {
		return errorResult("give at least two disease IDs that exist in the catalog"), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(table)
}

func (s *server) toggleFavorite(ctx context.Context, req *mcp.CallToolRequest, in diseaseIDInput) (*mcp.CallToolResult, any, error) {
	uid := s.resolveUser(in.User)
	on, err := s.engine.ToggleFavorite(uid, in.DiseaseID)
	if err != nil {
		return diseaseError(in.DiseaseID, err), nil, nil
	}
	return jsonResult(map[string]any{
		"disease_id": in.DiseaseID,
		"favorite":   on,
		"favorites":  s.engine.Favorites(uid),
	})
}

func (s *server) listFavorites(ctx context.Context, req *mcp.CallToolRequest, in userOnlyInput) (*mcp.CallToolResult, any, error) {
	return jsonResult(summarize(s.engine.FavoriteDiseases(s.resolveUser(in.User))))
}

func (s *server) gallerySearch(ctx context.Context, req *mcp.CallToolRequest, in galleryInput) (*mcp.CallToolResult, any, error) {
	page := 1
	if in.Page != nil {
		page = *in.Page
	}
	f := plantdoc.GalleryFilter{
		Crop:    deref(in.Crop),
		Disease: deref(in.Disease),
		Type:    deref(in.Type),
		Search:  deref(in.Search),
	}
	return jsonResult(s.engine.GalleryPage(f, page))
}

func (s *server) catalogStats(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, any, error) {
	return jsonResult(map[string]any{
		"stats":  s.engine.Stats(),
		"status": s.engine.Status(),
	})
}

func (s *server) listAlerts(ctx context.Context, req *mcp.CallToolRequest, in alertsInput) (*mcp.CallToolResult, any, error) {
	limit := 20
	if in.Limit != nil && *in.Limit > 0 {
		limit = *in.Limit
	}

	var alerts []plantdoc.Alert
	var err error
	if deref(in.Mine) {
		alerts, err = s.engine.AlertsForUser(s.resolveUser(in.User), limit)
	} else {
		alerts, err = s.engine.Alerts(limit)
	}
	if err != nil {
		return nil, nil, err
	}
	if alerts == nil {
		alerts = []plantdoc.Alert{}
	}
	return jsonResult(alerts)
}

func (s *server) askAdvisor(ctx context.Context, req *mcp.CallToolRequest, in askInput) (*mcp.CallToolResult, any, error) {
	answer, err := s.engine.Ask(ctx, s.resolveUser(in.User), in.DiseaseID, in.Question)
	switch {
	case errors.Is(err, plantdoc.ErrNotFound):
		return diseaseError(in.DiseaseID, err), nil, nil
	case errors.Is(err, plantdoc.ErrEmptyQuestion):
		return errorResult("the question is empty"), nil, nil
	case err != nil:
		s.logger.Error("advisor failed", "disease", in.DiseaseID, "error", err)
		return errorResult("the advisor model is unavailable: " + err.Error()), nil, nil
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: answer}}}, nil, nil
}

func (s *server) refreshNow(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, any, error) {
	result, err := s.refresher.refresh(ctx)
	if err != nil {
		return errorResult("refresh failed: " + err.Error()), nil, nil
	}
	return jsonResult(result)
}

// --- results ---

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

func diseaseError(id int, err error) *mcp.CallToolResult {
	if errors.Is(err, plantdoc.ErrNotFound) {
		return errorResult(fmt.Sprintf("disease %d not found; use search_diseases to find IDs", id))
	}
	return errorResult(err.Error())
}

// loggingMiddleware logs every request with its duration. Slow requests are
// logged at WARN level.
func loggingMiddleware(logger *slog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)
			duration := time.Since(start)

			attrs := []any{"method", method, "duration_ms", duration.Milliseconds()}
			if params := req.GetParams(); params != nil {
				attrs = append(attrs, "params", truncate(fmt.Sprintf("%+v", params), maxArgLogLen))
			}

			switch {
			case err != nil:
				logger.Error("request failed", append(attrs, "error", err)...)
			case duration > slowRequestThreshold:
				logger.Warn("slow request", attrs...)
			default:
				logger.Debug("request completed", attrs...)
			}
			return result, err
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
