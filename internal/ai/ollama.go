package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/matthewjhunter/plantdoc/internal/catalog"
	"github.com/ollama/ollama/api"
)

var ErrEmptyQuestion = errors.New("question is empty")

const (
	maxTriageCandidates = 40
	maxTriageMatches    = 3
	triageSymptomRunes  = 120
)

// newClient returns an Ollama client for baseURL, or one configured from
// OLLAMA_HOST when baseURL is empty.
func newClient(baseURL string, httpClient *http.Client) (*api.Client, error) {
	if baseURL == "" {
		return api.ClientFromEnvironment()
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return api.NewClient(parsedURL, httpClient), nil
}

// Advisor answers questions about diseases with an Ollama chat model.
type Advisor struct {
	client  *api.Client
	model   string
	prompts *PromptLoader
}

// NewAdvisor creates an advisor talking to the Ollama server at baseURL.
// A nil prompt loader uses the embedded prompts.
func NewAdvisor(baseURL, model string, prompts *PromptLoader, httpClient *http.Client) (*Advisor, error) {
	client, err := newClient(baseURL, httpClient)
	if err != nil {
		return nil, err
	}
	if prompts == nil {
		prompts = NewPromptLoader(nil, nil)
	}
	return &Advisor{client: client, model: model, prompts: prompts}, nil
}

type advisorData struct {
	Disease  catalog.Disease
	Severity string
	Symptoms string
	Question string
}

// Ask answers question using only the record of d.
func (a *Advisor) Ask(ctx context.Context, userID int64, d catalog.Disease, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	promptTemplate, err := a.prompts.GetPrompt(userID, PromptTypeAdvisor)
	if err != nil {
		return "", fmt.Errorf("failed to load advisor prompt: %w", err)
	}
	prompt, err := ExecutePrompt(promptTemplate, advisorData{
		Disease:  d,
		Severity: catalog.SeverityLabel(d.Severity),
		Symptoms: truncateText(d.Symptoms, 1500),
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render advisor prompt: %w", err)
	}

	answer, err := a.generate(ctx, prompt, a.prompts.GetTemperature(PromptTypeAdvisor), nil)
	if err != nil {
		return "", fmt.Errorf("ollama advisor failed: %w", err)
	}
	return answer, nil
}

// TriageMatch is one candidate disease picked for a field description.
type TriageMatch struct {
	DiseaseID  int     `json:"id"`
	Name       string  `json:"name"`
	Crop       string  `json:"crop"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

type triageCandidate struct {
	ID       int
	Crop     string
	Name     string
	Symptoms string
}

// Triage asks the model which candidates best explain a free-text field
// description. When the model reply cannot be parsed, the candidates are
// ranked by keyword search instead.
func (a *Advisor) Triage(ctx context.Context, userID int64, description string, candidates []catalog.Disease) ([]TriageMatch, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyQuestion
	}
	if len(candidates) > maxTriageCandidates {
		candidates = candidates[:maxTriageCandidates]
	}

	promptTemplate, err := a.prompts.GetPrompt(userID, PromptTypeTriage)
	if err != nil {
		return nil, fmt.Errorf("failed to load triage prompt: %w", err)
	}
	data := struct {
		Description string
		Candidates  []triageCandidate
	}{Description: description}
	for _, d := range candidates {
		data.Candidates = append(data.Candidates, triageCandidate{
			ID:       d.ID,
			Crop:     d.Crop,
			Name:     d.Name,
			Symptoms: truncateText(d.Symptoms, triageSymptomRunes),
		})
	}
	prompt, err := ExecutePrompt(promptTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render triage prompt: %w", err)
	}

	reply, err := a.generate(ctx, prompt, a.prompts.GetTemperature(PromptTypeTriage), jsonFormat)
	if err != nil {
		return nil, fmt.Errorf("ollama triage failed: %w", err)
	}

	var result struct {
		Matches []struct {
			ID         int     `json:"id"`
			Confidence float64 `json:"confidence"`
			Reason     string  `json:"reason"`
		} `json:"matches"`
	}
	if err := json.Unmarshal([]byte(extractJSON(reply)), &result); err != nil {
		return keywordTriage(description, candidates), nil
	}

	byID := make(map[int]catalog.Disease, len(candidates))
	for _, d := range candidates {
		byID[d.ID] = d
	}
	seen := make(map[int]bool)
	var matches []TriageMatch
	for _, m := range result.Matches {
		d, ok := byID[m.ID]
		if !ok || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		matches = append(matches, TriageMatch{
			DiseaseID:  d.ID,
			Name:       d.Name,
			Crop:       d.Crop,
			Confidence: clamp01(m.Confidence),
			Reason:     m.Reason,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })
	if len(matches) > maxTriageMatches {
		matches = matches[:maxTriageMatches]
	}
	return matches, nil
}

func keywordTriage(description string, candidates []catalog.Disease) []TriageMatch {
	var matches []TriageMatch
	for _, d := range catalog.TextSearch(candidates, description) {
		if len(matches) == maxTriageMatches {
			break
		}
		matches = append(matches, TriageMatch{
			DiseaseID: d.ID,
			Name:      d.Name,
			Crop:      d.Crop,
			Reason:    "keyword match",
		})
	}
	return matches
}

// jsonFormat asks Ollama to constrain the reply to JSON.
var jsonFormat = json.RawMessage(`"json"`)

func (a *Advisor) generate(ctx context.Context, prompt string, temperature float64, format json.RawMessage) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errEmptyPrompt
	}
	req := &api.GenerateRequest{
		Model:  a.model,
		Prompt: prompt,
		Stream: new(bool), // false
		Format: format,
		Options: map[string]interface{}{
			"temperature": temperature,
		},
	}

	var fullResponse strings.Builder
	err := a.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		fullResponse.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(fullResponse.String()), nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// truncateText truncates text to maxLen runes
func truncateText(text string, maxLen int) string {
	r := []rune(text)
	if len(r) <= maxLen {
		return text
	}
	return string(r[:maxLen]) + "..."
}

// extractJSON attempts to extract JSON from a text response that might contain extra text
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
