package ai

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/matthewjhunter/plantdoc/internal/storage"
)

// Embedded default prompts
//
//go:embed prompts/advisor.txt
var defaultAdvisorPrompt string

//go:embed prompts/triage.txt
var defaultTriagePrompt string

// PromptType represents the type of AI prompt
type PromptType string

const (
	PromptTypeAdvisor PromptType = "advisor"
	PromptTypeTriage  PromptType = "triage"
)

// PromptLoader resolves prompt templates in three tiers: a user's stored
// override, then the config file, then the embedded default.
type PromptLoader struct {
	store  storage.Store   // optional
	config *storage.Config // optional

	mu    sync.Mutex
	cache map[string]string
}

func NewPromptLoader(store storage.Store, config *storage.Config) *PromptLoader {
	return &PromptLoader{
		store:  store,
		config: config,
		cache:  make(map[string]string),
	}
}

// GetPrompt loads a prompt with 3-tier fallback
// Priority: user database -> config file -> embedded default
func (pl *PromptLoader) GetPrompt(userID int64, promptType PromptType) (string, error) {
	cacheKey := fmt.Sprintf("%d:%s", userID, promptType)

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if cached, ok := pl.cache[cacheKey]; ok {
		return cached, nil
	}

	var defaultPrompt, configPrompt string
	switch promptType {
	case PromptTypeAdvisor:
		defaultPrompt = defaultAdvisorPrompt
		if pl.config != nil {
			configPrompt = pl.config.Prompts.Advisor
		}
	case PromptTypeTriage:
		defaultPrompt = defaultTriagePrompt
		if pl.config != nil {
			configPrompt = pl.config.Prompts.Triage
		}
	default:
		return "", fmt.Errorf("unknown prompt type: %s", promptType)
	}

	if pl.store != nil {
		userPrompt, err := pl.store.GetUserPreference(userID, storage.PrefPromptPrefix+string(promptType))
		if err == nil && strings.TrimSpace(userPrompt) != "" {
			pl.cache[cacheKey] = userPrompt
			return userPrompt, nil
		}
	}

	if configPrompt != "" {
		pl.cache[cacheKey] = configPrompt
		return configPrompt, nil
	}

	pl.cache[cacheKey] = defaultPrompt
	return defaultPrompt, nil
}

// Invalidate drops cached prompts for a user after their override changes.
func (pl *PromptLoader) Invalidate(userID int64) {
	prefix := fmt.Sprintf("%d:", userID)
	pl.mu.Lock()
	defer pl.mu.Unlock()
	for k := range pl.cache {
		if strings.HasPrefix(k, prefix) {
			delete(pl.cache, k)
		}
	}
}

// GetTemperature returns the configured temperature, or the default for
// the prompt type.
func (pl *PromptLoader) GetTemperature(promptType PromptType) float64 {
	if pl.config != nil && pl.config.Ollama.Temperature > 0 {
		return pl.config.Ollama.Temperature
	}
	switch promptType {
	case PromptTypeTriage:
		return 0.2
	default:
		return 0.3
	}
}

var promptFuncs = template.FuncMap{
	"join": strings.Join,
}

// ParsePrompt checks that a prompt template parses.
func ParsePrompt(promptTemplate string) error {
	if strings.TrimSpace(promptTemplate) == "" {
		return errEmptyPrompt
	}
	if _, err := template.New("prompt").Funcs(promptFuncs).Parse(promptTemplate); err != nil {
		return fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return nil
}

// ExecutePrompt renders a prompt template with the given data
func ExecutePrompt(promptTemplate string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Funcs(promptFuncs).Parse(promptTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return buf.String(), nil
}

var errEmptyPrompt = errors.New("prompt rendered empty")
