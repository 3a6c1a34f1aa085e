package ai

import (
	"strings"
	"testing"

	"github.com/matthewjhunter/plantdoc/internal/catalog"
	"github.com/matthewjhunter/plantdoc/internal/storage"
)

func TestGetPrompt_EmbeddedDefault(t *testing.T) {
	pl := NewPromptLoader(nil, nil)

	for _, pt := range []PromptType{PromptTypeAdvisor, PromptTypeTriage} {
		t.Run(string(pt), func(t *testing.T) {
			prompt, err := pl.GetPrompt(1, pt)
			if err != nil {
				t.Fatalf("GetPrompt(%s) failed: %v", pt, err)
			}
			if prompt == "" {
				t.Errorf("GetPrompt(%s) returned empty string", pt)
			}
		})
	}
}

func TestGetPrompt_ConfigOverride(t *testing.T) {
	config := &storage.Config{}
	config.Prompts.Advisor = "custom advisor prompt"

	pl := NewPromptLoader(nil, config)

	prompt, err := pl.GetPrompt(1, PromptTypeAdvisor)
	if err != nil {
		t.Fatalf("GetPrompt failed: %v", err)
	}
	if prompt != "custom advisor prompt" {
		t.Errorf("expected config override, got: %q", prompt)
	}

	triage, err := pl.GetPrompt(1, PromptTypeTriage)
	if err != nil {
		t.Fatalf("GetPrompt(triage) failed: %v", err)
	}
	if triage != defaultTriagePrompt {
		t.Error("triage prompt should not be affected by advisor config override")
	}
}

func TestGetPrompt_DatabaseOverride(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	if err := store.SetUserPreference(1, storage.PrefPromptPrefix+"advisor", "db advisor prompt"); err != nil {
		t.Fatalf("SetUserPreference failed: %v", err)
	}

	// Also set a config override to verify DB takes precedence
	config := &storage.Config{}
	config.Prompts.Advisor = "config advisor prompt"

	pl := NewPromptLoader(store, config)

	prompt, err := pl.GetPrompt(1, PromptTypeAdvisor)
	if err != nil {
		t.Fatalf("GetPrompt failed: %v", err)
	}
	if prompt != "db advisor prompt" {
		t.Errorf("expected database override, got: %q", prompt)
	}

	other, err := pl.GetPrompt(2, PromptTypeAdvisor)
	if err != nil {
		t.Fatalf("GetPrompt(user 2) failed: %v", err)
	}
	if other != "config advisor prompt" {
		t.Errorf("user 2 should fall back to config, got: %q", other)
	}
}

func TestGetPrompt_CacheAndInvalidate(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	pl := NewPromptLoader(store, nil)

	first, err := pl.GetPrompt(1, PromptTypeAdvisor)
	if err != nil {
		t.Fatalf("first GetPrompt failed: %v", err)
	}
	if err := store.SetUserPreference(1, storage.PrefPromptPrefix+"advisor", "changed"); err != nil {
		t.Fatal(err)
	}

	second, err := pl.GetPrompt(1, PromptTypeAdvisor)
	if err != nil {
		t.Fatalf("second GetPrompt failed: %v", err)
	}
	if first != second {
		t.Errorf("cached result differs: %q vs %q", first, second)
	}

	pl.Invalidate(1)
	third, err := pl.GetPrompt(1, PromptTypeAdvisor)
	if err != nil {
		t.Fatalf("GetPrompt after Invalidate failed: %v", err)
	}
	if third != "changed" {
		t.Errorf("expected reloaded override, got %q", third)
	}
}

func TestGetPrompt_UnknownType(t *testing.T) {
	pl := NewPromptLoader(nil, nil)

	_, err := pl.GetPrompt(1, PromptType("nonexistent"))
	if err == nil {
		t.Fatal("expected error for unknown prompt type, got nil")
	}
}

func TestGetTemperature(t *testing.T) {
	pl := NewPromptLoader(nil, nil)
	if got := pl.GetTemperature(PromptTypeAdvisor); got != 0.3 {
		t.Errorf("advisor temperature = %f, want 0.3", got)
	}
	if got := pl.GetTemperature(PromptTypeTriage); got != 0.2 {
		t.Errorf("triage temperature = %f, want 0.2", got)
	}

	config := &storage.Config{}
	config.Ollama.Temperature = 0.7
	if got := NewPromptLoader(nil, config).GetTemperature(PromptTypeTriage); got != 0.7 {
		t.Errorf("configured temperature = %f, want 0.7", got)
	}
}

func TestExecutePrompt(t *testing.T) {
	tmpl := "{{.Crop}}: {{join .Conditions \"、\"}}"
	data := struct {
		Crop       string
		Conditions []string
	}{
		Crop:       "番茄",
		Conditions: []string{"高温", "高湿"},
	}

	result, err := ExecutePrompt(tmpl, data)
	if err != nil {
		t.Fatalf("ExecutePrompt failed: %v", err)
	}

	want := "番茄: 高温、高湿"
	if result != want {
		t.Errorf("ExecutePrompt = %q, want %q", result, want)
	}
}

func TestExecutePrompt_InvalidTemplate(t *testing.T) {
	_, err := ExecutePrompt("{{.Unclosed", nil)
	if err == nil {
		t.Fatal("expected error for invalid template, got nil")
	}
}

func TestDefaultAdvisorPromptRenders(t *testing.T) {
	d := catalog.FallbackDiseases().Diseases[0]
	out, err := ExecutePrompt(defaultAdvisorPrompt, advisorData{
		Disease:  d,
		Severity: catalog.SeverityLabel(d.Severity),
		Symptoms: d.Symptoms,
		Question: "什么时候打药？",
	})
	if err != nil {
		t.Fatalf("ExecutePrompt failed: %v", err)
	}
	for _, want := range []string{d.Name, "苯醚甲环唑", "什么时候打药？", "高危害"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
}
