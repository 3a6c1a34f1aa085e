package catalog

import (
	"reflect"
	"testing"
)

func TestSuggestCropAndPathogen(t *testing.T) {
	got := Suggest("番茄", FallbackDiseases().Diseases)
	if len(got) != 3 {
		t.Fatalf("expected 3 suggestions, got %+v", got)
	}
	if got[0] != (Suggestion{Text: "番茄", Type: SuggestCrop, Description: "9种病害"}) {
		t.Errorf("crop suggestion = %+v", got[0])
	}
	if got[1].Type != SuggestPathogen || got[1].Text != "丁香假单胞菌番茄致病变种" || got[1].Description != "引起细菌性斑点病" {
		t.Errorf("pathogen suggestion = %+v", got[1])
	}
	if got[2].Type != SuggestPathogen {
		t.Errorf("expected second pathogen suggestion, got %+v", got[2])
	}
}

func TestSuggestDiseasesAndSymptoms(t *testing.T) {
	got := Suggest("病", FallbackDiseases().Diseases)
	if len(got) != 4 {
		t.Fatalf("expected 4 suggestions, got %+v", got)
	}
	for _, s := range got[:3] {
		if s.Type != SuggestDisease {
			t.Errorf("expected disease suggestion, got %+v", s)
		}
	}
	if got[0].Description != "苹果 - 苹果黑星病菌" {
		t.Errorf("description = %q", got[0].Description)
	}
	if got[3] != (Suggestion{Text: "病斑", Type: SuggestSymptom, Description: "常见症状"}) {
		t.Errorf("symptom suggestion = %+v", got[3])
	}
}

func TestSuggestCapped(t *testing.T) {
	var diseases []Disease
	for i := 1; i <= 10; i++ {
		diseases = append(diseases, Disease{ID: i, Name: "斑点病", Crop: "斑点", Pathogen: "斑点菌"})
	}
	if got := Suggest("斑点", diseases); len(got) != maxSuggestions {
		t.Errorf("expected %d suggestions, got %d", maxSuggestions, len(got))
	}
	if Suggest("  ", diseases) != nil {
		t.Error("blank term should give no suggestions")
	}
}

func TestPopularSearches(t *testing.T) {
	got := PopularSearches(FallbackDiseases().Diseases)
	want := []string{"番茄", "苹果", "玉米", "病斑", "霉层", "病害", "防治", "番茄病害"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PopularSearches = %v, want %v", got, want)
	}
}

func TestSymptomKeywords(t *testing.T) {
	d := Disease{Symptoms: "叶片出现褐色病斑，后期腐烂，表面生霉层"}
	got := SymptomKeywords(d)
	want := []string{"病斑", "霉层", "腐烂"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SymptomKeywords = %v, want %v", got, want)
	}
}
