package catalog

import (
	"errors"
	"testing"
)

func TestFallbackData(t *testing.T) {
	d := FallbackDiseases()
	if len(d.Diseases) != 21 {
		t.Fatalf("expected 21 fallback diseases, got %d", len(d.Diseases))
	}
	img := FallbackImages()
	if len(img.Images) != 6 {
		t.Fatalf("expected 6 fallback images, got %d", len(img.Images))
	}
	if img.Images[0].ID != "1" {
		t.Errorf("numeric image id should decode as \"1\", got %q", img.Images[0].ID)
	}
}

func TestNewCatalogSeededWithFallback(t *testing.T) {
	c := New()
	ds := c.Snapshot()
	if !ds.DiseasesFallback || !ds.ImagesFallback {
		t.Error("new catalog should be flagged as fallback data")
	}
	if len(c.Diseases()) == 0 || len(c.Images()) == 0 {
		t.Fatal("new catalog should not be empty")
	}
}

func TestCatalogDisease(t *testing.T) {
	c := New()

	d, err := c.Disease(14)
	if err != nil {
		t.Fatalf("Disease(14) failed: %v", err)
	}
	if d.Name != "早疫病" || d.Crop != "番茄" {
		t.Errorf("unexpected disease: %s/%s", d.Crop, d.Name)
	}

	_, err = c.Disease(9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogDiseasesByID(t *testing.T) {
	c := New()
	got := c.DiseasesByID([]int{3, 9999, 1})
	if len(got) != 2 {
		t.Fatalf("expected 2 diseases, got %d", len(got))
	}
	if got[0].ID != 3 || got[1].ID != 1 {
		t.Errorf("order not preserved: %d, %d", got[0].ID, got[1].ID)
	}
}

func TestCatalogReplace(t *testing.T) {
	c := New()
	old := c.Snapshot()
	c.Replace(&Dataset{Diseases: []Disease{{ID: 7, Name: "x"}}})
	if len(c.Diseases()) != 1 {
		t.Fatalf("expected replaced dataset, got %d diseases", len(c.Diseases()))
	}
	if len(old.Diseases) != 21 {
		t.Error("earlier snapshot should be unaffected by Replace")
	}
}

func TestParseDiseases(t *testing.T) {
	data := []byte(`{"diseases":[
		{"id":1,"name":"A","crop":"c","severity":"HIGH","references":"book","weather_conditions":["rain","fog"]},
		{"id":0,"name":"no id"},
		{"id":3,"name":"  "},
		{"id":4,"name":"B","crop":"c","severity":"weird"}
	],"last_updated":"2024-01-01"}`)

	file, err := ParseDiseases(data)
	if err != nil {
		t.Fatalf("ParseDiseases failed: %v", err)
	}
	if len(file.Diseases) != 2 {
		t.Fatalf("expected 2 valid diseases, got %d", len(file.Diseases))
	}
	if file.Diseases[0].Severity != SeverityHigh {
		t.Errorf("severity = %q, want high", file.Diseases[0].Severity)
	}
	if file.Diseases[1].Severity != SeverityMedium {
		t.Errorf("unknown severity should become medium, got %q", file.Diseases[1].Severity)
	}
	if len(file.Diseases[0].References) != 1 || file.Diseases[0].References[0] != "book" {
		t.Errorf("string references not decoded: %v", file.Diseases[0].References)
	}
	if len(file.Diseases[0].WeatherConditions) != 2 {
		t.Errorf("array weather conditions not decoded: %v", file.Diseases[0].WeatherConditions)
	}
	if file.LastUpdated != "2024-01-01" {
		t.Errorf("last_updated = %q", file.LastUpdated)
	}
}

func TestParseDiseasesBareArray(t *testing.T) {
	file, err := ParseDiseases([]byte(`[{"id":2,"name":"A"}]`))
	if err != nil {
		t.Fatalf("ParseDiseases failed: %v", err)
	}
	if len(file.Diseases) != 1 || file.Diseases[0].ID != 2 {
		t.Errorf("unexpected result: %+v", file.Diseases)
	}
}

func TestParseDiseasesRejectsEmpty(t *testing.T) {
	for _, in := range []string{`{"diseases":[]}`, `{"diseases":[{"id":0,"name":""}]}`, `not json`} {
		if _, err := ParseDiseases([]byte(in)); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
}

func TestParseImagesDerivesLists(t *testing.T) {
	file, err := ParseImages([]byte(`{"images":[
		{"id":"a","crop":"番茄","disease":"早疫病"},
		{"id":2,"crop":"番茄","disease":"晚疫病"},
		{"id":3,"crop":"玉米","disease":"早疫病"}
	]}`))
	if err != nil {
		t.Fatalf("ParseImages failed: %v", err)
	}
	if len(file.Crops) != 2 || file.Crops[0] != "番茄" || file.Crops[1] != "玉米" {
		t.Errorf("crops = %v", file.Crops)
	}
	if len(file.Diseases) != 2 {
		t.Errorf("diseases = %v", file.Diseases)
	}
	if file.Images[0].ID != "a" || file.Images[1].ID != "2" {
		t.Errorf("ids = %q, %q", file.Images[0].ID, file.Images[1].ID)
	}
}

func TestDiseaseNames(t *testing.T) {
	d := Disease{Name: "番茄早疫病", Crop: "番茄", Pathogen: "茄链格孢菌 (Alternaria solani)"}
	if got := d.ShortName(); got != "早疫病" {
		t.Errorf("ShortName = %q", got)
	}
	if got := d.PathogenName(); got != "茄链格孢菌" {
		t.Errorf("PathogenName = %q", got)
	}

	d = Disease{Name: "番茄", Crop: "番茄", Pathogen: "病毒（TMV）"}
	if got := d.ShortName(); got != "番茄" {
		t.Errorf("ShortName should keep a name equal to the crop, got %q", got)
	}
	if got := d.PathogenName(); got != "病毒" {
		t.Errorf("PathogenName with full-width paren = %q", got)
	}
}

func TestSeverityLabel(t *testing.T) {
	cases := map[string]string{
		SeverityHigh:   "高危害",
		SeverityMedium: "中危害",
		SeverityLow:    "低危害",
		"":             "中危害",
	}
	for in, want := range cases {
		if got := SeverityLabel(in); got != want {
			t.Errorf("SeverityLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
