package catalog

import "testing"

func TestTextSearchExactNameFirst(t *testing.T) {
	all := FallbackDiseases().Diseases

	got := TextSearch(all, "苹果黑星病")
	if len(got) == 0 {
		t.Fatal("expected results")
	}
	if got[0].ID != 1 {
		t.Errorf("expected 苹果黑星病 first, got %d %s", got[0].ID, got[0].Name)
	}
}

func TestTextSearchCropPlusName(t *testing.T) {
	all := FallbackDiseases().Diseases

	got := TextSearch(all, "番茄晚疫病")
	if len(got) == 0 || got[0].ID != 15 {
		t.Fatalf("expected 番茄晚疫病 (15) first, got %v", ids(got))
	}
}

func TestTextSearchSharedName(t *testing.T) {
	all := FallbackDiseases().Diseases

	got := TextSearch(all, "早疫病")
	if len(got) < 2 {
		t.Fatalf("expected at least 2 results, got %d", len(got))
	}
	for _, d := range got[:2] {
		if d.Name != "早疫病" {
			t.Errorf("expected exact name matches first, got %s", d.Name)
		}
	}
}

func TestTextSearchSingleRuneSubstring(t *testing.T) {
	all := FallbackDiseases().Diseases

	got := TextSearch(all, "螨")
	if len(got) != 1 || got[0].ID != 18 {
		t.Errorf("expected only 18, got %v", ids(got))
	}
}

func TestTextSearchCaseInsensitive(t *testing.T) {
	all := FallbackDiseases().Diseases

	got := TextSearch(all, "alternaria")
	if len(got) == 0 {
		t.Fatal("expected matches on the Latin pathogen name")
	}
	for _, d := range got {
		if d.ID == 11 || d.ID == 14 {
			return
		}
	}
	t.Errorf("expected an Alternaria disease, got %v", ids(got))
}

func TestTextSearchNoMatch(t *testing.T) {
	all := FallbackDiseases().Diseases
	if got := TextSearch(all, "zzzqqq"); len(got) != 0 {
		t.Errorf("expected no matches, got %v", ids(got))
	}
}

func TestTextSearchEmptyTerm(t *testing.T) {
	all := FallbackDiseases().Diseases
	if got := TextSearch(all, "   "); len(got) != len(all) {
		t.Errorf("blank term should return everything, got %d", len(got))
	}
}
