package catalog

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Suggestion kinds.
const (
	SuggestDisease  = "disease"
	SuggestCrop     = "crop"
	SuggestSymptom  = "symptom"
	SuggestPathogen = "pathogen"
)

const maxSuggestions = 5

// Suggestion is one search-box completion.
type Suggestion struct {
	Text        string `json:"text"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

var suggestionSymptoms = []string{"斑点", "腐烂", "枯萎", "黄化", "霉层", "病斑", "水渍状", "枯死"}

var symptomKeywords = []string{
	"斑点", "病斑", "霉层", "腐烂", "枯萎", "黄化", "坏死",
	"水渍", "畸形", "卷曲", "干枯", "褪绿", "穿孔", "溃疡",
}

var fixedPopularSearches = []string{"病斑", "霉层", "病害", "防治", "番茄病害", "水稻", "霜霉病"}

const maxPopularSearches = 8

// Suggest builds up to five completions for a partial search term: disease
// names, crops, common symptom words, then pathogens (for terms of two or
// more runes).
func Suggest(term string, diseases []Disease) []Suggestion {
	lower := strings.ToLower(strings.TrimSpace(term))
	if lower == "" {
		return nil
	}
	var out []Suggestion

	n := 0
	for _, d := range diseases {
		if n == 3 {
			break
		}
		if strings.Contains(strings.ToLower(d.Name), lower) {
			pathogen := d.PathogenName()
			if pathogen == "" {
				pathogen = "未知病原"
			}
			out = append(out, Suggestion{
				Text:        d.Name,
				Type:        SuggestDisease,
				Description: d.Crop + " - " + pathogen,
			})
			n++
		}
	}

	counts := cropCounts(diseases)
	n = 0
	for _, crop := range cropOrder(diseases) {
		if n == 2 {
			break
		}
		if strings.Contains(strings.ToLower(crop), lower) {
			out = append(out, Suggestion{
				Text:        crop,
				Type:        SuggestCrop,
				Description: fmt.Sprintf("%d种病害", counts[crop]),
			})
			n++
		}
	}

	n = 0
	for _, kw := range suggestionSymptoms {
		if n == 2 {
			break
		}
		if strings.Contains(kw, lower) {
			out = append(out, Suggestion{Text: kw, Type: SuggestSymptom, Description: "常见症状"})
			n++
		}
	}

	if utf8.RuneCountInString(lower) >= 2 {
		n = 0
		for _, d := range diseases {
			if n == 2 {
				break
			}
			if d.Pathogen != "" && strings.Contains(strings.ToLower(d.Pathogen), lower) {
				out = append(out, Suggestion{
					Text:        d.PathogenName(),
					Type:        SuggestPathogen,
					Description: "引起" + d.Name,
				})
				n++
			}
		}
	}

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// PopularSearches returns the three crops with the most diseases followed
// by a fixed list of common terms, deduplicated, at most eight.
func PopularSearches(diseases []Disease) []string {
	counts := cropCounts(diseases)
	crops := cropOrder(diseases)
	sort.SliceStable(crops, func(i, j int) bool { return counts[crops[i]] > counts[crops[j]] })
	if len(crops) > 3 {
		crops = crops[:3]
	}

	seen := make(map[string]bool)
	var out []string
	for _, s := range append(crops, fixedPopularSearches...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == maxPopularSearches {
			break
		}
	}
	return out
}

// SymptomKeywords returns the known symptom words found in a disease's
// symptom text.
func SymptomKeywords(d Disease) []string {
	var out []string
	for _, kw := range symptomKeywords {
		if strings.Contains(d.Symptoms, kw) {
			out = append(out, kw)
		}
	}
	return out
}

func cropCounts(diseases []Disease) map[string]int {
	counts := make(map[string]int)
	for _, d := range diseases {
		counts[d.Crop]++
	}
	return counts
}

// cropOrder lists distinct crops in first-seen order.
func cropOrder(diseases []Disease) []string {
	return distinct(diseases, func(d Disease) string { return d.Crop })
}
