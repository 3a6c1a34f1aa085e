package catalog

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

const (
	// minFuzzyRunes is the shortest term that goes through fuzzy matching;
	// shorter terms use substring matching only.
	minFuzzyRunes = 2
	// minMatchQuality rejects fuzzy matches whose matched characters are
	// spread too thinly across the field (pattern runes / matched span).
	minMatchQuality = 0.6
	// exactNameBoost puts exact name matches ahead of everything else.
	exactNameBoost = 1000.0
)

type searchField struct {
	name   string
	weight float64
	values func(Disease) []string
}

var searchFields = []searchField{
	{"name", 2.0, func(d Disease) []string { return []string{d.Name} }},
	{"crop", 1.5, func(d Disease) []string { return []string{d.Crop} }},
	{"pathogen", 1.2, func(d Disease) []string { return []string{d.Pathogen} }},
	{"symptoms", 1.0, func(d Disease) []string { return []string{d.Symptoms} }},
	{"pathogen_type", 0.8, func(d Disease) []string { return []string{d.PathogenType} }},
	{"pesticides.name", 0.7, pesticideNames},
	{"tags", 0.5, func(d Disease) []string { return d.Tags }},
	{"prevention", 0.3, func(d Disease) []string { return []string{d.Prevention} }},
}

func pesticideNames(d Disease) []string {
	names := make([]string, 0, len(d.Pesticides))
	for _, p := range d.Pesticides {
		names = append(names, p.Name)
	}
	return names
}

// fieldSource adapts one field of every disease to fuzzy.Source.
type fieldSource struct {
	values []string
	owner  []int
}

func (s fieldSource) String(i int) string { return s.values[i] }
func (s fieldSource) Len() int            { return len(s.values) }

func newFieldSource(diseases []Disease, f searchField) fieldSource {
	var src fieldSource
	for i, d := range diseases {
		for _, v := range f.values(d) {
			if v == "" {
				continue
			}
			src.values = append(src.values, v)
			src.owner = append(src.owner, i)
		}
	}
	return src
}

// TextSearch matches term against the diseases. Terms of two or more runes
// use weighted fuzzy matching; when that finds nothing, or the term is
// shorter, a case-insensitive substring match is used. Exact name matches
// always rank first.
func TextSearch(diseases []Disease, term string) []Disease {
	term = strings.TrimSpace(term)
	if term == "" {
		return diseases
	}
	if utf8.RuneCountInString(term) >= minFuzzyRunes {
		if results := fuzzySearch(diseases, term); len(results) > 0 {
			return results
		}
	}
	return substringSearch(diseases, term)
}

func fuzzySearch(diseases []Disease, term string) []Disease {
	patternRunes := utf8.RuneCountInString(term)
	scores := make([]float64, len(diseases))
	matched := make([]bool, len(diseases))

	for _, field := range searchFields {
		src := newFieldSource(diseases, field)
		best := make(map[int]float64)
		for _, m := range fuzzy.FindFrom(term, src) {
			q := matchQuality(m, patternRunes)
			if q < minMatchQuality {
				continue
			}
			owner := src.owner[m.Index]
			if q > best[owner] {
				best[owner] = q
			}
		}
		for owner, q := range best {
			scores[owner] += field.weight * q
			matched[owner] = true
		}
	}

	type ranked struct {
		d     Disease
		score float64
		pos   int
	}
	var hits []ranked
	for i, d := range diseases {
		if !matched[i] && !isExactName(d, term) {
			continue
		}
		score := scores[i]
		if isExactName(d, term) {
			score += exactNameBoost
		}
		hits = append(hits, ranked{d: d, score: score, pos: i})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].pos < hits[b].pos
	})

	out := make([]Disease, len(hits))
	for i, h := range hits {
		out[i] = h.d
	}
	return out
}

// matchQuality is the ratio of pattern runes to the rune span they cover
// in the matched string: 1.0 for a contiguous match.
func matchQuality(m fuzzy.Match, patternRunes int) float64 {
	if len(m.MatchedIndexes) == 0 {
		return 0
	}
	first := m.MatchedIndexes[0]
	last := m.MatchedIndexes[len(m.MatchedIndexes)-1]
	if first < 0 || last >= len(m.Str) || last < first {
		return 0
	}
	span := utf8.RuneCountInString(m.Str[first:last]) + 1
	q := float64(patternRunes) / float64(span)
	if q > 1 {
		q = 1
	}
	return q
}

func isExactName(d Disease, term string) bool {
	return strings.EqualFold(d.Name, term) || strings.EqualFold(d.Crop+d.Name, term)
}

func substringSearch(diseases []Disease, term string) []Disease {
	lower := strings.ToLower(term)
	var exact, rest []Disease
	for _, d := range diseases {
		if !containsFold(d, lower) {
			continue
		}
		if isExactName(d, term) {
			exact = append(exact, d)
		} else {
			rest = append(rest, d)
		}
	}
	return append(exact, rest...)
}

func containsFold(d Disease, lower string) bool {
	fields := []string{d.Name, d.Crop, d.Pathogen, d.PathogenType, d.Symptoms, d.Prevention}
	fields = append(fields, d.Tags...)
	fields = append(fields, pesticideNames(d)...)
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), lower) {
			return true
		}
	}
	return false
}
