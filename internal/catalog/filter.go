package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// AllValue is the sentinel meaning "no restriction" for any filter field.
const AllValue = "all"

// Filter is the transient catalog filter state.
type Filter struct {
	Severity      string   `json:"severity,omitempty"`
	Crops         []string `json:"crops,omitempty"`
	PathogenTypes []string `json:"pathogen_types,omitempty"`
	Conditions    []string `json:"conditions,omitempty"`
	Search        string   `json:"search,omitempty"`
}

// ParseList splits a comma-joined selection ("番茄,玉米") into its values.
// "all" and blanks are dropped.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '，' }) {
		part = strings.TrimSpace(part)
		if part == "" || part == AllValue {
			continue
		}
		out = append(out, part)
	}
	return out
}

// IsZero reports whether the filter imposes no restriction at all.
func (f Filter) IsZero() bool {
	return !f.hasSeverity() && len(activeSet(f.Crops)) == 0 &&
		len(activeSet(f.PathogenTypes)) == 0 && len(activeSet(f.Conditions)) == 0 &&
		strings.TrimSpace(f.Search) == ""
}

// Reset returns the empty filter.
func (f Filter) Reset() Filter {
	return Filter{}
}

// severity returns the requested level. Empty, "all" and unrecognized
// values impose no restriction.
func (f Filter) severity() (string, bool) {
	return ParseSeverity(f.Severity)
}

func (f Filter) hasSeverity() bool {
	_, ok := f.severity()
	return ok
}

// activeSet returns the selected values as a set, or nil when the selection
// is empty or contains the "all" sentinel.
func activeSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == AllValue {
			return nil
		}
		if v != "" {
			set[v] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Apply runs the structured filters in order: severity, crop set, pathogen
// type set, then condition intersection. The free-text term is ignored;
// see Search.
func (f Filter) Apply(diseases []Disease) []Disease {
	severity, _ := f.severity()
	crops := activeSet(f.Crops)
	types := activeSet(f.PathogenTypes)
	conditions := activeSet(f.Conditions)

	out := make([]Disease, 0, len(diseases))
	for _, d := range diseases {
		if severity != "" && d.Severity != severity {
			continue
		}
		if crops != nil && !crops[d.Crop] {
			continue
		}
		if types != nil && !types[d.PathogenType] {
			continue
		}
		if conditions != nil && !anyIn(d.Conditions, conditions) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func anyIn(values []string, set map[string]bool) bool {
	for _, v := range values {
		if set[v] {
			return true
		}
	}
	return false
}

// Search applies the structured filters, then the free-text term. With a
// zero filter it returns all diseases in source order.
func Search(diseases []Disease, f Filter) []Disease {
	filtered := f.Apply(diseases)
	if strings.TrimSpace(f.Search) == "" {
		return filtered
	}
	return TextSearch(filtered, f.Search)
}

// ActiveFilterLabels describes the active filters for display. An
// unrestricted filter yields a single "全部病害" label.
func ActiveFilterLabels(f Filter) []string {
	var labels []string
	if severity, ok := f.severity(); ok {
		labels = append(labels, "危害程度: "+SeverityLabel(severity))
	}
	if crops := ordered(f.Crops); len(crops) > 0 {
		text := crops[0]
		if len(crops) > 1 {
			text = fmt.Sprintf("%s等%d种作物", crops[0], len(crops))
		}
		labels = append(labels, "作物: "+text)
	}
	if types := ordered(f.PathogenTypes); len(types) > 0 {
		text := types[0] + "病害"
		if len(types) > 1 {
			text = fmt.Sprintf("%d种病原类型", len(types))
		}
		labels = append(labels, "病原: "+text)
	}
	if conds := ordered(f.Conditions); len(conds) > 0 {
		text := conds[0]
		if len(conds) > 1 {
			text = fmt.Sprintf("%s等%d个条件", conds[0], len(conds))
		}
		labels = append(labels, "条件: "+text)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		labels = append(labels, "搜索: "+s)
	}
	if len(labels) == 0 {
		return []string{"全部病害"}
	}
	return labels
}

// ordered returns the active values of a selection in their given order.
func ordered(values []string) []string {
	if activeSet(values) == nil {
		return nil
	}
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FilterOptions lists the selectable values present in a dataset.
type FilterOptions struct {
	Severities    []string `json:"severities"`
	Crops         []string `json:"crops"`
	PathogenTypes []string `json:"pathogen_types"`
	Conditions    []string `json:"conditions"`
}

// Options collects the distinct crops, pathogen types and conditions, sorted.
func Options(diseases []Disease) FilterOptions {
	crops := map[string]bool{}
	types := map[string]bool{}
	conds := map[string]bool{}
	for _, d := range diseases {
		if d.Crop != "" {
			crops[d.Crop] = true
		}
		if d.PathogenType != "" {
			types[d.PathogenType] = true
		}
		for _, c := range d.Conditions {
			if c != "" {
				conds[c] = true
			}
		}
	}
	return FilterOptions{
		Severities:    []string{SeverityHigh, SeverityMedium, SeverityLow},
		Crops:         sortedKeys(crops),
		PathogenTypes: sortedKeys(types),
		Conditions:    sortedKeys(conds),
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
