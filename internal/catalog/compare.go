package catalog

import (
	"fmt"
	"strings"
)

const symptomPreviewRunes = 60

// CompareRow is one attribute across the compared diseases.
type CompareRow struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// CompareTable is the side-by-side comparison of up to four diseases.
type CompareTable struct {
	Headers []string     `json:"headers"` // "name (crop)" per column
	IDs     []int        `json:"ids"`
	Rows    []CompareRow `json:"rows"`
}

// BuildCompareTable lays the given diseases out column by column.
func BuildCompareTable(diseases []Disease) CompareTable {
	t := CompareTable{}
	for _, d := range diseases {
		t.Headers = append(t.Headers, fmt.Sprintf("%s (%s)", d.Name, d.Crop))
		t.IDs = append(t.IDs, d.ID)
	}

	row := func(label string, value func(Disease) string) {
		r := CompareRow{Label: label}
		for _, d := range diseases {
			r.Values = append(r.Values, value(d))
		}
		t.Rows = append(t.Rows, r)
	}

	row("病害名称", func(d Disease) string { return d.Name })
	row("危害作物", func(d Disease) string { return d.Crop })
	row("病原菌", func(d Disease) string { return d.Pathogen })
	row("病原类型", func(d Disease) string { return orDefault(d.PathogenType, "未知") })
	row("危害程度", func(d Disease) string { return SeverityLabel(d.Severity) })
	row("识别准确率", func(d Disease) string { return orDefault(d.RecognitionAccuracy, "90%") })
	row("典型症状", func(d Disease) string { return truncateRunes(d.Symptoms, symptomPreviewRunes) + "..." })
	row("防治方案数量", func(d Disease) string { return fmt.Sprintf("%d种", len(d.Pesticides)) })
	row("主要防治药剂", func(d Disease) string {
		if len(d.Pesticides) == 0 {
			return "无数据"
		}
		var parts []string
		for i, p := range d.Pesticides {
			if i == 2 {
				break
			}
			parts = append(parts, p.Name+": "+p.Concentration)
		}
		return strings.Join(parts, "; ")
	})
	row("安全间隔期", func(d Disease) string {
		if len(d.Pesticides) == 0 {
			return "无数据"
		}
		var intervals []string
		seen := make(map[string]bool)
		for _, p := range d.Pesticides {
			if seen[p.Safety] {
				continue
			}
			seen[p.Safety] = true
			intervals = append(intervals, p.Safety)
		}
		return strings.Join(intervals, ", ")
	})
	return t
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
