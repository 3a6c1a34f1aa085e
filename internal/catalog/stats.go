package catalog

import (
	"sort"
	"strconv"
	"strings"
)

// Count is a labelled tally.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarizes a dataset for the dashboard.
type Stats struct {
	Diseases        int     `json:"diseases"`
	Crops           int     `json:"crops"`
	Pesticides      int     `json:"pesticides"` // distinct pesticide names
	Images          int     `json:"images"`
	HealthyImages   int     `json:"healthy_images"`
	AverageAccuracy float64 `json:"average_accuracy"` // percent, 0 when unknown
	ByCrop          []Count `json:"by_crop"`
	BySeverity      []Count `json:"by_severity"`
	ByPathogenType  []Count `json:"by_pathogen_type"`
	TopCrops        []Count `json:"top_crops"`
	LastUpdated     string  `json:"last_updated,omitempty"`
}

const topCropCount = 5

// ComputeStats tallies the dataset.
func ComputeStats(ds *Dataset) Stats {
	s := Stats{
		Diseases:    len(ds.Diseases),
		Images:      len(ds.Images),
		LastUpdated: ds.LastUpdated,
	}

	crops := map[string]int{}
	severities := map[string]int{}
	types := map[string]int{}
	pesticides := map[string]bool{}
	var accSum float64
	var accN int

	for _, d := range ds.Diseases {
		crops[d.Crop]++
		severities[d.Severity]++
		types[orDefault(d.PathogenType, "未知")]++
		for _, p := range d.Pesticides {
			pesticides[p.Name] = true
		}
		if v, ok := ParseAccuracy(d.RecognitionAccuracy); ok {
			accSum += v
			accN++
		}
	}
	for _, img := range ds.Images {
		if img.IsHealthy {
			s.HealthyImages++
		}
	}

	s.Crops = len(crops)
	s.Pesticides = len(pesticides)
	if accN > 0 {
		s.AverageAccuracy = accSum / float64(accN)
	}
	s.ByCrop = sortedCounts(crops)
	s.BySeverity = sortedCounts(severities)
	s.ByPathogenType = sortedCounts(types)
	s.TopCrops = s.ByCrop
	if len(s.TopCrops) > topCropCount {
		s.TopCrops = s.TopCrops[:topCropCount]
	}
	return s
}

// ParseAccuracy reads a percentage such as "94%" or "94.5".
func ParseAccuracy(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
