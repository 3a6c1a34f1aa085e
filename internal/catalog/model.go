package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("disease not found")

// Severity levels as they appear in diseases.json.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// HealthyType is the gallery type label for healthy plant images.
const HealthyType = "健康"

type Pesticide struct {
	Name          string   `json:"name"`
	Concentration string   `json:"concentration,omitempty"`
	Safety        string   `json:"safety,omitempty"`
	Stage         []string `json:"stage,omitempty"`
	Precautions   []string `json:"precautions,omitempty"`
}

// StringList decodes from either a JSON string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = StringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

type DiseaseImages struct {
	Main string `json:"main,omitempty"`
}

type Disease struct {
	ID                  int                 `json:"id"`
	Name                string              `json:"name"`
	Crop                string              `json:"crop"`
	Pathogen            string              `json:"pathogen"`
	PathogenType        string              `json:"pathogen_type,omitempty"`
	Symptoms            string              `json:"symptoms"`
	SymptomsDetail      map[string][]string `json:"symptoms_detail,omitempty"`
	Prevention          string              `json:"prevention,omitempty"`
	AgriculturalControl []string            `json:"agricultural_control,omitempty"`
	Pesticides          []Pesticide         `json:"pesticides,omitempty"`
	Severity            string              `json:"severity"`
	RecognitionAccuracy string              `json:"recognition_accuracy,omitempty"`
	References          StringList          `json:"references,omitempty"`
	GrowthStages        []string            `json:"growth_stages,omitempty"`
	WeatherConditions   StringList          `json:"weather_conditions,omitempty"`
	OptimalTemperature  string              `json:"optimal_temperature,omitempty"`
	OptimalHumidity     string              `json:"optimal_humidity,omitempty"`
	Conditions          []string            `json:"conditions,omitempty"`
	RelatedDiseases     []int               `json:"related_diseases,omitempty"`
	ProjectFeatures     []string            `json:"project_features,omitempty"`
	Tags                []string            `json:"tags,omitempty"`
	Images              DiseaseImages       `json:"images"`
}

// PathogenName returns the pathogen without its parenthesized Latin name.
func (d Disease) PathogenName() string {
	return beforeParen(d.Pathogen)
}

// ShortName returns the disease name with a leading crop name removed,
// e.g. "番茄早疫病" -> "早疫病".
func (d Disease) ShortName() string {
	if d.Crop != "" && strings.HasPrefix(d.Name, d.Crop) && len(d.Name) > len(d.Crop) {
		return strings.TrimPrefix(d.Name, d.Crop)
	}
	return d.Name
}

func beforeParen(s string) string {
	if i := strings.IndexAny(s, "(（"); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

type Image struct {
	ID        string `json:"id"`
	Crop      string `json:"crop"`
	Disease   string `json:"disease"`
	Thumbnail string `json:"thumbnail"`
	Preview   string `json:"preview"`
	IsHealthy bool   `json:"is_healthy"`
	Type      string `json:"type"`
}

// UnmarshalJSON accepts numeric or string image ids.
func (img *Image) UnmarshalJSON(data []byte) error {
	type plain Image
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*img = Image(aux.plain)
	img.ID = ""
	if len(aux.ID) > 0 && string(aux.ID) != "null" {
		var s string
		if err := json.Unmarshal(aux.ID, &s); err == nil {
			img.ID = s
		} else {
			var n json.Number
			if err := json.Unmarshal(aux.ID, &n); err != nil {
				return fmt.Errorf("image id: %w", err)
			}
			img.ID = n.String()
		}
	}
	return nil
}

// DiseaseFile is the layout of diseases.json.
type DiseaseFile struct {
	Diseases    []Disease `json:"diseases"`
	LastUpdated string    `json:"last_updated,omitempty"`
}

// ImageFile is the layout of images/frontend_images.json.
type ImageFile struct {
	Images   []Image  `json:"images"`
	Crops    []string `json:"crops,omitempty"`
	Diseases []string `json:"diseases,omitempty"`
}

// Dataset is one immutable snapshot of both collections.
type Dataset struct {
	Diseases    []Disease
	Images      []Image
	Crops       []string // image crops, first-seen order
	ImageTypes  []string // image disease names, first-seen order
	LastUpdated string
	LoadedAt    time.Time

	DiseasesFallback bool
	ImagesFallback   bool
}

// ParseDiseases decodes diseases.json. A bare JSON array is accepted too.
// Records without an id or name are dropped and severity is normalized.
func ParseDiseases(data []byte) (*DiseaseFile, error) {
	var file DiseaseFile
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &file.Diseases); err != nil {
			return nil, fmt.Errorf("parse diseases: %w", err)
		}
	} else if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse diseases: %w", err)
	}

	valid := file.Diseases[:0]
	for _, d := range file.Diseases {
		if d.ID == 0 || strings.TrimSpace(d.Name) == "" {
			continue
		}
		d.Severity = NormalizeSeverity(d.Severity)
		valid = append(valid, d)
	}
	file.Diseases = valid

	if len(file.Diseases) == 0 {
		return nil, fmt.Errorf("parse diseases: no valid records")
	}
	return &file, nil
}

// ParseImages decodes frontend_images.json and derives crop and disease
// lists when the file omits them.
func ParseImages(data []byte) (*ImageFile, error) {
	var file ImageFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse images: %w", err)
	}
	if len(file.Images) == 0 {
		return nil, fmt.Errorf("parse images: no images")
	}
	if len(file.Crops) == 0 {
		file.Crops = distinct(file.Images, func(img Image) string { return img.Crop })
	}
	if len(file.Diseases) == 0 {
		file.Diseases = distinct(file.Images, func(img Image) string { return img.Disease })
	}
	return &file, nil
}

// NormalizeSeverity maps a severity value onto low/medium/high. Unknown
// values count as medium.
func NormalizeSeverity(s string) string {
	if level, ok := ParseSeverity(s); ok {
		return level
	}
	return SeverityMedium
}

// ParseSeverity recognizes a severity level by code or Chinese label.
func ParseSeverity(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case SeverityLow, "低", "低危害":
		return SeverityLow, true
	case SeverityMedium, "中", "中危害":
		return SeverityMedium, true
	case SeverityHigh, "高", "高危害":
		return SeverityHigh, true
	default:
		return "", false
	}
}

// SeverityLabel returns the display label for a severity level.
func SeverityLabel(s string) string {
	switch s {
	case SeverityHigh:
		return "高危害"
	case SeverityLow:
		return "低危害"
	default:
		return "中危害"
	}
}

func distinct[T any](items []T, key func(T) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		k := key(it)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
