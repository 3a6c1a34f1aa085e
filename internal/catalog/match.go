package catalog

import "strings"

const (
	maxMatchedImages  = 6
	maxCropOnlyImages = 4
)

// ImageMatch is the result of pairing a disease with gallery images.
type ImageMatch struct {
	Images   []Image `json:"images"`
	Exact    int     `json:"exact"`     // images whose disease name matched
	CropOnly bool    `json:"crop_only"` // no name match; images share the crop only
	Main     string  `json:"main,omitempty"`
}

// MatchImages finds gallery images for a disease. An image matches when it
// is not healthy, shows the same crop and either name contains the other, or both are
// equal once a trailing "病" is removed. Without name matches, up to four
// images of the same crop are returned instead.
func MatchImages(d Disease, images []Image) ImageMatch {
	m := ImageMatch{Main: d.Images.Main}
	for _, img := range images {
		if len(m.Images) == maxMatchedImages {
			break
		}
		if !img.IsHealthy && img.Crop == d.Crop && nameMatches(d, img.Disease) {
			m.Images = append(m.Images, img)
		}
	}
	if len(m.Images) > 0 {
		m.Exact = len(m.Images)
		return m
	}

	for _, img := range images {
		if len(m.Images) == maxCropOnlyImages {
			break
		}
		if img.Crop == d.Crop {
			m.Images = append(m.Images, img)
		}
	}
	m.CropOnly = len(m.Images) > 0
	return m
}

func nameMatches(d Disease, imageDisease string) bool {
	if imageDisease == "" {
		return false
	}
	for _, name := range []string{d.Name, d.ShortName()} {
		if strings.Contains(name, imageDisease) || strings.Contains(imageDisease, name) {
			return true
		}
		if strings.TrimSuffix(name, "病") == strings.TrimSuffix(imageDisease, "病") {
			return true
		}
	}
	return false
}
