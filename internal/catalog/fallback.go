package catalog

import (
	_ "embed"
	"fmt"
)

// Built-in sample data served when the configured source is unavailable.
//
//go:embed fallback/diseases.json
var fallbackDiseases []byte

//go:embed fallback/frontend_images.json
var fallbackImages []byte

// FallbackDiseases returns the built-in disease collection.
func FallbackDiseases() *DiseaseFile {
	file, err := ParseDiseases(fallbackDiseases)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded fallback diseases: %v", err))
	}
	return file
}

// FallbackImages returns the built-in image collection.
func FallbackImages() *ImageFile {
	file, err := ParseImages(fallbackImages)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded fallback images: %v", err))
	}
	return file
}
