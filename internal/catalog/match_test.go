package catalog

import "testing"

func TestMatchImages(t *testing.T) {
	c := New()
	images := c.Images()

	tests := []struct {
		id       int
		wantIDs  []string
		cropOnly bool
	}{
		{14, []string{"1"}, false},          // 番茄 早疫病
		{16, []string{"3"}, false},          // 番茄 叶霉病
		{13, []string{"1", "2", "3"}, true}, // 番茄, no name match
		{1, nil, false},                     // 苹果, no images at all
	}
	for _, tt := range tests {
		d, err := c.Disease(tt.id)
		if err != nil {
			t.Fatal(err)
		}
		m := MatchImages(d, images)
		if len(m.Images) != len(tt.wantIDs) {
			t.Errorf("disease %d: got %d images, want %d", tt.id, len(m.Images), len(tt.wantIDs))
			continue
		}
		for i, img := range m.Images {
			if img.ID != tt.wantIDs[i] {
				t.Errorf("disease %d: image %d = %s, want %s", tt.id, i, img.ID, tt.wantIDs[i])
			}
		}
		if m.CropOnly != tt.cropOnly {
			t.Errorf("disease %d: CropOnly = %v", tt.id, m.CropOnly)
		}
	}
}

func TestMatchImagesNameVariants(t *testing.T) {
	images := []Image{
		{ID: "a", Crop: "番茄", Disease: "早疫"},
		{ID: "b", Crop: "番茄", Disease: "番茄早疫病"},
		{ID: "c", Crop: "玉米", Disease: "早疫病"},
	}
	m := MatchImages(Disease{Name: "早疫病", Crop: "番茄"}, images)
	if m.Exact != 2 {
		t.Errorf("expected 2 name matches, got %d", m.Exact)
	}
}

func TestMatchImagesCaps(t *testing.T) {
	var images []Image
	for i := 0; i < 10; i++ {
		images = append(images, Image{Crop: "番茄", Disease: "早疫病"})
	}
	if m := MatchImages(Disease{Name: "早疫病", Crop: "番茄"}, images); len(m.Images) != maxMatchedImages {
		t.Errorf("expected %d matched images, got %d", maxMatchedImages, len(m.Images))
	}
	if m := MatchImages(Disease{Name: "叶霉病", Crop: "番茄"}, images); len(m.Images) != maxCropOnlyImages {
		t.Errorf("expected %d crop-only images, got %d", maxCropOnlyImages, len(m.Images))
	}
}
