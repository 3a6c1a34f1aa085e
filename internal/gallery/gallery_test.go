package gallery

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewjhunter/plantdoc/internal/catalog"
)

func testImages(n int) []catalog.Image {
	crops := []string{"番茄", "玉米", "水稻"}
	out := make([]catalog.Image, n)
	for i := range out {
		out[i] = catalog.Image{
			ID:      fmt.Sprint(i + 1),
			Crop:    crops[i%len(crops)],
			Disease: fmt.Sprintf("病害%d", i%5),
			Type:    "真菌",
		}
	}
	return out
}

func imageIDs(images []catalog.Image) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.ID
	}
	return out
}

func TestFilterMatches(t *testing.T) {
	healthy := catalog.Image{ID: "h", Crop: "番茄", Disease: "健康", IsHealthy: true, Type: "健康"}
	sick := catalog.Image{ID: "s", Crop: "番茄", Disease: "早疫病", Type: "真菌"}

	assert.True(t, Filter{}.Matches(sick))
	assert.True(t, Filter{Crop: "all", Type: "all"}.Matches(sick))
	assert.True(t, Filter{Type: catalog.HealthyType}.Matches(healthy))
	assert.False(t, Filter{Type: catalog.HealthyType}.Matches(sick))
	assert.True(t, Filter{Type: "真菌"}.Matches(sick))
	assert.False(t, Filter{Crop: "玉米"}.Matches(sick))
	assert.True(t, Filter{Search: "番茄 早疫"}.Matches(sick))
	assert.False(t, Filter{Search: "稻瘟"}.Matches(sick))
}

func TestPagination(t *testing.T) {
	g := New(testImages(30), 0)
	require.Equal(t, DefaultPageSize, g.PageSize())
	assert.Equal(t, 3, g.TotalPages())
	assert.Len(t, g.PageImages(), 12)

	assert.Len(t, g.Page(3), 6)
	assert.Equal(t, 3, g.CurrentPage())

	g.Page(99)
	assert.Equal(t, 3, g.CurrentPage())
	g.Page(-1)
	assert.Equal(t, 1, g.CurrentPage())
}

func TestEmptyGalleryHasOnePage(t *testing.T) {
	g := New(nil, 12)
	assert.Equal(t, 1, g.TotalPages())
	assert.Empty(t, g.Page(1))
}

func TestApplyResetsPageAndSelection(t *testing.T) {
	g := New(testImages(30), 5)
	g.Page(4)
	g.Toggle("1")

	g.Apply(Filter{Crop: "番茄"})
	assert.Equal(t, 1, g.CurrentPage())
	assert.Empty(t, g.Selected())
	assert.Equal(t, 10, g.Len())
	for _, img := range g.Images() {
		assert.Equal(t, "番茄", img.Crop)
	}
}

func TestPageWindow(t *testing.T) {
	tests := []struct {
		current, total int
		want           []int
	}{
		{1, 1, []int{1}},
		{1, 5, []int{1, 2, 3, 4, 5}},
		{1, 10, []int{1, 2, 3, Ellipsis, 10}},
		{6, 12, []int{1, Ellipsis, 4, 5, 6, 7, 8, Ellipsis, 12}},
		{10, 10, []int{1, Ellipsis, 8, 9, 10}},
		{4, 10, []int{1, 2, 3, 4, 5, 6, Ellipsis, 10}},
		{5, 10, []int{1, 2, 3, 4, 5, 6, 7, Ellipsis, 10}},
		{6, 10, []int{1, Ellipsis, 4, 5, 6, 7, 8, 9, 10}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageWindow(tt.current, tt.total), "current=%d total=%d", tt.current, tt.total)
	}
}

func TestSelection(t *testing.T) {
	g := New(testImages(30), 12)

	assert.True(t, g.Toggle("5"))
	assert.True(t, g.Toggle("2"))
	assert.False(t, g.Toggle("5"))
	assert.Equal(t, []string{"2"}, imageIDs(g.Selected()))

	g.Page(2)
	g.SelectPage()
	assert.Len(t, g.Selected(), 13)

	require.NoError(t, g.ViewSelected())
	assert.Equal(t, 13, g.Len())
	assert.Equal(t, 1, g.CurrentPage())
	assert.Equal(t, "2", g.Images()[0].ID)

	g.ClearSelection()
	assert.Error(t, g.ViewSelected())
}

func TestThumbnails(t *testing.T) {
	g := New(testImages(20), 12)

	thumbs, start := g.Thumbnails(0)
	assert.Equal(t, 0, start)
	assert.Len(t, thumbs, 7)

	thumbs, start = g.Thumbnails(10)
	assert.Equal(t, 7, start)
	assert.Equal(t, "8", thumbs[0].ID)

	thumbs, start = g.Thumbnails(18)
	assert.Equal(t, 15, start)
	assert.Equal(t, []string{"16", "17", "18", "19", "20"}, imageIDs(thumbs))

	small := New(testImages(4), 12)
	thumbs, start = small.Thumbnails(3)
	assert.Equal(t, 0, start)
	assert.Len(t, thumbs, 4)
}

func TestQuickAccess(t *testing.T) {
	images := testImages(30)
	images[0].IsHealthy = true
	g := New(images, 12)

	quick := g.QuickAccess()
	assert.Equal(t, []string{"4", "7", "10", "2", "5", "8", "3", "6", "9"}, imageIDs(quick))
	perCrop := map[string]int{}
	for _, img := range quick {
		assert.False(t, img.IsHealthy)
		perCrop[img.Crop]++
	}
	for crop, n := range perCrop {
		assert.LessOrEqual(t, n, 3, crop)
	}
}

func TestQuickAccessTotalCap(t *testing.T) {
	var images []catalog.Image
	for i := 0; i < 10; i++ {
		for j := 0; j < 3; j++ {
			images = append(images, catalog.Image{ID: fmt.Sprintf("%d-%d", i, j), Crop: fmt.Sprint("crop", i)})
		}
	}
	quick := New(images, 12).QuickAccess()
	require.Len(t, quick, 12)
	assert.Equal(t, "crop0", quick[0].Crop)
	assert.Equal(t, "crop3", quick[11].Crop)
}

func TestSimilar(t *testing.T) {
	images := []catalog.Image{
		{ID: "1", Crop: "番茄", Disease: "早疫病"},
		{ID: "2", Crop: "玉米", Disease: "早疫病"},
		{ID: "3", Crop: "番茄", Disease: "晚疫病"},
		{ID: "4", Crop: "水稻", Disease: "稻瘟病"},
	}
	g := New(images, 12)
	assert.Equal(t, []string{"2", "3"}, imageIDs(g.Similar(images[0])))

	many := New(testImages(30), 12)
	assert.Len(t, many.Similar(testImages(1)[0]), 6)
}

func TestFind(t *testing.T) {
	g := New(testImages(3), 12)
	img, ok := g.Find("2")
	assert.True(t, ok)
	assert.Equal(t, "玉米", img.Crop)
	_, ok = g.Find("nope")
	assert.False(t, ok)
}

func TestDownloadName(t *testing.T) {
	img := catalog.Image{ID: "7", Crop: "番茄", Disease: "早疫病"}
	assert.Equal(t, "番茄_早疫病_7.jpg", DownloadName(img))
}
