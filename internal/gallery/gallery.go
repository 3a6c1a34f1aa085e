// Package gallery pages, filters and selects gallery images. A Gallery is
// view state for one viewer and is not safe for concurrent use.
package gallery

import (
	"fmt"
	"strings"

	"github.com/matthewjhunter/plantdoc/internal/catalog"
)

const (
	DefaultPageSize = 12

	thumbnailWindow    = 7
	quickAccessPerCrop = 3
	quickAccessTotal   = 12
	maxSimilar         = 6
)

// Filter narrows the gallery. Empty fields and "all" match everything.
type Filter struct {
	Crop    string `json:"crop,omitempty"`
	Disease string `json:"disease,omitempty"`
	Type    string `json:"type,omitempty"`
	Search  string `json:"search,omitempty"`
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != catalog.AllValue
}

// Matches reports whether img passes the filter. The type 健康 selects
// healthy images; other types compare against the image type.
func (f Filter) Matches(img catalog.Image) bool {
	if active(f.Crop) && img.Crop != f.Crop {
		return false
	}
	if active(f.Disease) && img.Disease != f.Disease {
		return false
	}
	if active(f.Type) {
		if f.Type == catalog.HealthyType {
			if !img.IsHealthy {
				return false
			}
		} else if img.Type != f.Type {
			return false
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		text := strings.ToLower(img.Crop + " " + img.Disease + " " + img.Type)
		if !strings.Contains(text, strings.ToLower(s)) {
			return false
		}
	}
	return true
}

type Gallery struct {
	all      []catalog.Image
	view     []catalog.Image
	filter   Filter
	pageSize int
	page     int

	selected map[string]bool
	order    []string // selection order
}

// New creates a gallery over images showing pageSize images per page.
func New(images []catalog.Image, pageSize int) *Gallery {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	g := &Gallery{all: images, pageSize: pageSize}
	g.Apply(Filter{})
	return g
}

// Apply filters the images, returns to the first page and clears the
// selection.
func (g *Gallery) Apply(f Filter) {
	g.filter = f
	g.view = g.view[:0:0]
	for _, img := range g.all {
		if f.Matches(img) {
			g.view = append(g.view, img)
		}
	}
	g.page = 1
	g.ClearSelection()
}

func (g *Gallery) Filter() Filter         { return g.filter }
func (g *Gallery) Images() []catalog.Image { return g.view }
func (g *Gallery) Len() int                { return len(g.view) }
func (g *Gallery) PageSize() int           { return g.pageSize }
func (g *Gallery) CurrentPage() int        { return g.page }

// TotalPages is never less than one, even for an empty gallery.
func (g *Gallery) TotalPages() int {
	n := (len(g.view) + g.pageSize - 1) / g.pageSize
	if n < 1 {
		return 1
	}
	return n
}

// Page moves to page n, clamped to [1, TotalPages], and returns its images.
func (g *Gallery) Page(n int) []catalog.Image {
	if n < 1 {
		n = 1
	}
	if total := g.TotalPages(); n > total {
		n = total
	}
	g.page = n
	return g.PageImages()
}

// PageImages returns the images on the current page.
func (g *Gallery) PageImages() []catalog.Image {
	start := (g.page - 1) * g.pageSize
	if start >= len(g.view) {
		return nil
	}
	end := start + g.pageSize
	if end > len(g.view) {
		end = len(g.view)
	}
	return g.view[start:end]
}

// Ellipsis marks a gap in a PageWindow.
const Ellipsis = 0

// PageWindow lists the page links to show: the first and last page and
// every page within two of current, with Ellipsis for each gap. A gap of a
// single page shows that page instead.
func PageWindow(current, total int) []int {
	if total < 1 {
		total = 1
	}
	var out []int
	last := 0
	for p := 1; p <= total; p++ {
		if p != 1 && p != total && (p < current-2 || p > current+2) {
			continue
		}
		switch {
		case last != 0 && p == last+2:
			out = append(out, last+1)
		case last != 0 && p > last+2:
			out = append(out, Ellipsis)
		}
		out = append(out, p)
		last = p
	}
	return out
}

// Toggle selects or deselects the image with the given id and reports
// whether it is selected afterwards.
func (g *Gallery) Toggle(id string) bool {
	if g.selected[id] {
		delete(g.selected, id)
		for i, v := range g.order {
			if v == id {
				g.order = append(g.order[:i:i], g.order[i+1:]...)
				break
			}
		}
		return false
	}
	g.selected[id] = true
	g.order = append(g.order, id)
	return true
}

// SelectPage selects every image on the current page.
func (g *Gallery) SelectPage() {
	for _, img := range g.PageImages() {
		if !g.selected[img.ID] {
			g.selected[img.ID] = true
			g.order = append(g.order, img.ID)
		}
	}
}

func (g *Gallery) ClearSelection() {
	g.selected = make(map[string]bool)
	g.order = nil
}

func (g *Gallery) IsSelected(id string) bool {
	return g.selected[id]
}

// Selected returns the selected images in selection order.
func (g *Gallery) Selected() []catalog.Image {
	byID := make(map[string]catalog.Image, len(g.all))
	for _, img := range g.all {
		byID[img.ID] = img
	}
	out := make([]catalog.Image, 0, len(g.order))
	for _, id := range g.order {
		if img, ok := byID[id]; ok {
			out = append(out, img)
		}
	}
	return out
}

// ViewSelected narrows the gallery to the selected images and returns to
// the first page. The selection is kept.
func (g *Gallery) ViewSelected() error {
	sel := g.Selected()
	if len(sel) == 0 {
		return fmt.Errorf("no images selected")
	}
	g.view = sel
	g.page = 1
	return nil
}

// Thumbnails returns the strip shown under the viewer: up to seven images
// starting three before index. Near the end of the list the strip is
// shorter. The offset of the first thumbnail is returned too.
func (g *Gallery) Thumbnails(index int) ([]catalog.Image, int) {
	n := len(g.view)
	if n == 0 {
		return nil, 0
	}
	start := max(0, index-thumbnailWindow/2)
	if start >= n {
		start = n - 1
	}
	end := min(n, start+thumbnailWindow)
	return g.view[start:end], start
}

// QuickAccess takes up to three diseased images per crop, crops in the
// order they first appear in the unfiltered collection, and keeps the
// first twelve.
func (g *Gallery) QuickAccess() []catalog.Image {
	var crops []string
	byCrop := make(map[string][]catalog.Image)
	for _, img := range g.all {
		if _, seen := byCrop[img.Crop]; !seen {
			crops = append(crops, img.Crop)
			byCrop[img.Crop] = nil
		}
		if !img.IsHealthy && len(byCrop[img.Crop]) < quickAccessPerCrop {
			byCrop[img.Crop] = append(byCrop[img.Crop], img)
		}
	}
	var out []catalog.Image
	for _, crop := range crops {
		out = append(out, byCrop[crop]...)
	}
	if len(out) > quickAccessTotal {
		out = out[:quickAccessTotal]
	}
	return out
}

// Similar returns up to six other images of the same disease or crop.
func (g *Gallery) Similar(img catalog.Image) []catalog.Image {
	var out []catalog.Image
	for _, other := range g.all {
		if len(out) == maxSimilar {
			break
		}
		if other.ID == img.ID {
			continue
		}
		if (img.Disease != "" && other.Disease == img.Disease) || other.Crop == img.Crop {
			out = append(out, other)
		}
	}
	return out
}

// Find returns the image with the given id from the unfiltered collection.
func (g *Gallery) Find(id string) (catalog.Image, bool) {
	for _, img := range g.all {
		if img.ID == id {
			return img, true
		}
	}
	return catalog.Image{}, false
}

// DownloadName is the file name offered when downloading img.
func DownloadName(img catalog.Image) string {
	return fmt.Sprintf("%s_%s_%s.jpg", img.Crop, img.Disease, img.ID)
}
