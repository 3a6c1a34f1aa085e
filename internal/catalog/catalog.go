package catalog

import (
	"fmt"
	"sync"
	"time"
)

// Catalog holds the current dataset snapshot. Readers get the snapshot that
// was current when they asked; Replace swaps it atomically.
type Catalog struct {
	mu sync.RWMutex
	ds *Dataset
}

// New creates a catalog seeded with the built-in fallback data.
func New() *Catalog {
	d := FallbackDiseases()
	i := FallbackImages()
	return &Catalog{ds: &Dataset{
		Diseases:         d.Diseases,
		Images:           i.Images,
		Crops:            i.Crops,
		ImageTypes:       i.Diseases,
		LastUpdated:      d.LastUpdated,
		LoadedAt:         time.Now(),
		DiseasesFallback: true,
		ImagesFallback:   true,
	}}
}

// Snapshot returns the current dataset.
func (c *Catalog) Snapshot() *Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ds
}

// Replace installs a new dataset.
func (c *Catalog) Replace(ds *Dataset) {
	c.mu.Lock()
	c.ds = ds
	c.mu.Unlock()
}

// Diseases returns all diseases in source order.
func (c *Catalog) Diseases() []Disease {
	return c.Snapshot().Diseases
}

// Images returns all gallery images in source order.
func (c *Catalog) Images() []Image {
	return c.Snapshot().Images
}

// Disease looks up a disease by ID.
func (c *Catalog) Disease(id int) (Disease, error) {
	for _, d := range c.Snapshot().Diseases {
		if d.ID == id {
			return d, nil
		}
	}
	return Disease{}, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// DiseasesByID returns the diseases for ids in the given order, skipping
// ids that are no longer in the catalog.
func (c *Catalog) DiseasesByID(ids []int) []Disease {
	byID := make(map[int]Disease)
	for _, d := range c.Snapshot().Diseases {
		byID[d.ID] = d
	}
	out := make([]Disease, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out
}
