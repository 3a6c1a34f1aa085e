package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	embedding "github.com/matthewjhunter/go-embedding"
	"github.com/matthewjhunter/plantdoc/internal/catalog"
	"github.com/matthewjhunter/plantdoc/internal/storage"
)

// SimilarityIndex ranks diseases by the cosine similarity of their
// embeddings. Vectors are cached in the store per disease and model.
type SimilarityIndex struct {
	embedder embedding.Embedder
	store    storage.Store
}

func NewSimilarityIndex(embedder embedding.Embedder, store storage.Store) *SimilarityIndex {
	return &SimilarityIndex{embedder: embedder, store: store}
}

// SimilarDisease is a ranked neighbour.
type SimilarDisease struct {
	DiseaseID  int     `json:"id"`
	Similarity float64 `json:"similarity"`
}

// IndexStats reports what Index did.
type IndexStats struct {
	Embedded int `json:"embedded"`
	Skipped  int `json:"skipped"`
}

// diseaseText is the text embedded for a disease.
func diseaseText(d catalog.Disease) string {
	parts := []string{d.Crop + d.Name, d.Pathogen, d.PathogenType, d.Symptoms}
	if len(d.Conditions) > 0 {
		parts = append(parts, strings.Join(d.Conditions, ", "))
	}
	return strings.Join(parts, "\n")
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Index embeds every disease whose text changed since it was last indexed.
// Changed texts are embedded in one batch.
func (ix *SimilarityIndex) Index(ctx context.Context, diseases []catalog.Disease) (IndexStats, error) {
	model := ix.embedder.Model()
	var stats IndexStats
	var pending []catalog.Disease
	var texts, hashes []string

	for _, d := range diseases {
		text := diseaseText(d)
		hash := contentHash(text)
		existing, err := ix.store.GetDiseaseEmbedding(d.ID, model)
		if err != nil {
			return stats, fmt.Errorf("get embedding: %w", err)
		}
		if existing != nil && existing.ContentHash == hash {
			stats.Skipped++
			continue
		}
		pending = append(pending, d)
		texts = append(texts, text)
		hashes = append(hashes, hash)
	}
	if len(pending) == 0 {
		return stats, nil
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return stats, fmt.Errorf("embed diseases: %w", err)
	}
	if len(vectors) != len(pending) {
		return stats, fmt.Errorf("embedder returned %d vectors for %d diseases", len(vectors), len(pending))
	}

	for i, d := range pending {
		err := ix.store.UpsertDiseaseEmbedding(&storage.DiseaseEmbedding{
			DiseaseID:   d.ID,
			Model:       model,
			ContentHash: hashes[i],
			Embedding:   embedding.EncodeFloat32s(vectors[i]),
		})
		if err != nil {
			return stats, err
		}
		stats.Embedded++
	}
	return stats, nil
}

// Similar returns up to k indexed diseases closest to diseaseID, best first.
// The disease itself must have been indexed.
func (ix *SimilarityIndex) Similar(ctx context.Context, diseaseID, k int) ([]SimilarDisease, error) {
	model := ix.embedder.Model()
	all, err := ix.store.ListDiseaseEmbeddings(model)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}

	var target []float32
	for _, e := range all {
		if e.DiseaseID == diseaseID {
			target = embedding.DecodeFloat32s(e.Embedding)
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("disease %d is not indexed for model %s", diseaseID, model)
	}

	return rank(target, all, diseaseID, k), nil
}

// SearchText ranks the indexed diseases against free text.
func (ix *SimilarityIndex) SearchText(ctx context.Context, text string, k int) ([]SimilarDisease, error) {
	vec, err := embedding.Single(ctx, ix.embedder, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	all, err := ix.store.ListDiseaseEmbeddings(ix.embedder.Model())
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	return rank(vec, all, 0, k), nil
}

func rank(target []float32, all []storage.DiseaseEmbedding, exclude, k int) []SimilarDisease {
	var out []SimilarDisease
	for _, e := range all {
		if e.DiseaseID == exclude {
			continue
		}
		out = append(out, SimilarDisease{
			DiseaseID:  e.DiseaseID,
			Similarity: embedding.CosineSimilarity(target, embedding.DecodeFloat32s(e.Embedding)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
