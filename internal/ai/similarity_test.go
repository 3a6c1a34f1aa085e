package ai

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/matthewjhunter/plantdoc/internal/catalog"
	"github.com/matthewjhunter/plantdoc/internal/storage"
)

// mockEmbedder returns predetermined embeddings for testing.
type mockEmbedder struct {
	vectors map[string][]float32
	model   string
	calls   int
	inputs  int
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	m.inputs += len(texts)
	var results [][]float32
	for _, t := range texts {
		if v, ok := m.vectors[t]; ok {
			results = append(results, v)
		} else {
			// Return a default vector for unknown texts
			results = append(results, []float32{0.1, 0.1, 0.1})
		}
	}
	return results, nil
}

func (m *mockEmbedder) Model() string { return m.model }

func newTestStore(t *testing.T) (*storage.SQLiteStore, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return store, func() { store.Close() }
}

func testDiseases() []catalog.Disease {
	return []catalog.Disease{
		{ID: 1, Name: "早疫病", Crop: "番茄", Symptoms: "同心轮纹"},
		{ID: 2, Name: "早疫病", Crop: "马铃薯", Symptoms: "同心轮纹斑"},
		{ID: 3, Name: "花叶病毒病", Crop: "番茄", Symptoms: "花叶"},
	}
}

func vectorsFor(diseases []catalog.Disease, vecs ...[]float32) map[string][]float32 {
	out := make(map[string][]float32)
	for i, d := range diseases {
		out[diseaseText(d)] = vecs[i]
	}
	return out
}

func TestIndexAndSimilar(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	diseases := testDiseases()
	embedder := &mockEmbedder{
		vectors: vectorsFor(diseases,
			[]float32{1, 0, 0},
			[]float32{0.9, 0.1, 0},
			[]float32{0, 0, 1},
		),
		model: "test",
	}
	ix := NewSimilarityIndex(embedder, store)

	stats, err := ix.Index(context.Background(), diseases)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if stats.Embedded != 3 || stats.Skipped != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if embedder.calls != 1 {
		t.Errorf("expected one batched Embed call, got %d", embedder.calls)
	}

	similar, err := ix.Similar(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Similar failed: %v", err)
	}
	if len(similar) != 2 {
		t.Fatalf("expected 2 results, got %d", len(similar))
	}
	if similar[0].DiseaseID != 2 {
		t.Errorf("expected disease 2 closest, got %d", similar[0].DiseaseID)
	}
	if similar[0].Similarity <= similar[1].Similarity {
		t.Errorf("results not sorted: %+v", similar)
	}
}

func TestIndexSkipsUnchanged(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	diseases := testDiseases()
	embedder := &mockEmbedder{model: "test"}
	ix := NewSimilarityIndex(embedder, store)

	if _, err := ix.Index(context.Background(), diseases); err != nil {
		t.Fatalf("first Index failed: %v", err)
	}

	diseases[2].Symptoms = "叶片皱缩"
	stats, err := ix.Index(context.Background(), diseases)
	if err != nil {
		t.Fatalf("second Index failed: %v", err)
	}
	if stats.Embedded != 1 || stats.Skipped != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if embedder.inputs != 4 {
		t.Errorf("expected 4 embedded texts in total, got %d", embedder.inputs)
	}
}

func TestSimilarNotIndexed(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ix := NewSimilarityIndex(&mockEmbedder{model: "test"}, store)
	if _, err := ix.Similar(context.Background(), 99, 3); err == nil {
		t.Fatal("expected error for a disease that was never indexed")
	}
}

func TestSearchText(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	diseases := testDiseases()
	vectors := vectorsFor(diseases,
		[]float32{1, 0, 0},
		[]float32{0.7, 0.7, 0},
		[]float32{0, 0, 1},
	)
	vectors["叶子发皱"] = []float32{0, 0.1, 1}
	ix := NewSimilarityIndex(&mockEmbedder{vectors: vectors, model: "test"}, store)

	if _, err := ix.Index(context.Background(), diseases); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	got, err := ix.SearchText(context.Background(), "叶子发皱", 1)
	if err != nil {
		t.Fatalf("SearchText failed: %v", err)
	}
	if len(got) != 1 || got[0].DiseaseID != 3 {
		t.Errorf("expected disease 3, got %+v", got)
	}
}

func TestIndexModelsAreSeparate(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	diseases := testDiseases()
	a := NewSimilarityIndex(&mockEmbedder{model: "a"}, store)
	b := &mockEmbedder{model: "b"}
	if _, err := a.Index(context.Background(), diseases); err != nil {
		t.Fatal(err)
	}
	stats, err := NewSimilarityIndex(b, store).Index(context.Background(), diseases)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Embedded != 3 {
		t.Errorf("a different model should re-embed everything, got %+v", stats)
	}
}
