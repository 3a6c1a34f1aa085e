package catalog

import "testing"

func countCategory(g Graph, cat int) int {
	n := 0
	for _, node := range g.Nodes {
		if node.Category == cat {
			n++
		}
	}
	return n
}

func TestBuildGraphWithRelated(t *testing.T) {
	all := FallbackDiseases().Diseases
	d := all[0] // 苹果黑星病, related 2 and 3

	g := BuildGraph(d, all)

	if len(g.Nodes) != 8 {
		t.Fatalf("expected 8 nodes, got %d", len(g.Nodes))
	}
	if len(g.Links) != len(g.Nodes)-1 {
		t.Errorf("every non-center node should have one link, got %d links", len(g.Links))
	}
	center := g.Nodes[0]
	if center.ID != "disease_1" || center.SymbolSize != 60 || center.Category != CategoryDisease {
		t.Errorf("unexpected center node: %+v", center)
	}
	if g.Nodes[1].Name != "苹果黑星病菌" {
		t.Errorf("pathogen node should drop the Latin name, got %q", g.Nodes[1].Name)
	}
	if countCategory(g, CategoryPesticide) != 2 {
		t.Errorf("expected 2 pesticide nodes")
	}
	if countCategory(g, CategoryRelated) != 2 {
		t.Errorf("expected 2 related nodes")
	}
	for _, l := range g.Links {
		if l.Source != center.ID {
			t.Errorf("link should start at the center: %+v", l)
		}
	}
	if len(g.Categories) != 5 {
		t.Errorf("expected 5 categories, got %d", len(g.Categories))
	}
}

func TestBuildGraphSameCropFallback(t *testing.T) {
	all := FallbackDiseases().Diseases
	var d Disease
	for _, x := range all {
		if x.ID == 4 {
			d = x
		}
	}

	g := BuildGraph(d, all)

	var related []int
	for _, node := range g.Nodes {
		if node.Category == CategoryRelated {
			related = append(related, node.DiseaseID)
		}
	}
	if len(related) != 2 || related[0] != 5 || related[1] != 6 {
		t.Errorf("expected same-crop diseases 5 and 6, got %v", related)
	}
}

func TestBuildGraphCapsPesticides(t *testing.T) {
	d := Disease{ID: 1, Name: "x", Crop: "c", Pesticides: []Pesticide{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}}}
	g := BuildGraph(d, []Disease{d})
	if n := countCategory(g, CategoryPesticide); n != maxGraphPesticides {
		t.Errorf("expected %d pesticide nodes, got %d", maxGraphPesticides, n)
	}
	// center, crop and pesticides only
	if len(g.Nodes) != 5 {
		t.Errorf("expected 5 nodes, got %d", len(g.Nodes))
	}
}

func TestBuildGraphDuplicateRelatedIDs(t *testing.T) {
	all := FallbackDiseases().Diseases
	d := all[0]
	d.RelatedDiseases = []int{2, 2, 3, 2, 4}

	g := BuildGraph(d, all)

	seen := make(map[string]bool)
	for _, node := range g.Nodes {
		if seen[node.ID] {
			t.Errorf("duplicate node %s", node.ID)
		}
		seen[node.ID] = true
	}
	if n := countCategory(g, CategoryRelated); n != 3 {
		t.Errorf("expected 3 distinct related nodes, got %d", n)
	}
	if len(g.Links) != len(g.Nodes)-1 {
		t.Errorf("links = %d, nodes = %d", len(g.Links), len(g.Nodes))
	}
}
