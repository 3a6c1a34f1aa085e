package catalog

import "fmt"

// Graph node categories.
const (
	CategoryDisease = iota
	CategoryPathogen
	CategoryCrop
	CategoryPesticide
	CategoryRelated
)

// GraphCategories names the categories by index.
var GraphCategories = []string{"病害", "病原菌", "作物", "药剂", "相关病害"}

type GraphNode struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Value       int        `json:"value"`
	SymbolSize  int        `json:"symbolSize"`
	Category    int        `json:"category"`
	Type        string     `json:"type"`
	DiseaseID   int        `json:"diseaseId,omitempty"`
	Description string     `json:"description,omitempty"`
	Pesticide   *Pesticide `json:"pesticide,omitempty"`
}

type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"value"`
}

// Graph is the relationship diagram of one disease, shaped for a
// force-directed layout.
type Graph struct {
	Nodes      []GraphNode `json:"nodes"`
	Links      []GraphLink `json:"links"`
	Categories []string    `json:"categories"`
}

const (
	maxGraphPesticides = 3
	maxGraphRelated    = 3
	maxGraphSameCrop   = 2
)

// BuildGraph derives the knowledge graph for d: its pathogen, crop, up to
// three pesticides, related diseases (or same-crop diseases when none
// resolve) and the pathogen type.
func BuildGraph(d Disease, all []Disease) Graph {
	g := Graph{Categories: GraphCategories}
	center := GraphNode{
		ID:         diseaseNodeID(d.ID),
		Name:       d.Name,
		Value:      100,
		SymbolSize: 60,
		Category:   CategoryDisease,
		Type:       "病害",
		DiseaseID:  d.ID,
	}
	g.Nodes = append(g.Nodes, center)

	link := func(target GraphNode, label string) {
		g.Nodes = append(g.Nodes, target)
		g.Links = append(g.Links, GraphLink{Source: center.ID, Target: target.ID, Label: label})
	}

	if d.Pathogen != "" {
		link(GraphNode{
			ID:          fmt.Sprintf("pathogen_%d", d.ID),
			Name:        d.PathogenName(),
			Value:       80,
			SymbolSize:  45,
			Category:    CategoryPathogen,
			Type:        "病原菌",
			Description: d.Pathogen,
		}, "病原")
	}

	link(GraphNode{
		ID:         "crop_" + d.Crop,
		Name:       d.Crop,
		Value:      70,
		SymbolSize: 40,
		Category:   CategoryCrop,
		Type:       "作物",
	}, "危害作物")

	for i, p := range d.Pesticides {
		if i == maxGraphPesticides {
			break
		}
		p := p
		link(GraphNode{
			ID:         fmt.Sprintf("pesticide_%d_%d", d.ID, i),
			Name:       p.Name,
			Value:      60,
			SymbolSize: 35,
			Category:   CategoryPesticide,
			Type:       "药剂",
			Pesticide:  &p,
		}, "防治药剂")
	}

	byID := make(map[int]Disease, len(all))
	for _, other := range all {
		byID[other.ID] = other
	}

	var ids []int
	seen := make(map[int]bool, len(d.RelatedDiseases))
	for _, id := range d.RelatedDiseases {
		if len(ids) == maxGraphRelated {
			break
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	related := 0
	for _, id := range ids {
		other, ok := byID[id]
		if !ok || id == d.ID {
			continue
		}
		link(relatedNode(other), "相似病害")
		related++
	}
	if related == 0 {
		for _, other := range all {
			if related == maxGraphSameCrop {
				break
			}
			if other.ID != d.ID && other.Crop == d.Crop {
				link(relatedNode(other), "相似病害")
				related++
			}
		}
	}

	if d.PathogenType != "" {
		link(GraphNode{
			ID:         "type_" + d.PathogenType,
			Name:       d.PathogenType + "病害",
			Value:      40,
			SymbolSize: 30,
			Category:   CategoryPathogen,
			Type:       "病原类型",
		}, "病原类型")
	}

	return g
}

func diseaseNodeID(id int) string {
	return fmt.Sprintf("disease_%d", id)
}

func relatedNode(d Disease) GraphNode {
	return GraphNode{
		ID:         diseaseNodeID(d.ID),
		Name:       d.Name,
		Value:      50,
		SymbolSize: 40,
		Category:   CategoryRelated,
		Type:       "相关病害",
		DiseaseID:  d.ID,
	}
}
