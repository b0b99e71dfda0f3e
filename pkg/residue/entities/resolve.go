package entities

import (
	"fmt"

	"github.com/cognicore/residue/pkg/residue/similarity"
)

// StatusPending marks a group awaiting review.
const StatusPending = "pending"

// MasterMember is a linked name inside a master group.
type MasterMember struct {
	Name       string  `yaml:"name"`
	Similarity float64 `yaml:"similarity"`
	LinkType   string  `yaml:"link_type"`
}

// MasterGroup is a resolved entity with everything its members carried.
type MasterGroup struct {
	Canonical     string         `yaml:"canonical"`
	Abbreviations []string       `yaml:"abbreviations"`
	FoundInChunks []string       `yaml:"found_in_chunks"`
	Status        string         `yaml:"status"`
	Members       []MasterMember `yaml:"members"`
}

// MasterThresholds records the clustering thresholds used.
type MasterThresholds struct {
	Duplicate  float64 `yaml:"duplicate"`
	Related    float64 `yaml:"related"`
	Confidence float64 `yaml:"confidence"`
}

// Master is the reviewed-entity document.
type Master struct {
	SnapshotID       string           `yaml:"snapshot_id"`
	GenerationDate   string           `yaml:"generation_date"`
	Method           string           `yaml:"method"`
	Thresholds       MasterThresholds `yaml:"thresholds"`
	Linking          string           `yaml:"linking"`
	Groups           []MasterGroup    `yaml:"groups"`
	DistinctEntities []Candidate      `yaml:"distinct_entities"`
}

// Resolve folds clustering output back onto the candidates. Each group
// gathers the abbreviations and chunks of its canonical and members.
func Resolve(cands []Candidate, res similarity.Result, th similarity.Thresholds) Master {
	byName := make(map[string]Candidate, len(cands))
	for _, c := range cands {
		byName[c.Name] = c
	}
	m := Master{
		Method: fmt.Sprintf("tfidf_char_%d_%d_cosine", th.MinN, th.MaxN),
		Thresholds: MasterThresholds{
			Duplicate:  th.Duplicate,
			Related:    th.Related,
			Confidence: th.Confidence,
		},
		Linking: fmt.Sprintf("reciprocal_top_k_%d", th.TopK),
	}
	for _, g := range res.Groups {
		canon := byName[g.Canonical]
		mg := MasterGroup{
			Canonical:     g.Canonical,
			Abbreviations: union(nil, canon.Abbreviations),
			FoundInChunks: union(nil, canon.FoundInChunks),
			Status:        StatusPending,
		}
		for _, mem := range g.Members {
			c := byName[mem.Name]
			mg.Abbreviations = union(mg.Abbreviations, c.Abbreviations)
			mg.FoundInChunks = union(mg.FoundInChunks, c.FoundInChunks)
			mg.Members = append(mg.Members, MasterMember{Name: mem.Name, Similarity: mem.Similarity, LinkType: string(mem.LinkType)})
		}
		m.Groups = append(m.Groups, mg)
	}
	for _, name := range res.Distinct {
		if c, ok := byName[name]; ok {
			m.DistinctEntities = append(m.DistinctEntities, c)
		} else {
			m.DistinctEntities = append(m.DistinctEntities, Candidate{Name: name})
		}
	}
	return m
}

// SuggestionFile is a list of candidates from one source.
type SuggestionFile struct {
	SnapshotID     string      `yaml:"snapshot_id"`
	GenerationDate string      `yaml:"generation_date"`
	Source         string      `yaml:"source"`
	Entities       []Candidate `yaml:"entities"`
}
