// Package entities turns audit output into entity-name candidates, merges
// candidates from different sources, and resolves clustering groups into a
// master entity list.
package entities

import (
	"sort"

	"github.com/cognicore/residue/pkg/residue/similarity"
)

// Validation sources.
const (
	SourceStatistical = "statistical"
	SourceInferred    = "llm_inferred"
)

// Candidate is a proposed entity name.
type Candidate struct {
	Name             string   `yaml:"entity_name" json:"entity_name"`
	Abbreviations    []string `yaml:"abbreviations" json:"abbreviations"`
	FoundInChunks    []string `yaml:"found_in_chunks" json:"found_in_chunks"`
	ValidationSource []string `yaml:"validation_source,omitempty" json:"validation_source,omitempty"`
}

// Merge combines statistical and inferred candidates keyed by normalized
// name. Sets are unioned and the first seen spelling is kept. The result is
// ordered by name.
func Merge(statistical, inferred []Candidate) []Candidate {
	byKey := make(map[string]*Candidate)
	var keys []string
	add := func(list []Candidate, source string) {
		for _, c := range list {
			key := similarity.Normalize(c.Name)
			if key == "" {
				continue
			}
			cur, ok := byKey[key]
			if !ok {
				cur = &Candidate{Name: c.Name}
				byKey[key] = cur
				keys = append(keys, key)
			}
			cur.Abbreviations = union(cur.Abbreviations, c.Abbreviations)
			cur.FoundInChunks = union(cur.FoundInChunks, c.FoundInChunks)
			cur.ValidationSource = union(union(cur.ValidationSource, c.ValidationSource), []string{source})
		}
	}
	add(statistical, SourceStatistical)
	add(inferred, SourceInferred)

	out := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byKey[k])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// union returns the sorted distinct non-empty strings of a and b.
func union(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	for _, s := range b {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
