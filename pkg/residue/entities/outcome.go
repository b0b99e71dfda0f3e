package entities

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Outcome is the result of one extraction call: either Parsed or Malformed.
type Outcome interface {
	outcome()
}

// Extracted is one entity reported for a chunk.
type Extracted struct {
	Name          string   `json:"entity_name"`
	Abbreviations []string `json:"abbreviations"`
}

// ChunkEntities lists the entities found in one chunk.
type ChunkEntities struct {
	Chunk    string      `json:"chunk"`
	Entities []Extracted `json:"entities"`
}

// Parsed is a well-formed extraction response.
type Parsed struct {
	Results []ChunkEntities `json:"results"`
}

// Malformed is a response that could not be decoded or validated.
type Malformed struct {
	Reason string
	Raw    string
}

func (Parsed) outcome()    {}
func (Malformed) outcome() {}

// ParseExtraction decodes a model reply. Code fences and text around the
// outermost JSON object are ignored.
func ParseExtraction(raw string) Outcome {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return Malformed{Reason: "no JSON object", Raw: raw}
	}
	var p Parsed
	dec := json.NewDecoder(strings.NewReader(raw[start : end+1]))
	if err := dec.Decode(&p); err != nil {
		return Malformed{Reason: fmt.Sprintf("decode: %v", err), Raw: raw}
	}
	if p.Results == nil {
		return Malformed{Reason: "missing results", Raw: raw}
	}
	for i, r := range p.Results {
		for _, e := range r.Entities {
			if strings.TrimSpace(e.Name) == "" {
				return Malformed{Reason: fmt.Sprintf("result %d: empty entity_name", i), Raw: raw}
			}
		}
	}
	return p
}
