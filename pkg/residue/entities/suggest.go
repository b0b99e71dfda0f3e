package entities

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/protect"
)

// FromProtectSet proposes one candidate per protect entry, listing the
// distinct resource names that contain the chunk. Entries no name contains
// are dropped.
func FromProtectSet(entries []protect.Entry, names []string) []Candidate {
	lowered := make(map[string]string, len(names))
	for _, n := range names {
		lowered[n] = strings.ToLower(n)
	}
	var out []Candidate
	for _, e := range entries {
		var found []string
		for name, low := range lowered {
			if strings.Contains(low, e.Chunk) {
				found = append(found, name)
			}
		}
		if len(found) == 0 {
			continue
		}
		sort.Strings(found)
		display := e.DisplayForm
		if display == "" {
			display = e.Chunk
		}
		out = append(out, Candidate{Name: display, FoundInChunks: found})
	}
	return out
}

// Residue is leftover text worth sending to entity extraction, with the
// names it came from.
type Residue struct {
	Text  string
	Names []string
}

// SelectResidues keeps masked names with their placeholders removed when
// they hold no protect chunk and are longer than minLen runes. Delimiters
// stay in place, so "app-⟂ENV⟂" yields "app-". Identical texts are merged.
func SelectResidues(records []mask.Record, set *protect.Set, minLen int) []Residue {
	byText := make(map[string]map[string]struct{})
	for _, r := range records {
		if r.Failed {
			continue
		}
		text := mask.StripPlaceholders(r.MaskedName)
		if utf8.RuneCountInString(text) <= minLen || set.ContainedIn(text) {
			continue
		}
		names, ok := byText[text]
		if !ok {
			names = make(map[string]struct{})
			byText[text] = names
		}
		names[r.ResourceName] = struct{}{}
	}
	out := make([]Residue, 0, len(byText))
	for text, names := range byText {
		list := make([]string, 0, len(names))
		for n := range names {
			list = append(list, n)
		}
		sort.Strings(list)
		out = append(out, Residue{Text: text, Names: list})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}
