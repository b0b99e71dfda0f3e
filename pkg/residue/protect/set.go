package protect

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Set is the frozen list of protect chunks consulted by the coverage sweep.
// It never changes after Freeze.
type Set struct {
	chunks []string
}

// Freeze snapshots the chunks of the given entries, longest first and then
// lexically.
func Freeze(entries []Entry) *Set {
	seen := make(map[string]bool, len(entries))
	chunks := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Chunk == "" || seen[e.Chunk] {
			continue
		}
		seen[e.Chunk] = true
		chunks = append(chunks, e.Chunk)
	}
	sort.Slice(chunks, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(chunks[i]), utf8.RuneCountInString(chunks[j])
		if li != lj {
			return li > lj
		}
		return chunks[i] < chunks[j]
	})
	return &Set{chunks: chunks}
}

// Chunks returns a copy of the frozen chunk list.
func (s *Set) Chunks() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Len reports the number of chunks.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.chunks)
}

// ContainedIn reports whether any chunk occurs in text, ignoring case.
func (s *Set) ContainedIn(text string) bool {
	if s == nil {
		return false
	}
	lower := strings.ToLower(text)
	for _, c := range s.chunks {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}
