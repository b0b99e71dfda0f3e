package similarity

import (
	"math"
	"sort"
)

// Scorer returns the similarity of two names by their position in the
// ordered input. Implementations must be safe for concurrent reads.
type Scorer interface {
	Score(i, j int) float64
}

// ScorerFactory builds a scorer over normalized names.
type ScorerFactory func(normalized []string) (Scorer, error)

type feature struct {
	id int
	w  float64
}

type tfidfScorer struct {
	vecs [][]feature
}

// NewTFIDF returns a factory for character n-gram TF-IDF cosine similarity
// with n in [minN, maxN]. IDF is smoothed, ln((1+N)/(1+df))+1, and rows are
// L2-normalized.
func NewTFIDF(minN, maxN int) ScorerFactory {
	return func(docs []string) (Scorer, error) {
		return buildTFIDF(docs, minN, maxN), nil
	}
}

func buildTFIDF(docs []string, minN, maxN int) *tfidfScorer {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		counts[i] = ngrams(doc, minN, maxN)
		for g := range counts[i] {
			df[g]++
		}
	}

	vocab := make([]string, 0, len(df))
	for g := range df {
		vocab = append(vocab, g)
	}
	sort.Strings(vocab)
	ids := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	n := float64(len(docs))
	for id, g := range vocab {
		ids[g] = id
		idf[id] = math.Log((1+n)/(1+float64(df[g]))) + 1
	}

	s := &tfidfScorer{vecs: make([][]feature, len(docs))}
	for i, c := range counts {
		vec := make([]feature, 0, len(c))
		for g, tf := range c {
			id := ids[g]
			vec = append(vec, feature{id: id, w: float64(tf) * idf[id]})
		}
		sort.Slice(vec, func(a, b int) bool { return vec[a].id < vec[b].id })
		norm := 0.0
		for _, f := range vec {
			norm += f.w * f.w
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for k := range vec {
				vec[k].w /= norm
			}
		}
		s.vecs[i] = vec
	}
	return s
}

func (s *tfidfScorer) Score(i, j int) float64 {
	a, b := s.vecs[i], s.vecs[j]
	dot := 0.0
	for x, y := 0, 0; x < len(a) && y < len(b); {
		switch {
		case a[x].id == b[y].id:
			dot += a[x].w * b[y].w
			x++
			y++
		case a[x].id < b[y].id:
			x++
		default:
			y++
		}
	}
	return math.Min(1, math.Max(0, dot))
}

// ngrams counts the character n-grams of doc for every n in [minN, maxN].
func ngrams(doc string, minN, maxN int) map[string]int {
	r := []rune(doc)
	out := make(map[string]int)
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(r); i++ {
			out[string(r[i:i+n])]++
		}
	}
	return out
}
