// Package similarity clusters candidate entity names into canonical groups
// using character n-gram similarity and reciprocal nearest neighbours.
package similarity

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// LinkType labels a group membership.
type LinkType string

const (
	Duplicate LinkType = "duplicate"
	Related   LinkType = "related"
)

// Thresholds tune edge selection. The zero value means DefaultThresholds.
type Thresholds struct {
	Duplicate  float64
	Related    float64
	Confidence float64
	TopK       int
	MinN       int
	MaxN       int
}

// DefaultThresholds returns the stock clustering thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Duplicate: 0.92, Related: 0.80, Confidence: 0.95, TopK: 5, MinN: 3, MaxN: 5}
}

func (t Thresholds) orDefault() Thresholds {
	if t == (Thresholds{}) {
		return DefaultThresholds()
	}
	return t
}

// Member is one non-canonical name in a group.
type Member struct {
	Name       string
	Similarity float64
	LinkType   LinkType
}

// Group is a connected component of linked names.
type Group struct {
	Canonical string
	Members   []Member
}

// Result holds the groups and the names that linked to nothing.
type Result struct {
	Groups   []Group
	Distinct []string
}

// Clusterer groups names. The zero value uses default thresholds, TF-IDF
// scoring and GOMAXPROCS workers.
type Clusterer struct {
	Thresholds Thresholds
	NewScorer  ScorerFactory
	Workers    int
}

type node struct {
	raw  string
	norm string
}

type pair struct {
	i, j int
	sim  float64
}

// Normalize applies NFKC, lowercases, trims and collapses whitespace.
func Normalize(s string) string {
	s = strings.Map(unicode.ToLower, norm.NFKC.String(s))
	return strings.Join(strings.Fields(s), " ")
}

// Cluster links the names and returns their groups. It either completes or
// returns an error with no partial result.
func (c *Clusterer) Cluster(ctx context.Context, names []string) (Result, error) {
	th := c.Thresholds.orDefault()
	nodes := prepare(names)
	if len(nodes) < 2 {
		return Result{Distinct: rawNames(nodes)}, nil
	}

	normalized := make([]string, len(nodes))
	for i, n := range nodes {
		normalized[i] = n.norm
	}
	factory := c.NewScorer
	if factory == nil {
		factory = NewTFIDF(th.MinN, th.MaxN)
	}
	scorer, err := factory(normalized)
	if err != nil {
		return Result{}, fmt.Errorf("build scorer: %w", err)
	}

	pairs, err := c.candidatePairs(ctx, scorer, len(nodes), th.Related)
	if err != nil {
		return Result{}, err
	}
	edges := selectEdges(pairs, len(nodes), th)
	return assemble(nodes, edges, scorer, th), nil
}

// prepare deduplicates the raw names and orders them by normalized form,
// then raw form.
func prepare(names []string) []node {
	seen := make(map[string]bool, len(names))
	var nodes []node
	for _, raw := range names {
		if strings.TrimSpace(raw) == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		nodes = append(nodes, node{raw: raw, norm: Normalize(raw)})
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].norm != nodes[j].norm {
			return nodes[i].norm < nodes[j].norm
		}
		return nodes[i].raw < nodes[j].raw
	})
	return nodes
}

// candidatePairs scores every unordered pair in row blocks and keeps those
// at or above the related threshold.
func (c *Clusterer) candidatePairs(ctx context.Context, scorer Scorer, n int, related float64) ([]pair, error) {
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	rows := make([][]pair, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var found []pair
			for j := i + 1; j < n; j++ {
				if sim := scorer.Score(i, j); sim >= related {
					found = append(found, pair{i: i, j: j, sim: sim})
				}
			}
			rows[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pairwise similarity: %w", err)
	}
	var out []pair
	for _, r := range rows {
		out = append(out, r...)
	}
	return out, nil
}

type edge struct {
	pair
	link LinkType
}

// selectEdges keeps reciprocal top-K pairs and any pair at or above the
// confidence threshold.
func selectEdges(pairs []pair, n int, th Thresholds) []edge {
	neighbors := make([][]pair, n)
	for _, p := range pairs {
		neighbors[p.i] = append(neighbors[p.i], pair{i: p.i, j: p.j, sim: p.sim})
		neighbors[p.j] = append(neighbors[p.j], pair{i: p.j, j: p.i, sim: p.sim})
	}
	top := make([]map[int]bool, n)
	for i, list := range neighbors {
		// node indices follow the (normalized, raw) order, so j breaks ties
		sort.Slice(list, func(a, b int) bool {
			if list[a].sim != list[b].sim {
				return list[a].sim > list[b].sim
			}
			return list[a].j < list[b].j
		})
		if len(list) > th.TopK {
			list = list[:th.TopK]
		}
		top[i] = make(map[int]bool, len(list))
		for _, p := range list {
			top[i][p.j] = true
		}
	}

	var edges []edge
	for _, p := range pairs {
		if !(top[p.i][p.j] && top[p.j][p.i]) && p.sim < th.Confidence {
			continue
		}
		link := Related
		if p.sim >= th.Duplicate {
			link = Duplicate
		}
		edges = append(edges, edge{pair: p, link: link})
	}
	return edges
}

func assemble(nodes []node, edges []edge, scorer Scorer, th Thresholds) Result {
	n := len(nodes)
	adj := make([]map[int]edge, n)
	for i := range adj {
		adj[i] = make(map[int]edge)
	}
	for _, e := range edges {
		adj[e.i][e.j] = e
		adj[e.j][e.i] = e
	}

	seen := make([]bool, n)
	var res Result
	for start := 0; start < n; start++ {
		if seen[start] {
			continue
		}
		comp := component(start, adj, seen)
		if len(comp) < 2 {
			res.Distinct = append(res.Distinct, nodes[start].raw)
			continue
		}
		res.Groups = append(res.Groups, buildGroup(comp, nodes, adj, scorer))
	}
	sort.Slice(res.Groups, func(i, j int) bool { return res.Groups[i].Canonical < res.Groups[j].Canonical })
	sort.Strings(res.Distinct)
	return res
}

func component(start int, adj []map[int]edge, seen []bool) []int {
	queue := []int{start}
	seen[start] = true
	var comp []int
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		comp = append(comp, cur)
		for next := range adj[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	sort.Ints(comp)
	return comp
}

func buildGroup(comp []int, nodes []node, adj []map[int]edge, scorer Scorer) Group {
	canon := comp[0]
	bestDeg, bestAvg := -1, -1.0
	for _, idx := range comp {
		deg := len(adj[idx])
		avg := averageSim(adj[idx])
		// comp is in node order, so the first of equals has the smallest normalized name
		if deg > bestDeg || (deg == bestDeg && avg > bestAvg) {
			canon, bestDeg, bestAvg = idx, deg, avg
		}
	}

	g := Group{Canonical: nodes[canon].raw}
	for _, idx := range comp {
		if idx == canon {
			continue
		}
		m := Member{Name: nodes[idx].raw}
		if e, ok := adj[idx][canon]; ok {
			m.Similarity, m.LinkType = round3(e.sim), e.link
		} else {
			best := 0.0
			for _, other := range comp {
				if other != idx {
					best = math.Max(best, scorer.Score(idx, other))
				}
			}
			m.Similarity, m.LinkType = round3(best), Related
		}
		g.Members = append(g.Members, m)
	}
	sort.Slice(g.Members, func(i, j int) bool {
		if g.Members[i].Similarity != g.Members[j].Similarity {
			return g.Members[i].Similarity > g.Members[j].Similarity
		}
		return g.Members[i].Name < g.Members[j].Name
	})
	return g
}

func averageSim(edges map[int]edge) float64 {
	if len(edges) == 0 {
		return 0
	}
	keys := make([]int, 0, len(edges))
	for k := range edges {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	sum := 0.0
	for _, k := range keys {
		sum += edges[k].sim
	}
	return sum / float64(len(edges))
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func rawNames(nodes []node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.raw)
	}
	return out
}
