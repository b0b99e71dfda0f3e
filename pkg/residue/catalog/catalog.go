package catalog

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Category identifies which vocabulary a term belongs to.
type Category int

const (
	Tech Category = iota
	Env
	Reg
)

var categoryNames = [...]string{"TECH", "ENV", "REG"}

func (c Category) String() string {
	if c < Tech || c > Reg {
		return "UNKNOWN"
	}
	return categoryNames[c]
}

// Categories lists every category in a stable order.
var Categories = []Category{Tech, Env, Reg}

// Catalog holds the per-run TECH/ENV/REG vocabularies. It is immutable once
// built and safe to share between goroutines.
type Catalog struct {
	terms [3][]string
	sets  [3]map[string]struct{}
}

// Normalize applies NFKC and lowercases rune by rune, so the result has the
// same rune count as the NFKC form.
func Normalize(s string) string {
	return strings.Map(unicode.ToLower, norm.NFKC.String(s))
}

// New builds a catalog. Terms are normalized, trimmed and deduplicated;
// blank entries are dropped.
func New(tech, env, reg []string) *Catalog {
	c := &Catalog{}
	for i, raw := range [3][]string{tech, env, reg} {
		set := make(map[string]struct{}, len(raw))
		for _, term := range raw {
			term = strings.TrimSpace(Normalize(term))
			if term == "" {
				continue
			}
			set[term] = struct{}{}
		}
		list := make([]string, 0, len(set))
		for term := range set {
			list = append(list, term)
		}
		sortLongestFirst(list)
		c.terms[i] = list
		c.sets[i] = set
	}
	return c
}

// Empty returns a catalog with no terms in any category.
func Empty() *Catalog {
	return New(nil, nil, nil)
}

// Terms returns the terms of a category ordered longest first, then
// lexically. The returned slice is a copy.
func (c *Catalog) Terms(cat Category) []string {
	if c == nil || cat < Tech || cat > Reg {
		return nil
	}
	out := make([]string, len(c.terms[cat]))
	copy(out, c.terms[cat])
	return out
}

// Len reports the number of terms in a category.
func (c *Catalog) Len(cat Category) int {
	if c == nil || cat < Tech || cat > Reg {
		return 0
	}
	return len(c.terms[cat])
}

// Contains reports whether the normalized term is in the category.
func (c *Catalog) Contains(cat Category, term string) bool {
	if c == nil || cat < Tech || cat > Reg {
		return false
	}
	_, ok := c.sets[cat][Normalize(term)]
	return ok
}

// IsExcluded reports whether the term is known vocabulary in any category.
func (c *Catalog) IsExcluded(term string) bool {
	if c == nil {
		return false
	}
	norm := Normalize(term)
	for i := range c.sets {
		if _, ok := c.sets[i][norm]; ok {
			return true
		}
	}
	return false
}

func sortLongestFirst(terms []string) {
	sort.Slice(terms, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(terms[i]), utf8.RuneCountInString(terms[j])
		if li != lj {
			return li > lj
		}
		return terms[i] < terms[j]
	})
}
