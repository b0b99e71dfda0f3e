// Package match implements the pattern and vocabulary matchers shared by the
// masking cascade and the glued-name coverage sweep.
//
// Matchers work on rune slices and report match lengths in runes. Two modes
// are offered: Bounded, which enforces alphanumeric boundaries on both sides,
// and Anchored, which matches exactly at an offset with no boundary checks.
package match

import (
	"github.com/cognicore/residue/pkg/residue/catalog"
)

// Class is a category of scaffold.
type Class int

const (
	GUID Class = iota
	HEX
	TECH
	ENV
	REG
	NUM
)

// NumClasses is the number of scaffold classes.
const NumClasses = int(NUM) + 1

var classNames = [...]string{"GUID", "HEX", "TECH", "ENV", "REG", "NUM"}

func (c Class) String() string {
	if c < GUID || c > NUM {
		return "UNKNOWN"
	}
	return classNames[c]
}

// Placeholder is the token substituted for a masked span of this class.
func (c Class) Placeholder() string {
	return PlaceholderMark + c.String() + PlaceholderMark
}

// PlaceholderMark delimits placeholders in masked output.
const PlaceholderMark = "⟂"

// CascadeOrder is the fixed precedence of the masking passes.
var CascadeOrder = []Class{GUID, HEX, TECH, ENV, REG, NUM}

// CoverageOrder is the precedence used to break equal-length ties during the
// coverage sweep. HEX does not participate.
var CoverageOrder = []Class{GUID, TECH, ENV, REG, NUM}

// Classes lists every class in declaration order.
var Classes = []Class{GUID, HEX, TECH, ENV, REG, NUM}

// ParseClass maps a class name back to its Class.
func ParseClass(name string) (Class, bool) {
	for i, n := range classNames {
		if n == name {
			return Class(i), true
		}
	}
	return 0, false
}

// Matcher finds spans of one class.
type Matcher struct {
	class Class
	terms *trie
}

// Class returns the class this matcher detects.
func (m *Matcher) Class() Class { return m.class }

// Bounded returns the length of the match starting at s[i] whose left side is
// the start of s or a non-alphanumeric rune and whose right side is the end
// of s or a non-alphanumeric rune. TECH terms may additionally be followed by
// a digit. Zero means no match.
func (m *Matcher) Bounded(s []rune, i int) int {
	if i < 0 || i >= len(s) {
		return 0
	}
	if i > 0 && isAlnum(s[i-1]) {
		return 0
	}
	switch m.class {
	case GUID:
		for _, n := range guidLengths(s, i, len(s)) {
			if rightBoundary(s, i+n) {
				return n
			}
		}
		return 0
	case HEX:
		n, letters := hexRun(s, i, len(s))
		if n == 0 || !rightBoundary(s, i+n) {
			return 0
		}
		if letters >= 2 || n >= 7 {
			return n
		}
		return 0
	case NUM:
		n := digitRun(s, i, len(s))
		if n == 0 || !rightBoundary(s, i+n) {
			return 0
		}
		return n
	default:
		for _, n := range m.terms.prefixes(s, i, len(s)) {
			end := i + n
			if rightBoundary(s, end) || (m.class == TECH && isDigit(s[end])) {
				return n
			}
		}
		return 0
	}
}

// Anchored returns the length of the longest match that starts exactly at
// s[i] and ends at or before limit. No boundary assertions are made.
func (m *Matcher) Anchored(s []rune, i, limit int) int {
	if limit > len(s) {
		limit = len(s)
	}
	if i < 0 || i >= limit {
		return 0
	}
	switch m.class {
	case GUID:
		if ns := guidLengths(s, i, limit); len(ns) > 0 {
			return ns[0]
		}
		return 0
	case HEX:
		n, letters := hexRun(s, i, limit)
		if letters >= 2 || n >= 7 {
			return n
		}
		return 0
	case NUM:
		return digitRun(s, i, limit)
	default:
		if ns := m.terms.prefixes(s, i, limit); len(ns) > 0 {
			return ns[0]
		}
		return 0
	}
}

// Set is the compiled matcher list for one run. It is immutable.
type Set struct {
	matchers [NumClasses]*Matcher
}

// Compile builds matchers for every class from the catalog. Empty
// vocabulary categories compile to matchers that never match.
func Compile(cat *catalog.Catalog) *Set {
	s := &Set{}
	s.matchers[GUID] = &Matcher{class: GUID}
	s.matchers[HEX] = &Matcher{class: HEX}
	s.matchers[NUM] = &Matcher{class: NUM}
	s.matchers[TECH] = &Matcher{class: TECH, terms: newTrie(cat.Terms(catalog.Tech))}
	s.matchers[ENV] = &Matcher{class: ENV, terms: newTrie(cat.Terms(catalog.Env))}
	s.matchers[REG] = &Matcher{class: REG, terms: newTrie(cat.Terms(catalog.Reg))}
	return s
}

// Get returns the matcher for a class.
func (s *Set) Get(c Class) *Matcher {
	return s.matchers[c]
}

// Longest evaluates the given classes anchored at s[i] and returns the class
// with the longest match. Equal lengths resolve to the class listed first.
func (s *Set) Longest(order []Class, r []rune, i, limit int) (Class, int) {
	best, bestLen := Class(0), 0
	for _, c := range order {
		if n := s.matchers[c].Anchored(r, i, limit); n > bestLen {
			best, bestLen = c, n
		}
	}
	return best, bestLen
}

func rightBoundary(s []rune, end int) bool {
	return end >= len(s) || !isAlnum(s[end])
}

func isAlnum(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHex(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func digitRun(s []rune, i, limit int) int {
	n := 0
	for i+n < limit && isDigit(s[i+n]) {
		n++
	}
	return n
}

func hexRun(s []rune, i, limit int) (n, letters int) {
	for i+n < limit && isHex(s[i+n]) {
		if !isDigit(s[i+n]) {
			letters++
		}
		n++
	}
	return n, letters
}

// guidLengths returns candidate GUID lengths at s[i], longest first.
func guidLengths(s []rune, i, limit int) []int {
	var out []int
	if hexGroups(s, i, limit, 8, 4, 4, 4, 12) {
		out = append(out, 36)
	}
	if n, _ := hexRun(s, i, limit); n >= 32 {
		out = append(out, 32)
	}
	return out
}

func hexGroups(s []rune, i, limit int, groups ...int) bool {
	pos := i
	for g, width := range groups {
		if g > 0 {
			if pos >= limit || s[pos] != '-' {
				return false
			}
			pos++
		}
		for k := 0; k < width; k++ {
			if pos >= limit || !isHex(s[pos]) {
				return false
			}
			pos++
		}
	}
	return true
}

// FindAll returns the non-overlapping bounded matches in s, left to right,
// as [start, end) pairs.
func (m *Matcher) FindAll(s []rune) [][2]int {
	var spans [][2]int
	for i := 0; i < len(s); {
		n := m.Bounded(s, i)
		if n == 0 {
			i++
			continue
		}
		spans = append(spans, [2]int{i, i + n})
		i += n
	}
	return spans
}
