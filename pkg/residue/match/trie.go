package match

import "unicode"

type trieNode struct {
	next     map[rune]*trieNode
	terminal bool
}

// trie is a case-insensitive prefix tree over lowercase terms.
type trie struct {
	root *trieNode
	size int
}

func newTrie(terms []string) *trie {
	t := &trie{root: &trieNode{}}
	for _, term := range terms {
		if term == "" {
			continue
		}
		node := t.root
		for _, r := range term {
			r = unicode.ToLower(r)
			child, ok := node.next[r]
			if !ok {
				if node.next == nil {
					node.next = make(map[rune]*trieNode)
				}
				child = &trieNode{}
				node.next[r] = child
			}
			node = child
		}
		if !node.terminal {
			node.terminal = true
			t.size++
		}
	}
	return t
}

// prefixes returns the lengths of every term that is a prefix of s[i:limit],
// longest first.
func (t *trie) prefixes(s []rune, i, limit int) []int {
	if t == nil || t.size == 0 {
		return nil
	}
	var lens []int
	node := t.root
	for pos := i; pos < limit; pos++ {
		child, ok := node.next[unicode.ToLower(s[pos])]
		if !ok {
			break
		}
		node = child
		if node.terminal {
			lens = append(lens, pos-i+1)
		}
	}
	for l, r := 0, len(lens)-1; l < r; l, r = l+1, r-1 {
		lens[l], lens[r] = lens[r], lens[l]
	}
	return lens
}
