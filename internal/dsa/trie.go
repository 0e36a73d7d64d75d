// Package dsa provides data structure implementations shared across packages.
// Uses go-radix for a compressed prefix tree (radix tree).
package dsa

import (
	"github.com/armon/go-radix"
)

// Trie wraps go-radix for a compressed prefix tree (radix tree).
// Used for longest-prefix resolution of model identifiers, where dated
// or suffixed IDs ("gpt-4o-2024-08-06") must resolve to their base entry.
//
// Time Complexity: O(k) where k is key length.
type Trie[V any] struct {
	tree *radix.Tree
	size int
}

// NewTrie creates a new empty radix tree.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{
		tree: radix.New(),
	}
}

// Insert adds a key-value pair to the tree.
func (t *Trie[V]) Insert(key string, value V) {
	_, updated := t.tree.Insert(key, value)
	if !updated {
		t.size++
	}
}

// Search looks up an exact key in the tree.
func (t *Trie[V]) Search(key string) (V, bool) {
	val, found := t.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	if !ok {
		var zero V
		return zero, false
	}
	return v, true
}

// LongestPrefix returns the longest key that is a prefix of the query.
func (t *Trie[V]) LongestPrefix(query string) (string, V, bool) {
	key, val, found := t.tree.LongestPrefix(query)
	if !found {
		var zero V
		return "", zero, false
	}
	v, ok := val.(V)
	if !ok {
		var zero V
		return "", zero, false
	}
	return key, v, true
}

// Size returns the number of keys in the tree.
func (t *Trie[V]) Size() int {
	return t.size
}
