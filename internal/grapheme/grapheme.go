// Package grapheme provides Unicode-correct extraction of user-perceived
// characters. Trigger matching compares "the character just typed" against a
// trigger's literal tail, and that comparison must survive surrogate pairs,
// combining marks and emoji sequences, so it always operates on grapheme
// clusters rather than runes or bytes.
package grapheme

import "github.com/rivo/uniseg"

// Last returns the final grapheme cluster of s, or "" if s is empty.
func Last(s string) string {
	if s == "" {
		return ""
	}
	var last string
	state := -1
	rest := s
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.StepString(rest, state)
		last = cluster
	}
	return last
}

// First returns the initial grapheme cluster of s, or "" if s is empty.
func First(s string) string {
	if s == "" {
		return ""
	}
	cluster, _, _, _ := uniseg.StepString(s, -1)
	return cluster
}

// Count returns the number of grapheme clusters in s.
func Count(s string) int {
	return uniseg.GraphemeClusterCount(s)
}
