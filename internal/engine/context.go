// Package engine is the expansion pipeline: it normalizes host input signals
// into canonical trigger contexts, decides whether an event completes a
// trigger, performs the race-safe buffer substitution, and runs the snippet's
// follow-up commands.
package engine

import "strings"

// Position locates a point in the buffer both ways the host editor speaks:
// zero-based line/column and a flat byte offset.
type Position struct {
	Line   int
	Col    int
	Offset int
}

// PositionAt derives the line/column form of a byte offset.
func PositionAt(text string, offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	before := text[:offset]
	line := strings.Count(before, "\n")
	col := offset
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		col = offset - i - 1
	}
	return Position{Line: line, Col: col, Offset: offset}
}

// TriggerContext is the canonical form of one logical user action. It is
// owned by the orchestrator for the duration of one event and never retained.
type TriggerContext struct {
	// Key is the normalized trigger key ("a", "space", "enter", ...).
	Key string
	// RawKey is the key as the host reported it, before normalization.
	RawKey string
	// Inserted is the text the event actually put into the buffer.
	Inserted string
	// DeletedChar is the grapheme a deletion-triggered event removes.
	DeletedChar string

	TextBefore   string
	CursorBefore Position
	TextAfter    string
	CursorAfter  Position
}

// Snapshot captures buffer state at one instant, for before/after diffing.
type Snapshot struct {
	Text   string
	Cursor int
}

// diffInserted extracts the text an edit inserted by trimming the common
// prefix and suffix of the two snapshots. It returns the byte offset of the
// insertion and the inserted text ("" when the edit was not an insertion).
func diffInserted(before, after string) (at int, inserted string) {
	if len(after) <= len(before) {
		return 0, ""
	}
	p := 0
	for p < len(before) && p < len(after) && before[p] == after[p] {
		p++
	}
	s := 0
	for s < len(before)-p && s < len(after)-p && before[len(before)-1-s] == after[len(after)-1-s] {
		s++
	}
	return p, after[p : len(after)-s]
}
