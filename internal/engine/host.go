package engine

// Buffer is the narrow capability the engine needs from the host editor. It
// is validated once when the engine attaches, not re-checked per call.
type Buffer interface {
	// Text returns the full buffer contents.
	Text() string
	// CursorOffset returns the cursor position as a byte offset into Text.
	CursorOffset() int
	// SetCursorOffset moves the cursor to a byte offset.
	SetCursorOffset(offset int)
	// ReplaceRange substitutes text over [start, end) as one atomic edit.
	ReplaceRange(start, end int, text string)
	// Selection returns the active selection extent, if any.
	Selection() (start, end int, ok bool)
	// Settle runs fn serialized with the host's own input handling and
	// returns once fn has run. Post-expansion commands arrive through here,
	// so hosts whose state is confined to an event goroutine must marshal
	// fn onto it. Hosts that apply edits synchronously on the calling
	// goroutine may invoke fn directly.
	Settle(fn func())
}

// Notifier surfaces non-fatal, user-visible warnings.
type Notifier interface {
	Warnf(format string, args ...any)
}

// Runner resolves post-expansion command identifiers.
type Runner interface {
	Lookup(id string) (func() error, bool)
}
