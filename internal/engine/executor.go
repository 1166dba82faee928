package engine

import (
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jeansordes/auto-expander/internal/grapheme"
	"github.com/jeansordes/auto-expander/internal/snippet"
	"github.com/jeansordes/auto-expander/internal/trigger"
)

// groupRefRe recognizes capture-group references ($1, $2, ...) in replacement
// text. $0 is the cursor placeholder, not a group reference.
var groupRefRe = regexp.MustCompile(`\$([1-9][0-9]*)`)

// Executor performs the buffer substitution for one accepted match and then
// runs the snippet's command sequence. At most one execution is in flight at
// any time; the busy flag is claimed with a compare-and-swap so two events can
// never both start one.
type Executor struct {
	// PollInterval and PollTimeout bound the wait for the host to expose the
	// applied edit before the cursor is repositioned. Past the ceiling the
	// executor proceeds optimistically rather than stall the pipeline.
	PollInterval time.Duration
	PollTimeout  time.Duration

	log     *zap.Logger
	matcher *trigger.Matcher
	seq     *Sequencer

	executing atomic.Bool
}

func NewExecutor(log *zap.Logger, matcher *trigger.Matcher, seq *Sequencer) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  150 * time.Millisecond,
		log:          log,
		matcher:      matcher,
		seq:          seq,
	}
}

// Busy reports whether an execution is in flight.
func (x *Executor) Busy() bool { return x.executing.Load() }

// Execute re-locates the detected match in the live buffer, substitutes the
// replacement, repositions the cursor, and runs the snippet's commands. The
// buffer mutation happens synchronously on the caller's goroutine. The command
// sequence runs detached because it sleeps between steps, but each command
// body goes back through Buffer.Settle, so commands never touch host state
// concurrently with the host's own input handling.
func (x *Executor) Execute(buf Buffer, sn snippet.Parsed, ct *trigger.Compiled, detected trigger.Match, kind string) {
	if !x.executing.CompareAndSwap(false, true) {
		return
	}
	done := x.substitute(buf, sn, ct, detected, kind)
	if !done || len(sn.Commands) == 0 {
		x.executing.Store(false)
		return
	}
	go func() {
		defer x.executing.Store(false)
		x.seq.Run(sn.Commands, buf.Settle)
	}()
}

// substitute performs the text half of an execution. It reports whether the
// expansion went through; a false return means the match could not be
// re-located and nothing was touched.
func (x *Executor) substitute(buf Buffer, sn snippet.Parsed, ct *trigger.Compiled, detected trigger.Match, kind string) bool {
	// The detection snapshot may be stale: async hosts can apply further
	// edits between detection and now. Re-match against the live buffer and
	// treat that result as authoritative.
	live := buf.Text()
	m, ok := x.relocate(ct, live, detected, buf.CursorOffset())
	if !ok {
		x.log.Debug("match not re-locatable in live buffer, expansion aborted",
			zap.String("trigger", sn.Trigger))
		return false
	}

	replacement := strings.Join(sn.Replacement, "\n")
	if replacement == "" {
		// Nothing to write, but the snippet's commands still run.
		return true
	}

	start, end := m.Start, m.End
	if kind == trigger.KindBackspace && end > start {
		// The triggering backspace has not deleted its character yet; narrow
		// the span so the substitution absorbs that pending deletion.
		last := grapheme.Last(live[start:end])
		end -= len(last)
	}

	final, cursorAt := renderReplacement(replacement, m)
	buf.ReplaceRange(start, end, final)
	x.awaitApplied(buf, start, final)
	buf.SetCursorOffset(start + cursorAt)

	x.log.Debug("expansion applied",
		zap.String("trigger", sn.Trigger),
		zap.Int("start", start),
		zap.Int("end", end),
		zap.Int("cursor", start+cursorAt))
	return true
}

// relocate picks the authoritative occurrence among all live matches of the
// trigger, preferring in order: the match containing the live cursor with the
// detected text, the match at the detected offset, the closest same-text match
// by offset distance, then any same-text match.
func (x *Executor) relocate(ct *trigger.Compiled, live string, detected trigger.Match, cursor int) (trigger.Match, bool) {
	matches := x.matcher.Find(ct, live)
	if len(matches) == 0 {
		return trigger.Match{}, false
	}
	for _, m := range matches {
		if m.Start <= cursor && cursor <= m.End && m.Text == detected.Text {
			return m, true
		}
	}
	for _, m := range matches {
		if m.Start == detected.Start {
			return m, true
		}
	}
	best := -1
	bestDist := 0
	for i, m := range matches {
		if m.Text != detected.Text {
			continue
		}
		dist := m.Start - detected.Start
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best >= 0 {
		return matches[best], true
	}
	return trigger.Match{}, false
}

// renderReplacement produces the final replacement text and the byte offset
// within it where the cursor lands. Without a cursor placeholder the cursor
// goes to the end. Group references resolve against the live match; when the
// pattern's first capture group matched empty (the compiled cursor zone always
// does on marker-free text), user-written indices sit one group further in,
// so references shift by one to compensate.
func renderReplacement(replacement string, m trigger.Match) (string, int) {
	before, after, found := trigger.SplitAtCursor(replacement)
	before = substituteGroups(before, m)
	after = substituteGroups(after, m)
	if !found {
		return before, len(before)
	}
	return before + after, len(before)
}

func substituteGroups(s string, m trigger.Match) string {
	shift := 0
	if g, ok := m.Group(1); ok && g == "" {
		shift = 1
	}
	return groupRefRe.ReplaceAllStringFunc(s, func(ref string) string {
		n, err := strconv.Atoi(ref[1:])
		if err != nil {
			return ref
		}
		g, _ := m.Group(n + shift)
		return g
	})
}

// awaitApplied polls until the replacement is observable at its offset, so the
// cursor move that follows lands in the new text and not in a buffer the host
// has not flushed yet. Synchronous hosts satisfy the first probe immediately.
func (x *Executor) awaitApplied(buf Buffer, start int, want string) {
	deadline := time.Now().Add(x.PollTimeout)
	for {
		text := buf.Text()
		if start+len(want) <= len(text) && text[start:start+len(want)] == want {
			return
		}
		if time.Now().After(deadline) {
			x.log.Debug("replacement not observable before ceiling, proceeding")
			return
		}
		time.Sleep(x.PollInterval)
	}
}
