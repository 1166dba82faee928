package trigger

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Notifier surfaces user-visible warnings. The matcher rate-limits what it
// sends through here so a pathological pattern cannot spam the user on every
// keystroke.
type Notifier interface {
	Warnf(format string, args ...any)
}

// Match is one accepted occurrence: the overall span in marker-free buffer
// coordinates, the cursor-zone sub-span when the pattern defines one, and the
// captured groups. Matches are recomputed at detection time and again at
// replacement time; they are never retained across events.
type Match struct {
	Start       int
	End         int
	Text        string
	CursorStart int // -1 when the pattern has no cursor zone
	CursorEnd   int
	groups      []string
}

// Group returns the captured text of group i (1-based; 0 is the whole match)
// and whether the group participated in the match.
func (m Match) Group(i int) (string, bool) {
	if i < 0 || i >= len(m.groups) {
		return "", false
	}
	return m.groups[i], true
}

// GroupCount returns the number of capture groups, excluding group 0.
func (m Match) GroupCount() int {
	if len(m.groups) == 0 {
		return 0
	}
	return len(m.groups) - 1
}

// Matcher evaluates compiled triggers against buffer snapshots. Matching is a
// pure function of its arguments; the scan cursor lives on the stack of each
// call, so no state leaks between invocations. A wall-clock ceiling bounds
// every call because user-supplied patterns run on every keystroke and must
// not hang the editor.
type Matcher struct {
	Timeout  time.Duration
	Cooldown time.Duration

	log      *zap.Logger
	notifier Notifier
	now      func() time.Time

	mu       sync.Mutex
	lastWarn time.Time
}

// NewMatcher returns a Matcher with the default 3s matching ceiling and 30s
// warning cooldown.
func NewMatcher(log *zap.Logger, notifier Notifier) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{
		Timeout:  3 * time.Second,
		Cooldown: 30 * time.Second,
		log:      log,
		notifier: notifier,
		now:      time.Now,
	}
}

// Matches reports whether the cursor sits inside a live occurrence of the
// trigger and the activation kind is permitted.
func (m *Matcher) Matches(ct *Compiled, text string, cursor int, kind string) bool {
	_, ok := m.FindAt(ct, text, cursor, kind)
	return ok
}

// FindAt returns the occurrence accepted at the cursor, if any. The buffer is
// never mutated: the cursor marker is inserted into a private copy.
func (m *Matcher) FindAt(ct *Compiled, text string, cursor int, kind string) (Match, bool) {
	if ct == nil || !ct.AllowsKind(kind) {
		return Match{}, false
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	deadline := m.now().Add(m.Timeout)

	if ct.Flexible {
		loc, ok, timedOut := m.scan(ct, text, deadline, func(loc []int) bool {
			return loc[0] <= cursor && cursor <= loc[1]
		})
		if timedOut {
			m.warnTimeout(ct)
			return Match{}, false
		}
		if !ok {
			return Match{}, false
		}
		return matchFromPlain(ct, text, loc), true
	}

	marked := text[:cursor] + marker + text[cursor:]
	loc, ok, timedOut := m.scan(ct, marked, deadline, func(loc []int) bool {
		return zoneAligned(ct, loc, cursor)
	})
	if timedOut {
		m.warnTimeout(ct)
		return Match{}, false
	}
	if !ok {
		return Match{}, false
	}
	return matchFromMarked(marked, loc, cursor), true
}

// Find returns every occurrence of the trigger in the live (marker-free)
// buffer, in order. The executor uses it to re-locate the authoritative match
// before substituting.
func (m *Matcher) Find(ct *Compiled, text string) []Match {
	locs := ct.Pattern.FindAllStringSubmatchIndex(text, -1)
	out := make([]Match, 0, len(locs))
	for _, loc := range locs {
		out = append(out, matchFromPlain(ct, text, loc))
	}
	return out
}

// scan walks occurrences left to right, advancing one rune past each match
// start so overlapping candidates are still visited. The deadline is checked
// between iterations; Go's RE2 engine keeps each single probe linear.
func (m *Matcher) scan(ct *Compiled, s string, deadline time.Time, accept func(loc []int) bool) (found []int, ok, timedOut bool) {
	pos := 0
	for pos <= len(s) {
		if m.now().After(deadline) {
			return nil, false, true
		}
		loc := ct.Pattern.FindStringSubmatchIndex(s[pos:])
		if loc == nil {
			return nil, false, false
		}
		abs := shiftLoc(loc, pos)
		if accept(abs) {
			return abs, true, false
		}
		_, size := utf8.DecodeRuneInString(s[pos+loc[0]:])
		if size == 0 {
			size = 1
		}
		pos += loc[0] + size
	}
	return nil, false, false
}

func (m *Matcher) warnTimeout(ct *Compiled) {
	m.log.Warn("trigger matching exceeded ceiling", zap.String("trigger", ct.Trigger), zap.Duration("timeout", m.Timeout))
	if m.notifier == nil {
		return
	}
	m.mu.Lock()
	now := m.now()
	warn := now.Sub(m.lastWarn) >= m.Cooldown
	if warn {
		m.lastWarn = now
	}
	m.mu.Unlock()
	if warn {
		m.notifier.Warnf("Trigger %q is too slow to match and was skipped", ct.Trigger)
	}
}

// zoneAligned accepts an occurrence in marked text when the cursor zone sits
// exactly at the inserted marker: either the zone captured the marker rune or
// it matched empty at the marker's index. Without a zone, the match end must
// coincide with the cursor.
func zoneAligned(ct *Compiled, loc []int, markerIdx int) bool {
	if ct.cursorGroup > 0 && 2*ct.cursorGroup+1 < len(loc) && loc[2*ct.cursorGroup] >= 0 {
		zs, ze := loc[2*ct.cursorGroup], loc[2*ct.cursorGroup+1]
		return zs == markerIdx && (ze == zs || ze == zs+MarkerLen)
	}
	return loc[1] == markerIdx
}

// shiftLoc rebases submatch indices from a slice scan onto the full string,
// preserving -1 for groups that did not participate.
func shiftLoc(loc []int, pos int) []int {
	abs := make([]int, len(loc))
	for i, v := range loc {
		if v < 0 {
			abs[i] = v
		} else {
			abs[i] = v + pos
		}
	}
	return abs
}

// matchFromPlain builds a Match from an occurrence in marker-free text.
func matchFromPlain(ct *Compiled, text string, loc []int) Match {
	match := Match{
		Start:       loc[0],
		End:         loc[1],
		Text:        text[loc[0]:loc[1]],
		CursorStart: -1,
		CursorEnd:   -1,
		groups:      groupsFromLoc(text, loc),
	}
	if ct.cursorGroup > 0 && 2*ct.cursorGroup+1 < len(loc) && loc[2*ct.cursorGroup] >= 0 {
		match.CursorStart = loc[2*ct.cursorGroup]
		match.CursorEnd = loc[2*ct.cursorGroup+1]
	}
	return match
}

// matchFromMarked builds a Match from an occurrence in marked text, rebasing
// spans and captures onto marker-free coordinates.
func matchFromMarked(marked string, loc []int, markerIdx int) Match {
	unmark := func(i int) int {
		if i > markerIdx {
			return i - MarkerLen
		}
		return i
	}
	groups := groupsFromLoc(marked, loc)
	for i, g := range groups {
		groups[i] = strings.ReplaceAll(g, marker, "")
	}
	return Match{
		Start:       unmark(loc[0]),
		End:         unmark(loc[1]),
		Text:        strings.ReplaceAll(marked[loc[0]:loc[1]], marker, ""),
		CursorStart: markerIdx,
		CursorEnd:   markerIdx,
		groups:      groups,
	}
}

func groupsFromLoc(s string, loc []int) []string {
	groups := make([]string, len(loc)/2)
	for i := range groups {
		if loc[2*i] < 0 {
			continue
		}
		groups[i] = s[loc[2*i]:loc[2*i+1]]
	}
	return groups
}
