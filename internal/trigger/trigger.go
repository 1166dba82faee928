// Package trigger compiles user-authored trigger strings into matchable
// patterns and evaluates them against a text buffer and cursor position.
//
// A trigger is either a literal ("btw") or an explicit regex ("/(abc)/",
// denoted by a leading and trailing slash). Both forms may embed a cursor
// placeholder ($0, ${0}, or ${0:opt,...}) that pins where the edit cursor
// must sit for the trigger to fire and declares which activation kinds the
// trigger responds to.
package trigger

import (
	"regexp"
	"strings"
)

// Activation kinds a trigger can respond to. "enter" and "newline" are
// interchangeable everywhere they are compared.
const (
	KindInstant   = "instant"
	KindSpace     = "space"
	KindTab       = "tab"
	KindEnter     = "enter"
	KindNewline   = "newline"
	KindBackspace = "backspace"
)

// recognizedKinds is the fixed placeholder option vocabulary. Tokens outside
// it are dropped silently.
var recognizedKinds = map[string]bool{
	KindInstant:   true,
	KindSpace:     true,
	KindTab:       true,
	KindEnter:     true,
	KindNewline:   true,
	KindBackspace: true,
}

// The cursor marker is a private-use rune. During matching it is inserted
// into a copy of the buffer at the cursor offset; inside compiled patterns it
// appears as an optional capture group so the same pattern also matches the
// live, marker-free buffer at replacement time.
const (
	markerRune = '\uE000'
	marker     = string(markerRune)
)

// MarkerLen is the UTF-8 width of the cursor marker rune.
const MarkerLen = len(marker)

// placeholderRe recognizes $0, ${0} and ${0:opt[,opt...]}. Group 1 captures
// the option list when present.
var placeholderRe = regexp.MustCompile(`\$(?:\{0(?::([^}]*))?\}|0)`)

// Compiled is the matchable form of one trigger string.
type Compiled struct {
	Trigger         string
	Pattern         *regexp.Regexp
	Options         map[string]bool
	IsExplicitRegex bool
	HasPlaceholder  bool
	// Flexible marks a regex trigger whose placeholder led the pattern: the
	// cursor may sit anywhere inside a match instead of at the marker.
	Flexible bool

	cursorGroup int // submatch index of the cursor zone group, -1 if none
}

// Compile turns a raw trigger string into a Compiled pattern. It never fails:
// a pattern that does not compile degrades to an escaped literal of the whole
// trigger text with an appended cursor marker and instant-only activation.
func Compile(raw string) *Compiled {
	isRegex := IsExplicitRegex(raw)

	var src string
	if isRegex {
		src = raw[1 : len(raw)-1]
	} else {
		src = raw
	}

	locs := placeholderRe.FindAllStringSubmatchIndex(src, -1)
	options := parseOptions(src, locs)

	flexible := false
	var pat string
	if isRegex {
		pat, flexible = buildRegexPattern(src, locs)
	} else {
		pat = buildLiteralPattern(src, locs)
	}

	re, err := regexp.Compile("(?m)" + pat)
	if err != nil {
		return fallback(raw)
	}

	return &Compiled{
		Trigger:         raw,
		Pattern:         re,
		Options:         options,
		IsExplicitRegex: isRegex,
		HasPlaceholder:  len(locs) > 0,
		Flexible:        flexible,
		cursorGroup:     re.SubexpIndex("cursor"),
	}
}

// IsExplicitRegex reports whether a trigger is written in /…/ form: a leading
// and trailing slash with at least one character between them.
func IsExplicitRegex(trigger string) bool {
	return len(trigger) > 2 && strings.HasPrefix(trigger, "/") && strings.HasSuffix(trigger, "/")
}

// AllowsKind reports whether the trigger responds to the given activation
// kind, treating "enter" and "newline" as the same token.
func (c *Compiled) AllowsKind(kind string) bool {
	if c.Options[kind] {
		return true
	}
	switch kind {
	case KindEnter:
		return c.Options[KindNewline]
	case KindNewline:
		return c.Options[KindEnter]
	}
	return false
}

// LiteralTail returns the trigger text with the /…/ wrapper and every cursor
// placeholder stripped. The orchestrator compares its final grapheme against
// the character the user just typed before letting an instant trigger fire.
func (c *Compiled) LiteralTail() string {
	src := c.Trigger
	if c.IsExplicitRegex {
		src = src[1 : len(src)-1]
	}
	return StripPlaceholders(src)
}

// StripPlaceholders removes every cursor placeholder occurrence from s.
func StripPlaceholders(s string) string {
	return placeholderRe.ReplaceAllString(s, "")
}

// SplitAtCursor splits replacement text at its first cursor placeholder and
// strips any further occurrences. found is false when s has no placeholder.
func SplitAtCursor(s string) (before, after string, found bool) {
	loc := placeholderRe.FindStringIndex(s)
	if loc == nil {
		return s, "", false
	}
	return s[:loc[0]], StripPlaceholders(s[loc[1]:]), true
}

// parseOptions unions the recognized activation tokens across all
// placeholder occurrences. No placeholder, or a placeholder with no
// recognized tokens, defaults to instant.
func parseOptions(src string, locs [][]int) map[string]bool {
	options := make(map[string]bool)
	for _, loc := range locs {
		if loc[2] < 0 {
			continue
		}
		for _, tok := range strings.Split(src[loc[2]:loc[3]], ",") {
			tok = strings.TrimSpace(tok)
			if recognizedKinds[tok] {
				options[tok] = true
			}
		}
	}
	if len(options) == 0 {
		options[KindInstant] = true
	}
	return options
}

// cursorZone emits the optional marker group. Only the first zone in a
// pattern carries the name the matcher resolves.
func cursorZone(named bool) string {
	if named {
		return "(?P<cursor>" + marker + "?)"
	}
	return "(" + marker + "?)"
}

// buildLiteralPattern escapes the literal text around each placeholder and
// substitutes the placeholders with cursor zones. Without a placeholder the
// zone is appended, so plain literals fire when the cursor sits exactly after
// them.
func buildLiteralPattern(src string, locs [][]int) string {
	if len(locs) == 0 {
		return regexp.QuoteMeta(src) + cursorZone(true)
	}
	var b strings.Builder
	prev := 0
	named := true
	for _, loc := range locs {
		b.WriteString(regexp.QuoteMeta(src[prev:loc[0]]))
		b.WriteString(cursorZone(named))
		named = false
		prev = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(src[prev:]))
	return b.String()
}

// buildRegexPattern keeps the inner pattern verbatim except for placeholder
// substitution. A placeholder at the very start is replaced by an empty
// group and the trigger becomes cursor-flexible; the empty group keeps user
// capture indices aligned with the non-flexible form, where group 1 is the
// cursor zone.
func buildRegexPattern(src string, locs [][]int) (pat string, flexible bool) {
	if len(locs) == 0 {
		return src + cursorZone(true), false
	}
	var b strings.Builder
	prev := 0
	named := true
	for i, loc := range locs {
		b.WriteString(src[prev:loc[0]])
		if i == 0 && loc[0] == 0 {
			flexible = true
			b.WriteString("()")
		} else {
			b.WriteString(cursorZone(named))
			named = false
		}
		prev = loc[1]
	}
	b.WriteString(src[prev:])
	return b.String(), flexible
}

// fallback is the never-throw degradation for unparseable patterns.
func fallback(raw string) *Compiled {
	re := regexp.MustCompile("(?m)" + regexp.QuoteMeta(raw) + cursorZone(true))
	return &Compiled{
		Trigger:     raw,
		Pattern:     re,
		Options:     map[string]bool{KindInstant: true},
		cursorGroup: re.SubexpIndex("cursor"),
	}
}
