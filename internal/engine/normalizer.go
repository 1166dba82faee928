package engine

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeansordes/auto-expander/internal/grapheme"
	"github.com/jeansordes/auto-expander/internal/trigger"
)

// preventableKeys are the non-printable trigger keys whose default effect the
// host can suppress. They are evaluated synchronously at key-down, before the
// edit is applied.
var preventableKeys = map[string]bool{
	trigger.KindSpace:     true,
	trigger.KindTab:       true,
	trigger.KindEnter:     true,
	trigger.KindBackspace: true,
}

// NormalizeKey folds the host's key naming variants onto the canonical
// vocabulary. Printable keys pass through unchanged.
func NormalizeKey(raw string) string {
	switch strings.ToLower(raw) {
	case " ", "space", "spacebar":
		return trigger.KindSpace
	case "\t", "tab":
		return trigger.KindTab
	case "\n", "\r", "enter", "return", "newline":
		return trigger.KindEnter
	case "backspace", "delete-backward":
		return trigger.KindBackspace
	default:
		return raw
	}
}

// Normalizer converts raw host input signals into exactly one canonical
// TriggerContext per logical user action. Two signal families overlap: the
// synchronous key-down path for preventable keys, and the post-edit insertion
// path for printable keys. A timestamp-proximity window keeps one keystroke
// from being reported through both, since the two families carry no shared
// event identity.
type Normalizer struct {
	orch   *Orchestrator
	log    *zap.Logger
	window time.Duration

	lastSynthetic time.Time
}

func NewNormalizer(orch *Orchestrator, log *zap.Logger, window time.Duration) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	if window <= 0 {
		window = 75 * time.Millisecond
	}
	return &Normalizer{orch: orch, log: log, window: window}
}

// KeyDown handles a physical key press before the host applies its effect.
// For preventable keys it dry-runs the trigger check against the pre-edit
// buffer; on a hit it synthesizes the context directly (the buffer never
// changes because the caller suppresses the default) and reports true so the
// host swallows the key.
func (n *Normalizer) KeyDown(buf Buffer, rawKey string, now time.Time) bool {
	key := NormalizeKey(rawKey)
	if !preventableKeys[key] {
		return false
	}
	if _, _, sel := buf.Selection(); sel {
		return false
	}

	text := buf.Text()
	cursor := buf.CursorOffset()
	if !n.orch.WouldTrigger(key, text, cursor) {
		return false
	}

	ctx := &TriggerContext{
		Key:          key,
		RawKey:       rawKey,
		TextBefore:   text,
		CursorBefore: PositionAt(text, cursor),
	}
	if key == trigger.KindBackspace {
		// The deletion has not happened yet; compute the post-deletion
		// state the rest of the pipeline expects.
		del := grapheme.Last(text[:cursor])
		after := text[:cursor-len(del)] + text[cursor:]
		ctx.DeletedChar = del
		ctx.TextAfter = after
		ctx.CursorAfter = PositionAt(after, cursor-len(del))
	} else {
		ctx.TextAfter = text
		ctx.CursorAfter = ctx.CursorBefore
	}

	n.lastSynthetic = now
	n.orch.CheckForTrigger(buf, ctx, key)
	return true
}

// Inserted handles the post-edit signal for printable keys: the host reports
// buffer state before and after the character landed, and the inserted text
// is recovered by diffing rather than trusting key identity, which is
// unreliable mid-composition. The typed grapheme is segmented out of the
// inserted text, never sliced from code units.
func (n *Normalizer) Inserted(buf Buffer, before, after Snapshot, now time.Time) {
	if !n.lastSynthetic.IsZero() && now.Sub(n.lastSynthetic) < n.window {
		return // the key-down path already covered this keystroke
	}
	if _, _, sel := buf.Selection(); sel {
		return
	}

	_, inserted := diffInserted(before.Text, after.Text)
	if inserted == "" {
		return
	}
	typed := grapheme.Last(inserted)

	ctx := &TriggerContext{
		Key:          NormalizeKey(typed),
		RawKey:       typed,
		Inserted:     inserted,
		TextBefore:   before.Text,
		CursorBefore: PositionAt(before.Text, before.Cursor),
		TextAfter:    after.Text,
		CursorAfter:  PositionAt(after.Text, after.Cursor),
	}
	n.orch.CheckForTrigger(buf, ctx, trigger.KindInstant)
}
