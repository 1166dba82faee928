package engine

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jeansordes/auto-expander/internal/grapheme"
	"github.com/jeansordes/auto-expander/internal/snippet"
	"github.com/jeansordes/auto-expander/internal/trigger"
)

// Pipeline states, exposed for diagnostics.
const (
	StateIdle int32 = iota
	StateEvaluating
	StateExecuting
)

// Orchestrator routes one canonical trigger context through candidate
// selection and matching, and hands the first hit to the executor. Ties
// between snippets that would both fire resolve by declaration order, because
// candidates are iterated in the order the user wrote them.
type Orchestrator struct {
	log      *zap.Logger
	snippets *snippet.Manager
	cache    *trigger.Cache
	matcher  *trigger.Matcher
	exec     *Executor

	state atomic.Int32
}

func NewOrchestrator(log *zap.Logger, snippets *snippet.Manager, cache *trigger.Cache, matcher *trigger.Matcher, exec *Executor) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		log:      log,
		snippets: snippets,
		cache:    cache,
		matcher:  matcher,
		exec:     exec,
	}
}

// State returns the current pipeline state.
func (o *Orchestrator) State() int32 { return o.state.Load() }

// CheckForTrigger evaluates one event against the snippets registered for the
// given activation kind and executes the first accepted match. Events arriving
// while an execution is in flight are dropped, not queued: the buffer they
// were computed against is already stale.
func (o *Orchestrator) CheckForTrigger(buf Buffer, ctx *TriggerContext, kind string) {
	if o.exec.Busy() {
		o.log.Debug("event dropped during execution", zap.String("key", ctx.Key))
		return
	}
	if !o.snippets.Valid() {
		return
	}

	o.state.Store(StateEvaluating)
	defer o.state.Store(StateIdle)

	// Deletion triggers match the buffer as it was before the deletion; the
	// match must include the character being removed.
	text, cursor := ctx.TextAfter, ctx.CursorAfter.Offset
	if kind == trigger.KindBackspace {
		text, cursor = ctx.TextBefore, ctx.CursorBefore.Offset
	}

	for _, sn := range o.snippets.Candidates(kind) {
		if !sn.Valid {
			continue
		}
		ct := o.cache.Get(sn.Trigger)
		if !o.accept(ct, ctx.RawKey, kind) {
			continue
		}
		m, ok := o.matcher.FindAt(ct, text, cursor, kind)
		if !ok {
			continue
		}
		o.log.Debug("trigger matched",
			zap.String("trigger", sn.Trigger),
			zap.Int("start", m.Start),
			zap.Int("end", m.End))
		o.state.Store(StateExecuting)
		o.exec.Execute(buf, sn, ct, m, kind)
		return
	}
}

// accept applies the cheap pre-match gate. Instant activation on a literal
// trigger can only complete on the trigger's own final grapheme, so any other
// key skips the pattern entirely. Explicit regexes are exempt: their final
// "character" is pattern syntax, not the text a keystroke produces.
func (o *Orchestrator) accept(ct *trigger.Compiled, rawKey, kind string) bool {
	if kind != trigger.KindInstant || ct.IsExplicitRegex {
		return true
	}
	tail := grapheme.Last(ct.LiteralTail())
	return tail == "" || tail == rawKey
}

// WouldTrigger reports whether the given key, pressed with this buffer state,
// would complete any snippet. It is the dry-run the key-down path uses to
// decide whether to suppress the key's default effect; nothing executes. The
// same pre-match gate applies as on the real path, so the dry-run answer
// never diverges from what CheckForTrigger would do.
func (o *Orchestrator) WouldTrigger(rawKey, text string, cursor int) bool {
	if o.exec.Busy() || !o.snippets.Valid() {
		return false
	}
	kind := NormalizeKey(rawKey)
	if !preventableKeys[kind] {
		kind = trigger.KindInstant
	}
	for _, sn := range o.snippets.Candidates(kind) {
		if !sn.Valid {
			continue
		}
		ct := o.cache.Get(sn.Trigger)
		if !o.accept(ct, rawKey, kind) {
			continue
		}
		if o.matcher.Matches(ct, text, cursor, kind) {
			return true
		}
	}
	return false
}
