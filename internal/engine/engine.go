package engine

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jeansordes/auto-expander/internal/snippet"
	"github.com/jeansordes/auto-expander/internal/trigger"
)

// Options configures an Engine. Zero values fall back to defaults; Logger nil
// means no logging.
type Options struct {
	Logger   *zap.Logger
	Notifier Notifier
	Runner   Runner

	// CommandDelay is the pause between post-expansion commands.
	CommandDelay time.Duration
	// MatchTimeout overrides the per-call matching ceiling.
	MatchTimeout time.Duration
	// SuppressionWindow overrides the key-down/insertion de-dup window.
	SuppressionWindow time.Duration
}

// Engine is the assembled expansion pipeline and the single entry point hosts
// talk to. It owns the snippet manager, the trigger cache, and the matcher;
// host adapters feed it raw input signals and expose their buffer through the
// Buffer interface.
type Engine struct {
	log      *zap.Logger
	snippets *snippet.Manager
	cache    *trigger.Cache
	matcher  *trigger.Matcher
	seq      *Sequencer
	exec     *Executor
	orch     *Orchestrator
	norm     *Normalizer

	buf Buffer
}

func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cache := trigger.NewCache()
	snippets := snippet.NewManager(log, cache)
	matcher := trigger.NewMatcher(log, opts.Notifier)
	if opts.MatchTimeout > 0 {
		matcher.Timeout = opts.MatchTimeout
	}
	seq := NewSequencer(log, opts.Notifier, opts.Runner, opts.CommandDelay)
	exec := NewExecutor(log, matcher, seq)
	orch := NewOrchestrator(log, snippets, cache, matcher, exec)
	norm := NewNormalizer(orch, log, opts.SuppressionWindow)
	return &Engine{
		log:      log,
		snippets: snippets,
		cache:    cache,
		matcher:  matcher,
		seq:      seq,
		exec:     exec,
		orch:     orch,
		norm:     norm,
	}
}

// Attach binds the engine to a host buffer and returns a teardown function.
// The buffer is validated here, once, so the hot input paths can use it
// without re-checking.
func (e *Engine) Attach(buf Buffer) (func(), error) {
	if buf == nil {
		return nil, errors.New("engine: nil buffer")
	}
	e.buf = buf
	e.log.Info("engine attached")
	return func() {
		e.buf = nil
		e.log.Info("engine detached")
	}, nil
}

// Snippets exposes the snippet manager for loading and status queries.
func (e *Engine) Snippets() *snippet.Manager { return e.snippets }

// KeyDown reports a physical key press before the host applies it. The return
// value tells the host whether to suppress the key's default effect because an
// expansion fired in its place.
func (e *Engine) KeyDown(rawKey string) bool {
	if e.buf == nil {
		return false
	}
	return e.norm.KeyDown(e.buf, rawKey, time.Now())
}

// Inserted reports a completed text insertion via before/after snapshots.
func (e *Engine) Inserted(before, after Snapshot) {
	if e.buf == nil {
		return
	}
	e.norm.Inserted(e.buf, before, after, time.Now())
}

// WouldTrigger is the side-effect-free dry run: would this key, with this
// buffer state, complete any snippet.
func (e *Engine) WouldTrigger(rawKey, text string, cursor int) bool {
	return e.orch.WouldTrigger(rawKey, text, cursor)
}

// CheckForTrigger feeds a pre-built context straight into the pipeline. Host
// adapters that construct their own contexts use this instead of KeyDown.
func (e *Engine) CheckForTrigger(ctx *TriggerContext, kind string) {
	if e.buf == nil {
		return
	}
	e.orch.CheckForTrigger(e.buf, ctx, kind)
}

// Busy reports whether an execution is currently in flight.
func (e *Engine) Busy() bool { return e.exec.Busy() }

// SetCommandDelay adjusts the pause between post-expansion commands.
func (e *Engine) SetCommandDelay(d time.Duration) { e.seq.SetDelay(d) }
