package engine

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// minFirstDelay is the floor on the pause before the first command, giving the
// host time to settle the expansion edit before commands observe the buffer.
const minFirstDelay = 50 * time.Millisecond

// Sequencer runs a snippet's command identifiers strictly in order with a
// configurable pause between steps. A command that is unknown, returns an
// error, or panics is reported and skipped; the rest of the sequence still
// runs.
type Sequencer struct {
	log      *zap.Logger
	notifier Notifier
	runner   Runner
	sleep    func(time.Duration)

	mu    sync.Mutex
	delay time.Duration
}

func NewSequencer(log *zap.Logger, notifier Notifier, runner Runner, delay time.Duration) *Sequencer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sequencer{
		log:      log,
		notifier: notifier,
		runner:   runner,
		sleep:    time.Sleep,
		delay:    delay,
	}
}

// SetDelay changes the inter-command pause. Takes effect from the next step.
func (s *Sequencer) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// Delay returns the configured inter-command pause.
func (s *Sequencer) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// Run executes the identifiers in order. Each command body is handed to
// settle, so hosts can serialize it with their own input handling; Run itself
// may sit on a detached goroutine because of the sleeps. The pause before the
// first command is the configured delay, raised to a floor so the expansion
// edit has settled.
func (s *Sequencer) Run(commands []string, settle func(func())) {
	if len(commands) == 0 {
		return
	}
	if settle == nil {
		settle = func(fn func()) { fn() }
	}
	first := s.Delay()
	if first < minFirstDelay {
		first = minFirstDelay
	}
	s.sleep(first)
	for i, id := range commands {
		if i > 0 {
			s.sleep(s.Delay())
		}
		if s.runner == nil {
			s.warnf("Unknown command %q", id)
			continue
		}
		fn, ok := s.runner.Lookup(id)
		if !ok {
			s.warnf("Unknown command %q", id)
			continue
		}
		settle(func() {
			if err := s.invoke(fn); err != nil {
				s.warnf("Command %q failed: %v", id, err)
			}
		})
	}
}

func (s *Sequencer) invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (s *Sequencer) warnf(format string, args ...any) {
	s.log.Warn(fmt.Sprintf(format, args...))
	if s.notifier != nil {
		s.notifier.Warnf(format, args...)
	}
}
