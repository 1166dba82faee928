package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type mapRunner map[string]func() error

func (r mapRunner) Lookup(id string) (func() error, bool) {
	fn, ok := r[id]
	return fn, ok
}

type recordNotifier struct {
	warns []string
}

func (n *recordNotifier) Warnf(format string, args ...any) {
	n.warns = append(n.warns, fmt.Sprintf(format, args...))
}

func newTestSequencer(runner Runner, notifier Notifier, delay time.Duration) (*Sequencer, *[]time.Duration) {
	s := NewSequencer(nil, notifier, runner, delay)
	sleeps := &[]time.Duration{}
	s.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	return s, sleeps
}

func TestSequencerRunsInOrder(t *testing.T) {
	var order []string
	runner := mapRunner{
		"a": func() error { order = append(order, "a"); return nil },
		"b": func() error { order = append(order, "b"); return nil },
		"c": func() error { order = append(order, "c"); return nil },
	}
	s, _ := newTestSequencer(runner, nil, 0)
	s.Run([]string{"a", "b", "c"}, nil)
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("order = %v", order)
	}
}

func TestSequencerSkipsFailuresAndContinues(t *testing.T) {
	var order []string
	runner := mapRunner{
		"boom": func() error { return errors.New("nope") },
		"bang": func() error { panic("kaboom") },
		"ok":   func() error { order = append(order, "ok"); return nil },
	}
	n := &recordNotifier{}
	s, _ := newTestSequencer(runner, n, 0)
	s.Run([]string{"missing", "boom", "bang", "ok"}, nil)

	if len(order) != 1 || order[0] != "ok" {
		t.Fatalf("order = %v, want the final command to still run", order)
	}
	if len(n.warns) != 3 {
		t.Fatalf("warns = %v, want 3", n.warns)
	}
	if n.warns[0] != `Unknown command "missing"` {
		t.Fatalf("warn[0] = %q", n.warns[0])
	}
}

func TestSequencerFirstDelayFloor(t *testing.T) {
	runner := mapRunner{"a": func() error { return nil }}

	s, sleeps := newTestSequencer(runner, nil, 10*time.Millisecond)
	s.Run([]string{"a", "a"}, nil)
	if len(*sleeps) != 2 || (*sleeps)[0] != minFirstDelay || (*sleeps)[1] != 10*time.Millisecond {
		t.Fatalf("sleeps = %v", *sleeps)
	}

	// A configured delay above the floor is used as-is.
	s, sleeps = newTestSequencer(runner, nil, 200*time.Millisecond)
	s.Run([]string{"a"}, nil)
	if len(*sleeps) != 1 || (*sleeps)[0] != 200*time.Millisecond {
		t.Fatalf("sleeps = %v", *sleeps)
	}
}

// Every command body must pass through settle, including the ones that fail,
// so hosts can serialize command execution with their own event handling.
func TestSequencerRunsCommandsThroughSettle(t *testing.T) {
	var order []string
	runner := mapRunner{
		"a":    func() error { order = append(order, "a"); return nil },
		"boom": func() error { return errors.New("nope") },
	}
	n := &recordNotifier{}
	s, _ := newTestSequencer(runner, n, 0)

	settled := 0
	s.Run([]string{"a", "boom", "missing"}, func(fn func()) {
		settled++
		fn()
	})

	// Unknown identifiers never resolve to a body, so nothing to settle.
	if settled != 2 {
		t.Fatalf("settled = %d, want 2", settled)
	}
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("order = %v", order)
	}
	if len(n.warns) != 2 {
		t.Fatalf("warns = %v, want 2", n.warns)
	}
}

func TestSequencerSetDelay(t *testing.T) {
	s, _ := newTestSequencer(mapRunner{}, nil, time.Second)
	s.SetDelay(5 * time.Millisecond)
	if s.Delay() != 5*time.Millisecond {
		t.Fatalf("Delay = %v", s.Delay())
	}
}

func TestSequencerEmptyListNoSleep(t *testing.T) {
	s, sleeps := newTestSequencer(mapRunner{}, nil, time.Second)
	s.Run(nil, nil)
	if len(*sleeps) != 0 {
		t.Fatalf("sleeps = %v, want none", *sleeps)
	}
}
