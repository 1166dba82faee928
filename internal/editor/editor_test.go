package editor

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/jeansordes/auto-expander/internal/command"
	"github.com/jeansordes/auto-expander/internal/config"
	"github.com/jeansordes/auto-expander/internal/engine"
	"github.com/jeansordes/auto-expander/internal/snippet"
)

func typeString(e *Editor, s string) {
	for _, r := range s {
		var ev *tcell.EventKey
		switch r {
		case '\n':
			ev = tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)
		case '\t':
			ev = tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone)
		default:
			ev = tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
		}
		e.HandleKey(ev)
	}
}

func TestTypingAndContent(t *testing.T) {
	e := New(config.Default())
	typeString(e, "hello\nworld")
	if e.Content() != "hello\nworld" {
		t.Fatalf("Content = %q", e.Content())
	}
	if e.CursorOffset() != len("hello\nworld") {
		t.Fatalf("CursorOffset = %d", e.CursorOffset())
	}
	if !e.Dirty() {
		t.Fatalf("Dirty = false")
	}
}

func TestOffsetMappingRoundTrip(t *testing.T) {
	e := New(config.Default())
	typeString(e, "aé\nbc\n")
	text := e.Content()
	for offset := 0; offset <= len(text); offset++ {
		c := e.cursorAt(offset)
		back := e.offsetOf(c)
		// Offsets inside a multi-byte rune clamp to the rune start.
		if back > offset {
			t.Fatalf("offset %d -> cursor %+v -> offset %d", offset, c, back)
		}
	}
	if e.cursorAt(3) != (Cursor{Row: 0, Col: 2}) {
		t.Fatalf("cursorAt(3) = %+v", e.cursorAt(3))
	}
	if e.offsetOf(Cursor{Row: 1, Col: 1}) != 5 {
		t.Fatalf("offsetOf = %d", e.offsetOf(Cursor{Row: 1, Col: 1}))
	}
}

func TestReplaceRangeAcrossLines(t *testing.T) {
	e := New(config.Default())
	typeString(e, "one\ntwo\nthree")
	e.ReplaceRange(4, 7, "2")
	if e.Content() != "one\n2\nthree" {
		t.Fatalf("Content = %q", e.Content())
	}
	if e.CursorOffset() != 5 {
		t.Fatalf("CursorOffset = %d", e.CursorOffset())
	}

	e.ReplaceRange(3, 6, " / ")
	if e.Content() != "one / three" {
		t.Fatalf("Content = %q", e.Content())
	}
}

func TestBackspaceJoinsLines(t *testing.T) {
	e := New(config.Default())
	typeString(e, "ab\ncd")
	e.SetCursorOffset(3)
	e.HandleKey(tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone))
	if e.Content() != "abcd" {
		t.Fatalf("Content = %q", e.Content())
	}
	if e.CursorOffset() != 2 {
		t.Fatalf("CursorOffset = %d", e.CursorOffset())
	}
}

func newExpandingEditor(t *testing.T, raws []snippet.Raw) *Editor {
	t.Helper()
	e := New(config.Default())
	eng := engine.New(engine.Options{})
	eng.Snippets().Load(raws)
	if _, err := eng.Attach(e); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	e.SetEngine(eng)
	return e
}

func TestInstantExpansionWhileTyping(t *testing.T) {
	e := newExpandingEditor(t, []snippet.Raw{
		{Trigger: "btw${0:instant}", Replacement: []string{"By the way$0"}},
	})
	typeString(e, "so btw")
	if e.Content() != "so By the way" {
		t.Fatalf("Content = %q", e.Content())
	}
	typeString(e, "!")
	if e.Content() != "so By the way!" {
		t.Fatalf("Content = %q", e.Content())
	}
}

func TestSpaceKeySuppressedByExpansion(t *testing.T) {
	e := newExpandingEditor(t, []snippet.Raw{
		{Trigger: "sig${0:space}", Replacement: []string{"Kind regards"}},
	})
	typeString(e, "sig")
	e.HandleKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone))
	if e.Content() != "Kind regards" {
		t.Fatalf("Content = %q, want the space swallowed", e.Content())
	}
}

func TestSpacePassesThroughWithoutMatch(t *testing.T) {
	e := newExpandingEditor(t, []snippet.Raw{
		{Trigger: "sig${0:space}", Replacement: []string{"Kind regards"}},
	})
	typeString(e, "plain")
	e.HandleKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone))
	if e.Content() != "plain " {
		t.Fatalf("Content = %q", e.Content())
	}
}

func TestEnterExpansionKeepsFollowingText(t *testing.T) {
	e := newExpandingEditor(t, []snippet.Raw{
		{Trigger: "addr${0:enter}", Replacement: []string{"1 Main St", "Springfield$0"}},
	})
	typeString(e, "addr")
	e.HandleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	if e.Content() != "1 Main St\nSpringfield" {
		t.Fatalf("Content = %q", e.Content())
	}
	if e.CursorOffset() != len("1 Main St\nSpringfield") {
		t.Fatalf("CursorOffset = %d", e.CursorOffset())
	}
}

// With a dispatcher installed, Settle must run the callback on the event
// goroutine and only return once it finished.
func TestSettleWaitsForDispatchedCallback(t *testing.T) {
	e := New(config.Default())
	typeString(e, "state")

	posted := make(chan func(), 1)
	e.SetDispatcher(func(fn func()) { posted <- fn })
	go func() {
		for fn := range posted {
			fn()
		}
	}()

	var seen string
	e.Settle(func() { seen = e.Content() })
	if seen != "state" {
		t.Fatalf("Settle returned before the callback ran: %q", seen)
	}
}

// Commands registered against the editor run through Settle, so an expansion
// with a command sequence still observes a consistent buffer.
func TestCommandSequenceRunsOnDispatcher(t *testing.T) {
	e := New(config.Default())
	posted := make(chan func(), 8)
	e.SetDispatcher(func(fn func()) { posted <- fn })
	go func() {
		for fn := range posted {
			fn()
		}
	}()

	got := make(chan string, 1)
	reg := command.NewRegistry()
	reg.Register("report", func() error {
		got <- e.Content()
		return nil
	})

	eng := engine.New(engine.Options{Runner: reg})
	eng.Snippets().Load([]snippet.Raw{
		{Trigger: "sig${0:space}", Replacement: []string{"Kind regards"}, Commands: []string{"report"}},
	})
	if _, err := eng.Attach(e); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	e.SetEngine(eng)

	typeString(e, "sig")
	e.HandleKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone))
	if e.Content() != "Kind regards" {
		t.Fatalf("Content = %q", e.Content())
	}

	select {
	case content := <-got:
		if content != "Kind regards" {
			t.Fatalf("command saw %q", content)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("command never ran")
	}
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	e := New(config.Default())
	typeString(e, "persisted")
	path := t.TempDir() + "/note.txt"
	if err := e.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if e.Dirty() {
		t.Fatalf("Dirty after save = true")
	}

	e2 := New(config.Default())
	if err := e2.OpenFile(path); err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if e2.Content() != "persisted" {
		t.Fatalf("Content = %q", e2.Content())
	}
}
