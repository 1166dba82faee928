package session

import (
	"testing"

	"github.com/jeansordes/auto-expander/internal/snippet"
)

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.SetFileState("/tmp/a.txt", FileState{CursorOffset: 42})
	m.SetLastValidSnippets([]snippet.Raw{
		{Trigger: "btw${0:instant}", Replacement: []string{"by the way"}},
	})
	m.Stop()

	m2, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m2.Stop()

	st, ok := m2.GetFileState("/tmp/a.txt")
	if !ok || st.CursorOffset != 42 {
		t.Fatalf("GetFileState = %+v, %v", st, ok)
	}
	raws := m2.LastValidSnippets()
	if len(raws) != 1 || raws[0].Trigger != "btw${0:instant}" {
		t.Fatalf("LastValidSnippets = %+v", raws)
	}
}

func TestGetFileStateUnknown(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Stop()
	if _, ok := m.GetFileState("/nope"); ok {
		t.Fatalf("unknown file reported state")
	}
}
