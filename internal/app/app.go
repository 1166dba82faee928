// Package app is the top-level runtime: it loads configuration and snippets,
// assembles the expansion engine around the editor widget, and drives the
// tcell event loop.
package app

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/jeansordes/auto-expander/internal/command"
	"github.com/jeansordes/auto-expander/internal/config"
	"github.com/jeansordes/auto-expander/internal/editor"
	"github.com/jeansordes/auto-expander/internal/engine"
	"github.com/jeansordes/auto-expander/internal/logger"
	"github.com/jeansordes/auto-expander/internal/session"
	"github.com/jeansordes/auto-expander/internal/snippet"
)

// App is the top-level runtime for the expander.
type App struct {
	args []string
}

func New(args []string) *App {
	return &App{args: args}
}

// statusNotifier surfaces engine warnings on the editor status line.
type statusNotifier struct {
	ed *editor.Editor
}

func (n *statusNotifier) Warnf(format string, args ...any) {
	n.ed.SetStatusMessage(fmt.Sprintf(format, args...))
}

func (a *App) Run() error {
	runtime.LockOSThread()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, closeLog, err := logger.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()

	ed := editor.New(cfg)
	// Command sequences run on their own goroutine; their bodies come back
	// through Settle, which posts them here so all editor access stays on
	// the event goroutine.
	ed.SetDispatcher(func(fn func()) {
		s.PostEventWait(tcell.NewEventInterrupt(fn))
	})
	notifier := &statusNotifier{ed: ed}
	registry := registerCommands(ed)

	eng := engine.New(engine.Options{
		Logger:       log,
		Notifier:     notifier,
		Runner:       registry,
		CommandDelay: time.Duration(cfg.Expander.CommandDelayMs) * time.Millisecond,
	})
	detach, err := eng.Attach(ed)
	if err != nil {
		return err
	}
	defer detach()
	if cfg.Expander.Enabled {
		ed.SetEngine(eng)
	}

	sess, err := session.NewManager()
	if err != nil {
		log.Warn("session state unavailable", zap.Error(err))
		sess = nil
	} else {
		defer sess.Stop()
	}

	snippetsPath, err := cfg.SnippetsPath()
	if err != nil {
		return err
	}
	lastMod := loadSnippets(eng, ed, log, sess, snippetsPath, time.Time{})

	var openPath string
	if len(a.args) > 0 {
		openPath = a.args[0]
		if err := ed.OpenFile(openPath); err != nil {
			return err
		}
		if sess != nil {
			if st, ok := sess.GetFileState(openPath); ok {
				ed.SetCursorOffset(st.CursorOffset)
			}
		}
	}
	if sess != nil && openPath != "" {
		defer func() {
			sess.SetFileState(openPath, session.FileState{CursorOffset: ed.CursorOffset()})
		}()
	}

	stopPoll := make(chan struct{})
	defer close(stopPoll)
	go func() {
		interval := time.Duration(cfg.Expander.ReloadIntervalMs) * time.Millisecond
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopPoll:
				return
			case <-ticker.C:
				_ = s.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	ed.Render(s)
	s.Show()
	for {
		ev := s.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyCtrlC, tcell.KeyCtrlQ:
				return nil
			case tcell.KeyCtrlS:
				if err := ed.Save(""); err != nil {
					ed.SetStatusMessage(err.Error())
				} else {
					ed.SetStatusMessage("saved")
				}
			case tcell.KeyCtrlR:
				switch {
				case eng.Snippets().ResetToLastValid():
					ed.SetStatusMessage("snippets reset to last valid list")
				case sess != nil && len(sess.LastValidSnippets()) > 0:
					// Nothing valid loaded this run; fall back to the list
					// persisted by a previous run.
					eng.Snippets().Load(sess.LastValidSnippets())
					ed.SetStatusMessage("snippets reset to last valid list")
				default:
					ed.SetStatusMessage("no valid snippet list to reset to")
				}
			default:
				ed.HandleKey(ev)
			}
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventInterrupt:
			if fn, ok := ev.Data().(func()); ok {
				fn()
			} else {
				lastMod = loadSnippets(eng, ed, log, sess, snippetsPath, lastMod)
			}
		}
		ed.SetEngineStatus(statusLine(eng.Snippets().Status()))
		ed.Render(s)
		s.Show()
	}
}

// loadSnippets reloads the snippets file when its mtime moved past the one
// already loaded, and returns the mtime now in effect. lastMod zero forces
// the initial load.
func loadSnippets(eng *engine.Engine, ed *editor.Editor, log *zap.Logger, sess *session.Manager, path string, lastMod time.Time) time.Time {
	mod := time.Time{}
	if info, err := os.Stat(path); err == nil {
		mod = info.ModTime()
	}
	if !lastMod.IsZero() && !mod.After(lastMod) {
		return lastMod
	}

	raws, err := config.LoadSnippetsFile(path)
	if err != nil {
		log.Warn("snippets file unusable", zap.String("path", path), zap.Error(err))
		ed.SetStatusMessage(err.Error())
		if mod.IsZero() {
			return lastMod
		}
		return mod
	}
	if mod.IsZero() {
		// File absent: a missing file is not an empty one. Keep the active
		// list and the persisted fallback untouched so Ctrl+R can still
		// restore the list a previous run saved.
		return lastMod
	}
	res := eng.Snippets().Load(raws)
	if res.Err != "" {
		ed.SetStatusMessage(res.Err)
	} else if sess != nil {
		sess.SetLastValidSnippets(raws)
	}
	return mod
}

func statusLine(st snippet.ValidationStatus) string {
	if st.IsValid {
		return fmt.Sprintf("snippets %d", st.TotalSnippets)
	}
	return fmt.Sprintf("snippets %d/%d invalid: %s", st.InvalidSnippets, st.TotalSnippets, st.LastError)
}

// registerCommands binds the post-expansion command vocabulary to editor
// actions.
func registerCommands(ed *editor.Editor) *command.Registry {
	reg := command.NewRegistry()
	reg.Register("save", func() error {
		return ed.Save("")
	})
	reg.Register("line_start", func() error {
		ed.SetCursorOffset(lineStart(ed.Text(), ed.CursorOffset()))
		return nil
	})
	reg.Register("line_end", func() error {
		ed.SetCursorOffset(lineEnd(ed.Text(), ed.CursorOffset()))
		return nil
	})
	reg.Register("file_start", func() error {
		ed.SetCursorOffset(0)
		return nil
	})
	reg.Register("file_end", func() error {
		ed.SetCursorOffset(len(ed.Text()))
		return nil
	})
	return reg
}

func lineStart(text string, offset int) int {
	for offset > 0 && text[offset-1] != '\n' {
		offset--
	}
	return offset
}

func lineEnd(text string, offset int) int {
	for offset < len(text) && text[offset] != '\n' {
		offset++
	}
	return offset
}
