// Package editor is the terminal text widget the expansion engine attaches
// to. It owns the buffer, the cursor, and key handling, and exposes the
// buffer to the engine through byte offsets.
package editor

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/jeansordes/auto-expander/internal/config"
	"github.com/jeansordes/auto-expander/internal/engine"
)

// Cursor is a buffer position in rows and rune columns.
type Cursor struct {
	Row int
	Col int
}

type Editor struct {
	lines    [][]rune
	cursor   Cursor
	scroll   int
	filename string
	dirty    bool
	lastSave string

	statusMessage string
	engineStatus  string
	viewHeight    int

	styleMain   tcell.Style
	styleStatus tcell.Style
	styleError  tcell.Style

	eng *engine.Engine
	// dispatch, when set, marshals a function onto the event goroutine.
	dispatch func(func())
}

func New(cfg config.Config) *Editor {
	mainFg := parseColor(cfg.Theme.Foreground, tcell.ColorWhite)
	mainBg := parseColor(cfg.Theme.Background, tcell.ColorBlack)
	statusFg := parseColor(cfg.Theme.StatuslineForeground, tcell.ColorBlack)
	statusBg := parseColor(cfg.Theme.StatuslineBackground, tcell.ColorGray)
	errorFg := parseColor(cfg.Theme.ErrorForeground, tcell.ColorRed)
	return &Editor{
		lines:       [][]rune{{}},
		styleMain:   tcell.StyleDefault.Foreground(mainFg).Background(mainBg),
		styleStatus: tcell.StyleDefault.Foreground(statusFg).Background(statusBg),
		styleError:  tcell.StyleDefault.Foreground(errorFg).Background(statusBg),
	}
}

// SetEngine wires the expansion engine into the key path. A nil engine turns
// the editor into a plain text widget.
func (e *Editor) SetEngine(eng *engine.Engine) {
	e.eng = eng
}

// SetDispatcher installs the function Settle uses to marshal work onto the
// event goroutine. Without one, Settle runs callbacks on the calling
// goroutine, which is only safe when all access is single-threaded anyway.
func (e *Editor) SetDispatcher(fn func(func())) {
	e.dispatch = fn
}

func (e *Editor) OpenFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		data = nil
	}
	e.lines = splitLines(data)
	if len(e.lines) == 0 {
		e.lines = [][]rune{{}}
	}
	e.cursor = Cursor{}
	e.scroll = 0
	e.filename = path
	e.statusMessage = ""
	e.lastSave = e.Content()
	e.updateDirty()
	return nil
}

func (e *Editor) Save(path string) error {
	if path == "" {
		if e.filename == "" {
			return errors.New("no file name")
		}
		path = e.filename
	}
	if err := os.WriteFile(path, []byte(e.Content()), 0o644); err != nil {
		return err
	}
	e.filename = path
	e.lastSave = e.Content()
	e.updateDirty()
	return nil
}

func (e *Editor) Content() string {
	return joinLines(e.lines)
}

func (e *Editor) Filename() string { return e.filename }
func (e *Editor) Dirty() bool      { return e.dirty }

func (e *Editor) SetStatusMessage(msg string) { e.statusMessage = msg }

// SetEngineStatus sets the right-hand status segment, where the app surfaces
// snippet validation state.
func (e *Editor) SetEngineStatus(msg string) { e.engineStatus = msg }

// --- engine.Buffer ---

func (e *Editor) Text() string {
	return e.Content()
}

func (e *Editor) CursorOffset() int {
	return e.offsetOf(e.cursor)
}

func (e *Editor) SetCursorOffset(offset int) {
	e.cursor = e.cursorAt(offset)
}

func (e *Editor) ReplaceRange(start, end int, text string) {
	content := e.Content()
	if start < 0 {
		start = 0
	}
	if end > len(content) {
		end = len(content)
	}
	if start > end {
		start = end
	}
	e.lines = splitLines([]byte(content[:start] + text + content[end:]))
	if len(e.lines) == 0 {
		e.lines = [][]rune{{}}
	}
	e.cursor = e.cursorAt(start + len(text))
	e.updateDirty()
}

func (e *Editor) Selection() (int, int, bool) {
	// This widget has no selection support.
	return 0, 0, false
}

// Settle hands fn to the event goroutine and waits for it to finish, so
// post-expansion commands never touch editor state concurrently with key
// handling. Without a dispatcher the caller is the event goroutine already.
func (e *Editor) Settle(fn func()) {
	if e.dispatch == nil {
		fn()
		return
	}
	done := make(chan struct{})
	e.dispatch(func() {
		defer close(done)
		fn()
	})
	<-done
}

// --- key handling ---

// HandleKey processes one key event and reports whether it was consumed.
// Preventable trigger keys go through the engine first; when an expansion
// fires, the engine already mutated the buffer and the key's default effect
// is skipped. Printable keys are applied first and reported as before/after
// snapshots.
func (e *Editor) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyRune:
		if ev.Rune() == ' ' {
			e.preventable("space", func() { e.insertRune(' ') })
			return true
		}
		e.typeRune(ev.Rune())
		return true
	case tcell.KeyTab:
		e.preventable("tab", func() { e.insertRune('\t') })
		return true
	case tcell.KeyEnter:
		e.preventable("enter", e.insertNewline)
		return true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		e.preventable("backspace", e.backspace)
		return true
	case tcell.KeyLeft:
		e.moveCursor(0, -1)
		return true
	case tcell.KeyRight:
		e.moveCursor(0, 1)
		return true
	case tcell.KeyUp:
		e.moveCursor(-1, 0)
		return true
	case tcell.KeyDown:
		e.moveCursor(1, 0)
		return true
	case tcell.KeyHome:
		e.cursor.Col = 0
		return true
	case tcell.KeyEnd:
		e.cursor.Col = len(e.lines[e.cursor.Row])
		return true
	case tcell.KeyPgUp:
		e.moveCursor(-e.viewHeight, 0)
		return true
	case tcell.KeyPgDn:
		e.moveCursor(e.viewHeight, 0)
		return true
	}
	return false
}

// preventable routes a suppressible key: the engine sees it first, and the
// default effect only runs if no expansion fired. For keys that still insert
// text, the insertion is then reported through the snapshot path so instant
// triggers ending in that character can complete.
func (e *Editor) preventable(key string, apply func()) {
	if e.eng != nil && e.eng.KeyDown(key) {
		e.updateDirty()
		return
	}
	if e.eng == nil || key == "backspace" {
		apply()
		e.updateDirty()
		return
	}
	before := engine.Snapshot{Text: e.Text(), Cursor: e.CursorOffset()}
	apply()
	after := engine.Snapshot{Text: e.Text(), Cursor: e.CursorOffset()}
	e.updateDirty()
	e.eng.Inserted(before, after)
}

func (e *Editor) typeRune(r rune) {
	before := engine.Snapshot{Text: e.Text(), Cursor: e.CursorOffset()}
	e.insertRune(r)
	after := engine.Snapshot{Text: e.Text(), Cursor: e.CursorOffset()}
	e.updateDirty()
	if e.eng != nil {
		e.eng.Inserted(before, after)
	}
}

func (e *Editor) insertRune(r rune) {
	line := e.lines[e.cursor.Row]
	col := clamp(e.cursor.Col, 0, len(line))
	line = append(line, 0)
	copy(line[col+1:], line[col:])
	line[col] = r
	e.lines[e.cursor.Row] = line
	e.cursor.Col = col + 1
}

func (e *Editor) insertNewline() {
	line := e.lines[e.cursor.Row]
	col := clamp(e.cursor.Col, 0, len(line))
	rest := append([]rune(nil), line[col:]...)
	e.lines[e.cursor.Row] = line[:col]
	e.lines = append(e.lines, nil)
	copy(e.lines[e.cursor.Row+2:], e.lines[e.cursor.Row+1:])
	e.lines[e.cursor.Row+1] = rest
	e.cursor = Cursor{Row: e.cursor.Row + 1}
}

func (e *Editor) backspace() {
	if e.cursor.Col > 0 {
		line := e.lines[e.cursor.Row]
		col := clamp(e.cursor.Col, 1, len(line))
		e.lines[e.cursor.Row] = append(line[:col-1], line[col:]...)
		e.cursor.Col = col - 1
		return
	}
	if e.cursor.Row == 0 {
		return
	}
	prev := e.lines[e.cursor.Row-1]
	e.cursor = Cursor{Row: e.cursor.Row - 1, Col: len(prev)}
	e.lines[e.cursor.Row] = append(prev, e.lines[e.cursor.Row+1]...)
	e.lines = append(e.lines[:e.cursor.Row+1], e.lines[e.cursor.Row+2:]...)
}

func (e *Editor) moveCursor(dRow, dCol int) {
	e.cursor.Row = clamp(e.cursor.Row+dRow, 0, len(e.lines)-1)
	e.cursor.Col = clamp(e.cursor.Col+dCol, 0, len(e.lines[e.cursor.Row]))
}

// --- rendering ---

func (e *Editor) Render(s tcell.Screen) {
	width, height := s.Size()
	if height < 1 {
		return
	}
	e.viewHeight = height - 1
	e.updateScroll()

	for y := 0; y < e.viewHeight; y++ {
		row := e.scroll + y
		var line []rune
		if row < len(e.lines) {
			line = e.lines[row]
		}
		for x := 0; x < width; x++ {
			r := ' '
			if x < len(line) {
				r = line[x]
			}
			s.SetContent(x, y, r, nil, e.styleMain)
		}
	}

	e.renderStatus(s, width, height-1)
	col := clamp(e.cursor.Col, 0, width-1)
	s.ShowCursor(col, e.cursor.Row-e.scroll)
}

func (e *Editor) renderStatus(s tcell.Screen, width, y int) {
	name := e.filename
	if name == "" {
		name = "[no name]"
	}
	left := " " + name
	if e.dirty {
		left += " [+]"
	}
	if e.statusMessage != "" {
		left += "  " + e.statusMessage
	}
	right := e.engineStatus + " " +
		strconv.Itoa(e.cursor.Row+1) + ":" + strconv.Itoa(e.cursor.Col+1) + " "

	style := e.styleStatus
	if strings.Contains(e.engineStatus, "invalid") {
		style = e.styleError
	}
	for x := 0; x < width; x++ {
		r := ' '
		lr := []rune(left)
		rr := []rune(right)
		switch {
		case x < len(lr):
			r = lr[x]
		case x >= width-len(rr):
			r = rr[x-(width-len(rr))]
		}
		s.SetContent(x, y, r, nil, style)
	}
}

func (e *Editor) updateScroll() {
	if e.viewHeight < 1 {
		return
	}
	if e.cursor.Row < e.scroll {
		e.scroll = e.cursor.Row
	}
	if e.cursor.Row >= e.scroll+e.viewHeight {
		e.scroll = e.cursor.Row - e.viewHeight + 1
	}
}

func (e *Editor) updateDirty() {
	e.dirty = e.Content() != e.lastSave
}

// --- offset mapping ---

func (e *Editor) offsetOf(c Cursor) int {
	offset := 0
	for row := 0; row < c.Row && row < len(e.lines); row++ {
		offset += len(string(e.lines[row])) + 1
	}
	if c.Row < len(e.lines) {
		line := e.lines[c.Row]
		offset += len(string(line[:clamp(c.Col, 0, len(line))]))
	}
	return offset
}

func (e *Editor) cursorAt(offset int) Cursor {
	if offset < 0 {
		offset = 0
	}
	for row, line := range e.lines {
		n := len(string(line))
		if offset <= n {
			col := 0
			rest := offset
			for _, r := range string(line) {
				if rest < len(string(r)) {
					break
				}
				rest -= len(string(r))
				col++
			}
			return Cursor{Row: row, Col: col}
		}
		offset -= n + 1
	}
	last := len(e.lines) - 1
	return Cursor{Row: last, Col: len(e.lines[last])}
}

func splitLines(data []byte) [][]rune {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	parts := strings.Split(text, "\n")
	lines := make([][]rune, len(parts))
	for i, p := range parts {
		lines[i] = []rune(p)
	}
	return lines
}

func joinLines(lines [][]rune) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(line))
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func parseColor(name string, fallback tcell.Color) tcell.Color {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if strings.HasPrefix(name, "#") && len(name) == 7 {
		r, err1 := strconv.ParseInt(name[1:3], 16, 32)
		g, err2 := strconv.ParseInt(name[3:5], 16, 32)
		b, err3 := strconv.ParseInt(name[5:7], 16, 32)
		if err1 == nil && err2 == nil && err3 == nil {
			return tcell.NewRGBColor(int32(r), int32(g), int32(b))
		}
		return fallback
	}
	name = strings.ToLower(name)
	if name == "default" {
		return tcell.ColorDefault
	}
	c := tcell.GetColor(name)
	if c == tcell.ColorDefault {
		return fallback
	}
	return c
}
