package snippet

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jeansordes/auto-expander/internal/trigger"
)

// LoadResult reports the outcome of one snippet-list load.
type LoadResult struct {
	Err     string
	Invalid []Parsed
}

// ValidationStatus is the summary the settings surface renders.
type ValidationStatus struct {
	IsValid         bool
	TotalSnippets   int
	ValidSnippets   int
	InvalidSnippets int
	LastError       string
	CanReset        bool
}

// Manager owns the active snippet list. Every load rebuilds the parsed list
// and the activation index wholesale and swaps them atomically; readers see
// either the old or the new complete snapshot, never a partial one. The last
// fully-valid raw list is retained so the user can reset after introducing a
// validation error.
type Manager struct {
	log   *zap.Logger
	cache *trigger.Cache

	mu        sync.RWMutex
	parsed    []Parsed
	index     map[string][]Parsed
	lastValid []Raw
	lastErr   string
}

func NewManager(log *zap.Logger, cache *trigger.Cache) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cache == nil {
		cache = trigger.NewCache()
	}
	return &Manager{
		log:   log,
		cache: cache,
		index: make(map[string][]Parsed),
	}
}

// Load replaces the active snippet list. Duplicate triggers mark the later
// occurrence invalid and exclude it from the index, but the rest of the list
// stays matchable. The compiled-trigger cache is invalidated so patterns are
// rebuilt against the new list.
func (m *Manager) Load(raw []Raw) LoadResult {
	m.cache.Invalidate()

	parsed := make([]Parsed, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	var invalid []Parsed
	for i, r := range raw {
		p := Parsed{
			ID:          i,
			Trigger:     r.Trigger,
			Replacement: append([]string(nil), r.Replacement...),
			Commands:    append([]string(nil), r.Commands...),
			Valid:       true,
		}
		switch {
		case r.Trigger == "":
			p.Valid = false
			p.Err = "Empty trigger"
		case seen[r.Trigger]:
			p.Valid = false
			p.Err = "Duplicate trigger"
		default:
			seen[r.Trigger] = true
			ct := m.cache.Get(r.Trigger)
			p.Options = optionList(ct)
		}
		if !p.Valid {
			invalid = append(invalid, p)
		}
		parsed = append(parsed, p)
	}

	index := buildIndex(parsed)

	lastErr := ""
	if len(invalid) > 0 {
		lastErr = invalid[0].Err
	}

	m.mu.Lock()
	m.parsed = parsed
	m.index = index
	m.lastErr = lastErr
	if len(invalid) == 0 {
		// Non-nil even for an empty list: a successful load is a reset
		// point regardless of how many snippets it carried.
		last := make([]Raw, len(raw))
		copy(last, raw)
		m.lastValid = last
	}
	m.mu.Unlock()

	m.log.Info("snippets loaded",
		zap.Int("total", len(parsed)),
		zap.Int("invalid", len(invalid)))
	return LoadResult{Err: lastErr, Invalid: invalid}
}

// Parsed returns the active snippet list in declaration order.
func (m *Manager) Parsed() []Parsed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parsed
}

// Map returns the activation-kind index: each declared kind to the snippets
// using it, in declaration order. A snippet may appear under several kinds.
func (m *Manager) Map() map[string][]Parsed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index
}

// Candidates returns the snippets responding to the given activation kind,
// in declaration order, folding the enter/newline alias into one list.
func (m *Manager) Candidates(kind string) []Parsed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	primary := m.index[kind]
	var alias []Parsed
	switch kind {
	case trigger.KindEnter:
		alias = m.index[trigger.KindNewline]
	case trigger.KindNewline:
		alias = m.index[trigger.KindEnter]
	}
	if len(alias) == 0 {
		return primary
	}
	return mergeByID(primary, alias)
}

// Valid reports whether every snippet in the active list is valid. Any
// invalid snippet blocks expansion entirely until resolved or reset.
func (m *Manager) Valid() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.parsed {
		if !p.Valid {
			return false
		}
	}
	return true
}

// LastError returns the most recent validation error message, if any.
func (m *Manager) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// ResetToLastValid reloads the last fully-valid snippet list. It reports
// whether such a list existed.
func (m *Manager) ResetToLastValid() bool {
	m.mu.RLock()
	last := m.lastValid
	m.mu.RUnlock()
	if last == nil {
		return false
	}
	m.Load(last)
	return true
}

// Status summarizes the list for the settings surface.
func (m *Manager) Status() ValidationStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := ValidationStatus{
		TotalSnippets: len(m.parsed),
		LastError:     m.lastErr,
		CanReset:      m.lastValid != nil,
	}
	for _, p := range m.parsed {
		if p.Valid {
			st.ValidSnippets++
		} else {
			st.InvalidSnippets++
		}
	}
	st.IsValid = st.InvalidSnippets == 0
	return st
}

func buildIndex(parsed []Parsed) map[string][]Parsed {
	index := make(map[string][]Parsed)
	for _, p := range parsed {
		if !p.Valid {
			continue
		}
		for _, kind := range p.Options {
			index[kind] = append(index[kind], p)
		}
	}
	return index
}

// optionList flattens a compiled trigger's activation set in a stable order.
func optionList(ct *trigger.Compiled) []string {
	all := []string{
		trigger.KindInstant,
		trigger.KindSpace,
		trigger.KindTab,
		trigger.KindEnter,
		trigger.KindNewline,
		trigger.KindBackspace,
	}
	var out []string
	for _, k := range all {
		if ct.Options[k] {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		out = []string{trigger.KindInstant}
	}
	return out
}

// mergeByID interleaves two declaration-ordered lists back into a single
// declaration-ordered list without duplicates.
func mergeByID(a, b []Parsed) []Parsed {
	out := make([]Parsed, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].ID < b[j].ID:
			out = append(out, a[i])
			i++
		case a[i].ID > b[j].ID:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
