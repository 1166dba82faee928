package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/jeansordes/auto-expander/internal/snippet"
)

// ErrInvalidSnippets marks a structurally unusable snippets file: not JSON,
// not an array, or a record missing its trigger. Per-snippet semantic errors
// (duplicates, empty triggers) are not file errors; the snippet manager
// reports those per entry.
var ErrInvalidSnippets = errors.New("invalid snippets file")

// LoadSnippetsFile reads and parses the snippet definitions at path. A missing
// file is an empty list, not an error, so a fresh install starts clean.
func LoadSnippetsFile(path string) ([]snippet.Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseSnippets(data)
}

// ParseSnippets decodes a snippets document: a JSON array of records with a
// required "trigger" string and optional "replacement" and "commands" fields,
// each either a single string or an array of strings.
func ParseSnippets(data []byte) ([]snippet.Raw, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidSnippets)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: top level must be an array", ErrInvalidSnippets)
	}

	var out []snippet.Raw
	var parseErr error
	doc.ForEach(func(_, item gjson.Result) bool {
		i := len(out)
		if !item.IsObject() {
			parseErr = fmt.Errorf("%w: snippet %d is not an object", ErrInvalidSnippets, i)
			return false
		}
		trig := item.Get("trigger")
		if trig.Type != gjson.String {
			parseErr = fmt.Errorf("%w: snippet %d has no trigger string", ErrInvalidSnippets, i)
			return false
		}
		out = append(out, snippet.Raw{
			Trigger:     trig.String(),
			Replacement: stringList(item.Get("replacement")),
			Commands:    stringList(item.Get("commands")),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

// stringList accepts both spellings a field allows: one string, or an array
// of strings. Non-string array elements are stringified the way gjson renders
// them rather than rejected.
func stringList(v gjson.Result) []string {
	switch {
	case !v.Exists():
		return nil
	case v.IsArray():
		arr := v.Array()
		out := make([]string, 0, len(arr))
		for _, e := range arr {
			out = append(out, e.String())
		}
		return out
	default:
		return []string{v.String()}
	}
}
