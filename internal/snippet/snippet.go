// Package snippet holds the user's snippet list: the raw records handed over
// by the configuration layer, their validated parsed form, and the
// activation-kind index consulted on every qualifying edit event.
package snippet

// Raw is one user-authored snippet record as the configuration layer parses
// it: a required trigger plus optional replacement lines and follow-up
// command identifiers. The whole list is replaced wholesale on every config
// reload; individual records are never patched.
type Raw struct {
	Trigger     string   `json:"trigger"`
	Replacement []string `json:"replacement,omitempty"`
	Commands    []string `json:"commands,omitempty"`
}

// Parsed is the validated form of one Raw snippet. ID is the snippet's
// ordinal position in the list and fixes the tie-break order when several
// triggers match the same event.
type Parsed struct {
	ID          int
	Trigger     string
	Replacement []string
	Commands    []string
	// Options are the activation kinds the trigger declared; empty
	// declarations default to instant at index-build time.
	Options []string
	Valid   bool
	Err     string
}
