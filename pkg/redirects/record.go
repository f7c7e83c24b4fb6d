// Package redirects provides the redirect stores consulted by the not-found
// handler: a static list loaded from a YAML file, an optional SQL backed
// provider with an LRU cache in front of it, and a file watcher that reloads
// the static list when it changes.
//
// Lookup is exact on normalized URLs. Authoring and pattern matching are out
// of scope.
package redirects

import (
	"fmt"
	"net/url"
	"strings"
)

// State is the lifecycle state of a redirect record.
type State int

const (
	// StateSaved marks a record that is live and may be acted on.
	StateSaved State = iota
	// StateDeleted marks a record that has been removed.
	StateDeleted
	// StateNew marks a record that has not been reviewed yet.
	StateNew
)

func (s State) String() string {
	switch s {
	case StateDeleted:
		return "deleted"
	case StateNew:
		return "new"
	default:
		return "saved"
	}
}

// ParseState parses a state name. An empty name means saved.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "saved":
		return StateSaved, nil
	case "deleted":
		return StateDeleted, nil
	case "new":
		return StateNew, nil
	}
	return StateSaved, fmt.Errorf("unknown redirect state %q", s)
}

// Origin tells which store a record came from.
type Origin int

const (
	OriginStatic Origin = iota
	OriginProvider
)

func (o Origin) String() string {
	if o == OriginProvider {
		return "provider"
	}
	return "static"
}

// Record maps an old URL to a new one.
type Record struct {
	OldURL string
	NewURL string
	State  State
	Origin Origin
}

// NormalizeKey lower-cases a URL or path and trims a trailing slash, except
// for the root path.
func NormalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) > 1 && strings.HasSuffix(s, "/") {
		s = strings.TrimRight(s, "/")
		if s == "" || strings.HasSuffix(s, ":/") {
			s += "/"
		}
	}
	return s
}

// lookupKeys returns the normalized keys tried for u, most specific first:
// the absolute URL, the path with query, then the bare path.
func lookupKeys(u *url.URL) []string {
	keys := make([]string, 0, 3)
	seen := make(map[string]bool, 3)
	add := func(k string) {
		k = NormalizeKey(k)
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	if u.IsAbs() {
		add(u.String())
	}
	add(u.RequestURI())
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	add(p)
	return keys
}

// lookupKeysFromString parses raw and returns its lookup keys. Unparsable
// input is tried verbatim.
func lookupKeysFromString(raw string) []string {
	u, err := url.Parse(raw)
	if err != nil {
		return []string{NormalizeKey(raw)}
	}
	return lookupKeys(u)
}
