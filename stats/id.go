// Package stats implements the structured statistics logger: hierarchical
// Ids, a closed Value sum type, a Logger capability interface, and the
// ChunkedLogger concrete sink.
//
// Grounded on the use of plain strings and ad-hoc maps for
// telemetry (tracker.Tracker, expreplay.ExpReplay's internal counters);
// this package generalizes that into the scoped hierarchical
// identifier and variant-checked value model, still built on sync.Mutex
// the way expreplay/ExpReplay.go guards its own shared cache.
package stats

import (
	"fmt"
	"strings"
)

// Id is a hierarchical log identifier: name := segment ("/" segment)*.
// Segments are non-empty and contain no "/".
type Id []string

// NewId parses a slash-separated name into an Id, validating the
// grammar described above.
func NewId(name string) (Id, error) {
	segs := strings.Split(name, "/")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("stats: invalid id %q: empty segment", name)
		}
	}
	return Id(segs), nil
}

// MustId panics if name does not parse; intended for static id literals.
func MustId(name string) Id {
	id, err := NewId(name)
	if err != nil {
		panic(err)
	}
	return id
}

// String renders the id back as a slash-separated name.
func (id Id) String() string { return strings.Join(id, "/") }

// Prepend returns a new id with scope's segments added on the left.
func (id Id) Prepend(scope Id) Id {
	out := make(Id, 0, len(scope)+len(id))
	out = append(out, scope...)
	out = append(out, id...)
	return out
}
