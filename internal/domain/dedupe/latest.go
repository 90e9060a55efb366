// Package dedupe collapses duplicate remote items and tracks seen row keys.
package dedupe

import (
	"github.com/okian/nutrimon/internal/domain/model"
)

// Candidate is an eligible remote item paired with its resolved local name.
type Candidate struct {
	Target string
	Ref    model.RemoteFileRef
}

// Latest keeps at most one candidate per target.
//
// A later candidate replaces the kept one only when both timestamps parse and
// the later one is strictly newer. Absent or unparsable timestamps on either
// side keep the first encountered. Output follows first-seen target order.
func Latest(cands []Candidate) []Candidate {
	index := make(map[string]int, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		i, seen := index[c.Target]
		if !seen {
			index[c.Target] = len(out)
			out = append(out, c)
			continue
		}
		if newer(c.Ref, out[i].Ref) {
			out[i] = c
		}
	}
	return out
}

// newer reports whether a was modified strictly after b.
func newer(a, b model.RemoteFileRef) bool {
	ta, okA := a.Modified()
	tb, okB := b.Modified()
	if !okA || !okB {
		return false
	}
	return ta.After(tb)
}
