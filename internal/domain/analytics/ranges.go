// Package analytics classifies samples against optimal nutrient ranges and
// computes the dashboard aggregates. Every function is pure.
package analytics

import (
	"github.com/okian/nutrimon/internal/domain/model"
)

// Range is an inclusive [Min, Max] band.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the band, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Ranges holds the optimal band per nutrient.
type Ranges = model.Nutrients[Range]

// DefaultRanges returns the agronomic defaults.
func DefaultRanges() Ranges {
	return Ranges{
		N: Range{Min: 1.6, Max: 2.2},
		P: Range{Min: 0.06, Max: 0.12},
		K: Range{Min: 0.6, Max: 1.0},
	}
}

// Classification flags each nutrient of one sample.
type Classification struct {
	InRange      model.Nutrients[bool]
	FullyOptimal bool
}

// Classify compares rec against ranges.
func Classify(rec model.SampleRecord, ranges Ranges) Classification {
	var c Classification
	for _, n := range model.AllNutrients {
		c.InRange.Set(n, ranges.Get(n).Contains(rec.Values().Get(n)))
	}
	c.FullyOptimal = c.InRange.N && c.InRange.P && c.InRange.K
	return c
}
