package model

import (
	"maps"
	"slices"
	"time"
)

// Nutrient names a measured soil nutrient.
type Nutrient string

const (
	N Nutrient = "N"
	P Nutrient = "P"
	K Nutrient = "K"
)

// AllNutrients lists nutrients in display order.
var AllNutrients = []Nutrient{N, P, K}

// Nutrients holds one value per nutrient.
type Nutrients[T any] struct {
	N, P, K T
}

// Get returns the value for n.
func (v Nutrients[T]) Get(n Nutrient) T {
	switch n {
	case P:
		return v.P
	case K:
		return v.K
	default:
		return v.N
	}
}

// Set stores x for n.
func (v *Nutrients[T]) Set(n Nutrient, x T) {
	switch n {
	case P:
		v.P = x
	case K:
		v.K = x
	default:
		v.N = x
	}
}

// SampleRecord is one soil measurement. N, P and K are always present and finite;
// rows that fail this are dropped during ingestion.
type SampleRecord struct {
	Username string
	Crop     string
	Site     string
	SampleID string
	Date     time.Time // calendar date at midnight UTC; zero when missing
	N, P, K  float64

	// Extra holds unrecognized columns verbatim. It is never interpreted.
	Extra map[string]string

	// Source is the local file the row came from.
	Source string
}

// HasDate reports whether the date column parsed.
func (r SampleRecord) HasDate() bool { return !r.Date.IsZero() }

// Values returns N, P and K as a Nutrients.
func (r SampleRecord) Values() Nutrients[float64] {
	return Nutrients[float64]{N: r.N, P: r.P, K: r.K}
}

// Clone returns a copy that shares no mutable state with r.
func (r SampleRecord) Clone() SampleRecord {
	if r.Extra != nil {
		r.Extra = maps.Clone(r.Extra)
	}
	return r
}

// UserRecord is a credential row from the users file.
type UserRecord struct {
	Username string
	Password string
}

// Dataset is the concatenation of every measurement file.
type Dataset struct {
	Records []SampleRecord
	// Columns is the union of normalized column names in first-seen order.
	Columns []string
}

// Clone deep-copies the dataset.
func (d Dataset) Clone() Dataset {
	out := Dataset{Columns: slices.Clone(d.Columns)}
	if d.Records != nil {
		out.Records = make([]SampleRecord, len(d.Records))
		for i, r := range d.Records {
			out.Records[i] = r.Clone()
		}
	}
	return out
}
