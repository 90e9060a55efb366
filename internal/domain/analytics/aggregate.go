package analytics

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/okian/nutrimon/internal/domain/model"
)

// Query selects the records one dashboard view is computed over.
type Query struct {
	Username string
	Crop     string
	// Dates is the selected set of calendar days. Empty selects nothing.
	Dates []time.Time
	// Site optionally scopes the trend to one site. Empty means all sites.
	Site string
}

// ClassifiedRecord is a filtered sample with its classification.
type ClassifiedRecord struct {
	model.SampleRecord
	Classification
}

// TrendPoint is the per-nutrient mean of one calendar day.
type TrendPoint struct {
	Date  time.Time
	Count int
	Mean  model.Nutrients[float64]
}

// View is the derived dashboard state for one Query. It is never persisted.
type View struct {
	Count      int
	Optimal    int
	PctOptimal float64
	InRange    model.Nutrients[int]
	// Mean is NaN per nutrient when Count is 0.
	Mean    model.Nutrients[float64]
	Records []ClassifiedRecord
	Trend   []TrendPoint
	Sites   []string
}

// Empty reports whether no record matched.
func (v View) Empty() bool { return v.Count == 0 }

// Aggregate filters records by q and computes KPIs, means, and the trend series.
//
// The trend ignores the date filter and uses every dated record of the user and
// crop, scoped to q.Site when set. It is empty when no date is selected.
func Aggregate(records []model.SampleRecord, q Query, ranges Ranges) View {
	v := View{Mean: nanNutrients()}
	if len(q.Dates) == 0 {
		return v
	}

	selected := make(map[time.Time]struct{}, len(q.Dates))
	for _, d := range q.Dates {
		selected[Day(d)] = struct{}{}
	}

	var sum model.Nutrients[float64]
	sites := map[string]struct{}{}
	for _, rec := range records {
		if !matches(rec, q.Username, q.Crop) || !rec.HasDate() {
			continue
		}
		if _, ok := selected[Day(rec.Date)]; !ok {
			continue
		}
		c := Classify(rec, ranges)
		v.Records = append(v.Records, ClassifiedRecord{SampleRecord: rec.Clone(), Classification: c})
		v.Count++
		if c.FullyOptimal {
			v.Optimal++
		}
		for _, n := range model.AllNutrients {
			sum.Set(n, sum.Get(n)+rec.Values().Get(n))
			if c.InRange.Get(n) {
				v.InRange.Set(n, v.InRange.Get(n)+1)
			}
		}
		if rec.Site != "" {
			sites[rec.Site] = struct{}{}
		}
	}

	if v.Count > 0 {
		v.PctOptimal = float64(v.Optimal) / float64(v.Count) * 100
		for _, n := range model.AllNutrients {
			v.Mean.Set(n, sum.Get(n)/float64(v.Count))
		}
	}
	v.Sites = sortedKeys(sites)
	v.Trend = Trend(records, q.Username, q.Crop, q.Site)
	return v
}

// Trend groups dated records of username and crop by day, ascending, with
// per-nutrient means. An empty site averages across all sites.
func Trend(records []model.SampleRecord, username, crop, site string) []TrendPoint {
	type acc struct {
		count int
		sum   model.Nutrients[float64]
	}
	byDay := map[time.Time]*acc{}
	for _, rec := range records {
		if !matches(rec, username, crop) || !rec.HasDate() {
			continue
		}
		if site != "" && rec.Site != site {
			continue
		}
		d := Day(rec.Date)
		a := byDay[d]
		if a == nil {
			a = &acc{}
			byDay[d] = a
		}
		a.count++
		for _, n := range model.AllNutrients {
			a.sum.Set(n, a.sum.Get(n)+rec.Values().Get(n))
		}
	}

	out := make([]TrendPoint, 0, len(byDay))
	for d, a := range byDay {
		p := TrendPoint{Date: d, Count: a.count}
		for _, n := range model.AllNutrients {
			p.Mean.Set(n, a.sum.Get(n)/float64(a.count))
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b TrendPoint) int { return a.Date.Compare(b.Date) })
	return out
}

// Day truncates t to its calendar day at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func matches(rec model.SampleRecord, username, crop string) bool {
	return rec.Username == username && rec.Crop == crop
}

func nanNutrients() model.Nutrients[float64] {
	nan := math.NaN()
	return model.Nutrients[float64]{N: nan, P: nan, K: nan}
}

func sortedKeys[K cmp.Ordered](m map[K]struct{}) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
