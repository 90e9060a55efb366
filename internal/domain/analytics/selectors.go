package analytics

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/nutrimon/internal/domain/model"
)

// DateLayout is the short day-first format used for date selectors.
const DateLayout = "02/01/06"

// excludedCrops never show up as selectable crops.
var excludedCrops = map[string]struct{}{
	"logo":    {},
	"icon":    {},
	"unknown": {},
	"nan":     {},
	"none":    {},
}

// Crops lists the user's crops in first-seen order, skipping empty and
// placeholder values.
func Crops(records []model.SampleRecord, username string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, rec := range records {
		if rec.Username != username {
			continue
		}
		crop := strings.TrimSpace(rec.Crop)
		if crop == "" {
			continue
		}
		if _, skip := excludedCrops[strings.ToLower(crop)]; skip {
			continue
		}
		if _, dup := seen[rec.Crop]; dup {
			continue
		}
		seen[rec.Crop] = struct{}{}
		out = append(out, rec.Crop)
	}
	return out
}

// Dates lists the distinct sample days for username and crop, ascending.
func Dates(records []model.SampleRecord, username, crop string) []time.Time {
	days := map[time.Time]struct{}{}
	for _, rec := range records {
		if matches(rec, username, crop) && rec.HasDate() {
			days[Day(rec.Date)] = struct{}{}
		}
	}
	out := make([]time.Time, 0, len(days))
	for d := range days {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

// FormatDate renders a day as dd/mm/yy.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDates parses a comma-separated dd/mm/yy list. Blank items are skipped.
func ParseDates(s string) ([]time.Time, error) {
	var out []time.Time
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := time.Parse(DateLayout, part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadDate, part)
		}
		out = append(out, t)
	}
	return out, nil
}
