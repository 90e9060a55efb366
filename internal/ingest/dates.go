package ingest

import (
	"strconv"
	"strings"
	"time"
)

// isoLayouts are tried first; they are unambiguous.
var isoLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05Z07:00",
}

// namedLayouts cover month names, which dateutil also accepts.
var namedLayouts = []string{
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
}

// ParseDayFirst parses a calendar date read as day-first: d/m/yyyy, d/m/yy,
// d-m-yyyy, d.m.yyyy, ISO yyyy-mm-dd and time-suffixed variants. When the
// day-first reading is impossible but month-first works (e.g. 12/31/2024) the
// month-first reading is used. The time of day is discarded. ok is false when
// nothing parses.
func ParseDayFirst(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t), true
		}
	}
	for _, layout := range namedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t), true
		}
	}

	datePart := s
	if i := strings.IndexAny(s, " T"); i > 0 {
		datePart = s[:i]
	}
	parts := splitDate(datePart)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, false
		}
		nums[i] = n
	}

	var y, m, d int
	if len(parts[0]) == 4 {
		y, m, d = nums[0], nums[1], nums[2]
	} else {
		d, m, y = nums[0], nums[1], nums[2]
		if len(parts[2]) <= 2 {
			y = expandYear(y)
		}
		if m > 12 && d <= 12 {
			d, m = m, d
		}
	}
	return civil(y, m, d)
}

func splitDate(s string) []string {
	for _, sep := range []string{"/", "-", "."} {
		if strings.Count(s, sep) == 2 {
			return strings.Split(s, sep)
		}
	}
	return nil
}

// expandYear maps two-digit years the way time.Parse does for "06".
func expandYear(y int) int {
	if y >= 69 {
		return 1900 + y
	}
	return 2000 + y
}

func civil(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
