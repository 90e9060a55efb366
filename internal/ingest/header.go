package ingest

import (
	"fmt"
	"strings"
)

// Canonical column names.
const (
	ColUsername = "username"
	ColCrop     = "crop"
	ColSite     = "site"
	ColSample   = "sample"
	ColDate     = "date"
	ColN        = "N"
	ColP        = "P"
	ColK        = "K"
	ColPassword = "password"
)

const bom = "\uFEFF"

var canonical = map[string]string{
	"username":  ColUsername,
	"crop":      ColCrop,
	"site":      ColSite,
	"sample":    ColSample,
	"sample_id": ColSample,
	"sampleid":  ColSample,
	"date":      ColDate,
	"n":         ColN,
	"p":         ColP,
	"k":         ColK,
	"password":  ColPassword,
}

// normalizeHeader trims names, strips a BOM, maps known names to their
// canonical spelling case-insensitively and renames a legacy "user" column to
// "username" unless one already exists. Blank names become "Unnamed: i";
// later duplicates get a ".n" suffix.
func normalizeHeader(raw []string) []string {
	out := make([]string, len(raw))
	hasUsername := false
	for _, h := range raw {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, bom)), ColUsername) {
			hasUsername = true
		}
	}

	seen := map[string]int{}
	for i, h := range raw {
		name := strings.TrimSpace(strings.TrimPrefix(h, bom))
		lower := strings.ToLower(name)
		switch {
		case name == "":
			name = fmt.Sprintf("Unnamed: %d", i)
		case lower == "user" && !hasUsername:
			name = ColUsername
		default:
			if c, ok := canonical[lower]; ok {
				name = c
			}
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
