package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/nutrimon/internal/domain/analytics"
	"github.com/okian/nutrimon/internal/domain/model"
)

type nutrientsJSON struct {
	N *float64 `json:"N"`
	P *float64 `json:"P"`
	K *float64 `json:"K"`
}

// finite converts NaN and Inf to null.
func finite(v model.Nutrients[float64]) nutrientsJSON {
	ptr := func(x float64) *float64 {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return &x
	}
	return nutrientsJSON{N: ptr(v.N), P: ptr(v.P), K: ptr(v.K)}
}

type recordJSON struct {
	Username     string                `json:"username"`
	Crop         string                `json:"crop"`
	Site         string                `json:"site,omitempty"`
	SampleID     string                `json:"sample,omitempty"`
	Date         string                `json:"date,omitempty"`
	N            float64               `json:"N"`
	P            float64               `json:"P"`
	K            float64               `json:"K"`
	InRange      model.Nutrients[bool] `json:"in_range"`
	FullyOptimal bool                  `json:"fully_optimal"`
	Extra        map[string]string     `json:"extra,omitempty"`
}

type trendJSON struct {
	Date  string        `json:"date"`
	Count int           `json:"count"`
	Mean  nutrientsJSON `json:"mean"`
}

type viewJSON struct {
	Count      int                  `json:"count"`
	Optimal    int                  `json:"optimal"`
	PctOptimal float64              `json:"pct_optimal"`
	InRange    model.Nutrients[int] `json:"in_range"`
	Mean       nutrientsJSON        `json:"mean"`
	Ranges     analytics.Ranges     `json:"ranges"`
	Records    []recordJSON         `json:"records"`
	Trend      []trendJSON          `json:"trend"`
	Sites      []string             `json:"sites"`
}

func formatDate(rec model.SampleRecord) string {
	if !rec.HasDate() {
		return ""
	}
	return analytics.FormatDate(rec.Date)
}

func toRecordJSON(rec model.SampleRecord, c analytics.Classification) recordJSON {
	return recordJSON{
		Username:     rec.Username,
		Crop:         rec.Crop,
		Site:         rec.Site,
		SampleID:     rec.SampleID,
		Date:         formatDate(rec),
		N:            rec.N,
		P:            rec.P,
		K:            rec.K,
		InRange:      c.InRange,
		FullyOptimal: c.FullyOptimal,
		Extra:        rec.Extra,
	}
}

func toViewJSON(v analytics.View, ranges analytics.Ranges) viewJSON {
	out := viewJSON{
		Count:      v.Count,
		Optimal:    v.Optimal,
		PctOptimal: v.PctOptimal,
		InRange:    v.InRange,
		Mean:       finite(v.Mean),
		Ranges:     ranges,
		Records:    make([]recordJSON, len(v.Records)),
		Trend:      make([]trendJSON, len(v.Trend)),
		Sites:      v.Sites,
	}
	if out.Sites == nil {
		out.Sites = []string{}
	}
	for i, r := range v.Records {
		out.Records[i] = toRecordJSON(r.SampleRecord, r.Classification)
	}
	for i, p := range v.Trend {
		out.Trend[i] = trendJSON{Date: analytics.FormatDate(p.Date), Count: p.Count, Mean: finite(p.Mean)}
	}
	return out
}

// handleCrops handles GET /crops.
func (s *Server) handleCrops(w http.ResponseWriter, r *http.Request) {
	crops := s.deps.Crops(r.Context(), username(r))
	if crops == nil {
		crops = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"crops": crops})
}

// handleDates handles GET /dates?crop=.
func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	crop := strings.TrimSpace(r.URL.Query().Get("crop"))
	if crop == "" {
		writeError(w, NewKind("dates", ErrBadRequest, "crop is required"))
		return
	}
	dates := s.deps.Dates(r.Context(), username(r), crop)
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = analytics.FormatDate(d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": out})
}

// handleAggregate handles GET /aggregate?crop=&dates=d/m/yy,...&all_dates=true&site=.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	crop := strings.TrimSpace(q.Get("crop"))
	if crop == "" {
		writeError(w, NewKind("aggregate", ErrBadRequest, "crop is required"))
		return
	}
	user := username(r)
	query := analytics.Query{Username: user, Crop: crop, Site: strings.TrimSpace(q.Get("site"))}

	if all, _ := strconv.ParseBool(q.Get("all_dates")); all {
		query.Dates = s.deps.Dates(r.Context(), user, crop)
	} else {
		dates, err := analytics.ParseDates(q.Get("dates"))
		if err != nil {
			writeError(w, WrapKind("aggregate", ErrBadRequest, err))
			return
		}
		query.Dates = dates
	}

	view := s.deps.Aggregate(r.Context(), query)
	writeJSON(w, http.StatusOK, toViewJSON(view, s.deps.Ranges()))
}

// handleDataset handles GET /dataset?crop=, the raw rows behind the view.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	crop := strings.TrimSpace(r.URL.Query().Get("crop"))
	records, columns := s.deps.Records(r.Context(), username(r), crop)
	ranges := s.deps.Ranges()
	rows := make([]recordJSON, len(records))
	for i, rec := range records {
		rows[i] = toRecordJSON(rec, analytics.Classify(rec, ranges))
	}
	if columns == nil {
		columns = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": columns, "rows": rows})
}
