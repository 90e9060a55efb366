// Package ingest reads the local CSV files into one typed record stream and
// caches the result.
//
// Ingestion never fails as a whole: unreadable directories yield empty
// results and a broken file is skipped with a log entry.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/jszwec/csvutil"

	"github.com/okian/nutrimon/internal/domain/dedupe"
	"github.com/okian/nutrimon/internal/domain/model"
	"github.com/okian/nutrimon/pkg/logger"
	"github.com/okian/nutrimon/pkg/metrics"
)

// Files locates the local inputs.
type Files interface {
	DataCSVs() ([]string, error)
	UsersPath() string
}

// Stats summarizes one Load.
type Stats struct {
	Files          int      `json:"files"`
	FilesSkipped   int      `json:"files_skipped"`
	Skipped        []string `json:"skipped,omitempty"`
	Rows           int      `json:"rows"`
	Records        int      `json:"records"`
	Duplicates     int      `json:"duplicates"`
	DroppedMissing int      `json:"dropped_missing"`
	BadDates       int      `json:"bad_dates"`
	Users          int      `json:"users"`
}

// Ingestor parses the data directory.
type Ingestor struct {
	files  Files
	logger logger.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the ingest logger.
func WithLogger(l logger.Logger) Option {
	return func(in *Ingestor) {
		if l != nil {
			in.logger = l
		}
	}
}

// New creates an Ingestor over files.
func New(files Files, opts ...Option) *Ingestor {
	in := &Ingestor{files: files, logger: logger.Get().Named("ingest")}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// sampleRow maps canonical columns. Values are parsed after decoding so that
// invalid numbers become missing instead of failing the file.
type sampleRow struct {
	Username string `csv:"username"`
	Crop     string `csv:"crop"`
	Site     string `csv:"site"`
	Sample   string `csv:"sample"`
	Date     string `csv:"date"`
	N        string `csv:"N"`
	P        string `csv:"P"`
	K        string `csv:"K"`
}

type userRow struct {
	Username string `csv:"username"`
	Password string `csv:"password"`
}

// parsed is one row before the drop rules run.
type parsed struct {
	rec      model.SampleRecord
	complete bool
	key      uint64
}

// Load reads users and every measurement file. It never returns an error.
func (in *Ingestor) Load(ctx context.Context) ([]model.UserRecord, model.Dataset, Stats) {
	var stats Stats
	users := in.loadUsers(ctx)
	stats.Users = len(users)

	paths, err := in.files.DataCSVs()
	if err != nil {
		in.logger.Warn(ctx, "data dir unreadable", logger.Error(err))
		return users, model.Dataset{}, stats
	}

	var rows []parsed
	var columns []string
	colSeen := map[string]bool{}
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		stats.Files++
		fileRows, header, badDates, err := parseFile(p)
		if err != nil {
			stats.FilesSkipped++
			stats.Skipped = append(stats.Skipped, fmt.Sprintf("%s: %v", filepath.Base(p), err))
			metrics.RecordIngestFile("skipped")
			in.logger.Warn(ctx, "skipping unreadable file", logger.String("file", filepath.Base(p)), logger.Error(err))
			continue
		}
		metrics.RecordIngestFile("loaded")
		for _, h := range header {
			if !colSeen[h] {
				colSeen[h] = true
				columns = append(columns, h)
			}
		}
		stats.BadDates += badDates
		rows = append(rows, fileRows...)
	}
	stats.Rows = len(rows)

	seen := dedupe.NewSet(dedupe.WithCapacity(len(rows)))
	ds := model.Dataset{Columns: columns}
	for _, r := range rows {
		if seen.SeenAndRecord(r.key) {
			stats.Duplicates++
			continue
		}
		if !r.complete {
			stats.DroppedMissing++
			continue
		}
		ds.Records = append(ds.Records, r.rec)
	}
	stats.Records = len(ds.Records)

	metrics.UpdateIngestRecords(stats.Records)
	metrics.RecordIngestDropped("duplicate", stats.Duplicates)
	metrics.RecordIngestDropped("missing_npk", stats.DroppedMissing)
	in.logger.Info(ctx, "dataset loaded",
		logger.Int("files", stats.Files),
		logger.Int("skipped", stats.FilesSkipped),
		logger.Int("records", stats.Records),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int64("distinct_rows", seen.Size()),
		logger.Int("dropped_missing", stats.DroppedMissing),
		logger.Int("users", stats.Users))
	return users, ds, stats
}

func (in *Ingestor) loadUsers(ctx context.Context) []model.UserRecord {
	path := in.files.UsersPath()
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			in.logger.Warn(ctx, "users file unreadable", logger.Error(err))
		}
		return nil
	}
	defer f.Close()

	dec, _, err := newDecoder(f)
	if err != nil {
		in.logger.Warn(ctx, "users file unparsable", logger.Error(err))
		return nil
	}
	var out []model.UserRecord
	for {
		var row userRow
		if err := dec.Decode(&row); err != nil {
			if !errors.Is(err, io.EOF) {
				in.logger.Warn(ctx, "users file unparsable", logger.Error(err))
				return nil
			}
			break
		}
		row.Username = strings.TrimSpace(row.Username)
		if row.Username == "" {
			continue
		}
		out = append(out, model.UserRecord{Username: row.Username, Password: strings.TrimSpace(row.Password)})
	}
	return out
}

// parseFile decodes one measurement file. Any structural problem fails the
// whole file; bad values inside a valid file only blank that value.
func parseFile(path string) ([]parsed, []string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, err
	}
	defer f.Close()

	dec, header, err := newDecoder(f)
	if err != nil {
		return nil, nil, 0, err
	}

	source := filepath.Base(path)
	var out []parsed
	badDates := 0
	for {
		var row sampleRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, 0, err
		}
		rec := model.SampleRecord{
			Username: strings.TrimSpace(row.Username),
			Crop:     strings.TrimSpace(row.Crop),
			Site:     strings.TrimSpace(row.Site),
			SampleID: strings.TrimSpace(row.Sample),
			Source:   source,
		}
		if strings.TrimSpace(row.Date) != "" {
			if d, ok := ParseDayFirst(row.Date); ok {
				rec.Date = d
			} else {
				badDates++
			}
		}
		n, okN := parseNutrient(row.N)
		p, okP := parseNutrient(row.P)
		k, okK := parseNutrient(row.K)
		rec.N, rec.P, rec.K = n, p, k

		record := dec.Record()
		for _, i := range dec.Unused() {
			if v := strings.TrimSpace(record[i]); v != "" {
				if rec.Extra == nil {
					rec.Extra = map[string]string{}
				}
				rec.Extra[header[i]] = v
			}
		}
		out = append(out, parsed{rec: rec, complete: okN && okP && okK, key: rowKey(rec, row)})
	}
	return out, header, badDates, nil
}

// newDecoder reads and normalizes the header, then decodes the rest with it.
func newDecoder(r io.Reader) (*csvutil.Decoder, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	raw, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrEmptyFile
		}
		return nil, nil, err
	}
	header := normalizeHeader(raw)
	dec, err := csvutil.NewDecoder(&padReader{r: cr, width: len(header)}, header...)
	if err != nil {
		return nil, nil, err
	}
	return dec, header, nil
}

// padReader fills short rows with empty fields and rejects long ones.
type padReader struct {
	r     *csv.Reader
	width int
}

func (p *padReader) Read() ([]string, error) {
	rec, err := p.r.Read()
	if err != nil {
		return nil, err
	}
	if len(rec) > p.width {
		line, _ := p.r.FieldPos(0)
		return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrTooManyFields, line, len(rec), p.width)
	}
	for len(rec) < p.width {
		rec = append(rec, "")
	}
	return rec, nil
}

// parseNutrient returns false for empty, non-numeric and non-finite values.
func parseNutrient(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// rowKey hashes every non-empty normalized value so that identical rows from
// any file collide. Dates compare as calendar days and numbers as values.
func rowKey(rec model.SampleRecord, row sampleRow) uint64 {
	parts := make([]string, 0, 8+len(rec.Extra))
	add := func(col, v string) {
		if v != "" {
			parts = append(parts, col+"\x1f"+v)
		}
	}
	add(ColUsername, rec.Username)
	add(ColCrop, rec.Crop)
	add(ColSite, rec.Site)
	add(ColSample, rec.SampleID)
	if rec.HasDate() {
		add(ColDate, rec.Date.Format("2006-01-02"))
	}
	for col, raw := range map[string]string{ColN: row.N, ColP: row.P, ColK: row.K} {
		if v, ok := parseNutrient(raw); ok {
			add(col, strconv.FormatFloat(v, 'g', -1, 64))
		} else {
			add(col, strings.TrimSpace(raw))
		}
	}
	for col, v := range rec.Extra {
		add(col, v)
	}
	slices.Sort(parts)

	h := xxhash.New()
	for _, p := range parts {
		_, _ = h.WriteString(p)
		_, _ = h.WriteString("\x1e")
	}
	return h.Sum64()
}
