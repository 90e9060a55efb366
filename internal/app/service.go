// Package service wires remote sync, local ingestion and analytics into the
// operations exposed by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/nutrimon/internal/adapters/mq/worker"
	"github.com/okian/nutrimon/internal/adapters/remote"
	"github.com/okian/nutrimon/internal/adapters/repository"
	"github.com/okian/nutrimon/internal/adapters/storage"
	"github.com/okian/nutrimon/internal/adapters/watch"
	"github.com/okian/nutrimon/internal/domain/analytics"
	"github.com/okian/nutrimon/internal/domain/auth"
	"github.com/okian/nutrimon/internal/domain/dedupe"
	"github.com/okian/nutrimon/internal/domain/model"
	"github.com/okian/nutrimon/internal/domain/naming"
	"github.com/okian/nutrimon/internal/events"
	"github.com/okian/nutrimon/internal/ingest"
	"github.com/okian/nutrimon/pkg/logger"
	"github.com/okian/nutrimon/pkg/metrics"
)

// User-facing sync messages.
const (
	msgSuccess      = "Sync completed successfully."
	msgNoCSV        = "Found folder but no CSV files inside."
	msgFolderAbsent = "Folder '%s' not found in Drive. Please verify the folder name."
	msgAPIError     = "API Error: %v"
	msgUsersMissing = "Sync complete, BUT '%s' was missing! Found: [%s]"
	msgFailures     = "Sync completed with %d file failures: %s"
	msgListFailures = "; %d folder(s) could not be listed"

	historyPreview = 20
)

// Service owns the sync pipeline and the cached dataset.
type Service struct {
	mu sync.RWMutex

	// Core components
	src      remote.Source
	store    *storage.Store
	walker   *remote.Walker
	fetcher  *worker.Fetcher
	dataPool *worker.Pool
	iconPool *worker.Pool
	cache    *ingest.Cache
	bus      *events.Bus
	history  repository.Store
	watcher  *watch.Watcher

	// Configuration
	rootName         string
	usersName        string
	iconPath         remote.PathSpec
	dataWorkers      int
	iconWorkers      int
	attempts         int
	retryDelay       time.Duration
	fetchTimeout     time.Duration
	listTimeout      time.Duration
	syncIconsEnabled bool
	cacheTTL         time.Duration
	watchDataDir     bool
	ranges           analytics.Ranges

	// One data pass and one icon pass at a time.
	dataMu sync.Mutex
	iconMu sync.Mutex

	// State
	started   bool
	lastData  *repository.SyncRun
	lastIcons *repository.SyncRun

	now    func() time.Time
	logger logger.Logger
}

// New constructs a Service over src and store.
func New(src remote.Source, store *storage.Store, opts ...Option) *Service {
	s := &Service{
		src:              src,
		store:            store,
		rootName:         "data app NPK",
		usersName:        "users",
		iconPath:         remote.PathSpec{"GrowerNutritionMonitor", "www"},
		dataWorkers:      4,
		iconWorkers:      2,
		attempts:         3,
		retryDelay:       time.Second,
		fetchTimeout:     time.Minute,
		listTimeout:      30 * time.Second,
		syncIconsEnabled: true,
		cacheTTL:         10 * time.Minute,
		ranges:           analytics.DefaultRanges(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("sync")
	}
	if s.bus == nil {
		s.bus = events.New()
	}
	if s.history == nil {
		s.history = repository.NewMemoryStore()
	}

	s.walker = remote.NewWalker(src,
		remote.WithListTimeout(s.listTimeout),
		remote.WithLogger(s.logger.Named("walker")))
	s.fetcher = worker.NewFetcher(src, store,
		worker.WithAttempts(s.attempts),
		worker.WithRetryDelay(s.retryDelay),
		worker.WithTimeout(s.fetchTimeout),
		worker.WithFetchLogger(s.logger.Named("fetch")))
	s.dataPool = worker.NewPool(s.fetcher,
		worker.WithName("data"),
		worker.WithSize(s.dataWorkers),
		worker.WithLogger(s.logger.Named("pool.data")))
	s.iconPool = worker.NewPool(s.fetcher,
		worker.WithName("icons"),
		worker.WithSize(s.iconWorkers),
		worker.WithLogger(s.logger.Named("pool.icons")))
	s.cache = ingest.NewCache(
		ingest.New(store, ingest.WithLogger(s.logger.Named("ingest"))),
		ingest.WithTTL(s.cacheTTL),
		ingest.WithClock(s.now),
		ingest.WithCacheLogger(s.logger.Named("cache")))

	if err := s.bus.Subscribe(events.TopicDataSynced, s.onDataSynced); err != nil {
		s.logger.Error(context.Background(), "dataset invalidation not subscribed", logger.Error(err))
	}
	return s
}

// onDataSynced drops the cached dataset once a pass transferred files. It runs
// inside the bus publish, so it must not publish on the bus itself.
func (s *Service) onDataSynced(ev events.DataSynced) {
	if ev.Files == 0 {
		return
	}
	gen := s.cache.Invalidate()
	s.logger.Debug(context.Background(), "dataset invalidated by sync",
		logger.String("run_id", ev.RunID), logger.Int64("generation", int64(gen)))
}

// Start prepares local directories and starts the data directory watcher
// when enabled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := s.store.EnsureDirs(); err != nil {
		return err
	}
	if s.watchDataDir {
		s.watcher = watch.New(s.store.DataDir, func(paths []string) {
			s.logger.Info(context.Background(), "local data changed", logger.Int("files", len(paths)))
			s.Invalidate()
		}, watch.WithLogger(s.logger.Named("watch")))
		if err := s.watcher.Start(ctx); err != nil {
			return err
		}
	}
	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("data_workers", s.dataPool.Size()),
		logger.Int("icon_workers", s.iconPool.Size()),
		logger.Bool("watch", s.watchDataDir))
	return nil
}

// Stop stops the watcher and closes the history store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		_ = s.watcher.Stop()
		s.watcher = nil
	}
	if s.history != nil {
		_ = s.history.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "service stopped")
}

// Bus returns the event bus sync results are published on.
func (s *Service) Bus() *events.Bus { return s.bus }

// SyncData mirrors every selected CSV under the remote root into the data
// directory. It reports success and a user-facing message. The completion
// event is published synchronously, so the dataset cache is invalidated
// before it returns.
func (s *Service) SyncData(ctx context.Context) (bool, string) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()

	run := repository.SyncRun{ID: uuid.NewString(), Kind: repository.KindData, StartedAt: s.now()}
	ok, msg, outcomes := s.syncData(ctx, run.ID)
	run.FinishedAt = s.now()
	run.OK, run.Message = ok, msg
	s.finish(ctx, &run, outcomes)

	gen := s.cache.Generation()
	s.bus.PublishDataSynced(events.DataSynced{
		RunID:    run.ID,
		OK:       ok,
		Message:  msg,
		Files:    run.Files,
		Failures: run.Failures,
	})
	if moved := s.cache.Generation(); moved != gen {
		s.bus.PublishInvalidated(moved)
	}
	return ok, msg
}

func (s *Service) syncData(ctx context.Context, runID string) (bool, string, []worker.Outcome) {
	log := s.logger.Named("data")
	if err := s.store.EnsureDirs(); err != nil {
		return false, fmt.Sprintf(msgAPIError, err), nil
	}

	root, err := s.walker.Find(ctx, "", s.rootName)
	if err != nil {
		if errors.Is(err, remote.ErrFolderNotFound) {
			return false, fmt.Sprintf(msgFolderAbsent, s.rootName), nil
		}
		return false, fmt.Sprintf(msgAPIError, err), nil
	}
	log.Info(ctx, "root folder found", logger.String("run_id", runID), logger.String("folder_id", root.ID))

	tree := s.walker.Walk(ctx, root.ID)
	metrics.RecordListError(len(tree.Errors))
	if tree.RootFailed() {
		return false, fmt.Sprintf(msgAPIError, tree.Err()), nil
	}

	var cands []dedupe.Candidate
	for _, ref := range tree.Files {
		if target, ok := naming.DataTarget(ref, s.usersName); ok {
			cands = append(cands, dedupe.Candidate{Target: target, Ref: ref})
		}
	}
	selected := dedupe.Latest(cands)
	log.Info(ctx, "files selected",
		logger.Int("found", len(tree.Files)),
		logger.Int("candidates", len(cands)),
		logger.Int("selected", len(selected)),
		logger.Int("list_errors", len(tree.Errors)))
	if len(selected) == 0 {
		return false, msgNoCSV, nil
	}

	jobs := make([]worker.Job, len(selected))
	for i, c := range selected {
		jobs[i] = worker.Job{Ref: c.Ref, Target: c.Target, Dir: s.store.DataDir, Kind: model.LocalDataCSV}
	}
	outcomes := s.dataPool.Run(ctx, jobs)

	if s.syncIconsEnabled && ctx.Err() == nil {
		if !s.SyncIcons(ctx) {
			log.Warn(ctx, "icon pass failed during data sync")
		}
	}

	ok, msg := s.summarize(selected, outcomes)
	if len(tree.Errors) > 0 {
		msg += fmt.Sprintf(msgListFailures, len(tree.Errors))
	}
	return ok, msg, outcomes
}

// summarize builds the result message. Success requires at least one file to
// be present locally after the pass.
func (s *Service) summarize(selected []dedupe.Candidate, outcomes []worker.Outcome) (bool, string) {
	usersTarget := naming.UsersTarget(s.usersName)
	hasUsers := slices.ContainsFunc(selected, func(c dedupe.Candidate) bool { return c.Target == usersTarget })

	var fetched, failures []string
	for _, o := range outcomes {
		if o.OK() {
			fetched = append(fetched, o.Target)
			continue
		}
		failures = append(failures, fmt.Sprintf("%s (%v)", o.Err.Target, o.Err.Err))
	}

	switch {
	case len(failures) > 0:
		msg := fmt.Sprintf(msgFailures, len(failures), strings.Join(failures, "; "))
		if !hasUsers {
			msg += fmt.Sprintf("; '%s' was missing", usersTarget)
		}
		return len(fetched) > 0, msg
	case !hasUsers:
		return true, fmt.Sprintf(msgUsersMissing, usersTarget, strings.Join(fetched, ", "))
	default:
		return true, msgSuccess
	}
}

// SyncIcons mirrors the images of the icon folder into the assets directory.
// It returns false when the icon folder could not be resolved or listed;
// individual icon failures are only logged.
func (s *Service) SyncIcons(ctx context.Context) bool {
	s.iconMu.Lock()
	defer s.iconMu.Unlock()

	run := repository.SyncRun{ID: uuid.NewString(), Kind: repository.KindIcons, StartedAt: s.now()}
	ok, outcomes, err := s.syncIcons(ctx)
	run.FinishedAt = s.now()
	run.OK = ok
	switch {
	case err != nil:
		run.Message = err.Error()
	default:
		run.Message = fmt.Sprintf("Synced %d icons.", countOK(outcomes))
	}
	s.finish(ctx, &run, outcomes)

	s.bus.PublishIconsSynced(events.IconsSynced{RunID: run.ID, OK: ok, Files: run.Files, Failures: run.Failures})
	return ok
}

func (s *Service) syncIcons(ctx context.Context) (bool, []worker.Outcome, error) {
	log := s.logger.Named("icons")
	if err := s.store.EnsureDirs(); err != nil {
		return false, nil, err
	}
	root, err := s.walker.Find(ctx, "", s.rootName)
	if err != nil {
		log.Warn(ctx, "root folder unavailable", logger.Error(err))
		return false, nil, err
	}
	folder, err := s.walker.Resolve(ctx, root.ID, s.iconPath)
	if err != nil {
		log.Warn(ctx, "icon folder unavailable", logger.String("path", s.iconPath.String()), logger.Error(err))
		return false, nil, err
	}
	children, err := s.walker.List(ctx, folder.ID)
	if err != nil {
		metrics.RecordListError(1)
		log.Warn(ctx, "icon folder list failed", logger.Error(err))
		return false, nil, err
	}

	var cands []dedupe.Candidate
	for _, ref := range children {
		if target, ok := naming.IconTarget(ref); ok {
			cands = append(cands, dedupe.Candidate{Target: target, Ref: ref})
		}
	}
	selected := dedupe.Latest(cands)
	jobs := make([]worker.Job, len(selected))
	for i, c := range selected {
		jobs[i] = worker.Job{Ref: c.Ref, Target: c.Target, Dir: s.store.AssetsDir, Kind: model.LocalIcon}
	}
	outcomes := s.iconPool.Run(ctx, jobs)
	log.Info(ctx, "icons synced", logger.Int("selected", len(jobs)), logger.Int("ok", countOK(outcomes)))
	return true, outcomes, nil
}

// finish records history and updates metrics.
func (s *Service) finish(ctx context.Context, run *repository.SyncRun, outcomes []worker.Outcome) {
	run.Files = len(outcomes)
	run.Outcomes = make([]repository.FileOutcome, len(outcomes))
	for i, o := range outcomes {
		fo := repository.FileOutcome{
			Target:    o.Target,
			RemoteID:  o.Job.Ref.ID,
			Bytes:     o.Bytes,
			Attempts:  o.Attempts,
			Unchanged: o.Unchanged,
		}
		if o.OK() {
			fo.Hash = fmt.Sprintf("%016x", o.Hash)
		} else {
			fo.Error = o.Err.Err.Error()
			run.Failures++
		}
		run.Outcomes[i] = fo
	}

	outcome := "ok"
	if !run.OK {
		outcome = "failed"
	}
	metrics.RecordSyncRun(run.Kind, outcome)
	metrics.RecordSyncDuration(run.Kind, float64(run.Duration().Milliseconds()))

	// A run is recorded even when the caller that triggered it went away.
	if _, err := s.history.Record(context.WithoutCancel(ctx), *run); err != nil {
		s.logger.Warn(ctx, "history record failed", logger.String("run_id", run.ID), logger.Error(err))
	}

	s.mu.Lock()
	last := *run
	if len(last.Outcomes) > historyPreview {
		last.Outcomes = last.Outcomes[:historyPreview]
	}
	if run.Kind == repository.KindData {
		s.lastData = &last
	} else {
		s.lastIcons = &last
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "sync finished",
		logger.String("kind", run.Kind),
		logger.String("run_id", run.ID),
		logger.Bool("ok", run.OK),
		logger.Int("files", run.Files),
		logger.Int("failures", run.Failures),
		logger.Duration("duration", run.Duration()),
		logger.String("message", run.Message))
}

func countOK(outcomes []worker.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Invalidate forces the next dataset read to reload from disk and returns the
// new generation.
func (s *Service) Invalidate() uint64 {
	gen := s.cache.Invalidate()
	s.bus.PublishInvalidated(gen)
	return gen
}

// Generation returns the current dataset generation.
func (s *Service) Generation() uint64 { return s.cache.Generation() }

// LoadDataset returns the users and the ingested samples.
func (s *Service) LoadDataset(ctx context.Context) ([]model.UserRecord, model.Dataset) {
	snap := s.cache.Get(ctx)
	return snap.Users, snap.Dataset
}

// Authenticate checks credentials against the users file.
func (s *Service) Authenticate(ctx context.Context, username, password string) bool {
	users, _ := s.LoadDataset(ctx)
	return auth.Authenticate(users, username, password)
}

// Crops lists the crops the user has samples for.
func (s *Service) Crops(ctx context.Context, username string) []string {
	_, ds := s.LoadDataset(ctx)
	return analytics.Crops(ds.Records, username)
}

// Dates lists the sample dates for the user and crop, ascending.
func (s *Service) Dates(ctx context.Context, username, crop string) []time.Time {
	_, ds := s.LoadDataset(ctx)
	return analytics.Dates(ds.Records, username, crop)
}

// Aggregate computes the analytics view for q with the configured ranges.
func (s *Service) Aggregate(ctx context.Context, q analytics.Query) analytics.View {
	_, ds := s.LoadDataset(ctx)
	return analytics.Aggregate(ds.Records, q, s.ranges)
}

// Ranges returns the configured optimal ranges.
func (s *Service) Ranges() analytics.Ranges { return s.ranges }

// Records returns the user's samples, optionally limited to one crop, and the
// dataset columns.
func (s *Service) Records(ctx context.Context, username, crop string) ([]model.SampleRecord, []string) {
	_, ds := s.LoadDataset(ctx)
	var out []model.SampleRecord
	for _, r := range ds.Records {
		if r.Username != username || (crop != "" && r.Crop != crop) {
			continue
		}
		out = append(out, r)
	}
	return out, ds.Columns
}

// IconPath returns the local icon for crop.
func (s *Service) IconPath(crop string) (string, error) {
	return s.store.IconPath(crop)
}

// LogoPath returns the local logo.
func (s *Service) LogoPath() (string, error) {
	return s.store.LogoPath()
}

// History returns up to n recorded sync runs, newest first.
func (s *Service) History(ctx context.Context, n int) ([]repository.SyncRun, error) {
	return s.history.Recent(ctx, n)
}

// Inspect prints the remote tree under the root folder to w.
func (s *Service) Inspect(ctx context.Context, w io.Writer) error {
	root, err := s.walker.Find(ctx, "", s.rootName)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Found folder %q ID: %s\n", s.rootName, root.ID); err != nil {
		return err
	}
	var listErrs []error
	for e, err := range s.walker.Entries(ctx, root.ID) {
		if err != nil {
			listErrs = append(listErrs, err)
			if _, werr := fmt.Fprintf(w, "   ! %v\n", err); werr != nil {
				return werr
			}
			continue
		}
		indent := strings.Repeat("   ", e.Depth)
		if _, err := fmt.Fprintf(w, "%s - %s (%s) ID: %s\n", indent, e.Ref.Name, e.Ref.MimeType, e.Ref.ID); err != nil {
			return err
		}
	}
	return errors.Join(listErrs...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"root":             s.rootName,
		"data_workers":     s.dataPool.Size(),
		"icon_workers":     s.iconPool.Size(),
		"cache_generation": s.cache.Generation(),
	}
	if snap, ok := s.cache.Peek(); ok {
		stats["ingest"] = snap.Stats
		stats["loaded_at"] = snap.LoadedAt
		stats["records"] = len(snap.Dataset.Records)
		stats["users"] = len(snap.Users)
	}
	if s.lastData != nil {
		stats["last_data_sync"] = *s.lastData
	}
	if s.lastIcons != nil {
		stats["last_icon_sync"] = *s.lastIcons
	}
	return stats
}
