package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
	"github.com/noah-isme/emr-lookup-api/pkg/jobs"
)

// JobTypeRefresh identifies snapshot rebuild jobs on the refresh queue.
const JobTypeRefresh = "snapshot_refresh"

type tableLoader interface {
	Load(ctx context.Context, opts LoadOptions) (*Tables, error)
}

// RefreshService rebuilds the snapshot off to the side and publishes it in
// one step. Starting a refresh cancels any refresh still in flight, and a
// superseded refresh never publishes.
type RefreshService struct {
	loader  tableLoader
	store   *SnapshotStore
	metrics *MetricsService
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewRefreshService constructs a RefreshService.
func NewRefreshService(loader tableLoader, store *SnapshotStore, metrics *MetricsService, timeout time.Duration, logger *zap.Logger) *RefreshService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &RefreshService{loader: loader, store: store, metrics: metrics, logger: logger, timeout: timeout, now: time.Now}
}

// Refresh loads the tables, builds a new snapshot and publishes it. On any
// failure the previously published snapshot keeps serving.
func (s *RefreshService) Refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	refreshCtx, cancel := context.WithTimeout(ctx, s.timeout)
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.generation == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	start := time.Now()
	tables, err := s.loader.Load(refreshCtx, LoadOptions{AllowCached: s.store.Current() == nil})
	if err != nil {
		return nil, s.fail(gen, "load", err, start)
	}

	snap, err := BuildSnapshot(tables, s.now())
	if err != nil {
		return nil, s.fail(gen, "build", err, start)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return nil, s.fail(gen, "publish", appErrors.ErrRefreshSuperseded, start)
	}
	previous := s.store.Publish(snap)
	s.mu.Unlock()

	s.metrics.RecordRefresh("success", time.Since(start))
	s.metrics.SetSnapshot(len(snap.Officers), len(snap.Complaints), len(snap.Links), len(snap.Rows), snap.LoadedAt)

	fields := []zap.Field{
		zap.String("version", snap.Version),
		zap.Int("rows", len(snap.Rows)),
		zap.Duration("duration", time.Since(start)),
	}
	if previous != nil {
		fields = append(fields, zap.String("previous_version", previous.Version))
	}
	if len(snap.Stale) > 0 {
		fields = append(fields, zap.Strings("stale_tables", snap.Stale))
	}
	s.logger.Info("snapshot published", fields...)
	return snap, nil
}

// Handle adapts Refresh to the jobs queue. A superseded run is not a
// failure, so it is not retried.
func (s *RefreshService) Handle(ctx context.Context, job jobs.Job) error {
	_, err := s.Refresh(ctx)
	if errors.Is(err, appErrors.ErrRefreshSuperseded) {
		s.logger.Debug("queued refresh superseded", zap.String("job_id", job.ID))
		return nil
	}
	return err
}

func (s *RefreshService) fail(gen uint64, stage string, err error, start time.Time) error {
	s.mu.Lock()
	superseded := s.generation != gen
	s.mu.Unlock()

	result := "failure"
	if superseded {
		result = "superseded"
		err = appErrors.Wrapf(appErrors.ErrRefreshSuperseded, err, "refresh superseded during %s", stage)
	}
	s.metrics.RecordRefresh(result, time.Since(start))

	if superseded {
		s.logger.Info("refresh superseded", zap.String("stage", stage))
	} else {
		s.logger.Error("refresh failed, previous snapshot keeps serving",
			zap.String("stage", stage), zap.Bool("has_snapshot", s.store.Current() != nil), zap.Error(err))
	}
	return err
}
