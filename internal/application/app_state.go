package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/deepshift/mineshift/internal/persistence"
)

// Options configures NewAppState. Zero values select the defaults.
type Options struct {
	Logger *slog.Logger
	NewID  func() string
	Now    func() time.Time
}

// AppState is the process-wide application state. It is built once at
// startup, loaded with Load and released with Close.
//
// The worker engine owns incidents, tasks and remarks. The foreman engine
// reads them through the worker engine's SharedRecords view, and worker
// events are delivered to the foreman as notifications.
type AppState struct {
	store   *persistence.LocalStore
	worker  *WorkerEngine
	foreman *ForemanEngine
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewAppState wires both engines over store.
func NewAppState(store *persistence.LocalStore, opts Options) *AppState {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := defaultLogger(opts.Logger)

	worker := NewWorkerEngine(store, opts.NewID, opts.Now, logger)
	foreman := NewForemanEngine(store, opts.NewID, opts.Now, logger)
	foreman.AttachRecords(worker, worker)
	worker.SetNotificationSink(foreman)

	return &AppState{store: store, worker: worker, foreman: foreman, logger: logger}
}

// Load reads persisted state into both engines.
func (s *AppState) Load(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.worker.Load(gctx) })
	g.Go(func() error { return s.foreman.Load(gctx) })
	if err := g.Wait(); err != nil {
		serviceLogger(ctx, s.logger, "AppState", "Load").ErrorContext(ctx, "state load failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	return nil
}

// Worker returns the worker engine.
func (s *AppState) Worker() *WorkerEngine {
	return s.worker
}

// Foreman returns the foreman engine.
func (s *AppState) Foreman() *ForemanEngine {
	return s.foreman
}

// PendingWrites lists keys of either engine that have not been persisted.
func (s *AppState) PendingWrites() []string {
	return append(s.worker.PendingWrites(), s.foreman.PendingWrites()...)
}

// RetryPendingWrites retries unsaved writes of both engines.
func (s *AppState) RetryPendingWrites(ctx context.Context) error {
	return errors.Join(s.worker.RetryPendingWrites(ctx), s.foreman.RetryPendingWrites(ctx))
}

// Close retries pending writes once and closes the store. Later calls
// return the first result.
func (s *AppState) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		logger := serviceLogger(ctx, s.logger, "AppState", "Close")
		retryErr := s.RetryPendingWrites(ctx)
		if retryErr != nil {
			logger.WarnContext(ctx, "closing with unsaved changes", "keys", s.PendingWrites(), "error", retryErr)
		}
		var closeErr error
		if s.store != nil {
			closeErr = s.store.Close()
		}
		s.closeErr = errors.Join(retryErr, closeErr)
	})
	return s.closeErr
}
