package testfixtures

import (
	"log/slog"
	"time"

	"github.com/deepshift/mineshift/internal/application"
	"github.com/deepshift/mineshift/internal/persistence"
	"github.com/deepshift/mineshift/internal/persistence/memory"
)

// EngineFactory assists tests with constructing engines over an in-memory
// store using deterministic identifiers and clocks.
type EngineFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger

	// Backend is the substrate behind Store. Tests use it to inject faults.
	Backend *memory.Store
	Store   *persistence.LocalStore
}

// EngineFactoryOption configures an EngineFactory instance.
type EngineFactoryOption func(*EngineFactory)

// NewEngineFactory constructs an EngineFactory with defaults.
func NewEngineFactory(opts ...EngineFactoryOption) *EngineFactory {
	factory := &EngineFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Backend == nil {
		factory.Backend = memory.New()
	}
	if factory.Store == nil {
		factory.Store = persistence.NewLocalStore(factory.Backend, nil, factory.Logger)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) EngineFactoryOption {
	return func(factory *EngineFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) EngineFactoryOption {
	return func(factory *EngineFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger routes engine and store logs to logger.
func WithLogger(logger *slog.Logger) EngineFactoryOption {
	return func(factory *EngineFactory) {
		factory.Logger = logger
	}
}

// WithStore makes the factory build engines over store instead of a fresh
// in-memory substrate.
func WithStore(store *persistence.LocalStore) EngineFactoryOption {
	return func(factory *EngineFactory) {
		factory.Store = store
	}
}

// NewWorkerEngine builds a worker engine over the factory store.
func (f *EngineFactory) NewWorkerEngine() *application.WorkerEngine {
	return application.NewWorkerEngine(f.Store, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewForemanEngine builds a foreman engine over the factory store.
func (f *EngineFactory) NewForemanEngine() *application.ForemanEngine {
	return application.NewForemanEngine(f.Store, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewAppState builds fully wired application state over the factory store.
func (f *EngineFactory) NewAppState() *application.AppState {
	return application.NewAppState(f.Store, application.Options{
		Logger: f.Logger,
		NewID:  f.IDGenerator.NextFunc(),
		Now:    f.Clock.NowFunc(),
	})
}
