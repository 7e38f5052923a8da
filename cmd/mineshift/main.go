package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/deepshift/mineshift/internal/application"
	"github.com/deepshift/mineshift/internal/config"
	"github.com/deepshift/mineshift/internal/logging"
	"github.com/deepshift/mineshift/internal/persistence"
	"github.com/deepshift/mineshift/internal/persistence/memory"
	"github.com/deepshift/mineshift/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	demo       bool
	reset      bool
}

type summary struct {
	Dashboard     application.DashboardStats `json:"dashboard"`
	Worker        workerSummary              `json:"worker"`
	PendingWrites []string                   `json:"pendingWrites"`
}

type workerSummary struct {
	DemoMode        bool `json:"demoMode"`
	Shifts          int  `json:"shifts"`
	Incidents       int  `json:"incidents"`
	PendingTasks    int  `json:"pendingTasks"`
	UnreadRemarks   int  `json:"unreadRemarks"`
	AttendanceToday bool `json:"attendanceToday"`
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	flags := pflag.NewFlagSet("mineshift", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file (overrides MINESHIFT_CONFIG)")
	flags.BoolVar(&opts.demo, "demo", false, "load the demo data set before printing")
	flags.BoolVar(&opts.reset, "reset", false, "clear all records before printing")
	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	if opts.demo && opts.reset {
		return options{}, errors.New("--demo and --reset are mutually exclusive")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	bootstrap := logging.New(stderr, slog.LevelInfo, "json")

	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		bootstrap.Error("invalid arguments", "error", err)
		return 2
	}

	var cfg config.Config
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		return 1
	}
	logger := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	ctx = logging.ContextWithLogger(ctx, logger)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err, "store", cfg.Store)
		return 1
	}

	state := application.NewAppState(store, application.Options{Logger: logger})
	defer func() {
		if cerr := state.Close(ctx); cerr != nil {
			logger.Error("failed to close state", "error", cerr)
		}
	}()

	if err := state.Load(ctx); err != nil {
		logger.Error("failed to load state", "error", err)
		return 1
	}

	switch {
	case opts.demo:
		err = errors.Join(state.Worker().LoadDemoData(ctx), state.Foreman().LoadDemoData(ctx))
	case opts.reset:
		err = errors.Join(state.Worker().ClearAllData(ctx), state.Foreman().ClearAllData(ctx))
	}
	if err != nil {
		logger.Warn("changes applied but not fully saved", "error", err, "error_kind", application.ErrorKind(err))
	}

	if err := writeSummary(stdout, state); err != nil {
		logger.Error("failed to write summary", "error", err)
		return 1
	}
	return 0
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*persistence.LocalStore, error) {
	codec, err := persistence.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}

	switch cfg.Store {
	case config.StoreMemory:
		return persistence.NewLocalStore(memory.New(), codec, logger), nil
	case config.StoreSQLite:
		sqliteCfg := sqlite.DefaultConfig(cfg.SQLiteDSN)
		sqliteCfg.BusyTimeout = cfg.BusyTimeout
		backend, err := sqlite.Open(ctx, sqliteCfg)
		if err != nil {
			return nil, err
		}
		return persistence.NewLocalStore(backend, codec, logger), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func writeSummary(w io.Writer, state *application.AppState) error {
	worker := state.Worker()
	_, attended := worker.TodayAttendance()
	out := summary{
		Dashboard: state.Foreman().DashboardStats(),
		Worker: workerSummary{
			DemoMode:        worker.Settings().DemoMode,
			Shifts:          len(worker.Shifts()),
			Incidents:       len(worker.Incidents()),
			PendingTasks:    worker.PendingTasksCount(),
			UnreadRemarks:   worker.UnreadRemarksCount(),
			AttendanceToday: attended,
		},
		PendingWrites: state.PendingWrites(),
	}
	if out.PendingWrites == nil {
		out.PendingWrites = []string{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
