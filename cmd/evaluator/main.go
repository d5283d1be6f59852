package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/optbot/config"
	"github.com/alejandrodnm/optbot/internal/adapters/provider"
	"github.com/alejandrodnm/optbot/internal/adapters/storage"
	"github.com/alejandrodnm/optbot/internal/domain"
)

// Exit codes del CLI: 0 = estrategia aprueba, 1 = no aprueba,
// 2 = error de datos/estrategia/configuración.
const (
	exitPass = 0
	exitFail = 1
	exitErr  = 2
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	strategyPath := flag.String("strategy", "", "path to strategy YAML (evaluate/fetch)")
	fromStr := flag.String("from", "", "window start, YYYY-MM-DD")
	toStr := flag.String("to", "", "window end, YYYY-MM-DD")
	fetch := flag.Bool("fetch", false, "download bars/chains/spot into the store and exit")
	sweepDir := flag.String("sweep", "", "evaluate every strategy YAML in this directory")
	report := flag.Bool("report", false, "print persisted evaluation history and exit")
	importDir := flag.String("import", "", "import CSV datasets from this directory and exit")
	exportDir := flag.String("export", "", "export the whole dataset as CSVs into this directory and exit")
	ledgerCSV := flag.String("ledger", "", "write the evaluation's trade ledger to this CSV file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(exitErr)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN, cfg.Evaluator.MaxGapSessions)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(exitErr)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := dispatch(ctx, cfg, store, modeFlags{
		strategyPath: *strategyPath,
		fromStr:      *fromStr,
		toStr:        *toStr,
		fetch:        *fetch,
		sweepDir:     *sweepDir,
		report:       *report,
		importDir:    *importDir,
		exportDir:    *exportDir,
		ledgerCSV:    *ledgerCSV,
	})

	cancel()
	store.Close()
	os.Exit(code)
}

type modeFlags struct {
	strategyPath string
	fromStr      string
	toStr        string
	fetch        bool
	sweepDir     string
	report       bool
	importDir    string
	exportDir    string
	ledgerCSV    string
}

// dispatch elige el modo de ejecución. Los modos de dataset (import/export)
// y el histórico no necesitan ventana; el resto sí.
func dispatch(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore, flags modeFlags) int {
	switch {
	case flags.importDir != "":
		return runImport(ctx, store, flags.importDir)
	case flags.exportDir != "":
		return runExport(ctx, store, flags.exportDir)
	case flags.report:
		return runReport(ctx, store)
	}

	window, err := parseWindow(flags.fromStr, flags.toStr)
	if err != nil {
		slog.Error("invalid evaluation window", "err", err)
		return exitErr
	}

	switch {
	case flags.fetch:
		client := provider.NewClient(cfg.Provider.MarketBase, cfg.Provider.SpotBase, cfg.Provider.APIKey)
		return runFetch(ctx, cfg, store, client, flags.strategyPath, window)
	case flags.sweepDir != "":
		return runSweep(ctx, cfg, store, flags.sweepDir, window)
	default:
		if flags.strategyPath == "" {
			slog.Error("no mode selected: -strategy is required to evaluate (or use -fetch/-sweep/-report/-import/-export)")
			return exitErr
		}
		return runEvaluate(ctx, cfg, store, flags.strategyPath, window, flags.ledgerCSV)
	}
}

// parseWindow valida y normaliza los flags -from/-to.
func parseWindow(fromStr, toStr string) (domain.Window, error) {
	if fromStr == "" || toStr == "" {
		return domain.Window{}, fmt.Errorf("-from y -to son obligatorios (YYYY-MM-DD)")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return domain.Window{}, fmt.Errorf("-from %q: %w", fromStr, err)
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return domain.Window{}, fmt.Errorf("-to %q: %w", toStr, err)
	}
	window := domain.NewWindow(from, to)
	return window, window.Validate()
}

// failComponent clasifica un error terminal para el log de salida.
func failComponent(err error) string {
	var gapErr *domain.DataGapError
	var insErr *domain.InsufficientDataError
	var stratErr *domain.InvalidStrategyError
	switch {
	case errors.As(err, &gapErr):
		return "market data store"
	case errors.As(err, &insErr):
		return "benchmark calculator"
	case errors.As(err, &stratErr):
		return "strategy definition"
	default:
		return "evaluator"
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
