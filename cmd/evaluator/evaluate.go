package main

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alejandrodnm/optbot/config"
	"github.com/alejandrodnm/optbot/internal/adapters/notify"
	"github.com/alejandrodnm/optbot/internal/adapters/storage"
	"github.com/alejandrodnm/optbot/internal/application/benchmark"
	"github.com/alejandrodnm/optbot/internal/application/compare"
	"github.com/alejandrodnm/optbot/internal/application/evaluator"
	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/strategy"
)

// runEvaluate ejecuta una evaluación completa: simulación, benchmarks,
// comparación, persistencia y reporte. Cualquier fallo de datos aborta el
// run sin producir ni guardar resultado.
func runEvaluate(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore, strategyPath string, window domain.Window, ledgerCSV string) int {
	def, err := strategy.Load(strategyPath)
	if err != nil {
		slog.Error("failed to load strategy", "err", err, "path", strategyPath)
		return exitErr
	}

	slog.Info("evaluating strategy",
		"strategy", def.Name,
		"underlying", def.Underlying,
		"window", window,
	)

	eval := evaluator.New(store, cfg.Evaluator.FeePerContract)
	ledger, err := eval.Evaluate(ctx, def, window)
	if err != nil {
		slog.Error("evaluation aborted", "component", failComponent(err), "err", err)
		return exitErr
	}

	calc := benchmark.New(store, cfg.Evaluator.EdgeToleranceSessions)
	benchmarks, err := calc.All(ctx, cfg.BenchmarkSpecs(), window)
	if err != nil {
		slog.Error("evaluation aborted", "component", failComponent(err), "err", err)
		return exitErr
	}

	result := compare.Compare(def, ledger, benchmarks, window)
	result.ID = uuid.New().String()

	if err := store.SaveEvaluation(ctx, result); err != nil {
		// El resultado ya es definitivo; no poder archivarlo no lo invalida.
		slog.Warn("failed to persist evaluation", "err", err, "id", result.ID)
	}

	if ledgerCSV != "" {
		if err := storage.ExportLedgerCSV(ledgerCSV, ledger); err != nil {
			slog.Warn("failed to export ledger csv", "err", err, "path", ledgerCSV)
		} else {
			slog.Info("ledger exported", "path", ledgerCSV, "trades", len(ledger.Trades))
		}
	}

	reporter := notify.NewConsole()
	if err := reporter.Report(ctx, result, ledger); err != nil {
		slog.Warn("reporter error", "err", err)
	}

	if result.Pass {
		return exitPass
	}
	return exitFail
}
