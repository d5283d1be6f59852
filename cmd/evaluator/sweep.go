package main

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alejandrodnm/optbot/config"
	"github.com/alejandrodnm/optbot/internal/adapters/notify"
	"github.com/alejandrodnm/optbot/internal/adapters/storage"
	"github.com/alejandrodnm/optbot/internal/application/benchmark"
	"github.com/alejandrodnm/optbot/internal/application/evaluator"
	"github.com/alejandrodnm/optbot/internal/application/sweep"
	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/strategy"
)

// runSweep evalúa todas las estrategias de un directorio sobre la misma
// ventana, en paralelo, y persiste cada resultado completo. Una estrategia
// que falla (YAML malformado, datos insuficientes de su subyacente) no
// aborta el resto. Exit code 0 si al menos una aprueba.
func runSweep(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore, dir string, window domain.Window) int {
	defs, _, failures, err := strategy.LoadDir(dir)
	if err != nil {
		slog.Error("failed to read strategy directory", "err", err, "dir", dir)
		return exitErr
	}
	if len(defs) == 0 && len(failures) == 0 {
		slog.Error("no strategy files found", "dir", dir)
		return exitErr
	}

	slog.Info("sweep starting",
		"dir", dir,
		"strategies", len(defs),
		"invalid", len(failures),
		"window", window,
		"workers", cfg.Evaluator.SweepWorkers,
	)

	// Los benchmarks son los mismos para toda la pasada: una sola vez.
	calc := benchmark.New(store, cfg.Evaluator.EdgeToleranceSessions)
	benchmarks, err := calc.All(ctx, cfg.BenchmarkSpecs(), window)
	if err != nil {
		slog.Error("sweep aborted", "component", failComponent(err), "err", err)
		return exitErr
	}

	eval := evaluator.New(store, cfg.Evaluator.FeePerContract)
	outcomes := sweep.Run(ctx, eval, defs, benchmarks, window, cfg.Evaluator.SweepWorkers)

	runFailures := make(map[string]error, len(failures))
	for path, ferr := range failures {
		runFailures[path] = ferr
	}

	var results []domain.EvaluationResult
	anyPass := false
	for _, o := range outcomes {
		if o.Err != nil {
			runFailures[o.Def.Name] = o.Err
			continue
		}
		o.Result.ID = uuid.New().String()
		if err := store.SaveEvaluation(ctx, o.Result); err != nil {
			slog.Warn("failed to persist evaluation", "err", err, "strategy", o.Def.Name)
		}
		results = append(results, o.Result)
		anyPass = anyPass || o.Result.Pass
	}

	notify.NewConsole().PrintRanking(results, runFailures)

	if anyPass {
		return exitPass
	}
	return exitFail
}
