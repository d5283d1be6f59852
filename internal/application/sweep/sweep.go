package sweep

// sweep.go — worker pool para evaluar muchas estrategias sobre la misma ventana.
//
// Cada evaluación (Definition, ventana) es independiente y sin efectos, así
// que pueden correr en paralelo sin sincronización; el store solo se lee.
// Los benchmarks se calculan una única vez fuera del pool: son los mismos
// para todas las estrategias de la pasada.

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/alejandrodnm/optbot/internal/application/compare"
	"github.com/alejandrodnm/optbot/internal/application/evaluator"
	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/strategy"
)

// Outcome es el resultado de una estrategia dentro de la pasada: o un
// EvaluationResult completo con su ledger, o el error que abortó ese run.
// Un fallo de una estrategia no aborta las demás.
type Outcome struct {
	Def    strategy.Definition
	Result domain.EvaluationResult
	Ledger domain.TradeLedger
	Err    error
}

// Run evalúa todas las definiciones contra la misma ventana y benchmarks,
// en paralelo, y devuelve los outcomes ordenados por retorno descendente
// (los fallidos al final, por nombre). Si workers <= 0 usa
// runtime.NumCPU().
func Run(ctx context.Context, eval *evaluator.Evaluator, defs []strategy.Definition, benchmarks []domain.BenchmarkReturn, window domain.Window, workers int) []Outcome {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	workCh := make(chan int, len(defs))
	outcomes := make([]Outcome, len(defs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				def := defs[idx]
				ledger, err := eval.Evaluate(ctx, def, window)
				if err != nil {
					slog.Warn("strategy evaluation failed",
						"strategy", def.Name,
						"err", err,
					)
					outcomes[idx] = Outcome{Def: def, Err: err}
					continue
				}
				outcomes[idx] = Outcome{
					Def:    def,
					Result: compare.Compare(def, ledger, benchmarks, window),
					Ledger: ledger,
				}
			}
		}()
	}

	for i := range defs {
		workCh <- i
	}
	close(workCh)
	wg.Wait()

	// Ranking estable: retorno descendente, fallos al final por nombre.
	sort.SliceStable(outcomes, func(i, j int) bool {
		a, b := outcomes[i], outcomes[j]
		switch {
		case a.Err == nil && b.Err != nil:
			return true
		case a.Err != nil && b.Err == nil:
			return false
		case a.Err != nil && b.Err != nil:
			return a.Def.Name < b.Def.Name
		}
		if a.Result.StrategyReturn != b.Result.StrategyReturn {
			return a.Result.StrategyReturn > b.Result.StrategyReturn
		}
		return a.Def.Name < b.Def.Name
	})

	slog.Debug("sweep complete",
		"strategies", len(defs),
		"workers", workers,
	)
	return outcomes
}
