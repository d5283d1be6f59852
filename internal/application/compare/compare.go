package compare

// compare.go — veredicto de una evaluación: el retorno de la estrategia
// contra el doble del mejor benchmark buy-and-hold. Función pura, sin
// efectos: persistir y reportar son trabajo de los adaptadores.

import (
	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/strategy"
)

// Compare agrega el P&L del ledger en un retorno sobre el capital inicial
// de la estrategia y lo compara contra el threshold:
//
//	threshold = 2 × max(retornos benchmark)
//	pass      = retorno estrategia >= threshold
//
// Un ledger vacío produce retorno 0 y un resultado definido (normalmente
// FAIL, salvo que todos los benchmarks pierdan lo suficiente). El ID del
// run lo asigna el caller antes de persistir.
func Compare(def strategy.Definition, ledger domain.TradeLedger, benchmarks []domain.BenchmarkReturn, window domain.Window) domain.EvaluationResult {
	strategyReturn := ledger.Return(def.Sizing.InitialCapital)
	threshold := domain.ThresholdMultiple * domain.MaxBenchmarkReturn(benchmarks)

	return domain.EvaluationResult{
		Strategy:       def.Name,
		Window:         window,
		StrategyReturn: strategyReturn,
		Benchmarks:     benchmarks,
		Threshold:      threshold,
		Pass:           strategyReturn >= threshold,
		Trades:         len(ledger.Trades),
	}
}
