package domain

import "time"

// ThresholdMultiple es el múltiplo que una estrategia debe superar sobre el
// mejor benchmark buy-and-hold para considerarse aprobada.
const ThresholdMultiple = 2.0

// EvaluationResult es el veredicto de una evaluación: el retorno de la
// estrategia contra el doble del mejor benchmark. Derivado del ledger y de
// los benchmarks, nunca se muta tras crearse. Un fallo de datos aborta el
// run sin producir resultado — no existen resultados parciales.
type EvaluationResult struct {
	ID       string // uuid del run, asignado por el caller antes de persistir
	Strategy string
	Window   Window

	StrategyReturn float64 // Σ RealizedPnL / capital inicial; 0 con ledger vacío
	Benchmarks     []BenchmarkReturn
	Threshold      float64 // ThresholdMultiple × max(retornos benchmark)
	Pass           bool    // StrategyReturn >= Threshold

	Trades      int
	EvaluatedAt time.Time // sellado por el store al persistir; cero en resultados aún no guardados
}

// Verdict devuelve PASS o FAIL para reportes.
func (r EvaluationResult) Verdict() string {
	if r.Pass {
		return "PASS"
	}
	return "FAIL"
}
