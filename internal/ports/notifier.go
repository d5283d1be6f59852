package ports

import (
	"context"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// Reporter presenta el resultado de una evaluación al usuario.
type Reporter interface {
	// Report muestra el veredicto PASS/FAIL con el ledger y los benchmarks.
	// En la implementación de consola, imprime tablas formateadas y
	// estadísticas de apoyo.
	Report(ctx context.Context, result domain.EvaluationResult, ledger domain.TradeLedger) error
}
