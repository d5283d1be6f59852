package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// DatasetStore persiste datos de mercado descargados (modo fetch) o
// importados de CSV. Los upserts son idempotentes: re-importar el mismo
// archivo no duplica filas.
type DatasetStore interface {
	// SaveBars hace upsert de barras diarias. Devuelve cuántas filas escribió.
	SaveBars(ctx context.Context, bars []domain.PriceBar) (int, error)

	// SaveQuotes hace upsert de quotes de opciones. Devuelve cuántas filas escribió.
	SaveQuotes(ctx context.Context, quotes []domain.OptionQuote) (int, error)
}

// ResultStore persiste el histórico de evaluaciones terminadas. Solo se
// guardan resultados completos: un run que falla por datos no deja rastro.
type ResultStore interface {
	// SaveEvaluation persiste el resultado con sus retornos de benchmark.
	SaveEvaluation(ctx context.Context, result domain.EvaluationResult) error

	// GetEvaluations devuelve las evaluaciones selladas dentro del rango,
	// la más reciente primero.
	GetEvaluations(ctx context.Context, from, to time.Time) ([]domain.EvaluationResult, error)
}
