package benchmark

// benchmark.go — retornos buy-and-hold de los activos de referencia.
//
// Para los benchmarks con serie spot alternativa (BTC, ETH) se calculan
// ambos retornos y gana el más alto. Una serie que no cubre la ventana
// (bordes fuera de tolerancia, o DataGapError del store) se descarta sin
// abortar: solo cuando ninguna serie del benchmark sirve se falla con
// InsufficientDataError.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/ports"
)

// Calculator calcula retornos buy-and-hold contra el dataset histórico.
type Calculator struct {
	data          ports.MarketData
	edgeTolerance int // sesiones hábiles de margen en los bordes de la ventana
}

// New crea un Calculator. edgeTolerance es cuántas sesiones hábiles puede
// alejarse la primera/última barra de una serie de los bordes de la ventana
// sin descartarla.
func New(data ports.MarketData, edgeTolerance int) *Calculator {
	return &Calculator{data: data, edgeTolerance: edgeTolerance}
}

// BuyAndHoldReturn calcula el retorno buy-and-hold del benchmark sobre la
// ventana: comprar al close de la primera sesión cubierta, valorar al close
// de la última. Con serie ETF y spot disponibles devuelve la de retorno más
// alto.
func (c *Calculator) BuyAndHoldReturn(ctx context.Context, spec domain.BenchmarkSpec, window domain.Window) (domain.BenchmarkReturn, error) {
	var (
		candidates []domain.BenchmarkReturn
		reasons    []string
	)

	try := func(series domain.AssetID, source domain.SeriesSource) error {
		ret, err := c.seriesReturn(ctx, series, window)
		if err != nil {
			// Una serie con huecos o ausente no descalifica el benchmark:
			// puede cubrirlo la otra.
			var gapErr *domain.DataGapError
			if errors.As(err, &gapErr) {
				reasons = append(reasons, fmt.Sprintf("%s: %v", series, err))
				return nil
			}
			return err
		}
		ret.Benchmark = spec.Name
		ret.Source = source
		candidates = append(candidates, ret)
		return nil
	}

	if err := try(spec.ETF, domain.SourceETF); err != nil {
		return domain.BenchmarkReturn{}, err
	}
	if spec.HasSpot() {
		if err := try(spec.Spot, domain.SourceSpot); err != nil {
			return domain.BenchmarkReturn{}, err
		}
	}

	if len(candidates) == 0 {
		return domain.BenchmarkReturn{}, &domain.InsufficientDataError{
			Benchmark: spec.Name,
			Window:    window,
			Reason:    strings.Join(reasons, "; "),
		}
	}

	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.Return > best.Return {
			best = cand
		}
	}

	slog.Debug("benchmark computed",
		"benchmark", spec.Name,
		"series", best.Series,
		"source", best.Source,
		"return", best.Return,
	)
	return best, nil
}

// All calcula los retornos de todos los benchmarks, en el orden dado.
// Cualquier benchmark sin datos aborta el conjunto: el threshold 2× solo
// tiene sentido con los cuatro retornos completos.
func (c *Calculator) All(ctx context.Context, specs []domain.BenchmarkSpec, window domain.Window) ([]domain.BenchmarkReturn, error) {
	out := make([]domain.BenchmarkReturn, 0, len(specs))
	for _, spec := range specs {
		ret, err := c.BuyAndHoldReturn(ctx, spec, window)
		if err != nil {
			return nil, err
		}
		out = append(out, ret)
	}
	return out, nil
}

// seriesReturn calcula el retorno de una serie concreta, validando que sus
// bordes caen dentro de la tolerancia respecto a la ventana.
func (c *Calculator) seriesReturn(ctx context.Context, series domain.AssetID, window domain.Window) (domain.BenchmarkReturn, error) {
	bars, err := c.data.GetPriceHistory(ctx, series, window)
	if err != nil {
		return domain.BenchmarkReturn{}, err
	}
	if len(bars) < 2 {
		return domain.BenchmarkReturn{}, &domain.DataGapError{
			Asset:     series,
			From:      window.From,
			To:        window.To,
			Missing:   domain.WeekdaySessions(window.From.AddDate(0, 0, -1), window.To.AddDate(0, 0, 1)) - len(bars),
			Tolerance: c.edgeTolerance,
		}
	}

	first, last := bars[0], bars[len(bars)-1]
	if missing := domain.WeekdaySessions(window.From.AddDate(0, 0, -1), first.Timestamp); missing > c.edgeTolerance {
		return domain.BenchmarkReturn{}, &domain.DataGapError{
			Asset: series, From: window.From, To: first.Timestamp,
			Missing: missing, Tolerance: c.edgeTolerance,
		}
	}
	if missing := domain.WeekdaySessions(last.Timestamp, window.To.AddDate(0, 0, 1)); missing > c.edgeTolerance {
		return domain.BenchmarkReturn{}, &domain.DataGapError{
			Asset: series, From: last.Timestamp, To: window.To,
			Missing: missing, Tolerance: c.edgeTolerance,
		}
	}

	return domain.BenchmarkReturn{
		Series:     series,
		StartValue: first.Close,
		EndValue:   last.Close,
		Return:     domain.HoldingReturn(first.Close, last.Close),
	}, nil
}
