package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// BarProvider descarga la serie diaria OHLCV completa de un activo desde el
// proveedor de datos de mercado.
type BarProvider interface {
	FetchDailyBars(ctx context.Context, assetID domain.AssetID) ([]domain.PriceBar, error)
}

// ChainProvider descarga el snapshot histórico de la option chain de un
// subyacente en una sesión concreta.
type ChainProvider interface {
	FetchOptionChain(ctx context.Context, underlying domain.AssetID, date time.Time) (domain.OptionChain, error)
}

// SpotProvider descarga cierres diarios spot de una cripto (serie alternativa
// de los benchmarks BTC/ETH).
type SpotProvider interface {
	FetchSpotBars(ctx context.Context, coinID domain.AssetID, window domain.Window) ([]domain.PriceBar, error)
}
