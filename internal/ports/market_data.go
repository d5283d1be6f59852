package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// MarketData da acceso de solo lectura al dataset histórico persistido.
// Las evaluaciones nunca mutan datos: la implementación debe ser segura
// para lectores concurrentes (el modo sweep evalúa en paralelo).
type MarketData interface {
	// GetPriceHistory devuelve las barras diarias del activo dentro de la
	// ventana, ordenadas por sesión, una por día hábil con datos. Falla con
	// *domain.DataGapError si faltan sesiones consecutivas por encima de la
	// tolerancia configurada.
	GetPriceHistory(ctx context.Context, assetID domain.AssetID, window domain.Window) ([]domain.PriceBar, error)

	// GetOptionChain devuelve el snapshot de la chain del subyacente en la
	// sesión dada. Chain vacía si ese día no hay quotes — el evaluador decide
	// qué hacer con la ausencia, no es un error del store.
	GetOptionChain(ctx context.Context, underlying domain.AssetID, date time.Time) (domain.OptionChain, error)
}
