package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
)

const spotRangePath = "/api/v3/coins/%s/market_chart/range"

// spotRangeResponse es la respuesta del endpoint market_chart/range:
// pares [timestamp_ms, precio] a resolución variable (horaria o diaria
// según el tamaño del rango pedido).
type spotRangeResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// FetchSpotBars descarga los cierres diarios spot de la cripto dentro de la
// ventana, uno por día UTC, ordenados ascendente. El proveedor no publica
// OHLC diario en este endpoint: cada barra lleva el último precio del día
// en los cuatro campos y volumen 0. Para el cálculo buy-and-hold solo se
// usa el close, así que la serie es equivalente.
func (c *Client) FetchSpotBars(ctx context.Context, coinID domain.AssetID, window domain.Window) ([]domain.PriceBar, error) {
	// El rango es inclusivo en sesiones: hasta el final del día To.
	from := window.From.Unix()
	to := window.To.AddDate(0, 0, 1).Unix()

	url := fmt.Sprintf("%s"+spotRangePath+"?vs_currency=usd&from=%d&to=%d",
		c.spotBase, coinID, from, to)

	var resp spotRangeResponse
	if err := c.get(ctx, c.spotLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("provider.FetchSpotBars: %s: %w", coinID, err)
	}

	// Quedarse con el último precio de cada día UTC.
	lastOfDay := make(map[time.Time]float64, len(resp.Prices))
	for _, p := range resp.Prices {
		ts := time.UnixMilli(int64(p[0])).UTC()
		day := domain.SessionDate(ts)
		if !window.Contains(day) {
			continue
		}
		lastOfDay[day] = p[1]
	}

	bars := make([]domain.PriceBar, 0, len(lastOfDay))
	for day, price := range lastOfDay {
		bars = append(bars, domain.PriceBar{
			Asset:     coinID,
			Timestamp: day,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	slog.Debug("spot bars fetched", "coin", coinID, "window", window, "bars", len(bars))
	return bars, nil
}
