package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
)

const (
	queryPath          = "/query"
	functionDailyBars  = "TIME_SERIES_DAILY"
	dailySeriesKey     = "Time Series (Daily)"
	providerDateLayout = "2006-01-02"
)

// dailyResponse es la respuesta cruda del endpoint TIME_SERIES_DAILY:
// un mapa de fecha → OHLCV con los valores como strings.
type dailyResponse struct {
	ErrorMessage string                     `json:"Error Message"`
	Note         string                     `json:"Note"`
	Series       map[string]dailySeriesBar `json:"Time Series (Daily)"`
}

type dailySeriesBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// FetchDailyBars descarga la serie diaria OHLCV completa del activo,
// ordenada por sesión ascendente. Las sesiones con valores no numéricos
// se descartan sin abortar la descarga.
func (c *Client) FetchDailyBars(ctx context.Context, assetID domain.AssetID) ([]domain.PriceBar, error) {
	url := fmt.Sprintf("%s%s?function=%s&symbol=%s&outputsize=full&apikey=%s",
		c.marketBase, queryPath, functionDailyBars, assetID, c.apiKey)

	var resp dailyResponse
	if err := c.get(ctx, c.marketLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("provider.FetchDailyBars: %s: %w", assetID, err)
	}
	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("provider.FetchDailyBars: %s: API error: %s", assetID, resp.ErrorMessage)
	}
	if len(resp.Series) == 0 {
		// El proveedor responde 200 con una "Note" al agotar la cuota.
		if resp.Note != "" {
			return nil, fmt.Errorf("provider.FetchDailyBars: %s: %s", assetID, resp.Note)
		}
		return nil, fmt.Errorf("provider.FetchDailyBars: %s: serie vacía", assetID)
	}

	bars := make([]domain.PriceBar, 0, len(resp.Series))
	skipped := 0
	for date, raw := range resp.Series {
		session, err := time.Parse(providerDateLayout, date)
		if err != nil {
			skipped++
			continue
		}
		bar, err := parseBar(assetID, session, raw)
		if err != nil {
			skipped++
			continue
		}
		bars = append(bars, bar)
	}
	if skipped > 0 {
		slog.Debug("skipped malformed daily bars", "asset", assetID, "skipped", skipped)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	slog.Debug("daily bars fetched", "asset", assetID, "bars", len(bars))
	return bars, nil
}

// parseBar convierte los strings OHLCV del proveedor en una PriceBar.
func parseBar(assetID domain.AssetID, session time.Time, raw dailySeriesBar) (domain.PriceBar, error) {
	open, err := strconv.ParseFloat(raw.Open, 64)
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("open %q: %w", raw.Open, err)
	}
	high, err := strconv.ParseFloat(raw.High, 64)
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("high %q: %w", raw.High, err)
	}
	low, err := strconv.ParseFloat(raw.Low, 64)
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("low %q: %w", raw.Low, err)
	}
	closePx, err := strconv.ParseFloat(raw.Close, 64)
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("close %q: %w", raw.Close, err)
	}
	volume, _ := strconv.ParseFloat(raw.Volume, 64)

	return domain.PriceBar{
		Asset:     assetID,
		Timestamp: domain.SessionDate(session),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePx,
		Volume:    volume,
	}, nil
}
