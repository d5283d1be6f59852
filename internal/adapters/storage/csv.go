package storage

// csv.go — import/export de datasets en CSV.
//
// Dos formatos de archivo, reconocidos por nombre:
//   - `{asset}_daily_bars.csv`: serie diaria OHLCV, autocontenida (columna asset).
//   - `{exchange}_{ticker}_options_chain_{YYYY-MM-DD}[_as_of_{hora}].csv`:
//     snapshot de chain con las columnas del dataset agregado original;
//     el subyacente y la sesión van en el nombre del archivo.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/ports"
)

const (
	barsFileSuffix   = "_daily_bars.csv"
	chainFileMarker  = "_options_chain_"
	chainDateSegment = len("2006-01-02")
)

type barRow struct {
	Asset   string  `csv:"asset"`
	Session string  `csv:"session"`
	Open    float64 `csv:"open"`
	High    float64 `csv:"high"`
	Low     float64 `csv:"low"`
	Close   float64 `csv:"close"`
	Volume  float64 `csv:"volume"`
}

type quoteRow struct {
	ContractID        string  `csv:"contract_id"`
	Type              string  `csv:"type"`
	Strike            float64 `csv:"strike"`
	Expiration        string  `csv:"expiration"`
	Volume            float64 `csv:"volume"`
	OpenInterest      int     `csv:"open_interest"`
	ImpliedVolatility float64 `csv:"implied_volatility"`
	Bid               float64 `csv:"bid"`
	Ask               float64 `csv:"ask"`
}

type tradeRow struct {
	ID          string  `csv:"id"`
	ContractID  string  `csv:"contract_id"`
	Underlying  string  `csv:"underlying"`
	Type        string  `csv:"type"`
	Strike      float64 `csv:"strike"`
	Expiration  string  `csv:"expiration"`
	Quantity    int     `csv:"quantity"`
	OpenedAt    string  `csv:"opened_at"`
	OpenPrice   float64 `csv:"open_price"`
	ClosedAt    string  `csv:"closed_at"`
	ClosePrice  float64 `csv:"close_price"`
	Fees        float64 `csv:"fees"`
	RealizedPnL float64 `csv:"realized_pnl"`
	ExitReason  string  `csv:"exit_reason"`
	ForcedClose bool    `csv:"forced_close"`
}

// ImportDir carga en el store todos los CSVs reconocidos del directorio.
// Los archivos que no siguen ninguno de los dos formatos se ignoran con un
// log; un archivo ilegible aborta el import entero.
func ImportDir(ctx context.Context, dir string, store ports.DatasetStore) (bars, quotes int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("storage.ImportDir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		path := filepath.Join(dir, e.Name())

		switch {
		case strings.HasSuffix(e.Name(), barsFileSuffix):
			n, ferr := importBarsFile(ctx, path, store)
			if ferr != nil {
				return bars, quotes, ferr
			}
			bars += n
		case strings.Contains(e.Name(), chainFileMarker):
			n, ferr := importChainFile(ctx, path, store)
			if ferr != nil {
				return bars, quotes, ferr
			}
			quotes += n
		default:
			slog.Debug("skipping unrecognized csv", "file", e.Name())
		}
	}
	return bars, quotes, nil
}

// importBarsFile carga un archivo de barras diarias.
func importBarsFile(ctx context.Context, path string, store ports.DatasetStore) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("storage.importBarsFile: %w", err)
	}
	defer f.Close()

	var rows []barRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return 0, fmt.Errorf("storage.importBarsFile: parse %q: %w", path, err)
	}

	bars := make([]domain.PriceBar, 0, len(rows))
	for _, r := range rows {
		session, err := time.Parse(sessionLayout, r.Session)
		if err != nil {
			return 0, fmt.Errorf("storage.importBarsFile: %q: session %q: %w", path, r.Session, err)
		}
		bars = append(bars, domain.PriceBar{
			Asset:     domain.AssetID(r.Asset),
			Timestamp: session,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		})
	}
	return store.SaveBars(ctx, bars)
}

// importChainFile carga un snapshot de chain; subyacente y sesión salen del
// nombre del archivo.
func importChainFile(ctx context.Context, path string, store ports.DatasetStore) (int, error) {
	underlying, session, err := parseChainFilename(filepath.Base(path))
	if err != nil {
		return 0, fmt.Errorf("storage.importChainFile: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("storage.importChainFile: %w", err)
	}
	defer f.Close()

	var rows []quoteRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return 0, fmt.Errorf("storage.importChainFile: parse %q: %w", path, err)
	}

	quotes := make([]domain.OptionQuote, 0, len(rows))
	for _, r := range rows {
		typ := domain.OptionType(r.Type)
		if err := typ.Validate(); err != nil {
			return 0, fmt.Errorf("storage.importChainFile: %q: contrato %s: %w", path, r.ContractID, err)
		}
		expiration, err := time.Parse(sessionLayout, r.Expiration)
		if err != nil {
			return 0, fmt.Errorf("storage.importChainFile: %q: expiration %q: %w", path, r.Expiration, err)
		}
		quotes = append(quotes, domain.OptionQuote{
			ContractID:   r.ContractID,
			Underlying:   underlying,
			Type:         typ,
			Strike:       r.Strike,
			Expiration:   expiration,
			Bid:          r.Bid,
			Ask:          r.Ask,
			ImpliedVol:   r.ImpliedVolatility,
			Volume:       r.Volume,
			OpenInterest: r.OpenInterest,
			Timestamp:    session,
		})
	}
	return store.SaveQuotes(ctx, quotes)
}

// parseChainFilename extrae el ticker y la fecha de sesión de un nombre
// `{exchange}_{ticker}_options_chain_{YYYY-MM-DD}...csv`.
func parseChainFilename(name string) (domain.AssetID, time.Time, error) {
	idx := strings.Index(name, chainFileMarker)
	if idx < 0 {
		return "", time.Time{}, fmt.Errorf("nombre de chain no reconocido: %q", name)
	}

	prefix := name[:idx] // "{exchange}_{ticker}"
	us := strings.LastIndex(prefix, "_")
	if us < 0 || us == len(prefix)-1 {
		return "", time.Time{}, fmt.Errorf("nombre de chain sin ticker: %q", name)
	}
	ticker := prefix[us+1:]

	rest := name[idx+len(chainFileMarker):]
	if len(rest) < chainDateSegment {
		return "", time.Time{}, fmt.Errorf("nombre de chain sin fecha: %q", name)
	}
	session, err := time.Parse(sessionLayout, rest[:chainDateSegment])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("fecha de chain inválida en %q: %w", name, err)
	}
	return domain.AssetID(strings.ToUpper(ticker)), session, nil
}

// BarsFileName devuelve el nombre de archivo de la serie diaria de un activo.
func BarsFileName(asset domain.AssetID) string {
	return string(asset) + barsFileSuffix
}

// ChainFileName devuelve el nombre de archivo de un snapshot de chain,
// con el formato del dataset agregado original.
func ChainFileName(exchange string, underlying domain.AssetID, session time.Time) string {
	return fmt.Sprintf("%s_%s%s%s.csv",
		exchange, underlying, chainFileMarker, session.Format(sessionLayout))
}

// ExportBarsCSV escribe una serie de barras en la ruta dada.
func ExportBarsCSV(path string, bars []domain.PriceBar) error {
	rows := make([]barRow, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, barRow{
			Asset:   string(b.Asset),
			Session: domain.SessionDate(b.Timestamp).Format(sessionLayout),
			Open:    b.Open,
			High:    b.High,
			Low:     b.Low,
			Close:   b.Close,
			Volume:  b.Volume,
		})
	}
	return writeCSV(path, &rows)
}

// ExportChainCSV escribe un snapshot de chain en la ruta dada.
func ExportChainCSV(path string, chain domain.OptionChain) error {
	rows := make([]quoteRow, 0, len(chain))
	for _, q := range chain {
		rows = append(rows, quoteRow{
			ContractID:        q.ContractID,
			Type:              string(q.Type),
			Strike:            q.Strike,
			Expiration:        domain.SessionDate(q.Expiration).Format(sessionLayout),
			Volume:            q.Volume,
			OpenInterest:      q.OpenInterest,
			ImpliedVolatility: q.ImpliedVol,
			Bid:               q.Bid,
			Ask:               q.Ask,
		})
	}
	return writeCSV(path, &rows)
}

// ExportLedgerCSV escribe el ledger de trades de una evaluación en la ruta dada.
func ExportLedgerCSV(path string, ledger domain.TradeLedger) error {
	rows := make([]tradeRow, 0, len(ledger.Trades))
	for _, t := range ledger.Trades {
		rows = append(rows, tradeRow{
			ID:          t.ID,
			ContractID:  t.ContractID,
			Underlying:  string(t.Underlying),
			Type:        string(t.Type),
			Strike:      t.Strike,
			Expiration:  domain.SessionDate(t.Expiration).Format(sessionLayout),
			Quantity:    t.Quantity,
			OpenedAt:    domain.SessionDate(t.OpenedAt).Format(sessionLayout),
			OpenPrice:   t.OpenPrice,
			ClosedAt:    domain.SessionDate(t.ClosedAt).Format(sessionLayout),
			ClosePrice:  t.ClosePrice,
			Fees:        t.Fees,
			RealizedPnL: t.RealizedPnL,
			ExitReason:  string(t.ExitReason),
			ForcedClose: t.ForcedClose,
		})
	}
	return writeCSV(path, &rows)
}

// writeCSV serializa las filas con gocsv en un archivo nuevo.
func writeCSV(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage.writeCSV: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("storage.writeCSV: %q: %w", path, err)
	}
	return nil
}
