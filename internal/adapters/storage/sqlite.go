package storage

// sqlite.go — dataset de mercado e histórico de evaluaciones en un solo archivo.
//
// Estrategia:
//   - `price_bars`: una fila por (activo, sesión). UPSERT idempotente: re-fetch
//     o re-import del mismo rango no duplica nada.
//   - `option_quotes`: una fila por (contrato, sesión). Snapshots históricos
//     completos de la chain, muchos por subyacente y día.
//   - `evaluations` + `evaluation_benchmarks`: solo resultados completos; un
//     run que falla por datos no deja filas.
//   - Cache en memoria de series de precios por (activo, ventana): el modo
//     sweep pide la misma ventana para cada estrategia y para los benchmarks;
//     validar los gaps una sola vez amortiza el coste entre evaluaciones.

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Serie diaria OHLCV por activo: equities/ETFs y series spot de cripto
CREATE TABLE IF NOT EXISTS price_bars (
    asset   TEXT NOT NULL,
    session TEXT NOT NULL, -- fecha de sesión YYYY-MM-DD (UTC)
    open    REAL NOT NULL,
    high    REAL NOT NULL,
    low     REAL NOT NULL,
    close   REAL NOT NULL,
    volume  REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (asset, session)
);

-- Snapshot histórico de option chains: una fila por contrato y sesión
CREATE TABLE IF NOT EXISTS option_quotes (
    contract_id   TEXT NOT NULL,
    session       TEXT NOT NULL,
    underlying    TEXT NOT NULL,
    type          TEXT NOT NULL,
    strike        REAL NOT NULL,
    expiration    TEXT NOT NULL,
    bid           REAL NOT NULL DEFAULT 0,
    ask           REAL NOT NULL DEFAULT 0,
    implied_vol   REAL NOT NULL DEFAULT 0,
    volume        REAL NOT NULL DEFAULT 0,
    open_interest INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (contract_id, session)
);

-- Histórico de evaluaciones: el veredicto y sus benchmarks
CREATE TABLE IF NOT EXISTS evaluations (
    id              TEXT PRIMARY KEY,
    strategy        TEXT NOT NULL,
    window_from     TEXT NOT NULL,
    window_to       TEXT NOT NULL,
    strategy_return REAL NOT NULL,
    threshold       REAL NOT NULL,
    pass            INTEGER NOT NULL,
    trades          INTEGER NOT NULL DEFAULT 0,
    evaluated_at    TEXT NOT NULL -- RFC3339 UTC
);

CREATE TABLE IF NOT EXISTS evaluation_benchmarks (
    eval_id      TEXT NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
    benchmark    TEXT NOT NULL,
    series       TEXT NOT NULL,
    source       TEXT NOT NULL,
    start_value  REAL NOT NULL,
    end_value    REAL NOT NULL,
    return_ratio REAL NOT NULL,
    PRIMARY KEY (eval_id, benchmark)
);

CREATE INDEX IF NOT EXISTS idx_quotes_chain ON option_quotes(underlying, session);
CREATE INDEX IF NOT EXISTS idx_eval_at      ON evaluations(evaluated_at DESC);
`

const sessionLayout = "2006-01-02"

// SQLiteStore implementa ports.MarketData, ports.DatasetStore y
// ports.ResultStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db             *sql.DB
	maxGapSessions int

	mu        sync.RWMutex
	barsCache map[string][]domain.PriceBar // "asset|ventana" → serie ya validada
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica el
// schema. maxGapSessions es la tolerancia de sesiones hábiles consecutivas
// sin datos antes de fallar con DataGapError.
func NewSQLiteStore(path string, maxGapSessions int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	return &SQLiteStore{
		db:             db,
		maxGapSessions: maxGapSessions,
		barsCache:      make(map[string][]domain.PriceBar),
	}, nil
}

// GetPriceHistory devuelve las barras del activo dentro de la ventana,
// ordenadas por sesión, tras validar que no hay huecos por encima de la
// tolerancia. Las series validadas se cachean por (activo, ventana); los
// callers tratan el slice devuelto como de solo lectura.
func (s *SQLiteStore) GetPriceHistory(ctx context.Context, assetID domain.AssetID, window domain.Window) ([]domain.PriceBar, error) {
	key := string(assetID) + "|" + window.String()

	s.mu.RLock()
	cached, ok := s.barsCache[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT asset, session, open, high, low, close, volume
		FROM price_bars
		WHERE asset = ? AND session BETWEEN ? AND ?
		ORDER BY session ASC
	`, string(assetID), window.From.Format(sessionLayout), window.To.Format(sessionLayout))
	if err != nil {
		return nil, fmt.Errorf("storage.GetPriceHistory: query %s: %w", assetID, err)
	}
	defer rows.Close()

	var bars []domain.PriceBar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.GetPriceHistory: %w", err)
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.GetPriceHistory: rows: %w", err)
	}

	if err := s.checkGaps(assetID, window, bars); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.barsCache[key] = bars
	s.mu.Unlock()
	return bars, nil
}

// GetOptionChain devuelve el snapshot de la chain en la sesión dada,
// ordenado por contract_id para que la selección sea estable.
func (s *SQLiteStore) GetOptionChain(ctx context.Context, underlying domain.AssetID, date time.Time) (domain.OptionChain, error) {
	session := domain.SessionDate(date)

	rows, err := s.db.QueryContext(ctx, `
		SELECT contract_id, session, underlying, type, strike, expiration,
		       bid, ask, implied_vol, volume, open_interest
		FROM option_quotes
		WHERE underlying = ? AND session = ?
		ORDER BY contract_id ASC
	`, string(underlying), session.Format(sessionLayout))
	if err != nil {
		return nil, fmt.Errorf("storage.GetOptionChain: query %s@%s: %w",
			underlying, session.Format(sessionLayout), err)
	}
	defer rows.Close()

	var chain domain.OptionChain
	for rows.Next() {
		var q domain.OptionQuote
		var sessionStr, expirationStr, typeStr, underlyingStr string
		if err := rows.Scan(
			&q.ContractID,
			&sessionStr,
			&underlyingStr,
			&typeStr,
			&q.Strike,
			&expirationStr,
			&q.Bid,
			&q.Ask,
			&q.ImpliedVol,
			&q.Volume,
			&q.OpenInterest,
		); err != nil {
			return nil, fmt.Errorf("storage.GetOptionChain: scan row: %w", err)
		}
		q.Underlying = domain.AssetID(underlyingStr)
		q.Type = domain.OptionType(typeStr)
		q.Timestamp, _ = time.Parse(sessionLayout, sessionStr)
		q.Expiration, _ = time.Parse(sessionLayout, expirationStr)
		chain = append(chain, q)
	}
	return chain, rows.Err()
}

// SaveBars hace upsert de las barras en una sola transacción e invalida la
// cache de series.
func (s *SQLiteStore) SaveBars(ctx context.Context, bars []domain.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveBars: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_bars (asset, session, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset, session) DO UPDATE SET
			open   = excluded.open,
			high   = excluded.high,
			low    = excluded.low,
			close  = excluded.close,
			volume = excluded.volume
	`)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveBars: prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			string(b.Asset),
			domain.SessionDate(b.Timestamp).Format(sessionLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		); err != nil {
			return 0, fmt.Errorf("storage.SaveBars: upsert %s@%s: %w",
				b.Asset, b.Timestamp.Format(sessionLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage.SaveBars: commit: %w", err)
	}

	// Las series cacheadas pueden haber cambiado.
	s.mu.Lock()
	s.barsCache = make(map[string][]domain.PriceBar)
	s.mu.Unlock()

	return len(bars), nil
}

// SaveQuotes hace upsert de los quotes en una sola transacción.
func (s *SQLiteStore) SaveQuotes(ctx context.Context, quotes []domain.OptionQuote) (int, error) {
	if len(quotes) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveQuotes: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO option_quotes
			(contract_id, session, underlying, type, strike, expiration,
			 bid, ask, implied_vol, volume, open_interest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(contract_id, session) DO UPDATE SET
			bid           = excluded.bid,
			ask           = excluded.ask,
			implied_vol   = excluded.implied_vol,
			volume        = excluded.volume,
			open_interest = excluded.open_interest
	`)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveQuotes: prepare: %w", err)
	}
	defer stmt.Close()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx,
			q.ContractID,
			domain.SessionDate(q.Timestamp).Format(sessionLayout),
			string(q.Underlying),
			string(q.Type),
			q.Strike,
			domain.SessionDate(q.Expiration).Format(sessionLayout),
			q.Bid, q.Ask, q.ImpliedVol, q.Volume, q.OpenInterest,
		); err != nil {
			return 0, fmt.Errorf("storage.SaveQuotes: upsert %s: %w", q.ContractID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage.SaveQuotes: commit: %w", err)
	}
	return len(quotes), nil
}

// SaveEvaluation persiste el resultado y sus benchmarks en una transacción.
// El sello evaluated_at lo pone el store al escribir.
func (s *SQLiteStore) SaveEvaluation(ctx context.Context, result domain.EvaluationResult) error {
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveEvaluation: begin tx: %w", err)
	}
	defer tx.Rollback()

	pass := 0
	if result.Pass {
		pass = 1
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO evaluations
			(id, strategy, window_from, window_to, strategy_return, threshold, pass, trades, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.ID,
		result.Strategy,
		result.Window.From.Format(sessionLayout),
		result.Window.To.Format(sessionLayout),
		result.StrategyReturn,
		result.Threshold,
		pass,
		result.Trades,
		now,
	); err != nil {
		return fmt.Errorf("storage.SaveEvaluation: insert %s: %w", result.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO evaluation_benchmarks
			(eval_id, benchmark, series, source, start_value, end_value, return_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveEvaluation: prepare benchmarks: %w", err)
	}
	defer stmt.Close()

	for _, b := range result.Benchmarks {
		if _, err := stmt.ExecContext(ctx,
			result.ID,
			string(b.Benchmark),
			string(b.Series),
			string(b.Source),
			b.StartValue,
			b.EndValue,
			b.Return,
		); err != nil {
			return fmt.Errorf("storage.SaveEvaluation: insert benchmark %s: %w", b.Benchmark, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveEvaluation: commit: %w", err)
	}
	return nil
}

// GetEvaluations devuelve las evaluaciones selladas en el rango dado,
// la más reciente primero, con sus benchmarks.
func (s *SQLiteStore) GetEvaluations(ctx context.Context, from, to time.Time) ([]domain.EvaluationResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, window_from, window_to, strategy_return, threshold, pass, trades, evaluated_at
		FROM evaluations
		WHERE evaluated_at BETWEEN ? AND ?
		ORDER BY evaluated_at DESC
	`, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("storage.GetEvaluations: query: %w", err)
	}
	defer rows.Close()

	var results []domain.EvaluationResult
	for rows.Next() {
		var r domain.EvaluationResult
		var fromStr, toStr, evaluatedAt string
		var pass int

		if err := rows.Scan(
			&r.ID,
			&r.Strategy,
			&fromStr,
			&toStr,
			&r.StrategyReturn,
			&r.Threshold,
			&pass,
			&r.Trades,
			&evaluatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetEvaluations: scan row: %w", err)
		}

		windowFrom, _ := time.Parse(sessionLayout, fromStr)
		windowTo, _ := time.Parse(sessionLayout, toStr)
		r.Window = domain.Window{From: windowFrom, To: windowTo}
		r.Pass = pass == 1
		r.EvaluatedAt, _ = time.Parse(time.RFC3339, evaluatedAt)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		benchmarks, err := s.evaluationBenchmarks(ctx, results[i].ID)
		if err != nil {
			return nil, err
		}
		results[i].Benchmarks = benchmarks
	}
	return results, nil
}

// Assets devuelve los activos con barras en el store, ordenados por id.
func (s *SQLiteStore) Assets(ctx context.Context) ([]domain.AssetID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT asset FROM price_bars ORDER BY asset ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.Assets: query: %w", err)
	}
	defer rows.Close()

	var out []domain.AssetID
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("storage.Assets: scan: %w", err)
		}
		out = append(out, domain.AssetID(a))
	}
	return out, rows.Err()
}

// AllBars devuelve la serie completa de un activo sin validar gaps
// (para export: el dataset sale tal cual está guardado).
func (s *SQLiteStore) AllBars(ctx context.Context, assetID domain.AssetID) ([]domain.PriceBar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset, session, open, high, low, close, volume
		FROM price_bars
		WHERE asset = ?
		ORDER BY session ASC
	`, string(assetID))
	if err != nil {
		return nil, fmt.Errorf("storage.AllBars: query %s: %w", assetID, err)
	}
	defer rows.Close()

	var bars []domain.PriceBar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.AllBars: %w", err)
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

// ChainSessions devuelve las sesiones con snapshot de chain del subyacente,
// ordenadas ascendente.
func (s *SQLiteStore) ChainSessions(ctx context.Context, underlying domain.AssetID) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT session FROM option_quotes
		WHERE underlying = ?
		ORDER BY session ASC
	`, string(underlying))
	if err != nil {
		return nil, fmt.Errorf("storage.ChainSessions: query %s: %w", underlying, err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, fmt.Errorf("storage.ChainSessions: scan: %w", err)
		}
		d, err := time.Parse(sessionLayout, session)
		if err != nil {
			return nil, fmt.Errorf("storage.ChainSessions: session %q: %w", session, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// OptionUnderlyings devuelve los subyacentes con chains en el store.
func (s *SQLiteStore) OptionUnderlyings(ctx context.Context) ([]domain.AssetID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT underlying FROM option_quotes ORDER BY underlying ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.OptionUnderlyings: query: %w", err)
	}
	defer rows.Close()

	var out []domain.AssetID
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("storage.OptionUnderlyings: scan: %w", err)
		}
		out = append(out, domain.AssetID(u))
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// checkGaps valida que ni los bordes de la ventana ni los tramos entre
// barras adyacentes dejen más sesiones hábiles sin datos que la tolerancia.
func (s *SQLiteStore) checkGaps(assetID domain.AssetID, window domain.Window, bars []domain.PriceBar) error {
	gap := func(from, to time.Time, missing int) error {
		return &domain.DataGapError{
			Asset:     assetID,
			From:      from,
			To:        to,
			Missing:   missing,
			Tolerance: s.maxGapSessions,
		}
	}

	// Sin barras: la ventana entera es el hueco.
	if len(bars) == 0 {
		missing := domain.WeekdaySessions(window.From.AddDate(0, 0, -1), window.To.AddDate(0, 0, 1))
		if missing > s.maxGapSessions {
			return gap(window.From, window.To, missing)
		}
		return nil
	}

	// Borde inicial: sesiones hábiles entre el inicio de la ventana y la primera barra.
	if missing := domain.WeekdaySessions(window.From.AddDate(0, 0, -1), bars[0].Timestamp); missing > s.maxGapSessions {
		return gap(window.From, bars[0].Timestamp, missing)
	}

	// Tramos interiores.
	for i := 1; i < len(bars); i++ {
		if missing := domain.WeekdaySessions(bars[i-1].Timestamp, bars[i].Timestamp); missing > s.maxGapSessions {
			return gap(bars[i-1].Timestamp, bars[i].Timestamp, missing)
		}
	}

	// Borde final.
	last := bars[len(bars)-1].Timestamp
	if missing := domain.WeekdaySessions(last, window.To.AddDate(0, 0, 1)); missing > s.maxGapSessions {
		return gap(last, window.To, missing)
	}
	return nil
}

// evaluationBenchmarks carga los benchmarks de una evaluación en orden estable.
func (s *SQLiteStore) evaluationBenchmarks(ctx context.Context, evalID string) ([]domain.BenchmarkReturn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT benchmark, series, source, start_value, end_value, return_ratio
		FROM evaluation_benchmarks
		WHERE eval_id = ?
		ORDER BY benchmark ASC
	`, evalID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetEvaluations: query benchmarks %s: %w", evalID, err)
	}
	defer rows.Close()

	var out []domain.BenchmarkReturn
	for rows.Next() {
		var b domain.BenchmarkReturn
		var benchmark, series, source string
		if err := rows.Scan(&benchmark, &series, &source, &b.StartValue, &b.EndValue, &b.Return); err != nil {
			return nil, fmt.Errorf("storage.GetEvaluations: scan benchmark: %w", err)
		}
		b.Benchmark = domain.AssetID(benchmark)
		b.Series = domain.AssetID(series)
		b.Source = domain.SeriesSource(source)
		out = append(out, b)
	}
	return out, rows.Err()
}

// scanBar convierte una fila de price_bars en una PriceBar de dominio.
func scanBar(rows *sql.Rows) (domain.PriceBar, error) {
	var b domain.PriceBar
	var asset, session string
	if err := rows.Scan(&asset, &session, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
		return domain.PriceBar{}, fmt.Errorf("scan bar: %w", err)
	}
	b.Asset = domain.AssetID(asset)
	b.Timestamp, _ = time.Parse(sessionLayout, session)
	return b, nil
}
