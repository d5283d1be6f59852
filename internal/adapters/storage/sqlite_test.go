package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/optbot/internal/adapters/storage"
	"github.com/alejandrodnm/optbot/internal/domain"
)

func newStore(t *testing.T, maxGap int) *storage.SQLiteStore {
	t.Helper()
	db, err := storage.NewSQLiteStore(":memory:", maxGap)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makeBar(asset domain.AssetID, day time.Time, closePx float64) domain.PriceBar {
	return domain.PriceBar{
		Asset:     asset,
		Timestamp: day,
		Open:      closePx - 1,
		High:      closePx + 1,
		Low:       closePx - 2,
		Close:     closePx,
		Volume:    1000,
	}
}

// weekBars genera barras en días hábiles consecutivos desde start.
func weekBars(asset domain.AssetID, start time.Time, closes ...float64) []domain.PriceBar {
	out := make([]domain.PriceBar, len(closes))
	d := domain.SessionDate(start)
	for i, c := range closes {
		out[i] = makeBar(asset, d, c)
		d = domain.NextSession(d)
	}
	return out
}

func monday() time.Time {
	return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
}

func TestSQLiteStore_SaveAndGetPriceHistory(t *testing.T) {
	db := newStore(t, 3)
	ctx := context.Background()

	bars := weekBars("SPY", monday(), 500, 505, 510, 515, 520)
	saved, err := db.SaveBars(ctx, bars)
	require.NoError(t, err)
	assert.Equal(t, 5, saved)

	window := domain.NewWindow(monday(), monday().AddDate(0, 0, 4))
	got, err := db.GetPriceHistory(ctx, "SPY", window)
	require.NoError(t, err)
	require.Len(t, got, 5)

	// Ordenadas por sesión ascendente.
	assert.Equal(t, monday(), got[0].Timestamp)
	assert.InDelta(t, 500, got[0].Close, 0.001)
	assert.InDelta(t, 520, got[4].Close, 0.001)
}

func TestSQLiteStore_SaveBarsUpsertIsIdempotent(t *testing.T) {
	db := newStore(t, 3)
	ctx := context.Background()

	bars := weekBars("SPY", monday(), 500, 505)
	_, err := db.SaveBars(ctx, bars)
	require.NoError(t, err)

	// Re-importar con un close corregido no duplica filas.
	bars[1].Close = 506
	_, err = db.SaveBars(ctx, bars)
	require.NoError(t, err)

	window := domain.NewWindow(monday(), monday().AddDate(0, 0, 1))
	got, err := db.GetPriceHistory(ctx, "SPY", window)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 506, got[1].Close, 0.001)
}

func TestSQLiteStore_GapBeyondToleranceFails(t *testing.T) {
	db := newStore(t, 3)
	ctx := context.Background()

	// Lunes 4 y lunes 18: faltan 9 sesiones hábiles entre medias.
	_, err := db.SaveBars(ctx, []domain.PriceBar{
		makeBar("SPY", monday(), 500),
		makeBar("SPY", monday().AddDate(0, 0, 14), 510),
	})
	require.NoError(t, err)

	window := domain.NewWindow(monday(), monday().AddDate(0, 0, 14))
	_, err = db.GetPriceHistory(ctx, "SPY", window)

	var gapErr *domain.DataGapError
	require.ErrorAs(t, err, &gapErr)
	assert.Equal(t, domain.AssetID("SPY"), gapErr.Asset)
	assert.Equal(t, 9, gapErr.Missing)
	assert.Equal(t, 3, gapErr.Tolerance)
}

func TestSQLiteStore_SingleHolidayWithinTolerance(t *testing.T) {
	db := newStore(t, 3)
	ctx := context.Background()

	// Miércoles festivo: hueco de 1 sesión, dentro de tolerancia.
	bars := []domain.PriceBar{
		makeBar("SPY", monday(), 500),
		makeBar("SPY", monday().AddDate(0, 0, 1), 505),
		makeBar("SPY", monday().AddDate(0, 0, 3), 515),
		makeBar("SPY", monday().AddDate(0, 0, 4), 520),
	}
	_, err := db.SaveBars(ctx, bars)
	require.NoError(t, err)

	window := domain.NewWindow(monday(), monday().AddDate(0, 0, 4))
	got, err := db.GetPriceHistory(ctx, "SPY", window)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestSQLiteStore_SaveAndGetOptionChain(t *testing.T) {
	db := newStore(t, 3)
	ctx := context.Background()

	exp := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	quotes := []domain.OptionQuote{
		{
			ContractID: "META240405C00500000", Underlying: "META",
			Type: domain.OptionCall, Strike: 500, Expiration: exp,
			Bid: 12.1, Ask: 12.5, ImpliedVol: 0.31, Volume: 200, OpenInterest: 900,
			Timestamp: monday(),
		},
		{
			ContractID: "META240405P00500000", Underlying: "META",
			Type: domain.OptionPut, Strike: 500, Expiration: exp,
			Bid: 9.8, Ask: 10.2, ImpliedVol: 0.29, Volume: 150, OpenInterest: 700,
			Timestamp: monday(),
		},
	}
	saved, err := db.SaveQuotes(ctx, quotes)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	chain, err := db.GetOptionChain(ctx, "META", monday())
	require.NoError(t, err)
	require.Len(t, chain, 2)

	// Orden estable por contract_id.
	assert.Equal(t, "META240405C00500000", chain[0].ContractID)
	assert.Equal(t, domain.OptionCall, chain[0].Type)
	assert.InDelta(t, 12.1, chain[0].Bid, 0.001)
	assert.Equal(t, exp, chain[0].Expiration)

	// Otra sesión: chain vacía, no error.
	empty, err := db.GetOptionChain(ctx, "META", monday().AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_SaveAndGetEvaluations(t *testing.T) {
	db := newStore(t, 3)
	ctx := context.Background()

	window := domain.NewWindow(monday(), monday().AddDate(0, 0, 4))
	result := domain.EvaluationResult{
		ID:             "run-1",
		Strategy:       "atm-call",
		Window:         window,
		StrategyReturn: 0.45,
		Threshold:      0.60,
		Pass:           false,
		Trades:         3,
		Benchmarks: []domain.BenchmarkReturn{
			{Benchmark: domain.BenchmarkSP500, Series: "SPY", Source: domain.SourceETF, StartValue: 500, EndValue: 520, Return: 0.04},
			{Benchmark: domain.BenchmarkBTC, Series: "bitcoin", Source: domain.SourceSpot, StartValue: 60000, EndValue: 78000, Return: 0.30},
		},
	}
	require.NoError(t, db.SaveEvaluation(ctx, result))

	from := time.Now().UTC().Add(-time.Minute)
	to := time.Now().UTC().Add(time.Minute)
	history, err := db.GetEvaluations(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, history, 1)

	got := history[0]
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, "atm-call", got.Strategy)
	assert.Equal(t, window, got.Window)
	assert.InDelta(t, 0.45, got.StrategyReturn, 0.0001)
	assert.False(t, got.Pass)
	assert.Equal(t, 3, got.Trades)
	assert.False(t, got.EvaluatedAt.IsZero())

	require.Len(t, got.Benchmarks, 2)
	assert.Equal(t, domain.AssetID("bitcoin"), got.Benchmarks[0].Series)
	assert.Equal(t, domain.SourceSpot, got.Benchmarks[0].Source)
}

func TestSQLiteStore_GetEvaluations_EmptyRange(t *testing.T) {
	db := newStore(t, 3)

	history, err := db.GetEvaluations(context.Background(),
		time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLiteStore_ExportListings(t *testing.T) {
	db := newStore(t, 3)
	ctx := context.Background()

	_, err := db.SaveBars(ctx, weekBars("QQQ", monday(), 430, 431))
	require.NoError(t, err)
	_, err = db.SaveBars(ctx, weekBars("SPY", monday(), 500, 505))
	require.NoError(t, err)

	exp := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	_, err = db.SaveQuotes(ctx, []domain.OptionQuote{{
		ContractID: "META240405C00500000", Underlying: "META",
		Type: domain.OptionCall, Strike: 500, Expiration: exp, Timestamp: monday(),
	}})
	require.NoError(t, err)

	assets, err := db.Assets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.AssetID{"QQQ", "SPY"}, assets)

	bars, err := db.AllBars(ctx, "QQQ")
	require.NoError(t, err)
	assert.Len(t, bars, 2)

	underlyings, err := db.OptionUnderlyings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.AssetID{"META"}, underlyings)

	sessions, err := db.ChainSessions(ctx, "META")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, monday(), sessions[0])
}
