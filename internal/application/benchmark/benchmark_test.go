package benchmark_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/optbot/internal/application/benchmark"
	"github.com/alejandrodnm/optbot/internal/domain"
)

// mockData sirve series en memoria por asset id.
type mockData struct {
	series map[domain.AssetID][]domain.PriceBar
}

func (m *mockData) GetPriceHistory(_ context.Context, assetID domain.AssetID, window domain.Window) ([]domain.PriceBar, error) {
	var out []domain.PriceBar
	for _, b := range m.series[assetID] {
		if window.Contains(b.Timestamp) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockData) GetOptionChain(_ context.Context, _ domain.AssetID, _ time.Time) (domain.OptionChain, error) {
	return nil, nil
}

// series genera barras diarias consecutivas (incluye fines de semana, como
// una serie spot) desde el 4 de marzo de 2024.
func series(asset domain.AssetID, closes ...float64) []domain.PriceBar {
	out := make([]domain.PriceBar, len(closes))
	d := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = domain.PriceBar{Asset: asset, Timestamp: d, Close: c}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// weekdaySeries genera barras solo en días hábiles.
func weekdaySeries(asset domain.AssetID, closes ...float64) []domain.PriceBar {
	out := make([]domain.PriceBar, len(closes))
	d := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = domain.PriceBar{Asset: asset, Timestamp: d, Close: c}
		d = domain.NextSession(d)
	}
	return out
}

func window(fromDay, toDay int) domain.Window {
	return domain.NewWindow(
		time.Date(2024, 3, fromDay, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, toDay, 0, 0, 0, 0, time.UTC),
	)
}

func TestBuyAndHoldReturn_ETFOnly(t *testing.T) {
	data := &mockData{series: map[domain.AssetID][]domain.PriceBar{
		"SPY": weekdaySeries("SPY", 500, 505, 510, 515, 520),
	}}
	calc := benchmark.New(data, 2)

	ret, err := calc.BuyAndHoldReturn(context.Background(),
		domain.BenchmarkSpec{Name: domain.BenchmarkSP500, ETF: "SPY"}, window(4, 8))

	require.NoError(t, err)
	assert.Equal(t, domain.BenchmarkSP500, ret.Benchmark)
	assert.Equal(t, domain.AssetID("SPY"), ret.Series)
	assert.Equal(t, domain.SourceETF, ret.Source)
	assert.InDelta(t, 500, ret.StartValue, 0.001)
	assert.InDelta(t, 520, ret.EndValue, 0.001)
	assert.InDelta(t, 0.04, ret.Return, 0.0001)
}

func TestBuyAndHoldReturn_PicksHigherOfETFAndSpot(t *testing.T) {
	// ETF: +2%; spot: +8%. Debe ganar la spot.
	data := &mockData{series: map[domain.AssetID][]domain.PriceBar{
		"IBIT":    weekdaySeries("IBIT", 50, 50.4, 50.7, 50.9, 51),
		"bitcoin": series("bitcoin", 60000, 61000, 62500, 63900, 64800),
	}}
	calc := benchmark.New(data, 2)

	ret, err := calc.BuyAndHoldReturn(context.Background(),
		domain.BenchmarkSpec{Name: domain.BenchmarkBTC, ETF: "IBIT", Spot: "bitcoin"}, window(4, 8))

	require.NoError(t, err)
	assert.Equal(t, domain.SourceSpot, ret.Source)
	assert.Equal(t, domain.AssetID("bitcoin"), ret.Series)
	assert.InDelta(t, 0.08, ret.Return, 0.0001)

	// El retorno elegido es >= que el de cualquiera de las dos series.
	assert.GreaterOrEqual(t, ret.Return, domain.HoldingReturn(50, 51))
	assert.GreaterOrEqual(t, ret.Return, domain.HoldingReturn(60000, 64800))
}

func TestBuyAndHoldReturn_FallsBackToSpotWhenETFMissing(t *testing.T) {
	// El ETF no existe todavía en la ventana pedida; la spot sí.
	data := &mockData{series: map[domain.AssetID][]domain.PriceBar{
		"ethereum": series("ethereum", 3000, 3050, 3100, 3200, 3300),
	}}
	calc := benchmark.New(data, 2)

	ret, err := calc.BuyAndHoldReturn(context.Background(),
		domain.BenchmarkSpec{Name: domain.BenchmarkETH, ETF: "ETHA", Spot: "ethereum"}, window(4, 8))

	require.NoError(t, err)
	assert.Equal(t, domain.SourceSpot, ret.Source)
	assert.InDelta(t, 0.1, ret.Return, 0.0001)
}

func TestBuyAndHoldReturn_InsufficientData(t *testing.T) {
	data := &mockData{series: map[domain.AssetID][]domain.PriceBar{}}
	calc := benchmark.New(data, 2)

	_, err := calc.BuyAndHoldReturn(context.Background(),
		domain.BenchmarkSpec{Name: domain.BenchmarkBTC, ETF: "IBIT", Spot: "bitcoin"}, window(4, 8))

	var insErr *domain.InsufficientDataError
	require.ErrorAs(t, err, &insErr)
	assert.Equal(t, domain.BenchmarkBTC, insErr.Benchmark)
}

func TestBuyAndHoldReturn_EdgeToleranceRejectsLateSeries(t *testing.T) {
	// La serie empieza el lunes 11: a 5 sesiones hábiles del borde (4 de
	// marzo) con tolerancia 2 → no cubre.
	late := weekdaySeries("SPY", 500, 505, 510)
	for i := range late {
		late[i].Timestamp = late[i].Timestamp.AddDate(0, 0, 7)
	}
	data := &mockData{series: map[domain.AssetID][]domain.PriceBar{"SPY": late}}
	calc := benchmark.New(data, 2)

	_, err := calc.BuyAndHoldReturn(context.Background(),
		domain.BenchmarkSpec{Name: domain.BenchmarkSP500, ETF: "SPY"}, window(4, 13))

	var insErr *domain.InsufficientDataError
	require.ErrorAs(t, err, &insErr)
}

func TestAll_ComputesEveryBenchmarkInOrder(t *testing.T) {
	data := &mockData{series: map[domain.AssetID][]domain.PriceBar{
		"SPY":      weekdaySeries("SPY", 500, 510),
		"QQQ":      weekdaySeries("QQQ", 430, 427),
		"IBIT":     weekdaySeries("IBIT", 50, 53),
		"bitcoin":  series("bitcoin", 60000, 61200),
		"ethereum": series("ethereum", 3000, 3120),
	}}
	calc := benchmark.New(data, 2)

	// ETHA sin datos: el benchmark ETH debe caer a la serie spot.
	rets, err := calc.All(context.Background(), domain.DefaultBenchmarks(), window(4, 5))

	require.NoError(t, err)
	require.Len(t, rets, 4)
	assert.Equal(t, domain.BenchmarkSP500, rets[0].Benchmark)
	assert.Equal(t, domain.BenchmarkNasdaq, rets[1].Benchmark)
	assert.Equal(t, domain.BenchmarkBTC, rets[2].Benchmark)
	assert.Equal(t, domain.BenchmarkETH, rets[3].Benchmark)

	// QQQ en negativo: el retorno puede ser < 0 sin ser error.
	assert.Less(t, rets[1].Return, 0.0)

	// IBIT +6% vs bitcoin +2%: gana el ETF.
	assert.Equal(t, domain.SourceETF, rets[2].Source)
	assert.InDelta(t, 0.06, rets[2].Return, 0.0001)
}
