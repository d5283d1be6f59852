package sweep_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/optbot/internal/application/evaluator"
	"github.com/alejandrodnm/optbot/internal/application/sweep"
	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/strategy"
)

// mockData comparte una misma semana de datos entre todos los workers.
type mockData struct {
	bars   []domain.PriceBar
	chains map[string]domain.OptionChain
}

func (m *mockData) GetPriceHistory(_ context.Context, _ domain.AssetID, window domain.Window) ([]domain.PriceBar, error) {
	var out []domain.PriceBar
	for _, b := range m.bars {
		if window.Contains(b.Timestamp) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockData) GetOptionChain(_ context.Context, _ domain.AssetID, date time.Time) (domain.OptionChain, error) {
	return m.chains[date.Format("2006-01-02")], nil
}

func testData() *mockData {
	exp := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	m := &mockData{chains: make(map[string]domain.OptionChain)}
	d := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	premium := 5.0
	for i := 0; i < 5; i++ {
		closePx := 100.0 + float64(i)
		m.bars = append(m.bars, domain.PriceBar{
			Asset: "META", Timestamp: d,
			Open: closePx - 1, High: closePx + 1, Low: closePx - 2, Close: closePx,
		})
		m.chains[d.Format("2006-01-02")] = domain.OptionChain{{
			ContractID: domain.OCCSymbol("META", exp, domain.OptionCall, 100),
			Underlying: "META",
			Type:       domain.OptionCall,
			Strike:     100,
			Expiration: exp,
			Bid:        premium,
			Ask:        premium + 0.4,
			Timestamp:  d,
		}}
		premium += 1.0
		d = domain.NextSession(d)
	}
	return m
}

func testDef(name, signal string, threshold float64) strategy.Definition {
	return strategy.Definition{
		Name:       name,
		Underlying: "META",
		Option: strategy.OptionSpec{
			Type:      domain.OptionCall,
			Moneyness: domain.MoneynessATM,
			TargetDTE: 30,
			MinDTE:    1,
			MaxDTE:    60,
		},
		Entry: strategy.EntrySpec{Signal: signal, Threshold: threshold},
		Sizing: strategy.SizingSpec{
			InitialCapital:   10000,
			Contracts:        1,
			MaxOpenPositions: 1,
		},
	}
}

func TestRun_RanksByStrategyReturn(t *testing.T) {
	data := testData()
	eval := evaluator.New(data, 0)
	window := domain.NewWindow(
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
	)
	benchmarks := []domain.BenchmarkReturn{{Benchmark: domain.BenchmarkSP500, Return: 0.01}}

	defs := []strategy.Definition{
		testDef("never", strategy.SignalCloseChange, 50), // ledger vacío, retorno 0
		testDef("hold", strategy.SignalAlways, 0),        // entra el lunes y gana
	}

	outcomes := sweep.Run(context.Background(), eval, defs, benchmarks, window, 4)

	require.Len(t, outcomes, 2)
	assert.Equal(t, "hold", outcomes[0].Def.Name)
	assert.Greater(t, outcomes[0].Result.StrategyReturn, 0.0)
	assert.Equal(t, "never", outcomes[1].Def.Name)
	assert.InDelta(t, 0, outcomes[1].Result.StrategyReturn, 0.0001)
	for _, o := range outcomes {
		require.NoError(t, o.Err)
	}
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	data := testData()
	eval := evaluator.New(data, 0)
	window := domain.NewWindow(
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
	)
	var benchmarks []domain.BenchmarkReturn

	defs := []strategy.Definition{
		testDef("a", strategy.SignalAlways, 0),
		testDef("b", strategy.SignalCloseChange, 50),
		testDef("c", strategy.SignalOpenGap, -50),
	}

	serial := sweep.Run(context.Background(), eval, defs, benchmarks, window, 1)
	parallel := sweep.Run(context.Background(), eval, defs, benchmarks, window, 8)

	require.Len(t, parallel, len(serial))
	for i := range serial {
		assert.Equal(t, serial[i].Def.Name, parallel[i].Def.Name)
		assert.Equal(t, serial[i].Ledger, parallel[i].Ledger)
		assert.Equal(t, serial[i].Result.StrategyReturn, parallel[i].Result.StrategyReturn)
	}
}

func TestRun_FailedStrategySortsLast(t *testing.T) {
	data := testData()
	eval := evaluator.New(data, 0)
	window := domain.NewWindow(
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
	)

	bad := testDef("bad", strategy.SignalAlways, 0)
	bad.Entry.Signal = "vibes" // NewSignal fallará dentro del run

	defs := []strategy.Definition{bad, testDef("ok", strategy.SignalAlways, 0)}
	outcomes := sweep.Run(context.Background(), eval, defs, nil, window, 2)

	require.Len(t, outcomes, 2)
	assert.Equal(t, "ok", outcomes[0].Def.Name)
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, "bad", outcomes[1].Def.Name)
	require.Error(t, outcomes[1].Err)
}
