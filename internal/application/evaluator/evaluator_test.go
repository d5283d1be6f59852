package evaluator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/optbot/internal/application/evaluator"
	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/strategy"
)

// mockData implementa ports.MarketData sobre datos en memoria.
type mockData struct {
	bars   []domain.PriceBar
	chains map[string]domain.OptionChain // fecha de sesión → chain
	err    error
}

func (m *mockData) GetPriceHistory(_ context.Context, _ domain.AssetID, window domain.Window) ([]domain.PriceBar, error) {
	if m.err != nil {
		return nil, m.err
	}
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

func day(d int) time.Time {
	// Sesiones de la semana del 4 de marzo de 2024 (lunes).
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func bar(d int, closePx float64) domain.PriceBar {
	return domain.PriceBar{
		Asset:     "META",
		Timestamp: day(d),
		Open:      closePx - 1,
		High:      closePx + 1,
		Low:       closePx - 2,
		Close:     closePx,
		Volume:    1000,
	}
}

func callQuote(session time.Time, exp time.Time, strike, bid, ask float64) domain.OptionQuote {
	return domain.OptionQuote{
		ContractID: domain.OCCSymbol("META", exp, domain.OptionCall, strike),
		Underlying: "META",
		Type:       domain.OptionCall,
		Strike:     strike,
		Expiration: exp,
		Bid:        bid,
		Ask:        ask,
		Timestamp:  session,
	}
}

// weekData monta una semana de sesiones (lunes a viernes) con un único
// contrato call strike 100 cotizando los bids/asks dados por día.
func weekData(exp time.Time, prices map[int][2]float64) *mockData {
	m := &mockData{
		bars:   []domain.PriceBar{bar(4, 100), bar(5, 101), bar(6, 102), bar(7, 103), bar(8, 104)},
		chains: make(map[string]domain.OptionChain),
	}
	for d, ba := range prices {
		session := day(d)
		m.chains[session.Format("2006-01-02")] = domain.OptionChain{
			callQuote(session, exp, 100, ba[0], ba[1]),
		}
	}
	return m
}

func callDef(name string, entry strategy.EntrySpec, exit strategy.ExitSpec) strategy.Definition {
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
		Entry: entry,
		Exit:  exit,
		Sizing: strategy.SizingSpec{
			InitialCapital:   10000,
			Contracts:        1,
			MaxOpenPositions: 1,
		},
	}
}

func week() domain.Window {
	return domain.NewWindow(day(4), day(8))
}

func TestEvaluate_Deterministic(t *testing.T) {
	exp := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	data := weekData(exp, map[int][2]float64{
		4: {4.8, 5.0}, 5: {2.0, 2.4}, 6: {5.8, 6.2}, 7: {6.0, 6.4}, 8: {6.2, 6.6},
	})
	def := callDef("det", strategy.EntrySpec{Signal: strategy.SignalAlways},
		strategy.ExitSpec{StopLossPct: 50})
	e := evaluator.New(data, 0.65)

	first, err := e.Evaluate(context.Background(), def, week())
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), def, week())
	require.NoError(t, err)

	require.NotEmpty(t, first.Trades)
	assert.Equal(t, first, second)
}

func TestEvaluate_NeverFiresYieldsEmptyLedger(t *testing.T) {
	exp := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	data := weekData(exp, map[int][2]float64{4: {4.8, 5.0}})
	// +50% en un día no ocurre en la serie sintética.
	def := callDef("quiet", strategy.EntrySpec{Signal: strategy.SignalCloseChange, Threshold: 50},
		strategy.ExitSpec{})
	e := evaluator.New(data, 0)

	ledger, err := e.Evaluate(context.Background(), def, week())

	require.NoError(t, err)
	assert.Empty(t, ledger.Trades)
	assert.Equal(t, "quiet", ledger.Strategy)
	assert.InDelta(t, 0, ledger.Return(def.Sizing.InitialCapital), 0.0001)
}

func TestEvaluate_ForcedCloseAtWindowEnd(t *testing.T) {
	exp := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	data := weekData(exp, map[int][2]float64{
		4: {4.8, 5.0}, 5: {5.0, 5.4}, 6: {5.4, 5.8}, 7: {5.8, 6.2}, 8: {6.0, 6.4},
	})
	def := callDef("open-end", strategy.EntrySpec{Signal: strategy.SignalAlways}, strategy.ExitSpec{})
	e := evaluator.New(data, 0)

	ledger, err := e.Evaluate(context.Background(), def, week())

	require.NoError(t, err)
	require.Len(t, ledger.Trades, 1)

	tr := ledger.Trades[0]
	assert.True(t, tr.ForcedClose)
	assert.Equal(t, domain.ExitWindowEnd, tr.ExitReason)
	assert.Equal(t, day(4), tr.OpenedAt)
	assert.Equal(t, day(8), tr.ClosedAt)
	assert.InDelta(t, 5.0, tr.OpenPrice, 0.001)  // ask de entrada
	assert.InDelta(t, 6.2, tr.ClosePrice, 0.001) // mid de la última sesión
	assert.InDelta(t, 120.0, tr.RealizedPnL, 0.001)
}

func TestEvaluate_ForcedCloseIntrinsicWithoutQuote(t *testing.T) {
	exp := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	// El contrato solo cotiza el lunes; el resto de la semana no hay chain.
	data := weekData(exp, map[int][2]float64{4: {4.8, 5.0}})
	def := callDef("stale", strategy.EntrySpec{Signal: strategy.SignalAlways}, strategy.ExitSpec{})
	e := evaluator.New(data, 0)

	ledger, err := e.Evaluate(context.Background(), def, week())

	require.NoError(t, err)
	require.Len(t, ledger.Trades, 1)

	tr := ledger.Trades[0]
	assert.True(t, tr.ForcedClose)
	// Sin cotización final: intrínseco sobre el último close (104 - 100).
	assert.InDelta(t, 4.0, tr.ClosePrice, 0.001)
}

func TestEvaluate_ExpirationSettlesAtIntrinsic(t *testing.T) {
	exp := day(6) // expira el miércoles
	data := weekData(exp, map[int][2]float64{
		4: {4.8, 5.0}, 5: {5.0, 5.4}, 6: {5.4, 5.8},
	})
	def := callDef("expiry", strategy.EntrySpec{Signal: strategy.SignalAlways}, strategy.ExitSpec{})
	def.Option.TargetDTE = 2
	def.Option.MaxDTE = 4

	e := evaluator.New(data, 0)
	ledger, err := e.Evaluate(context.Background(), def, week())

	require.NoError(t, err)
	require.Len(t, ledger.Trades, 1)

	tr := ledger.Trades[0]
	assert.Equal(t, domain.ExitExpiration, tr.ExitReason)
	assert.False(t, tr.ForcedClose)
	assert.Equal(t, day(6), tr.ClosedAt)
	// Intrínseco: close del miércoles (102) - strike (100).
	assert.InDelta(t, 2.0, tr.ClosePrice, 0.001)
}

func TestEvaluate_StopLossClosesOnDrop(t *testing.T) {
	exp := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	// Entrada lunes a 5.0; el martes el bid cae a 2.0 (-60%).
	data := weekData(exp, map[int][2]float64{
		4: {4.8, 5.0}, 5: {2.0, 2.4},
	})
	def := callDef("stop", strategy.EntrySpec{Signal: strategy.SignalAlways},
		strategy.ExitSpec{StopLossPct: 50})
	e := evaluator.New(data, 0.65)

	ledger, err := e.Evaluate(context.Background(), def, week())

	require.NoError(t, err)
	require.NotEmpty(t, ledger.Trades)

	tr := ledger.Trades[0]
	assert.Equal(t, domain.ExitStopLoss, tr.ExitReason)
	assert.Equal(t, day(5), tr.ClosedAt)
	assert.InDelta(t, 2.0, tr.ClosePrice, 0.001)
	// Comisión por ambos lados: 0.65 × 1 contrato × 2.
	assert.InDelta(t, 1.30, tr.Fees, 0.001)
	assert.InDelta(t, (2.0-5.0)*100-1.30, tr.RealizedPnL, 0.001)
}

func TestEvaluate_MaxHoldClosesAfterSessions(t *testing.T) {
	exp := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	data := weekData(exp, map[int][2]float64{
		4: {4.8, 5.0}, 5: {5.0, 5.4}, 6: {5.2, 5.6}, 7: {5.4, 5.8}, 8: {5.6, 6.0},
	})
	def := callDef("maxhold", strategy.EntrySpec{Signal: strategy.SignalAlways},
		strategy.ExitSpec{MaxHoldSessions: 2})
	e := evaluator.New(data, 0)

	ledger, err := e.Evaluate(context.Background(), def, week())

	require.NoError(t, err)
	require.NotEmpty(t, ledger.Trades)

	tr := ledger.Trades[0]
	assert.Equal(t, domain.ExitMaxHold, tr.ExitReason)
	assert.Equal(t, day(4), tr.OpenedAt)
	assert.Equal(t, day(6), tr.ClosedAt)
	assert.InDelta(t, 5.2, tr.ClosePrice, 0.001) // bid del miércoles
}

func TestEvaluate_DataGapPropagates(t *testing.T) {
	data := &mockData{err: &domain.DataGapError{Asset: "META", Missing: 9, Tolerance: 3}}
	def := callDef("gap", strategy.EntrySpec{Signal: strategy.SignalAlways}, strategy.ExitSpec{})
	e := evaluator.New(data, 0)

	_, err := e.Evaluate(context.Background(), def, week())

	var gapErr *domain.DataGapError
	require.ErrorAs(t, err, &gapErr)
	assert.Equal(t, domain.AssetID("META"), gapErr.Asset)
}
