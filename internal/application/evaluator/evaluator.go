package evaluator

// evaluator.go — simulación determinista de una estrategia sobre una ventana.
//
// El bucle recorre la ventana sesión a sesión en un orden fijo:
//   1. salidas de las posiciones abiertas (expiración, stop-loss,
//      take-profit, max-hold);
//   2. entrada si queda capacidad y la señal dispara.
// Nada consulta el reloj ni fuentes de aleatoriedad: dos ejecuciones con los
// mismos inputs producen ledgers byte a byte iguales, IDs de trade incluidos.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/ports"
	"github.com/alejandrodnm/optbot/internal/strategy"
)

// tradeNamespace es el namespace UUIDv5 de los IDs de trade. Fijo: forma
// parte del contrato de reproducibilidad de los ledgers.
var tradeNamespace = uuid.MustParse("8f3c1a66-0b5d-4e2f-9c41-6a79d25b10c4")

// Evaluator simula estrategias contra el dataset histórico.
type Evaluator struct {
	data           ports.MarketData
	feePerContract float64
}

// New crea un Evaluator. feePerContract es la comisión por contrato y lado.
func New(data ports.MarketData, feePerContract float64) *Evaluator {
	return &Evaluator{data: data, feePerContract: feePerContract}
}

// position es una posición abierta durante la simulación.
type position struct {
	entry     domain.OptionQuote // quote de entrada: fija contrato y expiración
	openedAt  time.Time
	openPrice float64
	openIdx   int // índice de la sesión de entrada en la serie de barras
}

// Evaluate simula la estrategia sobre la ventana y devuelve el ledger.
// Una señal que nunca dispara produce un ledger vacío, no un error. Una
// posición abierta al acabar la ventana se cierra forzosamente a la última
// cotización disponible con ForcedClose=true.
func (e *Evaluator) Evaluate(ctx context.Context, def strategy.Definition, window domain.Window) (domain.TradeLedger, error) {
	if err := window.Validate(); err != nil {
		return domain.TradeLedger{}, fmt.Errorf("evaluator.Evaluate: %w", err)
	}

	bars, err := e.data.GetPriceHistory(ctx, def.Underlying, window)
	if err != nil {
		return domain.TradeLedger{}, err
	}

	sig, err := strategy.NewSignal(def.Entry)
	if err != nil {
		// La definición se valida al cargar; esto solo salta con una
		// Definition construida a mano.
		return domain.TradeLedger{}, &domain.InvalidStrategyError{Name: def.Name, Reason: err.Error()}
	}

	ledger := domain.TradeLedger{Strategy: def.Name, Window: window}
	if len(bars) == 0 {
		return ledger, nil
	}

	var open []position
	seq := 0

	closeTrade := func(pos position, closedAt time.Time, closePrice float64, reason domain.ExitReason) {
		seq++
		qty := def.Sizing.Contracts
		fees := e.feePerContract * float64(qty) * 2
		ledger.Trades = append(ledger.Trades, domain.Trade{
			ID:          tradeID(def.Name, window, pos.entry.ContractID, pos.openedAt, seq),
			ContractID:  pos.entry.ContractID,
			Underlying:  pos.entry.Underlying,
			Type:        pos.entry.Type,
			Strike:      pos.entry.Strike,
			Expiration:  pos.entry.Expiration,
			Quantity:    qty,
			OpenedAt:    pos.openedAt,
			OpenPrice:   pos.openPrice,
			ClosedAt:    closedAt,
			ClosePrice:  closePrice,
			Fees:        fees,
			RealizedPnL: (closePrice-pos.openPrice)*float64(qty)*domain.ContractMultiplier - fees,
			ExitReason:  reason,
			ForcedClose: reason == domain.ExitWindowEnd,
		})
	}

	var chain domain.OptionChain
	for i, bar := range bars {
		chain, err = e.data.GetOptionChain(ctx, def.Underlying, bar.Timestamp)
		if err != nil {
			return domain.TradeLedger{}, err
		}
		history := bars[:i+1]

		// 1. Salidas, en orden de apertura.
		still := open[:0]
		for _, pos := range open {
			price, reason, closed := checkExit(pos, i, bar, chain, def.Exit)
			if closed {
				closeTrade(pos, bar.Timestamp, price, reason)
			} else {
				still = append(still, pos)
			}
		}
		open = still

		// 2. Entrada, si queda capacidad y la señal dispara.
		if len(open) >= def.Sizing.MaxOpenPositions || !sig.Triggered(history) {
			continue
		}
		quote, price, ok := selectEntry(chain, def.Option, bar)
		if !ok {
			slog.Debug("entry signal fired but no contract available",
				"strategy", def.Name,
				"session", bar.Timestamp.Format("2006-01-02"),
			)
			continue
		}
		open = append(open, position{
			entry:     quote,
			openedAt:  bar.Timestamp,
			openPrice: price,
			openIdx:   i,
		})
	}

	// 3. Cierre forzado de lo que siga abierto en la última sesión: mid de
	// la última chain si el contrato cotiza, intrínseco sobre el último
	// close si no.
	last := bars[len(bars)-1]
	for _, pos := range open {
		price := pos.entry.Intrinsic(last.Close)
		if q, ok := chain.Find(pos.entry.ContractID); ok && q.Mid() > 0 {
			price = q.Mid()
		}
		closeTrade(pos, last.Timestamp, price, domain.ExitWindowEnd)
	}

	slog.Debug("evaluation complete",
		"strategy", def.Name,
		"window", window,
		"sessions", len(bars),
		"trades", len(ledger.Trades),
		"pnl", ledger.TotalPnL(),
	)
	return ledger, nil
}

// checkExit decide si la posición se cierra en esta sesión y a qué precio.
// El orden de comprobación es fijo: expiración, stop-loss, take-profit,
// max-hold.
func checkExit(pos position, idx int, bar domain.PriceBar, chain domain.OptionChain, exit strategy.ExitSpec) (float64, domain.ExitReason, bool) {
	// Expiración: liquidación a valor intrínseco sobre el close del día.
	if pos.entry.Expired(bar.Timestamp) {
		return pos.entry.Intrinsic(bar.Close), domain.ExitExpiration, true
	}

	// Reprice contra la chain de hoy: sin cotización no hay salida
	// anticipada (la expiración liquidará tarde o temprano).
	cur := 0.0
	if q, ok := chain.Find(pos.entry.ContractID); ok {
		cur = q.Bid
		if cur <= 0 {
			cur = q.Mid()
		}
	}
	if cur <= 0 {
		return 0, "", false
	}

	if exit.StopLossPct > 0 && cur <= pos.openPrice*(1-exit.StopLossPct/100) {
		return cur, domain.ExitStopLoss, true
	}
	if exit.TakeProfitPct > 0 && cur >= pos.openPrice*(1+exit.TakeProfitPct/100) {
		return cur, domain.ExitTakeProfit, true
	}
	if exit.MaxHoldSessions > 0 && idx-pos.openIdx >= exit.MaxHoldSessions {
		return cur, domain.ExitMaxHold, true
	}
	return 0, "", false
}

// selectEntry elige el contrato a abrir según el spec y devuelve su precio
// de entrada: ask, con fallback a mid. Sin expiración en rango, sin strike
// que cumpla el moneyness o sin precio positivo no hay entrada.
func selectEntry(chain domain.OptionChain, opt strategy.OptionSpec, bar domain.PriceBar) (domain.OptionQuote, float64, bool) {
	expiration, ok := chain.NearestExpiration(bar.Timestamp, opt.TargetDTE, opt.MinDTE, opt.MaxDTE)
	if !ok {
		return domain.OptionQuote{}, 0, false
	}
	quote, ok := chain.SelectContract(opt.Type, expiration, bar.Close, opt.Moneyness)
	if !ok {
		return domain.OptionQuote{}, 0, false
	}
	price := quote.Ask
	if price <= 0 {
		price = quote.Mid()
	}
	if price <= 0 {
		return domain.OptionQuote{}, 0, false
	}
	return quote, price, true
}

// tradeID deriva el UUIDv5 determinista de un trade a partir de los inputs
// del run y el número de orden del cierre.
func tradeID(strategyName string, window domain.Window, contractID string, openedAt time.Time, seq int) string {
	key := fmt.Sprintf("%s|%s|%s|%s|%d",
		strategyName, window, contractID, openedAt.Format("2006-01-02"), seq)
	return uuid.NewSHA1(tradeNamespace, []byte(key)).String()
}
