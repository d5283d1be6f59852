package domain

import "time"

// ExitReason indica por qué se cerró un trade.
type ExitReason string

const (
	ExitExpiration ExitReason = "expiration"  // el contrato expiró: liquidación a valor intrínseco
	ExitStopLoss   ExitReason = "stop_loss"   // la prima cayó por debajo del stop
	ExitTakeProfit ExitReason = "take_profit" // la prima alcanzó el objetivo
	ExitMaxHold    ExitReason = "max_hold"    // se agotaron las sesiones máximas de la posición
	ExitWindowEnd  ExitReason = "window_end"  // la ventana terminó con la posición abierta (cierre forzado)
)

// Trade es una operación cerrada sobre un contrato de opción, producida por
// el evaluador durante la simulación. Inmutable una vez cerrada. El ID es un
// UUIDv5 derivado de los inputs del run: dos evaluaciones con inputs
// idénticos producen ledgers byte a byte iguales.
type Trade struct {
	ID         string
	ContractID string
	Underlying AssetID
	Type       OptionType
	Strike     float64
	Expiration time.Time

	Quantity   int
	OpenedAt   time.Time // sesión de entrada
	OpenPrice  float64   // prima por acción pagada al abrir (ask, fallback mid)
	ClosedAt   time.Time // sesión de salida; siempre >= OpenedAt
	ClosePrice float64   // prima por acción recibida al cerrar (bid, fallback mid, o intrínseco)

	Fees        float64 // comisiones totales del trade (ambos lados)
	RealizedPnL float64 // (ClosePrice - OpenPrice) × Quantity × ContractMultiplier - Fees

	ExitReason  ExitReason
	ForcedClose bool // true solo cuando ExitReason == ExitWindowEnd
}

// HeldSessions devuelve los días naturales que el trade estuvo abierto
// (0 si abrió y cerró la misma sesión).
func (t Trade) HeldSessions() int {
	return int(SessionDate(t.ClosedAt).Sub(SessionDate(t.OpenedAt)).Hours() / 24)
}

// TradeLedger es el registro ordenado de todos los trades de una evaluación:
// ordenados por sesión de cierre, con los cierres forzados del final de la
// ventana en último lugar. Una estrategia que nunca dispara su entrada
// produce un ledger vacío — eso es un resultado definido, no un error.
type TradeLedger struct {
	Strategy string
	Window   Window
	Trades   []Trade
}

// TotalPnL devuelve el P&L realizado agregado del ledger (fees incluidas).
func (l TradeLedger) TotalPnL() float64 {
	total := 0.0
	for _, t := range l.Trades {
		total += t.RealizedPnL
	}
	return total
}

// TotalFees devuelve las comisiones acumuladas de todos los trades.
func (l TradeLedger) TotalFees() float64 {
	total := 0.0
	for _, t := range l.Trades {
		total += t.Fees
	}
	return total
}

// Return devuelve el retorno fraccional del run sobre el capital inicial:
// Σ RealizedPnL / initialCapital. Ledger vacío ⇒ 0.
func (l TradeLedger) Return(initialCapital float64) float64 {
	if initialCapital <= 0 || len(l.Trades) == 0 {
		return 0
	}
	return l.TotalPnL() / initialCapital
}

// Wins devuelve los trades con P&L positivo, en el orden del ledger.
func (l TradeLedger) Wins() []Trade {
	var out []Trade
	for _, t := range l.Trades {
		if t.RealizedPnL > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Losses devuelve los trades con P&L negativo o cero, en el orden del ledger.
func (l TradeLedger) Losses() []Trade {
	var out []Trade
	for _, t := range l.Trades {
		if t.RealizedPnL <= 0 {
			out = append(out, t)
		}
	}
	return out
}

// WinRate devuelve la fracción de trades ganadores (0 si el ledger está vacío).
func (l TradeLedger) WinRate() float64 {
	if len(l.Trades) == 0 {
		return 0
	}
	return float64(len(l.Wins())) / float64(len(l.Trades))
}
