package strategy

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// Nombres de señal aceptados en entry.signal.
const (
	SignalAlways      = "always"
	SignalCloseChange = "close_change_pct"
	SignalOpenGap     = "open_gap_pct"
	SignalSMACross    = "sma_cross"
)

// Signal decide si la sesión actual dispara una entrada. El histórico llega
// en orden y history[len(history)-1] es la sesión actual: una señal solo ve
// barras pasadas y presentes, nunca futuras.
type Signal interface {
	Name() string
	Triggered(history []domain.PriceBar) bool
}

// NewSignal construye la señal descrita por el spec de entrada.
func NewSignal(spec EntrySpec) (Signal, error) {
	switch spec.Signal {
	case SignalAlways:
		return alwaysSignal{}, nil
	case SignalCloseChange:
		return closeChangeSignal{threshold: spec.Threshold}, nil
	case SignalOpenGap:
		return openGapSignal{threshold: spec.Threshold}, nil
	case SignalSMACross:
		if spec.Fast < 1 {
			return nil, fmt.Errorf("sma_cross: fast debe ser >= 1 (tiene %d)", spec.Fast)
		}
		if spec.Slow <= spec.Fast {
			return nil, fmt.Errorf("sma_cross: slow debe ser > fast (tiene fast=%d slow=%d)", spec.Fast, spec.Slow)
		}
		return smaCrossSignal{fast: spec.Fast, slow: spec.Slow}, nil
	}
	return nil, fmt.Errorf("señal desconocida %q (acepta %s, %s, %s, %s)",
		spec.Signal, SignalAlways, SignalCloseChange, SignalOpenGap, SignalSMACross)
}

// alwaysSignal entra en cada sesión con datos. Útil como baseline y para
// probar la mecánica de salidas de una estrategia.
type alwaysSignal struct{}

func (alwaysSignal) Name() string { return SignalAlways }

func (alwaysSignal) Triggered(history []domain.PriceBar) bool {
	return len(history) > 0
}

// closeChangeSignal dispara cuando el cambio día a día del close cruza el
// umbral: threshold positivo busca subidas, negativo busca caídas.
type closeChangeSignal struct {
	threshold float64
}

func (closeChangeSignal) Name() string { return SignalCloseChange }

func (s closeChangeSignal) Triggered(history []domain.PriceBar) bool {
	if len(history) < 2 {
		return false
	}
	d := domain.Diff(history[len(history)-2], history[len(history)-1])
	return crosses(d.ClosePct, s.threshold)
}

// openGapSignal dispara cuando el gap de apertura (open de hoy vs close de
// ayer) cruza el umbral.
type openGapSignal struct {
	threshold float64
}

func (openGapSignal) Name() string { return SignalOpenGap }

func (s openGapSignal) Triggered(history []domain.PriceBar) bool {
	if len(history) < 2 {
		return false
	}
	d := domain.Diff(history[len(history)-2], history[len(history)-1])
	return crosses(d.GapPct, s.threshold)
}

// smaCrossSignal dispara cuando la media móvil rápida cruza por encima de
// la lenta en la sesión actual (golden cross). Solo la sesión del cruce
// dispara, no todas las sesiones con fast > slow.
type smaCrossSignal struct {
	fast int
	slow int
}

func (smaCrossSignal) Name() string { return SignalSMACross }

func (s smaCrossSignal) Triggered(history []domain.PriceBar) bool {
	// Para comparar el cruce se necesita la sesión actual y la anterior
	// con ambas medias completas.
	if len(history) < s.slow+1 {
		return false
	}

	fastNow := sma(history, s.fast, 0)
	slowNow := sma(history, s.slow, 0)
	fastPrev := sma(history, s.fast, 1)
	slowPrev := sma(history, s.slow, 1)

	return fastNow > slowNow && fastPrev <= slowPrev
}

// sma calcula la media móvil simple de los closes de las últimas n barras,
// desplazada back sesiones hacia atrás desde la actual.
func sma(history []domain.PriceBar, n, back int) float64 {
	end := len(history) - back
	closes := make(stats.Float64Data, 0, n)
	for _, b := range history[end-n : end] {
		closes = append(closes, b.Close)
	}
	mean, err := stats.Mean(closes)
	if err != nil {
		return 0
	}
	return mean
}

// crosses aplica la convención de umbral con signo: positivo dispara en
// valores >= threshold, negativo en valores <= threshold.
func crosses(value, threshold float64) bool {
	if threshold >= 0 {
		return value >= threshold
	}
	return value <= threshold
}
