package domain

import (
	"fmt"
	"time"
)

// errors.go — taxonomía de errores terminales de una evaluación.
//
// Los tres tipos son fallos definitivos para el run afectado: no se
// reintentan (un hueco en datos de mercado no es transitorio) y nunca se
// reporta un EvaluationResult parcial. El CLI los detecta con errors.As
// para mapearlos a exit codes.

// DataGapError indica que la ventana pedida tiene sesiones faltantes por
// encima de la tolerancia configurada (evaluator.max_gap_sessions).
type DataGapError struct {
	Asset     AssetID
	From      time.Time // última sesión con datos antes del hueco (o borde de ventana)
	To        time.Time // primera sesión con datos después del hueco (o borde de ventana)
	Missing   int       // sesiones hábiles sin datos dentro del hueco
	Tolerance int
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("data gap en %s: %d sesiones sin datos entre %s y %s (tolerancia %d)",
		e.Asset, e.Missing,
		e.From.Format("2006-01-02"), e.To.Format("2006-01-02"),
		e.Tolerance)
}

// InsufficientDataError indica que ninguna serie del benchmark (ETF ni spot)
// cubre la ventana de evaluación.
type InsufficientDataError struct {
	Benchmark AssetID
	Window    Window
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("datos insuficientes para benchmark %s en %s: %s",
		e.Benchmark, e.Window, e.Reason)
}

// InvalidStrategyError indica que la definición de estrategia está mal
// formada: YAML inválido, campos obligatorios ausentes o valores fuera de
// rango. Se detecta al cargar/validar, nunca a mitad de una simulación.
type InvalidStrategyError struct {
	Name   string // nombre de la estrategia o ruta del archivo si aún no se conoce
	Reason string
}

func (e *InvalidStrategyError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("estrategia inválida: %s", e.Reason)
	}
	return fmt.Sprintf("estrategia inválida %q: %s", e.Name, e.Reason)
}

func errInvalidMoneyness(m Moneyness) error {
	return fmt.Errorf("moneyness inválido: %q (debe ser atm, itm u otm)", m)
}
