package domain

import (
	"fmt"
	"time"
)

// Window es la ventana temporal de una evaluación: [From, To] inclusive,
// en fechas de sesión UTC. Toda la simulación y todos los benchmarks se
// calculan sobre exactamente esta ventana.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow normaliza ambos extremos a medianoche UTC.
func NewWindow(from, to time.Time) Window {
	return Window{From: SessionDate(from), To: SessionDate(to)}
}

// Validate devuelve error si la ventana está vacía o invertida.
func (w Window) Validate() error {
	if w.From.IsZero() || w.To.IsZero() {
		return fmt.Errorf("window: from y to son obligatorios")
	}
	if w.To.Before(w.From) {
		return fmt.Errorf("window: to (%s) anterior a from (%s)",
			w.To.Format("2006-01-02"), w.From.Format("2006-01-02"))
	}
	return nil
}

// Contains devuelve true si t cae dentro de la ventana (inclusive).
func (w Window) Contains(t time.Time) bool {
	d := SessionDate(t)
	return !d.Before(w.From) && !d.After(w.To)
}

// String devuelve la ventana en formato YYYY-MM-DD..YYYY-MM-DD.
func (w Window) String() string {
	return w.From.Format("2006-01-02") + ".." + w.To.Format("2006-01-02")
}

// SessionDate trunca un timestamp a la fecha de sesión (medianoche UTC).
// Las series diarias del store se indexan siempre por esta fecha.
func SessionDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
