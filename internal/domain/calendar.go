package domain

import "time"

// calendar.go — aproximación del calendario de mercado sin lista de festivos.
//
// Las sesiones se aproximan como días hábiles (lunes-viernes). Los festivos
// aparecen como sesiones "faltantes" de 1 día, por eso la tolerancia de gaps
// (max_gap_sessions) nunca debería configurarse por debajo de 2: un puente
// de festivo legítimo no debe abortar una evaluación.

// IsWeekday devuelve true si t cae de lunes a viernes.
func IsWeekday(t time.Time) bool {
	wd := t.UTC().Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// WeekdaySessions cuenta los días hábiles estrictamente entre a y b
// (exclusivo en ambos extremos). Es el número de sesiones que faltarían
// si entre dos barras adyacentes no hubiera ningún dato.
func WeekdaySessions(a, b time.Time) int {
	from, to := SessionDate(a), SessionDate(b)
	if !to.After(from) {
		return 0
	}
	n := 0
	for d := from.AddDate(0, 0, 1); d.Before(to); d = d.AddDate(0, 0, 1) {
		if IsWeekday(d) {
			n++
		}
	}
	return n
}

// NextSession devuelve el siguiente día hábil después de t.
func NextSession(t time.Time) time.Time {
	d := SessionDate(t).AddDate(0, 0, 1)
	for !IsWeekday(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
