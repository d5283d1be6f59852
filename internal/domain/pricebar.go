package domain

import "time"

// PriceBar es una barra OHLCV diaria de un activo: una por sesión de
// trading, inmutable una vez registrada, ordenada por Timestamp.
type PriceBar struct {
	Asset     AssetID
	Timestamp time.Time // fecha de sesión (medianoche UTC)
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// SessionDiff contiene las diferencias de una sesión respecto a la anterior,
// más los rangos intradía de la propia sesión. Son los inputs crudos de las
// señales de entrada de una estrategia.
type SessionDiff struct {
	// Diferencias día-a-día (pueden ser negativas, cero o positivas).
	OpenAbs  float64
	OpenPct  float64
	HighAbs  float64
	HighPct  float64
	LowAbs   float64
	LowPct   float64
	CloseAbs float64
	ClosePct float64

	// GapPct es el gap de apertura: open de hoy vs close de ayer, en %.
	GapPct float64

	// Rangos intradía de la sesión actual.
	OpenToClose float64 // close - open (signo libre)
	HighToLow   float64 // high - low (siempre >= 0)
}

// Diff calcula las diferencias de cur respecto a prev.
// prev debe ser la sesión inmediatamente anterior de la misma serie.
func Diff(prev, cur PriceBar) SessionDiff {
	return SessionDiff{
		OpenAbs:  cur.Open - prev.Open,
		OpenPct:  pctChange(prev.Open, cur.Open),
		HighAbs:  cur.High - prev.High,
		HighPct:  pctChange(prev.High, cur.High),
		LowAbs:   cur.Low - prev.Low,
		LowPct:   pctChange(prev.Low, cur.Low),
		CloseAbs: cur.Close - prev.Close,
		ClosePct: pctChange(prev.Close, cur.Close),
		GapPct:   pctChange(prev.Close, cur.Open),

		OpenToClose: cur.Close - cur.Open,
		HighToLow:   cur.High - cur.Low,
	}
}

// pctChange devuelve el cambio porcentual de old a new (en %, no fracción).
// Devuelve 0 si old es 0 para no propagar infinitos a las señales.
func pctChange(old, new float64) float64 {
	if old == 0 {
		return 0
	}
	return (new - old) / old * 100
}

// HoldingReturn devuelve la ganancia fraccional de mantener un activo
// entre dos valores: end/start - 1. Es la métrica de los benchmarks
// buy-and-hold y del threshold de comparación.
// Devuelve 0 si start no es positivo.
func HoldingReturn(start, end float64) float64 {
	if start <= 0 {
		return 0
	}
	return end/start - 1
}
