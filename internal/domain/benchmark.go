package domain

// SeriesSource indica de qué serie salió el retorno de un benchmark.
type SeriesSource string

const (
	SourceETF  SeriesSource = "etf"
	SourceSpot SeriesSource = "spot"
)

// BenchmarkReturn es el retorno buy-and-hold de un benchmark sobre una
// ventana: comprar en la primera sesión con datos, mantener sin operar y
// valorar en la última. Inmutable, calculado una vez por evaluación.
type BenchmarkReturn struct {
	Benchmark  AssetID      // benchmark lógico: SPY, QQQ, BTC, ETH
	Series     AssetID      // serie concreta que ganó: SPY, IBIT, bitcoin...
	Source     SeriesSource // etf | spot
	StartValue float64      // close de la primera sesión cubierta
	EndValue   float64      // close de la última sesión cubierta
	Return     float64      // ganancia fraccional: EndValue/StartValue - 1
}

// MaxBenchmarkReturn devuelve el retorno más alto del conjunto. Con slice
// vacío devuelve 0. Los retornos pueden ser negativos: si todos los
// benchmarks pierden, el máximo sigue siendo el menos malo.
func MaxBenchmarkReturn(returns []BenchmarkReturn) float64 {
	if len(returns) == 0 {
		return 0
	}
	max := returns[0].Return
	for _, r := range returns[1:] {
		if r.Return > max {
			max = r.Return
		}
	}
	return max
}
