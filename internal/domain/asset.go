package domain

// AssetID identifica una serie de precios en el almacén de datos:
// un ticker de equity/ETF (SPY, QQQ, META), o un id de serie spot
// de cripto (bitcoin, ethereum).
type AssetID string

// Benchmarks lógicos contra los que toda estrategia se mide.
// Los tickers/series concretos que alimentan cada benchmark vienen
// de la configuración (ver BenchmarkSpec).
const (
	BenchmarkSP500  AssetID = "SPY"
	BenchmarkNasdaq AssetID = "QQQ"
	BenchmarkBTC    AssetID = "BTC"
	BenchmarkETH    AssetID = "ETH"
)

// BenchmarkSpec describe cómo calcular el retorno buy-and-hold de un
// benchmark: la serie ETF principal y, para cripto, una serie spot
// alternativa. Cuando ambas series cubren la ventana se toma el retorno
// más alto de las dos.
type BenchmarkSpec struct {
	Name AssetID // benchmark lógico: SPY, QQQ, BTC, ETH
	ETF  AssetID // serie ETF en el store (SPY, QQQ, IBIT, ETHA)
	Spot AssetID // serie spot alternativa ("" si no aplica)
}

// HasSpot devuelve true si el benchmark tiene una serie spot alternativa.
func (b BenchmarkSpec) HasSpot() bool {
	return b.Spot != ""
}

// DefaultBenchmarks devuelve los cuatro benchmarks de referencia con las
// series por defecto. El orden es estable: los reportes y el cálculo del
// threshold dependen de recorrerlos siempre igual.
func DefaultBenchmarks() []BenchmarkSpec {
	return []BenchmarkSpec{
		{Name: BenchmarkSP500, ETF: "SPY"},
		{Name: BenchmarkNasdaq, ETF: "QQQ"},
		{Name: BenchmarkBTC, ETF: "IBIT", Spot: "bitcoin"},
		{Name: BenchmarkETH, ETF: "ETHA", Spot: "ethereum"},
	}
}
