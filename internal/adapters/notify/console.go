package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// Console implementa ports.Reporter: imprime el veredicto de una evaluación
// con sus tablas de benchmarks y trades, más estadísticas de apoyo.
type Console struct {
	out io.Writer
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Report imprime el resultado completo de una evaluación.
func (c *Console) Report(_ context.Context, result domain.EvaluationResult, ledger domain.TradeLedger) error {
	fmt.Fprintf(c.out, "\n=== EVALUACIÓN: %s  [%s] ===\n", result.Strategy, result.Window)

	c.printBenchmarks(result.Benchmarks)
	c.printTrades(ledger)
	c.printStatistics(ledger)
	c.printVerdict(result)
	return nil
}

// printBenchmarks imprime la tabla de retornos buy-and-hold.
func (c *Console) printBenchmarks(benchmarks []domain.BenchmarkReturn) {
	if len(benchmarks) == 0 {
		return
	}

	fmt.Fprintln(c.out, "\nBenchmarks buy-and-hold:")
	table := tablewriter.NewWriter(c.out)
	table.Header("Benchmark", "Serie", "Fuente", "Inicio", "Fin", "Retorno")
	for _, b := range benchmarks {
		table.Append(
			string(b.Benchmark),
			string(b.Series),
			string(b.Source),
			fmt.Sprintf("%.2f", b.StartValue),
			fmt.Sprintf("%.2f", b.EndValue),
			fmt.Sprintf("%+.2f%%", b.Return*100),
		)
	}
	table.Render()
}

// printTrades imprime el ledger completo.
func (c *Console) printTrades(ledger domain.TradeLedger) {
	if len(ledger.Trades) == 0 {
		fmt.Fprintln(c.out, "\n  (sin trades: la señal de entrada nunca disparó)")
		return
	}

	fmt.Fprintf(c.out, "\nTrades (%d):\n", len(ledger.Trades))
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Contrato", "Tipo", "Strike", "Abierto", "Prima in", "Cerrado", "Prima out", "Qty", "PnL", "Salida")

	for i, t := range ledger.Trades {
		exit := string(t.ExitReason)
		if t.ForcedClose {
			exit += " (forzado)"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			t.ContractID,
			string(t.Type),
			fmt.Sprintf("%.2f", t.Strike),
			t.OpenedAt.Format("2006-01-02"),
			fmt.Sprintf("$%.2f", t.OpenPrice),
			t.ClosedAt.Format("2006-01-02"),
			fmt.Sprintf("$%.2f", t.ClosePrice),
			fmt.Sprintf("%d", t.Quantity),
			fmt.Sprintf("$%+.2f", t.RealizedPnL),
			exit,
		)
	}
	table.Render()
}

// printStatistics imprime las estadísticas de apoyo del ledger.
func (c *Console) printStatistics(ledger domain.TradeLedger) {
	if len(ledger.Trades) == 0 {
		return
	}

	pnls := make(stats.Float64Data, 0, len(ledger.Trades))
	var grossWin, grossLoss float64
	for _, t := range ledger.Trades {
		pnls = append(pnls, t.RealizedPnL)
		if t.RealizedPnL > 0 {
			grossWin += t.RealizedPnL
		} else {
			grossLoss += -t.RealizedPnL
		}
	}

	fmt.Fprintln(c.out, "\nEstadísticas:")
	fmt.Fprintf(c.out, "  win rate:       %.1f%% (%d/%d)\n",
		ledger.WinRate()*100, len(ledger.Wins()), len(ledger.Trades))

	if wins := tradePnLs(ledger.Wins()); len(wins) > 0 {
		avg, _ := stats.Mean(wins)
		fmt.Fprintf(c.out, "  ganancia media: $%.2f\n", avg)
	}
	if losses := tradePnLs(ledger.Losses()); len(losses) > 0 {
		avg, _ := stats.Mean(losses)
		fmt.Fprintf(c.out, "  pérdida media:  $%.2f\n", avg)
	}

	pf := "INF"
	if grossLoss > 0 {
		pf = fmt.Sprintf("%.2f", grossWin/grossLoss)
	}
	fmt.Fprintf(c.out, "  profit factor:  %s\n", pf)

	if stddev, err := stats.StandardDeviation(pnls); err == nil {
		fmt.Fprintf(c.out, "  stddev PnL:     $%.2f\n", stddev)
	}
	fmt.Fprintf(c.out, "  max drawdown:   $%.2f\n", maxDrawdown(ledger.Trades))
	fmt.Fprintf(c.out, "  comisiones:     $%.2f\n", ledger.TotalFees())
}

// printVerdict imprime el bloque final PASS/FAIL.
func (c *Console) printVerdict(result domain.EvaluationResult) {
	fmt.Fprintf(c.out, "\n  Retorno estrategia: %+.2f%%\n", result.StrategyReturn*100)
	fmt.Fprintf(c.out, "  Threshold (2× mejor benchmark): %+.2f%%\n", result.Threshold*100)
	fmt.Fprintf(c.out, "  ─────────────────────────────────────────────\n")
	fmt.Fprintf(c.out, "  VEREDICTO: %s\n\n", result.Verdict())
}

// PrintRanking imprime la tabla comparativa de una pasada sweep, ya ordenada
// por retorno. failures son las estrategias cuyo run falló, por nombre.
func (c *Console) PrintRanking(results []domain.EvaluationResult, failures map[string]error) {
	fmt.Fprintf(c.out, "\n=== SWEEP: %d estrategias evaluadas ===\n", len(results)+len(failures))

	if len(results) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("#", "Estrategia", "Retorno", "Threshold", "Trades", "Veredicto")
		for i, r := range results {
			table.Append(
				fmt.Sprintf("%d", i+1),
				r.Strategy,
				fmt.Sprintf("%+.2f%%", r.StrategyReturn*100),
				fmt.Sprintf("%+.2f%%", r.Threshold*100),
				fmt.Sprintf("%d", r.Trades),
				r.Verdict(),
			)
		}
		table.Render()
	}

	for name, err := range failures {
		fmt.Fprintf(c.out, "  ✗ %s: %v\n", name, err)
	}
	fmt.Fprintln(c.out)
}

// PrintHistory imprime las evaluaciones persistidas, la más reciente primero.
func (c *Console) PrintHistory(results []domain.EvaluationResult) {
	if len(results) == 0 {
		fmt.Fprintln(c.out, "  (sin evaluaciones guardadas en el rango)")
		return
	}

	fmt.Fprintf(c.out, "\n=== HISTÓRICO: %d evaluaciones ===\n", len(results))
	table := tablewriter.NewWriter(c.out)
	table.Header("Fecha", "Estrategia", "Ventana", "Retorno", "Threshold", "Trades", "Veredicto")
	for _, r := range results {
		table.Append(
			r.EvaluatedAt.Format("2006-01-02 15:04"),
			r.Strategy,
			r.Window.String(),
			fmt.Sprintf("%+.2f%%", r.StrategyReturn*100),
			fmt.Sprintf("%+.2f%%", r.Threshold*100),
			fmt.Sprintf("%d", r.Trades),
			r.Verdict(),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// tradePnLs extrae los P&L de un subconjunto de trades.
func tradePnLs(trades []domain.Trade) stats.Float64Data {
	out := make(stats.Float64Data, 0, len(trades))
	for _, t := range trades {
		out = append(out, t.RealizedPnL)
	}
	return out
}

// maxDrawdown calcula la mayor caída pico-a-valle del P&L acumulado del
// ledger, en dólares (0 si nunca cae).
func maxDrawdown(trades []domain.Trade) float64 {
	var cum, peak, dd float64
	for _, t := range trades {
		cum += t.RealizedPnL
		peak = math.Max(peak, cum)
		dd = math.Max(dd, peak-cum)
	}
	return dd
}
