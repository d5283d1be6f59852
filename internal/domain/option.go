package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// OptionType es el tipo de contrato: call o put.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// Validate devuelve error si el tipo no es call ni put.
func (t OptionType) Validate() error {
	if t != OptionCall && t != OptionPut {
		return fmt.Errorf("option type inválido: %q (debe ser call o put)", t)
	}
	return nil
}

// OptionQuote es el snapshot de un contrato de opción en una sesión:
// inmutable, muchos por subyacente y día. El ContractID sigue el formato
// OCC (p.ej. META260116C00620000).
type OptionQuote struct {
	ContractID   string
	Underlying   AssetID
	Type         OptionType
	Strike       float64
	Expiration   time.Time // fecha de expiración (medianoche UTC)
	Bid          float64
	Ask          float64
	ImpliedVol   float64
	Volume       float64
	OpenInterest int
	Timestamp    time.Time // sesión del snapshot (medianoche UTC)
}

// Mid devuelve el punto medio entre bid y ask.
// Si falta un lado devuelve el otro; 0 si faltan ambos.
func (q OptionQuote) Mid() float64 {
	switch {
	case q.Bid > 0 && q.Ask > 0:
		return (q.Bid + q.Ask) / 2
	case q.Ask > 0:
		return q.Ask
	default:
		return q.Bid
	}
}

// DTE devuelve los días naturales hasta la expiración contados desde asOf.
// Negativo si el contrato ya expiró.
func (q OptionQuote) DTE(asOf time.Time) int {
	return int(SessionDate(q.Expiration).Sub(SessionDate(asOf)).Hours() / 24)
}

// Intrinsic devuelve el valor intrínseco del contrato dado el precio spot
// del subyacente. Nunca es negativo.
func (q OptionQuote) Intrinsic(spot float64) float64 {
	switch q.Type {
	case OptionCall:
		return math.Max(0, spot-q.Strike)
	case OptionPut:
		return math.Max(0, q.Strike-spot)
	}
	return 0
}

// Expired devuelve true si la sesión asOf es igual o posterior a la expiración.
func (q OptionQuote) Expired(asOf time.Time) bool {
	return !SessionDate(asOf).Before(SessionDate(q.Expiration))
}

// OCCSymbol construye el identificador OCC de un contrato:
// <subyacente><YYMMDD><C|P><strike×1000 a 8 dígitos>.
func OCCSymbol(underlying AssetID, expiration time.Time, typ OptionType, strike float64) string {
	side := "C"
	if typ == OptionPut {
		side = "P"
	}
	return fmt.Sprintf("%s%s%s%08d",
		strings.ToUpper(string(underlying)),
		expiration.UTC().Format("060102"),
		side,
		int(math.Round(strike*1000)),
	)
}

// ContractMultiplier es el número de acciones por contrato de opción
// estándar US equity. El P&L de un trade es (prima salida - prima
// entrada) × cantidad × ContractMultiplier - fees.
const ContractMultiplier = 100.0
