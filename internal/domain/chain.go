package domain

import (
	"math"
	"sort"
	"time"
)

// chain.go — helpers de selección sobre el snapshot de una option chain.
//
// Todas las selecciones son deterministas: ante empates se prefiere la
// expiración más temprana, luego el strike más cercano al objetivo, y por
// último el strike más bajo. Dos ejecuciones con la misma chain eligen
// siempre el mismo contrato.

// OptionChain es el conjunto de quotes de un subyacente en una sesión.
type OptionChain []OptionQuote

// Moneyness indica la relación strike/spot buscada al seleccionar contrato.
type Moneyness string

const (
	MoneynessATM Moneyness = "atm" // strike más cercano al spot
	MoneynessITM Moneyness = "itm" // primer strike in-the-money
	MoneynessOTM Moneyness = "otm" // primer strike out-of-the-money
)

// Validate devuelve error si el moneyness no es atm/itm/otm.
func (m Moneyness) Validate() error {
	switch m {
	case MoneynessATM, MoneynessITM, MoneynessOTM:
		return nil
	}
	return errInvalidMoneyness(m)
}

// OfType devuelve los quotes del tipo dado, en una copia nueva.
func (c OptionChain) OfType(typ OptionType) OptionChain {
	out := make(OptionChain, 0, len(c))
	for _, q := range c {
		if q.Type == typ {
			out = append(out, q)
		}
	}
	return out
}

// Expirations devuelve las fechas de expiración únicas, ordenadas ascendente.
func (c OptionChain) Expirations() []time.Time {
	seen := make(map[time.Time]bool, len(c))
	var out []time.Time
	for _, q := range c {
		d := SessionDate(q.Expiration)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// EarliestExpiring devuelve los contratos de la expiración más temprana
// que no haya pasado aún respecto a asOf. Chain vacía si no hay ninguna.
func (c OptionChain) EarliestExpiring(asOf time.Time) OptionChain {
	day := SessionDate(asOf)
	var earliest time.Time
	for _, exp := range c.Expirations() {
		if !exp.Before(day) {
			earliest = exp
			break
		}
	}
	if earliest.IsZero() {
		return nil
	}
	return c.atExpiration(earliest)
}

// NearestExpiration devuelve la expiración cuyo DTE respecto a asOf es el
// más cercano a targetDTE, limitada a [minDTE, maxDTE]. ok=false si ninguna
// expiración cae dentro de los límites. Empate: la expiración más temprana.
func (c OptionChain) NearestExpiration(asOf time.Time, targetDTE, minDTE, maxDTE int) (time.Time, bool) {
	day := SessionDate(asOf)
	var best time.Time
	bestDist := math.MaxInt
	for _, exp := range c.Expirations() {
		dte := int(exp.Sub(day).Hours() / 24)
		if dte < minDTE || dte > maxDTE {
			continue
		}
		dist := abs(dte - targetDTE)
		if dist < bestDist {
			bestDist = dist
			best = exp
		}
	}
	return best, !best.IsZero()
}

// SelectContract elige el contrato del tipo y moneyness pedidos dentro de
// la expiración dada, relativo al precio spot. ok=false si la expiración
// no tiene strikes del tipo pedido o ninguno cumple el moneyness.
func (c OptionChain) SelectContract(typ OptionType, expiration time.Time, spot float64, m Moneyness) (OptionQuote, bool) {
	candidates := c.atExpiration(expiration).OfType(typ)
	if len(candidates) == 0 {
		return OptionQuote{}, false
	}

	// Orden estable por strike ascendente; a igual strike, por ContractID.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Strike != candidates[j].Strike {
			return candidates[i].Strike < candidates[j].Strike
		}
		return candidates[i].ContractID < candidates[j].ContractID
	})

	switch m {
	case MoneynessATM:
		return closestStrike(candidates, spot), true
	case MoneynessITM:
		return firstMoneyness(candidates, typ, spot, true)
	case MoneynessOTM:
		return firstMoneyness(candidates, typ, spot, false)
	}
	return OptionQuote{}, false
}

// Find devuelve el quote del contrato con el ContractID dado.
func (c OptionChain) Find(contractID string) (OptionQuote, bool) {
	for _, q := range c {
		if q.ContractID == contractID {
			return q, true
		}
	}
	return OptionQuote{}, false
}

// atExpiration filtra los quotes de una expiración concreta.
func (c OptionChain) atExpiration(exp time.Time) OptionChain {
	day := SessionDate(exp)
	out := make(OptionChain, 0, len(c))
	for _, q := range c {
		if SessionDate(q.Expiration).Equal(day) {
			out = append(out, q)
		}
	}
	return out
}

// closestStrike devuelve el quote con strike más cercano a spot.
// candidates debe venir ordenado por strike ascendente; a igual distancia
// gana el strike más bajo.
func closestStrike(candidates OptionChain, spot float64) OptionQuote {
	best := candidates[0]
	bestDist := math.Abs(best.Strike - spot)
	for _, q := range candidates[1:] {
		dist := math.Abs(q.Strike - spot)
		if dist < bestDist {
			bestDist = dist
			best = q
		}
	}
	return best
}

// firstMoneyness devuelve el primer strike ITM (el más cercano al spot desde
// el lado in-the-money) o el primer OTM, según itm. Para una call, ITM es
// strike < spot y OTM strike > spot; para una put, al revés.
func firstMoneyness(candidates OptionChain, typ OptionType, spot float64, itm bool) (OptionQuote, bool) {
	wantBelow := (typ == OptionCall) == itm // call+ITM o put+OTM → strike bajo el spot

	if wantBelow {
		// El más alto de los strikes < spot.
		for i := len(candidates) - 1; i >= 0; i-- {
			if candidates[i].Strike < spot {
				return candidates[i], true
			}
		}
		return OptionQuote{}, false
	}

	// El más bajo de los strikes > spot.
	for _, q := range candidates {
		if q.Strike > spot {
			return q, true
		}
	}
	return OptionQuote{}, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
