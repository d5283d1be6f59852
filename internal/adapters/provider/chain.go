package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
)

const functionOptions = "HISTORICAL_OPTIONS"

// optionsResponse es la respuesta cruda del endpoint HISTORICAL_OPTIONS:
// todos los valores numéricos llegan como strings.
type optionsResponse struct {
	ErrorMessage string           `json:"Error Message"`
	Data         []optionContract `json:"data"`
}

type optionContract struct {
	ContractID   string `json:"contractID"`
	Type         string `json:"type"`
	Strike       string `json:"strike"`
	Expiration   string `json:"expiration"`
	Bid          string `json:"bid"`
	Ask          string `json:"ask"`
	ImpliedVol   string `json:"implied_volatility"`
	Volume       string `json:"volume"`
	OpenInterest string `json:"open_interest"`
	Date         string `json:"date"`
}

// FetchOptionChain descarga el snapshot histórico de la chain del subyacente
// en la sesión dada. Los contratos con campos obligatorios ilegibles se
// descartan sin abortar el snapshot — el proveedor intercala filas corruptas
// de vez en cuando y un contrato roto no invalida la chain entera.
func (c *Client) FetchOptionChain(ctx context.Context, underlying domain.AssetID, date time.Time) (domain.OptionChain, error) {
	session := domain.SessionDate(date)
	url := fmt.Sprintf("%s%s?function=%s&symbol=%s&date=%s&apikey=%s",
		c.marketBase, queryPath, functionOptions, underlying,
		session.Format(providerDateLayout), c.apiKey)

	var resp optionsResponse
	if err := c.get(ctx, c.marketLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("provider.FetchOptionChain: %s@%s: %w",
			underlying, session.Format(providerDateLayout), err)
	}
	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("provider.FetchOptionChain: %s: API error: %s", underlying, resp.ErrorMessage)
	}

	chain := make(domain.OptionChain, 0, len(resp.Data))
	skipped := 0
	for _, raw := range resp.Data {
		quote, err := parseContract(underlying, session, raw)
		if err != nil {
			skipped++
			continue
		}
		chain = append(chain, quote)
	}
	if skipped > 0 {
		slog.Debug("skipped malformed contracts",
			"underlying", underlying,
			"session", session.Format(providerDateLayout),
			"skipped", skipped,
		)
	}

	slog.Debug("option chain fetched",
		"underlying", underlying,
		"session", session.Format(providerDateLayout),
		"contracts", len(chain),
	)
	return chain, nil
}

// parseContract convierte un contrato crudo del proveedor en un OptionQuote.
func parseContract(underlying domain.AssetID, session time.Time, raw optionContract) (domain.OptionQuote, error) {
	if raw.ContractID == "" {
		return domain.OptionQuote{}, fmt.Errorf("contrato sin contractID")
	}

	typ := domain.OptionType(raw.Type)
	if err := typ.Validate(); err != nil {
		return domain.OptionQuote{}, err
	}

	strike, err := strconv.ParseFloat(raw.Strike, 64)
	if err != nil {
		return domain.OptionQuote{}, fmt.Errorf("strike %q: %w", raw.Strike, err)
	}
	expiration, err := time.Parse(providerDateLayout, raw.Expiration)
	if err != nil {
		return domain.OptionQuote{}, fmt.Errorf("expiration %q: %w", raw.Expiration, err)
	}

	// Bid/ask/IV/volume pueden faltar; 0 es un valor válido para todos.
	bid, _ := strconv.ParseFloat(raw.Bid, 64)
	ask, _ := strconv.ParseFloat(raw.Ask, 64)
	iv, _ := strconv.ParseFloat(raw.ImpliedVol, 64)
	volume, _ := strconv.ParseFloat(raw.Volume, 64)
	oi, _ := strconv.Atoi(raw.OpenInterest)

	return domain.OptionQuote{
		ContractID:   raw.ContractID,
		Underlying:   underlying,
		Type:         typ,
		Strike:       strike,
		Expiration:   domain.SessionDate(expiration),
		Bid:          bid,
		Ask:          ask,
		ImpliedVol:   iv,
		Volume:       volume,
		OpenInterest: oi,
		Timestamp:    session,
	}, nil
}
