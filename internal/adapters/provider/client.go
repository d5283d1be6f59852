package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMarketBase = "https://www.alphavantage.co"
	defaultSpotBase   = "https://api.coingecko.com"

	// Rate limits muy por debajo de los límites reales de los planes
	// gratuitos: Alpha Vantage ~75 req/min premium → 1/s; CoinGecko
	// ~30 req/min → 1 cada 3s.
	marketRatePerSec = 1
	spotRateEvery    = 3 * time.Second

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client es el HTTP client de los proveedores de datos de mercado, con rate
// limiting y retries. Sirve las series diarias y las chains históricas desde
// el endpoint "market" (estilo Alpha Vantage) y los cierres spot de cripto
// desde el endpoint "spot" (estilo CoinGecko).
type Client struct {
	http          *http.Client
	marketBase    string
	spotBase      string
	apiKey        string
	marketLimiter *rate.Limiter
	spotLimiter   *rate.Limiter
}

// NewClient crea un Client con los base URLs dados.
// Si marketBase o spotBase están vacíos, usa los URLs de producción.
// apiKey es la API key del proveedor market (variable MARKET_API_KEY).
func NewClient(marketBase, spotBase, apiKey string) *Client {
	if marketBase == "" {
		marketBase = defaultMarketBase
	}
	if spotBase == "" {
		spotBase = defaultSpotBase
	}
	return &Client{
		http:          &http.Client{Timeout: 30 * time.Second},
		marketBase:    marketBase,
		spotBase:      spotBase,
		apiKey:        apiKey,
		marketLimiter: rate.NewLimiter(marketRatePerSec, 1),
		spotLimiter:   rate.NewLimiter(rate.Every(spotRateEvery), 1),
	}
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial, respetando el contexto.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by provider", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
