package main

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/optbot/config"
	"github.com/alejandrodnm/optbot/internal/adapters/provider"
	"github.com/alejandrodnm/optbot/internal/adapters/storage"
	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/strategy"
)

// runFetch descarga el dataset de la ventana al store: series diarias de los
// activos configurados, cierres spot de las series cripto de los benchmarks
// y, si se pasa -strategy, la serie del subyacente más un snapshot de chain
// por sesión hábil. Todo es upsert: repetir un fetch no duplica filas.
func runFetch(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore, client *provider.Client, strategyPath string, window domain.Window) int {
	if cfg.Provider.APIKey == "" {
		slog.Error("MARKET_API_KEY is not set (required for -fetch)")
		return exitErr
	}

	assets := cfg.FetchAssets()
	if strategyPath != "" {
		def, err := strategy.Load(strategyPath)
		if err != nil {
			slog.Error("failed to load strategy", "err", err, "path", strategyPath)
			return exitErr
		}
		assets = appendUnique(assets, def.Underlying)
		if code := fetchChains(ctx, store, client, def.Underlying, window); code != exitPass {
			return code
		}
	}

	for _, asset := range assets {
		bars, err := client.FetchDailyBars(ctx, asset)
		if err != nil {
			slog.Error("fetch failed", "asset", asset, "err", err)
			return exitErr
		}
		saved, err := store.SaveBars(ctx, bars)
		if err != nil {
			slog.Error("failed to save bars", "asset", asset, "err", err)
			return exitErr
		}
		slog.Info("daily bars stored", "asset", asset, "rows", saved)
	}

	for _, spec := range cfg.BenchmarkSpecs() {
		if !spec.HasSpot() {
			continue
		}
		bars, err := client.FetchSpotBars(ctx, spec.Spot, window)
		if err != nil {
			slog.Error("spot fetch failed", "series", spec.Spot, "err", err)
			return exitErr
		}
		saved, err := store.SaveBars(ctx, bars)
		if err != nil {
			slog.Error("failed to save spot bars", "series", spec.Spot, "err", err)
			return exitErr
		}
		slog.Info("spot bars stored", "series", spec.Spot, "rows", saved)
	}

	slog.Info("fetch complete", "window", window)
	return exitPass
}

// fetchChains descarga un snapshot de chain por sesión hábil de la ventana.
func fetchChains(ctx context.Context, store *storage.SQLiteStore, client *provider.Client, underlying domain.AssetID, window domain.Window) int {
	sessions := 0
	quotes := 0
	for day := window.From; !day.After(window.To); day = day.AddDate(0, 0, 1) {
		if !domain.IsWeekday(day) {
			continue
		}
		chain, err := client.FetchOptionChain(ctx, underlying, day)
		if err != nil {
			slog.Error("chain fetch failed",
				"underlying", underlying,
				"session", day.Format("2006-01-02"),
				"err", err,
			)
			return exitErr
		}
		saved, err := store.SaveQuotes(ctx, chain)
		if err != nil {
			slog.Error("failed to save chain", "underlying", underlying, "err", err)
			return exitErr
		}
		sessions++
		quotes += saved
	}

	slog.Info("option chains stored",
		"underlying", underlying,
		"sessions", sessions,
		"quotes", quotes,
	)
	return exitPass
}

func appendUnique(assets []domain.AssetID, asset domain.AssetID) []domain.AssetID {
	for _, a := range assets {
		if a == asset {
			return assets
		}
	}
	return append(assets, asset)
}
