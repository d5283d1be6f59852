package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/optbot/internal/adapters/storage"
)

// Etiqueta de exchange usada en los nombres de archivo de chains exportadas.
const exportExchange = "us"

// runImport carga en el store todos los CSVs reconocidos del directorio.
func runImport(ctx context.Context, store *storage.SQLiteStore, dir string) int {
	bars, quotes, err := storage.ImportDir(ctx, dir, store)
	if err != nil {
		slog.Error("import failed", "err", err, "dir", dir)
		return exitErr
	}

	slog.Info("import complete", "dir", dir, "bars", bars, "quotes", quotes)
	return exitPass
}

// runExport vuelca el dataset completo del store como CSVs: una serie diaria
// por activo y un snapshot de chain por subyacente y sesión.
func runExport(ctx context.Context, store *storage.SQLiteStore, dir string) int {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("failed to create export directory", "err", err, "dir", dir)
		return exitErr
	}

	assets, err := store.Assets(ctx)
	if err != nil {
		slog.Error("export failed", "err", err)
		return exitErr
	}
	for _, asset := range assets {
		bars, err := store.AllBars(ctx, asset)
		if err != nil {
			slog.Error("export failed", "asset", asset, "err", err)
			return exitErr
		}
		path := filepath.Join(dir, storage.BarsFileName(asset))
		if err := storage.ExportBarsCSV(path, bars); err != nil {
			slog.Error("export failed", "asset", asset, "err", err)
			return exitErr
		}
		slog.Info("bars exported", "asset", asset, "rows", len(bars), "path", path)
	}

	underlyings, err := store.OptionUnderlyings(ctx)
	if err != nil {
		slog.Error("export failed", "err", err)
		return exitErr
	}
	for _, underlying := range underlyings {
		sessions, err := store.ChainSessions(ctx, underlying)
		if err != nil {
			slog.Error("export failed", "underlying", underlying, "err", err)
			return exitErr
		}
		for _, session := range sessions {
			chain, err := store.GetOptionChain(ctx, underlying, session)
			if err != nil {
				slog.Error("export failed", "underlying", underlying, "err", err)
				return exitErr
			}
			path := filepath.Join(dir, storage.ChainFileName(exportExchange, underlying, session))
			if err := storage.ExportChainCSV(path, chain); err != nil {
				slog.Error("export failed", "underlying", underlying, "err", err)
				return exitErr
			}
		}
		slog.Info("chains exported", "underlying", underlying, "sessions", len(sessions))
	}

	return exitPass
}
