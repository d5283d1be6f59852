package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/optbot/internal/adapters/notify"
	"github.com/alejandrodnm/optbot/internal/adapters/storage"
)

// runReport imprime el histórico de evaluaciones persistidas.
func runReport(ctx context.Context, store *storage.SQLiteStore) int {
	// Todo el histórico: el volumen de evaluaciones es pequeño.
	from := time.Unix(0, 0).UTC()
	to := time.Now().UTC()

	results, err := store.GetEvaluations(ctx, from, to)
	if err != nil {
		slog.Error("failed to load evaluation history", "err", err)
		return exitErr
	}

	notify.NewConsole().PrintHistory(results)
	return exitPass
}
