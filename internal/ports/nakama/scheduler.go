package nakama

import (
	"context"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"pong/internal/app/matchqueue"
	"pong/internal/app/tournament"
	"pong/internal/config"
)

// startSchedulers launches the background drivers: the matchmaking sweep and
// the tournament scan. Each runs on its own goroutine until the runtime
// context is cancelled; a single goroutine per driver keeps runs from
// overlapping.
func startSchedulers(ctx context.Context, logger runtime.Logger, queueSvc *matchqueue.Service, tournamentSvc *tournament.Service) {
	go runQueueSweeper(ctx, logger, queueSvc)
	go runTournamentScanner(ctx, logger, tournamentSvc)
}

func runQueueSweeper(ctx context.Context, logger runtime.Logger, svc *matchqueue.Service) {
	ticker := time.NewTicker(time.Duration(config.QueueSweepSeconds()) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Queue sweeper stopped.")
			return
		case <-ticker.C:
			created, err := svc.Sweep(ctx)
			if err != nil {
				logger.Error("Queue sweep failed: %v", err)
			}
			for _, match := range created {
				logger.Info("Queue sweep paired %s vs %s into match %s", match.Player1ID, match.Player2ID, match.ID)
			}
		}
	}
}

func runTournamentScanner(ctx context.Context, logger runtime.Logger, svc *tournament.Service) {
	ticker := time.NewTicker(time.Duration(config.TournamentScanSeconds()) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Tournament scanner stopped.")
			return
		case <-ticker.C:
			if err := svc.Scan(ctx); err != nil {
				logger.Error("Tournament scan failed: %v", err)
			}
		}
	}
}
