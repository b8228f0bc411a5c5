package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"

	"pong/internal/app/matchqueue"
	"pong/internal/app/tournament"
	"pong/internal/config"
)

// InitModule wires adapters, services, RPCs, the match handler and the
// background schedulers for the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("InitModule: Could not load game config, using defaults: %v", err)
	}

	matches := NewNakamaMatchStore(nk)
	queue := NewNakamaQueueStore(nk)
	tournaments := NewNakamaTournamentStore(nk)
	identity := NewNakamaIdentityAdapter(nk)
	notifier := NewNakamaNotifierAdapter(nk)
	rooms := NewNakamaRoomCreator(nk)

	queueSvc := matchqueue.NewService(queue, matches, identity, rooms, nil)
	tournamentSvc := tournament.NewService(tournaments, matches, rooms, notifier, logger, nil)

	if err := registerRPCs(initializer, queueSvc, tournamentSvc); err != nil {
		return err
	}
	if err := initializer.RegisterMatch(MatchNamePong, NewMatch); err != nil {
		return err
	}
	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	startSchedulers(ctx, logger, queueSvc, tournamentSvc)

	logger.Info("Pong Go module loaded.")
	return nil
}
