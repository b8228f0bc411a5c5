package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/heroiclabs/nakama-common/runtime"

	"pong/internal/app/matchqueue"
	"pong/internal/app/tournament"
	"pong/internal/domain"
)

// gRPC status codes used by runtime.NewError.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codeAlreadyExists      = 6
	codeFailedPrecondition = 9
	codeInternal           = 13
	codeUnauthenticated    = 16
)

// FindMatchResponse points a client at their pending match and its room.
type FindMatchResponse struct {
	MatchID string `json:"match_id"`
	RoomID  string `json:"room_id"`
}

// CreateTournamentRequest is the payload for the create_tournament RPC.
type CreateTournamentRequest struct {
	Name            string `json:"name"`
	RequiredPlayers int    `json:"required_players"`
}

// TournamentRequest addresses an existing tournament.
type TournamentRequest struct {
	TournamentID string `json:"tournament_id"`
	Alias        string `json:"alias,omitempty"`
}

// registerRPCs wires the queue and tournament services into Nakama RPC ids.
func registerRPCs(initializer runtime.Initializer, queueSvc *matchqueue.Service, tournamentSvc *tournament.Service) error {
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcJoinQueue:            rpcJoinQueue(queueSvc),
		RpcLeaveQueue:           rpcLeaveQueue(queueSvc),
		RpcFindMatch:            rpcFindMatch(queueSvc),
		RpcCreateTournament:     rpcCreateTournament(tournamentSvc),
		RpcListTournaments:      rpcListTournaments(tournamentSvc),
		RpcRegisterTournament:   rpcRegisterTournament(tournamentSvc),
		RpcUnregisterTournament: rpcUnregisterTournament(tournamentSvc),
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return err
		}
	}
	return nil
}

func rpcJoinQueue(svc *matchqueue.Service) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, err := callerID(ctx)
		if err != nil {
			return "", err
		}
		if err := svc.Join(ctx, userID); err != nil {
			logger.Warn("RpcJoinQueue [User:%s]: %v", userID, err)
			return "", toRpcError(err)
		}
		logger.Info("RpcJoinQueue [User:%s]: Queued.", userID)
		return "{}", nil
	}
}

func rpcLeaveQueue(svc *matchqueue.Service) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, err := callerID(ctx)
		if err != nil {
			return "", err
		}
		if err := svc.Leave(ctx, userID); err != nil {
			logger.Error("RpcLeaveQueue [User:%s]: %v", userID, err)
			return "", toRpcError(err)
		}
		return "{}", nil
	}
}

func rpcFindMatch(svc *matchqueue.Service) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, err := callerID(ctx)
		if err != nil {
			return "", err
		}
		match, err := svc.FindMatchForPlayer(ctx, userID)
		if err != nil {
			return "", toRpcError(err)
		}
		return marshalResponse(FindMatchResponse{MatchID: match.ID, RoomID: match.RoomID})
	}
}

func rpcCreateTournament(svc *tournament.Service) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		var req CreateTournamentRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("malformed payload", codeInvalidArgument)
		}
		if req.Name == "" {
			return "", runtime.NewError("tournament name is required", codeInvalidArgument)
		}
		t, err := svc.Create(ctx, req.Name, req.RequiredPlayers)
		if err != nil {
			return "", toRpcError(err)
		}
		logger.Info("RpcCreateTournament: Created %s (%d players)", t.ID, t.RequiredPlayers)
		return marshalResponse(t)
	}
}

func rpcListTournaments(svc *tournament.Service) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		tournaments, err := svc.List(ctx)
		if err != nil {
			return "", toRpcError(err)
		}
		return marshalResponse(tournaments)
	}
}

func rpcRegisterTournament(svc *tournament.Service) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, err := callerID(ctx)
		if err != nil {
			return "", err
		}
		var req TournamentRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("malformed payload", codeInvalidArgument)
		}
		if err := svc.Register(ctx, req.TournamentID, userID, req.Alias); err != nil {
			logger.Warn("RpcRegisterTournament [User:%s]: %v", userID, err)
			return "", toRpcError(err)
		}
		return "{}", nil
	}
}

func rpcUnregisterTournament(svc *tournament.Service) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, err := callerID(ctx)
		if err != nil {
			return "", err
		}
		var req TournamentRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("malformed payload", codeInvalidArgument)
		}
		if err := svc.Unregister(ctx, req.TournamentID, userID); err != nil {
			return "", toRpcError(err)
		}
		return "{}", nil
	}
}

func callerID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", runtime.NewError("authentication required", codeUnauthenticated)
	}
	return userID, nil
}

func marshalResponse(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("failed to marshal response", codeInternal)
	}
	return string(b), nil
}

// toRpcError maps domain sentinels onto transport status codes.
func toRpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return runtime.NewError(err.Error(), codeNotFound)
	case errors.Is(err, domain.ErrUnknownUser):
		return runtime.NewError(err.Error(), codeNotFound)
	case errors.Is(err, domain.ErrAlreadyQueued), errors.Is(err, domain.ErrAlreadyRegistered):
		return runtime.NewError(err.Error(), codeAlreadyExists)
	case errors.Is(err, domain.ErrRegistrationClosed):
		return runtime.NewError(err.Error(), codeFailedPrecondition)
	case errors.Is(err, domain.ErrInvalidPlayerCount):
		return runtime.NewError(err.Error(), codeInvalidArgument)
	default:
		return runtime.NewError(err.Error(), codeInternal)
	}
}
