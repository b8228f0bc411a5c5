package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"pong/internal/app"
	"pong/internal/app/session"
	"pong/internal/config"
	"pong/internal/domain"
	"pong/internal/ports"
)

// tickRate is the authoritative simulation rate; one tick is ~17ms.
const tickRate = 60

// MatchState holds the authoritative runtime state for one pong room.
type MatchState struct {
	MatchID string // persisted match record id, from the room's init params

	Room      *session.Room
	Engine    *app.Engine
	Presences map[string]runtime.Presence // userID -> presence for targeted messaging

	matches  ports.MatchStore
	identity ports.Identity
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the room is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	matchID, _ := params["match_id"].(string)
	if matchID == "" {
		logger.Error("MatchInit: Missing match_id param; room will reject all joins.")
	}

	state := &MatchState{
		MatchID:   matchID,
		Room:      session.NewRoom(matchID),
		Engine:    app.NewEngine(config.ScoreToWin(), nil),
		Presences: make(map[string]runtime.Presence),
		matches:   NewNakamaMatchStore(nk),
		identity:  NewNakamaIdentityAdapter(nk),
	}

	return state, tickRate, MatchNamePong
}

// MatchJoinAttempt admits only participants of the backing match record.
// Nakama serializes attempts per room, so admission races resolve here.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	match, err := matchState.matches.GetMatch(ctx, matchState.MatchID)
	if err != nil {
		logger.Error("MatchJoinAttempt: Failed to load match %s: %v", matchState.MatchID, err)
		return matchState, false, "match not found"
	}
	if !match.HasPlayer(presence.GetUserId()) {
		return matchState, false, "unauthorized"
	}
	if match.Status == domain.MatchCompleted {
		return matchState, false, "match already completed"
	}

	return matchState, true, ""
}

// MatchJoin seats admitted players. A reconnecting player recovers their
// seat and cancels the pending grace deadline.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	match, err := matchState.matches.GetMatch(ctx, matchState.MatchID)
	if err != nil {
		logger.Error("MatchJoin: Failed to load match %s: %v", matchState.MatchID, err)
		return matchState
	}

	now := time.Now()
	for _, p := range presences {
		conn, err := matchState.Room.Admit(p.GetUserId(), now)
		if err != nil {
			logger.Warn("MatchJoin: User %s admitted by attempt but room rejected: %v", p.GetUserId(), err)
			continue
		}
		matchState.Presences[p.GetUserId()] = p

		mh.sendTo(matchState, dispatcher, logger, p.GetUserId(), OpConnection, ConnectionPayload{
			Type:             "connection",
			Status:           "connected",
			PlayerID:         p.GetUserId(),
			PlayerNumber:     conn.Seat,
			RoomID:           match.ID,
			PlayersConnected: matchState.Room.ConnectedCount(),
			PlayersNeeded:    app.PlayersPerMatch,
		})
		mh.broadcastExcept(matchState, dispatcher, logger, p.GetUserId(), OpPlayerConnected, PlayerConnectedPayload{
			Type:             "playerConnected",
			PlayersConnected: matchState.Room.ConnectedCount(),
			PlayersNeeded:    app.PlayersPerMatch,
			NewPlayerNumber:  conn.Seat,
		})
		logger.Info("MatchJoin: User %s seated at %d in match %s", p.GetUserId(), conn.Seat, match.ID)
	}

	return matchState
}

// MatchLeave arms the reconnect grace window rather than forfeiting
// immediately. The room only ends here once the game is over and the last
// session is gone.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	now := time.Now()
	grace := time.Duration(config.GraceSeconds()) * time.Second
	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		if matchState.Engine.Completed() {
			matchState.Room.Remove(p.GetUserId())
			continue
		}

		if _, ok := matchState.Room.Seat(p.GetUserId()); !ok {
			continue
		}
		deadline := matchState.Room.MarkDisconnected(p.GetUserId(), now, grace)
		mh.broadcastExcept(matchState, dispatcher, logger, p.GetUserId(), OpPlayerDisconnected, PlayerDisconnectedPayload{
			Type:    "playerDisconnected",
			Message: "Your opponent has disconnected. Waiting for reconnection...",
		})
		logger.Info("MatchLeave: User %s disconnected, grace until %s", p.GetUserId(), deadline.Format(time.RFC3339))
	}

	if len(matchState.Presences) == 0 && matchState.Engine.Completed() {
		logger.Info("MatchLeave: Room for match %s is empty and complete, terminating.", matchState.MatchID)
		return nil
	}
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	now := time.Now()
	nowMillis := now.UnixMilli()

	if ended := mh.handleGraceExpiry(ctx, matchState, dispatcher, logger, now); ended {
		return nil
	}

	for _, msg := range messages {
		mh.handleMessage(matchState, dispatcher, logger, msg, tick, now)
	}

	if matchState.Engine.MaybeStart(tick, nowMillis) {
		if err := matchState.matches.MarkOngoing(ctx, matchState.MatchID); err != nil {
			logger.Error("MatchLoop: Failed to mark match %s ongoing: %v", matchState.MatchID, err)
		}
		logger.Info("MatchLoop: Match %s simulation started at tick %d", matchState.MatchID, tick)
	}

	pingEvery := int64(config.PingSeconds()) * tickRate
	if tick > 0 && tick%pingEvery == 0 {
		mh.broadcast(matchState, dispatcher, logger, OpPing, PingPayload{Type: "ping", TimeStamp: nowMillis})
	}

	frame, events := matchState.Engine.Tick(1.0/float64(tickRate), nowMillis)
	if frame != nil {
		frame.Type = "gameState"
		mh.broadcast(matchState, dispatcher, logger, OpGameState, frame)
	}
	for _, ev := range events {
		mh.broadcastEvent(matchState, dispatcher, logger, ev)
	}

	if matchState.Engine.Completed() {
		mh.persistResult(ctx, matchState, logger, matchState.Engine.WinnerSeat())
	}

	return matchState
}

// handleGraceExpiry forfeits players whose reconnect window has run out.
// The match record is re-checked first: a record completed by another path
// (room teardown racing a stale timer) must not produce a second result.
func (mh *matchHandler) handleGraceExpiry(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, now time.Time) bool {
	expired := state.Room.ExpiredGrace(now)
	if len(expired) == 0 {
		return false
	}

	match, err := state.matches.GetMatch(ctx, state.MatchID)
	if err != nil {
		logger.Error("MatchLoop: Failed to re-check match %s on grace expiry: %v", state.MatchID, err)
		return false
	}
	if match.Status == domain.MatchCompleted {
		for _, userID := range expired {
			state.Room.Remove(userID)
		}
		return len(state.Presences) == 0
	}

	forfeited := expired[0]
	seat, _ := state.Room.Seat(forfeited)
	winnerSeat := 3 - seat
	winnerID, ok := state.Room.UserAtSeat(winnerSeat)
	if !ok {
		// The opponent never connected; the match record still names them.
		winnerID = match.Opponent(forfeited)
	}
	logger.Info("MatchLoop: User %s forfeited match %s on grace expiry, %s wins", forfeited, state.MatchID, winnerID)

	for _, ev := range state.Engine.ForceWinner(winnerSeat, now.UnixMilli()) {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	mh.persistOutcome(ctx, state, logger, winnerID, forfeited)

	var remaining []runtime.Presence
	for _, p := range state.Presences {
		remaining = append(remaining, p)
	}
	if len(remaining) > 0 {
		if err := dispatcher.MatchKick(remaining); err != nil {
			logger.Error("MatchLoop: Failed to kick presences: %v", err)
		}
	}
	return true
}

// handleMessage routes one inbound client command. Invalid input earns the
// sender an error frame and never disturbs the loop.
func (mh *matchHandler) handleMessage(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData, tick int64, now time.Time) {
	senderID := msg.GetUserId()
	seat, ok := state.Room.Seat(senderID)
	if !ok {
		logger.Warn("MatchLoop: Message from unseated user %s ignored.", senderID)
		return
	}
	if msg.GetOpCode() != OpClientCommand {
		mh.sendError(state, dispatcher, logger, senderID, "unknown op code")
		return
	}
	if !state.Room.AllowMessage(senderID) {
		logger.Warn("MatchLoop: User %s exceeded message budget, dropping.", senderID)
		return
	}
	state.Room.Touch(senderID, now)

	var cmd ClientCommand
	if err := json.Unmarshal(msg.GetData(), &cmd); err != nil {
		mh.sendError(state, dispatcher, logger, senderID, "malformed message")
		return
	}

	switch cmd.Type {
	case CmdReady:
		delayTicks := int64(config.StartDelaySeconds()) * tickRate
		for _, ev := range state.Engine.MarkReady(seat, senderID, tick, delayTicks, now.UnixMilli()) {
			mh.broadcastEvent(state, dispatcher, logger, ev)
		}
	case CmdMove:
		dir := domain.Direction(cmd.Direction)
		if !domain.ValidDirection(dir) {
			mh.sendError(state, dispatcher, logger, senderID, "invalid move direction")
			return
		}
		if err := state.Engine.HandleMove(seat, dir); err != nil {
			mh.sendError(state, dispatcher, logger, senderID, err.Error())
		}
	case CmdPause:
		state.Engine.Pause()
	case CmdResume:
		state.Engine.Resume()
	case CmdReset:
		state.Engine.Reset()
	default:
		mh.sendError(state, dispatcher, logger, senderID, "unknown message type")
	}
}

// persistResult resolves the winning and losing user ids from the room's
// seats and finalizes the outcome.
func (mh *matchHandler) persistResult(ctx context.Context, state *MatchState, logger runtime.Logger, winnerSeat int) {
	winnerID, _ := state.Room.UserAtSeat(winnerSeat)
	loserID, _ := state.Room.UserAtSeat(3 - winnerSeat)
	mh.persistOutcome(ctx, state, logger, winnerID, loserID)
}

// persistOutcome finalizes the match record and win/loss counters exactly
// once per room, no matter which path detects the result first.
func (mh *matchHandler) persistOutcome(ctx context.Context, state *MatchState, logger runtime.Logger, winnerID, loserID string) {
	if !state.Room.TryRecordResult() {
		return
	}
	if winnerID == "" {
		logger.Error("persistOutcome: No winner resolved for match %s", state.MatchID)
		return
	}

	if err := state.matches.CompleteMatch(ctx, state.MatchID, winnerID); err != nil {
		logger.Error("persistOutcome: Failed to complete match %s: %v", state.MatchID, err)
		return
	}
	if err := state.identity.RecordWin(ctx, winnerID); err != nil {
		logger.Error("persistOutcome: Failed to record win for %s: %v", winnerID, err)
	}
	if loserID != "" {
		if err := state.identity.RecordLoss(ctx, loserID); err != nil {
			logger.Error("persistOutcome: Failed to record loss for %s: %v", loserID, err)
		}
	}
	logger.Info("persistOutcome: Match %s won by %s", state.MatchID, winnerID)
}

func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	var opCode int64
	switch ev.Kind {
	case app.EventReadyStatus:
		opCode = OpReadyStatus
	case app.EventGameStart:
		opCode = OpGameStart
	case app.EventGameStop:
		opCode = OpGameStop
	default:
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}
		if len(recipients) == 0 {
			return
		}
	}

	bytes, err := json.Marshal(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}
	dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true)
}

func (mh *matchHandler) broadcast(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64, payload interface{}) {
	bytes, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal broadcast payload: %v", err)
		return
	}
	dispatcher.BroadcastMessage(opCode, bytes, nil, nil, true)
}

// broadcastExcept sends to every connected presence but one.
func (mh *matchHandler) broadcastExcept(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, exceptUserID string, opCode int64, payload interface{}) {
	var recipients []runtime.Presence
	for uid, p := range state.Presences {
		if uid != exceptUserID {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) == 0 {
		return
	}
	bytes, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal broadcast payload: %v", err)
		return
	}
	dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true)
}

func (mh *matchHandler) sendTo(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, opCode int64, payload interface{}) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send to %s: Presence not found", userID)
		return
	}
	bytes, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal payload for %s: %v", userID, err)
		return
	}
	dispatcher.BroadcastMessage(opCode, bytes, []runtime.Presence{presence}, nil, true)
}

// sendError sends an error frame to a single user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID, message string) {
	mh.sendTo(state, dispatcher, logger, userID, OpError, ErrorPayload{Type: "error", Message: message})
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	if matchState.Engine.Completed() {
		mh.persistResult(ctx, matchState, logger, matchState.Engine.WinnerSeat())
	}
	logger.Debug("MatchTerminate: Room for match %s terminated, reason %d", matchState.MatchID, reason)
	return matchState
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
